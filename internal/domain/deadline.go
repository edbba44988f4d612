package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DeadlineUnit is one of h, d, w, m, y.
type DeadlineUnit byte

const (
	UnitHour  DeadlineUnit = 'h'
	UnitDay   DeadlineUnit = 'd'
	UnitWeek  DeadlineUnit = 'w'
	UnitMonth DeadlineUnit = 'm'
	UnitYear  DeadlineUnit = 'y'
)

var deadlineTokenRe = regexp.MustCompile(`^(\d+)([hdwmy])$`)

// Deadline is a parsed deadline token such as "24h" or "3d". Tokens are
// parsed once at the boundary; a zero Deadline means "no enforceable
// deadline".
type Deadline struct {
	Amount int
	Unit   DeadlineUnit
}

// ParseDeadline validates and parses a deadline token.
func ParseDeadline(token string) (Deadline, error) {
	m := deadlineTokenRe.FindStringSubmatch(token)
	if m == nil {
		return Deadline{}, fmt.Errorf("%w: %q", ErrInvalidDeadline, token)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return Deadline{}, fmt.Errorf("%w: %q", ErrInvalidDeadline, token)
	}
	return Deadline{Amount: n, Unit: DeadlineUnit(m[2][0])}, nil
}

// IsZero reports whether no deadline is set.
func (d Deadline) IsZero() bool { return d.Amount == 0 }

func (d Deadline) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d%c", d.Amount, d.Unit)
}

// Resolve returns the absolute expiry instant for a clock started at base.
// Month and year arithmetic is calendar-aware.
func (d Deadline) Resolve(base time.Time) time.Time {
	switch d.Unit {
	case UnitHour:
		return base.Add(time.Duration(d.Amount) * time.Hour)
	case UnitDay:
		return base.AddDate(0, 0, d.Amount)
	case UnitWeek:
		return base.AddDate(0, 0, 7*d.Amount)
	case UnitMonth:
		return base.AddDate(0, d.Amount, 0)
	case UnitYear:
		return base.AddDate(d.Amount, 0, 0)
	default:
		return time.Time{}
	}
}

// Progress describes how much of the submission window has elapsed.
type Progress struct {
	Percentage float64
	Elapsed    time.Duration
	Total      time.Duration
	Expiry     time.Time
}

// Expired reports whether the window is fully consumed.
func (p Progress) Expired() bool { return p.Percentage >= 100 }

// ProgressAt computes the elapsed fraction of the window that starts at
// start, clamped to [0, 100].
func (d Deadline) ProgressAt(start, now time.Time) Progress {
	expiry := d.Resolve(start)
	total := expiry.Sub(start)
	elapsed := now.Sub(start)

	var pct float64
	switch {
	case now.Before(start):
		pct = 0
	case total <= 0 || !now.Before(expiry):
		pct = 100
	default:
		pct = float64(elapsed) / float64(total) * 100
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	return Progress{Percentage: pct, Elapsed: elapsed, Total: total, Expiry: expiry}
}
