// Package service implements the task lifecycle and dispute resolution
// engine: the task state machine, the workspace/solution pipeline, the
// deadline enforcement sweep and the refund engine. All mutating
// operations run their multi-step transitions inside a single store
// transaction; notification and staff-alert delivery is fire-and-forget.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abdallemo/solveit-engine/internal/notify"
	"github.com/abdallemo/solveit-engine/internal/repository"
)

// notifyUser sends a subject/body pair to a user over both channels.
// Lookup or delivery problems are logged and swallowed.
func notifyUser(ctx context.Context, store repository.Store, n notify.Notifier, userID uuid.UUID, subject, body string) {
	if n == nil {
		return
	}
	n.Notify(ctx, notify.System(userID, subject, body))

	user, err := store.GetUser(ctx, userID)
	if err != nil {
		slog.Warn("skipping email notification", "user_id", userID, "error", err)
		return
	}
	n.Notify(ctx, notify.Email(userID, user.Email, subject, body))
}

func timePtr(t time.Time) *time.Time { return &t }
