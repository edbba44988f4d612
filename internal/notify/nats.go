package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes events as JSON for the delivery workers,
// one subject per channel (<prefix>.system, <prefix>.email).
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url, subjectPrefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("solveit-engine"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: subjectPrefix}, nil
}

func (p *NATSPublisher) Notify(_ context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("marshal notification", "error", err)
		return
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, e.Channel)
	if err := p.conn.Publish(subject, data); err != nil {
		slog.Error("publish notification",
			"subject", subject,
			"audience", e.Audience,
			"error", err,
		)
	}
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}
