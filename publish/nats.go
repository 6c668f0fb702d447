package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject schedule announcements go to.
const DefaultSubject = "meetgrid.schedule.published"

// Notification announces a published schedule.
type Notification struct {
	Meeting    string    `json:"meeting"`
	RunID      string    `json:"run_id"`
	Name       string    `json:"name"`
	Size       int       `json:"size"`
	Sessions   int       `json:"sessions"`
	Unresolved int       `json:"unresolved"`
	CreatedAt  time.Time `json:"created_at"`
}

// NATS announces artifacts on a subject. It sends a Notification, not the
// document itself.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// NewNATS connects to the server at url.
func NewNATS(url, subject string, opts ...nats.Option) (*NATS, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	nc, err := nats.Connect(url, append([]nats.Option{nats.Name("meetgrid")}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATS{conn: nc, subject: subject}, nil
}

// Publish implements Sink. It returns once the server has the message.
func (n *NATS) Publish(ctx context.Context, a Artifact) error {
	data, err := json.Marshal(Notification{
		Meeting:    a.MeetingName,
		RunID:      a.RunID,
		Name:       a.Name,
		Size:       len(a.Data),
		Sessions:   a.Sessions,
		Unresolved: a.Unresolved,
		CreatedAt:  a.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", n.subject, err)
	}
	// FlushWithContext refuses contexts without a deadline.
	flush := n.conn.Flush
	if _, ok := ctx.Deadline(); ok {
		flush = func() error { return n.conn.FlushWithContext(ctx) }
	}
	if err := flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", n.subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
