// Package events publishes person lifecycle events. Events identify the
// affected record by id or by the attribute name used to address it; they
// never carry identifier values.
package events

import (
	"context"
	"log/slog"
	"time"
)

// Type names a lifecycle transition.
type Type string

const (
	TypePersonCreated Type = "person.created"
	TypePersonUpdated Type = "person.updated"
	TypePersonDeleted Type = "person.deleted"
)

// Event is one lifecycle notification.
type Event struct {
	Type       Type      `json:"type"`
	PersonID   int64     `json:"personId,omitempty"`
	Attribute  string    `json:"attribute,omitempty"`
	Affected   int64     `json:"affected,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// LogPublisher writes events to the structured log. It is used when no broker
// is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.InfoContext(ctx, "person event",
		"type", string(e.Type),
		"person_id", e.PersonID,
		"attribute", e.Attribute,
		"affected", e.Affected,
		"request_id", e.RequestID,
	)
	return nil
}

func (p *LogPublisher) Close() {}
