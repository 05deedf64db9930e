package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lescriminels/guild/config"
)

type EventType string

const (
	BorrowRequested EventType = "borrow.requested"
	BorrowApproved  EventType = "borrow.approved"
	BorrowReturning EventType = "borrow.returning"
	BorrowReturned  EventType = "borrow.returned"
	BorrowCancelled EventType = "borrow.cancelled"
	BorrowReverted  EventType = "borrow.reverted"
)

// Event describes one committed lifecycle transition.
type Event struct {
	Type       EventType `json:"type"`
	BorrowID   string    `json:"borrow_id"`
	ItemID     string    `json:"item_id"`
	BorrowerID string    `json:"borrower_id"`
	OwnerID    string    `json:"owner_id"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher { return &LogPublisher{log: log} }

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.log.InfoContext(ctx, "lifecycle event",
		"type", string(e.Type),
		"borrow_id", e.BorrowID,
		"item_id", e.ItemID,
		"borrower_id", e.BorrowerID,
		"owner_id", e.OwnerID,
		"status", e.Status,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Open builds the publisher named by cfg.NotifyDriver.
func Open(cfg config.Config, log *slog.Logger) (Publisher, error) {
	switch cfg.NotifyDriver {
	case "", "log":
		return NewLogPublisher(log), nil
	case "amqp":
		return DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
	}
	return nil, fmt.Errorf("unknown NOTIFY_DRIVER %q", cfg.NotifyDriver)
}
