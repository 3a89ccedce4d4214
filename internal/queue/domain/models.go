// Package domain contains the durable work queue model and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ErrQueueEmpty reports that no unclaimed work item is available.
var ErrQueueEmpty = errors.New("queue: no unclaimed work item")

// WorkItem is one queued marketplace event awaiting asynchronous processing.
// InProgress marks a claimed row; claiming is a conditional update so at most
// one worker ever holds an item.
type WorkItem struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	EventURL   string       `gorm:"column:event_url;type:text;not null"`
	InProgress bool         `gorm:"not null;default:false;index:idx_queue_items_claim,priority:1"`
	EnqueuedAt time.Time    `gorm:"not null;index:idx_queue_items_claim,priority:2"`
}

// TableName sets the database table name.
func (WorkItem) TableName() string { return "queue_items" }

// Repository persists work items.
type Repository interface {
	// Push appends a new item to the queue.
	Push(ctx context.Context, eventURL string) (WorkItem, error)
	// ClaimNext claims the oldest unclaimed item. A row lost to a
	// concurrent claimant is skipped and the next candidate is tried.
	// Returns ErrQueueEmpty when no candidate remains.
	ClaimNext(ctx context.Context) (WorkItem, error)
	// Release returns a claimed item to the queue.
	Release(ctx context.Context, id snowflake.ID) error
	// Finalize removes a processed item permanently.
	Finalize(ctx context.Context, id snowflake.ID) error
}

// Service exposes queue operations to the webhook controller and the worker.
type Service interface {
	Enqueue(ctx context.Context, eventURL string) (WorkItem, error)
	ClaimNext(ctx context.Context) (WorkItem, error)
	Release(ctx context.Context, item WorkItem) error
	Finalize(ctx context.Context, item WorkItem) error
}
