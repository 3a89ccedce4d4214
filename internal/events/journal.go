package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/seaporthq/seaport/internal/clock"
	"github.com/seaporthq/seaport/internal/marketplace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProcessedEvent is one journal row per handled marketplace event. The
// journal is the audit trail for what was submitted back to the marketplace.
type ProcessedEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	EventURL    string            `gorm:"column:event_url;type:text;not null"`
	EventType   string            `gorm:"type:text;not null"`
	AccountID   string            `gorm:"type:text;not null;index:idx_processed_events_account,priority:1"`
	Success     bool              `gorm:"not null"`
	Message     string            `gorm:"type:text;not null"`
	ResultBody  datatypes.JSONMap `gorm:"type:jsonb"`
	ProcessedAt time.Time         `gorm:"not null;index:idx_processed_events_account,priority:2"`
}

// TableName sets the database table name.
func (ProcessedEvent) TableName() string { return "processed_events" }

// Journal records processed events.
type Journal interface {
	Record(ctx context.Context, entry ProcessedEvent) error
}

type journal struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  clock.Clock
	logger *zap.Logger
}

// NewJournal builds the database-backed journal.
func NewJournal(db *gorm.DB, node *snowflake.Node, clk clock.Clock, logger *zap.Logger) Journal {
	return &journal{
		db:     db,
		node:   node,
		clock:  clk,
		logger: logger.Named("events.journal"),
	}
}

func (j *journal) Record(ctx context.Context, entry ProcessedEvent) error {
	if entry.ID == 0 {
		entry.ID = j.node.Generate()
	}
	if entry.ProcessedAt.IsZero() {
		entry.ProcessedAt = j.clock.Now().UTC()
	}
	return j.db.WithContext(ctx).Exec(
		`INSERT INTO processed_events (
			id, event_url, event_type, account_id, success, message,
			result_body, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.EventURL,
		entry.EventType,
		entry.AccountID,
		entry.Success,
		entry.Message,
		entry.ResultBody,
		entry.ProcessedAt,
	).Error
}

func journalEntry(eventURL string, event marketplace.Event, accountID string, result marketplace.Result) ProcessedEvent {
	return ProcessedEvent{
		EventURL:  eventURL,
		EventType: event.Type,
		AccountID: accountID,
		Success:   result.Success,
		Message:   result.Message,
		ResultBody: datatypes.JSONMap{
			"success":           result.Success,
			"accountIdentifier": result.AccountIdentifier,
			"errorCode":         result.ErrorCode,
			"message":           result.Message,
		},
	}
}
