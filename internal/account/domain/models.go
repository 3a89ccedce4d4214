// Package domain contains the provisioned account model and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ErrNoneExpiring reports that no account is due for reconciliation.
var ErrNoneExpiring = errors.New("account: no account due for reconciliation")

// ErrAccountNotFound reports a lookup for a group we never provisioned.
var ErrAccountNotFound = errors.New("account: not found")

// Account is one provisioned subscription. GroupName is the identifier
// shared with the marketplace; BillingDate is a UTC-midnight timestamp and
// InProcessing marks a row claimed by the reconciliation loop.
type Account struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	GroupName    string       `gorm:"uniqueIndex:idx_accounts_group_name;type:text;not null"`
	Admin        string       `gorm:"type:text;not null"`
	BillingDate  time.Time    `gorm:"not null;index:idx_accounts_claim,priority:1"`
	CreationDate time.Time    `gorm:"not null"`
	EditionCode  string       `gorm:"type:text;not null"`
	SeatLimit    int64        `gorm:"not null"`
	StorageTB    float64      `gorm:"column:storage_tb;not null"`
	InProcessing bool         `gorm:"not null;default:false;index:idx_accounts_claim,priority:2"`
	CreatedAt    time.Time    `gorm:"not null"`
	UpdatedAt    time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// Repository persists accounts.
type Repository interface {
	Insert(ctx context.Context, account *Account) error
	FindByGroup(ctx context.Context, group string) (Account, error)
	// UpdateEntitlements replaces the edition-derived fields after a
	// subscription change.
	UpdateEntitlements(ctx context.Context, group, editionCode string, seatLimit int64, storageTB float64) error
	DeleteByGroup(ctx context.Context, group string) error
	// ClaimNextExpiring claims the account with the earliest billing date
	// at or before the horizon, using the same conditional-update protocol
	// as the work queue. Returns ErrNoneExpiring when none qualifies.
	ClaimNextExpiring(ctx context.Context, horizon time.Time) (Account, error)
	// AdvanceBillingDate moves the billing date to next and releases the
	// processing claim in a single update.
	AdvanceBillingDate(ctx context.Context, id snowflake.ID, next time.Time) error
}

// Service exposes account operations to the event processor and the
// reconciliation loop.
type Service interface {
	Create(ctx context.Context, account Account) (Account, error)
	FindByGroup(ctx context.Context, group string) (Account, error)
	UpdateEntitlements(ctx context.Context, group, editionCode string, seatLimit int64, storageTB float64) error
	DeleteByGroup(ctx context.Context, group string) error
	ClaimNextExpiring(ctx context.Context) (Account, error)
	// AdvanceBillingDate rolls the account's billing date one cycle past
	// its current value, anchored to the creation date.
	AdvanceBillingDate(ctx context.Context, account Account) (time.Time, error)
}
