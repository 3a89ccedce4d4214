// Package provisioning manages accounts on the storage backend through its
// admin API.
package provisioning

import "context"

// CreateRequest carries everything needed to provision a new account: the
// admin user, the tenant group and the group storage quota.
type CreateRequest struct {
	Username    string
	DisplayName string
	Email       string
	GroupName   string
	QuotaBytes  int64
}

// Backend provisions and inspects accounts. The returned group name is the
// account identifier shared with the marketplace; the backend may append a
// suffix when the requested name is taken.
type Backend interface {
	CreateAccount(ctx context.Context, req CreateRequest) (group string, err error)
	EnableAccount(ctx context.Context, group string) error
	DisableAccount(ctx context.Context, group string) error
	DeleteAccount(ctx context.Context, group string) error
	ChangeQuota(ctx context.Context, group string, quotaBytes int64) error
	SeatCount(ctx context.Context, group string) (int64, error)
}
