// Package events classifies marketplace subscription events and drives the
// provisioning actions they demand.
package events

import (
	"context"
	"fmt"
	"strings"

	accountdomain "github.com/seaporthq/seaport/internal/account/domain"
	"github.com/seaporthq/seaport/internal/edition"
	"github.com/seaporthq/seaport/internal/marketplace"
	"github.com/seaporthq/seaport/internal/provisioning"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// MarketplaceAPI is the slice of the marketplace client the processor needs.
type MarketplaceAPI interface {
	FetchEvent(ctx context.Context, eventURL string) (marketplace.Event, error)
	SubmitResult(ctx context.Context, eventURL string, result marketplace.Result) error
}

// IsSynchronous reports whether the event must be handled inline on the
// webhook instead of being queued. Notice events never expect a posted
// result, so they cannot ride the queue's submit-then-finalize flow.
func IsSynchronous(event marketplace.Event) bool {
	return event.Type == marketplace.EventSubscriptionNotice
}

type Params struct {
	fx.In

	Marketplace MarketplaceAPI
	Backend     provisioning.Backend
	Accounts    accountdomain.Service
	Editions    *edition.Holder
	Journal     Journal
	Log         *zap.Logger
}

// Service processes fetched events end to end: provisioning action, result
// submission and journalling.
type Service struct {
	marketplace MarketplaceAPI
	backend     provisioning.Backend
	accounts    accountdomain.Service
	editions    *edition.Holder
	journal     Journal
	log         *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		marketplace: p.Marketplace,
		backend:     p.Backend,
		accounts:    p.Accounts,
		editions:    p.Editions,
		journal:     p.Journal,
		log:         p.Log.Named("events"),
	}
}

// Process fetches and handles one queued event. Backend failures become an
// error result submitted to the marketplace and a nil return, so the caller
// finalizes the item; transport failures propagate.
func (s *Service) Process(ctx context.Context, eventURL string) error {
	event, err := s.marketplace.FetchEvent(ctx, eventURL)
	if err != nil {
		return err
	}

	if event.Flag == marketplace.FlagStateless {
		s.log.Info("events.stateless",
			zap.String("event_url", eventURL),
			zap.String("event_type", event.Type),
		)
		s.record(ctx, eventURL, event, "", marketplace.SuccessResult())
		return nil
	}

	var result marketplace.Result
	var accountID string

	switch event.Type {
	case marketplace.EventSubscriptionOrder:
		result, accountID = s.handleOrder(ctx, event)
	case marketplace.EventSubscriptionChange:
		result, accountID = s.handleChange(ctx, event)
	case marketplace.EventSubscriptionCancel:
		result, accountID = s.handleCancel(ctx, event)
	case marketplace.EventSubscriptionNotice:
		// Notices are synchronous; one that ended up queued is handled
		// anyway, minus the result submission the contract forbids.
		result, accountID = s.handleNotice(ctx, event)
		s.record(ctx, eventURL, event, accountID, result)
		return nil
	default:
		return fmt.Errorf("events: unknown event type %q for %s", event.Type, eventURL)
	}

	if err := s.marketplace.SubmitResult(ctx, eventURL, result); err != nil {
		return err
	}
	s.record(ctx, eventURL, event, accountID, result)
	return nil
}

// ProcessInline handles a synchronous (notice) event for the webhook
// controller and returns the result to use as the HTTP response body.
func (s *Service) ProcessInline(ctx context.Context, eventURL string, event marketplace.Event) marketplace.Result {
	if event.Flag == marketplace.FlagStateless {
		result := marketplace.SuccessResult()
		s.record(ctx, eventURL, event, "", result)
		return result
	}

	result, accountID := s.handleNotice(ctx, event)
	s.record(ctx, eventURL, event, accountID, result)
	return result
}

func (s *Service) handleOrder(ctx context.Context, event marketplace.Event) (marketplace.Result, string) {
	company := event.Payload.Company.Name
	username := SanitizeUsername(localPart(event.Creator.Email))

	spec, err := s.resolveEdition(event)
	if err != nil {
		s.log.Warn("events.order.unknown_edition",
			zap.String("edition_code", event.Payload.Order.EditionCode),
			zap.String("company", company),
			zap.Error(err),
		)
		return marketplace.ErrorResultWithMessage(marketplace.ErrorCodeUnknown, "product does not exist"), ""
	}

	group, err := s.backend.CreateAccount(ctx, provisioning.CreateRequest{
		Username:    username,
		DisplayName: strings.TrimSpace(event.Creator.FirstName + " " + event.Creator.LastName),
		Email:       event.Creator.Email,
		GroupName:   company,
		QuotaBytes:  spec.StorageBytes(),
	})
	if err != nil {
		s.log.Error("events.order.provision_failed",
			zap.String("company", company),
			zap.Error(err),
		)
		return marketplace.ErrorResult(marketplace.ErrorCodeUnknown), ""
	}

	if _, err := s.accounts.Create(ctx, accountdomain.Account{
		GroupName:   group,
		Admin:       username,
		EditionCode: spec.Code,
		SeatLimit:   spec.SeatLimit,
		StorageTB:   spec.StorageTB,
	}); err != nil {
		s.log.Error("events.order.store_failed",
			zap.String("group", group),
			zap.Error(err),
		)
		return marketplace.ErrorResultWithMessage(marketplace.ErrorCodeUnknown, err.Error()), group
	}

	return marketplace.SuccessResultWithAccount(group), group
}

func (s *Service) handleChange(ctx context.Context, event marketplace.Event) (marketplace.Result, string) {
	group := event.Payload.Account.AccountIdentifier

	spec, err := s.resolveEdition(event)
	if err != nil {
		s.log.Warn("events.change.unknown_edition",
			zap.String("edition_code", event.Payload.Order.EditionCode),
			zap.String("group", group),
			zap.Error(err),
		)
		return marketplace.ErrorResultWithMessage(marketplace.ErrorCodeUnknown, "product does not exist"), group
	}

	if err := s.backend.ChangeQuota(ctx, group, spec.StorageBytes()); err != nil {
		s.log.Error("events.change.quota_failed",
			zap.String("group", group),
			zap.Error(err),
		)
		return marketplace.ErrorResultWithMessage(marketplace.ErrorCodeUnknown, err.Error()), group
	}

	if err := s.accounts.UpdateEntitlements(ctx, group, spec.Code, spec.SeatLimit, spec.StorageTB); err != nil {
		s.log.Error("events.change.store_failed",
			zap.String("group", group),
			zap.Error(err),
		)
		return marketplace.ErrorResultWithMessage(marketplace.ErrorCodeUnknown, err.Error()), group
	}

	return marketplace.SuccessResult(), group
}

func (s *Service) handleCancel(ctx context.Context, event marketplace.Event) (marketplace.Result, string) {
	group := event.Payload.Account.AccountIdentifier

	if err := s.backend.DeleteAccount(ctx, group); err != nil {
		s.log.Error("events.cancel.delete_failed",
			zap.String("group", group),
			zap.Error(err),
		)
		return marketplace.ErrorResultWithMessage(marketplace.ErrorCodeUnknown, err.Error()), group
	}

	if err := s.accounts.DeleteByGroup(ctx, group); err != nil {
		s.log.Error("events.cancel.store_failed",
			zap.String("group", group),
			zap.Error(err),
		)
		return marketplace.ErrorResultWithMessage(marketplace.ErrorCodeUnknown, err.Error()), group
	}

	return marketplace.SuccessResult(), group
}

func (s *Service) handleNotice(ctx context.Context, event marketplace.Event) (marketplace.Result, string) {
	group := event.Payload.Account.AccountIdentifier

	var err error
	switch event.Payload.Notice.Type {
	case marketplace.NoticeDeactivated:
		err = s.backend.DisableAccount(ctx, group)
	case marketplace.NoticeReactivated:
		err = s.backend.EnableAccount(ctx, group)
	case marketplace.NoticeClosed:
		if err = s.backend.DeleteAccount(ctx, group); err == nil {
			err = s.accounts.DeleteByGroup(ctx, group)
		}
	case marketplace.NoticeUpcomingInvoice:
		// No provisioning action required.
	default:
		s.log.Warn("events.notice.unknown_type",
			zap.String("notice_type", event.Payload.Notice.Type),
			zap.String("group", group),
		)
	}

	if err != nil {
		s.log.Error("events.notice.failed",
			zap.String("notice_type", event.Payload.Notice.Type),
			zap.String("group", group),
			zap.Error(err),
		)
		return marketplace.ErrorResultWithMessage(marketplace.ErrorCodeUnknown, err.Error()), group
	}
	return marketplace.SuccessResult(), group
}

func (s *Service) resolveEdition(event marketplace.Event) (edition.Spec, error) {
	order := event.Payload.Order
	items := make([]edition.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, edition.LineItem{Unit: item.Unit, Quantity: item.Quantity})
	}
	return s.editions.Get().Resolve(order.EditionCode, order.Trial, items)
}

func (s *Service) record(ctx context.Context, eventURL string, event marketplace.Event, accountID string, result marketplace.Result) {
	if err := s.journal.Record(ctx, journalEntry(eventURL, event, accountID, result)); err != nil {
		// The journal is an audit aid; a failed insert never blocks the
		// event outcome.
		s.log.Warn("events.journal.record_failed",
			zap.String("event_url", eventURL),
			zap.Error(err),
		)
	}
}

const usernameChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_. @"

// SanitizeUsername strips characters the provisioning backend rejects in
// user ids.
func SanitizeUsername(username string) string {
	var b strings.Builder
	for _, r := range username {
		if strings.ContainsRune(usernameChars, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at >= 0 {
		return email[:at]
	}
	return email
}
