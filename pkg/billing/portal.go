package billing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/billingsync/pkg/logger"
)

// PortalFactory creates billing portal sessions for users that already have
// a provider customer. It never provisions one.
type PortalFactory struct {
	gateway   ProviderGateway
	store     RecordStore
	redirects Redirects
	opts      options
}

func NewPortalFactory(gateway ProviderGateway, store RecordStore, redirects Redirects, opts ...Option) *PortalFactory {
	if gateway == nil {
		panic("billing: ProviderGateway is required")
	}
	if store == nil {
		panic("billing: RecordStore is required")
	}
	return &PortalFactory{
		gateway:   gateway,
		store:     store,
		redirects: redirects,
		opts:      newOptions("portal", opts),
	}
}

// CreatePortalSession requires exactly one CustomerRecord for the user;
// zero or several yield ErrInconsistentCustomerState without contacting the
// provider.
func (f *PortalFactory) CreatePortalSession(ctx context.Context, user User) (*PortalSession, error) {
	if user.ID == "" {
		return nil, ErrInvalidUser
	}

	log := f.opts.log.With(logger.UserID(user.ID))

	recs, err := f.store.CustomersByUserID(ctx, user.ID)
	if err != nil {
		log.ErrorContext(ctx, "failed to query customer records", logger.Error(err))
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	if len(recs) != 1 {
		log.WarnContext(ctx, "portal requested with unexpected customer record count",
			slog.Int("count", len(recs)))
		return nil, ErrInconsistentCustomerState
	}

	customerID := recs[0].ProviderCustomerID
	session, err := f.gateway.CreatePortalSession(ctx, PortalParams{
		CustomerID: customerID,
		ReturnURL:  f.redirects.ReturnURL(),
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to create portal session",
			logger.CustomerID(customerID), logger.Error(err))
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if session == nil || session.URL == "" {
		log.ErrorContext(ctx, "portal session has no URL", logger.CustomerID(customerID))
		return nil, errors.Join(ErrProviderUnavailable, ErrNoPortalURL)
	}

	return session, nil
}
