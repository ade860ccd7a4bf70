package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/billingsync/pkg/logger"
)

// Resolution outcomes reported to metrics.
const (
	resolutionExisting = "existing"
	resolutionCreated  = "created"
	resolutionFailed   = "failed"
)

// Provisioner maps an application user to its provider customer.
type Provisioner struct {
	gateway ProviderGateway
	store   RecordStore
	opts    options
}

// NewProvisioner panics if gateway or store is nil.
func NewProvisioner(gateway ProviderGateway, store RecordStore, opts ...Option) *Provisioner {
	if gateway == nil {
		panic("billing: ProviderGateway is required")
	}
	if store == nil {
		panic("billing: RecordStore is required")
	}
	return &Provisioner{
		gateway: gateway,
		store:   store,
		opts:    newOptions("provisioner", opts),
	}
}

// ResolveCustomer returns the CustomerRecord for user, creating the provider
// customer and the record on first use. An existing record is confirmed
// against the provider but never recreated.
func (p *Provisioner) ResolveCustomer(ctx context.Context, user User) (*CustomerRecord, error) {
	if user.ID == "" {
		return nil, ErrInvalidUser
	}

	log := p.opts.log.With(logger.UserID(user.ID))

	if p.opts.locker != nil {
		unlock, err := p.opts.locker.Lock(ctx, provisionLockKey(user.ID))
		if err != nil {
			p.opts.metrics.customerResolved(resolutionFailed)
			log.ErrorContext(ctx, "failed to acquire provisioning lock", logger.Error(err))
			return nil, errors.Join(ErrStorageUnavailable, err)
		}
		defer unlock()
	}

	rec, outcome, err := p.resolve(ctx, log, user)
	p.opts.metrics.customerResolved(outcome)
	return rec, err
}

func (p *Provisioner) resolve(ctx context.Context, log *slog.Logger, user User) (*CustomerRecord, string, error) {
	existing, err := p.store.CustomersByUserID(ctx, user.ID)
	if err != nil {
		log.ErrorContext(ctx, "failed to query customer records", logger.Error(err))
		return nil, resolutionFailed, errors.Join(ErrStorageUnavailable, err)
	}

	if len(existing) > 0 {
		if len(existing) > 1 {
			log.WarnContext(ctx, "multiple customer records for user, using the first",
				slog.Int("count", len(existing)))
		}
		rec := existing[0]
		if _, err := p.gateway.RetrieveCustomer(ctx, rec.ProviderCustomerID); err != nil {
			log.ErrorContext(ctx, "failed to retrieve provider customer",
				logger.CustomerID(rec.ProviderCustomerID), logger.Error(err))
			return nil, resolutionFailed, errors.Join(ErrProviderUnavailable, err)
		}
		return &rec, resolutionExisting, nil
	}

	customer, err := p.gateway.CreateCustomer(ctx, CustomerParams{
		Email:    user.Email,
		Name:     user.DisplayName,
		Metadata: map[string]string{"user_id": user.ID},
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to create provider customer", logger.Error(err))
		return nil, resolutionFailed, errors.Join(ErrProviderUnavailable, err)
	}

	rec := CustomerRecord{
		UserID:             user.ID,
		ProviderCustomerID: customer.ID,
		CreatedAt:          time.Now().UTC(),
	}
	if err := p.store.InsertCustomer(ctx, rec); err != nil {
		// The provider customer now exists without a local record.
		log.ErrorContext(ctx, "failed to store customer record, provider customer orphaned",
			logger.CustomerID(customer.ID), logger.Error(err))
		return nil, resolutionFailed, errors.Join(ErrStorageUnavailable, err)
	}

	log.InfoContext(ctx, "provider customer created", logger.CustomerID(customer.ID))
	return &rec, resolutionCreated, nil
}

func provisionLockKey(userID string) string {
	return "billing:provision:" + userID
}
