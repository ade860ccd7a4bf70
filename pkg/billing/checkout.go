package billing

import (
	"context"
	"errors"

	"github.com/dmitrymomot/billingsync/pkg/logger"
)

const (
	checkoutQuantity         = 1
	billingAddressCollection = "auto"
)

// CheckoutFactory creates hosted subscription checkout sessions.
type CheckoutFactory struct {
	customers CustomerResolver
	gateway   ProviderGateway
	redirects Redirects
	opts      options
}

func NewCheckoutFactory(customers CustomerResolver, gateway ProviderGateway, redirects Redirects, opts ...Option) *CheckoutFactory {
	if customers == nil {
		panic("billing: CustomerResolver is required")
	}
	if gateway == nil {
		panic("billing: ProviderGateway is required")
	}
	return &CheckoutFactory{
		customers: customers,
		gateway:   gateway,
		redirects: redirects,
		opts:      newOptions("checkout", opts),
	}
}

// CreateCheckoutSession resolves the user's customer and the active price for
// lookupKey, then opens a subscription checkout for one unit of it. No local
// state is written here; the subscription record arrives by webhook.
func (f *CheckoutFactory) CreateCheckoutSession(ctx context.Context, user User, lookupKey string) (*CheckoutSession, error) {
	if lookupKey == "" {
		return nil, ErrUnknownPlan
	}

	rec, err := f.customers.ResolveCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	log := f.opts.log.With(logger.UserID(user.ID), logger.CustomerID(rec.ProviderCustomerID))

	prices, err := f.gateway.ListPricesByLookupKey(ctx, lookupKey)
	if err != nil {
		log.ErrorContext(ctx, "failed to list prices", logger.Error(err))
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	price, ok := firstActive(prices)
	if !ok {
		log.WarnContext(ctx, "no active price for lookup key")
		return nil, ErrUnknownPlan
	}

	session, err := f.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID:               rec.ProviderCustomerID,
		PriceID:                  price.ID,
		Quantity:                 checkoutQuantity,
		BillingAddressCollection: billingAddressCollection,
		SuccessURL:               f.redirects.SuccessURL(),
		CancelURL:                f.redirects.CancelURL(),
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to create checkout session", logger.Error(err))
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if session == nil || session.URL == "" {
		log.ErrorContext(ctx, "checkout session has no URL")
		return nil, errors.Join(ErrProviderUnavailable, ErrNoCheckoutURL)
	}

	return session, nil
}

func firstActive(prices []Price) (Price, bool) {
	for _, p := range prices {
		if p.Active && p.ID != "" {
			return p, true
		}
	}
	return Price{}, false
}
