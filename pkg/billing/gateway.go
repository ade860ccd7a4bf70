package billing

import "context"

// ProviderGateway is the subset of the billing provider API this package uses.
// Implementations must be safe for concurrent use.
type ProviderGateway interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error)
	RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error)

	// ListPricesByLookupKey returns the active prices carrying lookupKey.
	ListPricesByLookupKey(ctx context.Context, lookupKey string) ([]Price, error)

	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, params PortalParams) (*PortalSession, error)
}

// RecordStore persists customer and subscription records.
type RecordStore interface {
	CustomersByUserID(ctx context.Context, userID string) ([]CustomerRecord, error)
	CustomersByProviderID(ctx context.Context, providerCustomerID string) ([]CustomerRecord, error)
	InsertCustomer(ctx context.Context, rec CustomerRecord) error

	InsertSubscription(ctx context.Context, rec SubscriptionRecord) error
	// DeleteSubscription removes the record with id. Deleting a missing
	// record is not an error.
	DeleteSubscription(ctx context.Context, id string) error
}

// CustomerResolver resolves a user to its CustomerRecord. Provisioner is the
// implementation used by CheckoutFactory.
type CustomerResolver interface {
	ResolveCustomer(ctx context.Context, user User) (*CustomerRecord, error)
}
