package billing_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/billingsync/pkg/billing"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCustomer(ctx context.Context, params billing.CustomerParams) (*billing.Customer, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Customer), args.Error(1)
}

func (m *mockGateway) RetrieveCustomer(ctx context.Context, customerID string) (*billing.Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Customer), args.Error(1)
}

func (m *mockGateway) ListPricesByLookupKey(ctx context.Context, lookupKey string) ([]billing.Price, error) {
	args := m.Called(ctx, lookupKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Price), args.Error(1)
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

func (m *mockGateway) CreatePortalSession(ctx context.Context, params billing.PortalParams) (*billing.PortalSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PortalSession), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CustomersByUserID(ctx context.Context, userID string) ([]billing.CustomerRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.CustomerRecord), args.Error(1)
}

func (m *mockStore) CustomersByProviderID(ctx context.Context, providerCustomerID string) ([]billing.CustomerRecord, error) {
	args := m.Called(ctx, providerCustomerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.CustomerRecord), args.Error(1)
}

func (m *mockStore) InsertCustomer(ctx context.Context, rec billing.CustomerRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockStore) InsertSubscription(ctx context.Context, rec billing.SubscriptionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockStore) DeleteSubscription(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveCustomer(ctx context.Context, user billing.User) (*billing.CustomerRecord, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CustomerRecord), args.Error(1)
}
