package billing_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	modbilling "github.com/dmitrymomot/billingsync/modules/billing"
	"github.com/dmitrymomot/billingsync/pkg/billing"
	"github.com/dmitrymomot/billingsync/pkg/ledger"
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

const frontend = "https://app.example.com"

type fixture struct {
	gw      *mockGateway
	store   *ledger.MemoryStore
	handler http.Handler
}

func newFixture(t *testing.T, opts ...modbilling.Option) *fixture {
	t.Helper()
	gw := &mockGateway{}
	store := ledger.NewMemoryStore()
	redirects := billing.Redirects{FrontendURL: frontend}

	provisioner := billing.NewProvisioner(gw, store)
	svc := modbilling.NewService(
		billing.NewCheckoutFactory(provisioner, gw, redirects),
		billing.NewPortalFactory(gw, store, redirects),
		billing.NewWebhookRouter(store),
		opts...,
	)
	return &fixture{gw: gw, store: store, handler: svc.Handle()}
}

func (f *fixture) post(path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Parallel()

	body := `{"user":{"id":"u1","email":"a@x.com","user_metadata":{"name":"Alice"}},"lookup_key":"pro-monthly"}`

	t.Run("first checkout provisions customer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.gw.On("CreateCustomer", mock.Anything, billing.CustomerParams{
			Email:    "a@x.com",
			Name:     "Alice",
			Metadata: map[string]string{"user_id": "u1"},
		}).Return(&billing.Customer{ID: "cus_1"}, nil).Once()
		f.gw.On("ListPricesByLookupKey", mock.Anything, "pro-monthly").
			Return([]billing.Price{{ID: "price_1", LookupKey: "pro-monthly", Active: true}}, nil)
		f.gw.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p billing.CheckoutParams) bool {
			return p.CustomerID == "cus_1" && p.PriceID == "price_1" &&
				p.SuccessURL == frontend+"/subscription/?success=true&session_id={CHECKOUT_SESSION_ID}" &&
				p.CancelURL == frontend+"/subscription/?canceled=true"
		})).Return(&billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil)

		rec := f.post("/create-checkout-session", body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"checkoutUrl":"https://checkout.example/cs_1"}`, rec.Body.String())

		recs, err := f.store.CustomersByUserID(context.Background(), "u1")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "cus_1", recs[0].ProviderCustomerID)
	})

	t.Run("repeat checkout reuses customer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.store.InsertCustomer(context.Background(), billing.CustomerRecord{UserID: "u1", ProviderCustomerID: "cus_1"}))
		f.gw.On("RetrieveCustomer", mock.Anything, "cus_1").Return(&billing.Customer{ID: "cus_1"}, nil)
		f.gw.On("ListPricesByLookupKey", mock.Anything, "pro-monthly").Return([]billing.Price{{ID: "price_1", Active: true}}, nil)
		f.gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(&billing.CheckoutSession{URL: "https://checkout.example/cs_2"}, nil)

		rec := f.post("/create-checkout-session", body)

		require.Equal(t, http.StatusOK, rec.Code)
		f.gw.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
	})

	t.Run("unknown plan is a client error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.gw.On("CreateCustomer", mock.Anything, mock.Anything).Return(&billing.Customer{ID: "cus_1"}, nil)
		f.gw.On("ListPricesByLookupKey", mock.Anything, "gold").Return([]billing.Price{}, nil)

		rec := f.post("/create-checkout-session", `{"user":{"id":"u1"},"lookup_key":"gold"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"an unexpected error occurred"}`, rec.Body.String())
	})

	t.Run("provider failure is a bad gateway", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.gw.On("CreateCustomer", mock.Anything, mock.Anything).Return(nil, errors.New("stripe: connection reset"))

		rec := f.post("/create-checkout-session", body)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.JSONEq(t, `{"error":"billing provider unavailable"}`, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})

	for name, payload := range map[string]string{
		"invalid json":       `{"user":`,
		"missing user id":    `{"user":{"email":"a@x.com"},"lookup_key":"pro-monthly"}`,
		"missing lookup key": `{"user":{"id":"u1"}}`,
		"invalid email":      `{"user":{"id":"u1","email":"nope"},"lookup_key":"pro-monthly"}`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			rec := f.post("/create-checkout-session", payload)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"an unexpected error occurred"}`, rec.Body.String())
			f.gw.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
		})
	}
}

func TestCreatePortalSession(t *testing.T) {
	t.Parallel()

	t.Run("returns portal url", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.store.InsertCustomer(context.Background(), billing.CustomerRecord{UserID: "u1", ProviderCustomerID: "cus_1"}))
		f.gw.On("CreatePortalSession", mock.Anything, billing.PortalParams{CustomerID: "cus_1", ReturnURL: frontend}).
			Return(&billing.PortalSession{URL: "https://portal.example/s"}, nil)

		rec := f.post("/create-portal-session", `{"user":{"id":"u1"}}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"portalUrl":"https://portal.example/s"}`, rec.Body.String())
	})

	t.Run("two customer records", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		require.NoError(t, f.store.InsertCustomer(ctx, billing.CustomerRecord{UserID: "u1", ProviderCustomerID: "cus_a"}))
		require.NoError(t, f.store.InsertCustomer(ctx, billing.CustomerRecord{UserID: "u1", ProviderCustomerID: "cus_b"}))

		rec := f.post("/create-portal-session", `{"user":{"id":"u1"}}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"an unexpected error occurred"}`, rec.Body.String())
		f.gw.AssertNotCalled(t, "CreatePortalSession", mock.Anything, mock.Anything)
	})

	t.Run("no customer record", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.post("/create-portal-session", `{"user":{"id":"u1"}}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.gw.AssertNotCalled(t, "CreatePortalSession", mock.Anything, mock.Anything)
	})

	t.Run("provider failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.store.InsertCustomer(context.Background(), billing.CustomerRecord{UserID: "u1", ProviderCustomerID: "cus_1"}))
		f.gw.On("CreatePortalSession", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		rec := f.post("/create-portal-session", `{"user":{"id":"u1"}}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.JSONEq(t, `{"error":"billing provider unavailable"}`, rec.Body.String())
	})
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	t.Run("deleted for missing subscription is acknowledged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.post("/webhook", `{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("created for known customer is recorded", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		require.NoError(t, f.store.InsertCustomer(ctx, billing.CustomerRecord{UserID: "u1", ProviderCustomerID: "cus_1"}))

		rec := f.post("/webhook", `{"id":"evt_1","type":"customer.subscription.created","data":{"object":{"id":"sub_1","customer":"cus_1"}}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		sub, err := f.store.SubscriptionByID(ctx, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, "u1", sub.UserID)
	})

	t.Run("created for unknown customer is acknowledged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.post("/webhook", `{"id":"evt_1","type":"customer.subscription.created","data":{"object":{"id":"sub_1","customer":"cus_x"}}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
		_, err := f.store.SubscriptionByID(context.Background(), "sub_1")
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("malformed payload is acknowledged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.post("/webhook", `not json`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("oversized payload is acknowledged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, modbilling.WithMaxBodyBytes(16))

		rec := f.post("/webhook", `{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestWebhook_SignatureVerification(t *testing.T) {
	t.Parallel()

	const secret = "whsec_test_123"
	payload := `{"id":"evt_1","object":"event","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`

	t.Run("valid signature", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, modbilling.WithVerifier(billing.NewWebhookVerifier(secret)))
		require.NoError(t, f.store.InsertSubscription(context.Background(), billing.SubscriptionRecord{ID: "sub_1", UserID: "u1"}))

		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   []byte(payload),
			Secret:    secret,
			Timestamp: time.Now(),
			Scheme:    "v1",
		})
		rec := f.post("/webhook", payload, billing.SignatureHeader, signed.Header)

		assert.Equal(t, http.StatusOK, rec.Code)
		_, err := f.store.SubscriptionByID(context.Background(), "sub_1")
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("invalid signature is rejected without dispatch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, modbilling.WithVerifier(billing.NewWebhookVerifier(secret)))
		require.NoError(t, f.store.InsertSubscription(context.Background(), billing.SubscriptionRecord{ID: "sub_1", UserID: "u1"}))

		rec := f.post("/webhook", payload, billing.SignatureHeader, "t=1,v1=deadbeef")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		_, err := f.store.SubscriptionByID(context.Background(), "sub_1")
		assert.NoError(t, err)
	})
}

func TestCORS(t *testing.T) {
	t.Parallel()

	f := newFixture(t, modbilling.WithAllowedOrigin(modbilling.OriginOf(frontend+"/app")))

	req := httptest.NewRequest(http.MethodOptions, "/create-checkout-session", nil)
	req.Header.Set("Origin", frontend)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, frontend, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/create-checkout-session", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOriginOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://app.example.com", modbilling.OriginOf("https://app.example.com/some/path"))
	assert.Equal(t, "http://localhost:3000", modbilling.OriginOf("http://localhost:3000"))
	assert.Empty(t, modbilling.OriginOf("not a url"))
}

func TestNewService_PanicsOnNilDependencies(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { modbilling.NewService(nil, nil, nil) })
}
