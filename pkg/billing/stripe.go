package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader carries the Stripe webhook signature.
const SignatureHeader = "Stripe-Signature"

// StripeConfig holds the Stripe credentials.
type StripeConfig struct {
	APIKey string `env:"STRIPE_API_KEY,required,notEmpty"`
	// WebhookSecret enables signature verification when set.
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// StripeGateway implements ProviderGateway with the Stripe API. It uses its
// own client instead of the package-level stripe.Key.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway returns ErrMissingAPIKey when cfg.APIKey is blank. A nil
// backends uses the default Stripe endpoints.
func NewStripeGateway(cfg StripeConfig, backends *stripe.Backends) (*StripeGateway, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	return &StripeGateway{api: client.New(key, backends)}, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, p CustomerParams) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if p.Email != "" {
		params.Email = stripe.String(p.Email)
	}
	if p.Name != "" {
		params.Name = stripe.String(p.Name)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	c, err := g.api.Customers.New(params)
	if err != nil {
		return nil, err
	}
	return toCustomer(c), nil
}

func (g *StripeGateway) RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := g.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, err
	}
	return toCustomer(c), nil
}

func (g *StripeGateway) ListPricesByLookupKey(ctx context.Context, lookupKey string) ([]Price, error) {
	params := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{lookupKey}),
		Active:     stripe.Bool(true),
	}
	params.Context = ctx
	params.AddExpand("data.product")

	var prices []Price
	it := g.api.Prices.List(params)
	for it.Next() {
		p := it.Price()
		price := Price{
			ID:        p.ID,
			LookupKey: p.LookupKey,
			Active:    p.Active,
		}
		if p.Product != nil {
			price.ProductID = p.Product.ID
		}
		prices = append(prices, price)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(p.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(p.Quantity),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	if p.BillingAddressCollection != "" {
		params.BillingAddressCollection = stripe.String(p.BillingAddressCollection)
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, p PortalParams) (*PortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(p.CustomerID),
		ReturnURL: stripe.String(p.ReturnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &PortalSession{ID: s.ID, URL: s.URL}, nil
}

func toCustomer(c *stripe.Customer) *Customer {
	return &Customer{ID: c.ID, Email: c.Email, Name: c.Name}
}

// WebhookVerifier checks the Stripe-Signature header against the endpoint
// secret.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify returns ErrInvalidSignature when the payload was not signed with the
// configured secret or the signature is outside the default tolerance.
func (v *WebhookVerifier) Verify(payload []byte, header string) error {
	if header == "" {
		return errors.Join(ErrInvalidSignature, errors.New("missing signature header"))
	}
	_, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return errors.Join(ErrInvalidSignature, err)
	}
	return nil
}
