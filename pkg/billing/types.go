package billing

import (
	"strings"
	"time"
)

// User is the authenticated application user. It is supplied by the caller's
// auth layer and never modified here.
type User struct {
	ID          string
	Email       string
	DisplayName string
}

// CustomerRecord maps an application user to a provider customer. Records are
// created on first checkout and never updated or deleted.
type CustomerRecord struct {
	UserID             string
	ProviderCustomerID string
	CreatedAt          time.Time
}

// SubscriptionRecord is one row of the local subscription ledger. It only
// tracks that a provider subscription exists and who owns it.
type SubscriptionRecord struct {
	ID        string // provider subscription id
	UserID    string
	CreatedAt time.Time
}

// Customer is the provider side of a CustomerRecord.
type Customer struct {
	ID    string
	Email string
	Name  string
}

// CustomerParams describes a provider customer to create.
type CustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// Price is a provider price resolved by lookup key.
type Price struct {
	ID        string
	LookupKey string
	ProductID string
	Active    bool
}

// CheckoutParams describes a hosted subscription checkout.
type CheckoutParams struct {
	CustomerID               string
	PriceID                  string
	Quantity                 int64
	BillingAddressCollection string
	SuccessURL               string
	CancelURL                string
}

// CheckoutSession is the provider-owned checkout. Only the URL is relayed.
type CheckoutSession struct {
	ID  string
	URL string
}

// PortalParams describes a billing portal session.
type PortalParams struct {
	CustomerID string
	ReturnURL  string
}

type PortalSession struct {
	ID  string
	URL string
}

// Redirects builds the frontend URLs the provider sends the customer back to.
type Redirects struct {
	FrontendURL string
}

// CheckoutSessionPlaceholder is replaced by the provider with the real
// checkout session id when redirecting.
const CheckoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

func (r Redirects) base() string {
	return strings.TrimRight(r.FrontendURL, "/")
}

func (r Redirects) SuccessURL() string {
	return r.base() + "/subscription/?success=true&session_id=" + CheckoutSessionPlaceholder
}

func (r Redirects) CancelURL() string {
	return r.base() + "/subscription/?canceled=true"
}

// ReturnURL is where the billing portal sends the customer when done.
func (r Redirects) ReturnURL() string {
	return r.FrontendURL
}
