// Package billing mounts the checkout, portal and webhook endpoints over the
// components in pkg/billing.
package billing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	billingpkg "github.com/dmitrymomot/billingsync/pkg/billing"
	"github.com/dmitrymomot/billingsync/pkg/logger"
)

const defaultMaxBodyBytes int64 = 1 << 20

type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, user billingpkg.User, lookupKey string) (*billingpkg.CheckoutSession, error)
}

type PortalCreator interface {
	CreatePortalSession(ctx context.Context, user billingpkg.User) (*billingpkg.PortalSession, error)
}

// EventDispatcher is implemented by billingpkg.WebhookRouter.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev billingpkg.Event) billingpkg.Outcome
	Malformed(ctx context.Context, err error)
}

// SignatureVerifier is implemented by billingpkg.WebhookVerifier.
type SignatureVerifier interface {
	Verify(payload []byte, header string) error
}

type Service struct {
	checkout      CheckoutCreator
	portal        PortalCreator
	events        EventDispatcher
	verifier      SignatureVerifier
	validate      *validator.Validate
	log           *slog.Logger
	allowedOrigin string
	maxBodyBytes  int64
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithVerifier rejects webhook deliveries that fail signature verification.
// Without it payloads are accepted unverified.
func WithVerifier(v SignatureVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithAllowedOrigin enables CORS for a single browser origin.
func WithAllowedOrigin(origin string) Option {
	return func(s *Service) { s.allowedOrigin = origin }
}

func WithMaxBodyBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewService panics if any collaborator is nil.
func NewService(checkout CheckoutCreator, portal PortalCreator, events EventDispatcher, opts ...Option) *Service {
	if checkout == nil || portal == nil || events == nil {
		panic("billing: checkout, portal and event dispatcher are required")
	}
	s := &Service{
		checkout:     checkout,
		portal:       portal,
		events:       events,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		log:          logger.Discard(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("http"))
	return s
}

// Handle returns the billing routes:
//
//	POST /create-checkout-session
//	POST /create-portal-session
//	POST /webhook
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	if s.allowedOrigin != "" {
		r.Use(corsMiddleware(s.allowedOrigin))
	}

	r.Post("/create-checkout-session", s.createCheckoutSession)
	r.Post("/create-portal-session", s.createPortalSession)
	r.Post("/webhook", s.webhook)

	return r
}
