// Package app wires configuration, storage and the billing components into
// an HTTP handler.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"

	modbilling "github.com/dmitrymomot/billingsync/modules/billing"
	"github.com/dmitrymomot/billingsync/pkg/billing"
	"github.com/dmitrymomot/billingsync/pkg/environment"
	"github.com/dmitrymomot/billingsync/pkg/httpserver"
	"github.com/dmitrymomot/billingsync/pkg/ledger"
	"github.com/dmitrymomot/billingsync/pkg/logger"
	"github.com/dmitrymomot/billingsync/pkg/redis"
	"github.com/dmitrymomot/billingsync/pkg/requestid"
)

// App owns the long-lived resources behind the HTTP handler.
type App struct {
	cfg      Config
	log      *slog.Logger
	store    ledger.Store
	redis    *goredis.Client
	registry *prometheus.Registry
	handler  http.Handler
}

// Option overrides a dependency, mostly for tests.
type Option func(*deps)

type deps struct {
	store    ledger.Store
	gateway  billing.ProviderGateway
	backends *stripe.Backends
}

// WithStore uses store instead of opening cfg.Storage.
func WithStore(store ledger.Store) Option {
	return func(d *deps) { d.store = store }
}

// WithGateway replaces the Stripe gateway.
func WithGateway(gw billing.ProviderGateway) Option {
	return func(d *deps) { d.gateway = gw }
}

// WithStripeBackends points the Stripe client at custom backends.
func WithStripeBackends(b *stripe.Backends) Option {
	return func(d *deps) { d.backends = b }
}

// New opens storage, applies migrations when enabled, connects Redis when
// configured and builds the router. Close releases what New opened.
func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.Discard()
	}
	var d deps
	for _, opt := range opts {
		opt(&d)
	}

	a := &App{cfg: cfg, log: log, store: d.store}

	if a.store == nil {
		store, err := ledger.Open(ctx, cfg.Storage, log)
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	if cfg.Storage.AutoMigrate {
		if err := a.store.Migrate(ctx); err != nil {
			return nil, errors.Join(err, a.Close())
		}
	}

	gateway := d.gateway
	if gateway == nil {
		gw, err := billing.NewStripeGateway(cfg.Stripe, d.backends)
		if err != nil {
			return nil, errors.Join(err, a.Close())
		}
		gateway = gw
	}

	var locker billing.Locker = billing.NewLocalLocker()
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, errors.Join(err, a.Close())
		}
		a.redis = client
		locker = billing.NewRedisLocker(client, 0)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := billing.NewMetrics(a.registry)

	common := []billing.Option{billing.WithLogger(log), billing.WithMetrics(metrics)}
	redirects := billing.Redirects{FrontendURL: cfg.FrontendDomain}

	provisioner := billing.NewProvisioner(gateway, a.store, append(common, billing.WithLocker(locker))...)
	checkout := billing.NewCheckoutFactory(provisioner, gateway, redirects, common...)
	portal := billing.NewPortalFactory(gateway, a.store, redirects, common...)
	router := billing.NewWebhookRouter(a.store, common...)

	svcOpts := []modbilling.Option{
		modbilling.WithLogger(log),
		modbilling.WithAllowedOrigin(modbilling.OriginOf(cfg.FrontendDomain)),
	}
	if cfg.Stripe.WebhookSecret != "" {
		svcOpts = append(svcOpts, modbilling.WithVerifier(billing.NewWebhookVerifier(cfg.Stripe.WebhookSecret)))
	} else {
		level := slog.LevelWarn
		if environment.Parse(cfg.Env).IsProduction() {
			level = slog.LevelError
		}
		log.Log(ctx, level, "STRIPE_WEBHOOK_SECRET not set, webhook payloads are accepted unverified")
	}

	a.handler = a.routes(modbilling.NewService(checkout, portal, router, svcOpts...))
	return a, nil
}

func (a *App) routes(svc *modbilling.Service) http.Handler {
	checks := []httpserver.Check{a.store.Ping}
	if a.redis != nil {
		checks = append(checks, redis.Healthcheck(a.redis))
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(a.log, checks...))
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	r.Mount("/", svc.Handle())
	return r
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves until ctx is done or the process is interrupted.
func (a *App) Run(ctx context.Context) error {
	return httpserver.New(a.cfg.HTTP, a.log).Run(ctx, a.handler)
}

func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
