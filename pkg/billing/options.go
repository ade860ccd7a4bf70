package billing

import (
	"log/slog"

	"github.com/dmitrymomot/billingsync/pkg/logger"
)

// Option configures the components in this package. Options that do not apply
// to a component are ignored by it.
type Option func(*options)

type options struct {
	log     *slog.Logger
	metrics *Metrics
	locker  Locker
}

func newOptions(component string, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Discard()
	}
	o.log = o.log.With(logger.Component(component))
	return o
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics records outcomes in m. Without it nothing is recorded.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLocker makes Provisioner hold a per-user lock while resolving, closing
// the duplicate-customer race for concurrent first-time requests.
func WithLocker(l Locker) Option {
	return func(o *options) { o.locker = l }
}
