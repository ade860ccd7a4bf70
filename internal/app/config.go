package app

import (
	"github.com/dmitrymomot/billingsync/pkg/billing"
	"github.com/dmitrymomot/billingsync/pkg/httpserver"
	"github.com/dmitrymomot/billingsync/pkg/ledger"
	"github.com/dmitrymomot/billingsync/pkg/redis"
)

// Config is everything serve needs, read from the environment.
type Config struct {
	Env            string `env:"APP_ENV" envDefault:"development"`
	Name           string `env:"APP_NAME" envDefault:"billingsync"`
	FrontendDomain string `env:"FRONTEND_DOMAIN,required,notEmpty"`

	Storage ledger.Config
	Stripe  billing.StripeConfig
	HTTP    httpserver.Config
	Redis   redis.Config
}
