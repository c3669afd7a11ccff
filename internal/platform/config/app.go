package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig carries non-auth runtime configuration: provider credentials for
// the flight-data and suggestion APIs, outbound deep-link affiliate ids, and
// HTTP tuning. Missing provider credentials are not a startup error; the
// affected features degrade at request time instead.
type AppConfig struct {
	Port string `env:"PORT" envDefault:"8080"`

	// PublicBaseURL is the web app origin used to build shareable invite links.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"https://letsrendez.app"`

	AmadeusClientID     string `env:"AMADEUS_CLIENT_ID"`
	AmadeusClientSecret string `env:"AMADEUS_CLIENT_SECRET"`
	// AmadeusHost selects the upstream environment: "production" or "test".
	AmadeusHost string `env:"AMADEUS_HOST" envDefault:"test"`

	KayakAPIKey      string `env:"KAYAK_SANDBOX_API_KEY"`
	KayakBaseURL     string `env:"KAYAK_API_BASE_URL" envDefault:"https://api.kayak.com"`
	KayakFlightsPath string `env:"KAYAK_FLIGHTS_PATH" envDefault:"/v1/flights/search"`
	KayakAffiliateID string `env:"KAYAK_AFFILIATE_ID"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// ProviderTimeout bounds every outbound provider HTTP call.
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:19006"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadAppConfigFromEnv parses AppConfig from the process environment.
func LoadAppConfigFromEnv() (AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
