package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

// ProviderConfig is parsed once per provider under its env prefix
// (WEBIRR_, TELEBIRR_, CBE_BIRR_, AMOLE_). For TELEBIRR, MERCHANT_ID is the
// app id and API_KEY the app key.
type ProviderConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"true"`
	APIURL        string        `env:"API_URL"`
	MerchantID    string        `env:"MERCHANT_ID"`
	APIKey        string        `env:"API_KEY"`
	SecretKey     string        `env:"SECRET_KEY"`
	WebhookSecret string        `env:"WEBHOOK_SECRET"`
	Timeout       time.Duration `env:"TIMEOUT"`
	RateLimitRPS  float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	HealthPath    string        `env:"HEALTH_PATH"`
	// CallbackURL defaults to BACKEND_URL + /api/v1/payments/<provider>/webhook.
	CallbackURL string `env:"CALLBACK_URL"`
}

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`
	BackendURL  string `env:"BACKEND_URL" envDefault:"http://localhost:8080"`

	PreferenceOrder        []string      `env:"PAYMENT_PREFERENCE_ORDER" envDefault:"WEBIRR,TELEBIRR,AMOLE,CBE_BIRR" envSeparator:","`
	HealthFailureThreshold int           `env:"HEALTH_FAILURE_THRESHOLD" envDefault:"3"`
	HealthProbeInterval    time.Duration `env:"HEALTH_PROBE_INTERVAL" envDefault:"30s"`
	PaymentRequestDeadline time.Duration `env:"PAYMENT_REQUEST_DEADLINE" envDefault:"90s"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"payment-events"`

	ReconcileInterval  time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`
	ReconcileAfter     time.Duration `env:"RECONCILE_AFTER" envDefault:"5m"`
	ReconcileBatchSize int           `env:"RECONCILE_BATCH_SIZE" envDefault:"50"`
	ReconcileWorkers   int           `env:"RECONCILE_WORKERS" envDefault:"4"`

	WeBirr   ProviderConfig `envPrefix:"WEBIRR_"`
	Telebirr ProviderConfig `envPrefix:"TELEBIRR_"`
	CBEBirr  ProviderConfig `envPrefix:"CBE_BIRR_"`
	Amole    ProviderConfig `envPrefix:"AMOLE_"`

	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	base := strings.TrimRight(c.BackendURL, "/")
	for key, pc := range c.providers() {
		if pc.CallbackURL == "" {
			pc.CallbackURL = fmt.Sprintf("%s/api/v1/payments/%s/webhook", base, strings.ToLower(string(key)))
		}
	}
}

func (c *Config) Validate() error {
	if c.HealthFailureThreshold < 1 {
		return fmt.Errorf("HEALTH_FAILURE_THRESHOLD must be at least 1")
	}
	if c.PaymentRequestDeadline <= 0 {
		return fmt.Errorf("PAYMENT_REQUEST_DEADLINE must be positive")
	}
	if _, err := domain.ParsePreferenceOrder(c.PreferenceOrder); err != nil {
		return fmt.Errorf("PAYMENT_PREFERENCE_ORDER: %w", err)
	}
	if len(c.EnabledProviders()) == 0 {
		return fmt.Errorf("at least one payment provider must be enabled")
	}
	return nil
}

// Provider returns the settings of key, or nil for keys outside the closed set.
func (c *Config) Provider(key domain.ProviderKey) *ProviderConfig {
	return c.providers()[key]
}

func (c *Config) EnabledProviders() []domain.ProviderKey {
	var keys []domain.ProviderKey
	for _, key := range domain.AllProviders() {
		if c.Provider(key).Enabled {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *Config) Preference() []domain.ProviderKey {
	order, _ := domain.ParsePreferenceOrder(c.PreferenceOrder)
	return order
}

func (c *Config) providers() map[domain.ProviderKey]*ProviderConfig {
	return map[domain.ProviderKey]*ProviderConfig{
		domain.ProviderWeBirr:   &c.WeBirr,
		domain.ProviderTelebirr: &c.Telebirr,
		domain.ProviderCBEBirr:  &c.CBEBirr,
		domain.ProviderAmole:    &c.Amole,
	}
}
