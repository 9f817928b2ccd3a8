package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Pricing      PricingConfig
	AddressBook  AddressBookConfig
	Orders       OrdersConfig
	Coupons      CouponsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SKLEPIO_APP_ENV" required:"true"`
	Port         string `envconfig:"SKLEPIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SKLEPIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SKLEPIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SKLEPIO_DB_DSN"`
	Driver string `envconfig:"SKLEPIO_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SKLEPIO_DB_HOST"`
	Port     int    `envconfig:"SKLEPIO_DB_PORT" default:"5432"`
	User     string `envconfig:"SKLEPIO_DB_USER"`
	Password string `envconfig:"SKLEPIO_DB_PASSWORD"`
	Name     string `envconfig:"SKLEPIO_DB_NAME"`
	SSLMode  string `envconfig:"SKLEPIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SKLEPIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SKLEPIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SKLEPIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SKLEPIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SKLEPIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SKLEPIO_REDIS_ADDR"`
	Password     string        `envconfig:"SKLEPIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"SKLEPIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SKLEPIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SKLEPIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SKLEPIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SKLEPIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SKLEPIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig covers token verification only. The storefront never issues
// tokens; it recognizes customers signed in elsewhere.
type JWTConfig struct {
	Secret string `envconfig:"SKLEPIO_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SKLEPIO_JWT_ISSUER" required:"true"`
}

type CheckoutConfig struct {
	FreeShippingThreshold string        `envconfig:"SKLEPIO_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"300"`
	LockerCollectWindow   time.Duration `envconfig:"SKLEPIO_CHECKOUT_LOCKER_COLLECT_WINDOW" default:"72h"`
	DraftTTL              time.Duration `envconfig:"SKLEPIO_CHECKOUT_DRAFT_TTL" default:"24h"`
	SubmitLockTTL         time.Duration `envconfig:"SKLEPIO_CHECKOUT_SUBMIT_LOCK_TTL" default:"30s"`
}

// FreeShippingAmount parses the configured threshold.
func (c CheckoutConfig) FreeShippingAmount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.FreeShippingThreshold))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse free shipping threshold: %w", err)
	}
	return amount, nil
}

type PricingConfig struct {
	BaseURL string        `envconfig:"SKLEPIO_PRICING_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"SKLEPIO_PRICING_TIMEOUT" default:"10s"`
}

type AddressBookConfig struct {
	BaseURL string        `envconfig:"SKLEPIO_ADDRESS_BOOK_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"SKLEPIO_ADDRESS_BOOK_TIMEOUT" default:"10s"`
}

type OrdersConfig struct {
	BaseURL string        `envconfig:"SKLEPIO_ORDERS_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"SKLEPIO_ORDERS_TIMEOUT" default:"20s"`
}

type CouponsConfig struct {
	BaseURL string        `envconfig:"SKLEPIO_COUPONS_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"SKLEPIO_COUPONS_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SKLEPIO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SKLEPIO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
