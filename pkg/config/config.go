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
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`

	CORSOrigins     []string      `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"STOREFRONT_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the verification settings for bearer tokens. Tokens are
// issued by the identity service; this API only verifies them.
type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// CronConfig drives the housekeeping worker.
type CronConfig struct {
	Interval                   time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"1h"`
	LockTTL                    time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"30m"`
	NotificationRetentionDays  int           `envconfig:"STOREFRONT_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	AnonymousCartRetentionDays int           `envconfig:"STOREFRONT_CRON_ANONYMOUS_CART_RETENTION_DAYS" default:"30"`
}

// CheckoutConfig carries the invoice defaults and cart policies.
type CheckoutConfig struct {
	Currency          string          `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"IRR"`
	InvoiceTitle      string          `envconfig:"STOREFRONT_CHECKOUT_INVOICE_TITLE" default:"Storefront order"`
	InvoiceDueDays    int             `envconfig:"STOREFRONT_CHECKOUT_INVOICE_DUE_DAYS" default:"7"`
	DefaultVATPercent decimal.Decimal `envconfig:"STOREFRONT_CHECKOUT_DEFAULT_VAT_PERCENT" default:"0"`
	SettingsCacheTTL  time.Duration   `envconfig:"STOREFRONT_SETTINGS_CACHE_TTL" default:"5m"`
	StockPolicy       string          `envconfig:"STOREFRONT_CART_STOCK_POLICY" default:"credit_line"`
}

// InvoiceDueIn returns the invoice due offset configured in days.
func (c CheckoutConfig) InvoiceDueIn() time.Duration {
	if c.InvoiceDueDays <= 0 {
		return 0
	}
	return time.Duration(c.InvoiceDueDays) * 24 * time.Hour
}

func (c CheckoutConfig) validate() error {
	if strings.TrimSpace(c.Currency) == "" {
		return fmt.Errorf("%s must not be empty", EnvCheckoutCurrency)
	}
	if c.DefaultVATPercent.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvCheckoutDefaultVAT)
	}
	switch strings.ToLower(strings.TrimSpace(c.StockPolicy)) {
	case StockPolicyCreditLine, StockPolicyStrict:
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvCartStockPolicy, StockPolicyCreditLine, StockPolicyStrict)
	}
	return nil
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
