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
	Cart         CartConfig
	Pricing      PricingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	if cfg.Cart.LockBackend == LockBackendRedis && !cfg.Redis.Enabled() {
		return nil, fmt.Errorf("%s=%s requires %s", EnvCartLock, LockBackendRedis, EnvRedisURL)
	}
	// Memory-only deployments never open a database.
	if cfg.Cart.StoreBackend == StoreBackendMemory {
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VELOCITY_APP_ENV" required:"true"`
	Port         string `envconfig:"VELOCITY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"VELOCITY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VELOCITY_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"VELOCITY_LOG_FORMAT" default:"json"`

	CORSAllowedOrigins []string `envconfig:"VELOCITY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VELOCITY_DB_DSN"`
	Driver string `envconfig:"VELOCITY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VELOCITY_DB_HOST"`
	LegacyPort     int    `envconfig:"VELOCITY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VELOCITY_DB_USER"`
	LegacyPassword string `envconfig:"VELOCITY_DB_PASSWORD"`
	LegacyName     string `envconfig:"VELOCITY_DB_NAME"`
	LegacySSLMode  string `envconfig:"VELOCITY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VELOCITY_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"VELOCITY_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"VELOCITY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VELOCITY_DB_CONN_MAX_IDLE_TIME" default:"30s"`
	ConnectTimeout  time.Duration `envconfig:"VELOCITY_DB_CONNECT_TIMEOUT" default:"30s"`
}

// IsSQLite reports whether the sqlite dialector is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"VELOCITY_REDIS_URL"`
	Address      string        `envconfig:"VELOCITY_REDIS_ADDR"`
	Password     string        `envconfig:"VELOCITY_REDIS_PASSWORD"`
	DB           int           `envconfig:"VELOCITY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VELOCITY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VELOCITY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VELOCITY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VELOCITY_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"VELOCITY_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret string `envconfig:"VELOCITY_JWT_SECRET"`
	Issuer string `envconfig:"VELOCITY_JWT_ISSUER" default:"velocity"`
}

type CartConfig struct {
	StoreBackend    string        `envconfig:"VELOCITY_CART_STORE" default:"auto"`
	LockBackend     string        `envconfig:"VELOCITY_CART_LOCK" default:"local"`
	LockTTL         time.Duration `envconfig:"VELOCITY_CART_LOCK_TTL" default:"10s"`
	MaxLineQuantity int           `envconfig:"VELOCITY_CART_MAX_LINE_QUANTITY" default:"99"`
	CatalogSeedFile string        `envconfig:"VELOCITY_CATALOG_SEED_FILE"`
	SessionCookie   string        `envconfig:"VELOCITY_SESSION_COOKIE" default:"velocity_session"`
	IdempotencyTTL  time.Duration `envconfig:"VELOCITY_CART_IDEMPOTENCY_TTL" default:"24h"`
}

func (c *CartConfig) validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	switch c.StoreBackend {
	case StoreBackendPostgres, StoreBackendMemory, StoreBackendAuto:
	default:
		return fmt.Errorf("%s must be one of %s|%s|%s", EnvCartStore, StoreBackendPostgres, StoreBackendMemory, StoreBackendAuto)
	}
	c.LockBackend = strings.ToLower(strings.TrimSpace(c.LockBackend))
	switch c.LockBackend {
	case LockBackendLocal, LockBackendRedis:
	default:
		return fmt.Errorf("%s must be one of %s|%s", EnvCartLock, LockBackendLocal, LockBackendRedis)
	}
	if c.MaxLineQuantity < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCartMaxLineQuantity)
	}
	return nil
}

// PricingConfig keeps money values as strings so they parse straight into decimals.
type PricingConfig struct {
	TaxRate               string `envconfig:"VELOCITY_TAX_RATE" default:"0.085"`
	FreeShippingThreshold string `envconfig:"VELOCITY_FREE_SHIPPING_THRESHOLD" default:"50.00"`
	FlatShippingFee       string `envconfig:"VELOCITY_FLAT_SHIPPING_FEE" default:"5.99"`
}

// Decimals returns the parsed rate, threshold and fee.
func (p PricingConfig) Decimals() (rate, threshold, fee decimal.Decimal, err error) {
	if rate, err = decimal.NewFromString(p.TaxRate); err != nil {
		return rate, threshold, fee, fmt.Errorf("%s: %w", EnvTaxRate, err)
	}
	if threshold, err = decimal.NewFromString(p.FreeShippingThreshold); err != nil {
		return rate, threshold, fee, fmt.Errorf("%s: %w", EnvFreeShippingThreshold, err)
	}
	if fee, err = decimal.NewFromString(p.FlatShippingFee); err != nil {
		return rate, threshold, fee, fmt.Errorf("%s: %w", EnvFlatShippingFee, err)
	}
	return rate, threshold, fee, nil
}

func (p PricingConfig) validate() error {
	rate, threshold, fee, err := p.Decimals()
	if err != nil {
		return err
	}
	if rate.IsNegative() || threshold.IsNegative() || fee.IsNegative() {
		return fmt.Errorf("pricing values must be non-negative")
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VELOCITY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
