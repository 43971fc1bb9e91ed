package config

// EnvPrefix is handed to envconfig; every field overrides it with an explicit name.
const EnvPrefix = "VELOCITY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
	StoreBackendAuto     = "auto"
)

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

const (
	EnvAppEnv                = "VELOCITY_APP_ENV"
	EnvPort                  = "VELOCITY_APP_PORT"
	EnvDBDSN                 = "VELOCITY_DB_DSN"
	EnvDBDriver              = "VELOCITY_DB_DRIVER"
	EnvDBHost                = "VELOCITY_DB_HOST"
	EnvDBUser                = "VELOCITY_DB_USER"
	EnvDBPassword            = "VELOCITY_DB_PASSWORD"
	EnvDBName                = "VELOCITY_DB_NAME"
	EnvRedisURL              = "VELOCITY_REDIS_URL"
	EnvJWTSecret             = "VELOCITY_JWT_SECRET"
	EnvCartStore             = "VELOCITY_CART_STORE"
	EnvCartLock              = "VELOCITY_CART_LOCK"
	EnvCartMaxLineQuantity   = "VELOCITY_CART_MAX_LINE_QUANTITY"
	EnvTaxRate               = "VELOCITY_TAX_RATE"
	EnvFreeShippingThreshold = "VELOCITY_FREE_SHIPPING_THRESHOLD"
	EnvFlatShippingFee       = "VELOCITY_FLAT_SHIPPING_FEE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
