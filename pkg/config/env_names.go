package config

// EnvPrefix scopes every variable consumed by envconfig.
const EnvPrefix = "buildmart"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
	StorageDriverMemory = "memory"
)

// Canonical variable names, referenced from error messages and tests.
const (
	EnvAppEnv            = "BUILDMART_APP_ENV"
	EnvBackendBaseURL    = "BUILDMART_BACKEND_BASE_URL"
	EnvBackendClientID   = "BUILDMART_BACKEND_CLIENT_ID"
	EnvBackendSecret     = "BUILDMART_BACKEND_CLIENT_SECRET"
	EnvDeliveryOriginLat = "BUILDMART_DELIVERY_ORIGIN_LAT"
	EnvDeliveryOriginLng = "BUILDMART_DELIVERY_ORIGIN_LNG"
	EnvStorageDriver     = "BUILDMART_STORAGE_DRIVER"
	EnvStoragePath       = "BUILDMART_STORAGE_PATH"
	EnvRedisURL          = "BUILDMART_REDIS_URL"
)
