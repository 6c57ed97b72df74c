package config

// EnvPrefix scopes all environment variables consumed by the service.
const EnvPrefix = "KART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv     = "KART_APP_ENV"
	EnvPort       = "KART_APP_PORT"
	EnvDBDSN      = "KART_DB_DSN"
	EnvDBHost     = "KART_DB_HOST"
	EnvDBUser     = "KART_DB_USER"
	EnvDBName     = "KART_DB_NAME"
	EnvRedisURL   = "KART_REDIS_URL"
	EnvJWTSecret  = "KART_JWT_SECRET"
	EnvJWTIssuer  = "KART_JWT_ISSUER"
	EnvJWTExpMins = "KART_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
