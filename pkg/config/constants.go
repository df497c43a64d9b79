package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "tableside"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "TABLESIDE_APP_ENV"
	EnvPort     = "TABLESIDE_APP_PORT"
	EnvDBDSN    = "TABLESIDE_DB_DSN"
	EnvDBHost   = "TABLESIDE_DB_HOST"
	EnvDBUser   = "TABLESIDE_DB_USER"
	EnvDBName   = "TABLESIDE_DB_NAME"
	EnvRedisURL = "TABLESIDE_REDIS_URL"

	EnvJWTSecret  = "TABLESIDE_JWT_SECRET"
	EnvJWTIssuer  = "TABLESIDE_JWT_ISSUER"
	EnvJWTExpMins = "TABLESIDE_JWT_EXPIRATION_MINUTES"

	EnvAdminPasswordHash = "TABLESIDE_ADMIN_PASSWORD_HASH"

	EnvOrderAPIBaseURL = "TABLESIDE_ORDER_API_BASE_URL"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
