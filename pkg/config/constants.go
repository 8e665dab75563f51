package config

const EnvPrefix = "CAMPUSPOINTS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv                 = "CAMPUSPOINTS_APP_ENV"
	EnvPort                   = "CAMPUSPOINTS_APP_PORT"
	EnvLogLevel               = "CAMPUSPOINTS_LOG_LEVEL"
	EnvDBDSN                  = "CAMPUSPOINTS_DB_DSN"
	EnvDBDriver               = "CAMPUSPOINTS_DB_DRIVER"
	EnvDBHost                 = "CAMPUSPOINTS_DB_HOST"
	EnvDBUser                 = "CAMPUSPOINTS_DB_USER"
	EnvDBName                 = "CAMPUSPOINTS_DB_NAME"
	EnvDBPassword             = "CAMPUSPOINTS_DB_PASSWORD"
	EnvRedisURL               = "CAMPUSPOINTS_REDIS_URL"
	EnvJWTSecret              = "CAMPUSPOINTS_JWT_SECRET"
	EnvJWTIssuer              = "CAMPUSPOINTS_JWT_ISSUER"
	EnvJWTExpMins             = "CAMPUSPOINTS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CAMPUSPOINTS_REFRESH_TOKEN_TTL_MINUTES"
	EnvCentsPerPoint          = "CAMPUSPOINTS_LOYALTY_CENTS_PER_POINT"
	EnvResetTokenTTL          = "CAMPUSPOINTS_RESET_TOKEN_TTL"
	EnvResetIPLimit           = "CAMPUSPOINTS_RATE_LIMIT_RESET_IP_LIMIT"
	EnvGCPProjectID           = "CAMPUSPOINTS_GCP_PROJECT_ID"
	EnvPubSubLedgerTopic      = "CAMPUSPOINTS_PUBSUB_LEDGER_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
