package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Loyalty      LoyaltyConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	if c.JWT.ExpirationMinutes <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.Loyalty.CentsPerPoint <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCentsPerPoint))
	}
	if c.Loyalty.ResetTokenTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvResetTokenTTL))
	}
	if !strings.EqualFold(c.DB.Driver, DriverPostgres) && !strings.EqualFold(c.DB.Driver, DriverSQLite) {
		err = multierr.Append(err, fmt.Errorf("%s must be %s or %s", EnvDBDriver, DriverPostgres, DriverSQLite))
	}
	return err
}

type AppConfig struct {
	Env          string `envconfig:"CAMPUSPOINTS_APP_ENV" required:"true"`
	Port         string `envconfig:"CAMPUSPOINTS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CAMPUSPOINTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CAMPUSPOINTS_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated allow list for the frontend.
	CORSOrigins []string `envconfig:"CAMPUSPOINTS_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CAMPUSPOINTS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CAMPUSPOINTS_DB_DSN"`
	Driver string `envconfig:"CAMPUSPOINTS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CAMPUSPOINTS_DB_HOST"`
	LegacyPort     int    `envconfig:"CAMPUSPOINTS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CAMPUSPOINTS_DB_USER"`
	LegacyPassword string `envconfig:"CAMPUSPOINTS_DB_PASSWORD"`
	LegacyName     string `envconfig:"CAMPUSPOINTS_DB_NAME"`
	LegacySSLMode  string `envconfig:"CAMPUSPOINTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CAMPUSPOINTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CAMPUSPOINTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CAMPUSPOINTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CAMPUSPOINTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CAMPUSPOINTS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CAMPUSPOINTS_REDIS_ADDR"`
	Password     string        `envconfig:"CAMPUSPOINTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CAMPUSPOINTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CAMPUSPOINTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CAMPUSPOINTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CAMPUSPOINTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CAMPUSPOINTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CAMPUSPOINTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CAMPUSPOINTS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CAMPUSPOINTS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CAMPUSPOINTS_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"CAMPUSPOINTS_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CAMPUSPOINTS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CAMPUSPOINTS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CAMPUSPOINTS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CAMPUSPOINTS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CAMPUSPOINTS_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	ResetWindow      time.Duration `envconfig:"CAMPUSPOINTS_RATE_LIMIT_RESET_WINDOW" default:"1m"`
	ResetIPLimit     int           `envconfig:"CAMPUSPOINTS_RATE_LIMIT_RESET_IP_LIMIT" default:"5"`
	LoginWindow      time.Duration `envconfig:"CAMPUSPOINTS_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit     int           `envconfig:"CAMPUSPOINTS_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginUtoridLimit int           `envconfig:"CAMPUSPOINTS_RATE_LIMIT_LOGIN_UTORID_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CAMPUSPOINTS_AUTO_MIGRATE" default:"false"`
}

type LoyaltyConfig struct {
	// CentsPerPoint is the purchase spend that earns one base point.
	CentsPerPoint int           `envconfig:"CAMPUSPOINTS_LOYALTY_CENTS_PER_POINT" default:"25"`
	ResetTokenTTL time.Duration `envconfig:"CAMPUSPOINTS_RESET_TOKEN_TTL" default:"1h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"CAMPUSPOINTS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	LedgerTopic string `envconfig:"CAMPUSPOINTS_PUBSUB_LEDGER_TOPIC" default:"campuspoints-ledger-events"`
	EventsTopic string `envconfig:"CAMPUSPOINTS_PUBSUB_EVENTS_TOPIC" default:"campuspoints-event-activity"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CAMPUSPOINTS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CAMPUSPOINTS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CAMPUSPOINTS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"CAMPUSPOINTS_METRICS_ENABLED" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
