package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Admin        AdminConfig
	Session      SessionConfig
	OrderAPI     OrderAPIConfig
	Payment      PaymentConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
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
	Env          string `envconfig:"TABLESIDE_APP_ENV" required:"true"`
	Port         string `envconfig:"TABLESIDE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TABLESIDE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TABLESIDE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TABLESIDE_DB_DSN"`
	Driver string `envconfig:"TABLESIDE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TABLESIDE_DB_HOST"`
	Port     int    `envconfig:"TABLESIDE_DB_PORT" default:"5432"`
	User     string `envconfig:"TABLESIDE_DB_USER"`
	Password string `envconfig:"TABLESIDE_DB_PASSWORD"`
	Name     string `envconfig:"TABLESIDE_DB_NAME"`
	SSLMode  string `envconfig:"TABLESIDE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TABLESIDE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TABLESIDE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TABLESIDE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TABLESIDE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TABLESIDE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TABLESIDE_REDIS_ADDR"`
	Password     string        `envconfig:"TABLESIDE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TABLESIDE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TABLESIDE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TABLESIDE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TABLESIDE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TABLESIDE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TABLESIDE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TABLESIDE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TABLESIDE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TABLESIDE_JWT_EXPIRATION_MINUTES" default:"480"`
}

// AccessTokenTTL returns the admin token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type AdminConfig struct {
	Username     string `envconfig:"TABLESIDE_ADMIN_USERNAME" default:"admin"`
	PasswordHash string `envconfig:"TABLESIDE_ADMIN_PASSWORD_HASH" required:"true"`

	ArgonMemoryKB    int `envconfig:"TABLESIDE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TABLESIDE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TABLESIDE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TABLESIDE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TABLESIDE_ARGON_KEY_LEN" default:"32"`
}

type SessionConfig struct {
	CookieName string        `envconfig:"TABLESIDE_SESSION_COOKIE_NAME" default:"ts_session"`
	OrderTTL   time.Duration `envconfig:"TABLESIDE_SESSION_ORDER_TTL" default:"12h"`
	FlagTTL    time.Duration `envconfig:"TABLESIDE_SESSION_FLAG_TTL" default:"1h"`
	SummaryTTL time.Duration `envconfig:"TABLESIDE_CHECKOUT_SUMMARY_TTL" default:"30m"`
}

type OrderAPIConfig struct {
	BaseURL string        `envconfig:"TABLESIDE_ORDER_API_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"TABLESIDE_ORDER_API_KEY"`
	Timeout time.Duration `envconfig:"TABLESIDE_ORDER_API_TIMEOUT" default:"15s"`
}

type PaymentConfig struct {
	DisplayCurrency    string `envconfig:"TABLESIDE_PAYMENT_DISPLAY_CURRENCY" default:"THB"`
	SettlementCurrency string `envconfig:"TABLESIDE_PAYMENT_SETTLEMENT_CURRENCY" default:"USD"`
	// Fixed approximate rate applied to display amounts before they reach
	// the payment provider.
	ConversionRate string `envconfig:"TABLESIDE_PAYMENT_CONVERSION_RATE" default:"0.028"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TABLESIDE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TABLESIDE_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TABLESIDE_CORS_ALLOWED_ORIGINS" default:"*"`
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
