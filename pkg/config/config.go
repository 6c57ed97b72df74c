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
	Password     PasswordConfig
	Stripe       StripeConfig
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
	Env          string `envconfig:"KART_APP_ENV" required:"true"`
	Port         string `envconfig:"KART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KART_DB_DSN"`
	Driver string `envconfig:"KART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KART_DB_HOST"`
	LegacyPort     int    `envconfig:"KART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KART_DB_USER"`
	LegacyPassword string `envconfig:"KART_DB_PASSWORD"`
	LegacyName     string `envconfig:"KART_DB_NAME"`
	LegacySSLMode  string `envconfig:"KART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KART_REDIS_ADDR"`
	Password     string        `envconfig:"KART_REDIS_PASSWORD"`
	DB           int           `envconfig:"KART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KART_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"KART_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the redis session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KART_ARGON_KEY_LEN" default:"32"`
}

type StripeConfig struct {
	APIKey string `envconfig:"KART_STRIPE_API_KEY"`
	Env    string `envconfig:"KART_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DriverSQLite) {
		db.DSN = "file:kart.db?cache=shared"
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
