package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the immutable process configuration. It is loaded once in main and
// passed by value into constructors.
type Config struct {
	Server   Server
	Auth     Auth
	Bus      Bus
	Log      Log
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	DMP      DMP
	Care     Care
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"             env:"SANTE_ADDR"             env-default:":8080"`
	Environment     string        `yaml:"environment"      env:"SANTE_ENV"              env-default:"development"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SANTE_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Auth holds token signing and password hashing settings.
type Auth struct {
	JWTSigningKey   string        `yaml:"jwt_signing_key"   env:"JWT_SIGNING_KEY"        env-required:"true"`
	Issuer          string        `yaml:"issuer"            env:"JWT_ISSUER"             env-default:"sante"`
	Audience        string        `yaml:"audience"          env:"JWT_AUDIENCE"           env-default:"sante-api"`
	TokenTTL        time.Duration `yaml:"token_ttl"         env:"AUTH_TOKEN_TTL"         env-default:"24h"`
	ResetTokenTTL   time.Duration `yaml:"reset_token_ttl"   env:"AUTH_RESET_TOKEN_TTL"   env-default:"1h"`
	BcryptCost      int           `yaml:"bcrypt_cost"       env:"AUTH_BCRYPT_COST"       env-default:"10"`
	HashConcurrency int64         `yaml:"hash_concurrency"  env:"AUTH_HASH_CONCURRENCY"  env-default:"4"`
	// RateLimit caps unauthenticated auth requests per client address. Zero disables it.
	RateLimit  int           `yaml:"rate_limit"        env:"AUTH_RATE_LIMIT"        env-default:"20"`
	RateWindow time.Duration `yaml:"rate_window"       env:"AUTH_RATE_WINDOW"       env-default:"1m"`
	// AdminIdentifier and AdminPassword seed the first super_admin at startup.
	AdminIdentifier string `yaml:"admin_identifier" env:"SANTE_ADMIN_IDENTIFIER"`
	AdminPassword   string `yaml:"admin_password"   env:"SANTE_ADMIN_PASSWORD"`
}

// Bus holds event bus settings.
type Bus struct {
	HistorySize int `yaml:"history_size" env:"BUS_HISTORY_SIZE" env-default:"10000"`
}

// Log holds logging settings.
type Log struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// RedisConfig configures the optional Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `yaml:"url"            env:"REDIS_URL"`
	PoolSize     int           `yaml:"pool_size"      env:"REDIS_POOL_SIZE"      env-default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`
	DialTimeout  time.Duration `yaml:"dial_timeout"   env:"REDIS_DIAL_TIMEOUT"   env-default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout"   env:"REDIS_READ_TIMEOUT"   env-default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout"  env:"REDIS_WRITE_TIMEOUT"  env-default:"3s"`
}

// PostgresConfig configures the optional PostgreSQL DMP store. An empty DSN keeps DMP data in memory.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"               env:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"DATABASE_MAX_OPEN_CONNS"    env-default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"DATABASE_MAX_IDLE_CONNS"    env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME" env-default:"30m"`
}

// KafkaConfig configures the outbound event relay. No brokers disables the relay.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"     env:"KAFKA_BROKERS"     env-separator:","`
	Topic      string   `yaml:"topic"       env:"KAFKA_TOPIC"       env-default:"sante.events"`
	EventTypes []string `yaml:"event_types" env:"KAFKA_EVENT_TYPES" env-separator:"," env-default:"auth.user_registered,appointment.scheduled,appointment.cancelled,professional.verified"`
}

// DMP holds medical record settings.
type DMP struct {
	DefaultConsentTTL time.Duration `yaml:"default_consent_ttl" env:"DMP_DEFAULT_CONSENT_TTL" env-default:"8760h"`
}

// Care holds appointment and notification settings.
type Care struct {
	AppointmentSlot   time.Duration `yaml:"appointment_slot"   env:"APPOINTMENT_SLOT"   env-default:"30m"`
	NotificationQueue int           `yaml:"notification_queue" env:"NOTIFICATION_QUEUE" env-default:"256"`
	NotificationLog   int           `yaml:"notification_log"   env:"NOTIFICATION_LOG"   env-default:"1000"`
}

// ErrMissingSigningKey is returned when no JWT signing key is configured.
var ErrMissingSigningKey = errors.New("JWT_SIGNING_KEY must be set")

// Load reads configuration from CONFIG_PATH (YAML) when set, otherwise from the
// environment, and validates it. The process must not start on error.
func Load() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// Validate enforces settings the services cannot run without.
func (c Config) Validate() error {
	if c.Auth.JWTSigningKey == "" {
		return ErrMissingSigningKey
	}
	if c.IsProduction() && len(c.Auth.JWTSigningKey) < 32 {
		return errors.New("JWT_SIGNING_KEY must be at least 32 bytes in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("AUTH_TOKEN_TTL must be positive")
	}
	if c.Auth.HashConcurrency <= 0 {
		return errors.New("AUTH_HASH_CONCURRENCY must be positive")
	}
	if c.Auth.RateLimit > 0 && c.Auth.RateWindow <= 0 {
		return errors.New("AUTH_RATE_WINDOW must be positive when AUTH_RATE_LIMIT is set")
	}
	if (c.Auth.AdminIdentifier == "") != (c.Auth.AdminPassword == "") {
		return errors.New("SANTE_ADMIN_IDENTIFIER and SANTE_ADMIN_PASSWORD must be set together")
	}
	if c.Bus.HistorySize <= 0 {
		return errors.New("BUS_HISTORY_SIZE must be positive")
	}
	if c.Care.NotificationQueue <= 0 {
		return errors.New("NOTIFICATION_QUEUE must be positive")
	}
	return nil
}

// IsProduction reports whether the process runs with production guarantees.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
