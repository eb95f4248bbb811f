package config

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Token     TokenConfig
	Reset     ResetConfig
	Password  PasswordConfig
	Roles     RoleConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

type TokenConfig struct {
	Secret    string        `env:"JWT_SECRET, required"`
	Issuer    string        `env:"JWT_ISSUER,       default=auth-service"`
	TTL       time.Duration `env:"TOKEN_TTL,        default=24h"`
	ClockSkew time.Duration `env:"TOKEN_CLOCK_SKEW, default=0s"`
}

type ResetConfig struct {
	TTL      time.Duration `env:"RESET_TOKEN_TTL, default=15m"`
	Throttle time.Duration `env:"RESET_THROTTLE,  default=1m"`
	Workers  int           `env:"RESET_WORKERS,   default=4"`
	Stream   string        `env:"RESET_STREAM,    default=auth:password-resets"`
}

type PasswordConfig struct {
	BcryptCost int `env:"BCRYPT_COST, default=10"`
}

type RoleConfig struct {
	Hierarchy   string   `env:"ROLE_HIERARCHY, default=ROLE_ADMIN>ROLE_STAFF;ROLE_STAFF>ROLE_USER"`
	DefaultRole string   `env:"DEFAULT_ROLE,   default=ROLE_USER"`
	AdminRole   string   `env:"ADMIN_ROLE,     default=ROLE_ADMIN"`
	SignupRoles []string `env:"SIGNUP_ROLES,   default=ROLE_USER"`
}

type StoreConfig struct {
	Timeout      time.Duration `env:"STORE_TIMEOUT,       default=5s"`
	Retries      int           `env:"STORE_RETRIES,       default=3"`
	RetryBackoff time.Duration `env:"STORE_RETRY_BACKOFF, default=50ms"`
}

type RateLimitConfig struct {
	Rate  float64 `env:"AUTH_RATE_LIMIT, default=5"`
	Burst int     `env:"AUTH_RATE_BURST, default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from l. Tests pass an envconfig.MapLookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Token.TTL <= 0:
		return fmt.Errorf("TOKEN_TTL must be positive")
	case c.Token.ClockSkew < 0:
		return fmt.Errorf("TOKEN_CLOCK_SKEW must not be negative")
	case c.Reset.TTL <= 0:
		return fmt.Errorf("RESET_TOKEN_TTL must be positive")
	case c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost:
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	case c.Store.Retries < 1:
		return fmt.Errorf("STORE_RETRIES must be at least 1")
	case slices.Contains(c.Roles.SignupRoles, c.Roles.AdminRole):
		return fmt.Errorf("SIGNUP_ROLES must not contain ADMIN_ROLE %s", c.Roles.AdminRole)
	}
	return nil
}

// Development reports whether the service runs locally.
func (c *Config) Development() bool {
	return c.Env == "development"
}
