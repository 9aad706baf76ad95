// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	StoreDriver   string        `env:"STORE_DRIVER,default=mongo" validate:"oneof=mongo memory"`
	MongoURI      string        `env:"MONGODB_URI" validate:"required_if=StoreDriver mongo"`
	MongoDatabase string        `env:"MONGODB_DATABASE,default=chat_db" validate:"required"`
	JWTSecret     string        `env:"JWT_SECRET" validate:"required_without=JWTKeys"`
	JWTKeys       string        `env:"JWT_KEYS"`
	JWTActiveKid  string        `env:"JWT_ACTIVE_KID"`
	TokenTTL      time.Duration `env:"TOKEN_TTL,default=24h" validate:"gt=0"`
	Host          string        `env:"HOST"`
	Port          int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	HealthPort    int           `env:"HEALTH_PORT,default=50051" validate:"min=1,max=65535,nefield=Port"`
	RateLimitRPM  int           `env:"RATE_LIMIT_RPM,default=10" validate:"gt=0"`
	LogLevel      string        `env:"LOG_LEVEL,default=INFO"`
	TLSCert       string        `env:"TLS_CERT" validate:"required_with=TLSKey"`
	TLSKey        string        `env:"TLS_KEY" validate:"required_with=TLSCert"`
	RequireTLS    bool          `env:"REQUIRE_TLS,default=false"`
	AllowedOrigin string        `env:"ALLOWED_ORIGINS,default=*"`
	PingInterval  time.Duration `env:"PING_INTERVAL,default=54s" validate:"gt=0"`
}

// Load reads an optional .env file, then the process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and the TLS requirement.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.RequireTLS && !c.TLSEnabled() {
		return errors.New("invalid config: REQUIRE_TLS is true but TLS_CERT/TLS_KEY are not configured")
	}
	return nil
}

// TLSEnabled reports whether a certificate pair is configured.
func (c Config) TLSEnabled() bool { return c.TLSCert != "" && c.TLSKey != "" }

// Addr is the REST and websocket listen address.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// HealthAddr is the gRPC health listen address.
func (c Config) HealthAddr() string { return fmt.Sprintf("%s:%d", c.Host, c.HealthPort) }

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	return lo.Compact(lo.Map(strings.Split(c.AllowedOrigin, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))
}

// PongWait is how long a websocket may stay silent before it is dropped.
// Pings go out every PingInterval, so the peer gets a tenth of slack.
func (c Config) PongWait() time.Duration { return c.PingInterval * 10 / 9 }
