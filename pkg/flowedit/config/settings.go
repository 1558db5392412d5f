package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults for settings not present in the file or environment.
const (
	DefaultBaseURL         = "http://localhost:5001"
	DefaultClientTimeout   = 10 * time.Second
	DefaultServerAddr      = ":5001"
	DefaultStoreKind       = "memory"
	DefaultShutdownTimeout = 10 * time.Second
)

var validate = validator.New()

// ClientSettings configure the remote flow store client.
type ClientSettings struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`

	// Retry tuning for transient failures.
	MaxAttempts    int           `validate:"gte=1,lte=10"`
	InitialBackoff time.Duration `validate:"gte=0"`
	MaxBackoff     time.Duration `validate:"gte=0"`

	// Circuit breaker tuning.
	BreakerFailures uint32        `validate:"gte=1"`
	BreakerCooldown time.Duration `validate:"gt=0"`
}

// ClientFromConfig reads the "client" section. The base URL falls back to
// a top-level "base_url" key before the default.
func ClientFromConfig(c Config) (ClientSettings, error) {
	s := c.Sub("client")
	out := ClientSettings{
		BaseURL:         s.String("base_url", c.String("base_url", DefaultBaseURL)),
		Timeout:         s.Duration("timeout", DefaultClientTimeout),
		MaxAttempts:     s.Int("retry.max_attempts", 3),
		InitialBackoff:  s.Duration("retry.initial_backoff", 200*time.Millisecond),
		MaxBackoff:      s.Duration("retry.max_backoff", 2*time.Second),
		BreakerFailures: uint32(s.Int("breaker.failures", 5)),
		BreakerCooldown: s.Duration("breaker.cooldown", 30*time.Second),
	}
	if err := validate.Struct(out); err != nil {
		return ClientSettings{}, fmt.Errorf("client settings: %w", err)
	}
	return out, nil
}

// ServerSettings configure the reference flow store process.
type ServerSettings struct {
	Addr            string        `validate:"required"`
	Store           string        `validate:"required"`
	DSN             string        `validate:"required_if=Store sqlite"`
	AllowedOrigins  []string      `validate:"dive,required"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	MaxBodyBytes    int64         `validate:"gt=0"`
	Development     bool
}

// ServerFromConfig reads the "server" section.
func ServerFromConfig(c Config) (ServerSettings, error) {
	s := c.Sub("server")
	out := ServerSettings{
		Addr:            s.String("addr", DefaultServerAddr),
		Store:           s.String("store", DefaultStoreKind),
		DSN:             s.String("dsn", ""),
		AllowedOrigins:  s.StringSlice("allowed_origins", []string{"*"}),
		ShutdownTimeout: s.Duration("shutdown_timeout", DefaultShutdownTimeout),
		MaxBodyBytes:    int64(s.Int("max_body_bytes", 4<<20)),
		Development:     s.Bool("development", false),
	}
	if err := validate.Struct(out); err != nil {
		return ServerSettings{}, fmt.Errorf("server settings: %w", err)
	}
	return out, nil
}
