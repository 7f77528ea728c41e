package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ClientConfig is the client configuration, parsed from the
// environment. Flags in cmd/client override individual fields.
type ClientConfig struct {
	// ServerURL is the game server base URL.
	ServerURL string `env:"KALAHA_SERVER_URL" envDefault:"http://localhost:8000"`
	// LogLevel is one of error, warn, info, debug, trace.
	LogLevel string `env:"KALAHA_LOG_LEVEL" envDefault:"info"`
	// SessionCachePath is the sqlite file caching the last session id.
	// Empty disables persistence.
	SessionCachePath string `env:"KALAHA_SESSION_CACHE"`
	// RequestTimeout bounds every request so a hung call can never hold
	// the orchestrator's scheduling guard forever.
	RequestTimeout time.Duration `env:"KALAHA_REQUEST_TIMEOUT" envDefault:"10s"`
	// OpponentMoveDelay is how long the client waits before requesting
	// the server-side player's move.
	OpponentMoveDelay time.Duration `env:"KALAHA_OPPONENT_MOVE_DELAY" envDefault:"1s"`
	// Debug enables the on-screen debug overlay.
	Debug bool `env:"KALAHA_DEBUG" envDefault:"false"`
}

func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %v", err)
	}
	return cfg, nil
}
