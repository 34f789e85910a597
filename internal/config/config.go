package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/satriahrh/voicecache/adapters/tts"
	"github.com/satriahrh/voicecache/internal/cachekey"
)

// Config is the process configuration, read from the environment
type Config struct {
	ElevenLabs     tts.ElevenLabsConfig `envPrefix:"ELEVEN_LABS_"`
	DefaultVoiceID string               `env:"ELEVEN_LABS_VOICE_ID" envDefault:"21m00Tcm4TlvDq8ikWAM"` // Rachel

	CacheRoot     string        `env:"TTS_CACHE_ROOT"`
	CacheKeyScope string        `env:"TTS_CACHE_KEY_SCOPE" envDefault:"request"`
	StagingMaxAge time.Duration `env:"TTS_STAGING_MAX_AGE" envDefault:"1h"`

	Port      string        `env:"PORT" envDefault:"8080"`
	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	LogDevelopment bool `env:"LOG_DEVELOPMENT"`
}

// Load reads the given .env files (".env" when none are given) into the
// environment and parses it. Variables already set win over file values,
// and a missing file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that parse fine but cannot be used. The Eleven
// Labs section is checked by the adapter itself.
func (c *Config) Validate() error {
	if _, err := cachekey.ParseScope(c.CacheKeyScope); err != nil {
		return err
	}
	if c.StagingMaxAge < 0 {
		return fmt.Errorf("staging max age must not be negative, got %s", c.StagingMaxAge)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT TTL must be positive, got %s", c.JWTTTL)
	}
	if c.Port == "" {
		return errors.New("port is required")
	}
	return nil
}

// KeyScope returns the parsed cache key scope
func (c *Config) KeyScope() cachekey.Scope {
	scope, err := cachekey.ParseScope(c.CacheKeyScope)
	if err != nil {
		return cachekey.ScopeRequest
	}
	return scope
}
