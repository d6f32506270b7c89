// Package config loads server settings from the environment and builds the
// snapshot store they describe.
package config

import (
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/adapters/sqlite"
	"github.com/aretw0/parley/pkg/persistence/middleware"
	"github.com/aretw0/parley/pkg/ports"
)

// Store kinds accepted by PARLEY_STORE.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Server configures `parley serve` and `parley mcp`. Flags override these values.
type Server struct {
	Story         string        `env:"PARLEY_STORY"`
	Addr          string        `env:"PARLEY_ADDR"           envDefault:":8080"`
	Metrics       bool          `env:"PARLEY_METRICS"        envDefault:"true"`
	Start         string        `env:"PARLEY_START"`
	Store         string        `env:"PARLEY_STORE"          envDefault:"memory"`
	StoreDSN      string        `env:"PARLEY_STORE_DSN"`
	StoreTTL      time.Duration `env:"PARLEY_STORE_TTL"`
	SnapshotKey   string        `env:"PARLEY_SNAPSHOT_KEY"   envDefault:"default"`
	EncryptionKey string        `env:"PARLEY_ENCRYPTION_KEY"`
	PIIPatterns   []string      `env:"PARLEY_PII_PATTERNS"   envSeparator:","`
	LogLevel      string        `env:"PARLEY_LOG_LEVEL"      envDefault:"info"`
	LogFormat     string        `env:"PARLEY_LOG_FORMAT"     envDefault:"text"`
}

// Load reads Server from the environment.
func Load() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// nopCloser is returned for stores without resources to release.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore builds the configured snapshot store, wrapped with PII masking and
// encryption when those are set. The closer releases the backend connection.
func (c Server) OpenStore() (ports.SnapshotStore, io.Closer, error) {
	var (
		store  ports.SnapshotStore
		closer io.Closer = nopCloser{}
	)

	switch c.Store {
	case "", StoreMemory:
		store = memory.NewStore()
	case StoreFile:
		store = file.New(c.StoreDSN)
	case StoreRedis:
		if c.StoreDSN == "" {
			return nil, nil, fmt.Errorf("redis store requires PARLEY_STORE_DSN")
		}
		r, err := redis.New(c.StoreDSN, redis.WithTTL(c.StoreTTL))
		if err != nil {
			return nil, nil, err
		}
		store, closer = r, r
	case StoreSQLite:
		dsn := c.StoreDSN
		if dsn == "" {
			dsn = ".parley/saves.db"
		}
		s, err := sqlite.New(dsn)
		if err != nil {
			return nil, nil, err
		}
		store, closer = s, s
	default:
		return nil, nil, fmt.Errorf("unknown store %q", c.Store)
	}

	var mws []middleware.Middleware
	if len(c.PIIPatterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(c.PIIPatterns)
		if err != nil {
			_ = closer.Close()
			return nil, nil, err
		}
		mws = append(mws, pii)
	}
	if c.EncryptionKey != "" {
		key, err := middleware.DecodeKey(c.EncryptionKey)
		if err != nil {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("PARLEY_ENCRYPTION_KEY: %w", err)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			_ = closer.Close()
			return nil, nil, err
		}
		mws = append(mws, enc)
	}

	return middleware.Chain(store, mws...), closer, nil
}
