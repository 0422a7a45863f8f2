// Package server parses game command flags and composes the service.
package server

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/hanz94/monopoly-tool/internal/app/server"
	"github.com/hanz94/monopoly-tool/internal/game/alloc"
	"github.com/hanz94/monopoly-tool/internal/game/domain"
	"github.com/hanz94/monopoly-tool/internal/game/presence"
	"github.com/hanz94/monopoly-tool/internal/game/service"
	"github.com/hanz94/monopoly-tool/internal/ledger"
	entrypoint "github.com/hanz94/monopoly-tool/internal/platform/cmd"
	"github.com/hanz94/monopoly-tool/internal/store"
	boltstore "github.com/hanz94/monopoly-tool/internal/store/bbolt"
	"github.com/hanz94/monopoly-tool/internal/store/memory"
)

// Config holds game command configuration.
type Config struct {
	HTTPAddr       string        `env:"MONOPOLY_TOOL_HTTP_ADDR"       envDefault:":8080"`
	DBPath         string        `env:"MONOPOLY_TOOL_DB_PATH"`
	TokenSecret    string        `env:"MONOPOLY_TOOL_TOKEN_SECRET"`
	TokenIssuer    string        `env:"MONOPOLY_TOOL_TOKEN_ISSUER"    envDefault:"monopoly-tool"`
	SessionHorizon time.Duration `env:"MONOPOLY_TOOL_SESSION_HORIZON" envDefault:"168h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "game HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "ledger database path (in-memory store when empty)")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "session token signing secret (placeholder tokens when empty)")
	fs.StringVar(&cfg.TokenIssuer, "token-issuer", cfg.TokenIssuer, "session token issuer")
	fs.DurationVar(&cfg.SessionHorizon, "session-horizon", cfg.SessionHorizon, "session expiry horizon")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the game service and serves it until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGame, func(context.Context) error {
		var backing store.Store
		if cfg.DBPath != "" {
			db, err := boltstore.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open ledger database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					log.Printf("close ledger database: %v", err)
				}
			}()
			backing = db
		} else {
			log.Printf("no db path configured, sessions will not survive restarts")
			backing = memory.New()
		}

		l := ledger.New(backing)
		allocator := alloc.New(l).WithExpiry(domain.ExpiryPolicy{Horizon: cfg.SessionHorizon})
		if cfg.TokenSecret != "" {
			allocator = allocator.WithTokenMinter(alloc.JWTMinter([]byte(cfg.TokenSecret), cfg.TokenIssuer))
		}

		deps := server.Deps{
			Games:    service.New(l, allocator),
			Ledger:   l,
			Presence: presence.New(l),
		}
		if err := server.Run(ctx, server.Config{HTTPAddr: cfg.HTTPAddr}, deps); err != nil {
			return fmt.Errorf("serve game: %w", err)
		}
		return nil
	})
}
