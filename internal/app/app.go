package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskchat/deskchat/internal/auth"
	"github.com/deskchat/deskchat/internal/bus"
	"github.com/deskchat/deskchat/internal/chat"
	"github.com/deskchat/deskchat/internal/config"
	"github.com/deskchat/deskchat/internal/log"
	"github.com/deskchat/deskchat/internal/presence"
	"github.com/deskchat/deskchat/internal/store"
	"github.com/deskchat/deskchat/internal/store/sqlite"
	transporthttp "github.com/deskchat/deskchat/internal/transport/http"
)

// App wires the store, bus, presence registry, and HTTP transport together.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	bus             bus.Bus
	presence        presence.Registry
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	b, err := newBus(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	reg, err := newPresence(cfg)
	if err != nil {
		b.Close()
		st.Close()
		return nil, err
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn().Msg("jwt_secret not configured; using a random secret, tokens will not survive restarts")
	}

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(secret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})

	deps := chat.Deps{
		Store:    st,
		Bus:      b,
		Presence: reg,
		Logger:   log.Component(logger, "chat"),
	}

	server := transporthttp.NewServer(deps, authService, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		bus:             b,
		presence:        reg,
		log:             logger,
	}, nil
}

func newBus(cfg *config.Config, logger *zerolog.Logger) (bus.Bus, error) {
	switch cfg.Bus.Driver {
	case "nats":
		b, err := bus.NewNATSBus(cfg.Bus.NATSURL, log.Component(logger, "bus"))
		if err != nil {
			return nil, fmt.Errorf("init nats bus: %w", err)
		}
		logger.Info().Str("url", cfg.Bus.NATSURL).Msg("nats bus initialized")
		return b, nil
	default:
		return bus.NewMemoryBus(), nil
	}
}

func newPresence(cfg *config.Config) (presence.Registry, error) {
	switch cfg.Presence.Driver {
	case "redis":
		reg, err := presence.NewRedisRegistry(context.Background(), cfg.Presence.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init redis presence: %w", err)
		}
		return reg, nil
	default:
		return presence.NewMemoryRegistry(), nil
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(buf)
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the bus, presence registry, and store.
func (a *App) cleanup() {
	if err := a.bus.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close bus")
	}
	if err := a.presence.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close presence registry")
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}
