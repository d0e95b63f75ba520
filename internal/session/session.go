// Package session provides the client lifecycle runner. The cmd entrypoint
// delegates to session.Run for signal handling, config loading,
// observability init, roster seeding, engine startup, and graceful
// shutdown.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/openforum/chatsync/internal/config"
	"github.com/openforum/chatsync/internal/domain"
	"github.com/openforum/chatsync/internal/engine"
	"github.com/openforum/chatsync/internal/identity"
	"github.com/openforum/chatsync/internal/observability"
	"github.com/openforum/chatsync/internal/roster"
	"github.com/openforum/chatsync/internal/store"
)

// Params configures a session run.
type Params struct {
	// Name identifies the client in logs and traces.
	Name string

	// UserID connects directly as this user. When empty, AccessToken is
	// resolved to a user id via the identity lookup.
	UserID      string
	AccessToken string

	// Interact, when set, runs alongside the engine (e.g. a terminal
	// input loop). Returning an error or the context ending stops the
	// session.
	Interact func(ctx context.Context, s *Session) error
}

// Session bundles the live collaborators handed to Interact.
type Session struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *store.Store
	Engine *engine.Engine
	UserID string
}

// Run executes the full session lifecycle: signal-based cancellation,
// config loading, observability initialization, one-shot roster fetch,
// engine connection, and graceful shutdown in reverse startup order
// (engine -> metrics -> tracer).
func Run(ctx context.Context, p Params) error {
	// Signal-based cancellation: ctx.Done() closes on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: p.Name,
		Environment: cfg.Environment,
	})

	// --- Startup order: tracer -> metrics -> roster -> engine ---

	tracerProvider, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    p.Name,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}

	metricsProvider, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		ServiceName:    p.Name,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	userID := p.UserID
	if userID == "" {
		userID, err = identity.NewLookup(domain.RealClock{}).UserID(p.AccessToken)
		if err != nil {
			return fmt.Errorf("resolve user id: %w", err)
		}
	}

	// The conversation list is fetched once over HTTP before the engine
	// starts; the WebSocket keeps it current afterwards. A failed fetch is
	// not fatal: the store starts empty and fills from live events.
	st := store.New()
	loader := roster.NewLoader(rosterBaseURL(cfg), cfg.Roster.Timeout)
	if convs, rosterErr := loader.Load(ctx, userID); rosterErr != nil {
		logger.Warn("roster fetch failed, starting with empty conversation list",
			slog.String("error", rosterErr.Error()))
	} else {
		st.SeedConversations(convs)
	}

	eng := engine.New(engine.Params{
		Config: engine.Config{
			Host:           cfg.Chat.Host,
			TLS:            cfg.Chat.TLS,
			DialTimeout:    cfg.Chat.DialTimeout,
			WriteTimeout:   cfg.Chat.WriteTimeout,
			InitialBackoff: cfg.Chat.Reconnect.InitialBackoff,
			MaxBackoff:     cfg.Chat.Reconnect.MaxBackoff,
			MaxAttempts:    cfg.Chat.Reconnect.MaxAttempts,
		},
		Store:  st,
		Logger: logger,
	})
	if err := eng.Connect(ctx, userID); err != nil {
		return fmt.Errorf("initialize connection: %w", err)
	}

	s := &Session{Config: cfg, Logger: logger, Store: st, Engine: eng, UserID: userID}

	// --- Structured concurrency via errgroup ---
	g, ctx := errgroup.WithContext(ctx)

	if p.Interact != nil {
		g.Go(func() error {
			return p.Interact(ctx, s)
		})
	}

	// Shutdown trigger: waits for cancellation, then drains in reverse of
	// startup order.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("received shutdown signal, closing session")

		// 1. Disconnect and stop the engine (started last, stops first).
		eng.Close()

		// 2. Flush OTEL (reverse: metrics first, then tracer).
		otelCtx, otelCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer otelCancel()
		if shutdownErr := metricsProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown metrics", slog.String("error", shutdownErr.Error()))
		}
		if shutdownErr := tracerProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", shutdownErr.Error()))
		}

		logger.Info("session closed")
		return nil
	})

	return g.Wait()
}

// rosterBaseURL derives the HTTP API base from explicit config, falling
// back to the chat host with the scheme matching the TLS setting.
func rosterBaseURL(cfg *config.Config) string {
	if cfg.Roster.BaseURL != "" {
		return cfg.Roster.BaseURL
	}
	scheme := "http"
	if cfg.Chat.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, cfg.Chat.Host)
}
