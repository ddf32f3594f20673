package cli

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aiox-platform/memchat/internal/api"
	"github.com/aiox-platform/memchat/internal/audit"
	"github.com/aiox-platform/memchat/internal/chat"
	"github.com/aiox-platform/memchat/internal/config"
	"github.com/aiox-platform/memchat/internal/database"
	"github.com/aiox-platform/memchat/internal/llm"
	mw "github.com/aiox-platform/memchat/internal/middleware"
	inats "github.com/aiox-platform/memchat/internal/nats"
	"github.com/aiox-platform/memchat/internal/orchestrator"
	iredis "github.com/aiox-platform/memchat/internal/redis"
	"github.com/aiox-platform/memchat/internal/server"
	"github.com/aiox-platform/memchat/internal/session"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	checks := map[string]api.HealthCheck{}

	// Redis
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		client, err := iredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		redisClient = client
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	store, err := newSessionStore(cfg.Session, redisClient)
	if err != nil {
		return err
	}

	// LLM pipeline
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}
	pipeline := orchestrator.New(provider, pipelineConfig(cfg.LLM))
	slog.Info("LLM provider configured", "provider", provider.Name(), "model", cfg.LLM.Model)

	// NATS
	var publisher chat.TurnPublisher
	var natsClient *inats.Client
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
		checks["nats"] = func(context.Context) error {
			if !natsClient.Healthy() {
				return fmt.Errorf("nats disconnected")
			}
			return nil
		}
	}

	handlers := api.HandlerSet{}

	// Audit trail
	if cfg.Audit.Enabled && natsClient != nil {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		pool, err := database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
		checks["database"] = func(ctx context.Context) error { return database.HealthCheck(ctx, pool) }

		auditRepo := audit.NewRepository(pool)
		consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
		handlers.ListSessionAudits = audit.NewHandler(auditRepo).ListBySession
	}

	// Chat
	chatSvc := chat.NewService(store, pipeline, publisher, windows(cfg.Session))
	chatHandler := chat.NewHandler(chatSvc)
	handlers.Chat = chatHandler.Chat
	handlers.CreateSession = chatHandler.CreateSession
	handlers.GetSession = chatHandler.GetSession
	handlers.DeleteSession = chatHandler.DeleteSession

	routerCfg := api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		Checks:             checks,
	}
	if redisClient != nil {
		routerCfg.ChatRateLimiter = mw.NewRateLimiter(redisClient, "chat", cfg.RateLimit.ChatMax, cfg.RateLimit.ChatWindowSec).Middleware
	}

	router := api.NewRouter(routerCfg, handlers)
	return server.New(cfg.Server, router).Start(ctx)
}

// newSessionStore picks the session backend. The redis backend needs a
// connected client.
func newSessionStore(cfg config.SessionConfig, client *goredis.Client) (session.Store, error) {
	switch cfg.Backend {
	case config.SessionBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("session backend %q requires redis", cfg.Backend)
		}
		return session.NewRedisStore(client, cfg.TTL, cfg.MaxHistory), nil
	case config.SessionBackendMemory, "":
		return session.NewMemoryStore(cfg.TTL, cfg.MaxSessions, cfg.MaxHistory), nil
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Backend)
	}
}
