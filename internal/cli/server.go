package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quitz-service/internal/app"
	"quitz-service/internal/config"
	"quitz-service/internal/infra/memory"
	mongostore "quitz-service/internal/infra/mongo"
	pgstore "quitz-service/internal/infra/postgres"
	redisinfra "quitz-service/internal/infra/redis"
	transport "quitz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var cache app.SampleCache
	if cfg.Sample.Cache.Enabled {
		if redisClient != nil {
			cache = redisinfra.NewSampleCache(redisClient)
		} else {
			cache = memory.NewSampleCache()
		}
	}

	var limiter transport.Limiter
	if cfg.RateLimited() {
		if redisClient != nil {
			limiter = redisinfra.NewRateLimiter(redisClient, cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
		} else {
			limiter = memory.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
		}
	}

	questions := app.NewQuestionService(store, app.NewFeed(), cfg.Sample.MaxLen)
	sampler := app.NewSampler(store, cache, cfg.Sample.MaxLen, cfg.Sample.Cache.HitRatio)
	router := transport.NewRouter(
		transport.NewHandler(questions, sampler),
		transport.NewWSHandler(questions),
		limiter,
	)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		slog.Info("starting quiz service", "port", finalPort, "store", cfg.Store.Driver, "redis", redisClient != nil)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server...")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore connects the configured question store; the postgres driver runs
// pending migrations first.
func openStore(ctx context.Context, cfg config.Config) (app.QuestionStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.Store.URL)
		if err != nil {
			return nil, nil, err
		}
		collection := client.Database(cfg.Store.Database).Collection(cfg.Store.Collection)
		return mongostore.NewQuestionStore(collection), func() {
			_ = client.Disconnect(context.Background())
		}, nil
	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Store.URL)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewQuestionStore(pool), pool.Close, nil
	case config.DriverMemory:
		slog.Warn("using in-memory question store; data is lost on restart")
		return memory.NewQuestionStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
