package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/actuallystonmai/booklist-service/internal/auth"
	"github.com/actuallystonmai/booklist-service/internal/bookapi"
	"github.com/actuallystonmai/booklist-service/internal/config"
	"github.com/actuallystonmai/booklist-service/internal/handler"
	"github.com/actuallystonmai/booklist-service/internal/logger"
	"github.com/actuallystonmai/booklist-service/internal/metrics"
	"github.com/actuallystonmai/booklist-service/internal/ranking"
	"github.com/actuallystonmai/booklist-service/internal/repository"
	"github.com/actuallystonmai/booklist-service/internal/router"
	"github.com/actuallystonmai/booklist-service/internal/service"
	"github.com/actuallystonmai/booklist-service/internal/session"
	"github.com/actuallystonmai/booklist-service/seeds"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	ctx := context.Background()

	// ------------ Data source ---------------
	var source service.DataSource
	switch cfg.DataSource {
	case config.SourcePostgres:
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		defer pool.Close()

		// for migrate-down using CLI command
		if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
			if err := migrateDown(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("failed to migrate down")
			}
			return
		}
		if err := migrateUp(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate up")
		}
		if err := checkSeed(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to check seed")
		}
		source = repository.NewRepository(pool)

	case config.SourceAPI:
		client := bookapi.NewClient(cfg.BookAPIURL, cfg.BookAPITimeout)
		pingCtx, cancel := context.WithTimeout(ctx, cfg.BookAPITimeout)
		if err := client.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("url", cfg.BookAPIURL).Msg("book API not reachable yet")
		}
		cancel()
		source = client
	}
	log.Info().Str("source", cfg.DataSource).Msg("data source ready")

	// ------------ Redis ---------------
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse redis url")
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	sessions := session.NewStore(rdb)
	if err := sessions.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	log.Info().Msg("connected to Redis")

	// ---------------- Server --------------------
	m := metrics.New()
	builder := ranking.NewBuilder(source,
		ranking.WithConcurrency(cfg.RankConcurrency),
		ranking.WithRecorder(m),
	)
	svc := service.NewService(source, builder)
	h := handler.NewHandler(svc, auth.NewManager(cfg.JWTSecret), sessions)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(h, m, cfg.RequestTimeout),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}

func openPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBPoolSize)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := waitForDB(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Msg("connected to PostgreSQL")
	return pool, nil
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		log.Info().Int("attempt", i+1).Msg("waiting for database...")
		time.Sleep(1 * time.Second)
	}
	return errors.New("database connection timeout after 30s")
}

func migrateDown(ctx context.Context, pool *pgxpool.Pool) error {
	return runMigration(ctx, pool, "migrations/create_tables.down.sql", "migrations dropped")
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool) error {
	return runMigration(ctx, pool, "migrations/create_tables.up.sql", "migrations applied")
}

func runMigration(ctx context.Context, pool *pgxpool.Pool, path, done string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration %s: %w", path, err)
	}
	log.Info().Str("file", path).Msg(done)
	return nil
}

func checkSeed(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&count); err != nil {
		return fmt.Errorf("check books count: %w", err)
	}
	if count > 0 {
		log.Info().Int("books", count).Msg("database already seeded, skipping")
		return nil
	}
	return seeds.Setup(ctx, pool)
}
