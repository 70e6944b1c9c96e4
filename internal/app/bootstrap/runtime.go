package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/wolfman30/practice-booking/internal/calendar"
	appconfig "github.com/wolfman30/practice-booking/internal/config"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/slots"
	"github.com/wolfman30/practice-booking/internal/tickets"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildRuleSource returns the redis-backed rules store, or the built-in
// table when redis is disabled. The store is nil in the latter case.
func BuildRuleSource(redisClient *redis.Client, cfg *appconfig.Config) (slots.Source, *slots.RuleStore) {
	if redisClient == nil {
		return slots.StaticSource{}, nil
	}
	store := slots.NewRuleStore(redisClient, cfg.RulesCacheTTL)
	return store, store
}

// ConnectPostgresPool returns nil when url is empty or unreachable.
func ConnectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// OpenSQL opens a database/sql handle over the pgx driver.
func OpenSQL(url string) (*sql.DB, error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open sql: %w", err)
	}
	return db, nil
}

// BuildTicketRepository prefers postgres and falls back to memory.
func BuildTicketRepository(pool *pgxpool.Pool, logger *logging.Logger) tickets.Repository {
	if pool == nil {
		if logger != nil {
			logger.Warn("DATABASE_URL not set; tickets are kept in memory")
		}
		return tickets.NewInMemoryRepository()
	}
	return tickets.NewPostgresRepository(pool)
}

// BuildDirectory prefers the practices table and falls back to the built-in
// profiles.
func BuildDirectory(db *sql.DB, logger *logging.Logger) practice.Directory {
	if db == nil {
		return practice.NewStaticDirectory()
	}
	return practice.NewSQLDirectory(db, logger)
}

// BuildCalendar returns a Google Calendar client when credentials are
// configured and a logging stand-in otherwise.
func BuildCalendar(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (calendar.EventCreator, error) {
	if cfg == nil || strings.TrimSpace(cfg.GoogleCredentialsFile) == "" {
		return calendar.NewLogCalendar(logger), nil
	}
	cal, err := calendar.NewGoogleCalendar(ctx, cfg.GoogleCalendarID, logger,
		option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: google calendar: %w", err)
	}
	return cal, nil
}
