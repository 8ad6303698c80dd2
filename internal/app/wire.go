package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/tenderbot/internal/blob/s3"
	"github.com/alanyoungcy/tenderbot/internal/cache/redis"
	"github.com/alanyoungcy/tenderbot/internal/config"
	"github.com/alanyoungcy/tenderbot/internal/domain"
	"github.com/alanyoungcy/tenderbot/internal/notify"
	"github.com/alanyoungcy/tenderbot/internal/platform/rit"
	"github.com/alanyoungcy/tenderbot/internal/server/handler"
	"github.com/alanyoungcy/tenderbot/internal/store/postgres"
)

// Dependencies bundles the concrete collaborators built from configuration.
// Store, cache and archive fields stay nil when their backend is disabled.
type Dependencies struct {
	Gateway *rit.Client

	// Stores
	DecisionStore domain.DecisionStore
	UnwindStore   domain.UnwindStore
	AuditStore    domain.AuditStore

	// Cache
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	Archiver domain.Archiver

	// Notifications; nil when no sender is configured.
	Notifier *notify.Notifier

	// Checks are the health probes of every connected backend.
	Checks map[string]handler.Check
}

// Wire constructs every dependency the configuration enables and returns a
// cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Checks: map[string]handler.Check{}}

	// --- Exchange ---
	deps.Gateway = rit.NewClient(rit.Config{
		BaseURL:       cfg.Exchange.BaseURL,
		Username:      cfg.Exchange.Username,
		Password:      cfg.Exchange.Password,
		Timeout:       cfg.Exchange.Timeout.Duration,
		CancelSpacing: cfg.Exchange.CancelSpacing.Duration,
	}, logger)
	deps.Checks["exchange"] = func(ctx context.Context) error {
		_, err := deps.Gateway.CaseStatus(ctx)
		return err
	}

	// --- PostgreSQL ---
	if cfg.Supabase.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
			MinConns: cfg.Supabase.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Supabase.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.DecisionStore = postgres.NewDecisionStore(pool)
		deps.UnwindStore = postgres.NewUnwindStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Checks["postgres"] = pgClient.Ping
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.Checks["redis"] = redisClient.Ping
	}

	// --- S3 session archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewSessionArchiver(s3blob.NewWriter(s3Client), cfg.S3.Prefix)
		deps.Checks["s3"] = s3Client.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	return deps, cleanup, nil
}
