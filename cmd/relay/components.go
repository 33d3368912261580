package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/payment_relay/internal/config"
	"github.com/fjod/payment_relay/internal/ledger"
	"github.com/fjod/payment_relay/internal/notify"
	"github.com/fjod/payment_relay/internal/publisher"
	"github.com/fjod/payment_relay/internal/secrets"
)

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config:\n%w", err)
	}
	return cfg, nil
}

func openLedger(ctx context.Context, cfg config.LedgerConfig, log *slog.Logger) (ledger.Ledger, error) {
	switch cfg.Driver {
	case config.LedgerRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Info("ledger: redis", slog.String("addr", cfg.Redis.Addr))
		return ledger.NewRedisLedger(client, cfg.PendingTTL, cfg.CompletedTTL), nil

	case config.LedgerPostgres, config.LedgerSQLite:
		l, err := openSQLLedger(cfg)
		if err != nil {
			return nil, err
		}
		dir := migrationsDir(cfg)
		if err := l.RunMigrations(dir); err != nil {
			_ = l.Close()
			return nil, err
		}
		log.Info("ledger: sql", slog.String("driver", cfg.Driver), slog.String("migrations", dir))
		return l, nil

	default:
		log.Warn("ledger: in-memory, duplicate protection is lost on restart")
		return ledger.NewMemoryLedger(cfg.PendingTTL), nil
	}
}

func openSQLLedger(cfg config.LedgerConfig) (*ledger.SQLLedger, error) {
	if cfg.Driver == config.LedgerSQLite {
		return ledger.OpenSQLite(cfg.SQLitePath, cfg.PendingTTL)
	}
	pg := cfg.Postgres
	return ledger.OpenPostgres(&ledger.Credentials{
		Host:     pg.Host,
		Port:     pg.Port,
		User:     pg.User,
		Password: pg.Password,
		DBName:   pg.DBName,
		SSLMode:  pg.SSLMode,
	}, cfg.PendingTTL)
}

func migrationsDir(cfg config.LedgerConfig) string {
	return cfg.MigrationsDir + "/" + cfg.Driver
}

func newPublisher(cfg config.KafkaConfig, log *slog.Logger) publisher.Publisher {
	if !cfg.Enabled() {
		log.Info("publisher: disabled, no kafka brokers configured")
		return publisher.Noop{}
	}
	topics := publisher.DefaultTopics()
	if cfg.TopicUnfulfilled != "" {
		topics.PaymentUnfulfilled = cfg.TopicUnfulfilled
	}
	if cfg.TopicCompleted != "" {
		topics.OrderCompleted = cfg.TopicCompleted
	}
	log.Info("publisher: kafka", slog.Any("brokers", cfg.Brokers))
	return publisher.NewKafkaPublisher(topics, cfg.Brokers...)
}

// newCredentials returns the backend credential provider and a close func.
func newCredentials(ctx context.Context, cfg config.BackendConfig) (secrets.Provider, func() error, error) {
	if !cfg.UsesSecretManager() {
		return secrets.NewStaticProvider(cfg.Username, cfg.Password), func() error { return nil }, nil
	}
	p, err := secrets.NewSecretManagerProvider(ctx, cfg.SecretProject, cfg.SecretID, cfg.SecretVersion)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

// newNotifier returns nil when push notifications are disabled; a nil
// *notify.Notifier is a valid no-op.
func newNotifier(ctx context.Context, cfg config.FirebaseConfig, log *slog.Logger) (*notify.Notifier, error) {
	if !cfg.Enabled {
		log.Info("notifications: disabled")
		return nil, nil
	}
	sender, err := notify.NewFCMSender(ctx, cfg.ProjectID, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return notify.NewNotifier(sender, 0), nil
}
