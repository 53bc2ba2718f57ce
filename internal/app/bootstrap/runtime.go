package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/carenest/patient-portal/internal/cache"
	appconfig "github.com/carenest/patient-portal/internal/config"
	"github.com/carenest/patient-portal/internal/notify"
	"github.com/carenest/patient-portal/pkg/logging"
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

// BuildPostgres opens the booking ledger pool. Both return values are nil
// when DATABASE_URL is unset. The *sql.DB shares the pool and only serves
// readiness pings.
func BuildPostgres(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, *sql.DB, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	return pool, stdlib.OpenDBFromPool(pool), nil
}

// BuildCache returns a Redis-backed cache when a client is available and an
// in-process cache otherwise.
func BuildCache(client redis.UniversalClient, prefix string) cache.Cache {
	if client == nil {
		return cache.NewMemoryCache()
	}
	return cache.NewRedisCache(client, prefix)
}

// BuildEmailSender picks the confirmation email transport from
// EMAIL_PROVIDER. sesClient is only consulted for "ses". Misconfigured
// providers degrade to the log sender.
func BuildEmailSender(cfg *appconfig.Config, sesClient *sesv2.Client, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	senderCfg := notify.SenderConfig{
		FromEmail: cfg.EmailFromAddress,
		FromName:  cfg.EmailFromName,
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(cfg.SendGridAPIKey, senderCfg, logger); sender != nil {
			logger.Info("confirmation emails via sendgrid")
			return sender
		}
		logger.Warn("EMAIL_PROVIDER=sendgrid but SENDGRID_API_KEY is empty; logging emails instead")
	case "ses":
		if sender := notify.NewSESSender(sesClient, senderCfg, logger); sender != nil {
			logger.Info("confirmation emails via ses")
			return sender
		}
		logger.Warn("EMAIL_PROVIDER=ses but no SES client; logging emails instead")
	}
	return notify.NewLogSender(logger)
}
