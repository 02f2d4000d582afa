// File: cmd/server/providers.go
package main

import (
	"context"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/iyunix/go-converse/internal/config"
	"github.com/iyunix/go-converse/internal/handlers"
	"github.com/iyunix/go-converse/internal/lease"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/metrics"
	"github.com/iyunix/go-converse/internal/ratelimit"
	"github.com/iyunix/go-converse/internal/services"
	"github.com/iyunix/go-converse/internal/services/ai"
	chatservice "github.com/iyunix/go-converse/internal/services/chat"
)

const devJWTSecret = "converse-dev-secret"

// Application aggregates everything the serve command needs.
type Application struct {
	Config       *config.Config
	Logger       logging.Logger
	DB           *gorm.DB
	Router       *mux.Router
	ChatService  *services.ChatService
	ShareService *services.ShareService
	Metrics      *metrics.Metrics
}

// JWTSecret avoids string ambiguity in the injector.
type JWTSecret []byte

func ProvideJWTSecret(cfg *config.Config, logger logging.Logger) JWTSecret {
	if cfg.JWTSecretKey == "" {
		logger.Warn("JWT_SECRET_KEY not set; using the development secret")
		return JWTSecret(devJWTSecret)
	}
	return JWTSecret(cfg.JWTSecretKey)
}

func ProvideChatConfig(cfg *config.Config) *chatservice.Config {
	c := chatservice.DefaultConfig()
	c.GenerationTimeout = cfg.GenerationTimeout
	c.RateLimitRetryAfter = cfg.RateLimitRetryAfter
	c.MaxMessageRunes = cfg.MaxMessageRunes
	c.LeaseTTL = cfg.LeaseTTL
	c.LeaseWait = cfg.LeaseWait
	c.ShareBaseURL = cfg.ShareBaseURL
	c.ShareTTL = cfg.ShareTTL
	c.SweepMode = cfg.SweepMode
	return c
}

func ProvideAIConfig(cfg *config.Config) *ai.Config {
	c := ai.DefaultConfig()
	c.Provider = cfg.AIProvider
	c.APIKey = cfg.AIAPIKey
	c.BaseURL = cfg.AIBaseURL
	c.ChatModel = cfg.ChatModel
	c.TitleModel = cfg.TitleModel
	return c
}

func ProvideGateway(ctx context.Context, aiConfig *ai.Config, logger logging.Logger) (ai.Gateway, error) {
	return ai.NewGateway(ctx, aiConfig, logger)
}

func ProvideRecorder(m *metrics.Metrics) metrics.Recorder {
	return m
}

// ProvideLocker uses Redis when REDIS_URL is set so leases hold across
// replicas; otherwise an in-process locker.
func ProvideLocker(ctx context.Context, cfg *config.Config, logger logging.Logger) (lease.Locker, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info("using in-process chat leases")
		return lease.NewMemoryLocker(), func() {}, nil
	}
	locker, err := lease.NewRedisLocker(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis chat leases")
	return locker, func() {
		if err := locker.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}, nil
}

func ProvideSendLimiter(cfg *config.Config) (*ratelimit.MemoryRateLimiter, func()) {
	limiter := ratelimit.NewMemoryRateLimiter(&ratelimit.Config{
		WindowSize:    cfg.SendRateWindow,
		MaxRequests:   cfg.SendRateLimit,
		CleanupPeriod: 2 * cfg.SendRateWindow,
	})
	return limiter, limiter.Close
}

func ProvideSweepMode(cfg *config.Config) handlers.SweepMode {
	return handlers.SweepMode(cfg.SweepMode)
}

func ProvideRouterConfig(cfg *config.Config, secret JWTSecret, limiter *ratelimit.MemoryRateLimiter, m *metrics.Metrics, logger logging.Logger) handlers.RouterConfig {
	return handlers.RouterConfig{
		JWTSecret:   []byte(secret),
		SweepSecret: cfg.SweepAPIKey,
		SendLimiter: limiter,
		Metrics:     m,
		Logger:      logger,
	}
}
