//go:build wireinject
// +build wireinject

// File: cmd/server/wire.go
package main

import (
	"context"

	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/iyunix/go-converse/internal/config"
	"github.com/iyunix/go-converse/internal/handlers"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/metrics"
	"github.com/iyunix/go-converse/internal/render"
	"github.com/iyunix/go-converse/internal/repository/chat"
	"github.com/iyunix/go-converse/internal/repository/message"
	"github.com/iyunix/go-converse/internal/services"
)

func InitializeApplication(ctx context.Context, cfg *config.Config, logger logging.Logger, db *gorm.DB) (*Application, func(), error) {
	wire.Build(
		// Basic providers
		ProvideJWTSecret,
		ProvideChatConfig,
		ProvideAIConfig,
		ProvideSweepMode,
		ProvideRouterConfig,

		// Infrastructure
		metrics.New,
		ProvideRecorder,
		ProvideLocker,
		ProvideSendLimiter,
		ProvideGateway,
		render.NewMarkdown,

		// Repositories
		chat.NewChatRepository,
		message.NewMessageRepository,

		// Core Services
		services.NewShareService,
		services.NewHistoryService,
		services.NewChatService,

		// Handlers
		handlers.NewChatHandler,
		handlers.NewShareHandler,
		handlers.NewHistoryHandler,
		handlers.NewPageHandler,
		handlers.NewLogHandler,
		wire.Struct(new(handlers.Handlers), "*"),
		handlers.NewRouter,

		// Application constructor
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
