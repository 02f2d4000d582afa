// File: cmd/server/diagnose.go
package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-converse/internal/database"
	"github.com/iyunix/go-converse/internal/services/ai"
)

const diagnosePrompt = "What is the answer to life, universe and everything?"

// diagnoseCmd checks each external dependency in turn and reports timings.
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check database, lease backend and generation provider connectivity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()
		out := cmd.OutOrStdout()
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.GenerationTimeout)
		defer cancel()

		failed := 0
		check := func(name string, fn func() (string, error)) {
			start := time.Now()
			detail, err := fn()
			report(out, name, time.Since(start), detail, err)
			if err != nil {
				failed++
			}
		}

		check("database", func() (string, error) {
			db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
			if err != nil {
				return "", err
			}
			defer closeDatabase(db, logger)
			sqlDB, err := db.DB()
			if err != nil {
				return "", err
			}
			return cfg.DBDriver, sqlDB.PingContext(ctx)
		})

		check("lease", func() (string, error) {
			locker, cleanup, err := ProvideLocker(ctx, cfg, logger)
			if err != nil {
				return "", err
			}
			defer cleanup()
			l, err := locker.Acquire(ctx, "diagnose", time.Second, time.Second)
			if err != nil {
				return "", err
			}
			if cfg.RedisURL == "" {
				return "memory", l.Release(ctx)
			}
			return "redis", l.Release(ctx)
		})

		gateway, err := ai.NewGateway(ctx, ProvideAIConfig(cfg), logger)
		if err != nil {
			report(out, "gateway", 0, "", err)
			return fmt.Errorf("%d check(s) failed", failed+1)
		}
		check("reply", func() (string, error) {
			return gateway.GenerateReply(ctx, []ai.Turn{{Role: "user", Content: diagnosePrompt}})
		})
		check("title", func() (string, error) {
			return gateway.GenerateTitle(ctx, diagnosePrompt)
		})

		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

func report(w io.Writer, name string, d time.Duration, detail string, err error) {
	if err != nil {
		fmt.Fprintf(w, "FAIL %-8s %6dms  %v\n", name, d.Milliseconds(), err)
		return
	}
	fmt.Fprintf(w, "ok   %-8s %6dms  %s\n", name, d.Milliseconds(), detail)
}
