package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/content-machine/core/internal/modules/queue"
	pkgcron "github.com/content-machine/core/internal/pkg/cron"
)

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() {
	cronLogger := a.logger.Named("CronService")

	a.sched.Register(pkgcron.Job{
		Name:        "scan_and_generate",
		Description: "scan trend sources and run the content pipeline",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			items, err := a.scanner.ScanAll(ctx, 0)
			if err != nil {
				cronLogger.Warn("scan failed", zap.Error(err))
				return err
			}
			dryRun := a.runtime.DryRun(ctx)

			generated := 0
			for _, item := range items {
				exists, err := a.queue.Exists(item.ContentHash)
				if err != nil {
					cronLogger.Warn("queue lookup failed", zap.Error(err))
					continue
				}
				if exists {
					continue
				}

				result, err := a.pipeline.Run(ctx, item.TopicData, nil, dryRun)
				if err != nil {
					if errors.Is(err, queue.ErrDuplicate) {
						continue
					}
					cronLogger.Warn("pipeline run failed",
						zap.String("topic", item.Topic), zap.Error(err))
					continue
				}
				if result.Pack != nil {
					generated++
				}
			}
			cronLogger.Info(fmt.Sprintf("scan cycle done, %d topics, %d packs generated", len(items), generated))
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "expire_pending",
		Description: "expire queue items stuck in pending",
		Interval:    12 * time.Hour,
		Fn: func(ctx context.Context) error {
			expired, err := a.queue.ExpireOldPending(48 * time.Hour)
			if err != nil {
				cronLogger.Warn("expire pending failed", zap.Error(err))
				return err
			}
			if expired > 0 {
				cronLogger.Info(fmt.Sprintf("expired %d stale pending items", expired))
			}
			return nil
		},
	})
}
