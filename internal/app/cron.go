package app

import (
	"context"
	"time"

	"github.com/lingokit/core/internal/modules/backup"
	"github.com/lingokit/core/internal/modules/profile"
	pkgcron "github.com/lingokit/core/internal/pkg/cron"
	"github.com/lingokit/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() {
	logger := a.logger.Named("cron")

	profileSvc := profile.NewService(a.db, profile.Caps{
		RecentErrors:     a.cfg.Pipeline.RecentErrorsCap,
		SessionSummaries: a.cfg.Pipeline.SessionSummariesCap,
	})
	taskSvc := taskqueue.NewService(a.rc)
	backupSvc := backup.NewService(a.db, a.cfg.Backup, a.logger.Named("backup"))

	retention := time.Duration(a.cfg.Pipeline.ProfileRetentionDays) * 24 * time.Hour

	a.sched.Register(pkgcron.Job{
		Name:        "cleanup_profiles",
		Description: "Delete learner profiles past the retention window",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			removed, err := profileSvc.DeleteExpired(ctx, retention)
			if err != nil {
				logger.Warn("profile cleanup failed", zap.Error(err))
				return err
			}
			logger.Info("profile cleanup done", zap.Int64("removed", removed))
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "cleanup_tasks",
		Description: "Purge finished background tasks older than three days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			before := time.Now().AddDate(0, 0, -7).UnixMilli()
			if err := taskSvc.DeleteCompleted(ctx, before); err != nil {
				logger.Warn("task cleanup failed", zap.Error(err))
				return err
			}
			return nil
		},
	})

	if a.cfg.Backup.Enable {
		a.sched.Register(pkgcron.Job{
			Name:        "auto_backup",
			Description: "Nightly database backup",
			Interval:    24 * time.Hour,
			Fn: func(ctx context.Context) error {
				filename, err := backupSvc.Create(ctx)
				if err != nil {
					logger.Warn("backup failed", zap.Error(err))
					return err
				}
				logger.Info("backup created", zap.String("filename", filename))
				return nil
			},
		})
	}
}
