package jobs

import (
	"context"
	"log/slog"
	"time"

	"fastpayment/internal/database"
	"fastpayment/internal/metrics"

	"github.com/robfig/cron/v3"
)

const runTimeout = 30 * time.Second

type ScheduleSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type CodeExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

type PoolMonitor interface {
	GetPoolStats() database.PoolStats
	WarnOnPressure()
}

// SweepJob closes schedules whose start time passed and drops stale access codes.
type SweepJob struct {
	schedules ScheduleSweeper
	codes     CodeExpirer
	pool      PoolMonitor
	cron      *cron.Cron
}

func NewSweepJob(schedules ScheduleSweeper, codes CodeExpirer, pool PoolMonitor) *SweepJob {
	return &SweepJob{schedules: schedules, codes: codes, pool: pool}
}

// Start registers the job on a cron expression (standard or @every) and runs it once immediately.
func (j *SweepJob) Start(expr string) error {
	j.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))),
	))

	if _, err := j.cron.AddFunc(expr, j.Run); err != nil {
		return err
	}

	slog.Info("Starting schedule sweep job", "schedule", expr)
	go j.Run()
	j.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish.
func (j *SweepJob) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	slog.Info("Schedule sweep job stopped")
}

func (j *SweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	closed, err := j.schedules.Sweep(ctx)
	if err != nil {
		slog.Error("Failed to sweep schedules", "error", err)
	} else if closed > 0 {
		slog.Info("Closed past schedules", "count", closed)
	}

	expired, err := j.codes.ExpireStale(ctx)
	if err != nil {
		slog.Error("Failed to expire access codes", "error", err)
	} else if expired > 0 {
		slog.Debug("Removed stale access codes", "count", expired)
	}

	if j.pool != nil {
		metrics.RecordPoolStats(j.pool.GetPoolStats())
		j.pool.WarnOnPressure()
	}
}
