// Package recount periodically rebuilds the denormalized counters (group post
// counts, post and comment reply counts) from the rows they summarize.
package recount

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/storage"
	"github.com/campusnest/forum/pkg/logging"
	"github.com/campusnest/forum/pkg/telemetry"
)

// Recounter is the part of storage.Store the job needs.
type Recounter interface {
	RecountCounters(ctx context.Context) (storage.RecountReport, error)
}

// Job repairs counter drift. It implements cron.Job.
type Job struct {
	store   Recounter
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.Mutex

	repaired metric.Int64Counter
}

// NewJob creates a job over store. Each run is bounded by timeout.
func NewJob(store Recounter, timeout time.Duration) *Job {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Job{
		store:    store,
		timeout:  timeout,
		logger:   logging.WithComponent("recount"),
		repaired: telemetry.Int64Counter("forum.recount.repaired", "Counters rewritten by the recount job"),
	}
}

// Run is called by the scheduler.
func (j *Job) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	_, _ = j.RunOnce(ctx)
}

// RunOnce recounts every counter now. Concurrent calls are serialized.
func (j *Job) RunOnce(ctx context.Context) (report storage.RecountReport, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "recount.RunOnce")
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()
	report, err = j.store.RecountCounters(ctx)
	log := logging.FromContext(ctx, j.logger)
	if err != nil {
		log.Error("Counter recount failed", zap.Error(err))
		return report, fmt.Errorf("recount counters: %w", err)
	}

	j.repaired.Add(ctx, report.Total())
	fields := []zap.Field{
		zap.Int64("groups", report.Groups),
		zap.Int64("posts", report.Posts),
		zap.Int64("comments", report.Comments),
		zap.Duration("took", time.Since(start)),
	}
	if report.Total() > 0 {
		log.Warn("Repaired drifted counters", fields...)
	} else {
		log.Debug("Counters consistent", fields...)
	}
	return report, nil
}

// Manager schedules a Job.
type Manager struct {
	engine *cron.Cron
	logger *zap.Logger
}

// NewManager registers job under a cron schedule such as "@every 15m" or
// "0 */6 * * *". A run still in progress when the next one is due is skipped.
func NewManager(job *Job, schedule string) (*Manager, error) {
	logger := logging.WithComponent("recount-cron")
	cl := cronLogger{logger.Sugar()}
	engine := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl))
	if _, err := engine.AddJob(schedule, job); err != nil {
		return nil, fmt.Errorf("schedule recount %q: %w", schedule, err)
	}
	return &Manager{engine: engine, logger: logger}, nil
}

// Start runs the scheduler in the background.
func (m *Manager) Start() {
	m.logger.Info("Recount scheduler started")
	m.engine.Start()
}

// Stop stops scheduling and waits for a running job until ctx is done.
func (m *Manager) Stop(ctx context.Context) {
	done := m.engine.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		m.logger.Warn("Recount still running at shutdown")
	}
	m.logger.Info("Recount scheduler stopped")
}

// cronLogger routes cron's logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
