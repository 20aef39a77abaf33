// Package scrimqueue schedules the reminder and no-show timers for confirmed
// matches on a durable River queue, so they survive restarts.
package scrimqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"

	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/platform"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

// NoShowApplier runs the attendance check for a match. The scrim service
// implements it; it is bound after construction because the scrim service
// itself schedules through this package.
type NoShowApplier interface {
	ApplyNoShow(ctx context.Context, matchID string) error
}

// reminderOffsets are the posts made ahead of (and at) kickoff.
var reminderOffsets = []struct {
	offset  time.Duration
	label   string
	content string
}{
	{-24 * time.Hour, "24h", "Reminder: your match starts in 24 hours. Rosters should be final."},
	{-time.Hour, "1h", "Reminder: your match starts in one hour. Check in below."},
	{0, "start", "Match time. Good luck, and report the result here afterwards."},
}

// Service schedules match timers using River.
type Service struct {
	client      *river.Client[pgx.Tx]
	pool        *pgxpool.Pool
	db          *bun.DB
	notifier    platform.Notifier
	noShowGrace time.Duration
	logger      *slog.Logger
	metrics     observability.Metrics

	applier NoShowApplier
}

// NewService creates a River-backed match scheduler. River needs its own pgx
// pool; the bun handle is only used to look jobs up for cancellation.
func NewService(
	ctx context.Context,
	dsn string,
	db *bun.DB,
	notifier platform.Notifier,
	noShowGrace time.Duration,
	logger *slog.Logger,
	metrics observability.Metrics,
) (*Service, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	service := &Service{
		pool:        pool,
		db:          db,
		notifier:    notifier,
		noShowGrace: noShowGrace,
		logger:      logger,
		metrics:     metrics,
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &reminderWorker{service: service})
	river.AddWorker(workers, &noShowWorker{service: service})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 50},
			"match":            {MaxWorkers: 25},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}
	service.client = client

	logger.InfoContext(ctx, "Match queue service initialized")
	return service, nil
}

// BindNoShow attaches the attendance check implementation. Must be called
// before Start.
func (s *Service) BindNoShow(applier NoShowApplier) {
	s.applier = applier
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	if s.applier == nil {
		return fmt.Errorf("no-show applier is not bound")
	}
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Match queue service started")
	return nil
}

// Stop stops the River client and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.client.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.pool.Close()
	s.logger.InfoContext(ctx, "Match queue service stopped")
	return nil
}

// RegisterMatch replaces a match's timers: reminders at fixed offsets before
// kickoff and the attendance check shortly after. Reminders whose time has
// already passed are skipped; a late attendance check still runs.
func (s *Service) RegisterMatch(ctx context.Context, matchID, threadID string, scheduledAt time.Time) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "register_match", "queue")

	if err := s.CancelMatch(ctx, matchID); err != nil {
		s.metrics.RecordOperationFailure(ctx, "register_match", "queue")
		return err
	}

	now := time.Now()
	for _, reminder := range reminderOffsets {
		at := scheduledAt.Add(reminder.offset)
		if at.Before(now.Add(5 * time.Second)) {
			s.logger.InfoContext(ctx, "Skipping past reminder",
				slog.String("match_id", matchID),
				slog.String("offset", reminder.label),
			)
			continue
		}
		job := MatchReminderJob{
			MatchID:  matchID,
			ThreadID: threadID,
			Offset:   reminder.label,
			Content:  reminder.content,
		}
		if _, err := s.client.Insert(ctx, job, &river.InsertOpts{
			Queue:       "match",
			ScheduledAt: at,
			UniqueOpts:  river.UniqueOpts{ByArgs: true},
		}); err != nil {
			s.metrics.RecordOperationFailure(ctx, "register_match", "queue")
			return fmt.Errorf("failed to schedule %s reminder: %w", reminder.label, err)
		}
	}

	// A check already due runs as soon as a worker picks it up.
	if _, err := s.client.Insert(ctx, MatchNoShowJob{MatchID: matchID}, &river.InsertOpts{
		Queue:       "match",
		ScheduledAt: scheduledAt.Add(s.noShowGrace),
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}); err != nil {
		s.metrics.RecordOperationFailure(ctx, "register_match", "queue")
		return fmt.Errorf("failed to schedule no-show check: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "register_match", "queue")
	s.metrics.RecordOperationDuration(ctx, "register_match", "queue", time.Since(start))
	s.logger.InfoContext(ctx, "Match timers registered",
		slog.String("match_id", matchID),
		slog.Time("scheduled_at", scheduledAt),
	)
	return nil
}

// CancelMatch cancels every pending timer of a match.
func (s *Service) CancelMatch(ctx context.Context, matchID string) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "cancel_match", "queue")

	type riverJobRow struct {
		ID   int64  `bun:"id"`
		Kind string `bun:"kind"`
	}
	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind").
		Where("kind IN (?, ?)", "match_reminder", "match_no_show").
		Where("state IN (?, ?)", "available", "scheduled").
		Where("args->>'match_id' = ?", matchID).
		Scan(ctx, &jobs)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "cancel_match", "queue")
		return fmt.Errorf("failed to query jobs for cancellation: %w", err)
	}

	cancelled := 0
	for _, job := range jobs {
		if _, err := s.client.JobCancel(ctx, job.ID); err != nil {
			s.logger.WarnContext(ctx, "Failed to cancel job",
				slog.Int64("job_id", job.ID),
				slog.String("kind", job.Kind),
				slog.Any("error", err),
			)
			continue
		}
		cancelled++
	}

	s.metrics.RecordOperationSuccess(ctx, "cancel_match", "queue")
	s.metrics.RecordOperationDuration(ctx, "cancel_match", "queue", time.Since(start))
	s.logger.InfoContext(ctx, "Match timers cancelled",
		slog.String("match_id", matchID),
		slog.Int("found", len(jobs)),
		slog.Int("cancelled", cancelled),
	)
	return nil
}

// Resync re-registers timers for every active match. Run at startup so the
// schedule reflects storage after a restart; re-inserts of identical jobs
// are deduplicated by River.
func (s *Service) Resync(ctx context.Context, scrims []scrimdb.Scrim) error {
	for _, scrim := range scrims {
		if err := s.RegisterMatch(ctx, scrim.ID, scrim.ThreadID, scrim.ScheduledAt); err != nil {
			return fmt.Errorf("failed to resync match %s: %w", scrim.ID, err)
		}
	}
	s.logger.InfoContext(ctx, "Match timers resynced", slog.Int("matches", len(scrims)))
	return nil
}

// ScheduledJobs lists the pending timers of a match, for debugging.
func (s *Service) ScheduledJobs(ctx context.Context, matchID string) ([]JobInfo, error) {
	type riverJobRow struct {
		ID          int64      `bun:"id"`
		Kind        string     `bun:"kind"`
		State       string     `bun:"state"`
		ScheduledAt *time.Time `bun:"scheduled_at"`
		Attempt     int16      `bun:"attempt"`
	}
	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "scheduled_at", "attempt").
		Where("kind IN (?, ?)", "match_reminder", "match_no_show").
		Where("args->>'match_id' = ?", matchID).
		Order("scheduled_at ASC NULLS LAST").
		Scan(ctx, &jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled jobs: %w", err)
	}

	infos := make([]JobInfo, len(jobs))
	for i, job := range jobs {
		scheduledAt := ""
		if job.ScheduledAt != nil {
			scheduledAt = job.ScheduledAt.Format(time.RFC3339)
		}
		infos[i] = JobInfo{
			ID:          job.ID,
			Kind:        job.Kind,
			MatchID:     matchID,
			State:       job.State,
			ScheduledAt: scheduledAt,
			Attempt:     int(job.Attempt),
		}
	}
	return infos, nil
}
