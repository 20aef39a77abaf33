package scrimqueue

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

type reminderWorker struct {
	river.WorkerDefaults[MatchReminderJob]
	service *Service
}

func (w *reminderWorker) Work(ctx context.Context, job *river.Job[MatchReminderJob]) error {
	args := job.Args
	if err := w.service.notifier.PostToThread(ctx, args.ThreadID, args.Content); err != nil {
		w.service.logger.ErrorContext(ctx, "Failed to post match reminder",
			slog.String("match_id", args.MatchID),
			slog.String("offset", args.Offset),
			slog.Any("error", err),
		)
		return err
	}
	w.service.logger.InfoContext(ctx, "Match reminder posted",
		slog.String("match_id", args.MatchID),
		slog.String("offset", args.Offset),
	)
	return nil
}

type noShowWorker struct {
	river.WorkerDefaults[MatchNoShowJob]
	service *Service
}

func (w *noShowWorker) Work(ctx context.Context, job *river.Job[MatchNoShowJob]) error {
	if err := w.service.applier.ApplyNoShow(ctx, job.Args.MatchID); err != nil {
		w.service.logger.ErrorContext(ctx, "Attendance check failed",
			slog.String("match_id", job.Args.MatchID),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}
