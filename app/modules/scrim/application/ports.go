package scrimservice

import (
	"context"
	"time"

	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
)

// TicketCreator opens arbitration tickets once both reports are in. The
// arbitration module implements it.
type TicketCreator interface {
	CreateScrimTicket(ctx context.Context, scrim scrimdb.Scrim) (ticketID string, err error)
}

// MatchScheduler registers and cancels the reminder and no-show timers for
// a confirmed match. The queue module implements it with durable jobs.
type MatchScheduler interface {
	RegisterMatch(ctx context.Context, matchID, threadID string, scheduledAt time.Time) error
	CancelMatch(ctx context.Context, matchID string) error
}

// ReliabilityApplier records reliability penalties and cooldowns against a
// team. The team module implements it.
type ReliabilityApplier interface {
	ApplyPenalty(ctx context.Context, teamID string, delta float64, cooldown time.Duration, reason string) error
}
