// Package arbservice adjudicates reported matches: every result passes
// through a referee ticket before it counts.
package arbservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	arbdb "github.com/Stouckie/Scrimpilot/app/modules/arbitration/infrastructure/repositories"
	ladderdb "github.com/Stouckie/Scrimpilot/app/modules/ladder/infrastructure/repositories"
	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/platform"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/config"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

// Domain errors for the arbitration service.
var (
	// ErrTicketNotFound indicates the ticket does not exist.
	ErrTicketNotFound = errors.New("arbitration ticket not found")

	// ErrTicketClosed indicates the ticket was already processed.
	ErrTicketClosed = errors.New("ticket already processed")

	// ErrJustificationRequired indicates a non-validation decision without a
	// written justification.
	ErrJustificationRequired = errors.New("a justification is required for this decision")

	// ErrScoreChoiceRequired indicates conflicting reports that the referee
	// must resolve with an explicit score.
	ErrScoreChoiceRequired = errors.New("reports conflict, a score choice is required")

	// ErrUnknownAction indicates an unsupported decision action.
	ErrUnknownAction = errors.New("unknown arbitration action")
)

// Action is a referee decision.
type Action string

const (
	ActionValidate   Action = "validate"
	ActionRefuse     Action = "refuse"
	ActionDispute    Action = "dispute"
	ActionNeedsInfo  Action = "needs_info"
	ActionDisqualify Action = "disqualify"
)

// Service carries the arbitration module's dependencies.
type Service struct {
	tickets  ledger.Collection[arbdb.Ticket]
	scrims   ledger.Collection[scrimdb.Scrim]
	ladders  ledger.Collection[ladderdb.Ladder]
	notifier platform.Notifier
	fallback config.ConflictFallback
	logger   *slog.Logger
	metrics  observability.Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates an arbitration service.
func NewService(
	tickets ledger.Collection[arbdb.Ticket],
	scrims ledger.Collection[scrimdb.Scrim],
	ladders ledger.Collection[ladderdb.Ladder],
	notifier platform.Notifier,
	fallback config.ConflictFallback,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
) *Service {
	return &Service{
		tickets:  tickets,
		scrims:   scrims,
		ladders:  ladders,
		notifier: notifier,
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) instrument(ctx context.Context, operation string, err error, start time.Time) {
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, operation, "arbitration")
	} else {
		s.metrics.RecordOperationSuccess(ctx, operation, "arbitration")
	}
	s.metrics.RecordOperationDuration(ctx, operation, "arbitration", time.Since(start))
}

// evidenceURLs collects the proof links of both reports.
func evidenceURLs(host, guest *scrimdb.Report) []string {
	urls := []string{}
	for _, report := range []*scrimdb.Report{host, guest} {
		if report == nil {
			continue
		}
		if report.VictoryProofURL != "" {
			urls = append(urls, report.VictoryProofURL)
		}
		if report.ScoreboardProofURL != "" {
			urls = append(urls, report.ScoreboardProofURL)
		}
	}
	return urls
}

// openTicket creates the ticket unless a non-final one already exists for
// the match.
func (s *Service) openTicket(ctx context.Context, matchID string, matchType sharedtypes.MatchType, threadID string, host, guest *scrimdb.Report) (arbdb.Ticket, error) {
	conflict := host != nil && guest != nil && host.Score != guest.Score
	ticket := arbdb.Ticket{
		ID:           uuid.NewString(),
		MatchID:      matchID,
		MatchType:    matchType,
		State:        sharedtypes.TicketPending,
		Conflict:     conflict,
		HostReport:   host,
		GuestReport:  guest,
		ThreadID:     threadID,
		EvidenceURLs: evidenceURLs(host, guest),
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	reused := false
	_, err := s.tickets.Update(ctx, func(tickets []arbdb.Ticket) ([]arbdb.Ticket, error) {
		if existing, ok := arbdb.FindOpenForMatch(tickets, matchID); ok {
			existing.HostReport = host
			existing.GuestReport = guest
			existing.Conflict = conflict
			existing.EvidenceURLs = evidenceURLs(host, guest)
			existing.UpdatedAt = s.now()
			ticket = existing
			reused = true
			return ledger.Replace(tickets, existing), nil
		}
		return append(tickets, ticket), nil
	})
	if err != nil {
		return arbdb.Ticket{}, err
	}

	if !reused {
		summary := "One report missing"
		if host != nil && guest != nil {
			summary = fmt.Sprintf("Host reported %s, guest reported %s", host.Score, guest.Score)
		}
		ref, err := s.notifier.PublishTicketCard(ctx, platform.TicketCard{
			TicketID:    ticket.ID,
			MatchID:     matchID,
			MatchType:   string(matchType),
			Conflict:    conflict,
			Summary:     summary,
			EvidenceURL: ticket.EvidenceURLs,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish ticket card",
				slog.String("ticket_id", ticket.ID),
				slog.Any("error", err),
			)
		} else {
			ticket.CardChannelID = ref.ChannelID
			ticket.CardMessageID = ref.MessageID
			_, err = s.tickets.Update(ctx, func(tickets []arbdb.Ticket) ([]arbdb.Ticket, error) {
				stored, ok := ledger.Find(tickets, ticket.ID)
				if !ok {
					return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, ticket.ID)
				}
				stored.CardChannelID = ref.ChannelID
				stored.CardMessageID = ref.MessageID
				stored.UpdatedAt = s.now()
				return ledger.Replace(tickets, stored), nil
			})
			if err != nil {
				return arbdb.Ticket{}, err
			}
		}
	}

	s.logger.InfoContext(ctx, "Arbitration ticket open",
		slog.String("ticket_id", ticket.ID),
		slog.String("match_id", matchID),
		slog.Bool("conflict", conflict),
		slog.Bool("reused", reused),
	)
	return ticket, nil
}

// CreateScrimTicket opens (or refreshes) the ticket for a fully reported
// scrim. Safe to call more than once.
func (s *Service) CreateScrimTicket(ctx context.Context, scrim scrimdb.Scrim) (string, error) {
	ctx, span := s.tracer.Start(ctx, "arbitration.CreateScrimTicket")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "create_ticket", "arbitration")

	var host, guest *scrimdb.Report
	if report, ok := scrimdb.FindReport(scrim.Reports, scrim.HostTeamID); ok {
		host = &report
	}
	if report, ok := scrimdb.FindReport(scrim.Reports, scrim.GuestTeamID); ok {
		guest = &report
	}
	ticket, err := s.openTicket(ctx, scrim.ID, sharedtypes.MatchTypeScrim, scrim.ThreadID, host, guest)
	defer s.instrument(ctx, "create_ticket", err, start)
	if err != nil {
		return "", err
	}
	return ticket.ID, nil
}

// CreateLadderTicket opens (or refreshes) the ticket for a fully reported
// ladder match. Safe to call more than once.
func (s *Service) CreateLadderTicket(ctx context.Context, _ ladderdb.Ladder, match ladderdb.Match) (string, error) {
	ctx, span := s.tracer.Start(ctx, "arbitration.CreateLadderTicket")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "create_ticket", "arbitration")

	var host, guest *scrimdb.Report
	if report, ok := scrimdb.FindReport(match.Reports, match.HostTeamID); ok {
		host = &report
	}
	if report, ok := scrimdb.FindReport(match.Reports, match.GuestTeamID); ok {
		guest = &report
	}
	ticket, err := s.openTicket(ctx, match.ID, sharedtypes.MatchTypeLadder, "", host, guest)
	defer s.instrument(ctx, "create_ticket", err, start)
	if err != nil {
		return "", err
	}
	return ticket.ID, nil
}

// Ticket returns one ticket by id.
func (s *Service) Ticket(ctx context.Context, ticketID string) (arbdb.Ticket, error) {
	tickets, err := s.tickets.Read(ctx)
	if err != nil {
		return arbdb.Ticket{}, err
	}
	ticket, ok := ledger.Find(tickets, ticketID)
	if !ok {
		return arbdb.Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketID)
	}
	return ticket, nil
}

// OpenTickets lists every ticket still awaiting a referee.
func (s *Service) OpenTickets(ctx context.Context) ([]arbdb.Ticket, error) {
	tickets, err := s.tickets.Read(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]arbdb.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if !ticket.State.Terminal() {
			open = append(open, ticket)
		}
	}
	return open, nil
}
