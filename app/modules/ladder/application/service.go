// Package ladderservice runs the standing competitive pools: entries,
// queueing, pairing, results and standings.
package ladderservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	ladderdb "github.com/Stouckie/Scrimpilot/app/modules/ladder/infrastructure/repositories"
	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	userdb "github.com/Stouckie/Scrimpilot/app/modules/user/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/rating"
	"github.com/Stouckie/Scrimpilot/app/shared/roster"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

// Domain errors for the ladder service.
var (
	// ErrLadderNotFound indicates the ladder does not exist.
	ErrLadderNotFound = errors.New("ladder not found")

	// ErrLadderInactive indicates the ladder is paused or closed.
	ErrLadderInactive = errors.New("ladder is not active")

	// ErrMatchNotFound indicates no ladder contains the match.
	ErrMatchNotFound = errors.New("ladder match not found")

	// ErrAlreadyEntered indicates the team already holds an entry.
	ErrAlreadyEntered = errors.New("team already entered in this ladder")

	// ErrNotEntered indicates the team holds no entry in the ladder.
	ErrNotEntered = errors.New("team is not entered in this ladder")

	// ErrMatchInFlight indicates the team already has an unresolved match.
	ErrMatchInFlight = errors.New("team already has a ladder match in flight")

	// ErrRegionMismatch indicates the team plays outside the ladder's region.
	ErrRegionMismatch = errors.New("team region does not match the ladder")

	// ErrNotCaptain indicates the actor does not captain an engaged team.
	ErrNotCaptain = errors.New("only a team captain may do this")

	// ErrTeamOnCooldown indicates the team is barred from new engagements.
	ErrTeamOnCooldown = errors.New("team is on cooldown")

	// ErrProofRejected indicates a proof link failed verification.
	ErrProofRejected = errors.New("proof rejected")
)

// TicketCreator opens arbitration tickets for fully reported ladder matches.
type TicketCreator interface {
	CreateLadderTicket(ctx context.Context, ladder ladderdb.Ladder, match ladderdb.Match) (ticketID string, err error)
}

// Service carries the ladder module's dependencies.
type Service struct {
	ladders ledger.Collection[ladderdb.Ladder]
	teams   ledger.Collection[teamdb.Team]
	members ledger.Collection[userdb.Member]
	tickets TicketCreator
	proofs  ProofChecker
	logger  *slog.Logger
	metrics observability.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService creates a ladder service.
func NewService(
	ladders ledger.Collection[ladderdb.Ladder],
	teams ledger.Collection[teamdb.Team],
	members ledger.Collection[userdb.Member],
	tickets TicketCreator,
	proofs ProofChecker,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
) *Service {
	return &Service{
		ladders: ladders,
		teams:   teams,
		members: members,
		tickets: tickets,
		proofs:  proofs,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) instrument(ctx context.Context, operation string, err error, start time.Time) {
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, operation, "ladder")
	} else {
		s.metrics.RecordOperationSuccess(ctx, operation, "ladder")
	}
	s.metrics.RecordOperationDuration(ctx, operation, "ladder", time.Since(start))
}

// CreateLadder opens a new pool. The transport layer restricts this to staff.
func (s *Service) CreateLadder(ctx context.Context, name string, category sharedtypes.Category, region string) (ladderdb.Ladder, error) {
	ctx, span := s.tracer.Start(ctx, "ladder.CreateLadder")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "create_ladder", "ladder")

	ladder := ladderdb.Ladder{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Category:  category,
		Region:    region,
		Level:     sharedtypes.CategoryLevel(category),
		Status:    sharedtypes.LadderActive,
		Entries:   []ladderdb.Entry{},
		Matches:   []ladderdb.Match{},
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	_, err := s.ladders.Update(ctx, func(ladders []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
		for _, existing := range ladders {
			if strings.EqualFold(existing.Name, ladder.Name) {
				return nil, fmt.Errorf("ladder %q already exists", ladder.Name)
			}
		}
		return append(ladders, ladder), nil
	})
	defer s.instrument(ctx, "create_ladder", err, start)
	if err != nil {
		return ladderdb.Ladder{}, err
	}

	s.logger.InfoContext(ctx, "Ladder created",
		slog.String("ladder_id", ladder.ID),
		slog.String("name", ladder.Name),
		slog.String("level", string(ladder.Level)),
	)
	return ladder, nil
}

// captainTeam resolves the team captained by userID.
func (s *Service) captainTeam(ctx context.Context, userID string) (teamdb.Team, error) {
	teams, err := s.teams.Read(ctx)
	if err != nil {
		return teamdb.Team{}, err
	}
	team, ok := teamdb.FindByCaptain(teams, userID)
	if !ok {
		return teamdb.Team{}, fmt.Errorf("%w: %s captains no team", ErrNotCaptain, userID)
	}
	return team, nil
}

// JoinLadder enters the captain's team into a ladder at the initial rating.
func (s *Service) JoinLadder(ctx context.Context, ladderID, captainID string) (ladderdb.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "ladder.JoinLadder")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "join_ladder", "ladder")

	var entry ladderdb.Entry
	err := func() error {
		team, err := s.captainTeam(ctx, captainID)
		if err != nil {
			return err
		}
		members, err := s.members.Read(ctx)
		if err != nil {
			return err
		}
		if _, err := roster.Ready(team, members); err != nil {
			return err
		}

		entry = ladderdb.Entry{
			TeamID:      team.ID,
			Rating:      rating.InitialEloRating,
			Reliability: team.Reliability,
		}
		_, err = s.ladders.Update(ctx, func(ladders []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
			ladder, ok := ledger.Find(ladders, ladderID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrLadderNotFound, ladderID)
			}
			if ladder.Status != sharedtypes.LadderActive {
				return nil, fmt.Errorf("%w: %s is %s", ErrLadderInactive, ladder.Name, ladder.Status)
			}
			if ladder.Region != "" && !strings.EqualFold(ladder.Region, team.Region) {
				return nil, fmt.Errorf("%w: ladder is %s, team is %s", ErrRegionMismatch, ladder.Region, team.Region)
			}
			if _, ok := ladder.FindEntry(team.ID); ok {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyEntered, team.Name)
			}
			ladder.Entries = append(ladder.Entries, entry)
			ladder.UpdatedAt = s.now()
			return ledger.Replace(ladders, ladder), nil
		})
		return err
	}()
	defer s.instrument(ctx, "join_ladder", err, start)
	if err != nil {
		return ladderdb.Entry{}, err
	}

	s.logger.InfoContext(ctx, "Team entered ladder",
		slog.String("ladder_id", ladderID),
		slog.String("team_id", entry.TeamID),
	)
	return entry, nil
}

// QueueResult is the outcome of a queue attempt: either a pairing or a
// waiting marker.
type QueueResult struct {
	Paired bool           `json:"paired"`
	Match  *ladderdb.Match `json:"match,omitempty"`
}

// pairingScore ranks candidate opponents: closest rating first, with the
// reliability gap as a tiebreaking weight.
func pairingScore(entry, candidate ladderdb.Entry) float64 {
	return math.Abs(float64(entry.Rating-candidate.Rating)) +
		math.Abs(entry.Reliability-candidate.Reliability)/10
}

// QueueLadder queues the captain's team for a match. If another team is
// waiting, the two are paired immediately: the earlier queuer hosts and both
// waiting markers are cleared. Otherwise the team starts waiting.
func (s *Service) QueueLadder(ctx context.Context, ladderID, captainID string) (QueueResult, error) {
	ctx, span := s.tracer.Start(ctx, "ladder.QueueLadder")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "queue_ladder", "ladder")

	var result QueueResult
	err := func() error {
		team, err := s.captainTeam(ctx, captainID)
		if err != nil {
			return err
		}
		if team.OnCooldown(s.now()) {
			return fmt.Errorf("%w: %s until %s", ErrTeamOnCooldown, team.Name,
				team.CooldownUntil.Format(time.RFC3339))
		}
		members, err := s.members.Read(ctx)
		if err != nil {
			return err
		}
		if _, err := roster.Ready(team, members); err != nil {
			return err
		}

		_, err = s.ladders.Update(ctx, func(ladders []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
			ladder, ok := ledger.Find(ladders, ladderID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrLadderNotFound, ladderID)
			}
			if ladder.Status != sharedtypes.LadderActive {
				return nil, fmt.Errorf("%w: %s is %s", ErrLadderInactive, ladder.Name, ladder.Status)
			}
			entry, ok := ladder.FindEntry(team.ID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNotEntered, team.Name)
			}
			if engagedInMatch(ladder, team.ID) {
				return nil, fmt.Errorf("%w: %s", ErrMatchInFlight, team.Name)
			}

			opponent, found := closestWaiting(ladder, entry, team.ID)
			if !found {
				queuedAt := s.now()
				setQueueMarker(&ladder, team.ID, &queuedAt)
				ladder.UpdatedAt = s.now()
				result = QueueResult{Paired: false}
				return ledger.Replace(ladders, ladder), nil
			}

			// Whoever queued first hosts; on a requeue the team keeps its
			// old marker, so it can out-seniority the waiting opponent.
			hostID, guestID := opponent.TeamID, team.ID
			if opponent.LastQueuedAt != nil && entry.LastQueuedAt != nil && opponent.LastQueuedAt.After(*entry.LastQueuedAt) {
				hostID, guestID = team.ID, opponent.TeamID
			}
			match := ladderdb.Match{
				ID:          uuid.NewString(),
				LadderID:    ladder.ID,
				HostTeamID:  hostID,
				GuestTeamID: guestID,
				QueueLevel:  ladder.Level,
				ScheduledAt: s.now(),
				Status:      sharedtypes.StatusConfirmed,
				CreatedAt:   s.now(),
				UpdatedAt:   s.now(),
			}
			ladder.Matches = append(ladder.Matches, match)
			setQueueMarker(&ladder, team.ID, nil)
			setQueueMarker(&ladder, opponent.TeamID, nil)
			ladder.UpdatedAt = s.now()
			result = QueueResult{Paired: true, Match: &match}
			return ledger.Replace(ladders, ladder), nil
		})
		return err
	}()
	defer s.instrument(ctx, "queue_ladder", err, start)
	if err != nil {
		return QueueResult{}, err
	}

	if result.Paired {
		s.logger.InfoContext(ctx, "Ladder match paired",
			slog.String("ladder_id", ladderID),
			slog.String("match_id", result.Match.ID),
			slog.String("host_team_id", result.Match.HostTeamID),
			slog.String("guest_team_id", result.Match.GuestTeamID),
		)
	} else {
		s.logger.InfoContext(ctx, "Team queued for ladder match",
			slog.String("ladder_id", ladderID),
			slog.String("team_id", captainID),
		)
	}
	return result, nil
}

// engagedInMatch reports whether the team has a non-final match in the ladder.
func engagedInMatch(ladder ladderdb.Ladder, teamID string) bool {
	for _, match := range ladder.Matches {
		if match.Final() {
			continue
		}
		if match.HostTeamID == teamID || match.GuestTeamID == teamID {
			return true
		}
	}
	return false
}

// closestWaiting picks the waiting entry with the best pairing score.
func closestWaiting(ladder ladderdb.Ladder, entry ladderdb.Entry, selfID string) (ladderdb.Entry, bool) {
	var best ladderdb.Entry
	bestScore := math.Inf(1)
	found := false
	for _, candidate := range ladder.Entries {
		if candidate.TeamID == selfID || candidate.LastQueuedAt == nil {
			continue
		}
		if engagedInMatch(ladder, candidate.TeamID) {
			continue
		}
		if score := pairingScore(entry, candidate); score < bestScore {
			best = candidate
			bestScore = score
			found = true
		}
	}
	return best, found
}

func setQueueMarker(ladder *ladderdb.Ladder, teamID string, at *time.Time) {
	for i := range ladder.Entries {
		if ladder.Entries[i].TeamID == teamID {
			ladder.Entries[i].LastQueuedAt = at
		}
	}
}

// Ladder returns one ladder by id.
func (s *Service) Ladder(ctx context.Context, ladderID string) (ladderdb.Ladder, error) {
	ladders, err := s.ladders.Read(ctx)
	if err != nil {
		return ladderdb.Ladder{}, err
	}
	ladder, ok := ledger.Find(ladders, ladderID)
	if !ok {
		return ladderdb.Ladder{}, fmt.Errorf("%w: %s", ErrLadderNotFound, ladderID)
	}
	return ladder, nil
}

// Ladders returns every ladder.
func (s *Service) Ladders(ctx context.Context) ([]ladderdb.Ladder, error) {
	return s.ladders.Read(ctx)
}

// SeasonClose resets every entry of a ladder for a new season: ratings back
// to the initial value, win/loss counters zeroed, waiting markers cleared.
// Match history is retained.
func (s *Service) SeasonClose(ctx context.Context, ladderID string) (ladderdb.Ladder, error) {
	ctx, span := s.tracer.Start(ctx, "ladder.SeasonClose")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "season_close", "ladder")

	var updated ladderdb.Ladder
	_, err := s.ladders.Update(ctx, func(ladders []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
		ladder, ok := ledger.Find(ladders, ladderID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLadderNotFound, ladderID)
		}
		for i := range ladder.Entries {
			ladder.Entries[i].Rating = rating.InitialEloRating
			ladder.Entries[i].Wins = 0
			ladder.Entries[i].Losses = 0
			ladder.Entries[i].LastQueuedAt = nil
		}
		ladder.UpdatedAt = s.now()
		updated = ladder
		return ledger.Replace(ladders, ladder), nil
	})
	defer s.instrument(ctx, "season_close", err, start)
	if err != nil {
		return ladderdb.Ladder{}, err
	}

	s.logger.InfoContext(ctx, "Ladder season closed",
		slog.String("ladder_id", updated.ID),
		slog.Int("entries_reset", len(updated.Entries)),
	)
	return updated, nil
}
