// Package scrimservice drives the scrim lifecycle from posting through
// confirmation, reporting and cancellation.
package scrimservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	userdb "github.com/Stouckie/Scrimpilot/app/modules/user/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/platform"
	"github.com/Stouckie/Scrimpilot/app/shared/rating"
	"github.com/Stouckie/Scrimpilot/app/shared/roster"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

// Reliability penalties and cooldowns.
const (
	// LateCancelWindow is how close to kickoff a cancellation counts as late.
	LateCancelWindow = time.Hour
	// LateCancelPenalty is deducted for a late cancellation.
	LateCancelPenalty = 10
	// NoShowPenalty is deducted from each team that fails the check-in bar.
	NoShowPenalty = 15
	// CooldownOpen bars an Open-level no-show team from new engagements.
	CooldownOpen = 24 * time.Hour
	// CooldownElevated applies at Academy and Pro level.
	CooldownElevated = 48 * time.Hour
)

// Service carries the scrim module's dependencies.
type Service struct {
	scrims          ledger.Collection[scrimdb.Scrim]
	teams           ledger.Collection[teamdb.Team]
	members         ledger.Collection[userdb.Member]
	reliability     ReliabilityApplier
	tickets         TicketCreator
	scheduler       MatchScheduler
	notifier        platform.Notifier
	proofs          platform.ProofResolver
	checkInRequired int
	logger          *slog.Logger
	metrics         observability.Metrics
	tracer          trace.Tracer
	now             func() time.Time
}

// NewService creates a scrim service.
func NewService(
	scrims ledger.Collection[scrimdb.Scrim],
	teams ledger.Collection[teamdb.Team],
	members ledger.Collection[userdb.Member],
	reliability ReliabilityApplier,
	tickets TicketCreator,
	scheduler MatchScheduler,
	notifier platform.Notifier,
	proofs platform.ProofResolver,
	checkInRequired int,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
) *Service {
	return &Service{
		scrims:          scrims,
		teams:           teams,
		members:         members,
		reliability:     reliability,
		tickets:         tickets,
		scheduler:       scheduler,
		notifier:        notifier,
		proofs:          proofs,
		checkInRequired: checkInRequired,
		logger:          logger,
		metrics:         metrics,
		tracer:          tracer,
		now:             time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) instrument(ctx context.Context, operation string, err error, start time.Time) {
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, operation, "scrim")
	} else {
		s.metrics.RecordOperationSuccess(ctx, operation, "scrim")
	}
	s.metrics.RecordOperationDuration(ctx, operation, "scrim", time.Since(start))
}

// captainTeam resolves the team captained by userID, rejecting teams on
// cooldown when requireAvailable is set.
func (s *Service) captainTeam(ctx context.Context, userID string, requireAvailable bool) (teamdb.Team, error) {
	teams, err := s.teams.Read(ctx)
	if err != nil {
		return teamdb.Team{}, err
	}
	team, ok := teamdb.FindByCaptain(teams, userID)
	if !ok {
		return teamdb.Team{}, fmt.Errorf("%w: %s captains no team", ErrNotCaptain, userID)
	}
	if requireAvailable && team.OnCooldown(s.now()) {
		return teamdb.Team{}, fmt.Errorf("%w: %s until %s", ErrTeamOnCooldown, team.Name,
			team.CooldownUntil.Format(time.RFC3339))
	}
	return team, nil
}

// readyRoster resolves and validates a team's lineup against member records.
func (s *Service) readyRoster(ctx context.Context, team teamdb.Team) (roster.Build, error) {
	members, err := s.members.Read(ctx)
	if err != nil {
		return roster.Build{}, err
	}
	return roster.Ready(team, members)
}

// PostInput is the payload for PostScrim.
type PostInput struct {
	CaptainID   string
	Category    sharedtypes.Category
	Preset      sharedtypes.Preset
	ScheduledAt time.Time
	Notes       string
}

// PostScrim publishes an open scrim offer for the captain's team.
func (s *Service) PostScrim(ctx context.Context, input PostInput) (scrimdb.Scrim, error) {
	ctx, span := s.tracer.Start(ctx, "scrim.PostScrim")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "post_scrim", "scrim")

	var scrim scrimdb.Scrim
	err := func() error {
		if !input.ScheduledAt.After(s.now()) {
			return fmt.Errorf("%w: %s", ErrPastKickoff, input.ScheduledAt.Format(time.RFC3339))
		}
		team, err := s.captainTeam(ctx, input.CaptainID, true)
		if err != nil {
			return err
		}
		build, err := s.readyRoster(ctx, team)
		if err != nil {
			return err
		}

		scrim = scrimdb.Scrim{
			ID:          uuid.NewString(),
			Category:    input.Category,
			Preset:      input.Preset,
			QueueLevel:  sharedtypes.CategoryLevel(input.Category),
			ScheduledAt: input.ScheduledAt,
			Notes:       strings.TrimSpace(input.Notes),
			Status:      sharedtypes.StatusPosted,
			HostTeamID:  team.ID,
			Rosters:     []scrimdb.Roster{build.Roster},
			CreatedAt:   s.now(),
			UpdatedAt:   s.now(),
		}
		_, err = s.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
			return append(scrims, scrim), nil
		})
		return err
	}()
	defer s.instrument(ctx, "post_scrim", err, start)
	if err != nil {
		return scrimdb.Scrim{}, err
	}

	s.logger.InfoContext(ctx, "Scrim posted",
		slog.String("scrim_id", scrim.ID),
		slog.String("host_team_id", scrim.HostTeamID),
		slog.String("category", string(scrim.Category)),
		slog.Time("scheduled_at", scrim.ScheduledAt),
	)
	return scrim, nil
}

// AcceptScrim books a posted scrim for the accepting captain's team.
func (s *Service) AcceptScrim(ctx context.Context, scrimID, captainID string) (scrimdb.Scrim, error) {
	ctx, span := s.tracer.Start(ctx, "scrim.AcceptScrim")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "accept_scrim", "scrim")

	var updated scrimdb.Scrim
	err := func() error {
		team, err := s.captainTeam(ctx, captainID, true)
		if err != nil {
			return err
		}
		build, err := s.readyRoster(ctx, team)
		if err != nil {
			return err
		}
		_, err = s.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
			scrim, ok := ledger.Find(scrims, scrimID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrScrimNotFound, scrimID)
			}
			if scrim.Status != sharedtypes.StatusPosted {
				return nil, fmt.Errorf("%w: %s is %s, want %s", ErrWrongStatus, scrimID, scrim.Status, sharedtypes.StatusPosted)
			}
			if scrim.HostTeamID == team.ID {
				return nil, ErrOwnScrim
			}
			scrim.GuestTeamID = team.ID
			scrim.Rosters = append(scrim.Rosters, build.Roster)
			scrim.Status = sharedtypes.StatusAccepted
			scrim.UpdatedAt = s.now()
			updated = scrim
			return ledger.Replace(scrims, scrim), nil
		})
		return err
	}()
	defer s.instrument(ctx, "accept_scrim", err, start)
	if err != nil {
		return scrimdb.Scrim{}, err
	}

	s.logger.InfoContext(ctx, "Scrim accepted",
		slog.String("scrim_id", updated.ID),
		slog.String("guest_team_id", updated.GuestTeamID),
	)
	return updated, nil
}

// ConfirmScrim finalizes an accepted scrim: the rosters are re-resolved, the
// balance guardrails run, the match thread is opened and the reminder timers
// are registered. Thread creation is a required side effect.
func (s *Service) ConfirmScrim(ctx context.Context, scrimID, actorID string) (scrimdb.Scrim, error) {
	ctx, span := s.tracer.Start(ctx, "scrim.ConfirmScrim")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "confirm_scrim", "scrim")

	var updated scrimdb.Scrim
	err := s.confirmScrim(ctx, scrimID, actorID, &updated)
	defer s.instrument(ctx, "confirm_scrim", err, start)
	if err != nil {
		return scrimdb.Scrim{}, err
	}

	if err := s.scheduler.RegisterMatch(ctx, updated.ID, updated.ThreadID, updated.ScheduledAt); err != nil {
		// Timers are re-derived from storage at startup, so the confirm stands.
		s.logger.ErrorContext(ctx, "Failed to register match timers",
			slog.String("scrim_id", updated.ID),
			slog.Any("error", err),
		)
	}

	s.logger.InfoContext(ctx, "Scrim confirmed",
		slog.String("scrim_id", updated.ID),
		slog.String("status", string(updated.Status)),
		slog.String("thread_id", updated.ThreadID),
	)
	return updated, nil
}

func (s *Service) confirmScrim(ctx context.Context, scrimID, actorID string, updated *scrimdb.Scrim) error {
	scrims, err := s.scrims.Read(ctx)
	if err != nil {
		return err
	}
	scrim, ok := ledger.Find(scrims, scrimID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrScrimNotFound, scrimID)
	}
	if scrim.Status != sharedtypes.StatusAccepted {
		return fmt.Errorf("%w: %s is %s, want %s", ErrWrongStatus, scrimID, scrim.Status, sharedtypes.StatusAccepted)
	}

	teams, err := s.teams.Read(ctx)
	if err != nil {
		return err
	}
	host, ok := ledger.Find(teams, scrim.HostTeamID)
	if !ok {
		return fmt.Errorf("host team %s no longer exists", scrim.HostTeamID)
	}
	if host.CaptainID != actorID {
		return fmt.Errorf("%w: only the host captain confirms", ErrNotCaptain)
	}
	guest, ok := ledger.Find(teams, scrim.GuestTeamID)
	if !ok {
		return fmt.Errorf("guest team %s no longer exists", scrim.GuestTeamID)
	}

	hostBuild, err := s.readyRoster(ctx, host)
	if err != nil {
		return err
	}
	guestBuild, err := s.readyRoster(ctx, guest)
	if err != nil {
		return err
	}

	status := sharedtypes.StatusConfirmed
	var reasons []string
	for _, side := range []struct {
		name  string
		build roster.Build
	}{{host.Name, hostBuild}, {guest.Name, guestBuild}} {
		balance := rating.ValidateRosterBalance(side.build.Values, rating.DefaultBalanceOptions)
		if balance.PracticeRequired {
			status = sharedtypes.StatusPractice
			reasons = append(reasons, fmt.Sprintf("%s: %s", side.name, balance.Reason()))
		}
	}
	matchup := rating.Matchup(hostBuild.Roster.DeclaredRating, guestBuild.Roster.DeclaredRating, scrim.QueueLevel, nil)
	if !matchup.Balanced {
		status = sharedtypes.StatusPractice
		reasons = append(reasons, fmt.Sprintf("rating gap %.1f exceeds tolerance %.1f", matchup.Delta, matchup.Tolerance))
	}

	memberIDs := append(hostBuild.ParticipantIDs(), guestBuild.ParticipantIDs()...)
	briefing := fmt.Sprintf("%s vs %s, %s %s on %s. Check in below.",
		host.Name, guest.Name, scrim.Category, scrim.Preset,
		scrim.ScheduledAt.Format("Mon 02 Jan 15:04 MST"))
	if status == sharedtypes.StatusPractice {
		briefing += " Tagged as practice: " + strings.Join(reasons, "; ")
	}
	thread, err := s.notifier.CreateMatchThread(ctx, platform.ThreadRequest{
		MatchID:      scrim.ID,
		Name:         fmt.Sprintf("scrim-%s-vs-%s", slugify(host.Name), slugify(guest.Name)),
		MemberIDs:    memberIDs,
		Briefing:     briefing,
		CheckInAsked: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create match thread: %w", err)
	}

	_, err = s.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
		scrim, ok := ledger.Find(scrims, scrimID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrScrimNotFound, scrimID)
		}
		if scrim.Status != sharedtypes.StatusAccepted {
			return nil, fmt.Errorf("%w: %s is %s, want %s", ErrWrongStatus, scrimID, scrim.Status, sharedtypes.StatusAccepted)
		}
		scrim.Status = status
		scrim.PracticeReason = strings.Join(reasons, "; ")
		scrim.Rosters = []scrimdb.Roster{hostBuild.Roster, guestBuild.Roster}
		scrim.ThreadID = thread.Thread.ID
		scrim.ThreadURL = thread.Thread.URL
		scrim.CheckInMessageID = thread.CheckInMessageID
		scrim.CheckIns = []scrimdb.CheckIn{
			{TeamID: scrim.HostTeamID},
			{TeamID: scrim.GuestTeamID},
		}
		scrim.UpdatedAt = s.now()
		*updated = scrim
		return ledger.Replace(scrims, scrim), nil
	})
	return err
}

// CancelScrim withdraws a scrim. Cancelling a confirmed match within an hour
// of kickoff costs the cancelling team reliability.
func (s *Service) CancelScrim(ctx context.Context, scrimID, actorID, reason string) (scrimdb.Scrim, error) {
	ctx, span := s.tracer.Start(ctx, "scrim.CancelScrim")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "cancel_scrim", "scrim")

	team, err := s.captainTeam(ctx, actorID, false)
	if err != nil {
		s.instrument(ctx, "cancel_scrim", err, start)
		return scrimdb.Scrim{}, err
	}

	var updated scrimdb.Scrim
	late := false
	_, err = s.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
		scrim, ok := ledger.Find(scrims, scrimID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrScrimNotFound, scrimID)
		}
		if scrim.Terminal() {
			return nil, fmt.Errorf("%w: %s is already %s", ErrWrongStatus, scrimID, scrim.Status)
		}
		if scrim.Status == sharedtypes.StatusPosted {
			if scrim.HostTeamID != team.ID {
				return nil, fmt.Errorf("%w: %s", ErrNotCaptain, actorID)
			}
		} else if !scrim.Engaged(team.ID) {
			return nil, fmt.Errorf("%w: %s", ErrNotCaptain, actorID)
		}
		late = s.now().After(scrim.ScheduledAt.Add(-LateCancelWindow))
		scrim.Status = sharedtypes.StatusCancelled
		scrim.Cancellation = &scrimdb.Cancellation{
			TeamID:      team.ID,
			Reason:      strings.TrimSpace(reason),
			CancelledAt: s.now(),
		}
		scrim.UpdatedAt = s.now()
		updated = scrim
		return ledger.Replace(scrims, scrim), nil
	})
	defer s.instrument(ctx, "cancel_scrim", err, start)
	if err != nil {
		return scrimdb.Scrim{}, err
	}

	if err := s.scheduler.CancelMatch(ctx, updated.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to cancel match timers",
			slog.String("scrim_id", updated.ID),
			slog.Any("error", err),
		)
	}
	if late {
		if err := s.reliability.ApplyPenalty(ctx, team.ID, -LateCancelPenalty, 0,
			fmt.Sprintf("late cancellation of scrim %s", updated.ID)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to apply late cancellation penalty",
				slog.String("team_id", team.ID),
				slog.Any("error", err),
			)
		}
	}
	if updated.ThreadID != "" {
		if err := s.notifier.PostToThread(ctx, updated.ThreadID,
			fmt.Sprintf("Match cancelled by %s. Reason: %s", team.Name, updated.Cancellation.Reason)); err != nil {
			s.logger.WarnContext(ctx, "Failed to post cancellation notice",
				slog.String("scrim_id", updated.ID),
				slog.Any("error", err),
			)
		}
	}

	s.logger.InfoContext(ctx, "Scrim cancelled",
		slog.String("scrim_id", updated.ID),
		slog.String("team_id", team.ID),
		slog.Bool("late", late),
	)
	return updated, nil
}

// Scrim returns one scrim by id.
func (s *Service) Scrim(ctx context.Context, scrimID string) (scrimdb.Scrim, error) {
	scrims, err := s.scrims.Read(ctx)
	if err != nil {
		return scrimdb.Scrim{}, err
	}
	scrim, ok := ledger.Find(scrims, scrimID)
	if !ok {
		return scrimdb.Scrim{}, fmt.Errorf("%w: %s", ErrScrimNotFound, scrimID)
	}
	return scrim, nil
}

// OpenScrims lists scrims still waiting for an opponent.
func (s *Service) OpenScrims(ctx context.Context) ([]scrimdb.Scrim, error) {
	scrims, err := s.scrims.Read(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]scrimdb.Scrim, 0, len(scrims))
	for _, scrim := range scrims {
		if scrim.Status == sharedtypes.StatusPosted {
			open = append(open, scrim)
		}
	}
	return open, nil
}

// ActiveScrims lists confirmed scrims whose timers should exist, used to
// rebuild the schedule at startup.
func (s *Service) ActiveScrims(ctx context.Context) ([]scrimdb.Scrim, error) {
	scrims, err := s.scrims.Read(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]scrimdb.Scrim, 0, len(scrims))
	for _, scrim := range scrims {
		if scrim.Active() {
			active = append(active, scrim)
		}
	}
	return active, nil
}

func slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, name)
}
