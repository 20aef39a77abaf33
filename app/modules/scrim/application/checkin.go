package scrimservice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
)

// CheckIn marks a rostered participant present for an upcoming match.
func (s *Service) CheckIn(ctx context.Context, scrimID, userID string) (scrimdb.Scrim, error) {
	ctx, span := s.tracer.Start(ctx, "scrim.CheckIn")
	defer span.End()
	s.metrics.RecordOperationAttempt(ctx, "check_in", "scrim")

	var updated scrimdb.Scrim
	_, err := s.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
		scrim, ok := ledger.Find(scrims, scrimID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrScrimNotFound, scrimID)
		}
		if !scrim.Active() {
			return nil, fmt.Errorf("%w: %s is %s", ErrWrongStatus, scrimID, scrim.Status)
		}
		teamID := rosterTeamOf(scrim, userID)
		if teamID == "" {
			return nil, fmt.Errorf("%s is not rostered in scrim %s", userID, scrimID)
		}
		for i := range scrim.CheckIns {
			if scrim.CheckIns[i].TeamID != teamID {
				continue
			}
			if slices.Contains(scrim.CheckIns[i].UserIDs, userID) {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyCheckedIn, userID)
			}
			scrim.CheckIns[i].UserIDs = append(scrim.CheckIns[i].UserIDs, userID)
			if len(scrim.CheckIns[i].UserIDs) >= s.checkInRequired && scrim.CheckIns[i].CompletedAt == nil {
				at := s.now()
				scrim.CheckIns[i].CompletedAt = &at
			}
		}
		scrim.UpdatedAt = s.now()
		updated = scrim
		return ledger.Replace(scrims, scrim), nil
	})
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "check_in", "scrim")
		return scrimdb.Scrim{}, err
	}
	s.metrics.RecordOperationSuccess(ctx, "check_in", "scrim")
	return updated, nil
}

// rosterTeamOf returns the team whose match roster contains userID.
func rosterTeamOf(scrim scrimdb.Scrim, userID string) string {
	for _, r := range scrim.Rosters {
		if slices.Contains(r.PlayerIDs, userID) || slices.Contains(r.CoachIDs, userID) {
			return r.TeamID
		}
	}
	return ""
}

// noShowCooldown is longer at elevated competitive levels.
func noShowCooldown(level sharedtypes.QueueLevel) time.Duration {
	if level == sharedtypes.LevelOpen {
		return CooldownOpen
	}
	return CooldownElevated
}

// ApplyNoShow runs the post-kickoff attendance check. Teams that did not
// reach the check-in bar forfeit the match, lose reliability and enter a
// cooldown. The scrim is re-read, so a check firing after a cancellation or
// a report is a no-op.
func (s *Service) ApplyNoShow(ctx context.Context, scrimID string) error {
	ctx, span := s.tracer.Start(ctx, "scrim.ApplyNoShow")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "apply_no_show", "scrim")

	var updated scrimdb.Scrim
	var failing []string
	_, err := s.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
		scrim, ok := ledger.Find(scrims, scrimID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrScrimNotFound, scrimID)
		}
		if !scrim.Active() {
			return scrims, nil
		}
		failing = failing[:0]
		for _, teamID := range []string{scrim.HostTeamID, scrim.GuestTeamID} {
			present := 0
			for _, checkIn := range scrim.CheckIns {
				if checkIn.TeamID == teamID {
					present = len(checkIn.UserIDs)
				}
			}
			if present < s.checkInRequired {
				failing = append(failing, teamID)
			}
		}
		if len(failing) == 0 {
			return scrims, nil
		}
		scrim.Status = sharedtypes.StatusNoShow
		scrim.NoShowTeamIDs = append([]string{}, failing...)
		scrim.UpdatedAt = s.now()
		updated = scrim
		return ledger.Replace(scrims, scrim), nil
	})
	defer s.instrument(ctx, "apply_no_show", err, start)
	if err != nil {
		return err
	}
	if len(failing) == 0 {
		return nil
	}

	cooldown := noShowCooldown(updated.QueueLevel)
	for _, teamID := range failing {
		if err := s.reliability.ApplyPenalty(ctx, teamID, -NoShowPenalty, cooldown,
			fmt.Sprintf("no-show in scrim %s", updated.ID)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to apply no-show penalty",
				slog.String("team_id", teamID),
				slog.Any("error", err),
			)
		}
	}
	if err := s.scheduler.CancelMatch(ctx, updated.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to cancel match timers",
			slog.String("scrim_id", updated.ID),
			slog.Any("error", err),
		)
	}
	if updated.ThreadID != "" {
		names, err := s.teamNames(ctx, failing)
		if err != nil {
			names = failing
		}
		if err := s.notifier.PostToThread(ctx, updated.ThreadID,
			fmt.Sprintf("Match closed as no-show: %s did not reach %d check-ins.",
				strings.Join(names, ", "), s.checkInRequired)); err != nil {
			s.logger.WarnContext(ctx, "Failed to post no-show notice",
				slog.String("scrim_id", updated.ID),
				slog.Any("error", err),
			)
		}
	}

	s.logger.InfoContext(ctx, "Scrim closed as no-show",
		slog.String("scrim_id", updated.ID),
		slog.Any("no_show_team_ids", failing),
	)
	return nil
}

func (s *Service) teamNames(ctx context.Context, teamIDs []string) ([]string, error) {
	teams, err := s.teams.Read(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(teamIDs))
	for _, id := range teamIDs {
		names = append(names, teamdb.NameOf(teams, id))
	}
	return names, nil
}
