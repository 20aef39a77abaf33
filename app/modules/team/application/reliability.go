package teamservice

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	ladderdb "github.com/Stouckie/Scrimpilot/app/modules/ladder/infrastructure/repositories"
	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
)

// ReliabilityChange is the outcome of a ledger adjustment.
type ReliabilityChange struct {
	TeamID        string     `json:"team_id"`
	Previous      float64    `json:"previous"`
	Next          float64    `json:"next"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	Reason        string     `json:"reason"`
}

func clampReliability(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 100
	}
	return math.Min(100, math.Max(0, v))
}

// ApplyReliabilityChange adjusts a team's reliability score by delta,
// clamping the result to [0,100]. A non-finite stored score is healed to
// 100 before the delta applies. When cooldown is positive the team is
// barred from new engagements until now+cooldown. The change is mirrored
// into every ladder entry the team holds.
func (s *Service) ApplyReliabilityChange(ctx context.Context, teamID string, delta float64, cooldown time.Duration, reason string) (ReliabilityChange, error) {
	ctx, span := s.tracer.Start(ctx, "team.ApplyReliabilityChange")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "apply_reliability", "team")

	var change ReliabilityChange
	_, err := s.teams.Update(ctx, func(teams []teamdb.Team) ([]teamdb.Team, error) {
		team, ok := ledger.Find(teams, teamID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		previous := clampReliability(team.Reliability)
		next := clampReliability(previous + delta)
		team.Reliability = next
		if cooldown > 0 {
			until := s.now().Add(cooldown)
			team.CooldownUntil = &until
			change.CooldownUntil = &until
		}
		team.UpdatedAt = s.now()
		change.TeamID = teamID
		change.Previous = previous
		change.Next = next
		change.Reason = reason
		return ledger.Replace(teams, team), nil
	})
	defer s.instrument(ctx, "apply_reliability", err, start)
	if err != nil {
		return ReliabilityChange{}, err
	}

	if err := s.mirrorReliability(ctx, teamID, change.Next); err != nil {
		s.logger.ErrorContext(ctx, "Failed to mirror reliability into ladder entries",
			slog.String("team_id", teamID),
			slog.Any("error", err),
		)
	}

	s.logger.InfoContext(ctx, "Reliability adjusted",
		slog.String("team_id", teamID),
		slog.Float64("previous", change.Previous),
		slog.Float64("next", change.Next),
		slog.String("reason", reason),
	)
	return change, nil
}

// mirrorReliability copies the team's current score into each ladder entry
// so pairing reads a fresh value without a cross-collection lookup.
func (s *Service) mirrorReliability(ctx context.Context, teamID string, score float64) error {
	_, err := s.ladders.Update(ctx, func(ladders []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
		for li := range ladders {
			for ei := range ladders[li].Entries {
				if ladders[li].Entries[ei].TeamID == teamID {
					ladders[li].Entries[ei].Reliability = score
				}
			}
		}
		return ladders, nil
	})
	return err
}

// ClearCooldown lifts a team's cooldown ahead of its expiry. Staff only;
// the transport layer enforces the role.
func (s *Service) ClearCooldown(ctx context.Context, teamID string) (teamdb.Team, error) {
	var updated teamdb.Team
	_, err := s.teams.Update(ctx, func(teams []teamdb.Team) ([]teamdb.Team, error) {
		team, ok := ledger.Find(teams, teamID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		team.CooldownUntil = nil
		team.UpdatedAt = s.now()
		updated = team
		return ledger.Replace(teams, team), nil
	})
	if err != nil {
		return teamdb.Team{}, err
	}
	return updated, nil
}

// ReliabilityView is the read model for a team's standing.
type ReliabilityView struct {
	TeamID        string     `json:"team_id"`
	TeamName      string     `json:"team_name"`
	Reliability   float64    `json:"reliability"`
	OnCooldown    bool       `json:"on_cooldown"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
}

// TeamReliability reports a team's current reliability and cooldown state.
func (s *Service) TeamReliability(ctx context.Context, teamID string) (ReliabilityView, error) {
	teams, err := s.teams.Read(ctx)
	if err != nil {
		return ReliabilityView{}, err
	}
	team, ok := ledger.Find(teams, teamID)
	if !ok {
		return ReliabilityView{}, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	return ReliabilityView{
		TeamID:        team.ID,
		TeamName:      team.Name,
		Reliability:   clampReliability(team.Reliability),
		OnCooldown:    team.OnCooldown(s.now()),
		CooldownUntil: team.CooldownUntil,
	}, nil
}
