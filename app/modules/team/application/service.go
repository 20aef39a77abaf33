// Package teamservice manages Org and Team records plus the reliability
// subsystem.
package teamservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	ladderdb "github.com/Stouckie/Scrimpilot/app/modules/ladder/infrastructure/repositories"
	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

// Domain errors for the team service.
var (
	// ErrTeamNotFound indicates the team does not exist.
	ErrTeamNotFound = errors.New("team not found")

	// ErrOrgNotFound indicates the organization does not exist.
	ErrOrgNotFound = errors.New("organization not found")

	// ErrDuplicateName indicates another record already carries the name.
	ErrDuplicateName = errors.New("name already in use")

	// ErrEmptyName indicates a blank name was provided.
	ErrEmptyName = errors.New("name must not be empty")
)

// Service carries the team module's dependencies.
type Service struct {
	teams   ledger.Collection[teamdb.Team]
	orgs    ledger.Collection[teamdb.Org]
	ladders ledger.Collection[ladderdb.Ladder]
	logger  *slog.Logger
	metrics observability.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService creates a team service.
func NewService(
	teams ledger.Collection[teamdb.Team],
	orgs ledger.Collection[teamdb.Org],
	ladders ledger.Collection[ladderdb.Ladder],
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
) *Service {
	return &Service{
		teams:   teams,
		orgs:    orgs,
		ladders: ladders,
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
		s.metrics.RecordOperationFailure(ctx, operation, "team")
	} else {
		s.metrics.RecordOperationSuccess(ctx, operation, "team")
	}
	s.metrics.RecordOperationDuration(ctx, operation, "team", time.Since(start))
}

// CreateOrg registers a new organization; names are unique case-insensitively.
func (s *Service) CreateOrg(ctx context.Context, name, description, ownerID string) (teamdb.Org, error) {
	ctx, span := s.tracer.Start(ctx, "team.CreateOrg")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "create_org", "team")

	name = strings.TrimSpace(name)
	if name == "" {
		return teamdb.Org{}, ErrEmptyName
	}

	org := teamdb.Org{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	_, err := s.orgs.Update(ctx, func(orgs []teamdb.Org) ([]teamdb.Org, error) {
		for _, existing := range orgs {
			if strings.EqualFold(existing.Name, name) {
				return nil, fmt.Errorf("%w: organization %q", ErrDuplicateName, name)
			}
		}
		return append(orgs, org), nil
	})
	defer s.instrument(ctx, "create_org", err, start)
	if err != nil {
		return teamdb.Org{}, err
	}

	s.logger.InfoContext(ctx, "Organization created",
		slog.String("org_id", org.ID),
		slog.String("name", org.Name),
	)
	return org, nil
}

// CreateTeam registers a new team captained by captainID, starting at full
// reliability.
func (s *Service) CreateTeam(ctx context.Context, name, region, captainID, orgID string) (teamdb.Team, error) {
	ctx, span := s.tracer.Start(ctx, "team.CreateTeam")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "create_team", "team")

	name = strings.TrimSpace(name)
	if name == "" {
		return teamdb.Team{}, ErrEmptyName
	}

	team := teamdb.Team{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		Name:        name,
		Region:      region,
		CaptainID:   captainID,
		Slots:       []teamdb.RosterSlot{},
		Reliability: 100,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	_, err := s.teams.Update(ctx, func(teams []teamdb.Team) ([]teamdb.Team, error) {
		for _, existing := range teams {
			if strings.EqualFold(existing.Name, name) {
				return nil, fmt.Errorf("%w: team %q", ErrDuplicateName, name)
			}
		}
		return append(teams, team), nil
	})
	defer s.instrument(ctx, "create_team", err, start)
	if err != nil {
		return teamdb.Team{}, err
	}

	s.logger.InfoContext(ctx, "Team created",
		slog.String("team_id", team.ID),
		slog.String("name", team.Name),
		slog.String("region", team.Region),
	)
	return team, nil
}

// SetRoster replaces a team's declared slots. Only the captain may edit.
func (s *Service) SetRoster(ctx context.Context, teamID, actorID string, slots []teamdb.RosterSlot) (teamdb.Team, error) {
	ctx, span := s.tracer.Start(ctx, "team.SetRoster")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "set_roster", "team")

	var updated teamdb.Team
	_, err := s.teams.Update(ctx, func(teams []teamdb.Team) ([]teamdb.Team, error) {
		team, ok := ledger.Find(teams, teamID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		if team.CaptainID != actorID {
			return nil, fmt.Errorf("only the captain may edit the roster of %s", team.Name)
		}
		team.Slots = slots
		team.UpdatedAt = s.now()
		updated = team
		return ledger.Replace(teams, team), nil
	})
	defer s.instrument(ctx, "set_roster", err, start)
	if err != nil {
		return teamdb.Team{}, err
	}
	return updated, nil
}

// Team returns a team by id.
func (s *Service) Team(ctx context.Context, teamID string) (teamdb.Team, error) {
	teams, err := s.teams.Read(ctx)
	if err != nil {
		return teamdb.Team{}, err
	}
	team, ok := ledger.Find(teams, teamID)
	if !ok {
		return teamdb.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	return team, nil
}

// CaptainTeam returns the team captained by userID.
func (s *Service) CaptainTeam(ctx context.Context, userID string) (teamdb.Team, error) {
	teams, err := s.teams.Read(ctx)
	if err != nil {
		return teamdb.Team{}, err
	}
	team, ok := teamdb.FindByCaptain(teams, userID)
	if !ok {
		return teamdb.Team{}, fmt.Errorf("%w: no team captained by %s", ErrTeamNotFound, userID)
	}
	return team, nil
}
