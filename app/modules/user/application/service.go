// Package userservice manages member profiles and Riot account links.
package userservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	userdb "github.com/Stouckie/Scrimpilot/app/modules/user/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/rating"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

// Domain errors for the user service.
var (
	// ErrMemberNotFound indicates no member matches the given id.
	ErrMemberNotFound = errors.New("member not found")

	// ErrInvalidRiotID indicates a Riot ID that is not of the form Name#TAG.
	ErrInvalidRiotID = errors.New("riot id must be of the form Name#TAG")
)

var riotIDPattern = regexp.MustCompile(`^.+#.+$`)

// Service carries the user module's dependencies.
type Service struct {
	members ledger.Collection[userdb.Member]
	logger  *slog.Logger
	metrics observability.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService creates a user service.
func NewService(
	members ledger.Collection[userdb.Member],
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
) *Service {
	return &Service{
		members: members,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		now:     time.Now,
	}
}

// UpsertInput is the profile payload for UpsertMember.
type UpsertInput struct {
	PlatformID string
	Name       string
	Role       sharedtypes.Role
	Rank       sharedtypes.Rank
	IsCoach    bool
	OrgID      string
	TeamID     string
}

// UpsertMember creates or refreshes a member keyed by platform id. Updates
// only overwrite fields the input actually carries.
func (s *Service) UpsertMember(ctx context.Context, input UpsertInput) (userdb.Member, error) {
	ctx, span := s.tracer.Start(ctx, "user.UpsertMember")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "upsert_member", "user")

	var member userdb.Member
	_, err := s.members.Update(ctx, func(members []userdb.Member) ([]userdb.Member, error) {
		existing, ok := userdb.FindByPlatformID(members, input.PlatformID)
		if !ok {
			member = userdb.Member{
				ID:          input.PlatformID,
				PlatformID:  input.PlatformID,
				Name:        input.Name,
				Role:        input.Role,
				Rank:        input.Rank,
				SkillRating: rating.ForRank(input.Rank),
				IsCoach:     input.IsCoach,
				OrgID:       input.OrgID,
				TeamID:      input.TeamID,
				CreatedAt:   s.now(),
				UpdatedAt:   s.now(),
			}
			return append(members, member), nil
		}
		if input.Name != "" {
			existing.Name = input.Name
		}
		if input.Role != "" {
			existing.Role = input.Role
		}
		if input.Rank != "" {
			existing.Rank = input.Rank
			existing.SkillRating = rating.ForRank(input.Rank)
		}
		if input.OrgID != "" {
			existing.OrgID = input.OrgID
		}
		if input.TeamID != "" {
			existing.TeamID = input.TeamID
		}
		existing.IsCoach = input.IsCoach
		existing.UpdatedAt = s.now()
		member = existing
		return ledger.Replace(members, existing), nil
	})
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "upsert_member", "user")
		return userdb.Member{}, err
	}
	s.metrics.RecordOperationSuccess(ctx, "upsert_member", "user")
	s.metrics.RecordOperationDuration(ctx, "upsert_member", "user", time.Since(start))

	s.logger.InfoContext(ctx, "Member upserted",
		slog.String("member_id", member.ID),
		slog.String("rank", string(member.Rank)),
	)
	return member, nil
}

// LinkRiotAccount attaches a Riot ID to an existing member.
func (s *Service) LinkRiotAccount(ctx context.Context, platformID, riotID string) (userdb.Member, error) {
	ctx, span := s.tracer.Start(ctx, "user.LinkRiotAccount")
	defer span.End()
	s.metrics.RecordOperationAttempt(ctx, "link_riot_account", "user")

	riotID = strings.TrimSpace(riotID)
	if !riotIDPattern.MatchString(riotID) {
		s.metrics.RecordOperationFailure(ctx, "link_riot_account", "user")
		return userdb.Member{}, fmt.Errorf("%w: %q", ErrInvalidRiotID, riotID)
	}

	var member userdb.Member
	_, err := s.members.Update(ctx, func(members []userdb.Member) ([]userdb.Member, error) {
		existing, ok := userdb.FindByPlatformID(members, platformID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, platformID)
		}
		existing.RiotID = riotID
		existing.UpdatedAt = s.now()
		member = existing
		return ledger.Replace(members, existing), nil
	})
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "link_riot_account", "user")
		return userdb.Member{}, err
	}
	s.metrics.RecordOperationSuccess(ctx, "link_riot_account", "user")
	return member, nil
}

// Member returns a member by platform id.
func (s *Service) Member(ctx context.Context, platformID string) (userdb.Member, error) {
	members, err := s.members.Read(ctx)
	if err != nil {
		return userdb.Member{}, err
	}
	member, ok := userdb.FindByPlatformID(members, platformID)
	if !ok {
		return userdb.Member{}, fmt.Errorf("%w: %s", ErrMemberNotFound, platformID)
	}
	return member, nil
}

// Members returns all member profiles.
func (s *Service) Members(ctx context.Context) ([]userdb.Member, error) {
	return s.members.Read(ctx)
}
