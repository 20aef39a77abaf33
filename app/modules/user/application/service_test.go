package userservice

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userdb "github.com/Stouckie/Scrimpilot/app/modules/user/infrastructure/repositories"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

func newTestService() (*Service, *ledger.MemoryStore[userdb.Member]) {
	members := ledger.NewMemoryStore[userdb.Member]()
	svc := NewService(members,
		observability.NewTestLogger(), observability.NoOpMetrics{}, observability.Tracer())
	return svc, members
}

func TestUpsertMember(t *testing.T) {
	ctx := context.Background()
	svc, members := newTestService()

	name := gofakeit.Username()
	member, err := svc.UpsertMember(ctx, UpsertInput{
		PlatformID: "disc-1",
		Name:       name,
		Role:       sharedtypes.RoleMid,
		Rank:       sharedtypes.RankGold,
	})
	require.NoError(t, err)
	assert.Equal(t, "disc-1", member.ID)
	assert.Equal(t, name, member.Name)
	assert.Equal(t, sharedtypes.RankGold, member.Rank)
	assert.Equal(t, float64(3), member.SkillRating, "rating derives from the rank")

	t.Run("second upsert updates in place", func(t *testing.T) {
		updated, err := svc.UpsertMember(ctx, UpsertInput{
			PlatformID: "disc-1",
			Rank:       sharedtypes.RankPlatinum,
		})
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.RankPlatinum, updated.Rank)
		assert.Equal(t, float64(4), updated.SkillRating)
		assert.Equal(t, member.Name, updated.Name, "empty input fields must not clear stored ones")
		assert.Equal(t, sharedtypes.RoleMid, updated.Role)

		stored, err := members.Read(ctx)
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})

	t.Run("coach flag always tracks the input", func(t *testing.T) {
		updated, err := svc.UpsertMember(ctx, UpsertInput{PlatformID: "disc-1", IsCoach: true})
		require.NoError(t, err)
		assert.True(t, updated.IsCoach)

		updated, err = svc.UpsertMember(ctx, UpsertInput{PlatformID: "disc-1"})
		require.NoError(t, err)
		assert.False(t, updated.IsCoach)
	})
}

func TestLinkRiotAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	_, err := svc.UpsertMember(ctx, UpsertInput{PlatformID: "disc-1", Name: "Mira"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		riotID  string
		wantErr error
	}{
		{name: "canonical", riotID: "Mira#EUW"},
		{name: "trims whitespace", riotID: "  Mira#0001  "},
		{name: "missing tag", riotID: "Mira", wantErr: ErrInvalidRiotID},
		{name: "missing name", riotID: "#EUW", wantErr: ErrInvalidRiotID},
		{name: "empty", riotID: "", wantErr: ErrInvalidRiotID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			member, err := svc.LinkRiotAccount(ctx, "disc-1", tc.riotID)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, member.RiotID)
		})
	}

	t.Run("unknown member", func(t *testing.T) {
		_, err := svc.LinkRiotAccount(ctx, "disc-404", "Mira#EUW")
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})
}

func TestMember(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	_, err := svc.Member(ctx, "disc-404")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
