package teamservice

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ladderdb "github.com/Stouckie/Scrimpilot/app/modules/ladder/infrastructure/repositories"
	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

func newTestService() (*Service, *ledger.MemoryStore[teamdb.Team], *ledger.MemoryStore[ladderdb.Ladder]) {
	teams := ledger.NewMemoryStore[teamdb.Team]()
	orgs := ledger.NewMemoryStore[teamdb.Org]()
	ladders := ledger.NewMemoryStore[ladderdb.Ladder]()
	svc := NewService(teams, orgs, ladders,
		observability.NewTestLogger(), observability.NoOpMetrics{}, observability.Tracer())
	return svc, teams, ladders
}

func TestCreateTeam(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	team, err := svc.CreateTeam(ctx, "Night Owls", "EUW", "captain-1", "")
	require.NoError(t, err)
	assert.Equal(t, float64(100), team.Reliability)
	assert.Equal(t, "captain-1", team.CaptainID)

	t.Run("duplicate name rejected case-insensitively", func(t *testing.T) {
		_, err := svc.CreateTeam(ctx, "night owls", "EUW", "captain-2", "")
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := svc.CreateTeam(ctx, "   ", "EUW", "captain-3", "")
		assert.ErrorIs(t, err, ErrEmptyName)
	})
}

func TestCreateOrg(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	org, err := svc.CreateOrg(ctx, "Owl Esports", "multi-team org", "owner-1")
	require.NoError(t, err)
	assert.NotEmpty(t, org.ID)

	_, err = svc.CreateOrg(ctx, "owl esports", "", "owner-2")
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestSetRoster(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	team, err := svc.CreateTeam(ctx, "Night Owls", "EUW", "captain-1", "")
	require.NoError(t, err)

	slots := []teamdb.RosterSlot{{PlayerID: "p1"}, {PlayerID: "p2"}}
	updated, err := svc.SetRoster(ctx, team.ID, "captain-1", slots)
	require.NoError(t, err)
	assert.Len(t, updated.Slots, 2)

	_, err = svc.SetRoster(ctx, team.ID, "stranger", slots)
	assert.Error(t, err)
}

func TestApplyReliabilityChange(t *testing.T) {
	ctx := context.Background()

	t.Run("delta applies and clamps", func(t *testing.T) {
		svc, _, _ := newTestService()
		team, err := svc.CreateTeam(ctx, "Night Owls", "EUW", "captain-1", "")
		require.NoError(t, err)

		change, err := svc.ApplyReliabilityChange(ctx, team.ID, -15, 0, "no-show")
		require.NoError(t, err)
		assert.Equal(t, float64(100), change.Previous)
		assert.Equal(t, float64(85), change.Next)

		change, err = svc.ApplyReliabilityChange(ctx, team.ID, 50, 0, "manual correction")
		require.NoError(t, err)
		assert.Equal(t, float64(100), change.Next)

		for i := 0; i < 10; i++ {
			change, err = svc.ApplyReliabilityChange(ctx, team.ID, -15, 0, "repeat offender")
			require.NoError(t, err)
		}
		assert.Equal(t, float64(0), change.Next)
	})

	t.Run("non-finite stored score heals to 100", func(t *testing.T) {
		assert.Equal(t, float64(100), clampReliability(math.NaN()))
		assert.Equal(t, float64(100), clampReliability(math.Inf(1)))
		assert.Equal(t, float64(100), clampReliability(math.Inf(-1)))
		assert.Equal(t, float64(0), clampReliability(-3))
		assert.Equal(t, float64(100), clampReliability(250))
		assert.Equal(t, 42.5, clampReliability(42.5))
	})

	t.Run("cooldown set and visible", func(t *testing.T) {
		svc, _, _ := newTestService()
		now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
		svc.WithClock(func() time.Time { return now })
		team, err := svc.CreateTeam(ctx, "Night Owls", "EUW", "captain-1", "")
		require.NoError(t, err)

		change, err := svc.ApplyReliabilityChange(ctx, team.ID, -15, 24*time.Hour, "no-show")
		require.NoError(t, err)
		require.NotNil(t, change.CooldownUntil)
		assert.Equal(t, now.Add(24*time.Hour), *change.CooldownUntil)

		view, err := svc.TeamReliability(ctx, team.ID)
		require.NoError(t, err)
		assert.True(t, view.OnCooldown)

		cleared, err := svc.ClearCooldown(ctx, team.ID)
		require.NoError(t, err)
		assert.Nil(t, cleared.CooldownUntil)
	})

	t.Run("mirrors into ladder entries", func(t *testing.T) {
		svc, _, ladders := newTestService()
		team, err := svc.CreateTeam(ctx, "Night Owls", "EUW", "captain-1", "")
		require.NoError(t, err)
		_, err = ladders.Update(ctx, func(records []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
			return append(records, ladderdb.Ladder{
				ID:      "ladder-1",
				Entries: []ladderdb.Entry{{TeamID: team.ID, Rating: 1000, Reliability: 100}},
			}), nil
		})
		require.NoError(t, err)

		_, err = svc.ApplyReliabilityChange(ctx, team.ID, -15, 0, "no-show")
		require.NoError(t, err)

		stored, err := ladders.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, float64(85), stored[0].Entries[0].Reliability)
	})

	t.Run("unknown team", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.ApplyReliabilityChange(ctx, "missing", -10, 0, "whatever")
		assert.ErrorIs(t, err, ErrTeamNotFound)
	})
}
