package roster

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	userdb "github.com/Stouckie/Scrimpilot/app/modules/user/infrastructure/repositories"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

func fixtureTeam(playerCount int) (teamdb.Team, []userdb.Member) {
	team := teamdb.Team{ID: "team-1", Name: "Fixture", CaptainID: "p-0"}
	var members []userdb.Member
	for i := 0; i < playerCount; i++ {
		id := fmt.Sprintf("p-%d", i)
		team.Slots = append(team.Slots, teamdb.RosterSlot{PlayerID: id, Role: sharedtypes.RoleMid})
		members = append(members, userdb.Member{
			ID:          id,
			PlatformID:  id,
			Rank:        sharedtypes.RankGold,
			SkillRating: 4,
		})
	}
	return team, members
}

func TestReady(t *testing.T) {
	t.Run("full roster is ready", func(t *testing.T) {
		team, members := fixtureTeam(5)
		build, err := Ready(team, members)
		require.NoError(t, err)
		assert.Len(t, build.Players, 5)
		assert.Equal(t, "team-1", build.Roster.TeamID)
		assert.Equal(t, 4.0, build.Roster.DeclaredRating)
	})

	t.Run("too few players", func(t *testing.T) {
		team, members := fixtureTeam(4)
		_, err := Ready(team, members)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotReady)

		var notReady *NotReadyError
		require.True(t, errors.As(err, &notReady))
		assert.Equal(t, 4, notReady.Players)
	})

	t.Run("unresolved slot reported as missing", func(t *testing.T) {
		team, members := fixtureTeam(5)
		team.Slots = append(team.Slots, teamdb.RosterSlot{PlayerID: "ghost"})
		_, err := Ready(team, members)
		require.Error(t, err)

		var notReady *NotReadyError
		require.True(t, errors.As(err, &notReady))
		assert.Equal(t, []string{"ghost"}, notReady.Missing)
	})
}

func TestFromTeam(t *testing.T) {
	t.Run("declared rating overrides member rating", func(t *testing.T) {
		team, members := fixtureTeam(5)
		declared := 9.5
		team.Slots[0].DeclaredRating = &declared

		build := FromTeam(team, members)
		assert.Contains(t, build.Values, 9.5)
	})

	t.Run("coaches do not count toward players or rating", func(t *testing.T) {
		team, members := fixtureTeam(5)
		team.Slots = append(team.Slots, teamdb.RosterSlot{PlayerID: "coach-1", Role: sharedtypes.RoleCoach})
		members = append(members, userdb.Member{ID: "coach-1", PlatformID: "coach-1", SkillRating: 9.5})

		build := FromTeam(team, members)
		assert.Len(t, build.Players, 5)
		assert.Len(t, build.Coaches, 1)
		assert.NotContains(t, build.Values, 9.5)
		assert.Equal(t, []string{"coach-1"}, build.Roster.CoachIDs)
	})

	t.Run("participant ids cover players and coaches once", func(t *testing.T) {
		team, members := fixtureTeam(5)
		team.Slots = append(team.Slots, teamdb.RosterSlot{PlayerID: "coach-1", Role: sharedtypes.RoleCoach})
		members = append(members, userdb.Member{ID: "coach-1", PlatformID: "coach-1", IsCoach: true})

		build := FromTeam(team, members)
		assert.Len(t, build.ParticipantIDs(), 6)
	})
}
