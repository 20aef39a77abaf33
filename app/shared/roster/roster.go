// Package roster resolves a team's declared slots against Member records and
// decides whether the lineup is ready to play.
package roster

import (
	"errors"
	"fmt"
	"math"
	"strings"

	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	userdb "github.com/Stouckie/Scrimpilot/app/modules/user/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/rating"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

// MinPlayers is the minimum resolvable non-coach members a roster needs
// before it can be used to post, accept, confirm, join or queue.
const MinPlayers = 5

// ErrNotReady wraps every roster readiness failure.
var ErrNotReady = errors.New("roster not ready")

// NotReadyError details why a roster cannot be used.
type NotReadyError struct {
	TeamID  string
	Missing []string
	Players int
}

func (e *NotReadyError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("roster not ready: unresolved players (%s)", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("roster not ready: %d player(s) registered, need at least %d", e.Players, MinPlayers)
}

func (e *NotReadyError) Unwrap() error { return ErrNotReady }

// Build is the resolved lineup for one team.
type Build struct {
	Roster  scrimdb.Roster
	Players []userdb.Member
	Coaches []userdb.Member
	Values  []float64
	Missing []string
}

// ParticipantIDs returns the platform ids of every player and coach.
func (b Build) ParticipantIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, member := range append(append([]userdb.Member{}, b.Players...), b.Coaches...) {
		if _, ok := seen[member.PlatformID]; ok {
			continue
		}
		seen[member.PlatformID] = struct{}{}
		ids = append(ids, member.PlatformID)
	}
	return ids
}

// FromTeam resolves every slot of a team against the member records. Slots
// whose member cannot be resolved are collected as missing. A slot's declared
// rating overrides the member's stored rating only when it is a finite value.
func FromTeam(team teamdb.Team, members []userdb.Member) Build {
	build := Build{Missing: []string{}}
	for _, slot := range team.Slots {
		member, ok := userdb.FindByPlatformID(members, slot.PlayerID)
		if !ok {
			build.Missing = append(build.Missing, slot.PlayerID)
			continue
		}
		value := member.SkillRating
		if slot.DeclaredRating != nil && !math.IsNaN(*slot.DeclaredRating) && !math.IsInf(*slot.DeclaredRating, 0) {
			value = *slot.DeclaredRating
		}
		if slot.Role == sharedtypes.RoleCoach || member.IsCoach {
			build.Coaches = append(build.Coaches, member)
			continue
		}
		build.Players = append(build.Players, member)
		build.Values = append(build.Values, value)
	}

	playerIDs := make([]string, 0, len(build.Players))
	for _, player := range build.Players {
		playerIDs = append(playerIDs, player.ID)
	}
	coachIDs := make([]string, 0, len(build.Coaches))
	for _, coach := range build.Coaches {
		coachIDs = append(coachIDs, coach.ID)
	}
	declared := 0.0
	if len(build.Values) > 0 {
		declared = rating.TeamSkillRating(build.Values)
	}
	build.Roster = scrimdb.Roster{
		TeamID:         team.ID,
		PlayerIDs:      playerIDs,
		CoachIDs:       coachIDs,
		DeclaredRating: declared,
	}
	return build
}

// Ready returns the build when the lineup is usable, or a *NotReadyError.
func Ready(team teamdb.Team, members []userdb.Member) (Build, error) {
	build := FromTeam(team, members)
	if len(build.Missing) > 0 {
		return build, &NotReadyError{TeamID: team.ID, Missing: build.Missing, Players: len(build.Players)}
	}
	if len(build.Players) < MinPlayers {
		return build, &NotReadyError{TeamID: team.ID, Players: len(build.Players)}
	}
	return build, nil
}
