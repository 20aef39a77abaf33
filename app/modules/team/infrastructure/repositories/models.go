// Package teamdb holds Team and Org records.
package teamdb

import (
	"strings"
	"time"

	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

// Ledger collection names.
const (
	CollectionName    = "teams"
	OrgCollectionName = "orgs"
)

// Org groups teams under a shared banner.
type Org struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (o Org) RecordID() string { return o.ID }

// RosterSlot is one declared lineup position on a team. DeclaredRating, when
// set, overrides the member's stored skill rating for balance computations.
type RosterSlot struct {
	PlayerID       string           `json:"player_id"`
	Role           sharedtypes.Role `json:"role"`
	DeclaredRating *float64         `json:"declared_rating,omitempty"`
}

// Team is one competitive team. Reliability stays within [0,100]; a team with
// a future CooldownUntil is barred from posting, accepting and queueing.
type Team struct {
	ID            string               `json:"id"`
	OrgID         string               `json:"org_id,omitempty"`
	Name          string               `json:"name"`
	Region        string               `json:"region"`
	Category      sharedtypes.Category `json:"category,omitempty"`
	CaptainID     string               `json:"captain_id,omitempty"`
	Slots         []RosterSlot         `json:"slots"`
	Reliability   float64              `json:"reliability"`
	CooldownUntil *time.Time           `json:"cooldown_until,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func (t Team) RecordID() string { return t.ID }

// OnCooldown reports whether the team's cooldown window is still open at the
// reference time. Expired cooldowns count as inactive without being cleared.
func (t Team) OnCooldown(now time.Time) bool {
	return t.CooldownUntil != nil && t.CooldownUntil.After(now)
}

// FindByCaptain returns the team captained by the given user.
func FindByCaptain(teams []Team, captainID string) (Team, bool) {
	for _, team := range teams {
		if team.CaptainID == captainID {
			return team, true
		}
	}
	return Team{}, false
}

// FindByNameOrID matches a team by exact id or case-insensitive name.
func FindByNameOrID(teams []Team, ref string) (Team, bool) {
	for _, team := range teams {
		if team.ID == ref || strings.EqualFold(team.Name, ref) {
			return team, true
		}
	}
	return Team{}, false
}

// NameOf resolves a team id to its display name, falling back to the id.
func NameOf(teams []Team, id string) string {
	for _, team := range teams {
		if team.ID == id {
			return team.Name
		}
	}
	return id
}
