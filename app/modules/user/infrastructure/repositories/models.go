// Package userdb holds the Member records stored in the member collection.
package userdb

import (
	"time"

	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

// Member is one registered player or coach, keyed by platform user id.
// Records are created and updated idempotently: one record per platform user.
type Member struct {
	ID          string           `json:"id"`
	PlatformID  string           `json:"platform_id"`
	Name        string           `json:"name,omitempty"`
	RiotID      string           `json:"riot_id,omitempty"`
	OrgID       string           `json:"org_id,omitempty"`
	TeamID      string           `json:"team_id,omitempty"`
	Role        sharedtypes.Role `json:"role"`
	Rank        sharedtypes.Rank `json:"rank"`
	SkillRating float64          `json:"skill_rating"`
	IsCoach     bool             `json:"is_coach"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// RecordID implements ledger.Keyed.
func (m Member) RecordID() string { return m.ID }

// CollectionName is the ledger collection Members live in.
const CollectionName = "members"

// FindByPlatformID returns the member matching either record id or platform
// id; roster slots may reference a player by either.
func FindByPlatformID(members []Member, id string) (Member, bool) {
	for _, member := range members {
		if member.ID == id || member.PlatformID == id {
			return member, true
		}
	}
	return Member{}, false
}
