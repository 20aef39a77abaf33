// Package ladderdb holds Ladder records with their embedded entries and
// matches.
package ladderdb

import (
	"time"

	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

// CollectionName is the ledger collection Ladders live in.
const CollectionName = "ladders"

// Entry is one team's standing in a ladder. LastQueuedAt marks the team as
// waiting for an opponent; it is cleared the moment a pairing is made.
type Entry struct {
	TeamID       string     `json:"team_id"`
	Rating       int        `json:"rating"`
	Reliability  float64    `json:"reliability"`
	Wins         int        `json:"wins"`
	Losses       int        `json:"losses"`
	LastQueuedAt *time.Time `json:"last_queued_at,omitempty"`
}

// Match is one paired ladder match. It shares the scrim status vocabulary and
// report mechanics.
type Match struct {
	ID                  string                  `json:"id"`
	LadderID            string                  `json:"ladder_id"`
	HostTeamID          string                  `json:"host_team_id"`
	GuestTeamID         string                  `json:"guest_team_id"`
	QueueLevel          sharedtypes.QueueLevel  `json:"queue_level"`
	ScheduledAt         time.Time               `json:"scheduled_at"`
	Status              sharedtypes.MatchStatus `json:"status"`
	Reports             []scrimdb.Report        `json:"reports,omitempty"`
	Result              sharedtypes.Score       `json:"result,omitempty"`
	ArbitrationTicketID string                  `json:"arbitration_ticket_id,omitempty"`
	CompletedAt         *time.Time              `json:"completed_at,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// Final reports whether the match no longer blocks its teams from queueing.
func (m Match) Final() bool {
	switch m.Status {
	case sharedtypes.StatusValidated, sharedtypes.StatusDisqualified, sharedtypes.StatusNoShow,
		sharedtypes.StatusCancelled, sharedtypes.StatusCompleted, sharedtypes.StatusRefused:
		return true
	}
	return false
}

// Ladder is one standing competitive pool.
type Ladder struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Category  sharedtypes.Category    `json:"category"`
	Region    string                  `json:"region"`
	Level     sharedtypes.QueueLevel  `json:"level"`
	Status    sharedtypes.LadderStatus `json:"status"`
	Entries   []Entry                 `json:"entries"`
	Matches   []Match                 `json:"matches"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func (l Ladder) RecordID() string { return l.ID }

// FindEntry returns the entry for a team.
func (l Ladder) FindEntry(teamID string) (Entry, bool) {
	for _, entry := range l.Entries {
		if entry.TeamID == teamID {
			return entry, true
		}
	}
	return Entry{}, false
}

// FindMatch returns the embedded match with the given id.
func (l Ladder) FindMatch(matchID string) (Match, bool) {
	for _, match := range l.Matches {
		if match.ID == matchID {
			return match, true
		}
	}
	return Match{}, false
}

// FindByMatch locates the ladder containing a match.
func FindByMatch(ladders []Ladder, matchID string) (Ladder, Match, bool) {
	for _, ladder := range ladders {
		if match, ok := ladder.FindMatch(matchID); ok {
			return ladder, match, true
		}
	}
	return Ladder{}, Match{}, false
}
