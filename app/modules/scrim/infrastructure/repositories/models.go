// Package scrimdb holds Scrim records and the report/check-in structures
// shared with ladder matches.
package scrimdb

import (
	"time"

	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

// CollectionName is the ledger collection Scrims live in.
const CollectionName = "scrims"

// Roster is the lineup snapshot a team fields for one match, taken at
// accept/confirm time so later team edits cannot rewrite history.
type Roster struct {
	TeamID         string   `json:"team_id"`
	PlayerIDs      []string `json:"player_ids"`
	CoachIDs       []string `json:"coach_ids"`
	DeclaredRating float64  `json:"declared_rating"`
}

// CheckIn tracks which participants of a team acknowledged presence.
type CheckIn struct {
	TeamID      string     `json:"team_id"`
	UserIDs     []string   `json:"user_ids"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Cancellation records who cancelled a match and why.
type Cancellation struct {
	TeamID      string    `json:"team_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Report is one team's result declaration. At most one active report per team
// per match: a new report replaces the team's prior one.
type Report struct {
	TeamID             string            `json:"team_id"`
	ReportedBy         string            `json:"reported_by"`
	Score              sharedtypes.Score `json:"score"`
	SubmittedAt        time.Time         `json:"submitted_at"`
	VictoryProofURL    string            `json:"victory_proof_url"`
	ScoreboardProofURL string            `json:"scoreboard_proof_url"`
	Note               string            `json:"note,omitempty"`
}

// FindReport returns a team's report from a report list.
func FindReport(reports []Report, teamID string) (Report, bool) {
	for _, report := range reports {
		if report.TeamID == teamID {
			return report, true
		}
	}
	return Report{}, false
}

// UpsertReport replaces the team's previous report, keeping other teams'
// reports untouched.
func UpsertReport(reports []Report, report Report) []Report {
	next := make([]Report, 0, len(reports)+1)
	for _, existing := range reports {
		if existing.TeamID != report.TeamID {
			next = append(next, existing)
		}
	}
	return append(next, report)
}

// Scrim is one proposed match between two teams.
type Scrim struct {
	ID                  string                  `json:"id"`
	Category            sharedtypes.Category    `json:"category"`
	Preset              sharedtypes.Preset      `json:"preset"`
	QueueLevel          sharedtypes.QueueLevel  `json:"queue_level"`
	ScheduledAt         time.Time               `json:"scheduled_at"`
	Notes               string                  `json:"notes,omitempty"`
	Status              sharedtypes.MatchStatus `json:"status"`
	PracticeReason      string                  `json:"practice_reason,omitempty"`
	HostTeamID          string                  `json:"host_team_id"`
	GuestTeamID         string                  `json:"guest_team_id,omitempty"`
	Rosters             []Roster                `json:"rosters"`
	ThreadID            string                  `json:"thread_id,omitempty"`
	ThreadURL           string                  `json:"thread_url,omitempty"`
	CheckInMessageID    string                  `json:"check_in_message_id,omitempty"`
	CheckIns            []CheckIn               `json:"check_ins,omitempty"`
	Cancellation        *Cancellation           `json:"cancellation,omitempty"`
	NoShowTeamIDs       []string                `json:"no_show_team_ids,omitempty"`
	Reports             []Report                `json:"reports,omitempty"`
	ArbitrationTicketID string                  `json:"arbitration_ticket_id,omitempty"`
	Result              sharedtypes.Score       `json:"result,omitempty"`
	ValidatedBy         string                  `json:"validated_by,omitempty"`
	ValidatedAt         *time.Time              `json:"validated_at,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

func (s Scrim) RecordID() string { return s.ID }

// Reportable reports whether a result declaration is accepted in the current
// status. Re-reports are allowed while arbitration has not closed.
func (s Scrim) Reportable() bool {
	switch s.Status {
	case sharedtypes.StatusConfirmed, sharedtypes.StatusPractice, sharedtypes.StatusAwaitingArbitration:
		return true
	}
	return false
}

// Active reports whether the match still awaits play (reminder/no-show window).
func (s Scrim) Active() bool {
	return s.Status == sharedtypes.StatusConfirmed || s.Status == sharedtypes.StatusPractice
}

// Terminal reports whether no further lifecycle transition may occur.
func (s Scrim) Terminal() bool {
	switch s.Status {
	case sharedtypes.StatusCancelled, sharedtypes.StatusCompleted, sharedtypes.StatusValidated,
		sharedtypes.StatusRefused, sharedtypes.StatusNoShow, sharedtypes.StatusDisqualified:
		return true
	}
	return false
}

// Engaged reports whether the team plays in this match.
func (s Scrim) Engaged(teamID string) bool {
	return teamID != "" && (teamID == s.HostTeamID || teamID == s.GuestTeamID)
}
