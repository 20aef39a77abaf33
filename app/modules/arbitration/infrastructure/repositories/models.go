// Package arbdb holds ArbitrationTicket records.
package arbdb

import (
	"time"

	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

// CollectionName is the ledger collection tickets live in.
const CollectionName = "arbitration"

// Ticket is the adjudication record a referee drives to a disposition. A
// match has at most one non-final ticket; the ticket snapshots both reports
// as they stood when the second one arrived.
type Ticket struct {
	ID            string                  `json:"id"`
	MatchID       string                  `json:"match_id"`
	MatchType     sharedtypes.MatchType   `json:"match_type"`
	State         sharedtypes.TicketState `json:"state"`
	Conflict      bool                    `json:"conflict"`
	HostReport    *scrimdb.Report         `json:"host_report,omitempty"`
	GuestReport   *scrimdb.Report         `json:"guest_report,omitempty"`
	RefereeID     string                  `json:"referee_id,omitempty"`
	Notes         string                  `json:"notes,omitempty"`
	ThreadID      string                  `json:"thread_id,omitempty"`
	EvidenceURLs  []string                `json:"evidence_urls"`
	CardChannelID string                  `json:"card_channel_id,omitempty"`
	CardMessageID string                  `json:"card_message_id,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

func (t Ticket) RecordID() string { return t.ID }

// FindOpenForMatch returns the non-final ticket for a match, if one exists.
// This is the idempotency guard for ticket creation.
func FindOpenForMatch(tickets []Ticket, matchID string) (Ticket, bool) {
	for _, ticket := range tickets {
		if ticket.MatchID == matchID && !ticket.State.Terminal() {
			return ticket, true
		}
	}
	return Ticket{}, false
}
