// Package platform defines the narrow capability interfaces the core needs
// from the chat-platform gateway: delivering notifications and resolving
// proof links. The core never talks to a specific messaging transport
// directly.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrProofUnresolved indicates the gateway could not find the referenced
// message.
var ErrProofUnresolved = errors.New("proof message could not be resolved")

// ThreadRef identifies a private match thread on the platform.
type ThreadRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ThreadRequest asks the gateway to allocate a private thread for a match.
type ThreadRequest struct {
	MatchID      string   `json:"match_id"`
	Name         string   `json:"name"`
	MemberIDs    []string `json:"member_ids"`
	Briefing     string   `json:"briefing"`
	CheckInAsked bool     `json:"check_in_asked"`
}

// ThreadResult is the gateway's answer to a ThreadRequest.
type ThreadResult struct {
	Thread           ThreadRef `json:"thread"`
	CheckInMessageID string    `json:"check_in_message_id"`
}

// TicketCard asks the gateway to publish an arbitration card for referees.
type TicketCard struct {
	TicketID    string   `json:"ticket_id"`
	MatchID     string   `json:"match_id"`
	MatchType   string   `json:"match_type"`
	Conflict    bool     `json:"conflict"`
	Summary     string   `json:"summary"`
	EvidenceURL []string `json:"evidence_urls"`
}

// MessageRef locates a platform message, e.g. a published ticket card.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// CardUpdate reflects a referee decision onto a published ticket card.
type CardUpdate struct {
	State  string `json:"state"`
	Note   string `json:"note,omitempty"`
	Closed bool   `json:"closed"`
}

// Notifier is everything the core asks the gateway to deliver. Thread and
// card creation are required side effects: their failure aborts the calling
// transition. PostToThread is informational; callers log its failure and
// commit anyway.
type Notifier interface {
	CreateMatchThread(ctx context.Context, req ThreadRequest) (ThreadResult, error)
	PostToThread(ctx context.Context, threadID, content string) error
	PublishTicketCard(ctx context.Context, card TicketCard) (MessageRef, error)
	UpdateTicketCard(ctx context.Context, ref MessageRef, update CardUpdate) error
}

// ProofClaim is what the gateway can attest about a referenced message.
type ProofClaim struct {
	URL           string    `json:"url"`
	AuthorID      string    `json:"author_id"`
	ChannelID     string    `json:"channel_id"`
	HasAttachment bool      `json:"has_attachment"`
	PostedAt      time.Time `json:"posted_at"`
}

// ProofResolver resolves a raw proof link into an attested claim. The caller
// decides whether the claim satisfies its evidence requirements.
type ProofResolver interface {
	Resolve(ctx context.Context, rawURL string) (ProofClaim, error)
}
