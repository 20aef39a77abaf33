package scrimservice

import "errors"

// Domain errors for the scrim service.
var (
	// ErrScrimNotFound indicates no scrim matches the given id.
	ErrScrimNotFound = errors.New("scrim not found")

	// ErrPastKickoff indicates a scheduled time that is not in the future.
	ErrPastKickoff = errors.New("scheduled time must be in the future")

	// ErrTeamOnCooldown indicates the team is barred from new engagements.
	ErrTeamOnCooldown = errors.New("team is on cooldown")

	// ErrWrongStatus indicates the scrim is not in a state that permits the
	// requested transition.
	ErrWrongStatus = errors.New("scrim is not in a valid state for this action")

	// ErrNotCaptain indicates the actor does not captain a team engaged in
	// the scrim.
	ErrNotCaptain = errors.New("only the captain of an engaged team may do this")

	// ErrOwnScrim indicates a team tried to accept its own posting.
	ErrOwnScrim = errors.New("a team cannot accept its own scrim")

	// ErrProofRejected indicates a proof link failed verification.
	ErrProofRejected = errors.New("proof rejected")

	// ErrAlreadyCheckedIn indicates a duplicate check-in for the same player.
	ErrAlreadyCheckedIn = errors.New("player already checked in")
)
