package api

import (
	"encoding/json"
	"errors"
	"net/http"

	arbservice "github.com/Stouckie/Scrimpilot/app/modules/arbitration/application"
	ladderservice "github.com/Stouckie/Scrimpilot/app/modules/ladder/application"
	scrimservice "github.com/Stouckie/Scrimpilot/app/modules/scrim/application"
	teamservice "github.com/Stouckie/Scrimpilot/app/modules/team/application"
	userservice "github.com/Stouckie/Scrimpilot/app/modules/user/application"
	"github.com/Stouckie/Scrimpilot/app/shared/roster"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scrimservice.ErrScrimNotFound),
		errors.Is(err, ladderservice.ErrLadderNotFound),
		errors.Is(err, ladderservice.ErrMatchNotFound),
		errors.Is(err, teamservice.ErrTeamNotFound),
		errors.Is(err, teamservice.ErrOrgNotFound),
		errors.Is(err, userservice.ErrMemberNotFound),
		errors.Is(err, arbservice.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, scrimservice.ErrNotCaptain),
		errors.Is(err, ladderservice.ErrNotCaptain):
		return http.StatusForbidden
	case errors.Is(err, scrimservice.ErrWrongStatus),
		errors.Is(err, scrimservice.ErrTeamOnCooldown),
		errors.Is(err, scrimservice.ErrOwnScrim),
		errors.Is(err, scrimservice.ErrAlreadyCheckedIn),
		errors.Is(err, ladderservice.ErrTeamOnCooldown),
		errors.Is(err, ladderservice.ErrAlreadyEntered),
		errors.Is(err, ladderservice.ErrMatchInFlight),
		errors.Is(err, ladderservice.ErrLadderInactive),
		errors.Is(err, teamservice.ErrDuplicateName),
		errors.Is(err, arbservice.ErrTicketClosed):
		return http.StatusConflict
	case errors.Is(err, scrimservice.ErrProofRejected),
		errors.Is(err, ladderservice.ErrProofRejected),
		errors.Is(err, roster.ErrNotReady):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scrimservice.ErrPastKickoff),
		errors.Is(err, ladderservice.ErrRegionMismatch),
		errors.Is(err, ladderservice.ErrNotEntered),
		errors.Is(err, teamservice.ErrEmptyName),
		errors.Is(err, userservice.ErrInvalidRiotID),
		errors.Is(err, arbservice.ErrJustificationRequired),
		errors.Is(err, arbservice.ErrScoreChoiceRequired),
		errors.Is(err, arbservice.ErrUnknownAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}
