package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	arbservice "github.com/Stouckie/Scrimpilot/app/modules/arbitration/application"
	ladderservice "github.com/Stouckie/Scrimpilot/app/modules/ladder/application"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

type createLadderRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Region   string `json:"region"`
}

func (s *Server) createLadder(w http.ResponseWriter, r *http.Request) {
	var req createLadderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ladder, err := s.ladders.CreateLadder(r.Context(), req.Name, sharedtypes.Category(req.Category), req.Region)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ladder)
}

func (s *Server) listLadders(w http.ResponseWriter, r *http.Request) {
	ladders, err := s.ladders.Ladders(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ladders)
}

func (s *Server) joinLadder(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	entry, err := s.ladders.JoinLadder(r.Context(), chi.URLParam(r, "ladderID"), claims.Subject)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) queueLadder(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	result, err := s.ladders.QueueLadder(r.Context(), chi.URLParam(r, "ladderID"), claims.Subject)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) reportLadderMatch(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	claims, _ := claimsFrom(r.Context())
	match, err := s.ladders.ReportMatch(r.Context(), ladderservice.ReportInput{
		MatchID:            chi.URLParam(r, "matchID"),
		CaptainID:          claims.Subject,
		Score:              req.Score,
		VictoryProofURL:    req.VictoryProofURL,
		ScoreboardProofURL: req.ScoreboardProofURL,
		Note:               req.Note,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, match)
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.ladders.Leaderboard(r.Context(), chi.URLParam(r, "ladderID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) leaderboardXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := s.ladders.ExportLeaderboardXLSX(r.Context(), chi.URLParam(r, "ladderID"))
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.xlsx"`)
	_, _ = w.Write(data)
}

func (s *Server) leaderboardPNG(w http.ResponseWriter, r *http.Request) {
	data, err := s.ladders.LeaderboardChartPNG(r.Context(), chi.URLParam(r, "ladderID"))
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func (s *Server) seasonClose(w http.ResponseWriter, r *http.Request) {
	ladder, err := s.ladders.SeasonClose(r.Context(), chi.URLParam(r, "ladderID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ladder)
}

func (s *Server) listOpenTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.tickets.OpenTickets(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tickets)
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.tickets.Ticket(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

type decideRequest struct {
	Action        string `json:"action"`
	Justification string `json:"justification"`
	ChosenScore   string `json:"chosen_score,omitempty"`
}

func (s *Server) decideTicket(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	claims, _ := claimsFrom(r.Context())
	input := arbservice.DecideInput{
		TicketID:      chi.URLParam(r, "ticketID"),
		RefereeID:     claims.Subject,
		Action:        arbservice.Action(req.Action),
		Justification: req.Justification,
	}
	if req.ChosenScore != "" {
		score, err := sharedtypes.NormalizeScore(req.ChosenScore)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		input.ChosenScore = &score
	}
	ticket, err := s.tickets.Decide(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}
