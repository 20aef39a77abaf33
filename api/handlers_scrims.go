package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	scrimservice "github.com/Stouckie/Scrimpilot/app/modules/scrim/application"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

type postScrimRequest struct {
	Category    string `json:"category"`
	Preset      string `json:"preset"`
	ScheduledAt string `json:"scheduled_at"`
	Notes       string `json:"notes"`
}

func (s *Server) postScrim(w http.ResponseWriter, r *http.Request) {
	var req postScrimRequest
	if !decodeBody(w, r, &req) {
		return
	}
	kickoff, err := parseKickoff(req.ScheduledAt, time.Now())
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	claims, _ := claimsFrom(r.Context())
	scrim, err := s.scrims.PostScrim(r.Context(), scrimservice.PostInput{
		CaptainID:   claims.Subject,
		Category:    sharedtypes.Category(req.Category),
		Preset:      sharedtypes.Preset(req.Preset),
		ScheduledAt: kickoff,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, scrim)
}

func (s *Server) listOpenScrims(w http.ResponseWriter, r *http.Request) {
	scrims, err := s.scrims.OpenScrims(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scrims)
}

func (s *Server) getScrim(w http.ResponseWriter, r *http.Request) {
	scrim, err := s.scrims.Scrim(r.Context(), chi.URLParam(r, "scrimID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scrim)
}

func (s *Server) acceptScrim(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	scrim, err := s.scrims.AcceptScrim(r.Context(), chi.URLParam(r, "scrimID"), claims.Subject)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scrim)
}

func (s *Server) confirmScrim(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	scrim, err := s.scrims.ConfirmScrim(r.Context(), chi.URLParam(r, "scrimID"), claims.Subject)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scrim)
}

type cancelScrimRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) cancelScrim(w http.ResponseWriter, r *http.Request) {
	var req cancelScrimRequest
	if !decodeBody(w, r, &req) {
		return
	}
	claims, _ := claimsFrom(r.Context())
	scrim, err := s.scrims.CancelScrim(r.Context(), chi.URLParam(r, "scrimID"), claims.Subject, req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scrim)
}

type reportRequest struct {
	Score              string `json:"score"`
	VictoryProofURL    string `json:"victory_proof_url"`
	ScoreboardProofURL string `json:"scoreboard_proof_url"`
	Note               string `json:"note"`
}

func (s *Server) reportScrim(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	claims, _ := claimsFrom(r.Context())
	scrim, err := s.scrims.ReportScrim(r.Context(), scrimservice.ReportInput{
		ScrimID:            chi.URLParam(r, "scrimID"),
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
	respondJSON(w, http.StatusOK, scrim)
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	scrim, err := s.scrims.CheckIn(r.Context(), chi.URLParam(r, "scrimID"), claims.Subject)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scrim)
}
