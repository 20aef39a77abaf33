package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	userservice "github.com/Stouckie/Scrimpilot/app/modules/user/application"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

type upsertMemberRequest struct {
	PlatformID string `json:"platform_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Rank       string `json:"rank"`
	IsCoach    bool   `json:"is_coach"`
	OrgID      string `json:"org_id"`
	TeamID     string `json:"team_id"`
}

func (s *Server) upsertMember(w http.ResponseWriter, r *http.Request) {
	var req upsertMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PlatformID == "" {
		if claims, ok := claimsFrom(r.Context()); ok {
			req.PlatformID = claims.Subject
		}
	}
	member, err := s.users.UpsertMember(r.Context(), userservice.UpsertInput{
		PlatformID: req.PlatformID,
		Name:       req.Name,
		Role:       sharedtypes.Role(req.Role),
		Rank:       sharedtypes.Rank(req.Rank),
		IsCoach:    req.IsCoach,
		OrgID:      req.OrgID,
		TeamID:     req.TeamID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.users.Members(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

type linkRiotRequest struct {
	RiotID string `json:"riot_id"`
}

func (s *Server) linkRiotAccount(w http.ResponseWriter, r *http.Request) {
	var req linkRiotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	member, err := s.users.LinkRiotAccount(r.Context(), chi.URLParam(r, "memberID"), req.RiotID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

type createOrgRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) createOrg(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if !decodeBody(w, r, &req) {
		return
	}
	claims, _ := claimsFrom(r.Context())
	org, err := s.teams.CreateOrg(r.Context(), req.Name, req.Description, claims.Subject)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, org)
}

type createTeamRequest struct {
	Name   string `json:"name"`
	Region string `json:"region"`
	OrgID  string `json:"org_id"`
}

func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if !decodeBody(w, r, &req) {
		return
	}
	claims, _ := claimsFrom(r.Context())
	team, err := s.teams.CreateTeam(r.Context(), req.Name, req.Region, claims.Subject, req.OrgID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, team)
}

type rosterSlotRequest struct {
	PlayerID       string   `json:"player_id"`
	Role           string   `json:"role"`
	DeclaredRating *float64 `json:"declared_rating,omitempty"`
}

type setRosterRequest struct {
	Slots []rosterSlotRequest `json:"slots"`
}

func (s *Server) setRoster(w http.ResponseWriter, r *http.Request) {
	var req setRosterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	slots := make([]teamdb.RosterSlot, 0, len(req.Slots))
	for _, slot := range req.Slots {
		slots = append(slots, teamdb.RosterSlot{
			PlayerID:       slot.PlayerID,
			Role:           sharedtypes.Role(slot.Role),
			DeclaredRating: slot.DeclaredRating,
		})
	}
	claims, _ := claimsFrom(r.Context())
	team, err := s.teams.SetRoster(r.Context(), chi.URLParam(r, "teamID"), claims.Subject, slots)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, team)
}

func (s *Server) teamReliability(w http.ResponseWriter, r *http.Request) {
	view, err := s.teams.TeamReliability(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) clearCooldown(w http.ResponseWriter, r *http.Request) {
	team, err := s.teams.ClearCooldown(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, team)
}
