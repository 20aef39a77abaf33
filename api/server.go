// Package api exposes the coordination engine over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	arbservice "github.com/Stouckie/Scrimpilot/app/modules/arbitration/application"
	ladderservice "github.com/Stouckie/Scrimpilot/app/modules/ladder/application"
	scrimservice "github.com/Stouckie/Scrimpilot/app/modules/scrim/application"
	teamservice "github.com/Stouckie/Scrimpilot/app/modules/team/application"
	userservice "github.com/Stouckie/Scrimpilot/app/modules/user/application"
	"github.com/Stouckie/Scrimpilot/config"
)

// Server routes HTTP requests to the application services.
type Server struct {
	users   *userservice.Service
	teams   *teamservice.Service
	scrims  *scrimservice.Service
	ladders *ladderservice.Service
	tickets *arbservice.Service
	auth    *Auth
	limiter *clientLimiter
	logger  *slog.Logger
}

// NewServer creates the HTTP server.
func NewServer(
	cfg config.Config,
	users *userservice.Service,
	teams *teamservice.Service,
	scrims *scrimservice.Service,
	ladders *ladderservice.Service,
	tickets *arbservice.Service,
	logger *slog.Logger,
) *Server {
	return &Server{
		users:   users,
		teams:   teams,
		scrims:  scrims,
		ladders: ladders,
		tickets: tickets,
		auth:    NewAuth(cfg.Auth.JWTSecret, cfg.Auth.StaffRole),
		limiter: newClientLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst),
		logger:  logger,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Use(s.limiter.Middleware)

		r.Route("/members", func(r chi.Router) {
			r.Get("/", s.listMembers)
			r.Post("/", s.upsertMember)
			r.Post("/{memberID}/riot", s.linkRiotAccount)
		})

		r.Post("/orgs", s.createOrg)

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", s.createTeam)
			r.Put("/{teamID}/roster", s.setRoster)
			r.Get("/{teamID}/reliability", s.teamReliability)
			r.With(s.auth.RequireStaff).Post("/{teamID}/cooldown/clear", s.clearCooldown)
		})

		r.Route("/scrims", func(r chi.Router) {
			r.Get("/", s.listOpenScrims)
			r.Post("/", s.postScrim)
			r.Get("/{scrimID}", s.getScrim)
			r.Post("/{scrimID}/accept", s.acceptScrim)
			r.Post("/{scrimID}/confirm", s.confirmScrim)
			r.Post("/{scrimID}/cancel", s.cancelScrim)
			r.Post("/{scrimID}/report", s.reportScrim)
			r.Post("/{scrimID}/checkin", s.checkIn)
		})

		r.Route("/ladders", func(r chi.Router) {
			r.Get("/", s.listLadders)
			r.With(s.auth.RequireStaff).Post("/", s.createLadder)
			r.Post("/{ladderID}/join", s.joinLadder)
			r.Post("/{ladderID}/queue", s.queueLadder)
			r.Get("/{ladderID}/leaderboard", s.leaderboard)
			r.Get("/{ladderID}/leaderboard.xlsx", s.leaderboardXLSX)
			r.Get("/{ladderID}/leaderboard.png", s.leaderboardPNG)
			r.With(s.auth.RequireStaff).Post("/{ladderID}/season-close", s.seasonClose)
			r.Post("/matches/{matchID}/report", s.reportLadderMatch)
		})

		r.Route("/arbitration", func(r chi.Router) {
			r.Use(s.auth.RequireStaff)
			r.Get("/tickets", s.listOpenTickets)
			r.Get("/tickets/{ticketID}", s.getTicket)
			r.Post("/tickets/{ticketID}/decide", s.decideTicket)
		})
	})

	return r
}
