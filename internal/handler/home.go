package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/service"
)

const profilePath = "/accounts/profile/"

// HomeHandler serves the landing page and the team forms shown on it.
type HomeHandler struct {
	gate     *service.HomeGate
	teams    *service.TeamService
	sessions *auth.Sessions
	pages    *Pages
	logger   *slog.Logger
}

func NewHomeHandler(
	gate *service.HomeGate,
	teams *service.TeamService,
	sessions *auth.Sessions,
	pages *Pages,
	logger *slog.Logger,
) *HomeHandler {
	return &HomeHandler{gate: gate, teams: teams, sessions: sessions, pages: pages, logger: logger}
}

// HandleHome renders one of three pages depending on the home state:
//
//	no profile -> 500 error page linking to the profile form
//	no team    -> 200 with "You're not part of a team" and the team forms
//	ready      -> 200 with the team and its members
//
// HTTP: GET / (login required)
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.renderHome(w, r, pageData{})
}

func (h *HomeHandler) renderHome(w http.ResponseWriter, r *http.Request, data pageData) {
	userID, _ := auth.UserIDFromContext(r.Context())

	view, err := h.gate.Resolve(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			h.logger.Warn("session refers to a missing user", slog.String("userID", userID))
			h.sessions.Clear(w)
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		h.pages.ServerError(w, r, err)
		return
	}

	data.User = view.User
	data.Home = view
	switch view.State {
	case service.HomeNoProfile:
		h.pages.Render(w, http.StatusInternalServerError, "home_no_profile", data)
	case service.HomeNoTeam:
		h.pages.Render(w, http.StatusOK, "home_no_team", data)
	default:
		h.pages.Render(w, http.StatusOK, "home", data)
	}
}

// HandleCreateTeam creates a team from the landing page form.
//
// HTTP: POST /teams/
func (h *HomeHandler) HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Error(w, http.StatusBadRequest, "The form could not be read.", nil)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	_, err := h.teams.Create(r.Context(), userID, r.PostForm.Get("name"))
	if err != nil {
		h.teamFormError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// HTTP: POST /teams/{id}/join/
func (h *HomeHandler) HandleJoinTeam(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.teams.Join(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.teamFormError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// HTTP: POST /teams/leave/
func (h *HomeHandler) HandleLeaveTeam(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.teams.Leave(r.Context(), userID); err != nil {
		h.teamFormError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *HomeHandler) teamFormError(w http.ResponseWriter, r *http.Request, err error) {
	fields := apperror.FieldsOf(err)
	switch {
	case fields.Has("profile"):
		http.Redirect(w, r, profilePath, http.StatusFound)
	case errors.Is(err, apperror.ErrValidation):
		h.renderHome(w, r, pageData{Values: pickValues(r.PostForm, "name"), Errors: fields})
	case errors.Is(err, apperror.ErrNotFound):
		h.pages.Error(w, http.StatusNotFound, "That team does not exist.", nil)
	default:
		h.pages.ServerError(w, r, err)
	}
}
