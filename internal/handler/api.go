package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
	"github.com/sakif/teamboard/internal/service"
)

// APIHandler serves the JSON API under /api. Every route requires a session.
type APIHandler struct {
	auth     *service.AuthService
	profiles *service.ProfileService
	teams    *service.TeamService
	logger   *slog.Logger
}

func NewAPIHandler(
	authService *service.AuthService,
	profiles *service.ProfileService,
	teams *service.TeamService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{auth: authService, profiles: profiles, teams: teams, logger: logger}
}

// MeResponse is the body of GET /api/me. Profile is null for accounts
// without one.
type MeResponse struct {
	User    *model.User    `json:"user"`
	Profile *model.Profile `json:"profile"`
}

// TeamResponse is a team with its members.
type TeamResponse struct {
	*model.Team
	Members []model.Member `json:"members"`
}

type createTeamRequest struct {
	Name string `json:"name"`
}

// HTTP: GET /api/me
func (h *APIHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := MeResponse{User: user}
	profile, err := h.profiles.Get(r.Context(), userID)
	switch {
	case err == nil:
		resp.Profile = profile
	case !errors.Is(err, apperror.ErrNotFound):
		h.logger.Error("api/me: loading profile", slog.String("error", err.Error()))
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HTTP: GET /api/teams?limit=&offset=
func (h *APIHandler) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	opts := repository.ListOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, apperror.ValidationFailed("limit", "limit must be an integer"))
			return
		}
		opts.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, apperror.ValidationFailed("offset", "offset must be an integer"))
			return
		}
		opts.Offset = n
	}

	teams, err := h.teams.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	writeJSON(w, r, http.StatusOK, teams)
}

// HTTP: POST /api/teams  {"name": "..."}
func (h *APIHandler) HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	team, err := h.teams.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, TeamResponse{Team: team, Members: h.members(r, team.ID)})
}

// HTTP: GET /api/teams/{id}
func (h *APIHandler) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.teams.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, TeamResponse{Team: team, Members: h.members(r, team.ID)})
}

// HTTP: DELETE /api/teams/{id} (staff only)
func (h *APIHandler) HandleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.teams.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: POST /api/teams/{id}/join
func (h *APIHandler) HandleJoinTeam(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.teams.Join(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: POST /api/teams/leave
func (h *APIHandler) HandleLeaveTeam(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.teams.Leave(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// members never fails the request; an empty list is shown instead.
func (h *APIHandler) members(r *http.Request, teamID string) []model.Member {
	members, err := h.teams.Members(r.Context(), teamID)
	if err != nil {
		h.logger.Error("listing team members",
			slog.String("teamID", teamID),
			slog.String("error", err.Error()),
		)
	}
	if members == nil {
		members = []model.Member{}
	}
	return members
}
