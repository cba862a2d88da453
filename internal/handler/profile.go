package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/service"
)

var profileFormFields = []string{"job", "gender", "country", "skills"}

// ProfileHandler lets a logged-in user create or edit their profile. It is
// also the way out of the no-profile state of the landing page.
type ProfileHandler struct {
	auth     *service.AuthService
	profiles *service.ProfileService
	pages    *Pages
	logger   *slog.Logger
}

func NewProfileHandler(authService *service.AuthService, profiles *service.ProfileService, pages *Pages, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{auth: authService, profiles: profiles, pages: pages, logger: logger}
}

// HTTP: GET /accounts/profile/ (login required)
func (h *ProfileHandler) HandleProfilePage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	data := pageData{User: user}
	profile, err := h.profiles.Get(r.Context(), user.ID)
	switch {
	case err == nil:
		data.Values = url.Values{
			"job":     {profile.Job},
			"gender":  {profile.Gender},
			"country": {strconv.FormatInt(profile.CountryID, 10)},
			"skills":  {profile.Skills},
		}
	case errors.Is(err, apperror.ErrNotFound):
		data.Missing = true
	default:
		h.pages.ServerError(w, r, err)
		return
	}
	h.render(w, r, data)
}

// HTTP: POST /accounts/profile/ (login required)
func (h *ProfileHandler) HandleSaveProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.pages.Error(w, http.StatusBadRequest, "The form could not be read.", user)
		return
	}

	values := pickValues(r.PostForm, profileFormFields...)
	_, err := h.profiles.Save(r.Context(), user.ID, service.ProfileForm{
		Job:     values.Get("job"),
		Gender:  values.Get("gender"),
		Country: values.Get("country"),
		Skills:  values.Get("skills"),
	})
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			h.render(w, r, pageData{User: user, Values: values, Errors: apperror.FieldsOf(err)})
			return
		}
		h.pages.ServerError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *ProfileHandler) render(w http.ResponseWriter, r *http.Request, data pageData) {
	countries, err := h.profiles.Countries(r.Context())
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	data.Countries = countries
	data.Genders = model.GenderChoices
	h.pages.Render(w, http.StatusOK, "profile", data)
}

// currentUser loads the session user. A session whose user is gone is
// treated like no session at all.
func (h *ProfileHandler) currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	return sessionUser(w, r, h.auth, h.pages)
}

func sessionUser(w http.ResponseWriter, r *http.Request, authService *service.AuthService, pages *Pages) (*model.User, bool) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := authService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return nil, false
		}
		pages.ServerError(w, r, err)
		return nil, false
	}
	return user, true
}
