package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/metrics"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/service"
)

// registrationFields are the only request fields registration reads.
var registrationFields = []string{
	"username", "email", "first_name", "last_name",
	"password1", "password2", "job", "gender", "country", "skills",
}

// privilegedFields are never accepted from the public form.
var privilegedFields = []string{"is_staff", "is_superuser"}

type RegistrationHandler struct {
	registration *service.RegistrationService
	profiles     *service.ProfileService
	sessions     *auth.Sessions
	pages        *Pages
	logger       *slog.Logger
}

func NewRegistrationHandler(
	registration *service.RegistrationService,
	profiles *service.ProfileService,
	sessions *auth.Sessions,
	pages *Pages,
	logger *slog.Logger,
) *RegistrationHandler {
	return &RegistrationHandler{
		registration: registration,
		profiles:     profiles,
		sessions:     sessions,
		pages:        pages,
		logger:       logger,
	}
}

// HTTP: GET /accounts/register/
func (h *RegistrationHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, pageData{})
}

// HandleRegister creates the account and logs the new user in.
//
// HTTP: POST /accounts/register/
func (h *RegistrationHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Error(w, http.StatusBadRequest, "The form could not be read.", nil)
		return
	}

	for _, field := range privilegedFields {
		if _, ok := r.PostForm[field]; ok {
			metrics.PrivilegedFieldAttempts.Inc()
			h.logger.Warn("registration tried to set a privilege flag",
				slog.String("field", field),
				slog.String("username", r.PostForm.Get("username")),
				slog.String("remoteAddr", r.RemoteAddr),
			)
		}
	}

	values := pickValues(r.PostForm, registrationFields...)
	form := service.RegistrationForm{
		Username:  values.Get("username"),
		Email:     values.Get("email"),
		FirstName: values.Get("first_name"),
		LastName:  values.Get("last_name"),
		Password1: values.Get("password1"),
		Password2: values.Get("password2"),
		Job:       values.Get("job"),
		Gender:    values.Get("gender"),
		Country:   values.Get("country"),
		Skills:    values.Get("skills"),
	}

	user, err := h.registration.Register(r.Context(), form)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			values.Del("password1")
			values.Del("password2")
			h.render(w, r, pageData{Values: values, Errors: apperror.FieldsOf(err)})
			return
		}
		h.pages.ServerError(w, r, err)
		return
	}

	if err := h.sessions.Issue(w, user.ID); err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *RegistrationHandler) render(w http.ResponseWriter, r *http.Request, data pageData) {
	countries, err := h.profiles.Countries(r.Context())
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	data.Countries = countries
	data.Genders = model.GenderChoices
	h.pages.Render(w, http.StatusOK, "register", data)
}
