package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/service"
)

const (
	ResetDonePath     = "/accounts/password/reset/done/"
	ResetCompletePath = "/accounts/password/reset/complete/"
)

type PasswordResetHandler struct {
	resets *service.PasswordResetService
	pages  *Pages
	logger *slog.Logger
}

func NewPasswordResetHandler(resets *service.PasswordResetService, pages *Pages, logger *slog.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{resets: resets, pages: pages, logger: logger}
}

// HTTP: GET /accounts/password/reset/
func (h *PasswordResetHandler) HandleRequestPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, "password_reset", pageData{})
}

// HandleRequest redirects to the done page for any non-empty email, matching
// an account or not.
//
// HTTP: POST /accounts/password/reset/
func (h *PasswordResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Error(w, http.StatusBadRequest, "The form could not be read.", nil)
		return
	}

	err := h.resets.RequestPasswordReset(r.Context(), r.PostForm.Get("email"))
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			h.pages.Render(w, http.StatusOK, "password_reset", pageData{
				Values: pickValues(r.PostForm, "email"),
				Errors: apperror.FieldsOf(err),
			})
			return
		}
		h.pages.ServerError(w, r, err)
		return
	}
	http.Redirect(w, r, ResetDonePath, http.StatusFound)
}

// HTTP: GET /accounts/password/reset/done/
func (h *PasswordResetHandler) HandleDone(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, "password_reset_done", pageData{})
}

// HandleConfirmPage shows the new password form, or an explanation when the
// link is unknown, used or expired.
//
// HTTP: GET /accounts/password/reset/confirm/{token}/
func (h *PasswordResetHandler) HandleConfirmPage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	_, err := h.resets.CheckResetToken(r.Context(), token)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		h.pages.ServerError(w, r, err)
		return
	}
	h.pages.Render(w, http.StatusOK, "password_reset_confirm", pageData{
		ValidLink: err == nil,
		Token:     token,
	})
}

// HTTP: POST /accounts/password/reset/confirm/{token}/
func (h *PasswordResetHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Error(w, http.StatusBadRequest, "The form could not be read.", nil)
		return
	}
	token := chi.URLParam(r, "token")

	err := h.resets.ConfirmPasswordReset(r.Context(), token,
		r.PostForm.Get("password1"), r.PostForm.Get("password2"))
	switch {
	case err == nil:
		http.Redirect(w, r, ResetCompletePath, http.StatusFound)
	case errors.Is(err, apperror.ErrNotFound):
		h.pages.Render(w, http.StatusOK, "password_reset_confirm", pageData{Token: token})
	case errors.Is(err, apperror.ErrValidation):
		h.pages.Render(w, http.StatusOK, "password_reset_confirm", pageData{
			ValidLink: true,
			Token:     token,
			Errors:    apperror.FieldsOf(err),
		})
	default:
		h.pages.ServerError(w, r, err)
	}
}

// HTTP: GET /accounts/password/reset/complete/
func (h *PasswordResetHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, "password_reset_complete", pageData{})
}
