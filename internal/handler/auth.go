package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/service"
)

const (
	LoginPath      = "/accounts/login/"
	oauthStateName = "oauth_state"
)

// AuthHandler serves login, logout and the optional GitHub login.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *auth.Sessions
	github   *auth.GitHubProvider // nil when GitHub login is not configured
	pages    *Pages
	logger   *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	sessions *auth.Sessions,
	github *auth.GitHubProvider,
	pages *Pages,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		sessions: sessions,
		github:   github,
		pages:    pages,
		logger:   logger,
	}
}

// HandleLoginPage renders the login form.
//
// HTTP: GET /accounts/login/
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, "login", pageData{
		Next:   safeNext(r.URL.Query().Get("next")),
		GitHub: h.github != nil,
	})
}

// HandleLogin checks the credentials. Success sets the session cookie and
// redirects to next; failure re-renders the form with 200 and one generic
// message.
//
// HTTP: POST /accounts/login/
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Error(w, http.StatusBadRequest, "The form could not be read.", nil)
		return
	}
	username := r.PostForm.Get("username")
	next := safeNext(r.PostForm.Get("next"))

	result, err := h.auth.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.pages.Render(w, http.StatusOK, "login", pageData{
				Values:       pickValues(r.PostForm, "username"),
				Next:         next,
				InvalidLogin: true,
				GitHub:       h.github != nil,
			})
			return
		}
		h.pages.ServerError(w, r, err)
		return
	}

	h.sessions.Set(w, result.Token)
	http.Redirect(w, r, next, http.StatusFound)
}

// HandleLogout clears the session cookie. The JWT itself stays valid until
// it expires, but the browser no longer has it.
//
// HTTP: GET or POST /accounts/logout/
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		h.logger.Info("user logged out", slog.String("userID", userID))
	}
	h.sessions.Clear(w)
	http.Redirect(w, r, LoginPath, http.StatusFound)
}

// HandleGitHubLogin stores a random state in a short-lived cookie and sends
// the browser to GitHub.
//
// HTTP: GET /accounts/github/login/
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback checks the state, exchanges the code and logs the
// user in, creating the account on first use.
//
// HTTP: GET /accounts/github/callback/?code=...&state=...
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		h.pages.Error(w, http.StatusBadRequest, "Invalid login state. Please try again.", nil)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateName, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.pages.Error(w, http.StatusBadRequest, "Missing authorization code.", nil)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}

	h.sessions.Set(w, result.Token)
	http.Redirect(w, r, "/", http.StatusFound)
}
