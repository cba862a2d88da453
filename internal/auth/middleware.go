package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// contextKey is unexported so no other package can read or shadow the value.
type contextKey string

const userIDKey contextKey = "userID"

// Sessions issues and reads the session cookie.
type Sessions struct {
	tokens     *TokenService
	cookieName string
	secure     bool
}

// NewSessions wraps tokens with cookie settings. secure should be true
// whenever the site is served over HTTPS.
func NewSessions(tokens *TokenService, cookieName string, secure bool) *Sessions {
	return &Sessions{tokens: tokens, cookieName: cookieName, secure: secure}
}

// CookieName is the name of the session cookie.
func (s *Sessions) CookieName() string {
	return s.cookieName
}

// Issue signs a token for userID and sets it as an HttpOnly cookie.
func (s *Sessions) Issue(w http.ResponseWriter, userID string) error {
	token, err := s.tokens.Generate(userID)
	if err != nil {
		return err
	}
	s.Set(w, token)
	return nil
}

// Set stores an already signed token as the session cookie.
func (s *Sessions) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear deletes the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserID validates the session cookie of r and returns its user id.
func (s *Sessions) UserID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return "", err
	}
	return s.tokens.Validate(cookie.Value)
}

// RequireAuth protects JSON endpoints: no valid session means 401.
func (s *Sessions) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.UserID(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// RequireLogin protects HTML pages: anonymous requests are redirected to
// loginPath with the original path in ?next=.
func (s *Sessions) RequireLogin(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := s.UserID(r)
			if err != nil {
				target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth attaches the user id when a valid session exists and never
// blocks the request.
func (s *Sessions) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, err := s.UserID(r); err == nil && userID != "" {
			r = r.WithContext(WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID stores userID in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
