package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/metrics"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

// MsgInvalidLogin is shown for every failed login, whatever the cause.
const MsgInvalidLogin = "Your username and password didn't match. Please try again."

// maxUsernameSuffix bounds the search for a free username on GitHub signup.
const maxUsernameSuffix = 100

// AuthService checks credentials and issues session tokens.
//
//	AuthHandler (HTTP) -> AuthService -> UserRepository
//	                                  -> TokenService (JWT)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the signed session token so the handler
// can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Login verifies a username and password.
//
// Every failure (missing field, unknown user, account without a password,
// wrong password) returns the same apperror.ErrUnauthorized. Unknown users
// still pay for a bcrypt comparison so response time does not reveal
// whether the username exists.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	fail := func(reason string) (*AuthResult, error) {
		metrics.Logins.WithLabelValues("password", metrics.ResultFailure).Inc()
		s.logger.Info("login failed",
			slog.String("username", username),
			slog.String("reason", reason),
		)
		return nil, apperror.Unauthorized(MsgInvalidLogin)
	}

	if username == "" || password == "" {
		return fail("missing credentials")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
		}
		_ = s.passwords.VerifyDummy(password)
		return fail("unknown user")
	}

	if !user.HasUsablePassword() {
		_ = s.passwords.VerifyDummy(password)
		return fail("no usable password")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordInvalid) {
			s.logger.Error("stored password hash is unreadable",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return fail("wrong password")
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	metrics.Logins.WithLabelValues("password", metrics.ResultSuccess).Inc()
	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return result, nil
}

// LoginOrRegisterGitHub finds the account linked to a GitHub identity or
// creates one. New accounts have no profile and no password; the username is
// the GitHub login, suffixed with -1, -2, ... when taken. The email is kept
// only when no other account uses it.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, errors.New("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.createGitHubUser(ctx, ghUser)
		if err != nil {
			metrics.Logins.WithLabelValues("github", metrics.ResultError).Inc()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up github user %d: %w", ghUser.ID, err)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	metrics.Logins.WithLabelValues("github", metrics.ResultSuccess).Inc()
	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)
	return result, nil
}

func (s *AuthService) createGitHubUser(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, error) {
	email := ghUser.Email
	if email != "" {
		taken, err := s.users.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("service/auth: checking email: %w", err)
		}
		if taken {
			email = ""
		}
	}

	githubID := ghUser.ID
	for i := 0; i <= maxUsernameSuffix; i++ {
		username := ghUser.Login
		if i > 0 {
			username += "-" + strconv.Itoa(i)
		}
		taken, err := s.users.UsernameExists(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("service/auth: checking username: %w", err)
		}
		if taken {
			continue
		}

		user := &model.User{
			Username:  username,
			Email:     email,
			FirstName: ghUser.Name,
			GitHubID:  &githubID,
		}
		err = s.users.CreateUser(ctx, user)
		if err == nil {
			s.logger.Info("user created from GitHub login",
				slog.String("userID", user.ID),
				slog.String("username", username),
			)
			return user, nil
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Field == "username" {
			continue
		}
		return nil, fmt.Errorf("service/auth: creating github user %d: %w", ghUser.ID, err)
	}
	return nil, fmt.Errorf("service/auth: no free username for GitHub login %q", ghUser.Login)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for a session's user id.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, errors.New("service/auth: user ID must not be empty")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken returns the user id encoded in a session token.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
