package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/mailer"
	"github.com/sakif/teamboard/internal/metrics"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

// ResetConfirmPath is the route prefix of the link sent by email.
const ResetConfirmPath = "/accounts/password/reset/confirm/"

type PasswordResetService struct {
	users     repository.UserRepository
	tokens    repository.ResetTokenRepository
	passwords *auth.PasswordService
	mailer    mailer.Mailer
	baseURL   string
	ttl       time.Duration
	logger    *slog.Logger
}

func NewPasswordResetService(
	users repository.UserRepository,
	tokens repository.ResetTokenRepository,
	passwords *auth.PasswordService,
	m mailer.Mailer,
	baseURL string,
	ttl time.Duration,
	logger *slog.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		mailer:    m,
		baseURL:   strings.TrimRight(baseURL, "/"),
		ttl:       ttl,
		logger:    logger,
	}
}

// RequestPasswordReset mails a one-time link to every account registered
// with email that has a usable password.
//
// An empty email is a validation error. Any other value succeeds whether or
// not an account matches, so the caller cannot learn which addresses are
// registered. Mail delivery failures are logged, not returned, for the same
// reason.
func (s *PasswordResetService) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		metrics.PasswordResets.WithLabelValues("request", metrics.ResultInvalid).Inc()
		return apperror.ValidationFailed("email", apperror.MsgRequired)
	}

	users, err := s.users.ListUsersByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("service/password_reset: listing users: %w", err)
	}
	if len(users) == 0 {
		s.logger.Info("password reset requested for unknown email")
	}

	for i := range users {
		user := &users[i]
		if !user.HasUsablePassword() {
			continue
		}
		if err := s.sendLink(ctx, user); err != nil {
			return err
		}
	}

	metrics.PasswordResets.WithLabelValues("request", metrics.ResultSuccess).Inc()
	return nil
}

func (s *PasswordResetService) sendLink(ctx context.Context, user *model.User) error {
	token := uuid.NewString()
	if err := s.tokens.Save(ctx, token, user.ID, s.ttl); err != nil {
		return fmt.Errorf("service/password_reset: saving token for %s: %w", user.ID, err)
	}

	data := mailer.PasswordResetData{
		Username:  user.Username,
		ResetLink: s.baseURL + ResetConfirmPath + token + "/",
		ExpiresIn: s.ttl,
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, data); err != nil {
		metrics.PasswordResets.WithLabelValues("request", metrics.ResultError).Inc()
		s.logger.Error("sending password reset email",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	s.logger.Info("password reset email sent", slog.String("userID", user.ID))
	return nil
}

// CheckResetToken returns the user a live token belongs to without
// consuming it. Unknown, used and expired tokens return apperror.ErrNotFound.
func (s *PasswordResetService) CheckResetToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.NotFound("reset token", "")
	}
	userID, err := s.tokens.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/password_reset: loading user %s: %w", userID, err)
	}
	return user, nil
}

type setPasswordForm struct {
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1,bcrypt"`
}

// ConfirmPasswordReset sets a new password. The token is consumed only once
// the passwords validate, so a typo does not burn the link.
func (s *PasswordResetService) ConfirmPasswordReset(ctx context.Context, token, password1, password2 string) error {
	if _, err := s.CheckResetToken(ctx, token); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			metrics.PasswordResets.WithLabelValues("confirm", metrics.ResultFailure).Inc()
		}
		return err
	}

	fe := apperror.FieldErrors{}
	if err := checkForm(fe, setPasswordForm{Password1: password1, Password2: password2}); err != nil {
		return fmt.Errorf("service/password_reset: %w", err)
	}
	if err := fe.Err(); err != nil {
		metrics.PasswordResets.WithLabelValues("confirm", metrics.ResultInvalid).Inc()
		return err
	}

	hash, err := s.passwords.Hash(password1)
	if err != nil {
		return fmt.Errorf("service/password_reset: hashing password: %w", err)
	}

	userID, err := s.tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			metrics.PasswordResets.WithLabelValues("confirm", metrics.ResultFailure).Inc()
		}
		return err
	}
	if err := s.users.SetPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/password_reset: setting password for %s: %w", userID, err)
	}

	metrics.PasswordResets.WithLabelValues("confirm", metrics.ResultSuccess).Inc()
	s.logger.Info("password reset completed", slog.String("userID", userID))
	return nil
}
