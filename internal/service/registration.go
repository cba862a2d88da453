package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/metrics"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

// RegistrationForm is everything a visitor may submit when signing up.
// There are no privilege fields: staff and superuser accounts are created
// only by cmd/createsuperuser.
type RegistrationForm struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"required,email"`
	FirstName string `form:"first_name" validate:"required,max=150"`
	LastName  string `form:"last_name" validate:"required,max=150"`
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1,bcrypt"`

	// Validated through profileFields.
	Job     string `form:"job"`
	Gender  string `form:"gender"`
	Country string `form:"country"`
	Skills  string `form:"skills"`
}

// superuserForm holds the createsuperuser input. Email is optional.
type superuserForm struct {
	Username string `form:"username" validate:"required,max=150,username"`
	Email    string `form:"email" validate:"omitempty,email"`
	Password string `form:"password1" validate:"required,bcrypt"`
}

func (f RegistrationForm) profile() profileFields {
	return profileFields{Job: f.Job, Gender: f.Gender, Country: f.Country, Skills: f.Skills}
}

type RegistrationService struct {
	store     repository.Store
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewRegistrationService(store repository.Store, passwords *auth.PasswordService, logger *slog.Logger) *RegistrationService {
	return &RegistrationService{store: store, passwords: passwords, logger: logger}
}

// Register validates the form and creates the user and the profile in one
// transaction. Values are stored exactly as submitted. All field problems
// are reported together in one apperror.ErrValidation.
func (s *RegistrationService) Register(ctx context.Context, form RegistrationForm) (*model.User, error) {
	countryID, err := s.validate(ctx, form)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			metrics.Registrations.WithLabelValues(metrics.ResultInvalid).Inc()
		}
		return nil, err
	}

	hash, err := s.passwords.Hash(form.Password1)
	if err != nil {
		return nil, fmt.Errorf("service/registration: hashing password: %w", err)
	}

	user := &model.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
	}
	profile := &model.Profile{
		Job:       form.Job,
		Gender:    form.Gender,
		CountryID: countryID,
		Skills:    form.Skills,
	}

	if err := s.store.CreateUserWithProfile(ctx, user, profile); err != nil {
		if fe := conflictFields(err); fe != nil {
			metrics.Registrations.WithLabelValues(metrics.ResultInvalid).Inc()
			return nil, fe.Err()
		}
		metrics.Registrations.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("service/registration: creating %q: %w", form.Username, err)
	}

	metrics.Registrations.WithLabelValues(metrics.ResultSuccess).Inc()
	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func (s *RegistrationService) validate(ctx context.Context, form RegistrationForm) (int64, error) {
	fe := apperror.FieldErrors{}
	if err := checkForm(fe, form); err != nil {
		return 0, fmt.Errorf("service/registration: %w", err)
	}
	if err := s.checkTaken(ctx, fe, form.Username, form.Email); err != nil {
		return 0, err
	}

	countryID, err := form.profile().validate(ctx, s.store, fe)
	if err != nil {
		return 0, fmt.Errorf("service/registration: %w", err)
	}
	return countryID, fe.Err()
}

// checkTaken looks up username and email unless their format already failed.
func (s *RegistrationService) checkTaken(ctx context.Context, fe apperror.FieldErrors, username, email string) error {
	if username != "" && !fe.Has("username") {
		taken, err := s.store.UsernameExists(ctx, username)
		if err != nil {
			return fmt.Errorf("service/registration: checking username: %w", err)
		}
		if taken {
			fe.Add("username", MsgDuplicateUsername)
		}
	}
	if email != "" && !fe.Has("email") {
		taken, err := s.store.EmailExists(ctx, email)
		if err != nil {
			return fmt.Errorf("service/registration: checking email: %w", err)
		}
		if taken {
			fe.Add("email", MsgDuplicateEmail)
		}
	}
	return nil
}

// CreateSuperuser creates a staff superuser without a profile. It is the only
// path that sets the privilege flags. Email may be empty.
func (s *RegistrationService) CreateSuperuser(ctx context.Context, username, email, password string) (*model.User, error) {
	fe := apperror.FieldErrors{}
	if err := checkForm(fe, superuserForm{Username: username, Email: email, Password: password}); err != nil {
		return nil, fmt.Errorf("service/registration: %w", err)
	}
	if err := s.checkTaken(ctx, fe, username, email); err != nil {
		return nil, err
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/registration: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsStaff:      true,
		IsSuperuser:  true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if fe := conflictFields(err); fe != nil {
			return nil, fe.Err()
		}
		return nil, fmt.Errorf("service/registration: creating superuser %q: %w", username, err)
	}

	s.logger.Warn("superuser created",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// conflictFields turns a unique violation that slipped past the existence
// checks (two concurrent signups) into the matching form error.
func conflictFields(err error) apperror.FieldErrors {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrConflict) {
		return nil
	}
	switch appErr.Field {
	case "username":
		return apperror.FieldErrors{"username": {MsgDuplicateUsername}}
	case "email":
		return apperror.FieldErrors{"email": {MsgDuplicateEmail}}
	default:
		return nil
	}
}
