package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

// ProfileForm is the editable part of a profile.
type ProfileForm struct {
	Job     string
	Gender  string
	Country string
	Skills  string
}

type ProfileService struct {
	profiles  repository.ProfileRepository
	countries repository.CountryRepository
	logger    *slog.Logger
}

func NewProfileService(profiles repository.ProfileRepository, countries repository.CountryRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, countries: countries, logger: logger}
}

// Get returns apperror.ErrNotFound when the user has no profile yet.
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	return s.profiles.GetProfile(ctx, userID)
}

// Save validates the form and creates or updates the user's profile. Team
// membership is not affected.
func (s *ProfileService) Save(ctx context.Context, userID string, form ProfileForm) (*model.Profile, error) {
	fe := apperror.FieldErrors{}
	fields := profileFields{Job: form.Job, Gender: form.Gender, Country: form.Country, Skills: form.Skills}
	countryID, err := fields.validate(ctx, s.countries, fe)
	if err != nil {
		return nil, fmt.Errorf("service/profile: %w", err)
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	profile := &model.Profile{
		UserID:    userID,
		Job:       form.Job,
		Gender:    form.Gender,
		CountryID: countryID,
		Skills:    form.Skills,
	}
	if err := s.profiles.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("service/profile: saving profile of %s: %w", userID, err)
	}

	s.logger.Info("profile saved", slog.String("userID", userID))
	return s.profiles.GetProfile(ctx, userID)
}

// Countries lists the choices of the country select box.
func (s *ProfileService) Countries(ctx context.Context) ([]model.Country, error) {
	countries, err := s.countries.ListCountries(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing countries: %w", err)
	}
	return countries, nil
}
