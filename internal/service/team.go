package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

// TeamService manages teams and membership. Membership lives on the
// member's profile, so every membership change requires one.
type TeamService struct {
	teams    repository.TeamRepository
	profiles repository.ProfileRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewTeamService(
	teams repository.TeamRepository,
	profiles repository.ProfileRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *TeamService {
	return &TeamService{teams: teams, profiles: profiles, users: users, logger: logger}
}

// Create makes a new team and moves the creator into it.
func (s *TeamService) Create(ctx context.Context, userID, name string) (*model.Team, error) {
	name = strings.TrimSpace(name)

	fe := apperror.FieldErrors{}
	if err := checkForm(fe, teamForm{Name: name}); err != nil {
		return nil, fmt.Errorf("service/team: %w", err)
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}
	if err := s.requireProfile(ctx, userID); err != nil {
		return nil, err
	}

	team := &model.Team{Name: name, CreatedBy: userID}
	if err := s.teams.CreateTeam(ctx, team, userID); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("name", MsgDuplicateTeam)
		}
		return nil, fmt.Errorf("service/team: creating %q: %w", name, err)
	}

	s.logger.Info("team created",
		slog.String("teamID", team.ID),
		slog.String("name", team.Name),
		slog.String("createdBy", userID),
	)
	return team, nil
}

func (s *TeamService) List(ctx context.Context, opts repository.ListOptions) ([]model.Team, error) {
	teams, err := s.teams.ListTeams(ctx, normalizeListOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("service/team: listing teams: %w", err)
	}
	return teams, nil
}

func (s *TeamService) Get(ctx context.Context, id string) (*model.Team, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "team ID is required")
	}
	return s.teams.GetTeam(ctx, id)
}

func (s *TeamService) Members(ctx context.Context, teamID string) ([]model.Member, error) {
	members, err := s.teams.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("service/team: listing members of %s: %w", teamID, err)
	}
	return members, nil
}

// Join moves the user into teamID, leaving any previous team.
func (s *TeamService) Join(ctx context.Context, userID, teamID string) error {
	if _, err := s.Get(ctx, teamID); err != nil {
		return err
	}
	if err := s.requireProfile(ctx, userID); err != nil {
		return err
	}
	if err := s.profiles.SetTeam(ctx, userID, &teamID); err != nil {
		return fmt.Errorf("service/team: joining %s: %w", teamID, err)
	}
	s.logger.Info("user joined team", slog.String("userID", userID), slog.String("teamID", teamID))
	return nil
}

func (s *TeamService) Leave(ctx context.Context, userID string) error {
	if err := s.requireProfile(ctx, userID); err != nil {
		return err
	}
	if err := s.profiles.SetTeam(ctx, userID, nil); err != nil {
		return fmt.Errorf("service/team: leaving team: %w", err)
	}
	s.logger.Info("user left team", slog.String("userID", userID))
	return nil
}

// Delete removes a team and detaches its members. Only staff and
// superusers may do this.
func (s *TeamService) Delete(ctx context.Context, actorID, teamID string) error {
	actor, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("service/team: loading actor %s: %w", actorID, err)
	}
	if !actor.CanManageTeams() {
		s.logger.Warn("team delete refused",
			slog.String("userID", actorID),
			slog.String("teamID", teamID),
		)
		return apperror.Forbidden("only staff can delete teams")
	}
	if err := s.teams.DeleteTeam(ctx, teamID); err != nil {
		return err
	}
	s.logger.Info("team deleted", slog.String("teamID", teamID), slog.String("by", actorID))
	return nil
}

func (s *TeamService) requireProfile(ctx context.Context, userID string) error {
	_, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.ValidationFailed("profile", MsgProfileRequired)
	}
	if err != nil {
		return fmt.Errorf("service/team: loading profile of %s: %w", userID, err)
	}
	return nil
}
