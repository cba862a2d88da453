package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/metrics"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

// HomeState is what the landing page can show a logged-in user.
type HomeState int

const (
	// HomeNoProfile: the account has no profile (GitHub signups, accounts
	// created by an administrator).
	HomeNoProfile HomeState = iota + 1
	// HomeNoTeam: a profile exists but belongs to no team.
	HomeNoTeam
	// HomeReady: profile and team are both present.
	HomeReady
)

func (s HomeState) String() string {
	switch s {
	case HomeNoProfile:
		return "no_profile"
	case HomeNoTeam:
		return "no_team"
	case HomeReady:
		return "ready"
	default:
		return "unknown"
	}
}

// HomeView is everything the landing page renders. Profile is nil in
// HomeNoProfile; Team and Members are set only in HomeReady; Teams (the
// teams one could join) only in HomeNoTeam.
type HomeView struct {
	State   HomeState
	User    *model.User
	Profile *model.Profile
	Country *model.Country
	Team    *model.Team
	Members []model.Member
	Teams   []model.Team
}

// HomeGate resolves the landing page state once per request.
type HomeGate struct {
	store  repository.Store
	logger *slog.Logger
}

func NewHomeGate(store repository.Store, logger *slog.Logger) *HomeGate {
	return &HomeGate{store: store, logger: logger}
}

// Resolve loads the user and decides the state. An unknown userID returns
// apperror.ErrNotFound so the caller can end the stale session.
func (g *HomeGate) Resolve(ctx context.Context, userID string) (*HomeView, error) {
	user, err := g.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/home: loading user %s: %w", userID, err)
	}
	view := &HomeView{User: user}

	profile, err := g.store.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		view.State = HomeNoProfile
		g.logger.Warn("logged-in user has no profile", slog.String("userID", userID))
		return g.done(view), nil
	case err != nil:
		return nil, fmt.Errorf("service/home: loading profile of %s: %w", userID, err)
	}
	view.Profile = profile

	if country, err := g.store.GetCountry(ctx, profile.CountryID); err == nil {
		view.Country = country
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/home: loading country %d: %w", profile.CountryID, err)
	}

	if profile.HasTeam() {
		team, err := g.store.GetTeam(ctx, *profile.TeamID)
		switch {
		case err == nil:
			members, err := g.store.ListMembers(ctx, team.ID)
			if err != nil {
				return nil, fmt.Errorf("service/home: listing members of %s: %w", team.ID, err)
			}
			view.State = HomeReady
			view.Team = team
			view.Members = members
			return g.done(view), nil
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("service/home: loading team %s: %w", *profile.TeamID, err)
		}
	}

	teams, err := g.store.ListTeams(ctx, repository.ListOptions{Limit: DefaultListLimit})
	if err != nil {
		return nil, fmt.Errorf("service/home: listing teams: %w", err)
	}
	view.State = HomeNoTeam
	view.Teams = teams
	return g.done(view), nil
}

func (g *HomeGate) done(view *HomeView) *HomeView {
	metrics.HomeStates.WithLabelValues(view.State.String()).Inc()
	return view
}
