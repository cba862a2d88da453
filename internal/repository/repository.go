// Package repository declares the storage interfaces used by the service layer.
//
// Two SQL backends implement Store (repository/sqlite and repository/postgres)
// and two backends implement ResetTokenRepository (repository/redis and
// repository/memory). Services depend only on these interfaces.
//
// Lookups of a single row return an error wrapping apperror.ErrNotFound when
// the row is absent, never a zero value. Unique violations are reported as
// apperror.ErrConflict with Field set to the clashing column.
package repository

import (
	"context"
	"time"

	"github.com/sakif/teamboard/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	// CreateUserWithProfile inserts both rows in one transaction. Neither row
	// exists afterwards if either insert fails.
	CreateUserWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// ListUsersByEmail matches case-insensitively.
	ListUsersByEmail(ctx context.Context, email string) ([]model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	SetPassword(ctx context.Context, userID, passwordHash string) error
}

type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	// SaveProfile inserts the profile or updates job, gender, country and
	// skills of an existing one. Team membership is left untouched.
	SaveProfile(ctx context.Context, profile *model.Profile) error
	// SetTeam changes membership; a nil teamID removes the user from any team.
	SetTeam(ctx context.Context, userID string, teamID *string) error
}

type CountryRepository interface {
	// SeedCountries inserts the names that are not present yet, in order.
	SeedCountries(ctx context.Context, names []string) error
	ListCountries(ctx context.Context) ([]model.Country, error)
	GetCountry(ctx context.Context, id int64) (*model.Country, error)
}

type TeamRepository interface {
	// CreateTeam inserts the team and moves ownerID into it in one transaction.
	CreateTeam(ctx context.Context, team *model.Team, ownerID string) error
	GetTeam(ctx context.Context, id string) (*model.Team, error)
	ListTeams(ctx context.Context, opts ListOptions) ([]model.Team, error)
	ListMembers(ctx context.Context, teamID string) ([]model.Member, error)
	// DeleteTeam detaches all members and removes the team.
	DeleteTeam(ctx context.Context, id string) error
}

// Store is everything a SQL backend provides.
type Store interface {
	UserRepository
	ProfileRepository
	CountryRepository
	TeamRepository
	Ping(ctx context.Context) error
	Close() error
}

// ResetTokenRepository keeps one-time password reset tokens.
type ResetTokenRepository interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	// Lookup returns the user id for a live token without consuming it.
	Lookup(ctx context.Context, token string) (string, error)
	// Consume returns the user id and deletes the token atomically.
	Consume(ctx context.Context, token string) (string, error)
}
