package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
)

func insertProfile(ctx context.Context, ex execer, p *model.Profile) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := ex.ExecContext(ctx,
		`INSERT INTO profiles (user_id, job, gender, country_id, skills, team_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID,
		p.Job,
		p.Gender,
		p.CountryID,
		p.Skills,
		nullString(p.TeamID),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting profile for %s: %w", p.UserID, err)
	}
	return nil
}

// GetProfile returns apperror.ErrNotFound when the user has no profile.
func (db *DB) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var (
		p      model.Profile
		teamID sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, job, gender, country_id, skills, team_id, created_at, updated_at
		 FROM profiles WHERE user_id = ?`,
		userID,
	).Scan(
		&p.UserID,
		&p.Job,
		&p.Gender,
		&p.CountryID,
		&p.Skills,
		&teamID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", userID, err)
	}
	if teamID.Valid {
		p.TeamID = &teamID.String
	}
	return &p, nil
}

// SaveProfile upserts on user_id. team_id is only written on insert.
func (db *DB) SaveProfile(ctx context.Context, p *model.Profile) error {
	now := time.Now().UTC()
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO profiles (user_id, job, gender, country_id, skills, team_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			job = excluded.job,
			gender = excluded.gender,
			country_id = excluded.country_id,
			skills = excluded.skills,
			updated_at = excluded.updated_at`,
		p.UserID,
		p.Job,
		p.Gender,
		p.CountryID,
		p.Skills,
		nullString(p.TeamID),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving profile for %s: %w", p.UserID, err)
	}
	return nil
}

func (db *DB) SetTeam(ctx context.Context, userID string, teamID *string) error {
	return setTeam(ctx, db.conn, userID, teamID)
}

func setTeam(ctx context.Context, ex execer, userID string, teamID *string) error {
	res, err := ex.ExecContext(ctx,
		`UPDATE profiles SET team_id = ?, updated_at = ? WHERE user_id = ?`,
		nullString(teamID), time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("sqlite: setting team for %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("profile", userID)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
