package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
)

func insertProfile(ctx context.Context, q querier, p *model.Profile) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := q.Exec(ctx,
		`INSERT INTO profiles (user_id, job, gender, country_id, skills, team_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.UserID, p.Job, p.Gender, p.CountryID, p.Skills, p.TeamID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: inserting profile for %s: %w", p.UserID, err)
	}
	return nil
}

func (db *DB) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, job, gender, country_id, skills, team_id, created_at, updated_at
		 FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Job, &p.Gender, &p.CountryID, &p.Skills, &p.TeamID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, fmt.Errorf("postgres: getting profile %s: %w", userID, err)
	}
	return &p, nil
}

func (db *DB) SaveProfile(ctx context.Context, p *model.Profile) error {
	now := time.Now().UTC()
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, job, gender, country_id, skills, team_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO UPDATE SET
			job = EXCLUDED.job,
			gender = EXCLUDED.gender,
			country_id = EXCLUDED.country_id,
			skills = EXCLUDED.skills,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.Job, p.Gender, p.CountryID, p.Skills, p.TeamID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: saving profile for %s: %w", p.UserID, err)
	}
	return nil
}

func (db *DB) SetTeam(ctx context.Context, userID string, teamID *string) error {
	return setTeam(ctx, db.pool, userID, teamID)
}

func setTeam(ctx context.Context, q querier, userID string, teamID *string) error {
	tag, err := q.Exec(ctx,
		`UPDATE profiles SET team_id = $1, updated_at = NOW() WHERE user_id = $2`,
		teamID, userID)
	if err != nil {
		return fmt.Errorf("postgres: setting team for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("profile", userID)
	}
	return nil
}
