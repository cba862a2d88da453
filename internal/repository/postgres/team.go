package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

func (db *DB) CreateTeam(ctx context.Context, team *model.Team, ownerID string) error {
	team.ID = xid.New().String()
	team.CreatedBy = ownerID
	team.CreatedAt = time.Now().UTC()

	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO teams (id, name, created_by, created_at) VALUES ($1, $2, $3, $4)`,
			team.ID, team.Name, team.CreatedBy, team.CreatedAt)
		if err != nil {
			return conflictOr(err, "team", team.Name, "inserting team")
		}
		return setTeam(ctx, tx, ownerID, &team.ID)
	})
}

func (db *DB) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	var t model.Team
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, created_by, created_at FROM teams WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("team", id)
		}
		return nil, fmt.Errorf("postgres: getting team %s: %w", id, err)
	}
	return &t, nil
}

func (db *DB) ListTeams(ctx context.Context, opts repository.ListOptions) ([]model.Team, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := max(opts.Offset, 0)

	rows, err := db.pool.Query(ctx,
		`SELECT id, name, created_by, created_at
		 FROM teams ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing teams: %w", err)
	}
	teams, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.Team])
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning teams: %w", err)
	}
	return teams, nil
}

func (db *DB) ListMembers(ctx context.Context, teamID string) ([]model.Member, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT u.id, u.username, u.first_name, u.last_name, p.job
		 FROM profiles p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.team_id = $1
		 ORDER BY u.username`, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing members of %s: %w", teamID, err)
	}
	members, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.Member])
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning members: %w", err)
	}
	return members, nil
}

func (db *DB) DeleteTeam(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE profiles SET team_id = NULL WHERE team_id = $1`, id); err != nil {
			return fmt.Errorf("postgres: detaching members of %s: %w", id, err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("postgres: deleting team %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.NotFound("team", id)
		}
		return nil
	})
}
