package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

// CreateTeam inserts the team and makes ownerID a member in one transaction.
// A duplicate name comes back as apperror.ErrConflict on field "name".
func (db *DB) CreateTeam(ctx context.Context, team *model.Team, ownerID string) error {
	team.ID = xid.New().String()
	team.CreatedBy = ownerID
	team.CreatedAt = time.Now().UTC()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO teams (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`,
			team.ID, team.Name, team.CreatedBy, team.CreatedAt)
		if err != nil {
			return conflictOr(err, "team", team.Name, "inserting team")
		}
		return setTeam(ctx, tx, ownerID, &team.ID)
	})
}

func (db *DB) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	var t model.Team
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at FROM teams WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("team", id)
		}
		return nil, fmt.Errorf("sqlite: getting team %s: %w", id, err)
	}
	return &t, nil
}

// ListTeams returns teams ordered by name with LIMIT/OFFSET paging.
func (db *DB) ListTeams(ctx context.Context, opts repository.ListOptions) ([]model.Team, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, created_by, created_at
		 FROM teams
		 ORDER BY name
		 LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing teams: %w", err)
	}
	defer rows.Close()

	teams := make([]model.Team, 0, limit)
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating teams: %w", err)
	}
	return teams, nil
}

func (db *DB) ListMembers(ctx context.Context, teamID string) ([]model.Member, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.username, u.first_name, u.last_name, p.job
		 FROM profiles p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.team_id = ?
		 ORDER BY u.username`,
		teamID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing members of %s: %w", teamID, err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.FirstName, &m.LastName, &m.Job); err != nil {
			return nil, fmt.Errorf("sqlite: scanning member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating members: %w", err)
	}
	return members, nil
}

// DeleteTeam detaches members explicitly before deleting, so the result does
// not depend on the foreign_keys pragma of the current connection.
func (db *DB) DeleteTeam(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE profiles SET team_id = NULL WHERE team_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: detaching members of %s: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting team %s: %w", id, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("team", id)
		}
		return nil
	})
}
