package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
)

const userColumns = `id, username, email, password_hash, first_name, last_name,
	is_staff, is_superuser, github_id, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.GitHubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func insertUser(ctx context.Context, q querier, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := q.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.IsStaff,
		user.IsSuperuser,
		user.GitHubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return userConflict(err, user)
	}
	return nil
}

func userConflict(err error, user *model.User) error {
	field, ok := uniqueField(err)
	if !ok {
		return fmt.Errorf("postgres: inserting user %q: %w", user.Username, err)
	}
	switch field {
	case "email":
		return apperror.Conflict("user", "email", user.Email)
	case "github_id":
		return apperror.Conflict("user", "github_id", fmt.Sprint(*user.GitHubID))
	default:
		return apperror.Conflict("user", "username", user.Username)
	}
}

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	return insertUser(ctx, db.pool, user)
}

func (db *DB) CreateUserWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		profile.UserID = user.ID
		return insertProfile(ctx, tx, profile)
	})
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("postgres: getting user by username %q: %w", username, err)
	}
	return u, nil
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = $1`, githubID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("postgres: getting user by github_id %d: %w", githubID, err)
	}
	return u, nil
}

func (db *DB) ListUsersByEmail(ctx context.Context, email string) ([]model.User, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE email <> '' AND LOWER(email) = LOWER($1)
		 ORDER BY created_at`, email)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing users by email: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: checking username: %w", err)
	}
	return exists, nil
}

func (db *DB) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email <> '' AND LOWER(email) = LOWER($1))`,
		email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: checking email: %w", err)
	}
	return exists, nil
}

func (db *DB) SetPassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, userID)
	if err != nil {
		return fmt.Errorf("postgres: setting password for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}
