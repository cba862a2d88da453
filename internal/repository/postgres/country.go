package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
)

// SeedCountries inserts missing names in order. INSERT ... WHERE NOT EXISTS
// does not consume sequence values for names that are already present.
func (db *DB) SeedCountries(ctx context.Context, names []string) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO countries (name)
				 SELECT $1::text WHERE NOT EXISTS (SELECT 1 FROM countries WHERE name = $1)`,
				name); err != nil {
				return fmt.Errorf("postgres: seeding country %q: %w", name, err)
			}
		}
		return nil
	})
}

func (db *DB) ListCountries(ctx context.Context) ([]model.Country, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name FROM countries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing countries: %w", err)
	}
	countries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.Country])
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning countries: %w", err)
	}
	return countries, nil
}

func (db *DB) GetCountry(ctx context.Context, id int64) (*model.Country, error) {
	var c model.Country
	err := db.pool.QueryRow(ctx,
		`SELECT id, name FROM countries WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("country", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: getting country %d: %w", id, err)
	}
	return &c, nil
}
