package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
)

// SeedCountries inserts missing names in the given order, so on a fresh
// database the first name gets id 1.
func (db *DB) SeedCountries(ctx context.Context, names []string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO countries (name) VALUES (?)`, name); err != nil {
				return fmt.Errorf("sqlite: seeding country %q: %w", name, err)
			}
		}
		return nil
	})
}

func (db *DB) ListCountries(ctx context.Context) ([]model.Country, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM countries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing countries: %w", err)
	}
	defer rows.Close()

	var countries []model.Country
	for rows.Next() {
		var c model.Country
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning country: %w", err)
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating countries: %w", err)
	}
	return countries, nil
}

func (db *DB) GetCountry(ctx context.Context, id int64) (*model.Country, error) {
	var c model.Country
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM countries WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("country", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting country %d: %w", id, err)
	}
	return &c, nil
}
