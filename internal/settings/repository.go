package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var ErrSettingNotFound = errors.New("setting not found")

type Repository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	All(ctx context.Context) ([]Setting, error)
	Upsert(ctx context.Context, rows []Setting) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Get(ctx context.Context, key string) (*Setting, error) {
	query := `SELECT key, value, type, updated_at FROM settings WHERE key = $1`

	var s Setting
	err := r.db.QueryRow(ctx, query, key).Scan(&s.Key, &s.Value, &s.Type, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("repository: failed to select setting %q: %w", key, err)
	}
	return &s, nil
}

func (r *postgresRepository) All(ctx context.Context) ([]Setting, error) {
	query := `SELECT key, value, type, updated_at FROM settings ORDER BY key`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query settings: %w", err)
	}
	defer rows.Close()

	out := make([]Setting, 0)
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Type, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan setting: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating settings: %w", err)
	}
	return out, nil
}

// Upsert writes all rows in one transaction so a partial update can
// never be observed.
func (r *postgresRepository) Upsert(ctx context.Context, rows []Setting) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin settings transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Msg("Failed to rollback settings transaction")
		}
	}()

	query := `
		INSERT INTO settings (key, value, type, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET value = $2, type = $3, updated_at = $4
	`

	now := time.Now().UTC()
	for _, s := range rows {
		if _, err := tx.Exec(ctx, query, s.Key, s.Value, s.Type, now); err != nil {
			return fmt.Errorf("repository: failed to upsert setting %q: %w", s.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit settings transaction: %w", err)
	}
	return nil
}
