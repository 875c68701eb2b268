package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type settingRepository struct {
	db *sql.DB
}

func (r *settingRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

func (r *settingRepository) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("set setting: key is required")
	}
	if _, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings(key, value) VALUES(?, ?)`, key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

func (r *settingRepository) List(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("list settings: scan row: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settings: iterate rows: %w", err)
	}
	return settings, nil
}

func (r *settingRepository) ReplaceAll(ctx context.Context, settings map[string]string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM settings`); err != nil {
			return fmt.Errorf("replace settings: clear: %w", err)
		}
		for key, value := range settings {
			if _, err := tx.Exec(`INSERT INTO settings(key, value) VALUES(?, ?)`, key, value); err != nil {
				return fmt.Errorf("replace settings: insert %q: %w", key, err)
			}
		}
		return nil
	})
}
