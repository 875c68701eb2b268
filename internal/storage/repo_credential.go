package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type credentialRepository struct {
	db *sql.DB
}

func (r *credentialRepository) Get(ctx context.Context, widgetID string) (CredentialBag, error) {
	var bagJSON string
	err := r.db.QueryRowContext(ctx, `SELECT bag_json FROM widget_credentials WHERE widget_id = ?`, widgetID).Scan(&bagJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential bag: %w", err)
	}

	bag := CredentialBag{}
	if err := decodeJSON(bagJSON, &bag); err != nil {
		return nil, fmt.Errorf("get credential bag %q: %w", widgetID, err)
	}
	return bag, nil
}

func (r *credentialRepository) Set(ctx context.Context, widgetID string, bag CredentialBag) error {
	if widgetID == "" {
		return fmt.Errorf("set credential bag: widget id is required")
	}

	bagJSON, err := encodeJSON(bag)
	if err != nil {
		return fmt.Errorf("set credential bag: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO widget_credentials(widget_id, bag_json, updated_at) VALUES(?, ?, ?)
	`, widgetID, bagJSON, fmtTime(nowUTC()))
	if err != nil {
		return fmt.Errorf("set credential bag: %w", err)
	}
	return nil
}

func (r *credentialRepository) Remove(ctx context.Context, widgetID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM widget_credentials WHERE widget_id = ?`, widgetID)
	if err != nil {
		return fmt.Errorf("remove credential bag: %w", err)
	}
	return requireRowsAffected(result, "remove credential bag")
}

func (r *credentialRepository) List(ctx context.Context) (map[string]CredentialBag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT widget_id, bag_json FROM widget_credentials`)
	if err != nil {
		return nil, fmt.Errorf("list credential bags: %w", err)
	}
	defer rows.Close()

	bags := map[string]CredentialBag{}
	for rows.Next() {
		var (
			widgetID string
			bagJSON  string
		)
		if err := rows.Scan(&widgetID, &bagJSON); err != nil {
			return nil, fmt.Errorf("list credential bags: scan row: %w", err)
		}
		bag := CredentialBag{}
		if err := decodeJSON(bagJSON, &bag); err != nil {
			return nil, fmt.Errorf("list credential bags %q: %w", widgetID, err)
		}
		bags[widgetID] = bag
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credential bags: iterate rows: %w", err)
	}
	return bags, nil
}

func (r *credentialRepository) ReplaceAll(ctx context.Context, bags map[string]CredentialBag) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM widget_credentials`); err != nil {
			return fmt.Errorf("replace credential bags: clear: %w", err)
		}
		for widgetID, bag := range bags {
			bagJSON, err := encodeJSON(bag)
			if err != nil {
				return fmt.Errorf("replace credential bags: %w", err)
			}
			if _, err := tx.Exec(`
				INSERT INTO widget_credentials(widget_id, bag_json, updated_at) VALUES(?, ?, ?)
			`, widgetID, bagJSON, fmtTime(nowUTC())); err != nil {
				return fmt.Errorf("replace credential bags: insert %q: %w", widgetID, err)
			}
		}
		return nil
	})
}
