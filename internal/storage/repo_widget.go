package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type widgetRepository struct {
	db *sql.DB
}

func (r *widgetRepository) List(ctx context.Context) ([]Widget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, title, enabled, position, size, config_json, created_at, updated_at
		FROM widgets
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}
	defer rows.Close()

	var widgets []Widget
	for rows.Next() {
		widget, err := scanWidget(rows)
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, *widget)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list widgets: iterate rows: %w", err)
	}
	return widgets, nil
}

func (r *widgetRepository) Create(ctx context.Context, widget *Widget) error {
	if widget == nil {
		return fmt.Errorf("create widget: widget is nil")
	}
	if widget.Type == "" {
		return fmt.Errorf("create widget: type is required")
	}
	if widget.Size == "" {
		widget.Size = WidgetSizeMedium
	}

	widget.ID = ensureID(widget.ID)
	now := nowUTC()
	widget.CreatedAt = now
	widget.UpdatedAt = now

	configJSON, err := encodeJSON(widget.Config)
	if err != nil {
		return fmt.Errorf("create widget: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO widgets(id, type, title, enabled, position, size, config_json, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, widget.ID, widget.Type, widget.Title, boolToInt(widget.Enabled), widget.Order, string(widget.Size), configJSON, fmtTime(widget.CreatedAt), fmtTime(widget.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create widget: %w", err)
	}
	return nil
}

func (r *widgetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM widgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete widget: %w", err)
	}
	if err := requireRowsAffected(result, "delete widget"); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM widget_cache WHERE widget_id = ?`, id); err != nil {
		return fmt.Errorf("delete widget: clear cache: %w", err)
	}
	return nil
}

func (r *widgetRepository) ReplaceAll(ctx context.Context, widgets []Widget) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM widgets`); err != nil {
			return fmt.Errorf("replace widgets: clear: %w", err)
		}
		for i := range widgets {
			widget := widgets[i]
			widget.ID = ensureID(widget.ID)
			if widget.Size == "" {
				widget.Size = WidgetSizeMedium
			}
			if widget.CreatedAt.IsZero() {
				widget.CreatedAt = nowUTC()
			}
			if widget.UpdatedAt.IsZero() {
				widget.UpdatedAt = widget.CreatedAt
			}
			configJSON, err := encodeJSON(widget.Config)
			if err != nil {
				return fmt.Errorf("replace widgets: %w", err)
			}
			if _, err := tx.Exec(`
				INSERT INTO widgets(id, type, title, enabled, position, size, config_json, created_at, updated_at)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, widget.ID, widget.Type, widget.Title, boolToInt(widget.Enabled), widget.Order, string(widget.Size), configJSON, fmtTime(widget.CreatedAt), fmtTime(widget.UpdatedAt)); err != nil {
				return fmt.Errorf("replace widgets: insert %q: %w", widget.ID, err)
			}
		}
		return nil
	})
}

func (r *widgetRepository) SetCachedData(ctx context.Context, widgetID string, payload string) error {
	if widgetID == "" {
		return fmt.Errorf("set cached data: widget id is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO widget_cache(widget_id, payload, fetched_at) VALUES(?, ?, ?)
	`, widgetID, payload, fmtTime(nowUTC()))
	if err != nil {
		return fmt.Errorf("set cached data: %w", err)
	}
	return nil
}

func (r *widgetRepository) CachedData(ctx context.Context, widgetID string) (string, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM widget_cache WHERE widget_id = ?`, widgetID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get cached data: %w", err)
	}
	return payload, nil
}

func (r *widgetRepository) InvalidateCachedData(ctx context.Context, widgetID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM widget_cache WHERE widget_id = ?`, widgetID); err != nil {
		return fmt.Errorf("invalidate cached data: %w", err)
	}
	return nil
}

func (r *widgetRepository) InvalidateAllCachedData(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM widget_cache`); err != nil {
		return fmt.Errorf("invalidate all cached data: %w", err)
	}
	return nil
}

func scanWidget(row rowScanner) (*Widget, error) {
	var (
		widget     Widget
		enabled    int
		size       string
		configJSON string
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(&widget.ID, &widget.Type, &widget.Title, &enabled, &widget.Order, &size, &configJSON, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan widget: %w", err)
	}

	widget.Enabled = enabled != 0
	widget.Size = WidgetSize(size)
	if err := decodeJSON(configJSON, &widget.Config); err != nil {
		return nil, fmt.Errorf("scan widget %q: %w", widget.ID, err)
	}

	var err error
	widget.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	widget.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &widget, nil
}
