package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type widgetProfileRepository struct {
	db *sql.DB
}

func (r *widgetProfileRepository) List(ctx context.Context) ([]WidgetProfile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, widgets_json, created_at, updated_at
		FROM widget_profiles
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list widget profiles: %w", err)
	}
	defer rows.Close()

	var profiles []WidgetProfile
	for rows.Next() {
		profile, err := scanWidgetProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list widget profiles: iterate rows: %w", err)
	}
	return profiles, nil
}

// Save stores an independent snapshot of the given layout under a new
// profile. The widget slice is deep-copied so later layout edits never leak
// into the saved profile.
func (r *widgetProfileRepository) Save(ctx context.Context, name string, widgets []Widget, description string) (*WidgetProfile, error) {
	if name == "" {
		return nil, fmt.Errorf("save widget profile: name is required")
	}

	snapshot := make([]Widget, 0, len(widgets))
	for _, widget := range widgets {
		snapshot = append(snapshot, widget.Clone())
	}

	now := nowUTC()
	profile := &WidgetProfile{
		ID:          ensureID(""),
		Name:        name,
		Description: description,
		Widgets:     snapshot,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	widgetsJSON, err := encodeJSON(profile.Widgets)
	if err != nil {
		return nil, fmt.Errorf("save widget profile: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO widget_profiles(id, name, description, widgets_json, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)
	`, profile.ID, profile.Name, profile.Description, widgetsJSON, fmtTime(profile.CreatedAt), fmtTime(profile.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("save widget profile: %w", err)
	}
	return profile, nil
}

func (r *widgetProfileRepository) Load(ctx context.Context, id string) (*WidgetProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, widgets_json, created_at, updated_at
		FROM widget_profiles
		WHERE id = ?
	`, id)

	profile, err := scanWidgetProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load widget profile: %w", err)
	}
	return profile, nil
}

func (r *widgetProfileRepository) Rename(ctx context.Context, id, name string) error {
	if name == "" {
		return fmt.Errorf("rename widget profile: name is required")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE widget_profiles SET name = ?, updated_at = ? WHERE id = ?
	`, name, fmtTime(nowUTC()), id)
	if err != nil {
		return fmt.Errorf("rename widget profile: %w", err)
	}
	return requireRowsAffected(result, "rename widget profile")
}

func (r *widgetProfileRepository) Update(ctx context.Context, id string, update ProfileUpdate) error {
	profile, err := r.Load(ctx, id)
	if err != nil {
		return err
	}

	if update.Name != nil {
		if *update.Name == "" {
			return fmt.Errorf("update widget profile: name must not be empty")
		}
		profile.Name = *update.Name
	}
	if update.Description != nil {
		profile.Description = *update.Description
	}
	if update.Widgets != nil {
		snapshot := make([]Widget, 0, len(*update.Widgets))
		for _, widget := range *update.Widgets {
			snapshot = append(snapshot, widget.Clone())
		}
		profile.Widgets = snapshot
	}

	widgetsJSON, err := encodeJSON(profile.Widgets)
	if err != nil {
		return fmt.Errorf("update widget profile: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE widget_profiles
		SET name = ?, description = ?, widgets_json = ?, updated_at = ?
		WHERE id = ?
	`, profile.Name, profile.Description, widgetsJSON, fmtTime(nowUTC()), id)
	if err != nil {
		return fmt.Errorf("update widget profile: %w", err)
	}
	return requireRowsAffected(result, "update widget profile")
}

func (r *widgetProfileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM widget_profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete widget profile: %w", err)
	}
	return requireRowsAffected(result, "delete widget profile")
}

func (r *widgetProfileRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM widget_profiles`); err != nil {
		return fmt.Errorf("delete all widget profiles: %w", err)
	}
	return nil
}

// ReplaceAll overwrites the whole profile set verbatim, preserving ids and
// timestamps from the incoming profiles. Used by backup restore.
func (r *widgetProfileRepository) ReplaceAll(ctx context.Context, profiles []WidgetProfile) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM widget_profiles`); err != nil {
			return fmt.Errorf("replace widget profiles: clear: %w", err)
		}
		for i := range profiles {
			profile := profiles[i]
			profile.ID = ensureID(profile.ID)
			if profile.CreatedAt.IsZero() {
				profile.CreatedAt = nowUTC()
			}
			if profile.UpdatedAt.IsZero() {
				profile.UpdatedAt = profile.CreatedAt
			}
			widgetsJSON, err := encodeJSON(profile.Widgets)
			if err != nil {
				return fmt.Errorf("replace widget profiles: %w", err)
			}
			if _, err := tx.Exec(`
				INSERT INTO widget_profiles(id, name, description, widgets_json, created_at, updated_at)
				VALUES(?, ?, ?, ?, ?, ?)
			`, profile.ID, profile.Name, profile.Description, widgetsJSON, fmtTime(profile.CreatedAt), fmtTime(profile.UpdatedAt)); err != nil {
				return fmt.Errorf("replace widget profiles: insert %q: %w", profile.Name, err)
			}
		}
		return nil
	})
}

func scanWidgetProfile(row rowScanner) (*WidgetProfile, error) {
	var (
		profile     WidgetProfile
		widgetsJSON string
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(&profile.ID, &profile.Name, &profile.Description, &widgetsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := decodeJSON(widgetsJSON, &profile.Widgets); err != nil {
		return nil, fmt.Errorf("scan widget profile %q: %w", profile.ID, err)
	}

	var err error
	profile.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	profile.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
