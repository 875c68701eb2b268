package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type eventRepository struct {
	db *sql.DB
}

func (r *eventRepository) Record(ctx context.Context, event *BackupEvent) error {
	if event == nil {
		return fmt.Errorf("record backup event: event is nil")
	}
	if event.Action == "" {
		return fmt.Errorf("record backup event: action is required")
	}

	event.ID = ensureID(event.ID)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = nowUTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO backup_events(id, action, result, detail, created_at)
		VALUES(?, ?, ?, ?, ?)
	`, event.ID, event.Action, event.Result, event.Detail, fmtTime(event.CreatedAt))
	if err != nil {
		return fmt.Errorf("record backup event: %w", err)
	}
	return nil
}

func (r *eventRepository) List(ctx context.Context, limit int) ([]BackupEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, result, detail, created_at
		FROM backup_events
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list backup events: %w", err)
	}
	defer rows.Close()

	var events []BackupEvent
	for rows.Next() {
		var (
			event     BackupEvent
			createdAt string
		)
		if err := rows.Scan(&event.ID, &event.Action, &event.Result, &event.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("list backup events: scan row: %w", err)
		}
		event.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list backup events: iterate rows: %w", err)
	}
	return events, nil
}
