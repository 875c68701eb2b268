package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type serviceConfigRepository struct {
	db *sql.DB
}

func (r *serviceConfigRepository) List(ctx context.Context) ([]ServiceConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, name, url, api_key, enabled, created_at, updated_at
		FROM service_configs
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list service configs: %w", err)
	}
	defer rows.Close()

	var configs []ServiceConfig
	for rows.Next() {
		config, err := scanServiceConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *config)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list service configs: iterate rows: %w", err)
	}
	return configs, nil
}

func (r *serviceConfigRepository) Get(ctx context.Context, id string) (*ServiceConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, name, url, api_key, enabled, created_at, updated_at
		FROM service_configs
		WHERE id = ?
	`, id)

	config, err := scanServiceConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get service config: %w", err)
	}
	return config, nil
}

func (r *serviceConfigRepository) Create(ctx context.Context, config *ServiceConfig) error {
	if config == nil {
		return fmt.Errorf("create service config: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("create service config: name is required")
	}
	if config.URL == "" {
		return fmt.Errorf("create service config: url is required")
	}

	config.ID = ensureID(config.ID)
	now := nowUTC()
	config.CreatedAt = now
	config.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_configs(id, type, name, url, api_key, enabled, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, config.ID, string(config.Type), config.Name, config.URL, config.APIKey, boolToInt(config.Enabled), fmtTime(config.CreatedAt), fmtTime(config.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create service config: %w", err)
	}
	return nil
}

func (r *serviceConfigRepository) Update(ctx context.Context, config *ServiceConfig) error {
	if config == nil {
		return fmt.Errorf("update service config: config is nil")
	}
	if config.ID == "" {
		return fmt.Errorf("update service config: id is required")
	}

	config.UpdatedAt = nowUTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE service_configs
		SET type = ?, name = ?, url = ?, api_key = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`, string(config.Type), config.Name, config.URL, config.APIKey, boolToInt(config.Enabled), fmtTime(config.UpdatedAt), config.ID)
	if err != nil {
		return fmt.Errorf("update service config: %w", err)
	}
	return requireRowsAffected(result, "update service config")
}

func (r *serviceConfigRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM service_configs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete service config: %w", err)
	}
	return requireRowsAffected(result, "delete service config")
}

func (r *serviceConfigRepository) ReplaceAll(ctx context.Context, configs []ServiceConfig) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM service_configs`); err != nil {
			return fmt.Errorf("replace service configs: clear: %w", err)
		}
		for i := range configs {
			config := configs[i]
			config.ID = ensureID(config.ID)
			if config.CreatedAt.IsZero() {
				config.CreatedAt = nowUTC()
			}
			if config.UpdatedAt.IsZero() {
				config.UpdatedAt = config.CreatedAt
			}
			if _, err := tx.Exec(`
				INSERT INTO service_configs(id, type, name, url, api_key, enabled, created_at, updated_at)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?)
			`, config.ID, string(config.Type), config.Name, config.URL, config.APIKey, boolToInt(config.Enabled), fmtTime(config.CreatedAt), fmtTime(config.UpdatedAt)); err != nil {
				return fmt.Errorf("replace service configs: insert %q: %w", config.Name, err)
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServiceConfig(row rowScanner) (*ServiceConfig, error) {
	var (
		config    ServiceConfig
		svcType   string
		enabled   int
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&config.ID, &svcType, &config.Name, &config.URL, &config.APIKey, &enabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	config.Type = ServiceType(svcType)
	config.Enabled = enabled != 0

	var err error
	config.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	config.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func requireRowsAffected(result sql.Result, op string) error {
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
