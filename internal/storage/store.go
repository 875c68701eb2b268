package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode=WAL`
	pragmaForeignKeysOn  = `PRAGMA foreign_keys=ON`
	pragmaBusyTimeout    = `PRAGMA busy_timeout=5000`
)

type ServiceConfigRepository interface {
	List(ctx context.Context) ([]ServiceConfig, error)
	Get(ctx context.Context, id string) (*ServiceConfig, error)
	Create(ctx context.Context, config *ServiceConfig) error
	Update(ctx context.Context, config *ServiceConfig) error
	Delete(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, configs []ServiceConfig) error
}

type WidgetRepository interface {
	List(ctx context.Context) ([]Widget, error)
	Create(ctx context.Context, widget *Widget) error
	Delete(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, widgets []Widget) error
	SetCachedData(ctx context.Context, widgetID string, payload string) error
	CachedData(ctx context.Context, widgetID string) (string, error)
	InvalidateCachedData(ctx context.Context, widgetID string) error
	InvalidateAllCachedData(ctx context.Context) error
}

type WidgetProfileRepository interface {
	List(ctx context.Context) ([]WidgetProfile, error)
	Save(ctx context.Context, name string, widgets []Widget, description string) (*WidgetProfile, error)
	Load(ctx context.Context, id string) (*WidgetProfile, error)
	Rename(ctx context.Context, id, name string) error
	Update(ctx context.Context, id string, update ProfileUpdate) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	ReplaceAll(ctx context.Context, profiles []WidgetProfile) error
}

type CredentialRepository interface {
	Get(ctx context.Context, widgetID string) (CredentialBag, error)
	Set(ctx context.Context, widgetID string, bag CredentialBag) error
	Remove(ctx context.Context, widgetID string) error
	List(ctx context.Context) (map[string]CredentialBag, error)
	ReplaceAll(ctx context.Context, bags map[string]CredentialBag) error
}

type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	List(ctx context.Context) (map[string]string, error)
	ReplaceAll(ctx context.Context, settings map[string]string) error
}

type EventRepository interface {
	Record(ctx context.Context, event *BackupEvent) error
	List(ctx context.Context, limit int) ([]BackupEvent, error)
}

type Store struct {
	db   *sql.DB
	path string

	Services    ServiceConfigRepository
	Widgets     WidgetRepository
	Profiles    WidgetProfileRepository
	Credentials CredentialRepository
	Settings    SettingRepository
	Events      EventRepository
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open storage: empty path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open storage: create parent dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)

	if err := configureSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := RunMigrations(db, DefaultMigrations()); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureDBPermissions(path); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{
		db:   db,
		path: path,
	}
	store.Services = &serviceConfigRepository{db: db}
	store.Widgets = &widgetRepository{db: db}
	store.Profiles = &widgetProfileRepository{db: db}
	store.Credentials = &credentialRepository{db: db}
	store.Settings = &settingRepository{db: db}
	store.Events = &eventRepository{db: db}

	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{pragmaJournalModeWAL, pragmaForeignKeysOn, pragmaBusyTimeout}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("configure sqlite %q: %w", stmt, err)
		}
	}
	return nil
}

func ensureDBPermissions(path string) error {
	if err := os.Chmod(path, 0o600); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set db file permissions: %w", err)
		}
	}

	walPath := path + "-wal"
	if err := os.Chmod(walPath, 0o600); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set wal file permissions: %w", err)
		}
	}
	return nil
}
