package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultLogLevel     = "info"
	defaultLogMaxSizeMB = 10
	defaultLogMaxFiles  = 5

	appDirName = "uniarr"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Backup  BackupConfig  `toml:"backup"`
	Logging LoggingConfig `toml:"logging"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type BackupConfig struct {
	// OutputDir is where `backup create` writes when no explicit output
	// path is given.
	OutputDir string `toml:"output_dir"`
	// EncryptByDefault makes exports encrypt the sensitive portion unless
	// the caller opts out.
	EncryptByDefault bool `toml:"encrypt_by_default"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

type LoadOptions struct {
	ConfigPath string
	Env        map[string]string
}

func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Path: filepath.Join(xdg.DataHome, appDirName, "uniarr.db"),
		},
		Backup: BackupConfig{
			OutputDir:        filepath.Join(xdg.DataHome, appDirName, "backups"),
			EncryptByDefault: true,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			File:      "",
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(xdg.ConfigHome, appDirName, "config.toml")
	}
	if err := loadAndApplyFile(configPath, &cfg); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg, opts)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	Storage *rawStorage `toml:"storage"`
	Backup  *rawBackup  `toml:"backup"`
	Logging *rawLogging `toml:"logging"`
}

type rawStorage struct {
	Path *string `toml:"path"`
}

type rawBackup struct {
	OutputDir        *string `toml:"output_dir"`
	EncryptByDefault *bool   `toml:"encrypt_by_default"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

func loadAndApplyFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}

	if raw.Storage != nil {
		setString(raw.Storage.Path, &cfg.Storage.Path)
	}
	if raw.Backup != nil {
		setString(raw.Backup.OutputDir, &cfg.Backup.OutputDir)
		setBool(raw.Backup.EncryptByDefault, &cfg.Backup.EncryptByDefault)
	}
	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
		setString(raw.Logging.File, &cfg.Logging.File)
		setInt(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setInt(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) {
	if value, ok := lookupEnv(opts, "UNIARR_DB_PATH"); ok {
		cfg.Storage.Path = value
	}
	if value, ok := lookupEnv(opts, "UNIARR_BACKUP_DIR"); ok {
		cfg.Backup.OutputDir = value
	}
	if value, ok := lookupEnv(opts, "UNIARR_LOG_LEVEL"); ok {
		cfg.Logging.Level = value
	}
	if value, ok := lookupEnv(opts, "UNIARR_LOG_FILE"); ok {
		cfg.Logging.File = value
	}
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		value, ok := opts.Env[key]
		return value, ok
	}
	return os.LookupEnv(key)
}

func validate(cfg Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logging level %q", ErrInvalidConfig, cfg.Logging.Level)
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("%w: storage path must not be empty", ErrInvalidConfig)
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxFiles < 0 {
		return fmt.Errorf("%w: logging rotation values must not be negative", ErrInvalidConfig)
	}
	return nil
}

func setString(value *string, target *string) {
	if value != nil {
		*target = *value
	}
}

func setBool(value *bool, target *bool) {
	if value != nil {
		*target = *value
	}
}

func setInt(value *int, target *int) {
	if value != nil {
		*target = *value
	}
}
