package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/raulshma/uniarr-sub005/internal/storage"
)

const (
	// FormatVersion is stamped into every document so future restorers can
	// detect incompatible formats.
	FormatVersion = 1

	// AlgorithmID identifies the KDF + AEAD pair used for the sensitive
	// payload. It is recorded in the document's encryption info.
	AlgorithmID = "argon2id-xchacha20poly1305"

	encryptedPayloadKey = "encryptedPayload"
)

var (
	ErrValidation         = errors.New("backup: validation failed")
	ErrParse              = errors.New("backup: malformed document")
	ErrUnsupportedVersion = errors.New("backup: unsupported document version")
	ErrPasswordRequired   = errors.New("backup: password required")
	ErrDecryption         = errors.New("backup: decryption failed")
)

type Category string

const (
	CategoryServiceConfigs          Category = "serviceConfigs"
	CategoryServiceCredentials      Category = "serviceCredentials"
	CategoryWidgets                 Category = "widgets"
	CategoryWidgetConfigCredentials Category = "widgetConfigCredentials"
	CategoryWidgetProfiles          Category = "widgetProfiles"
	CategorySecureCredentials       Category = "widgetSecureCredentials"
	CategorySettings                Category = "settings"
)

// ExportOptions selects which categories an export includes and whether the
// sensitive portion is encrypted. Credential sub-flags are independent of
// their parent category: enabling the widget layout without
// IncludeWidgetConfigCredentials omits embedded credential values entirely.
type ExportOptions struct {
	IncludeServices                bool
	IncludeServiceCredentials      bool
	IncludeWidgetLayout            bool
	IncludeWidgetConfigCredentials bool
	IncludeWidgetProfiles          bool
	IncludeWidgetCredentials       bool
	IncludeSettings                bool

	EncryptSensitive bool
	Password         []byte
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		IncludeServices:                true,
		IncludeServiceCredentials:      true,
		IncludeWidgetLayout:            true,
		IncludeWidgetConfigCredentials: true,
		IncludeWidgetProfiles:          true,
		IncludeWidgetCredentials:       true,
		IncludeSettings:                true,
	}
}

func (o ExportOptions) validate() error {
	if o.EncryptSensitive && len(o.Password) == 0 {
		return fmt.Errorf("%w: encryption requested without password", ErrValidation)
	}
	return nil
}

type Manifest struct {
	Version   int    `json:"version"`
	CreatedAt string `json:"createdAt"`
	Producer  string `json:"producer"`
}

type KDFParams struct {
	Memory      uint32 `json:"memory"`
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
	SaltLen     int    `json:"salt_len"`
	KeyLen      uint32 `json:"key_len"`
}

// EncryptionInfo carries the cleartext metadata needed to re-derive the
// payload key on restore. Salt and IV are not secret.
type EncryptionInfo struct {
	AlgorithmID string    `json:"algorithmId"`
	Salt        []byte    `json:"salt"`
	IV          []byte    `json:"iv"`
	KDFParams   KDFParams `json:"kdfParams"`
}

// Document is the persisted backup artifact. AppData maps category names to
// their collected values; when Encrypted, sensitive categories are absent
// and replaced by the encryptedPayload entry.
type Document struct {
	Manifest       Manifest                   `json:"manifest"`
	Encrypted      bool                       `json:"encrypted"`
	EncryptionInfo *EncryptionInfo            `json:"encryptionInfo,omitempty"`
	AppData        map[string]json.RawMessage `json:"appData"`
}

// Snapshot holds collected state keyed by category. A category absent from
// the map was not exported, which is distinct from present-but-empty.
type Snapshot map[Category]any

type RestoreResult struct {
	Encrypted bool
	Restored  []Category
}

// Store interfaces consumed by the engine. The storage package satisfies
// them; tests substitute in-memory fakes.

type ServiceConfigStore interface {
	List(ctx context.Context) ([]storage.ServiceConfig, error)
	ReplaceAll(ctx context.Context, configs []storage.ServiceConfig) error
}

type WidgetStore interface {
	List(ctx context.Context) ([]storage.Widget, error)
	ReplaceAll(ctx context.Context, widgets []storage.Widget) error
	InvalidateCachedData(ctx context.Context, widgetID string) error
	InvalidateAllCachedData(ctx context.Context) error
}

type WidgetProfileStore interface {
	List(ctx context.Context) ([]storage.WidgetProfile, error)
	ReplaceAll(ctx context.Context, profiles []storage.WidgetProfile) error
}

type CredentialStore interface {
	List(ctx context.Context) (map[string]storage.CredentialBag, error)
	ReplaceAll(ctx context.Context, bags map[string]storage.CredentialBag) error
}

type SettingStore interface {
	List(ctx context.Context) (map[string]string, error)
	ReplaceAll(ctx context.Context, settings map[string]string) error
}

// EventRecorder journals export/restore outcomes. Recording is best effort
// and never fails the operation it describes.
type EventRecorder interface {
	Record(ctx context.Context, event *storage.BackupEvent) error
}

type Stores struct {
	Services    ServiceConfigStore
	Widgets     WidgetStore
	Profiles    WidgetProfileStore
	Credentials CredentialStore
	Settings    SettingStore
}
