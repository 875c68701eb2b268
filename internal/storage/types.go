package storage

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("storage: not found")
	ErrSchemaTooNew = errors.New("storage: schema version newer than code")
)

type ServiceType string

const (
	ServiceTypeSonarr   ServiceType = "sonarr"
	ServiceTypeRadarr   ServiceType = "radarr"
	ServiceTypeProwlarr ServiceType = "prowlarr"
	ServiceTypeJellyfin ServiceType = "jellyfin"
	ServiceTypeOther    ServiceType = "other"
)

// ServiceConfig is a connection profile for one external service
// integration. APIKey is the secret portion.
type ServiceConfig struct {
	ID        string
	Type      ServiceType
	Name      string
	URL       string
	APIKey    string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WidgetSize string

const (
	WidgetSizeSmall  WidgetSize = "small"
	WidgetSizeMedium WidgetSize = "medium"
	WidgetSizeLarge  WidgetSize = "large"
)

// Widget is one tile of the dashboard layout. Config holds widget-specific
// options and may contain credential-like keys.
type Widget struct {
	ID        string
	Type      string
	Title     string
	Enabled   bool
	Order     int
	Size      WidgetSize
	Config    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy. Config values are limited to JSON-compatible
// types, so a marshal-free shallow copy of nested maps is sufficient.
func (w Widget) Clone() Widget {
	out := w
	out.Config = cloneConfig(w.Config)
	return out
}

func cloneConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}
	out := make(map[string]any, len(config))
	for k, v := range config {
		out[k] = cloneConfigValue(v)
	}
	return out
}

func cloneConfigValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneConfig(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = cloneConfigValue(elem)
		}
		return out
	default:
		return v
	}
}

// WidgetProfile is a named snapshot of a full widget layout. Widgets is a
// copy taken at save time, never a live reference.
type WidgetProfile struct {
	ID          string
	Name        string
	Description string
	Widgets     []Widget
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name        *string
	Description *string
	Widgets     *[]Widget
}

// CredentialBag is the opaque per-widget credential material held outside
// the widget layout.
type CredentialBag map[string]string

type BackupEvent struct {
	ID        string
	Action    string
	Result    string
	Detail    string
	CreatedAt time.Time
}
