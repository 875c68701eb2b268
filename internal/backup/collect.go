package backup

import (
	"context"
	"fmt"

	"github.com/raulshma/uniarr-sub005/internal/storage"
)

// Collect reads every enabled category from the stores into a snapshot.
// Stores are read-only here. Disabled categories are wholly absent from the
// snapshot; an empty store yields an empty value, never an error.
func Collect(ctx context.Context, stores Stores, opts ExportOptions) (Snapshot, error) {
	snapshot := Snapshot{}

	if opts.IncludeServices {
		configs, err := stores.Services.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("collect service configs: %w", err)
		}
		public, credentials := splitServiceCredentials(configs)
		snapshot[CategoryServiceConfigs] = public
		if opts.IncludeServiceCredentials {
			snapshot[CategoryServiceCredentials] = credentials
		}
	}

	if opts.IncludeWidgetLayout {
		widgets, err := stores.Widgets.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("collect widgets: %w", err)
		}
		scrubbed, embedded := scrubWidgetCredentials(widgets)
		snapshot[CategoryWidgets] = scrubbed
		if opts.IncludeWidgetConfigCredentials {
			snapshot[CategoryWidgetConfigCredentials] = embedded
		}
	}

	if opts.IncludeWidgetProfiles {
		profiles, err := stores.Profiles.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("collect widget profiles: %w", err)
		}
		snapshot[CategoryWidgetProfiles] = scrubProfileCredentials(profiles)
	}

	if opts.IncludeWidgetCredentials {
		bags, err := stores.Credentials.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("collect widget credentials: %w", err)
		}
		if bags == nil {
			bags = map[string]storage.CredentialBag{}
		}
		snapshot[CategorySecureCredentials] = bags
	}

	if opts.IncludeSettings {
		settings, err := stores.Settings.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("collect settings: %w", err)
		}
		if settings == nil {
			settings = map[string]string{}
		}
		snapshot[CategorySettings] = settings
	}

	return snapshot, nil
}

// splitServiceCredentials strips the secret portion out of each service
// config. The public copies carry an empty api_key; the extracted secrets
// are keyed by service id.
func splitServiceCredentials(configs []storage.ServiceConfig) ([]storage.ServiceConfig, map[string]string) {
	public := make([]storage.ServiceConfig, 0, len(configs))
	credentials := map[string]string{}
	for _, config := range configs {
		if config.APIKey != "" {
			credentials[config.ID] = config.APIKey
		}
		config.APIKey = ""
		public = append(public, config)
	}
	return public, credentials
}

func scrubWidgetCredentials(widgets []storage.Widget) ([]storage.Widget, map[string]map[string]string) {
	scrubbed := make([]storage.Widget, 0, len(widgets))
	embedded := map[string]map[string]string{}
	for _, widget := range widgets {
		clone := widget.Clone()
		config, extracted := splitConfigCredentials(clone.Config)
		clone.Config = config
		if len(extracted) > 0 {
			embedded[clone.ID] = extracted
		}
		scrubbed = append(scrubbed, clone)
	}
	return scrubbed, embedded
}

// Profile snapshots are exported without embedded credential values
// regardless of flags; credentials re-enter a profile only when it is
// applied against a live layout that has them.
func scrubProfileCredentials(profiles []storage.WidgetProfile) []storage.WidgetProfile {
	out := make([]storage.WidgetProfile, 0, len(profiles))
	for _, profile := range profiles {
		widgets := make([]storage.Widget, 0, len(profile.Widgets))
		for _, widget := range profile.Widgets {
			clone := widget.Clone()
			clone.Config, _ = splitConfigCredentials(clone.Config)
			widgets = append(widgets, clone)
		}
		profile.Widgets = widgets
		out = append(out, profile)
	}
	return out
}
