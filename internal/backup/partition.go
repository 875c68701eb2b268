package backup

import "strings"

// categorySpec declares, for one category, which export flags gate it and
// whether its value is sensitive. Adding a category means adding a row here
// plus collect/distribute hooks; the partitioning itself never branches per
// category.
type categorySpec struct {
	name      Category
	enabled   func(ExportOptions) bool
	sensitive bool
}

var categorySpecs = []categorySpec{
	{
		name:    CategoryServiceConfigs,
		enabled: func(o ExportOptions) bool { return o.IncludeServices },
	},
	{
		name:      CategoryServiceCredentials,
		enabled:   func(o ExportOptions) bool { return o.IncludeServices && o.IncludeServiceCredentials },
		sensitive: true,
	},
	{
		name:    CategoryWidgets,
		enabled: func(o ExportOptions) bool { return o.IncludeWidgetLayout },
	},
	{
		name:      CategoryWidgetConfigCredentials,
		enabled:   func(o ExportOptions) bool { return o.IncludeWidgetLayout && o.IncludeWidgetConfigCredentials },
		sensitive: true,
	},
	{
		name:    CategoryWidgetProfiles,
		enabled: func(o ExportOptions) bool { return o.IncludeWidgetProfiles },
	},
	{
		name:      CategorySecureCredentials,
		enabled:   func(o ExportOptions) bool { return o.IncludeWidgetCredentials },
		sensitive: true,
	},
	{
		name:    CategorySettings,
		enabled: func(o ExportOptions) bool { return o.IncludeSettings },
	},
}

// Partition splits a collected snapshot into its public and sensitive
// halves. Categories whose export flag is off are dropped even if present.
func Partition(snapshot Snapshot, opts ExportOptions) (public Snapshot, sensitive Snapshot) {
	public = Snapshot{}
	sensitive = Snapshot{}
	for _, spec := range categorySpecs {
		value, ok := snapshot[spec.name]
		if !ok || !spec.enabled(opts) {
			continue
		}
		if spec.sensitive {
			sensitive[spec.name] = value
			continue
		}
		public[spec.name] = value
	}
	return public, sensitive
}

// credentialKeys are widget config keys treated as embedded credential
// material.
var credentialKeys = map[string]struct{}{
	"apikey":        {},
	"api_key":       {},
	"token":         {},
	"accesstoken":   {},
	"access_token":  {},
	"password":      {},
	"secret":        {},
	"clientsecret":  {},
	"client_secret": {},
}

func isCredentialKey(key string) bool {
	_, ok := credentialKeys[strings.ToLower(key)]
	return ok
}

// splitConfigCredentials removes credential-like keys from a widget config,
// returning the scrubbed config and the extracted string values. Non-string
// values under credential keys are dropped rather than exported.
func splitConfigCredentials(config map[string]any) (map[string]any, map[string]string) {
	if len(config) == 0 {
		return config, nil
	}

	var extracted map[string]string
	scrubbed := make(map[string]any, len(config))
	for key, value := range config {
		if !isCredentialKey(key) {
			scrubbed[key] = value
			continue
		}
		text, ok := value.(string)
		if !ok {
			continue
		}
		if extracted == nil {
			extracted = map[string]string{}
		}
		extracted[key] = text
	}
	return scrubbed, extracted
}
