package backup

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raulshma/uniarr-sub005/internal/storage"
)

func exportRaw(t *testing.T, fakes *fakeStores, opts ExportOptions) []byte {
	t.Helper()

	exporter := NewExporter(fakes.stores(), "uniarr/test", nil, nil)
	raw, _, err := exporter.Export(context.Background(), opts)
	require.NoError(t, err)
	return raw
}

func TestRestorePlaintextRoundTrip(t *testing.T) {
	t.Parallel()

	source := seededStores()
	raw := exportRaw(t, source, DefaultExportOptions())

	target := newFakeStores()
	restorer := NewRestorer(target.stores(), nil, nil)
	result, err := restorer.Restore(context.Background(), raw, nil)
	require.NoError(t, err)
	require.False(t, result.Encrypted)
	require.ElementsMatch(t, []Category{
		CategoryServiceConfigs, CategoryServiceCredentials,
		CategoryWidgets, CategoryWidgetConfigCredentials,
		CategoryWidgetProfiles, CategorySecureCredentials, CategorySettings,
	}, result.Restored)

	require.Len(t, target.services.configs, 2)
	byID := map[string]storage.ServiceConfig{}
	for _, config := range target.services.configs {
		byID[config.ID] = config
	}
	require.Equal(t, "sonarr-key", byID["svc-sonarr"].APIKey)
	require.Equal(t, "http://radarr:7878", byID["svc-radarr"].URL)

	require.Len(t, target.widgets.widgets, 2)
	for _, widget := range target.widgets.widgets {
		if widget.ID == "w-youtube" {
			require.Equal(t, "embedded-key", widget.Config["apiKey"])
		}
	}

	require.Len(t, target.profiles.profiles, 2)
	profileNames := map[string]string{}
	for _, profile := range target.profiles.profiles {
		profileNames[profile.ID] = profile.Name
	}
	require.Equal(t, map[string]string{"p-1": "Minimal", "p-2": "Full"}, profileNames)

	require.Equal(t, "k1", target.credentials.bags["youtube"]["apiKey"])
	require.Equal(t, "dark", target.settings.settings["theme"])
}

func TestRestoreEncryptedRoundTrip(t *testing.T) {
	t.Parallel()

	opts := DefaultExportOptions()
	opts.EncryptSensitive = true
	opts.Password = []byte("pw")
	raw := exportRaw(t, seededStores(), opts)

	target := newFakeStores()
	restorer := NewRestorer(target.stores(), nil, nil)
	result, err := restorer.Restore(context.Background(), raw, []byte("pw"))
	require.NoError(t, err)
	require.True(t, result.Encrypted)

	require.Equal(t, "k1", target.credentials.bags["youtube"]["apiKey"])
	for _, config := range target.services.configs {
		if config.ID == "svc-sonarr" {
			require.Equal(t, "sonarr-key", config.APIKey)
		}
	}
	for _, widget := range target.widgets.widgets {
		if widget.ID == "w-youtube" {
			require.Equal(t, "embedded-key", widget.Config["apiKey"])
		}
	}
}

func TestRestoreEncryptedWrongPassword(t *testing.T) {
	t.Parallel()

	opts := DefaultExportOptions()
	opts.EncryptSensitive = true
	opts.Password = []byte("pw")
	raw := exportRaw(t, seededStores(), opts)

	target := newFakeStores()
	restorer := NewRestorer(target.stores(), nil, nil)
	_, err := restorer.Restore(context.Background(), raw, []byte("wrong"))
	require.ErrorIs(t, err, ErrDecryption)

	// Failure happens before any store mutation.
	require.Zero(t, target.services.replace)
	require.Zero(t, target.widgets.replace)
	require.Zero(t, target.credentials.replace)
	require.Zero(t, target.settings.replace)
}

func TestRestoreEncryptedWithoutPassword(t *testing.T) {
	t.Parallel()

	opts := DefaultExportOptions()
	opts.EncryptSensitive = true
	opts.Password = []byte("pw")
	raw := exportRaw(t, seededStores(), opts)

	restorer := NewRestorer(newFakeStores().stores(), nil, nil)
	_, err := restorer.Restore(context.Background(), raw, nil)
	require.ErrorIs(t, err, ErrPasswordRequired)
}

func TestRestoreIsIdempotent(t *testing.T) {
	t.Parallel()

	raw := exportRaw(t, seededStores(), DefaultExportOptions())

	target := newFakeStores()
	restorer := NewRestorer(target.stores(), nil, nil)
	_, err := restorer.Restore(context.Background(), raw, nil)
	require.NoError(t, err)
	firstServices := append([]storage.ServiceConfig(nil), target.services.configs...)
	firstSettings := map[string]string{}
	for k, v := range target.settings.settings {
		firstSettings[k] = v
	}

	_, err = restorer.Restore(context.Background(), raw, nil)
	require.NoError(t, err)
	require.Equal(t, firstServices, target.services.configs)
	require.Equal(t, firstSettings, target.settings.settings)
	require.Len(t, target.profiles.profiles, 2)
}

func TestRestoreReplacesExistingCollections(t *testing.T) {
	t.Parallel()

	source := seededStores()
	raw := exportRaw(t, source, DefaultExportOptions())

	// Target holds state the document does not mention; the restore must
	// replace it, not merge with it.
	target := newFakeStores()
	target.profiles.profiles = []storage.WidgetProfile{
		{ID: "p-stale", Name: "Stale"},
		{ID: "p-old", Name: "Old"},
		{ID: "p-gone", Name: "Gone"},
	}
	target.settings.settings = map[string]string{"theme": "light", "stale": "yes"}
	target.credentials.bags = map[string]storage.CredentialBag{"old": {"token": "t"}}

	restorer := NewRestorer(target.stores(), nil, nil)
	_, err := restorer.Restore(context.Background(), raw, nil)
	require.NoError(t, err)

	require.Len(t, target.profiles.profiles, 2)
	for _, profile := range target.profiles.profiles {
		require.NotEqual(t, "p-stale", profile.ID)
	}
	require.Equal(t, map[string]string{"theme": "dark"}, target.settings.settings)
	require.NotContains(t, target.credentials.bags, "old")
}

func TestRestoreAbsentCategoryLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	opts := DefaultExportOptions()
	opts.IncludeSettings = false
	opts.IncludeWidgetProfiles = false
	raw := exportRaw(t, seededStores(), opts)

	target := newFakeStores()
	target.settings.settings = map[string]string{"theme": "light"}
	target.profiles.profiles = []storage.WidgetProfile{{ID: "p-keep", Name: "Keep"}}

	restorer := NewRestorer(target.stores(), nil, nil)
	result, err := restorer.Restore(context.Background(), raw, nil)
	require.NoError(t, err)
	require.NotContains(t, result.Restored, CategorySettings)
	require.NotContains(t, result.Restored, CategoryWidgetProfiles)

	require.Zero(t, target.settings.replace)
	require.Zero(t, target.profiles.replace)
	require.Equal(t, "light", target.settings.settings["theme"])
	require.Len(t, target.profiles.profiles, 1)
}

func TestRestoreCredentialsOnlyDocumentAppliesOntoLiveState(t *testing.T) {
	t.Parallel()

	opts := ExportOptions{
		IncludeServices:           true,
		IncludeServiceCredentials: true,
	}
	raw := exportRaw(t, seededStores(), opts)

	// Strip the configs category out of the document, leaving only the
	// credentials, as a partial document would carry.
	doc, err := DecodeDocument(raw)
	require.NoError(t, err)
	delete(doc.AppData, string(CategoryServiceConfigs))
	raw, err = EncodeDocument(doc)
	require.NoError(t, err)

	target := newFakeStores()
	target.services.configs = []storage.ServiceConfig{
		{ID: "svc-sonarr", Type: storage.ServiceTypeSonarr, Name: "Sonarr", URL: "http://sonarr:8989"},
		{ID: "svc-other", Type: storage.ServiceTypeRadarr, Name: "Other", URL: "http://other:7878", APIKey: "keep-me"},
	}

	restorer := NewRestorer(target.stores(), nil, nil)
	result, err := restorer.Restore(context.Background(), raw, nil)
	require.NoError(t, err)
	require.Equal(t, []Category{CategoryServiceCredentials}, result.Restored)

	byID := map[string]storage.ServiceConfig{}
	for _, config := range target.services.configs {
		byID[config.ID] = config
	}
	require.Equal(t, "sonarr-key", byID["svc-sonarr"].APIKey)
	require.Equal(t, "keep-me", byID["svc-other"].APIKey)
}

func TestRestoreInvalidatesWidgetCaches(t *testing.T) {
	t.Parallel()

	raw := exportRaw(t, seededStores(), DefaultExportOptions())

	target := newFakeStores()
	target.widgets.cache["w-calendar"] = "cached"

	restorer := NewRestorer(target.stores(), nil, nil)
	_, err := restorer.Restore(context.Background(), raw, nil)
	require.NoError(t, err)

	require.Positive(t, target.widgets.invalidAll)
	require.Contains(t, target.widgets.invalidated, "youtube")
	require.Empty(t, target.widgets.cache)
}

func TestRestoreCredentialBagRemovalInvalidatesItsCache(t *testing.T) {
	t.Parallel()

	source := newFakeStores()
	source.credentials.bags = map[string]storage.CredentialBag{
		"youtube": {"apiKey": "k1"},
	}
	raw := exportRaw(t, source, ExportOptions{IncludeWidgetCredentials: true})

	// The target holds a bag the document does not mention, with cached
	// data fetched using that credential.
	target := newFakeStores()
	target.credentials.bags = map[string]storage.CredentialBag{
		"gone": {"apiKey": "old-secret"},
	}
	target.widgets.cache["gone"] = "fetched-with-old-secret"

	restorer := NewRestorer(target.stores(), nil, nil)
	_, err := restorer.Restore(context.Background(), raw, nil)
	require.NoError(t, err)

	require.NotContains(t, target.credentials.bags, "gone")
	require.NotContains(t, target.widgets.cache, "gone")
	require.Contains(t, target.widgets.invalidated, "gone")
	require.Contains(t, target.widgets.invalidated, "youtube")
}

func TestRestoreConfigCredentialsOnlyInvalidatesAllCaches(t *testing.T) {
	t.Parallel()

	source := newFakeStores()
	source.widgets.widgets = []storage.Widget{
		{ID: "w-youtube", Type: "youtube", Size: storage.WidgetSizeMedium, Config: map[string]any{"apiKey": "embedded-key"}},
	}
	raw := exportRaw(t, source, ExportOptions{
		IncludeWidgetLayout:            true,
		IncludeWidgetConfigCredentials: true,
	})

	doc, err := DecodeDocument(raw)
	require.NoError(t, err)
	delete(doc.AppData, string(CategoryWidgets))
	raw, err = EncodeDocument(doc)
	require.NoError(t, err)

	target := newFakeStores()
	target.widgets.widgets = []storage.Widget{
		{ID: "w-youtube", Type: "youtube", Size: storage.WidgetSizeMedium},
		{ID: "w-other", Type: "calendar", Size: storage.WidgetSizeSmall},
	}
	target.widgets.cache["w-other"] = "cached"

	restorer := NewRestorer(target.stores(), nil, nil)
	result, err := restorer.Restore(context.Background(), raw, nil)
	require.NoError(t, err)
	require.Equal(t, []Category{CategoryWidgetConfigCredentials}, result.Restored)

	require.Positive(t, target.widgets.invalidAll)
	require.Empty(t, target.widgets.cache)
	for _, widget := range target.widgets.widgets {
		if widget.ID == "w-youtube" {
			require.Equal(t, "embedded-key", widget.Config["apiKey"])
		}
	}
}

func TestRestoreRejectsMalformedDocuments(t *testing.T) {
	t.Parallel()

	restorer := NewRestorer(newFakeStores().stores(), nil, nil)

	_, err := restorer.Restore(context.Background(), []byte("{not json"), nil)
	require.ErrorIs(t, err, ErrParse)

	_, err = restorer.Restore(context.Background(), []byte(`{"manifest":{"version":99},"appData":{}}`), nil)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestRestoreRejectsTamperedPayload(t *testing.T) {
	t.Parallel()

	opts := DefaultExportOptions()
	opts.EncryptSensitive = true
	opts.Password = []byte("pw")
	raw := exportRaw(t, seededStores(), opts)

	doc, err := DecodeDocument(raw)
	require.NoError(t, err)

	var payload string
	require.NoError(t, json.Unmarshal(doc.AppData["encryptedPayload"], &payload))
	blob, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	blob[len(blob)/2] ^= 0x01
	tampered, err := json.Marshal(base64.StdEncoding.EncodeToString(blob))
	require.NoError(t, err)
	doc.AppData["encryptedPayload"] = tampered

	raw, err = EncodeDocument(doc)
	require.NoError(t, err)

	restorer := NewRestorer(newFakeStores().stores(), nil, nil)
	_, err = restorer.Restore(context.Background(), raw, []byte("pw"))
	require.ErrorIs(t, err, ErrDecryption)
}

func TestRestoreRejectsDuplicateInlineAndEncryptedCategory(t *testing.T) {
	t.Parallel()

	opts := DefaultExportOptions()
	opts.EncryptSensitive = true
	opts.Password = []byte("pw")
	raw := exportRaw(t, seededStores(), opts)

	var generic map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &generic))
	var appData map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(generic["appData"], &appData))
	appData["serviceCredentials"] = json.RawMessage(`{"svc-sonarr":"smuggled"}`)
	patched, err := json.Marshal(appData)
	require.NoError(t, err)
	generic["appData"] = patched
	raw, err = json.Marshal(generic)
	require.NoError(t, err)

	restorer := NewRestorer(newFakeStores().stores(), nil, nil)
	_, err = restorer.Restore(context.Background(), raw, []byte("pw"))
	require.ErrorIs(t, err, ErrParse)
}

func TestRestoreRecordsOutcomeEvents(t *testing.T) {
	t.Parallel()

	raw := exportRaw(t, seededStores(), DefaultExportOptions())

	events := &fakeEventRecorder{}
	restorer := NewRestorer(newFakeStores().stores(), nil, events)
	_, err := restorer.Restore(context.Background(), raw, nil)
	require.NoError(t, err)
	require.Len(t, events.events, 1)
	require.Equal(t, "restore", events.events[0].Action)
	require.Equal(t, "success", events.events[0].Result)

	_, err = restorer.Restore(context.Background(), bytes.TrimSuffix(raw, []byte("}\n")), nil)
	require.Error(t, err)
	require.Len(t, events.events, 2)
	require.Equal(t, "failure", events.events[1].Result)
}
