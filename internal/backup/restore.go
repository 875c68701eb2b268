package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/raulshma/uniarr-sub005/internal/storage"
)

type Restorer struct {
	stores Stores
	logger *slog.Logger
	events EventRecorder
}

func NewRestorer(stores Stores, logger *slog.Logger, events EventRecorder) *Restorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Restorer{
		stores: stores,
		logger: logger,
		events: events,
	}
}

// Restore parses a document, decrypts the sensitive payload if present, and
// replaces each restored category's store collection wholesale. Parse and
// decrypt failures happen before any store mutation; a category absent from
// the document leaves the corresponding store untouched.
func (r *Restorer) Restore(ctx context.Context, raw []byte, password []byte) (*RestoreResult, error) {
	result, err := r.restore(ctx, raw, password)
	if err != nil {
		r.recordEvent(ctx, "restore", "failure", err.Error())
		return nil, err
	}
	r.recordEvent(ctx, "restore", "success", fmt.Sprintf("categories=%d", len(result.Restored)))
	return result, nil
}

func (r *Restorer) restore(ctx context.Context, raw []byte, password []byte) (*RestoreResult, error) {
	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, err
	}

	combined := make(map[string]json.RawMessage, len(doc.AppData))
	for name, value := range doc.AppData {
		if name == encryptedPayloadKey {
			continue
		}
		combined[name] = value
	}

	if doc.Encrypted {
		if len(password) == 0 {
			return nil, ErrPasswordRequired
		}
		payload, err := doc.payload()
		if err != nil {
			return nil, err
		}
		sensitive, err := openSensitive(payload, doc.EncryptionInfo, password)
		if err != nil {
			return nil, err
		}
		for name, value := range sensitive {
			if _, exists := combined[name]; exists {
				return nil, fmt.Errorf("%w: category %q present both inline and encrypted", ErrParse, name)
			}
			combined[name] = value
		}
	}

	result := &RestoreResult{Encrypted: doc.Encrypted}
	for _, step := range distributionOrder {
		value, ok := combined[string(step.name)]
		if !ok {
			continue
		}
		if err := step.apply(r, ctx, value, combined); err != nil {
			return nil, fmt.Errorf("restore %s: %w", step.name, err)
		}
		result.Restored = append(result.Restored, step.name)
		r.logger.Info("category restored", slog.String("category", string(step.name)))
	}
	return result, nil
}

// distributionOrder fixes the write sequence so dependent categories land
// after the collections they attach to (config credentials after the
// layout, service credentials after service configs).
var distributionOrder = []struct {
	name  Category
	apply func(r *Restorer, ctx context.Context, value json.RawMessage, combined map[string]json.RawMessage) error
}{
	{CategoryServiceConfigs, (*Restorer).restoreServiceConfigs},
	{CategoryServiceCredentials, (*Restorer).restoreServiceCredentials},
	{CategoryWidgets, (*Restorer).restoreWidgets},
	{CategoryWidgetConfigCredentials, (*Restorer).restoreWidgetConfigCredentials},
	{CategoryWidgetProfiles, (*Restorer).restoreWidgetProfiles},
	{CategorySecureCredentials, (*Restorer).restoreSecureCredentials},
	{CategorySettings, (*Restorer).restoreSettings},
}

func (r *Restorer) restoreServiceConfigs(ctx context.Context, value json.RawMessage, combined map[string]json.RawMessage) error {
	var configs []storage.ServiceConfig
	if err := decodeCategory(value, &configs); err != nil {
		return err
	}

	// Reattach secrets now so a single ReplaceAll writes the complete rows.
	if raw, ok := combined[string(CategoryServiceCredentials)]; ok {
		var credentials map[string]string
		if err := decodeCategory(raw, &credentials); err != nil {
			return err
		}
		for i := range configs {
			if apiKey, ok := credentials[configs[i].ID]; ok {
				configs[i].APIKey = apiKey
			}
		}
	}
	return r.stores.Services.ReplaceAll(ctx, configs)
}

// restoreServiceCredentials handles the case of a document carrying service
// secrets without the configs themselves: secrets are applied onto the live
// config set. When configs were restored in the same pass this is a no-op
// rewrite of the same rows.
func (r *Restorer) restoreServiceCredentials(ctx context.Context, value json.RawMessage, combined map[string]json.RawMessage) error {
	if _, ok := combined[string(CategoryServiceConfigs)]; ok {
		return nil
	}

	var credentials map[string]string
	if err := decodeCategory(value, &credentials); err != nil {
		return err
	}

	configs, err := r.stores.Services.List(ctx)
	if err != nil {
		return err
	}
	for i := range configs {
		if apiKey, ok := credentials[configs[i].ID]; ok {
			configs[i].APIKey = apiKey
		}
	}
	return r.stores.Services.ReplaceAll(ctx, configs)
}

func (r *Restorer) restoreWidgets(ctx context.Context, value json.RawMessage, combined map[string]json.RawMessage) error {
	var widgets []storage.Widget
	if err := decodeCategory(value, &widgets); err != nil {
		return err
	}

	if raw, ok := combined[string(CategoryWidgetConfigCredentials)]; ok {
		var embedded map[string]map[string]string
		if err := decodeCategory(raw, &embedded); err != nil {
			return err
		}
		attachConfigCredentials(widgets, embedded)
	}

	if err := r.stores.Widgets.ReplaceAll(ctx, widgets); err != nil {
		return err
	}
	// The whole layout changed; every cached widget payload is stale.
	return r.stores.Widgets.InvalidateAllCachedData(ctx)
}

func (r *Restorer) restoreWidgetConfigCredentials(ctx context.Context, value json.RawMessage, combined map[string]json.RawMessage) error {
	if _, ok := combined[string(CategoryWidgets)]; ok {
		return nil
	}

	var embedded map[string]map[string]string
	if err := decodeCategory(value, &embedded); err != nil {
		return err
	}

	widgets, err := r.stores.Widgets.List(ctx)
	if err != nil {
		return err
	}
	attachConfigCredentials(widgets, embedded)
	if err := r.stores.Widgets.ReplaceAll(ctx, widgets); err != nil {
		return err
	}

	// The whole layout was rewritten; treat every cached payload as stale
	// rather than guessing which configs a document meant to change.
	return r.stores.Widgets.InvalidateAllCachedData(ctx)
}

func (r *Restorer) restoreWidgetProfiles(ctx context.Context, value json.RawMessage, _ map[string]json.RawMessage) error {
	var profiles []storage.WidgetProfile
	if err := decodeCategory(value, &profiles); err != nil {
		return err
	}
	return r.stores.Profiles.ReplaceAll(ctx, profiles)
}

func (r *Restorer) restoreSecureCredentials(ctx context.Context, value json.RawMessage, _ map[string]json.RawMessage) error {
	var bags map[string]storage.CredentialBag
	if err := decodeCategory(value, &bags); err != nil {
		return err
	}

	// The replace can remove a widget's bag as well as change it; cached
	// data fetched with a removed credential is just as stale. Invalidate
	// the union of the previous and incoming bag owners.
	previous, err := r.stores.Credentials.List(ctx)
	if err != nil {
		return err
	}

	if err := r.stores.Credentials.ReplaceAll(ctx, bags); err != nil {
		return err
	}

	affected := make(map[string]struct{}, len(previous)+len(bags))
	for widgetID := range previous {
		affected[widgetID] = struct{}{}
	}
	for widgetID := range bags {
		affected[widgetID] = struct{}{}
	}
	for widgetID := range affected {
		if err := r.stores.Widgets.InvalidateCachedData(ctx, widgetID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Restorer) restoreSettings(ctx context.Context, value json.RawMessage, _ map[string]json.RawMessage) error {
	var settings map[string]string
	if err := decodeCategory(value, &settings); err != nil {
		return err
	}
	return r.stores.Settings.ReplaceAll(ctx, settings)
}

func attachConfigCredentials(widgets []storage.Widget, embedded map[string]map[string]string) {
	for i := range widgets {
		extracted, ok := embedded[widgets[i].ID]
		if !ok {
			continue
		}
		if widgets[i].Config == nil {
			widgets[i].Config = map[string]any{}
		}
		for key, val := range extracted {
			widgets[i].Config[key] = val
		}
	}
}

func decodeCategory(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

func (r *Restorer) recordEvent(ctx context.Context, action, result, detail string) {
	if r.events == nil {
		return
	}
	event := &storage.BackupEvent{Action: action, Result: result, Detail: detail}
	if err := r.events.Record(ctx, event); err != nil {
		r.logger.Warn("record backup event", slog.String("action", action), slog.Any("error", err))
	}
}
