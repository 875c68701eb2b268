package backup

import (
	"context"

	"github.com/raulshma/uniarr-sub005/internal/storage"
)

// In-memory store fakes. Replace semantics mirror the sqlite repositories:
// ReplaceAll swaps the whole collection.

type fakeServiceStore struct {
	configs []storage.ServiceConfig
	replace int
}

func (f *fakeServiceStore) List(ctx context.Context) ([]storage.ServiceConfig, error) {
	out := make([]storage.ServiceConfig, len(f.configs))
	copy(out, f.configs)
	return out, nil
}

func (f *fakeServiceStore) ReplaceAll(ctx context.Context, configs []storage.ServiceConfig) error {
	f.configs = make([]storage.ServiceConfig, len(configs))
	copy(f.configs, configs)
	f.replace++
	return nil
}

type fakeWidgetStore struct {
	widgets     []storage.Widget
	cache       map[string]string
	invalidated []string
	invalidAll  int
	replace     int
}

func newFakeWidgetStore(widgets ...storage.Widget) *fakeWidgetStore {
	return &fakeWidgetStore{widgets: widgets, cache: map[string]string{}}
}

func (f *fakeWidgetStore) List(ctx context.Context) ([]storage.Widget, error) {
	out := make([]storage.Widget, 0, len(f.widgets))
	for _, widget := range f.widgets {
		out = append(out, widget.Clone())
	}
	return out, nil
}

func (f *fakeWidgetStore) ReplaceAll(ctx context.Context, widgets []storage.Widget) error {
	f.widgets = make([]storage.Widget, 0, len(widgets))
	for _, widget := range widgets {
		f.widgets = append(f.widgets, widget.Clone())
	}
	f.replace++
	return nil
}

func (f *fakeWidgetStore) InvalidateCachedData(ctx context.Context, widgetID string) error {
	delete(f.cache, widgetID)
	f.invalidated = append(f.invalidated, widgetID)
	return nil
}

func (f *fakeWidgetStore) InvalidateAllCachedData(ctx context.Context) error {
	f.cache = map[string]string{}
	f.invalidAll++
	return nil
}

type fakeProfileStore struct {
	profiles []storage.WidgetProfile
	replace  int
}

func (f *fakeProfileStore) List(ctx context.Context) ([]storage.WidgetProfile, error) {
	out := make([]storage.WidgetProfile, len(f.profiles))
	copy(out, f.profiles)
	return out, nil
}

func (f *fakeProfileStore) ReplaceAll(ctx context.Context, profiles []storage.WidgetProfile) error {
	f.profiles = make([]storage.WidgetProfile, len(profiles))
	copy(f.profiles, profiles)
	f.replace++
	return nil
}

type fakeCredentialStore struct {
	bags    map[string]storage.CredentialBag
	replace int
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{bags: map[string]storage.CredentialBag{}}
}

func (f *fakeCredentialStore) List(ctx context.Context) (map[string]storage.CredentialBag, error) {
	out := make(map[string]storage.CredentialBag, len(f.bags))
	for id, bag := range f.bags {
		copied := storage.CredentialBag{}
		for k, v := range bag {
			copied[k] = v
		}
		out[id] = copied
	}
	return out, nil
}

func (f *fakeCredentialStore) ReplaceAll(ctx context.Context, bags map[string]storage.CredentialBag) error {
	f.bags = make(map[string]storage.CredentialBag, len(bags))
	for id, bag := range bags {
		copied := storage.CredentialBag{}
		for k, v := range bag {
			copied[k] = v
		}
		f.bags[id] = copied
	}
	f.replace++
	return nil
}

type fakeSettingStore struct {
	settings map[string]string
	replace  int
}

func newFakeSettingStore() *fakeSettingStore {
	return &fakeSettingStore{settings: map[string]string{}}
}

func (f *fakeSettingStore) List(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.settings))
	for k, v := range f.settings {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSettingStore) ReplaceAll(ctx context.Context, settings map[string]string) error {
	f.settings = make(map[string]string, len(settings))
	for k, v := range settings {
		f.settings[k] = v
	}
	f.replace++
	return nil
}

type fakeStores struct {
	services    *fakeServiceStore
	widgets     *fakeWidgetStore
	profiles    *fakeProfileStore
	credentials *fakeCredentialStore
	settings    *fakeSettingStore
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		services:    &fakeServiceStore{},
		widgets:     newFakeWidgetStore(),
		profiles:    &fakeProfileStore{},
		credentials: newFakeCredentialStore(),
		settings:    newFakeSettingStore(),
	}
}

type fakeEventRecorder struct {
	events []storage.BackupEvent
}

func (f *fakeEventRecorder) Record(ctx context.Context, event *storage.BackupEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStores) stores() Stores {
	return Stores{
		Services:    f.services,
		Widgets:     f.widgets,
		Profiles:    f.profiles,
		Credentials: f.credentials,
		Settings:    f.settings,
	}
}
