package features

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/platinummonkey/cog/pkg/product"
)

// ConfigurationUpdater rewrites a feature's platform configuration from its
// feature settings
type ConfigurationUpdater interface {
	Platform() platform.Type
	UpdateConfiguration(ctx context.Context, p Product, feature *product.FeatureSettings, cfg platform.Configuration) error
}

// UpdaterTable maps updater names, as referenced by a configuration's
// "updater" field, to implementations
type UpdaterTable struct {
	updaters map[string]ConfigurationUpdater
}

// NewUpdaterTable creates a table holding the built-in updaters
func NewUpdaterTable() *UpdaterTable {
	t := &UpdaterTable{updaters: make(map[string]ConfigurationUpdater)}
	t.Register(ValuesUpdaterName+"-ios", &ValuesUpdater{Target: platform.IOS})
	t.Register(ValuesUpdaterName+"-android", &ValuesUpdater{Target: platform.Android})
	return t
}

// Register adds or replaces an updater
func (t *UpdaterTable) Register(name string, u ConfigurationUpdater) {
	if u == nil {
		delete(t.updaters, name)
		return
	}
	t.updaters[name] = u
}

// Lookup returns the updater registered under name
func (t *UpdaterTable) Lookup(name string) (ConfigurationUpdater, bool) {
	u, ok := t.updaters[name]
	return u, ok
}

// Names returns the registered updater names in order
func (t *UpdaterTable) Names() []string {
	names := make([]string, 0, len(t.updaters))
	for name := range t.updaters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunConfigurationUpdaters applies registered updaters to the platform
// configurations found in each feature's folder. When feature is nil every
// feature of the settings is processed. It returns the saved paths.
func (s *Store) RunConfigurationUpdaters(ctx context.Context, table *UpdaterTable, p Product, settings *product.Settings, feature *product.FeatureSettings) ([]string, error) {
	if table == nil || p.Descriptor == nil || settings == nil {
		return nil, nil
	}

	targets := GetFeatureSettings(settings)
	if feature != nil {
		targets = []product.FeatureSettings{*feature}
	}

	var updated []string
	for i := range targets {
		f := &targets[i]
		featureRoot := product.FeatureRootPath(p.Root(), f.CodeName())
		if featureRoot == "" {
			continue
		}

		android, err := updateAll[platform.AndroidConfiguration](ctx, s, table, p, f, featureRoot)
		if err != nil {
			return updated, err
		}
		updated = append(updated, android...)

		ios, err := updateAll[platform.IosConfiguration](ctx, s, table, p, f, featureRoot)
		if err != nil {
			return updated, err
		}
		updated = append(updated, ios...)
	}

	return updated, nil
}

func updateAll[T any, PT interface {
	*T
	platform.Configuration
}](ctx context.Context, s *Store, table *UpdaterTable, p Product, f *product.FeatureSettings, featureRoot string) ([]string, error) {
	entries, err := assets.FindAll[T, PT](ctx, s.assets, featureRoot)
	if err != nil {
		return nil, err
	}

	var updated []string
	for _, e := range entries {
		cfg := PT(e.Asset)
		name := cfg.UpdaterName()
		if name == "" {
			continue
		}

		u, ok := table.Lookup(name)
		if !ok || u.Platform() != cfg.Platform() {
			s.log.Debugf("No %s updater named %q for %s", cfg.Platform(), name, e.Path)
			continue
		}

		if err := u.UpdateConfiguration(ctx, p, f, cfg); err != nil {
			return updated, fmt.Errorf("updater %s failed for %s: %w", name, e.Path, err)
		}
		if err := s.assets.Save(e.Path, cfg); err != nil {
			return updated, err
		}
		updated = append(updated, e.Path)
	}
	return updated, nil
}

// ValuesUpdaterName is the prefix of the built-in values updaters
const ValuesUpdaterName = "feature-values"

// ValuesUpdater copies prefixed feature settings values into a configuration.
// On iOS "infoPlist.<Key>" and "entitlements.<Key>" values become Info.plist
// and entitlement entries; on Android "metaData.<name>" values become
// application meta-data. Existing entries with the same key are updated in place.
type ValuesUpdater struct {
	Target platform.Type
}

// Platform implements ConfigurationUpdater
func (u *ValuesUpdater) Platform() platform.Type {
	return u.Target
}

// UpdateConfiguration implements ConfigurationUpdater
func (u *ValuesUpdater) UpdateConfiguration(_ context.Context, _ Product, feature *product.FeatureSettings, cfg platform.Configuration) error {
	keys := make([]string, 0, len(feature.Values))
	for k := range feature.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	switch c := cfg.(type) {
	case *platform.IosConfiguration:
		for _, k := range keys {
			v := feature.Values[k]
			if key, ok := strings.CutPrefix(k, "infoPlist."); ok {
				c.InfoPlist = upsertKeyValue(c.InfoPlist, key, v)
			} else if key, ok := strings.CutPrefix(k, "entitlements."); ok {
				c.Entitlements = upsertKeyValue(c.Entitlements, key, v)
			}
		}
	case *platform.AndroidConfiguration:
		for _, k := range keys {
			name, ok := strings.CutPrefix(k, "metaData.")
			if !ok {
				continue
			}
			c.Manifest.MetaData = upsertMetaData(c.Manifest.MetaData, name, feature.Values[k])
		}
	default:
		return fmt.Errorf("unsupported configuration type %T", cfg)
	}
	return nil
}

func upsertKeyValue(entries []platform.KeyValue, key, value string) []platform.KeyValue {
	if key == "" {
		return entries
	}
	for i := range entries {
		if entries[i].Key == key {
			entries[i].Value = value
			return entries
		}
	}
	return append(entries, platform.KeyValue{Key: key, Value: value})
}

func upsertMetaData(entries []platform.MetaData, name, value string) []platform.MetaData {
	if name == "" {
		return entries
	}
	for i := range entries {
		if entries[i].Name == name {
			entries[i].Value = value
			return entries
		}
	}
	return append(entries, platform.MetaData{Name: name, Value: value})
}
