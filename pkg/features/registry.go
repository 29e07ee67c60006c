package features

import (
	"sync"

	"github.com/platinummonkey/cog/pkg/product"
)

type indexEntry struct {
	feature *product.FeatureSettings
	owner   *product.Settings
}

// SettingsIndex maps feature settings types to the loaded feature settings
// and the product settings that own them
type SettingsIndex struct {
	mu     sync.RWMutex
	byType map[string]indexEntry
}

// NewSettingsIndex creates an empty index
func NewSettingsIndex() *SettingsIndex {
	return &SettingsIndex{byType: make(map[string]indexEntry)}
}

// Register indexes every typed feature of the product settings. A later
// registration of the same type wins.
func (i *SettingsIndex) Register(settings *product.Settings) {
	if settings == nil {
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for idx := range settings.Features {
		f := &settings.Features[idx]
		if f.Type == "" {
			continue
		}
		i.byType[f.Type] = indexEntry{feature: f, owner: settings}
	}
}

// Lookup returns the feature settings of a type and their owning product settings
func (i *SettingsIndex) Lookup(settingsType string) (*product.FeatureSettings, *product.Settings, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	e, ok := i.byType[settingsType]
	if !ok {
		return nil, nil, false
	}
	return e.feature, e.owner, true
}

// Len returns the number of indexed settings types
func (i *SettingsIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byType)
}

// Clear empties the index
func (i *SettingsIndex) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.byType = make(map[string]indexEntry)
}

// Bootstrap wires a feature into a product at startup
type Bootstrap interface {
	Register(owner *product.Settings, feature *product.FeatureSettings)
}

// BootstrapFunc adapts a function to the Bootstrap interface
type BootstrapFunc func(owner *product.Settings, feature *product.FeatureSettings)

// Register implements Bootstrap
func (f BootstrapFunc) Register(owner *product.Settings, feature *product.FeatureSettings) {
	f(owner, feature)
}

type bootstrapEntry struct {
	settingsType string
	bootstrap    Bootstrap
}

// BootstrapRegistry holds one bootstrap per feature settings type
type BootstrapRegistry struct {
	mu      sync.Mutex
	entries []bootstrapEntry
}

// NewBootstrapRegistry creates an empty registry
func NewBootstrapRegistry() *BootstrapRegistry {
	return &BootstrapRegistry{}
}

// Register adds a bootstrap, replacing any registered for the same type
func (r *BootstrapRegistry) Register(settingsType string, b Bootstrap) {
	if b == nil || settingsType == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.settingsType != settingsType {
			kept = append(kept, e)
		}
	}
	r.entries = append(kept, bootstrapEntry{settingsType: settingsType, bootstrap: b})
}

// Apply invokes each bootstrap whose feature settings type is present in settings.
// It returns the number of bootstraps invoked.
func (r *BootstrapRegistry) Apply(settings *product.Settings) int {
	if settings == nil {
		return 0
	}

	r.mu.Lock()
	entries := make([]bootstrapEntry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	applied := 0
	for _, e := range entries {
		feature := settings.FeatureOfType(e.settingsType)
		if feature == nil {
			continue
		}
		e.bootstrap.Register(settings, feature)
		applied++
	}
	return applied
}

// Len returns the number of registered bootstraps
func (r *BootstrapRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear removes every bootstrap
func (r *BootstrapRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
