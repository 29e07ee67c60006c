// Package product defines the product and feature records and the path
// conventions that tie them to the project tree.
package product

import (
	"sort"

	"github.com/platinummonkey/cog/pkg/assets"
	"gopkg.in/yaml.v3"
)

// Asset kinds owned by this package
const (
	KindProductDescriptor         = "PluginProductDescriptor"
	KindFeatureDescriptor         = "FeatureDescriptor"
	KindProductSettings           = "PluginProductSettings"
	KindFeatureSettingsTemplate   = "FeatureSettingsTemplate"
	KindGeneralSettingsTemplate   = "GeneralSettingsTemplate"
	KindResourcesSettingsTemplate = "ResourcesSettingsTemplate"
)

// Ref links one record to another by guid and code name. The code name is the
// authoritative key; the guid detects stale links after a descriptor is
// recreated.
type Ref struct {
	GUID     string `yaml:"guid,omitempty"`
	CodeName string `yaml:"codeName"`
}

// Descriptor describes a plugin product. One exists per product and its
// directory is the product root.
type Descriptor struct {
	assets.Header `yaml:",inline"`

	CodeName                  string `yaml:"codeName"`
	DisplayName               string `yaml:"displayName,omitempty"`
	Version                   string `yaml:"version,omitempty"`
	SettingsAssetPath         string `yaml:"settingsAssetPath,omitempty"`
	GeneralSettingsTemplate   string `yaml:"generalSettingsTemplate,omitempty"`
	ResourcesSettingsTemplate string `yaml:"resourcesSettingsTemplate,omitempty"`
	Copyright                 string `yaml:"copyright,omitempty"`
}

// AssetKind implements assets.Record
func (Descriptor) AssetKind() string { return KindProductDescriptor }

// Ref returns a link to this descriptor
func (d *Descriptor) Ref() Ref {
	return Ref{GUID: d.GUID, CodeName: d.CodeName}
}

// Name returns the display name, falling back to the code name
func (d *Descriptor) Name() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.CodeName
}

// FeatureDescriptor describes a toggleable feature within a product
type FeatureDescriptor struct {
	assets.Header `yaml:",inline"`

	CodeName         string `yaml:"codeName"`
	DisplayName      string `yaml:"displayName,omitempty"`
	Description      string `yaml:"description,omitempty"`
	Product          string `yaml:"product,omitempty"`
	SettingsTemplate string `yaml:"settingsTemplate,omitempty"`
}

// AssetKind implements assets.Record
func (FeatureDescriptor) AssetKind() string { return KindFeatureDescriptor }

// Ref returns a link to this feature descriptor
func (f *FeatureDescriptor) Ref() Ref {
	return Ref{GUID: f.GUID, CodeName: f.CodeName}
}

// FeatureSettings holds the mutable per-feature state stored inside the
// product settings asset
type FeatureSettings struct {
	Feature Ref               `yaml:"feature"`
	Enabled bool              `yaml:"enabled"`
	Type    string            `yaml:"type,omitempty"`
	Values  map[string]string `yaml:"values,omitempty"`
}

// UnmarshalYAML defaults Enabled to true when the field is absent
func (f *FeatureSettings) UnmarshalYAML(value *yaml.Node) error {
	type plain FeatureSettings
	raw := plain{Enabled: true}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*f = FeatureSettings(raw)
	return nil
}

// CodeName returns the code name of the linked feature
func (f *FeatureSettings) CodeName() string {
	return f.Feature.CodeName
}

// Value returns a feature-specific value
func (f *FeatureSettings) Value(key string) (string, bool) {
	v, ok := f.Values[key]
	return v, ok
}

// FeatureSettingsTemplate seeds new FeatureSettings entries
type FeatureSettingsTemplate struct {
	assets.Header `yaml:",inline"`

	Type    string            `yaml:"type,omitempty"`
	Enabled *bool             `yaml:"enabled,omitempty"`
	Values  map[string]string `yaml:"values,omitempty"`
}

// AssetKind implements assets.Record
func (FeatureSettingsTemplate) AssetKind() string { return KindFeatureSettingsTemplate }

// Instantiate creates a settings entry from the template linked to feature
func (t *FeatureSettingsTemplate) Instantiate(feature Ref) *FeatureSettings {
	fs := &FeatureSettings{
		Feature: feature,
		Enabled: true,
		Type:    t.Type,
	}
	if t.Enabled != nil {
		fs.Enabled = *t.Enabled
	}
	if len(t.Values) > 0 {
		fs.Values = make(map[string]string, len(t.Values))
		for k, v := range t.Values {
			fs.Values[k] = v
		}
	}
	return fs
}

// SettingsBlock is a product-wide settings section (general or resources)
type SettingsBlock struct {
	Type   string            `yaml:"type,omitempty"`
	Values map[string]string `yaml:"values,omitempty"`
}

// Clone returns a deep copy of the block
func (b SettingsBlock) Clone() *SettingsBlock {
	out := &SettingsBlock{Type: b.Type}
	if len(b.Values) > 0 {
		out.Values = make(map[string]string, len(b.Values))
		for k, v := range b.Values {
			out.Values[k] = v
		}
	}
	return out
}

// GeneralSettingsTemplate seeds a product's general settings
type GeneralSettingsTemplate struct {
	assets.Header `yaml:",inline"`
	SettingsBlock `yaml:",inline"`
}

// AssetKind implements assets.Record
func (GeneralSettingsTemplate) AssetKind() string { return KindGeneralSettingsTemplate }

// ResourcesSettingsTemplate seeds a product's resources settings
type ResourcesSettingsTemplate struct {
	assets.Header `yaml:",inline"`
	SettingsBlock `yaml:",inline"`
}

// AssetKind implements assets.Record
func (ResourcesSettingsTemplate) AssetKind() string { return KindResourcesSettingsTemplate }

// Settings is the per-product settings asset
type Settings struct {
	assets.Header `yaml:",inline"`

	Descriptor Ref               `yaml:"descriptor"`
	Features   []FeatureSettings `yaml:"features"`
	General    *SettingsBlock    `yaml:"general,omitempty"`
	Resources  *SettingsBlock    `yaml:"resources,omitempty"`
}

// AssetKind implements assets.Record
func (Settings) AssetKind() string { return KindProductSettings }

// Feature returns the settings for a feature code name, or nil
func (s *Settings) Feature(codeName string) *FeatureSettings {
	if codeName == "" {
		return nil
	}
	for i := range s.Features {
		if s.Features[i].Feature.CodeName == codeName {
			return &s.Features[i]
		}
	}
	return nil
}

// FeatureOfType returns the first feature settings with the given type, or nil
func (s *Settings) FeatureOfType(settingsType string) *FeatureSettings {
	if settingsType == "" {
		return nil
	}
	for i := range s.Features {
		if s.Features[i].Type == settingsType {
			return &s.Features[i]
		}
	}
	return nil
}

// IsFeatureEnabled reports whether the named feature exists and is enabled
func (s *Settings) IsFeatureEnabled(codeName string) bool {
	f := s.Feature(codeName)
	return f != nil && f.Enabled
}

// SortedFeatures returns a copy of the feature list ordered by code name
func (s *Settings) SortedFeatures() []FeatureSettings {
	out := make([]FeatureSettings, len(s.Features))
	copy(out, s.Features)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Feature.CodeName < out[j].Feature.CodeName
	})
	return out
}
