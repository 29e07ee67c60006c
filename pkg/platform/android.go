package platform

import (
	"github.com/platinummonkey/cog/pkg/assets"
	"gopkg.in/yaml.v3"
)

// AndroidConfiguration is a per-feature bag of Android manifest fragments and
// gradle dependencies
type AndroidConfiguration struct {
	assets.Header `yaml:",inline"`

	Updater      string                `yaml:"updater,omitempty"`
	Manifest     ManifestConfiguration `yaml:"manifest"`
	Dependencies []GradleDependency    `yaml:"dependencies,omitempty"`
}

// AssetKind implements assets.Record
func (AndroidConfiguration) AssetKind() string { return KindAndroidConfiguration }

// Platform implements Configuration
func (*AndroidConfiguration) Platform() Type { return Android }

// UpdaterName implements Configuration
func (c *AndroidConfiguration) UpdaterName() string { return c.Updater }

// GradleDependency is a maven coordinate without packaging
type GradleDependency struct {
	Group    string `yaml:"group"`
	Artifact string `yaml:"artifact"`
	Version  string `yaml:"version"`
}

// Key returns the merge identity "group:artifact"
func (d GradleDependency) Key() string {
	return d.Group + ":" + d.Artifact
}

// Spec returns "group:artifact:version"
func (d GradleDependency) Spec() string {
	return d.Group + ":" + d.Artifact + ":" + d.Version
}

// ManifestConfiguration holds the manifest fragments of one feature
type ManifestConfiguration struct {
	ManifestAttributes    []ManifestAttribute `yaml:"manifestAttributes,omitempty"`
	ApplicationAttributes []ManifestAttribute `yaml:"applicationAttributes,omitempty"`
	Activities            []Component         `yaml:"activities,omitempty"`
	Providers             []Component         `yaml:"providers,omitempty"`
	Services              []Component         `yaml:"services,omitempty"`
	Receivers             []Component         `yaml:"receivers,omitempty"`
	Permissions           []Permission        `yaml:"permissions,omitempty"`
	Features              []UsesFeature       `yaml:"features,omitempty"`
	MetaData              []MetaData          `yaml:"metaData,omitempty"`
	Queries               []QueryIntent       `yaml:"queries,omitempty"`
}

// ManifestAttribute is a raw attribute such as "android:exported" or "tools:replace"
type ManifestAttribute struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Component is an activity, service, receiver or provider declaration.
// Providers ignore IntentFilters.
type Component struct {
	Name          string              `yaml:"name"`
	Attributes    []ManifestAttribute `yaml:"attributes,omitempty"`
	IntentFilters []IntentFilter      `yaml:"intentFilters,omitempty"`
}

// IntentFilter is a nested intent-filter element
type IntentFilter struct {
	Label      string       `yaml:"label,omitempty"`
	AutoVerify bool         `yaml:"autoVerify,omitempty"`
	Actions    []string     `yaml:"actions,omitempty"`
	Categories []string     `yaml:"categories,omitempty"`
	Data       []IntentData `yaml:"data,omitempty"`
}

// IntentData is a data element of an intent filter
type IntentData struct {
	Scheme     string `yaml:"scheme,omitempty"`
	Host       string `yaml:"host,omitempty"`
	Path       string `yaml:"path,omitempty"`
	PathPrefix string `yaml:"pathPrefix,omitempty"`
}

// IsEmpty reports whether every field is empty
func (d IntentData) IsEmpty() bool {
	return d.Scheme == "" && d.Host == "" && d.Path == "" && d.PathPrefix == ""
}

// Permission is a uses-permission entry
type Permission struct {
	Name          string `yaml:"name"`
	MaxSdkVersion string `yaml:"maxSdkVersion,omitempty"`
}

// UsesFeature is a uses-feature entry; Required defaults to true
type UsesFeature struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
}

// UnmarshalYAML defaults Required to true when absent
func (f *UsesFeature) UnmarshalYAML(value *yaml.Node) error {
	type plain UsesFeature
	raw := plain{Required: true}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*f = UsesFeature(raw)
	return nil
}

// MetaData is an application meta-data entry
type MetaData struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// QueryIntent is a package visibility query
type QueryIntent struct {
	Action string `yaml:"action"`
	Scheme string `yaml:"scheme,omitempty"`
	Host   string `yaml:"host,omitempty"`
	Path   string `yaml:"path,omitempty"`
}
