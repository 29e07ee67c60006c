package platform

import (
	"fmt"
	"strconv"

	"github.com/platinummonkey/cog/pkg/assets"
	"gopkg.in/yaml.v3"
)

// IosConfiguration is a per-feature bag of iOS project fragments
type IosConfiguration struct {
	assets.Header `yaml:",inline"`

	Updater              string             `yaml:"updater,omitempty"`
	Pods                 []PodDependency    `yaml:"pods,omitempty"`
	Capabilities         []Capability       `yaml:"capabilities,omitempty"`
	BuildProperties      []BuildProperty    `yaml:"buildProperties,omitempty"`
	HeaderSearchPaths    []SearchPath       `yaml:"headerSearchPaths,omitempty"`
	FrameworkSearchPaths []SearchPath       `yaml:"frameworkSearchPaths,omitempty"`
	LibrarySearchPaths   []SearchPath       `yaml:"librarySearchPaths,omitempty"`
	Macros               []MacroDefinition  `yaml:"macros,omitempty"`
	Frameworks           []FrameworkRef     `yaml:"frameworks,omitempty"`
	InfoPlist            []KeyValue         `yaml:"infoPlist,omitempty"`
	Entitlements         []KeyValue         `yaml:"entitlements,omitempty"`
	URLSchemes           []string           `yaml:"urlSchemes,omitempty"`
	AssociatedDomains    []AssociatedDomain `yaml:"associatedDomains,omitempty"`
}

// AssetKind implements assets.Record
func (IosConfiguration) AssetKind() string { return KindIosConfiguration }

// Platform implements Configuration
func (*IosConfiguration) Platform() Type { return IOS }

// UpdaterName implements Configuration
func (c *IosConfiguration) UpdaterName() string { return c.Updater }

// PodDependency is a CocoaPods dependency; Version may be empty
type PodDependency struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}

// CapabilityType is an Xcode capability
type CapabilityType int

const (
	GameCenter CapabilityType = iota + 1
	InAppPurchase
	ICloud
	PushNotifications
	AssociatedDomains
)

var capabilityNames = map[CapabilityType]string{
	GameCenter:        "GameCenter",
	InAppPurchase:     "InAppPurchase",
	ICloud:            "iCloud",
	PushNotifications: "PushNotifications",
	AssociatedDomains: "AssociatedDomains",
}

func (c CapabilityType) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "CapabilityType(" + strconv.Itoa(int(c)) + ")"
}

// MarshalYAML writes known capabilities by name
func (c CapabilityType) MarshalYAML() (interface{}, error) {
	if name, ok := capabilityNames[c]; ok {
		return name, nil
	}
	return int(c), nil
}

// UnmarshalYAML accepts a capability name or its numeric value
func (c *CapabilityType) UnmarshalYAML(value *yaml.Node) error {
	if n, err := strconv.Atoi(value.Value); err == nil {
		*c = CapabilityType(n)
		return nil
	}
	for t, name := range capabilityNames {
		if name == value.Value {
			*c = t
			return nil
		}
	}
	return fmt.Errorf("unknown capability type %q", value.Value)
}

// Capability declares an Xcode capability. AssociatedDomains only matter for
// the AssociatedDomains type.
type Capability struct {
	Type              CapabilityType     `yaml:"type"`
	AssociatedDomains []AssociatedDomain `yaml:"associatedDomains,omitempty"`
}

// AssociatedDomain is an entry such as "applinks:example.com"
type AssociatedDomain struct {
	ServiceType string `yaml:"serviceType,omitempty"`
	Host        string `yaml:"host"`
}

// DefaultServiceType is used when an associated domain names none
const DefaultServiceType = "applinks"

// Entry returns "serviceType:host", or "" when the host is empty
func (d AssociatedDomain) Entry() string {
	if d.Host == "" {
		return ""
	}
	service := d.ServiceType
	if service == "" {
		service = DefaultServiceType
	}
	return service + ":" + d.Host
}

// TargetFlags selects which Xcode targets receive a setting
type TargetFlags struct {
	ApplyToMainTarget      bool `yaml:"applyToMainTarget"`
	ApplyToFrameworkTarget bool `yaml:"applyToFrameworkTarget"`
}

// BuildProperty is a build setting; it applies to the framework target by default
type BuildProperty struct {
	Key         string `yaml:"key"`
	Value       string `yaml:"value"`
	TargetFlags `yaml:",inline"`
}

// UnmarshalYAML defaults ApplyToFrameworkTarget to true
func (p *BuildProperty) UnmarshalYAML(value *yaml.Node) error {
	type plain BuildProperty
	raw := plain{TargetFlags: TargetFlags{ApplyToFrameworkTarget: true}}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = BuildProperty(raw)
	return nil
}

// SearchPath is a header, framework or library search path
type SearchPath struct {
	Path        string `yaml:"path"`
	TargetFlags `yaml:",inline"`
}

// UnmarshalYAML defaults ApplyToFrameworkTarget to true
func (p *SearchPath) UnmarshalYAML(value *yaml.Node) error {
	type plain SearchPath
	raw := plain{TargetFlags: TargetFlags{ApplyToFrameworkTarget: true}}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = SearchPath(raw)
	return nil
}

// MacroDefinition is a preprocessor define
type MacroDefinition struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// Flag returns "-DNAME" or "-DNAME=VALUE", or "" when the name is empty
func (m MacroDefinition) Flag() string {
	if m.Name == "" {
		return ""
	}
	if m.Value == "" {
		return "-D" + m.Name
	}
	return "-D" + m.Name + "=" + m.Value
}

// FrameworkRef is a system framework to link, e.g. "StoreKit.framework"
type FrameworkRef struct {
	Name string `yaml:"name"`
	Weak bool   `yaml:"weak,omitempty"`
}

// KeyValue is a string-valued Info.plist or entitlements entry
type KeyValue struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}
