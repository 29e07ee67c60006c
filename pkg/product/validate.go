package product

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ValidationError describes a problem with a descriptor field
type ValidationError struct {
	Field    string `json:"field" yaml:"field"`
	Message  string `json:"message" yaml:"message"`
	Severity string `json:"severity" yaml:"severity"` // error, warning
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Severity)
}

// ApplyDefaults fills empty identity fields from the asset path
func (d *Descriptor) ApplyDefaults(assetPath string) {
	if d.CodeName == "" {
		d.CodeName = BaseName(assetPath)
	}
	if d.DisplayName == "" && d.CodeName != "" {
		d.DisplayName = d.CodeName
	}
	if d.SettingsAssetPath == "" && d.CodeName != "" {
		d.SettingsAssetPath = ResourcesRoot + d.CodeName + "Settings.asset"
	}
}

// Validate checks descriptor fields
func (d *Descriptor) Validate() []ValidationError {
	var errs []ValidationError

	if d.CodeName == "" {
		errs = append(errs, ValidationError{
			Field:    "codeName",
			Message:  "Product code name is required",
			Severity: "error",
		})
	} else if strings.ContainsAny(d.CodeName, " /\\") {
		errs = append(errs, ValidationError{
			Field:    "codeName",
			Message:  fmt.Sprintf("Product code name must not contain spaces or slashes: %q", d.CodeName),
			Severity: "error",
		})
	}

	if d.Version != "" && !IsValidVersion(d.Version) {
		errs = append(errs, ValidationError{
			Field:    "version",
			Message:  fmt.Sprintf("Invalid semver format: %s", d.Version),
			Severity: "error",
		})
	}

	if p := NormalizePath(d.SettingsAssetPath); p != "" && !strings.HasPrefix(p, ResourcesRoot) {
		errs = append(errs, ValidationError{
			Field:    "settingsAssetPath",
			Message:  fmt.Sprintf("Settings path %s is outside %s and will be ignored", p, ResourcesRoot),
			Severity: "warning",
		})
	}

	return errs
}

// ApplyDefaults fills empty identity fields from the asset path
func (f *FeatureDescriptor) ApplyDefaults(assetPath string) {
	if f.CodeName == "" {
		f.CodeName = BaseName(assetPath)
	}
	if f.DisplayName == "" && f.CodeName != "" {
		f.DisplayName = f.CodeName
	}
}

// Validate checks feature descriptor fields
func (f *FeatureDescriptor) Validate() []ValidationError {
	var errs []ValidationError

	if f.CodeName == "" {
		errs = append(errs, ValidationError{
			Field:    "codeName",
			Message:  "Feature code name is required",
			Severity: "error",
		})
	}

	if f.SettingsTemplate == "" {
		errs = append(errs, ValidationError{
			Field:    "settingsTemplate",
			Message:  fmt.Sprintf("Settings template is missing for feature '%s'", f.CodeName),
			Severity: "warning",
		})
	}

	return errs
}

// IsValidVersion reports whether v is a semantic version; the leading "v" is optional
func IsValidVersion(v string) bool {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.IsValid(v)
}
