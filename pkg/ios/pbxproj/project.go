// Package pbxproj edits Xcode project files. Projects are parsed from the
// OpenStep property list format and written back with sorted keys, and new
// objects get ids derived from their content, so applying the same edits to
// the same input always produces the same bytes.
package pbxproj

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"howett.net/plist"
)

const (
	// MainTargetName is the application target of a Unity export
	MainTargetName = "Unity-iPhone"

	// ChinaMainTargetName is the application target of a Tuanjie export
	ChinaMainTargetName = "Tuanjie-iPhone"

	// FrameworkTargetName is the framework target holding plugin code
	FrameworkTargetName = "UnityFramework"

	// ProjectFile is the project path relative to a build directory
	ProjectFile = "Unity-iPhone.xcodeproj/project.pbxproj"

	fileHeader = "// !$*UTF8*$!\n"
)

// Common build setting keys
const (
	CodeSignEntitlements = "CODE_SIGN_ENTITLEMENTS"
	OtherCFlags          = "OTHER_CFLAGS"
	HeaderSearchPaths    = "HEADER_SEARCH_PATHS"
	FrameworkSearchPaths = "FRAMEWORK_SEARCH_PATHS"
	LibrarySearchPaths   = "LIBRARY_SEARCH_PATHS"
)

type object = map[string]interface{}

// Project is an in-memory Xcode project
type Project struct {
	data object
}

// PathFor returns the project file of an exported build
func PathFor(buildPath string) string {
	return filepath.Join(buildPath, filepath.FromSlash(ProjectFile))
}

// ReadFile parses the project at p
func ReadFile(p string) (*Project, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes an OpenStep formatted project
func Parse(data []byte) (*Project, error) {
	var root object
	if _, err := plist.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}
	if _, ok := root["objects"].(object); !ok {
		return nil, NewInvalidProjectError("missing objects dictionary")
	}
	return &Project{data: root}, nil
}

// Bytes encodes the project. The "/* ... */" object annotations Xcode
// writes are not reproduced and non-ASCII strings are escaped, but every
// value reads back unchanged.
func (p *Project) Bytes() ([]byte, error) {
	out, err := plist.MarshalIndent(p.data, plist.OpenStepFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to encode project: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	buf.Write(out)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (p *Project) objects() object {
	return p.data["objects"].(object)
}

func (p *Project) object(id string) object {
	obj, _ := p.objects()[id].(object)
	return obj
}

// TargetGUIDByName returns the id of the native target with the given name
func (p *Project) TargetGUIDByName(name string) (string, error) {
	for _, id := range p.idsOf("PBXNativeTarget") {
		if str(p.object(id)["name"]) == name {
			return id, nil
		}
	}
	return "", NewTargetNotFoundError(name)
}

// MainTargetGUID returns the application target, trying the Unity name first
func (p *Project) MainTargetGUID() (string, error) {
	if id, err := p.TargetGUIDByName(MainTargetName); err == nil {
		return id, nil
	}
	if id, err := p.TargetGUIDByName(ChinaMainTargetName); err == nil {
		return id, nil
	}
	return "", NewTargetNotFoundError(MainTargetName)
}

// FrameworkTargetGUID returns the UnityFramework target, or the main target
// for projects that predate it
func (p *Project) FrameworkTargetGUID() (string, error) {
	if id, err := p.TargetGUIDByName(FrameworkTargetName); err == nil {
		return id, nil
	}
	return p.MainTargetGUID()
}

// BuildPropertyForAnyConfig returns the first value of key found in any of
// the target's build configurations. List values are joined with spaces.
func (p *Project) BuildPropertyForAnyConfig(target, key string) string {
	for _, settings := range p.buildSettings(target) {
		switch v := settings[key].(type) {
		case string:
			return v
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, str(item))
			}
			return strings.Join(parts, " ")
		}
	}
	return ""
}

// SetBuildProperty replaces key with value in every build configuration
func (p *Project) SetBuildProperty(target, key, value string) {
	for _, settings := range p.buildSettings(target) {
		settings[key] = value
	}
}

// AddBuildProperty appends value to key in every build configuration. A
// value that is already present is not added again.
func (p *Project) AddBuildProperty(target, key, value string) {
	for _, settings := range p.buildSettings(target) {
		switch existing := settings[key].(type) {
		case nil:
			settings[key] = value
		case string:
			if existing != value {
				settings[key] = []interface{}{existing, value}
			}
		case []interface{}:
			if !containsString(existing, value) {
				settings[key] = append(existing, value)
			}
		}
	}
}

// AddFrameworkToProject links a system framework into the target. Adding the
// same framework twice is a no-op.
func (p *Project) AddFrameworkToProject(target, framework string, weak bool) error {
	phaseID, err := p.frameworksPhase(target)
	if err != nil {
		return err
	}

	fileRef := p.ensureFrameworkReference(framework)
	phase := p.object(phaseID)
	files, _ := phase["files"].([]interface{})
	for _, id := range files {
		if str(p.object(str(id))["fileRef"]) == fileRef {
			return nil
		}
	}

	buildFile := object{"isa": "PBXBuildFile", "fileRef": fileRef}
	if weak {
		buildFile["settings"] = object{"ATTRIBUTES": []interface{}{"Weak"}}
	}
	id := newID("PBXBuildFile", phaseID, fileRef)
	p.objects()[id] = buildFile
	phase["files"] = append(files, id)
	return nil
}

// AddSystemCapability marks a capability as enabled on the target
func (p *Project) AddSystemCapability(target, capability string) error {
	root := p.object(str(p.data["rootObject"]))
	if root == nil {
		return NewInvalidProjectError("missing root object")
	}

	attributes := child(root, "attributes")
	targetAttributes := child(child(attributes, "TargetAttributes"), target)
	capabilities := child(targetAttributes, "SystemCapabilities")
	capabilities[capability] = object{"enabled": "1"}
	return nil
}

// SystemCapabilities returns the enabled capability names of the target
func (p *Project) SystemCapabilities(target string) []string {
	root := p.object(str(p.data["rootObject"]))
	attributes, _ := root["attributes"].(object)
	targets, _ := attributes["TargetAttributes"].(object)
	targetAttributes, _ := targets[target].(object)
	capabilities, _ := targetAttributes["SystemCapabilities"].(object)

	var names []string
	for name, v := range capabilities {
		if entry, ok := v.(object); ok && str(entry["enabled"]) == "1" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// LinkedFrameworks returns the names of the frameworks linked by the target
func (p *Project) LinkedFrameworks(target string) []string {
	phaseID, err := p.frameworksPhase(target)
	if err != nil {
		return nil
	}

	var names []string
	files, _ := p.object(phaseID)["files"].([]interface{})
	for _, id := range files {
		ref := p.object(str(p.object(str(id))["fileRef"]))
		if name := str(ref["name"]); name != "" {
			names = append(names, name)
		} else {
			names = append(names, path.Base(str(ref["path"])))
		}
	}
	return names
}

func (p *Project) ensureFrameworkReference(framework string) string {
	refPath := "System/Library/Frameworks/" + framework
	for _, id := range p.idsOf("PBXFileReference") {
		ref := p.object(id)
		if str(ref["path"]) == refPath && str(ref["sourceTree"]) == "SDKROOT" {
			return id
		}
	}

	fileType := "wrapper.framework"
	if strings.HasSuffix(framework, ".tbd") {
		fileType = "sourcecode.text-based-dylib-definition"
	}

	id := newID("PBXFileReference", refPath)
	p.objects()[id] = object{
		"isa":               "PBXFileReference",
		"lastKnownFileType": fileType,
		"name":              framework,
		"path":              refPath,
		"sourceTree":        "SDKROOT",
	}

	if group := p.groupNamed("Frameworks"); group != nil {
		children, _ := group["children"].([]interface{})
		group["children"] = append(children, id)
	}
	return id
}

func (p *Project) frameworksPhase(target string) (string, error) {
	t := p.object(target)
	if t == nil {
		return "", NewTargetNotFoundError(target)
	}

	phases, _ := t["buildPhases"].([]interface{})
	for _, id := range phases {
		if str(p.object(str(id))["isa"]) == "PBXFrameworksBuildPhase" {
			return str(id), nil
		}
	}

	id := newID("PBXFrameworksBuildPhase", target)
	p.objects()[id] = object{
		"isa":                                "PBXFrameworksBuildPhase",
		"buildActionMask":                    "2147483647",
		"files":                              []interface{}{},
		"runOnlyForDeploymentPostprocessing": "0",
	}
	t["buildPhases"] = append(phases, id)
	return id, nil
}

func (p *Project) buildSettings(target string) []object {
	t := p.object(target)
	if t == nil {
		return nil
	}

	list := p.object(str(t["buildConfigurationList"]))
	ids, _ := list["buildConfigurations"].([]interface{})

	var settings []object
	for _, id := range ids {
		cfg := p.object(str(id))
		if cfg == nil {
			continue
		}
		settings = append(settings, child(cfg, "buildSettings"))
	}
	return settings
}

func (p *Project) groupNamed(name string) object {
	for _, id := range p.idsOf("PBXGroup") {
		group := p.object(id)
		if str(group["name"]) == name || str(group["path"]) == name {
			return group
		}
	}
	return nil
}

// idsOf returns the sorted ids of every object with the given isa
func (p *Project) idsOf(isa string) []string {
	var ids []string
	for id, v := range p.objects() {
		if obj, ok := v.(object); ok && str(obj["isa"]) == isa {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func newID(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return strings.ToUpper(hex.EncodeToString(sum[:12]))
}

func child(parent object, key string) object {
	if existing, ok := parent[key].(object); ok {
		return existing
	}
	created := object{}
	parent[key] = created
	return created
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func containsString(values []interface{}, s string) bool {
	for _, v := range values {
		if str(v) == s {
			return true
		}
	}
	return false
}
