package ios

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/ios/pbxproj"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/sirupsen/logrus"
)

// Post-build file and artifact names
const (
	InfoPlistFile           = "Info.plist"
	DefaultEntitlementsFile = "Unity-iPhone.entitlements"

	ArtifactInfoPlist    = "ios-info-plist"
	ArtifactEntitlements = "ios-entitlements"
	ArtifactProject      = "ios-pbxproj"
)

const (
	associatedDomainsKey    = "com.apple.developer.associated-domains"
	urlTypesKey             = "CFBundleURLTypes"
	urlSchemesKey           = "CFBundleURLSchemes"
	entitlementsFilePattern = ".entitlements"
	logContext              = "IosPlatformPostBuildProcessor"
)

// PostBuildOptions tunes a post-build run
type PostBuildOptions struct {
	// Development selects the development push environment
	Development bool
}

// PostBuildReport lists the files touched by a post-build run
type PostBuildReport struct {
	Capabilities []platform.CapabilityType
	Written      []string
	Unchanged    []string
}

// PostBuilder applies iOS configurations to an exported Xcode project
type PostBuilder struct {
	writer assets.ArtifactWriter
	log    *logrus.Logger
}

// NewPostBuilder creates a post-builder. A nil writer writes files directly.
func NewPostBuilder(writer assets.ArtifactWriter, log *logrus.Logger) *PostBuilder {
	if writer == nil {
		writer = assets.DirectWriter{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &PostBuilder{writer: writer, log: log}
}

// PostBuild updates Info.plist, the entitlements, the capabilities and the
// build settings of the project at buildPath, in that order. Nothing happens
// when there are no configurations.
func (b *PostBuilder) PostBuild(ctx context.Context, buildPath string, configs []*platform.IosConfiguration, opts PostBuildOptions) (*PostBuildReport, error) {
	report := &PostBuildReport{}
	if len(configs) == 0 {
		return report, nil
	}

	info, err := readPlist(filepath.Join(buildPath, InfoPlistFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if info != nil {
		b.updateInfoPlist(info, configs)
	}

	projectPath := pbxproj.PathFor(buildPath)
	project, err := pbxproj.ReadFile(projectPath)
	if err != nil {
		if os.IsNotExist(err) {
			b.log.Warnf("[%s] Xcode project not found at '%s'.", logContext, projectPath)
			return report, b.write(ctx, report, ArtifactInfoPlist, info)
		}
		return nil, err
	}

	mainTarget, err := project.MainTargetGUID()
	if err != nil {
		return nil, err
	}

	entitlementsPath, err := ResolveEntitlementsPath(project, buildPath, mainTarget)
	if err != nil {
		return nil, err
	}
	entitlements, err := readPlistOrEmpty(entitlementsPath)
	if err != nil {
		return nil, err
	}

	updateEntitlements(entitlements, configs)

	capabilities, err := applyCapabilities(project, mainTarget, entitlements, info, configs, opts)
	if err != nil {
		return nil, err
	}
	report.Capabilities = capabilities

	if err := updateBuildSettings(project, configs); err != nil {
		return nil, err
	}

	if err := b.write(ctx, report, ArtifactInfoPlist, info); err != nil {
		return nil, err
	}
	if err := b.write(ctx, report, ArtifactEntitlements, entitlements); err != nil {
		return nil, err
	}

	data, err := project.Bytes()
	if err != nil {
		return nil, err
	}
	written, err := b.writer.WriteArtifact(ctx, ArtifactProject, projectPath, data)
	if err != nil {
		return nil, err
	}
	report.record(projectPath, written)

	return report, nil
}

func (b *PostBuilder) write(ctx context.Context, report *PostBuildReport, artifact string, f *plistFile) error {
	if f == nil {
		return nil
	}
	data, err := f.bytes()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.path, err)
	}
	written, err := b.writer.WriteArtifact(ctx, artifact, f.path, data)
	if err != nil {
		return err
	}
	report.record(f.path, written)
	return nil
}

func (r *PostBuildReport) record(p string, written bool) {
	if written {
		r.Written = append(r.Written, p)
	} else {
		r.Unchanged = append(r.Unchanged, p)
	}
}

func (b *PostBuilder) updateInfoPlist(info *plistFile, configs []*platform.IosConfiguration) {
	for _, cfg := range configs {
		for _, entry := range cfg.InfoPlist {
			if entry.Key == "" {
				continue
			}
			if existing, ok := info.stringValue(entry.Key); ok && existing != entry.Value {
				b.log.Warnf("[%s] Info.plist key '%s' value replaced from '%s' to '%s'.", logContext, entry.Key, existing, entry.Value)
			}
			info.root[entry.Key] = entry.Value
		}

		if len(cfg.URLSchemes) > 0 {
			addURLSchemes(info, cfg.URLSchemes)
		}
	}
}

func addURLSchemes(info *plistFile, schemes []string) {
	urlTypes := info.array(urlTypesKey)
	existing := make(map[string]bool)
	for _, t := range urlTypes {
		dict, ok := t.(map[string]interface{})
		if !ok {
			continue
		}
		list, _ := dict[urlSchemesKey].([]interface{})
		for _, s := range list {
			if str, ok := s.(string); ok && str != "" {
				existing[str] = true
			}
		}
	}

	for _, scheme := range schemes {
		if scheme == "" || existing[scheme] {
			continue
		}
		existing[scheme] = true
		urlTypes = append(urlTypes, map[string]interface{}{
			urlSchemesKey: []interface{}{scheme},
		})
	}
	if urlTypes == nil {
		urlTypes = []interface{}{}
	}
	info.root[urlTypesKey] = urlTypes
}

func updateEntitlements(entitlements *plistFile, configs []*platform.IosConfiguration) {
	for _, cfg := range configs {
		for _, entry := range cfg.Entitlements {
			if entry.Key != "" {
				entitlements.root[entry.Key] = entry.Value
			}
		}

		domains := domainEntries(cfg.AssociatedDomains)
		if len(domains) > 0 {
			entitlements.appendUnique(associatedDomainsKey, domains...)
		}
	}
}

func domainEntries(domains []platform.AssociatedDomain) []string {
	var entries []string
	for _, d := range domains {
		if e := d.Entry(); e != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

// ResolveEntitlementsPath returns the entitlements file of the main target.
// An existing CODE_SIGN_ENTITLEMENTS setting wins. Otherwise the default
// Unity-iPhone.entitlements, then the first *.entitlements file in the build
// tree, then a new default file is used, and the build setting is updated to
// point at it.
func ResolveEntitlementsPath(project *pbxproj.Project, buildPath, mainTarget string) (string, error) {
	if rel := project.BuildPropertyForAnyConfig(mainTarget, pbxproj.CodeSignEntitlements); rel != "" {
		return filepath.Join(buildPath, filepath.FromSlash(rel)), nil
	}

	defaultPath := filepath.Join(buildPath, DefaultEntitlementsFile)
	if _, err := os.Stat(defaultPath); err == nil {
		project.SetBuildProperty(mainTarget, pbxproj.CodeSignEntitlements, DefaultEntitlementsFile)
		return defaultPath, nil
	}

	found, err := findEntitlements(buildPath)
	if err != nil {
		return "", err
	}
	if found != "" {
		rel, err := filepath.Rel(buildPath, found)
		if err != nil {
			return "", err
		}
		project.SetBuildProperty(mainTarget, pbxproj.CodeSignEntitlements, filepath.ToSlash(rel))
		return found, nil
	}

	project.SetBuildProperty(mainTarget, pbxproj.CodeSignEntitlements, DefaultEntitlementsFile)
	return defaultPath, nil
}

func findEntitlements(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), entitlementsFilePattern) {
			found = p
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to search for entitlements: %w", err)
	}
	return found, nil
}

func updateBuildSettings(project *pbxproj.Project, configs []*platform.IosConfiguration) error {
	mainTarget, err := project.MainTargetGUID()
	if err != nil {
		return err
	}
	frameworkTarget, err := project.FrameworkTargetGUID()
	if err != nil {
		return err
	}

	var macros []string
	seen := make(map[string]bool)

	for _, cfg := range configs {
		for _, fw := range cfg.Frameworks {
			if fw.Name == "" {
				continue
			}
			if err := project.AddFrameworkToProject(mainTarget, fw.Name, fw.Weak); err != nil {
				return err
			}
			if mainTarget != frameworkTarget {
				if err := project.AddFrameworkToProject(frameworkTarget, fw.Name, fw.Weak); err != nil {
					return err
				}
			}
		}

		for _, prop := range cfg.BuildProperties {
			if prop.Key == "" || prop.Value == "" {
				continue
			}
			applyToTargets(prop.TargetFlags, mainTarget, frameworkTarget, func(target string) {
				project.AddBuildProperty(target, prop.Key, prop.Value)
			})
		}

		applySearchPaths(project, cfg.HeaderSearchPaths, pbxproj.HeaderSearchPaths, mainTarget, frameworkTarget)
		applySearchPaths(project, cfg.FrameworkSearchPaths, pbxproj.FrameworkSearchPaths, mainTarget, frameworkTarget)
		applySearchPaths(project, cfg.LibrarySearchPaths, pbxproj.LibrarySearchPaths, mainTarget, frameworkTarget)

		for _, m := range cfg.Macros {
			if flag := m.Flag(); flag != "" && !seen[flag] {
				seen[flag] = true
				macros = append(macros, flag)
			}
		}
	}

	for _, flag := range macros {
		project.AddBuildProperty(frameworkTarget, pbxproj.OtherCFlags, flag)
	}
	return nil
}

func applySearchPaths(project *pbxproj.Project, paths []platform.SearchPath, key, mainTarget, frameworkTarget string) {
	for _, sp := range paths {
		if sp.Path == "" {
			continue
		}
		applyToTargets(sp.TargetFlags, mainTarget, frameworkTarget, func(target string) {
			project.AddBuildProperty(target, key, sp.Path)
		})
	}
}

func applyToTargets(flags platform.TargetFlags, mainTarget, frameworkTarget string, apply func(string)) {
	if flags.ApplyToMainTarget {
		apply(mainTarget)
	}
	if flags.ApplyToFrameworkTarget {
		apply(frameworkTarget)
	}
}
