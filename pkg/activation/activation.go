// Package activation switches a feature's code and native plugins on or off
// for the player build by rewriting its assembly definitions and the
// PluginImporter settings of its native libraries.
package activation

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/product"
	"github.com/sirupsen/logrus"
)

const logContext = "FeatureActivationUtility"

// Activator applies feature enablement to project files
type Activator struct {
	store *assets.Store
	log   *logrus.Logger
}

// New creates an activator
func New(store *assets.Store, log *logrus.Logger) *Activator {
	if log == nil {
		log = logrus.New()
	}
	return &Activator{store: store, log: log}
}

// UpdateImporters applies the enabled state of feature, or of every feature
// in settings when feature is nil, under productRoot. It returns the paths
// it rewrote.
func (a *Activator) UpdateImporters(ctx context.Context, productRoot string, settings *product.Settings, feature *product.FeatureSettings) ([]string, error) {
	if productRoot == "" {
		return nil, nil
	}

	var targets []product.FeatureSettings
	switch {
	case feature != nil:
		targets = append(targets, *feature)
	case settings != nil:
		targets = settings.SortedFeatures()
	}

	var updated []string
	for i := range targets {
		paths, err := a.updateFeature(ctx, productRoot, &targets[i])
		if err != nil {
			return updated, err
		}
		updated = append(updated, paths...)
	}

	if len(updated) > 0 {
		a.log.Infof("[%s] Updated plugin importers:\n%s", logContext, strings.Join(updated, "\n"))
	}
	return updated, nil
}

func (a *Activator) updateFeature(ctx context.Context, productRoot string, feature *product.FeatureSettings) ([]string, error) {
	code := feature.CodeName()
	if code == "" {
		return nil, nil
	}

	featureRoot := product.FeatureRootPath(productRoot, code)
	updated, err := a.updateAssemblyDefinitions(ctx, featureRoot, feature.Enabled)
	if err != nil {
		return updated, err
	}

	pluginsRoot := product.NativePluginsPath(featureRoot)
	for _, group := range []struct {
		dir     string
		targets []Target
	}{
		{path.Join(pluginsRoot, "iOS"), IOSTargets},
		{path.Join(pluginsRoot, "Android"), AndroidTargets},
	} {
		paths, err := a.updatePluginImporters(ctx, group.dir, group.targets, feature.Enabled)
		if err != nil {
			return updated, err
		}
		updated = append(updated, paths...)
	}

	return updated, nil
}

func (a *Activator) updateAssemblyDefinitions(ctx context.Context, featureRoot string, enabled bool) ([]string, error) {
	files, err := a.walk(ctx, featureRoot, ".asmdef")
	if err != nil {
		return nil, err
	}

	perDir := make(map[string]int)
	for _, f := range files {
		perDir[path.Dir(f)]++
	}

	var updated []string
	for _, f := range files {
		if IsEditorAssemblyDefinition(f) {
			continue
		}
		if dir := path.Dir(f); perDir[dir] != 1 {
			a.log.Warnf("[%s] Skipped asmdef update due to multiple asmdefs in '%s'.", logContext, dir)
			continue
		}

		data, err := a.store.ReadFile(f)
		if err != nil {
			return updated, err
		}
		out, changed, err := ToggleAssemblyDefinition(data, enabled)
		if err != nil {
			a.log.Warnf("[%s] Skipped %s: %v", logContext, f, err)
			continue
		}
		if !changed {
			continue
		}
		if err := a.store.WriteFile(f, out); err != nil {
			return updated, err
		}
		updated = append(updated, f)
	}
	return updated, nil
}

func (a *Activator) updatePluginImporters(ctx context.Context, dir string, targets []Target, enabled bool) ([]string, error) {
	metas, err := a.walk(ctx, dir, ".meta")
	if err != nil {
		return nil, err
	}

	var updated []string
	for _, m := range metas {
		data, err := a.store.ReadFile(m)
		if err != nil {
			return updated, err
		}
		out, changed, err := UpdatePluginImporter(data, targets, enabled)
		if err != nil {
			a.log.Warnf("[%s] Skipped %s: %v", logContext, m, err)
			continue
		}
		if !changed {
			continue
		}
		if err := a.store.WriteFile(m, out); err != nil {
			return updated, err
		}
		updated = append(updated, strings.TrimSuffix(m, ".meta"))
	}
	return updated, nil
}

// walk returns the sorted project-relative paths of files under root with
// the given extension. A missing root yields nothing.
func (a *Activator) walk(ctx context.Context, root, ext string) ([]string, error) {
	if !a.store.DirExists(root) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(a.store.Abs(root), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		rel, err := a.store.Rel(p)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// IsEditorAssemblyDefinition reports whether an asmdef only targets the editor
func IsEditorAssemblyDefinition(p string) bool {
	lower := strings.ToLower(filepath.ToSlash(p))
	return strings.Contains(lower, "/editor/") || strings.HasSuffix(lower, ".editor.asmdef")
}
