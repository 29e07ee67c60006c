package android

import (
	"context"
	"fmt"
	"path"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/platinummonkey/cog/pkg/product"
	"github.com/sirupsen/logrus"
)

// Artifact names reported to the artifact writer
const (
	ArtifactDependencies = "android-dependencies"
	ArtifactManifest     = "android-manifest"
)

// DependenciesRelativePath is where the dependency XML lands under a product's assets root
const DependenciesRelativePath = "Editor/AndroidDependencies.xml"

// PluginsFolder holds the generated Android library under a product's assets root
const PluginsFolder = "Plugins/Android"

// Report summarizes one ProcessAll run
type Report struct {
	Configurations int
	Dependencies   int
	Written        []string
	Unchanged      []string
}

func (r *Report) record(p string, written bool) {
	if written {
		r.Written = append(r.Written, p)
	} else {
		r.Unchanged = append(r.Unchanged, p)
	}
}

// Processor generates the Android pre-build artifacts of a product
type Processor struct {
	store  *assets.Store
	writer assets.ArtifactWriter
	log    *logrus.Logger
}

// NewProcessor creates a processor. A nil writer writes files directly.
func NewProcessor(store *assets.Store, writer assets.ArtifactWriter, log *logrus.Logger) *Processor {
	if writer == nil {
		writer = assets.DirectWriter{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Processor{store: store, writer: writer, log: log}
}

// ProcessAll resolves the editable Android configurations of a product, then
// writes its dependency XML and, when there is anything to merge, its library
// manifest. An empty assetsRoot is a no-op.
func (p *Processor) ProcessAll(ctx context.Context, templateRoot, assetsRoot, productCodeName string) (*Report, error) {
	report := &Report{}
	if assetsRoot == "" {
		return report, nil
	}

	entries, err := platform.GetOrCreateEditableConfigs[platform.AndroidConfiguration](ctx, p.store, templateRoot, assetsRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve android configurations: %w", err)
	}

	configs := make([]*platform.AndroidConfiguration, 0, len(entries))
	for _, e := range entries {
		configs = append(configs, e.Asset)
	}
	report.Configurations = len(configs)

	deps := CollectDependencies(configs)
	report.Dependencies = len(deps)

	depsPath := DependenciesPath(assetsRoot)
	written, err := WriteDependenciesXML(ctx, p.writer, p.store.Abs(depsPath), deps)
	if err != nil {
		return nil, err
	}
	report.record(depsPath, written)
	p.log.Debugf("[AndroidPlatformPreBuildProcessor] %d dependencies from %d configurations", len(deps), len(configs))

	if productCodeName == "" || len(configs) == 0 {
		return report, nil
	}

	libraryName := product.AndroidLibraryName(productCodeName)
	manifest := NewManifestDocument(libraryName)
	for _, cfg := range configs {
		manifest.Apply(&cfg.Manifest)
	}

	data, err := manifest.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render manifest: %w", err)
	}

	manifestPath := ManifestPath(assetsRoot, libraryName)
	written, err = p.writer.WriteArtifact(ctx, ArtifactManifest, p.store.Abs(manifestPath), data)
	if err != nil {
		return nil, err
	}
	report.record(manifestPath, written)

	return report, nil
}

// DependenciesPath returns the dependency XML path for a product assets root
func DependenciesPath(assetsRoot string) string {
	return path.Join(product.NormalizePath(assetsRoot), DependenciesRelativePath)
}

// ManifestPath returns the library manifest path for a product assets root
func ManifestPath(assetsRoot, libraryName string) string {
	return path.Join(product.NormalizePath(assetsRoot), PluginsFolder, libraryName, "AndroidManifest.xml")
}
