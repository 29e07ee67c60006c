package android

import (
	"context"

	"github.com/beevik/etree"
	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/platinummonkey/cog/pkg/xmlwriter"
)

const dependenciesHeader = "DONT MODIFY HERE. AUTO GENERATED DEPENDENCIES FROM AndroidPlatformPreBuildProcessor.cs"

// CollectDependencies merges the gradle dependencies of every configuration.
// Entries are keyed by group:artifact and the last one seen wins. Output keeps
// the order in which each key was first seen. Incomplete coordinates are skipped.
func CollectDependencies(configs []*platform.AndroidConfiguration) []platform.GradleDependency {
	var order []string
	merged := make(map[string]platform.GradleDependency)

	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		for _, dep := range cfg.Dependencies {
			if dep.Group == "" || dep.Artifact == "" || dep.Version == "" {
				continue
			}
			key := dep.Key()
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = dep
		}
	}

	deps := make([]platform.GradleDependency, 0, len(order))
	for _, key := range order {
		deps = append(deps, merged[key])
	}
	return deps
}

// DependenciesDocument builds the dependency resolver XML
func DependenciesDocument(deps []platform.GradleDependency) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateComment(dependenciesHeader)

	packages := doc.CreateElement("dependencies").CreateElement("androidPackages")
	for _, dep := range deps {
		packages.CreateElement("androidPackage").CreateAttr("spec", dep.Spec())
	}
	return doc
}

// RenderDependencies returns the bytes of the dependency resolver XML
func RenderDependencies(deps []platform.GradleDependency) ([]byte, error) {
	return xmlwriter.Bytes(DependenciesDocument(deps), xmlwriter.DefaultOptions())
}

// WriteDependenciesXML renders deps and writes them to path
func WriteDependenciesXML(ctx context.Context, w assets.ArtifactWriter, path string, deps []platform.GradleDependency) (bool, error) {
	data, err := RenderDependencies(deps)
	if err != nil {
		return false, err
	}
	return w.WriteArtifact(ctx, ArtifactDependencies, path, data)
}
