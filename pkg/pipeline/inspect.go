package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/cog/pkg/android"
	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/features"
	"github.com/platinummonkey/cog/pkg/ios"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/platinummonkey/cog/pkg/product"
)

// Inspection is the merged native model of one product, as it would be
// generated
type Inspection struct {
	Product  string            `yaml:"product"`
	Root     string            `yaml:"root"`
	Assets   string            `yaml:"assetsRoot"`
	Features []FeatureState    `yaml:"features,omitempty"`
	Android  AndroidInspection `yaml:"android"`
	IOS      IOSInspection     `yaml:"ios"`
}

// FeatureState is one entry of the product settings
type FeatureState struct {
	CodeName string `yaml:"codeName"`
	Enabled  bool   `yaml:"enabled"`
}

// AndroidInspection is the merged Android output
type AndroidInspection struct {
	Configurations int      `yaml:"configurations"`
	Dependencies   []string `yaml:"dependencies,omitempty"`
	Manifest       string   `yaml:"manifest,omitempty"`
}

// IOSInspection is the merged iOS output
type IOSInspection struct {
	Configurations    int      `yaml:"configurations"`
	Pods              []string `yaml:"pods,omitempty"`
	Capabilities      []string `yaml:"capabilities,omitempty"`
	AssociatedDomains []string `yaml:"associatedDomains,omitempty"`
}

// Inspect merges a product's editable configurations without writing any
// artifact. Missing editable copies are still created from templates.
func (p *Pipeline) Inspect(ctx context.Context, productCodeName string) (*Inspection, error) {
	prod, err := p.product(ctx, productCodeName)
	if err != nil {
		return nil, err
	}

	out := &Inspection{
		Product: prod.CodeName(),
		Root:    prod.Root(),
		Assets:  prod.AssetsRoot(p.productsRoot),
	}

	settings, err := p.features.TryLoadProductSettings(ctx, *prod)
	if err != nil {
		return nil, err
	}
	for _, f := range features.GetFeatureSettings(settings) {
		out.Features = append(out.Features, FeatureState{CodeName: f.CodeName(), Enabled: f.Enabled})
	}

	entries, err := platform.GetOrCreateEditableConfigs[platform.AndroidConfiguration](ctx, p.store, out.Root, out.Assets)
	if err != nil {
		return nil, err
	}
	androidConfigs := assetsOf(entries)
	out.Android.Configurations = len(androidConfigs)
	for _, d := range android.CollectDependencies(androidConfigs) {
		out.Android.Dependencies = append(out.Android.Dependencies, d.Spec())
	}
	if len(androidConfigs) > 0 {
		doc := android.NewManifestDocument(product.AndroidLibraryName(prod.CodeName()))
		for _, c := range androidConfigs {
			doc.Apply(&c.Manifest)
		}
		data, err := doc.Bytes()
		if err != nil {
			return nil, fmt.Errorf("failed to render manifest: %w", err)
		}
		out.Android.Manifest = strings.TrimPrefix(string(data), "\ufeff")
	}

	iosConfigs, err := ios.Configurations(ctx, p.store, out.Root, out.Assets)
	if err != nil {
		return nil, err
	}
	out.IOS.Configurations = len(iosConfigs)
	for _, pod := range ios.CollectPods(iosConfigs) {
		spec := pod.Name
		if pod.Version != "" {
			spec += " " + pod.Version
		}
		out.IOS.Pods = append(out.IOS.Pods, spec)
	}
	capabilities, domains := ios.CollectCapabilities(iosConfigs)
	for _, c := range capabilities {
		out.IOS.Capabilities = append(out.IOS.Capabilities, c.String())
	}
	out.IOS.AssociatedDomains = domains

	return out, nil
}

func assetsOf[T any](entries []assets.Entry[T]) []*T {
	out := make([]*T, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Asset)
	}
	return out
}

// Issue is a validation finding on a descriptor asset
type Issue struct {
	Path string
	product.ValidationError
}

// Validate checks every product and feature descriptor in the project
func (p *Pipeline) Validate(ctx context.Context) ([]Issue, error) {
	products, err := p.features.FindProducts(ctx)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	for _, prod := range products {
		for _, ve := range prod.Descriptor.Validate() {
			issues = append(issues, Issue{Path: prod.Path, ValidationError: ve})
		}

		descriptors, err := p.features.FeatureDescriptors(ctx, prod)
		if err != nil {
			return issues, err
		}
		for _, fd := range descriptors {
			for _, ve := range fd.Asset.Validate() {
				issues = append(issues, Issue{Path: fd.Path, ValidationError: ve})
			}
		}
	}
	return issues, nil
}
