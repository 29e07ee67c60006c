// Package pipeline orchestrates the sync, pre-build and post-build runs over
// every product in a project.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/cog/pkg/activation"
	"github.com/platinummonkey/cog/pkg/android"
	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/features"
	"github.com/platinummonkey/cog/pkg/ios"
	"github.com/platinummonkey/cog/pkg/journal"
	"github.com/platinummonkey/cog/pkg/observability"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/platinummonkey/cog/pkg/product"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Operation names used in the journal and metrics
const (
	OpSync      = "sync"
	OpPreBuild  = "prebuild"
	OpPostBuild = "postbuild"
	OpResync    = "resync"
	OpActivate  = "activate"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	// allProducts labels runs that span every product
	allProducts = "*"
)

// Options configures a Pipeline
type Options struct {
	ProductsRoot string

	// Writer persists generated artifacts; nil writes directly
	Writer assets.ArtifactWriter

	// Journal receives the sync history; nil disables it
	Journal *journal.Journal

	// Bootstraps run against every synced product's feature settings
	Bootstraps *features.BootstrapRegistry

	Metrics  *observability.Metrics
	Updaters *features.UpdaterTable
	Logger   *logrus.Logger
}

// Pipeline runs the product-level operations
type Pipeline struct {
	store        *assets.Store
	features     *features.Store
	activator    *activation.Activator
	android      *android.Processor
	ios          *ios.Processor
	postBuilder  *ios.PostBuilder
	writer       assets.ArtifactWriter
	updaters     *features.UpdaterTable
	bootstraps   *features.BootstrapRegistry
	settings     *features.SettingsIndex
	journal      *journal.Journal
	metrics      *observability.Metrics
	productsRoot string
	resyncs      singleflight.Group
	log          *logrus.Logger
}

// New creates a pipeline over a feature settings store
func New(fs *features.Store, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Writer == nil {
		opts.Writer = assets.DirectWriter{}
	}
	if opts.Updaters == nil {
		opts.Updaters = features.NewUpdaterTable()
	}
	if opts.Bootstraps == nil {
		opts.Bootstraps = features.NewBootstrapRegistry()
	}
	if opts.ProductsRoot == "" {
		opts.ProductsRoot = product.DefaultProductsRoot
	}

	store := fs.Assets()
	return &Pipeline{
		store:        store,
		features:     fs,
		activator:    activation.New(store, opts.Logger),
		android:      android.NewProcessor(store, opts.Writer, opts.Logger),
		ios:          ios.NewProcessor(store, opts.Writer, opts.Logger),
		postBuilder:  ios.NewPostBuilder(opts.Writer, opts.Logger),
		writer:       opts.Writer,
		updaters:     opts.Updaters,
		bootstraps:   opts.Bootstraps,
		settings:     features.NewSettingsIndex(),
		journal:      opts.Journal,
		metrics:      opts.Metrics,
		productsRoot: opts.ProductsRoot,
		log:          opts.Logger,
	}
}

// ProductsRoot returns the editable products root
func (p *Pipeline) ProductsRoot() string {
	return p.productsRoot
}

// Features returns the feature settings store
func (p *Pipeline) Features() *features.Store {
	return p.features
}

// Settings returns the index of feature settings loaded by Sync
func (p *Pipeline) Settings() *features.SettingsIndex {
	return p.settings
}

// SyncReport describes a Sync run
type SyncReport struct {
	Product      string
	Features     features.Result
	Activated    []string
	Updated      []string
	Bootstrapped int
}

// Sync loads or creates the product's settings, reconciles its features,
// indexes and bootstraps them, applies feature activation and runs the
// configuration updaters
func (p *Pipeline) Sync(ctx context.Context, productCodeName string) (report *SyncReport, err error) {
	start := time.Now()
	report = &SyncReport{Product: productCodeName}
	defer func() {
		p.finish(ctx, productCodeName, OpSync, start, len(report.Activated)+len(report.Updated), 0, err)
	}()

	prod, err := p.product(ctx, productCodeName)
	if err != nil {
		return report, err
	}

	settings, result, err := p.features.LoadOrCreateProductSettings(ctx, *prod)
	if err != nil {
		return report, err
	}
	report.Features = result
	if settings == nil {
		return report, nil
	}

	p.settings.Register(settings)
	report.Bootstrapped = p.bootstraps.Apply(settings)

	report.Activated, err = p.activator.UpdateImporters(ctx, prod.Root(), settings, nil)
	if err != nil {
		return report, fmt.Errorf("failed to update plugin importers: %w", err)
	}

	report.Updated, err = p.features.RunConfigurationUpdaters(ctx, p.updaters, *prod, settings, nil)
	if err != nil {
		return report, fmt.Errorf("failed to run configuration updaters: %w", err)
	}

	return report, nil
}

// Activate applies the enabled state of every feature of an existing
// product's settings without touching anything else
func (p *Pipeline) Activate(ctx context.Context, productCodeName string) (updated []string, err error) {
	start := time.Now()
	defer func() {
		p.finish(ctx, productCodeName, OpActivate, start, len(updated), 0, err)
	}()

	prod, err := p.product(ctx, productCodeName)
	if err != nil {
		return nil, err
	}

	settings, err := p.features.TryLoadProductSettings(ctx, *prod)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		p.features.LogMissingSettingsWarnings(ctx, []features.Product{*prod}, "FeatureActivationUtility")
		return nil, nil
	}

	return p.activator.UpdateImporters(ctx, prod.Root(), settings, nil)
}

// ProductReport is the pre-build outcome of one product
type ProductReport struct {
	Product        string
	Configurations int
	Entries        int
	Written        []string
	Unchanged      []string
}

// PreBuildReport is the outcome of a pre-build run
type PreBuildReport struct {
	Platform platform.Type
	Products []ProductReport
}

// PreBuild generates the pre-build artifacts of every product for a build
// target: dependency XML and library manifest for android, pods XML for
// ios and tvos
func (p *Pipeline) PreBuild(ctx context.Context, target string) (*PreBuildReport, error) {
	pt, ok := platform.ParseType(target)
	if !ok {
		return nil, NewUnsupportedTargetError(target)
	}

	products, err := p.features.FindProducts(ctx)
	if err != nil {
		return nil, err
	}

	report := &PreBuildReport{Platform: pt}
	for _, prod := range products {
		pr, err := p.preBuildProduct(ctx, pt, prod, OpPreBuild)
		if err != nil {
			return report, err
		}
		report.Products = append(report.Products, pr)
	}
	return report, nil
}

// Resync regenerates both platforms' pre-build artifacts for one product.
// Concurrent calls for the same product share a single run.
func (p *Pipeline) Resync(ctx context.Context, prod features.Product) error {
	_, err, shared := p.resyncs.Do(prod.CodeName(), func() (interface{}, error) {
		for _, pt := range []platform.Type{platform.Android, platform.IOS} {
			if _, err := p.preBuildProduct(ctx, pt, prod, OpResync); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if shared {
		p.log.Debugf("Joined in-flight resync of %s", prod.CodeName())
	}
	return err
}

func (p *Pipeline) preBuildProduct(ctx context.Context, pt platform.Type, prod features.Product, op string) (report ProductReport, err error) {
	start := time.Now()
	report.Product = prod.CodeName()
	defer func() {
		p.finish(ctx, prod.CodeName(), op, start, len(report.Written), len(report.Unchanged), err)
	}()

	templateRoot := prod.Root()
	assetsRoot := prod.AssetsRoot(p.productsRoot)

	switch pt {
	case platform.Android:
		r, err := p.android.ProcessAll(ctx, templateRoot, assetsRoot, prod.CodeName())
		if err != nil {
			return report, err
		}
		report.Configurations, report.Entries = r.Configurations, r.Dependencies
		report.Written, report.Unchanged = r.Written, r.Unchanged
		p.metrics.SetMergeEntries(string(pt), "dependencies", r.Dependencies)
	case platform.IOS:
		r, err := p.ios.ProcessAll(ctx, templateRoot, assetsRoot)
		if err != nil {
			return report, err
		}
		report.Configurations, report.Entries = r.Configurations, r.Pods
		report.Written, report.Unchanged = r.Written, r.Unchanged
		p.metrics.SetMergeEntries(string(pt), "pods", r.Pods)
	}
	return report, nil
}

// BuildReport describes a finished player build
type BuildReport struct {
	Platform    string
	OutputPath  string
	Development bool
}

// PostBuildResult lists the files touched by a post-build run
type PostBuildResult struct {
	Platform     platform.Type
	Capabilities []platform.CapabilityType
	Written      []string
	Unchanged    []string
}

// PostBuild applies the merged configurations of every product to the
// exported native project
func (p *Pipeline) PostBuild(ctx context.Context, build BuildReport) (result *PostBuildResult, err error) {
	pt, ok := platform.ParseType(build.Platform)
	if !ok {
		return nil, NewUnsupportedTargetError(build.Platform)
	}

	start := time.Now()
	result = &PostBuildResult{Platform: pt}
	defer func() {
		p.finish(ctx, allProducts, OpPostBuild, start, len(result.Written), len(result.Unchanged), err)
	}()

	products, err := p.features.FindProducts(ctx)
	if err != nil {
		return result, err
	}
	p.features.LogMissingSettingsWarnings(ctx, products, "PlatformPostBuildProcessingRunner")

	switch pt {
	case platform.IOS:
		var configs []*platform.IosConfiguration
		for _, prod := range products {
			c, err := ios.Configurations(ctx, p.store, prod.Root(), prod.AssetsRoot(p.productsRoot))
			if err != nil {
				return result, err
			}
			configs = append(configs, c...)
		}

		r, err := p.postBuilder.PostBuild(ctx, build.OutputPath, configs, ios.PostBuildOptions{Development: build.Development})
		if err != nil {
			return result, err
		}
		result.Capabilities = r.Capabilities
		result.Written, result.Unchanged = r.Written, r.Unchanged
		p.metrics.SetMergeEntries(string(pt), "capabilities", len(r.Capabilities))

	case platform.Android:
		written, err := android.PatchPackagingOptions(ctx, p.writer, build.OutputPath, p.log)
		if err != nil {
			return result, err
		}
		if written {
			result.Written = append(result.Written, android.GradlePath(build.OutputPath))
		}
	}

	return result, nil
}

func (p *Pipeline) product(ctx context.Context, codeName string) (*features.Product, error) {
	prod, err := p.features.FindProduct(ctx, codeName)
	if err != nil {
		return nil, err
	}
	if prod == nil {
		return nil, NewProductNotFoundError(codeName)
	}
	return prod, nil
}

// finish records a run in the metrics and the journal. Journal failures are
// logged, never returned.
func (p *Pipeline) finish(ctx context.Context, productCodeName, op string, start time.Time, written, unchanged int, err error) {
	finished := time.Now()
	p.metrics.ObserveSync(productCodeName, op, err, finished.Sub(start))

	if p.journal == nil {
		return
	}

	rec := &journal.SyncRecord{
		Product:    productCodeName,
		Operation:  op,
		Status:     statusSuccess,
		Written:    written,
		Unchanged:  unchanged,
		StartedAt:  start,
		FinishedAt: finished,
	}
	if err != nil {
		rec.Status = statusError
		rec.Error = err.Error()
	}
	if rerr := p.journal.RecordSync(ctx, rec); rerr != nil {
		p.log.Warnf("Failed to record %s run: %v", op, rerr)
	}
}
