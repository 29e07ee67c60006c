package features

import (
	"context"
	"fmt"
	"sort"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/product"
	"github.com/sirupsen/logrus"
)

// Product is a loaded product descriptor together with its asset path
type Product struct {
	Path       string
	Descriptor *product.Descriptor
}

// CodeName returns the product code name
func (p Product) CodeName() string {
	if p.Descriptor == nil {
		return ""
	}
	return p.Descriptor.CodeName
}

// Root returns the product root directory
func (p Product) Root() string {
	return product.RootPath(p.Path)
}

// SettingsPath returns where the product settings asset lives
func (p Product) SettingsPath() string {
	return product.SettingsPath(p.Descriptor, p.Path)
}

// AssetsRoot returns the editable root for the product
func (p Product) AssetsRoot(productsRoot string) string {
	return product.AssetsRootPath(productsRoot, p.CodeName())
}

// Factory creates the settings entry for a newly discovered feature. A nil
// result without error means the feature cannot be instantiated.
type Factory func(ctx context.Context, fd *product.FeatureDescriptor) (*product.FeatureSettings, error)

// Result reports what EnsureFeatureSettings changed
type Result struct {
	Added     []string
	Removed   []string
	Relinked  []string
	Reordered bool
}

// Changed reports whether the feature list was modified
func (r Result) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0 || len(r.Relinked) > 0 || r.Reordered
}

// Store maintains product settings assets and their per-feature entries
type Store struct {
	assets    *assets.Store
	assetsDir string
	factories map[string]Factory
	log       *logrus.Logger
}

// NewStore creates a feature settings store. assetsDir is the project folder
// searched for product descriptors.
func NewStore(store *assets.Store, assetsDir string, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	if assetsDir == "" {
		assetsDir = "Assets"
	}
	return &Store{
		assets:    store,
		assetsDir: assetsDir,
		factories: make(map[string]Factory),
		log:       log,
	}
}

// Assets returns the underlying asset store
func (s *Store) Assets() *assets.Store {
	return s.assets
}

// RegisterFactory sets the settings factory for a feature code name,
// replacing any previous one
func (s *Store) RegisterFactory(featureCodeName string, f Factory) {
	if f == nil {
		delete(s.factories, featureCodeName)
		return
	}
	s.factories[featureCodeName] = f
}

// FindProducts returns every product descriptor in the project
func (s *Store) FindProducts(ctx context.Context) ([]Product, error) {
	return s.findProductsUnder(ctx, s.assetsDir)
}

// FindProduct returns the product with the given code name, or nil
func (s *Store) FindProduct(ctx context.Context, codeName string) (*Product, error) {
	if codeName == "" {
		return nil, nil
	}
	products, err := s.FindProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].CodeName() == codeName {
			return &products[i], nil
		}
	}
	return nil, nil
}

// FindProductInRoot returns the first product descriptor under root, or nil
func (s *Store) FindProductInRoot(ctx context.Context, root string) (*Product, error) {
	if root == "" {
		return nil, nil
	}
	products, err := s.findProductsUnder(ctx, root)
	if err != nil || len(products) == 0 {
		return nil, err
	}
	return &products[0], nil
}

func (s *Store) findProductsUnder(ctx context.Context, root string) ([]Product, error) {
	entries, err := assets.FindAll[product.Descriptor](ctx, s.assets, root)
	if err != nil {
		return nil, fmt.Errorf("failed to find product descriptors: %w", err)
	}

	products := make([]Product, 0, len(entries))
	for _, e := range entries {
		e.Asset.ApplyDefaults(e.Path)
		products = append(products, Product{Path: e.Path, Descriptor: e.Asset})
	}
	return products, nil
}

// FeatureDescriptors returns the feature descriptors under the product root,
// ordered by code name
func (s *Store) FeatureDescriptors(ctx context.Context, p Product) ([]assets.Entry[product.FeatureDescriptor], error) {
	root := p.Root()
	if root == "" {
		return nil, nil
	}

	entries, err := assets.FindAll[product.FeatureDescriptor](ctx, s.assets, root)
	if err != nil {
		return nil, fmt.Errorf("failed to find feature descriptors: %w", err)
	}
	for _, e := range entries {
		e.Asset.ApplyDefaults(e.Path)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Asset.CodeName < entries[j].Asset.CodeName
	})
	return entries, nil
}

// EnsureFeatureSettings reconciles the settings' feature list with the
// feature descriptors present under the product root and saves the settings
// when anything changed. Entries for unknown or duplicated code names are
// dropped, existing entries keep their values, and new features are created
// through the factory table.
func (s *Store) EnsureFeatureSettings(ctx context.Context, p Product, settings *product.Settings) (Result, error) {
	if p.Descriptor == nil || settings == nil {
		return Result{}, nil
	}

	result, err := s.reconcileFeatures(ctx, p, settings)
	if err != nil {
		return result, err
	}

	if result.Changed() {
		if err := s.assets.Save(p.SettingsPath(), settings); err != nil {
			return result, fmt.Errorf("failed to save product settings: %w", err)
		}
		s.log.Infof("Updated feature settings for %s: added=%v removed=%v relinked=%v",
			p.CodeName(), result.Added, result.Removed, result.Relinked)
	}

	return result, nil
}

func (s *Store) reconcileFeatures(ctx context.Context, p Product, settings *product.Settings) (Result, error) {
	var result Result

	descriptors, err := s.FeatureDescriptors(ctx, p)
	if err != nil {
		return result, err
	}

	valid := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if d.Asset.CodeName != "" {
			valid[d.Asset.CodeName] = true
		}
	}

	existing := make(map[string]product.FeatureSettings, len(settings.Features))
	var previousOrder []string
	for _, f := range settings.Features {
		code := f.CodeName()
		if code == "" || !valid[code] {
			result.Removed = append(result.Removed, code)
			continue
		}
		if _, dup := existing[code]; dup {
			result.Removed = append(result.Removed, code)
			continue
		}
		existing[code] = f
		previousOrder = append(previousOrder, code)
	}

	ordered := make([]product.FeatureSettings, 0, len(descriptors))
	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		fd := d.Asset
		if fd.CodeName == "" {
			continue
		}
		if seen[fd.CodeName] {
			s.log.Warnf("[PluginProductSettingsUtility] Duplicate feature descriptor '%s' at %s ignored.", fd.CodeName, d.Path)
			continue
		}
		seen[fd.CodeName] = true

		if f, ok := existing[fd.CodeName]; ok {
			if f.Feature.GUID != fd.GUID {
				f.Feature = fd.Ref()
				result.Relinked = append(result.Relinked, fd.CodeName)
			}
			ordered = append(ordered, f)
			continue
		}

		created, err := s.createFeatureSettings(ctx, fd)
		if err != nil {
			s.log.Warnf("[PluginProductSettingsUtility] Skipping feature '%s': %v", fd.CodeName, err)
			continue
		}
		if created == nil {
			continue
		}
		created.Feature = fd.Ref()
		ordered = append(ordered, *created)
		result.Added = append(result.Added, fd.CodeName)
	}

	if len(result.Added) == 0 && len(result.Removed) == 0 {
		for i := range ordered {
			if i >= len(previousOrder) || ordered[i].CodeName() != previousOrder[i] {
				result.Reordered = true
				break
			}
		}
	}

	settings.Features = ordered
	return result, nil
}

func (s *Store) createFeatureSettings(ctx context.Context, fd *product.FeatureDescriptor) (*product.FeatureSettings, error) {
	factory, ok := s.factories[fd.CodeName]
	if !ok {
		factory = s.templateFactory
	}

	created, err := factory(ctx, fd)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings for feature %s: %w", fd.CodeName, err)
	}
	return created, nil
}

// templateFactory instantiates the feature's settings template asset
func (s *Store) templateFactory(_ context.Context, fd *product.FeatureDescriptor) (*product.FeatureSettings, error) {
	if fd.SettingsTemplate == "" {
		s.log.Warnf("[FeatureDescriptor] Settings template is missing for feature '%s'.", fd.CodeName)
		return nil, nil
	}

	var tmpl product.FeatureSettingsTemplate
	if err := s.assets.Load(fd.SettingsTemplate, &tmpl); err != nil {
		s.log.Warnf("[FeatureDescriptor] Settings template for feature '%s' could not be loaded: %v", fd.CodeName, err)
		return nil, nil
	}

	return tmpl.Instantiate(fd.Ref()), nil
}
