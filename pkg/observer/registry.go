// Package observer routes feature and platform configuration changes to the
// callbacks registered for each product. A Registry lives for one session
// (a CLI run or a watcher process) and is passed to whoever needs it.
package observer

import (
	"sort"
	"strings"
	"sync"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/features"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/platinummonkey/cog/pkg/product"
	"github.com/sirupsen/logrus"
)

// FeatureCallback is invoked when a feature's settings change
type FeatureCallback func(p features.Product, feature *product.FeatureSettings)

// ConfigurationCallback is invoked when a product's platform configurations change
type ConfigurationCallback func(p features.Product)

type featureRegistration struct {
	product  features.Product
	callback FeatureCallback
}

type configurationRegistration struct {
	product  features.Product
	callback ConfigurationCallback
}

// Registry holds at most one callback of each kind per product
type Registry struct {
	mu           sync.RWMutex
	featureRegs  []featureRegistration
	configRegs   []configurationRegistration
	store        *assets.Store
	productsRoot string
	log          *logrus.Logger
}

// NewRegistry creates an empty registry. The store is used to recognize
// platform configuration assets.
func NewRegistry(store *assets.Store, productsRoot string, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{store: store, productsRoot: productsRoot, log: log}
}

// RegisterFeatureSettings registers cb for the product, replacing any
// previous feature callback of the same product
func (r *Registry) RegisterFeatureSettings(p features.Product, cb FeatureCallback) bool {
	code := p.CodeName()
	if code == "" || cb == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.featureRegs = removeFeature(r.featureRegs, code)
	r.featureRegs = append(r.featureRegs, featureRegistration{product: p, callback: cb})
	return true
}

// UnregisterFeatureSettings removes the feature callback of a product
func (r *Registry) UnregisterFeatureSettings(productCodeName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.featureRegs)
	r.featureRegs = removeFeature(r.featureRegs, productCodeName)
	return len(r.featureRegs) != before
}

// RegisterPlatformConfiguration registers cb for the product, replacing any
// previous configuration callback of the same product
func (r *Registry) RegisterPlatformConfiguration(p features.Product, cb ConfigurationCallback) bool {
	code := p.CodeName()
	if code == "" || cb == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.configRegs = removeConfiguration(r.configRegs, code)
	r.configRegs = append(r.configRegs, configurationRegistration{product: p, callback: cb})
	return true
}

// UnregisterPlatformConfiguration removes the configuration callback of a product
func (r *Registry) UnregisterPlatformConfiguration(productCodeName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.configRegs)
	r.configRegs = removeConfiguration(r.configRegs, productCodeName)
	return len(r.configRegs) != before
}

// NotifyFeatureChanged invokes the feature callback registered for p and
// returns the number of callbacks run
func (r *Registry) NotifyFeatureChanged(p features.Product, feature *product.FeatureSettings) int {
	code := p.CodeName()
	if code == "" || feature == nil {
		return 0
	}

	r.mu.RLock()
	var matched []featureRegistration
	for _, reg := range r.featureRegs {
		if reg.product.CodeName() == code {
			matched = append(matched, reg)
		}
	}
	r.mu.RUnlock()

	for _, reg := range matched {
		reg.callback(p, feature)
	}
	return len(matched)
}

// NotifyAssetsChanged maps imported and moved platform configuration assets
// to product roots and invokes the configuration callbacks of the products
// they belong to. It returns the number of callbacks run.
func (r *Registry) NotifyAssetsChanged(imported, moved []string) int {
	roots := make(map[string]bool)
	r.addProductRoots(imported, roots)
	r.addProductRoots(moved, roots)
	if len(roots) == 0 {
		return 0
	}

	r.mu.RLock()
	var matched []configurationRegistration
	for _, reg := range r.configRegs {
		if roots[reg.product.Root()] || roots[reg.product.AssetsRoot(r.productsRoot)] {
			matched = append(matched, reg)
		}
	}
	r.mu.RUnlock()

	for _, reg := range matched {
		r.log.Debugf("Platform configuration changed for %s", reg.product.CodeName())
		reg.callback(reg.product)
	}
	return len(matched)
}

// Len returns the number of feature and configuration registrations
func (r *Registry) Len() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.featureRegs), len(r.configRegs)
}

// Clear drops every registration
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.featureRegs = nil
	r.configRegs = nil
}

func (r *Registry) addProductRoots(paths []string, roots map[string]bool) {
	for _, p := range paths {
		if !strings.HasSuffix(p, assets.Extension) {
			continue
		}
		kind, err := r.store.Kind(p)
		if err != nil {
			continue
		}
		if kind != platform.KindAndroidConfiguration && kind != platform.KindIosConfiguration {
			continue
		}
		if root := ProductRootFromPath(p); root != "" {
			roots[root] = true
		}
	}
}

// ProductRootFromPath returns the part of an asset path before its
// "/Features/" segment, or "" when there is none
func ProductRootFromPath(p string) string {
	p = product.NormalizePath(p)
	if i := strings.Index(p, "/"+product.FeaturesDir+"/"); i > 0 {
		return p[:i]
	}
	return ""
}

// AffectedProductRoots maps deleted and moved-away paths under productsRoot
// that lie inside a Features folder to "{productsRoot}/{first segment}"
func AffectedProductRoots(productsRoot string, deleted, movedFrom []string) []string {
	prefix := strings.TrimSuffix(product.NormalizePath(productsRoot), "/") + "/"
	seen := make(map[string]bool)

	for _, list := range [][]string{deleted, movedFrom} {
		for _, p := range list {
			p = product.NormalizePath(p)
			if !strings.HasPrefix(p, prefix) || !strings.Contains(p, "/"+product.FeaturesDir+"/") {
				continue
			}
			rest := p[len(prefix):]
			slash := strings.IndexByte(rest, '/')
			if slash <= 0 {
				continue
			}
			seen[prefix+rest[:slash]] = true
		}
	}

	roots := make([]string, 0, len(seen))
	for root := range seen {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

func removeFeature(regs []featureRegistration, code string) []featureRegistration {
	out := regs[:0]
	for _, reg := range regs {
		if reg.product.CodeName() != code {
			out = append(out, reg)
		}
	}
	return out
}

func removeConfiguration(regs []configurationRegistration, code string) []configurationRegistration {
	out := regs[:0]
	for _, reg := range regs {
		if reg.product.CodeName() != code {
			out = append(out, reg)
		}
	}
	return out
}
