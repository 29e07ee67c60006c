package features

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/product"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productRoot = "Assets/Plugins/EssentialKit"

type fixture struct {
	assets  *assets.Store
	store   *Store
	product Product
	hook    *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	a, err := assets.NewStore(t.TempDir(), assets.Options{})
	require.NoError(t, err)

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	d := &product.Descriptor{CodeName: "EssentialKit", DisplayName: "Essential Kit"}
	require.NoError(t, a.Save(productRoot+"/EssentialKit.asset", d))

	return &fixture{
		assets:  a,
		store:   NewStore(a, "Assets", log),
		product: Product{Path: productRoot + "/EssentialKit.asset", Descriptor: d},
		hook:    hook,
	}
}

func (f *fixture) addFeature(t *testing.T, code string, values map[string]string) *product.FeatureDescriptor {
	t.Helper()
	tmplPath := productRoot + "/Features/" + code + "/" + code + "SettingsTemplate.asset"
	require.NoError(t, f.assets.Save(tmplPath, &product.FeatureSettingsTemplate{Type: code + "Settings", Values: values}))

	fd := &product.FeatureDescriptor{CodeName: code, Product: "EssentialKit", SettingsTemplate: tmplPath}
	require.NoError(t, f.assets.Save(productRoot+"/Features/"+code+"/"+code+".asset", fd))
	return fd
}

func codes(features []product.FeatureSettings) []string {
	var out []string
	for _, f := range features {
		out = append(out, f.CodeName())
	}
	return out
}

func TestEnsureFeatureSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("creates sorted entries", func(t *testing.T) {
		f := newFixture(t)
		f.addFeature(t, "Sharing", map[string]string{"k": "v"})
		f.addFeature(t, "Billing", nil)

		settings := &product.Settings{}
		res, err := f.store.EnsureFeatureSettings(ctx, f.product, settings)
		require.NoError(t, err)
		assert.Equal(t, []string{"Billing", "Sharing"}, res.Added)
		assert.Equal(t, []string{"Billing", "Sharing"}, codes(settings.Features))
		assert.True(t, settings.Features[1].Enabled)
		assert.Equal(t, "v", settings.Features[1].Values["k"])
		assert.Equal(t, "SharingSettings", settings.Features[1].Type)
		assert.True(t, f.assets.Exists("Assets/Resources/EssentialKitSettings.asset"))
	})

	t.Run("idempotent", func(t *testing.T) {
		f := newFixture(t)
		f.addFeature(t, "Sharing", nil)
		f.addFeature(t, "Billing", nil)

		settings := &product.Settings{}
		_, err := f.store.EnsureFeatureSettings(ctx, f.product, settings)
		require.NoError(t, err)
		first, err := f.assets.ReadFile("Assets/Resources/EssentialKitSettings.asset")
		require.NoError(t, err)
		snapshot := append([]product.FeatureSettings(nil), settings.Features...)

		res, err := f.store.EnsureFeatureSettings(ctx, f.product, settings)
		require.NoError(t, err)
		assert.False(t, res.Changed())
		assert.Equal(t, snapshot, settings.Features)

		second, err := f.assets.ReadFile("Assets/Resources/EssentialKitSettings.asset")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("removes orphans and duplicates and keeps values", func(t *testing.T) {
		f := newFixture(t)
		sharing := f.addFeature(t, "Sharing", nil)

		settings := &product.Settings{Features: []product.FeatureSettings{
			{Feature: product.Ref{CodeName: "Removed"}, Enabled: true},
			{Feature: sharing.Ref(), Enabled: false, Values: map[string]string{"custom": "1"}},
			{Feature: sharing.Ref(), Enabled: true},
			{Feature: product.Ref{}, Enabled: true},
		}}

		res, err := f.store.EnsureFeatureSettings(ctx, f.product, settings)
		require.NoError(t, err)
		assert.Equal(t, []string{"Removed", "Sharing", ""}, res.Removed)
		require.Len(t, settings.Features, 1)
		assert.False(t, settings.Features[0].Enabled)
		assert.Equal(t, "1", settings.Features[0].Values["custom"])
	})

	t.Run("relinks stale guid", func(t *testing.T) {
		f := newFixture(t)
		sharing := f.addFeature(t, "Sharing", nil)

		settings := &product.Settings{Features: []product.FeatureSettings{
			{Feature: product.Ref{CodeName: "Sharing", GUID: "stale"}, Enabled: false},
		}}
		res, err := f.store.EnsureFeatureSettings(ctx, f.product, settings)
		require.NoError(t, err)
		assert.Equal(t, []string{"Sharing"}, res.Relinked)
		assert.Equal(t, sharing.GUID, settings.Features[0].Feature.GUID)
		assert.False(t, settings.Features[0].Enabled)
	})

	t.Run("reorders", func(t *testing.T) {
		f := newFixture(t)
		a := f.addFeature(t, "Alpha", nil)
		b := f.addFeature(t, "Beta", nil)

		settings := &product.Settings{Features: []product.FeatureSettings{
			{Feature: b.Ref(), Enabled: true},
			{Feature: a.Ref(), Enabled: true},
		}}
		res, err := f.store.EnsureFeatureSettings(ctx, f.product, settings)
		require.NoError(t, err)
		assert.True(t, res.Reordered)
		assert.Equal(t, []string{"Alpha", "Beta"}, codes(settings.Features))
	})

	t.Run("missing template is skipped with warning", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.assets.Save(productRoot+"/Features/Bare/Bare.asset", &product.FeatureDescriptor{CodeName: "Bare"}))
		f.addFeature(t, "Sharing", nil)

		settings := &product.Settings{}
		res, err := f.store.EnsureFeatureSettings(ctx, f.product, settings)
		require.NoError(t, err)
		assert.Equal(t, []string{"Sharing"}, res.Added)

		var warned bool
		for _, e := range f.hook.AllEntries() {
			if e.Level == logrus.WarnLevel && e.Message == "[FeatureDescriptor] Settings template is missing for feature 'Bare'." {
				warned = true
			}
		}
		assert.True(t, warned)
	})

	t.Run("factory table overrides template", func(t *testing.T) {
		f := newFixture(t)
		f.addFeature(t, "Sharing", nil)
		f.store.RegisterFactory("Sharing", func(_ context.Context, fd *product.FeatureDescriptor) (*product.FeatureSettings, error) {
			return &product.FeatureSettings{Enabled: true, Type: "Custom"}, nil
		})

		settings := &product.Settings{}
		_, err := f.store.EnsureFeatureSettings(ctx, f.product, settings)
		require.NoError(t, err)
		require.Len(t, settings.Features, 1)
		assert.Equal(t, "Custom", settings.Features[0].Type)
		assert.Equal(t, "Sharing", settings.Features[0].CodeName())
	})

	t.Run("failing factory skips only its feature", func(t *testing.T) {
		f := newFixture(t)
		f.addFeature(t, "Billing", nil)
		f.addFeature(t, "Sharing", nil)
		f.store.RegisterFactory("Billing", func(_ context.Context, _ *product.FeatureDescriptor) (*product.FeatureSettings, error) {
			return nil, errors.New("store unavailable")
		})

		settings := &product.Settings{}
		res, err := f.store.EnsureFeatureSettings(ctx, f.product, settings)
		require.NoError(t, err)
		assert.Equal(t, []string{"Sharing"}, res.Added)
		assert.Equal(t, []string{"Sharing"}, codes(settings.Features))

		var warned bool
		for _, e := range f.hook.AllEntries() {
			if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "Skipping feature 'Billing'") {
				warned = true
			}
		}
		assert.True(t, warned)
	})

	t.Run("nil inputs are a no-op", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.store.EnsureFeatureSettings(ctx, Product{}, &product.Settings{})
		require.NoError(t, err)
		assert.False(t, res.Changed())

		res, err = f.store.EnsureFeatureSettings(ctx, f.product, nil)
		require.NoError(t, err)
		assert.False(t, res.Changed())
	})
}

func TestFindProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	products, err := f.store.FindProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, productRoot, products[0].Root())
	assert.Equal(t, "Assets/Resources/EssentialKitSettings.asset", products[0].SettingsPath())

	p, err := f.store.FindProduct(ctx, "EssentialKit")
	require.NoError(t, err)
	require.NotNil(t, p)

	p, err = f.store.FindProduct(ctx, "Nope")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = f.store.FindProductInRoot(ctx, productRoot)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Assets/Plugins/VoxelBusters/EssentialKit", p.AssetsRoot(""))
}
