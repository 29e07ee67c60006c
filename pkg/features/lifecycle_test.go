package features

import (
	"context"
	"testing"

	"github.com/platinummonkey/cog/pkg/product"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateProductSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("creates settings with sections", func(t *testing.T) {
		f := newFixture(t)
		f.addFeature(t, "Sharing", nil)
		require.NoError(t, f.assets.Save(productRoot+"/GeneralTemplate.asset", &product.GeneralSettingsTemplate{
			SettingsBlock: product.SettingsBlock{Type: "General", Values: map[string]string{"logLevel": "warn"}},
		}))
		f.product.Descriptor.GeneralSettingsTemplate = productRoot + "/GeneralTemplate.asset"

		settings, res, err := f.store.LoadOrCreateProductSettings(ctx, f.product)
		require.NoError(t, err)
		require.NotNil(t, settings)
		assert.Equal(t, []string{"Sharing"}, res.Added)
		assert.Equal(t, "EssentialKit", settings.Descriptor.CodeName)
		assert.Equal(t, f.product.Descriptor.GUID, settings.Descriptor.GUID)
		require.NotNil(t, settings.General)
		assert.Equal(t, "warn", settings.General.Values["logLevel"])
		require.NotNil(t, settings.Resources)

		loaded, err := f.store.TryLoadProductSettings(ctx, f.product)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, []string{"Sharing"}, codes(loaded.Features))
	})

	t.Run("second load does not rewrite", func(t *testing.T) {
		f := newFixture(t)
		f.addFeature(t, "Sharing", nil)

		_, _, err := f.store.LoadOrCreateProductSettings(ctx, f.product)
		require.NoError(t, err)
		before, err := f.assets.ReadFile(f.product.SettingsPath())
		require.NoError(t, err)

		_, res, err := f.store.LoadOrCreateProductSettings(ctx, f.product)
		require.NoError(t, err)
		assert.False(t, res.Changed())
		after, err := f.assets.ReadFile(f.product.SettingsPath())
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("nil descriptor", func(t *testing.T) {
		f := newFixture(t)
		settings, _, err := f.store.LoadOrCreateProductSettings(ctx, Product{})
		require.NoError(t, err)
		assert.Nil(t, settings)
	})
}

func TestTryLoadProductSettings_Missing(t *testing.T) {
	f := newFixture(t)
	settings, err := f.store.TryLoadProductSettings(context.Background(), f.product)
	require.NoError(t, err)
	assert.Nil(t, settings)
}

func TestCleanupMissingFeatures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addFeature(t, "Sharing", nil)
	f.addFeature(t, "Billing", nil)

	_, _, err := f.store.LoadOrCreateProductSettings(ctx, f.product)
	require.NoError(t, err)

	require.NoError(t, f.assets.Delete(productRoot+"/Features/Billing/Billing.asset"))

	res, err := f.store.CleanupMissingFeatures(ctx, productRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{"Billing"}, res.Removed)

	settings, err := f.store.TryLoadProductSettings(ctx, f.product)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sharing"}, codes(settings.Features))

	t.Run("unknown root", func(t *testing.T) {
		res, err := f.store.CleanupMissingFeatures(ctx, "Assets/Plugins/Unknown")
		require.NoError(t, err)
		assert.False(t, res.Changed())
	})
}

func TestLogMissingSettingsWarnings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	other := Product{Path: "Assets/Plugins/Social/Social.asset", Descriptor: &product.Descriptor{CodeName: "Social"}}
	missing := f.store.LogMissingSettingsWarnings(ctx, []Product{f.product, other, {}}, "IosPlatformPostBuildProcessor")
	assert.Equal(t, 2, missing)

	var messages []string
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			messages = append(messages, e.Message)
		}
	}
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0], "[IosPlatformPostBuildProcessor] Settings not found for 'Essential Kit'.")
	assert.Contains(t, messages[1], "Settings not found for 'Social'.")
}

func TestGetFeatureSettings(t *testing.T) {
	assert.Nil(t, GetFeatureSettings(nil))
	s := &product.Settings{Features: []product.FeatureSettings{
		{Feature: product.Ref{CodeName: "b"}},
		{Feature: product.Ref{CodeName: "a"}},
	}}
	assert.Equal(t, []string{"a", "b"}, codes(GetFeatureSettings(s)))
}
