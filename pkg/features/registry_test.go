package features

import (
	"testing"

	"github.com/platinummonkey/cog/pkg/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsIndex(t *testing.T) {
	idx := NewSettingsIndex()

	first := &product.Settings{Descriptor: product.Ref{CodeName: "A"}, Features: []product.FeatureSettings{
		{Feature: product.Ref{CodeName: "Sharing"}, Type: "SharingSettings"},
		{Feature: product.Ref{CodeName: "Untyped"}},
	}}
	second := &product.Settings{Descriptor: product.Ref{CodeName: "B"}, Features: []product.FeatureSettings{
		{Feature: product.Ref{CodeName: "Sharing"}, Type: "SharingSettings", Enabled: true},
	}}

	idx.Register(first)
	assert.Equal(t, 1, idx.Len())

	idx.Register(second)
	feature, owner, ok := idx.Lookup("SharingSettings")
	require.True(t, ok)
	assert.Equal(t, "B", owner.Descriptor.CodeName)
	assert.True(t, feature.Enabled)

	_, _, ok = idx.Lookup("Missing")
	assert.False(t, ok)

	idx.Register(nil)
	idx.Clear()
	assert.Equal(t, 0, idx.Len())
}

func TestBootstrapRegistry(t *testing.T) {
	reg := NewBootstrapRegistry()

	var calls []string
	reg.Register("SharingSettings", BootstrapFunc(func(owner *product.Settings, f *product.FeatureSettings) {
		calls = append(calls, "old:"+f.CodeName())
	}))
	reg.Register("SharingSettings", BootstrapFunc(func(owner *product.Settings, f *product.FeatureSettings) {
		calls = append(calls, "new:"+f.CodeName())
	}))
	reg.Register("BillingSettings", BootstrapFunc(func(owner *product.Settings, f *product.FeatureSettings) {
		calls = append(calls, "billing")
	}))
	reg.Register("", nil)
	assert.Equal(t, 2, reg.Len())

	settings := &product.Settings{Features: []product.FeatureSettings{
		{Feature: product.Ref{CodeName: "Sharing"}, Type: "SharingSettings"},
	}}
	assert.Equal(t, 1, reg.Apply(settings))
	assert.Equal(t, []string{"new:Sharing"}, calls)
	assert.Equal(t, 0, reg.Apply(nil))

	reg.Clear()
	assert.Equal(t, 0, reg.Len())
}
