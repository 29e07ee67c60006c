package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/platinummonkey/cog/pkg/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testProductRoot = "Assets/VoxelBusters/EssentialKit"

func newProject(t *testing.T) string {
	t.Helper()

	t.Setenv("COG_PROJECT_ROOT", "")
	t.Setenv("COG_JOURNAL_PATH", "off")
	t.Setenv("COG_LOG_LEVEL", "error")

	dir := t.TempDir()
	store, err := assets.NewStore(dir, assets.Options{})
	require.NoError(t, err)

	require.NoError(t, store.Save(testProductRoot+"/EssentialKit.asset",
		&product.Descriptor{CodeName: "EssentialKit", DisplayName: "Essential Kit"}))

	feature := testProductRoot + "/Features/Sharing"
	tmpl := feature + "/SharingSettingsTemplate.asset"
	require.NoError(t, store.Save(tmpl, &product.FeatureSettingsTemplate{Type: "SharingSettings"}))
	require.NoError(t, store.Save(feature+"/Sharing.asset",
		&product.FeatureDescriptor{CodeName: "Sharing", Product: "EssentialKit", SettingsTemplate: tmpl}))
	require.NoError(t, store.Save(feature+"/Android/SharingAndroidTemplate.asset", &platform.AndroidConfiguration{
		Manifest: platform.ManifestConfiguration{
			Permissions: []platform.Permission{{Name: "android.permission.CAMERA"}},
		},
		Dependencies: []platform.GradleDependency{
			{Group: "androidx.camera", Artifact: "camera-core", Version: "1.3.0"},
		},
	}))
	require.NoError(t, store.Save(feature+"/iOS/SharingIosTemplate.asset", &platform.IosConfiguration{
		Pods: []platform.PodDependency{{Name: "Alamofire", Version: "5.2"}},
	}))

	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	err := NewRootCommand(&out, io.Discard).ExecuteArgs(args)
	return out.String(), err
}

func TestSyncCommand(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "sync", "-project", dir, "-product", "EssentialKit")
	require.NoError(t, err)
	assert.Contains(t, out, "Synced EssentialKit")
	assert.Contains(t, out, "Added features:\n  Sharing")
	assert.FileExists(t, filepath.Join(dir, "Assets", "Resources", "EssentialKitSettings.asset"))

	out, err = run(t, "sync", "-project", dir, "-product", "EssentialKit")
	require.NoError(t, err)
	assert.NotContains(t, out, "Added features")

	_, err = run(t, "sync", "-project", dir, "-product", "Missing")
	assert.Error(t, err)
}

func TestActivateCommand(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, "sync", "-project", dir, "-product", "EssentialKit")
	require.NoError(t, err)

	out, err := run(t, "activate", "-project", dir, "-product", "EssentialKit")
	require.NoError(t, err)
	assert.Contains(t, out, "Activated EssentialKit")
}

func TestCleanupCommand(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, "sync", "-project", dir, "-product", "EssentialKit")
	require.NoError(t, err)

	out, err := run(t, "cleanup", "-project", dir, "-root", testProductRoot)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to clean up")

	require.NoError(t, os.Remove(filepath.Join(dir, filepath.FromSlash(testProductRoot+"/Features/Sharing/Sharing.asset"))))

	out, err = run(t, "cleanup", "-project", dir, "-root", testProductRoot)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed features:\n  Sharing")
}

func TestPreBuildCommand(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "prebuild", "-project", dir, "-target", "android")
	require.NoError(t, err)
	assert.Contains(t, out, "EssentialKit (android): 1 configurations, 1 entries")

	deps := filepath.Join(dir, "Assets", "Plugins", "VoxelBusters", "EssentialKit", "Editor", "AndroidDependencies.xml")
	data, err := os.ReadFile(deps)
	require.NoError(t, err)
	assert.Contains(t, string(data), "androidx.camera:camera-core:1.3.0")

	out, err = run(t, "prebuild", "-project", dir, "-target", "tvos")
	require.NoError(t, err)
	assert.Contains(t, out, "EssentialKit (ios)")

	_, err = run(t, "prebuild", "-project", dir, "-target", "webgl")
	assert.Error(t, err)
}

func TestPostBuildCommandAndroid(t *testing.T) {
	dir := newProject(t)
	output := t.TempDir()

	gradle := filepath.Join(output, "build.gradle")
	require.NoError(t, os.WriteFile(gradle, []byte("apply plugin: 'com.android.library'\n\ndependencies {\n}\n"), 0644))

	out, err := run(t, "postbuild", "-project", dir, "-target", "android", "-output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Written:\n  "+gradle)

	data, err := os.ReadFile(gradle)
	require.NoError(t, err)
	assert.Contains(t, string(data), "packagingOptions")
}

func TestValidateCommand(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "validate", "-project", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "All descriptors are valid")

	store, err := assets.NewStore(dir, assets.Options{})
	require.NoError(t, err)
	require.NoError(t, store.Save(testProductRoot+"/EssentialKit.asset",
		&product.Descriptor{CodeName: "Essential Kit"}))

	out, err = run(t, "validate", "-project", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, out, "EssentialKit.asset")
}

func TestInspectCommand(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "inspect", "-project", dir, "-product", "EssentialKit")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "EssentialKit", doc["product"])
	assert.Contains(t, out, "Alamofire 5.2")
	assert.Contains(t, out, "android.permission.CAMERA")
}

func TestConfigErrorsSurface(t *testing.T) {
	dir := newProject(t)
	t.Setenv("COG_LOG_LEVEL", "loud")

	_, err := run(t, "validate", "-project", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
