package ios

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/platinummonkey/cog/pkg/ios/pbxproj"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

func newBuildDir(t *testing.T, withInfoPlist bool) string {
	t.Helper()
	dir := t.TempDir()

	project, err := os.ReadFile(filepath.Join("testdata", "project.pbxproj"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Unity-iPhone.xcodeproj"), 0755))
	require.NoError(t, os.WriteFile(pbxproj.PathFor(dir), project, 0644))

	if withInfoPlist {
		info, err := os.ReadFile(filepath.Join("testdata", "Info.plist"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, InfoPlistFile), info, 0644))
	}
	return dir
}

func readPlistMap(t *testing.T, p string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	out := map[string]interface{}{}
	_, err = plist.Unmarshal(data, &out)
	require.NoError(t, err)
	return out
}

func TestPostBuild_NoConfigs(t *testing.T) {
	dir := newBuildDir(t, true)
	report, err := NewPostBuilder(nil, nil).PostBuild(context.Background(), dir, nil, PostBuildOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Written)
}

func TestPostBuild_InfoPlist(t *testing.T) {
	dir := newBuildDir(t, true)
	log, hook := test.NewNullLogger()

	configs := []*platform.IosConfiguration{
		{
			InfoPlist:  []platform.KeyValue{{Key: "NSCameraUsageDescription", Value: "Scan codes"}},
			URLSchemes: []string{"existing", "game"},
		},
		{
			InfoPlist:  []platform.KeyValue{{Key: "NSCameraUsageDescription", Value: "Scan codes"}, {Key: ""}},
			URLSchemes: []string{"game", "other"},
		},
	}

	_, err := NewPostBuilder(nil, log).PostBuild(context.Background(), dir, configs, PostBuildOptions{})
	require.NoError(t, err)

	info := readPlistMap(t, filepath.Join(dir, InfoPlistFile))
	assert.Equal(t, "Scan codes", info["NSCameraUsageDescription"])
	assert.Equal(t, "com.example.game", info["CFBundleIdentifier"])
	assert.Equal(t, true, info["UIRequiresFullScreen"])

	var schemes []string
	for _, entry := range info["CFBundleURLTypes"].([]interface{}) {
		for _, s := range entry.(map[string]interface{})["CFBundleURLSchemes"].([]interface{}) {
			schemes = append(schemes, s.(string))
		}
	}
	assert.Equal(t, []string{"existing", "game", "other"}, schemes)

	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
			assert.Equal(t, "[IosPlatformPostBuildProcessor] Info.plist key 'NSCameraUsageDescription' value replaced from 'Old reason' to 'Scan codes'.", e.Message)
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestPostBuild_EntitlementsAndCapabilities(t *testing.T) {
	dir := newBuildDir(t, true)

	configs := []*platform.IosConfiguration{
		{
			Entitlements: []platform.KeyValue{{Key: "com.apple.developer.applesignin", Value: "Default"}},
			AssociatedDomains: []platform.AssociatedDomain{
				{Host: "example.com"},
				{ServiceType: "webcredentials", Host: "example.com"},
				{Host: ""},
			},
			Capabilities: []platform.Capability{{Type: platform.GameCenter}, {Type: platform.PushNotifications}},
		},
		{
			AssociatedDomains: []platform.AssociatedDomain{{Host: "example.com"}},
			Capabilities: []platform.Capability{
				{Type: platform.AssociatedDomains, AssociatedDomains: []platform.AssociatedDomain{{Host: "links.example.com"}}},
				{Type: platform.InAppPurchase},
			},
		},
	}

	report, err := NewPostBuilder(nil, nil).PostBuild(context.Background(), dir, configs, PostBuildOptions{Development: true})
	require.NoError(t, err)
	assert.Equal(t, []platform.CapabilityType{
		platform.GameCenter, platform.PushNotifications, platform.InAppPurchase, platform.AssociatedDomains,
	}, report.Capabilities)

	entitlements := readPlistMap(t, filepath.Join(dir, DefaultEntitlementsFile))
	assert.Equal(t, "Default", entitlements["com.apple.developer.applesignin"])
	assert.Equal(t, true, entitlements["com.apple.developer.game-center"])
	assert.Equal(t, "development", entitlements["aps-environment"])
	assert.Equal(t, []interface{}{"applinks:example.com", "webcredentials:example.com", "applinks:links.example.com"},
		entitlements["com.apple.developer.associated-domains"])

	info := readPlistMap(t, filepath.Join(dir, InfoPlistFile))
	assert.Equal(t, []interface{}{"remote-notification"}, info["UIBackgroundModes"])

	project, err := pbxproj.ReadFile(pbxproj.PathFor(dir))
	require.NoError(t, err)
	main, err := project.MainTargetGUID()
	require.NoError(t, err)
	assert.Equal(t, DefaultEntitlementsFile, project.BuildPropertyForAnyConfig(main, pbxproj.CodeSignEntitlements))
	assert.Equal(t, []string{
		"com.apple.BackgroundModes", "com.apple.GameCenter", "com.apple.InAppPurchase", "com.apple.Push", "com.apple.SafariKeychain",
	}, project.SystemCapabilities(main))
	assert.Equal(t, []string{"GameKit.framework", "StoreKit.framework"}, project.LinkedFrameworks(main))
}

func TestPostBuild_EmptyAssociatedDomainsCapability(t *testing.T) {
	configs := []*platform.IosConfiguration{
		{Capabilities: []platform.Capability{{Type: platform.AssociatedDomains}}},
		{Capabilities: []platform.Capability{{Type: platform.ICloud}}},
	}

	types, domains := CollectCapabilities(configs)
	assert.Equal(t, []platform.CapabilityType{platform.ICloud}, types)
	assert.Empty(t, domains)

	dir := newBuildDir(t, false)
	_, err := NewPostBuilder(nil, nil).PostBuild(context.Background(), dir, configs, PostBuildOptions{})
	require.NoError(t, err)

	entitlements := readPlistMap(t, filepath.Join(dir, DefaultEntitlementsFile))
	assert.NotContains(t, entitlements, "com.apple.developer.associated-domains")
	assert.Equal(t, "$(TeamIdentifierPrefix)$(CFBundleIdentifier)", entitlements["com.apple.developer.ubiquity-kvstore-identifier"])
	_, err = os.Stat(filepath.Join(dir, InfoPlistFile))
	assert.True(t, os.IsNotExist(err))
}

func TestPostBuild_UnknownCapability(t *testing.T) {
	dir := newBuildDir(t, false)
	configs := []*platform.IosConfiguration{{Capabilities: []platform.Capability{{Type: platform.CapabilityType(42)}}}}

	_, err := NewPostBuilder(nil, nil).PostBuild(context.Background(), dir, configs, PostBuildOptions{})
	require.Error(t, err)
	assert.True(t, IsNotImplementedError(err))
}

func TestPostBuild_BuildSettings(t *testing.T) {
	dir := newBuildDir(t, false)
	configs := []*platform.IosConfiguration{
		{
			Frameworks:      []platform.FrameworkRef{{Name: "AuthenticationServices.framework", Weak: true}, {Name: ""}},
			BuildProperties: []platform.BuildProperty{{Key: "ENABLE_BITCODE", Value: "NO", TargetFlags: platform.TargetFlags{ApplyToMainTarget: true, ApplyToFrameworkTarget: true}}, {Key: "EMPTY"}},
			HeaderSearchPaths: []platform.SearchPath{
				{Path: "$(SRCROOT)/Libraries/Plugins", TargetFlags: platform.TargetFlags{ApplyToFrameworkTarget: true}},
			},
			Macros: []platform.MacroDefinition{{Name: "COG_ENABLED"}, {Name: "COG_LEVEL", Value: "2"}},
		},
		{Macros: []platform.MacroDefinition{{Name: "COG_ENABLED"}}},
	}

	b := NewPostBuilder(nil, nil)
	_, err := b.PostBuild(context.Background(), dir, configs, PostBuildOptions{})
	require.NoError(t, err)
	first, err := os.ReadFile(pbxproj.PathFor(dir))
	require.NoError(t, err)

	project, err := pbxproj.Parse(first)
	require.NoError(t, err)
	main, _ := project.MainTargetGUID()
	fw, _ := project.FrameworkTargetGUID()

	assert.Equal(t, []string{"AuthenticationServices.framework"}, project.LinkedFrameworks(main))
	assert.Equal(t, []string{"AuthenticationServices.framework"}, project.LinkedFrameworks(fw))
	assert.Equal(t, "NO", project.BuildPropertyForAnyConfig(main, "ENABLE_BITCODE"))
	assert.Equal(t, "NO", project.BuildPropertyForAnyConfig(fw, "ENABLE_BITCODE"))
	assert.Equal(t, "", project.BuildPropertyForAnyConfig(main, pbxproj.HeaderSearchPaths))
	assert.Equal(t, "$(SRCROOT)/Libraries/Plugins", project.BuildPropertyForAnyConfig(fw, pbxproj.HeaderSearchPaths))
	assert.Equal(t, "-DEXISTING -DCOG_ENABLED -DCOG_LEVEL=2", project.BuildPropertyForAnyConfig(fw, pbxproj.OtherCFlags))

	_, err = b.PostBuild(context.Background(), dir, configs, PostBuildOptions{})
	require.NoError(t, err)
	second, err := os.ReadFile(pbxproj.PathFor(dir))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestResolveEntitlementsPath(t *testing.T) {
	load := func(t *testing.T, dir string) (*pbxproj.Project, string) {
		project, err := pbxproj.ReadFile(pbxproj.PathFor(dir))
		require.NoError(t, err)
		main, err := project.MainTargetGUID()
		require.NoError(t, err)
		return project, main
	}

	t.Run("configured", func(t *testing.T) {
		dir := newBuildDir(t, false)
		project, main := load(t, dir)
		project.SetBuildProperty(main, pbxproj.CodeSignEntitlements, "Custom/App.entitlements")

		p, err := ResolveEntitlementsPath(project, dir, main)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "Custom", "App.entitlements"), p)
	})

	t.Run("default file", func(t *testing.T) {
		dir := newBuildDir(t, false)
		require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultEntitlementsFile), []byte("<plist/>"), 0644))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "A"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "A", "Other.entitlements"), []byte("<plist/>"), 0644))
		project, main := load(t, dir)

		p, err := ResolveEntitlementsPath(project, dir, main)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, DefaultEntitlementsFile), p)
		assert.Equal(t, DefaultEntitlementsFile, project.BuildPropertyForAnyConfig(main, pbxproj.CodeSignEntitlements))
	})

	t.Run("first found", func(t *testing.T) {
		dir := newBuildDir(t, false)
		for _, sub := range []string{"B", "A"} {
			require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0755))
			require.NoError(t, os.WriteFile(filepath.Join(dir, sub, sub+".entitlements"), []byte("<plist/>"), 0644))
		}
		project, main := load(t, dir)

		p, err := ResolveEntitlementsPath(project, dir, main)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "A", "A.entitlements"), p)
		assert.Equal(t, "A/A.entitlements", project.BuildPropertyForAnyConfig(main, pbxproj.CodeSignEntitlements))
	})

	t.Run("create default", func(t *testing.T) {
		dir := newBuildDir(t, false)
		project, main := load(t, dir)

		p, err := ResolveEntitlementsPath(project, dir, main)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, DefaultEntitlementsFile), p)
		assert.Equal(t, DefaultEntitlementsFile, project.BuildPropertyForAnyConfig(main, pbxproj.CodeSignEntitlements))
	})
}
