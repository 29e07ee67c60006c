package android

import (
	"strings"
	"testing"

	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, m *ManifestDocument) string {
	t.Helper()
	out, err := m.Bytes()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "\xEF\xBB\xBF"))
	return strings.TrimPrefix(string(out), "\xEF\xBB\xBF")
}

func TestNewManifestDocument(t *testing.T) {
	m := NewManifestDocument("com.voxelbusters.essential-kit.androidlib")

	want := `<?xml version="1.0" encoding="UTF-8"?>
<!--DONT MODIFY HERE. THIS FILE IS AUTO GENERATED.-->
<manifest xmlns:android="http://schemas.android.com/apk/res/android" xmlns:tools="http://schemas.android.com/tools" package="com.voxelbusters.essential-kit.androidlib">
  <application />
</manifest>`
	assert.Equal(t, want, render(t, m))
}

func TestManifestDocument_FirstWriteWins(t *testing.T) {
	m := NewManifestDocument("com.example")

	assert.True(t, m.AddUsesPermission("android.permission.CAMERA", "28"))
	assert.False(t, m.AddUsesPermission("android.permission.CAMERA", ""))
	assert.True(t, m.AddUsesFeature("android.hardware.camera", false))
	assert.False(t, m.AddUsesFeature("android.hardware.camera", true))
	assert.True(t, m.AddMetaData("com.example.key", "first"))
	assert.False(t, m.AddMetaData("com.example.key", "second"))
	assert.True(t, m.AddMetaData("com.example.flag", ""))

	want := `<?xml version="1.0" encoding="UTF-8"?>
<!--DONT MODIFY HERE. THIS FILE IS AUTO GENERATED.-->
<manifest xmlns:android="http://schemas.android.com/apk/res/android" xmlns:tools="http://schemas.android.com/tools" package="com.example">
  <application>
    <meta-data android:name="com.example.key" android:value="first" />
    <meta-data android:name="com.example.flag" />
  </application>
  <uses-permission android:name="android.permission.CAMERA" android:maxSdkVersion="28" />
  <uses-feature android:name="android.hardware.camera" android:required="false" />
</manifest>`
	assert.Equal(t, want, render(t, m))
}

func TestManifestDocument_Queries(t *testing.T) {
	m := NewManifestDocument("com.example")

	assert.True(t, m.AddQuery("android.intent.action.VIEW", "https", "", ""))
	assert.False(t, m.AddQuery("android.intent.action.VIEW", "https", "", ""))
	assert.True(t, m.AddQuery("android.intent.action.VIEW", "mailto", "", ""))
	assert.True(t, m.AddQuery("android.intent.action.SEND", "", "", ""))
	assert.False(t, m.AddQuery("android.intent.action.SEND", "", "", ""))

	queries := m.Document().Root().SelectElement("queries")
	require.NotNil(t, queries)
	intents := queries.SelectElements("intent")
	require.Len(t, intents, 3)
	assert.Nil(t, intents[2].SelectElement("data"))
	assert.Equal(t, "mailto", intents[1].SelectElement("data").SelectAttrValue("android:scheme", ""))
}

func TestManifestDocument_Components(t *testing.T) {
	m := NewManifestDocument("com.example")
	m.AddActivities([]platform.Component{
		{
			Name: "com.example.ShareActivity",
			Attributes: []platform.ManifestAttribute{
				{Name: "android:name", Value: "ignored"},
				{Name: "android:exported", Value: "true"},
				{Name: "tools:node", Value: "merge"},
			},
			IntentFilters: []platform.IntentFilter{{
				Label:      "Share",
				AutoVerify: true,
				Actions:    []string{"android.intent.action.VIEW", ""},
				Categories: []string{"android.intent.category.DEFAULT"},
				Data: []platform.IntentData{
					{},
					{Scheme: "https", Host: "example.com", PathPrefix: "/share"},
				},
			}},
		},
		{Name: "com.example.ShareActivity"},
		{Name: ""},
	})
	m.AddProviders([]platform.Component{{
		Name:          "com.example.FileProvider",
		IntentFilters: []platform.IntentFilter{{Actions: []string{"ignored"}}},
	}})

	want := `<?xml version="1.0" encoding="UTF-8"?>
<!--DONT MODIFY HERE. THIS FILE IS AUTO GENERATED.-->
<manifest xmlns:android="http://schemas.android.com/apk/res/android" xmlns:tools="http://schemas.android.com/tools" package="com.example">
  <application>
    <activity android:name="com.example.ShareActivity" android:exported="true" tools:node="merge">
      <intent-filter android:label="Share" android:autoVerify="true">
        <action android:name="android.intent.action.VIEW" />
        <category android:name="android.intent.category.DEFAULT" />
        <data android:scheme="https" android:host="example.com" android:pathPrefix="/share" />
      </intent-filter>
    </activity>
    <provider android:name="com.example.FileProvider" />
  </application>
</manifest>`
	assert.Equal(t, want, render(t, m))
}

func TestManifestDocument_Attributes(t *testing.T) {
	m := NewManifestDocument("com.example")
	m.AddManifestAttributes([]platform.ManifestAttribute{
		{Name: "android:versionCode", Value: "1"},
		{Name: "xmlns:custom", Value: "http://example.com/custom"},
		{Name: "other:installLocation", Value: "auto"},
		{Name: "", Value: "skipped"},
	})
	m.AddApplicationAttributes([]platform.ManifestAttribute{
		{Name: "android:allowBackup", Value: "false"},
		{Name: "tools:replace", Value: "android:allowBackup"},
	})
	m.AddApplicationAttributes([]platform.ManifestAttribute{
		{Name: "android:allowBackup", Value: "true"},
	})

	root := m.Document().Root()
	assert.Equal(t, "1", root.SelectAttrValue("android:versionCode", ""))
	assert.Equal(t, "http://example.com/custom", root.SelectAttrValue("xmlns:custom", ""))
	assert.Equal(t, "auto", root.SelectAttrValue("installLocation", ""))

	app := root.SelectElement("application")
	require.Len(t, app.Attr, 2)
	assert.Equal(t, "tools:replace", app.Attr[0].FullKey())
	assert.Equal(t, "android:allowBackup", app.Attr[1].FullKey())
	assert.Equal(t, "true", app.Attr[1].Value)
}

func TestManifestDocument_ApplyOrder(t *testing.T) {
	m := NewManifestDocument("com.example")
	m.Apply(&platform.ManifestConfiguration{
		Queries:     []platform.QueryIntent{{Action: "android.intent.action.VIEW"}, {Action: ""}},
		MetaData:    []platform.MetaData{{Name: "k", Value: "v"}},
		Features:    []platform.UsesFeature{{Name: "android.hardware.nfc", Required: true}},
		Permissions: []platform.Permission{{Name: "android.permission.NFC"}, {Name: ""}},
		Services:    []platform.Component{{Name: "com.example.Service"}},
	})
	m.Apply(nil)

	var tags []string
	for _, el := range m.Document().Root().ChildElements() {
		tags = append(tags, el.Tag)
	}
	assert.Equal(t, []string{"application", "uses-permission", "uses-feature", "queries"}, tags)

	app := m.Document().Root().SelectElement("application")
	var appTags []string
	for _, el := range app.ChildElements() {
		appTags = append(appTags, el.Tag)
	}
	assert.Equal(t, []string{"service", "meta-data"}, appTags)
	assert.Equal(t, "true", m.Document().Root().SelectElement("uses-feature").SelectAttrValue("android:required", ""))
}
