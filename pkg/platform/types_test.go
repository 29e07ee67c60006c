package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestIosConfiguration_Decode(t *testing.T) {
	data := []byte(`kind: IosPlatformConfiguration
capabilities:
  - type: PushNotifications
  - type: 3
buildProperties:
  - key: ENABLE_BITCODE
    value: "NO"
  - key: OTHER_LDFLAGS
    value: -ObjC
    applyToMainTarget: true
    applyToFrameworkTarget: false
headerSearchPaths:
  - path: $(SRCROOT)/Headers
macros:
  - name: FEATURE_X
  - name: LEVEL
    value: "2"
`)

	var cfg IosConfiguration
	require.NoError(t, yaml.Unmarshal(data, &cfg))

	require.Len(t, cfg.Capabilities, 2)
	assert.Equal(t, PushNotifications, cfg.Capabilities[0].Type)
	assert.Equal(t, ICloud, cfg.Capabilities[1].Type)

	require.Len(t, cfg.BuildProperties, 2)
	assert.True(t, cfg.BuildProperties[0].ApplyToFrameworkTarget)
	assert.False(t, cfg.BuildProperties[0].ApplyToMainTarget)
	assert.False(t, cfg.BuildProperties[1].ApplyToFrameworkTarget)
	assert.True(t, cfg.BuildProperties[1].ApplyToMainTarget)

	require.Len(t, cfg.HeaderSearchPaths, 1)
	assert.True(t, cfg.HeaderSearchPaths[0].ApplyToFrameworkTarget)

	assert.Equal(t, "-DFEATURE_X", cfg.Macros[0].Flag())
	assert.Equal(t, "-DLEVEL=2", cfg.Macros[1].Flag())
	assert.Equal(t, "", MacroDefinition{}.Flag())
}

func TestCapabilityType_YAML(t *testing.T) {
	out, err := yaml.Marshal(Capability{Type: ICloud})
	require.NoError(t, err)
	assert.Contains(t, string(out), "type: iCloud")

	var c Capability
	assert.Error(t, yaml.Unmarshal([]byte("type: Telepathy"), &c))

	assert.Equal(t, "GameCenter", GameCenter.String())
	assert.Equal(t, "CapabilityType(42)", CapabilityType(42).String())
}

func TestAssociatedDomain_Entry(t *testing.T) {
	assert.Equal(t, "applinks:example.com", AssociatedDomain{Host: "example.com"}.Entry())
	assert.Equal(t, "webcredentials:example.com", AssociatedDomain{ServiceType: "webcredentials", Host: "example.com"}.Entry())
	assert.Equal(t, "", AssociatedDomain{ServiceType: "applinks"}.Entry())
}

func TestAndroidConfiguration_Decode(t *testing.T) {
	data := []byte(`kind: AndroidPlatformConfiguration
manifest:
  features:
    - name: android.hardware.camera
    - name: android.hardware.nfc
      required: false
dependencies:
  - group: com.google.firebase
    artifact: firebase-messaging
    version: 23.4.0
`)

	var cfg AndroidConfiguration
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	require.Len(t, cfg.Manifest.Features, 2)
	assert.True(t, cfg.Manifest.Features[0].Required)
	assert.False(t, cfg.Manifest.Features[1].Required)
	assert.Equal(t, "com.google.firebase:firebase-messaging", cfg.Dependencies[0].Key())
	assert.Equal(t, "com.google.firebase:firebase-messaging:23.4.0", cfg.Dependencies[0].Spec())
	assert.True(t, IntentData{}.IsEmpty())
}

func TestParseType(t *testing.T) {
	for _, in := range []string{"ios", "tvOS"} {
		got, ok := ParseType(in)
		assert.True(t, ok)
		assert.Equal(t, IOS, got)
	}
	got, ok := ParseType("android")
	assert.True(t, ok)
	assert.Equal(t, Android, got)
	_, ok = ParseType("webgl")
	assert.False(t, ok)
}
