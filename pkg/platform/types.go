package platform

import "github.com/platinummonkey/cog/pkg/assets"

// Type identifies a native platform
type Type string

const (
	IOS     Type = "ios"
	Android Type = "android"
)

// Asset kinds of the platform configuration variants
const (
	KindAndroidConfiguration = "AndroidPlatformConfiguration"
	KindIosConfiguration     = "IosPlatformConfiguration"
)

// Configuration is implemented by every platform configuration variant
type Configuration interface {
	assets.Record
	Platform() Type
	UpdaterName() string
}

// ParseType converts a build target name into a platform type. tvOS builds
// use the iOS configuration.
func ParseType(target string) (Type, bool) {
	switch target {
	case "ios", "iOS", "tvos", "tvOS":
		return IOS, true
	case "android", "Android":
		return Android, true
	default:
		return "", false
	}
}
