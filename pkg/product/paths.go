package product

import (
	"path"
	"strings"
	"unicode"
)

const (
	// DefaultProductsRoot is where editable per-product copies live
	DefaultProductsRoot = "Assets/Plugins/VoxelBusters"

	// ResourcesRoot is the folder settings assets must live under
	ResourcesRoot = "Assets/Resources/"

	// FeaturesDir is the product subfolder holding feature folders
	FeaturesDir = "Features"

	// AndroidLibraryPrefix and AndroidLibrarySuffix wrap the kebab-case code
	// name of a product's generated Android library folder
	AndroidLibraryPrefix = "com.voxelbusters."
	AndroidLibrarySuffix = ".androidlib"
)

// NormalizePath converts backslashes to forward slashes
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// BaseName returns the file name of an asset path without its extension
func BaseName(assetPath string) string {
	base := path.Base(NormalizePath(assetPath))
	return strings.TrimSuffix(base, path.Ext(base))
}

// RootPath returns the product root: the directory holding the descriptor
func RootPath(descriptorPath string) string {
	if descriptorPath == "" {
		return ""
	}
	dir := path.Dir(NormalizePath(descriptorPath))
	if dir == "." {
		return ""
	}
	return dir
}

// AssetsRootPath returns the editable root for a product code name
func AssetsRootPath(productsRoot, codeName string) string {
	if codeName == "" {
		return ""
	}
	if productsRoot == "" {
		productsRoot = DefaultProductsRoot
	}
	return path.Join(NormalizePath(productsRoot), codeName)
}

// SettingsPath resolves where a product's settings asset lives. The
// descriptor's path is honoured only when it points into Assets/Resources.
func SettingsPath(d *Descriptor, descriptorPath string) string {
	if d == nil {
		return ""
	}

	configured := NormalizePath(d.SettingsAssetPath)
	if strings.HasPrefix(configured, ResourcesRoot) {
		return configured
	}

	name := d.CodeName
	if name == "" {
		name = BaseName(descriptorPath)
	}
	if name == "" {
		return ""
	}
	return ResourcesRoot + name + "Settings.asset"
}

// FeatureRootPath returns the folder of a feature inside the product root
func FeatureRootPath(productRoot, featureCodeName string) string {
	if productRoot == "" || featureCodeName == "" {
		return ""
	}
	return path.Join(productRoot, FeaturesDir, featureCodeName)
}

// NativePluginsPath returns the native plugins folder of a feature
func NativePluginsPath(featureRoot string) string {
	if featureRoot == "" {
		return ""
	}
	return path.Join(featureRoot, "Plugins")
}

// KebabCase inserts a hyphen before every upper-case letter except the first
// and lower-cases the result: "EssentialKit" becomes "essential-kit".
func KebabCase(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 4)
	for i, r := range value {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// AndroidLibraryName returns the generated Android library folder name
func AndroidLibraryName(codeName string) string {
	return AndroidLibraryPrefix + KebabCase(codeName) + AndroidLibrarySuffix
}
