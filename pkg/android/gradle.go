package android

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/sirupsen/logrus"
)

// ArtifactGradle names build.gradle patches reported to the artifact writer
const ArtifactGradle = "android-gradle"

var packagingOptionsBlock = []string{
	"android {",
	"    packagingOptions {",
	"        exclude 'META-INF/proguard/androidx-annotations.pro'",
	"    }",
	"}",
}

// PatchPackagingOptions adds a packagingOptions exclude block to the
// build.gradle in dir. It does nothing when the file is missing, already
// declares packagingOptions, or applies no Android plugin.
func PatchPackagingOptions(ctx context.Context, w assets.ArtifactWriter, dir string, log *logrus.Logger) (bool, error) {
	if log == nil {
		log = logrus.New()
	}
	if w == nil {
		w = assets.DirectWriter{}
	}

	gradlePath := GradlePath(dir)
	data, err := os.ReadFile(gradlePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warnf("[AndroidPlatformPostBuildProcessor] build.gradle not found at '%s'.", gradlePath)
			return false, nil
		}
		return false, fmt.Errorf("failed to read build.gradle: %w", err)
	}

	patched, ok := insertPackagingOptions(string(data))
	if !ok {
		return false, nil
	}

	return w.WriteArtifact(ctx, ArtifactGradle, gradlePath, []byte(patched))
}

// GradlePath returns the build.gradle location inside an exported project
func GradlePath(dir string) string {
	return filepath.Join(dir, "build.gradle")
}

func insertPackagingOptions(content string) (string, bool) {
	newline := "\n"
	if strings.Contains(content, "\r\n") {
		newline = "\r\n"
	}

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	trailing := false
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
		trailing = true
	}

	insertAt := -1
	for i, line := range lines {
		if strings.Contains(line, "packagingOptions") {
			return content, false
		}
		if insertAt < 0 && isAndroidPluginLine(line) {
			insertAt = i + 1
		}
	}
	if insertAt < 0 {
		return content, false
	}

	out := make([]string, 0, len(lines)+len(packagingOptionsBlock))
	out = append(out, lines[:insertAt]...)
	out = append(out, packagingOptionsBlock...)
	out = append(out, lines[insertAt:]...)

	result := strings.Join(out, newline)
	if trailing {
		result += newline
	}
	return result, true
}

func isAndroidPluginLine(line string) bool {
	if !strings.Contains(line, "apply plugin") {
		return false
	}
	return strings.Contains(line, "com.android.application") || strings.Contains(line, "com.android.library")
}
