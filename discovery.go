// FILE: lixenwraith/buildconfig/discovery.go
package buildconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// PlatformFileName is the Flutter-generated file that carries flutter.* values.
const PlatformFileName = "local.properties"

// SettingsFiles mark the root of a Gradle build.
var SettingsFiles = []string{"settings.gradle.kts", "settings.gradle"}

// ProjectLayout holds the paths resolution needs, derived from a module or
// project directory.
type ProjectLayout struct {
	RootDir        string
	ModuleDir      string
	PropertiesPath string
	PlatformPath   string
}

// FindProjectRoot walks up from start to the nearest directory containing a
// Gradle settings file. Not finding one is not an error: start itself is
// returned, so the fixed relative paths still apply.
func FindProjectRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve '%s': %w", start, err)
	}

	dir := abs
	for {
		for _, name := range SettingsFiles {
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

// DiscoverLayout finds the root project for moduleDir and the default
// locations of key.properties and local.properties beneath it.
func DiscoverLayout(moduleDir string) (ProjectLayout, error) {
	root, err := FindProjectRoot(moduleDir)
	if err != nil {
		return ProjectLayout{}, err
	}
	module, err := filepath.Abs(moduleDir)
	if err != nil {
		return ProjectLayout{}, fmt.Errorf("failed to resolve '%s': %w", moduleDir, err)
	}

	return ProjectLayout{
		RootDir:        root,
		ModuleDir:      module,
		PropertiesPath: filepath.Join(root, PropertiesFileName),
		PlatformPath:   filepath.Join(root, PlatformFileName),
	}, nil
}
