// FILE: lixenwraith/buildconfig/loader_test.go
package buildconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerPlatformPaths(t *testing.T, cfg *Config) {
	t.Helper()
	require.NoError(t, cfg.Register("flutter.minSdkVersion", 21))
	require.NoError(t, cfg.Register("flutter.targetSdkVersion", 35))
	require.NoError(t, cfg.Register("flutter.versionName", "1.0.0"))
}

// TestFileLoading tests loading each supported file format
func TestFileLoading(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		minSdk  any
	}{
		{
			name: "TOML",
			file: "platform.toml",
			content: `
[flutter]
minSdkVersion = 23
versionName = "2.0.0"
`,
			minSdk: int64(23),
		},
		{
			name: "YAML",
			file: "platform.yaml",
			content: `
flutter:
  minSdkVersion: 23
  versionName: "2.0.0"
`,
			minSdk: 23,
		},
		{
			name:    "JSON",
			file:    "platform.json",
			content: `{"flutter": {"minSdkVersion": 23, "versionName": "2.0.0"}}`,
			minSdk:  "23",
		},
		{
			name: "Properties",
			file: "local.properties",
			content: `sdk.dir=/opt/android-sdk
flutter.sdk=/opt/flutter
flutter.minSdkVersion=23
flutter.versionName=2.0.0
`,
			minSdk: "23",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg := New()
			registerPlatformPaths(t, cfg)
			require.NoError(t, cfg.LoadFile(path))

			minSdk, _ := cfg.Get("flutter.minSdkVersion")
			if num, ok := minSdk.(interface{ String() string }); ok {
				// json.Number
				minSdk = num.String()
			}
			assert.Equal(t, tt.minSdk, minSdk)

			name, _ := cfg.Get("flutter.versionName")
			assert.Equal(t, "2.0.0", name)

			// Untouched path keeps its default
			target, _ := cfg.Get("flutter.targetSdkVersion")
			assert.Equal(t, 35, target)
			assert.Equal(t, path, cfg.ConfigFile())

			var d struct {
				MinSdk int `toml:"minSdkVersion"`
			}
			require.NoError(t, cfg.Scan(PlatformPrefix, &d))
			assert.Equal(t, 23, d.MinSdk)
		})
	}

	t.Run("MissingFile", func(t *testing.T) {
		cfg := New()
		registerPlatformPaths(t, cfg)
		err := cfg.LoadFile(filepath.Join(tmpDir, "nonexistent.properties"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfigNotFound))
	})

	t.Run("InvalidTOML", func(t *testing.T) {
		path := filepath.Join(tmpDir, "invalid.toml")
		require.NoError(t, os.WriteFile(path, []byte("[flutter\nminSdkVersion = "), 0644))

		cfg := New()
		registerPlatformPaths(t, cfg)
		err := cfg.LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("ForcedFormat", func(t *testing.T) {
		path := filepath.Join(tmpDir, "platform.conf")
		require.NoError(t, os.WriteFile(path, []byte("flutter.minSdkVersion: 24\n"), 0644))

		cfg := New()
		registerPlatformPaths(t, cfg)
		require.NoError(t, cfg.SetFileFormat("properties"))
		require.NoError(t, cfg.LoadFile(path))

		minSdk, _ := cfg.Get("flutter.minSdkVersion")
		assert.Equal(t, "24", minSdk)
	})

	t.Run("ReloadDropsRemovedKeys", func(t *testing.T) {
		path := filepath.Join(tmpDir, "reload.properties")
		require.NoError(t, os.WriteFile(path, []byte("flutter.minSdkVersion=23\n"), 0644))

		cfg := New()
		registerPlatformPaths(t, cfg)
		require.NoError(t, cfg.LoadFile(path))

		require.NoError(t, os.WriteFile(path, []byte("flutter.versionName=3.0.0\n"), 0644))
		require.NoError(t, cfg.LoadFile(path))

		minSdk, _ := cfg.Get("flutter.minSdkVersion")
		assert.Equal(t, 21, minSdk)
		origin, _ := cfg.Origin("flutter.minSdkVersion")
		assert.Equal(t, SourceDefault, origin)
	})
}

// TestFormatDetection tests extension and content based detection
func TestFormatDetection(t *testing.T) {
	assert.Equal(t, "toml", detectFileFormat("a.toml"))
	assert.Equal(t, "toml", detectFileFormat("a.TML"))
	assert.Equal(t, "yaml", detectFileFormat("a.yml"))
	assert.Equal(t, "json", detectFileFormat("a.json"))
	assert.Equal(t, "properties", detectFileFormat("key.properties"))
	assert.Equal(t, "", detectFileFormat("build.gradle"))

	assert.Equal(t, "json", detectFormatFromContent([]byte(`{"label": "HEAD"}`)))
	assert.Equal(t, "toml", detectFormatFromContent([]byte("label = \"HEAD\"\n[default_config]\nmin_sdk = 21\n")))
	assert.Equal(t, "yaml", detectFormatFromContent([]byte("label: HEAD\ndefault_config:\n  min_sdk: 21\n")))
	assert.Equal(t, "properties", detectFormatFromContent([]byte("keyAlias upload\n")))
}

// TestEnvironmentLoading tests environment variable loading
func TestEnvironmentLoading(t *testing.T) {
	t.Run("DefaultTransform", func(t *testing.T) {
		t.Setenv("BUILDCONFIG_FLUTTER_MINSDKVERSION", "26")

		cfg := New()
		registerPlatformPaths(t, cfg)
		require.NoError(t, cfg.LoadEnv("BUILDCONFIG_"))

		val, _ := cfg.Get("flutter.minSdkVersion")
		assert.Equal(t, "26", val)
		origin, _ := cfg.Origin("flutter.minSdkVersion")
		assert.Equal(t, SourceEnv, origin)
	})

	t.Run("CustomTransform", func(t *testing.T) {
		t.Setenv("MIN_SDK", "27")

		cfg := NewWithOptions(LoadOptions{
			Sources: []Source{SourceEnv, SourceDefault},
			EnvTransform: func(path string) string {
				if path == "flutter.minSdkVersion" {
					return "MIN_SDK"
				}
				return ""
			},
		})
		registerPlatformPaths(t, cfg)
		require.NoError(t, cfg.LoadWithOptions("", nil, cfg.options))

		val, _ := cfg.Get("flutter.minSdkVersion")
		assert.Equal(t, "27", val)
	})

	t.Run("Whitelist", func(t *testing.T) {
		t.Setenv("BC_FLUTTER_MINSDKVERSION", "28")
		t.Setenv("BC_FLUTTER_VERSIONNAME", "9.9.9")

		cfg := New()
		registerPlatformPaths(t, cfg)
		opts := DefaultLoadOptions()
		opts.EnvPrefix = "BC_"
		opts.EnvWhitelist = map[string]bool{"flutter.versionName": true}
		require.NoError(t, cfg.LoadWithOptions("", nil, opts))

		minSdk, _ := cfg.Get("flutter.minSdkVersion")
		assert.Equal(t, 21, minSdk)
		name, _ := cfg.Get("flutter.versionName")
		assert.Equal(t, "9.9.9", name)
	})

	t.Run("ValueTooLarge", func(t *testing.T) {
		t.Setenv("BC_FLUTTER_VERSIONNAME", strings.Repeat("x", MaxValueSize+1))

		cfg := New()
		registerPlatformPaths(t, cfg)
		err := cfg.LoadEnv("BC_")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValueSize))
	})
}

// TestCLIParsing tests command-line override parsing
func TestCLIParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected map[string]any
		wantErr  bool
	}{
		{
			name:     "EqualsForm",
			args:     []string{"--flutter.minSdkVersion=24"},
			expected: map[string]any{"flutter.minSdkVersion": "24"},
		},
		{
			name:     "SpaceForm",
			args:     []string{"--flutter.versionName", "2.0.0"},
			expected: map[string]any{"flutter.versionName": "2.0.0"},
		},
		{
			name:     "BareFlag",
			args:     []string{"--flutter.debug", "--flutter.minSdkVersion=24"},
			expected: map[string]any{"flutter.debug": "true", "flutter.minSdkVersion": "24"},
		},
		{
			name:     "PositionalSkipped",
			args:     []string{"resolve", "--flutter.minSdkVersion=24", "extra"},
			expected: map[string]any{"flutter.minSdkVersion": "24"},
		},
		{
			name:     "ValueWithEquals",
			args:     []string{"--flutter.versionName=a=b"},
			expected: map[string]any{"flutter.versionName": "a=b"},
		},
		{
			name:    "InvalidKey",
			args:    []string{"--flutter..minSdk=1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseArgs(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, flattenMap(parsed, ""))
		})
	}

	t.Run("LoadCLIWrapsParseError", func(t *testing.T) {
		cfg := New()
		registerPlatformPaths(t, cfg)
		err := cfg.LoadCLI([]string{"--bad key=1"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCLIParse))
	})

	t.Run("UnregisteredIgnored", func(t *testing.T) {
		cfg := New()
		registerPlatformPaths(t, cfg)
		require.NoError(t, cfg.LoadCLI([]string{"--flutter.unknown=1", "--flutter.minSdkVersion=30"}))
		val, _ := cfg.Get("flutter.minSdkVersion")
		assert.Equal(t, "30", val)
		_, registered := cfg.Get("flutter.unknown")
		assert.False(t, registered)
	})
}

// TestLoadWithOptions tests full multi-source loading
func TestLoadWithOptions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "local.properties")
	require.NoError(t, os.WriteFile(path, []byte(`flutter.minSdkVersion=22
flutter.targetSdkVersion=33
flutter.versionName=1.2.0
`), 0644))
	t.Setenv("BC_FLUTTER_TARGETSDKVERSION", "34")

	opts := DefaultLoadOptions()
	opts.EnvPrefix = "BC_"

	cfg := New()
	registerPlatformPaths(t, cfg)
	require.NoError(t, cfg.LoadWithOptions(path, []string{"--flutter.versionName=1.3.0"}, opts))

	minSdk, _ := cfg.Get("flutter.minSdkVersion")
	assert.Equal(t, "22", minSdk)
	target, _ := cfg.Get("flutter.targetSdkVersion")
	assert.Equal(t, "34", target)
	name, _ := cfg.Get("flutter.versionName")
	assert.Equal(t, "1.3.0", name)

	t.Run("MissingFileIsNonFatal", func(t *testing.T) {
		cfg := New()
		registerPlatformPaths(t, cfg)
		err := cfg.LoadWithOptions(filepath.Join(tmpDir, "absent.properties"), []string{"--flutter.minSdkVersion=25"}, DefaultLoadOptions())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfigNotFound))

		// Remaining sources still applied
		val, _ := cfg.Get("flutter.minSdkVersion")
		assert.Equal(t, "25", val)
	})

	t.Run("UnreadableFileIsFatal", func(t *testing.T) {
		cfg := New()
		registerPlatformPaths(t, cfg)
		err := cfg.LoadWithOptions(tmpDir, nil, DefaultLoadOptions())
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrConfigNotFound))
	})

	t.Run("Load", func(t *testing.T) {
		cfg := New()
		registerPlatformPaths(t, cfg)
		require.NoError(t, cfg.Load(path, nil))
		minSdk, _ := cfg.Get("flutter.minSdkVersion")
		assert.Equal(t, "22", minSdk)
	})
}
