// FILE: lixenwraith/buildconfig/cmd/buildconfig/main_test.go
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const headSide = `label = "HEAD"
[default_config]
application_id = "com.ofghub.ofgconnects"
min_sdk = 21

[build_types.release]
signing = "release"
`

const featureSide = `label = "feature"
[default_config]
application_id = "com.ofghub.ofgconnects"
min_sdk = "flutter.minSdkVersion"

[build_types.release]
signing = "debug"
`

const conflicted = `[default_config]
application_id = "com.ofghub.ofgconnects"
<<<<<<< HEAD
min_sdk = 21
=======
min_sdk = "flutter.minSdkVersion"
>>>>>>> feature

[build_types.release]
<<<<<<< HEAD
signing = "release"
=======
signing = "debug"
>>>>>>> feature
`

type harness struct {
	cli    *cli
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	logs   *observer.ObservedLogs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		logs:   logs,
	}
	h.cli = &cli{
		stdout: h.stdout,
		stderr: h.stderr,
		newLogger: func(level, format string) (*zap.Logger, error) {
			return zap.New(core), nil
		},
	}
	return h
}

func writeProject(t *testing.T, keyProperties string) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"settings.gradle.kts": "include(\":app\")\n",
		"local.properties":    "sdk.dir=/opt/android-sdk\nflutter.minSdkVersion=19\nflutter.versionCode=7\n",
		"app/ours.toml":       headSide,
		"app/theirs.toml":     featureSide,
		"app/build.toml":      conflicted,
	}
	if keyProperties != "" {
		files["key.properties"] = keyProperties
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

type output struct {
	Version struct {
		ApplicationID string `json:"application_id"`
		MinSdk        int    `json:"min_sdk"`
		VersionCode   int    `json:"version_code"`
	} `json:"version"`
	Variant struct {
		Signing     string `json:"signing"`
		SigningKind string `json:"signing_kind"`
	} `json:"variant"`
	Signing    map[string]string `json:"signing"`
	Properties struct {
		Found bool `json:"found"`
	} `json:"properties"`
	Decisions []struct {
		Field string `json:"field"`
		Label string `json:"label"`
		Rule  string `json:"rule"`
	} `json:"decisions"`
}

func TestResolveCommand(t *testing.T) {
	root := writeProject(t, "keyAlias=upload\nkeyPassword=k\nstoreFile=upload.jks\nstorePassword=s\n")
	app := filepath.Join(root, "app")

	t.Run("OursTheirs", func(t *testing.T) {
		h := newHarness(t)
		code := h.cli.run([]string{"resolve",
			"--project-dir", app,
			"--ours", filepath.Join(app, "ours.toml"),
			"--theirs", filepath.Join(app, "theirs.toml"),
			"--format", "json",
			"--check",
		})
		require.Equal(t, 0, code, h.stderr.String())

		var out output
		require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
		assert.Equal(t, "com.ofghub.ofgconnects", out.Version.ApplicationID)
		assert.Equal(t, 21, out.Version.MinSdk)
		assert.Equal(t, 7, out.Version.VersionCode)
		assert.Equal(t, "release", out.Variant.Signing)
		assert.True(t, out.Properties.Found)
		assert.Equal(t, filepath.Join(app, "upload.jks"), out.Signing["storeFile"])

		require.Len(t, out.Decisions, 2)
		assert.Equal(t, "defaultConfig.minSdk", out.Decisions[0].Field)
		assert.Equal(t, "HEAD", out.Decisions[0].Label)
		assert.Equal(t, "release-signing", out.Decisions[1].Rule)

		assert.Equal(t, 1, h.logs.FilterMessage("packaging check passed").Len())
	})

	t.Run("ConflictedToFile", func(t *testing.T) {
		h := newHarness(t)
		dest := filepath.Join(t.TempDir(), "resolved.yaml")
		code := h.cli.run([]string{"resolve",
			"--project-dir", app,
			"--conflicted", filepath.Join(app, "build.toml"),
			"--format", "yaml",
			"--output", dest,
		})
		require.Equal(t, 0, code)
		assert.Empty(t, h.stdout.String())

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Contains(t, string(data), "min_sdk: 21")
		assert.Contains(t, string(data), "label: HEAD")
		assert.Equal(t, 1, h.logs.FilterMessage("resolution written").Len())
	})

	t.Run("SetOverridesPlatform", func(t *testing.T) {
		h := newHarness(t)
		code := h.cli.run([]string{"resolve",
			"--project-dir", app,
			"--candidate", filepath.Join(app, "theirs.toml"),
			"--set", "minSdkVersion=24",
			"--set", "flutter.versionCode=9",
			"--format", "json",
		})
		require.Equal(t, 0, code, h.stderr.String())

		var out output
		require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
		assert.Equal(t, 24, out.Version.MinSdk)
		assert.Equal(t, 9, out.Version.VersionCode)
		assert.Empty(t, out.Decisions)
	})
}

func TestResolveCommandFailures(t *testing.T) {
	t.Run("CheckFailsWithoutProperties", func(t *testing.T) {
		root := writeProject(t, "")
		app := filepath.Join(root, "app")
		h := newHarness(t)
		code := h.cli.run([]string{"resolve",
			"--project-dir", app,
			"--conflicted", filepath.Join(app, "build.toml"),
			"--check",
		})
		assert.Equal(t, 1, code)
		assert.Empty(t, h.stdout.String())

		failed := h.logs.FilterMessage("command failed").All()
		require.Len(t, failed, 1)
		assert.Contains(t, failed[0].ContextMap()["error"], "release signing configuration is incomplete")
	})

	t.Run("CheckFailureWritesNoFile", func(t *testing.T) {
		root := writeProject(t, "")
		app := filepath.Join(root, "app")
		dest := filepath.Join(t.TempDir(), "resolved.toml")
		h := newHarness(t)
		code := h.cli.run([]string{"resolve",
			"--project-dir", app,
			"--conflicted", filepath.Join(app, "build.toml"),
			"--output", dest,
			"--check",
		})
		assert.Equal(t, 1, code)
		assert.NoFileExists(t, dest)
		assert.Zero(t, h.logs.FilterMessage("resolution written").Len())
	})

	t.Run("UnresolvedConflict", func(t *testing.T) {
		root := writeProject(t, "")
		app := filepath.Join(root, "app")
		other := filepath.Join(app, "other.toml")
		require.NoError(t, os.WriteFile(other, []byte("[default_config]\napplication_id = \"com.ofghub.other\"\n"), 0644))

		h := newHarness(t)
		code := h.cli.run([]string{"resolve",
			"--project-dir", app,
			"--ours", filepath.Join(app, "ours.toml"),
			"--theirs", other,
		})
		assert.Equal(t, 1, code)

		h = newHarness(t)
		code = h.cli.run([]string{"resolve",
			"--project-dir", app,
			"--ours", filepath.Join(app, "ours.toml"),
			"--theirs", other,
			"--tiebreak", "theirs",
		})
		assert.Equal(t, 0, code)
		assert.Contains(t, h.stdout.String(), "com.ofghub.other")
	})

	t.Run("NoCandidates", func(t *testing.T) {
		h := newHarness(t)
		code := h.cli.run([]string{"resolve", "--project-dir", t.TempDir()})
		assert.Equal(t, 1, code)
		assert.Equal(t, 1, h.logs.FilterMessage("command failed").Len())
	})

	t.Run("BadFlag", func(t *testing.T) {
		h := newHarness(t)
		code := h.cli.run([]string{"resolve", "--tiebreak", "both"})
		assert.Equal(t, 1, code)
		assert.Contains(t, h.stderr.String(), "buildconfig:")
	})

	t.Run("InvalidPlatformOverride", func(t *testing.T) {
		root := writeProject(t, "")
		app := filepath.Join(root, "app")
		h := newHarness(t)
		code := h.cli.run([]string{"resolve",
			"--project-dir", app,
			"--candidate", filepath.Join(app, "ours.toml"),
			"--set", "versionCode=0",
		})
		assert.Equal(t, 1, code)
	})
}

func TestSplitCommand(t *testing.T) {
	root := writeProject(t, "")
	app := filepath.Join(root, "app")
	out := t.TempDir()
	oursOut := filepath.Join(out, "ours.toml")
	theirsOut := filepath.Join(out, "theirs.toml")

	h := newHarness(t)
	code := h.cli.run([]string{"split",
		"--conflicted", filepath.Join(app, "build.toml"),
		"--ours-out", oursOut,
		"--theirs-out", theirsOut,
	})
	require.Equal(t, 0, code, h.stderr.String())

	ours, err := os.ReadFile(oursOut)
	require.NoError(t, err)
	assert.Contains(t, string(ours), "min_sdk = 21")
	assert.NotContains(t, string(ours), "<<<<<<<")

	theirs, err := os.ReadFile(theirsOut)
	require.NoError(t, err)
	assert.Contains(t, string(theirs), `signing = "debug"`)

	entries := h.logs.FilterMessage("conflict split").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["blocks"])
	assert.Equal(t, "HEAD", entries[0].ContextMap()["ours_label"])

	t.Run("NoMarkersWarns", func(t *testing.T) {
		h := newHarness(t)
		code := h.cli.run([]string{"split",
			"--conflicted", filepath.Join(app, "ours.toml"),
			"--ours-out", filepath.Join(out, "a.toml"),
			"--theirs-out", filepath.Join(out, "b.toml"),
		})
		require.Equal(t, 0, code)
		assert.Equal(t, 1, h.logs.FilterLevelExact(zapcore.WarnLevel).Len())
	})

	t.Run("MissingInput", func(t *testing.T) {
		h := newHarness(t)
		code := h.cli.run([]string{"split",
			"--conflicted", filepath.Join(out, "absent.toml"),
			"--ours-out", filepath.Join(out, "a.toml"),
			"--theirs-out", filepath.Join(out, "b.toml"),
		})
		assert.Equal(t, 1, code)
	})
}

func TestPlatformCommand(t *testing.T) {
	root := writeProject(t, "")

	h := newHarness(t)
	code := h.cli.run([]string{"platform",
		"--project-dir", filepath.Join(root, "app"),
		"--set", "targetSdkVersion=36",
	})
	require.Equal(t, 0, code, h.stderr.String())

	out := h.stdout.String()
	assert.Contains(t, out, "[flutter]")
	assert.Contains(t, out, "minSdkVersion = 19")
	assert.Contains(t, out, "targetSdkVersion = 36")
	assert.Contains(t, out, `versionName = "1.0.0"`)
	assert.Contains(t, out, "compileSdkVersion = 35")

	debug := h.logs.FilterMessage("platform configuration").All()
	require.Len(t, debug, 1)
	assert.Contains(t, debug[0].ContextMap()["sources"], "flutter.versionCode = 7 (file)")
}

func TestOverrideArgs(t *testing.T) {
	known := map[string]bool{
		"flutter.minSdkVersion": true,
		"flutter.versionName":   true,
	}

	args, err := overrideArgs(map[string]string{
		"versionName":           "2.0.0",
		"flutter.minSdkVersion": "24",
	}, known)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--flutter.minSdkVersion=24",
		"--flutter.versionName=2.0.0",
	}, args)

	args, err = overrideArgs(nil, known)
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = overrideArgs(map[string]string{"flutter.minSdk": "30"}, known)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flutter.minSdk")
	assert.Contains(t, err.Error(), "flutter.minSdkVersion")
}

func TestPlatformCommandRejectsBadOverrides(t *testing.T) {
	for name, withLocalProperties := range map[string]bool{
		"WithPlatformFile":    true,
		"WithoutPlatformFile": false,
	} {
		t.Run(name, func(t *testing.T) {
			root := writeProject(t, "")
			if !withLocalProperties {
				require.NoError(t, os.Remove(filepath.Join(root, "local.properties")))
			}

			for _, set := range []string{"flutter.minSdk=30", "min sdk=30"} {
				h := newHarness(t)
				code := h.cli.run([]string{"platform",
					"--project-dir", filepath.Join(root, "app"),
					"--set", set,
				})
				assert.Equal(t, 1, code, set)
				assert.Empty(t, h.stdout.String(), set)
				assert.Equal(t, 1, h.logs.FilterMessage("command failed").Len(), set)
			}
		})
	}
}

func TestLoggerInitFailure(t *testing.T) {
	var stderr bytes.Buffer
	c := &cli{
		stdout: &bytes.Buffer{},
		stderr: &stderr,
		newLogger: func(level, format string) (*zap.Logger, error) {
			return nil, assert.AnError
		},
	}
	code := c.run([]string{"split", "--conflicted", "x", "--ours-out", "a", "--theirs-out", "b"})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "failed to initialize logger")
}
