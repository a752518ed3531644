// File: lixenwraith/buildconfig/doc.go

// Package buildconfig resolves the signing and SDK version settings of an
// Android application build from layered, possibly absent and possibly
// conflicting sources.
//
// Inputs:
//   - key.properties: optional signing credentials (keyAlias, keyPassword,
//     storeFile, storePassword). A missing file is not an error.
//   - Platform defaults: the flutter.* values injected by the toolchain,
//     read through a Platform. ConfigPlatform layers them from defaults,
//     local.properties, environment variables and command-line arguments.
//   - Two candidates: the divergent definitions left by a merge, given as two
//     TOML/YAML/JSON documents or as one document with conflict markers.
//
// Quick Start:
//
//	cfg, err := buildconfig.NewPlatformBuilder(buildconfig.DefaultPlatformDefaults()).
//	    WithFile("android/local.properties").
//	    WithEnvPrefix("BUILDCONFIG_").
//	    Build()
//	if err != nil && !errors.Is(err, buildconfig.ErrConfigNotFound) {
//	    log.Fatal(err)
//	}
//
//	ours, theirs, err := buildconfig.LoadConflicted("android/app/build.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := buildconfig.NewResolver(buildconfig.NewConfigPlatform(cfg)).
//	    Resolve(buildconfig.Request{
//	        PropertiesPath: "android/key.properties",
//	        ModuleDir:      "android/app",
//	        Ours:           ours,
//	        Theirs:         theirs,
//	    })
//
// Conflict policy (per field, deterministic):
//  1. Numeric SDK and version code fields: the higher effective value wins.
//  2. Signing: a release config beats the debug placeholder, which beats none.
//  3. Other fields: an explicit value beats a platform default or unset value.
//  4. Equally strict but different values: the Policy tiebreak side wins, or
//     Resolve fails with ErrUnresolvedConflict.
//
// Every conflict is recorded as a Decision on the Resolution and logged.
// Missing signing fields are not a resolution error; Resolution.CheckPackaging
// reports them to the packaging step.
package buildconfig
