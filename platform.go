// File: lixenwraith/buildconfig/platform.go
package buildconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// PlatformPrefix is the path prefix of platform defaults in a Config. It
// matches the keys Flutter writes to local.properties.
const PlatformPrefix = "flutter"

// PlatformDefaults are the values the surrounding toolchain injects into the
// build script (flutter.compileSdkVersion and friends).
type PlatformDefaults struct {
	CompileSdk  int    `toml:"compileSdkVersion" json:"compileSdkVersion" yaml:"compileSdkVersion"`
	MinSdk      int    `toml:"minSdkVersion" json:"minSdkVersion" yaml:"minSdkVersion"`
	TargetSdk   int    `toml:"targetSdkVersion" json:"targetSdkVersion" yaml:"targetSdkVersion"`
	VersionCode int    `toml:"versionCode" json:"versionCode" yaml:"versionCode"`
	VersionName string `toml:"versionName" json:"versionName" yaml:"versionName"`
	NdkVersion  string `toml:"ndkVersion" json:"ndkVersion" yaml:"ndkVersion"`
}

// DefaultPlatformDefaults returns the values of a current stable Flutter SDK.
func DefaultPlatformDefaults() PlatformDefaults {
	return PlatformDefaults{
		CompileSdk:  35,
		MinSdk:      21,
		TargetSdk:   35,
		VersionCode: 1,
		VersionName: "1.0.0",
		NdkVersion:  "26.3.11579264",
	}
}

// Validate rejects defaults the resolver cannot build a VersionSpec from.
func (d PlatformDefaults) Validate() error {
	var errs []error
	check := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	check("compileSdkVersion", d.CompileSdk)
	check("minSdkVersion", d.MinSdk)
	check("targetSdkVersion", d.TargetSdk)
	check("versionCode", d.VersionCode)
	if strings.TrimSpace(d.VersionName) == "" {
		errs = append(errs, errors.New("versionName must not be empty"))
	}
	if d.MinSdk > d.TargetSdk && d.TargetSdk > 0 {
		errs = append(errs, fmt.Errorf("minSdkVersion %d exceeds targetSdkVersion %d", d.MinSdk, d.TargetSdk))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlatform, errors.Join(errs...))
	}
	return nil
}

// Platform supplies the toolchain defaults. Implementations are injected into
// the Resolver; the resolver never reads process-wide toolchain state.
type Platform interface {
	Defaults() (PlatformDefaults, error)
}

// StaticPlatform is a Platform with fixed values.
type StaticPlatform PlatformDefaults

// Defaults returns the fixed values after validation.
func (p StaticPlatform) Defaults() (PlatformDefaults, error) {
	d := PlatformDefaults(p)
	if err := d.Validate(); err != nil {
		return PlatformDefaults{}, err
	}
	return d, nil
}

// ConfigPlatform reads platform defaults from the PlatformPrefix section of a
// layered Config, so local.properties, environment and CLI overrides all apply.
type ConfigPlatform struct {
	cfg *Config
}

// NewConfigPlatform wraps a Config whose PlatformPrefix section was registered
// from PlatformDefaults.
func NewConfigPlatform(cfg *Config) *ConfigPlatform {
	return &ConfigPlatform{cfg: cfg}
}

// Config returns the underlying layered store.
func (p *ConfigPlatform) Config() *Config { return p.cfg }

// NewPlatformBuilder returns a Builder with PlatformDefaults registered under
// PlatformPrefix. Callers add the file, env prefix and args.
func NewPlatformBuilder(defaults PlatformDefaults) *Builder {
	return NewBuilder().
		WithDefaults(defaults).
		WithPrefix(PlatformPrefix).
		WithValidator(func(c *Config) error {
			_, err := NewConfigPlatform(c).Defaults()
			return err
		})
}

// Defaults scans and validates the platform section.
func (p *ConfigPlatform) Defaults() (PlatformDefaults, error) {
	var d PlatformDefaults
	if err := p.cfg.Scan(PlatformPrefix, &d); err != nil {
		return PlatformDefaults{}, fmt.Errorf("%w: %w", ErrInvalidPlatform, err)
	}
	if err := d.Validate(); err != nil {
		return PlatformDefaults{}, err
	}
	return d, nil
}

// Origins reports, per platform key, which source supplied the value.
func (p *ConfigPlatform) Origins() map[string]Source {
	origins := make(map[string]Source)
	t := reflect.TypeOf(PlatformDefaults{})
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("toml")
		if source, ok := p.cfg.Origin(PlatformPrefix + "." + key); ok {
			origins[key] = source
		}
	}
	return origins
}
