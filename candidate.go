// File: lixenwraith/buildconfig/candidate.go
package buildconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
)

// DefaultVariant is the build type resolved when none is requested.
const DefaultVariant = "release"

// VersionOverrides are the defaultConfig fields one candidate sets explicitly.
// A nil field defers to the platform default.
// The platform tag names the PlatformDefaults key a field may reference.
type VersionOverrides struct {
	ApplicationID *string `toml:"application_id"`
	MinSdk        *int    `toml:"min_sdk" platform:"minSdkVersion"`
	TargetSdk     *int    `toml:"target_sdk" platform:"targetSdkVersion"`
	CompileSdk    *int    `toml:"compile_sdk" platform:"compileSdkVersion"`
	VersionCode   *int    `toml:"version_code" platform:"versionCode"`
	VersionName   *string `toml:"version_name" platform:"versionName"`
	NdkVersion    *string `toml:"ndk_version" platform:"ndkVersion"`
}

// VariantOverrides are the build type fields one candidate sets explicitly.
type VariantOverrides struct {
	// Signing names a signing config; "debug" is the debug placeholder.
	Signing         *string  `toml:"signing"`
	MinifyEnabled   *bool    `toml:"minify"`
	ShrinkResources *bool    `toml:"shrink_resources"`
	ProguardFiles   []string `toml:"proguard_files"`
}

// Candidate is one of two unreconciled configuration definitions.
type Candidate struct {
	Label         string                      `toml:"label"`
	DefaultConfig VersionOverrides            `toml:"default_config"`
	BuildTypes    map[string]VariantOverrides `toml:"build_types"`
}

// Variant returns the overrides for a build type; a missing build type has
// every field unset.
func (c Candidate) Variant(name string) VariantOverrides {
	return c.BuildTypes[name]
}

// PlatformReference returns the platform key behind a default_config field
// ("min_sdk" gives "minSdkVersion") and whether the field is numeric. Fields
// without a platform default return ok == false.
func PlatformReference(field string) (key string, numeric bool, ok bool) {
	t := reflect.TypeOf(VersionOverrides{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get("toml") != field {
			continue
		}
		key = f.Tag.Get("platform")
		return key, f.Type.Elem().Kind() == reflect.Int, key != ""
	}
	return "", false, false
}

// IsPlatformReference reports whether value, written for a default_config
// field, defers to the platform default: "platform" or exactly
// "flutter.<key>" for that field's own key.
func IsPlatformReference(field string, value any) bool {
	s, isString := value.(string)
	if !isString {
		return false
	}
	key, _, ok := PlatformReference(field)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	return s == "platform" || s == PlatformPrefix+"."+key
}

// resolvePlatformReferences drops the fields of section that defer to the
// platform. A flutter.* reference to some other key on a numeric field is an
// error; on a string field it stays an explicit value.
func resolvePlatformReferences(section map[string]any) error {
	for field, value := range section {
		if IsPlatformReference(field, value) {
			delete(section, field)
			continue
		}
		s, isString := value.(string)
		if !isString || !strings.HasPrefix(strings.TrimSpace(s), PlatformPrefix+".") {
			continue
		}
		if key, numeric, ok := PlatformReference(field); ok && numeric {
			return fmt.Errorf("field '%s' references %q, expected \"%s.%s\" or \"platform\"",
				field, strings.TrimSpace(s), PlatformPrefix, key)
		}
	}
	return nil
}

// ParseCandidate decodes a candidate document. Unknown keys are rejected.
func ParseCandidate(data []byte, format string) (Candidate, error) {
	if format == "" || format == "auto" {
		format = detectFormatFromContent(data)
	}
	if format == "properties" {
		return Candidate{}, fmt.Errorf("unsupported candidate format %q", format)
	}

	doc, err := decodeDocument(format, data)
	if err != nil {
		return Candidate{}, err
	}

	if section, ok := doc["default_config"].(map[string]any); ok {
		if err := resolvePlatformReferences(section); err != nil {
			return Candidate{}, fmt.Errorf("invalid candidate: %w", err)
		}
	}

	var cand Candidate
	if err := decodeMap(doc, &cand, "toml", true); err != nil {
		return Candidate{}, fmt.Errorf("invalid candidate: %w", err)
	}
	return cand, nil
}

// LoadCandidate reads a candidate file. Without a label in the document the
// file name is used.
func LoadCandidate(path string) (Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("failed to read candidate '%s': %w", path, err)
	}

	cand, err := ParseCandidate(data, detectFileFormat(path))
	if err != nil {
		return Candidate{}, fmt.Errorf("failed to parse candidate '%s': %w", path, err)
	}
	if cand.Label == "" {
		cand.Label = filepath.Base(path)
	}
	return cand, nil
}

// LoadConflicted reads one document that still carries merge markers and
// parses both sides. Marker labels become the candidate labels unless the
// sides set their own.
func LoadConflicted(path string) (ours, theirs Candidate, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Candidate{}, Candidate{}, fmt.Errorf("failed to read conflicted file '%s': %w", path, err)
	}

	sides, err := SplitConflict(data)
	if err != nil {
		return Candidate{}, Candidate{}, fmt.Errorf("failed to split '%s': %w", path, err)
	}

	format := detectFileFormat(path)
	if ours, err = ParseCandidate(sides.Ours, format); err != nil {
		return Candidate{}, Candidate{}, fmt.Errorf("failed to parse ours side of '%s': %w", path, err)
	}
	if theirs, err = ParseCandidate(sides.Theirs, format); err != nil {
		return Candidate{}, Candidate{}, fmt.Errorf("failed to parse theirs side of '%s': %w", path, err)
	}

	if ours.Label == "" {
		ours.Label = labelOr(sides.OursLabel, string(SideOurs))
	}
	if theirs.Label == "" {
		theirs.Label = labelOr(sides.TheirsLabel, string(SideTheirs))
	}
	return ours, theirs, nil
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
