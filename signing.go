// File: lixenwraith/buildconfig/signing.go
package buildconfig

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ReleaseSigningName is the name of the signing configuration created from
// the properties file.
const ReleaseSigningName = "release"

// SigningConfig holds the credentials for signing a release artifact. A nil
// field is unset, which is different from an empty value.
type SigningConfig struct {
	Name          string  `properties:"-"`
	KeyAlias      *string `properties:"keyAlias"`
	KeyPassword   *string `properties:"keyPassword"`
	StoreFile     *string `properties:"storeFile"`
	StorePassword *string `properties:"storePassword"`
}

// NewSigningConfig takes each signing field from src when present and leaves
// it unset otherwise. A relative storeFile is resolved against moduleDir, the
// way Gradle's file() does; an empty moduleDir keeps it as written.
func NewSigningConfig(src *PropertySource, moduleDir string) (SigningConfig, error) {
	sc := SigningConfig{Name: ReleaseSigningName}

	input := make(map[string]any, len(SigningKeys))
	for _, key := range SigningKeys {
		if v, ok := src.Get(key); ok {
			input[key] = v
		}
	}
	if err := decodeMap(input, &sc, "properties", true); err != nil {
		return SigningConfig{}, fmt.Errorf("failed to decode signing config: %w", err)
	}

	if sc.StoreFile != nil && moduleDir != "" && *sc.StoreFile != "" && !filepath.IsAbs(*sc.StoreFile) {
		resolved := filepath.Join(moduleDir, *sc.StoreFile)
		sc.StoreFile = &resolved
	}
	return sc, nil
}

// fields pairs each recognized key with its value, in SigningKeys order.
func (s SigningConfig) fields() []struct {
	key   string
	value *string
} {
	return []struct {
		key   string
		value *string
	}{
		{KeyAlias, s.KeyAlias},
		{KeyPassword, s.KeyPassword},
		{StoreFile, s.StoreFile},
		{StorePassword, s.StorePassword},
	}
}

// Missing returns the keys that are unset, in SigningKeys order.
func (s SigningConfig) Missing() []string {
	var missing []string
	for _, f := range s.fields() {
		if f.value == nil {
			missing = append(missing, f.key)
		}
	}
	return missing
}

// Complete reports whether all four fields are set.
func (s SigningConfig) Complete() bool {
	return len(s.Missing()) == 0
}

// Validate returns ErrIncompleteSigning naming the unset keys.
func (s SigningConfig) Validate() error {
	if missing := s.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: signing config %q is missing %s", ErrIncompleteSigning, s.Name, strings.Join(missing, ", "))
	}
	return nil
}

// Values returns the set fields as key/value pairs.
func (s SigningConfig) Values() map[string]string {
	values := make(map[string]string)
	for _, f := range s.fields() {
		if f.value != nil {
			values[f.key] = *f.value
		}
	}
	return values
}

// String renders the config with passwords masked.
func (s SigningConfig) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "signing %q {", s.Name)
	for i, f := range s.fields() {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(" " + f.key + "=")
		switch {
		case f.value == nil:
			b.WriteString("<unset>")
		case f.key == KeyPassword || f.key == StorePassword:
			b.WriteString("<redacted>")
		default:
			b.WriteString(*f.value)
		}
	}
	b.WriteString(" }")
	return b.String()
}
