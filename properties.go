// File: lixenwraith/buildconfig/properties.go
package buildconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// PropertiesFileName is the signing properties file, relative to the root project.
const PropertiesFileName = "key.properties"

// Recognized signing keys.
const (
	KeyAlias      = "keyAlias"
	KeyPassword   = "keyPassword"
	StoreFile     = "storeFile"
	StorePassword = "storePassword"
)

// SigningKeys lists the recognized keys in a fixed order.
var SigningKeys = []string{KeyAlias, KeyPassword, StoreFile, StorePassword}

// PropertySource is an optional key/value file. A source whose file does not
// exist is valid and empty.
type PropertySource struct {
	path   string
	exists bool
	values map[string]string
}

// NewPropertySource builds an in-memory source.
func NewPropertySource(values map[string]string) *PropertySource {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &PropertySource{exists: true, values: copied}
}

// LoadPropertySource reads a properties file. A missing file (or an empty
// path) yields an empty source and no error.
func LoadPropertySource(path string) (*PropertySource, error) {
	src := &PropertySource{path: path, values: make(map[string]string)}
	if path == "" {
		return src, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return src, nil
		}
		return nil, fmt.Errorf("failed to open properties file '%s': %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties file '%s': %w", path, err)
	}

	values, err := parseProperties(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse properties file '%s': %w", path, err)
	}

	src.exists = true
	src.values = values
	return src, nil
}

// Path returns the file path the source was loaded from.
func (s *PropertySource) Path() string { return s.path }

// Exists reports whether the backing file was present.
func (s *PropertySource) Exists() bool { return s.exists }

// Get returns the value for key and whether it was present.
func (s *PropertySource) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of entries.
func (s *PropertySource) Len() int { return len(s.values) }

// Keys returns all keys, sorted.
func (s *PropertySource) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
