// File: lixenwraith/buildconfig/inspect.go
package buildconfig

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Set stores value for path as a command-line override, the highest
// precedence source under the default options.
func (c *Config) Set(path string, value any) error {
	return c.SetSource(path, SourceCLI, value)
}

// Dump writes the effective values of all paths under prefix as a TOML
// document, typed like their defaults. An empty prefix dumps everything.
func (c *Config) Dump(w io.Writer, prefix string) error {
	c.mutex.RLock()
	nestedData := make(map[string]any)
	for path, item := range c.items {
		if prefix == "" || strings.HasPrefix(path, prefix+".") {
			setNestedValue(nestedData, path, typedValue(item))
		}
	}
	c.mutex.RUnlock()

	if err := toml.NewEncoder(w).Encode(nestedData); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return nil
}

// Debug returns every path with its effective value and the value supplied
// by each source, sorted by path.
func (c *Config) Debug() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	paths := make([]string, 0, len(c.items))
	for path := range c.items {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var b strings.Builder
	fmt.Fprintf(&b, "precedence: %v\n", c.options.Sources)
	for _, path := range paths {
		item := c.items[path]
		fmt.Fprintf(&b, "%s = %v (%s)\n", path, item.currentValue, c.originOf(item))
		fmt.Fprintf(&b, "  default: %v\n", item.defaultValue)
		for _, source := range c.options.Sources {
			if value, exists := item.values[source]; exists {
				fmt.Fprintf(&b, "  %s: %v\n", source, value)
			}
		}
	}
	return b.String()
}
