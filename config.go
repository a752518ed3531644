// FILE: lixenwraith/buildconfig/config.go
package buildconfig

import (
	"fmt"
	"sync"
)

// configItem holds the default, per-source and effective value of a path.
type configItem struct {
	defaultValue any
	values       map[Source]any
	currentValue any
}

// Config is a registry of dot-separated configuration paths. Each path keeps
// the value supplied by every source so the effective value can be recomputed
// when precedence changes and its origin can be reported.
type Config struct {
	items          map[string]configItem
	mutex          sync.RWMutex
	options        LoadOptions
	tagName        string
	fileFormat     string
	configFilePath string
}

// New creates a Config with the default load options.
func New() *Config {
	return NewWithOptions(DefaultLoadOptions())
}

// NewWithOptions creates a Config with custom load options.
func NewWithOptions(opts LoadOptions) *Config {
	if len(opts.Sources) == 0 {
		opts.Sources = DefaultLoadOptions().Sources
	}
	return &Config{
		items:      make(map[string]configItem),
		options:    opts,
		tagName:    "toml",
		fileFormat: "auto",
	}
}

// Get returns the effective value for path and whether the path is registered.
func (c *Config) Get(path string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, registered := c.items[path]
	if !registered {
		return nil, false
	}
	return item.currentValue, true
}

// SetSource stores a value for path as supplied by source and recomputes the
// effective value.
func (c *Config) SetSource(path string, source Source, value any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, registered := c.items[path]
	if !registered {
		return fmt.Errorf("path %s is not registered", path)
	}

	if source == SourceDefault {
		item.defaultValue = value
	} else {
		if item.values == nil {
			item.values = make(map[Source]any)
		}
		item.values[source] = value
	}
	item.currentValue = c.computeValue(item)
	c.items[path] = item
	return nil
}

// GetSource returns the value supplied by one source for path.
func (c *Config) GetSource(path string, source Source) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, registered := c.items[path]
	if !registered {
		return nil, false
	}
	if source == SourceDefault {
		return item.defaultValue, true
	}
	val, exists := item.values[source]
	return val, exists
}

// GetSources returns a copy of all non-default values supplied for path.
func (c *Config) GetSources(path string) map[Source]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	result := make(map[Source]any)
	if item, registered := c.items[path]; registered {
		for source, val := range item.values {
			result[source] = val
		}
	}
	return result
}

// Origin reports which source supplied the effective value of path.
func (c *Config) Origin(path string) (Source, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, registered := c.items[path]
	if !registered {
		return "", false
	}
	return c.originOf(item), true
}

// SetLoadOptions replaces the load options and recomputes every effective value
// under the new precedence.
func (c *Config) SetLoadOptions(opts LoadOptions) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(opts.Sources) == 0 {
		opts.Sources = DefaultLoadOptions().Sources
	}
	c.options = opts
	for path, item := range c.items {
		item.currentValue = c.computeValue(item)
		c.items[path] = item
	}
}

// SetFileFormat forces the format used by LoadFile ("toml", "yaml", "json",
// "properties" or "auto").
func (c *Config) SetFileFormat(format string) error {
	switch format {
	case "toml", "yaml", "json", "properties", "auto":
	default:
		return fmt.Errorf("unsupported file format %q", format)
	}

	c.mutex.Lock()
	c.fileFormat = format
	c.mutex.Unlock()
	return nil
}

// ConfigFile returns the path of the last successfully loaded file.
func (c *Config) ConfigFile() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.configFilePath
}

// computeValue walks the sources in precedence order and returns the first
// value present. Callers must hold the write lock.
func (c *Config) computeValue(item configItem) any {
	for _, source := range c.options.Sources {
		if source == SourceDefault {
			return item.defaultValue
		}
		if val, exists := item.values[source]; exists {
			return val
		}
	}
	return item.defaultValue
}

func (c *Config) originOf(item configItem) Source {
	for _, source := range c.options.Sources {
		if source == SourceDefault {
			return SourceDefault
		}
		if _, exists := item.values[source]; exists {
			return source
		}
	}
	return SourceDefault
}
