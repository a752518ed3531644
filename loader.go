// FILE: lixenwraith/buildconfig/loader.go
package buildconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// Source identifies where a configuration value came from.
type Source string

const (
	// SourceDefault represents registered default values
	SourceDefault Source = "default"
	// SourceFile represents values loaded from a configuration file
	SourceFile Source = "file"
	// SourceEnv represents values loaded from environment variables
	SourceEnv Source = "env"
	// SourceCLI represents values loaded from command-line arguments
	SourceCLI Source = "cli"
)

// EnvTransformFunc converts a configuration path to an environment variable name.
type EnvTransformFunc func(path string) string

// LoadOptions configures how configuration is loaded from multiple sources.
type LoadOptions struct {
	// Sources defines the precedence order (first = highest priority).
	// Default: [SourceCLI, SourceEnv, SourceFile, SourceDefault]
	Sources []Source

	// EnvPrefix is prepended to environment variable names.
	// Example: "BUILDCONFIG_" maps "flutter.versionCode" to "BUILDCONFIG_FLUTTER_VERSIONCODE".
	EnvPrefix string

	// EnvTransform customizes how paths map to environment variables.
	EnvTransform EnvTransformFunc

	// EnvWhitelist limits which paths are checked for env vars (nil = all).
	EnvWhitelist map[string]bool
}

// DefaultLoadOptions returns the standard load options.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Sources: []Source{SourceCLI, SourceEnv, SourceFile, SourceDefault},
	}
}

// Load reads configuration from a file and command-line arguments using the
// current options.
func (c *Config) Load(filePath string, args []string) error {
	c.mutex.RLock()
	opts := c.options
	c.mutex.RUnlock()
	return c.LoadWithOptions(filePath, args, opts)
}

// LoadWithOptions loads every source named in opts, lowest precedence first.
// A missing file is reported as ErrConfigNotFound alongside a usable Config;
// any other file error is fatal.
func (c *Config) LoadWithOptions(filePath string, args []string, opts LoadOptions) error {
	c.SetLoadOptions(opts)

	var loadErrors []error

	for i := len(opts.Sources) - 1; i >= 0; i-- {
		switch opts.Sources[i] {
		case SourceDefault:
			// Defaults are already in place from Register calls
			continue

		case SourceFile:
			if filePath == "" {
				continue
			}
			if err := c.loadFile(filePath); err != nil {
				if !errors.Is(err, ErrConfigNotFound) {
					return err
				}
				loadErrors = append(loadErrors, err)
			}

		case SourceEnv:
			if err := c.loadEnv(opts); err != nil {
				loadErrors = append(loadErrors, err)
			}

		case SourceCLI:
			if len(args) > 0 {
				if err := c.loadCLI(args); err != nil {
					loadErrors = append(loadErrors, err)
				}
			}
		}
	}

	return errors.Join(loadErrors...)
}

// fatalLoadErrors strips ErrConfigNotFound from a load error. The rest, if
// any, must stop the caller.
func fatalLoadErrors(err error) error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var fatal []error
		for _, e := range joined.Unwrap() {
			if f := fatalLoadErrors(e); f != nil {
				fatal = append(fatal, f)
			}
		}
		return errors.Join(fatal...)
	}
	if errors.Is(err, ErrConfigNotFound) {
		return nil
	}
	return err
}

// LoadFile loads configuration values from a file.
func (c *Config) LoadFile(filePath string) error {
	return c.loadFile(filePath)
}

// LoadEnv loads configuration values from environment variables.
func (c *Config) LoadEnv(prefix string) error {
	c.mutex.RLock()
	opts := c.options
	c.mutex.RUnlock()

	opts.EnvPrefix = prefix
	return c.loadEnv(opts)
}

// LoadCLI loads configuration values from command-line arguments.
func (c *Config) LoadCLI(args []string) error {
	return c.loadCLI(args)
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	fileData, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	c.mutex.RLock()
	format := c.fileFormat
	c.mutex.RUnlock()

	if format == "" || format == "auto" {
		format = detectFileFormat(path)
		if format == "" {
			format = detectFormatFromContent(fileData)
		}
	}

	fileConfig, err := decodeDocument(format, fileData)
	if err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	newFileData := make(map[string]any)
	var apply func(prefix string, data map[string]any)
	apply = func(prefix string, data map[string]any) {
		for key, value := range data {
			fullPath := key
			if prefix != "" {
				fullPath = prefix + "." + key
			}
			if _, registered := c.items[fullPath]; registered {
				newFileData[fullPath] = value
			} else if subMap, isMap := value.(map[string]any); isMap {
				apply(fullPath, subMap)
			}
		}
	}
	apply("", fileConfig)

	c.configFilePath = path
	for itemPath, item := range c.items {
		if value, exists := newFileData[itemPath]; exists {
			if item.values == nil {
				item.values = make(map[Source]any)
			}
			item.values[SourceFile] = value
		} else {
			delete(item.values, SourceFile)
		}
		item.currentValue = c.computeValue(item)
		c.items[itemPath] = item
	}

	return nil
}

func (c *Config) loadEnv(opts LoadOptions) error {
	transform := opts.EnvTransform
	if transform == nil {
		transform = defaultEnvTransform(opts.EnvPrefix)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for path, item := range c.items {
		if opts.EnvWhitelist != nil && !opts.EnvWhitelist[path] {
			continue
		}

		value, exists := os.LookupEnv(transform(path))
		if !exists {
			continue
		}
		if len(value) > MaxValueSize {
			return fmt.Errorf("%w: %s", ErrValueSize, transform(path))
		}

		// Raw string; mapstructure converts on Scan
		if item.values == nil {
			item.values = make(map[Source]any)
		}
		item.values[SourceEnv] = value
		item.currentValue = c.computeValue(item)
		c.items[path] = item
	}

	return nil
}

func (c *Config) loadCLI(args []string) error {
	parsedCLI, err := parseArgs(args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCLIParse, err)
	}

	flattenedCLI := flattenMap(parsedCLI, "")
	if len(flattenedCLI) == 0 {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for path, value := range flattenedCLI {
		item, exists := c.items[path]
		if !exists {
			continue
		}
		if item.values == nil {
			item.values = make(map[Source]any)
		}
		item.values[SourceCLI] = value
		item.currentValue = c.computeValue(item)
		c.items[path] = item
	}

	return nil
}

// defaultEnvTransform maps "flutter.minSdkVersion" to PREFIX + "FLUTTER_MINSDKVERSION".
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(path string) string {
		env := strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
		return prefix + strings.ReplaceAll(env, "-", "_")
	}
}

// parseArgs processes "--key.path=value", "--key.path value" and bare
// "--flag" arguments into a nested map. Non-flag arguments are skipped.
func parseArgs(args []string) (map[string]any, error) {
	result := make(map[string]any)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			i++
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			i++
			continue
		}

		var keyPath, valueStr string
		if key, value, found := strings.Cut(argContent, "="); found {
			keyPath, valueStr = key, value
			i++
		} else {
			keyPath = argContent
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				valueStr = "true"
				i++
			} else {
				valueStr = args[i+1]
				i += 2
			}
		}

		if keyPath == "" {
			continue
		}
		if !isValidPath(keyPath) {
			return nil, fmt.Errorf("invalid command-line key %q", keyPath)
		}

		// Always stored as a string; Scan handles conversion
		setNestedValue(result, keyPath, valueStr)
	}

	return result, nil
}

// detectFileFormat determines format from the file extension.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".properties":
		return "properties"
	default:
		return ""
	}
}

// detectFormatFromContent tries the strict formats first. Properties accepts
// almost anything, so it is the fallback.
func detectFormatFromContent(data []byte) string {
	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err == nil {
		return "json"
	}
	if err := toml.Unmarshal(data, &probe); err == nil {
		return "toml"
	}
	if err := yaml.Unmarshal(data, &probe); err == nil && probe != nil {
		return "yaml"
	}
	return "properties"
}

// decodeDocument parses data in the given format into a nested map.
func decodeDocument(format string, data []byte) (map[string]any, error) {
	doc := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		if doc == nil {
			doc = make(map[string]any)
		}
	case "properties":
		values, err := parseProperties(data)
		if err != nil {
			return nil, fmt.Errorf("invalid properties: %w", err)
		}
		for key, value := range values {
			if isValidPath(key) {
				setNestedValue(doc, key, value)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return doc, nil
}

// parseProperties reads java.util.Properties text. Like Properties.load on an
// InputStream the input is ISO-8859-1; ${} references are kept literally.
func parseProperties(data []byte) (map[string]string, error) {
	loader := &properties.Loader{
		Encoding:         properties.ISO_8859_1,
		DisableExpansion: true,
	}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}
