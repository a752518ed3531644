// FILE: lixenwraith/buildconfig/decode.go
package buildconfig

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Scan decodes the effective configuration under basePath into target,
// which must be a non-nil pointer to a struct or map. Fields are matched by
// the configured tag name (toml by default).
func (c *Config) Scan(basePath string, target any) error {
	return c.unmarshal(basePath, "", target)
}

// ScanSource is like Scan but only sees the values supplied by one source.
func (c *Config) ScanSource(basePath string, source Source, target any) error {
	return c.unmarshal(basePath, source, target)
}

// unmarshal is the single decoding path for Scan and ScanSource.
func (c *Config) unmarshal(basePath string, source Source, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("unmarshal target must be non-nil pointer, got %T", target)
	}

	c.mutex.RLock()
	nestedMap := make(map[string]any)
	for path, item := range c.items {
		switch source {
		case "":
			setNestedValue(nestedMap, path, item.currentValue)
		case SourceDefault:
			setNestedValue(nestedMap, path, item.defaultValue)
		default:
			if val, exists := item.values[source]; exists {
				setNestedValue(nestedMap, path, val)
			}
		}
	}
	tagName := c.tagName
	c.mutex.RUnlock()

	sectionData := navigateToPath(nestedMap, basePath)
	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		if sectionData != nil {
			return fmt.Errorf("path %q refers to non-map value (type %T)", basePath, sectionData)
		}
		sectionMap = make(map[string]any)
	}

	if err := decodeMap(sectionMap, target, tagName, false); err != nil {
		return fmt.Errorf("decode failed for path %q: %w", basePath, err)
	}
	return nil
}

// decodeMap runs the shared mapstructure configuration. strict rejects keys
// that have no matching field.
func decodeMap(input map[string]any, target any, tagName string, strict bool) error {
	return decodeValue(input, target, tagName, strict)
}

func decodeValue(input any, target any, tagName string, strict bool) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          tagName,
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			trimSpaceHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	return decoder.Decode(input)
}

// typedValue converts the effective value to the type of the registered
// default when they differ, so string values from files, env and CLI read
// back as numbers. Unconvertible values are returned unchanged.
func typedValue(item configItem) any {
	if item.defaultValue == nil || item.currentValue == nil {
		return item.currentValue
	}
	t := reflect.TypeOf(item.defaultValue)
	if reflect.TypeOf(item.currentValue) == t {
		return item.currentValue
	}
	out := reflect.New(t)
	if err := decodeValue(item.currentValue, out.Interface(), "", false); err != nil {
		return item.currentValue
	}
	return out.Elem().Interface()
}

// trimSpaceHookFunc strips surrounding whitespace from string input bound for
// non-string fields. Properties and env values often carry trailing blanks.
func trimSpaceHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		target := t
		if target.Kind() == reflect.Ptr {
			target = target.Elem()
		}
		if target.Kind() == reflect.String {
			return data, nil
		}
		return strings.TrimSpace(reflect.ValueOf(data).String()), nil
	}
}
