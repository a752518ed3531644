// File: lixenwraith/buildconfig/io.go
package buildconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// OutputFormats lists the formats accepted by Encode.
var OutputFormats = []string{"toml", "yaml", "json", "properties"}

// Document renders the resolution as a nested map. Unset signing fields are
// omitted. Passwords are included: the packaging step needs them.
func (r *Resolution) Document() map[string]any {
	doc := map[string]any{
		"version": map[string]any{
			"application_id": r.Version.ApplicationID,
			"min_sdk":        r.Version.MinSdk,
			"target_sdk":     r.Version.TargetSdk,
			"compile_sdk":    r.Version.CompileSdk,
			"version_code":   r.Version.VersionCode,
			"version_name":   r.Version.VersionName,
			"ndk_version":    r.Version.NdkVersion,
		},
		"variant": map[string]any{
			"name":             r.Variant.Name,
			"signing":          r.Variant.Signing.String(),
			"signing_kind":     string(r.Variant.Signing.Kind),
			"minify":           r.Variant.MinifyEnabled,
			"shrink_resources": r.Variant.ShrinkResources,
			"proguard_files":   stringsOrEmpty(r.Variant.ProguardFiles),
		},
		"properties": map[string]any{
			"path":  r.PropertiesPath,
			"found": r.PropertiesFound,
		},
	}

	signing := map[string]any{"name": r.Signing.Name}
	for k, v := range r.Signing.Values() {
		signing[k] = v
	}
	doc["signing"] = signing

	decisions := make([]map[string]any, 0, len(r.Decisions))
	for _, d := range r.Decisions {
		decisions = append(decisions, map[string]any{
			"field":         d.Field,
			"chosen":        string(d.Chosen),
			"label":         d.Label,
			"value":         d.Value,
			"rule":          string(d.Rule),
			"ours":          d.Ours.Value,
			"ours_origin":   string(d.Ours.Origin),
			"theirs":        d.Theirs.Value,
			"theirs_origin": string(d.Theirs.Origin),
		})
	}
	doc["decisions"] = decisions

	adjustments := make([]map[string]any, 0, len(r.Adjustments))
	for _, a := range r.Adjustments {
		adjustments = append(adjustments, map[string]any{
			"field":     a.Field,
			"side":      string(a.Side),
			"label":     a.Label,
			"requested": a.Requested,
			"value":     a.Value,
		})
	}
	doc["adjustments"] = adjustments

	return doc
}

// Encode writes the resolution in the given format.
func (r *Resolution) Encode(w io.Writer, format string) error {
	doc := r.Document()

	switch format {
	case "toml":
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("failed to encode TOML: %w", err)
		}
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	case "properties":
		if err := encodeProperties(w, doc); err != nil {
			return fmt.Errorf("failed to encode properties: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	return nil
}

// SaveResolution writes the resolution to path atomically.
func SaveResolution(path, format string, r *Resolution) error {
	var buf bytes.Buffer
	if err := r.Encode(&buf, format); err != nil {
		return err
	}
	return atomicWriteFile(path, buf.Bytes(), 0600)
}

// encodeProperties flattens doc into sorted dotted keys. List entries are
// indexed: decisions.0.field.
func encodeProperties(w io.Writer, doc map[string]any) error {
	flat := make(map[string]string)
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		switch val := v.(type) {
		case map[string]any:
			for k, sub := range val {
				walk(joinKey(prefix, k), sub)
			}
		case []map[string]any:
			for i, sub := range val {
				walk(joinKey(prefix, strconv.Itoa(i)), sub)
			}
		case []string:
			for i, sub := range val {
				flat[joinKey(prefix, strconv.Itoa(i))] = sub
			}
		default:
			flat[prefix] = fmt.Sprint(val)
		}
	}
	walk("", doc)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, k := range keys {
		if _, _, err := p.Set(k, flat[k]); err != nil {
			return err
		}
	}
	// Runes above U+00FF come out \u-escaped; the rest are narrowed to
	// single Latin-1 bytes, the encoding Properties.load(InputStream) reads.
	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.ISO_8859_1); err != nil {
		return err
	}
	latin1 := make([]byte, 0, buf.Len())
	for _, r := range buf.String() {
		latin1 = append(latin1, byte(r))
	}
	_, err := w.Write(latin1)
	return err
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func stringsOrEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// atomicWriteFile writes data to a temp file in the target directory and
// renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	removed := false
	defer func() {
		if !removed {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file '%s': %w", tempPath, err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file '%s': %w", tempPath, err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file '%s': %w", tempPath, err)
	}

	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions on '%s': %w", tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file '%s' to '%s': %w", tempPath, path, err)
	}
	removed = true

	return nil
}

// WriteFile writes data to path atomically with the given permissions.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return atomicWriteFile(path, data, perm)
}
