// FILE: lixenwraith/buildconfig/errors.go
package buildconfig

import "errors"

// MaxValueSize bounds a single environment-supplied value.
const MaxValueSize = 64 * 1024

var (
	// ErrConfigNotFound is returned when a configuration file does not exist.
	// Loading treats it as non-fatal so callers can proceed with defaults.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrCLIParse wraps malformed command-line override arguments.
	ErrCLIParse = errors.New("failed to parse command-line arguments")

	// ErrValueSize is returned when an environment value exceeds MaxValueSize.
	ErrValueSize = errors.New("configuration value exceeds maximum size")

	// ErrInvalidPlatform is returned when the injected platform defaults are unusable.
	ErrInvalidPlatform = errors.New("invalid platform defaults")

	// ErrIncompleteSigning is returned by the packaging check when a build type
	// wants release signing but the signing configuration is missing fields.
	ErrIncompleteSigning = errors.New("release signing configuration is incomplete")

	// ErrUnresolvedConflict is returned when two candidates define equally strict
	// but different values and no tiebreak side is configured.
	ErrUnresolvedConflict = errors.New("unresolved configuration conflict")

	// ErrMalformedConflict is returned for unbalanced merge conflict markers.
	ErrMalformedConflict = errors.New("malformed merge conflict markers")
)
