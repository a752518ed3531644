// File: lixenwraith/buildconfig/variant.go
package buildconfig

import "strings"

// SigningKind classifies what a build type signs with.
type SigningKind string

const (
	// SigningNone means the build type names no signing config.
	SigningNone SigningKind = "none"
	// SigningDebug is the debug keystore placeholder.
	SigningDebug SigningKind = "debug"
	// SigningRelease is a real, named signing configuration.
	SigningRelease SigningKind = "release"
)

// rank orders kinds from least to most complete.
func (k SigningKind) rank() int {
	switch k {
	case SigningRelease:
		return 2
	case SigningDebug:
		return 1
	default:
		return 0
	}
}

// SigningRef is a build type's reference to a signing configuration.
type SigningRef struct {
	Kind SigningKind
	Name string
}

// ParseSigningRef maps a signing config name to a reference. "debug" is the
// placeholder, an empty name is no signing, anything else is a real config.
func ParseSigningRef(name string) SigningRef {
	name = strings.TrimSpace(name)
	switch name {
	case "":
		return SigningRef{Kind: SigningNone}
	case "debug":
		return SigningRef{Kind: SigningDebug, Name: name}
	default:
		return SigningRef{Kind: SigningRelease, Name: name}
	}
}

func (r SigningRef) String() string {
	if r.Kind == SigningNone {
		return string(SigningNone)
	}
	return r.Name
}

// BuildVariant is a resolved build type.
type BuildVariant struct {
	Name            string
	Signing         SigningRef
	MinifyEnabled   bool
	ShrinkResources bool
	ProguardFiles   []string
}

// VersionSpec is the resolved defaultConfig.
type VersionSpec struct {
	ApplicationID string
	MinSdk        int
	TargetSdk     int
	CompileSdk    int
	VersionCode   int
	VersionName   string
	NdkVersion    string
}
