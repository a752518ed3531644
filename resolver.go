// File: lixenwraith/buildconfig/resolver.go
package buildconfig

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Side identifies one of the two candidates.
type Side string

const (
	SideNone   Side = ""
	SideOurs   Side = "ours"
	SideTheirs Side = "theirs"
)

// ParseSide accepts "ours", "theirs", and "none" or "" for no side.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SideNone, nil
	case "ours":
		return SideOurs, nil
	case "theirs":
		return SideTheirs, nil
	default:
		return SideNone, fmt.Errorf("unknown side %q (want ours, theirs or none)", s)
	}
}

// Rule names the policy that decided a conflict.
type Rule string

const (
	// RuleHigher picks the higher numeric value.
	RuleHigher Rule = "higher"
	// RuleReleaseSigning picks release signing over the debug placeholder over none.
	RuleReleaseSigning Rule = "release-signing"
	// RuleExplicit picks an explicit value over a platform default or unset value.
	RuleExplicit Rule = "explicit"
	// RuleTiebreak picks the configured side when both are equally strict.
	RuleTiebreak Rule = "tiebreak"
)

// Origin describes where one side's effective value came from.
type Origin string

const (
	OriginExplicit Origin = "explicit"
	OriginPlatform Origin = "platform"
	OriginUnset    Origin = "unset"
	// OriginFloor is an explicit value raised to the platform minimum.
	OriginFloor Origin = "floor"
)

// SideValue is one candidate's effective value for a field.
type SideValue struct {
	Value  string
	Origin Origin
}

// Decision is the audit record of one resolved conflict.
type Decision struct {
	Field  string
	Ours   SideValue
	Theirs SideValue
	Chosen Side
	// Label is the chosen candidate's label.
	Label string
	Value string
	Rule  Rule
}

// Adjustment records an explicit value the resolver did not honor as
// written, such as a minSdk below the platform minimum.
type Adjustment struct {
	Field     string
	Side      Side
	Label     string
	Requested string
	Value     string
}

// Policy configures conflict resolution.
type Policy struct {
	// Tiebreak decides conflicts between equally strict values. SideNone makes
	// such conflicts fail with ErrUnresolvedConflict.
	Tiebreak Side
}

// Request is the input of one resolution.
type Request struct {
	// PropertiesPath locates key.properties; empty or missing means no signing values.
	PropertiesPath string
	// ModuleDir resolves a relative storeFile.
	ModuleDir string
	// Variant is the build type to resolve, DefaultVariant when empty.
	Variant string
	// Namespace is the applicationId fallback when no candidate sets one.
	Namespace string
	Ours      Candidate
	Theirs    Candidate
}

// Resolution is the reconciled configuration handed to the packaging step.
type Resolution struct {
	Version         VersionSpec
	Variant         BuildVariant
	Signing         SigningConfig
	PropertiesPath  string
	PropertiesFound bool
	Decisions       []Decision
	Adjustments     []Adjustment
}

// CheckPackaging fails when the variant wants release signing that cannot be
// satisfied. It is meant for the packaging step; Resolve never calls it.
func (r *Resolution) CheckPackaging() error {
	ref := r.Variant.Signing
	if ref.Kind != SigningRelease {
		return nil
	}
	if ref.Name != r.Signing.Name {
		return fmt.Errorf("%w: build type %q uses signing config %q but only %q is defined",
			ErrIncompleteSigning, r.Variant.Name, ref.Name, r.Signing.Name)
	}
	return r.Signing.Validate()
}

// Resolver reconciles two candidates against platform defaults and the
// signing properties file.
type Resolver struct {
	platform Platform
	policy   Policy
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger that receives the audit trail.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPolicy sets the conflict policy.
func WithPolicy(policy Policy) Option {
	return func(r *Resolver) {
		r.policy = policy
	}
}

// NewResolver creates a Resolver for the given platform.
func NewResolver(platform Platform, opts ...Option) *Resolver {
	r := &Resolver{
		platform: platform,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve produces one VersionSpec and one BuildVariant from the two
// candidates. Every conflicting field yields a Decision, logged at info level.
func (r *Resolver) Resolve(req Request) (*Resolution, error) {
	defaults, err := r.platform.Defaults()
	if err != nil {
		return nil, fmt.Errorf("failed to read platform defaults: %w", err)
	}

	props, err := LoadPropertySource(req.PropertiesPath)
	if err != nil {
		return nil, err
	}
	if !props.Exists() {
		r.logger.Debug("properties file not found, signing fields left unset",
			zap.String("path", req.PropertiesPath))
	}

	signing, err := NewSigningConfig(props, req.ModuleDir)
	if err != nil {
		return nil, err
	}

	variantName := req.Variant
	if variantName == "" {
		variantName = DefaultVariant
	}

	m := &merge{
		policy:      r.policy,
		oursLabel:   labelOr(req.Ours.Label, string(SideOurs)),
		theirsLabel: labelOr(req.Theirs.Label, string(SideTheirs)),
	}
	version := m.version(req.Ours.DefaultConfig, req.Theirs.DefaultConfig, defaults, req.Namespace)
	variant := m.variant(variantName, req.Ours.Variant(variantName), req.Theirs.Variant(variantName))
	if len(m.errs) > 0 {
		return nil, errors.Join(m.errs...)
	}

	for _, d := range m.decisions {
		r.logger.Info("resolved configuration conflict",
			zap.String("field", d.Field),
			zap.String("chosen", string(d.Chosen)),
			zap.String("label", d.Label),
			zap.String("value", d.Value),
			zap.String("rule", string(d.Rule)),
			zap.String("ours", d.Ours.Value),
			zap.String("ours_origin", string(d.Ours.Origin)),
			zap.String("theirs", d.Theirs.Value),
			zap.String("theirs_origin", string(d.Theirs.Origin)),
		)
	}

	for _, a := range m.adjustments {
		r.logger.Warn("explicit value raised to platform minimum",
			zap.String("field", a.Field),
			zap.String("side", string(a.Side)),
			zap.String("label", a.Label),
			zap.String("requested", a.Requested),
			zap.String("value", a.Value),
		)
	}

	r.logger.Info("configuration resolved",
		zap.String("application_id", version.ApplicationID),
		zap.Int("min_sdk", version.MinSdk),
		zap.Int("target_sdk", version.TargetSdk),
		zap.String("variant", variant.Name),
		zap.String("signing", variant.Signing.String()),
		zap.Bool("signing_complete", signing.Complete()),
		zap.Int("conflicts", len(m.decisions)),
	)

	return &Resolution{
		Version:         version,
		Variant:         variant,
		Signing:         signing,
		PropertiesPath:  req.PropertiesPath,
		PropertiesFound: props.Exists(),
		Decisions:       m.decisions,
		Adjustments:     m.adjustments,
	}, nil
}

// merge accumulates decisions and unresolved conflicts for one resolution.
type merge struct {
	policy      Policy
	oursLabel   string
	theirsLabel string
	decisions   []Decision
	adjustments []Adjustment
	errs        []error
}

func (m *merge) version(ours, theirs VersionOverrides, d PlatformDefaults, namespace string) VersionSpec {
	return VersionSpec{
		ApplicationID: m.stringField("defaultConfig.applicationId", ours.ApplicationID, theirs.ApplicationID, namespace),
		MinSdk:        m.intField("defaultConfig.minSdk", ours.MinSdk, theirs.MinSdk, d.MinSdk, true),
		TargetSdk:     m.intField("defaultConfig.targetSdk", ours.TargetSdk, theirs.TargetSdk, d.TargetSdk, false),
		CompileSdk:    m.intField("android.compileSdk", ours.CompileSdk, theirs.CompileSdk, d.CompileSdk, false),
		VersionCode:   m.intField("defaultConfig.versionCode", ours.VersionCode, theirs.VersionCode, d.VersionCode, false),
		VersionName:   m.stringField("defaultConfig.versionName", ours.VersionName, theirs.VersionName, d.VersionName),
		NdkVersion:    m.stringField("android.ndkVersion", ours.NdkVersion, theirs.NdkVersion, d.NdkVersion),
	}
}

func (m *merge) variant(name string, ours, theirs VariantOverrides) BuildVariant {
	prefix := "buildTypes." + name + "."
	return BuildVariant{
		Name:            name,
		Signing:         m.signingField(prefix+"signingConfig", ours.Signing, theirs.Signing),
		MinifyEnabled:   m.boolField(prefix+"isMinifyEnabled", ours.MinifyEnabled, theirs.MinifyEnabled),
		ShrinkResources: m.boolField(prefix+"isShrinkResources", ours.ShrinkResources, theirs.ShrinkResources),
		ProguardFiles:   m.listField(prefix+"proguardFiles", ours.ProguardFiles, theirs.ProguardFiles),
	}
}

// decide records a conflict. prefer is SideNone when both sides are equally
// strict, in which case the tiebreak side decides or the conflict is an error.
func (m *merge) decide(field string, ours, theirs SideValue, prefer Side, rule Rule) Side {
	if prefer == SideNone {
		if m.policy.Tiebreak == SideNone {
			m.errs = append(m.errs, fmt.Errorf("%w: %s is %q in %s and %q in %s",
				ErrUnresolvedConflict, field, ours.Value, m.oursLabel, theirs.Value, m.theirsLabel))
			return SideOurs
		}
		prefer, rule = m.policy.Tiebreak, RuleTiebreak
	}

	d := Decision{Field: field, Ours: ours, Theirs: theirs, Chosen: prefer, Rule: rule}
	if prefer == SideOurs {
		d.Label, d.Value = m.oursLabel, ours.Value
	} else {
		d.Label, d.Value = m.theirsLabel, theirs.Value
	}
	m.decisions = append(m.decisions, d)
	return prefer
}

// intField applies the explicit-else-platform rule, or max(explicit, platform)
// when floor is set, then lets the higher side win a conflict.
func (m *merge) intField(field string, ours, theirs *int, platform int, floor bool) int {
	o, oOrigin := effectiveInt(ours, platform, floor)
	t, tOrigin := effectiveInt(theirs, platform, floor)
	if oOrigin == OriginFloor {
		m.adjust(field, SideOurs, m.oursLabel, *ours, o)
	}
	if tOrigin == OriginFloor {
		m.adjust(field, SideTheirs, m.theirsLabel, *theirs, t)
	}
	if o == t {
		return o
	}

	prefer := SideOurs
	if t > o {
		prefer = SideTheirs
	}
	side := m.decide(field,
		SideValue{Value: strconv.Itoa(o), Origin: oOrigin},
		SideValue{Value: strconv.Itoa(t), Origin: tOrigin},
		prefer, RuleHigher)
	if side == SideTheirs {
		return t
	}
	return o
}

func (m *merge) adjust(field string, side Side, label string, requested, value int) {
	m.adjustments = append(m.adjustments, Adjustment{
		Field:     field,
		Side:      side,
		Label:     label,
		Requested: strconv.Itoa(requested),
		Value:     strconv.Itoa(value),
	})
}

func effectiveInt(v *int, platform int, floor bool) (int, Origin) {
	switch {
	case v == nil:
		return platform, OriginPlatform
	case floor && *v < platform:
		return platform, OriginFloor
	}
	return *v, OriginExplicit
}

func (m *merge) stringField(field string, ours, theirs *string, fallback string) string {
	o, oOrigin := effectiveString(ours, fallback)
	t, tOrigin := effectiveString(theirs, fallback)
	if o == t {
		return o
	}

	side := m.decide(field,
		SideValue{Value: o, Origin: oOrigin},
		SideValue{Value: t, Origin: tOrigin},
		preferExplicit(oOrigin, tOrigin), RuleExplicit)
	if side == SideTheirs {
		return t
	}
	return o
}

func effectiveString(v *string, fallback string) (string, Origin) {
	switch {
	case v != nil:
		return *v, OriginExplicit
	case fallback != "":
		return fallback, OriginPlatform
	default:
		return "", OriginUnset
	}
}

func (m *merge) boolField(field string, ours, theirs *bool) bool {
	o, oOrigin := effectiveBool(ours)
	t, tOrigin := effectiveBool(theirs)
	if o == t {
		return o
	}

	side := m.decide(field,
		SideValue{Value: strconv.FormatBool(o), Origin: oOrigin},
		SideValue{Value: strconv.FormatBool(t), Origin: tOrigin},
		preferExplicit(oOrigin, tOrigin), RuleExplicit)
	if side == SideTheirs {
		return t
	}
	return o
}

func effectiveBool(v *bool) (bool, Origin) {
	if v == nil {
		return false, OriginUnset
	}
	return *v, OriginExplicit
}

func (m *merge) listField(field string, ours, theirs []string) []string {
	if slices.Equal(ours, theirs) {
		return slices.Clone(ours)
	}

	oOrigin, tOrigin := listOrigin(ours), listOrigin(theirs)
	side := m.decide(field,
		SideValue{Value: strings.Join(ours, ","), Origin: oOrigin},
		SideValue{Value: strings.Join(theirs, ","), Origin: tOrigin},
		preferExplicit(oOrigin, tOrigin), RuleExplicit)
	if side == SideTheirs {
		return slices.Clone(theirs)
	}
	return slices.Clone(ours)
}

func listOrigin(v []string) Origin {
	if v == nil {
		return OriginUnset
	}
	return OriginExplicit
}

func (m *merge) signingField(field string, ours, theirs *string) SigningRef {
	o, oOrigin := signingRef(ours)
	t, tOrigin := signingRef(theirs)
	if o == t {
		return o
	}

	prefer := SideNone
	switch {
	case o.Kind.rank() > t.Kind.rank():
		prefer = SideOurs
	case t.Kind.rank() > o.Kind.rank():
		prefer = SideTheirs
	}
	side := m.decide(field,
		SideValue{Value: o.String(), Origin: oOrigin},
		SideValue{Value: t.String(), Origin: tOrigin},
		prefer, RuleReleaseSigning)
	if side == SideTheirs {
		return t
	}
	return o
}

func signingRef(v *string) (SigningRef, Origin) {
	if v == nil {
		return ParseSigningRef(""), OriginUnset
	}
	return ParseSigningRef(*v), OriginExplicit
}

func preferExplicit(ours, theirs Origin) Side {
	switch {
	case ours == OriginExplicit && theirs != OriginExplicit:
		return SideOurs
	case theirs == OriginExplicit && ours != OriginExplicit:
		return SideTheirs
	default:
		return SideNone
	}
}
