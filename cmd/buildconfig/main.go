// File: lixenwraith/buildconfig/cmd/buildconfig/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/lixenwraith/buildconfig"
	"github.com/lixenwraith/buildconfig/internal/logging"
)

func main() {
	c := &cli{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		newLogger: logging.New,
	}
	os.Exit(c.run(os.Args[1:]))
}

// cli holds the process-facing dependencies so tests can swap them.
type cli struct {
	stdout    io.Writer
	stderr    io.Writer
	newLogger func(level, format string) (*zap.Logger, error)
}

type resolveOptions struct {
	projectDir   string
	properties   string
	platformFile string
	envPrefix    string
	set          map[string]string
	ours         string
	theirs       string
	conflicted   string
	candidate    string
	variant      string
	namespace    string
	tiebreak     string
	format       string
	output       string
	check        bool
}

type platformOptions struct {
	projectDir   string
	platformFile string
	envPrefix    string
	set          map[string]string
}

type splitOptions struct {
	conflicted string
	oursOut    string
	theirsOut  string
}

func (c *cli) run(args []string) int {
	app := kingpin.New("buildconfig", "Resolve Android signing and SDK settings from layered, possibly conflicting sources")
	app.UsageWriter(c.stderr)
	app.ErrorWriter(c.stderr)
	app.Terminate(nil)

	logLevel := app.Flag("log-level", "Log level (debug, info, warn, error)").Default("info").String()
	logFormat := app.Flag("log-format", "Log encoding").Default("json").Enum("json", "console")

	var ro resolveOptions
	resolveCmd := app.Command("resolve", "Resolve one VersionSpec and BuildVariant from two candidates")
	resolveCmd.Flag("project-dir", "Module or project directory; the root project is found by walking up").Default(".").StringVar(&ro.projectDir)
	resolveCmd.Flag("properties", "Signing properties file (default: <root>/key.properties)").StringVar(&ro.properties)
	resolveCmd.Flag("platform-file", "Platform defaults file (default: <root>/local.properties)").StringVar(&ro.platformFile)
	resolveCmd.Flag("env-prefix", "Prefix of environment overrides for platform defaults").Default("BUILDCONFIG_").StringVar(&ro.envPrefix)
	setFlag := resolveCmd.Flag("set", "Platform default override, e.g. flutter.minSdkVersion=23").StringMap()
	resolveCmd.Flag("ours", "Candidate document for our side").StringVar(&ro.ours)
	resolveCmd.Flag("theirs", "Candidate document for their side").StringVar(&ro.theirs)
	resolveCmd.Flag("conflicted", "One candidate document still carrying merge markers").StringVar(&ro.conflicted)
	resolveCmd.Flag("candidate", "A single candidate document (no conflict)").StringVar(&ro.candidate)
	resolveCmd.Flag("variant", "Build type to resolve").Default(buildconfig.DefaultVariant).StringVar(&ro.variant)
	resolveCmd.Flag("namespace", "applicationId fallback when no candidate sets one").StringVar(&ro.namespace)
	resolveCmd.Flag("tiebreak", "Side that wins equally strict conflicts").Default("none").EnumVar(&ro.tiebreak, "none", "ours", "theirs")
	resolveCmd.Flag("format", "Output format").Default("toml").EnumVar(&ro.format, buildconfig.OutputFormats...)
	resolveCmd.Flag("output", "Write the resolution to this file instead of stdout").Short('o').StringVar(&ro.output)
	resolveCmd.Flag("check", "Fail when the variant's release signing config is incomplete").BoolVar(&ro.check)

	var po platformOptions
	platformCmd := app.Command("platform", "Print the effective platform defaults")
	platformCmd.Flag("project-dir", "Module or project directory; the root project is found by walking up").Default(".").StringVar(&po.projectDir)
	platformCmd.Flag("platform-file", "Platform defaults file (default: <root>/local.properties)").StringVar(&po.platformFile)
	platformCmd.Flag("env-prefix", "Prefix of environment overrides for platform defaults").Default("BUILDCONFIG_").StringVar(&po.envPrefix)
	platformSet := platformCmd.Flag("set", "Platform default override, e.g. flutter.minSdkVersion=23").StringMap()

	var so splitOptions
	splitCmd := app.Command("split", "Split a document with merge markers into its two sides")
	splitCmd.Flag("conflicted", "Document carrying merge markers").Required().StringVar(&so.conflicted)
	splitCmd.Flag("ours-out", "Destination of our side").Required().StringVar(&so.oursOut)
	splitCmd.Flag("theirs-out", "Destination of their side").Required().StringVar(&so.theirsOut)

	command, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(c.stderr, "buildconfig: %v\n", err)
		return 1
	}
	if command == "" {
		// --help was handled by kingpin
		return 0
	}

	logger, err := c.newLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(c.stderr, "buildconfig: failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case resolveCmd.FullCommand():
		ro.set = *setFlag
		err = c.resolve(ro, logger)
	case platformCmd.FullCommand():
		po.set = *platformSet
		err = c.platform(po, logger)
	case splitCmd.FullCommand():
		err = c.split(so, logger)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		return 1
	}
	return 0
}

func (c *cli) resolve(opts resolveOptions, logger *zap.Logger) error {
	layout, err := buildconfig.DiscoverLayout(opts.projectDir)
	if err != nil {
		return err
	}
	if opts.properties == "" {
		opts.properties = layout.PropertiesPath
	}
	if opts.platformFile == "" {
		opts.platformFile = layout.PlatformPath
	}
	logger.Debug("project layout",
		zap.String("root", layout.RootDir),
		zap.String("module", layout.ModuleDir),
		zap.String("properties", opts.properties),
		zap.String("platform_file", opts.platformFile))

	platform, err := loadPlatform(opts.platformFile, opts.envPrefix, opts.set, logger)
	if err != nil {
		return err
	}

	ours, theirs, err := loadCandidates(opts)
	if err != nil {
		return err
	}

	tiebreak, err := buildconfig.ParseSide(opts.tiebreak)
	if err != nil {
		return err
	}

	resolver := buildconfig.NewResolver(platform,
		buildconfig.WithLogger(logger),
		buildconfig.WithPolicy(buildconfig.Policy{Tiebreak: tiebreak}),
	)
	res, err := resolver.Resolve(buildconfig.Request{
		PropertiesPath: opts.properties,
		ModuleDir:      layout.ModuleDir,
		Variant:        opts.variant,
		Namespace:      opts.namespace,
		Ours:           ours,
		Theirs:         theirs,
	})
	if err != nil {
		return err
	}

	// A resolution that cannot be packaged is never written
	if opts.check {
		if err := res.CheckPackaging(); err != nil {
			return err
		}
		logger.Info("packaging check passed", zap.String("variant", res.Variant.Name))
	}

	if opts.output != "" {
		if err := buildconfig.SaveResolution(opts.output, opts.format, res); err != nil {
			return err
		}
		logger.Info("resolution written", zap.String("path", opts.output), zap.String("format", opts.format))
		return nil
	}
	return res.Encode(c.stdout, opts.format)
}

// loadPlatform layers the platform defaults: built-in values, the platform
// file, environment and --set overrides.
func loadPlatform(file, envPrefix string, set map[string]string, logger *zap.Logger) (*buildconfig.ConfigPlatform, error) {
	defaults := buildconfig.DefaultPlatformDefaults()

	known := buildconfig.New()
	if err := known.RegisterStruct(buildconfig.PlatformPrefix, defaults); err != nil {
		return nil, err
	}
	args, err := overrideArgs(set, known.GetRegisteredPaths(buildconfig.PlatformPrefix+"."))
	if err != nil {
		return nil, err
	}

	cfg, err := buildconfig.NewPlatformBuilder(defaults).
		WithFile(file).
		WithEnvPrefix(envPrefix).
		WithArgs(args).
		Build()
	if err != nil {
		if !errors.Is(err, buildconfig.ErrConfigNotFound) {
			return nil, fmt.Errorf("load platform defaults: %w", err)
		}
		logger.Debug("platform file not found, using built-in defaults", zap.String("path", file))
	}

	platform := buildconfig.NewConfigPlatform(cfg)
	logger.Debug("platform defaults", zap.Any("origins", platform.Origins()))
	return platform, nil
}

func (c *cli) platform(opts platformOptions, logger *zap.Logger) error {
	if opts.platformFile == "" {
		layout, err := buildconfig.DiscoverLayout(opts.projectDir)
		if err != nil {
			return err
		}
		opts.platformFile = layout.PlatformPath
	}

	platform, err := loadPlatform(opts.platformFile, opts.envPrefix, opts.set, logger)
	if err != nil {
		return err
	}
	logger.Debug("platform configuration", zap.String("sources", platform.Config().Debug()))
	return platform.Config().Dump(c.stdout, buildconfig.PlatformPrefix)
}

func loadCandidates(opts resolveOptions) (ours, theirs buildconfig.Candidate, err error) {
	switch {
	case opts.conflicted != "":
		return buildconfig.LoadConflicted(opts.conflicted)
	case opts.candidate != "":
		cand, err := buildconfig.LoadCandidate(opts.candidate)
		return cand, cand, err
	case opts.ours != "" && opts.theirs != "":
		if ours, err = buildconfig.LoadCandidate(opts.ours); err != nil {
			return ours, theirs, err
		}
		theirs, err = buildconfig.LoadCandidate(opts.theirs)
		return ours, theirs, err
	default:
		return ours, theirs, errors.New("no candidates: use --ours with --theirs, --conflicted or --candidate")
	}
}

// overrideArgs turns --set pairs into layered-store arguments, adding the
// platform prefix when it is missing. Keys are sorted for stable precedence
// and must name a registered platform path.
func overrideArgs(set map[string]string, known map[string]bool) ([]string, error) {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		path := strings.TrimSpace(k)
		if !strings.HasPrefix(path, buildconfig.PlatformPrefix+".") {
			path = buildconfig.PlatformPrefix + "." + path
		}
		if !known[path] {
			return nil, fmt.Errorf("unknown platform key %q in --set, expected one of %s", k, knownKeys(known))
		}
		args = append(args, "--"+path+"="+set[k])
	}
	return args, nil
}

func knownKeys(known map[string]bool) string {
	keys := make([]string, 0, len(known))
	for k := range known {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func (c *cli) split(opts splitOptions, logger *zap.Logger) error {
	data, err := os.ReadFile(opts.conflicted)
	if err != nil {
		return fmt.Errorf("read conflicted file: %w", err)
	}

	sides, err := buildconfig.SplitConflict(data)
	if err != nil {
		return err
	}
	if sides.Blocks == 0 {
		logger.Warn("no conflict markers found; both sides are identical", zap.String("path", opts.conflicted))
	}

	if err := buildconfig.WriteFile(opts.oursOut, sides.Ours, 0644); err != nil {
		return err
	}
	if err := buildconfig.WriteFile(opts.theirsOut, sides.Theirs, 0644); err != nil {
		return err
	}

	logger.Info("conflict split",
		zap.Int("blocks", sides.Blocks),
		zap.String("ours_label", sides.OursLabel),
		zap.String("theirs_label", sides.TheirsLabel),
		zap.String("ours_out", opts.oursOut),
		zap.String("theirs_out", opts.theirsOut))
	return nil
}
