// Package cli provides the command-line interface of nmap-parse.
// It wires configuration, logging and metrics around the parse pipeline.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/nmap-parse/internal/config"
	apperrors "github.com/anstrom/nmap-parse/internal/errors"
	"github.com/anstrom/nmap-parse/internal/logging"
	"github.com/anstrom/nmap-parse/internal/metrics"
	"github.com/anstrom/nmap-parse/internal/parser"
	"github.com/anstrom/nmap-parse/internal/pipeline"
	"github.com/anstrom/nmap-parse/internal/render"
)

const (
	envPrefix         = "NMAP_PARSE"
	defaultConfigFile = "nmap-parse.yaml"
)

// Exit statuses of a failed command.
const (
	exitFailure     = 1
	exitConfigError = 2
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// options holds the flag values of one command instance.
type options struct {
	cfgFile     string
	verbose     bool
	format      string
	ports       string
	workers     int
	summary     bool
	metricsFile string

	v *viper.Viper
}

// rootCmd represents the base command.
var rootCmd = newRootCommand()

// newRootCommand builds the command with its own flag set and viper instance.
func newRootCommand() *cobra.Command {
	return buildRootCommand(&options{v: viper.New()})
}

func buildRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nmap-parse [flags] <file>...",
		Short: "Extract open ports from nmap greppable and XML output",
		Long: `nmap-parse reads nmap scan results in greppable (.gnmap) or XML (.xml)
format, collects every open port, removes duplicate host/port pairs and prints
one line per port using an output template.

Sources that cannot be read are reported on standard error and skipped; the
remaining sources are still processed.`,
		Example: `  nmap-parse scan.gnmap
  nmap-parse -f '{ip}:{port}' scan.xml other.gnmap
  nmap-parse -f 'Host {ip} has port {port} open' -p 22,80,443 *.xml
  nmap-parse --workers 8 --summary results/*.gnmap`,
		Args:          cobra.MinimumNArgs(1),
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", config.DefaultFormat,
		"Output format (e.g., '{ip}:{port}' or 'Host {ip} has port {port} open')")
	flags.StringVarP(&opts.ports, "ports", "p", "",
		"Comma-separated list of ports to include (e.g., 22,80,443)")
	flags.IntVarP(&opts.workers, "workers", "w", 1, "Number of sources parsed concurrently")
	flags.BoolVar(&opts.summary, "summary", false, "Print a per-source summary table to stderr")
	flags.StringVar(&opts.metricsFile, "metrics-file", "",
		"Write run metrics in Prometheus text format to this file")
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./"+defaultConfigFile+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	opts.bindFlags(flags)

	return cmd
}

// bindFlags maps flags onto configuration keys so flags, environment
// variables and the config file resolve through one lookup.
func (o *options) bindFlags(flags *pflag.FlagSet) {
	bindings := map[string]string{
		"output.format":    "format",
		"output.ports":     "ports",
		"parsing.workers":  "workers",
		"metrics.textfile": "metrics-file",
	}
	for key, flag := range bindings {
		if err := o.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", flag, err)
		}
	}

	o.v.SetEnvPrefix(envPrefix)
	o.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	o.v.AutomaticEnv()
}

// Execute runs the root command and exits non-zero on command-level errors.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status. Invalid
// configuration and templates stop the run before any source is read.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case apperrors.IsFatal(err):
		return exitConfigError
	default:
		return exitFailure
	}
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// configFilePath returns the config file to load.
func (o *options) configFilePath() string {
	if o.cfgFile != "" {
		return o.cfgFile
	}
	return defaultConfigFile
}

// loadConfig reads the config file and applies environment and flag overrides.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configFilePath())
	if err != nil {
		return nil, err
	}

	o.overrideString("output.format", &cfg.Output.Format)
	o.overrideString("output.ports", &cfg.Output.Ports)
	o.overrideInt("parsing.workers", &cfg.Parsing.Workers)
	o.overrideInt("parsing.max_line_bytes", &cfg.Parsing.MaxLineBytes)
	o.overrideString("logging.level", &cfg.Logging.Level)
	o.overrideString("logging.format", &cfg.Logging.Format)
	o.overrideString("logging.output", &cfg.Logging.Output)
	o.overrideInt("logging.max_size_mb", &cfg.Logging.MaxSizeMB)
	o.overrideInt("logging.max_backups", &cfg.Logging.MaxBackups)
	o.overrideInt("logging.max_age_days", &cfg.Logging.MaxAgeDays)
	o.overrideBool("logging.compress", &cfg.Logging.Compress)
	o.overrideString("metrics.textfile", &cfg.Metrics.Textfile)
	if o.verbose {
		cfg.Logging.Level = string(logging.LevelDebug)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *options) overrideString(key string, dst *string) {
	if o.v.IsSet(key) {
		*dst = o.v.GetString(key)
	}
}

func (o *options) overrideInt(key string, dst *int) {
	if o.v.IsSet(key) {
		*dst = o.v.GetInt(key)
	}
}

func (o *options) overrideBool(key string, dst *bool) {
	if o.v.IsSet(key) {
		*dst = o.v.GetBool(key)
	}
}

// newLogger builds the run logger. Log lines never go to the results stream
// unless the configuration explicitly asks for stdout.
func newLogger(cfg *config.Config, stdout, stderr io.Writer) (*logging.Logger, error) {
	logConfig := logging.Config{
		Level:     logging.LogLevel(cfg.Logging.Level),
		Format:    logging.LogFormat(cfg.Logging.Format),
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.Level == string(logging.LevelDebug),
		Rotation: logging.Rotation{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		},
	}

	switch cfg.Logging.Output {
	case "", "stderr":
		return logging.NewWithWriter(logConfig, stderr), nil
	case "stdout":
		return logging.NewWithWriter(logConfig, stdout), nil
	default:
		return logging.New(logConfig)
	}
}

func (o *options) run(cmd *cobra.Command, args []string) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return apperrors.WrapConfigError(apperrors.CodeConfiguration, "failed to initialize logging", err)
	}
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close log output: %v\n", err)
		}
	}()
	logger = logger.WithRunID(uuid.NewString())

	previous := logging.Default()
	logging.SetDefault(logger)
	defer logging.SetDefault(previous)

	tmpl, err := render.Compile(cfg.Output.Format)
	if err != nil {
		return err
	}
	filter := render.ParsePortFilter(cfg.Output.Ports)
	parser.MaxLineBytes = cfg.Parsing.MaxLineBytes

	var pm *metrics.PrometheusMetrics
	if cfg.Metrics.Textfile != "" {
		pm = metrics.NewPrometheusMetrics()
	}

	logger.Debug("Starting run",
		"sources", len(args),
		"format", tmpl.String(),
		"ports", cfg.Output.Ports,
		"workers", cfg.Parsing.Workers)

	reporter := newConsoleReporter(logger)
	start := time.Now()

	aggregator := pipeline.NewAggregator(pipeline.AggregatorConfig{Workers: cfg.Parsing.Workers}, reporter, pm)
	set, results := aggregator.Collect(cmd.Context(), pipeline.SourcesFromPaths(args))

	renderer := pipeline.NewRenderer(tmpl, filter, reporter, pm)
	stats, err := renderer.Render(cmd.OutOrStdout(), set)
	if err != nil {
		return err
	}

	logger.Debug("Run finished",
		"facts", set.Len(),
		"rendered", stats.Rendered,
		"filtered", stats.Filtered,
		"render_errors", stats.Failed,
		"duration", time.Since(start))

	if o.summary {
		printSummary(cmd.ErrOrStderr(), results, stats)
	}

	if pm != nil {
		pm.MarkRunFinished(time.Now())
		if err := pm.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}

	return nil
}

// newConsoleReporter logs every recoverable error of a run.
func newConsoleReporter(logger *logging.Logger) pipeline.Reporter {
	return pipeline.ReporterFunc(func(err error) {
		var sourceErr *apperrors.SourceError
		var renderErr *apperrors.RenderError

		switch {
		case errors.As(err, &sourceErr):
			logger.ErrorSource("Skipping source", sourceErr.Source, err, "code", string(sourceErr.Code))
		case errors.As(err, &renderErr):
			logger.Error("Skipping entry",
				"ip", renderErr.Host,
				"port", renderErr.Port,
				"missing_key", renderErr.Field,
				"error", err)
		default:
			logger.Error("Run error", "error", err)
		}
	})
}
