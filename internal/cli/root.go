package cli

import (
	"context"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/basecamp/loadable/internal/appctx"
	"github.com/basecamp/loadable/internal/commands"
	"github.com/basecamp/loadable/internal/config"
	"github.com/basecamp/loadable/internal/output"
	"github.com/basecamp/loadable/internal/version"
)

// settingFlags holds the flags that override config values.
type settingFlags struct {
	configPath string
	logLevel   string
	latency    time.Duration
	pageSize   int
	total      int
	failRate   float64
	noStats    bool
}

// NewRootCmd creates the root cobra command with every subcommand registered.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags
	var settings settingFlags

	cmd := &cobra.Command{
		Use:           "loadable",
		Short:         "Load and page through a catalog",
		Long:          "loadable pages, counts and browses a simulated catalog, tracing every load it makes.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and shell completion
			if cmd.Name() == "help" || cmd.Name() == cobra.ShellCompRequestCmd {
				return nil
			}

			cfg, err := config.Load(flagOverrides(cmd, settings, flags))
			if err != nil {
				return output.ErrConfig(err)
			}

			app := appctx.NewApp(cfg)
			app.Stdout = cmd.OutOrStdout()
			app.Stderr = cmd.ErrOrStderr()
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}
	cmd.SetVersionTemplate(version.Full() + "\n")

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	cmd.PersistentFlags().BoolVar(&flags.IDsOnly, "ids-only", false, "Output only IDs")
	cmd.PersistentFlags().BoolVar(&flags.Count, "count", false, "Output only count")
	cmd.PersistentFlags().StringVar(&flags.JQ, "jq", "", "Filter JSON output through a jq expression")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for loads, -vv for fetches)")
	cmd.PersistentFlags().BoolVar(&flags.Stats, "stats", false, "Show session statistics")
	cmd.PersistentFlags().BoolVar(&settings.noStats, "no-stats", false, "Hide session statistics")
	cmd.PersistentFlags().BoolVar(&flags.Metrics, "metrics", false, "Dump Prometheus metrics to stderr when done")
	cmd.PersistentFlags().StringVar(&settings.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, off)")
	cmd.PersistentFlags().StringVar(&settings.configPath, "config", "", "Additional config file to load")

	// Catalog flags
	cmd.PersistentFlags().DurationVar(&settings.latency, "latency", 0, "Simulated latency per fetch")
	cmd.PersistentFlags().IntVar(&settings.pageSize, "page-size", 0, "Items per page")
	cmd.PersistentFlags().IntVar(&settings.total, "total", 0, "Number of items in the catalog")
	cmd.PersistentFlags().Float64Var(&settings.failRate, "fail-rate", 0, "Chance each fetch fails (0 to 1)")

	_ = cmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions(
		[]string{"trace", "debug", "info", "warn", "error", "off"}, cobra.ShellCompDirectiveNoFileComp))

	cmd.AddCommand(
		commands.NewPagesCmd(),
		commands.NewCountCmd(),
		commands.NewBrowseCmd(),
		commands.NewConfigCmd(),
		commands.NewCommandsCmd(),
		commands.NewVersionCmd(),
	)

	return cmd
}

// flagOverrides collects the flags the user actually set.
// Unset flags leave lower config layers in place.
func flagOverrides(cmd *cobra.Command, s settingFlags, flags appctx.GlobalFlags) config.FlagOverrides {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		return f != nil && f.Changed
	}
	o := config.FlagOverrides{
		ConfigPath: s.configPath,
		LogLevel:   s.logLevel,
		PageSize:   s.pageSize,
		Total:      s.total,
	}
	if changed("stats") {
		v := flags.Stats
		o.Stats = &v
	}
	// --no-stats wins over --stats, but --no-stats=false defers to config
	if changed("no-stats") && s.noStats {
		v := false
		o.Stats = &v
	}
	if changed("verbose") {
		v := flags.Verbose
		o.Verbose = &v
	}
	if changed("latency") {
		v := s.latency
		o.Latency = &v
	}
	if changed("fail-rate") {
		v := s.failRate
		o.FailRate = &v
	}
	return o
}

// Execute runs the root command and exits with the error's exit code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := NewRootCmd()

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteContextC(ctx)
	if err != nil {
		err = transformCobraError(err)
		apiErr := output.AsError(err)

		// Try to use app.Err() if app is available (for --stats support)
		if app := appctx.FromContext(executedCmd.Context()); app != nil {
			_ = app.Err(err)
			stop()
			os.Exit(apiErr.ExitCode())
		}

		// Fallback: output error directly (app not available, e.g., during setup)
		writer := output.New(output.Options{
			Format: fallbackFormat(cmd.PersistentFlags()),
			Writer: os.Stdout,
		})
		_ = writer.Err(err)

		stop()
		os.Exit(apiErr.ExitCode())
	}
}

// fallbackFormat picks an output format from the raw flags when setup failed.
func fallbackFormat(pf *pflag.FlagSet) output.Format {
	quiet, _ := pf.GetBool("quiet")
	idsOnly, _ := pf.GetBool("ids-only")
	count, _ := pf.GetBool("count")
	styled, _ := pf.GetBool("styled")
	jsonFlag, _ := pf.GetBool("json")

	switch {
	case quiet:
		return output.FormatQuiet
	case idsOnly:
		return output.FormatIDs
	case count:
		return output.FormatCount
	case styled:
		return output.FormatStyled
	case jsonFlag:
		return output.FormatJSON
	}
	return output.FormatAuto
}

var shorthandFlagRe = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)

// transformCobraError turns Cobra's parse errors into usage errors with
// consistent wording.
func transformCobraError(err error) error {
	msg := err.Error()

	// "flag needs an argument: --FLAG" → "--FLAG requires a value"
	if flag, ok := strings.CutPrefix(msg, "flag needs an argument: "); ok {
		return output.ErrUsage(flag + " requires a value")
	}

	// "unknown flag: --FLAG" → "Unknown option: --FLAG"
	if flag, ok := strings.CutPrefix(msg, "unknown flag: "); ok {
		return output.ErrUsage("Unknown option: " + flag)
	}

	// "unknown shorthand flag: 'X' in -X" → "Unknown option: -X"
	if matches := shorthandFlagRe.FindStringSubmatch(msg); len(matches) > 1 {
		return output.ErrUsage("Unknown option: " + matches[1])
	}

	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(msg, "Run 'loadable commands' to list commands")
	}

	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}

	// "unknown command" for leaf commands shows up as an arg count error
	if strings.Contains(msg, "accepts 0 arg(s)") {
		return output.ErrUsage("Unexpected arguments")
	}

	if strings.Contains(msg, "arg(s), received") {
		return output.ErrUsage(msg)
	}

	return err
}
