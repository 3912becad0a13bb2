// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"

	"github.com/basecamp/loadable/internal/catalog"
	"github.com/basecamp/loadable/internal/config"
	"github.com/basecamp/loadable/internal/logging"
	"github.com/basecamp/loadable/internal/observability"
	"github.com/basecamp/loadable/internal/output"
	"github.com/basecamp/loadable/internal/resilience"
	"github.com/basecamp/loadable/loadable"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Source  *catalog.Source
	Breaker *resilience.CircuitBreaker
	Output  *output.Writer

	// Observability
	Collector *observability.SessionCollector
	Hooks     *observability.CLIHooks
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry

	// Flags holds the global flag values
	Flags GlobalFlags

	Stdout io.Writer
	Stderr io.Writer
}

// GlobalFlags holds values for global CLI flags that are not part of config.
type GlobalFlags struct {
	// Output format flags
	JSON    bool
	Quiet   bool
	Styled  bool
	IDsOnly bool
	Count   bool
	JQ      string

	// Behavior flags
	Verbose int // 0=off, 1=loads, 2=loads+fetches (stacks with -v -v or -vv)
	Stats   bool
	Metrics bool
}

// fetchObservers fans a fetch report out to every observer.
type fetchObservers []catalog.FetchObserver

func (o fetchObservers) OnFetch(m observability.FetchMetrics) {
	for _, obs := range o {
		obs.OnFetch(m)
	}
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: true,
		Output: os.Stderr,
	})

	// Collector always runs to gather stats; hooks control output verbosity.
	collector := observability.NewSessionCollector()
	hooks := observability.NewCLIHooks(cfg.VerboseLevel(), collector, observability.NewTraceWriter())

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		HalfOpenMaxRequests: 1,
		OnStateChange: func(from, to string) {
			logger.Info().Str("from", from).Str("to", to).Msg("catalog circuit changed")
		},
	})

	source := catalog.New(catalog.Options{
		Total:    cfg.Total,
		PageSize: cfg.PageSize,
		Latency:  cfg.Latency,
		FailRate: cfg.FailRate,
		Seed:     uint64(time.Now().UnixNano()), //nolint:gosec // G115: seed only
		Observer: fetchObservers{hooks, metrics},
		Breaker:  breaker,
	})

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Source:    source,
		Breaker:   breaker,
		Collector: collector,
		Hooks:     hooks,
		Metrics:   metrics,
		Registry:  registry,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
	app.Output = output.New(output.Options{
		Format: app.configFormat(),
		Writer: app.Stdout,
	})
	return app
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	// Order matters: specific modes first
	format := a.configFormat()
	switch {
	case a.Flags.IDsOnly:
		format = output.FormatIDs
	case a.Flags.Count:
		format = output.FormatCount
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.Styled:
		format = output.FormatStyled
	}
	a.Output = output.New(output.Options{
		Format: format,
		Writer: a.Stdout,
		JQ:     a.Flags.JQ,
	})

	// Determine verbosity level: config (which carries an explicit -v), then LOADABLE_DEBUG
	verboseLevel := a.Flags.Verbose
	if a.Config.Verbose != nil {
		verboseLevel = *a.Config.Verbose
	}
	if debugEnv := os.Getenv("LOADABLE_DEBUG"); debugEnv != "" {
		// LOADABLE_DEBUG can be "1", "2", or "true" (treated as 2)
		if level, err := strconv.Atoi(debugEnv); err == nil {
			verboseLevel = max(verboseLevel, level)
		} else if debugEnv == "true" {
			verboseLevel = 2
		}
	}
	a.Hooks.SetLevel(verboseLevel)

	// -vv also turns on debug logging unless a level was chosen explicitly
	if verboseLevel >= 2 && a.Config.Sources["log_level"] == "" {
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}

	if a.Config.Stats != nil {
		a.Flags.Stats = *a.Config.Stats
	}
}

func (a *App) configFormat() output.Format {
	switch a.Config.Format {
	case "json":
		return output.FormatJSON
	case "styled":
		return output.FormatStyled
	case "quiet":
		return output.FormatQuiet
	}
	return output.FormatAuto
}

// LoadOptions returns the options every loadable slot is built with.
func (a *App) LoadOptions() []loadable.Option {
	return []loadable.Option{
		loadable.WithHooks(loadable.MultiHooks{a.Hooks, a.Metrics}),
		loadable.WithLogger(a.Logger),
	}
}

// OK outputs a success response, automatically including stats if --stats flag is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		opts = append(opts, output.WithStats(a.Collector.Summary()))
	}
	if err := a.Output.OK(data, opts...); err != nil {
		return err
	}
	return a.writeMetrics()
}

// Err outputs an error response, printing stats to stderr if --stats flag is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}

	// Machine-consumable modes keep stderr clean
	if a.Flags.Stats && a.Collector != nil && !a.isMachineOutput() {
		a.printStatsToStderr(a.Collector.Summary())
	}
	return a.writeMetrics()
}

// isMachineOutput returns true if the output mode is intended for programmatic consumption.
func (a *App) isMachineOutput() bool {
	if a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count || a.Flags.JQ != "" {
		return true
	}
	return a.Config != nil && a.Config.Format == "quiet"
}

// printStatsToStderr outputs a compact stats line to stderr.
func (a *App) printStatsToStderr(stats observability.SessionMetrics) {
	parts := stats.FormatParts()
	if len(parts) > 0 {
		fmt.Fprintf(a.Stderr, "\nStats: %s\n", strings.Join(parts, " | "))
	}
}

// writeMetrics dumps the Prometheus registry to stderr when --metrics is set.
func (a *App) writeMetrics() error {
	if !a.Flags.Metrics || a.Registry == nil {
		return nil
	}
	families, err := a.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(a.Stderr, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

// IsInteractive returns true if the terminal supports interactive TUI.
func (a *App) IsInteractive() bool {
	if a.Flags.JSON || a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count || a.Flags.JQ != "" {
		return false
	}

	f, ok := a.Stdout.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(f.Fd())
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
