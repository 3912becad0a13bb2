package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/basecamp/loadable/internal/config"
	"github.com/basecamp/loadable/internal/logging"
	"github.com/basecamp/loadable/internal/output"
)

// configKeys lists every key config set accepts, in display order.
var configKeys = []string{
	"log_level",
	"format",
	"stats",
	"verbose",
	"latency",
	"page_size",
	"total",
	"fail_rate",
}

// NewConfigCmd creates the config command for managing configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage loadable configuration.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > .env > --config file > local > global > defaults

Config locations:
  - Global: ~/.config/loadable/config.yaml
  - Local:  ./.loadable.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Display the current effective configuration with source information.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	app, err := requireApp(cmd)
	if err != nil {
		return err
	}
	cfg := app.Config

	values := map[string]string{
		"log_level": cfg.LogLevel,
		"format":    cfg.Format,
		"stats":     strconv.FormatBool(cfg.StatsEnabled()),
		"verbose":   strconv.Itoa(cfg.VerboseLevel()),
		"latency":   cfg.Latency.String(),
		"page_size": strconv.Itoa(cfg.PageSize),
		"total":     strconv.Itoa(cfg.Total),
		"fail_rate": strconv.FormatFloat(cfg.FailRate, 'g', -1, 64),
	}

	configData := make(map[string]any, len(values))
	for _, key := range configKeys {
		source := cfg.Sources[key]
		if source == "" {
			source = string(config.SourceDefault)
		}
		configData[key] = map[string]string{
			"value":  values[key],
			"source": source,
		}
	}

	return app.OK(configData,
		output.WithSummary("Effective configuration"),
		output.WithBreadcrumbs(
			output.Breadcrumb{
				Action:      "set",
				Cmd:         "loadable config set <key> <value>",
				Description: "Set config value",
			},
		),
	)
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize local config file",
		Long:  "Create a local " + config.LocalConfigName + " file in the current directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			configFile := config.LocalConfigName
			if _, err := os.Stat(configFile); err == nil {
				return app.OK(map[string]any{
					"exists": true,
					"path":   configFile,
				}, output.WithSummary(fmt.Sprintf("Config file already exists: %s", configFile)))
			}

			if err := atomicWriteFile(configFile, []byte("{}\n")); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}

			return app.OK(map[string]any{
				"created": true,
				"path":    configFile,
			},
				output.WithSummary(fmt.Sprintf("Created: %s", configFile)),
				output.WithBreadcrumbs(
					output.Breadcrumb{
						Action:      "set",
						Cmd:         "loadable config set page_size 10",
						Description: "Set page size",
					},
				),
			)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the local or global config file.

Valid keys: ` + strings.Join(configKeys, ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			key, value := args[0], args[1]
			if !slices.Contains(configKeys, key) {
				return output.ErrUsage(fmt.Sprintf("Invalid config key %q. Valid keys: %s", key, strings.Join(configKeys, ", ")))
			}

			parsed, err := parseConfigValue(key, value)
			if err != nil {
				return err
			}

			scope, configPath := configTarget(global)
			if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}

			configData := readConfigFile(configPath)
			configData[key] = parsed
			if err := writeConfigFile(configPath, configData); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"key":    key,
				"value":  fmt.Sprint(parsed),
				"scope":  scope,
				"path":   configPath,
				"status": "set",
			},
				output.WithSummary(fmt.Sprintf("Set %s = %s (%s)", key, value, scope)),
				output.WithBreadcrumbs(
					output.Breadcrumb{
						Action:      "show",
						Cmd:         "loadable config show",
						Description: "View config",
					},
				),
			)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Set in global config (~/.config/loadable/)")

	return cmd
}

// parseConfigValue validates value for key and converts it to the type
// written to the config file.
func parseConfigValue(key, value string) (any, error) {
	switch key {
	case "stats":
		b, ok := parseBoolFlag(value)
		if !ok {
			return nil, output.ErrUsage("stats must be true/false (or 1/0)")
		}
		return b, nil
	case "verbose":
		level, err := strconv.Atoi(value)
		if err != nil || level < 0 || level > 2 {
			return nil, output.ErrUsage("verbose must be 0, 1, or 2")
		}
		return level, nil
	case "log_level":
		if !logging.ValidLevel(logging.LogLevel(value)) {
			return nil, output.ErrUsage("log_level must be one of: trace, debug, info, warn, error")
		}
		return value, nil
	case "format":
		switch value {
		case "auto", "json", "styled", "quiet":
			return value, nil
		}
		return nil, output.ErrUsage("format must be one of: auto, json, styled, quiet")
	case "latency":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return nil, output.ErrUsageHint(fmt.Sprintf("invalid latency %q", value), "Use a duration such as 250ms or 1s")
		}
		return d.String(), nil
	case "page_size", "total":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || (key == "page_size" && n == 0) {
			return nil, output.ErrUsage(fmt.Sprintf("%s must be a positive number", key))
		}
		return n, nil
	case "fail_rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return nil, output.ErrUsage("fail_rate must be between 0 and 1")
		}
		return f, nil
	}
	return value, nil
}

func parseBoolFlag(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

func newConfigUnsetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value from the local or global config file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			key := args[0]
			scope, configPath := configTarget(global)

			if _, err := os.Stat(configPath); err != nil {
				return app.OK(map[string]any{
					"key":    key,
					"status": "not_found",
				}, output.WithSummary(fmt.Sprintf("Config file not found: %s", configPath)))
			}

			configData := readConfigFile(configPath)
			if _, exists := configData[key]; !exists {
				return app.OK(map[string]any{
					"key":    key,
					"status": "not_set",
				}, output.WithSummary(fmt.Sprintf("Key not set: %s", key)))
			}

			delete(configData, key)
			if err := writeConfigFile(configPath, configData); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"key":    key,
				"scope":  scope,
				"status": "unset",
			},
				output.WithSummary(fmt.Sprintf("Unset %s (%s)", key, scope)),
				output.WithBreadcrumbs(
					output.Breadcrumb{
						Action:      "show",
						Cmd:         "loadable config show",
						Description: "View config",
					},
				),
			)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Unset from global config")

	return cmd
}

func configTarget(global bool) (scope, path string) {
	if global {
		return "global", filepath.Join(config.GlobalConfigDir(), "config.yaml")
	}
	return "local", config.LocalConfigName
}

// readConfigFile returns the file's keys, or an empty map when the file is
// missing or malformed.
func readConfigFile(path string) map[string]any {
	configData := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil { //nolint:gosec // G304: Path is from trusted config location
		_ = yaml.Unmarshal(data, &configData) // Ignore error - start fresh if invalid
	}
	if configData == nil {
		configData = make(map[string]any)
	}
	return configData
}

func writeConfigFile(path string, configData map[string]any) error {
	data, err := yaml.Marshal(configData)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomicWriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// atomicWriteFile writes data to a file atomically using temp+rename.
// Files are always created with 0600 permissions (owner read/write only).
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	// Windows: rename fails when the destination exists.
	if err := os.Rename(tmpPath, path); err != nil && runtime.GOOS == "windows" {
		_ = os.Remove(path)
		return os.Rename(tmpPath, path)
	} else { //nolint:revive // two-branch pattern
		return err
	}
}
