package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// ResolveTheme loads a theme with the following precedence:
//  1. NO_COLOR env var set → returns NoColorTheme
//  2. LOADABLE_THEME env var → parse that theme file
//  3. User theme from ~/.config/loadable/theme.yaml
//  4. Default theme
func ResolveTheme() Theme {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return NoColorTheme()
	}

	if path := os.Getenv("LOADABLE_THEME"); path != "" {
		if theme, err := LoadThemeFromFile(path); err == nil {
			return theme
		}
		// Fall through on error
	}

	if theme, err := LoadUserTheme(); err == nil {
		return theme
	}

	return DefaultTheme()
}

// NoColorTheme returns a theme with empty colors (honors NO_COLOR standard).
// Lipgloss treats empty strings as "no color", resulting in plain text output.
func NoColorTheme() Theme {
	empty := lipgloss.AdaptiveColor{Light: "", Dark: ""}
	return Theme{
		Primary:    empty,
		Secondary:  empty,
		Success:    empty,
		Warning:    empty,
		Error:      empty,
		Muted:      empty,
		Background: empty,
		Foreground: empty,
		Border:     empty,
	}
}

// LoadUserTheme attempts to load a theme from the user's config directory.
func LoadUserTheme() (Theme, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Theme{}, err
		}
		configDir = filepath.Join(home, ".config")
	}
	return LoadThemeFromFile(filepath.Join(configDir, "loadable", "theme.yaml"))
}

// LoadThemeFromFile parses a YAML color map and returns a Theme.
// Invalid colors are skipped.
func LoadThemeFromFile(path string) (Theme, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path from trusted config
	if err != nil {
		return Theme{}, err
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Theme{}, fmt.Errorf("parsing theme %s: %w", path, err)
	}

	colors := make(map[string]string, len(raw))
	for k, v := range raw {
		if isValidHexColor(v) {
			colors[strings.ToLower(k)] = v
		}
	}
	return mapColorsToTheme(colors), nil
}

// isValidHexColor checks if a string is a valid hex color (#RGB or #RRGGBB).
func isValidHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	for _, c := range hex {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		isUpper := c >= 'A' && c <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}

// mapColorsToTheme maps terminal color names to Theme semantics.
//
//	accent, color4 → Primary
//	foreground     → Foreground
//	background     → Background
//	color1         → Error
//	color2         → Success
//	color3         → Warning
//	color7         → Secondary
//	color8, color0 → Muted, Border
func mapColorsToTheme(colors map[string]string) Theme {
	defaults := DefaultTheme()

	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := colors[k]; ok {
				return v
			}
		}
		return ""
	}
	dark := func(fallback lipgloss.AdaptiveColor, keys ...string) lipgloss.AdaptiveColor {
		return lipgloss.AdaptiveColor{Light: fallback.Light, Dark: getOrDefault(get(keys...), fallback.Dark)}
	}

	// Terminal themes are typically dark, so we populate Dark variants
	return Theme{
		Primary:    dark(defaults.Primary, "accent", "color4"),
		Secondary:  dark(defaults.Secondary, "color7"),
		Success:    dark(defaults.Success, "color2"),
		Warning:    dark(defaults.Warning, "color3"),
		Error:      dark(defaults.Error, "color1"),
		Muted:      dark(defaults.Muted, "color8", "color0"),
		Background: dark(defaults.Background, "background"),
		Foreground: dark(defaults.Foreground, "foreground"),
		Border:     dark(defaults.Border, "color8", "color0"),
	}
}

// getOrDefault returns value if non-empty, otherwise returns defaultValue.
func getOrDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}
