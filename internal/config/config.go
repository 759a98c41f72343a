// internal/config/config.go
//
// This package handles editor settings and the resource directory.
// Every user gets a ~/.teal/ folder holding GUI settings, logs, local copies
// of value files that could not be written in place, and optional schemas.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is used for the resource directory and settings file names.
	AppName = "teal"

	// HomeEnvVar overrides the resource directory location.
	HomeEnvVar = "TEAL_HOME"

	settingsFile = AppName + ".yaml"
	envPrefix    = "TEAL"
)

const defaultSettingsYAML = `# Automatically generated by teal.  All edits will eventually be overwritten.
# To use terminal default colors, set each color to an empty string.
save_and_close_on_exec: true
show_help_in_browser: false
frame_color: "#008888"
task_box_color: "#ccccff"
entries_color: "#ccccff"
`

// Settings models ~/.teal/teal.yaml. Only presentation preferences live
// here; nothing task related.
type Settings struct {
	SaveAndCloseOnExec bool   `mapstructure:"save_and_close_on_exec" yaml:"save_and_close_on_exec"`
	ShowHelpInBrowser  bool   `mapstructure:"show_help_in_browser" yaml:"show_help_in_browser"`
	FrameColor         string `mapstructure:"frame_color" yaml:"frame_color"`
	TaskBoxColor       string `mapstructure:"task_box_color" yaml:"task_box_color"`
	EntriesColor       string `mapstructure:"entries_color" yaml:"entries_color"`
}

// Config holds the runtime configuration for the editor.
type Config struct {
	// ResourceDir is ~/.teal unless TEAL_HOME says otherwise
	ResourceDir string

	Settings Settings
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		SaveAndCloseOnExec: true,
		FrameColor:         "#008888",
		TaskBoxColor:       "#ccccff",
		EntriesColor:       "#ccccff",
	}
}

// ResolveResourceDir returns the resource directory without creating it.
func ResolveResourceDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(HomeEnvVar)); dir != "" {
		return filepath.Clean(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	return filepath.Join(home, "."+AppName), nil
}

// InitResourceDir creates the resource directory structure.
//
// Structure created:
// ~/.teal/
// ├── logs/       <- teal.log
// ├── schemas/    <- optional task schemas (*.spec.yaml)
// └── teal.yaml   <- settings
func InitResourceDir(dir string) error {
	dirs := []string{
		filepath.Join(dir, "logs"),
		filepath.Join(dir, "schemas"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", d, err)
		}
	}
	return ensureSettingsFile(filepath.Join(dir, settingsFile))
}

// NewConfig initializes the resource directory and loads settings from it.
func NewConfig() (*Config, error) {
	dir, err := ResolveResourceDir()
	if err != nil {
		return nil, err
	}
	if err := InitResourceDir(dir); err != nil {
		return nil, err
	}
	cfg := &Config{ResourceDir: dir, Settings: DefaultSettings()}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogPath returns the editor log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.ResourceDir, "logs", AppName+".log")
}

// SchemasDir returns the directory searched for schemas after the value
// file's own directory.
func (c *Config) SchemasDir() string {
	return filepath.Join(c.ResourceDir, "schemas")
}

// SettingsPath returns the on-disk location for the settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.ResourceDir, settingsFile)
}

// loadSettings reads teal.yaml through viper so TEAL_* environment variables
// override file values.
func (c *Config) loadSettings() error {
	v := viper.New()
	v.SetConfigFile(c.SettingsPath())
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	defaults := DefaultSettings()
	v.SetDefault("save_and_close_on_exec", defaults.SaveAndCloseOnExec)
	v.SetDefault("show_help_in_browser", defaults.ShowHelpInBrowser)
	v.SetDefault("frame_color", defaults.FrameColor)
	v.SetDefault("task_box_color", defaults.TaskBoxColor)
	v.SetDefault("entries_color", defaults.EntriesColor)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: read %s: %w", c.SettingsPath(), err)
		}
	}
	var parsed Settings
	if err := v.Unmarshal(&parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", c.SettingsPath(), err)
	}
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Settings = parsed
	return nil
}

// Save writes the current settings back to teal.yaml.
func (c *Config) Save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Settings.normalize()
	if err := c.Settings.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.ResourceDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure resource dir: %w", err)
	}
	data, err := yaml.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("config: encode settings: %w", err)
	}
	header := "# Automatically generated by " + AppName + ".  All edits will eventually be overwritten.\n"
	if err := os.WriteFile(c.SettingsPath(), append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("config: write settings: %w", err)
	}
	return nil
}

func (s *Settings) normalize() {
	s.FrameColor = strings.TrimSpace(s.FrameColor)
	s.TaskBoxColor = strings.TrimSpace(s.TaskBoxColor)
	s.EntriesColor = strings.TrimSpace(s.EntriesColor)
}

func (s Settings) validate() error {
	colors := map[string]string{
		"frame_color":    s.FrameColor,
		"task_box_color": s.TaskBoxColor,
		"entries_color":  s.EntriesColor,
	}
	for key, value := range colors {
		if value != "" && !isHexColor(value) {
			return fmt.Errorf("%s must be empty or #rrggbb/#rgb, got %q", key, value)
		}
	}
	return nil
}

func isHexColor(value string) bool {
	if !strings.HasPrefix(value, "#") {
		return false
	}
	digits := value[1:]
	if len(digits) != 3 && len(digits) != 6 {
		return false
	}
	for _, r := range strings.ToLower(digits) {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func ensureSettingsFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultSettingsYAML), 0o644)
}
