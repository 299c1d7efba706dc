// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/provider"
	"github.com/jeranaias/procubot-tui/internal/util"
)

// Provider names.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete procubot configuration.
type Config struct {
	// Provider selects and tunes the chat backend
	Provider ProviderConfig `toml:"provider" json:"provider" yaml:"provider"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui" yaml:"ui"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Metrics configuration
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// ProviderConfig contains chat provider configuration.
type ProviderConfig struct {
	// Name is the backend: "gemini" or "openrouter"
	Name string `toml:"name" json:"name" yaml:"name"`
	// Model is the model identifier; empty uses the provider default
	Model string `toml:"model" json:"model" yaml:"model"`
	// Temperature is sent only when set (0.0-2.0)
	Temperature *float64 `toml:"temperature,omitempty" json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// Search enables web-search grounding and source citations
	Search bool `toml:"search" json:"search" yaml:"search"`
	// BaseURL overrides the provider endpoint
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url"`
	// APIKey is the last-resort credential; environment variables win
	APIKey string `toml:"api_key" json:"api_key" yaml:"api_key"`
	// SystemPrompt replaces the built-in ProcuBot instruction when set
	SystemPrompt string `toml:"system_prompt" json:"system_prompt" yaml:"system_prompt"`
	// RequestTimeout is the overall ceiling per turn (0 disables)
	RequestTimeout Duration `toml:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
	// IdleTimeout fails a turn when no fragment arrives in time (0 disables)
	IdleTimeout Duration `toml:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout"`
	// MaxRetries bounds connection retries before streaming starts
	MaxRetries int `toml:"max_retries" json:"max_retries" yaml:"max_retries"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Language is "en" or "zh-TW"
	Language string `toml:"language" json:"language" yaml:"language"`
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme" yaml:"theme"`
	// CodeTheme is the chroma style for code blocks
	CodeTheme string `toml:"code_theme" json:"code_theme" yaml:"code_theme"`
	// WordWrap is the markdown wrap width (0 follows the terminal)
	WordWrap int `toml:"word_wrap" json:"word_wrap" yaml:"word_wrap"`
	// AltScreen runs the TUI in the alternate screen buffer
	AltScreen bool `toml:"alt_screen" json:"alt_screen" yaml:"alt_screen"`
	// Mouse enables mouse wheel scrolling
	Mouse bool `toml:"mouse" json:"mouse" yaml:"mouse"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level" json:"level" yaml:"level"`
	// File is the log file; empty uses ~/.procubot/procubot.log
	File string `toml:"file" json:"file" yaml:"file"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Textfile is written on exit in node_exporter textfile format when set
	Textfile string `toml:"textfile" json:"textfile" yaml:"textfile"`
}

// Duration is a time.Duration that reads and writes as "90s" or "5m".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Bare integers are seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if n, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:           ProviderGemini,
			Model:          "gemini-3-pro-preview",
			Search:         false,
			RequestTimeout: Duration(5 * time.Minute),
			IdleTimeout:    Duration(90 * time.Second),
		},
		UI: UIConfig{
			Language:  "en",
			Theme:     "auto",
			CodeTheme: "dracula",
			AltScreen: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the procubot configuration directory path.
// PROCUBOT_HOME overrides the default ~/.procubot.
func ConfigDir() (string, error) {
	if dir := os.Getenv("PROCUBOT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".procubot"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LogPath returns the log file path: logging.file or the default.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	dir, err := ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "procubot.log")
	}
	return filepath.Join(dir, "procubot.log")
}

// ActivePath returns the config file Load would read, or the TOML path when
// none exists yet.
func ActivePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	yamlPath, err := ConfigPathYAML()
	if err != nil {
		return "", err
	}
	for _, p := range []string{yamlPath, strings.TrimSuffix(yamlPath, ".yaml") + ".yml"} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return tomlPath, nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files may hold an API key and should be 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config directory.
// Order: .env files, then config.toml or config.yaml, then defaults, then
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	path, err := ActivePath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format follows the extension; anything else is TOML.
func LoadFromPath(path string) (*Config, error) {
	loadDotEnv(filepath.Dir(path))

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads path over the defaults, without .env files or environment
// overrides and without validation. Edits that are written back start here.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if err := decodeFile(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

// SaveTo writes cfg to path in the format its extension names.
func SaveTo(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SaveYAML(cfg, path)
	default:
		return SaveTOML(cfg, path)
	}
}

// decodeFile decodes path into cfg by extension.
func decodeFile(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read YAML file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode YAML file %s: %w", path, err)
		}
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read JSON file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode JSON file %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
	}
	return nil
}

// loadDotEnv loads .env from the working directory and the config directory.
// Existing environment variables are never overwritten.
func loadDotEnv(configDir string) {
	for _, p := range []string{".env", filepath.Join(configDir, ".env")} {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", p, err)
			}
		}
	}
}

// SetDefaults fills empty values that have no meaningful zero.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Provider.Name == "" {
		c.Provider.Name = defaults.Provider.Name
	}
	c.Provider.Name = strings.ToLower(c.Provider.Name)
	if c.UI.Language == "" {
		c.UI.Language = defaults.UI.Language
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.CodeTheme == "" {
		c.UI.CodeTheme = defaults.UI.CodeTheme
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Written with 0600 permissions.
// RELIABILITY: Atomic write with fsync prevents a half-written config.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# procubot configuration file\n")
	buf.WriteString("# API keys are read from PROCUBOT_API_KEY or API_KEY before api_key below.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, []byte(buf.String()), 0o600, 0o700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveYAML saves the configuration to a YAML file.
func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0o600, 0o700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Provider
	switch c.Provider.Name {
	case ProviderGemini, ProviderOpenRouter:
	default:
		add("provider.name", "invalid provider '%s', must be one of: gemini, openrouter", c.Provider.Name)
	}
	if t := c.Provider.Temperature; t != nil && (*t < 0 || *t > 2) {
		add("provider.temperature", "must be between 0.0 and 2.0, got %g", *t)
	}
	if c.Provider.BaseURL != "" {
		u, err := url.Parse(c.Provider.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("provider.base_url", "must be an http(s) URL, got '%s'", c.Provider.BaseURL)
		}
	}
	if c.Provider.RequestTimeout < 0 {
		add("provider.request_timeout", "must not be negative")
	}
	if c.Provider.IdleTimeout < 0 {
		add("provider.idle_timeout", "must not be negative")
	}
	if c.Provider.MaxRetries < 0 || c.Provider.MaxRetries > 10 {
		add("provider.max_retries", "must be between 0 and 10, got %d", c.Provider.MaxRetries)
	}

	// UI
	switch strings.ReplaceAll(strings.ToLower(c.UI.Language), "_", "-") {
	case "en", "zh-tw", "zh-hant", "zh-hant-tw":
	default:
		add("ui.language", "invalid language '%s', must be one of: en, zh-TW", c.UI.Language)
	}
	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}
	if _, ok := styles.Registry[c.UI.CodeTheme]; !ok {
		add("ui.code_theme", "unknown chroma style '%s'", c.UI.CodeTheme)
	}
	if c.UI.WordWrap < 0 {
		add("ui.word_wrap", "must not be negative")
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PROCUBOT_PROVIDER: overrides provider.name
//   - PROCUBOT_MODEL: overrides provider.model
//   - PROCUBOT_LANGUAGE: overrides ui.language
//   - PROCUBOT_SEARCH: "1" or "true" enables search grounding
//   - PROCUBOT_LOG_LEVEL: overrides logging.level
//
// API keys are not copied into the config; see ResolveAPIKey.
func (c *Config) ApplyEnvOverrides() {
	if name := os.Getenv("PROCUBOT_PROVIDER"); name != "" {
		c.Provider.Name = strings.ToLower(name)
	}
	if model := os.Getenv("PROCUBOT_MODEL"); model != "" {
		c.Provider.Model = model
	}
	if lang := os.Getenv("PROCUBOT_LANGUAGE"); lang != "" {
		c.UI.Language = lang
	}
	if search := os.Getenv("PROCUBOT_SEARCH"); search != "" {
		c.Provider.Search = parseBool(search)
	}
	if level := os.Getenv("PROCUBOT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// ResolveAPIKey returns the credential for the configured provider. It reads
// the environment at call time so a fixed environment takes effect on the
// next session. Order: PROCUBOT_API_KEY, API_KEY, the provider-specific
// variable, then provider.api_key.
func (c *Config) ResolveAPIKey() string {
	names := []string{"PROCUBOT_API_KEY", "API_KEY"}
	switch c.Provider.Name {
	case ProviderOpenRouter:
		names = append(names, "OPENROUTER_API_KEY")
	default:
		names = append(names, "GEMINI_API_KEY")
	}
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(c.Provider.APIKey)
}

// ProviderConfig builds the session config handed to the provider factory.
func (c *Config) ProviderConfig() provider.Config {
	prompt := c.Provider.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultSystemPrompt
	}
	var temp *float64
	if c.Provider.Temperature != nil {
		t := *c.Provider.Temperature
		temp = &t
	}
	return provider.Config{
		Model:        c.Provider.Model,
		SystemPrompt: prompt,
		Temperature:  temp,
		Search:       c.Provider.Search,
		APIKey:       c.ResolveAPIKey(),
		BaseURL:      c.Provider.BaseURL,
		MaxRetries:   c.Provider.MaxRetries,
	}
}

// Language returns the configured UI language tag.
func (c *Config) Language() string {
	return i18n.Code(i18n.Parse(c.UI.Language))
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "provider.model").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return nil, nil
		}
		return field.Elem().Interface(), nil
	}
	return field.Interface(), nil
}

// Set sets a configuration value from its string form using dot notation.
// The result is validated; on failure the config is left unchanged.
func (c *Config) Set(key, value string) error {
	next := c.Clone()
	field, err := next.lookup(key)
	if err != nil {
		return err
	}
	if err := setFieldValue(field, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	next.SetDefaults()
	if err := next.Validate(); err != nil {
		return err
	}
	*c = *next
	return nil
}

// lookup resolves a dot-notation key against the toml tags.
func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(key)), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return reflect.Value{}, fmt.Errorf("invalid key %q, expected section.name", key)
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag name is name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from its string form.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeOf(Duration(0)) {
		var d Duration
		if err := d.UnmarshalText([]byte(value)); err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		field.SetBool(parseBool(value))
	case reflect.Pointer:
		if value == "" {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %w", err)
		}
		field.Set(reflect.ValueOf(&f))
	default:
		return fmt.Errorf("cannot set %s", field.Type())
	}
	return nil
}

// Keys returns all configuration keys in dot notation.
func Keys() []string {
	var keys []string
	root := reflect.TypeOf(Config{})
	for i := 0; i < root.NumField(); i++ {
		section := root.Field(i)
		prefix := section.Tag.Get("toml")
		for j := 0; j < section.Type.NumField(); j++ {
			name := strings.Split(section.Type.Field(j).Tag.Get("toml"), ",")[0]
			keys = append(keys, prefix+"."+name)
		}
	}
	return keys
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Provider.Temperature != nil {
		t := *c.Provider.Temperature
		clone.Provider.Temperature = &t
	}
	return &clone
}

// String returns a TOML rendering of the config for display.
// SECURITY: The API key is redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = "[REDACTED]"
	}
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.ApplyEnvOverrides()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
// On error the previous configuration stays in place.
func ReloadGlobal() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	SetGlobal(cfg)
	return cfg, nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
