// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigrun-chat/internal/provider"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigrun-chat configuration.
type Config struct {
	// Provider connection (endpoint, key, selected model, effort)
	Provider provider.Settings `toml:"provider" yaml:"provider" json:"provider"`

	// Chat behavior
	Chat ChatConfig `toml:"chat" yaml:"chat" json:"chat"`

	// Session persistence
	Storage StorageConfig `toml:"storage" yaml:"storage" json:"storage"`

	// HTTP API and same-origin proxy
	Server ServerConfig `toml:"server" yaml:"server" json:"server"`

	// Logging output
	Logging LoggingConfig `toml:"logging" yaml:"logging" json:"logging"`
}

// ChatConfig contains conversation settings.
type ChatConfig struct {
	// SystemPrompt is prepended to every request when non-empty.
	SystemPrompt string `toml:"system_prompt" yaml:"system_prompt" json:"systemPrompt"`

	// RequestTimeoutSecs bounds one provider exchange. 0 disables the
	// client-side timeout.
	RequestTimeoutSecs int `toml:"request_timeout_secs" yaml:"request_timeout_secs" json:"requestTimeoutSecs"`
}

// StorageConfig selects the session store.
type StorageConfig struct {
	// Backend is "sqlite", "file" or "memory".
	Backend string `toml:"backend" yaml:"backend" json:"backend"`

	// Path is the database file (sqlite) or directory (file).
	Path string `toml:"path" yaml:"path" json:"path"`
}

// ServerConfig contains HTTP API and proxy settings.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr" json:"addr"`

	// Upstreams for the same-origin proxy paths.
	GPT4AllURL string `toml:"gpt4all_url" yaml:"gpt4all_url" json:"gpt4allUrl"`
	OllamaURL  string `toml:"ollama_url" yaml:"ollama_url" json:"ollamaUrl"`

	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins" json:"corsOrigins"`

	// Per-client rate limit. 0 disables limiting.
	RateLimitRPS   float64 `toml:"rate_limit_rps" yaml:"rate_limit_rps" json:"rateLimitRps"`
	RateLimitBurst int     `toml:"rate_limit_burst" yaml:"rate_limit_burst" json:"rateLimitBurst"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`    // debug, info, warn, error
	Format string `toml:"format" yaml:"format" json:"format"` // console or json
	Output string `toml:"output" yaml:"output" json:"output"` // stderr, stdout or a file path
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Provider: provider.Settings{
			Kind:     provider.KindOllama,
			Endpoint: "http://127.0.0.1:11434",
		},

		Chat: ChatConfig{
			SystemPrompt:       "",
			RequestTimeoutSecs: 0, // no client-side timeout
		},

		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "~/.rigrun-chat/sessions.db",
		},

		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			GPT4AllURL:     "http://127.0.0.1:4891",
			OllamaURL:      "http://127.0.0.1:11434",
			CORSOrigins:    []string{"*"},
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// SetDefaults fills zero values with defaults. Fields where zero is a
// meaningful setting (timeouts, rate limits, the system prompt) are left.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Provider.Kind == "" {
		c.Provider.Kind = defaults.Provider.Kind
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Storage.Path == "" && c.Storage.Backend != "memory" {
		switch c.Storage.Backend {
		case "file":
			c.Storage.Path = "~/.rigrun-chat/sessions"
		default:
			c.Storage.Path = defaults.Storage.Path
		}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.GPT4AllURL == "" {
		c.Server.GPT4AllURL = defaults.Server.GPT4AllURL
	}
	if c.Server.OllamaURL == "" {
		c.Server.OllamaURL = defaults.Server.OllamaURL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaults.Logging.Output
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Supported config file names, in load order.
var configFileNames = []string{"config.toml", "config.yaml", "config.yml", "config.json"}

// ConfigDir returns the rigrun-chat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigrun-chat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// FindConfigFile returns the first existing config file in dir, or "".
func FindConfigFile(dir string) string {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files should be 0600 to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the first config file found in ConfigDir.
// It returns the config and the file path it should be saved to (the
// loaded file, or the TOML path when none exists). Environment overrides
// are applied last.
func Load() (*Config, string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, "", err
	}

	if path := FindConfigFile(dir); path != "" {
		cfg, err := LoadFromPath(path)
		return cfg, path, err
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, filepath.Join(dir, "config.toml"), nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format is chosen by extension; anything other than
// .yaml, .yml and .json is read as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if err := ensureSecurePermissions(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		// Permissions might not be fixable on all systems.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := Decode(cfg, path, data); err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Decode parses data into cfg using the format implied by path.
func Decode(cfg *Config, path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode JSON file: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to decode TOML file: %w", err)
		}
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path in the format implied by its extension.
// Files are written atomically with 0600 permissions.
func Save(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		data, err = encodeTOML(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func encodeTOML(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# rigrun-chat configuration file\n")
	buf.WriteString("# Generated by rigrun-chat - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors. A missing
// endpoint or API key is not an error: it is the "not configured yet"
// state.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if !c.Provider.Kind.Valid() {
		errs = append(errs, ValidationError{
			Field:   "provider.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: openai, lmstudio, gpt4all, ollama", c.Provider.Kind),
		})
	}
	if c.Provider.Endpoint != "" {
		if err := validateHTTPURL(c.Provider.Endpoint); err != nil {
			errs = append(errs, ValidationError{Field: "provider.endpoint", Message: err.Error()})
		}
	}
	if c.Provider.ProxyOrigin != "" {
		if err := validateHTTPURL(c.Provider.ProxyOrigin); err != nil {
			errs = append(errs, ValidationError{Field: "provider.proxy_origin", Message: err.Error()})
		}
	}
	if !provider.ValidEffort(c.Provider.ReasoningEffort) {
		errs = append(errs, ValidationError{
			Field:   "provider.reasoning_effort",
			Message: fmt.Sprintf("invalid effort '%s', must be one of: low, medium, high", c.Provider.ReasoningEffort),
		})
	}

	if c.Chat.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "chat.request_timeout_secs", Message: "must not be negative"})
	}

	switch c.Storage.Backend {
	case "sqlite", "file", "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: sqlite, file, memory", c.Storage.Backend),
		})
	}

	for field, raw := range map[string]string{
		"server.gpt4all_url": c.Server.GPT4AllURL,
		"server.ollama_url":  c.Server.OllamaURL,
	} {
		if err := validateHTTPURL(raw); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
		}
	}
	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit_rps", Message: "must not be negative"})
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		errs = append(errs, ValidationError{Field: "server.rate_limit_burst", Message: "must be at least 1 when rate limiting is enabled"})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: console, json", c.Logging.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - RIGRUN_CHAT_PROVIDER: overrides provider.provider
//   - RIGRUN_CHAT_ENDPOINT: overrides provider.endpoint
//   - RIGRUN_CHAT_API_KEY: overrides provider.api_key
//   - RIGRUN_CHAT_MODEL: overrides provider.model
//   - RIGRUN_CHAT_REASONING_EFFORT: overrides provider.reasoning_effort
//   - RIGRUN_CHAT_PROXY_ORIGIN: overrides provider.proxy_origin
//   - RIGRUN_CHAT_SYSTEM_PROMPT: overrides chat.system_prompt
//   - RIGRUN_CHAT_REQUEST_TIMEOUT: overrides chat.request_timeout_secs
//   - RIGRUN_CHAT_STORAGE_BACKEND: overrides storage.backend
//   - RIGRUN_CHAT_STORAGE_PATH: overrides storage.path
//   - RIGRUN_CHAT_ADDR: overrides server.addr
//   - RIGRUN_CHAT_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RIGRUN_CHAT_PROVIDER"); v != "" {
		c.Provider.Kind = provider.Kind(strings.ToLower(v))
	}
	if v := os.Getenv("RIGRUN_CHAT_ENDPOINT"); v != "" {
		c.Provider.Endpoint = v
	}
	if v := os.Getenv("RIGRUN_CHAT_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("RIGRUN_CHAT_MODEL"); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("RIGRUN_CHAT_REASONING_EFFORT"); v != "" {
		c.Provider.ReasoningEffort = strings.ToLower(v)
	}
	if v := os.Getenv("RIGRUN_CHAT_PROXY_ORIGIN"); v != "" {
		c.Provider.ProxyOrigin = v
	}
	if v := os.Getenv("RIGRUN_CHAT_SYSTEM_PROMPT"); v != "" {
		c.Chat.SystemPrompt = v
	}
	if v := os.Getenv("RIGRUN_CHAT_REQUEST_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Chat.RequestTimeoutSecs = secs
		}
	}
	if v := os.Getenv("RIGRUN_CHAT_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("RIGRUN_CHAT_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("RIGRUN_CHAT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("RIGRUN_CHAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation
// (e.g., "provider.endpoint").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation
// (e.g., "chat.request_timeout_secs").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the dotted key, matching each part against the toml tag or
// the Go field name.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByKey(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByKey(v reflect.Value, part string) (reflect.Value, bool) {
	t := v.Type()
	normalized := normalizeFieldName(part)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if tag == part || strings.EqualFold(f.Name, normalized) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(strVal == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(strVal, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"provider.provider",
		"provider.endpoint",
		"provider.api_key",
		"provider.model",
		"provider.reasoning_effort",
		"provider.proxy_origin",
		"chat.system_prompt",
		"chat.request_timeout_secs",
		"storage.backend",
		"storage.path",
		"server.addr",
		"server.gpt4all_url",
		"server.ollama_url",
		"server.cors_origins",
		"server.rate_limit_rps",
		"server.rate_limit_burst",
		"logging.level",
		"logging.format",
		"logging.output",
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.CORSOrigins != nil {
		clone.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	}
	return &clone
}

// RedactedValue replaces secrets in Redacted output.
const RedactedValue = "[REDACTED]"

// Redacted returns a copy with secrets replaced, safe for display.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = RedactedValue
	}
	return safe
}

// String returns a string representation of the config for debugging.
// API keys are redacted.
func (c *Config) String() string {
	data, _ := encodeTOML(c.Redacted())
	return string(data)
}
