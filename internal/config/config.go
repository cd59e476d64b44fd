// Package config loads and saves the debate engine's configuration:
// vendor credentials, routing policy, and debate defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/mihaisavezi/mutual-dissent/internal/vendor"
)

const (
	DefaultConfigFilename = "config.json"
	DefaultYAMLFilename   = "config.yaml"
	DefaultPanelSize      = 4
	DefaultRounds         = 1
	MaxRounds             = 3
	DefaultSynthesizer    = "claude"
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 8787
)

// DefaultPanel is the standard four-model panel used when no config file
// names one.
var DefaultPanel = []string{"claude", "gpt", "gemini", "grok"}

// envVarForVendor names the environment variable that supplies a
// vendor's API key when the config file omits one.
var envVarForVendor = map[vendor.Vendor]string{
	vendor.Anthropic:  "ANTHROPIC_API_KEY",
	vendor.OpenAI:     "OPENAI_API_KEY",
	vendor.Google:     "GOOGLE_API_KEY",
	vendor.XAI:        "XAI_API_KEY",
	vendor.Groq:       "GROQ_API_KEY",
	vendor.Aggregator: "OPENROUTER_API_KEY",
	vendor.Local:      "OLLAMA_HOST",
}

// VendorConfig carries one vendor's credential and optional endpoint
// override.
type VendorConfig struct {
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// RoutingConfig is the three-mode vendor routing policy: a global default
// plus per-alias overrides.
type RoutingConfig struct {
	Mode      vendor.Mode            `json:"mode,omitempty" yaml:"mode,omitempty"`
	Overrides map[string]vendor.Mode `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// Config is the full on-disk configuration.
type Config struct {
	Host               string                         `json:"host,omitempty" yaml:"host,omitempty"`
	Port               int                            `json:"port,omitempty" yaml:"port,omitempty"`
	APIKey             string                         `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	TranscriptDir      string                         `json:"transcript_dir,omitempty" yaml:"transcript_dir,omitempty"`
	Vendors            map[vendor.Vendor]VendorConfig `json:"vendors,omitempty" yaml:"vendors,omitempty"`
	Routing            RoutingConfig                  `json:"routing,omitempty" yaml:"routing,omitempty"`
	DefaultPanel       []string                       `json:"default_panel,omitempty" yaml:"default_panel,omitempty"`
	DefaultSynthesizer string                         `json:"default_synthesizer,omitempty" yaml:"default_synthesizer,omitempty"`
	DefaultRounds      int                            `json:"default_rounds,omitempty" yaml:"default_rounds,omitempty"`
}

// Manager loads, caches, and saves the configuration, matching the
// dual-format (YAML preferred, JSON accepted) on-disk layout.
type Manager struct {
	baseDir     string
	jsonPath    string
	yamlPath    string
	configValue atomic.Value
}

// NewManager returns a Manager rooted at baseDir.
func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir:  baseDir,
		jsonPath: filepath.Join(baseDir, DefaultConfigFilename),
		yamlPath: filepath.Join(baseDir, DefaultYAMLFilename),
	}
}

// minimalConfig builds a configuration purely from environment variables,
// used when no config file exists but at least one vendor credential is
// set in the environment.
func (m *Manager) minimalConfig() Config {
	vendors := make(map[vendor.Vendor]VendorConfig)

	for v, envVar := range envVarForVendor {
		if key := os.Getenv(envVar); key != "" {
			vendors[v] = VendorConfig{APIKey: key}
		}
	}

	return Config{
		Vendors:            vendors,
		Routing:            RoutingConfig{Mode: vendor.ModeAuto},
		DefaultPanel:       DefaultPanel,
		DefaultSynthesizer: DefaultSynthesizer,
		DefaultRounds:      DefaultRounds,
	}
}

// Load reads the config file (YAML takes precedence over JSON), falling
// back to environment-variable-only configuration when neither file
// exists but at least one vendor env var is set.
func (m *Manager) Load() (*Config, error) {
	var cfg Config

	var err error

	if _, yamlErr := os.Stat(m.yamlPath); yamlErr == nil {
		cfg, err = m.loadYAML()
		if err != nil {
			return nil, fmt.Errorf("load YAML config: %w", err)
		}
	} else if _, jsonErr := os.Stat(m.jsonPath); jsonErr == nil {
		cfg, err = m.loadJSON()
		if err != nil {
			return nil, fmt.Errorf("load JSON config: %w", err)
		}
	} else if hasAnyVendorEnvVar() {
		cfg = m.minimalConfig()
	} else {
		return nil, fmt.Errorf("no configuration file found (looked for %s or %s) and no vendor API key environment variables set", m.yamlPath, m.jsonPath)
	}

	m.applyDefaults(&cfg)
	m.applyEnvOverrides(&cfg)

	m.configValue.Store(&cfg)

	return &cfg, nil
}

func hasAnyVendorEnvVar() bool {
	for _, envVar := range envVarForVendor {
		if os.Getenv(envVar) != "" {
			return true
		}
	}

	return false
}

func (m *Manager) loadYAML() (Config, error) {
	var cfg Config

	data, err := os.ReadFile(m.yamlPath)
	if err != nil {
		return cfg, fmt.Errorf("read YAML config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal YAML config: %w", err)
	}

	return cfg, nil
}

func (m *Manager) loadJSON() (Config, error) {
	var cfg Config

	data, err := os.ReadFile(m.jsonPath)
	if err != nil {
		return cfg, fmt.Errorf("read JSON config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal JSON config: %w", err)
	}

	return cfg, nil
}

func (m *Manager) applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	if cfg.TranscriptDir == "" {
		cfg.TranscriptDir = filepath.Join(m.baseDir, "transcripts")
	}

	if len(cfg.DefaultPanel) == 0 {
		cfg.DefaultPanel = DefaultPanel
	}

	if cfg.DefaultSynthesizer == "" {
		cfg.DefaultSynthesizer = DefaultSynthesizer
	}

	if cfg.DefaultRounds == 0 {
		cfg.DefaultRounds = DefaultRounds
	}

	if cfg.Routing.Mode == "" {
		cfg.Routing.Mode = vendor.ModeAuto
	}

	if cfg.Vendors == nil {
		cfg.Vendors = make(map[vendor.Vendor]VendorConfig)
	}
}

// applyEnvOverrides fills in any vendor credential that's missing from the
// file but present in the environment. File-configured credentials are
// never overwritten.
func (m *Manager) applyEnvOverrides(cfg *Config) {
	for v, envVar := range envVarForVendor {
		if cfg.Vendors[v].APIKey != "" {
			continue
		}

		if key := os.Getenv(envVar); key != "" {
			cfg.Vendors[v] = VendorConfig{APIKey: key, Endpoint: cfg.Vendors[v].Endpoint}
		}
	}
}

// Get returns the cached config, loading it first if necessary. Load
// failures fall back to a bare-defaults config rather than panicking.
func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.Load()
	if err != nil {
		fallback := m.minimalConfig()
		m.applyDefaults(&fallback)

		return &fallback
	}

	return cfg
}

// Save writes cfg as YAML, the preferred format for new configs.
func (m *Manager) Save(cfg *Config) error {
	return m.SaveAsYAML(cfg)
}

func (m *Manager) SaveAsYAML(cfg *Config) error {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal YAML config: %w", err)
	}

	if err := os.WriteFile(m.yamlPath, data, 0o600); err != nil {
		return fmt.Errorf("write YAML config file: %w", err)
	}

	m.configValue.Store(cfg)

	return nil
}

func (m *Manager) SaveAsJSON(cfg *Config) error {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON config: %w", err)
	}

	if err := os.WriteFile(m.jsonPath, data, 0o600); err != nil {
		return fmt.Errorf("write JSON config file: %w", err)
	}

	m.configValue.Store(cfg)

	return nil
}

func (m *Manager) GetPath() string {
	if _, err := os.Stat(m.yamlPath); err == nil {
		return m.yamlPath
	}

	return m.jsonPath
}

func (m *Manager) GetYAMLPath() string { return m.yamlPath }
func (m *Manager) GetJSONPath() string { return m.jsonPath }

func (m *Manager) Exists() bool {
	_, yamlErr := os.Stat(m.yamlPath)
	_, jsonErr := os.Stat(m.jsonPath)

	return yamlErr == nil || jsonErr == nil
}

func (m *Manager) HasYAML() bool {
	_, err := os.Stat(m.yamlPath)

	return err == nil
}

// CreateExampleYAML writes a YAML config with every vendor that takes an
// API key present (placeholder keys, ready to be replaced; the local vendor
// is not listed) and the default panel.
func (m *Manager) CreateExampleYAML() error {
	cfg := &Config{
		TranscriptDir: filepath.Join(m.baseDir, "transcripts"),
		Vendors: map[vendor.Vendor]VendorConfig{
			vendor.Anthropic:  {APIKey: "your-anthropic-api-key"},
			vendor.OpenAI:     {APIKey: "your-openai-api-key"},
			vendor.Google:     {APIKey: "your-google-api-key"},
			vendor.XAI:        {APIKey: "your-xai-api-key"},
			vendor.Groq:       {APIKey: "your-groq-api-key"},
			vendor.Aggregator: {APIKey: "your-openrouter-api-key"},
		},
		Routing:            RoutingConfig{Mode: vendor.ModeAuto},
		DefaultPanel:       DefaultPanel,
		DefaultSynthesizer: DefaultSynthesizer,
		DefaultRounds:      DefaultRounds,
	}

	return m.SaveAsYAML(cfg)
}
