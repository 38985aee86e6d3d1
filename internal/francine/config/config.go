// Package config loads the francine TOML configuration file, fills defaults,
// overlays secrets from the environment and validates the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
)

// ConfigFormatVersion is the current version of the configuration file format.
const ConfigFormatVersion = "0.1.0"

// formatConstraint accepts any 0.1.x file.
const formatConstraint = "~0.1"

// LLMConfig selects the completion and embedding backends.
type LLMConfig struct {
	Provider   string `toml:"provider" validate:"oneof=ollama openai anthropic gemini"`
	Model      string `toml:"model" validate:"required"`
	EmbedModel string `toml:"embed_model"`
	OllamaHost string `toml:"ollama_host" validate:"omitempty,url"`
	Timeout    string `toml:"timeout"`                             // per completion, e.g. "60s"
	MaxRetries int    `toml:"max_retries" validate:"gte=0,lte=10"` // transport retries
	MaxTokens  int64  `toml:"max_tokens" validate:"gte=0"`
	APIKey     string `toml:"-"` // from OPENAI_API_KEY / ANTHROPIC_API_KEY / GEMINI_API_KEY
}

// AgentConfig tunes the control loop and the tool invoker.
type AgentConfig struct {
	MaxRetries          *int    `toml:"max_retries" validate:"omitempty,gte=0,lte=10"` // nil means 2
	MaxRetryPromptChars int     `toml:"max_retry_prompt_chars" validate:"gte=0"`
	ToolTimeout         string  `toml:"tool_timeout"`
	MaxBlockingWorkers  int     `toml:"max_blocking_workers" validate:"gte=1"`
	ToolRatePerSecond   float64 `toml:"tool_rate_per_second" validate:"gte=0"` // 0 disables the limiter
	ToolBurst           int     `toml:"tool_burst" validate:"gte=0"`
}

// DataConfig locates francine's on-disk state.
type DataConfig struct {
	Dir string `toml:"dir"` // defaults to ~/FrancineData
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	HostName     string `toml:"hostname"`
	Port         string `toml:"port" validate:"required,numeric"`
	HandleCORS   bool   `toml:"handle_cors"`
	TokenExpiry  string `toml:"token_expiry"`
	ClarifyAfter string `toml:"clarification_timeout"` // how long /ask waits for a human reply
	APISecret    string `toml:"-"`                     // FRANCINE_API_SECRET, enables bearer auth
}

// MCPConfig toggles the MCP endpoint on the HTTP server.
type MCPConfig struct {
	Enabled bool `toml:"enabled"`
}

// AuditConfig controls the signed interaction log.
type AuditConfig struct {
	Enabled       bool   `toml:"enabled"`
	FlushInterval int    `toml:"flush_interval" validate:"gte=1"`
	SigningSecret string `toml:"-"` // FRANCINE_AUDIT_SECRET
}

// PostgresConfig enables the optional interaction table.
type PostgresConfig struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn" validate:"required_if=Enabled true"`
}

// RAGConfig controls retrieval context.
type RAGConfig struct {
	Enabled bool   `toml:"enabled"`
	TopK    int    `toml:"top_k" validate:"gte=1,lte=50"`
	DocsDir string `toml:"docs_dir"` // relative to the data dir
}

// SchedulerConfig controls the daily job runner.
type SchedulerConfig struct {
	TickInterval string `toml:"tick_interval"`
}

// ShopifyConfig is used by shopify_api_upload.
type ShopifyConfig struct {
	StoreURL    string `toml:"store_url" validate:"omitempty,url"`
	AccessToken string `toml:"-"` // SHOPIFY_ACCESS_TOKEN
}

// ToolsConfig declares tools beyond the built-in set. Entries are decoded
// by the runner that owns them.
type ToolsConfig struct {
	Command []map[string]any `toml:"command"`
	JS      []map[string]any `toml:"js"`
	Shopify ShopifyConfig    `toml:"shopify"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Pretty bool   `toml:"pretty"`
	File   string `toml:"file"`
}

// ConfigParam holds all configuration parameters.
type ConfigParam struct {
	FormatVersion string `toml:"format_version"`

	LLM       LLMConfig       `toml:"llm"`
	Agent     AgentConfig     `toml:"agent"`
	Data      DataConfig      `toml:"data"`
	Server    ServerConfig    `toml:"server"`
	MCP       MCPConfig       `toml:"mcp"`
	Audit     AuditConfig     `toml:"audit"`
	Postgres  PostgresConfig  `toml:"postgres"`
	RAG       RAGConfig       `toml:"rag"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Tools     ToolsConfig     `toml:"tools"`
	Log       LogConfig       `toml:"log"`
}

var cfg *ConfigParam

// Config returns the loaded configuration.
func Config() *ConfigParam {
	return cfg
}

// SetConfig replaces the process configuration. Used by tests and by the CLI
// when no file exists yet.
func SetConfig(c *ConfigParam) {
	cfg = c
}

// LoadConfig loads, validates and installs the configuration from a file.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	c, err := Parse(string(content))
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Parse decodes and validates configuration text.
func Parse(content string) (*ConfigParam, error) {
	c := &ConfigParam{}
	if _, err := toml.Decode(content, c); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}
	if err := ValidateConfig(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return c, nil
}

// Default returns a validated configuration with every default applied.
func Default() *ConfigParam {
	c := &ConfigParam{FormatVersion: ConfigFormatVersion}
	if err := ValidateConfig(c); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return c
}

// ValidateConfig fills defaults, overlays environment secrets and validates.
func ValidateConfig(c *ConfigParam) error {
	if err := checkFormatVersion(c.FormatVersion); err != nil {
		return err
	}
	applyDefaults(c)
	applyEnv(c)

	for name, d := range map[string]string{
		"llm.timeout":                  c.LLM.Timeout,
		"agent.tool_timeout":           c.Agent.ToolTimeout,
		"server.token_expiry":          c.Server.TokenExpiry,
		"server.clarification_timeout": c.Server.ClarifyAfter,
		"scheduler.tick_interval":      c.Scheduler.TickInterval,
	} {
		if _, err := ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s: %v", name, err)
		}
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return err
	}
	return nil
}

func checkFormatVersion(version string) error {
	if version == "" {
		return fmt.Errorf("format_version is required")
	}
	ver, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid format_version %q: %v", version, err)
	}
	constraint, err := semver.NewConstraint(formatConstraint)
	if err != nil {
		return err
	}
	if !constraint.Check(ver) {
		return fmt.Errorf("unsupported config file format version: %s", version)
	}
	return nil
}

func applyDefaults(c *ConfigParam) {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModels[c.LLM.Provider]
	}
	if c.LLM.EmbedModel == "" {
		c.LLM.EmbedModel = "minilm:latest"
	}
	if c.LLM.OllamaHost == "" {
		c.LLM.OllamaHost = "http://localhost:11434"
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = "60s"
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 2
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}

	if c.Agent.MaxRetries == nil {
		retries := 2
		c.Agent.MaxRetries = &retries
	}
	if c.Agent.MaxRetryPromptChars == 0 {
		c.Agent.MaxRetryPromptChars = 8000
	}
	if c.Agent.ToolTimeout == "" {
		c.Agent.ToolTimeout = "2m"
	}
	if c.Agent.MaxBlockingWorkers == 0 {
		c.Agent.MaxBlockingWorkers = 4
	}

	if c.Data.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Data.Dir = filepath.Join(home, "FrancineData")
		} else {
			c.Data.Dir = "FrancineData"
		}
	}

	if c.Server.HostName == "" {
		c.Server.HostName = "127.0.0.1"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8627"
	}
	if c.Server.TokenExpiry == "" {
		c.Server.TokenExpiry = "1d"
	}
	if c.Server.ClarifyAfter == "" {
		c.Server.ClarifyAfter = "5m"
	}

	if c.Audit.FlushInterval == 0 {
		c.Audit.FlushInterval = 1
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 3
	}
	if c.RAG.DocsDir == "" {
		c.RAG.DocsDir = "documents_to_index"
	}
	if c.Scheduler.TickInterval == "" {
		c.Scheduler.TickInterval = "1s"
	}
}

var defaultModels = map[string]string{
	"ollama":    "gemma3:12b-it-q4_K_M",
	"openai":    "gpt-4o",
	"anthropic": "claude-sonnet-4-5",
	"gemini":    "gemini-2.5-flash",
}

func applyEnv(c *ConfigParam) {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.LLM.OllamaHost = host
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if s := os.Getenv("FRANCINE_API_SECRET"); s != "" {
		c.Server.APISecret = s
	}
	if s := os.Getenv("FRANCINE_AUDIT_SECRET"); s != "" {
		c.Audit.SigningSecret = s
	}
	if s := os.Getenv("SHOPIFY_ACCESS_TOKEN"); s != "" {
		c.Tools.Shopify.AccessToken = s
	}
}

// ParseDuration parses "<number><unit>" where unit is s, m, h, d or y.
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}
	unit := input[len(input)-1:]
	value, err := strconv.Atoi(input[:len(input)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative duration: %s", input)
	}
	switch unit {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	case "y":
		return time.Duration(value) * 365 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}
}

// MustDuration is ParseDuration for values already checked by ValidateConfig.
func MustDuration(input string) time.Duration {
	d, err := ParseDuration(input)
	if err != nil {
		panic(fmt.Sprintf("invalid duration %q: %v", input, err))
	}
	return d
}

// AgentMaxRetries returns the configured retry budget.
func (c *ConfigParam) AgentMaxRetries() int {
	if c.Agent.MaxRetries == nil {
		return 2
	}
	return *c.Agent.MaxRetries
}

// DataPath joins elements onto the data directory.
func (c *ConfigParam) DataPath(elem ...string) string {
	return filepath.Join(append([]string{c.Data.Dir}, elem...)...)
}

// GetURL returns the HTTP API base URL.
func (c *ConfigParam) GetURL() string {
	return "http://" + c.Server.HostName + ":" + c.Server.Port
}
