package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration, shared by every
// process entry point. Each binary reads only the sections it needs.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Router  RouterConfig  `yaml:"router"`
	Agents  AgentsConfig  `yaml:"agents"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Policy  PolicyConfig  `yaml:"policy"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	Provider       ProviderConfig       `yaml:"provider"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"` // "ollama" or "openai"
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
}

// CircuitBreakerConfig holds circuit breaker settings for the LLM provider.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// RouterConfig holds the router process settings.
type RouterConfig struct {
	User            string        `yaml:"user"`             // acting user bound into dispatches
	PolicyEndpoint  string        `yaml:"policy_endpoint"`  // e.g. http://localhost:9001
	TimeoffEndpoint string        `yaml:"timeoff_endpoint"` // e.g. http://localhost:9002
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"` // bounded wait ceiling
}

// AgentsConfig holds settings for the two A2A wrapper servers.
type AgentsConfig struct {
	Policy  AgentConfig `yaml:"policy"`
	Timeoff AgentConfig `yaml:"timeoff"`
}

// AgentConfig is one A2A wrapper server plus the MCP backend it consumes.
type AgentConfig struct {
	Addr          string `yaml:"addr"`            // listen address, e.g. :9001
	PublicURL     string `yaml:"public_url"`      // advertised in the agent card
	MCPURL        string `yaml:"mcp_url"`         // streamable HTTP MCP server
	MCPTransport  string `yaml:"mcp_transport"`   // "http" or "stdio"
	MCPCommand    string `yaml:"mcp_command"`     // stdio transport only
	MaxIterations int    `yaml:"max_iterations"`  // agent loop hard cap
}

// LedgerConfig holds the time-off ledger storage settings.
type LedgerConfig struct {
	Path string `yaml:"path"` // sqlite file; ":memory:" for ephemeral
	Addr string `yaml:"addr"` // timeoff MCP server listen address
}

// PolicyConfig holds the policy MCP server settings.
type PolicyConfig struct {
	DocumentPath string `yaml:"document_path"` // plain-text policy document
	Addr         string `yaml:"addr"`          // policy MCP server listen address
	TopK         int    `yaml:"top_k"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Load reads and parses a YAML config file, then applies defaults and
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file is not fatal: defaults plus env cover local runs.
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a configuration suitable for a local all-in-one setup.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider.Type == "" {
		c.LLM.Provider.Type = "ollama"
	}
	if c.LLM.Provider.Name == "" {
		c.LLM.Provider.Name = c.LLM.Provider.Type
	}
	if c.LLM.Provider.Model == "" {
		c.LLM.Provider.Model = "llama3.1"
	}
	if c.LLM.Provider.Temperature == 0 {
		c.LLM.Provider.Temperature = 0.7
	}
	if c.Router.User == "" {
		c.Router.User = "Alice"
	}
	if c.Router.PolicyEndpoint == "" {
		c.Router.PolicyEndpoint = "http://localhost:9001"
	}
	if c.Router.TimeoffEndpoint == "" {
		c.Router.TimeoffEndpoint = "http://localhost:9002"
	}
	if c.Router.DispatchTimeout == 0 {
		c.Router.DispatchTimeout = 30 * time.Second
	}
	if c.Agents.Policy.Addr == "" {
		c.Agents.Policy.Addr = ":9001"
	}
	if c.Agents.Policy.PublicURL == "" {
		c.Agents.Policy.PublicURL = "http://localhost:9001"
	}
	if c.Agents.Policy.MCPURL == "" {
		c.Agents.Policy.MCPURL = "http://localhost:8001/mcp"
	}
	if c.Agents.Policy.MCPTransport == "" {
		c.Agents.Policy.MCPTransport = "http"
	}
	if c.Agents.Policy.MaxIterations == 0 {
		c.Agents.Policy.MaxIterations = 10
	}
	if c.Agents.Timeoff.Addr == "" {
		c.Agents.Timeoff.Addr = ":9002"
	}
	if c.Agents.Timeoff.PublicURL == "" {
		c.Agents.Timeoff.PublicURL = "http://localhost:9002"
	}
	if c.Agents.Timeoff.MCPURL == "" {
		c.Agents.Timeoff.MCPURL = "http://localhost:8000/mcp"
	}
	if c.Agents.Timeoff.MCPTransport == "" {
		c.Agents.Timeoff.MCPTransport = "http"
	}
	if c.Agents.Timeoff.MaxIterations == 0 {
		c.Agents.Timeoff.MaxIterations = 10
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "timeoff.db"
	}
	if c.Ledger.Addr == "" {
		c.Ledger.Addr = ":8000"
	}
	if c.Policy.Addr == "" {
		c.Policy.Addr = ":8001"
	}
	if c.Policy.DocumentPath == "" {
		c.Policy.DocumentPath = "docs/hr_policy_document.md"
	}
	if c.Policy.TopK == 0 {
		c.Policy.TopK = 3
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
}

// applyEnv overlays a handful of environment variables onto the config.
// Credentials never live in the YAML file.
func applyEnv(c *Config) {
	if v := os.Getenv("HR_LLM_BASE_URL"); v != "" {
		c.LLM.Provider.BaseURL = v
	}
	if v := os.Getenv("HR_LLM_MODEL"); v != "" {
		c.LLM.Provider.Model = v
	}
	if v := os.Getenv("HR_LLM_API_KEY"); v != "" {
		c.LLM.Provider.APIKey = v
	}
	if v := os.Getenv("HR_LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv("HR_USER"); v != "" {
		c.Router.User = v
	}
}
