package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Renderer configuration
	RenderTimeout  time.Duration `yaml:"render_timeout"`
	Headless       bool          `yaml:"headless"`
	UseFallback    bool          `yaml:"use_fallback"`
	MermaidInkURL  string        `yaml:"mermaid_ink_url"`
	MermaidCDNURL  string        `yaml:"mermaid_cdn_url"`
	ChromeBinaries []string      `yaml:"chrome_binaries"`

	// Registry configuration
	RegistryDriver string        `yaml:"registry_driver"` // memory or sqlite
	RegistryPath   string        `yaml:"registry_path"`   // sqlite file path
	RegistryTTL    time.Duration `yaml:"registry_ttl"`    // 0 disables eviction

	// Rate limiting
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	RateLimitRefill time.Duration `yaml:"rate_limit_refill"`

	// Output defaults
	OutputDir    string `yaml:"output_dir"`
	DefaultTheme string `yaml:"default_theme"`

	// Logging and features
	LogLevel      string `yaml:"log_level"`
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableCORS    bool   `yaml:"enable_cors"`

	// Dynamic limits file watched at runtime (optional)
	DynamicConfigPath string `yaml:"dynamic_config_path"`
}

// Default mermaid.js bundle loaded by the browser renderer. Version pinned
// to match what mermaid.ink serves so both renderers agree on syntax.
const defaultMermaidCDN = "https://cdn.jsdelivr.net/npm/mermaid@11.12.2/dist/mermaid.min.js"

// LoadConfig loads configuration from an optional yaml file pointed at by
// MERMAID_VIEW_CONFIG, with environment variables taking precedence.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:   ":8000",
		Environment:     "development",
		RenderTimeout:   30 * time.Second,
		Headless:        true,
		UseFallback:     true,
		MermaidInkURL:   "https://mermaid.ink",
		MermaidCDNURL:   defaultMermaidCDN,
		ChromeBinaries:  []string{"google-chrome", "chromium", "chromium-browser", "chrome"},
		RegistryDriver:  "memory",
		RegistryPath:    "diagrams.db",
		RateLimitBurst:  10,
		RateLimitRefill: 2 * time.Second,
		OutputDir:       "output",
		DefaultTheme:    "default",
		LogLevel:        "info",
		EnableMetrics:   true,
		EnableCORS:      true,
	}

	if path := os.Getenv("MERMAID_VIEW_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile overlays values from a yaml configuration file
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays values from MERMAID_VIEW_* environment variables
func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("MERMAID_VIEW_ADDR", c.ServerAddress)
	c.Environment = getEnv("MERMAID_VIEW_ENV", c.Environment)
	c.RenderTimeout = getEnvDuration("MERMAID_VIEW_TIMEOUT", c.RenderTimeout)
	c.Headless = getEnvBool("MERMAID_VIEW_HEADLESS", c.Headless)
	c.UseFallback = getEnvBool("MERMAID_VIEW_USE_FALLBACK", c.UseFallback)
	c.MermaidInkURL = getEnv("MERMAID_VIEW_INK_URL", c.MermaidInkURL)
	c.MermaidCDNURL = getEnv("MERMAID_VIEW_CDN_URL", c.MermaidCDNURL)
	c.RegistryDriver = getEnv("MERMAID_VIEW_REGISTRY_DRIVER", c.RegistryDriver)
	c.RegistryPath = getEnv("MERMAID_VIEW_REGISTRY_PATH", c.RegistryPath)
	c.RegistryTTL = getEnvDuration("MERMAID_VIEW_REGISTRY_TTL", c.RegistryTTL)
	c.RateLimitBurst = getEnvInt("MERMAID_VIEW_RATE_BURST", c.RateLimitBurst)
	c.RateLimitRefill = getEnvDuration("MERMAID_VIEW_RATE_REFILL", c.RateLimitRefill)
	c.OutputDir = getEnv("MERMAID_VIEW_OUTPUT_DIR", c.OutputDir)
	c.DefaultTheme = getEnv("MERMAID_VIEW_THEME", c.DefaultTheme)
	c.LogLevel = getEnv("MERMAID_VIEW_LOG_LEVEL", c.LogLevel)
	c.EnableMetrics = getEnvBool("MERMAID_VIEW_METRICS", c.EnableMetrics)
	c.EnableCORS = getEnvBool("MERMAID_VIEW_CORS", c.EnableCORS)
	c.DynamicConfigPath = getEnv("MERMAID_VIEW_DYNAMIC_CONFIG", c.DynamicConfigPath)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.RegistryDriver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported registry driver %q", c.RegistryDriver)
	}
	if c.RegistryDriver == "sqlite" && c.RegistryPath == "" {
		return fmt.Errorf("MERMAID_VIEW_REGISTRY_PATH is required for the sqlite registry")
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("render timeout must be positive")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value.
// Plain integers are interpreted as milliseconds for compatibility with the
// MERMAID_VIEW_TIMEOUT convention.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
