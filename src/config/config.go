package config

import (
	"fmt"
	"os"
	"strings"

	"market-streamer/src/helpers"
	"market-streamer/src/models"

	"gopkg.in/yaml.v3"
)

// Defaults applied to zero-valued fields after loading.
const (
	DefaultTickIntervalMs      = 10000
	DefaultHeartbeatIntervalMs = 30000
	DefaultSendBufferSize      = 256
	DefaultIdleEvictionMinutes = 30
	DefaultRetentionHours      = 24
	DefaultBatchSize           = 500
	DefaultQueueSize           = 64
	DefaultMemoryPoints        = 2000
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, configError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, configError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, configError("config validation failed", err)
	}

	return config, nil
}

// Default returns a fully-defaulted configuration
func Default() *Config {
	c := &Config{MConfig: &models.MConfig{
		Name:     "market-streamer",
		Host:     "0.0.0.0",
		Port:     8090,
		LogLevel: "INFO",
	}}
	c.ApplyDefaults()
	return c
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero-valued settings
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcHost == "" {
		c.GrpcHost = c.Host
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}

	s := &c.Streaming
	if s.TickIntervalMs == 0 {
		s.TickIntervalMs = DefaultTickIntervalMs
	}
	if s.HeartbeatIntervalMs == 0 {
		s.HeartbeatIntervalMs = DefaultHeartbeatIntervalMs
	}
	if s.SendBufferSize == 0 {
		s.SendBufferSize = DefaultSendBufferSize
	}

	if c.Simulation.BasePrices == nil {
		c.Simulation.BasePrices = DefaultBasePrices()
	}

	st := &c.Storage
	if st.DBType == "" {
		st.DBType = "none"
	}
	if st.RetentionHours == 0 {
		st.RetentionHours = DefaultRetentionHours
	}
	if st.BatchSize == 0 {
		st.BatchSize = DefaultBatchSize
	}
	if st.QueueSize == 0 {
		st.QueueSize = DefaultQueueSize
	}
	if st.MemoryPoints == 0 {
		st.MemoryPoints = DefaultMemoryPoints
	}
}

// DefaultBasePrices is the seed price table for well-known symbols
func DefaultBasePrices() map[string]float64 {
	return map[string]float64{
		"AAPL":  175.50,
		"GOOGL": 140.25,
		"MSFT":  378.90,
		"AMZN":  178.35,
		"TSLA":  245.80,
		"NVDA":  875.20,
		"META":  505.75,
		"NFLX":  605.40,
		"AMD":   172.60,
		"INTC":  44.10,
		"SPY":   510.30,
		"QQQ":   438.70,
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d (must be 0 or between 1025 and 65535)", c.GrpcPort)
	}
	if c.GrpcPort != 0 && c.GrpcPort == c.Port {
		return fmt.Errorf("grpc port %d collides with server port", c.GrpcPort)
	}

	for _, origin := range c.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("allowed origin '%s' must be '*' or start with http:// or https://", origin)
		}
	}

	// Streaming
	if c.Streaming.TickIntervalMs < 0 {
		return fmt.Errorf("tick interval must be greater than 0")
	}
	if c.Streaming.HeartbeatIntervalMs < 0 {
		return fmt.Errorf("heartbeat interval must be greater than 0")
	}
	if c.Streaming.SendBufferSize < 0 {
		return fmt.Errorf("send buffer size cannot be negative")
	}

	// Simulation
	if c.Simulation.IdleEvictionMinutes < 0 {
		return fmt.Errorf("idle eviction minutes cannot be negative")
	}
	for sym, price := range c.Simulation.BasePrices {
		if len(sym) == 0 || len(sym) > 10 {
			return fmt.Errorf("base price symbol '%s' must be 1-10 characters", sym)
		}
		if price < 0.01 {
			return fmt.Errorf("base price for '%s' must be at least 0.01", sym)
		}
	}

	// Storage
	switch c.Storage.DBType {
	case "none", "memory":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}
	if c.Storage.BatchSize < 0 || c.Storage.QueueSize < 0 || c.Storage.RetentionHours < 0 ||
		c.Storage.MemoryPoints < 0 || c.Storage.MaxMemoryMB < 0 {
		return fmt.Errorf("storage sizes cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func configError(msg string, cause error) error {
	return &helpers.ConfigurationError{StreamerError: helpers.StreamerError{Message: msg, Cause: cause}}
}
