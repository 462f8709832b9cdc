package models

// MConfig Structure
type MConfig struct {
	Name           string            `yaml:"name"`
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	LogLevel       string            `yaml:"log_level"`
	GrpcHost       string            `yaml:"grpc_host"`
	GrpcPort       int               `yaml:"grpc_port"` // 0 disables the control plane
	AllowedOrigins []string          `yaml:"allowed_origins"`
	Streaming      MStreamingConfig  `yaml:"streaming"`
	Simulation     MSimulationConfig `yaml:"simulation"`
	Storage        MStorageConfig    `yaml:"storage"`
}

type MStreamingConfig struct {
	TickIntervalMs      int  `yaml:"tick_interval_ms"`
	HeartbeatIntervalMs int  `yaml:"heartbeat_interval_ms"`
	SendBufferSize      int  `yaml:"send_buffer_size"`
	RejectUnknownTypes  bool `yaml:"reject_unknown_types"`
	MarketHoursOnly     bool `yaml:"market_hours_only"`
}

type MSimulationConfig struct {
	Seed                uint64             `yaml:"seed"` // 0 = seeded from the clock
	IdleEvictionMinutes int                `yaml:"idle_eviction_minutes"`
	BasePrices          map[string]float64 `yaml:"base_prices"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // none, memory, sqlite, postgres
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionHours     int    `yaml:"retention_hours"`
	BatchSize          int    `yaml:"batch_size"`
	QueueSize          int    `yaml:"queue_size"`
	MemoryPoints       int    `yaml:"memory_points"` // per symbol, memory archive only
	MaxMemoryMB        int    `yaml:"max_memory_mb"` // 0 = a quarter of system RAM
}
