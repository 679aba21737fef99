package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported backing store drivers.
const (
	BackendRedis  = "redis"
	BackendPyaz   = "pyaz"
	BackendRaft   = "raft"
	BackendMemory = "memory"
)

type Config struct {
	HTTPAddr       string `yaml:"http_addr"`
	Backend        string `yaml:"backend"`
	RequestLogging bool   `yaml:"request_logging"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPassword string `yaml:"redis_password"`
	RedisPoolSize int    `yaml:"redis_pool_size"`
	ScanCount     int64  `yaml:"scan_count"`

	PyazAddr string `yaml:"pyaz_addr"`

	NodeID        string `yaml:"node_id"`
	RaftAddr      string `yaml:"raft_addr"`
	RaftData      string `yaml:"raft_data"`
	RaftBootstrap bool   `yaml:"raft_bootstrap"`
	GRPCAddr      string `yaml:"grpc_addr"`
	MetricsAddr   string `yaml:"metrics_addr"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoadConfig loads configuration from a YAML file if path is provided,
// then applies environment variable overrides, defaults and validation.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = "0.0.0.0:8000"
	}
	if c.Backend == "" {
		c.Backend = BackendRedis
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "redis:6379"
	}
	if c.ScanCount == 0 {
		c.ScanCount = 100
	}
	if c.RaftData == "" && c.NodeID != "" {
		c.RaftData = fmt.Sprintf("./pyaz/%s", c.NodeID)
	}
	if c.GRPCAddr == "" {
		c.GRPCAddr = ":9090"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9091"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 2 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Validate checks that the fields required by the selected backend are set.
func (c *Config) Validate() error {
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis_db must not be negative")
	}
	if c.ScanCount < 0 {
		return fmt.Errorf("scan_count must not be negative")
	}

	switch c.Backend {
	case BackendRedis, BackendMemory:
	case BackendPyaz:
		if c.PyazAddr == "" {
			return fmt.Errorf("PYAZ_ADDR is required for the %s backend (set via environment or config file)", c.Backend)
		}
	case BackendRaft:
		if c.NodeID == "" {
			return fmt.Errorf("NODE_ID is required for the %s backend (set via environment or config file)", c.Backend)
		}
		if c.RaftAddr == "" {
			return fmt.Errorf("RAFT_ADDR is required for the %s backend (set via environment or config file)", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

// applyEnvOverrides allows environment variables to override YAML config values
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"HTTP_ADDR":      &cfg.HTTPAddr,
		"STORE_BACKEND":  &cfg.Backend,
		"REDIS_ADDR":     &cfg.RedisAddr,
		"REDIS_PASSWORD": &cfg.RedisPassword,
		"PYAZ_ADDR":      &cfg.PyazAddr,
		"NODE_ID":        &cfg.NodeID,
		"RAFT_ADDR":      &cfg.RaftAddr,
		"RAFT_DATA":      &cfg.RaftData,
		"GRPC_ADDR":      &cfg.GRPCAddr,
		"METRICS_ADDR":   &cfg.MetricsAddr,
	}
	for name, field := range strs {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	// REDIS_HOST and REDIS_PORT are honoured when REDIS_ADDR is not set.
	if os.Getenv("REDIS_ADDR") == "" {
		host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")
		if host != "" || port != "" {
			if host == "" {
				host = "redis"
			}
			if port == "" {
				port = "6379"
			}
			cfg.RedisAddr = net.JoinHostPort(host, port)
		}
	}

	ints := map[string]*int{
		"REDIS_DB":        &cfg.RedisDB,
		"REDIS_POOL_SIZE": &cfg.RedisPoolSize,
	}
	for name, field := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", name, err)
			}
			*field = n
		}
	}
	if v := os.Getenv("SCAN_COUNT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SCAN_COUNT value: %w", err)
		}
		cfg.ScanCount = n
	}

	bools := map[string]*bool{
		"RAFT_BOOTSTRAP":  &cfg.RaftBootstrap,
		"REQUEST_LOGGING": &cfg.RequestLogging,
	}
	for name, field := range bools {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", name, err)
			}
			*field = b
		}
	}

	durations := map[string]*time.Duration{
		"REQUEST_TIMEOUT":  &cfg.RequestTimeout,
		"DIAL_TIMEOUT":     &cfg.DialTimeout,
		"SHUTDOWN_TIMEOUT": &cfg.ShutdownTimeout,
	}
	for name, field := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", name, err)
			}
			*field = d
		}
	}
	return nil
}
