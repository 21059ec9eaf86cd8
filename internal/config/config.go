package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/Wyydra/premeet/internal/core/domain"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is shared by the server and the client. Values come from defaults,
// then the YAML file named by PREMEET_CONFIG, then PREMEET_* variables.
type Config struct {
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	// server
	RoomStateBackend string             `yaml:"room_state_backend"`
	RedisAddr        string             `yaml:"redis_addr"`
	RedisPassword    string             `yaml:"redis_password"`
	RedisDB          int                `yaml:"redis_db"`
	PollBackend      string             `yaml:"poll_backend"`
	PollDSN          string             `yaml:"poll_dsn"`
	ICEServers       []domain.ICEServer `yaml:"ice_servers"`
	MsgRate          float64            `yaml:"msg_rate"`
	MsgBurst         int                `yaml:"msg_burst"`

	// client
	SignalingURL     string `yaml:"signaling_url"`
	ICEURL           string `yaml:"ice_url"`
	PreCallRelayOnly bool   `yaml:"precall_relay_only"`
}

func Default() *Config {
	return &Config{
		Addr:             ":8080",
		LogLevel:         "info",
		LogPretty:        true,
		RoomStateBackend: BackendMemory,
		RedisAddr:        "localhost:6379",
		PollBackend:      BackendMemory,
		PollDSN:          "premeet.db",
		MsgRate:          20,
		MsgBurst:         40,
		SignalingURL:     "http://localhost:8080",
		PreCallRelayOnly: true,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// Load reads the optional YAML file and the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("PREMEET_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Addr = getEnv("PREMEET_ADDR", cfg.Addr)
	cfg.LogLevel = getEnv("PREMEET_LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = getBoolEnv("PREMEET_LOG_PRETTY", cfg.LogPretty)

	cfg.RoomStateBackend = getEnv("PREMEET_ROOM_STATE_BACKEND", cfg.RoomStateBackend)
	cfg.RedisAddr = getEnv("PREMEET_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("PREMEET_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.PollBackend = getEnv("PREMEET_POLL_BACKEND", cfg.PollBackend)
	cfg.PollDSN = getEnv("PREMEET_POLL_DSN", cfg.PollDSN)
	cfg.SignalingURL = getEnv("PREMEET_SIGNALING_URL", cfg.SignalingURL)
	cfg.ICEURL = getEnv("PREMEET_ICE_URL", cfg.ICEURL)
	cfg.PreCallRelayOnly = getBoolEnv("PREMEET_PRECALL_RELAY_ONLY", cfg.PreCallRelayOnly)

	var err error
	if cfg.RedisDB, err = getIntEnv("PREMEET_REDIS_DB", cfg.RedisDB); err != nil {
		return nil, err
	}
	if cfg.MsgRate, err = getFloatEnv("PREMEET_MSG_RATE", cfg.MsgRate); err != nil {
		return nil, err
	}
	if cfg.MsgBurst, err = getIntEnv("PREMEET_MSG_BURST", cfg.MsgBurst); err != nil {
		return nil, err
	}
	if v := os.Getenv("PREMEET_ICE_SERVERS"); v != "" {
		var servers []domain.ICEServer
		if err := json.Unmarshal([]byte(v), &servers); err != nil {
			return nil, fmt.Errorf("PREMEET_ICE_SERVERS: %w", err)
		}
		cfg.ICEServers = servers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.RoomStateBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown room state backend %q", c.RoomStateBackend)
	}
	switch c.PollBackend {
	case BackendMemory, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("unknown poll backend %q", c.PollBackend)
	}
	if c.PollBackend != BackendMemory && c.PollDSN == "" {
		return fmt.Errorf("poll backend %s needs PREMEET_POLL_DSN", c.PollBackend)
	}
	if c.MsgRate < 0 || c.MsgBurst < 0 {
		return fmt.Errorf("message rate and burst must not be negative")
	}
	return nil
}
