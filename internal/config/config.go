// Package config loads the relay's Configuration Object (spec §6) from
// YAML with environment variable overrides, grounded on the teacher's
// internal/config/config.go singleton-with-overrides pattern.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

// Config is the relay's Configuration Object (spec §6): peer list,
// storage backend selection, and WebRTC tuning.
type Config struct {
	Peers       []string      `yaml:"peers"`
	StoragePath string        `yaml:"storage_path"`
	Radisk      bool          `yaml:"radisk"`
	LocalStorage bool         `yaml:"local_storage"`
	SuperPeer   bool          `yaml:"super_peer"`
	Port        string        `yaml:"port"`
	Env         string        `yaml:"env"`
	WebRTC      WebRTCConfig  `yaml:"webrtc"`
	PubSub      PubSubConfig  `yaml:"pubsub"`
	Redis       RedisConfig   `yaml:"redis"`
	Mesh        MeshConfig    `yaml:"mesh"`
}

// WebRTCConfig tunes the optional WebRTC transport (spec §4.8).
type WebRTCConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ICEServers []string `yaml:"ice_servers"`
}

// PubSubConfig configures the optional Google Cloud Pub/Sub event-bus
// fan-out sink (spec §6 domain stack).
type PubSubConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ProjectID string `yaml:"project_id"`
	TopicID   string `yaml:"topic_id"`
}

// RedisConfig configures the optional Redis-backed dedup/presence store
// for multi-process relay deployments (spec §6 domain stack).
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MeshConfig tunes DAM batching and size limits (spec §6 Configuration
// Object, mesh.Options).
type MeshConfig struct {
	MaxMessageBytes int `yaml:"max_message_bytes"`
	BatchSize       int `yaml:"batch_size"`
	Retry           int `yaml:"retry"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide singleton Config, loading it from
// CONFIG_PATH (default "gun.yaml") on first call.
func Get() *Config {
	once.Do(func() {
		cfg, err := Load(getEnv("CONFIG_PATH", "gun.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "err", err)
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		cfg.applyDefaults()
		instance = cfg
	})
	return instance
}

// Load reads and parses a YAML config file from path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Port = getEnv("GUN_PORT", c.Port)
	c.Env = getEnv("GUN_ENV", c.Env)
	c.StoragePath = getEnv("GUN_STORAGE_PATH", c.StoragePath)
	c.Radisk = getEnvBool("GUN_RADISK", c.Radisk)
	c.LocalStorage = getEnvBool("GUN_LOCAL_STORAGE", c.LocalStorage)
	c.SuperPeer = getEnvBool("GUN_SUPER_PEER", c.SuperPeer)

	if peers := getEnv("GUN_PEERS", ""); peers != "" {
		c.Peers = splitCSV(peers)
	}

	c.WebRTC.Enabled = getEnvBool("GUN_WEBRTC_ENABLED", c.WebRTC.Enabled)
	if servers := getEnv("GUN_WEBRTC_ICE_SERVERS", ""); servers != "" {
		c.WebRTC.ICEServers = splitCSV(servers)
	}

	c.PubSub.Enabled = getEnvBool("GUN_PUBSUB_ENABLED", c.PubSub.Enabled)
	c.PubSub.ProjectID = getEnv("GUN_PUBSUB_PROJECT_ID", c.PubSub.ProjectID)
	c.PubSub.TopicID = getEnv("GUN_PUBSUB_TOPIC_ID", c.PubSub.TopicID)

	c.Redis.Enabled = getEnvBool("GUN_REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("GUN_REDIS_ADDR", c.Redis.Addr)

	if v := getEnvInt("GUN_MESH_MAX_MESSAGE_BYTES", 0); v > 0 {
		c.Mesh.MaxMessageBytes = v
	}
	if v := getEnvInt("GUN_MESH_BATCH_SIZE", 0); v > 0 {
		c.Mesh.BatchSize = v
	}
	if v := getEnvInt("GUN_MESH_RETRY", 0); v > 0 {
		c.Mesh.Retry = v
	}
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8765"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.StoragePath == "" {
		c.StoragePath = "./data"
	}
	if len(c.WebRTC.ICEServers) == 0 {
		c.WebRTC.ICEServers = []string{"stun:stun.l.google.com:19302"}
	}
	if c.PubSub.TopicID == "" {
		c.PubSub.TopicID = "gun-events"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Mesh.MaxMessageBytes == 0 {
		c.Mesh.MaxMessageBytes = 90_000_000
	}
	if c.Mesh.BatchSize == 0 {
		c.Mesh.BatchSize = 9000
	}
	if c.Mesh.Retry == 0 {
		c.Mesh.Retry = 60
	}
}

// IsProduction reports whether Env is "production".
func (c *Config) IsProduction() bool { return c.Env == "production" }

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
