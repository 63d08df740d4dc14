// Package config loads runtime settings from the environment and the
// device list from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Multipliers is the closed set of accepted time-compression factors:
// real-time, 10x, 1 min/sec, 1 hr/10 sec, 1 day/min.
var Multipliers = []int{1, 10, 60, 360, 1440}

type Config struct {
	LogFile       string
	FlushInterval time.Duration
	QueueSize     int

	UpdateIntervalMin time.Duration
	UpdateIntervalMax time.Duration
	MonitorInterval   time.Duration
	Cooldown          time.Duration
	TimeMultiplier    int
	BufferCap         int

	DevicesFile string
	MetricsAddr string

	MQTTEnabled  bool
	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string
	MQTTTopic    string
}

// Load reads the optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogFile:       getEnv("ECOHUB_LOG_FILE", "history.log"),
		FlushInterval: getEnvDuration("ECOHUB_FLUSH_INTERVAL", 500*time.Millisecond),
		QueueSize:     getEnvInt("ECOHUB_QUEUE_SIZE", 4096),

		UpdateIntervalMin: getEnvDuration("ECOHUB_UPDATE_INTERVAL_MIN", time.Second),
		UpdateIntervalMax: getEnvDuration("ECOHUB_UPDATE_INTERVAL_MAX", 3*time.Second),
		MonitorInterval:   getEnvDuration("ECOHUB_MONITOR_INTERVAL", 2*time.Second),
		Cooldown:          getEnvDuration("ECOHUB_COOLDOWN", 5*time.Second),
		TimeMultiplier:    getEnvInt("ECOHUB_TIME_MULTIPLIER", 1),
		BufferCap:         getEnvInt("ECOHUB_BUFFER_CAP", 1000),

		DevicesFile: getEnv("ECOHUB_DEVICES_FILE", ""),
		MetricsAddr: getEnv("ECOHUB_METRICS_ADDR", ""),

		MQTTEnabled:  getEnvBool("ECOHUB_MQTT_ENABLED", false),
		MQTTHost:     getEnv("ECOHUB_MQTT_HOST", "localhost"),
		MQTTPort:     getEnvInt("ECOHUB_MQTT_PORT", 1883),
		MQTTUser:     getEnv("ECOHUB_MQTT_USER", ""),
		MQTTPassword: getEnv("ECOHUB_MQTT_PASSWORD", ""),
		MQTTClientID: getEnv("ECOHUB_MQTT_CLIENT_ID", "ecohub-core"),
		MQTTTopic:    getEnv("ECOHUB_MQTT_TOPIC", "ecohub/readings"),
	}

	if !validMultiplier(cfg.TimeMultiplier) {
		return nil, fmt.Errorf("invalid time multiplier %d, allowed: %v", cfg.TimeMultiplier, Multipliers)
	}
	if cfg.UpdateIntervalMax < cfg.UpdateIntervalMin {
		return nil, fmt.Errorf("update interval max %s below min %s", cfg.UpdateIntervalMax, cfg.UpdateIntervalMin)
	}
	return cfg, nil
}

func validMultiplier(m int) bool {
	for _, v := range Multipliers {
		if v == m {
			return true
		}
	}
	return false
}

// DeviceConfig is one entry of the externally supplied device list.
type DeviceConfig struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Location   string         `json:"location"`
	Properties map[string]any `json:"properties,omitempty"`
}

// LoadDevices parses the device list JSON file.
func LoadDevices(path string) ([]DeviceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read devices file: %w", err)
	}
	var devs []DeviceConfig
	if err := json.Unmarshal(raw, &devs); err != nil {
		return nil, fmt.Errorf("parse devices file: %w", err)
	}
	return devs, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
