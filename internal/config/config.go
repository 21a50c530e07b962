// Package config reads runtime settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"

	"LocalBoard/internal/interact"
)

type Config struct {
	Relay   RelayConfig
	Client  ClientConfig
	Storage StorageConfig
	Editor  EditorConfig
}

type RelayConfig struct {
	Port         int
	QueueSize    int
	WriteTimeout time.Duration
	ReadLimit    int
	Advertise    bool
}

type ClientConfig struct {
	// SyncInterval is how often the local scene is checked for changes to
	// broadcast.
	SyncInterval     time.Duration
	PointerInterval  time.Duration
	DiscoveryTimeout time.Duration
}

type StorageConfig struct {
	Path             string
	AutosaveInterval time.Duration
}

type EditorConfig struct {
	HistoryLimit  int
	DragThreshold float64
	HandleSize    float64
	MinZoom       float64
	MaxZoom       float64
	ZoomStep      float64
}

// Load reads the configuration. Unset or unparseable values fall back to
// defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		glog.V(1).Infof("[Config] no .env file, using environment: %v", err)
	}
	return fromEnv()
}

func fromEnv() *Config {
	return &Config{
		Relay: RelayConfig{
			Port:         getInt("LOCALBOARD_PORT", 8787),
			QueueSize:    getInt("LOCALBOARD_QUEUE_SIZE", 64),
			WriteTimeout: getDuration("LOCALBOARD_WRITE_TIMEOUT", 10*time.Second),
			ReadLimit:    getInt("LOCALBOARD_READ_LIMIT", 16<<20),
			Advertise:    getBool("LOCALBOARD_MDNS", true),
		},
		Client: ClientConfig{
			SyncInterval:     getDuration("LOCALBOARD_SYNC_INTERVAL", 100*time.Millisecond),
			PointerInterval:  getDuration("LOCALBOARD_POINTER_INTERVAL", 50*time.Millisecond),
			DiscoveryTimeout: getDuration("LOCALBOARD_DISCOVERY_TIMEOUT", 2*time.Second),
		},
		Storage: StorageConfig{
			Path:             getEnv("LOCALBOARD_DB", "localboard.db"),
			AutosaveInterval: getDuration("LOCALBOARD_AUTOSAVE", 5*time.Second),
		},
		Editor: EditorConfig{
			HistoryLimit:  getInt("LOCALBOARD_HISTORY_LIMIT", 100),
			DragThreshold: getFloat("LOCALBOARD_DRAG_THRESHOLD", 10),
			HandleSize:    getFloat("LOCALBOARD_HANDLE_SIZE", 8),
			MinZoom:       getFloat("LOCALBOARD_MIN_ZOOM", 0.1),
			MaxZoom:       getFloat("LOCALBOARD_MAX_ZOOM", 10),
			ZoomStep:      getFloat("LOCALBOARD_ZOOM_STEP", 0.1),
		},
	}
}

// Interact applies the editor settings over the interaction defaults.
func (c *Config) Interact() interact.Config {
	ic := interact.DefaultConfig()
	ic.DragThreshold = c.Editor.DragThreshold
	ic.LineConfirmThreshold = c.Editor.DragThreshold
	ic.HandleSize = c.Editor.HandleSize
	ic.MinZoom = c.Editor.MinZoom
	ic.MaxZoom = c.Editor.MaxZoom
	ic.ZoomStep = c.Editor.ZoomStep
	return ic
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		glog.Warningf("[Config] %s=%q is not an integer", key, value)
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		glog.Warningf("[Config] %s=%q is not a number", key, value)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
		glog.Warningf("[Config] %s=%q is not a boolean", key, value)
	}
	return defaultValue
}

// getDuration accepts Go durations ("250ms") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	glog.Warningf("[Config] %s=%q is not a duration", key, value)
	return defaultValue
}
