package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	ServerURL string `json:"server_url"`
	DataDir   string `json:"data_dir"`
	LogLevel  string `json:"log_level"`
	Reconnect struct {
		InitialDelayMs int     `json:"initial_delay_ms"`
		Multiplier     float64 `json:"multiplier"`
		MaxDelayMs     int     `json:"max_delay_ms"`
		MaxAttempts    int     `json:"max_attempts"`
		Jitter         float64 `json:"jitter"`
	} `json:"reconnect"`
	Typing struct {
		SpeedMs       int `json:"speed_ms"`
		CursorBlinkMs int `json:"cursor_blink_ms"`
	} `json:"typing"`
	Outbound struct {
		QueueSize int `json:"queue_size"`
	} `json:"outbound"`
	Serve struct {
		Addr string `json:"addr"`
	} `json:"serve"`
	Record bool `json:"record"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		ServerURL: "ws://127.0.0.1:8001",
		DataDir:   filepath.Join(os.Getenv("HOME"), ".sclipsync"),
		LogLevel:  "info",
	}
	cfg.Reconnect.InitialDelayMs = 2000
	cfg.Reconnect.Multiplier = 2.0
	cfg.Reconnect.MaxDelayMs = 30000
	cfg.Reconnect.MaxAttempts = 10
	cfg.Reconnect.Jitter = 0.2
	cfg.Typing.SpeedMs = 20
	cfg.Typing.CursorBlinkMs = 500
	cfg.Outbound.QueueSize = 64
	cfg.Serve.Addr = "127.0.0.1:8001"
	cfg.Record = true

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if serverURL := os.Getenv("SCLIP_SERVER_URL"); serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if dataDir := os.Getenv("SCLIP_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel := os.Getenv("SCLIP_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	return Save(path, cfg)
}

// Save writes the config to path atomically, creating the directory first.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ListValues returns the config as a flat map with dot-separated keys.
func ListValues(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var nested map[string]any
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return Flatten(nested), nil
}

// GetValue reads the config file at path and returns the value for the
// given dot-separated key.
func GetValue(path, key string) (any, error) {
	flat, err := loadFlat(path)
	if err != nil {
		return nil, err
	}
	val, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	return val, nil
}

// SetValue updates one dot-separated key in the config file at path,
// creating the file with defaults first if needed.
func SetValue(path, key, value string) error {
	if _, err := Load(path); err != nil {
		return err
	}
	flat, err := loadFlat(path)
	if err != nil {
		return err
	}
	if _, ok := flat[key]; !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	flat[key] = coerce(value)

	nested := Unflatten(flat)
	data, err := json.MarshalIndent(nested, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func loadFlat(path string) (map[string]any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return ListValues(cfg)
}

// coerce interprets a CLI string as a JSON scalar when possible, so that
// "config set reconnect.max_attempts 5" stores a number, not "5".
func coerce(value string) any {
	var v any
	if err := json.Unmarshal([]byte(value), &v); err == nil {
		switch v.(type) {
		case float64, bool:
			return v
		}
	}
	return value
}
