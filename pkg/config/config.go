// Package config reads and writes the taskbox configuration file. The file
// is JSON; comments and trailing commas are allowed.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

const (
	xdgAppName = "taskbox"
	configFile = "config.json"

	// DirEnv overrides the configuration directory.
	DirEnv = "TASKBOX_CONFIG_DIR"

	BackendREST   = "rest"
	BackendGoogle = "google"

	SnapshotFile   = "file"
	SnapshotSQLite = "sqlite"

	DefaultAPIURL   = "https://to-do-list-be-1.onrender.com"
	DefaultTaskList = "Tasks"
	DefaultLogLevel = "warn"
)

type Config struct {
	Backend  string `json:"backend"`
	APIURL   string `json:"api_url"`
	TaskList string `json:"task_list"`
	Snapshot string `json:"snapshot"`
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file,omitempty"`
}

func Default() *Config {
	return &Config{
		Backend:  BackendREST,
		APIURL:   DefaultAPIURL,
		TaskList: DefaultTaskList,
		Snapshot: SnapshotFile,
		LogLevel: DefaultLogLevel,
	}
}

// GetConfigDir returns the directory holding the config file, the session
// token and the local snapshot.
func GetConfigDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config at path. A missing file yields the defaults, and
// keys absent from the file keep their default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.APIURL == "" {
		c.APIURL = d.APIURL
	}
	if c.TaskList == "" {
		c.TaskList = d.TaskList
	}
	if c.Snapshot == "" {
		c.Snapshot = d.Snapshot
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendREST, BackendGoogle:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendREST, BackendGoogle)
	}
	switch c.Snapshot {
	case SnapshotFile, SnapshotSQLite:
	default:
		return fmt.Errorf("unknown snapshot backend %q (want %s or %s)", c.Snapshot, SnapshotFile, SnapshotSQLite)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// Fields returns the settings keyed by their file names.
func (c *Config) Fields() map[string]string {
	return map[string]string{
		"backend":   c.Backend,
		"api_url":   c.APIURL,
		"task_list": c.TaskList,
		"snapshot":  c.Snapshot,
		"log_level": c.LogLevel,
		"log_file":  c.LogFile,
	}
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, 6)
	for k := range Default().Fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set changes one setting. An empty value restores the default.
func (c *Config) Set(key, value string) error {
	next := *c
	value = strings.TrimSpace(value)
	switch key {
	case "backend":
		next.Backend = strings.ToLower(value)
	case "api_url":
		next.APIURL = strings.TrimRight(value, "/")
	case "task_list":
		next.TaskList = value
	case "snapshot":
		next.Snapshot = strings.ToLower(value)
	case "log_level":
		next.LogLevel = strings.ToLower(value)
	case "log_file":
		next.LogFile = value
	default:
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	next.fillDefaults()
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
