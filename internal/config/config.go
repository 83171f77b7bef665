package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment override, e.g. UKTT_CURRENCY.
const EnvPrefix = "UKTT"

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"host":          "host",
	"prod":          "prod",
	"api-version":   "api_version",
	"format":        "output_format",
	"debug":         "debug",
	"currency":      "currency",
	"filepath":      "filepath",
	"exchange-rate": "exchange_rate",
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// Flags in fs, if any, override every other source. Without an explicit
// cfgFile, uktt.yaml is searched for in searchPaths (default: the working
// directory, then $HOME/.uktt).
func NewManager(cfgFile string, fs *pflag.FlagSet, searchPaths ...string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "$HOME/.uktt"}
	}

	if err := cm.initViper(cfgFile, searchPaths); err != nil {
		return nil, err
	}
	if err := cm.BindFlags(fs); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults, environment and config file.
func (cm *Manager) initViper(cfgFile string, searchPaths []string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("host", defaults.Host)
	v.SetDefault("prod", defaults.Prod)
	v.SetDefault("api_version", defaults.APIVersion)
	v.SetDefault("output_format", defaults.OutputFormat)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("currency", defaults.Currency)
	v.SetDefault("chapter_id", defaults.ChapterID)
	v.SetDefault("filepath", defaults.Filepath)
	v.SetDefault("exchange_rate", defaults.ExchangeRate)
	v.SetDefault("http.timeout_seconds", defaults.HTTP.TimeoutSeconds)
	v.SetDefault("http.max_retries", defaults.HTTP.MaxRetries)
	v.SetDefault("http.requests_per_minute", defaults.HTTP.RequestsPerMinute)
	v.SetDefault("http.validate_schema", defaults.HTTP.ValidateSchema)

	// Environment variables with UKTT_ prefix; nested keys use underscores.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names understood by earlier releases.
	for key, legacy := range map[string]string{"host": "HOST", "api_version": "VER", "prod": "PROD"} {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), legacy); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", legacy, err)
		}
	}

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("uktt")
		v.SetConfigType("yaml")
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// BindFlags binds the known CLI flags present in fs. Only flags the user
// set take precedence over the file and environment.
func (cm *Manager) BindFlags(fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := cm.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the path of the file that was read, if any.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. It has no effect
// when no config file was read.
func (cm *Manager) WatchConfig() {
	if cm.v.ConfigFileUsed() == "" {
		return
	}
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to the specified path.
// An existing file is left untouched unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := Marshal(DefaultConfig())
	if err != nil {
		return err
	}

	header := []byte(`# uktt configuration
# Every key can be overridden with a UKTT_ environment variable,
# e.g. UKTT_CURRENCY=EUR or UKTT_HTTP_TIMEOUT_SECONDS=30.
# HOST, VER and PROD are also honoured. An empty host selects the local
# API server, or production when prod is true.
# exchange_rate 0 uses the latest published EUR rate.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
