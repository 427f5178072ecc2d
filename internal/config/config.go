package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const minTickIntervalMs = 50

type StorageConfig struct {
	Backend      string `mapstructure:"backend"` // "sqlite" or "file"
	DatabasePath string `mapstructure:"database_path"`
	DataDir      string `mapstructure:"data_dir"`
}

type TimerConfig struct {
	TickIntervalMs int `mapstructure:"tick_interval_ms"`
	DefaultMinutes int `mapstructure:"default_minutes"`
}

type Config struct {
	Storage    StorageConfig `mapstructure:"storage"`
	SocketPath string        `mapstructure:"socket_path"`
	Timer      TimerConfig   `mapstructure:"timer"`
	Timezone   string        `mapstructure:"timezone"` // IANA name, empty for local time
	FocusWake  bool          `mapstructure:"focus_wake"`
	PidFile    string        `mapstructure:"pid_file"`

	v *viper.Viper
}

// LoadEnvFile exports the variables of a dotenv file that are not already
// set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	log.Printf("Loaded environment from %s", path)
	return nil
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/studyfocus")
		v.AddConfigPath("/etc/studyfocus/")
	}

	v.SetEnvPrefix("STUDYFOCUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.database_path", "studyfocus.db")
	v.SetDefault("storage.data_dir", "studyfocus-data")
	v.SetDefault("socket_path", "/tmp/studyfocus.sock")
	v.SetDefault("timer.tick_interval_ms", 1000)
	v.SetDefault("timer.default_minutes", 25)
	v.SetDefault("timezone", "")
	v.SetDefault("focus_wake", false)
	v.SetDefault("pid_file", "/tmp/studyfocus.pid")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Println("Config file not found, using defaults.")
		} else {
			return nil, err
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	log.Printf("Configuration loaded: %+v", *cfg)
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.v = v

	if cfg.Storage.Backend != "sqlite" && cfg.Storage.Backend != "file" {
		log.Printf("Warning: invalid storage.backend '%s', defaulting to 'sqlite'", cfg.Storage.Backend)
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Timer.TickIntervalMs < minTickIntervalMs {
		log.Printf("Warning: timer.tick_interval_ms too low, setting to %d", minTickIntervalMs)
		cfg.Timer.TickIntervalMs = minTickIntervalMs
	}
	if cfg.Timer.DefaultMinutes < 1 {
		log.Println("Warning: timer.default_minutes must be positive, setting to 25")
		cfg.Timer.DefaultMinutes = 25
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			log.Printf("Warning: unknown timezone '%s', using local time", cfg.Timezone)
			cfg.Timezone = ""
		}
	}
	return &cfg, nil
}

// Watch calls onChange with the re-read configuration whenever the config
// file changes on disk. It does nothing when no file was loaded.
func (c *Config) Watch(onChange func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed: %s (%s)", e.Name, e.Op)
		next, err := decode(c.v)
		if err != nil {
			log.Printf("Warning: Ignoring invalid config change: %v", err)
			return
		}
		onChange(next)
	})
	c.v.WatchConfig()
}

func (t TimerConfig) TickInterval() time.Duration {
	return time.Duration(t.TickIntervalMs) * time.Millisecond
}

// Location resolves Timezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
