// Package config loads the optional YAML configuration file for the CLI.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	DefaultPriority int           `yaml:"default_priority"`
	Cloud           CloudConfig   `yaml:"cloud"`
	Trainer         TrainerConfig `yaml:"trainer"`
}

// CloudConfig configures the analytics bridge.
type CloudConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	CAFile       string        `yaml:"ca_file"`
	CertFile     string        `yaml:"cert_file"`
	KeyFile      string        `yaml:"key_file"`
	SyncInterval time.Duration `yaml:"sync_interval"`
}

// TrainerConfig configures the feedback trainer.
type TrainerConfig struct {
	Image     string        `yaml:"image"`
	ModelPath string        `yaml:"model_path"`
	Interval  time.Duration `yaml:"interval"`
}

func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}
	if c.DefaultPriority <= 0 {
		c.DefaultPriority = 5
	}
	if c.Cloud.Port <= 0 {
		c.Cloud.Port = 443
	}
	if c.Cloud.SyncInterval <= 0 {
		c.Cloud.SyncInterval = 5 * time.Minute
	}
	if c.Trainer.Image == "" {
		c.Trainer.Image = "pytorch/training:latest"
	}
	if c.Trainer.Interval <= 0 {
		c.Trainer.Interval = 12 * time.Hour
	}
}

// Load reads the configuration from path. A missing file (or empty path)
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("could not parse config file: %w", err)
			}
		}
	}

	cfg.defaults()
	return cfg, nil
}
