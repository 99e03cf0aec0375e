package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umi-ai/umi/internal/config"
)

func TestLoad(t *testing.T) {
	tests := map[string]struct {
		configYAML string
		noFile     bool
		expConfig  config.Config
		expErr     bool
	}{
		"A missing file should yield the defaults": {
			noFile: true,
			expConfig: config.Config{
				Workers:         4,
				QueueSize:       100,
				DefaultPriority: 5,
				Cloud: config.CloudConfig{
					Port:         443,
					SyncInterval: 5 * time.Minute,
				},
				Trainer: config.TrainerConfig{
					Image:    "pytorch/training:latest",
					Interval: 12 * time.Hour,
				},
			},
		},

		"An empty file should yield the defaults": {
			configYAML: "",
			expConfig: config.Config{
				Workers:         4,
				QueueSize:       100,
				DefaultPriority: 5,
				Cloud: config.CloudConfig{
					Port:         443,
					SyncInterval: 5 * time.Minute,
				},
				Trainer: config.TrainerConfig{
					Image:    "pytorch/training:latest",
					Interval: 12 * time.Hour,
				},
			},
		},

		"A full file should override the defaults": {
			configYAML: `
workers: 8
queue_size: 50
default_priority: 2
cloud:
  host: analytics.example.com
  port: 8443
  ca_file: /etc/umi/ca.pem
  sync_interval: 1m
trainer:
  image: custom/train:v2
  model_path: /var/lib/umi/model.pt
  interval: 6h
`,
			expConfig: config.Config{
				Workers:         8,
				QueueSize:       50,
				DefaultPriority: 2,
				Cloud: config.CloudConfig{
					Host:         "analytics.example.com",
					Port:         8443,
					CAFile:       "/etc/umi/ca.pem",
					SyncInterval: time.Minute,
				},
				Trainer: config.TrainerConfig{
					Image:     "custom/train:v2",
					ModelPath: "/var/lib/umi/model.pt",
					Interval:  6 * time.Hour,
				},
			},
		},

		"A broken file should fail": {
			configYAML: "workers: [not a number",
			expErr:     true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			path := filepath.Join(t.TempDir(), "config.yaml")
			if !test.noFile {
				require.NoError(os.WriteFile(path, []byte(test.configYAML), 0644))
			}

			cfg, err := config.Load(path)

			if test.expErr {
				assert.Error(err)
				return
			}
			require.NoError(err)
			assert.Equal(test.expConfig, *cfg)
		})
	}
}
