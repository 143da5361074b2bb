package config

import (
	"encoding/json"
	"os"
	"time"
)

// Create new config instance
func NewConfig() *Config {
	return &Config{}
}

// Load configuration file in json format
func (c *Config) Read(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return err
	}
	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	if c.Queue.Group == "" {
		c.Queue.Group = "photo-optima"
	}
	if c.Queue.Consumer == "" {
		c.Queue.Consumer = "worker-1"
	}
	if c.Queue.MaxAttempts == 0 {
		c.Queue.MaxAttempts = 5
	}
	if c.Queue.MaxLen == 0 {
		c.Queue.MaxLen = 10000
	}
	if c.Queue.BackoffBase == 0 {
		c.Queue.BackoffBase = time.Second
	}
	if c.Queue.BlockTimeout == 0 {
		c.Queue.BlockTimeout = 5 * time.Second
	}
	if c.Queue.DeadLetterStream == "" {
		c.Queue.DeadLetterStream = "pipeline_dead_letter"
	}

	// Durations in the file are plain seconds.
	if c.Redis.HealthCheckInterval == 0 {
		c.Redis.HealthCheckInterval = 30
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 20
	}
}
