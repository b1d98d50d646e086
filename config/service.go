package config

import (
	"fmt"

	"github.com/kbukum/easychat/logger"
)

// ServiceConfig holds the identity of the running service and its logging.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Log         logger.Config `yaml:"log" mapstructure:"log"`
}

// ApplyDefaults applies default values to the base configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "easy-chat"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Log.Level == "" {
		c.Log.Level = "debug"
	}
	c.Log.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("config.log: %w", err)
	}
	return nil
}
