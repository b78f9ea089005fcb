package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.QueueDir == "" {
		return errors.New("paths.queue_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.DatabaseDir == "" {
		return errors.New("paths.database_dir must be set")
	}
	return nil
}

func (c *Config) validateRemote() error {
	prefix := strings.TrimSpace(c.Remote.BakedPrefix)
	if prefix == "" {
		return errors.New("remote.baked_prefix must be set")
	}
	if !strings.Contains(prefix, "://") {
		return fmt.Errorf("remote.baked_prefix %q must be a store URI such as bos://bucket/prefix/", prefix)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.WaitPollInterval <= 0 {
		return errors.New("workflow.wait_poll_interval must be positive")
	}
	if c.Workflow.WaitTimeout <= 0 {
		return errors.New("workflow.wait_timeout must be positive")
	}
	if c.Engine.TimeoutSeconds < 0 {
		return errors.New("engine.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	return nil
}
