package config

import (
	"fmt"
	"sort"

	"github.com/kbukum/eventkit/dispatch"
	"github.com/kbukum/eventkit/logger"
	"github.com/kbukum/eventkit/validation"
)

var environments = []string{"development", "staging", "production"}

// Config is the configuration an eventkit application carries: identity,
// logging and the named dispatchers it schedules on. Applications embed it
// in their own struct.
//
//	type AppConfig struct {
//	    config.Config `yaml:",inline" mapstructure:",squash"`
//	    Feed FeedConfig `yaml:"feed" mapstructure:"feed"`
//	}
type Config struct {
	Name        string                     `yaml:"name" mapstructure:"name"`
	Environment string                     `yaml:"environment" mapstructure:"environment"`
	Debug       bool                       `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config              `yaml:"logging" mapstructure:"logging"`
	Dispatchers map[string]dispatch.Config `yaml:"dispatchers" mapstructure:"dispatchers"`
}

// ApplyDefaults fills in the environment, debug logging in development and
// per-dispatcher defaults. A dispatcher entry without a name takes its key.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
		if c.Logging.Level == "" {
			c.Logging.Level = "debug"
		}
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()

	for key, d := range c.Dispatchers {
		if d.Name == "" {
			d.Name = key
		}
		d.ApplyDefaults()
		c.Dispatchers[key] = d
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	v := validation.New("config")
	v.Required("name", c.Name).OneOf("environment", c.Environment, environments)
	if err := c.Logging.Validate(); err != nil {
		v.AddError("logging", err.Error())
	}
	keys := make([]string, 0, len(c.Dispatchers))
	for key := range c.Dispatchers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		d := c.Dispatchers[key]
		v.Custom(d.Name == "" || d.Name == key, "dispatchers."+key+".name", "must match its key")
		if err := d.Validate(); err != nil {
			v.AddError("dispatchers."+key, err.Error())
		}
	}
	return v.Validate()
}

// Load reads, defaults and validates the configuration for appName.
func Load(appName string, opts ...LoaderOption) (*Config, error) {
	var cfg Config
	if err := LoadConfig(appName, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = appName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", appName, err)
	}
	return &cfg, nil
}

// Init installs the global logger and builds the configured dispatchers.
// The caller owns the returned set and stops it on shutdown.
func (c *Config) Init() (*dispatch.Set, error) {
	logger.Init(c.Logging)
	set, err := dispatch.NewSet(c.Dispatchers)
	if err != nil {
		return nil, err
	}
	logger.Get("eventkit.config").Info("eventkit initialised", logger.Fields(
		"environment", c.Environment,
		"dispatchers", len(set.Names()),
	))
	return set, nil
}
