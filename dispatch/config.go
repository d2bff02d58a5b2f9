package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/eventkit/component"
	"github.com/kbukum/eventkit/errors"
	"github.com/kbukum/eventkit/logger"
	"github.com/kbukum/eventkit/validation"
)

// Kind selects a dispatch strategy.
type Kind string

const (
	KindPool   Kind = "pool"
	KindWorker Kind = "worker"
	KindSync   Kind = "sync"
)

// Config describes one named dispatcher.
type Config struct {
	Name    string `yaml:"name" mapstructure:"name" validate:"required"`
	Kind    Kind   `yaml:"kind" mapstructure:"kind" validate:"oneof=pool worker sync"`
	Workers int    `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
}

// ApplyDefaults fills in a pool kind and the default pool size.
func (c *Config) ApplyDefaults() {
	if c.Kind == "" {
		c.Kind = KindPool
	}
	if c.Kind == KindPool && c.Workers == 0 {
		c.Workers = DefaultPoolSize
	}
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// New builds the dispatcher described by cfg after applying defaults.
func New(cfg Config) (Dispatcher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case KindWorker:
		return NewWorker(cfg.Name), nil
	case KindSync:
		return NewSync(cfg.Name), nil
	default:
		return NewPool(cfg.Name, cfg.Workers), nil
	}
}

// Set owns a group of named dispatchers built from configuration. Pools and
// workers are managed as components.
type Set struct {
	mu          sync.RWMutex
	dispatchers map[string]Dispatcher
	registry    *component.Registry
}

// NewSet builds one dispatcher per entry. A config without a name takes its
// map key. Dispatchers are created in key order.
func NewSet(cfgs map[string]Config) (*Set, error) {
	s := &Set{
		dispatchers: make(map[string]Dispatcher, len(cfgs)),
		registry:    component.NewRegistry(),
	}

	keys := make([]string, 0, len(cfgs))
	for k := range cfgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		cfg := cfgs[key]
		if cfg.Name == "" {
			cfg.Name = key
		}
		if err := s.add(cfg); err != nil {
			_ = s.registry.StartAll(context.Background())
			_ = s.Stop(context.Background())
			return nil, fmt.Errorf("dispatcher %s: %w", key, err)
		}
	}
	// Pools and workers run from construction; starting them only records
	// that StopAll owns them.
	if err := s.registry.StartAll(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Set) add(cfg Config) error {
	if _, exists := s.dispatchers[cfg.Name]; exists {
		return errors.InvalidInput("name", "duplicate dispatcher "+cfg.Name)
	}
	d, err := New(cfg)
	if err != nil {
		return err
	}
	if c, ok := d.(component.Component); ok {
		if err := s.registry.Register(c); err != nil {
			return err
		}
	}
	s.dispatchers[cfg.Name] = d
	logger.Get("eventkit.dispatch").Debug("dispatcher created", logger.Fields(
		logger.FieldDispatcher, cfg.Name,
		"kind", string(cfg.Kind),
	))
	return nil
}

// Get returns the dispatcher registered under name.
func (s *Set) Get(name string) (Dispatcher, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dispatchers[name]
	return d, ok
}

// Names returns the dispatcher names in sorted order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.dispatchers))
	for name := range s.dispatchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stop shuts down every managed dispatcher in reverse order of creation,
// aggregating failures.
func (s *Set) Stop(ctx context.Context) error {
	return s.registry.StopAll(ctx)
}

// Health reports the health of every managed dispatcher.
func (s *Set) Health(ctx context.Context) []component.Health {
	return s.registry.HealthAll(ctx)
}
