package airflow

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"airflow-mcp/internal/registry"
	"airflow-mcp/pkg/logging"
)

// DefaultTimeout bounds every request to a backend when the caller does not
// configure one.
const DefaultTimeout = 30 * time.Second

// Config tunes factory-wide client behavior.
type Config struct {
	// Timeout is the per-request cap applied to every client. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// ExtendedClearParams opts all instances into the Airflow 2.6+ clear
	// flags. Off by default to stay compatible with 2.5 deployments.
	ExtendedClearParams bool
}

// Factory builds and caches one Client per instance key. Construction is
// deduplicated so concurrent first requests for the same instance share a
// single client, and the cached client is reused for the process lifetime.
type Factory struct {
	reg *registry.Registry
	cfg Config

	mu      sync.RWMutex
	clients map[string]*Client
	group   singleflight.Group
}

// NewFactory returns a factory bound to a registry.
func NewFactory(reg *registry.Registry, cfg Config) *Factory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Factory{
		reg:     reg,
		cfg:     cfg,
		clients: make(map[string]*Client),
	}
}

// Client returns the cached client for an instance key, constructing it on
// first use. Unknown keys fail with NOT_FOUND from the registry.
func (f *Factory) Client(key string) (*Client, error) {
	f.mu.RLock()
	c, ok := f.clients[key]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}

	v, err, _ := f.group.Do(key, func() (interface{}, error) {
		f.mu.RLock()
		cached, ok := f.clients[key]
		f.mu.RUnlock()
		if ok {
			return cached, nil
		}

		inst, err := f.reg.Get(key)
		if err != nil {
			return nil, err
		}
		built, err := newClient(inst, f.cfg.Timeout, f.cfg.ExtendedClearParams)
		if err != nil {
			return nil, err
		}
		logging.Info("Airflow", "created client for instance %s (%s, auth=%s)",
			inst.Key, inst.Host, inst.Auth.Type)

		f.mu.Lock()
		f.clients[key] = built
		f.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

// Capabilities resolves the feature descriptor for an instance key.
func (f *Factory) Capabilities(key string) (Capabilities, error) {
	c, err := f.Client(key)
	if err != nil {
		return Capabilities{}, err
	}
	return c.Capabilities(), nil
}

// Registry returns the registry this factory resolves keys against.
func (f *Factory) Registry() *registry.Registry { return f.reg }

// Reset drops all cached clients. Used by tests and when the registry file
// changes on disk.
func (f *Factory) Reset() {
	f.mu.Lock()
	f.clients = make(map[string]*Client)
	f.mu.Unlock()
}
