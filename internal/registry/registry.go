// Package registry loads and caches the declarative list of Airflow
// deployments this server may talk to. The registry is loaded exactly once
// per process, at startup, and is read-only afterwards; it is the source of
// truth for the hostname allow-list used by URL resolution.
package registry

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"sync"

	"airflow-mcp/internal/toolerr"
	"airflow-mcp/pkg/logging"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const subsystem = "Registry"

// KeyPattern constrains instance keys: leading alphanumeric, then
// alphanumerics, underscore, dot, or dash.
var KeyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// Registry is the immutable mapping from instance key to deployment
// configuration, plus an optional default key.
type Registry struct {
	instances  map[string]Instance
	keys       []string
	defaultKey string
}

// Get returns the instance for key, or a NOT_FOUND error.
func (r *Registry) Get(key string) (Instance, error) {
	inst, ok := r.instances[key]
	if !ok {
		return Instance{}, toolerr.Newf(toolerr.CodeNotFound, "Unknown instance '%s'", key).
			WithContext("instance", key)
	}
	return inst, nil
}

// Keys returns the instance keys in sorted order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// DefaultKey returns the configured default instance key, or "".
func (r *Registry) DefaultKey() string {
	return r.defaultKey
}

// Describe returns the secret-free descriptor for key.
func (r *Registry) Describe(key string) (Descriptor, error) {
	inst, err := r.Get(key)
	if err != nil {
		return Descriptor{}, err
	}
	return inst.Describe(), nil
}

// KeyForHost returns the instance key whose configured host has exactly the
// given hostname. Matching is byte-for-byte string equality; no prefix,
// suffix, or DNS-based matching is ever attempted (SSRF guard).
func (r *Registry) KeyForHost(hostname string) (string, bool) {
	for _, key := range r.keys {
		u, err := url.Parse(r.instances[key].Host)
		if err != nil {
			continue
		}
		if u.Hostname() == hostname {
			return key, true
		}
	}
	return "", false
}

// Load parses the registry YAML at path, resolves ${ENV_VAR} placeholders,
// validates every deployment definition, and returns an immutable Registry.
// All failures carry the CONFIG_ERROR code and happen before any operation
// can run.
func Load(path string, defaultKey string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, toolerr.Newf(toolerr.CodeConfigError, "Instances file not found: %s", path).
			WithContext("path", path)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, toolerr.Newf(toolerr.CodeConfigError, "Invalid registry YAML: %v", err)
	}
	if err := expandEnvNode(&root); err != nil {
		return nil, toolerr.New(toolerr.CodeConfigError, err.Error())
	}

	var raw map[string]InstanceConfig
	if err := root.Decode(&raw); err != nil {
		return nil, toolerr.Newf(toolerr.CodeConfigError, "Invalid registry YAML: expected a mapping of instances: %v", err)
	}
	if len(raw) == 0 {
		return nil, toolerr.New(toolerr.CodeConfigError, "No instances configured in registry YAML")
	}

	instances := make(map[string]Instance, len(raw))
	keys := make([]string, 0, len(raw))
	for key, cfg := range raw {
		if !KeyPattern.MatchString(key) {
			return nil, toolerr.Newf(toolerr.CodeConfigError, "Invalid instance key '%s'", key).
				WithContext("instance", key)
		}
		inst, err := normalize(key, cfg)
		if err != nil {
			return nil, err
		}
		instances[key] = inst
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if defaultKey != "" {
		if _, ok := instances[defaultKey]; !ok {
			return nil, toolerr.Newf(toolerr.CodeConfigError,
				"Default instance '%s' not found in registry", defaultKey).
				WithContext("instance", defaultKey)
		}
	}

	return &Registry{instances: instances, keys: keys, defaultKey: defaultKey}, nil
}

// normalize validates a raw definition and applies defaults.
func normalize(key string, cfg InstanceConfig) (Instance, error) {
	if err := validatorInstance().Struct(cfg); err != nil {
		return Instance{}, toolerr.Newf(toolerr.CodeConfigError,
			"Invalid configuration for instance '%s': %v", key, err).
			WithContext("instance", key)
	}
	if err := validateAuth(cfg.Auth); err != nil {
		return Instance{}, toolerr.Newf(toolerr.CodeConfigError,
			"Invalid configuration for instance '%s': %v", key, err).
			WithContext("instance", key)
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "v1"
	}
	verifySSL := true
	if cfg.VerifySSL != nil {
		verifySSL = *cfg.VerifySSL
	}

	return Instance{
		Key:        key,
		Host:       cfg.Host,
		APIVersion: apiVersion,
		VerifySSL:  verifySSL,
		Auth:       cfg.Auth,
	}, nil
}

// validateAuth enforces the tagged-union shape beyond what struct tags can
// express.
func validateAuth(auth AuthConfig) error {
	switch auth.Type {
	case AuthTypeBasic:
		if auth.Username == "" || auth.Password == "" {
			return fmt.Errorf("auth type 'basic' requires username and password")
		}
		if auth.Token != "" {
			return fmt.Errorf("auth type 'basic' does not accept a token")
		}
	case AuthTypeBearer:
		if auth.Token == "" {
			return fmt.Errorf("auth type 'bearer' requires a token")
		}
		if auth.Username != "" || auth.Password != "" {
			return fmt.Errorf("auth type 'bearer' does not accept username or password")
		}
	default:
		return fmt.Errorf("unsupported auth type '%s'", auth.Type)
	}
	return nil
}

var (
	globalMu sync.Mutex
	global   *Registry
)

// Init loads the process-wide registry. Loading is idempotent: a second call
// returns the already-loaded registry and ignores its arguments. Call this
// once during startup so a broken registry fails the process before it
// serves any request.
func Init(path string, defaultKey string) (*Registry, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return global, nil
	}
	reg, err := Load(path, defaultKey)
	if err != nil {
		return nil, err
	}
	global = reg
	logging.Info(subsystem, "Loaded %d instance(s) from %s", len(reg.keys), path)
	return global, nil
}

// Global returns the process-wide registry loaded by Init.
func Global() (*Registry, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		return nil, toolerr.New(toolerr.CodeConfigError, "Instance registry is not loaded")
	}
	return global, nil
}

// ResetForTest clears the cached registry. Test isolation only; nothing in
// the request path calls this.
func ResetForTest() {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = nil
}

// SetForTest installs a pre-built registry as the process-wide one. Test
// use only.
func SetForTest(reg *Registry) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = reg
}

// NewForTest builds a Registry directly from instances. Test use only;
// production code always goes through Load.
func NewForTest(defaultKey string, instances ...Instance) *Registry {
	m := make(map[string]Instance, len(instances))
	keys := make([]string, 0, len(instances))
	for _, inst := range instances {
		m[inst.Key] = inst
		keys = append(keys, inst.Key)
	}
	sort.Strings(keys)
	return &Registry{instances: m, keys: keys, defaultKey: defaultKey}
}
