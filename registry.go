package stomp_costs

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.viam.com/rdk/logging"
)

// Constructor builds an unconfigured cost function.
type Constructor func(kin *Kinematics, logger logging.Logger) CostFunction

var (
	constructorsMu sync.RWMutex
	constructors   = map[string]Constructor{}
)

// Register adds a cost function variant. It panics on duplicate names, like init-time
// registration elsewhere.
func Register(name string, ctor Constructor) {
	constructorsMu.Lock()
	defer constructorsMu.Unlock()
	if _, exists := constructors[name]; exists {
		panic(fmt.Sprintf("cost function %q registered twice", name))
	}
	constructors[name] = ctor
}

// Registered returns the names of all cost function variants.
func Registered() []string {
	constructorsMu.RLock()
	defer constructorsMu.RUnlock()
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds and configures the variant called name.
func New(name string, kin *Kinematics, cfg *Config, logger logging.Logger) (CostFunction, error) {
	constructorsMu.RLock()
	ctor, ok := constructors[name]
	constructorsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown cost function %q, registered: %v", name, Registered())
	}
	cf := ctor(kin, logger)
	if err := cf.Configure(cfg); err != nil {
		return nil, err
	}
	return cf, nil
}

// CostFunctionEntry is a shared, configured cost function for one planning group.
type CostFunctionEntry struct {
	costFunction CostFunction
	name         string
	config       *Config
	refCount     int64 // Atomic reference counter
	mu           sync.RWMutex
}

// CostFunctionRegistry shares cost functions between users of the same planning group so that
// a goal set by one of them is seen by all.
type CostFunctionRegistry struct {
	entries map[string]*CostFunctionEntry // group -> entry
	mu      sync.RWMutex
}

// NewCostFunctionRegistry returns an empty registry.
func NewCostFunctionRegistry() *CostFunctionRegistry {
	return &CostFunctionRegistry{entries: make(map[string]*CostFunctionEntry)}
}

// GetCostFunction returns the shared cost function for group, creating it on first use.
// A request for the same group with a different variant or weights is a conflict.
func (r *CostFunctionRegistry) GetCostFunction(group, name string, kin *Kinematics, cfg *Config, logger logging.Logger) (CostFunction, error) {
	// The read lock is held until the reference is taken so a concurrent release cannot
	// delete the entry in between.
	r.mu.RLock()
	if entry, exists := r.entries[group]; exists {
		cf, err := r.getExisting(entry, name, cfg)
		r.mu.RUnlock()
		return cf, err
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[group]; exists {
		return r.getExisting(entry, name, cfg)
	}

	cf, err := New(name, kin, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cost function for group %s: %w", group, err)
	}
	r.entries[group] = &CostFunctionEntry{costFunction: cf, name: name, config: cfg, refCount: 1}
	if logger != nil {
		logger.Infof("Created %s cost function for group %s", name, group)
	}
	return cf, nil
}

// getExisting takes a reference on entry. r.mu must be held.
func (r *CostFunctionRegistry) getExisting(entry *CostFunctionEntry, name string, cfg *Config) (CostFunction, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.name != name || !configsEqual(entry.config, cfg) {
		currentRefCount := atomic.LoadInt64(&entry.refCount)
		return nil, fmt.Errorf("conflict: existing cost function uses different config (refCount: %d)", currentRefCount)
	}
	atomic.AddInt64(&entry.refCount, 1)
	return entry.costFunction, nil
}

// ReleaseCostFunction drops one reference and removes the entry once unused.
func (r *CostFunctionRegistry) ReleaseCostFunction(group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[group]
	if !exists {
		return
	}
	if atomic.AddInt64(&entry.refCount, -1) <= 0 {
		delete(r.entries, group)
	}
}

// Status returns the reference count and variant for group.
func (r *CostFunctionRegistry) Status(group string) (int64, string, bool) {
	r.mu.RLock()
	entry, exists := r.entries[group]
	r.mu.RUnlock()
	if !exists {
		return 0, "", false
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return atomic.LoadInt64(&entry.refCount), entry.name, true
}

// Compare configs for compatibility
func configsEqual(a, b *Config) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Weights() == b.Weights() &&
		a.GoalDefaults() == b.GoalDefaults()
}
