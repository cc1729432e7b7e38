package registry

import (
	"fmt"
	"sort"
	"sync"
)

// SliceClassifier maps the invocation argument of a task to its slice.
type SliceClassifier interface {
	// Classify returns the slice in nanoseconds for the given argument.
	Classify(arg int64) uint64
	// Bounds returns the inclusive argument range covered by the table.
	Bounds() (min, max int64)
}

// ProfileFactory is a function type that creates the classifier of a mode
type ProfileFactory func(config *SchedConfig) (SliceClassifier, error)

var (
	// profileRegistry stores registered profile factories
	profileRegistry = make(map[string]ProfileFactory)
	registryMutex   sync.RWMutex
)

// RegisterProfile registers a profile factory for a specific mode
// This should be called in the init() function of the package providing the profile
func RegisterProfile(mode string, factory ProfileFactory) error {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if mode == "" {
		return fmt.Errorf("profile mode cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("profile factory cannot be nil")
	}

	if _, exists := profileRegistry[mode]; exists {
		return fmt.Errorf("profile mode '%s' is already registered", mode)
	}

	profileRegistry[mode] = factory
	return nil
}

// NewClassifier creates the slice classifier selected by the configuration
func NewClassifier(config *SchedConfig) (SliceClassifier, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	registryMutex.RLock()
	factory, exists := profileRegistry[config.Mode]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown profile mode: %s", config.Mode)
	}

	return factory(config)
}

// GetRegisteredModes returns a sorted list of all registered profile modes
func GetRegisteredModes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	modes := make([]string, 0, len(profileRegistry))
	for mode := range profileRegistry {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}

// The following helpers are intended for tests only.
func ClearRegistryForTests() {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	profileRegistry = make(map[string]ProfileFactory)
}

func SnapshotRegistryForTests() map[string]ProfileFactory {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	copyMap := make(map[string]ProfileFactory, len(profileRegistry))
	for k, v := range profileRegistry {
		copyMap[k] = v
	}
	return copyMap
}

func RestoreRegistryForTests(m map[string]ProfileFactory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	profileRegistry = m
}
