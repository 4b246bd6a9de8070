package contentkit

import (
	"fmt"
	"sort"
	"sync"
)

// StorageFactory is a function that creates a Storage from a config
type StorageFactory func(cfg *Config) (Storage, error)

var (
	storageFactories = make(map[string]StorageFactory)
	factoryMutex     sync.RWMutex
)

// RegisterStorage registers a storage factory function
func RegisterStorage(name string, factory StorageFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	storageFactories[name] = factory
}

// CreateStorage creates a storage instance from config
func CreateStorage(cfg *Config) (Storage, error) {
	factoryMutex.RLock()
	factory, exists := storageFactories[cfg.Storage]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("storage %s not registered", cfg.Storage)
	}

	return factory(cfg)
}

// RegisteredStorages returns the names of all registered storage drivers.
func RegisteredStorages() []string {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()

	names := make([]string, 0, len(storageFactories))
	for name := range storageFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
