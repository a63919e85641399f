package core

import (
	"fmt"
	"slices"
	"sync"
)

// TableOrder is the fixed processing order. Association tables come after
// the tables they reference.
var TableOrder = []string{"film_work", "genre", "genre_film_work", "person", "person_film_work"}

var (
	registry   = make(map[string]TableDefinition)
	registryMu sync.RWMutex
)

// Register adds a table definition to the registry.
// Panics if a table with the same key is already registered or the
// definition is incomplete.
func Register(def TableDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Info.Key))
	}
	if def.New == nil || len(def.FieldSpecs) == 0 {
		panic(fmt.Sprintf("table %s: FieldSpecs and New are required", def.Info.Key))
	}

	// Populate Columns from FieldSpecs if not set
	if len(def.Info.Columns) == 0 {
		def.Info.Columns = make([]string, len(def.FieldSpecs))
		for i, spec := range def.FieldSpecs {
			def.Info.Columns[i] = spec.Name
		}
	}
	if def.Info.PrimaryKey == "" {
		def.Info.PrimaryKey = "id"
	}

	registry[def.Info.Key] = def
}

// Get returns a table definition by key.
// Returns false if not found.
func Get(key string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// Lookup returns a table definition by key, or a ConfigurationError when
// the key is not one of the registered tables.
func Lookup(key string) (TableDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return TableDefinition{}, &ConfigurationError{Field: "table", Value: key, Reason: "unknown table"}
	}
	return def, nil
}

// Ordered returns the registered table definitions in TableOrder.
func Ordered() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableDefinition, 0, len(registry))
	for _, key := range TableOrder {
		if def, ok := registry[key]; ok {
			result = append(result, def)
		}
	}
	return result
}

// Resolve returns the definitions for keys, sorted into TableOrder.
// An empty keys selects every registered table.
func Resolve(keys []string) ([]TableDefinition, error) {
	if len(keys) == 0 {
		return Ordered(), nil
	}

	seen := make(map[string]bool, len(keys))
	result := make([]TableDefinition, 0, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true

		def, err := Lookup(key)
		if err != nil {
			return nil, err
		}
		result = append(result, def)
	}

	slices.SortStableFunc(result, func(a, b TableDefinition) int {
		return orderIndex(a.Info.Key) - orderIndex(b.Info.Key)
	})
	return result, nil
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

func orderIndex(key string) int {
	if i := slices.Index(TableOrder, key); i >= 0 {
		return i
	}
	return len(TableOrder)
}
