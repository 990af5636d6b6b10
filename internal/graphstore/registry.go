package graphstore

import (
	"strings"

	"github.com/itihasa/kgq/internal/types"
)

// Registry is the Entity Registry Snapshot: a read-only alias -> entity
// mapping derived once from the Store at load time and consumed only by
// the Query Planner. It holds no reference back into the Store itself.
type Registry struct {
	byAlias map[string]types.RegistryEntity
}

// Lookup resolves a case-insensitive alias to its entity record.
func (r *Registry) Lookup(alias string) (types.RegistryEntity, bool) {
	e, ok := r.byAlias[strings.ToLower(strings.TrimSpace(alias))]
	return e, ok
}
