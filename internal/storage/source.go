// Package storage defines the interface shared by every artifact source
// that can produce a Graph Store snapshot: a local file pair/triplet, a
// SQL-backed collaborator database, or a remote bundle fetched over HTTP.
package storage

import (
	"context"

	"github.com/itihasa/kgq/internal/graphstore"
)

// ArtifactSource loads the entities/events/edges artifacts and builds a
// validated, immutable Graph Store. Implementations never mutate the
// artifacts they read; the resulting Store's invariants are enforced once,
// centrally, by graphstore.NewFromArtifacts.
type ArtifactSource interface {
	// Load reads the three artifacts and returns a fully validated Store,
	// or a *graphstore.LoadError describing why it could not.
	Load(ctx context.Context) (*graphstore.Store, error)

	// Name identifies the source kind for logging/tracing ("file", "sql",
	// "remote").
	Name() string
}
