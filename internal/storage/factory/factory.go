// Package factory selects an ArtifactSource implementation based on
// configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/itihasa/kgq/internal/storage"
	"github.com/itihasa/kgq/internal/storage/file"
	"github.com/itihasa/kgq/internal/storage/remote"
	kgsql "github.com/itihasa/kgq/internal/storage/sql"
)

// Kind names one of the supported artifact source backends.
type Kind string

const (
	KindFile   Kind = "file"
	KindSQL    Kind = "sql"
	KindRemote Kind = "remote"
)

// Options configures whichever backend Kind selects.
type Options struct {
	// Dir is the local directory for KindFile.
	Dir string
	// URL is the bundle URL for KindRemote.
	URL string
	// SQL configures KindSQL.
	SQL kgsql.Config
}

// New builds the ArtifactSource named by kind. For KindSQL it opens (and
// may retry) the database connection; callers owning a *sql.Source should
// Close it once the Store it produced is no longer needed.
func New(ctx context.Context, kind Kind, opts Options) (storage.ArtifactSource, error) {
	switch kind {
	case KindFile, "":
		return file.New(opts.Dir), nil
	case KindRemote:
		return remote.New(opts.URL), nil
	case KindSQL:
		return kgsql.New(ctx, opts.SQL)
	default:
		return nil, fmt.Errorf("unknown artifact source kind: %q (supported: file, sql, remote)", kind)
	}
}
