// Package file loads the entities/events/edges artifacts from local
// YAML files (the default, self-describing textual format) or JSONL
// siblings, selected by file extension. The three files are read
// concurrently with golang.org/x/sync/errgroup — pure I/O parallelism,
// the deterministic validation pass in graphstore.NewFromArtifacts still
// runs once the reads complete.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/itihasa/kgq/internal/graphstore"
	"github.com/itihasa/kgq/internal/types"
)

// Source loads the three artifacts from a directory. It looks for
// entities.yaml/events.yaml/edges.yaml first, falling back to the .jsonl
// sibling of each name.
type Source struct {
	Dir string
}

// New returns a file-backed artifact source rooted at dir.
func New(dir string) *Source {
	return &Source{Dir: dir}
}

func (s *Source) Name() string { return "file" }

// Load reads and validates the three artifacts.
func (s *Source) Load(ctx context.Context) (*graphstore.Store, error) {
	var entities []types.Entity
	var events []types.Event
	var edges []types.Edge

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		entities, err = loadEntities(s.Dir)
		return err
	})
	g.Go(func() (err error) {
		events, err = loadEvents(s.Dir)
		return err
	})
	g.Go(func() (err error) {
		edges, err = loadEdges(s.Dir)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return graphstore.NewFromArtifacts(entities, events, edges)
}

func resolvePath(dir, base string) (string, error) {
	yamlPath := filepath.Join(dir, base+".yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath, nil
	}
	ymlPath := filepath.Join(dir, base+".yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath, nil
	}
	jsonlPath := filepath.Join(dir, base+".jsonl")
	if _, err := os.Stat(jsonlPath); err == nil {
		return jsonlPath, nil
	}
	return "", fmt.Errorf("no %s.yaml, %s.yml, or %s.jsonl found in %s", base, base, base, dir)
}

func loadEntities(dir string) ([]types.Entity, error) {
	path, err := resolvePath(dir, "entities")
	if err != nil {
		return nil, wrapLoad("entities", err)
	}
	var out []types.Entity
	if isJSONL(path) {
		out, err = readJSONL[types.Entity](path)
	} else {
		err = readYAML(path, &out)
	}
	if err != nil {
		return nil, wrapLoad("entities", err)
	}
	return out, nil
}

func loadEvents(dir string) ([]types.Event, error) {
	path, err := resolvePath(dir, "events")
	if err != nil {
		return nil, wrapLoad("events", err)
	}
	var out []types.Event
	if isJSONL(path) {
		out, err = readJSONL[types.Event](path)
	} else {
		err = readYAML(path, &out)
	}
	if err != nil {
		return nil, wrapLoad("events", err)
	}
	return out, nil
}

func loadEdges(dir string) ([]types.Edge, error) {
	path, err := resolvePath(dir, "edges")
	if err != nil {
		return nil, wrapLoad("edges", err)
	}
	var out []types.Edge
	if isJSONL(path) {
		out, err = readJSONL[types.Edge](path)
	} else {
		err = readYAML(path, &out)
	}
	if err != nil {
		return nil, wrapLoad("edges", err)
	}
	return out, nil
}

func isJSONL(path string) bool {
	return strings.HasSuffix(path, ".jsonl")
}

func readYAML[T any](path string, out *[]T) error {
	data, err := os.ReadFile(path) // #nosec G304 - path built from configured data directory
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func wrapLoad(artifact string, err error) error {
	return &graphstore.LoadError{Artifact: artifact, Reason: "file source", Err: err}
}
