// Package sql loads the entities/events/edges artifacts from a
// Dolt/MySQL-compatible database, for deployments where the
// graph-construction collaborator publishes into a shared database
// instead of flat files.
package sql

import (
	"context"
	"database/sql"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/dolthub/driver"     // embedded Dolt driver, registered as "dolt"
	_ "github.com/go-sql-driver/mysql" // server-mode Dolt/MySQL driver, registered as "mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/itihasa/kgq/internal/graphstore"
	"github.com/itihasa/kgq/internal/types"
)

var tracer = otel.Tracer("kgq/storage/sql")

// Config points at a Dolt/MySQL-compatible database holding the three
// artifact tables: kg_entities, kg_events, kg_edges.
type Config struct {
	Driver string // "dolt" (embedded) or "mysql" (server mode)
	DSN    string
	MaxRetries uint64
}

// Source loads the three artifacts from SQL tables.
type Source struct {
	cfg Config
	db  *sql.DB
}

// New opens (but does not yet query) the configured database, retrying
// transient connection failures with bounded exponential backoff.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.Driver == "" {
		cfg.Driver = "dolt"
	}
	var db *sql.DB
	open := func() error {
		var err error
		db, err = sql.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return err
		}
		return db.PingContext(ctx)
	}

	bo := backoff.NewExponentialBackOff()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	retryable := backoff.WithMaxRetries(bo, cfg.MaxRetries)
	if err := backoff.Retry(open, retryable); err != nil {
		return nil, &graphstore.LoadError{Artifact: "connection", Reason: "sql source", Err: err}
	}
	return &Source{cfg: cfg, db: db}, nil
}

func (s *Source) Name() string { return "sql" }

// Close releases the underlying connection pool.
func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads and validates the three artifact tables.
func (s *Source) Load(ctx context.Context) (*graphstore.Store, error) {
	ctx, span := tracer.Start(ctx, "sql.Load")
	defer span.End()

	entities, err := s.loadEntities(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	events, err := s.loadEvents(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	edges, err := s.loadEdges(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("kgq.entities", len(entities)),
		attribute.Int("kgq.events", len(events)),
		attribute.Int("kgq.edges", len(edges)),
	)

	return graphstore.NewFromArtifacts(entities, events, edges)
}

func (s *Source) loadEntities(ctx context.Context) ([]types.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, canonical_name, kind, event_count, aliases_csv FROM kg_entities`)
	if err != nil {
		return nil, wrapLoad("entities", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Entity
	for rows.Next() {
		var e types.Entity
		var aliasesCSV string
		if err := rows.Scan(&e.ID, &e.CanonicalName, &e.Kind, &e.EventCount, &aliasesCSV); err != nil {
			return nil, wrapLoad("entities", err)
		}
		e.Aliases = splitCSV(aliasesCSV)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapLoad("entities", err)
	}
	return out, nil
}

func (s *Source) loadEvents(ctx context.Context) ([]types.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, tier, sentence, participants_csv FROM kg_events`)
	if err != nil {
		return nil, wrapLoad("events", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Event
	for rows.Next() {
		var ev types.Event
		var participantsCSV string
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Tier, &ev.Sentence, &participantsCSV); err != nil {
			return nil, wrapLoad("events", err)
		}
		ev.Participants = splitCSV(participantsCSV)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapLoad("events", err)
	}
	return out, nil
}

func (s *Source) loadEdges(ctx context.Context) ([]types.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, relation, target, evidence FROM kg_edges`)
	if err != nil {
		return nil, wrapLoad("edges", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Edge
	for rows.Next() {
		var e types.Edge
		if err := rows.Scan(&e.Source, &e.Relation, &e.Target, &e.Evidence); err != nil {
			return nil, wrapLoad("edges", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapLoad("edges", err)
	}
	return out, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func wrapLoad(artifact string, err error) error {
	return &graphstore.LoadError{Artifact: artifact, Reason: "sql source", Err: err}
}
