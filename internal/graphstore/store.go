// Package graphstore loads and indexes the three persisted artifacts
// (entities, events, participation edges) that make up the static,
// read-only knowledge graph, and exposes O(1) lookups over them.
//
// A Store is built once by NewFromArtifacts (shared by every artifact
// source) and is immutable for the rest of the process; queries never
// mutate it, so concurrent queries may share one Store safely without a
// mutex.
package graphstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/itihasa/kgq/internal/types"
)

// Store is the read-only, indexed knowledge graph.
type Store struct {
	entitiesByID map[string]types.Entity
	entityByAlias map[string]string // lowercased alias -> entity id
	eventsByID   map[string]types.Event
	incidentTo   map[string][]string // entity id -> sorted event ids

	entityOrder []string // insertion order, for deterministic iteration
	eventOrder  []string
}

// NewFromArtifacts validates and indexes a raw set of entities, events,
// and edges into an immutable Store. Every artifact source (file, sql,
// remote) funnels through this single validation path.
func NewFromArtifacts(entities []types.Entity, events []types.Event, edges []types.Edge) (*Store, error) {
	s := &Store{
		entitiesByID:  make(map[string]types.Entity, len(entities)),
		entityByAlias: make(map[string]string),
		eventsByID:    make(map[string]types.Event, len(events)),
		incidentTo:    make(map[string][]string),
	}

	for _, e := range entities {
		if e.ID == "" {
			return nil, newLoadError("entities", "entity has empty id", nil)
		}
		if _, dup := s.entitiesByID[e.ID]; dup {
			return nil, newLoadError("entities", fmt.Sprintf("duplicate entity id %q", e.ID), nil)
		}
		s.entitiesByID[e.ID] = e
		s.entityOrder = append(s.entityOrder, e.ID)

		aliases := e.Aliases
		if !containsFold(aliases, e.CanonicalName) {
			aliases = append(aliases, e.CanonicalName)
		}
		for _, a := range aliases {
			key := strings.ToLower(strings.TrimSpace(a))
			if key == "" {
				continue
			}
			if existing, collide := s.entityByAlias[key]; collide && existing != e.ID {
				return nil, newLoadError("entities", fmt.Sprintf("alias %q claimed by both %q and %q", key, existing, e.ID), nil)
			}
			s.entityByAlias[key] = e.ID
		}
	}

	seenEventID := make(map[string]bool, len(events))
	for _, ev := range events {
		if _, dup := seenEventID[ev.ID]; dup {
			return nil, newLoadError("events", fmt.Sprintf("duplicate event id %q", ev.ID), nil)
		}
		if _, ok := ev.Suffix(); !ok {
			return nil, newLoadError("events", fmt.Sprintf("event id %q does not match E<int>", ev.ID), nil)
		}
		seenEventID[ev.ID] = true

		if len(ev.Participants) == 0 {
			return nil, newLoadError("events", fmt.Sprintf("event %q has no participants", ev.ID), nil)
		}
		dedup := make([]string, 0, len(ev.Participants))
		seenParticipant := make(map[string]bool, len(ev.Participants))
		for _, p := range ev.Participants {
			if _, ok := s.entitiesByID[p]; !ok {
				return nil, newLoadError("events", fmt.Sprintf("event %q references unknown entity %q", ev.ID, p), nil)
			}
			if seenParticipant[p] {
				continue
			}
			seenParticipant[p] = true
			dedup = append(dedup, p)
		}
		ev.Participants = dedup
		if ev.Tier == "" {
			ev.Tier = types.TierOf(ev.Type)
		}

		s.eventsByID[ev.ID] = ev
		s.eventOrder = append(s.eventOrder, ev.ID)
		for _, p := range ev.Participants {
			s.incidentTo[p] = append(s.incidentTo[p], ev.ID)
		}
	}

	for _, edge := range edges {
		ev, ok := s.eventsByID[edge.Target]
		if !ok {
			return nil, newLoadError("edges", fmt.Sprintf("edge references unknown event %q", edge.Target), nil)
		}
		if !containsString(ev.Participants, edge.Source) {
			return nil, newLoadError("edges", fmt.Sprintf("edge source %q is not a participant of %q", edge.Source, edge.Target), nil)
		}
	}

	for id, list := range s.incidentTo {
		sort.Slice(list, func(i, j int) bool {
			si, _ := types.EventIDSuffix(list[i])
			sj, _ := types.EventIDSuffix(list[j])
			return si < sj
		})
		s.incidentTo[id] = list
	}

	return s, nil
}

// EntityByID returns the entity with the given id.
func (s *Store) EntityByID(id string) (types.Entity, bool) {
	e, ok := s.entitiesByID[id]
	return e, ok
}

// EntityByAlias resolves a case-insensitive alias to an entity id.
func (s *Store) EntityByAlias(alias string) (string, bool) {
	id, ok := s.entityByAlias[strings.ToLower(strings.TrimSpace(alias))]
	return id, ok
}

// EventByID returns the event with the given id.
func (s *Store) EventByID(id string) (types.Event, bool) {
	e, ok := s.eventsByID[id]
	return e, ok
}

// EventsIncidentTo returns the event ids an entity participates in,
// ascending by the event id's integer suffix.
func (s *Store) EventsIncidentTo(entityID string) []string {
	list := s.incidentTo[entityID]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// ParticipantsOf returns the participant ids of an event, in the event's
// own first-occurrence order.
func (s *Store) ParticipantsOf(eventID string) ([]string, bool) {
	ev, ok := s.eventsByID[eventID]
	if !ok {
		return nil, false
	}
	out := make([]string, len(ev.Participants))
	copy(out, ev.Participants)
	return out, true
}

// AllEvents returns every event in the store, in ascending insertion
// (ingestion) order — the same order the events.<fmt> artifact used.
func (s *Store) AllEvents() []types.Event {
	out := make([]types.Event, 0, len(s.eventOrder))
	for _, id := range s.eventOrder {
		out = append(out, s.eventsByID[id])
	}
	return out
}

// EntityCount and EventCount expose sizing for callers (e.g. the CLI's
// graph-loaded log line).
func (s *Store) EntityCount() int { return len(s.entitiesByID) }
func (s *Store) EventCount() int  { return len(s.eventsByID) }

// RegistrySnapshot derives the read-only alias -> entity record mapping
// the Query Planner consumes. It is computed once from the Store and never
// touches the Store again.
func (s *Store) RegistrySnapshot() *Registry {
	entries := make(map[string]types.RegistryEntity, len(s.entityByAlias))
	for alias, id := range s.entityByAlias {
		e := s.entitiesByID[id]
		entries[alias] = types.RegistryEntity{ID: e.ID, CanonicalName: e.CanonicalName, Kind: e.Kind}
	}
	return &Registry{byAlias: entries}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
