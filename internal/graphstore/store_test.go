package graphstore_test

import (
	"testing"

	"github.com/itihasa/kgq/internal/graphstore"
	"github.com/itihasa/kgq/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleArtifacts() ([]types.Entity, []types.Event, []types.Edge) {
	entities := []types.Entity{
		{ID: "person_karna", CanonicalName: "karna", Kind: types.KindPerson, EventCount: 2, Aliases: []string{"karna", "radheya"}},
		{ID: "person_arjuna", CanonicalName: "arjuna", Kind: types.KindPerson, EventCount: 3, Aliases: []string{"arjuna", "partha"}},
	}
	events := []types.Event{
		{ID: "E500", Type: types.EventKill, Sentence: "Arjuna killed Karna.", Participants: []string{"person_arjuna", "person_karna"}},
		{ID: "E600", Type: types.EventDeath, Sentence: "Karna died.", Participants: []string{"person_karna"}},
	}
	edges := []types.Edge{
		{Source: "person_arjuna", Relation: types.RelationParticipatedIn, Target: "E500", Evidence: "Arjuna killed Karna."},
		{Source: "person_karna", Relation: types.RelationParticipatedIn, Target: "E500", Evidence: "Arjuna killed Karna."},
		{Source: "person_karna", Relation: types.RelationParticipatedIn, Target: "E600", Evidence: "Karna died."},
	}
	return entities, events, edges
}

func TestNewFromArtifacts_IndexesAndResolves(t *testing.T) {
	entities, events, edges := sampleArtifacts()
	store, err := graphstore.NewFromArtifacts(entities, events, edges)
	require.NoError(t, err)

	id, ok := store.EntityByAlias("Radheya")
	require.True(t, ok)
	assert.Equal(t, "person_karna", id)

	incident := store.EventsIncidentTo("person_karna")
	assert.Equal(t, []string{"E500", "E600"}, incident)

	participants, ok := store.ParticipantsOf("E500")
	require.True(t, ok)
	assert.Equal(t, []string{"person_arjuna", "person_karna"}, participants)
}

func TestNewFromArtifacts_AliasCollisionFails(t *testing.T) {
	entities := []types.Entity{
		{ID: "person_a", CanonicalName: "duplicate", Kind: types.KindPerson, Aliases: []string{"duplicate"}},
		{ID: "person_b", CanonicalName: "duplicate", Kind: types.KindPerson, Aliases: []string{"duplicate"}},
	}
	_, err := graphstore.NewFromArtifacts(entities, nil, nil)
	require.Error(t, err)
	var loadErr *graphstore.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "entities", loadErr.Artifact)
}

func TestNewFromArtifacts_UnknownParticipantFails(t *testing.T) {
	entities := []types.Entity{{ID: "person_a", CanonicalName: "a", Kind: types.KindPerson, Aliases: []string{"a"}}}
	events := []types.Event{{ID: "E1", Type: types.EventKill, Participants: []string{"person_a", "person_ghost"}}}
	_, err := graphstore.NewFromArtifacts(entities, events, nil)
	require.Error(t, err)
}

func TestNewFromArtifacts_DanglingEdgeFails(t *testing.T) {
	entities := []types.Entity{{ID: "person_a", CanonicalName: "a", Kind: types.KindPerson, Aliases: []string{"a"}}}
	events := []types.Event{{ID: "E1", Type: types.EventKill, Participants: []string{"person_a"}}}
	edges := []types.Edge{{Source: "person_ghost", Relation: types.RelationParticipatedIn, Target: "E1"}}
	_, err := graphstore.NewFromArtifacts(entities, events, edges)
	require.Error(t, err)
}

func TestEventsIncidentTo_SortedByNumericSuffix(t *testing.T) {
	entities := []types.Entity{{ID: "person_a", CanonicalName: "a", Kind: types.KindPerson, Aliases: []string{"a"}}}
	events := []types.Event{
		{ID: "E20", Type: types.EventBattle, Participants: []string{"person_a"}},
		{ID: "E3", Type: types.EventBattle, Participants: []string{"person_a"}},
		{ID: "E100", Type: types.EventBattle, Participants: []string{"person_a"}},
	}
	store, err := graphstore.NewFromArtifacts(entities, events, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"E3", "E20", "E100"}, store.EventsIncidentTo("person_a"))
}

func TestRegistrySnapshot_IsIndependentOfStore(t *testing.T) {
	entities, events, edges := sampleArtifacts()
	store, err := graphstore.NewFromArtifacts(entities, events, edges)
	require.NoError(t, err)

	reg := store.RegistrySnapshot()
	e, ok := reg.Lookup("partha")
	require.True(t, ok)
	assert.Equal(t, "person_arjuna", e.ID)
	assert.Equal(t, types.KindPerson, e.Kind)
}
