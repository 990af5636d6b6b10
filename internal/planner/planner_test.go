package planner_test

import (
	"testing"

	"github.com/itihasa/kgq/internal/graphstore"
	"github.com/itihasa/kgq/internal/planner"
	"github.com/itihasa/kgq/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *graphstore.Registry {
	t.Helper()
	entities := []types.Entity{
		{ID: "person_karna", CanonicalName: "karna", Kind: types.KindPerson, Aliases: []string{"karna", "radheya"}},
		{ID: "person_arjuna", CanonicalName: "arjuna", Kind: types.KindPerson, Aliases: []string{"arjuna"}},
		{ID: "person_abhimanyu", CanonicalName: "abhimanyu", Kind: types.KindPerson, Aliases: []string{"abhimanyu"}},
		{ID: "person_bhishma", CanonicalName: "bhishma", Kind: types.KindPerson, Aliases: []string{"bhishma"}},
		{ID: "person_duryodhana", CanonicalName: "duryodhana", Kind: types.KindPerson, Aliases: []string{"duryodhana"}},
		{ID: "person_drona", CanonicalName: "drona", Kind: types.KindPerson, Aliases: []string{"drona"}},
	}
	events := []types.Event{
		{ID: "E500", Type: types.EventKill, Tier: types.TierOf(types.EventKill), Sentence: "Arjuna killed Karna.", Participants: []string{"person_arjuna", "person_karna"}},
		{ID: "E600", Type: types.EventDeath, Tier: types.TierOf(types.EventDeath), Sentence: "Karna died.", Participants: []string{"person_karna"}},
	}
	edges := []types.Edge{
		{Source: "person_arjuna", Relation: types.RelationParticipatedIn, Target: "E500", Evidence: "Arjuna killed Karna."},
		{Source: "person_karna", Relation: types.RelationParticipatedIn, Target: "E500", Evidence: "Arjuna killed Karna."},
		{Source: "person_karna", Relation: types.RelationParticipatedIn, Target: "E600", Evidence: "Karna died."},
	}
	store, err := graphstore.NewFromArtifacts(entities, events, edges)
	require.NoError(t, err)
	return store.RegistrySnapshot()
}

func TestPlan_S1_FactIntent(t *testing.T) {
	reg := testRegistry(t)
	p := planner.Plan("Who killed Karna?", reg)

	assert.Equal(t, types.IntentFact, p.Intent)
	assert.Equal(t, []string{"person_karna"}, p.SeedEntityIDs)
	assert.True(t, p.Constraints.AgentRequired)
	assert.Equal(t, 1, p.TraversalDepth)
	assert.True(t, p.HasTargetType(types.EventKill))
}

func TestPlan_S2_TemporalAfter(t *testing.T) {
	reg := testRegistry(t)
	p := planner.Plan("What happened after Abhimanyu's death?", reg)

	assert.Equal(t, types.IntentTemporal, p.Intent)
	assert.Equal(t, []string{"person_abhimanyu"}, p.SeedEntityIDs)
	assert.Equal(t, types.OrderAfter, p.Constraints.TemporalOrder)
	assert.Equal(t, 2, p.TraversalDepth)
	assert.True(t, p.HasTargetType(types.EventDeath))
}

func TestPlan_S3_CausalWhy(t *testing.T) {
	reg := testRegistry(t)
	p := planner.Plan("Why did Bhishma support Duryodhana?", reg)

	assert.Equal(t, types.IntentCausal, p.Intent)
	assert.Equal(t, []string{"person_bhishma", "person_duryodhana"}, p.SeedEntityIDs)
	assert.True(t, p.Constraints.CausalChain)
	assert.True(t, p.HasTargetType(types.EventSupported))
}

func TestPlan_S4_MultiHopBenefited(t *testing.T) {
	reg := testRegistry(t)
	p := planner.Plan("Who benefited from Drona's death?", reg)

	assert.Equal(t, types.IntentMultiHop, p.Intent)
	assert.Equal(t, []string{"person_drona"}, p.SeedEntityIDs)
	assert.True(t, p.HasTargetType(types.EventDeath))
}

func TestPlan_S5_UnresolvedSeed(t *testing.T) {
	reg := testRegistry(t)
	p := planner.Plan("Who killed Nobody?", reg)

	assert.Equal(t, types.IntentFact, p.Intent)
	assert.Empty(t, p.SeedEntityIDs)
}

func TestPlan_NeverFailsOnEmptyInput(t *testing.T) {
	reg := testRegistry(t)
	p := planner.Plan("", reg)

	assert.Equal(t, types.IntentFact, p.Intent)
	assert.Empty(t, p.SeedEntityIDs)
	assert.Equal(t, 1, p.TraversalDepth)
}

func TestPlan_NilRegistrySafe(t *testing.T) {
	p := planner.Plan("Who killed Karna?", nil)
	assert.Equal(t, types.IntentFact, p.Intent)
	assert.Empty(t, p.SeedEntityIDs)
}

func TestPlan_Determinism(t *testing.T) {
	reg := testRegistry(t)
	a := planner.Plan("Why did Bhishma support Duryodhana?", reg)
	b := planner.Plan("Why did Bhishma support Duryodhana?", reg)
	assert.Equal(t, a, b)
}

func TestPlan_ExtractsEverySeedInOrder(t *testing.T) {
	reg := testRegistry(t)
	p := planner.Plan("Did Karna fight Arjuna?", reg)
	assert.Contains(t, p.SeedEntityIDs, "person_karna")
	assert.Contains(t, p.SeedEntityIDs, "person_arjuna")
}
