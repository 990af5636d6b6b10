package resolver_test

import (
	"testing"

	"github.com/itihasa/kgq/internal/resolver"
	"github.com/itihasa/kgq/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personEntity(id, name string) types.MatchedEntity {
	return types.MatchedEntity{ID: id, CanonicalName: name, Kind: types.KindPerson}
}

func groupEntity(id, name string) types.MatchedEntity {
	return types.MatchedEntity{ID: id, CanonicalName: name, Kind: types.KindGroup}
}

// S1: "Who killed Karna?" -> ENTITY answer, agent=arjuna, confidence=high.
func TestResolve_S1_Fact(t *testing.T) {
	plan := types.QueryPlan{
		Intent:           types.IntentFact,
		TargetEventTypes: map[types.EventType]bool{types.EventKill: true},
		Constraints:      types.Constraints{AgentRequired: true},
	}
	result := types.QueryResult{
		Found:         true,
		SeedEntityIDs: []string{"person_karna"},
		MatchedEvents: []types.MatchedEvent{
			{ID: "E500", Type: types.EventKill, Participants: []string{"person_arjuna", "person_karna"}},
		},
		MatchedEntities: []types.MatchedEntity{personEntity("person_arjuna", "arjuna"), personEntity("person_karna", "karna")},
	}

	ans := resolver.Resolve(plan, result)
	require.Equal(t, types.AnswerEntity, ans.Type)
	require.Len(t, ans.Payload.Agents, 1)
	assert.Equal(t, "person_arjuna", ans.Payload.Agents[0].ID)
	assert.Equal(t, types.ConfidenceHigh, ans.Confidence)
	assert.Equal(t, []string{"E500"}, ans.SupportingEventIDs)
}

// S3: "Why did Bhishma support Duryodhana?" -> CHAIN answer.
func TestResolve_S3_Causal(t *testing.T) {
	plan := types.QueryPlan{Intent: types.IntentCausal, Constraints: types.Constraints{CausalChain: true}}
	result := types.QueryResult{
		Found:         true,
		SeedEntityIDs: []string{"person_bhishma"},
		MatchedEvents: []types.MatchedEvent{
			{ID: "E100", Type: types.EventVow, Participants: []string{"person_bhishma"}},
			{ID: "E400", Type: types.EventSupported, Participants: []string{"person_bhishma", "person_duryodhana"}},
		},
		MatchedEntities: []types.MatchedEntity{personEntity("person_bhishma", "bhishma"), personEntity("person_duryodhana", "duryodhana")},
	}

	ans := resolver.Resolve(plan, result)
	require.Equal(t, types.AnswerChain, ans.Type)
	require.Len(t, ans.Payload.Chain, 4)
	assert.Equal(t, types.ChainNodeEntity, ans.Payload.Chain[0].Kind)
	assert.Equal(t, "person_bhishma", ans.Payload.Chain[0].ID)
	assert.Equal(t, types.ChainNodeEvent, ans.Payload.Chain[1].Kind)
	assert.Equal(t, "E100", ans.Payload.Chain[1].ID)
	assert.Equal(t, "person_duryodhana", ans.Payload.Chain[2].ID)
	assert.Equal(t, "E400", ans.Payload.Chain[3].ID)
	assert.Equal(t, types.ConfidenceMedium, ans.Confidence)
}

// S4: "Who benefited from Drona's death?" -> ENTITY beneficiaries, a KILL
// event must never surface as a beneficiary source (property 8 downstream).
func TestResolve_S4_MultiHop(t *testing.T) {
	plan := types.QueryPlan{Intent: types.IntentMultiHop}
	result := types.QueryResult{
		Found:         true,
		SeedEntityIDs: []string{"person_drona"},
		MatchedEvents: []types.MatchedEvent{
			{ID: "E200", Type: types.EventDeath, Participants: []string{"person_dhristadyumna", "person_drona"}},
			{ID: "E210", Type: types.EventAppointedAs, Participants: []string{"person_yudhishthira", "person_dhristadyumna"}},
		},
		MatchedEntities: []types.MatchedEntity{
			personEntity("person_drona", "drona"),
			personEntity("person_dhristadyumna", "dhristadyumna"),
			personEntity("person_yudhishthira", "yudhishthira"),
		},
	}

	ans := resolver.Resolve(plan, result)
	require.Equal(t, types.AnswerEntity, ans.Type)
	var ids []string
	for _, b := range ans.Payload.Beneficiaries {
		ids = append(ids, b.ID)
	}
	assert.Contains(t, ids, "person_yudhishthira")
}

func TestResolve_NoAnswerSafety_EmptyMatchedEvents(t *testing.T) {
	plan := types.QueryPlan{Intent: types.IntentFact}
	result := types.QueryResult{Found: false}

	ans := resolver.Resolve(plan, result)
	assert.Equal(t, types.AnswerNone, ans.Type)
	assert.Equal(t, types.ConfidenceHigh, ans.Confidence)
	assert.NotEmpty(t, ans.Trace)
}

func TestResolve_AgentRequiredFiltersSingleParticipantEvent(t *testing.T) {
	plan := types.QueryPlan{
		Intent:           types.IntentFact,
		TargetEventTypes: map[types.EventType]bool{types.EventKill: true},
		Constraints:      types.Constraints{AgentRequired: true},
	}
	result := types.QueryResult{
		Found:           true,
		MatchedEvents:   []types.MatchedEvent{{ID: "E900", Type: types.EventKill, Participants: []string{"person_karna"}}},
		MatchedEntities: []types.MatchedEntity{personEntity("person_karna", "karna")},
	}

	ans := resolver.Resolve(plan, result)
	assert.Equal(t, types.AnswerNone, ans.Type)
}

// A GROUP agent must never surface in a FACT answer's payload: FACT
// answers require a PERSON agent, so the event is skipped and traced
// instead of promoting the Kaurava army to an answer.
func TestResolve_Groundedness_NonPersonAgentSkippedInFact(t *testing.T) {
	plan := types.QueryPlan{
		Intent:           types.IntentFact,
		TargetEventTypes: map[types.EventType]bool{types.EventKill: true},
	}
	result := types.QueryResult{
		Found:         true,
		SeedEntityIDs: []string{"person_karna"},
		MatchedEvents: []types.MatchedEvent{
			{ID: "E500", Type: types.EventKill, Participants: []string{"group_kuru_army", "person_karna"}},
			{ID: "E501", Type: types.EventKill, Participants: []string{"person_arjuna", "person_karna"}},
		},
		MatchedEntities: []types.MatchedEntity{
			personEntity("person_arjuna", "arjuna"),
			personEntity("person_karna", "karna"),
			groupEntity("group_kuru_army", "Kuru army"),
		},
	}

	ans := resolver.Resolve(plan, result)
	require.Equal(t, types.AnswerEntity, ans.Type)
	require.Len(t, ans.Payload.Agents, 1)
	assert.Equal(t, "person_arjuna", ans.Payload.Agents[0].ID)
	assert.Equal(t, []string{"E501"}, ans.SupportingEventIDs)
}

func TestResolve_Groundedness_EntitiesInChainArePerson(t *testing.T) {
	plan := types.QueryPlan{Intent: types.IntentCausal}
	entities := []types.MatchedEntity{personEntity("person_bhishma", "bhishma"), personEntity("person_duryodhana", "duryodhana")}
	byID := make(map[string]types.MatchedEntity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}
	result := types.QueryResult{
		Found:         true,
		SeedEntityIDs: []string{"person_bhishma"},
		MatchedEvents: []types.MatchedEvent{
			{ID: "E400", Type: types.EventSupported, Participants: []string{"person_bhishma", "person_duryodhana"}},
		},
		MatchedEntities: entities,
	}

	ans := resolver.Resolve(plan, result)
	require.Equal(t, types.AnswerChain, ans.Type)
	for _, node := range ans.Payload.Chain {
		if node.Kind == types.ChainNodeEntity {
			require.Contains(t, byID, node.ID)
			assert.Equal(t, types.KindPerson, byID[node.ID].Kind)
		}
	}
}

// A SUPPORT event with a PERSON patient but no in-range prior
// VOW/COMMAND/BOON event must collapse to the two-node fallback chain:
// keeping the patient without the prior would put two ENTITY nodes
// adjacent, breaking the chain's ENTITY/EVENT alternation.
func TestResolve_Causal_NoPriorCollapsesToTwoNodeChain(t *testing.T) {
	plan := types.QueryPlan{Intent: types.IntentCausal}
	result := types.QueryResult{
		Found:         true,
		SeedEntityIDs: []string{"person_bhishma"},
		MatchedEvents: []types.MatchedEvent{
			{ID: "E400", Type: types.EventSupported, Participants: []string{"person_bhishma", "person_duryodhana"}},
		},
		MatchedEntities: []types.MatchedEntity{personEntity("person_bhishma", "bhishma"), personEntity("person_duryodhana", "duryodhana")},
	}

	ans := resolver.Resolve(plan, result)
	require.Equal(t, types.AnswerChain, ans.Type)
	require.Len(t, ans.Payload.Chain, 2)
	assert.Equal(t, types.ChainNodeEntity, ans.Payload.Chain[0].Kind)
	assert.Equal(t, "person_bhishma", ans.Payload.Chain[0].ID)
	assert.Equal(t, types.ChainNodeEvent, ans.Payload.Chain[1].Kind)
	assert.Equal(t, "E400", ans.Payload.Chain[1].ID)
	assert.Equal(t, types.ConfidenceLow, ans.Confidence)
	assert.Equal(t, []string{"E400"}, ans.SupportingEventIDs)
}

// The Kuru army (a GROUP, not a PERSON) must never surface as a CHAIN
// entity node: the patient slot is dropped rather than emitted with a
// non-PERSON kind.
func TestResolve_Groundedness_NonPersonPatientOmittedFromChain(t *testing.T) {
	plan := types.QueryPlan{Intent: types.IntentCausal}
	result := types.QueryResult{
		Found:         true,
		SeedEntityIDs: []string{"person_bhishma"},
		MatchedEvents: []types.MatchedEvent{
			{ID: "E400", Type: types.EventSupported, Participants: []string{"person_bhishma", "group_kuru_army"}},
		},
		MatchedEntities: []types.MatchedEntity{personEntity("person_bhishma", "bhishma"), groupEntity("group_kuru_army", "Kuru army")},
	}

	ans := resolver.Resolve(plan, result)
	require.Equal(t, types.AnswerChain, ans.Type)
	for _, node := range ans.Payload.Chain {
		assert.NotEqual(t, "group_kuru_army", node.ID)
	}
	require.Len(t, ans.Payload.Chain, 2)
	assert.Equal(t, types.ChainNodeEntity, ans.Payload.Chain[0].Kind)
	assert.Equal(t, "person_bhishma", ans.Payload.Chain[0].ID)
	assert.Equal(t, types.ChainNodeEvent, ans.Payload.Chain[1].Kind)
	assert.Equal(t, "E400", ans.Payload.Chain[1].ID)
}
