// Package executor implements the Graph Executor: a pure function from a
// Query Plan and a Graph Store to a Query Result. Each intent has its own
// traversal strategy (FACT, TEMPORAL, CAUSAL, MULTI_HOP); all are
// structural filters only, no scoring or popularity pruning.
package executor

import (
	"fmt"
	"sort"
	"time"

	"github.com/itihasa/kgq/internal/graphstore"
	"github.com/itihasa/kgq/internal/types"
)

const maxTemporalResults = 20

// sortEventIDsAscending orders event ids by their integer suffix, the only
// valid narrative ordering: lexical string sort would put "E10" before
// "E9".
func sortEventIDsAscending(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		si, _ := types.EventIDSuffix(ids[i])
		sj, _ := types.EventIDSuffix(ids[j])
		return si < sj
	})
}

// consequenceTypes is the MULTI_HOP Phase-2 accept set. KILL, DEATH, and
// BATTLE are never included here regardless of plan.TargetEventTypes: a
// "benefit" is by definition a non-violent follow-up.
var consequenceTypes = map[types.EventType]bool{
	types.EventAppointedAs: true,
	types.EventCoronation:  true,
	types.EventBoon:        true,
	types.EventSupported:   true,
	types.EventCommand:     true,
	types.EventRescued:     true,
}

var violentTypes = map[types.EventType]bool{
	types.EventKill:   true,
	types.EventDeath:  true,
	types.EventBattle: true,
}

var triggerTypes = map[types.EventType]bool{
	types.EventKill:  true,
	types.EventDeath: true,
}

// Execute evaluates plan against graph and returns a Query Result. It
// never panics or returns an error: unresolved seeds, empty matches, and
// empty candidate sets all surface as Found=false with a full trace.
func Execute(plan types.QueryPlan, graph *graphstore.Store) types.QueryResult {
	start := time.Now()

	res := types.QueryResult{
		QuestionText:  plan.QuestionText,
		Intent:        plan.Intent,
		SeedEntityIDs: plan.SeedEntityIDs,
	}

	resolvedSeeds := resolveSeeds(plan.SeedEntityIDs, graph, &res.Trace)

	var matched []types.MatchedEvent
	switch plan.Intent {
	case types.IntentFact:
		matched = executeFact(plan, graph, resolvedSeeds, &res)
	case types.IntentTemporal:
		matched = executeTemporal(plan, graph, resolvedSeeds, &res)
	case types.IntentCausal:
		matched = executeCausal(plan, graph, resolvedSeeds, &res)
	case types.IntentMultiHop:
		matched = executeMultiHop(plan, graph, resolvedSeeds, &res)
	default:
		res.Trace = append(res.Trace, fmt.Sprintf("[PLAN] unknown intent %q, no strategy applied", plan.Intent))
	}

	res.MatchedEvents = matched
	res.MatchedEntities = extractEntities(matched, graph)
	res.Found = len(res.MatchedEvents) > 0
	res.ElapsedNanos = time.Since(start).Nanoseconds()
	return res
}

// resolveSeeds resolves each plan seed id as an entity id directly (seeds
// already came out of the planner as resolved entity ids, since planning
// consults the same Registry the Store derives its aliases from) and
// traces the resolution. A seed id the Store no longer recognizes is
// traced UNRESOLVED and dropped.
func resolveSeeds(seedIDs []string, graph *graphstore.Store, trace *[]string) []string {
	var resolved []string
	for _, id := range seedIDs {
		if _, ok := graph.EntityByID(id); ok {
			*trace = append(*trace, fmt.Sprintf("[RESOLVE] %s → %s", id, id))
			resolved = append(resolved, id)
		} else {
			*trace = append(*trace, fmt.Sprintf("[RESOLVE] %s → UNRESOLVED", id))
		}
	}
	return resolved
}

// executeFact implements the depth-1 FACT strategy: union over
// events_incident_to(seed), filtered by target type and agent_required.
func executeFact(plan types.QueryPlan, graph *graphstore.Store, seeds []string, res *types.QueryResult) []types.MatchedEvent {
	rejectedByAgent := false
	byID := make(map[string]types.MatchedEvent)
	var order []string

	for _, seed := range seeds {
		for _, eventID := range graph.EventsIncidentTo(seed) {
			res.Stats.EventsConsidered++
			ev, ok := graph.EventByID(eventID)
			if !ok {
				continue
			}
			if !plan.HasTargetType(ev.Type) {
				res.Stats.EventsRejected++
				res.Trace = append(res.Trace, fmt.Sprintf("[FACT] ✗ event=%s reason=type-not-targeted", eventID))
				continue
			}
			if plan.Constraints.AgentRequired && len(ev.Participants) < 2 {
				res.Stats.EventsRejected++
				rejectedByAgent = true
				res.Trace = append(res.Trace, fmt.Sprintf("[FACT] ✗ event=%s reason=agent-required-single-participant", eventID))
				continue
			}
			if _, dup := byID[eventID]; !dup {
				byID[eventID] = toMatchedEvent(ev)
				order = append(order, eventID)
			}
			res.Stats.EventsAccepted++
			res.Trace = append(res.Trace, fmt.Sprintf("[FACT] ✓ event=%s", eventID))
		}
	}
	if rejectedByAgent {
		res.ConstraintsApplied = append(res.ConstraintsApplied, "agent_required")
	}
	res.Stats.MaxDepthReached = 1

	sortEventIDsAscending(order)
	out := make([]types.MatchedEvent, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// executeTemporal implements the depth-2 TEMPORAL strategy: derive the
// anchor suffix from seed-incident target-typed events, then scan every
// event in the graph for the temporal relation, capped at 20 results.
func executeTemporal(plan types.QueryPlan, graph *graphstore.Store, seeds []string, res *types.QueryResult) []types.MatchedEvent {
	var anchorSuffixes []int
	for _, seed := range seeds {
		for _, eventID := range graph.EventsIncidentTo(seed) {
			ev, ok := graph.EventByID(eventID)
			if !ok || !plan.HasTargetType(ev.Type) {
				continue
			}
			if suf, ok := ev.Suffix(); ok {
				anchorSuffixes = append(anchorSuffixes, suf)
			}
		}
	}
	res.Stats.MaxDepthReached = 2
	if len(anchorSuffixes) == 0 {
		res.Trace = append(res.Trace, "[TEMPORAL] ✗ no anchor event found among seed-incident target-typed events")
		return nil
	}

	var anchor int
	switch plan.Constraints.TemporalOrder {
	case types.OrderBefore:
		anchor = anchorSuffixes[0]
		for _, s := range anchorSuffixes {
			if s > anchor {
				anchor = s
			}
		}
	default: // AFTER, DURING, or unset: minimum anchor
		anchor = anchorSuffixes[0]
		for _, s := range anchorSuffixes {
			if s < anchor {
				anchor = s
			}
		}
	}
	res.Trace = append(res.Trace, fmt.Sprintf("[TEMPORAL] anchor suffix=%d order=%s", anchor, plan.Constraints.TemporalOrder))

	var accepted []types.Event
	for _, ev := range graph.AllEvents() {
		res.Stats.EventsConsidered++
		suf, ok := ev.Suffix()
		if !ok {
			continue
		}
		var take bool
		switch plan.Constraints.TemporalOrder {
		case types.OrderBefore:
			take = suf < anchor
		case types.OrderAfter:
			take = suf > anchor
		case types.OrderDuring:
			take = suf == anchor
		default:
			take = suf > anchor
		}
		if take {
			accepted = append(accepted, ev)
			res.Stats.EventsAccepted++
			res.Trace = append(res.Trace, fmt.Sprintf("[TEMPORAL] ✓ event=%s suffix=%d", ev.ID, suf))
		} else {
			res.Stats.EventsRejected++
		}
	}
	res.ConstraintsApplied = append(res.ConstraintsApplied, "temporal_order")

	descending := plan.Constraints.TemporalOrder == types.OrderBefore
	sort.Slice(accepted, func(i, j int) bool {
		si, _ := accepted[i].Suffix()
		sj, _ := accepted[j].Suffix()
		if descending {
			return si > sj
		}
		return si < sj
	})
	if len(accepted) > maxTemporalResults {
		accepted = accepted[:maxTemporalResults]
	}

	out := make([]types.MatchedEvent, 0, len(accepted))
	for _, ev := range accepted {
		out = append(out, toMatchedEvent(ev))
	}
	return out
}

// executeCausal implements the depth-2 CAUSAL breadth-first traversal.
// The visited set tracks entities, never events, so the same event may be
// reached via multiple participants but is added to the matched set only
// once.
func executeCausal(plan types.QueryPlan, graph *graphstore.Store, seeds []string, res *types.QueryResult) []types.MatchedEvent {
	const maxDepth = 2

	type queued struct {
		entityID string
		depth    int
	}

	visitedEntities := make(map[string]bool, len(seeds))
	var queue []queued
	for _, seed := range seeds {
		visitedEntities[seed] = true
		queue = append(queue, queued{entityID: seed, depth: 0})
	}

	matchedByID := make(map[string]types.MatchedEvent)
	var order []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth > res.Stats.MaxDepthReached {
			res.Stats.MaxDepthReached = cur.depth
		}

		for _, eventID := range graph.EventsIncidentTo(cur.entityID) {
			res.Stats.EventsConsidered++
			ev, ok := graph.EventByID(eventID)
			if !ok || !plan.HasTargetType(ev.Type) {
				res.Stats.EventsRejected++
				continue
			}
			if _, dup := matchedByID[eventID]; !dup {
				matchedByID[eventID] = toMatchedEvent(ev)
				order = append(order, eventID)
			}
			res.Stats.EventsAccepted++
			res.Trace = append(res.Trace, fmt.Sprintf("[CAUSAL] ✓ depth=%d event=%s", cur.depth, eventID))

			if cur.depth < maxDepth {
				for _, participant := range ev.Participants {
					if !visitedEntities[participant] {
						visitedEntities[participant] = true
						queue = append(queue, queued{entityID: participant, depth: cur.depth + 1})
					}
				}
			}
		}
	}

	sortEventIDsAscending(order)
	out := make([]types.MatchedEvent, 0, len(order))
	for _, id := range order {
		out = append(out, matchedByID[id])
	}
	return out
}

// executeMultiHop implements the two-phase MULTI_HOP strategy: Phase 1
// discovers trigger events (KILL/DEATH involving a seed), Phase 2
// discovers consequence events among trigger participants, excluding
// violent types unconditionally.
func executeMultiHop(plan types.QueryPlan, graph *graphstore.Store, seeds []string, res *types.QueryResult) []types.MatchedEvent {
	res.Stats.MaxDepthReached = 2

	triggerEvents := make(map[string]types.Event)
	var triggerOrder []string
	seedSet := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		seedSet[s] = true
	}

	for _, seed := range seeds {
		for _, eventID := range graph.EventsIncidentTo(seed) {
			res.Stats.EventsConsidered++
			ev, ok := graph.EventByID(eventID)
			if !ok {
				continue
			}
			if !triggerTypes[ev.Type] || !plan.HasTargetType(ev.Type) {
				continue
			}
			if _, dup := triggerEvents[eventID]; !dup {
				triggerEvents[eventID] = ev
				triggerOrder = append(triggerOrder, eventID)
				res.Stats.EventsAccepted++
				res.Trace = append(res.Trace, fmt.Sprintf("[MULTI_HOP] trigger ✓ event=%s", eventID))
			}
		}
	}

	seenParticipant := make(map[string]bool)
	var nonSeedParticipants []string
	for _, id := range triggerOrder {
		for _, p := range triggerEvents[id].Participants {
			if !seedSet[p] && !seenParticipant[p] {
				seenParticipant[p] = true
				nonSeedParticipants = append(nonSeedParticipants, p)
			}
		}
	}

	consequenceEvents := make(map[string]types.Event)
	for _, participant := range nonSeedParticipants {
		for _, eventID := range graph.EventsIncidentTo(participant) {
			res.Stats.EventsConsidered++
			ev, ok := graph.EventByID(eventID)
			if !ok {
				continue
			}
			if violentTypes[ev.Type] {
				res.Stats.EventsRejected++
				res.Trace = append(res.Trace, fmt.Sprintf("[MULTI_HOP] consequence ✗ event=%s reason=violent-type-excluded", eventID))
				continue
			}
			if !consequenceTypes[ev.Type] {
				res.Stats.EventsRejected++
				continue
			}
			if _, dup := consequenceEvents[eventID]; !dup {
				consequenceEvents[eventID] = ev
				res.Stats.EventsAccepted++
				res.Trace = append(res.Trace, fmt.Sprintf("[MULTI_HOP] consequence ✓ event=%s", eventID))
			}
		}
	}

	var order []string
	all := make(map[string]types.Event, len(triggerEvents)+len(consequenceEvents))
	for id, ev := range triggerEvents {
		all[id] = ev
	}
	for id, ev := range consequenceEvents {
		all[id] = ev
	}
	for id := range all {
		order = append(order, id)
	}
	sortEventIDsAscending(order)

	out := make([]types.MatchedEvent, 0, len(order))
	for _, id := range order {
		out = append(out, toMatchedEvent(all[id]))
	}
	return out
}

// extractEntities is the common post-step across all intents: traverse
// every matched event's participant list, resolve via EntityByID,
// deduplicate by id, preserving first-seen order.
func extractEntities(events []types.MatchedEvent, graph *graphstore.Store) []types.MatchedEntity {
	seen := make(map[string]bool)
	var out []types.MatchedEntity
	for _, ev := range events {
		for _, pid := range ev.Participants {
			if seen[pid] {
				continue
			}
			seen[pid] = true
			if ent, ok := graph.EntityByID(pid); ok {
				out = append(out, types.MatchedEntity{
					ID:            ent.ID,
					CanonicalName: ent.CanonicalName,
					Kind:          ent.Kind,
					EventCount:    ent.EventCount,
				})
			}
		}
	}
	return out
}

func toMatchedEvent(ev types.Event) types.MatchedEvent {
	return types.MatchedEvent{
		ID:           ev.ID,
		Tier:         ev.Tier,
		Type:         ev.Type,
		Participants: ev.Participants,
		Sentence:     ev.Sentence,
	}
}

