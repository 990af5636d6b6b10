// Package resolver implements the Answer Resolver: a pure reduction from a
// Query Plan and a Query Result to a structured Answer. No further graph
// access happens here beyond the matched-event and matched-entity
// collections the executor already produced.
package resolver

import (
	"fmt"
	"sort"

	"github.com/itihasa/kgq/internal/types"
)

// role is an inferred narrative role for a participant position.
type role int

const (
	roleNone role = iota
	roleAgent
	rolePatient
)

// rolePattern maps an event type's two participant positions to roles.
// Types absent from this table fall back to (AGENT, PATIENT) when the
// event has 2+ participants, else (PATIENT, none).
var rolePattern = map[types.EventType][2]role{
	types.EventKill:        {roleAgent, rolePatient},
	types.EventDeath:       {rolePatient, roleNone},
	types.EventBattle:      {roleAgent, rolePatient},
	types.EventCoronation:  {roleAgent, rolePatient},
	types.EventSupported:   {roleAgent, rolePatient},
	types.EventDefended:    {roleAgent, rolePatient},
	types.EventBoon:        {roleAgent, rolePatient},
	types.EventVow:         {roleAgent, roleNone},
	types.EventCurse:       {roleAgent, rolePatient},
	types.EventAppointedAs: {roleAgent, rolePatient},
	types.EventCommand:     {roleAgent, rolePatient},
	types.EventRescued:     {roleAgent, rolePatient},
}

// roleAt infers the role of the participant at position idx (0-based) of
// ev, using rolePattern and falling back to (AGENT, PATIENT) / (PATIENT)
// for event types the table does not cover.
func roleAt(ev types.MatchedEvent, idx int) role {
	if idx >= len(ev.Participants) {
		return roleNone
	}
	pattern, ok := rolePattern[ev.Type]
	if !ok {
		if len(ev.Participants) >= 2 {
			pattern = [2]role{roleAgent, rolePatient}
		} else {
			pattern = [2]role{rolePatient, roleNone}
		}
	}
	if idx > 1 {
		return roleNone
	}
	return pattern[idx]
}

// participantWithRole returns the first participant id of ev holding want,
// and whether one was found.
func participantWithRole(ev types.MatchedEvent, want role) (string, bool) {
	for i := range ev.Participants {
		if roleAt(ev, i) == want {
			return ev.Participants[i], true
		}
	}
	return "", false
}

// entityIndex is a lookup from entity id to its denormalized record,
// built once from the Query Result's MatchedEntities.
type entityIndex map[string]types.MatchedEntity

func buildEntityIndex(entities []types.MatchedEntity) entityIndex {
	idx := make(entityIndex, len(entities))
	for _, e := range entities {
		idx[e.ID] = e
	}
	return idx
}

func (idx entityIndex) name(id string) string {
	if e, ok := idx[id]; ok {
		return e.CanonicalName
	}
	return id
}

func (idx entityIndex) isPerson(id string) bool {
	e, ok := idx[id]
	return ok && e.Kind == types.KindPerson
}

func seedSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func noAnswer(trace ...string) types.Answer {
	return types.Answer{
		Type:       types.AnswerNone,
		Confidence: types.ConfidenceHigh,
		Trace:      trace,
	}
}

// Resolve reduces a Query Result to a structured Answer. It never fails:
// empty or incoherent input yields the NO_ANSWER variant with
// confidence=high.
func Resolve(plan types.QueryPlan, result types.QueryResult) types.Answer {
	if !result.Found || len(result.MatchedEvents) == 0 {
		return noAnswer("[RESOLVE] no matched events, found=false")
	}

	entities := buildEntityIndex(result.MatchedEntities)
	seeds := seedSet(result.SeedEntityIDs)

	switch plan.Intent {
	case types.IntentFact:
		return resolveFact(plan, result, entities)
	case types.IntentTemporal:
		return resolveTemporal(plan, result, entities, seeds)
	case types.IntentMultiHop:
		return resolveMultiHop(result, entities)
	case types.IntentCausal:
		return resolveCausal(result, entities, seeds)
	default:
		return noAnswer(fmt.Sprintf("[RESOLVE] unrecognized intent %q", plan.Intent))
	}
}

// resolveFact implements the FACT sub-resolver: infer the AGENT of every
// qualifying event, rank agents, and emit an ENTITY answer.
func resolveFact(plan types.QueryPlan, result types.QueryResult, entities entityIndex) types.Answer {
	var trace []string
	counts := make(map[string]int)
	var order []string
	var supporting []string

	for _, ev := range result.MatchedEvents {
		if len(plan.TargetEventTypes) > 0 && !plan.TargetEventTypes[ev.Type] {
			continue
		}
		if plan.Constraints.AgentRequired && len(ev.Participants) < 2 {
			continue
		}
		agentID, ok := participantWithRole(ev, roleAgent)
		if !ok {
			trace = append(trace, fmt.Sprintf("[RESOLVE] event=%s no agent inferred", ev.ID))
			continue
		}
		if !entities.isPerson(agentID) {
			trace = append(trace, fmt.Sprintf("[RESOLVE] event=%s agent=%s skipped: not PERSON", ev.ID, agentID))
			continue
		}
		if counts[agentID] == 0 {
			order = append(order, agentID)
		}
		counts[agentID]++
		supporting = append(supporting, ev.ID)
		trace = append(trace, fmt.Sprintf("[RESOLVE] event=%s agent=%s", ev.ID, agentID))
	}

	if len(order) == 0 {
		return noAnswer(append(trace, "[RESOLVE] no agents remain")...)
	}

	ranked := rankByFrequency(order, counts, entities)

	top := ranked
	if len(top) > 2 {
		top = top[:2]
	}

	confidence := types.ConfidenceLow
	switch {
	case len(ranked) == 1:
		confidence = types.ConfidenceHigh
	case len(ranked) <= 3:
		confidence = types.ConfidenceMedium
	}

	return types.Answer{
		Type:               types.AnswerEntity,
		Payload:            types.AnswerPayload{Agents: top},
		Confidence:         confidence,
		SupportingEventIDs: supporting,
		Trace:              trace,
	}
}

// rankByFrequency sorts distinct entity ids by (frequency desc,
// incident-event count desc, id asc) and builds RankedEntity records.
func rankByFrequency(ids []string, counts map[string]int, entities entityIndex) []types.RankedEntity {
	ranked := make([]types.RankedEntity, 0, len(ids))
	for _, id := range ids {
		ranked = append(ranked, types.RankedEntity{ID: id, Name: entities.name(id), Frequency: counts[id]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Frequency != ranked[j].Frequency {
			return ranked[i].Frequency > ranked[j].Frequency
		}
		ci, cj := entities[ranked[i].ID].EventCount, entities[ranked[j].ID].EventCount
		if ci != cj {
			return ci > cj
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// resolveTemporal implements the TEMPORAL sub-resolver: find the anchor
// (earliest seed-incident DEATH/BATTLE event) and filter matched events
// relative to it.
func resolveTemporal(plan types.QueryPlan, result types.QueryResult, entities entityIndex, seeds map[string]bool) types.Answer {
	var anchor *types.MatchedEvent
	for i := range result.MatchedEvents {
		ev := &result.MatchedEvents[i]
		if ev.Type != types.EventDeath && ev.Type != types.EventBattle {
			continue
		}
		if !anyParticipantIsSeed(ev.Participants, seeds) {
			continue
		}
		suf, ok := types.EventIDSuffix(ev.ID)
		if !ok {
			continue
		}
		if anchor == nil {
			anchor = ev
			continue
		}
		anchorSuf, _ := types.EventIDSuffix(anchor.ID)
		if suf < anchorSuf {
			anchor = ev
		}
	}
	if anchor == nil {
		return noAnswer("[RESOLVE] no anchor DEATH/BATTLE event with a seed participant")
	}
	anchorSuf, _ := types.EventIDSuffix(anchor.ID)

	var accepted []types.MatchedEvent
	for _, ev := range result.MatchedEvents {
		suf, ok := types.EventIDSuffix(ev.ID)
		if !ok {
			continue
		}
		var take bool
		switch plan.Constraints.TemporalOrder {
		case types.OrderBefore:
			take = suf < anchorSuf
		case types.OrderDuring:
			take = true
		default: // AFTER or unset
			take = suf > anchorSuf
		}
		if take {
			accepted = append(accepted, ev)
		}
	}

	descending := plan.Constraints.TemporalOrder == types.OrderBefore
	sort.Slice(accepted, func(i, j int) bool {
		si, _ := types.EventIDSuffix(accepted[i].ID)
		sj, _ := types.EventIDSuffix(accepted[j].ID)
		if descending {
			return si > sj
		}
		return si < sj
	})
	if len(accepted) > 5 {
		accepted = accepted[:5]
	}
	if len(accepted) == 0 {
		return noAnswer(fmt.Sprintf("[RESOLVE] anchor=%s but no events satisfy temporal_order=%s", anchor.ID, plan.Constraints.TemporalOrder))
	}

	events := make([]types.EventSummary, 0, len(accepted))
	supporting := make([]string, 0, len(accepted))
	for _, ev := range accepted {
		events = append(events, types.EventSummary{ID: ev.ID, Type: ev.Type, Sentence: ev.Sentence})
		supporting = append(supporting, ev.ID)
	}

	return types.Answer{
		Type:               types.AnswerEventList,
		Payload:            types.AnswerPayload{Events: events},
		Confidence:         types.ConfidenceMedium,
		SupportingEventIDs: supporting,
		Trace:              []string{fmt.Sprintf("[RESOLVE] anchor=%s order=%s", anchor.ID, plan.Constraints.TemporalOrder)},
	}
}

func anyParticipantIsSeed(participants []string, seeds map[string]bool) bool {
	for _, p := range participants {
		if seeds[p] {
			return true
		}
	}
	return false
}

// resolveMultiHop implements the MULTI_HOP sub-resolver: partition matched
// events into triggers and consequences, then rank beneficiaries.
func resolveMultiHop(result types.QueryResult, entities entityIndex) types.Answer {
	triggerTypes := map[types.EventType]bool{types.EventKill: true, types.EventDeath: true}
	consequenceTypes := map[types.EventType]bool{
		types.EventAppointedAs: true, types.EventCoronation: true, types.EventBoon: true,
		types.EventSupported: true, types.EventCommand: true, types.EventRescued: true,
	}
	patientTypes := map[types.EventType]bool{types.EventBoon: true, types.EventAppointedAs: true, types.EventRescued: true}

	seeds := seedSet(result.SeedEntityIDs)

	var triggers, consequences []types.MatchedEvent
	for _, ev := range result.MatchedEvents {
		switch {
		case triggerTypes[ev.Type] && anyParticipantIsSeed(ev.Participants, seeds):
			triggers = append(triggers, ev)
		case consequenceTypes[ev.Type]:
			consequences = append(consequences, ev)
		}
	}
	if len(triggers) == 0 || len(consequences) == 0 {
		return noAnswer("[RESOLVE] trigger or consequence partition empty")
	}

	counts := make(map[string]int)
	var order []string
	var supporting []string
	for _, ev := range triggers {
		supporting = append(supporting, ev.ID)
	}
	for _, ev := range consequences {
		var want role = roleAgent
		if patientTypes[ev.Type] {
			want = rolePatient
		}
		beneficiary, ok := participantWithRole(ev, want)
		if !ok || !entities.isPerson(beneficiary) {
			continue
		}
		if counts[beneficiary] == 0 {
			order = append(order, beneficiary)
		}
		counts[beneficiary]++
		supporting = append(supporting, ev.ID)
	}
	if len(order) == 0 {
		return noAnswer("[RESOLVE] no PERSON beneficiary inferred from consequence events")
	}

	ranked := rankByFrequency(order, counts, entities)
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	return types.Answer{
		Type:               types.AnswerEntity,
		Payload:            types.AnswerPayload{Beneficiaries: ranked},
		Confidence:         types.ConfidenceMedium,
		SupportingEventIDs: supporting,
		Trace:              []string{fmt.Sprintf("[RESOLVE] %d trigger(s), %d consequence(s)", len(triggers), len(consequences))},
	}
}

// resolveCausal implements the CAUSAL sub-resolver: build a two- or
// four-node chain anchored on a SUPPORT-class event.
func resolveCausal(result types.QueryResult, entities entityIndex, seeds map[string]bool) types.Answer {
	supportTypes := map[types.EventType]bool{types.EventSupported: true, types.EventDefended: true}
	priorTypes := map[types.EventType]bool{types.EventVow: true, types.EventCommand: true, types.EventBoon: true}

	var support *types.MatchedEvent
	var trace []string
	for i := range result.MatchedEvents {
		ev := &result.MatchedEvents[i]
		if !supportTypes[ev.Type] {
			continue
		}
		agentID, ok := participantWithRole(*ev, roleAgent)
		if !ok || !seeds[agentID] {
			continue
		}
		if !entities.isPerson(agentID) {
			trace = append(trace, fmt.Sprintf("[RESOLVE] event=%s agent=%s skipped: not PERSON", ev.ID, agentID))
			continue
		}
		support = ev
		break
	}
	if support == nil {
		trace = append(trace, "[RESOLVE] no SUPPORT-class event with a PERSON seed agent")
		return noAnswer(trace...)
	}

	agentID, _ := participantWithRole(*support, roleAgent)
	patientID, hasPatient := participantWithRole(*support, rolePatient)
	if hasPatient && !entities.isPerson(patientID) {
		trace = append(trace, fmt.Sprintf("[RESOLVE] event=%s patient=%s omitted from chain: not PERSON", support.ID, patientID))
		hasPatient = false
	}
	supportSuf, _ := types.EventIDSuffix(support.ID)

	var prior *types.MatchedEvent
	for i := range result.MatchedEvents {
		ev := &result.MatchedEvents[i]
		if !priorTypes[ev.Type] {
			continue
		}
		priorAgent, ok := participantWithRole(*ev, roleAgent)
		if !ok || priorAgent != agentID {
			continue
		}
		suf, ok := types.EventIDSuffix(ev.ID)
		if !ok || suf >= supportSuf {
			continue
		}
		if prior == nil {
			prior = ev
			continue
		}
		priorSuf, _ := types.EventIDSuffix(prior.ID)
		if suf > priorSuf {
			prior = ev
		}
	}

	chain := []types.ChainNode{{Kind: types.ChainNodeEntity, ID: agentID, Name: entities.name(agentID)}}
	supporting := []string{}
	confidence := types.ConfidenceLow

	// The only legal chain shapes are the full four-node
	// [agent, prior, patient, support] and the two-node fallback
	// [agent, support]: dropping just one of prior/patient would leave
	// two same-kind nodes adjacent, breaking the ENTITY/EVENT
	// alternation. So the prior and patient ride together or not at all.
	if prior != nil && hasPatient {
		chain = append(chain,
			types.ChainNode{Kind: types.ChainNodeEvent, ID: prior.ID, Type: prior.Type},
			types.ChainNode{Kind: types.ChainNodeEntity, ID: patientID, Name: entities.name(patientID)},
		)
		supporting = append(supporting, prior.ID)
		confidence = types.ConfidenceMedium
	}
	chain = append(chain, types.ChainNode{Kind: types.ChainNodeEvent, ID: support.ID, Type: support.Type})
	supporting = append(supporting, support.ID)

	priorID := "none"
	if prior != nil {
		priorID = prior.ID
	}
	trace = append(trace, fmt.Sprintf("[RESOLVE] support=%s agent=%s prior=%s", support.ID, agentID, priorID))
	return types.Answer{
		Type:               types.AnswerChain,
		Payload:            types.AnswerPayload{Chain: chain},
		Confidence:         confidence,
		SupportingEventIDs: supporting,
		Trace:              trace,
	}
}
