package planner

import (
	"strings"

	"github.com/itihasa/kgq/internal/graphstore"
	"github.com/itihasa/kgq/internal/types"
)

var stopwords = map[string]bool{
	"i": true, "me": true, "my": true, "he": true, "she": true, "him": true, "her": true,
	"they": true, "them": true, "who": true, "whom": true, "what": true, "when": true,
	"where": true, "why": true, "how": true, "the": true, "a": true, "an": true, "of": true,
	"to": true, "from": true, "in": true, "on": true, "by": true, "and": true, "or": true,
}

var causalCues = []string{"why", "because", "reason"}
var temporalCues = []string{"before", "after", "during", "first", "last", "then"}
var multiHopCues = []string{
	"benefit", "benefited", "benefits",
	"consequence", "consequences",
	"impact", "impacted", "impacts",
	"led to", "result in", "resulted in",
	"gained", "advantage",
}

var factDefaultTypes = []types.EventType{
	types.EventKill, types.EventDeath, types.EventBattle, types.EventCoronation, types.EventAppointedAs,
}
var causalDefaultTypes = []types.EventType{
	types.EventSupported, types.EventDefended, types.EventVow, types.EventCommand,
}
var temporalDefaultTypes = []types.EventType{
	types.EventDeath, types.EventBattle, types.EventRetreated,
}
var multiHopDefaultTypes = []types.EventType{
	types.EventKill, types.EventDeath, types.EventBoon, types.EventCurse,
}

// Plan turns free-form question text and an Entity Registry Snapshot into a
// Query Plan. It never fails: unparseable input (text with no letter
// tokens) still yields a usable default plan (intent FACT, no seeds, empty
// target types, depth 1).
func Plan(questionText string, registry *graphstore.Registry) types.QueryPlan {
	norm := strings.ToLower(strings.Join(strings.Fields(questionText), " "))

	intent := classifyIntent(norm)
	seeds := extractSeeds(norm, registry)
	targetTypes := narrowEventTypes(intent, norm)
	if len(tokenize(norm)) == 0 {
		targetTypes = map[types.EventType]bool{}
	}
	constraints := deriveConstraints(intent, norm)
	depth := 1
	if intent != types.IntentFact {
		depth = 2
	}

	return types.QueryPlan{
		QuestionText:     questionText,
		Intent:           intent,
		SeedEntityIDs:    seeds,
		TargetEventTypes: targetTypes,
		Constraints:      constraints,
		TraversalDepth:   depth,
	}
}

func classifyIntent(norm string) types.Intent {
	if containsAny(norm, causalCues) {
		return types.IntentCausal
	}
	if containsAny(norm, temporalCues) {
		return types.IntentTemporal
	}
	if containsAny(norm, multiHopCues) {
		return types.IntentMultiHop
	}
	return types.IntentFact
}

func containsAny(norm string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(norm, c) {
			return true
		}
	}
	return false
}

// seedSpan is a matched token window and the entity it resolved to.
type seedSpan struct {
	start, end int // token index range [start, end)
	entity     types.RegistryEntity
}

// extractSeeds tokenizes on non-letter boundaries and, for each maximal
// token window of length 1..3, looks up the joined string in the alias
// index. The longest match at each start position wins; pronouns and
// stopwords are skipped; overlapping matches are broken by entity kind
// PERSON > GROUP > PLACE > TIME > LITERAL.
func extractSeeds(norm string, registry *graphstore.Registry) []string {
	tokens := tokenize(norm)
	if len(tokens) == 0 || registry == nil {
		return nil
	}

	var spans []seedSpan
	for i := 0; i < len(tokens); i++ {
		if stopwords[tokens[i]] {
			continue
		}
		var best *seedSpan
		for length := 3; length >= 1; length-- {
			if i+length > len(tokens) {
				continue
			}
			joined := strings.Join(tokens[i:i+length], " ")
			if ent, ok := registry.Lookup(joined); ok {
				best = &seedSpan{start: i, end: i + length, entity: ent}
				break
			}
		}
		if best != nil {
			spans = append(spans, *best)
		}
	}

	resolved := resolveOverlaps(spans)

	seen := make(map[string]bool)
	var ids []string
	for _, s := range resolved {
		if seen[s.entity.ID] {
			continue
		}
		seen[s.entity.ID] = true
		ids = append(ids, s.entity.ID)
	}
	return ids
}

// narrowEventTypes starts from the intent's default target-type set and
// adds the types that lexical cues force in (kill/slew/slay/slain → KILL,
// die/died/death → DEATH, crown/coronation → CORONATION, support/side with
// → SUPPORTED). No default member is ever removed.
func narrowEventTypes(intent types.Intent, norm string) map[types.EventType]bool {
	var defaults []types.EventType
	switch intent {
	case types.IntentFact:
		defaults = factDefaultTypes
	case types.IntentCausal:
		defaults = causalDefaultTypes
	case types.IntentTemporal:
		defaults = temporalDefaultTypes
	case types.IntentMultiHop:
		defaults = multiHopDefaultTypes
	}

	set := make(map[types.EventType]bool, len(defaults))
	for _, t := range defaults {
		set[t] = true
	}

	forced := map[types.EventType]bool{}
	if containsAny(norm, []string{"kill", "slew", "slay", "slain"}) {
		forced[types.EventKill] = true
	}
	if containsAny(norm, []string{"die", "died", "death"}) {
		forced[types.EventDeath] = true
	}
	if containsAny(norm, []string{"crown", "coronation"}) {
		forced[types.EventCoronation] = true
	}
	if containsAny(norm, []string{"support", "side with"}) {
		forced[types.EventSupported] = true
	}

	for t := range forced {
		set[t] = true
	}

	return set
}

// deriveConstraints derives the Query Plan's constraint record from intent
// and lexical cues in the normalized question text.
func deriveConstraints(intent types.Intent, norm string) types.Constraints {
	var c types.Constraints

	if containsAny(norm, []string{"kill", "slew", "slay", "slain", "murder"}) {
		c.AgentRequired = true
	}

	switch {
	case strings.Contains(norm, "before"):
		c.TemporalOrder = types.OrderBefore
	case strings.Contains(norm, "after"):
		c.TemporalOrder = types.OrderAfter
	case strings.Contains(norm, "during"):
		c.TemporalOrder = types.OrderDuring
	}

	if intent == types.IntentCausal {
		c.CausalChain = true
	}

	return c
}

// resolveOverlaps keeps, among mutually overlapping spans, the one whose
// entity kind ranks highest (PERSON > GROUP > PLACE > TIME > LITERAL),
// preserving first-occurrence order among the survivors.
func resolveOverlaps(spans []seedSpan) []seedSpan {
	var result []seedSpan
	for _, s := range spans {
		overlapIdx := -1
		for i, r := range result {
			if s.start < r.end && r.start < s.end {
				overlapIdx = i
				break
			}
		}
		if overlapIdx == -1 {
			result = append(result, s)
			continue
		}
		if types.KindRank(s.entity.Kind) < types.KindRank(result[overlapIdx].entity.Kind) {
			result[overlapIdx] = s
		}
	}
	return result
}
