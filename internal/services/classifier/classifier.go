// Package classifier implements the four domain classifiers as ordered rule tables
// evaluated by a single first-match-wins function.
package classifier

import (
	"github.com/vadiminshakov/quorum/internal/domain"
)

// Predicate reports whether a rule applies to the given input.
type Predicate func(fv domain.FeatureVector, m domain.RegimeMetrics) bool

// State describes one classifier state.
type State struct {
	ID                string
	Description       string
	RecommendedAction string
	// Severity is the threat tier of the state, zero for non-threat perspectives.
	Severity  int
	Coherence domain.CoherenceLevel
}

// Rule pairs a predicate with the state it selects.
type Rule struct {
	Predicate Predicate
	State     State
}

// Table holds the ordered rules of one perspective and the catalogue of every state it can produce.
type Table struct {
	Perspective domain.PerspectiveID
	Rules       []Rule
	// Extra states reachable only through the regime fallback.
	Extra []State
}

// States lists every state of the table, rule states first.
func (t Table) States() []State {
	out := make([]State, 0, len(t.Rules)+len(t.Extra))
	for _, r := range t.Rules {
		out = append(out, r.State)
	}
	return append(out, t.Extra...)
}

// Lookup finds a state descriptor by id.
func (t Table) Lookup(id string) (State, bool) {
	for _, s := range t.States() {
		if s.ID == id {
			return s, true
		}
	}
	return State{}, false
}

// Evaluate walks the rules top to bottom and returns the first match.
// A predicate that panics counts as not matched. When nothing matches,
// the regime hint for the perspective is used, so exactly one state is always returned.
func Evaluate(t Table, fv domain.FeatureVector, m domain.RegimeMetrics) domain.ClassificationResult {
	for i, rule := range t.Rules {
		if matches(rule.Predicate, fv, m) {
			return result(t.Perspective, rule.State, i+1)
		}
	}

	return fallback(t, m)
}

func matches(p Predicate, fv domain.FeatureVector, m domain.RegimeMetrics) (ok bool) {
	if p == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return p(fv, m)
}

func fallback(t Table, m domain.RegimeMetrics) domain.ClassificationResult {
	rank := len(t.Rules) + 1

	hint, ok := m.PerPerspectiveHint[t.Perspective]
	if !ok {
		// metrics built by hand may miss hints; the last declared state is the neutral one
		states := t.States()
		res := result(t.Perspective, states[len(states)-1], rank)
		res.Fallback = true
		return res
	}

	state, known := t.Lookup(hint.State)
	if !known {
		state = State{ID: hint.State, Description: hint.Action}
	}
	state.RecommendedAction = hint.Action

	res := result(t.Perspective, state, rank)
	res.Fallback = true
	res.Confidence = hint.Confidence
	return res
}

func result(id domain.PerspectiveID, s State, rank int) domain.ClassificationResult {
	return domain.ClassificationResult{
		PerspectiveID:     id,
		StateID:           s.ID,
		PriorityRank:      rank,
		Description:       s.Description,
		RecommendedAction: s.RecommendedAction,
		Severity:          s.Severity,
		Coherence:         s.Coherence,
	}
}

var registry = []Table{MarketTable(), ThreatTable(), NarrativeTable(), CoherenceTable()}

// Tables returns the rule tables in fixed perspective order.
func Tables() []Table {
	out := make([]Table, len(registry))
	copy(out, registry)
	return out
}

// TableFor returns the table of a perspective.
func TableFor(id domain.PerspectiveID) (Table, bool) {
	for _, t := range registry {
		if t.Perspective == id {
			return t, true
		}
	}
	return Table{}, false
}

// Lookup finds a state descriptor of a perspective.
func Lookup(id domain.PerspectiveID, stateID string) (State, bool) {
	t, ok := TableFor(id)
	if !ok {
		return State{}, false
	}
	return t.Lookup(stateID)
}

// ClassifyAll runs every classifier in perspective order. Input is clamped first.
func ClassifyAll(fv domain.FeatureVector, m domain.RegimeMetrics) []domain.ClassificationResult {
	fv = fv.Clamp()

	out := make([]domain.ClassificationResult, 0, len(registry))
	for _, t := range registry {
		out = append(out, Evaluate(t, fv, m))
	}
	return out
}
