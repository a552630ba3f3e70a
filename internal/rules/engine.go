package rules

import (
	"strings"
	"sync"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/metrics"
)

// RuleStats reports match counts per rule for the rules listing endpoint.
type RuleStats struct {
	Hits        int64      `json:"hits"`
	LastMatched *time.Time `json:"lastMatched,omitempty"`
}

// Engine holds the active rule set and evaluates transactions against it.
// The set is swapped atomically on reload; evaluation never sees a
// half-loaded set.
type Engine struct {
	mu       sync.RWMutex
	rules    []Rule
	loadedAt time.Time

	statsMu sync.Mutex
	stats   map[string]*RuleStats
}

func NewEngine() *Engine {
	return &Engine{stats: make(map[string]*RuleStats)}
}

// Replace swaps in a new rule set. Called by the loader after a
// successful parse; a failed parse never reaches here.
func (e *Engine) Replace(rules []Rule) {
	e.mu.Lock()
	e.rules = rules
	e.loadedAt = time.Now().UTC()
	e.mu.Unlock()

	enabled := 0
	for _, r := range rules {
		if r.Enabled {
			enabled++
		}
	}
	metrics.RulesLoaded.Set(float64(enabled))
}

// Rules returns a copy of the active rule set.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// LoadedAt reports when the active set was installed.
func (e *Engine) LoadedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loadedAt
}

// Stats returns per-rule hit counts keyed by rule ID.
func (e *Engine) Stats() map[string]RuleStats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	out := make(map[string]RuleStats, len(e.stats))
	for id, s := range e.stats {
		out[id] = *s
	}
	return out
}

// Evaluate runs every enabled rule against the input and returns the hits.
func (e *Engine) Evaluate(in *Input) []Hit {
	e.mu.RLock()
	active := e.rules
	e.mu.RUnlock()

	var hits []Hit
	for i := range active {
		r := &active[i]
		if !r.Enabled {
			continue
		}
		if r.matches(in) {
			hits = append(hits, Hit{RuleID: r.ID, RuleName: r.Name, Severity: r.Severity, Score: r.Score})
			e.recordHit(r.ID)
		}
	}
	return hits
}

func (e *Engine) recordHit(ruleID string) {
	metrics.RuleHitsTotal.WithLabelValues(ruleID).Inc()

	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	s, ok := e.stats[ruleID]
	if !ok {
		s = &RuleStats{}
		e.stats[ruleID] = s
	}
	s.Hits++
	now := time.Now().UTC()
	s.LastMatched = &now
}

func (r *Rule) matches(in *Input) bool {
	orLogic := strings.ToUpper(r.Logic) == LogicOr
	for i := range r.Conditions {
		ok := r.Conditions[i].matches(in)
		if orLogic && ok {
			return true
		}
		if !orLogic && !ok {
			return false
		}
	}
	return !orLogic
}

func (c *Condition) matches(in *Input) bool {
	actual, err := in.resolve(c.Field)
	if err != nil {
		// unknown fields never match; Validate rejects them before a
		// rule reaches the engine
		return false
	}

	switch c.Operator {
	case "eq":
		return compareEq(actual, c.Value)
	case "neq":
		return !compareEq(actual, c.Value)
	case "gt", "gte", "lt", "lte":
		a, aok := toFloat(actual)
		b, bok := toFloat(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case "gt":
			return a > b
		case "gte":
			return a >= b
		case "lt":
			return a < b
		default:
			return a <= b
		}
	case "in":
		return inList(actual, c.Value)
	case "not_in":
		return !inList(actual, c.Value)
	case "contains":
		a, aok := actual.(string)
		b, bok := c.Value.(string)
		return aok && bok && strings.Contains(strings.ToLower(a), strings.ToLower(b))
	case "near_threshold":
		// matches amounts just under a reporting threshold: within 15%
		// below the value but not at or over it
		a, aok := toFloat(actual)
		b, bok := toFloat(c.Value)
		if !aok || !bok || b <= 0 {
			return false
		}
		return a >= b*0.85 && a < b
	}
	return false
}

func compareEq(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.EqualFold(as, bs)
	}
	return a == b
}

func inList(actual, value any) bool {
	list, ok := value.([]any)
	if !ok {
		return false
	}
	for _, v := range list {
		if compareEq(actual, v) {
			return true
		}
	}
	return false
}

// toFloat normalizes the numeric types YAML and the input produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
