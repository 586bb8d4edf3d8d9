// Package taint implements the single-pass, line-local taint propagation
// analysis. A Tracker is created per file, owned by the caller, and never
// shared across files or goroutines; that isolation is what makes batch
// scanning embarrassingly parallel.
package taint

import (
	"strings"

	"github.com/lancet-sec/lancet-cli/api/schemas"
)

// Tracker holds the per-variable and per-array taint state for one file.
// Array state is aggregate: one bit per array, not per index. Index
// information is discarded on purpose, trading precision for speed.
type Tracker struct {
	vars   map[string]schemas.TaintState
	arrays map[string]schemas.TaintState
}

// NewTracker returns an empty analysis context for one file.
func NewTracker() *Tracker {
	return &Tracker{
		vars:   make(map[string]schemas.TaintState),
		arrays: make(map[string]schemas.TaintState),
	}
}

// VarState returns the recorded state of a variable. Unobserved variables
// read as Unknown, which every consumer treats as Clean.
func (t *Tracker) VarState(name string) schemas.TaintState {
	if s, ok := t.vars[name]; ok {
		return s
	}
	return schemas.TaintUnknown
}

// ArrayState returns the aggregate state of an array.
func (t *Tracker) ArrayState(name string) schemas.TaintState {
	if s, ok := t.arrays[name]; ok {
		return s
	}
	return schemas.TaintUnknown
}

// ObserveLine advances the taint state machine over one raw source line and
// returns the evidence the line produced, in emission order. It never fails:
// a line matching no recognized pattern produces no evidence and leaves all
// state untouched.
func (t *Tracker) ObserveLine(raw string) []schemas.Evidence {
	var evidence []schemas.Evidence

	// Array element writes are shaped differently from plain assignments and
	// feed the aggregate array state.
	if m := arrayAssignPat.FindStringSubmatch(raw); m != nil {
		evidence = append(evidence, t.observeArrayWrite(m[1], m[2])...)
	} else if m := assignPat.FindStringSubmatch(raw); m != nil {
		evidence = append(evidence, t.observeAssignment(m[1], m[2])...)
	}

	// Sink detection runs independently of assignment handling.
	if isSinkLine(raw) {
		evidence = append(evidence, t.observeSink(raw)...)
	}

	return evidence
}

// observeAssignment runs the ordered rule chain for $target = rhs;. The first
// matching rule wins; the order encodes the analysis policy and must not be
// reshuffled.
func (t *Tracker) observeAssignment(target, rhs string) []schemas.Evidence {
	for _, rule := range assignmentRules {
		if !rule.applies(t, rhs) {
			continue
		}
		return rule.apply(t, target, rhs)
	}
	// Nothing recognized: initialize as Clean without downgrading an
	// existing Tainted record.
	t.setDefault(target, schemas.TaintClean)
	return nil
}

// observeArrayWrite handles $arr[...] = rhs; writes against the aggregate
// array state.
func (t *Tracker) observeArrayWrite(array, rhs string) []schemas.Evidence {
	if superglobalPat.MatchString(rhs) || backtickPat.MatchString(rhs) {
		t.arrays[array] = schemas.TaintTainted
		return []schemas.Evidence{{Subject: array, Tainted: true, Reason: schemas.ReasonArrayFromInput}}
	}
	taintedRHS := t.hasTaintedArrayRead(rhs)
	if !taintedRHS {
		state, ok := t.firstReferencedState(rhs)
		taintedRHS = ok && state.Tainted()
	}
	if taintedRHS {
		// Aggregate taint never downgrades; a tainted element taints the
		// whole array.
		t.arrays[array] = schemas.TaintTainted
		return []schemas.Evidence{{Subject: array, Tainted: true, Reason: schemas.ReasonInheritedTaint}}
	}
	if _, ok := t.arrays[array]; !ok {
		t.arrays[array] = schemas.TaintClean
	}
	return nil
}

// observeSink looks up every variable referenced on a sink line and emits one
// evidence entry per variable. If the sink line also assembles a query string
// into an assignment target and any referenced variable is tainted, the
// target is promoted to Tainted so a later execution of that query string is
// flagged too.
func (t *Tracker) observeSink(raw string) []schemas.Evidence {
	var evidence []schemas.Evidence

	var anyTainted bool
	for _, name := range referencedNames(raw) {
		state := t.lookup(name)
		if state.Tainted() {
			anyTainted = true
			evidence = append(evidence, schemas.Evidence{Subject: name, Tainted: true, Reason: schemas.ReasonSinkTainted})
		} else {
			evidence = append(evidence, schemas.Evidence{Subject: name, Tainted: false, Reason: schemas.ReasonSinkClean})
		}
	}

	if anyTainted {
		if m := assignPat.FindStringSubmatch(raw); m != nil {
			target := m[1]
			if !t.VarState(target).Tainted() {
				t.vars[target] = schemas.TaintTainted
				evidence = append(evidence, schemas.Evidence{Subject: target, Tainted: true, Reason: schemas.ReasonQueryPromoted})
			} else {
				t.vars[target] = schemas.TaintTainted
			}
		}
	}

	return evidence
}

// lookup resolves a name against the variable map first, then the array map,
// so reading an element of a tainted array reads as tainted.
func (t *Tracker) lookup(name string) schemas.TaintState {
	if s, ok := t.vars[name]; ok {
		return s
	}
	if s, ok := t.arrays[name]; ok {
		return s
	}
	return schemas.TaintUnknown
}

// firstReferencedState returns the state of the first tracked variable or
// array referenced in rhs, walking occurrences strictly left to right.
func (t *Tracker) firstReferencedState(rhs string) (schemas.TaintState, bool) {
	state, _, ok := t.firstReference(rhs)
	return state, ok
}

// firstReference resolves the leftmost tracked reference in rhs and reports
// whether it was an array-element read. An occurrence followed by '[' is an
// element read of that array when the array is tracked; anything else is a
// plain variable lookup. Untracked references are skipped, not resolved.
func (t *Tracker) firstReference(rhs string) (schemas.TaintState, bool, bool) {
	for _, m := range varUsagePat.FindAllStringSubmatchIndex(rhs, -1) {
		name := rhs[m[2]:m[3]]
		rest := strings.TrimLeft(rhs[m[3]:], " \t")
		if strings.HasPrefix(rest, "[") {
			if s, tracked := t.arrays[name]; tracked {
				return s, true, true
			}
			continue
		}
		if s, tracked := t.vars[name]; tracked {
			return s, false, true
		}
	}
	return schemas.TaintUnknown, false, false
}

// hasTaintedArrayRead reports whether rhs reads an element of a tracked
// Tainted array anywhere. A tainted array element taints its reader no matter
// where the read sits in the expression.
func (t *Tracker) hasTaintedArrayRead(rhs string) bool {
	for _, m := range arrayReadPat.FindAllStringSubmatch(rhs, -1) {
		if s, ok := t.arrays[m[1]]; ok && s.Tainted() {
			return true
		}
	}
	return false
}

// setDefault records state for a name only if nothing is recorded yet. An
// existing Tainted entry is never downgraded.
func (t *Tracker) setDefault(name string, state schemas.TaintState) {
	if _, ok := t.vars[name]; !ok {
		t.vars[name] = state
	}
}

// isSinkLine reports whether the line touches a dangerous sink: a query or
// shell execution call, or a SQL keyword meeting a concatenated or
// interpolated variable. For an assignment only the right-hand side counts;
// the bare assignment target of a constant query string is not a variable
// flowing into it.
func isSinkLine(raw string) bool {
	if sinkCallPat.MatchString(raw) {
		return true
	}
	if !sqlKeywordPat.MatchString(raw) {
		return false
	}
	if m := assignPat.FindStringSubmatch(raw); m != nil {
		return varUsagePat.MatchString(m[2])
	}
	return varUsagePat.MatchString(raw)
}

// IsResourceOpen reports whether the line opens a local file or process
// handle. The fusion engine downgrades these to Safe when no external input
// is involved.
func IsResourceOpen(raw string) bool {
	return resourceOpenPat.MatchString(raw)
}

// ReferencesExternalInput reports whether the line touches a web-input
// source construct anywhere.
func ReferencesExternalInput(raw string) bool {
	return superglobalPat.MatchString(raw)
}

// IsConstantAssignment reports whether the line assigns a pure literal with
// no variable on the right-hand side.
func IsConstantAssignment(raw string) bool {
	m := assignPat.FindStringSubmatch(raw)
	if m == nil {
		return false
	}
	rhs := m[2]
	return constantRHSPat.MatchString(rhs) && !varUsagePat.MatchString(rhs)
}

// referencedNames returns every distinct variable name on the line, in order
// of first appearance, without the $ sigil.
func referencedNames(raw string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range varUsagePat.FindAllStringSubmatch(raw, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}
