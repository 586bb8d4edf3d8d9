package taint

import (
	"github.com/lancet-sec/lancet-cli/api/schemas"
)

// assignmentRule is one step of the classification chain for plain
// assignments: a pure predicate over the right-hand side plus a transform
// applied when the predicate matches. Rules are evaluated strictly in slice
// order and the first match wins, which is what makes the precedence
// unit-testable rule by rule.
type assignmentRule struct {
	name    string
	applies func(t *Tracker, rhs string) bool
	apply   func(t *Tracker, target, rhs string) []schemas.Evidence
}

// assignmentRules is the fixed precedence chain of taint transitions. Order
// matters: a cast applied to a superglobal still reads as a source, because
// the source rule sits first.
var assignmentRules = []assignmentRule{
	{
		name: "external-input source",
		applies: func(_ *Tracker, rhs string) bool {
			return superglobalPat.MatchString(rhs)
		},
		apply: func(t *Tracker, target, _ string) []schemas.Evidence {
			t.vars[target] = schemas.TaintTainted
			return []schemas.Evidence{{Subject: target, Tainted: true, Reason: schemas.ReasonExternalInput}}
		},
	},
	{
		name: "command-execution source",
		applies: func(_ *Tracker, rhs string) bool {
			return backtickPat.MatchString(rhs)
		},
		apply: func(t *Tracker, target, _ string) []schemas.Evidence {
			t.vars[target] = schemas.TaintTainted
			return []schemas.Evidence{{Subject: target, Tainted: true, Reason: schemas.ReasonCommandExec}}
		},
	},
	{
		name: "numeric cast or SQL-safe escape",
		applies: func(_ *Tracker, rhs string) bool {
			return castPat.MatchString(rhs) || sqlSanitizerPat.MatchString(rhs)
		},
		apply: func(t *Tracker, target, _ string) []schemas.Evidence {
			t.vars[target] = schemas.TaintClean
			return []schemas.Evidence{{Subject: target, Tainted: false, Reason: schemas.ReasonSanitizedSQL}}
		},
	},
	{
		name: "HTML-only sanitizer",
		applies: func(_ *Tracker, rhs string) bool {
			return htmlSanitizerPat.MatchString(rhs)
		},
		apply: func(t *Tracker, target, _ string) []schemas.Evidence {
			// Sink-specific sanitizer: harmless in HTML output, still live
			// in a SQL context.
			t.vars[target] = schemas.TaintTainted
			return []schemas.Evidence{{Subject: target, Tainted: true, Reason: schemas.ReasonSanitizedHTML}}
		},
	},
	{
		name: "constant literal",
		applies: func(_ *Tracker, rhs string) bool {
			return constantRHSPat.MatchString(rhs) && !varUsagePat.MatchString(rhs)
		},
		apply: func(t *Tracker, target, _ string) []schemas.Evidence {
			t.vars[target] = schemas.TaintClean
			return []schemas.Evidence{{Subject: target, Tainted: false, Reason: schemas.ReasonConstantValue}}
		},
	},
	{
		name: "fallback propagation",
		applies: func(t *Tracker, rhs string) bool {
			if t.hasTaintedArrayRead(rhs) {
				return true
			}
			_, _, ok := t.firstReference(rhs)
			return ok
		},
		apply: func(t *Tracker, target, rhs string) []schemas.Evidence {
			// An element read of a tainted array taints the target no matter
			// where it sits in the expression.
			if t.hasTaintedArrayRead(rhs) {
				t.vars[target] = schemas.TaintTainted
				return []schemas.Evidence{{Subject: target, Tainted: true, Reason: schemas.ReasonInheritedFromArray}}
			}
			// Otherwise the target inherits the state of the leftmost tracked
			// reference.
			state, fromArray, _ := t.firstReference(rhs)
			reason := schemas.ReasonInheritedTaint
			if fromArray {
				reason = schemas.ReasonInheritedFromArray
			}
			if state.Tainted() {
				t.vars[target] = schemas.TaintTainted
			} else {
				t.vars[target] = schemas.TaintClean
			}
			return []schemas.Evidence{{Subject: target, Tainted: state.Tainted(), Reason: reason}}
		},
	},
}
