// Package fusion combines the classifier probability, the taint evidence and
// a small set of override heuristics into one verdict per line. The decision
// order is a policy, not an implementation detail: structural and taint
// evidence are authoritative over the statistical score, which is only the
// fallback when no rule is decisive.
package fusion

import (
	"fmt"

	"github.com/lancet-sec/lancet-cli/api/schemas"
	"github.com/lancet-sec/lancet-cli/internal/normalize"
	"github.com/lancet-sec/lancet-cli/internal/taint"
)

// Engine fuses labels for the lines of one file. The threshold is supplied by
// the caller; this package bakes in no default.
type Engine struct {
	threshold float64
}

// NewEngine validates the threshold and returns a fusion engine.
func NewEngine(threshold float64) (*Engine, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("fusion: threshold must be in [0,1], got %v", threshold)
	}
	return &Engine{threshold: threshold}, nil
}

// Fuse produces exactly one verdict for a line. commentOnly comes from the
// normalizer's block-comment state machine, threaded across the file by the
// caller in line order.
func (e *Engine) Fuse(lineNo int, raw string, probability float64, evidence []schemas.Evidence, commentOnly bool) schemas.LineVerdict {
	verdict := schemas.LineVerdict{
		Line:        lineNo,
		Raw:         raw,
		Probability: probability,
		CommentOnly: commentOnly,
		Evidence:    evidence,
	}

	switch {
	case commentOnly:
		// A commented-out source line scores high with the model and may
		// even carry stale taint mentions; comments execute nothing.
		verdict.Label = schemas.LabelSafe

	case taintedAtSQLSink(evidence):
		// A confirmed taint flow into a query is never downgraded by a low
		// model score.
		verdict.Label = schemas.LabelUnsafe

	case taint.IsConstantAssignment(raw),
		isInertResourceOpen(raw):
		verdict.Label = schemas.LabelSafe

	default:
		if probability >= e.threshold {
			verdict.Label = schemas.LabelUnsafe
		} else {
			verdict.Label = schemas.LabelSafe
		}
	}

	return verdict
}

// FuseFile walks a file's lines in order, threading the comment state machine
// and pairing each line with its probability and evidence.
func (e *Engine) FuseFile(lines []string, probabilities []float64, evidence [][]schemas.Evidence) []schemas.LineVerdict {
	var state normalize.CommentState
	verdicts := make([]schemas.LineVerdict, 0, len(lines))
	for i, raw := range lines {
		var prob float64
		if i < len(probabilities) {
			prob = probabilities[i]
		}
		var ev []schemas.Evidence
		if i < len(evidence) {
			ev = evidence[i]
		}
		commentOnly := state.IsCommentOnly(raw)
		verdicts = append(verdicts, e.Fuse(i+1, raw, prob, ev, commentOnly))
	}
	return verdicts
}

// taintedAtSQLSink reports whether any evidence entry shows a tainted
// variable at a sink in SQL/exec context.
func taintedAtSQLSink(evidence []schemas.Evidence) bool {
	for _, ev := range evidence {
		if ev.Tainted && ev.Reason == schemas.ReasonSinkTainted {
			return true
		}
	}
	return false
}

// isInertResourceOpen matches lines that open a local file or process handle
// without any external-input argument. These are definitionally inert even
// when the model dislikes them.
func isInertResourceOpen(raw string) bool {
	return taint.IsResourceOpen(raw) && !taint.ReferencesExternalInput(raw)
}
