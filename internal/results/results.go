// Package results turns per-line verdicts into per-file summaries and orders
// a batch of summaries for triage.
package results

import (
	"sort"

	"github.com/lancet-sec/lancet-cli/api/schemas"
)

// Summarize derives the read-only statistics for one file from its finished
// verdict sequence. It is computed once, after every verdict exists.
func Summarize(path string, verdicts []schemas.LineVerdict) schemas.FileSummary {
	summary := schemas.FileSummary{
		Path:       path,
		TotalLines: len(verdicts),
	}

	var sum float64
	for _, v := range verdicts {
		if v.Label == schemas.LabelUnsafe {
			summary.UnsafeLines++
		}
		if len(v.Evidence) > 0 {
			summary.TaintHitCount++
		}
		if v.Probability > summary.MaxProbability {
			summary.MaxProbability = v.Probability
		}
		sum += v.Probability
	}
	if len(verdicts) > 0 {
		summary.MeanProbability = sum / float64(len(verdicts))
	}
	return summary
}

// Prioritize orders summaries for triage: taint-hit count descending, then
// max probability descending, then unsafe-line count descending. The sort is
// stable, so full ties keep their file-discovery order.
func Prioritize(summaries []schemas.FileSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.TaintHitCount != b.TaintHitCount {
			return a.TaintHitCount > b.TaintHitCount
		}
		if a.MaxProbability != b.MaxProbability {
			return a.MaxProbability > b.MaxProbability
		}
		return a.UnsafeLines > b.UnsafeLines
	})
}
