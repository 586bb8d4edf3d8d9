// Package localize scores overlapping fixed-size line windows to point at
// the most suspicious regions of a file when per-line granularity is not in
// use. It is a coarse aid for file-level classification and deliberately does
// not consult the taint tracker.
package localize

import (
	"sort"
	"strings"

	"github.com/lancet-sec/lancet-cli/api/schemas"
	"github.com/lancet-sec/lancet-cli/internal/classifier"
	"github.com/lancet-sec/lancet-cli/internal/normalize"
)

// Windows slides a windowSize-line window over the file in steps of one line,
// scores each window's normalized concatenated text, and returns the top-K
// windows by descending probability, ties broken by earlier start line.
//
// A file with fewer lines than windowSize yields exactly one window spanning
// the whole file.
func Windows(lines []string, windowSize, topK int, scorer classifier.Scorer) []schemas.WindowScore {
	if windowSize < 1 || topK < 1 || scorer == nil {
		return nil
	}

	var scored []schemas.WindowScore
	if len(lines) <= windowSize {
		end := len(lines)
		if end == 0 {
			end = 1
		}
		scored = append(scored, schemas.WindowScore{
			StartLine:   1,
			EndLine:     end,
			Probability: scoreWindow(lines, scorer),
		})
	} else {
		for start := 0; start <= len(lines)-windowSize; start++ {
			scored = append(scored, schemas.WindowScore{
				StartLine:   start + 1,
				EndLine:     start + windowSize,
				Probability: scoreWindow(lines[start:start+windowSize], scorer),
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Probability != scored[j].Probability {
			return scored[i].Probability > scored[j].Probability
		}
		return scored[i].StartLine < scored[j].StartLine
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func scoreWindow(lines []string, scorer classifier.Scorer) float64 {
	return scorer.Score(normalize.Normalize(strings.Join(lines, "\n")))
}
