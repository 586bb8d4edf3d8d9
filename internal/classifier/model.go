package classifier

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// modelArtifact is the on-disk JSON layout exported by the offline training
// pipeline: a character n-gram TF-IDF vectorizer plus logistic regression
// weights. The artifact is opaque to the rest of the core.
type modelArtifact struct {
	FormatVersion int            `json:"format_version"`
	Analyzer      string         `json:"analyzer"`
	NgramMin      int            `json:"ngram_min"`
	NgramMax      int            `json:"ngram_max"`
	Vocabulary    map[string]int `json:"vocabulary"`
	IDF           []float64      `json:"idf"`
	Weights       []float64      `json:"weights"`
	Intercept     float64        `json:"intercept"`
}

// Model scores normalized source text with TF-IDF features over char_wb
// n-grams and a logistic regression head. All fields are read-only after
// Load, so a single Model is safe for concurrent use.
type Model struct {
	ngramMin  int
	ngramMax  int
	vocab     map[string]int
	idf       []float64
	weights   []float64
	intercept float64
}

// Load reads and validates a model artifact. Any failure here is fatal for
// the whole run and wraps ErrInvalidModel.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidModel, path, err)
	}

	var art modelArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidModel, path, err)
	}

	if art.Analyzer != "char_wb" {
		return nil, fmt.Errorf("%w: unsupported analyzer %q", ErrInvalidModel, art.Analyzer)
	}
	if art.NgramMin < 1 || art.NgramMax < art.NgramMin {
		return nil, fmt.Errorf("%w: bad ngram range [%d,%d]", ErrInvalidModel, art.NgramMin, art.NgramMax)
	}
	if len(art.Vocabulary) == 0 {
		return nil, fmt.Errorf("%w: empty vocabulary", ErrInvalidModel)
	}
	if len(art.IDF) != len(art.Vocabulary) || len(art.Weights) != len(art.Vocabulary) {
		return nil, fmt.Errorf("%w: vocabulary has %d terms but idf has %d and weights has %d",
			ErrInvalidModel, len(art.Vocabulary), len(art.IDF), len(art.Weights))
	}
	for term, idx := range art.Vocabulary {
		if idx < 0 || idx >= len(art.IDF) {
			return nil, fmt.Errorf("%w: term %q has out-of-range index %d", ErrInvalidModel, term, idx)
		}
	}

	return &Model{
		ngramMin:  art.NgramMin,
		ngramMax:  art.NgramMax,
		vocab:     art.Vocabulary,
		idf:       art.IDF,
		weights:   art.Weights,
		intercept: art.Intercept,
	}, nil
}

// Score implements Scorer. The result is the logistic probability over the
// L2-normalized TF-IDF vector of the input's char_wb n-grams.
func (m *Model) Score(normalized string) float64 {
	counts := make(map[int]float64)
	for _, gram := range charWBGrams(strings.ToLower(normalized), m.ngramMin, m.ngramMax) {
		if idx, ok := m.vocab[gram]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return sigmoid(m.intercept)
	}

	// Walk the features in index order so float accumulation is deterministic
	// run to run.
	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var norm float64
	for _, idx := range indices {
		v := counts[idx] * m.idf[idx]
		counts[idx] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return sigmoid(m.intercept)
	}

	z := m.intercept
	for _, idx := range indices {
		z += m.weights[idx] * (counts[idx] / norm)
	}
	return sigmoid(z)
}

// charWBGrams emits character n-grams the way the trainer's vectorizer does:
// each whitespace-separated token is padded with a space on both sides, and a
// token shorter than n contributes its padded form exactly once.
func charWBGrams(text string, minN, maxN int) []string {
	var grams []string
	for _, token := range strings.Fields(text) {
		padded := []rune(" " + token + " ")
		length := len(padded)
		for n := minN; n <= maxN; n++ {
			offset := 0
			end := n
			if end > length {
				end = length
			}
			grams = append(grams, string(padded[0:end]))
			for offset+n < length {
				offset++
				grams = append(grams, string(padded[offset:offset+n]))
			}
			if offset == 0 {
				// The whole padded token fit in one gram; larger n would
				// just repeat it.
				break
			}
		}
	}
	return grams
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
