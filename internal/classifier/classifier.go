// Package classifier wraps the externally trained line scorer behind the
// Scorer contract. The training pipeline lives elsewhere; this package only
// loads its exported artifact and scores normalized text.
package classifier

import "errors"

// Scorer is the contract the scanner core depends on: given normalized text,
// return the probability in [0,1] that it is unsafe. Implementations must be
// deterministic for identical input and safe for concurrent use by multiple
// scan workers.
type Scorer interface {
	Score(normalized string) float64
}

// ErrInvalidModel wraps every artifact-load failure. A load failure is fatal:
// the caller must abort before any file is scanned, never per line.
var ErrInvalidModel = errors.New("classifier: invalid model artifact")
