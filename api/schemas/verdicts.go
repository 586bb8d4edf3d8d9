package schemas

// -- Line Analysis Schemas --

// Label is the final safe/unsafe classification for a single source line.
// The values are lowercase to align with the CSV and JSON export formats.
type Label string

const (
	LabelSafe   Label = "safe"   // The line is considered inert.
	LabelUnsafe Label = "unsafe" // The line likely participates in an injection flaw.
)

// TaintState describes what the tracker currently knows about a variable or
// an array. Absence from the taint maps means "not yet observed", which reads
// as Clean.
type TaintState string

const (
	TaintUnknown TaintState = "unknown"
	TaintTainted TaintState = "tainted"
	TaintClean   TaintState = "clean"
)

// Tainted reports whether the state carries external input.
func (s TaintState) Tainted() bool { return s == TaintTainted }

// ReasonCode enumerates every explanation the taint tracker can attach to a
// piece of evidence. Keeping this a closed set lets consumers match on it
// exhaustively instead of parsing free-form text.
type ReasonCode string

const (
	// Assignment reasons.
	ReasonExternalInput      ReasonCode = "assigned from external input"
	ReasonCommandExec        ReasonCode = "assigned from command execution"
	ReasonSanitizedSQL       ReasonCode = "sanitized/casted (SQL-safe)"
	ReasonSanitizedHTML      ReasonCode = "sanitized for HTML only — still tainted"
	ReasonConstantValue      ReasonCode = "assigned constant value"
	ReasonArrayFromInput     ReasonCode = "array element assigned from external input"
	ReasonInheritedTaint     ReasonCode = "inherits taint from referenced variable"
	ReasonInheritedFromArray ReasonCode = "inherits taint from array element"

	// Sink reasons. Fusion treats ReasonSinkTainted as authoritative.
	ReasonSinkTainted ReasonCode = "used in SQL/exec while tainted"
	ReasonSinkClean   ReasonCode = "used in SQL/exec"

	// Taint flowing into a query string that is being assembled on a sink line.
	ReasonQueryPromoted ReasonCode = "query string built from tainted variable"
)

// Evidence is one (subject, state, reason) observation the taint tracker
// emitted for a line. Evidence is append-only within a line and never carries
// across lines; only the taint maps do.
type Evidence struct {
	Subject string     `json:"subject"` // Variable or array name, without the leading sigil.
	Tainted bool       `json:"tainted"`
	Reason  ReasonCode `json:"reason"`
}

// LineVerdict is the per-line output of the fusion engine: exactly one per
// source line, in source order. This is the stable contract consumed by the
// reporting layer.
type LineVerdict struct {
	Line        int        `json:"line"` // 1-indexed source line number.
	Raw         string     `json:"raw"`
	Label       Label      `json:"label"`
	Probability float64    `json:"probability"`
	CommentOnly bool       `json:"comment_only,omitempty"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// WindowScore localizes risk to a contiguous span of lines when a file is
// scored coarsely rather than line-by-line. Windows may overlap.
type WindowScore struct {
	StartLine   int     `json:"start_line"`
	EndLine     int     `json:"end_line"`
	Probability float64 `json:"probability"`
}

// FileSummary carries the per-file statistics the ranker orders a batch by.
type FileSummary struct {
	Path            string  `json:"path"`
	TotalLines      int     `json:"total_lines"`
	UnsafeLines     int     `json:"unsafe_lines"`
	TaintHitCount   int     `json:"taint_hit_count"`
	MaxProbability  float64 `json:"max_probability"`
	MeanProbability float64 `json:"mean_probability"`
}

// -- Scan Report Envelopes --

// FileReport is the full result of scanning one file in line mode.
type FileReport struct {
	ScanID   string        `json:"scan_id"`
	Path     string        `json:"path"`
	Verdicts []LineVerdict `json:"verdicts"`
	// Windows is populated only when localization was requested.
	Windows []WindowScore `json:"windows,omitempty"`
	Summary FileSummary   `json:"summary"`
}

// SkippedFile records a file that could not be read during a batch scan.
// A skipped file is an outcome, not an error; the batch continues without it.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// BatchReport is the result of scanning a directory tree: one summary per
// readable file, already prioritized, plus the files the batch had to skip.
type BatchReport struct {
	ScanID    string        `json:"scan_id"`
	Root      string        `json:"root"`
	Summaries []FileSummary `json:"summaries"`
	Skipped   []SkippedFile `json:"skipped,omitempty"`
}
