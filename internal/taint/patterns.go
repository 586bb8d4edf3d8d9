package taint

import "regexp"

// All patterns are RE2 and therefore bounded: no backtracking blowup on
// adversarial input. They target PHP surface syntax but are deliberately
// approximate; a line none of them understand simply produces no evidence.
var (
	// Web-input source constructs: query, body, cookie and file-upload
	// parameter access.
	superglobalPat = regexp.MustCompile(`(?i)\$_(GET|POST|REQUEST|COOKIE|FILES)\s*\[`)

	// Shell-backtick execution on the right-hand side of an assignment.
	backtickPat = regexp.MustCompile("`[^`]*`")

	// Plain assignment: $var = rhs; — the [^=] keeps comparison operators
	// (==, ===) from being read as assignments.
	assignPat = regexp.MustCompile(`\$([A-Za-z_]\w*)\s*=\s*([^=].*);`)

	// Array element write, indexed or append: $arr[...] = rhs;
	arrayAssignPat = regexp.MustCompile(`\$([A-Za-z_]\w*)\s*\[[^\]]*\]\s*=\s*([^=].*);`)

	// Numeric casts clear SQL taint.
	castPat = regexp.MustCompile(`(?i)\(\s*(int|integer|float|double|real)\s*\)`)

	// DB-level escaping calls clear SQL taint.
	sqlSanitizerPat = regexp.MustCompile(`(?i)\b(mysqli_real_escape_string|PDO::quote|addslashes)\s*\(`)

	// Output-encoding sanitizers are sink-specific: safe for HTML output,
	// still tainted for SQL.
	htmlSanitizerPat = regexp.MustCompile(`(?i)\b(filter_var|htmlspecialchars|htmlentities|FILTER_SANITIZE_FULL_SPECIAL_CHARS|FILTER_SANITIZE_STRING)\b`)

	// A constant literal right-hand side: string, number, bool, null or
	// array literal. Concatenation with a variable disqualifies it, checked
	// separately via varUsagePat.
	constantRHSPat = regexp.MustCompile(`(?i)^\s*("(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'|\d+(\.\d+)?|true|false|null|\[.*\])\s*$`)

	// Every $variable reference on a line, in order of appearance.
	varUsagePat = regexp.MustCompile(`\$([A-Za-z_]\w*)`)

	// An array element read: $arr[ on the right-hand side.
	arrayReadPat = regexp.MustCompile(`\$([A-Za-z_]\w*)\s*\[`)

	// Dangerous-sink calls: query execution and shell execution.
	sinkCallPat = regexp.MustCompile(`(?i)\b(mysql_query|mysqli_query|execute|exec|prepare|system|shell_exec|passthru)\s*\(|->\s*query\s*\(`)

	// SQL keywords inside a line that also references a variable mark a
	// query-construction sink.
	sqlKeywordPat = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b`)

	// Local resource or process opens; fusion treats these as inert when no
	// external input is in play.
	resourceOpenPat = regexp.MustCompile(`(?i)\b(fopen|proc_open|popen)\s*\(`)
)
