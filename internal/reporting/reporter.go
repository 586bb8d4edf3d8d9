// Package reporting renders scan results for consumption outside the core:
// human-readable text, CSV for spreadsheets, JSON for tooling and SARIF for
// code-scanning integrations. Reporters only ever read finished reports.
package reporting

import (
	"fmt"
	"io"

	"github.com/lancet-sec/lancet-cli/api/schemas"
)

// Reporter renders one file report or one batch report to a writer.
type Reporter interface {
	ReportFile(w io.Writer, report *schemas.FileReport) error
	ReportBatch(w io.Writer, batch *schemas.BatchReport) error
}

// New returns the reporter for a format name. toolVersion ends up in formats
// that carry tool metadata (SARIF, JSON).
func New(format, toolVersion string) (Reporter, error) {
	switch format {
	case "text":
		return &TextReporter{}, nil
	case "json":
		return &JSONReporter{ToolVersion: toolVersion}, nil
	case "csv":
		return &CSVReporter{}, nil
	case "sarif":
		return &SARIFReporter{ToolVersion: toolVersion}, nil
	default:
		return nil, fmt.Errorf("reporting: unknown format %q", format)
	}
}
