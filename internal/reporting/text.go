package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/lancet-sec/lancet-cli/api/schemas"
)

// TextReporter renders results for a terminal: one marker line per source
// line with its probability, evidence bullets underneath, and a summary
// footer. Batch results come out as a ranking table.
type TextReporter struct{}

// ReportFile writes the line-mode report. Comment-only lines are elided, the
// way a reviewer would skim past them.
func (r *TextReporter) ReportFile(w io.Writer, report *schemas.FileReport) error {
	fmt.Fprintf(w, "Scanning %s\n\n", report.Path)

	for _, v := range report.Verdicts {
		if v.CommentOnly {
			continue
		}
		marker := "ok  "
		if v.Label == schemas.LabelUnsafe {
			marker = "WARN"
		}
		fmt.Fprintf(w, "%s [line %3d] prob=%.3f  %s\n", marker, v.Line, v.Probability, strings.TrimSpace(v.Raw))
		for _, ev := range v.Evidence {
			fmt.Fprintf(w, "      - $%s tainted=%t (%s)\n", ev.Subject, ev.Tainted, ev.Reason)
		}
	}

	if len(report.Windows) > 0 {
		fmt.Fprintf(w, "\nMost suspicious regions:\n")
		for _, win := range report.Windows {
			fmt.Fprintf(w, "  lines %d-%d  prob=%.3f\n", win.StartLine, win.EndLine, win.Probability)
		}
	}

	fmt.Fprintf(w, "\nTotal lines scanned: %d\nUnsafe lines found: %d\n",
		report.Summary.TotalLines, report.Summary.UnsafeLines)
	return nil
}

// ReportBatch writes the prioritized ranking table.
func (r *TextReporter) ReportBatch(w io.Writer, batch *schemas.BatchReport) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Path", "Taint Hits", "Unsafe Lines", "Max Prob", "Mean Prob", "Total Lines"})
	table.SetAutoWrapText(false)

	for _, s := range batch.Summaries {
		table.Append([]string{
			s.Path,
			strconv.Itoa(s.TaintHitCount),
			strconv.Itoa(s.UnsafeLines),
			fmt.Sprintf("%.3f", s.MaxProbability),
			fmt.Sprintf("%.3f", s.MeanProbability),
			strconv.Itoa(s.TotalLines),
		})
	}
	table.Render()

	for _, sk := range batch.Skipped {
		fmt.Fprintf(w, "skipped: %s (%s)\n", sk.Path, sk.Reason)
	}
	return nil
}
