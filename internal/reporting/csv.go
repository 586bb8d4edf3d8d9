package reporting

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/lancet-sec/lancet-cli/api/schemas"
)

// CSVReporter writes flat exports: per-line predictions for a single file,
// per-file rankings for a batch.
type CSVReporter struct{}

// ReportFile writes one row per line verdict.
func (r *CSVReporter) ReportFile(w io.Writer, report *schemas.FileReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"path", "line", "label", "prob_unsafe", "taint_evidence"}); err != nil {
		return err
	}
	for _, v := range report.Verdicts {
		if err := cw.Write([]string{
			report.Path,
			strconv.Itoa(v.Line),
			string(v.Label),
			formatProb(v.Probability),
			strconv.Itoa(len(v.Evidence)),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReportBatch writes the ranking CSV, one row per file in priority order.
func (r *CSVReporter) ReportBatch(w io.Writer, batch *schemas.BatchReport) error {
	cw := csv.NewWriter(w)
	header := []string{"path", "taint_count", "unsafe_lines", "max_prob", "mean_prob", "total_lines"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range batch.Summaries {
		if err := cw.Write([]string{
			s.Path,
			strconv.Itoa(s.TaintHitCount),
			strconv.Itoa(s.UnsafeLines),
			formatProb(s.MaxProbability),
			formatProb(s.MeanProbability),
			strconv.Itoa(s.TotalLines),
		}); err != nil {
			return err
		}
	}
	for _, sk := range batch.Skipped {
		if err := cw.Write([]string{sk.Path, "skipped", sk.Reason, "", "", ""}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatProb(p float64) string {
	return strconv.FormatFloat(p, 'f', 6, 64)
}
