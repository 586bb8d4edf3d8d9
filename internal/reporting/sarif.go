package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/lancet-sec/lancet-cli/api/schemas"
)

const (
	toolName    = "lancet"
	toolInfoURI = "https://github.com/lancet-sec/lancet-cli"

	ruleUnsafeLine  = "lancet.unsafe-line"
	ruleUnsafeFile  = "lancet.unsafe-file"
	ruleSkippedFile = "lancet.skipped-file"
)

// SARIFReporter exports unsafe findings as SARIF 2.1.0 so they plug straight
// into code-scanning UIs.
type SARIFReporter struct {
	ToolVersion string
}

// ReportFile emits one result per unsafe line, with the taint evidence folded
// into the message.
func (r *SARIFReporter) ReportFile(w io.Writer, report *schemas.FileReport) error {
	sarifReport, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolInfoURI)
	run.Tool.Driver.WithVersion(r.ToolVersion)

	rule := run.AddRule(ruleUnsafeLine).
		WithDescription("Line likely contains an injection-class vulnerability").
		WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: "error"})

	for _, v := range report.Verdicts {
		if v.Label != schemas.LabelUnsafe {
			continue
		}
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(report.Path)).
				WithRegion(sarif.NewRegion().WithStartLine(v.Line)),
		)
		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(resultMessage(v))).
			WithLevel("error").
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}

	sarifReport.AddRun(run)
	return sarifReport.PrettyWrite(w)
}

// ReportBatch emits one result per file that has unsafe lines, plus a note
// per skipped file.
func (r *SARIFReporter) ReportBatch(w io.Writer, batch *schemas.BatchReport) error {
	sarifReport, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolInfoURI)
	run.Tool.Driver.WithVersion(r.ToolVersion)

	fileRule := run.AddRule(ruleUnsafeFile).
		WithDescription("File contains lines likely carrying injection-class vulnerabilities").
		WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: "warning"})
	skipRule := run.AddRule(ruleSkippedFile).
		WithDescription("File could not be read and was excluded from the scan").
		WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: "note"})

	for _, s := range batch.Summaries {
		if s.UnsafeLines == 0 {
			continue
		}
		msg := fmt.Sprintf("%d unsafe lines (%d taint hits, max probability %.3f)",
			s.UnsafeLines, s.TaintHitCount, s.MaxProbability)
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(s.Path)),
		)
		run.AddResult(sarif.NewRuleResult(fileRule.ID).
			WithMessage(sarif.NewTextMessage(msg)).
			WithLevel("warning").
			WithLocations([]*sarif.Location{location}))
	}

	for _, sk := range batch.Skipped {
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(sk.Path)),
		)
		run.AddResult(sarif.NewRuleResult(skipRule.ID).
			WithMessage(sarif.NewTextMessage("skipped: "+sk.Reason)).
			WithLevel("note").
			WithLocations([]*sarif.Location{location}))
	}

	sarifReport.AddRun(run)
	return sarifReport.PrettyWrite(w)
}

func resultMessage(v schemas.LineVerdict) string {
	if len(v.Evidence) == 0 {
		return fmt.Sprintf("classifier probability %.3f exceeds threshold", v.Probability)
	}
	parts := make([]string, 0, len(v.Evidence))
	for _, ev := range v.Evidence {
		parts = append(parts, fmt.Sprintf("$%s: %s", ev.Subject, ev.Reason))
	}
	return strings.Join(parts, "; ")
}
