package reporting

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lancet-sec/lancet-cli/api/schemas"
)

func sampleFileReport() *schemas.FileReport {
	return &schemas.FileReport{
		ScanID: "scan-1",
		Path:   "inject.php",
		Verdicts: []schemas.LineVerdict{
			{Line: 1, Raw: "$id = $_GET['id'];", Label: schemas.LabelSafe, Probability: 0.12,
				Evidence: []schemas.Evidence{{Subject: "id", Tainted: true, Reason: schemas.ReasonExternalInput}}},
			{Line: 2, Raw: "// old code", Label: schemas.LabelSafe, Probability: 0.80, CommentOnly: true},
			{Line: 3, Raw: "mysql_query($q);", Label: schemas.LabelUnsafe, Probability: 0.91,
				Evidence: []schemas.Evidence{{Subject: "q", Tainted: true, Reason: schemas.ReasonSinkTainted}}},
		},
		Windows: []schemas.WindowScore{{StartLine: 1, EndLine: 3, Probability: 0.77}},
		Summary: schemas.FileSummary{Path: "inject.php", TotalLines: 3, UnsafeLines: 1, TaintHitCount: 2, MaxProbability: 0.91, MeanProbability: 0.61},
	}
}

func sampleBatchReport() *schemas.BatchReport {
	return &schemas.BatchReport{
		ScanID: "scan-2",
		Root:   "/src",
		Summaries: []schemas.FileSummary{
			{Path: "inject.php", TotalLines: 3, UnsafeLines: 1, TaintHitCount: 2, MaxProbability: 0.91, MeanProbability: 0.61},
			{Path: "clean.php", TotalLines: 2, UnsafeLines: 0, TaintHitCount: 0, MaxProbability: 0.05, MeanProbability: 0.05},
		},
		Skipped: []schemas.SkippedFile{{Path: "broken.php", Reason: "permission denied"}},
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"text", "json", "csv", "sarif"} {
		r, err := New(format, "1.0.0")
		require.NoError(t, err, format)
		assert.NotNil(t, r)
	}

	_, err := New("xml", "1.0.0")
	assert.Error(t, err)
}

func TestTextReporter(t *testing.T) {
	t.Run("file report", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&TextReporter{}).ReportFile(&buf, sampleFileReport()))
		out := buf.String()

		assert.Contains(t, out, "WARN")
		assert.Contains(t, out, "mysql_query($q);")
		assert.Contains(t, out, "$q tainted=true")
		assert.Contains(t, out, "Unsafe lines found: 1")
		assert.Contains(t, out, "lines 1-3")
		assert.NotContains(t, out, "// old code", "comment-only lines are elided")
	})

	t.Run("batch report", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&TextReporter{}).ReportBatch(&buf, sampleBatchReport()))
		out := buf.String()

		assert.Contains(t, out, "inject.php")
		assert.Contains(t, out, "clean.php")
		assert.Contains(t, out, "skipped: broken.php (permission denied)")
		// Ranking order is preserved in the table body.
		assert.Less(t, strings.Index(out, "inject.php"), strings.Index(out, "clean.php"))
	})
}

func TestCSVReporter(t *testing.T) {
	t.Run("file report rows", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&CSVReporter{}).ReportFile(&buf, sampleFileReport()))

		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"path", "line", "label", "prob_unsafe", "taint_evidence"}, rows[0])
		assert.Equal(t, []string{"inject.php", "3", "unsafe", "0.910000", "1"}, rows[3])
	})

	t.Run("batch ranking rows", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&CSVReporter{}).ReportBatch(&buf, sampleBatchReport()))

		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"path", "taint_count", "unsafe_lines", "max_prob", "mean_prob", "total_lines"}, rows[0])
		assert.Equal(t, "inject.php", rows[1][0])
		assert.Equal(t, "2", rows[1][1])
		assert.Equal(t, []string{"broken.php", "skipped", "permission denied", "", "", ""}, rows[3])
	})
}

func TestJSONReporter(t *testing.T) {
	t.Run("wraps the report in a tool envelope", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&JSONReporter{ToolVersion: "1.2.3"}).ReportFile(&buf, sampleFileReport()))

		var envelope struct {
			Tool    string             `json:"tool"`
			Version string             `json:"version"`
			Report  schemas.FileReport `json:"report"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
		assert.Equal(t, "lancet", envelope.Tool)
		assert.Equal(t, "1.2.3", envelope.Version)
		assert.Equal(t, "inject.php", envelope.Report.Path)
		require.Len(t, envelope.Report.Verdicts, 3)
		assert.Equal(t, schemas.LabelUnsafe, envelope.Report.Verdicts[2].Label)
	})

	t.Run("batch report round-trips", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&JSONReporter{ToolVersion: "1.2.3"}).ReportBatch(&buf, sampleBatchReport()))

		var envelope struct {
			Report schemas.BatchReport `json:"report"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
		assert.Equal(t, "/src", envelope.Report.Root)
		assert.Len(t, envelope.Report.Summaries, 2)
		assert.Len(t, envelope.Report.Skipped, 1)
	})
}

func TestSARIFReporter(t *testing.T) {
	t.Run("file report contains one result per unsafe line", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&SARIFReporter{ToolVersion: "1.0.0"}).ReportFile(&buf, sampleFileReport()))

		var doc map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		assert.Equal(t, "2.1.0", doc["version"])

		out := buf.String()
		assert.Contains(t, out, ruleUnsafeLine)
		assert.Contains(t, out, `"startLine": 3`)
		assert.NotContains(t, out, `"startLine": 1`, "safe lines produce no results")
	})

	t.Run("batch report flags files and skips", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&SARIFReporter{ToolVersion: "1.0.0"}).ReportBatch(&buf, sampleBatchReport()))
		out := buf.String()

		assert.Contains(t, out, ruleUnsafeFile)
		assert.Contains(t, out, ruleSkippedFile)
		assert.Contains(t, out, "inject.php")
		assert.Contains(t, out, "broken.php")
		assert.NotContains(t, out, `"clean.php"`, "files without unsafe lines produce no results")
	})
}
