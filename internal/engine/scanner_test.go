package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/lancet-sec/lancet-cli/api/schemas"
	"github.com/lancet-sec/lancet-cli/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubScorer flags lines containing "eval" and nothing else. Deterministic
// and cheap, which is all the orchestration tests need.
type stubScorer struct{}

func (stubScorer) Score(normalized string) float64 {
	if strings.Contains(normalized, "eval") {
		return 0.9
	}
	return 0.05
}

func testConfig() *config.Config {
	return &config.Config{
		EngineCfg: config.EngineConfig{Workers: 4},
		ScanCfg: config.ScanConfig{
			Threshold:  0.5,
			WindowSize: 5,
			TopK:       3,
			Extensions: []string{".php"},
		},
		ClassifierCfg: config.ClassifierConfig{ModelPath: "unused"},
		ReportCfg:     config.ReportConfig{Format: "text"},
	}
}

func newTestScanner(t *testing.T, cfg *config.Config) *Scanner {
	t.Helper()
	s, err := NewScanner(cfg, stubScorer{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestNewScanner(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("rejects nil dependencies", func(t *testing.T) {
		_, err := NewScanner(nil, stubScorer{}, logger)
		assert.Error(t, err)
		_, err = NewScanner(testConfig(), nil, logger)
		assert.Error(t, err)
		_, err = NewScanner(testConfig(), stubScorer{}, nil)
		assert.Error(t, err)
	})

	t.Run("rejects an invalid threshold", func(t *testing.T) {
		cfg := testConfig()
		cfg.ScanCfg.Threshold = config.ThresholdUnset
		_, err := NewScanner(cfg, stubScorer{}, logger)
		assert.Error(t, err)
	})
}

func TestScanLines(t *testing.T) {
	injection := []string{
		"$id = $_GET['id'];",
		`$q = "SELECT * FROM users WHERE id=" . $id;`,
		"mysql_query($q);",
	}

	t.Run("flags the taint flow even when the model is quiet", func(t *testing.T) {
		s := newTestScanner(t, testConfig())
		report, err := s.ScanLines(context.Background(), "inject.php", injection)
		require.NoError(t, err)

		require.Len(t, report.Verdicts, 3)
		assert.Equal(t, schemas.LabelSafe, report.Verdicts[0].Label)
		assert.Equal(t, schemas.LabelUnsafe, report.Verdicts[1].Label)
		assert.Equal(t, schemas.LabelUnsafe, report.Verdicts[2].Label)

		assert.Equal(t, 3, report.Summary.TaintHitCount)
		assert.Equal(t, 2, report.Summary.UnsafeLines)
		assert.NotEmpty(t, report.ScanID)
	})

	t.Run("repeat scans agree apart from the scan id", func(t *testing.T) {
		s := newTestScanner(t, testConfig())
		a, err := s.ScanLines(context.Background(), "inject.php", injection)
		require.NoError(t, err)
		b, err := s.ScanLines(context.Background(), "inject.php", injection)
		require.NoError(t, err)

		diff := cmp.Diff(a, b, cmpopts.IgnoreFields(schemas.FileReport{}, "ScanID"))
		assert.Empty(t, diff)
		assert.NotEqual(t, a.ScanID, b.ScanID)
	})

	t.Run("html encoding does not clear sql taint", func(t *testing.T) {
		s := newTestScanner(t, testConfig())
		report, err := s.ScanLines(context.Background(), "esc.php", []string{
			"$raw = $_POST['name'];",
			"$name = htmlspecialchars($raw);",
			"mysqli_query($conn, $name);",
		})
		require.NoError(t, err)
		require.Len(t, report.Verdicts, 3)
		assert.Equal(t, schemas.LabelUnsafe, report.Verdicts[2].Label)
	})

	t.Run("model drives the verdict where taint is silent", func(t *testing.T) {
		s := newTestScanner(t, testConfig())
		report, err := s.ScanLines(context.Background(), "x.php", []string{"eval($code);", "print($msg);"})
		require.NoError(t, err)
		require.Len(t, report.Verdicts, 2)
		assert.Equal(t, schemas.LabelUnsafe, report.Verdicts[0].Label)
		assert.Equal(t, schemas.LabelSafe, report.Verdicts[1].Label)
	})

	t.Run("localization windows appear only when enabled", func(t *testing.T) {
		cfg := testConfig()
		s := newTestScanner(t, cfg)
		plain, err := s.ScanLines(context.Background(), "x.php", injection)
		require.NoError(t, err)
		assert.Nil(t, plain.Windows)

		cfg.ScanCfg.Localize = true
		s = newTestScanner(t, cfg)
		localized, err := s.ScanLines(context.Background(), "x.php", injection)
		require.NoError(t, err)
		windows := localized.Windows
		// Three lines against a window of five: one whole-file window.
		require.Len(t, windows, 1)
		assert.Equal(t, 1, windows[0].StartLine)
		assert.Equal(t, 3, windows[0].EndLine)
	})

	t.Run("empty input produces an empty report", func(t *testing.T) {
		s := newTestScanner(t, testConfig())
		report, err := s.ScanLines(context.Background(), "empty.php", nil)
		require.NoError(t, err)
		assert.Empty(t, report.Verdicts)
		assert.Equal(t, 0, report.Summary.TotalLines)
	})

	t.Run("line loop honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := newTestScanner(t, testConfig())
		_, err := s.ScanLines(ctx, "big.php", make([]string, 2048))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestScanFile(t *testing.T) {
	t.Run("reads and splits the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.php")
		require.NoError(t, os.WriteFile(path, []byte("$a = 1;\r\n$b = 2;\n"), 0o644))

		s := newTestScanner(t, testConfig())
		report, err := s.ScanFile(context.Background(), path)
		require.NoError(t, err)
		require.Len(t, report.Verdicts, 2)
		assert.Equal(t, "$a = 1;", report.Verdicts[0].Raw)
		assert.Equal(t, path, report.Path)
	})

	t.Run("missing file", func(t *testing.T) {
		s := newTestScanner(t, testConfig())
		_, err := s.ScanFile(context.Background(), filepath.Join(t.TempDir(), "absent.php"))
		assert.Error(t, err)
	})

	t.Run("honors a cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := newTestScanner(t, testConfig())
		_, err := s.ScanFile(ctx, "irrelevant.php")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestScanDirectory(t *testing.T) {
	writeTree := func(t *testing.T) string {
		t.Helper()
		root := t.TempDir()
		files := map[string]string{
			"clean.php":      "$a = 1;\n$b = 2;\n",
			"inject.php":     "$id = $_GET['id'];\n$q = \"SELECT * FROM t WHERE id=\" . $id;\nmysql_query($q);\n",
			"notes.txt":      "not scanned\n",
			"sub/nested.php": "$x = $_POST['x'];\n",
		}
		for name, content := range files {
			path := filepath.Join(root, name)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		}
		return root
	}

	t.Run("ranks the hottest file first and skips non-targets", func(t *testing.T) {
		root := writeTree(t)
		s := newTestScanner(t, testConfig())

		batch, err := s.ScanDirectory(context.Background(), root)
		require.NoError(t, err)
		require.Len(t, batch.Summaries, 3)

		assert.Equal(t, filepath.Join(root, "inject.php"), batch.Summaries[0].Path)
		assert.Empty(t, batch.Skipped)
		assert.NotEmpty(t, batch.ScanID)
		for _, s := range batch.Summaries {
			assert.NotContains(t, s.Path, "notes.txt")
		}
	})

	t.Run("records unreadable files as skipped", func(t *testing.T) {
		root := writeTree(t)
		// A dangling symlink survives discovery but fails the read.
		broken := filepath.Join(root, "broken.php")
		require.NoError(t, os.Symlink(filepath.Join(root, "gone.php"), broken))

		s := newTestScanner(t, testConfig())
		batch, err := s.ScanDirectory(context.Background(), root)
		require.NoError(t, err)
		assert.Len(t, batch.Summaries, 3)
		require.Len(t, batch.Skipped, 1)
		assert.Equal(t, broken, batch.Skipped[0].Path)
		assert.NotEmpty(t, batch.Skipped[0].Reason)
	})

	t.Run("single worker matches the parallel result", func(t *testing.T) {
		root := writeTree(t)

		parallel, err := newTestScanner(t, testConfig()).ScanDirectory(context.Background(), root)
		require.NoError(t, err)

		serialCfg := testConfig()
		serialCfg.EngineCfg.Workers = 1
		serial, err := newTestScanner(t, serialCfg).ScanDirectory(context.Background(), root)
		require.NoError(t, err)

		diff := cmp.Diff(parallel, serial, cmpopts.IgnoreFields(schemas.BatchReport{}, "ScanID"))
		assert.Empty(t, diff)
	})

	t.Run("rate limiting still completes", func(t *testing.T) {
		root := writeTree(t)
		cfg := testConfig()
		cfg.EngineCfg.FilesPerSecond = 1000

		batch, err := newTestScanner(t, cfg).ScanDirectory(context.Background(), root)
		require.NoError(t, err)
		assert.Len(t, batch.Summaries, 3)
	})

	t.Run("per-file timeout is honored", func(t *testing.T) {
		root := writeTree(t)
		cfg := testConfig()
		cfg.EngineCfg.PerFileTimeout = time.Minute

		batch, err := newTestScanner(t, cfg).ScanDirectory(context.Background(), root)
		require.NoError(t, err)
		assert.Len(t, batch.Summaries, 3)
	})

	t.Run("cancelled context aborts the batch", func(t *testing.T) {
		root := writeTree(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestScanner(t, testConfig()).ScanDirectory(ctx, root)
		assert.Error(t, err)
	})
}

func TestSplitLines(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "trailing newline dropped", in: "a\nb\n", want: []string{"a", "b"}},
		{name: "no trailing newline", in: "a\nb", want: []string{"a", "b"}},
		{name: "crlf stripped", in: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "blank interior lines kept", in: "a\n\nb\n", want: []string{"a", "", "b"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, splitLines(tc.in))
		})
	}
}
