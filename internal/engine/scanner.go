// Package engine orchestrates scans: single files in line mode, directory
// trees in ranking mode. Scanning is embarrassingly parallel across files;
// every file gets its own taint tracker and comment state, so workers share
// nothing mutable and the pool needs no locks around the analysis itself.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lancet-sec/lancet-cli/api/schemas"
	"github.com/lancet-sec/lancet-cli/internal/classifier"
	"github.com/lancet-sec/lancet-cli/internal/config"
	"github.com/lancet-sec/lancet-cli/internal/fusion"
	"github.com/lancet-sec/lancet-cli/internal/localize"
	"github.com/lancet-sec/lancet-cli/internal/normalize"
	"github.com/lancet-sec/lancet-cli/internal/results"
	"github.com/lancet-sec/lancet-cli/internal/taint"
)

// Scanner drives the analysis core. It holds only read-only state (config,
// the loaded scorer, the fusion engine), so one Scanner serves all workers.
type Scanner struct {
	cfg    config.Interface
	scorer classifier.Scorer
	fuser  *fusion.Engine
	logger *zap.Logger
}

// NewScanner validates its dependencies and builds a scanner. The threshold
// is validated here, before any file is touched.
func NewScanner(cfg config.Interface, scorer classifier.Scorer, logger *zap.Logger) (*Scanner, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if scorer == nil {
		return nil, errors.New("scorer cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	fuser, err := fusion.NewEngine(cfg.Scan().Threshold)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		cfg:    cfg,
		scorer: scorer,
		fuser:  fuser,
		logger: logger.With(zap.String("component", "engine")),
	}, nil
}

// cancelCheckStride is how many lines the core processes between context
// polls. Matching is linear per line, so a coarse stride keeps the per-file
// timeout effective without a branch on every line.
const cancelCheckStride = 256

// ScanLines is the analysis core: raw lines in, verdicts (plus optional
// windows) out. No I/O happens here and nothing persists afterwards; the
// context is only polled so a per-file timeout can cut a pathological file
// short.
func (s *Scanner) ScanLines(ctx context.Context, path string, lines []string) (*schemas.FileReport, error) {
	tracker := taint.NewTracker()

	probabilities := make([]float64, len(lines))
	evidence := make([][]schemas.Evidence, len(lines))
	for i, raw := range lines {
		if i%cancelCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		probabilities[i] = s.scorer.Score(normalize.NormalizeLine(raw))
		evidence[i] = tracker.ObserveLine(raw)
	}

	verdicts := s.fuser.FuseFile(lines, probabilities, evidence)

	report := &schemas.FileReport{
		ScanID:   uuid.NewString(),
		Path:     path,
		Verdicts: verdicts,
		Summary:  results.Summarize(path, verdicts),
	}

	if sc := s.cfg.Scan(); sc.Localize {
		report.Windows = localize.Windows(lines, sc.WindowSize, sc.TopK, s.scorer)
	}
	return report, nil
}

// ScanFile reads one file and runs the core on it.
func (s *Scanner) ScanFile(ctx context.Context, path string) (*schemas.FileReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	report, err := s.ScanLines(ctx, path, splitLines(string(data)))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Scanned file",
		zap.String("path", path),
		zap.Int("lines", report.Summary.TotalLines),
		zap.Int("unsafe", report.Summary.UnsafeLines),
	)
	return report, nil
}

// ScanDirectory walks root recursively for target-language files and scans
// them on a bounded worker pool. A single unreadable file is recorded as
// skipped and never aborts the batch; only context cancellation does.
// Summaries keep traversal order until prioritization reorders them.
func (s *Scanner) ScanDirectory(ctx context.Context, root string) (*schemas.BatchReport, error) {
	paths, err := s.discover(root)
	if err != nil {
		return nil, fmt.Errorf("discovering files under %s: %w", root, err)
	}
	s.logger.Info("Starting batch scan",
		zap.String("root", root),
		zap.Int("files", len(paths)),
		zap.Int("workers", s.cfg.Engine().Workers),
	)

	var limiter *rate.Limiter
	if fps := s.cfg.Engine().FilesPerSecond; fps > 0 {
		limiter = rate.NewLimiter(rate.Limit(fps), 1)
	}

	// Workers write disjoint indices; g.Wait orders them before the reads.
	summaries := make([]*schemas.FileSummary, len(paths))
	skipped := make([]*schemas.SkippedFile, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Engine().Workers)

	for i, path := range paths {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}

			fileCtx := gctx
			if timeout := s.cfg.Engine().PerFileTimeout; timeout > 0 {
				var cancel context.CancelFunc
				fileCtx, cancel = context.WithTimeout(gctx, timeout)
				defer cancel()
			}

			report, err := s.ScanFile(fileCtx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("Skipping unreadable file", zap.String("path", path), zap.Error(err))
				skipped[i] = &schemas.SkippedFile{Path: path, Reason: err.Error()}
				return nil
			}
			summaries[i] = &report.Summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &schemas.BatchReport{
		ScanID: uuid.NewString(),
		Root:   root,
	}
	for i := range paths {
		if summaries[i] != nil {
			batch.Summaries = append(batch.Summaries, *summaries[i])
		}
		if skipped[i] != nil {
			batch.Skipped = append(batch.Skipped, *skipped[i])
		}
	}
	results.Prioritize(batch.Summaries)

	s.logger.Info("Batch scan complete",
		zap.Int("scanned", len(batch.Summaries)),
		zap.Int("skipped", len(batch.Skipped)),
	)
	return batch, nil
}

// discover walks root lexically and returns every regular file whose
// extension matches the configured target set. Lexical order is what makes
// ranking ties deterministic.
func (s *Scanner) discover(root string) ([]string, error) {
	extensions := s.cfg.Scan().Extensions
	if len(extensions) == 0 {
		extensions = []string{".php"}
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// An unreadable directory entry is a per-file concern, not a
			// batch killer.
			s.logger.Warn("Skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// splitLines mirrors the geometry of the scanned file: one entry per source
// line, without trailing newline artifacts.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
