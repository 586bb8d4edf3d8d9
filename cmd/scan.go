// -- cmd/scan.go --
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lancet-sec/lancet-cli/internal/classifier"
	"github.com/lancet-sec/lancet-cli/internal/config"
	"github.com/lancet-sec/lancet-cli/internal/engine"
	"github.com/lancet-sec/lancet-cli/internal/gitsource"
	"github.com/lancet-sec/lancet-cli/internal/observability"
	"github.com/lancet-sec/lancet-cli/internal/reporting"
)

type scanOptions struct {
	threshold  float64
	localize   bool
	window     int
	topK       int
	model      string
	format     string
	output     string
	workers    int
	repo       string
	extensions []string
}

func newScanCommand() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a file (line mode) or a directory tree (ranking mode)",
		Long: `Scan analyzes a single file line-by-line, or a directory recursively.
For a file, every line gets a safe/unsafe verdict plus the taint evidence
that justifies it. For a directory, files are scanned on a worker pool and
ranked by taint hits, max probability and unsafe-line count.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			applyScanFlags(cmd, cfg, &opts)
			if err := cfg.Validate(); err != nil {
				return err
			}

			// A missing or malformed model aborts before any file is read.
			model, err := classifier.Load(cfg.Classifier().ModelPath)
			if err != nil {
				return err
			}

			scanner, err := engine.NewScanner(cfg, model, observability.GetLogger())
			if err != nil {
				return err
			}

			target := ""
			if opts.repo != "" {
				checkout, err := gitsource.Clone(cmd.Context(), opts.repo, observability.GetLogger())
				if err != nil {
					return err
				}
				defer checkout.Cleanup()
				target = checkout.Dir
			} else {
				if len(args) != 1 {
					return fmt.Errorf("provide a path to scan, or --repo with a clone URL")
				}
				target = args[0]
			}

			info, err := os.Stat(target)
			if err != nil {
				return fmt.Errorf("cannot stat %s: %w", target, err)
			}

			reporter, err := reporting.New(cfg.Report().Format, Version)
			if err != nil {
				return err
			}
			out, closeOut, err := openOutput(cfg.Report().Output)
			if err != nil {
				return err
			}
			defer closeOut()

			if info.IsDir() {
				batch, err := scanner.ScanDirectory(cmd.Context(), target)
				if err != nil {
					return err
				}
				return reporter.ReportBatch(out, batch)
			}

			report, err := scanner.ScanFile(cmd.Context(), target)
			if err != nil {
				return err
			}
			return reporter.ReportFile(out, report)
		},
	}

	flags := cmd.Flags()
	flags.Float64VarP(&opts.threshold, "threshold", "t", config.ThresholdUnset, "classifier probability threshold in [0,1] (required unless configured)")
	flags.BoolVar(&opts.localize, "localize", false, "score sliding line windows and report the most suspicious regions")
	flags.IntVar(&opts.window, "window", 5, "lines per localization window")
	flags.IntVar(&opts.topK, "top-k", 10, "how many top windows to report")
	flags.StringVarP(&opts.model, "model", "m", "", "path to the trained model artifact")
	flags.StringVarP(&opts.format, "format", "f", "", "report format: text, json, csv, sarif")
	flags.StringVarP(&opts.output, "output", "o", "", "write the report to a file instead of stdout")
	flags.IntVar(&opts.workers, "workers", 0, "worker pool size for directory scans")
	flags.StringVar(&opts.repo, "repo", "", "clone and scan a remote git repository")
	flags.StringSliceVar(&opts.extensions, "ext", nil, "file extensions to scan (default .php)")

	return cmd
}

// applyScanFlags overlays explicitly-set flags onto the loaded configuration.
// Unset flags leave the config file and env values alone.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config, opts *scanOptions) {
	sc := cfg.Scan()
	if cmd.Flags().Changed("threshold") {
		sc.Threshold = opts.threshold
	}
	if cmd.Flags().Changed("localize") {
		sc.Localize = opts.localize
	}
	if cmd.Flags().Changed("window") {
		sc.WindowSize = opts.window
	}
	if cmd.Flags().Changed("top-k") {
		sc.TopK = opts.topK
	}
	if cmd.Flags().Changed("ext") {
		sc.Extensions = opts.extensions
	}
	cfg.SetScanConfig(sc)

	if cmd.Flags().Changed("workers") {
		cfg.SetEngineWorkers(opts.workers)
	}

	rc := cfg.Report()
	if cmd.Flags().Changed("format") {
		rc.Format = opts.format
	}
	if cmd.Flags().Changed("output") {
		rc.Output = opts.output
	}
	cfg.SetReportConfig(rc)

	if cmd.Flags().Changed("model") {
		cfg.ClassifierCfg.ModelPath = opts.model
	}
}

// openOutput returns the report destination and a close function. An empty
// path means stdout, which must not be closed.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
