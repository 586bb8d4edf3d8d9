// -- cmd/rank.go --
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lancet-sec/lancet-cli/internal/classifier"
	"github.com/lancet-sec/lancet-cli/internal/config"
	"github.com/lancet-sec/lancet-cli/internal/engine"
	"github.com/lancet-sec/lancet-cli/internal/observability"
	"github.com/lancet-sec/lancet-cli/internal/reporting"
)

func newRankCommand() *cobra.Command {
	var (
		threshold float64
		model     string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "rank <dir>",
		Short: "Rank a directory's files by injection risk and export a CSV",
		Long: `Rank scans every target file under a directory, computes per-file
statistics (taint hits, unsafe lines, max and mean probability) and writes a
prioritization CSV, most suspicious files first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			sc := cfg.Scan()
			if cmd.Flags().Changed("threshold") {
				sc.Threshold = threshold
			}
			cfg.SetScanConfig(sc)
			if cmd.Flags().Changed("model") {
				cfg.ClassifierCfg.ModelPath = model
			}
			cfg.SetReportConfig(config.ReportConfig{Format: "csv", Output: out})
			if err := cfg.Validate(); err != nil {
				return err
			}

			m, err := classifier.Load(cfg.Classifier().ModelPath)
			if err != nil {
				return err
			}
			scanner, err := engine.NewScanner(cfg, m, observability.GetLogger())
			if err != nil {
				return err
			}

			batch, err := scanner.ScanDirectory(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			reporter, err := reporting.New("csv", Version)
			if err != nil {
				return err
			}
			w, closeOut, err := openOutput(out)
			if err != nil {
				return err
			}
			defer closeOut()
			if err := reporter.ReportBatch(w, batch); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(os.Stderr, "Wrote ranked CSV to %s\n", out)
			}
			return nil
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", config.ThresholdUnset, "classifier probability threshold in [0,1]")
	cmd.Flags().StringVarP(&model, "model", "m", "", "path to the trained model artifact")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV path (default stdout)")
	return cmd
}
