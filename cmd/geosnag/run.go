package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"geosnag-go/internal/app"
	"geosnag-go/internal/config"
	"geosnag-go/internal/geosnag"
)

// autoReport is the --report value meaning "use the configured report dir".
const autoReport = "auto"

// applyRunFlags folds command line overrides into cfg.
func applyRunFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("dry-run") {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
	if apply, _ := flags.GetBool("apply"); apply {
		cfg.DryRun = false
	}
	if flags.Changed("write-mode") {
		cfg.WriteMode, _ = flags.GetString("write-mode")
	}
	if flags.Changed("max-delta") {
		cfg.Matching.MaxDeltaMinutes, _ = flags.GetFloat64("max-delta")
	}
	if flags.Changed("min-confidence") {
		cfg.Matching.MinConfidence, _ = flags.GetFloat64("min-confidence")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if noSkip, _ := flags.GetBool("no-skip-processed"); noSkip {
		cfg.SkipProcessed = false
	}
	if noIndex, _ := flags.GetBool("no-index"); noIndex {
		cfg.UseIndex = false
	}
}

// parameters renders the flags the user set, for the run record.
func parameters(flags *pflag.FlagSet) string {
	var parts []string
	flags.Visit(func(f *pflag.Flag) {
		parts = append(parts, "--"+f.Name+"="+f.Value.String())
	})
	return strings.Join(parts, " ")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan, match and (with --apply) write GPS data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyRunFlags(cmd.Flags(), cfg)
		if len(cfg.ScanDirs) == 0 {
			return fmt.Errorf("no directories configured: set scan_dirs in the config file")
		}

		reindex, _ := cmd.Flags().GetBool("reindex")
		rematch, _ := cmd.Flags().GetBool("rematch")
		reportPath, _ := cmd.Flags().GetString("report")
		previewCount, _ := cmd.Flags().GetInt("preview-count")

		a, err := newApp(cmd, cfg, "run", app.Overrides{
			Parameters: parameters(cmd.Flags()),
			Reindex:    reindex,
		})
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		printBanner(out)
		if cfg.DryRun {
			fmt.Fprintln(out, "  DRY RUN MODE: no files will be modified")
			fmt.Fprintln(out, "  Use --apply to write GPS data")
		} else {
			fmt.Fprintf(out, "  LIVE MODE: files will be modified (write mode %s)\n", cfg.WriteMode)
		}
		fmt.Fprintln(out)

		started := time.Now()
		rep, err := a.Run(cmd.Context(), app.RunParams{Apply: !cfg.DryRun, Rematch: rematch})
		if errors.Is(err, geosnag.ErrNoWriter) {
			printNoWriter(out, cfg.WriteMode)
			return err
		}
		if rep == nil {
			return err
		}

		printScanSummary(out, rep)
		printMatchSummary(out, rep)
		printMatchPreview(out, rep.Match.Results, previewCount)

		if reportPath != "" {
			dest := reportPath
			if dest == autoReport {
				dest = ""
			}
			saved, rerr := a.SaveReport(cmd.Context(), rep, dest)
			if rerr != nil {
				return fmt.Errorf("saving report: %w", rerr)
			}
			fmt.Fprintf(out, "  Report saved to: %s\n\n", saved)
		}

		if err != nil {
			printApplyResult(out, rep, time.Since(started))
			return err
		}

		switch {
		case len(rep.Match.Results) == 0:
			fmt.Fprintln(out, "  No matches found. Nothing to write.")
		case cfg.DryRun:
			fmt.Fprintf(out, "  DRY RUN complete. %d photos would be geo-tagged.\n", len(rep.Match.Results))
			fmt.Fprintln(out, "  Run with --apply to write GPS data.")
			if reportPath == "" {
				fmt.Fprintln(out, "  Use --report to save a detailed CSV.")
			}
		default:
			printApplyResult(out, rep, time.Since(started))
		}
		fmt.Fprintln(out)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan and classify photos without matching",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyRunFlags(cmd.Flags(), cfg)
		if len(cfg.ScanDirs) == 0 {
			return fmt.Errorf("no directories configured: set scan_dirs in the config file")
		}
		reindex, _ := cmd.Flags().GetBool("reindex")

		a, err := newApp(cmd, cfg, "scan", app.Overrides{
			Parameters: parameters(cmd.Flags()),
			Reindex:    reindex,
		})
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.Scan(cmd.Context())
		if err != nil {
			return err
		}
		printScanSummary(cmd.OutOrStdout(), rep)
		return nil
	},
}

func addScanFlags(f *pflag.FlagSet) {
	f.Int("workers", 0, "Parallel metadata readers (default from config)")
	f.Bool("reindex", false, "Ignore the stored scan index and read every file")
	f.Bool("no-index", false, "Disable the scan index and match cache entirely")
	f.Bool("no-skip-processed", false, "Do not skip photos geosnag already processed")
}

func addRunFlags(f *pflag.FlagSet) {
	addScanFlags(f)
	f.Bool("apply", false, "Write GPS data (overrides dry_run in the config)")
	f.BoolP("dry-run", "n", false, "Preview only, no files are modified")
	f.StringP("write-mode", "w", "", "Write mode: exif, xmp_sidecar or both")
	f.Float64P("max-delta", "d", 0, "Maximum time difference in minutes")
	f.Float64("min-confidence", 0, "Minimum confidence (0-100) for a match to be accepted")
	f.StringP("report", "r", "", "Save a CSV report to this path (bare -r uses the report dir)")
	f.Lookup("report").NoOptDefVal = autoReport
	f.Int("preview-count", 20, "Number of matches to show in the preview")
	f.Bool("rematch", false, "Re-evaluate every target, ignoring the match cache")
}

func init() {
	addRunFlags(runCmd.Flags())
	addScanFlags(scanCmd.Flags())
}
