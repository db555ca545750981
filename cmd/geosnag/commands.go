package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"geosnag-go/internal/app"
	"geosnag-go/internal/config"
	"geosnag-go/internal/encryption"
	"geosnag-go/internal/geosnag"
	"geosnag-go/internal/report"
)

const timeLayout = "2006-01-02 15:04:05"

// index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect or clear the scan index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and match cache sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, cfg, "index-stats", app.Overrides{})
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.IndexStats()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Index:       %s (%d entries)\n", s.IndexPath, s.IndexEntries)
		fmt.Fprintf(out, "Match cache: %s (%d entries)\n", s.CachePath, s.CacheEntries)
		return nil
	},
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every index entry and cached verdict",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, cfg, "index-clear", app.Overrides{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ClearIndex(); err != nil {
			return fmt.Errorf("clearing index: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Index and match cache cleared.")
		return nil
	},
}

// cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the match cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget cached no-match verdicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, cfg, "cache-clear", app.Overrides{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ClearMatchCache(); err != nil {
			return fmt.Errorf("clearing match cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Match cache cleared.")
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, cfg, "history", app.Overrides{})
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.GetHistory(limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}

		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				duration = r.FinishedAt.Time.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			rows = append(rows, []string{
				"#" + strconv.FormatInt(r.ID, 10),
				r.Operation,
				r.StartedAt.Local().Format(timeLayout),
				r.Status,
				duration,
				strconv.Itoa(r.Counts.Records),
				strconv.Itoa(r.Counts.Matched),
				strconv.Itoa(r.Counts.Written),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Operation", "Started", "Status", "Duration", "Files", "Matched", "Written"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log FILENAME",
	Short: "View the GPS writes made to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, cfg, "log", app.Overrides{})
		if err != nil {
			return err
		}
		defer a.Close()

		writes, err := a.GetFileHistory(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(writes) == 0 {
			fmt.Fprintln(out, "No writes recorded.")
			return nil
		}

		rows := make([][]string, 0, len(writes))
		for _, w := range writes {
			rows = append(rows, []string{
				w.WrittenAt.Local().Format(timeLayout),
				"#" + strconv.FormatInt(w.RunID, 10),
				w.Method,
				geosnag.Coordinate{Latitude: w.Latitude, Longitude: w.Longitude}.String(),
				strconv.FormatFloat(w.Confidence, 'f', 1, 64),
				geosnag.FormatDelta(time.Duration(w.DeltaSeconds) * time.Second),
				w.SourcePath,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Written", "Run", "Method", "GPS", "Conf", "Delta", "Source"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path, err := configPath(cmd)
		if err != nil {
			return err
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration initialized at %s\n", path)
		fmt.Fprintf(out, "Base Dir: %s\n", cfg.BaseDir)
		fmt.Fprintln(out, "Add your photo folders to scan_dirs before running geosnag.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration from %s:\n\n", path)
		fmt.Fprintf(out, "Scan Dirs:      %s\n", strings.Join(cfg.ScanDirs, ", "))
		fmt.Fprintf(out, "Extensions:     %s\n", strings.Join(cfg.Extensions, " "))
		fmt.Fprintf(out, "Recursive:      %t\n", cfg.Recursive)
		fmt.Fprintf(out, "Workers:        %d\n", cfg.Workers)
		fmt.Fprintf(out, "Write Mode:     %s\n", cfg.WriteMode)
		fmt.Fprintf(out, "Dry Run:        %t\n", cfg.DryRun)
		fmt.Fprintf(out, "Max Delta:      %g min\n", cfg.Matching.MaxDeltaMinutes)
		fmt.Fprintf(out, "Min Confidence: %g\n", cfg.Matching.MinConfidence)
		fmt.Fprintf(out, "Index:          %s (enabled: %t)\n", cfg.IndexPath, cfg.UseIndex)
		fmt.Fprintf(out, "Match Cache:    %s\n", cfg.MatchCachePath)
		fmt.Fprintf(out, "Base Dir:       %s\n", cfg.BaseDir)
		fmt.Fprintf(out, "Log Dir:        %s\n", cfg.LogDir)
		fmt.Fprintf(out, "Report Dir:     %s\n", cfg.Report.Dir)
		if cfg.Report.Encrypted() {
			fmt.Fprintf(out, "Encryption:     %s\n", cfg.Report.Encryption)
		}
		for _, ac := range cfg.Archives {
			fmt.Fprintf(out, "Archive:        %s (%s)\n", ac.Name, ac.Type)
		}
		return nil
	},
}

// report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Manage encrypted reports",
}

var reportKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the report encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc, err := reportEncryptor(cmd)
		if err != nil {
			return err
		}
		if enc.IsConfigured() {
			return encryption.ErrKeysExist
		}

		passphrase, err := promptPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return errors.New("passphrases do not match")
		}

		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Report keys generated.")
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show FILENAME",
	Short: "Print a saved report, decrypting it if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enc, err := reportEncryptor(cmd)
		if err != nil && !errors.Is(err, errNoEncryption) {
			return err
		}

		var dc geosnag.DecryptionContext
		if report.IsEncrypted(args[0], enc) {
			passphrase, err := promptPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
			if dc, err = enc.Unlock(passphrase); err != nil {
				return err
			}
		}
		return report.Copy(cmd.OutOrStdout(), args[0], enc, dc)
	},
}

var errNoEncryption = errors.New("report encryption is not configured")

// reportEncryptor builds the configured encryptor without opening the
// index or the database.
func reportEncryptor(cmd *cobra.Command) (geosnag.Encryptor, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Report.Encrypted() {
		return nil, errNoEncryption
	}
	return encryption.NewEncryptorFromConfig(cfg.Report)
}

func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func init() {
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexClearCmd)

	cacheCmd.AddCommand(cacheClearCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	reportCmd.AddCommand(reportKeygenCmd)
	reportCmd.AddCommand(reportShowCmd)
}
