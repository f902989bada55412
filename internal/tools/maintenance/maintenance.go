// Package maintenance provides operator utilities for the triage store:
// row-count reporting and destructive table resets behind an explicit
// confirmation flag.
package maintenance

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mailroomhq/triage/internal/services/triage/storage/sqlite"
)

// Reset targets accepted by the -reset flag.
const (
	ResetClassifications = "classifications"
	ResetTasks           = "tasks"
	ResetBriefs          = "briefs"
	ResetAll             = "all"
)

// Config holds maintenance command configuration.
type Config struct {
	DBPath     string
	Timeout    time.Duration
	Reset      string
	Confirm    bool
	JSONOutput bool
}

type envConfig struct {
	DBPath  string        `env:"TRIAGE_DB_PATH"`
	Timeout time.Duration `env:"TRIAGE_MAINTENANCE_TIMEOUT" envDefault:"1m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		DBPath:  envCfg.DBPath,
		Timeout: envCfg.Timeout,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "triage.db")
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the triage sqlite database (default: TRIAGE_DB_PATH or data/triage.db)")
	fs.StringVar(&cfg.Reset, "reset", "", "delete all rows from a table (classifications|tasks|briefs|all)")
	fs.BoolVar(&cfg.Confirm, "confirm", false, "actually perform a destructive reset")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output row counts as JSON")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the maintenance command: an optional confirmed reset,
// then a row-count report.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	target := strings.TrimSpace(strings.ToLower(cfg.Reset))
	if err := validateTarget(target); err != nil {
		return err
	}
	if target != "" && !cfg.Confirm {
		return fmt.Errorf("refusing to reset %s without -confirm", target)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store at %s: %w", cfg.DBPath, err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "close store: %v\n", closeErr)
		}
	}()

	if target != "" {
		if err := reset(ctx, store, target, out); err != nil {
			return err
		}
	}

	counts, err := store.CountRows(ctx)
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	return report(out, counts, cfg.JSONOutput)
}

func validateTarget(target string) error {
	switch target {
	case "", ResetClassifications, ResetTasks, ResetBriefs, ResetAll:
		return nil
	default:
		return fmt.Errorf("unknown reset target %q (want %s, %s, %s, or %s)",
			target, ResetClassifications, ResetTasks, ResetBriefs, ResetAll)
	}
}

func reset(ctx context.Context, store *sqlite.Store, target string, out io.Writer) error {
	type tableReset struct {
		name string
		run  func(context.Context) (int64, error)
	}
	var resets []tableReset
	switch target {
	case ResetClassifications:
		resets = []tableReset{{name: ResetClassifications, run: store.ResetClassifications}}
	case ResetTasks:
		resets = []tableReset{{name: ResetTasks, run: store.ResetTasks}}
	case ResetBriefs:
		resets = []tableReset{{name: ResetBriefs, run: store.ResetBriefs}}
	case ResetAll:
		// Classifications cascade into tasks; reset tasks first so each
		// reported count covers exactly one table.
		resets = []tableReset{
			{name: ResetTasks, run: store.ResetTasks},
			{name: ResetClassifications, run: store.ResetClassifications},
			{name: ResetBriefs, run: store.ResetBriefs},
		}
	}

	for _, table := range resets {
		deleted, err := table.run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "reset %s: %d rows deleted\n", table.name, deleted)
	}
	return nil
}

func report(out io.Writer, counts sqlite.RowCounts, asJSON bool) error {
	if asJSON {
		if err := json.NewEncoder(out).Encode(counts); err != nil {
			return fmt.Errorf("encode counts: %w", err)
		}
		return nil
	}
	fmt.Fprintf(out, "classifications: %d\n", counts.Classifications)
	fmt.Fprintf(out, "tasks: %d\n", counts.Tasks)
	fmt.Fprintf(out, "briefs: %d\n", counts.Briefs)
	return nil
}
