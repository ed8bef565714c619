package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/ndewijer/portfolio-analytics/internal/api/request"
	"github.com/ndewijer/portfolio-analytics/internal/config"
	"github.com/ndewijer/portfolio-analytics/internal/database"
	"github.com/ndewijer/portfolio-analytics/internal/engine"
	"github.com/ndewijer/portfolio-analytics/internal/logging"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/ndewijer/portfolio-analytics/internal/service"
	"github.com/ndewijer/portfolio-analytics/internal/validation"
)

var commands = []subcommands.Command{
	&migrateCmd{},
	&snapshotCmd{},
	&rebuildCmd{},
	&positionsCmd{},
	&performanceCmd{},
}

// env is the opened database and the services wired to it.
type env struct {
	db       *sql.DB
	services *service.Services
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Reports go to stdout, so logs go to stderr.
	logger := logging.NewWithWriter(logging.Config{Level: cfg.Log.Level, Pretty: true}, os.Stderr)
	logging.SetGlobalLogger(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if _, err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &env{
		db:       db,
		services: service.NewServices(db, service.SettingsFromConfig(cfg.Valuation), logger),
	}, nil
}

func (e *env) Close() {
	e.db.Close()
}

// run opens the environment, calls fn and maps its error to an exit status.
func run(ctx context.Context, fn func(*env) error) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	if err := fn(e); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func today() time.Time {
	t := time.Now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ownerFlag validates the -owner flag value.
func ownerFlag(owner string) error {
	if owner == "" {
		return errors.New("-owner is required")
	}
	return validation.ValidateUUID(owner)
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending database migrations" }
func (*migrateCmd) Usage() string {
	return `engine migrate

  Applies every pending schema migration to the configured database.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, m := range applied {
		fmt.Printf("applied %d %s\n", m.Version, m.Path)
	}
	if len(applied) == 0 {
		fmt.Println("database is up to date")
	}
	return subcommands.ExitSuccess
}

// ownerList collects -owner values. The flag may be repeated and each value
// may hold several comma separated IDs.
type ownerList []string

func (l *ownerList) String() string { return strings.Join(*l, ",") }

func (l *ownerList) Set(v string) error {
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		if err := validation.ValidateUUID(id); err != nil {
			return err
		}
		*l = append(*l, id)
	}
	return nil
}

type snapshotCmd struct {
	owners ownerList
	date   string
	dryRun bool
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "build and store the snapshot of one day" }
func (*snapshotCmd) Usage() string {
	return `engine snapshot [-owner <uuid>[,<uuid>...]]... [-date <YYYY-MM-DD>] [-dry-run]

  Builds and stores the snapshot of the given owners, or of every owner when
  -owner is omitted. The date defaults to today. With -dry-run the snapshots
  are calculated and printed but not stored.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.owners, "owner", "owner ID, repeatable or comma separated (defaults to every owner)")
	f.StringVar(&c.date, "date", "", "snapshot date (defaults to today)")
	f.BoolVar(&c.dryRun, "dry-run", false, "calculate without storing")
}

func (c *snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	date, err := request.ParseDate(c.date, today())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	return run(ctx, func(e *env) error {
		valuation := e.services.Valuation
		owners := []string(c.owners)
		if len(owners) == 0 {
			if !c.dryRun {
				return valuation.SnapshotAllOwners(ctx, date)
			}
			if owners, err = valuation.OwnerIDs(); err != nil {
				return err
			}
		}

		var errs []error
		snapshots := []model.Snapshot{}
		for _, owner := range owners {
			var val engine.Valuation
			if c.dryRun {
				val, err = valuation.PreviewSnapshot(owner, date)
			} else {
				val, err = valuation.BuildSnapshot(ctx, owner, date)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
				continue
			}
			snapshots = append(snapshots, val.Snapshot)
		}

		if len(c.owners) == 1 && len(snapshots) == 1 {
			if err := printJSON(os.Stdout, snapshots[0]); err != nil {
				return err
			}
		} else if err := printJSON(os.Stdout, snapshots); err != nil {
			return err
		}
		return errors.Join(errs...)
	})
}

type rebuildCmd struct {
	owner string
	start string
	end   string
}

func (*rebuildCmd) Name() string     { return "rebuild" }
func (*rebuildCmd) Synopsis() string { return "recompute the stored snapshots of a date range" }
func (*rebuildCmd) Usage() string {
	return `engine rebuild -owner <uuid> [-start <YYYY-MM-DD>] [-end <YYYY-MM-DD>]

  Recomputes one snapshot per day. The range defaults to the owner's first
  transaction through today.
`
}

func (c *rebuildCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "owner ID")
	f.StringVar(&c.start, "start", "", "first day (defaults to the first transaction)")
	f.StringVar(&c.end, "end", "", "last day (defaults to today)")
}

func (c *rebuildCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := ownerFlag(c.owner); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	return run(ctx, func(e *env) error {
		defaultStart := e.services.Valuation.OldestActivity(c.owner)
		if defaultStart.IsZero() {
			defaultStart = today()
		}
		start, end, err := request.ParseDateRange(c.start, c.end, defaultStart, today())
		if err != nil {
			return err
		}
		snapshots, err := e.services.Valuation.RebuildRange(ctx, c.owner, start, end)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, snapshots)
	})
}

type positionsCmd struct {
	owner string
	date  string
}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "print the position report of one day" }
func (*positionsCmd) Usage() string {
	return `engine positions -owner <uuid> [-date <YYYY-MM-DD>]

  Values every open position without storing anything.
`
}

func (c *positionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "owner ID")
	f.StringVar(&c.date, "date", "", "valuation date (defaults to today)")
}

func (c *positionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := ownerFlag(c.owner); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	date, err := request.ParseDate(c.date, today())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	return run(ctx, func(e *env) error {
		positions, err := e.services.Valuation.GetPositions(c.owner, date)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, positions)
	})
}

type performanceCmd struct {
	owner string
	start string
	end   string
}

func (*performanceCmd) Name() string     { return "performance" }
func (*performanceCmd) Synopsis() string { return "print return and risk metrics from stored snapshots" }
func (*performanceCmd) Usage() string {
	return `engine performance -owner <uuid> [-start <YYYY-MM-DD>] [-end <YYYY-MM-DD>]

  Computes MWRR, TWR, Sharpe, Sortino and maximum drawdown over the stored
  snapshots of the range.
`
}

func (c *performanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "owner ID")
	f.StringVar(&c.start, "start", "", "first day (defaults to the first transaction)")
	f.StringVar(&c.end, "end", "", "last day (defaults to today)")
}

func (c *performanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := ownerFlag(c.owner); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	return run(ctx, func(e *env) error {
		defaultStart := e.services.Valuation.OldestActivity(c.owner)
		if defaultStart.IsZero() {
			defaultStart = today()
		}
		start, end, err := request.ParseDateRange(c.start, c.end, defaultStart, today())
		if err != nil {
			return err
		}
		report, err := e.services.Performance.GetPerformance(c.owner, start, end)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, report)
	})
}
