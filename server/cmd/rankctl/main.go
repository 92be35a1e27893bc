// Command rankctl builds one leaderboard from the configured source and
// prints it, or imports a JSON/YAML document into a sqlite source.
//
//	rankctl -config config.yaml -period weekly -date 2024-01-03
//	rankctl -config config.yaml -format json -trend 7
//	rankctl -import teams.json -dsn teams.db
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/config"
	"github.com/Microgramix/Motoristas.ranking/server/internal/engine"
	"github.com/Microgramix/Motoristas.ranking/server/internal/period"
	"github.com/Microgramix/Motoristas.ranking/server/internal/ranking"
	"github.com/Microgramix/Motoristas.ranking/server/internal/source"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	periodFlag := flag.String("period", "daily", "daily | weekly | monthly")
	date := flag.String("date", "", "selected date (YYYY-MM-DD); defaults to today")
	today := flag.String("today", "", "override today (YYYY-MM-DD)")
	format := flag.String("format", "table", "table | json")
	trend := flag.Int("trend", 0, "keep only the last N trend points (0 keeps all)")
	importPath := flag.String("import", "", "import this JSON or YAML document into the sqlite source and exit")
	dsn := flag.String("dsn", "", "sqlite DSN for -import (defaults to source.dsn)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var err error
	if *importPath != "" {
		err = runImport(ctx, *configPath, *importPath, *dsn)
	} else {
		err = run(ctx, *configPath, engine.Request{Period: *periodFlag, Date: *date}, *today, *format, *trend)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "rankctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, req engine.Request, today, format string, trend int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	src, err := source.New(cfg.Source)
	if err != nil {
		return err
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	var opts []engine.Option
	if today != "" {
		d, err := period.ParseDate(today)
		if err != nil {
			return fmt.Errorf("-today: %w", err)
		}
		loc, err := cfg.Ranking.Location()
		if err != nil {
			return err
		}
		noon := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc)
		opts = append(opts, engine.WithClock(func() time.Time { return noon }))
	}
	eng, err := engine.New(src, cfg, nil, opts...)
	if err != nil {
		return err
	}

	lb, err := eng.Leaderboard(ctx, req)
	if err != nil {
		return err
	}
	if trend > 0 {
		lb = ranking.Tail(lb, trend)
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lb)
	case "table":
		return printTable(os.Stdout, lb)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func printTable(w io.Writer, lb *types.Leaderboard) error {
	fmt.Fprintf(w, "%s ranking, %s (goal %d)\n\n", lb.Period, lb.Window.Label, lb.Goal)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tDRIVER\tDELIVERIES\tSCORE\tWEEK\tLEVEL\tPROGRESS\t")
	for _, e := range lb.Entries {
		name := e.Name
		if e.Corrected {
			name += " *"
		}
		if e.Podium {
			name = "> " + name
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%.1f%%\t\n",
			e.Rank, name, e.Deliveries, e.FinalScore, e.WeeklyDeliveries, e.Level, e.Progress)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nteam %d (score %d, %.1f%% of goal)", lb.TeamTotal, lb.TeamFinalTotal, lb.TeamProgress)
	if lb.Leader != "" {
		fmt.Fprintf(w, ", leader %s", lb.Leader)
	}
	fmt.Fprintln(w)
	if n := ranking.Skipped(lb.Skipped).Total(); n > 0 {
		fmt.Fprintf(w, "%d raw entries skipped: %v\n", n, lb.Skipped)
	}
	return nil
}

func runImport(ctx context.Context, configPath, path, dsn string) error {
	if dsn == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("no -dsn given and %w", err)
		}
		dsn = cfg.Source.DSN
	}
	if dsn == "" {
		return fmt.Errorf("-dsn is required")
	}

	docs, err := source.NewFile(path).Fetch(ctx)
	if err != nil {
		return err
	}
	db, err := source.OpenSQLite(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Import(ctx, docs)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d entries from %d teams into %s\n", n, len(docs), dsn)
	return nil
}
