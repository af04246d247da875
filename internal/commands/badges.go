package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"hubdeck/internal/appconfig"
	"hubdeck/internal/badge"
	"hubdeck/internal/database"
	"hubdeck/internal/logger"
	"hubdeck/internal/marketplace"
	"hubdeck/internal/output"
	"hubdeck/internal/seen"
	"hubdeck/internal/webconfig"
)

// Badges runs one refresh against the configured marketplace and prints
// the counters.
func Badges(args []string) int {
	fs := flag.NewFlagSet("badges", flag.ContinueOnError)
	noMark := fs.Bool("no-mark", false, "do not mark fetched records as seen")
	last := fs.Bool("last", false, "print the last recorded run instead of refreshing")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		output.Printf("error: %s\n", err)
		return 2
	}

	cfg, err := webconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger.Init(cfg.Log)

	prefs, err := appconfig.Load(appconfig.ConfigPath())
	if err != nil {
		output.Printf("warning: failed to read hubdeck cli config: %s\n", err)
		prefs = appconfig.Default()
	}

	if err := database.Init(cfg.Database, false); err != nil {
		fmt.Fprintf(os.Stderr, "database init failed: %v\n", err)
		return 1
	}
	defer database.Close()

	runs := database.NewRefreshRunRepo()
	if *last {
		run, err := runs.Latest()
		if err != nil {
			output.Println("no refresh has been recorded yet")
			return 1
		}
		printRun(os.Stdout, run)
		return 0
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = seen.WithActor(ctx, seen.Actor{Username: "cli"})

	client := marketplace.NewClient(cfg.Marketplace, cfg.MarketTimeout())
	r := badge.NewRefresher(client, badge.NewStore(), badge.Options{
		MarkSeen:          prefs.MarkSeen(cfg.Badge.MarkSeenOnRefresh) && !*noMark,
		MarkConcurrency:   cfg.Badge.MarkConcurrency,
		TicketConcurrency: cfg.Badge.TicketConcurrency,
	}).WithHistory(runs, database.NewAuditLogRepo())

	rep, err := r.Refresh(ctx, badge.TriggerMount)
	if err != nil {
		output.Printf("error: %s\n", err)
		return 1
	}
	printReport(os.Stdout, rep)
	if len(rep.Errors) > 0 {
		return 1
	}
	return 0
}

func printReport(w io.Writer, rep badge.RefreshReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", output.Colorize("title", "badge"), output.Colorize("title", "count"))
	for _, k := range badge.Keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, output.Badge(rep.Counts.Get(k)))
	}
	tw.Flush()

	for _, m := range rep.Marks {
		if m.Total == 0 {
			continue
		}
		fmt.Fprintf(w, "marked %s: %d/%d\n", m.Entity, m.Marked, m.Total)
	}

	sources := make([]string, 0, len(rep.Errors))
	for s := range rep.Errors {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		fmt.Fprintf(w, "%s %s: %s\n", output.Colorize("danger", "failed"), s, rep.Errors[s])
	}
	fmt.Fprintf(w, "run %s in %s\n", rep.RunID, rep.Duration.Round(time.Millisecond))
}

func printRun(w io.Writer, run *database.RefreshRun) {
	counts := badge.Counts{
		Users:               run.Users,
		Sellers:             run.Sellers,
		Products:            run.Products,
		PendingProducts:     run.PendingProducts,
		Orders:              run.Orders,
		Payments:            run.Payments,
		UnreadConversations: run.UnreadConversations,
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range badge.Keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, output.Badge(counts.Get(k)))
	}
	tw.Flush()
	fmt.Fprintf(w, "run %s (%s) at %s, marked %d, failed %d\n",
		run.RunID, run.Trigger, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Marked, run.MarkFailed)
	if run.Errors != "" {
		fmt.Fprintf(w, "errors: %s\n", run.Errors)
	}
}
