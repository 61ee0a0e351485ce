package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pevans/dealfeed/feed"
	"github.com/pevans/dealfeed/history"
	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the feed file and recent poll cycles",
	RunE:  statusAction,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of recent cycles to show")
	rootCmd.AddCommand(statusCmd)
}

func statusAction(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	printFeedStatus(out, a.cfg.OutputPath)

	if a.history == nil {
		fmt.Fprintln(out, "\nHistory: disabled (set history_path to record cycles)")
		return nil
	}

	ctx := cmd.Context()

	last, err := a.history.LastRebuild(ctx)
	if err != nil {
		return err
	}
	if last != nil {
		fmt.Fprintf(out, "Last rebuild: %s (%d records, %d pages)\n",
			last.FinishedAt.Local().Format("2006-01-02 15:04:05"), last.Records, last.Pages)
	} else {
		fmt.Fprintln(out, "Last rebuild: never")
	}

	cycles, err := a.history.Recent(ctx, statusLimit)
	if err != nil {
		return err
	}
	printCycles(out, cycles)

	return nil
}

// printFeedStatus describes the feed file at path
func printFeedStatus(out io.Writer, path string) {
	fmt.Fprintf(out, "Feed: %s\n", path)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(out, "  not written yet")
		return
	}
	if err != nil {
		fmt.Fprintf(out, "  error: %v\n", err)
		return
	}

	fmt.Fprintf(out, "  modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	titles, err := feed.ReadTitles(path)
	if err != nil {
		fmt.Fprintf(out, "  error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "  items: %d\n", len(titles))
	if len(titles) > 0 {
		fmt.Fprintf(out, "  newest: %s\n", titles[0])
	}
}

// printCycles prints cycles in a table, newest first
func printCycles(out io.Writer, cycles []history.Cycle) {
	fmt.Fprintln(out)
	if len(cycles) == 0 {
		fmt.Fprintln(out, "No cycles recorded.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tOUTCOME\tRECORDS\tDURATION\tERROR")
	for _, c := range cycles {
		errMsg := c.Error
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			c.StartedAt.Local().Format("2006-01-02 15:04:05"),
			c.Outcome,
			c.Records,
			c.Duration().Round(time.Millisecond),
			errMsg,
		)
	}
	_ = w.Flush()
}
