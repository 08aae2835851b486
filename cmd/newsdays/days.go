package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"newsdays/internal/daystore"
	"newsdays/internal/model"
	"newsdays/internal/util"
)

var (
	summarizeID string
	showAll     bool
)

func init() {
	daysCmd.Flags().StringVar(&summarizeID, "summarize", "", "regenerate the summary of this day id before listing")
	daysCmd.Flags().BoolVar(&showAll, "newsletters", false, "list each day's newsletters")
	rootCmd.AddCommand(daysCmd)
}

var daysCmd = &cobra.Command{
	Use:   "days",
	Short: "Print the day list without the TUI",
	Long: `Print every day with its arrival timeline and the first line of its summary.

Examples:
  # List days
  newsdays days

  # Regenerate one day's summary, then list
  newsdays days --summarize 42 --newsletters`,
	Args: cobra.NoArgs,
	RunE: runDays,
}

func runDays(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.closeLog()

	gw, err := rt.newGateway(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	days, err := gw.ListDays(ctx)
	if err != nil {
		return err
	}
	store := daystore.New()
	snap, err := store.ReplaceAll(days)
	if err != nil {
		return err
	}

	if summarizeID != "" {
		id := model.ID(summarizeID)
		s, err := gw.RegenerateDaySummary(ctx, id)
		if err != nil {
			return err
		}
		if snap, err = store.PatchDaySummaryAt(snap.Epoch, id, s); err != nil {
			return fmt.Errorf("summary for %s: %w", id, err)
		}
	}

	printDays(cmd.OutOrStdout(), snap, showAll)
	return nil
}

func printDays(w io.Writer, snap daystore.Snapshot, withNewsletters bool) {
	if snap.Len() == 0 {
		fmt.Fprintln(w, "No days yet.")
		return
	}
	for _, d := range snap.Days {
		summary := "(summary not generated)"
		if text, ok := d.Summary.Get(); ok {
			summary = firstLine(text)
		}
		fmt.Fprintf(w, "%s  %-4s  %s  %s  %s\n",
			d.Date, string(d.ID), util.Timeline(d.ArrivalTimes(), 24),
			plural(len(d.Newsletters), "newsletter"), summary)
		if !withNewsletters {
			continue
		}
		for _, n := range d.Newsletters {
			fmt.Fprintf(w, "    %s  %s  %s\n", n.ReceivedAt.Format("15:04"), util.DisplayAuthor(n.Author), n.Subject)
		}
	}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#-* "))
		if line != "" {
			return line
		}
	}
	return "(empty summary)"
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
