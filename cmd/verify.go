package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
)

// Report summarizes a history log.
type Report struct {
	Entries     int
	Identified  int
	Legacy      int
	BadTimes    int
	Active      int
	First, Last time.Time
}

func summarize(entries []roulette.HistoryEntry, now time.Time) Report {
	r := Report{Entries: len(entries)}
	for _, e := range entries {
		if _, ok := roulette.IdentityOf(e.Member); ok {
			r.Identified++
		} else {
			r.Legacy++
		}
		if _, ok := e.Duration(); !ok {
			r.BadTimes++
			continue
		}
		if e.Active(now) {
			r.Active++
		}
		if r.First.IsZero() || e.StartedAt.Before(r.First) {
			r.First = e.StartedAt
		}
		if e.StartedAt.After(r.Last) {
			r.Last = e.StartedAt
		}
	}
	return r
}

func (r Report) Write(w io.Writer, loc *time.Location) {
	fmt.Fprintf(w, "entries:     %d\n", r.Entries)
	fmt.Fprintf(w, "identified:  %d\n", r.Identified)
	fmt.Fprintf(w, "legacy:      %d\n", r.Legacy)
	fmt.Fprintf(w, "bad times:   %d\n", r.BadTimes)
	fmt.Fprintf(w, "active now:  %d\n", r.Active)
	if !r.First.IsZero() {
		fmt.Fprintf(w, "first spin:  %s\n", r.First.In(loc).Format(time.RFC3339))
		fmt.Fprintf(w, "last spin:   %s\n", r.Last.In(loc).Format(time.RFC3339))
	}
}

var verifyCMD = &cobra.Command{
	Use:   "verify",
	Short: "load the history log, repairing what can be repaired, and summarize it",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := fileStore().Load(cmd.Context())
		if err != nil {
			return err
		}
		summarize(entries, time.Now()).Write(cmd.OutOrStdout(), cfg.Location())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCMD)
}
