package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ayusman/pinchvol/internal/store"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	Long: `List the sessions journaled by 'pinchvol run --record', newest first.
Show the volume events of one session with 'pinchvol sessions ID'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := store.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		out := cmd.OutOrStdout()
		now := time.Now()

		if len(args) == 1 {
			sess, err := st.Sessions().GetByID(args[0])
			if err != nil {
				return fmt.Errorf("session %s: %w", args[0], err)
			}
			events, err := st.Events().ListBySession(sess.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, sessionBox(sess, now))
			fmt.Fprintln(out, eventsTable(events, sess.StartedAt))
			return nil
		}

		sessions, err := st.Sessions().List(sessionsLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions recorded yet. Run with --record to keep one.")
			return nil
		}
		fmt.Fprintln(out, sessionsTable(sessions, now))
		return nil
	},
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "number of sessions to show")
	rootCmd.AddCommand(sessionsCmd)
}

func sessionsTable(sessions []*store.Session, now time.Time) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("ID", "STARTED", "DURATION", "SINK", "FRAMES", "EVENTS", "FAILURES", "VOLUME")

	for _, s := range sessions {
		t.Row(
			shortID(s.ID),
			humanize.RelTime(s.StartedAt, now, "ago", "from now"),
			formatDuration(s, now),
			s.Sink,
			humanize.Comma(int64(s.Frames)),
			strconv.Itoa(s.Events),
			strconv.Itoa(s.Failures),
			fmt.Sprintf("%d%%", s.FinalVolume),
		)
	}
	return t.Render()
}

func sessionBox(s *store.Session, now time.Time) string {
	return renderBox("Session "+s.ID, []field{
		{"started", fmt.Sprintf("%s (%s)", s.StartedAt.Local().Format(time.DateTime), humanize.RelTime(s.StartedAt, now, "ago", "from now"))},
		{"duration", formatDuration(s, now)},
		{"sink", s.Sink},
		{"window", strconv.Itoa(s.HistorySize)},
		{"frames", fmt.Sprintf("%s (%s tracked)", humanize.Comma(int64(s.Frames)), humanize.Comma(int64(s.Tracked)))},
		{"applied", fmt.Sprintf("%s (%s)", humanize.Comma(int64(s.Applied)), failures(s.Failures))},
		{"resets", strconv.Itoa(s.Resets)},
		{"volume", fmt.Sprintf("%d%%", s.FinalVolume)},
	})
}

func eventsTable(events []*store.Event, start time.Time) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("AT", "VOLUME", "PERCENT", "DISTANCE", "RESULT")

	for _, e := range events {
		result := "ok"
		if !e.OK {
			result = errorStyle.Render(e.Kind + ": " + e.Error)
		}
		t.Row(
			"+"+e.CreatedAt.Sub(start).Round(time.Millisecond).String(),
			strconv.Itoa(e.Volume),
			strconv.Itoa(e.Percent),
			humanize.FtoaWithDigits(e.Distance, 1),
			result,
		)
	}
	return t.Render()
}

func formatDuration(s *store.Session, now time.Time) string {
	d := s.Duration(now).Round(time.Second)
	if s.EndedAt == nil {
		return d.String() + " (running)"
	}
	return d.String()
}

func failures(n int) string {
	if n == 0 {
		return "0 failures"
	}
	return errorStyle.Render(humanize.Comma(int64(n)) + " " + plural(n, "failure"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
