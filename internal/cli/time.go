package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamboard-cli/internal/model"
	"teamboard-cli/internal/pages"
	"teamboard-cli/internal/service"
	"teamboard-cli/internal/timetrack"
	"teamboard-cli/internal/velocity"

	"github.com/spf13/cobra"
)

// timerMeta describes t as of now for the envelope's meta.
func timerMeta(t *model.Timer, now time.Time) map[string]any {
	el := timetrack.Elapsed(t, now)
	return map[string]any{
		"state":           timetrack.StateOf(t).String(),
		"elapsed":         timetrack.FormatClock(el),
		"elapsed_seconds": int64(el / time.Second),
	}
}

func newTimerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Live timer commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the active timer",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			t, err := app.svc.Time.Timer(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t, "meta": timerMeta(t, time.Now())})
		}),
	})
	cmd.AddCommand(newTimerStartCmd(app))
	cmd.AddCommand(timerTransitionCmd(app, "pause", "Pause the running timer", timetrack.CanPause, (*service.Time).Pause))
	cmd.AddCommand(timerTransitionCmd(app, "resume", "Resume the paused timer", timetrack.CanResume, (*service.Time).Resume))
	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the timer and record a time entry",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			cur, err := app.svc.Time.Timer(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := timetrack.CanStop(cur); err != nil {
				return writeErr(cmd, err)
			}
			e, err := app.svc.Time.Stop(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			d := time.Duration(e.DurationSeconds) * time.Second
			return writeOut(cmd, app, map[string]any{"data": e, "meta": map[string]any{"duration": timetrack.FormatDuration(d)}})
		}),
	})
	cmd.AddCommand(newTimerWatchCmd(app))
	return cmd
}

// timerTransitionCmd checks the transition against the current timer before
// asking the server, so a wrong-state call fails locally.
func timerTransitionCmd(app *App, use, short string, allowed func(*model.Timer) error, do func(*service.Time, context.Context) (model.Timer, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			cur, err := app.svc.Time.Timer(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := allowed(cur); err != nil {
				return writeErr(cmd, err)
			}
			t, err := do(app.svc.Time, cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t, "meta": timerMeta(&t, time.Now())})
		}),
	}
}

func newTimerStartCmd(app *App) *cobra.Command {
	var taskID int64
	var description string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a timer on a task",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			cur, err := app.svc.Time.Timer(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := timetrack.CanStart(cur); err != nil {
				return writeErr(cmd, err)
			}
			t, err := app.svc.Time.Start(cmd.Context(), taskID, strings.TrimSpace(description))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t, "meta": timerMeta(&t, time.Now())})
		}),
	}

	cmd.Flags().Int64Var(&taskID, "task", 0, "Task id")
	cmd.Flags().StringVar(&description, "description", "", "What you are working on")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func newTimerWatchCmd(app *App) *cobra.Command {
	var ticks int
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the active timer's elapsed time until interrupted",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			t, err := app.svc.Time.Timer(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if t == nil {
				return writeErr(cmd, timetrack.ErrNoTimer)
			}
			if interval <= 0 {
				interval = app.cfg.PollInterval
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			out := cmd.OutOrStdout()
			state := timetrack.StateOf(t)
			n := 0
			var tk timetrack.Ticker
			tk.Start(ctx, interval, func(_ context.Context, now time.Time) {
				fmt.Fprintf(out, "%s %s\n", timetrack.FormatClock(timetrack.Elapsed(t, now)), state)
				n++
				if ticks > 0 && n >= ticks {
					cancel()
				}
			})
			<-ctx.Done()
			tk.Stop()
			return nil
		}),
	}

	cmd.Flags().IntVar(&ticks, "ticks", 0, "Stop after this many updates (0: until interrupted)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Update interval (default: timer.poll_interval)")
	return cmd
}

func newTimeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Time entries, estimates and timesheets",
	}
	cmd.AddCommand(newTimeEntriesCmd(app))
	cmd.AddCommand(newTimeLogCmd(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete a time entry",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("entry", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.svc.Time.DeleteEntry(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": id}})
		}),
	})
	cmd.AddCommand(idCmd(app, "task", "estimate <task-id>", "Show a task's estimate", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Time.Estimate(cmd.Context(), id)
	}))
	cmd.AddCommand(newTimeSetEstimateCmd(app))
	cmd.AddCommand(idCmd(app, "task", "progress <task-id>", "Show logged versus estimated time", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Time.Progress(cmd.Context(), id)
	}))
	cmd.AddCommand(newTimeSheetCmd(app))
	return cmd
}

func newTimeEntriesCmd(app *App) *cobra.Command {
	var taskID int64

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List your time entries",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			es, err := app.svc.Time.Entries(cmd.Context(), taskID)
			if err != nil {
				return writeErr(cmd, err)
			}
			var total int64
			for _, e := range es {
				total += e.DurationSeconds
			}
			return writeOut(cmd, app, map[string]any{
				"data": es,
				"meta": map[string]any{"count": len(es), "total_seconds": total, "total": timetrack.FormatHours(total)},
			})
		}),
	}

	cmd.Flags().Int64Var(&taskID, "task", 0, "Only entries for this task")
	return cmd
}

func newTimeLogCmd(app *App) *cobra.Command {
	var in service.EntryInput
	var duration, start string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record time worked without the live timer",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			d, err := timetrack.ParseDuration(duration)
			if err != nil {
				return writeErr(cmd, err)
			}
			in.DurationSeconds = int64(d / time.Second)
			in.StartTime = time.Now().Add(-d).UTC()
			if start != "" {
				st, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return writeErr(cmd, fmt.Errorf("invalid --start (want RFC 3339): %w", err))
				}
				in.StartTime = st
			}
			e, err := app.svc.Time.LogEntry(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e})
		}),
	}

	cmd.Flags().Int64Var(&in.TaskID, "task", 0, "Task id")
	cmd.Flags().StringVar(&duration, "duration", "", `Time worked ("1h30m", "90m", "1.5h", or minutes)`)
	cmd.Flags().StringVar(&start, "start", "", "Start time, RFC 3339 (default: now minus duration)")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().BoolVar(&in.Billable, "billable", false, "Mark as billable")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func newTimeSetEstimateCmd(app *App) *cobra.Command {
	var hours float64
	var points int

	cmd := &cobra.Command{
		Use:   "set-estimate <task-id>",
		Short: "Set a task's estimate",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if hours < 0 {
				return writeErr(cmd, fmt.Errorf("--hours must not be negative"))
			}
			var sp *int
			if cmd.Flags().Changed("points") {
				sp = &points
			}
			est, err := app.svc.Time.SetEstimate(cmd.Context(), id, hours, sp)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": est})
		}),
	}

	cmd.Flags().Float64Var(&hours, "hours", 0, "Estimated hours")
	cmd.Flags().IntVar(&points, "points", 0, "Story points")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func newTimeSheetCmd(app *App) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "timesheet",
		Short: "Summarize time by day (default: this week)",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			ws, we := pages.WeekOf(time.Now())
			if start == "" {
				start = ws
			}
			if end == "" {
				end = we
			}
			ts, err := app.svc.Time.TimeSheet(cmd.Context(), start, end)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": ts, "meta": map[string]any{"total": timetrack.FormatHours(ts.TotalSeconds)}})
		}),
	}

	cmd.Flags().StringVar(&start, "start", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last day (YYYY-MM-DD)")
	return cmd
}

func newVelocityCmd(app *App) *cobra.Command {
	var boardID int64
	var periods, width, height int
	var chart bool

	cmd := &cobra.Command{
		Use:   "velocity",
		Short: "Show a board's velocity series, trend and chart",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			pts, err := app.svc.Time.Velocity(cmd.Context(), boardID, periods)
			if err != nil {
				return writeErr(cmd, err)
			}
			if chart {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), velocity.Render(pts, width, height))
				return err
			}
			return writeOut(cmd, app, map[string]any{"data": pts, "meta": velocity.Analyze(pts)})
		}),
	}

	cmd.Flags().Int64Var(&boardID, "board", 0, "Board id")
	cmd.Flags().IntVar(&periods, "periods", 0, "Number of periods (default: server's choice)")
	cmd.Flags().BoolVar(&chart, "chart", false, "Draw the chart instead of printing the envelope")
	cmd.Flags().IntVar(&width, "width", 60, "Chart width")
	cmd.Flags().IntVar(&height, "height", 10, "Chart height")
	_ = cmd.MarkFlagRequired("board")
	return cmd
}
