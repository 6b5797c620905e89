package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"focustrail/internal/bootstrap"
	sessiondto "focustrail/internal/modules/session/dto"
	"focustrail/internal/platform/config"
	"focustrail/internal/platform/schema"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	dataDir    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "focustrail",
		Short:         "Focus sessions with passive activity tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultPath(), "config file path")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", config.DefaultDataDir(), "data directory")

	root.AddCommand(newDaemonCmd(flags))
	root.AddCommand(newStartCmd(flags))
	root.AddCommand(newEndCmd(flags))
	root.AddCommand(newCancelCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newStatsCmd(flags))
	root.AddCommand(newEventsCmd(flags))
	root.AddCommand(newSessionsCmd(flags))
	root.AddCommand(newLabelsCmd(flags))
	root.AddCommand(newSegmentsCmd(flags))
	root.AddCommand(newReadingsCmd(flags))
	root.AddCommand(newSensingCmd(flags))
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newTUICmd(flags))
	return root
}

func loadApp(ctx context.Context, flags *globalFlags, sensing bool) (*bootstrap.App, error) {
	cfg, err := config.Load(flags.configPath, flags.dataDir)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, bootstrap.Options{ConfigPath: flags.configPath, Sensing: sensing})
}

// withApp runs fn against a freshly wired app and closes it afterwards.
func withApp(flags *globalFlags, sensing bool, fn func(context.Context, *bootstrap.App) error) error {
	ctx := context.Background()
	app, err := loadApp(ctx, flags, sensing)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func newDaemonCmd(flags *globalFlags) *cobra.Command {
	daemon := &cobra.Command{Use: "daemon", Short: "Manage the focustrail daemon"}

	runForeground := func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		app, err := loadApp(ctx, flags, true)
		if err != nil {
			return err
		}
		defer app.Close()
		return app.SessionCLI.RunDaemon(ctx)
	}
	daemon.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE:  runForeground,
	})
	daemon.AddCommand(&cobra.Command{
		Use:    "__run",
		Hidden: true,
		RunE:   runForeground,
	})
	daemon.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.SessionCLI.StartDaemon(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "daemon started")
				return nil
			})
		},
	})
	daemon.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.SessionCLI.StopDaemon(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "daemon stopped")
				return nil
			})
		},
	})
	daemon.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show daemon process status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				status, err := app.SessionCLI.DaemonStatus(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "running=%t pid=%d socket=%s\n", status.Running, status.PID, status.SocketPath)
				if status.Running {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "provider=%s phase=%s last_seq=%d\n", status.Status.Provider, status.Status.State.Phase, status.Status.LastSeq)
				}
				return nil
			})
		},
	})
	return daemon
}

func newStartCmd(flags *globalFlags) *cobra.Command {
	var target time.Duration
	var mode, label string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mode == "stopwatch" && !cmd.Flags().Changed("target") {
				target = 0
			}
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				state, err := app.SessionCLI.Start(ctx, target, mode, label)
				if err != nil {
					return err
				}
				printState(cmd.OutOrStdout(), state)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&target, "target", 25*time.Minute, "session length (countdown and break)")
	cmd.Flags().StringVar(&mode, "mode", "countdown", "session mode: countdown|stopwatch|break")
	cmd.Flags().StringVar(&label, "label", "", "free-form session label")
	return cmd
}

func newEndCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "Complete the running session and segment it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				session, err := app.SessionCLI.End(ctx)
				if session.ID != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "completed %s active=%s\n", session.ID, time.Duration(session.ActiveMS)*time.Millisecond)
				}
				return err
			})
		},
	}
}

func newCancelCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Abandon the running session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				state, err := app.SessionCLI.Cancel(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", state.SessionID)
				return nil
			})
		},
	}
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				status, err := app.SessionCLI.Status(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), status)
				}
				printState(cmd.OutOrStdout(), status.State)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newStatsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show capture loop counters and recent tick timings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				status, err := app.SessionCLI.Status(ctx)
				if err != nil {
					return err
				}
				c := status.Capture
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "session=%s running=%t ticks=%d readings=%d metadata_only=%d hidden=%d\n",
					c.SessionID, c.Running, c.Ticks, c.Readings, c.MetadataOnly, c.Hidden)
				_, _ = fmt.Fprintf(out, "failures=%d timeouts=%d write_failures=%d recognition runs=%d skips=%d failures=%d\n",
					c.Failures, c.Timeouts, c.WriteFailures, c.RecognitionRuns, c.RecognitionSkips, c.RecognitionFailures)
				if c.LastError != "" {
					_, _ = fmt.Fprintf(out, "last error: %s\n", c.LastError)
				}
				w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "AT\tOUTCOME\tTOTAL\tWINDOW\tSHOT\tHASH\tRECOGNITION")
				for _, t := range c.Recent {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", t.At.Local().Format("15:04:05"), t.Outcome,
						t.Total, t.Window, t.Screenshot, t.Hash, t.Recognition)
				}
				return w.Flush()
			})
		},
	}
}

func newEventsCmd(flags *globalFlags) *cobra.Command {
	var since int64
	var follow bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print daemon notifications as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app, err := loadApp(ctx, flags, false)
			if err != nil {
				return err
			}
			defer app.Close()
			enc := json.NewEncoder(cmd.OutOrStdout())
			for {
				events, err := app.SessionCLI.Events(ctx, since)
				if err != nil {
					return err
				}
				for _, e := range events {
					if err := enc.Encode(e); err != nil {
						return err
					}
					since = e.Seq
				}
				if !follow {
					return nil
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		},
	}
	cmd.Flags().Int64Var(&since, "since", 0, "only events after this sequence number")
	cmd.Flags().BoolVar(&follow, "follow", false, "keep polling for new events")
	return cmd
}

func newSessionsCmd(flags *globalFlags) *cobra.Command {
	sessions := &cobra.Command{Use: "sessions", Short: "Browse finished sessions"}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List completed and interrupted sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.SessionCLI.Sessions(ctx, limit, offset)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tMODE\tACTIVE\tLABEL\tTAG\tTOP APPS")
				for _, s := range items {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.StartedAt.Local().Format("2006-01-02 15:04"),
						s.Status, s.Mode, time.Duration(s.ActiveMS)*time.Millisecond, s.Label, s.LabelName, formatTopApps(s.TopApps))
				}
				return w.Flush()
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "page size")
	listCmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				s, err := app.SessionCLI.Session(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), s)
			})
		},
	}

	reportCmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Write a markdown report for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Report(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report=%s\n", out.Path)
				return nil
			})
		},
	}

	labelCmd := &cobra.Command{
		Use:   "label <session-id> [label-id]",
		Short: "Tag a session with a label, or clear its tag when no label is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			labelID := ""
			if len(args) == 2 {
				labelID = args[1]
			}
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				return app.SessionCLI.SetSessionLabel(ctx, args[0], labelID)
			})
		},
	}

	sessions.AddCommand(listCmd, showCmd, reportCmd, labelCmd)
	return sessions
}

func formatTopApps(apps []sessiondto.TopApp) string {
	parts := make([]string, 0, len(apps))
	for _, a := range apps {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", a.AppID, a.Percentage))
	}
	return strings.Join(parts, ", ")
}

func newLabelsCmd(flags *globalFlags) *cobra.Command {
	labels := &cobra.Command{Use: "labels", Short: "Manage session labels"}

	labels.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List labels in display order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.SessionCLI.Labels(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ORDER\tID\tNAME\tCOLOR")
				for _, l := range items {
					_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", l.OrderIndex, l.ID, l.Name, l.Color)
				}
				return w.Flush()
			})
		},
	})

	var color string
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				l, err := app.SessionCLI.CreateLabel(ctx, args[0], color)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), l)
			})
		},
	}
	createCmd.Flags().StringVar(&color, "color", "#4f7cac", "label color as #RRGGBB")

	var newName, newColor string
	updateCmd := &cobra.Command{
		Use:   "update <label-id>",
		Short: "Rename or recolor a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch sessiondto.LabelPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &newName
			}
			if cmd.Flags().Changed("color") {
				patch.Color = &newColor
			}
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				l, err := app.SessionCLI.UpdateLabel(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), l)
			})
		},
	}
	updateCmd.Flags().StringVar(&newName, "name", "", "new label name")
	updateCmd.Flags().StringVar(&newColor, "color", "", "new color as #RRGGBB")

	labels.AddCommand(createCmd, updateCmd, &cobra.Command{
		Use:   "delete <label-id>",
		Short: "Delete a label and untag its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				return app.SessionCLI.DeleteLabel(ctx, args[0])
			})
		},
	})
	return labels
}

func newSegmentsCmd(flags *globalFlags) *cobra.Command {
	segments := &cobra.Command{
		Use:   "segments <session-id>",
		Short: "Show the activity segments of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.SegmentationCLI.Segments(ctx, args[0])
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tSTART\tSECS\tAPP\tTITLE\tCONFIDENCE\tFLAGS")
				for _, s := range items {
					flag := ""
					if s.Type != "stable" {
						flag = s.Type
					}
					_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f\t%s\t%s\t%.2f\t%s\n", s.ID, s.Start.Local().Format("15:04:05"),
						s.DurationSecs, s.AppID, s.WindowTitle, s.Confidence, flag)
				}
				return w.Flush()
			})
		},
	}

	segments.AddCommand(&cobra.Command{
		Use:   "interruptions <segment-id>",
		Short: "List the interruptions folded into a segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.SegmentationCLI.Interruptions(ctx, args[0])
				if err != nil {
					return err
				}
				for _, i := range items {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %.0fs\n", i.Timestamp.Local().Format("15:04:05"), i.AppID, i.DurationSecs)
				}
				return nil
			})
		},
	})
	segments.AddCommand(&cobra.Command{
		Use:   "titles <segment-id>",
		Short: "Break a segment down by window title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.SegmentationCLI.Titles(ctx, args[0])
				if err != nil {
					return err
				}
				for _, t := range items {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%6.0fs %4d  %s\n", t.Secs, t.Readings, t.Title)
				}
				return nil
			})
		},
	})
	segments.AddCommand(&cobra.Command{
		Use:   "rebuild <session-id>",
		Short: "Re-run segmentation over a finished session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SegmentationCLI.Resegment(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session=%s segments=%d interruptions=%d\n", out.SessionID, len(out.Segments), len(out.Interruptions))
				return nil
			})
		},
	})
	segments.AddCommand(&cobra.Command{
		Use:   "summarize <session-id>",
		Short: "Describe each segment with a language model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SegmentationCLI.Summarize(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session=%s summarized=%d skipped=%d\n", out.SessionID, out.Summarized, out.Skipped)
				return nil
			})
		},
	})
	return segments
}

func newReadingsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "readings <session-id>",
		Short: "Dump the raw readings captured for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.CaptureCLI.Readings(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, r := range items {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newSensingCmd(flags *globalFlags) *cobra.Command {
	sensing := &cobra.Command{Use: "sensing", Short: "Inspect the sensing provider"}
	sensing.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Take one sample of the foreground window without recording it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, true, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.CaptureCLI.SampleOnce(ctx)
				_ = printJSON(cmd.OutOrStdout(), out)
				return err
			})
		},
	})
	return sensing
}

func newSchemaCmd() *cobra.Command {
	schemaCmd := &cobra.Command{Use: "schema", Short: "Print JSON schemas of machine-readable output"}
	schemaCmd.AddCommand(&cobra.Command{
		Use:   "events",
		Short: "Schema of the lines printed by `focustrail events`",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), schema.Reflect[sessiondto.EventOutput]())
		},
	})
	return schemaCmd
}

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal dashboard",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(context.Background(), flags, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return bootstrap.RunTUI(app)
		},
	}
}

func printState(w io.Writer, s sessiondto.StateOutput) {
	if s.Phase == "idle" || s.SessionID == "" {
		_, _ = fmt.Fprintln(w, "idle")
		return
	}
	_, _ = fmt.Fprintf(w, "%s %s session=%s active=%s remaining=%s",
		s.Phase, s.Mode, s.SessionID,
		time.Duration(s.ActiveMS)*time.Millisecond, time.Duration(s.RemainingMS)*time.Millisecond)
	if s.Label != "" {
		_, _ = fmt.Fprintf(w, " label=%q", s.Label)
	}
	_, _ = fmt.Fprintln(w)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
