package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"playerdash/internal/analytics"
	"playerdash/internal/chart"
	"playerdash/internal/config"
	"playerdash/internal/report"
	"playerdash/internal/session"
	"playerdash/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ErrPlayerNotFound is returned when --player matches no roster entry
var ErrPlayerNotFound = errors.New("player not found")

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	a, err := loadApp(opts, true, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var watcher *config.Watcher
	if a.configPath != "" {
		watcher, err = config.NewWatcher(a.configPath)
		if err != nil {
			log.Warnf("config reload disabled: %s", err)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	model := tui.NewModel(tui.ModelOptions{
		Service: a.client,
		Config:  a.cfg,
		Watcher: watcher,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}

func newPlayersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List the player roster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			players, err := a.client.Players(cmd.Context())
			if err != nil {
				return err
			}
			if len(players) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no players")
				return nil
			}
			for _, p := range players {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.ID, p.DisplayName, p.GroupName)
			}
			return nil
		},
	}
}

func newRangeCmd(opts *rootOptions) *cobra.Command {
	var playerID string

	cmd := &cobra.Command{
		Use:   "range --player <id>",
		Short: "Show the observation window of a player",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if playerID == "" {
				return errors.New("--player is required")
			}
			a, err := loadApp(opts, false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			w, err := a.client.TimeRange(cmd.Context(), playerID)
			if err != nil {
				return fmt.Errorf("resolve time range: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "earliest: %s (%d)\nlatest: %s (%d)\n",
				w.Earliest.Format(time.RFC3339Nano), analytics.TimeToMicros(w.Earliest),
				w.Latest.Format(time.RFC3339Nano), analytics.TimeToMicros(w.Latest),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&playerID, "player", "", "player id")
	return cmd
}

type analyzeOptions struct {
	playerID  string
	start     string
	end       string
	export    bool
	chartPath string
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var aopts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze --player <id>",
		Short: "Run analytics for a player and print the summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if aopts.playerID == "" {
				return errors.New("--player is required")
			}
			a, err := loadApp(opts, false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if a.cfg.MetricsAddr != "" {
				ms := startMetricsServer(a.cfg.MetricsAddr, a.registry)
				defer ms.Shutdown()
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), a, aopts)
		},
	}
	cmd.Flags().StringVar(&aopts.playerID, "player", "", "player id")
	cmd.Flags().StringVar(&aopts.start, "start", "", "start bound, RFC3339 (default: earliest sample)")
	cmd.Flags().StringVar(&aopts.end, "end", "", "end bound, RFC3339 (default: latest sample)")
	cmd.Flags().BoolVar(&aopts.export, "export", false, "write the CSV report to the export dir")
	cmd.Flags().StringVar(&aopts.chartPath, "chart", "", "render the chart series to this PNG file")
	return cmd
}

func findPlayer(players []analytics.Subject, id string) (analytics.Subject, error) {
	for _, p := range players {
		if p.ID == id {
			return p, nil
		}
	}
	return analytics.Subject{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
}

func parseBound(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse bound %q: %w", value, err)
	}
	return t, nil
}

func runAnalyze(ctx context.Context, out io.Writer, a *app, opts analyzeOptions) error {
	players, err := a.client.Players(ctx)
	if err != nil {
		return err
	}
	sub, err := findPlayer(players, opts.playerID)
	if err != nil {
		return err
	}

	sess := session.New(session.Progress{
		Interval: a.cfg.Progress.Interval,
		Step:     a.cfg.Progress.Step,
		Ceiling:  a.cfg.Progress.Ceiling,
	})
	gen := sess.SelectSubject(sub)

	w, err := a.client.TimeRange(ctx, sub.ID)
	if err != nil {
		sess.FailResolve(gen)
		return fmt.Errorf("resolve time range: %w", err)
	}
	sess.ResolveWindow(gen, w)

	start, err := parseBound(opts.start, w.Earliest)
	if err != nil {
		return err
	}
	end, err := parseBound(opts.end, w.Latest)
	if err != nil {
		return err
	}
	if err := sess.SetBounds(start, end); err != nil {
		return err
	}

	updates, err := session.NewRunner(a.client, a.cfg.RequestTimeout).Run(ctx, &sess)
	if err != nil {
		return err
	}
	for st := range updates {
		if st.Phase == session.Analyzing {
			_, _ = fmt.Fprintf(out, "%3d%% %s\n", st.Progress, sess.Progress().Label(st.Progress))
		}
	}

	st := sess.State()
	if st.Phase != session.Loaded || st.Result == nil {
		if st.Err == nil {
			return fmt.Errorf("analytics ended in phase %s", st.Phase)
		}
		return fmt.Errorf("analytics failed: %w", st.Err)
	}
	res := *st.Result

	_, _ = fmt.Fprintf(out, "%s\n", sess.Progress().Label(st.Progress))
	_, _ = fmt.Fprintf(out, "player: %s (%s)\nwindow: %s .. %s\n",
		sub.DisplayName, sub.GroupName,
		st.Start.Format(time.RFC3339Nano), st.End.Format(time.RFC3339Nano),
	)
	_, _ = fmt.Fprintf(out, "steps: %d\njumps: %d\nmax speed: %.2f m/s\navg speed: %.2f m/s\n",
		res.Steps.Count, res.Jumps.Count, res.Speed.Max, res.Speed.Average,
	)

	series := chart.Project(res)
	if series.Mismatch {
		log.Warnf("speed and acceleration series differ in length, chart truncated to %d points", series.Len())
	}

	if opts.export {
		path, err := report.Save(a.cfg.Export.Dir, report.Build(sub, res, report.Options{
			TimestampLayout: a.cfg.Export.TimestampLayout,
		}))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "report: %s\n", path)
	}

	if opts.chartPath != "" {
		ropts := chart.DefaultRenderOptions()
		ropts.Title = sub.DisplayName
		if err := chart.SavePNG(opts.chartPath, series, ropts); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "chart: %s\n", opts.chartPath)
	}

	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "playerdash %s\n", Version)
		},
	}
}
