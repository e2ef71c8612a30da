package tui

import (
	"context"
	"time"

	"playerdash/internal/analytics"
	"playerdash/internal/chart"
	"playerdash/internal/config"
	"playerdash/internal/report"
	"playerdash/internal/session"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
)

// boundsLayout is how start/end are shown in the inputs. Parsing uses the
// same layout; fractional seconds are accepted when present.
const boundsLayout = "2006-01-02 15:04:05.000"

// Service is the upstream analytics backend
type Service interface {
	Players(ctx context.Context) ([]analytics.Subject, error)
	TimeRange(ctx context.Context, subjectID string) (analytics.ObservationWindow, error)
	Analytics(ctx context.Context, req analytics.AnalysisRequest) (analytics.AnalyticsResult, error)
}

// focusArea is the component receiving key input
type focusArea int

const (
	focusRoster focusArea = iota
	focusStart
	focusEnd
)

// ModelOptions configures the TUI model
type ModelOptions struct {
	Service Service
	Config  *config.Config
	Watcher *config.Watcher // optional live config reload
}

// Model represents the application state
type Model struct {
	service Service
	cfg     *config.Config
	watcher *config.Watcher

	// Core state
	sess     session.Session
	subjects []analytics.Subject
	focus    focusArea

	// UI components
	roster     list.Model
	startInput textinput.Model
	endInput   textinput.Model
	bar        progress.Model
	spinner    spinner.Model
	help       help.Model
	keys       keyMap

	styles     *Styles
	selectedID *string

	// Status line; statusErr marks it as a failure
	status    string
	statusErr bool

	// UI dimensions
	width  int
	height int

	// Error state
	err error
}

// NewModel creates a new Model with initialized state
func NewModel(opts ModelOptions) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	styles := NewStyles(cfg.Theme)
	selectedID := new(string)

	m := Model{
		service:    opts.Service,
		cfg:        cfg,
		watcher:    opts.Watcher,
		sess:       session.New(progressSettings(cfg)),
		focus:      focusRoster,
		keys:       defaultKeyMap,
		help:       help.New(),
		styles:     &styles,
		selectedID: selectedID,
	}

	m.roster = list.New([]list.Item{}, newPlayerDelegate(m.styles, selectedID), 0, 0)
	m.roster.Title = "Players"
	m.roster.SetShowHelp(false)
	m.roster.SetShowStatusBar(false)
	m.roster.SetFilteringEnabled(false)
	m.roster.DisableQuitKeybindings()

	m.startInput = newBoundsInput("Start ")
	m.endInput = newBoundsInput("End   ")

	m.bar = progress.New(progress.WithSolidFill(string(styles.Accent)), progress.WithoutPercentage())
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))

	return m
}

func newBoundsInput(prompt string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = boundsLayout
	ti.CharLimit = len(boundsLayout)
	ti.Width = len(boundsLayout) + 1
	return ti
}

func progressSettings(cfg *config.Config) session.Progress {
	return session.Progress{
		Interval: cfg.Progress.Interval,
		Step:     cfg.Progress.Step,
		Ceiling:  cfg.Progress.Ceiling,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadRosterCmd(),
		m.watchConfigCmd(),
	)
}

// Message types
type (
	rosterLoadedMsg struct {
		subjects []analytics.Subject
		err      error
	}
	windowResolvedMsg struct {
		gen    session.Generation
		window analytics.ObservationWindow
		err    error
	}
	analyticsSettledMsg struct {
		gen    session.Generation
		result analytics.AnalyticsResult
		err    error
	}
	progressTickMsg struct {
		gen session.Generation
	}
	exportDoneMsg struct {
		kind string
		path string
		err  error
	}
	configChangedMsg *config.Config
	configErrMsg     struct{ error }
)

func (m Model) requestContext() (context.Context, context.CancelFunc) {
	if m.cfg.RequestTimeout > 0 {
		return context.WithTimeout(context.Background(), m.cfg.RequestTimeout)
	}
	return context.WithCancel(context.Background())
}

// loadRosterCmd fetches the player roster
func (m Model) loadRosterCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		subjects, err := m.service.Players(ctx)
		return rosterLoadedMsg{subjects: subjects, err: err}
	}
}

// resolveWindowCmd fetches the observation window for a subject
func (m Model) resolveWindowCmd(gen session.Generation, subjectID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		w, err := m.service.TimeRange(ctx, subjectID)
		return windowResolvedMsg{gen: gen, window: w, err: err}
	}
}

// analyzeCmd runs the analytics query for a request
func (m Model) analyzeCmd(gen session.Generation, req analytics.AnalysisRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		res, err := m.service.Analytics(ctx, req)
		return analyticsSettledMsg{gen: gen, result: res, err: err}
	}
}

// progressTickCmd schedules the next progress tick for a request
func (m Model) progressTickCmd(gen session.Generation) tea.Cmd {
	return tea.Tick(m.sess.Progress().Interval, func(time.Time) tea.Msg {
		return progressTickMsg{gen: gen}
	})
}

// watchConfigCmd waits for the next config reload
func (m Model) watchConfigCmd() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case cfg, ok := <-m.watcher.Changes:
			if !ok {
				return nil
			}
			return configChangedMsg(cfg)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return configErrMsg{err}
		}
	}
}

// exportReportCmd writes the CSV report for the loaded result
func (m Model) exportReportCmd(sub analytics.Subject, res analytics.AnalyticsResult) tea.Cmd {
	dir := m.cfg.Export.Dir
	opts := report.Options{TimestampLayout: m.cfg.Export.TimestampLayout}
	return func() tea.Msg {
		path, err := report.Save(dir, report.Build(sub, res, opts))
		return exportDoneMsg{kind: "report", path: path, err: err}
	}
}

// exportChartCmd renders the chart series to a PNG next to the report
func (m Model) exportChartCmd(sub analytics.Subject, res analytics.AnalyticsResult) tea.Cmd {
	dir := m.cfg.Export.Dir
	return func() tea.Msg {
		path := report.PathIn(dir, report.ChartFilename(sub))
		opts := chart.DefaultRenderOptions()
		opts.Title = sub.DisplayName
		err := chart.SavePNG(path, chart.Project(res), opts)
		return exportDoneMsg{kind: "chart", path: path, err: err}
	}
}

// updateRoster rebuilds the roster list items
func (m Model) updateRoster() (Model, tea.Cmd) {
	items := make([]list.Item, len(m.subjects))
	for i, s := range m.subjects {
		items[i] = playerItem{subject: s}
	}
	return m, m.roster.SetItems(items)
}

// syncInputs copies the session bounds into the inputs
func (m Model) syncInputs() Model {
	st := m.sess.State()
	if !st.BoundsEditable() {
		m.startInput.SetValue("")
		m.endInput.SetValue("")
		return m
	}
	m.startInput.SetValue(st.Start.Local().Format(boundsLayout))
	m.endInput.SetValue(st.End.Local().Format(boundsLayout))
	return m
}

// applyInputs parses the inputs and writes them back to the session
func (m Model) applyInputs() (Model, error) {
	if !m.sess.State().BoundsEditable() {
		return m, session.ErrNoWindow
	}
	start, err := time.ParseInLocation(boundsLayout[:19], m.startInput.Value(), time.Local)
	if err != nil {
		return m, err
	}
	end, err := time.ParseInLocation(boundsLayout[:19], m.endInput.Value(), time.Local)
	if err != nil {
		return m, err
	}
	if err := m.sess.SetBounds(start, end); err != nil {
		return m, err
	}
	return m.syncInputs(), nil
}

// setFocus moves key input to area, blurring the rest
func (m Model) setFocus(area focusArea) (Model, tea.Cmd) {
	if area != focusRoster && !m.sess.State().BoundsEditable() {
		area = focusRoster
	}
	m.focus = area
	m.startInput.Blur()
	m.endInput.Blur()

	switch area {
	case focusStart:
		return m, m.startInput.Focus()
	case focusEnd:
		return m, m.endInput.Focus()
	}
	return m, nil
}

func (m Model) setStatus(msg string) Model {
	m.status = msg
	m.statusErr = false
	return m
}

func (m Model) setError(msg string, err error) Model {
	log.WithError(err).Warn(msg)
	m.status = msg
	m.statusErr = true
	return m
}

// updateSizes updates component dimensions based on terminal size
func (m Model) updateSizes() Model {
	rosterWidth := min(max(m.width/3, 24), 40)
	// Reserve space for header (2), help (2), margins (2)
	rosterHeight := max(m.height-8, 5)
	m.roster.SetSize(rosterWidth, rosterHeight)
	m.bar.Width = max(m.mainWidth()-4, 10)
	m.help.Width = m.width
	return m
}

func (m Model) mainWidth() int {
	return max(m.width-m.roster.Width()-6, 20)
}

// State returns the current session snapshot
func (m Model) State() session.State {
	return m.sess.State()
}
