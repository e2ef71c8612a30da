package tui

import (
	"errors"
	"fmt"

	"playerdash/internal/chart"
	"playerdash/internal/config"
	"playerdash/internal/session"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m.updateSizes(), nil

	case rosterLoadedMsg:
		if msg.err != nil {
			return m.setError("Could not load players", msg.err), nil
		}
		m.subjects = msg.subjects
		m = m.setStatus(fmt.Sprintf("%d players", len(m.subjects)))
		return m.updateRoster()

	case windowResolvedMsg:
		return m.handleWindowResolved(msg), nil

	case progressTickMsg:
		// the chain ends as soon as the request settles or is superseded
		if m.sess.Tick(msg.gen) {
			return m, m.progressTickCmd(msg.gen)
		}
		return m, nil

	case analyticsSettledMsg:
		return m.handleAnalyticsSettled(msg), nil

	case exportDoneMsg:
		if msg.err != nil {
			return m.setError("Could not save "+msg.kind, msg.err), nil
		}
		log.Infof("saved %s to %s", msg.kind, msg.path)
		return m.setStatus(fmt.Sprintf("Saved %s to %s", msg.kind, msg.path)), nil

	case configChangedMsg:
		return m.applyConfig(msg), m.watchConfigCmd()

	case configErrMsg:
		return m.setError("Config reload failed", msg.error), m.watchConfigCmd()

	case spinner.TickMsg:
		if m.sess.State().Phase != session.Resolving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.focus != focusRoster {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Select):
		return m.selectSubject()

	case key.Matches(msg, m.keys.Focus):
		return m.setFocus(focusStart)

	case key.Matches(msg, m.keys.Analyze):
		return m.startAnalysis()

	case key.Matches(msg, m.keys.Export):
		st := m.sess.State()
		if st.Result == nil {
			return m.setStatus("Nothing to export yet"), nil
		}
		return m.setStatus("Exporting report..."), m.exportReportCmd(st.Subject, *st.Result)

	case key.Matches(msg, m.keys.Chart):
		st := m.sess.State()
		if st.Result == nil {
			return m.setStatus("Nothing to chart yet"), nil
		}
		return m.setStatus("Rendering chart..."), m.exportChartCmd(st.Subject, *st.Result)
	}

	var cmd tea.Cmd
	m.roster, cmd = m.roster.Update(msg)
	return m, cmd
}

// handleInputKey processes keys while a bounds input has focus
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m = m.syncInputs()
		return m.setFocus(focusRoster)

	case key.Matches(msg, m.keys.Focus):
		next := focusEnd
		if msg.String() == "shift+tab" {
			next = focusRoster
		}
		if m.focus == focusEnd {
			next = focusRoster
			if msg.String() == "shift+tab" {
				next = focusStart
			}
		}
		return m.setFocus(next)

	case key.Matches(msg, m.keys.Select):
		updated, err := m.applyInputs()
		if err != nil {
			return m.setError("Invalid time, expected YYYY-MM-DD HH:MM:SS", err), nil
		}
		return updated.setStatus("Time range updated"), nil
	}

	return m.updateFocused(msg)
}

// updateFocused forwards a message to the focused input
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusStart:
		m.startInput, cmd = m.startInput.Update(msg)
	case focusEnd:
		m.endInput, cmd = m.endInput.Update(msg)
	}
	return m, cmd
}

// selectSubject switches the session to the highlighted roster entry
func (m Model) selectSubject() (tea.Model, tea.Cmd) {
	item, ok := m.roster.SelectedItem().(playerItem)
	if !ok {
		return m, nil
	}

	sub := item.subject
	gen := m.sess.SelectSubject(sub)
	*m.selectedID = sub.ID
	m = m.syncInputs()
	m = m.setStatus("Loading time range for " + sub.DisplayName)

	return m, tea.Batch(
		m.resolveWindowCmd(gen, sub.ID),
		m.spinner.Tick,
	)
}

func (m Model) handleWindowResolved(msg windowResolvedMsg) Model {
	if msg.err != nil {
		if m.sess.FailResolve(msg.gen) {
			return m.setError("Could not load time range", msg.err)
		}
		return m
	}
	if !m.sess.ResolveWindow(msg.gen, msg.window) {
		return m
	}
	if !m.sess.State().HasWindow {
		return m.setError("Could not load time range", errors.New("empty observation window"))
	}
	return m.syncInputs().setStatus("Time range loaded")
}

// startAnalysis applies the typed bounds and issues the analytics request
func (m Model) startAnalysis() (tea.Model, tea.Cmd) {
	if m.sess.State().BoundsEditable() {
		updated, err := m.applyInputs()
		if err != nil {
			return m.setError("Invalid time, expected YYYY-MM-DD HH:MM:SS", err), nil
		}
		m = updated
	}

	req, gen, err := m.sess.Analyze()
	switch {
	case errors.Is(err, session.ErrNoSubject):
		return m.setStatus("Select a player first"), nil
	case errors.Is(err, session.ErrNoWindow):
		return m.setStatus("Time range not available"), nil
	case err != nil:
		return m.setError("Could not start analysis", err), nil
	}

	m = m.setStatus("Analyzing " + req.SubjectID)
	return m, tea.Batch(
		m.analyzeCmd(gen, req),
		m.progressTickCmd(gen),
	)
}

func (m Model) handleAnalyticsSettled(msg analyticsSettledMsg) Model {
	if !m.sess.Settle(msg.gen, msg.result, msg.err) {
		return m
	}
	if msg.err != nil {
		return m.setError("Failed to load analytics", msg.err)
	}

	m = m.setStatus("Analytics loaded")
	if s := chart.Project(msg.result); s.Mismatch {
		m = m.setStatus("Analytics loaded (speed and acceleration lengths differ, chart truncated)")
	}
	return m
}

// applyConfig swaps in a reloaded config
func (m Model) applyConfig(cfg *config.Config) Model {
	if cfg == nil {
		return m
	}
	m.cfg = cfg
	m.sess.SetProgress(progressSettings(cfg))
	*m.styles = NewStyles(cfg.Theme)

	width := m.bar.Width
	m.bar = progress.New(progress.WithSolidFill(string(m.styles.Accent)), progress.WithoutPercentage())
	m.bar.Width = width

	log.Infof("config reloaded (theme %s)", cfg.Theme)
	return m.setStatus("Config reloaded")
}
