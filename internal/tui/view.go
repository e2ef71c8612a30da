package tui

import (
	"fmt"
	"strconv"
	"strings"

	"playerdash/internal/analytics"
	"playerdash/internal/chart"
	"playerdash/internal/session"

	"github.com/charmbracelet/lipgloss"
)

// View renders the UI based on the model state
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	rosterStyle := m.styles.Pane
	if m.focus == focusRoster {
		rosterStyle = m.styles.PaneActive
	}
	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		rosterStyle.Render(m.roster.View()),
		m.styles.Pane.Width(m.mainWidth()).Render(m.renderMain()),
	)
	b.WriteString(body)
	b.WriteString("\n")

	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(m.help.View(m.keys)))

	return b.String()
}

// renderHeader renders the top header bar
func (m Model) renderHeader() string {
	title := m.styles.Title.Render("Player Analytics Dashboard")

	st := m.sess.State()
	status := m.styles.Status.Render(fmt.Sprintf("%d players", len(m.subjects)))
	if st.HasSubject {
		status = m.styles.Status.Render(fmt.Sprintf("%s · %s", st.Subject.DisplayName, st.Phase))
	}

	spacing := max(m.width-lipgloss.Width(title)-lipgloss.Width(status)-2, 1)
	return lipgloss.JoinHorizontal(lipgloss.Top, title, strings.Repeat(" ", spacing), status)
}

// renderMain renders the right-hand analysis panel
func (m Model) renderMain() string {
	st := m.sess.State()
	if !st.HasSubject {
		return m.styles.Muted.Render("Select a player and press enter")
	}

	sections := []string{
		m.styles.Label.Render(st.Subject.DisplayName) + m.styles.Muted.Render("  "+st.Subject.GroupName),
		m.renderBounds(st),
	}

	switch st.Phase {
	case session.Analyzing:
		sections = append(sections,
			m.bar.ViewAs(m.sess.Progress().Fraction(st.Progress)),
			m.styles.Muted.Render(m.sess.Progress().Label(st.Progress)),
		)
	case session.Failed:
		sections = append(sections, m.styles.Error.Render("Analytics request failed"))
	}

	if st.Result != nil {
		sections = append(sections,
			m.renderCards(*st.Result),
			m.renderChart(*st.Result),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderBounds renders the start/end inputs, disabled until the window is known
func (m Model) renderBounds(st session.State) string {
	switch {
	case st.Phase == session.Resolving:
		return m.spinner.View() + m.styles.Muted.Render(" Loading time range...")
	case !st.BoundsEditable():
		return m.styles.Disabled.Render("Time range unavailable")
	}

	window := m.styles.Muted.Render(fmt.Sprintf("Window %s → %s",
		st.Window.Earliest.Local().Format(boundsLayout),
		st.Window.Latest.Local().Format(boundsLayout),
	))
	return lipgloss.JoinVertical(lipgloss.Left,
		m.startInput.View(),
		m.endInput.View(),
		window,
	)
}

// renderCards renders the summary metrics
func (m Model) renderCards(res analytics.AnalyticsResult) string {
	card := func(title, value string) string {
		return m.styles.Card.Render(
			m.styles.CardTitle.Render(title) + "\n" + m.styles.CardValue.Render(value),
		)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Steps", strconv.Itoa(res.Steps.Count)),
		card("Jumps", strconv.Itoa(res.Jumps.Count)),
		card("Max Speed", fmt.Sprintf("%.2f m/s", res.Speed.Max)),
		card("Avg Speed", fmt.Sprintf("%.2f m/s", res.Speed.Average)),
	)
}

// renderChart renders both series as sparklines over the shared time axis
func (m Model) renderChart(res analytics.AnalyticsResult) string {
	s := chart.Project(res)
	if s.Len() == 0 {
		return m.styles.Muted.Render("No samples in range")
	}

	width := max(m.mainWidth()-4, 10)
	accel := lipgloss.NewStyle().Foreground(m.styles.Acceleration)
	speed := lipgloss.NewStyle().Foreground(m.styles.Speed)

	from := s.X[0].Local().Format("15:04:05")
	to := s.X[len(s.X)-1].Local().Format("15:04:05")
	axis := from + strings.Repeat(" ", max(width-len(from)-len(to), 1)) + to

	return lipgloss.JoinVertical(lipgloss.Left,
		accel.Render("■ "+chart.AccelerationLabel),
		accel.Render(chart.Sparkline(s.Acceleration, width)),
		speed.Render("■ "+chart.SpeedLabel),
		speed.Render(chart.Sparkline(s.Speed, width)),
		m.styles.Muted.Render(axis),
	)
}

// renderStatus renders the last status message
func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return m.styles.Error.Render(m.status)
	}
	return m.styles.Status.Render(m.status)
}
