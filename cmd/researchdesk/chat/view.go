package chat

import (
	"path/filepath"
	"time"

	"researchdesk/cmd/researchdesk/ui"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.picking {
		title := m.styles.Header.Render(" Select a PDF ")
		content := m.styles.Content.Render(m.filepicker.View())
		hint := m.styles.Muted.Render("enter: upload | esc: cancel")
		return lipgloss.JoinVertical(lipgloss.Left, title, content, hint)
	}

	frame := ui.BuildFrame(m.sess.Snapshot())

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(frame),
		m.styles.Content.Render(m.viewport.View()),
		m.renderUploadBar(frame),
		m.styles.Input.Render(m.textarea.View()),
		m.renderFooter(),
	)
}

func (m Model) renderHeader(frame ui.Frame) string {
	title := m.styles.Header.Render(" Research Assistant ")

	var status string
	switch {
	case frame.Typing:
		status = lipgloss.JoinHorizontal(lipgloss.Center, m.spinner.View(), " ", m.styles.Badge.Render("Thinking..."))
	case !m.healthKnown:
		status = m.styles.Muted.Render("Connecting...")
	case m.online:
		status = m.styles.Success.Render("Online")
	default:
		status = m.styles.Error.Render("Offline")
	}

	headerLine := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status)
	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		m.styles.Muted.Render(" "+m.cfg.Assistant.Endpoint),
		m.styles.RenderDivider(m.width),
	)
}

func (m Model) renderUploadBar(frame ui.Frame) string {
	var file string
	if sel := m.uploads.Selection(); sel != "" {
		file = filepath.Base(sel)
	}
	control := m.renderer.UploadControl(frame, m.spinner.View(), file)
	if m.status == "" {
		return control
	}
	line := m.styles.Muted.Render(m.status)
	if m.statusIsErr {
		line = m.styles.Error.Render(m.status)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, control, "  ", line)
}

func (m Model) renderFooter() string {
	help := m.styles.Muted.Render("Enter: send | Ctrl+O: upload | /help | Ctrl+C: quit | " + time.Now().Format("15:04"))
	return m.styles.Footer.Render(help)
}
