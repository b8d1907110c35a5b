package chat

import (
	"strings"

	"researchdesk/internal/logging"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	headerHeight = 3
	uploadHeight = 4
	inputHeight  = 5
	footerHeight = 2
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.picking {
			return m.updatePicker(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.viewport.Width = max(msg.Width-2, 10)
		m.viewport.Height = max(msg.Height-headerHeight-uploadHeight-inputHeight-footerHeight, 3)
		m.textarea.SetWidth(max(msg.Width-4, 10))
		m.filepicker.Height = max(msg.Height-6, 5)
		m.renderer.SetWidth(max(msg.Width-6, 20))
		m.refresh()
		return m, nil

	case askDoneMsg:
		m.requests.Resolve(msg.out)
		m.refresh()
		// Re-probe so the header reflects the connection that just failed or worked.
		return m, m.checkHealth()

	case ingestDoneMsg:
		m.uploads.Resolve(msg.out)
		if m.pickerStale.Swap(false) {
			m.filepicker = m.newPicker()
		}
		m.refresh()
		return m, nil

	case healthMsg:
		m.healthKnown = true
		m.online = msg.err == nil
		if msg.err != nil {
			logging.Get(logging.CategoryUI).Warn("health probe failed: %v", msg.err)
		}
		return m, nil

	case DropMsg:
		logging.Get(logging.CategoryUI).Info("drop folder delivered %s", msg.Path)
		return m.upload(msg.Path)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Directory listings and other internal messages belong to the picker.
	if m.picking {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		input := m.textarea.Value()
		if isCommand(input) {
			return m.handleCommand(strings.TrimSpace(input))
		}
		return m.send(input)

	case "ctrl+o":
		return m.openPicker()

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		// Closing the picker without a choice is a no-op for the upload flow.
		m.picking = false
		m.filepicker = m.newPicker()
		return m, nil
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.picking = false
		next, uploadCmd := m.upload(path)
		return next, tea.Batch(cmd, uploadCmd)
	}

	if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		m.setStatus("Only "+strings.Join(m.cfg.Uploads.AllowedTypes, ", ")+" files can be uploaded: "+path, true)
		return m, cmd
	}

	return m, cmd
}
