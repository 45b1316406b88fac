package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/maruel/contactcrm/internal/storage"
	"github.com/maruel/contactcrm/internal/viewmodel"
)

// Styles holds the lipgloss styles of the interface.
type Styles struct {
	Title    lipgloss.Style
	Online   lipgloss.Style
	Offline  lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Pill     lipgloss.Style
	Alert    lipgloss.Style
	Flash    lipgloss.Style
	Pane     lipgloss.Style
	Label    lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	accent := lipgloss.Color("#7aa2ff")
	danger := lipgloss.Color("#ff6b6b")
	muted := lipgloss.Color("#8d94ad")
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true),
		Online:   lipgloss.NewStyle().Foreground(accent),
		Offline:  lipgloss.NewStyle().Foreground(danger),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(accent),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Pill:     lipgloss.NewStyle().Foreground(muted),
		Alert:    lipgloss.NewStyle().Bold(true).Foreground(danger),
		Flash:    lipgloss.NewStyle().Foreground(accent),
		Pane:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2a3150")).Padding(0, 1),
		Label:    lipgloss.NewStyle().Foreground(muted).Width(12),
	}
}

// linesPerItem is the height of one rendered list entry.
const linesPerItem = 3

// layout sizes the list viewport to the window.
func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.list.Width = max(m.width*2/3-4, 20)
	// Header, search line, alert line, help line and pane borders.
	m.list.Height = max(m.height-8, linesPerItem)
}

// View renders the interface.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	if m.mode == modeSearch || m.vm.Search() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}

	left := m.styles.Pane.Render(m.renderList())
	var right string
	if m.mode == modeEdit || (m.mode == modeConfirm && m.confirmBack == modeEdit) {
		right = m.renderEditor()
	} else {
		right = m.renderSummary()
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, m.styles.Pane.Render(right)))
	b.WriteString("\n")

	switch {
	case m.mode == modeConfirm:
		b.WriteString(m.styles.Alert.Render(m.confirmPrompt()))
	case m.vm.Alert() != "":
		b.WriteString(m.styles.Alert.Render("Error: " + m.vm.Alert()))
	case m.errorMsg != "":
		b.WriteString(m.styles.Alert.Render(m.errorMsg))
	case m.flash != "":
		b.WriteString(m.styles.Flash.Render(m.flash))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(m.help()))
	return b.String()
}

func (m Model) header() string {
	status := m.vm.Status()
	st := m.styles.Offline
	if status == viewmodel.StatusOnline {
		st = m.styles.Online
	}
	visible := len(m.vm.Visible())
	parts := []string{
		m.styles.Title.Render("Contacts"),
		st.Render(status.String()),
		viewmodel.CountLabel(visible),
	}
	if f := m.vm.Filter(); f != "" {
		parts = append(parts, m.styles.Muted.Render(fmt.Sprintf("%s = %s", m.vm.Schema().Label(m.vm.Schema().FilterField()), f)))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderList() string {
	visible := m.vm.Visible()
	if len(visible) == 0 {
		m.list.SetContent(m.styles.Muted.Render("No contacts yet."))
		return m.list.View()
	}
	var b strings.Builder
	for i, r := range visible {
		b.WriteString(m.renderItem(r, i == m.cursor))
	}
	m.list.SetContent(strings.TrimSuffix(b.String(), "\n"))
	// Keep the cursor on screen.
	top := m.cursor * linesPerItem
	if bottom := top + linesPerItem; bottom > m.list.Height {
		m.list.SetYOffset(bottom - m.list.Height)
	} else {
		m.list.SetYOffset(0)
	}
	return m.list.View()
}

func (m Model) renderItem(r storage.Record, selected bool) string {
	title := m.vm.Title(r)
	marker := "  "
	if selected {
		marker = "> "
		title = m.styles.Selected.Render(title)
	}
	line2 := m.vm.Meta(r)
	if tags := m.vm.Tags(r); len(tags) != 0 {
		line2 += "  " + m.styles.Pill.Render("#"+strings.Join(tags, " #"))
	}
	updated := viewmodel.FormatDate(viewmodel.ValueString(r[storage.FieldUpdatedAt]))
	return fmt.Sprintf("%s%s  %s\n  %s\n  %s\n",
		marker, title, m.styles.Muted.Render(r.ID()),
		line2,
		m.styles.Muted.Render("updated "+updated))
}

func (m Model) renderSummary() string {
	var b strings.Builder
	if err := m.vm.WriteSummary(&b); err != nil {
		return err.Error()
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderEditor() string {
	id, _ := m.vm.Editor()
	title := "New contact"
	if id != "" {
		title = "Edit " + id
	}
	lines := []string{m.styles.Title.Render(title)}
	for i, f := range m.vm.Schema().Fields {
		lines = append(lines, m.styles.Label.Render(m.vm.Schema().Label(f.Name))+" "+m.inputs[i].View())
	}
	return strings.Join(lines, "\n")
}

func (m Model) confirmPrompt() string {
	if m.confirmAll {
		return "Delete ALL contacts? This cannot be undone. (y/N)"
	}
	return fmt.Sprintf("Delete contact %s? (y/N)", m.confirmID)
}

func (m Model) help() string {
	switch m.mode {
	case modeSearch:
		return "type to search • enter/esc done"
	case modeEdit:
		return "tab next field • ctrl+s save • ctrl+d delete • esc cancel"
	case modeConfirm:
		return "y confirm • any other key cancels"
	default:
		return "↑/↓ move • enter edit • n new • / search • f filter • d delete • D delete all • r refresh • q quit"
	}
}
