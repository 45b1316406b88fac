// Package tui is an interactive terminal front end over viewmodel.Model.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maruel/contactcrm/internal/viewmodel"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeEdit
	modeConfirm
)

// loadedMsg reports the outcome of a list reload.
type loadedMsg struct{ err error }

// mutatedMsg reports the outcome of a create, update or delete.
type mutatedMsg struct {
	op  string
	err error
}

// Model is the bubbletea model.
type Model struct {
	ctx context.Context
	vm  *viewmodel.Model

	mode   mode
	cursor int
	width  int
	height int

	search   textinput.Model
	inputs   []textinput.Model
	focus    int
	list     viewport.Model
	styles   Styles
	flash    string
	errorMsg string

	// Pending confirmation; an empty id with confirmAll false means none.
	confirmID   string
	confirmAll  bool
	confirmBack mode
}

// New returns a model driving vm.
func New(ctx context.Context, vm *viewmodel.Model) Model {
	s := textinput.New()
	s.Prompt = "/ "
	s.Placeholder = "search"
	s.SetValue(vm.Search())

	fields := vm.Schema().Fields
	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = vm.Schema().Label(f.Name)
		ti.CharLimit = 1024
		inputs[i] = ti
	}
	return Model{
		ctx:    ctx,
		vm:     vm,
		search: s,
		inputs: inputs,
		list:   viewport.New(80, 20),
		styles: DefaultStyles(),
	}
}

// Run starts the program on the terminal and blocks until it exits.
func Run(ctx context.Context, vm *viewmodel.Model) error {
	_, err := tea.NewProgram(New(ctx, vm), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// Init loads the list.
func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.vm.Load(m.ctx)}
	}
}

func (m Model) saveCmd(form map[string]string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.vm.Save(m.ctx, form)
		return mutatedMsg{op: "saved", err: err}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return mutatedMsg{op: "deleted", err: m.vm.Delete(m.ctx, id)}
	}
}

func (m Model) deleteAllCmd() tea.Cmd {
	return func() tea.Msg {
		return mutatedMsg{op: "deleted all", err: m.vm.DeleteAll(m.ctx)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case loadedMsg:
		m.errorMsg = ""
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
		}
		m.clampCursor()
		return m, nil

	case mutatedMsg:
		if msg.err != nil {
			// The view model keeps its alert and pre-action state.
			m.flash = ""
			return m, nil
		}
		m.flash = msg.op
		if _, open := m.vm.Editor(); !open && m.mode == modeEdit {
			m.mode = modeList
			m.blurInputs()
		}
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeEdit:
			return m.updateEdit(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.vm.Visible()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
	case "/":
		m.mode = modeSearch
		return m, m.search.Focus()
	case "f":
		m.vm.SetFilter(nextFilter(m.vm.FilterOptions(), m.vm.Filter()))
		m.cursor = 0
	case "r":
		m.flash = ""
		return m, m.loadCmd()
	case "n":
		m.vm.OpenNew()
		return m.openEditor()
	case "enter":
		if len(visible) == 0 {
			return m, nil
		}
		if err := m.vm.Open(visible[m.cursor].ID()); err != nil {
			m.errorMsg = err.Error()
			return m, nil
		}
		return m.openEditor()
	case "d":
		if len(visible) == 0 {
			return m, nil
		}
		m.askConfirm(visible[m.cursor].ID(), false)
	case "D":
		m.askConfirm("", true)
	case "esc":
		m.vm.DismissAlert()
		m.flash = ""
		m.errorMsg = ""
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.mode = modeList
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.vm.SetSearch(m.search.Value())
	m.cursor = 0
	return m, cmd
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.vm.Close()
		m.mode = modeList
		m.blurInputs()
		return m, nil
	case tea.KeyCtrlS:
		form := make(map[string]string, len(m.inputs))
		for i, f := range m.vm.Schema().Fields {
			form[f.Name] = m.inputs[i].Value()
		}
		return m, m.saveCmd(form)
	case tea.KeyCtrlD:
		if id, _ := m.vm.Editor(); id != "" {
			m.askConfirm(id, false)
		}
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.focusInput(m.focus + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.focusInput(m.focus - 1)
	}
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id, all := m.confirmID, m.confirmAll
	m.mode = m.confirmBack
	m.confirmID, m.confirmAll = "", false
	if msg.String() != "y" {
		return m, nil
	}
	if all {
		return m, m.deleteAllCmd()
	}
	return m, m.deleteCmd(id)
}

func (m *Model) askConfirm(id string, all bool) {
	m.confirmBack = m.mode
	m.confirmID, m.confirmAll = id, all
	m.mode = modeConfirm
}

// openEditor fills the inputs from the view model's editor.
func (m Model) openEditor() (tea.Model, tea.Cmd) {
	form := m.vm.Form()
	// Copy so the previous Model value keeps its own inputs.
	m.inputs = append([]textinput.Model(nil), m.inputs...)
	for i, f := range m.vm.Schema().Fields {
		m.inputs[i].SetValue(form[f.Name])
	}
	m.mode = modeEdit
	m.flash = ""
	return m, m.focusInput(0)
}

func (m *Model) focusInput(i int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	i = (i + len(m.inputs)) % len(m.inputs)
	m.inputs = append([]textinput.Model(nil), m.inputs...)
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = i
	return m.inputs[i].Focus()
}

func (m *Model) blurInputs() {
	m.inputs = append([]textinput.Model(nil), m.inputs...)
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
}

func (m *Model) clampCursor() {
	n := len(m.vm.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// nextFilter cycles "" (all) then each option in order.
func nextFilter(options []string, current string) string {
	if current == "" {
		if len(options) == 0 {
			return ""
		}
		return options[0]
	}
	for i, o := range options {
		if o == current && i+1 < len(options) {
			return options[i+1]
		}
	}
	return ""
}
