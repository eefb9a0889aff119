// Package tui is the terminal front-end for the connection graph: a
// bubbletea program around the keyboard navigator, with connect and
// disconnect delegated to the ruler and surfaced as status alerts.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/skaginn3x/tfc-console/internal/alert"
	"github.com/skaginn3x/tfc-console/internal/dbus"
	"github.com/skaginn3x/tfc-console/internal/ipc"
	"github.com/skaginn3x/tfc-console/internal/table"
)

const refreshEvery = 5 * time.Second

type dataMsg struct {
	signals []ipc.Signal
	slots   []ipc.Slot
}

type errMsg struct {
	err error
}

type actionDoneMsg struct {
	note string
}

type alertMsg struct {
	event alert.Event
}

type refreshMsg struct{}

type modal int

const (
	modalNone modal = iota
	modalAdd
	modalRemove
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	signalStyle = lipgloss.NewStyle().Bold(true)
	slotStyle   = lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color("245"))
	focusStyle  = lipgloss.NewStyle().Reverse(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dangerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	modalStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

// Model is the bubbletea model for the connection table.
type Model struct {
	ctx    context.Context
	ruler  *dbus.Ruler
	alerts *alert.Center

	nav    *table.Navigator
	search textinput.Model

	searching    bool
	modal        modal
	candidates   []ipc.Slot
	candidateIdx int
	pendingSlot  ipc.Slot
	activeSignal ipc.Signal

	status   string
	danger   bool
	loadErr  error
	alertsCh <-chan alert.Event
	width    int
}

// New builds the model. The alert subscription is cancelled by the
// caller tearing down the center.
func New(ctx context.Context, ruler *dbus.Ruler, alerts *alert.Center, perPage int) Model {
	search := textinput.New()
	search.Placeholder = "search name or creator"
	search.CharLimit = 120

	events, _ := alerts.Subscribe(16)
	return Model{
		ctx:      ctx,
		ruler:    ruler,
		alerts:   alerts,
		nav:      table.NewNavigator(perPage),
		search:   search,
		alertsCh: events,
	}
}

// Init starts the first load and the alert pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.waitAlertCmd(), refreshTick())
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshEvery, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		signals, err := m.ruler.Signals(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		slots, err := m.ruler.Slots(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return dataMsg{signals: signals, slots: slots}
	}
}

func (m Model) waitAlertCmd() tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-m.alertsCh
		if !ok {
			return nil
		}
		return alertMsg{event: evt}
	}
}

func (m Model) connectCmd(slot, signal string) tea.Cmd {
	return func() tea.Msg {
		if err := m.ruler.Connect(m.ctx, slot, signal); err != nil {
			m.alerts.Post("Failed to connect "+ipc.TrimOrg(slot), alert.Danger)
			return errMsg{err}
		}
		m.alerts.Post("Connected "+ipc.TrimOrg(slot), alert.Success)
		return actionDoneMsg{note: "connected " + ipc.TrimOrg(slot)}
	}
}

func (m Model) disconnectCmd(slot string) tea.Cmd {
	return func() tea.Msg {
		if err := m.ruler.Disconnect(m.ctx, slot); err != nil {
			m.alerts.Post("Failed to disconnect "+ipc.TrimOrg(slot), alert.Danger)
			return errMsg{err}
		}
		m.alerts.Post("Disconnected "+ipc.TrimOrg(slot), alert.Success)
		return actionDoneMsg{note: "disconnected " + ipc.TrimOrg(slot)}
	}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case dataMsg:
		m.nav.Load(msg.signals, msg.slots)
		m.loadErr = nil
		return m, nil

	case errMsg:
		m.loadErr = msg.err
		return m, nil

	case actionDoneMsg:
		m.status = msg.note
		m.danger = false
		return m, m.loadCmd()

	case alertMsg:
		if msg.event.Kind == "posted" {
			m.status = msg.event.Alert.Title
			m.danger = msg.event.Alert.Severity == alert.Danger
		}
		return m, m.waitAlertCmd()

	case refreshMsg:
		return m, tea.Batch(m.loadCmd(), refreshTick())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "enter":
			m.searching = false
			m.search.Blur()
			m.nav.SetSearch(m.search.Value())
			return m, nil
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.nav.SetSearch("")
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	if m.modal != modalNone {
		return m.handleModalKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.nav.MoveUp()
	case "down", "j":
		m.nav.MoveDown()
	case "ctrl+f", "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case "r":
		return m, m.loadCmd()
	case "enter":
		evt := m.nav.Enter()
		switch evt.Kind {
		case table.EventAddSlot:
			m.candidates = m.nav.Candidates()
			m.candidateIdx = 0
			m.activeSignal = evt.Signal
			if len(m.candidates) > 0 {
				m.modal = modalAdd
			} else {
				m.status = "no compatible slots for " + ipc.TrimOrg(evt.Signal.Name)
				m.danger = false
			}
		case table.EventRemoveSlot:
			m.pendingSlot = evt.Slot
			m.modal = modalRemove
		}
	}
	return m, nil
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		return m, nil
	case "up", "k":
		if m.modal == modalAdd && m.candidateIdx > 0 {
			m.candidateIdx--
		}
	case "down", "j":
		if m.modal == modalAdd && m.candidateIdx+1 < len(m.candidates) {
			m.candidateIdx++
		}
	case "enter", "y":
		switch m.modal {
		case modalAdd:
			slot := m.candidates[m.candidateIdx]
			m.modal = modalNone
			return m, m.connectCmd(slot.Name, m.activeSignal.Name)
		case modalRemove:
			m.modal = modalNone
			return m, m.disconnectCmd(m.pendingSlot.Name)
		}
	case "n":
		if m.modal == modalRemove {
			m.modal = modalNone
		}
	}
	return m, nil
}

// View renders the table, any open modal, and the status line.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("tfc connections"))
	b.WriteString("\n\n")

	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n\n")
	} else if summary := m.nav.FilterSummary(); summary != "" {
		b.WriteString(statusStyle.Render(summary))
		b.WriteString("\n\n")
	}

	focusedSig, focusedSlot, hasFocus := m.nav.Focused()
	for _, row := range m.nav.PageRows() {
		line := m.renderRow(row)
		if hasFocus && m.rowFocused(row, focusedSig, focusedSlot) {
			line = focusStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\npage %d/%d", m.nav.Page()+1, m.nav.Pages()))

	if m.modal != modalNone {
		b.WriteString("\n")
		b.WriteString(m.renderModal())
	}

	if m.loadErr != nil {
		b.WriteString("\n")
		b.WriteString(dangerStyle.Render("bus error: " + m.loadErr.Error()))
	}
	if m.status != "" {
		b.WriteString("\n")
		if m.danger {
			b.WriteString(dangerStyle.Render(m.status))
		} else {
			b.WriteString(statusStyle.Render(m.status))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render("↑/↓ move  enter select  / search  r reload  q quit"))
	return b.String()
}

func (m Model) renderRow(row table.Row) string {
	if row.IsSlot() {
		return slotStyle.Render(fmt.Sprintf("↳ %s", ipc.TrimOrg(row.Slot.Name)))
	}
	return signalStyle.Render(fmt.Sprintf("%s  [%s]", ipc.TrimOrg(row.Signal.Name), row.Signal.Type))
}

func (m Model) rowFocused(row table.Row, sig ipc.Signal, slot *ipc.Slot) bool {
	if row.IsSlot() {
		return slot != nil && row.Slot.Name == slot.Name
	}
	return slot == nil && row.Signal.Name == sig.Name
}

func (m Model) renderModal() string {
	switch m.modal {
	case modalAdd:
		var b strings.Builder
		b.WriteString(fmt.Sprintf("connect a slot to %s\n\n", ipc.TrimOrg(m.activeSignal.Name)))
		for i, c := range m.candidates {
			cursor := "  "
			if i == m.candidateIdx {
				cursor = "> "
			}
			b.WriteString(cursor + ipc.TrimOrg(c.Name) + "\n")
		}
		b.WriteString("\nenter connect  esc cancel")
		return modalStyle.Render(b.String())
	case modalRemove:
		return modalStyle.Render(fmt.Sprintf(
			"disconnect %s?\n\ny/enter confirm  n/esc cancel",
			ipc.TrimOrg(m.pendingSlot.Name)))
	}
	return ""
}

// Run starts the program on the alternate screen.
func Run(ctx context.Context, ruler *dbus.Ruler, alerts *alert.Center, perPage int) error {
	p := tea.NewProgram(New(ctx, ruler, alerts, perPage), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
