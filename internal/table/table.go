// Package table is the keyboard navigator over the connection graph: a
// pure state machine mapping key events to focus moves, page turns,
// and modal requests. It performs no I/O; connect and disconnect
// requests surface as events for the caller to act on.
package table

import (
	"regexp"
	"strings"

	"github.com/skaginn3x/tfc-console/internal/ipc"
)

// Row is one visible line: a signal header or one of its connected
// slots.
type Row struct {
	Signal ipc.Signal
	// Slot is set on slot rows.
	Slot *ipc.Slot
}

// IsSlot reports whether the row is a connected-slot line.
func (r Row) IsSlot() bool { return r.Slot != nil }

// EventKind tags navigator output events.
type EventKind int

const (
	// EventNone means the key changed focus or a filter only.
	EventNone EventKind = iota
	// EventAddSlot asks for the add-slot modal scoped to the focused
	// signal's type.
	EventAddSlot
	// EventRemoveSlot asks for the disconnect confirmation of the
	// focused slot.
	EventRemoveSlot
)

// Event is the navigator's reaction to a key.
type Event struct {
	Kind   EventKind
	Signal ipc.Signal
	Slot   ipc.Slot
}

// Navigator pages and focuses the signal/slot listing. Focus is a pair
// (signal index, slot index within that signal), slot index -1 meaning
// the signal's own row.
type Navigator struct {
	signals []ipc.Signal
	slots   []ipc.Slot

	perPage int
	page    int

	focusSignal int
	focusSlot   int

	search     string
	typeFilter ipc.Type
	processes  map[string]bool
}

// NewNavigator builds a navigator showing perPage signals per page.
func NewNavigator(perPage int) *Navigator {
	if perPage <= 0 {
		perPage = 10
	}
	return &Navigator{perPage: perPage, focusSlot: -1, processes: map[string]bool{}}
}

// Load replaces the backing data, keeping filters. Focus and page are
// clamped to the new listing.
func (n *Navigator) Load(signals []ipc.Signal, slots []ipc.Slot) {
	n.signals = signals
	n.slots = slots
	n.clamp()
}

// SetSearch installs a free-text filter over names and creators and
// returns to page 1. The text is tried as a regular expression and
// matched literally when it does not compile.
func (n *Navigator) SetSearch(text string) {
	n.search = text
	n.resetPage()
}

// SetTypeFilter limits the listing to one endpoint type; empty clears.
func (n *Navigator) SetTypeFilter(t ipc.Type) {
	n.typeFilter = t
	n.resetPage()
}

// ToggleProcess flips one owning process in the multi-select filter.
func (n *Navigator) ToggleProcess(process string) {
	if n.processes[process] {
		delete(n.processes, process)
	} else {
		n.processes[process] = true
	}
	n.resetPage()
}

// ClearFilters drops search, type, and process filters.
func (n *Navigator) ClearFilters() {
	n.search = ""
	n.typeFilter = ""
	n.processes = map[string]bool{}
	n.resetPage()
}

func (n *Navigator) resetPage() {
	n.page = 0
	n.focusSignal = 0
	n.focusSlot = -1
	n.clamp()
}

// visible returns the signals passing the filters.
func (n *Navigator) visible() []ipc.Signal {
	var re *regexp.Regexp
	if n.search != "" {
		var err error
		re, err = regexp.Compile(n.search)
		if err != nil {
			re = regexp.MustCompile(regexp.QuoteMeta(n.search))
		}
	}
	var out []ipc.Signal
	for _, sig := range n.signals {
		if n.typeFilter != "" && sig.Type != n.typeFilter {
			continue
		}
		if len(n.processes) > 0 && !n.processes[ipc.Process(sig.Name)] {
			continue
		}
		if re != nil && !re.MatchString(sig.Name) && !re.MatchString(sig.CreatedBy) {
			continue
		}
		out = append(out, sig)
	}
	return out
}

// Pages returns the page count of the current listing, at least 1.
func (n *Navigator) Pages() int {
	count := len(n.visible())
	if count == 0 {
		return 1
	}
	return (count + n.perPage - 1) / n.perPage
}

// Page returns the current zero-based page number.
func (n *Navigator) Page() int { return n.page }

// PageRows returns the rows of the current page: each visible signal
// followed by its connected slots.
func (n *Navigator) PageRows() []Row {
	sigs := n.pageSignals()
	var rows []Row
	for _, sig := range sigs {
		rows = append(rows, Row{Signal: sig})
		for _, slot := range ipc.SlotsOf(sig.Name, n.slots) {
			s := slot
			rows = append(rows, Row{Signal: sig, Slot: &s})
		}
	}
	return rows
}

func (n *Navigator) pageSignals() []ipc.Signal {
	all := n.visible()
	start := n.page * n.perPage
	if start >= len(all) {
		return nil
	}
	end := start + n.perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// Focused returns the focused signal and, on a slot row, the slot.
func (n *Navigator) Focused() (ipc.Signal, *ipc.Slot, bool) {
	sigs := n.pageSignals()
	if n.focusSignal >= len(sigs) {
		return ipc.Signal{}, nil, false
	}
	sig := sigs[n.focusSignal]
	if n.focusSlot < 0 {
		return sig, nil, true
	}
	slots := ipc.SlotsOf(sig.Name, n.slots)
	if n.focusSlot >= len(slots) {
		return sig, nil, true
	}
	return sig, &slots[n.focusSlot], true
}

// MoveDown advances focus one row, descending from a signal into its
// slots, then to the next signal, turning the page past the last row
// and refocusing the new page's first row.
func (n *Navigator) MoveDown() {
	sigs := n.pageSignals()
	if len(sigs) == 0 {
		return
	}
	slots := ipc.SlotsOf(sigs[n.focusSignal].Name, n.slots)
	if n.focusSlot+1 < len(slots) {
		n.focusSlot++
		return
	}
	if n.focusSignal+1 < len(sigs) {
		n.focusSignal++
		n.focusSlot = -1
		return
	}
	if n.page+1 < n.Pages() {
		n.page++
		n.focusSignal = 0
		n.focusSlot = -1
	}
}

// MoveUp retreats focus one row, ascending from a slot toward its
// signal, then to the previous signal's last slot, turning the page
// before the first row and refocusing the new page's last row.
func (n *Navigator) MoveUp() {
	sigs := n.pageSignals()
	if len(sigs) == 0 {
		return
	}
	if n.focusSlot >= 0 {
		n.focusSlot--
		return
	}
	if n.focusSignal > 0 {
		n.focusSignal--
		n.focusSlot = len(ipc.SlotsOf(sigs[n.focusSignal].Name, n.slots)) - 1
		return
	}
	if n.page > 0 {
		n.page--
		sigs = n.pageSignals()
		n.focusSignal = len(sigs) - 1
		n.focusSlot = len(ipc.SlotsOf(sigs[n.focusSignal].Name, n.slots)) - 1
	}
}

// Enter acts on the focused row: a signal row requests the add-slot
// modal, a slot row requests the disconnect confirmation.
func (n *Navigator) Enter() Event {
	sig, slot, ok := n.Focused()
	if !ok {
		return Event{Kind: EventNone}
	}
	if slot != nil {
		return Event{Kind: EventRemoveSlot, Signal: sig, Slot: *slot}
	}
	return Event{Kind: EventAddSlot, Signal: sig}
}

// Candidates lists the slots the add-slot modal offers for the focused
// signal.
func (n *Navigator) Candidates() []ipc.Slot {
	sig, _, ok := n.Focused()
	if !ok {
		return nil
	}
	return ipc.CandidateSlots(sig, n.slots)
}

// clamp pulls page and focus back inside the current listing.
func (n *Navigator) clamp() {
	if n.page >= n.Pages() {
		n.page = n.Pages() - 1
	}
	sigs := n.pageSignals()
	if len(sigs) == 0 {
		n.focusSignal = 0
		n.focusSlot = -1
		return
	}
	if n.focusSignal >= len(sigs) {
		n.focusSignal = len(sigs) - 1
		n.focusSlot = -1
	}
	slots := ipc.SlotsOf(sigs[n.focusSignal].Name, n.slots)
	if n.focusSlot >= len(slots) {
		n.focusSlot = len(slots) - 1
	}
}

// ProcessOptions lists the owning processes selectable in the filter.
func (n *Navigator) ProcessOptions() []string {
	return ipc.Processes(n.signals, n.slots)
}

// FilterSummary describes the active filters for display.
func (n *Navigator) FilterSummary() string {
	var parts []string
	if n.search != "" {
		parts = append(parts, "search="+n.search)
	}
	if n.typeFilter != "" {
		parts = append(parts, "type="+string(n.typeFilter))
	}
	var procs []string
	for p := range n.processes {
		procs = append(procs, p)
	}
	ipc.SortNames(procs)
	for _, p := range procs {
		parts = append(parts, "process="+p)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}
