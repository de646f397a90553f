// Package memory holds dialogue history that outlives a single conversation:
// which nodes were ever shown and the repetition-avoidance lists of random
// selectors.
//
// Memory does no locking. Callers driving contexts from several goroutines
// must serialize access themselves.
package memory

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// SelectionData is the saved state of one random selector node.
type SelectionData struct {
	RecentlyPicked []uuid.UUID `json:"recently_picked"`
}

// Contains reports whether guid was picked recently.
func (s *SelectionData) Contains(guid uuid.UUID) bool {
	return slices.Contains(s.RecentlyPicked, guid)
}

// dialogueHistory is the per-dialogue bookkeeping.
type dialogueHistory struct {
	visited    map[uuid.UUID]struct{}
	selections map[uuid.UUID]*SelectionData
}

func newDialogueHistory() *dialogueHistory {
	return &dialogueHistory{
		visited:    make(map[uuid.UUID]struct{}),
		selections: make(map[uuid.UUID]*SelectionData),
	}
}

// Memory is keyed by dialogue GUID, then node GUID.
type Memory struct {
	dialogues map[uuid.UUID]*dialogueHistory
}

// New returns an empty Memory.
func New() *Memory {
	return &Memory{dialogues: make(map[uuid.UUID]*dialogueHistory)}
}

var (
	defaultOnce sync.Once
	defaultMem  *Memory
)

// Default returns the process-wide Memory, creating it on first use.
func Default() *Memory {
	defaultOnce.Do(func() { defaultMem = New() })
	return defaultMem
}

func (m *Memory) history(dialogue uuid.UUID) *dialogueHistory {
	h, ok := m.dialogues[dialogue]
	if !ok {
		h = newDialogueHistory()
		m.dialogues[dialogue] = h
	}
	return h
}

// SetNodeVisited records that node of dialogue has been shown.
func (m *Memory) SetNodeVisited(dialogue, node uuid.UUID) {
	m.history(dialogue).visited[node] = struct{}{}
}

// WasEverVisited reports whether node of dialogue was shown in any conversation
// since the last Clear.
func (m *Memory) WasEverVisited(dialogue, node uuid.UUID) bool {
	h, ok := m.dialogues[dialogue]
	if !ok {
		return false
	}
	_, ok = h.visited[node]
	return ok
}

// SelectionData returns the saved data of a selector node, creating it if
// needed. The returned value is live: changes are kept.
func (m *Memory) SelectionData(dialogue, node uuid.UUID) *SelectionData {
	h := m.history(dialogue)
	s, ok := h.selections[node]
	if !ok {
		s = &SelectionData{}
		h.selections[node] = s
	}
	return s
}

// Clear forgets everything.
func (m *Memory) Clear() {
	clear(m.dialogues)
}

// ClearDialogue forgets everything about one dialogue.
func (m *Memory) ClearDialogue(dialogue uuid.UUID) {
	delete(m.dialogues, dialogue)
}

// DialogueState is an exported copy of one dialogue's history.
type DialogueState struct {
	Visited    []uuid.UUID                 `json:"visited"`
	Selections map[uuid.UUID]SelectionData `json:"selections,omitempty"`
}

// Export returns a deep copy of the whole history, keyed by dialogue GUID.
func (m *Memory) Export() map[uuid.UUID]DialogueState {
	out := make(map[uuid.UUID]DialogueState, len(m.dialogues))
	for d, h := range m.dialogues {
		st := DialogueState{
			Visited:    make([]uuid.UUID, 0, len(h.visited)),
			Selections: make(map[uuid.UUID]SelectionData, len(h.selections)),
		}
		for n := range h.visited {
			st.Visited = append(st.Visited, n)
		}
		for n, s := range h.selections {
			st.Selections[n] = SelectionData{RecentlyPicked: slices.Clone(s.RecentlyPicked)}
		}
		out[d] = st
	}
	return out
}

// Import replaces the whole history with a copy of state.
func (m *Memory) Import(state map[uuid.UUID]DialogueState) {
	m.Clear()
	for d, st := range state {
		h := m.history(d)
		for _, n := range st.Visited {
			h.visited[n] = struct{}{}
		}
		for n, s := range st.Selections {
			h.selections[n] = &SelectionData{RecentlyPicked: slices.Clone(s.RecentlyPicked)}
		}
	}
}
