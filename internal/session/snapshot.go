package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/dialogue"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

// Snapshot is a copy of a session's state. It shares nothing with the
// running dialogue.
type Snapshot struct {
	ID            uuid.UUID                    `json:"id"`
	Dialogue      string                       `json:"dialogue"`
	Node          int                          `json:"node"`
	NodeGUID      uuid.UUID                    `json:"node_guid"`
	Speaker       string                       `json:"speaker,omitempty"`
	SpeakerState  string                       `json:"speaker_state,omitempty"`
	Text          string                       `json:"text"`
	SequenceIndex *int                         `json:"sequence_index,omitempty"`
	Options       []dialogue.Option            `json:"options"`
	AllOptions    []dialogue.Option            `json:"all_options"`
	Ended         bool                         `json:"ended"`
	Error         string                       `json:"error,omitempty"`
	Participants  map[string]participant.State `json:"participants"`
}

// DialogueInfo describes a graph in the catalog.
type DialogueInfo struct {
	Name         string    `json:"name"`
	GUID         uuid.UUID `json:"guid"`
	Nodes        int       `json:"nodes"`
	Starts       int       `json:"starts"`
	Participants []string  `json:"participants"`
}

type session struct {
	ctx          *dialogue.Context
	participants []*participant.Values
	// last start or step, read by the sweep
	touched time.Time
}

func (s *session) snapshot() Snapshot {
	c := s.ctx
	snap := Snapshot{
		ID:           c.ID(),
		Dialogue:     c.DialogueName(),
		Node:         c.ActiveNodeIndex(),
		NodeGUID:     c.ActiveNodeGUID(),
		Speaker:      c.ActiveSpeaker(),
		SpeakerState: c.ActiveSpeakerState(),
		Text:         c.ActiveNodeText(),
		Options:      c.Options(),
		AllOptions:   c.AllOptions(),
		Ended:        c.Ended(),
		Participants: make(map[string]participant.State, len(s.participants)),
	}
	if i, ok := c.SequenceIndex(); ok {
		snap.SequenceIndex = &i
	}
	if err := c.Err(); err != nil {
		snap.Error = err.Error()
	}
	if snap.Options == nil {
		snap.Options = []dialogue.Option{}
	}
	if snap.AllOptions == nil {
		snap.AllOptions = []dialogue.Option{}
	}
	for _, p := range s.participants {
		snap.Participants[p.ParticipantName()] = p.Snapshot()
	}
	return snap
}
