// Package participant defines the capability interface host objects implement
// to take part in a dialogue, plus a map-backed implementation for hosts that
// have no game objects of their own.
package participant

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnresolvedParticipant is reported when a condition, event or text
// argument names a participant that is not bound to the running dialogue.
var ErrUnresolvedParticipant = errors.New("participant: unresolved participant")

// Conversation is the view of a running dialogue handed to participant
// callbacks and custom conditions/events.
//
// Hosts that need to drive the conversation from a callback may type-assert
// it to *dialogue.Context. Such calls are reentrant: the outer operation is
// still on the stack.
type Conversation interface {
	DialogueName() string
	DialogueGUID() uuid.UUID
	ActiveNodeIndex() int
	Participant(name string) (Participant, bool)
}

// Participant is implemented by host objects bound to a name used by the
// dialogue graph.
type Participant interface {
	ParticipantName() string

	IntValue(valueName string) int
	FloatValue(valueName string) float64
	BoolValue(valueName string) bool
	NameValue(valueName string) string

	ModifyIntValue(valueName string, isDelta bool, value int)
	ModifyFloatValue(valueName string, isDelta bool, value float64)
	ModifyBoolValue(valueName string, value bool)
	ModifyNameValue(valueName string, value string)

	CheckCondition(conv Conversation, conditionName string) bool
	OnDialogueEvent(conv Conversation, eventName string) bool
}

// Map builds a name → Participant map, keyed by ParticipantName.
// Duplicate or empty names are rejected.
func Map(ps ...Participant) (map[string]Participant, error) {
	out := make(map[string]Participant, len(ps))
	for i, p := range ps {
		if p == nil {
			return nil, fmt.Errorf("participants[%d]: nil participant", i)
		}
		name := p.ParticipantName()
		if name == "" {
			return nil, fmt.Errorf("participants[%d]: empty participant name", i)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("participants[%d]: duplicate participant name %q", i, name)
		}
		out[name] = p
	}
	return out, nil
}
