// Package event fires the events attached to dialogue nodes.
package event

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

// Kind discriminates the event variants.
type Kind string

const (
	// KindEvent calls the participant's OnDialogueEvent(EventName).
	KindEvent       Kind = "event"
	KindModifyInt   Kind = "modify_int"
	KindModifyFloat Kind = "modify_float"
	KindModifyBool  Kind = "modify_bool"
	KindModifyName  Kind = "modify_name"
	// KindCustom delegates to Event.Custom.
	KindCustom Kind = "custom"
)

// Custom is a host-supplied event object.
type Custom interface {
	Call(conv participant.Conversation, p participant.Participant)
}

// CustomFunc adapts a function to Custom.
type CustomFunc func(conv participant.Conversation, p participant.Participant)

func (f CustomFunc) Call(conv participant.Conversation, p participant.Participant) { f(conv, p) }

// Event is a small tagged value owned by the node that declares it.
type Event struct {
	Kind Kind

	// ParticipantName falls back to the owner of the node when empty.
	ParticipantName string
	// EventName is the event name for KindEvent and the value name for the
	// modify kinds.
	EventName string

	IntValue   int
	FloatValue float64
	NameValue  string
	BoolValue  bool
	// Delta makes int and float modifications add to the current value.
	Delta bool

	Custom Custom
}

// Env is what firing events needs from a running dialogue.
type Env interface {
	participant.Conversation
	Logger() *slog.Logger
}

func (e *Event) String() string {
	switch e.Kind {
	case KindCustom:
		return fmt.Sprintf("custom(%T)", e.Custom)
	case KindEvent:
		return fmt.Sprintf("event %s.%s", e.ParticipantName, e.EventName)
	}
	return fmt.Sprintf("%s %s.%s", e.Kind, e.ParticipantName, e.EventName)
}

// FireAll fires events in order. A failing event never stops the ones after it.
func FireAll(events []Event, env Env, ownerName string) {
	for i := range events {
		Fire(&events[i], env, ownerName)
	}
}

// Fire fires a single event. It reports whether the event was dispatched.
func Fire(e *Event, env Env, ownerName string) bool {
	name := e.ParticipantName
	if name == "" {
		name = ownerName
	}
	p, ok := env.Participant(name)
	if !ok {
		env.Logger().Warn("event skipped: unresolved participant",
			"participant", name, "event", e.String(), "err", participant.ErrUnresolvedParticipant)
		return false
	}

	switch e.Kind {
	case KindEvent:
		p.OnDialogueEvent(env, e.EventName)
	case KindModifyInt:
		p.ModifyIntValue(e.EventName, e.Delta, e.IntValue)
	case KindModifyFloat:
		p.ModifyFloatValue(e.EventName, e.Delta, e.FloatValue)
	case KindModifyBool:
		p.ModifyBoolValue(e.EventName, e.BoolValue)
	case KindModifyName:
		p.ModifyNameValue(e.EventName, e.NameValue)
	case KindCustom:
		if e.Custom == nil {
			env.Logger().Error("custom event has no implementation", "participant", name)
			return false
		}
		e.Custom.Call(env, p)
	default:
		env.Logger().Error("unknown event kind", "kind", string(e.Kind))
		return false
	}
	return true
}
