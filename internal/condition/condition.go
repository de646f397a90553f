// Package condition evaluates the conditions attached to dialogue nodes and
// edges against the bound participants.
package condition

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

// Kind discriminates the condition variants.
type Kind string

const (
	// KindEventCall asks the participant CheckCondition(CallbackName).
	KindEventCall Kind = "event_call"
	KindBoolCall  Kind = "bool_call"
	KindFloatCall Kind = "float_call"
	KindIntCall   Kind = "int_call"
	KindNameCall  Kind = "name_call"
	// KindNodeVisited checks the visited history for node IntValue.
	KindNodeVisited Kind = "node_visited"
	// KindHasSatisfiedChild checks whether node IntValue has any satisfied child.
	KindHasSatisfiedChild Kind = "has_satisfied_child"
	// KindCustom delegates to Condition.Custom.
	KindCustom Kind = "custom"
)

// CompareType selects what a value is compared against.
type CompareType string

const (
	// CompareToConst compares against the literal on the condition.
	CompareToConst CompareType = "const"
	// CompareToVariable compares against OtherVariableName on OtherParticipantName.
	CompareToVariable CompareType = "variable"
)

// Strength controls how a condition combines with its siblings.
type Strength string

const (
	// Strong conditions must all be satisfied.
	Strong Strength = "strong"
	// Weak conditions form an OR group: at least one must be satisfied.
	Weak Strength = "weak"
)

// Custom is a host-supplied condition object.
type Custom interface {
	Evaluate(conv participant.Conversation, p participant.Participant) bool
}

// CustomFunc adapts a function to Custom.
type CustomFunc func(conv participant.Conversation, p participant.Participant) bool

func (f CustomFunc) Evaluate(conv participant.Conversation, p participant.Participant) bool {
	return f(conv, p)
}

// Condition is a small tagged value. The zero Strength is Strong and the
// zero CompareType is CompareToConst.
//
// For event_call, bool_call, node_visited and has_satisfied_child,
// BoolValue is the expected result. int, float and name calls use Operation.
type Condition struct {
	Strength Strength
	Kind     Kind

	// ParticipantName falls back to the owner of the node when empty.
	ParticipantName string
	CallbackName    string
	Operation       Operator
	CompareType     CompareType

	IntValue   int
	FloatValue float64
	NameValue  string
	BoolValue  bool

	// LongTermMemory makes node_visited consult the process-wide memory
	// instead of the current context's history.
	LongTermMemory bool

	OtherParticipantName string
	OtherVariableName    string

	Custom Custom
}

// Env is what condition evaluation needs from a running dialogue.
// It mirrors dialogue.Context but is kept here to avoid an import cycle.
type Env interface {
	participant.Conversation
	WasNodeVisited(nodeIndex int, longTerm bool) bool
	HasSatisfiedChild(nodeIndex int) bool
	Logger() *slog.Logger
}

// IsParticipantInvolved reports whether evaluating c needs a participant.
func (c *Condition) IsParticipantInvolved() bool {
	switch c.Kind {
	case KindNodeVisited, KindHasSatisfiedChild:
		return false
	}
	return true
}

// IsSecondParticipantInvolved reports whether c reads another participant.
func (c *Condition) IsSecondParticipantInvolved() bool {
	switch c.Kind {
	case KindIntCall, KindFloatCall, KindBoolCall, KindNameCall:
		return c.CompareType == CompareToVariable
	}
	return false
}

func (c *Condition) String() string {
	switch c.Kind {
	case KindNodeVisited, KindHasSatisfiedChild:
		return fmt.Sprintf("%s(%d)==%t", c.Kind, c.IntValue, c.BoolValue)
	case KindCustom:
		return fmt.Sprintf("custom(%T)", c.Custom)
	case KindEventCall, KindBoolCall:
		return fmt.Sprintf("%s %s.%s==%t", c.Kind, c.ParticipantName, c.CallbackName, c.BoolValue)
	}
	return fmt.Sprintf("%s %s.%s %s", c.Kind, c.ParticipantName, c.CallbackName, c.Operation.normalize())
}
