package dialogue

import "errors"

var (
	// ErrStartFailure is returned when no start edge can be entered or the
	// participants do not match the dialogue.
	ErrStartFailure = errors.New("no satisfiable start edge")
	// ErrStuckTraversal means a node with children has none satisfied.
	ErrStuckTraversal = errors.New("dialogue stuck: no satisfied child")
	// ErrCycleAbort means a selector or proxy was entered twice in one step.
	ErrCycleAbort = errors.New("node entered twice in a single step")
	// ErrInvalidChoice is returned for an out-of-range option index.
	// The context is left unchanged.
	ErrInvalidChoice = errors.New("invalid option index")
	ErrInvalidNode   = errors.New("invalid node index")
	// ErrDialogueEnded is returned by operations on a finished context.
	ErrDialogueEnded = errors.New("dialogue has ended")
)
