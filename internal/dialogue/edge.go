package dialogue

import "github.com/gyaneshwarpardhi/dlgsystem/internal/condition"

// NoTarget marks an edge that leads nowhere.
const NoTarget = -1

// Edge is a conditioned link from its owning node to TargetIndex.
type Edge struct {
	TargetIndex int
	Conditions  []condition.Condition

	Text          string
	TextArguments []TextArgument
	SpeakerState  string

	// IncludeWhenUnsatisfied keeps the edge in AllOptions, flagged as
	// unsatisfied, when its conditions fail.
	IncludeWhenUnsatisfied bool
}

// IsValid reports whether the edge points at a node. Graph construction
// guarantees every non-negative target is in range.
func (e *Edge) IsValid() bool {
	return e.TargetIndex >= 0
}

// Option is one entry of a context's option lists. It is a copy and never
// aliases the graph or the context.
type Option struct {
	TargetIndex  int    `json:"target_index"`
	Text         string `json:"text"`
	SpeakerState string `json:"speaker_state,omitempty"`
	Satisfied    bool   `json:"satisfied"`
}
