package dialogue

import "fmt"

// NoSatisfiedChildBehavior decides what happens when a node with children
// ends up with none of them satisfied.
type NoSatisfiedChildBehavior string

const (
	// StuckWarnAndEnd logs a warning and ends the dialogue with ErrStuckTraversal.
	StuckWarnAndEnd NoSatisfiedChildBehavior = "warn_and_end"
	// StuckEnd ends the dialogue with ErrStuckTraversal, logging at debug level only.
	StuckEnd NoSatisfiedChildBehavior = "end"
	// StuckContinue logs a warning and keeps the dialogue alive with no
	// options, so the host can change state and call ReevaluateOptions. A
	// stuck selector stays active and retries its pick on ReevaluateOptions.
	StuckContinue NoSatisfiedChildBehavior = "continue"
)

// Settings tune traversal. The zero value is usable.
type Settings struct {
	NoSatisfiedChild NoSatisfiedChildBehavior
	// RandomSeed seeds random selectors. Zero means time seeded.
	RandomSeed uint64
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{NoSatisfiedChild: StuckWarnAndEnd}
}

// Validate reports unknown values.
func (s Settings) Validate() error {
	switch s.NoSatisfiedChild {
	case "", StuckWarnAndEnd, StuckEnd, StuckContinue:
		return nil
	}
	return fmt.Errorf("unknown no_satisfied_child behavior %q", s.NoSatisfiedChild)
}

func (s Settings) noSatisfiedChild() NoSatisfiedChildBehavior {
	if s.NoSatisfiedChild == "" {
		return StuckWarnAndEnd
	}
	return s.NoSatisfiedChild
}
