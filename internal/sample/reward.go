package sample

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

// PointsValue is the float value a Reward changes.
const PointsValue = "points"

// Reward is a custom event that awards or deducts points. It supports two
// operations:
//   - award: adds Points
//   - deduct: subtracts Points
type Reward struct {
	Operation string
	Points    float64
	Reason    string
}

// Validate checks the operation and the amount.
func (r *Reward) Validate() error {
	if r.Operation != "award" && r.Operation != "deduct" {
		return fmt.Errorf("reward: operation must be 'award' or 'deduct', got %q", r.Operation)
	}
	if r.Points < 0 || math.IsNaN(r.Points) || math.IsInf(r.Points, 0) {
		return fmt.Errorf("reward: points must be a non-negative number, got %v", r.Points)
	}
	return nil
}

// Call applies the reward to p.
func (r *Reward) Call(conv participant.Conversation, p participant.Participant) {
	if err := r.Validate(); err != nil {
		slog.Error("reward skipped", "dialogue", conv.DialogueName(), "participant", p.ParticipantName(), "err", err)
		return
	}
	pts := math.Round(r.Points*100) / 100 // round to 2 dp
	if r.Operation == "deduct" {
		pts = -pts
	}
	p.ModifyFloatValue(PointsValue, true, pts)

	args := []any{"dialogue", conv.DialogueName(), "participant", p.ParticipantName(), "points", pts}
	if r.Reason != "" {
		args = append(args, "reason", r.Reason)
	}
	slog.Debug("reward applied", args...)
}
