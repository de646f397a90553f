package condition

import (
	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

// EvaluateAll reports whether conds are satisfied.
// Strong conditions are ANDed and short-circuit on the first failure. If any
// weak conditions are present at least one of them must hold. An empty slice
// is satisfied.
func EvaluateAll(conds []Condition, env Env, ownerName string) bool {
	hasWeak := false
	weakPassed := false
	for i := range conds {
		c := &conds[i]
		ok := Evaluate(c, env, ownerName)
		if c.Strength == Weak {
			hasWeak = true
			weakPassed = weakPassed || ok
			continue
		}
		if !ok {
			return false
		}
	}
	return weakPassed || !hasWeak
}

// Evaluate checks a single condition. The participant is resolved from the
// condition's ParticipantName, falling back to ownerName.
func Evaluate(c *Condition, env Env, ownerName string) bool {
	var p participant.Participant
	if c.IsParticipantInvolved() {
		name := c.ParticipantName
		if name == "" {
			name = ownerName
		}
		var ok bool
		p, ok = env.Participant(name)
		if !ok {
			env.Logger().Warn("condition skipped: unresolved participant",
				"participant", name, "condition", c.String(), "err", participant.ErrUnresolvedParticipant)
			return false
		}
	}

	switch c.Kind {
	case KindEventCall:
		return p.CheckCondition(env, c.CallbackName) == c.BoolValue

	case KindBoolCall:
		return c.checkBool(p.BoolValue(c.CallbackName), env)

	case KindFloatCall:
		return c.checkFloat(p.FloatValue(c.CallbackName), env)

	case KindIntCall:
		return c.checkInt(p.IntValue(c.CallbackName), env)

	case KindNameCall:
		return c.checkName(p.NameValue(c.CallbackName), env)

	case KindNodeVisited:
		return env.WasNodeVisited(c.IntValue, c.LongTermMemory) == c.BoolValue

	case KindHasSatisfiedChild:
		return env.HasSatisfiedChild(c.IntValue) == c.BoolValue

	case KindCustom:
		if c.Custom == nil {
			env.Logger().Error("custom condition has no implementation", "participant", p.ParticipantName())
			return false
		}
		return c.Custom.Evaluate(env, p)

	default:
		env.Logger().Error("unknown condition kind", "kind", string(c.Kind))
		return false
	}
}

// other resolves the participant used by CompareToVariable.
func (c *Condition) other(env Env) (participant.Participant, bool) {
	p, ok := env.Participant(c.OtherParticipantName)
	if !ok {
		env.Logger().Warn("condition failed: unresolved participant to compare against",
			"participant", c.OtherParticipantName, "condition", c.String(), "err", participant.ErrUnresolvedParticipant)
	}
	return p, ok
}

func (c *Condition) checkInt(value int, env Env) bool {
	against := c.IntValue
	if c.CompareType == CompareToVariable {
		o, ok := c.other(env)
		if !ok {
			return false
		}
		against = o.IntValue(c.OtherVariableName)
	}
	ok, err := compareInt(c.Operation, value, against)
	if err != nil {
		env.Logger().Error("invalid operation in int based condition", "condition", c.String(), "err", err)
		return false
	}
	return ok
}

func (c *Condition) checkFloat(value float64, env Env) bool {
	against := c.FloatValue
	if c.CompareType == CompareToVariable {
		o, ok := c.other(env)
		if !ok {
			return false
		}
		against = o.FloatValue(c.OtherVariableName)
	}
	ok, err := compareFloat(c.Operation, value, against)
	if err != nil {
		env.Logger().Error("invalid operation in float based condition", "condition", c.String(), "err", err)
		return false
	}
	return ok
}

func (c *Condition) checkBool(value bool, env Env) bool {
	if c.CompareType == CompareToVariable {
		o, ok := c.other(env)
		if !ok {
			return false
		}
		return (value == o.BoolValue(c.OtherVariableName)) == c.BoolValue
	}
	return value == c.BoolValue
}

func (c *Condition) checkName(value string, env Env) bool {
	against := c.NameValue
	if c.CompareType == CompareToVariable {
		o, ok := c.other(env)
		if !ok {
			return false
		}
		against = o.NameValue(c.OtherVariableName)
	}
	ok, err := compareName(c.Operation, value, against)
	if err != nil {
		env.Logger().Error("invalid operation in name based condition", "condition", c.String(), "err", err)
		return false
	}
	return ok
}
