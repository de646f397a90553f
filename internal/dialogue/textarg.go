package dialogue

import (
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

// ArgumentKind selects where a text argument takes its value from.
type ArgumentKind string

const (
	ArgInt   ArgumentKind = "int"
	ArgFloat ArgumentKind = "float"
	ArgName  ArgumentKind = "name"
	// ArgParticipantName substitutes the participant's own name.
	ArgParticipantName ArgumentKind = "participant_name"
)

// TextArgument fills the {Placeholder} in a text with a participant value.
type TextArgument struct {
	Placeholder string
	Kind        ArgumentKind
	// ParticipantName falls back to the node owner when empty.
	ParticipantName string
	VariableName    string
}

func (a *TextArgument) value(c *Context, ownerName string) string {
	name := a.ParticipantName
	if name == "" {
		name = ownerName
	}
	p, ok := c.Participant(name)
	if !ok {
		c.Logger().Warn("text argument uses zero value: unresolved participant",
			"participant", name, "placeholder", a.Placeholder, "err", participant.ErrUnresolvedParticipant)
		return "0"
	}
	switch a.Kind {
	case ArgInt:
		return strconv.Itoa(p.IntValue(a.VariableName))
	case ArgFloat:
		return strconv.FormatFloat(p.FloatValue(a.VariableName), 'f', -1, 64)
	case ArgName:
		return p.NameValue(a.VariableName)
	case ArgParticipantName:
		return p.ParticipantName()
	}
	c.Logger().Error("unknown text argument kind", "kind", string(a.Kind), "placeholder", a.Placeholder)
	return ""
}

// formatText substitutes every argument into text.
func formatText(c *Context, text string, args []TextArgument, ownerName string) string {
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, 2*len(args))
	for i := range args {
		pairs = append(pairs, "{"+args[i].Placeholder+"}", args[i].value(c, ownerName))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
