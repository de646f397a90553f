// Package sample holds a demo dialogue used by the server and by tests.
package sample

import (
	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/condition"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/dialogue"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/event"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

const (
	TavernName = "tavern"

	Player    = "Player"
	Innkeeper = "Innkeeper"
)

// Fixed so visit history survives a restart with imported memory.
var tavernGUID = uuid.MustParse("6f1f2c8e-3b8a-4d55-9a0e-2f6b8f0c7d11")

// Rumors are the lines the rumor selector picks from.
var Rumors = []string{
	"They say the old mill is haunted.",
	"A merchant lost a chest of silver on the north road.",
	"The mayor's cat has been missing for a week.",
}

// NewPlayer returns a player participant with the values the tavern reads.
func NewPlayer(name string, trust int, gold float64) *participant.Values {
	p := participant.NewValues(Player)
	p.SetName("name", name)
	p.SetInt("trust", trust)
	p.SetFloat("gold", gold)
	return p
}

// NewInnkeeper returns the innkeeper participant.
func NewInnkeeper() *participant.Values {
	return participant.NewValues(Innkeeper)
}

func trust(op condition.Operator, v int) condition.Condition {
	return condition.Condition{
		Kind: condition.KindIntCall, ParticipantName: Player, CallbackName: "trust",
		Operation: op, IntValue: v,
	}
}

func gold(op condition.Operator, v float64) condition.Condition {
	return condition.Condition{
		Kind: condition.KindFloatCall, ParticipantName: Player, CallbackName: "gold",
		Operation: op, FloatValue: v,
	}
}

func spend(amount float64) event.Event {
	return event.Event{Kind: event.KindModifyFloat, ParticipantName: Player, EventName: "gold", FloatValue: -amount, Delta: true}
}

func award(points float64, reason string) event.Event {
	return event.Event{Kind: event.KindCustom, ParticipantName: Player, Custom: &Reward{Operation: "award", Points: points, Reason: reason}}
}

func says(text string, events ...event.Event) *dialogue.SpeechNode {
	return &dialogue.SpeechNode{NodeBase: dialogue.NodeBase{OwnerName: Innkeeper, EnterEvents: events}, Text: text}
}

var playerName = dialogue.TextArgument{Placeholder: "name", Kind: dialogue.ArgName, ParticipantName: Player, VariableName: "name"}

// Tavern builds the demo dialogue. Players with trust below 5 are turned
// away; everyone else is welcomed and can ask for rumors, hear the tavern's
// history, order a drink, rent a room or leave.
func Tavern() (*dialogue.Graph, error) {
	b := dialogue.NewBuilder(TavernName).WithGUID(tavernGUID)

	start := b.Add(&dialogue.StartNode{})
	closed := b.Add(says("We're closed, stranger."))
	welcome := b.Add(&dialogue.SpeechNode{
		NodeBase: dialogue.NodeBase{
			OwnerName:   Innkeeper,
			EnterEvents: []event.Event{{Kind: event.KindEvent, ParticipantName: Player, EventName: "greeted"}},
		},
		Text:          "Welcome back, {name}! What'll it be?",
		TextArguments: []dialogue.TextArgument{playerName},
	})
	b.Connect(start, closed, "", trust(condition.OpLt, 5))
	b.Connect(start, welcome, "", trust(condition.OpGte, 5))

	back := b.Add(&dialogue.ProxyNode{NodeBase: dialogue.NodeBase{OwnerName: Innkeeper}, TargetIndex: welcome})

	rumors := b.Add(&dialogue.SelectorNode{
		NodeBase:                    dialogue.NodeBase{OwnerName: Innkeeper},
		Mode:                        dialogue.SelectRandom,
		AvoidRepeatingLastPick:      true,
		CycleThroughAllBeforeRepeat: true,
	})
	for _, text := range Rumors {
		r := b.Add(says(text))
		b.Connect(rumors, r, "")
		b.Connect(r, back, "Interesting.")
	}

	history := b.Add(&dialogue.SpeechSequenceNode{
		NodeBase: dialogue.NodeBase{OwnerName: Innkeeper},
		Entries: []dialogue.SequenceEntry{
			{Speaker: Innkeeper, Text: "My grandfather built this place.", EdgeText: "And then?"},
			{Speaker: Player, Text: "With his own hands?", EdgeText: "..."},
			{Speaker: Innkeeper, Text: "With his own hands. Every beam.", SpeakerState: "proud"},
		},
	})
	b.Connect(history, back, "Thanks for the story.")

	// The order node shows the menu of whichever branch applies.
	order := b.Add(&dialogue.SpeechNode{
		NodeBase:      dialogue.NodeBase{OwnerName: Innkeeper},
		Text:          "What are you drinking?",
		VirtualParent: true,
	})
	regulars := b.Add(says("For friends, the good stuff."))
	strangers := b.Add(says("Water's all I serve strangers."))
	b.Connect(order, regulars, "", trust(condition.OpGte, 8))
	b.Connect(order, strangers, "")

	ale := b.Add(says("Here's your ale.", spend(2), award(1, "bought a drink")))
	water := b.Add(says("Water it is."))
	b.Connect(regulars, ale, "Ale, please. (2 gold)", gold(condition.OpGte, 2))
	b.Connect(regulars, water, "Just water.")
	b.Connect(strangers, water, "Water, please.")
	b.Connect(ale, back, "Cheers!")
	b.Connect(water, back, "Thanks.")

	room := says("Your room is upstairs.", spend(10), award(5, "stayed the night"))
	room.EnterRestriction = dialogue.EnterOncePerContext
	roomIdx := b.Add(room)
	farewell := b.Add(&dialogue.EndNode{
		NodeBase:      dialogue.NodeBase{OwnerName: Innkeeper},
		Text:          "Safe travels, {name}.",
		TextArguments: []dialogue.TextArgument{playerName},
	})
	b.Connect(roomIdx, farewell, "Good night.")

	b.Connect(welcome, rumors, "Heard any rumors?")
	b.Connect(welcome, history, "Tell me about this place.")
	b.Connect(welcome, order, "I'll have a drink.")
	b.ConnectEdge(welcome, dialogue.Edge{
		TargetIndex:            roomIdx,
		Text:                   "I need a room. (10 gold)",
		Conditions:             []condition.Condition{gold(condition.OpGte, 10)},
		IncludeWhenUnsatisfied: true,
	})
	b.Connect(welcome, farewell, "Goodbye.")

	return b.Build()
}
