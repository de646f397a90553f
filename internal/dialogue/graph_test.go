package dialogue_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/condition"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/dialogue"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/event"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/memory"
)

func TestParticipantNames(t *testing.T) {
	b := dialogue.NewBuilder("cast")
	s := b.Add(&dialogue.StartNode{})
	w := speech("Hello {bard}")
	w.TextArguments = []dialogue.TextArgument{{Placeholder: "bard", Kind: dialogue.ArgParticipantName, ParticipantName: "Bard"}}
	w.EnterEvents = []event.Event{{Kind: event.KindEvent, ParticipantName: "Guard", EventName: "salute"}}
	hello := b.Add(w)
	seq := b.Add(&dialogue.SpeechSequenceNode{Entries: []dialogue.SequenceEntry{{Speaker: "Cook", Text: "stew?"}}})
	b.Connect(s, hello, "", condition.Condition{
		Kind: condition.KindIntCall, ParticipantName: "Player", CallbackName: "gold",
		Operation: condition.OpGt, CompareType: condition.CompareToVariable,
		OtherParticipantName: "Rival", OtherVariableName: "gold",
	})
	b.Connect(hello, seq, "eat", condition.Condition{Kind: condition.KindNodeVisited, ParticipantName: "Nobody", IntValue: hello})
	g := build(t, b)

	want := []string{"Bard", "Cook", "Guard", "Innkeeper", "Player", "Rival"}
	got := g.ParticipantNames()
	if !slices.Equal(got, want) {
		t.Fatalf("participants = %v, want %v", got, want)
	}
	got[0] = "mutated"
	if g.ParticipantNames()[0] != "Bard" {
		t.Error("ParticipantNames returned internal state")
	}
}

func TestStart_ParticipantsMustMatch(t *testing.T) {
	g, _ := trustGraph(t, true)
	mem := memory.New()
	onlyPlayer := players(player(10))

	_, err := dialogue.Start(g, onlyPlayer, testOpts(mem)...)
	if !errors.Is(err, dialogue.ErrStartFailure) || !strings.Contains(err.Error(), "Innkeeper") {
		t.Errorf("Start err = %v, want ErrStartFailure naming Innkeeper", err)
	}
	if dialogue.CanStart(g, onlyPlayer, testOpts(mem)...) {
		t.Error("CanStart should fail without the Innkeeper")
	}
	_, err = dialogue.StartFromNode(g, onlyPlayer, 2, nil, false, testOpts(mem)...)
	if !errors.Is(err, dialogue.ErrStartFailure) {
		t.Errorf("StartFromNode err = %v, want ErrStartFailure", err)
	}

	c, err := dialogue.Start(g, onlyPlayer, testOpts(mem, dialogue.AllowUnboundParticipants())...)
	if err != nil {
		t.Fatalf("Start with unbound participants allowed: %v", err)
	}
	if c.ActiveNodeText() != "Welcome" {
		t.Errorf("active text = %q, want Welcome", c.ActiveNodeText())
	}
}

func TestNewGraph_FailureLeavesNodesUntouched(t *testing.T) {
	first := &dialogue.StartNode{}
	nodes := []dialogue.Node{first, &dialogue.SpeechSequenceNode{}}
	if _, err := dialogue.NewGraph("bad", uuid.Nil, nodes, []int{0}); err == nil {
		t.Fatal("empty sequence should fail validation")
	}
	if first.GUID != uuid.Nil {
		t.Errorf("guid = %s, want nil after a failed build", first.GUID)
	}
}

func TestNewGraph_OwnsItsNodes(t *testing.T) {
	seq := &dialogue.SpeechSequenceNode{Entries: []dialogue.SequenceEntry{{Text: "a", EdgeText: "next"}, {Text: "b"}}}
	nodes := []dialogue.Node{&dialogue.StartNode{}, seq}
	nodes[0].Base().Children = []dialogue.Edge{{TargetIndex: 1}}
	g, err := dialogue.NewGraph("owned", uuid.Nil, nodes, []int{0})
	if err != nil {
		t.Fatal(err)
	}

	nodes[1] = speech("replaced")
	if n, _ := g.Node(1); n != seq {
		t.Error("graph shares the caller's node slice")
	}
	if seq.GUID == uuid.Nil {
		t.Error("successful build should assign a guid")
	}

	edges := seq.InnerEdges()
	edges[0].Text = "mutated"
	if seq.InnerEdges()[0].Text != "next" {
		t.Error("InnerEdges returned internal state")
	}
}
