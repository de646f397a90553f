package participant_test

import (
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

var _ participant.Participant = (*participant.Values)(nil)

type stubConv struct{}

func (stubConv) DialogueName() string    { return "stub" }
func (stubConv) DialogueGUID() uuid.UUID { return uuid.Nil }
func (stubConv) ActiveNodeIndex() int    { return 0 }
func (stubConv) Participant(string) (participant.Participant, bool) {
	return nil, false
}

func TestFromStateAndSnapshot(t *testing.T) {
	in := participant.State{
		Ints:   map[string]int{"trust": 4},
		Floats: map[string]float64{"gold": 2.5},
		Bools:  map[string]bool{"knighted": true},
		Names:  map[string]string{"name": "Ada"},
	}
	v := participant.FromState("Player", in)
	in.Ints["trust"] = 99

	if v.ParticipantName() != "Player" {
		t.Errorf("name = %q", v.ParticipantName())
	}
	if v.IntValue("trust") != 4 || v.FloatValue("gold") != 2.5 || !v.BoolValue("knighted") || v.NameValue("name") != "Ada" {
		t.Errorf("values not seeded: %+v", v.Snapshot())
	}
	if v.IntValue("missing") != 0 || v.NameValue("missing") != "" {
		t.Error("unknown values should read as zero")
	}

	s := v.Snapshot()
	s.Ints["trust"] = 0
	if v.IntValue("trust") != 4 {
		t.Error("snapshot aliases participant state")
	}

	v.SetFloat("broken", math.NaN())
	if _, ok := v.Snapshot().Floats["broken"]; ok {
		t.Error("NaN float should be left out of the snapshot")
	}
}

func TestModify(t *testing.T) {
	cases := []struct {
		name    string
		isDelta bool
		start   int
		value   int
		want    int
	}{
		{"delta adds", true, 5, 3, 8},
		{"negative delta", true, 5, -7, -2},
		{"absolute replaces", false, 5, 3, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := participant.NewValues("p")
			v.SetInt("n", tc.start)
			v.ModifyIntValue("n", tc.isDelta, tc.value)
			if got := v.IntValue("n"); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}

	v := participant.NewValues("p")
	v.ModifyFloatValue("gold", true, 1.25)
	v.ModifyFloatValue("gold", true, 1.25)
	if v.FloatValue("gold") != 2.5 {
		t.Errorf("gold = %v", v.FloatValue("gold"))
	}
	v.ModifyBoolValue("flag", true)
	v.ModifyNameValue("title", "Sir")
	if !v.BoolValue("flag") || v.NameValue("title") != "Sir" {
		t.Error("bool or name modify lost")
	}
}

func TestCheckCondition(t *testing.T) {
	v := participant.NewValues("p")
	v.SetBool("brave", true)
	if !v.CheckCondition(stubConv{}, "brave") {
		t.Error("fallback to bool value failed")
	}
	if v.CheckCondition(stubConv{}, "unknown") {
		t.Error("unknown condition should be false")
	}

	var sawDialogue string
	v.OnCondition("brave", func(conv participant.Conversation, p *participant.Values) bool {
		sawDialogue = conv.DialogueName()
		return p.IntValue("courage") > 3
	})
	if v.CheckCondition(stubConv{}, "brave") {
		t.Error("registered handler should override the bool fallback")
	}
	v.SetInt("courage", 4)
	if !v.CheckCondition(stubConv{}, "brave") || sawDialogue != "stub" {
		t.Error("handler not consulted")
	}
}

func TestOnDialogueEvent(t *testing.T) {
	v := participant.NewValues("p")
	v.OnEvent("pay", func(_ participant.Conversation, p *participant.Values) bool {
		p.ModifyIntValue("coins", true, -1)
		return true
	})

	if v.OnDialogueEvent(stubConv{}, "wave") {
		t.Error("unhandled event should report false")
	}
	if !v.OnDialogueEvent(stubConv{}, "pay") {
		t.Error("handled event should report true")
	}
	if v.IntValue("coins") != -1 {
		t.Errorf("coins = %d", v.IntValue("coins"))
	}
	got := v.FiredEvents()
	if len(got) != 2 || got[0] != "wave" || got[1] != "pay" {
		t.Errorf("fired = %v", got)
	}
	if s := v.Snapshot(); len(s.Events) != 2 {
		t.Errorf("snapshot events = %v", s.Events)
	}
}

func TestMap(t *testing.T) {
	a, b := participant.NewValues("a"), participant.NewValues("b")
	m, err := participant.Map(a, b)
	if err != nil || len(m) != 2 || m["a"] != a {
		t.Fatalf("Map = %v, %v", m, err)
	}

	cases := []struct {
		name string
		ps   []participant.Participant
		want string
	}{
		{"nil", []participant.Participant{a, nil}, "participants[1]: nil participant"},
		{"empty name", []participant.Participant{participant.NewValues("")}, "empty participant name"},
		{"duplicate", []participant.Participant{a, participant.NewValues("a")}, `duplicate participant name "a"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := participant.Map(tc.ps...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want %q", err, tc.want)
			}
		})
	}
}
