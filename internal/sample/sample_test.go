package sample_test

import (
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/dialogue"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/memory"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/sample"
)

func startTavern(t *testing.T, p *participant.Values, mem *memory.Memory) *dialogue.Context {
	t.Helper()
	g, err := sample.Tavern()
	if err != nil {
		t.Fatalf("Tavern: %v", err)
	}
	c, err := dialogue.Start(g, []participant.Participant{p, sample.NewInnkeeper()},
		dialogue.WithMemory(mem),
		dialogue.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		dialogue.WithRand(rand.New(rand.NewPCG(3, 5))),
	)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c
}

// choose picks the option with the given text.
func choose(t *testing.T, c *dialogue.Context, text string) {
	t.Helper()
	for i, o := range c.Options() {
		if o.Text == text {
			if err := c.ChooseOption(i); err != nil {
				t.Fatalf("choose %q: %v", text, err)
			}
			return
		}
	}
	t.Fatalf("no option %q in %+v", text, c.Options())
}

func optionTexts(c *dialogue.Context) []string {
	var out []string
	for _, o := range c.Options() {
		out = append(out, o.Text)
	}
	return out
}

func TestTavern_Builds(t *testing.T) {
	g, err := sample.Tavern()
	if err != nil {
		t.Fatal(err)
	}
	kinds := make(map[dialogue.NodeKind]bool)
	for i := 0; i < g.NodeCount(); i++ {
		n, _ := g.Node(i)
		kinds[n.Kind()] = true
	}
	for _, k := range []dialogue.NodeKind{
		dialogue.KindStart, dialogue.KindSpeech, dialogue.KindSelector,
		dialogue.KindSpeechSequence, dialogue.KindEnd, dialogue.KindProxy,
	} {
		if !kinds[k] {
			t.Errorf("no %s node", k)
		}
	}
	g2, _ := sample.Tavern()
	if g.GUID() != g2.GUID() {
		t.Error("dialogue GUID is not stable")
	}
}

func TestTavern_Trust(t *testing.T) {
	c := startTavern(t, sample.NewPlayer("Ada", 2, 0), memory.New())
	if c.ActiveNodeText() != "We're closed, stranger." || !c.Ended() || c.Err() != nil {
		t.Errorf("low trust: %q ended=%v err=%v", c.ActiveNodeText(), c.Ended(), c.Err())
	}

	p := sample.NewPlayer("Ada", 10, 0)
	c = startTavern(t, p, memory.New())
	if got := c.ActiveNodeText(); got != "Welcome back, Ada! What'll it be?" {
		t.Errorf("text = %q", got)
	}
	want := []string{"Heard any rumors?", "Tell me about this place.", "I'll have a drink.", "Goodbye."}
	if got := optionTexts(c); !slices.Equal(got, want) {
		t.Errorf("options = %v, want %v", got, want)
	}
	if all := c.AllOptions(); len(all) != 5 || all[3].Satisfied {
		t.Errorf("all options = %+v, want the room shown as unavailable", all)
	}
	if got := p.FiredEvents(); !slices.Equal(got, []string{"greeted"}) {
		t.Errorf("fired = %v", got)
	}
}

func TestTavern_Room(t *testing.T) {
	p := sample.NewPlayer("Ada", 10, 25)
	c := startTavern(t, p, memory.New())

	choose(t, c, "I need a room. (10 gold)")
	if p.FloatValue("gold") != 15 || p.FloatValue(sample.PointsValue) != 5 {
		t.Errorf("gold = %v points = %v", p.FloatValue("gold"), p.FloatValue(sample.PointsValue))
	}
	choose(t, c, "Good night.")
	if !c.Ended() || c.Err() != nil || c.ActiveNodeText() != "Safe travels, Ada." {
		t.Errorf("ended=%v err=%v text=%q", c.Ended(), c.Err(), c.ActiveNodeText())
	}
}

func TestTavern_Drinks(t *testing.T) {
	cases := []struct {
		name  string
		trust int
		gold  float64
		want  []string
	}{
		{"regular with gold", 9, 5, []string{"Ale, please. (2 gold)", "Just water."}},
		{"regular without gold", 9, 1, []string{"Just water."}},
		{"stranger", 6, 50, []string{"Water, please."}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := startTavern(t, sample.NewPlayer("Ada", tc.trust, tc.gold), memory.New())
			choose(t, c, "I'll have a drink.")
			if c.ActiveNodeText() != "What are you drinking?" {
				t.Errorf("text = %q", c.ActiveNodeText())
			}
			if got := optionTexts(c); !slices.Equal(got, tc.want) {
				t.Errorf("options = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTavern_AleRoundTrip(t *testing.T) {
	p := sample.NewPlayer("Ada", 9, 5)
	c := startTavern(t, p, memory.New())
	choose(t, c, "I'll have a drink.")
	choose(t, c, "Ale, please. (2 gold)")
	if c.ActiveNodeText() != "Here's your ale." || p.FloatValue("gold") != 3 || p.FloatValue(sample.PointsValue) != 1 {
		t.Errorf("text=%q gold=%v points=%v", c.ActiveNodeText(), p.FloatValue("gold"), p.FloatValue(sample.PointsValue))
	}
	choose(t, c, "Cheers!")
	if c.ActiveNodeText() != "Welcome back, Ada! What'll it be?" {
		t.Errorf("proxy did not return to the welcome: %q", c.ActiveNodeText())
	}
}

func TestTavern_History(t *testing.T) {
	c := startTavern(t, sample.NewPlayer("Ada", 10, 0), memory.New())
	choose(t, c, "Tell me about this place.")

	lines := []struct{ speaker, text, next string }{
		{sample.Innkeeper, "My grandfather built this place.", "And then?"},
		{sample.Player, "With his own hands?", "..."},
		{sample.Innkeeper, "With his own hands. Every beam.", "Thanks for the story."},
	}
	for _, l := range lines {
		if c.ActiveSpeaker() != l.speaker || c.ActiveNodeText() != l.text {
			t.Fatalf("line = %s: %q, want %s: %q", c.ActiveSpeaker(), c.ActiveNodeText(), l.speaker, l.text)
		}
		choose(t, c, l.next)
	}
	if c.ActiveNodeText() != "Welcome back, Ada! What'll it be?" {
		t.Errorf("text = %q", c.ActiveNodeText())
	}
}

func TestTavern_RumorsCycle(t *testing.T) {
	c := startTavern(t, sample.NewPlayer("Ada", 10, 0), memory.New())
	seen := make(map[string]bool)
	for range sample.Rumors {
		choose(t, c, "Heard any rumors?")
		seen[c.ActiveNodeText()] = true
		choose(t, c, "Interesting.")
	}
	if len(seen) != len(sample.Rumors) {
		t.Errorf("heard %d distinct rumors, want %d", len(seen), len(sample.Rumors))
	}
}

type conversation struct{}

func (conversation) DialogueName() string    { return "test" }
func (conversation) DialogueGUID() uuid.UUID { return uuid.Nil }
func (conversation) ActiveNodeIndex() int    { return 0 }
func (conversation) Participant(string) (participant.Participant, bool) {
	return nil, false
}

func TestReward(t *testing.T) {
	cases := []struct {
		name    string
		reward  sample.Reward
		wantErr bool
		want    float64
	}{
		{"award", sample.Reward{Operation: "award", Points: 5}, false, 15},
		{"deduct", sample.Reward{Operation: "deduct", Points: 2.5}, false, 7.5},
		{"rounds to two places", sample.Reward{Operation: "award", Points: 1.23456}, false, 11.23},
		{"unknown operation", sample.Reward{Operation: "steal", Points: 1}, true, 10},
		{"negative points", sample.Reward{Operation: "award", Points: -1}, true, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.reward.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate err = %v, wantErr %v", err, tc.wantErr)
			}
			p := participant.NewValues(sample.Player)
			p.SetFloat(sample.PointsValue, 10)
			tc.reward.Call(conversation{}, p)
			if got := p.FloatValue(sample.PointsValue); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("points = %v, want %v", got, tc.want)
			}
		})
	}
}
