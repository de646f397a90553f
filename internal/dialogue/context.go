package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/memory"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

// Hooks observe traversal. Nil funcs are skipped.
type Hooks struct {
	NodeEntered    func(kind NodeKind)
	SelectorPicked func(mode SelectorMode)
	// Failed sees every start failure, stuck traversal, cycle abort and
	// invalid choice.
	Failed func(err error)
}

// StartOption configures a Context.
type StartOption func(*Context)

// WithMemory uses m instead of memory.Default().
func WithMemory(m *memory.Memory) StartOption {
	return func(c *Context) { c.mem = m }
}

func WithSettings(s Settings) StartOption {
	return func(c *Context) { c.settings = s }
}

func WithLogger(l *slog.Logger) StartOption {
	return func(c *Context) { c.logger = l }
}

// WithRand sets the source used by random selectors, overriding RandomSeed.
func WithRand(r *rand.Rand) StartOption {
	return func(c *Context) { c.rng = r }
}

func WithHooks(h Hooks) StartOption {
	return func(c *Context) { c.hooks = h }
}

// AllowUnboundParticipants lets a context start while participants named by
// the graph are missing. Their conditions then evaluate false and their
// events are skipped.
func AllowUnboundParticipants() StartOption {
	return func(c *Context) { c.allowUnbound = true }
}

// Context is one running conversation over a Graph. It is not safe for
// concurrent use.
type Context struct {
	id           uuid.UUID
	graph        *Graph
	participants map[string]participant.Participant
	mem          *memory.Memory
	settings     Settings
	logger       *slog.Logger
	rng          *rand.Rand
	hooks        Hooks
	allowUnbound bool

	active     int
	visited    nodeSet
	options    []Option
	allOptions []Option
	seqIndex   map[int]int
	edgeTexts  map[*Edge]string
	// nodes whose has_satisfied_child condition is being evaluated
	checking nodeSet

	ended bool
	err   error
}

func newContext(g *Graph, ps []participant.Participant, opts []StartOption) (*Context, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrStartFailure)
	}
	m, err := participant.Map(ps...)
	if err != nil {
		return nil, fmt.Errorf("%w: dialogue %q: %w", ErrStartFailure, g.name, err)
	}
	c := &Context{
		id:           uuid.New(),
		graph:        g,
		participants: m,
		settings:     DefaultSettings(),
		logger:       slog.Default(),
		active:       NoTarget,
		visited:      make(nodeSet),
		seqIndex:     make(map[int]int),
		edgeTexts:    make(map[*Edge]string),
		checking:     make(nodeSet),
	}
	for _, o := range opts {
		o(c)
	}
	if err := c.settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartFailure, err)
	}
	if missing := g.missingParticipants(m); len(missing) > 0 && !c.allowUnbound {
		return nil, fmt.Errorf("%w: dialogue %q: participants not bound: %s", ErrStartFailure, g.name, strings.Join(missing, ", "))
	}
	if c.mem == nil {
		c.mem = memory.Default()
	}
	if c.rng == nil {
		seed := c.settings.RandomSeed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return c, nil
}

// Start begins a conversation. Start edges are tried in order and the first
// one that is satisfied and can be entered wins. The returned context may
// already have ended if the entered node has no children.
// Every participant in g.ParticipantNames must be bound unless
// AllowUnboundParticipants is given.
func Start(g *Graph, ps []participant.Participant, opts ...StartOption) (*Context, error) {
	c, err := newContext(g, ps, opts)
	if err != nil {
		return nil, err
	}
	for _, s := range g.starts {
		b := g.nodes[s].Base()
		for j := range b.Children {
			e := &b.Children[j]
			if !c.evaluateEdge(e, b.OwnerName, make(nodeSet)) {
				continue
			}
			c.ended, c.err = false, nil
			if c.enterNode(e.TargetIndex, make(nodeSet)) {
				return c, nil
			}
		}
	}
	err = fmt.Errorf("%w: dialogue %q", ErrStartFailure, g.name)
	c.Logger().Error("failed to start dialogue: no start edge and target enter conditions are satisfied", "err", err)
	c.failed(err)
	return nil, err
}

// CanStart reports whether Start would find a satisfied start edge. It fires
// no events and records nothing.
func CanStart(g *Graph, ps []participant.Participant, opts ...StartOption) bool {
	c, err := newContext(g, ps, opts)
	if err != nil {
		return false
	}
	for _, s := range g.starts {
		b := g.nodes[s].Base()
		for j := range b.Children {
			if c.evaluateEdge(&b.Children[j], b.OwnerName, make(nodeSet)) {
				return true
			}
		}
	}
	return false
}

// StartFromNode resumes a conversation at node index with a previously saved
// visited set. Enter events fire only when fireEnterEvents is set.
func StartFromNode(g *Graph, ps []participant.Participant, index int, visited []int, fireEnterEvents bool, opts ...StartOption) (*Context, error) {
	c, err := newContext(g, ps, opts)
	if err != nil {
		return nil, err
	}
	n, ok := g.Node(index)
	if !ok {
		err := fmt.Errorf("%w: %d", ErrInvalidNode, index)
		c.Logger().Warn("failed to resume dialogue", "err", err)
		return nil, err
	}
	for _, v := range visited {
		c.visited.add(v)
	}
	if fireEnterEvents {
		if !c.enterNode(index, make(nodeSet)) {
			return nil, c.err
		}
		return c, nil
	}
	c.markEntered(index, n)
	c.rebuildTexts(n.Base())
	if !c.settle(index, n) {
		return nil, c.err
	}
	return c, nil
}

// EnterNode jumps to node index as if an option leading there was chosen.
func (c *Context) EnterNode(index int) error {
	if c.ended {
		return ErrDialogueEnded
	}
	if !c.enterNode(index, make(nodeSet)) {
		return c.err
	}
	return nil
}

// ChooseOption picks Options()[i]. An out-of-range index returns
// ErrInvalidChoice and leaves the context unchanged.
func (c *Context) ChooseOption(i int) error {
	if c.ended {
		return ErrDialogueEnded
	}
	if i < 0 || i >= len(c.options) {
		return c.invalidChoice(i, len(c.options))
	}
	c.Logger().Debug("option chosen", "index", i, "target", c.options[i].TargetIndex)
	return c.optionSelected(i)
}

// ChooseOptionFromAll picks AllOptions()[i], which must be satisfied.
func (c *Context) ChooseOptionFromAll(i int) error {
	if c.ended {
		return ErrDialogueEnded
	}
	if i < 0 || i >= len(c.allOptions) || !c.allOptions[i].Satisfied {
		return c.invalidChoice(i, len(c.allOptions))
	}
	// Options is the satisfied subsequence of AllOptions.
	n := 0
	for _, o := range c.allOptions[:i] {
		if o.Satisfied {
			n++
		}
	}
	return c.ChooseOption(n)
}

// ChooseSequenceEntry moves the active speech sequence to entry i directly.
// Use it when the entry index comes from elsewhere, such as a remote peer.
func (c *Context) ChooseSequenceEntry(i int) error {
	if c.ended {
		return ErrDialogueEnded
	}
	n, _ := c.graph.Node(c.active)
	seq, ok := n.(*SpeechSequenceNode)
	if !ok {
		err := fmt.Errorf("%w: active node %d is not a speech sequence", ErrInvalidChoice, c.active)
		c.Logger().Error("failed to choose sequence entry", "err", err)
		c.failed(err)
		return err
	}
	if i < 0 || i >= len(seq.Entries) {
		return c.invalidChoice(i, len(seq.Entries))
	}
	c.seqIndex[c.active] = i
	if !c.settle(c.active, seq) {
		return c.err
	}
	return nil
}

// ReevaluateOptions recomputes the options of the active node, for example
// after the host changed participant state.
func (c *Context) ReevaluateOptions() error {
	if c.ended {
		return ErrDialogueEnded
	}
	n, ok := c.graph.Node(c.active)
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidNode, c.active)
	}
	// A selector left waiting by StuckContinue retries its pick.
	if sel, ok := n.(*SelectorNode); ok {
		if !c.selectChild(c.active, sel, nodeSet{c.active: {}}) {
			return c.err
		}
		return nil
	}
	if !c.settle(c.active, n) {
		return c.err
	}
	return nil
}

func (c *Context) invalidChoice(i, n int) error {
	err := fmt.Errorf("%w: %d (have %d options)", ErrInvalidChoice, i, n)
	c.Logger().Error("failed to choose option", "err", err)
	c.failed(err)
	return err
}

// ID identifies this conversation.
func (c *Context) ID() uuid.UUID { return c.id }

func (c *Context) Graph() *Graph { return c.graph }

// Ended reports whether the conversation is over. Err tells a natural end
// (nil) from a failure.
func (c *Context) Ended() bool { return c.ended }
func (c *Context) Err() error  { return c.err }

// Options returns a copy of the choosable options.
func (c *Context) Options() []Option {
	return slices.Clone(c.options)
}

// AllOptions returns a copy of the options to display, including
// unsatisfied edges flagged IncludeWhenUnsatisfied.
func (c *Context) AllOptions() []Option {
	return slices.Clone(c.allOptions)
}

func (c *Context) DialogueName() string    { return c.graph.name }
func (c *Context) DialogueGUID() uuid.UUID { return c.graph.guid }
func (c *Context) ActiveNodeIndex() int    { return c.active }

// Participant returns the participant bound to name.
func (c *Context) Participant(name string) (participant.Participant, bool) {
	p, ok := c.participants[name]
	return p, ok
}

// ParticipantNames returns the bound names, sorted.
func (c *Context) ParticipantNames() []string {
	names := make([]string, 0, len(c.participants))
	for n := range c.participants {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (c *Context) ActiveNode() (Node, bool) {
	return c.graph.Node(c.active)
}

func (c *Context) ActiveNodeGUID() uuid.UUID {
	return c.graph.nodeGUID(c.active)
}

// ActiveNodeText returns the formatted text of the active node.
func (c *Context) ActiveNodeText() string {
	n, _ := c.graph.Node(c.active)
	switch v := n.(type) {
	case *SpeechNode:
		return formatText(c, v.Text, v.TextArguments, v.OwnerName)
	case *EndNode:
		return formatText(c, v.Text, v.TextArguments, v.OwnerName)
	case *SpeechSequenceNode:
		if e, ok := c.sequenceEntry(v); ok {
			return e.Text
		}
	}
	return ""
}

// ActiveSpeaker returns the name of whoever says the active line.
func (c *Context) ActiveSpeaker() string {
	n, ok := c.graph.Node(c.active)
	if !ok {
		return ""
	}
	if seq, ok := n.(*SpeechSequenceNode); ok {
		if e, ok := c.sequenceEntry(seq); ok && e.Speaker != "" {
			return e.Speaker
		}
	}
	return n.Base().OwnerName
}

func (c *Context) ActiveSpeakerState() string {
	n, _ := c.graph.Node(c.active)
	switch v := n.(type) {
	case *SpeechNode:
		return v.SpeakerState
	case *EndNode:
		return v.SpeakerState
	case *SpeechSequenceNode:
		if e, ok := c.sequenceEntry(v); ok {
			return e.SpeakerState
		}
	}
	return ""
}

// SequenceIndex returns the entry index of the active speech sequence.
func (c *Context) SequenceIndex() (int, bool) {
	n, _ := c.graph.Node(c.active)
	if _, ok := n.(*SpeechSequenceNode); !ok {
		return 0, false
	}
	return c.seqIndex[c.active], true
}

func (c *Context) sequenceEntry(n *SpeechSequenceNode) (SequenceEntry, bool) {
	i := c.seqIndex[c.active]
	if i < 0 || i >= len(n.Entries) {
		return SequenceEntry{}, false
	}
	return n.Entries[i], true
}

// WasNodeVisited reports whether node index was entered in this
// conversation, or with longTerm in any conversation since memory was cleared.
func (c *Context) WasNodeVisited(index int, longTerm bool) bool {
	if !longTerm {
		return c.visited.has(index)
	}
	n, ok := c.graph.Node(index)
	if !ok {
		return false
	}
	return c.mem.WasEverVisited(c.graph.guid, n.Base().GUID)
}

// VisitedNodes returns the indices entered in this conversation, sorted.
func (c *Context) VisitedNodes() []int {
	out := make([]int, 0, len(c.visited))
	for i := range c.visited {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// IsOptionConnectedToVisitedNode reports whether option i leads to a visited node.
func (c *Context) IsOptionConnectedToVisitedNode(i int, fromAll, longTerm bool) bool {
	o, ok := c.option(i, fromAll)
	if !ok || o.TargetIndex == NoTarget {
		return false
	}
	return c.WasNodeVisited(o.TargetIndex, longTerm)
}

// IsOptionConnectedToEndNode reports whether option i leads to an end node.
func (c *Context) IsOptionConnectedToEndNode(i int, fromAll bool) bool {
	o, ok := c.option(i, fromAll)
	if !ok {
		return false
	}
	n, _ := c.graph.Node(o.TargetIndex)
	_, isEnd := n.(*EndNode)
	return isEnd
}

func (c *Context) option(i int, fromAll bool) (Option, bool) {
	list := c.options
	if fromAll {
		list = c.allOptions
	}
	if i < 0 || i >= len(list) {
		return Option{}, false
	}
	return list[i], true
}

// LogAttrs returns the attributes identifying this conversation in logs.
func (c *Context) LogAttrs() []any {
	return []any{"dialogue", c.graph.name, "session", c.id.String(), "node", c.active}
}

// Logger returns the context logger carrying LogAttrs.
func (c *Context) Logger() *slog.Logger {
	return c.logger.With(c.LogAttrs()...)
}

func (c *Context) logAt(level slog.Level, msg string, args ...any) {
	c.Logger().Log(context.Background(), level, msg, args...)
}
