package dialogue

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/condition"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

// Graph is an authored dialogue: nodes addressed by index plus the ordered
// start nodes. It is immutable once built and safe to share between contexts.
type Graph struct {
	name   string
	guid   uuid.UUID
	nodes  []Node
	starts []int
	byGUID map[uuid.UUID]int
	// participant names Start requires to be bound
	participants []string
}

// NewGraph validates nodes and starts and returns the graph. All problems
// are reported in one error and leave nodes untouched. On success the graph
// owns the nodes: zero GUIDs are filled in, speech sequences get their inner
// edges, and callers must not modify the nodes afterwards.
func NewGraph(name string, guid uuid.UUID, nodes []Node, starts []int) (*Graph, error) {
	if guid == uuid.Nil {
		guid = uuid.New()
	}
	g := &Graph{
		name:   name,
		guid:   guid,
		nodes:  slices.Clone(nodes),
		starts: slices.Clone(starts),
		byGUID: make(map[uuid.UUID]int, len(nodes)),
	}
	guids, err := g.validate()
	if err != nil {
		return nil, err
	}
	for i, n := range g.nodes {
		n.Base().GUID = guids[i]
		if seq, ok := n.(*SpeechSequenceNode); ok {
			seq.generateInnerEdges()
		}
	}
	g.participants = g.collectParticipants()
	return g, nil
}

// validate returns the GUID each node will get.
func (g *Graph) validate() ([]uuid.UUID, error) {
	var errs []string
	guids := make([]uuid.UUID, len(g.nodes))
	inRange := func(i int) bool { return i >= 0 && i < len(g.nodes) }

	if len(g.starts) == 0 {
		errs = append(errs, "at least one start node is required")
	}
	for _, s := range g.starts {
		if !inRange(s) {
			errs = append(errs, fmt.Sprintf("start index %d out of range", s))
			continue
		}
		if _, ok := g.nodes[s].(*StartNode); !ok {
			errs = append(errs, fmt.Sprintf("start index %d is a %s node", s, g.nodes[s].Kind()))
		}
	}

	for i, n := range g.nodes {
		if n == nil {
			errs = append(errs, fmt.Sprintf("nodes[%d]: nil node", i))
			continue
		}
		b := n.Base()
		id := b.GUID
		if id == uuid.Nil {
			id = uuid.New()
		}
		guids[i] = id
		if prev, ok := g.byGUID[id]; ok {
			errs = append(errs, fmt.Sprintf("nodes[%d]: duplicate guid %s (first seen at nodes[%d])", i, id, prev))
		} else {
			g.byGUID[id] = i
		}
		for j := range b.Children {
			t := b.Children[j].TargetIndex
			if t != NoTarget && !inRange(t) {
				errs = append(errs, fmt.Sprintf("nodes[%d].children[%d]: target %d out of range", i, j, t))
			}
			for k := range b.Children[j].Conditions {
				if op := b.Children[j].Conditions[k].Operation; !op.Valid() {
					errs = append(errs, fmt.Sprintf("nodes[%d].children[%d].conditions[%d]: unknown operator %q", i, j, k, op))
				}
			}
		}
		for k := range b.EnterConditions {
			if op := b.EnterConditions[k].Operation; !op.Valid() {
				errs = append(errs, fmt.Sprintf("nodes[%d].enter_conditions[%d]: unknown operator %q", i, k, op))
			}
		}

		switch v := n.(type) {
		case *SelectorNode:
			if v.Mode != SelectFirst && v.Mode != SelectRandom {
				errs = append(errs, fmt.Sprintf("nodes[%d]: unknown selector mode %q", i, v.Mode))
			}
		case *SpeechSequenceNode:
			if len(v.Entries) == 0 {
				errs = append(errs, fmt.Sprintf("nodes[%d]: speech sequence has no entries", i))
			}
		case *ProxyNode:
			if !inRange(v.TargetIndex) {
				errs = append(errs, fmt.Sprintf("nodes[%d]: proxy target %d out of range", i, v.TargetIndex))
			} else if v.TargetIndex == i {
				errs = append(errs, fmt.Sprintf("nodes[%d]: proxy targets itself", i))
			}
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("dialogue %q validation errors:\n  - %s", g.name, strings.Join(errs, "\n  - "))
	}
	return guids, nil
}

// collectParticipants gathers node owners, sequence speakers and every
// participant named by conditions, events and text arguments.
func (g *Graph) collectParticipants() []string {
	seen := make(map[string]struct{})
	add := func(name string) {
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	conds := func(cs []condition.Condition) {
		for k := range cs {
			if cs[k].IsParticipantInvolved() {
				add(cs[k].ParticipantName)
			}
			if cs[k].IsSecondParticipantInvolved() {
				add(cs[k].OtherParticipantName)
			}
		}
	}
	args := func(as []TextArgument) {
		for _, a := range as {
			add(a.ParticipantName)
		}
	}

	for _, n := range g.nodes {
		b := n.Base()
		add(b.OwnerName)
		conds(b.EnterConditions)
		for _, e := range b.EnterEvents {
			add(e.ParticipantName)
		}
		for j := range b.Children {
			conds(b.Children[j].Conditions)
			args(b.Children[j].TextArguments)
		}
		switch v := n.(type) {
		case *SpeechNode:
			args(v.TextArguments)
		case *EndNode:
			args(v.TextArguments)
		case *SpeechSequenceNode:
			for _, e := range v.Entries {
				add(e.Speaker)
			}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// ParticipantNames returns the sorted names of the participants the graph
// refers to.
func (g *Graph) ParticipantNames() []string {
	return slices.Clone(g.participants)
}

// missingParticipants returns the required names absent from bound.
func (g *Graph) missingParticipants(bound map[string]participant.Participant) []string {
	var missing []string
	for _, name := range g.participants {
		if _, ok := bound[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Name returns the dialogue name.
func (g *Graph) Name() string { return g.name }

// GUID returns the dialogue identity used as the memory key.
func (g *Graph) GUID() uuid.UUID { return g.guid }

// Node returns the node at index i. The node belongs to the graph and must
// not be modified.
func (g *Graph) Node(i int) (Node, bool) {
	if i < 0 || i >= len(g.nodes) {
		return nil, false
	}
	return g.nodes[i], true
}

// NodeCount returns the total number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// StartIndices returns the start node indices in evaluation order.
func (g *Graph) StartIndices() []int {
	return slices.Clone(g.starts)
}

// IndexOf returns the index of the node with the given GUID.
func (g *Graph) IndexOf(guid uuid.UUID) (int, bool) {
	i, ok := g.byGUID[guid]
	return i, ok
}

// nodeGUID returns the GUID of node i, or uuid.Nil.
func (g *Graph) nodeGUID(i int) uuid.UUID {
	if n, ok := g.Node(i); ok {
		return n.Base().GUID
	}
	return uuid.Nil
}
