package dialogue

import (
	"slices"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/condition"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/event"
)

// NodeKind discriminates the node variants.
type NodeKind string

const (
	KindStart          NodeKind = "start"
	KindSpeech         NodeKind = "speech"
	KindSelector       NodeKind = "selector"
	KindSpeechSequence NodeKind = "speech_sequence"
	KindEnd            NodeKind = "end"
	KindProxy          NodeKind = "proxy"
)

// EnterRestriction limits how often a node may be entered.
type EnterRestriction string

const (
	EnterAlways EnterRestriction = ""
	// EnterOncePerContext blocks the node once this conversation visited it.
	EnterOncePerContext EnterRestriction = "once_per_context"
	// EnterOnce blocks the node once any conversation visited it.
	EnterOnce EnterRestriction = "once"
)

// Node is one of *StartNode, *SpeechNode, *SelectorNode,
// *SpeechSequenceNode, *EndNode or *ProxyNode.
type Node interface {
	Base() *NodeBase
	Kind() NodeKind
	sealed()
}

// NodeBase holds the fields every node has.
type NodeBase struct {
	// GUID identifies the node across graph reloads. NewGraph assigns one
	// when zero.
	GUID      uuid.UUID
	OwnerName string

	EnterConditions []condition.Condition
	EnterEvents     []event.Event
	Children        []Edge

	// RequiresSatisfiedChild makes the enter check also require a satisfied child.
	RequiresSatisfiedChild bool
	EnterRestriction       EnterRestriction
}

func (b *NodeBase) Base() *NodeBase { return b }
func (*NodeBase) sealed()           {}

// StartNode is an entry point. Its children are scanned by Start.
type StartNode struct {
	NodeBase
}

func (*StartNode) Kind() NodeKind { return KindStart }

// SpeechNode is a line spoken by its owner.
type SpeechNode struct {
	NodeBase
	Text          string
	TextArguments []TextArgument
	SpeakerState  string
	// VirtualParent nodes expose the options of their first satisfied
	// child instead of their own.
	VirtualParent bool
}

func (*SpeechNode) Kind() NodeKind { return KindSpeech }

// SelectorMode picks how a selector chooses among satisfied children.
type SelectorMode string

const (
	SelectFirst  SelectorMode = "first"
	SelectRandom SelectorMode = "random"
)

// SelectorNode advances on its own to one satisfied child.
type SelectorNode struct {
	NodeBase
	Mode                        SelectorMode
	AvoidRepeatingLastPick      bool
	CycleThroughAllBeforeRepeat bool
}

func (*SelectorNode) Kind() NodeKind { return KindSelector }

// SequenceEntry is one line of a speech sequence.
type SequenceEntry struct {
	Speaker      string
	Text         string
	EdgeText     string
	SpeakerState string
}

// SpeechSequenceNode steps through Entries before exposing its children.
type SpeechSequenceNode struct {
	NodeBase
	Entries []SequenceEntry

	// one per entry, generated by NewGraph
	innerEdges []Edge
}

func (*SpeechSequenceNode) Kind() NodeKind { return KindSpeechSequence }

// InnerEdges returns a copy of the generated per-entry edges.
func (n *SpeechSequenceNode) InnerEdges() []Edge {
	return slices.Clone(n.innerEdges)
}

func (n *SpeechSequenceNode) generateInnerEdges() {
	n.innerEdges = make([]Edge, len(n.Entries))
	for i, e := range n.Entries {
		n.innerEdges[i] = Edge{TargetIndex: NoTarget, Text: e.EdgeText, SpeakerState: e.SpeakerState}
	}
}

// EndNode finishes the conversation after firing its enter events.
type EndNode struct {
	NodeBase
	Text          string
	TextArguments []TextArgument
	SpeakerState  string
}

func (*EndNode) Kind() NodeKind { return KindEnd }

// ProxyNode enters TargetIndex in its place.
type ProxyNode struct {
	NodeBase
	TargetIndex int
}

func (*ProxyNode) Kind() NodeKind { return KindProxy }
