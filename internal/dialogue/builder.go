package dialogue

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/condition"
)

// Builder assembles a Graph in code. Start nodes are registered as start
// points in the order they are added.
type Builder struct {
	name   string
	guid   uuid.UUID
	nodes  []Node
	starts []int
	errs   []error
}

// NewBuilder starts a graph called name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// WithGUID sets a fixed dialogue GUID, so memory survives rebuilding the graph.
func (b *Builder) WithGUID(guid uuid.UUID) *Builder {
	b.guid = guid
	return b
}

// Add appends n and returns its index.
func (b *Builder) Add(n Node) int {
	b.nodes = append(b.nodes, n)
	i := len(b.nodes) - 1
	if _, ok := n.(*StartNode); ok {
		b.starts = append(b.starts, i)
	}
	return i
}

// Connect adds an edge from -> to with the given text and conditions.
func (b *Builder) Connect(from, to int, text string, conds ...condition.Condition) {
	b.ConnectEdge(from, Edge{TargetIndex: to, Text: text, Conditions: conds})
}

// ConnectEdge appends e to the children of node from.
func (b *Builder) ConnectEdge(from int, e Edge) {
	if from < 0 || from >= len(b.nodes) || b.nodes[from] == nil {
		b.errs = append(b.errs, fmt.Errorf("connect: source node %d does not exist", from))
		return
	}
	base := b.nodes[from].Base()
	base.Children = append(base.Children, e)
}

// Build validates and returns the graph.
func (b *Builder) Build() (*Graph, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, fmt.Errorf("dialogue %q: %w", b.name, err)
	}
	return NewGraph(b.name, b.guid, b.nodes, b.starts)
}
