package dialogue

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/condition"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/event"
)

// nodeSet is a set of node indices. Recursive checks add a node on the way
// down and remove it on the way back.
type nodeSet map[int]struct{}

func (s nodeSet) has(i int) bool {
	_, ok := s[i]
	return ok
}

func (s nodeSet) add(i int)    { s[i] = struct{}{} }
func (s nodeSet) remove(i int) { delete(s, i) }

// enterNode makes index the active node and handles entering it. step holds
// the selectors and proxies entered since the last choice.
func (c *Context) enterNode(index int, step nodeSet) bool {
	n, ok := c.graph.Node(index)
	if !ok {
		return c.fail(slog.LevelWarn, fmt.Errorf("%w: %d", ErrInvalidNode, index), "failed to enter node")
	}
	c.markEntered(index, n)
	c.Logger().Debug("node entered", "kind", string(n.Kind()))
	return c.handleEnter(index, n, step)
}

func (c *Context) markEntered(index int, n Node) {
	c.active = index
	// Nested calls made by enter events must not act on the previous node's options.
	c.options, c.allOptions = nil, nil
	c.visited.add(index)
	c.mem.SetNodeVisited(c.graph.guid, n.Base().GUID)
	if c.hooks.NodeEntered != nil {
		c.hooks.NodeEntered(n.Kind())
	}
}

func (c *Context) handleEnter(index int, n Node, step nodeSet) bool {
	b := n.Base()
	if _, ok := n.(*SpeechSequenceNode); ok {
		c.seqIndex[index] = 0
	}

	event.FireAll(b.EnterEvents, c, b.OwnerName)
	// An event may have moved or ended this conversation.
	if c.active != index || c.ended {
		return c.err == nil
	}

	switch v := n.(type) {
	case *SelectorNode:
		if step.has(index) {
			return c.fail(slog.LevelError, ErrCycleAbort, "failed to enter selector: it was entered twice in a single step")
		}
		step.add(index)
		return c.selectChild(index, v, step)

	case *ProxyNode:
		if step.has(index) {
			return c.fail(slog.LevelError, ErrCycleAbort, "failed to enter proxy: it was entered twice in a single step")
		}
		step.add(index)
		return c.enterNode(v.TargetIndex, step)

	case *EndNode:
		c.finish()
		return true
	}

	c.rebuildTexts(b)
	return c.settle(index, n)
}

// settle recomputes the options of node index and applies the terminal
// rule: a node without any children ends the conversation naturally, a
// node whose children are all unsatisfied is stuck.
func (c *Context) settle(index int, n Node) bool {
	opts, all, err := c.reevaluateChildren(index, n, make(nodeSet))
	c.options, c.allOptions = opts, all
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrCycleAbort):
		return c.fail(slog.LevelError, err, "failed to compute options")
	case c.isTerminal(n):
		c.finish()
		return true
	}
	return c.stuck(err)
}

func (c *Context) isTerminal(n Node) bool {
	if _, ok := n.(*EndNode); ok {
		return true
	}
	return len(n.Base().Children) == 0
}

func (c *Context) stuck(err error) bool {
	switch c.settings.noSatisfiedChild() {
	case StuckContinue:
		c.Logger().Warn("dialogue stuck: waiting for options to be reevaluated", "err", err)
		c.failed(err)
		return true
	case StuckEnd:
		return c.fail(slog.LevelDebug, err, "dialogue stuck")
	}
	return c.fail(slog.LevelWarn, err, "dialogue stuck: no valid child for a node")
}

// finish ends the conversation naturally.
func (c *Context) finish() {
	c.ended = true
	c.options, c.allOptions = nil, nil
	c.Logger().Debug("dialogue finished")
}

// fail ends the conversation with err. It always returns false.
func (c *Context) fail(level slog.Level, err error, msg string) bool {
	c.ended = true
	c.err = err
	c.options, c.allOptions = nil, nil
	c.logAt(level, msg, "err", err)
	c.failed(err)
	return false
}

func (c *Context) failed(err error) {
	if c.hooks.Failed != nil {
		c.hooks.Failed(err)
	}
}

// reevaluateChildren computes the options node index exposes. The caller
// swaps them in. already holds the virtual parents on the current path.
func (c *Context) reevaluateChildren(index int, n Node, already nodeSet) ([]Option, []Option, error) {
	switch v := n.(type) {
	case *EndNode:
		return nil, nil, ErrStuckTraversal

	case *SpeechNode:
		if v.VirtualParent {
			return c.reevaluateVirtualParent(index, v, already)
		}

	case *SpeechSequenceNode:
		if i := c.seqIndex[index]; i < len(v.Entries)-1 {
			e := &v.innerEdges[i]
			o := Option{TargetIndex: NoTarget, Text: e.Text, SpeakerState: e.SpeakerState, Satisfied: true}
			return []Option{o}, []Option{o}, nil
		}
	}
	return c.reevaluateEdges(index, n.Base())
}

func (c *Context) reevaluateEdges(index int, b *NodeBase) ([]Option, []Option, error) {
	var opts, all []Option
	for j := range b.Children {
		e := &b.Children[j]
		sat := c.evaluateEdge(e, b.OwnerName, nodeSet{index: {}})
		if !sat && !e.IncludeWhenUnsatisfied {
			continue
		}
		o := Option{
			TargetIndex:  e.TargetIndex,
			Text:         c.edgeText(e, b.OwnerName),
			SpeakerState: e.SpeakerState,
			Satisfied:    sat,
		}
		all = append(all, o)
		if sat {
			opts = append(opts, o)
		}
	}
	if len(opts) == 0 {
		return nil, all, ErrStuckTraversal
	}
	return opts, all, nil
}

// reevaluateVirtualParent exposes the options of the first satisfied child.
// A virtual parent that is its own ancestor is a hard failure.
func (c *Context) reevaluateVirtualParent(index int, n *SpeechNode, already nodeSet) ([]Option, []Option, error) {
	if already.has(index) {
		return nil, nil, fmt.Errorf("%w: virtual parent %d became its own parent", ErrCycleAbort, index)
	}
	already.add(index)
	for j := range n.Children {
		e := &n.Children[j]
		if !c.evaluateEdge(e, n.OwnerName, nodeSet{index: {}}) {
			continue
		}
		target, _ := c.graph.Node(e.TargetIndex)
		return c.reevaluateChildren(e.TargetIndex, target, already)
	}
	return nil, nil, ErrStuckTraversal
}

// evaluateEdge checks target enterability first, then the edge conditions.
func (c *Context) evaluateEdge(e *Edge, ownerName string, visited nodeSet) bool {
	if !e.IsValid() {
		return false
	}
	if !c.checkEnterConditions(e.TargetIndex, visited) {
		return false
	}
	return condition.EvaluateAll(e.Conditions, c, ownerName)
}

// checkEnterConditions reports whether node index could be entered. A node
// already on the recursion path counts as enterable so the search
// terminates. This can make an unsatisfiable cycle look satisfiable.
func (c *Context) checkEnterConditions(index int, visited nodeSet) bool {
	n, ok := c.graph.Node(index)
	if !ok {
		return false
	}
	if visited.has(index) {
		return true
	}
	visited.add(index)
	defer visited.remove(index)

	b := n.Base()
	if !condition.EvaluateAll(b.EnterConditions, c, b.OwnerName) {
		return false
	}
	switch b.EnterRestriction {
	case EnterOncePerContext:
		if c.visited.has(index) {
			return false
		}
	case EnterOnce:
		if c.mem.WasEverVisited(c.graph.guid, b.GUID) {
			return false
		}
	}
	if p, ok := n.(*ProxyNode); ok && !c.checkEnterConditions(p.TargetIndex, visited) {
		return false
	}
	if !b.RequiresSatisfiedChild {
		return true
	}
	return c.hasAnySatisfiedChild(index, visited)
}

func (c *Context) hasAnySatisfiedChild(index int, visited nodeSet) bool {
	n, ok := c.graph.Node(index)
	if !ok {
		return false
	}
	b := n.Base()
	for j := range b.Children {
		if c.evaluateEdge(&b.Children[j], b.OwnerName, visited) {
			return true
		}
	}
	return false
}

// HasSatisfiedChild reports whether any child edge of node index is
// satisfied right now. A node asking about itself while being checked gets false.
func (c *Context) HasSatisfiedChild(index int) bool {
	if c.checking.has(index) {
		return false
	}
	c.checking.add(index)
	defer c.checking.remove(index)
	return c.hasAnySatisfiedChild(index, nodeSet{index: {}})
}

func (c *Context) optionSelected(i int) error {
	index := c.active
	n, _ := c.graph.Node(index)
	if seq, ok := n.(*SpeechSequenceNode); ok {
		if c.seqIndex[index] < len(seq.Entries)-1 {
			c.seqIndex[index]++
			if !c.settle(index, n) {
				return c.err
			}
			return nil
		}
		// Last entry: choose among the real children as they are now.
		opts, all, err := c.reevaluateEdges(index, &seq.NodeBase)
		if err != nil {
			c.options, c.allOptions = opts, all
			if !c.stuck(err) {
				return c.err
			}
			return c.invalidChoice(i, 0)
		}
		if i >= len(opts) {
			return c.invalidChoice(i, len(opts))
		}
		c.options, c.allOptions = opts, all
	}
	if !c.enterNode(c.options[i].TargetIndex, make(nodeSet)) {
		return c.err
	}
	return nil
}

func (c *Context) rebuildTexts(b *NodeBase) {
	for j := range b.Children {
		e := &b.Children[j]
		if len(e.TextArguments) > 0 {
			c.edgeTexts[e] = formatText(c, e.Text, e.TextArguments, b.OwnerName)
		}
	}
}

// edgeText returns the text built when the owning node was entered, or
// builds it now for edges shown through a virtual parent.
func (c *Context) edgeText(e *Edge, ownerName string) string {
	if s, ok := c.edgeTexts[e]; ok {
		return s
	}
	return formatText(c, e.Text, e.TextArguments, ownerName)
}
