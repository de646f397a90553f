package dialogue

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/memory"
)

// selectChild enters one satisfied child of a selector.
func (c *Context) selectChild(index int, n *SelectorNode, step nodeSet) bool {
	var candidates []int
	for j := range n.Children {
		if !c.evaluateEdge(&n.Children[j], n.OwnerName, nodeSet{index: {}}) {
			continue
		}
		if n.Mode == SelectFirst {
			return c.enterPicked(n, n.Children[j].TargetIndex, step)
		}
		candidates = append(candidates, j)
	}
	if len(candidates) == 0 {
		c.options, c.allOptions = nil, nil
		return c.stuck(fmt.Errorf("%w: selector %d", ErrStuckTraversal, index))
	}

	data := c.mem.SelectionData(c.graph.guid, n.GUID)
	pick := c.pickRandom(n, candidates, data)
	return c.enterPicked(n, n.Children[pick].TargetIndex, step)
}

func (c *Context) enterPicked(n *SelectorNode, target int, step nodeSet) bool {
	c.Logger().Debug("selector picked child", "mode", string(n.Mode), "target", target)
	if c.hooks.SelectorPicked != nil {
		c.hooks.SelectorPicked(n.Mode)
	}
	return c.enterNode(target, step)
}

// pickRandom returns the child edge index to follow. Candidates whose target
// was picked recently are skipped. When every candidate has been used, the
// saved list is cut back and the pick retried; each retry shrinks the
// exclusion list, so recursion ends.
func (c *Context) pickRandom(n *SelectorNode, candidates []int, data *memory.SelectionData) int {
	target := func(j int) uuid.UUID {
		return c.graph.nodeGUID(n.Children[j].TargetIndex)
	}

	var limited []int
	for _, j := range candidates {
		if !data.Contains(target(j)) {
			limited = append(limited, j)
		}
	}

	if len(limited) > 0 {
		pick := limited[c.rng.IntN(len(limited))]
		picked := target(pick)
		switch {
		case n.CycleThroughAllBeforeRepeat:
			data.RecentlyPicked = append(data.RecentlyPicked, picked)
			// With AvoidRepeatingLastPick the full list is cut back lazily
			// on the next pick so the last one stays blocked.
			if !n.AvoidRepeatingLastPick && allPicked(candidates, data, target) {
				data.RecentlyPicked = nil
			}
		case n.AvoidRepeatingLastPick:
			data.RecentlyPicked = []uuid.UUID{picked}
		}
		return pick
	}

	if n.AvoidRepeatingLastPick && len(candidates) > 1 && len(data.RecentlyPicked) > 1 {
		// Keep only the last pick blocked for this one retry.
		last := data.RecentlyPicked[len(data.RecentlyPicked)-1]
		data.RecentlyPicked = []uuid.UUID{last}
		pick := c.pickRandom(n, candidates, data)
		data.RecentlyPicked = slices.DeleteFunc(data.RecentlyPicked, func(id uuid.UUID) bool { return id == last })
		return pick
	}

	data.RecentlyPicked = nil
	return c.pickRandom(n, candidates, data)
}

func allPicked(candidates []int, data *memory.SelectionData, target func(int) uuid.UUID) bool {
	for _, j := range candidates {
		if !data.Contains(target(j)) {
			return false
		}
	}
	return true
}
