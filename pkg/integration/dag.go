package integration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateStep is returned when two steps share an id.
	ErrDuplicateStep = errors.New("duplicate step id")

	// ErrUnknownDependency is returned when a step depends on an undeclared id.
	ErrUnknownDependency = errors.New("unknown step dependency")

	// ErrCycle is returned when the dependencies are not acyclic.
	ErrCycle = errors.New("step dependency cycle")
)

// plan is a validated step graph.
type plan struct {
	steps    []Step
	index    map[string]int
	children [][]int
	order    []int
}

// buildPlan validates steps and computes a topological order with Kahn's
// algorithm. Among ready steps, declaration order wins.
func buildPlan(steps []Step) (*plan, error) {
	p := &plan{
		steps:    steps,
		index:    make(map[string]int, len(steps)),
		children: make([][]int, len(steps)),
	}

	for i, s := range steps {
		if s.ID == "" {
			return nil, fmt.Errorf("step %d: id is required", i)
		}
		if s.Handler == nil {
			return nil, fmt.Errorf("step %s: handler is required", s.ID)
		}
		if _, ok := p.index[s.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, s.ID)
		}
		p.index[s.ID] = i
	}

	inDegree := make([]int, len(steps))
	for i, s := range steps {
		seen := make(map[string]bool, len(s.DependsOn))
		for _, dep := range s.DependsOn {
			parent, ok := p.index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, s.ID, dep)
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			p.children[parent] = append(p.children[parent], i)
			inDegree[i]++
		}
	}

	done := make([]bool, len(steps))
	for len(p.order) < len(steps) {
		next := -1
		for i := range steps {
			if !done[i] && inDegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, s := range steps {
				if !done[i] {
					stuck = append(stuck, s.ID)
				}
			}
			return nil, fmt.Errorf("%w among %s", ErrCycle, strings.Join(stuck, ", "))
		}

		done[next] = true
		p.order = append(p.order, next)
		for _, child := range p.children[next] {
			inDegree[child]--
		}
	}

	return p, nil
}

// orderedIDs returns step ids in execution order.
func (p *plan) orderedIDs() []string {
	ids := make([]string, len(p.order))
	for i, idx := range p.order {
		ids[i] = p.steps[idx].ID
	}
	return ids
}
