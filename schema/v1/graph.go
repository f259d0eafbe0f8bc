// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"fmt"
	"slices"
	"strings"
)

// Graph is the dependency structure induced by a pipeline's input references
//
// Nodes are step names, an edge runs from producer to consumer for every
// ${{ from "step" "output" }} reference in a consumer's inputs.
type Graph struct {
	names      []string
	deps       map[string][]string
	dependents map[string][]string
}

// NewGraph derives the dependency graph of a pipeline
//
// References to steps not present in the pipeline, or to outputs the producer
// does not declare, are returned as *UnknownReferenceError.
func NewGraph(p Pipeline) (*Graph, error) {
	g := &Graph{
		names:      p.Steps.Names(),
		deps:       make(map[string][]string, len(p.Steps)),
		dependents: make(map[string][]string, len(p.Steps)),
	}

	for _, step := range p.Steps {
		refs, _, err := ExtractRefs(step.Inputs)
		if err != nil {
			return nil, fmt.Errorf(".steps.%s.inputs: %w", step.Name, err)
		}

		for _, ref := range refs {
			producer, ok := p.Steps.Find(ref.Step)
			if !ok {
				return nil, &UnknownReferenceError{Step: step.Name, Ref: ref}
			}
			if !slices.Contains(producer.Outputs, ref.Output) {
				return nil, &UnknownReferenceError{Step: step.Name, Ref: ref}
			}
			if ref.Step == step.Name {
				return nil, fmt.Errorf(".steps.%s.inputs cannot reference the step itself", step.Name)
			}

			if !slices.Contains(g.deps[step.Name], ref.Step) {
				g.deps[step.Name] = append(g.deps[step.Name], ref.Step)
				g.dependents[ref.Step] = append(g.dependents[ref.Step], step.Name)
			}
		}
	}

	return g, nil
}

// Dependencies returns the steps that must run before the given step
func (g *Graph) Dependencies(name string) []string {
	return slices.Clone(g.deps[name])
}

// Dependents returns the steps that consume outputs of the given step
func (g *Graph) Dependents(name string) []string {
	return slices.Clone(g.dependents[name])
}

// Deps returns the full consumer to producers map, suitable for handing to an
// orchestrator alongside the pipeline document
func (g *Graph) Deps() map[string][]string {
	deps := make(map[string][]string, len(g.names))
	for _, name := range g.names {
		deps[name] = slices.Clone(g.deps[name])
	}
	return deps
}

// Cycles detects dependency cycles with a white/grey/black depth-first search
//
// Returns one error per cycle found, naming the path
func (g *Graph) Cycles() []error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	state := make(map[string]int, len(g.names))

	var issues []error
	var stack []string

	var dfs func(string) bool // returns true if a cycle was found
	dfs = func(n string) bool {
		switch state[n] {
		case grey:
			// back-edge, the cycle is the stack from the first occurrence of n
			start := slices.Index(stack, n)
			path := append(slices.Clone(stack[start:]), n)
			issues = append(issues, fmt.Errorf("cycle: %s", strings.Join(path, " -> ")))
			return true
		case black:
			return false
		}
		state[n] = grey
		stack = append(stack, n)
		for _, next := range g.dependents[n] {
			if dfs(next) {
				break
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = black
		return false
	}

	for _, name := range g.names {
		if state[name] == white {
			dfs(name)
		}
	}

	return issues
}

// TopologicalOrder returns step names such that every producer comes before
// its consumers, preserving document order between independent steps
func (g *Graph) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.names))
	for _, name := range g.names {
		indegree[name] = len(g.deps[name])
	}

	order := make([]string, 0, len(g.names))
	ready := make([]string, 0, len(g.names))
	for _, name := range g.names {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for _, consumer := range g.dependents[name] {
			indegree[consumer]--
			if indegree[consumer] == 0 {
				ready = append(ready, consumer)
			}
		}
	}

	if len(order) != len(g.names) {
		var stuck []string
		for _, name := range g.names {
			if indegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		return nil, fmt.Errorf("cyclic dependencies between steps [%s]", strings.Join(stuck, ", "))
	}

	return order, nil
}

// Stages groups steps into batches where every step in a batch only depends
// on steps in earlier batches, so each batch may run concurrently
func (g *Graph) Stages() ([][]string, error) {
	indegree := make(map[string]int, len(g.names))
	for _, name := range g.names {
		indegree[name] = len(g.deps[name])
	}

	docOrder := make(map[string]int, len(g.names))
	for i, name := range g.names {
		docOrder[name] = i
	}

	var stages [][]string
	remaining := len(g.names)

	current := make([]string, 0, len(g.names))
	for _, name := range g.names {
		if indegree[name] == 0 {
			current = append(current, name)
		}
	}

	for len(current) > 0 {
		stages = append(stages, current)
		remaining -= len(current)

		var next []string
		for _, name := range current {
			for _, consumer := range g.dependents[name] {
				indegree[consumer]--
				if indegree[consumer] == 0 {
					next = append(next, consumer)
				}
			}
		}
		// keep document order within a stage
		slices.SortStableFunc(next, func(a, b string) int {
			return docOrder[a] - docOrder[b]
		})
		current = next
	}

	if remaining > 0 {
		return nil, fmt.Errorf("cyclic dependencies prevent staging %d of %d steps", remaining, len(g.names))
	}

	return stages, nil
}
