package compiler

import (
	"slices"

	"github.com/roach88/mthresh/internal/ir"
)

// FindCycles reports groups of nodes whose arguments depend on each other.
//
// Such nodes can never receive complete input types, so type inference
// would defer them forever. Each cycle is returned as a path that starts and
// ends at the first-declared node of the group, e.g. ["a", "b", "a"].
//
// The algorithm:
//  1. Build node -> referenced node graph from call arguments
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle
//
// Cycles are reported in declaration order of their first node.
func FindCycles(p *ir.Program) [][]string {
	if len(p.Bindings) == 0 {
		return nil
	}

	graph, order := buildDependencyGraph(p)
	sccs := tarjanSCC(graph, order)

	var cycles [][]string
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, reconstructCyclePath(scc, graph, order))
		}
	}

	slices.SortFunc(cycles, func(a, b []string) int {
		return order[a[0]] - order[b[0]]
	})
	return cycles
}

// dependencyGraph maps node name -> nodes its arguments refer to.
type dependencyGraph map[string][]string

// buildDependencyGraph constructs the node dependency graph. order maps
// each node to its declaration index.
func buildDependencyGraph(p *ir.Program) (dependencyGraph, map[string]int) {
	graph := make(dependencyGraph)
	order := make(map[string]int)
	for i, b := range p.Bindings {
		if _, seen := order[b.Name]; !seen {
			order[b.Name] = i
		}
	}

	for _, b := range p.Bindings {
		// Initialize with empty slice if no edges (ensures node exists in graph)
		if graph[b.Name] == nil {
			graph[b.Name] = []string{}
		}
		for _, arg := range b.Call.Args {
			ref, ok := arg.(*ir.Ref)
			if !ok {
				continue
			}
			if _, isNode := order[ref.Name]; isNode {
				graph[b.Name] = append(graph[b.Name], ref.Name)
			}
		}
	}

	return graph, order
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in declaration order so the result is deterministic.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph, order map[string]int) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.SortFunc(nodes, func(a, b string) int {
		return order[a] - order[b]
	})

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath builds a cycle path through an SCC.
//
// Strategy: start at the first-declared node, follow edges to other SCC
// members, continue until we return to the start node.
func reconstructCyclePath(scc []string, graph dependencyGraph, order map[string]int) []string {
	members := make(map[string]bool, len(scc))
	start := scc[0]
	for _, node := range scc {
		members[node] = true
		if order[node] < order[start] {
			start = node
		}
	}

	if len(scc) == 1 {
		return []string{start, start}
	}

	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		// Find next SCC member reachable from current
		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
