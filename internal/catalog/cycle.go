package catalog

import (
	"slices"
	"strings"

	"github.com/roach88/passman/internal/pass"
)

// Cycle is a set of pipelines that expand into each other.
type Cycle struct {
	// Path walks the cycle and ends where it starts: ["a", "b", "a"].
	Path []string
}

func (c Cycle) String() string {
	return strings.Join(c.Path, " -> ")
}

// expansionGraph maps a pipeline name to the pipelines its text refers to.
type expansionGraph map[string][]string

// Cycles reports pipelines of entries that expand, directly or through other
// pipelines, into themselves. Pipelines already registered in reg take part
// in the analysis, so a catalog entry referring back through a registered
// pipeline is found too. reg may be nil.
//
// Cycles are found with Tarjan's strongly connected components algorithm.
// Results are sorted by path for stable output.
func Cycles(reg *pass.Registry, entries []Entry) []Cycle {
	texts := make(map[string]string)
	if reg != nil {
		for _, r := range reg.Entries() {
			if r.IsPipeline() {
				texts[r.Argument] = r.Pipeline
			}
		}
	}
	for _, e := range entries {
		if _, ok := texts[e.Name]; !ok {
			texts[e.Name] = e.Pipeline
		}
	}

	graph := buildExpansionGraph(texts)

	var cycles []Cycle
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || slices.Contains(graph[scc[0]], scc[0]) {
			cycles = append(cycles, Cycle{Path: cyclePath(scc, graph)})
		}
	}
	slices.SortFunc(cycles, func(a, b Cycle) int {
		return strings.Compare(a.String(), b.String())
	})
	return cycles
}

// buildExpansionGraph adds an edge from every pipeline to each pipeline its
// text references. References to passes or unknown names are dropped, and
// so is text that does not parse.
func buildExpansionGraph(texts map[string]string) expansionGraph {
	graph := make(expansionGraph, len(texts))
	for name, text := range texts {
		graph[name] = []string{}
		refs, err := pass.References(text)
		if err != nil {
			continue
		}
		for _, ref := range refs {
			if _, ok := texts[ref]; ok {
				graph[name] = append(graph[name], ref)
			}
		}
	}
	return graph
}

// tarjanSCC returns the strongly connected components of graph. Nodes are
// visited in sorted order so component order is deterministic.
func tarjanSCC(graph expansionGraph) [][]string {
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
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

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
	for n := range graph {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// cyclePath returns a shortest walk from the smallest member of scc back to
// itself, staying inside the SCC.
func cyclePath(scc []string, graph expansionGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)

	prev := map[string]string{}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, w := range graph[current] {
			if !members[w] {
				continue
			}
			if w == start {
				path := []string{start}
				for n := current; n != start; n = prev[n] {
					path = append(path, n)
				}
				path = append(path, start)
				slices.Reverse(path)
				return path
			}
			if _, seen := prev[w]; !seen {
				prev[w] = current
				queue = append(queue, w)
			}
		}
	}
	return []string{start}
}
