// Package workflow compiles validated definitions into executable graphs and
// schedules their nodes over a bounded worker pool.
package workflow

import (
	"sort"

	"github.com/strandkit/strand/pkg/models"
)

// CompiledGraph is the read-only, arena-style representation of a workflow
// definition shared by every run. Nodes and edges live in stable slices
// addressed by index; maps only translate IDs to indices. Concurrent node
// tasks read the arena without ownership conflicts.
type CompiledGraph struct {
	Def *models.WorkflowDefinition

	Nodes     []*models.NodeSpec
	Edges     []*models.EdgeSpec
	NodeIndex map[string]int // node ID → index into Nodes

	// Adjacency over the non-error subgraph, by edge index.
	Outgoing map[string][]int // node ID → outgoing non-error edge indices
	Incoming map[string][]int // node ID → incoming non-error edge indices

	// ErrorRoutes maps a node ID to its designated error-route edge index.
	ErrorRoutes map[string]int

	// Sorted is a topological order over the non-error subgraph; Levels
	// groups nodes that may execute in parallel.
	Sorted []string
	Levels [][]string

	// LoopBodies maps each loop node to the member set of its body subgraph:
	// every node reachable through its "body"-labeled edges.
	LoopBodies map[string]map[string]bool
}

// CompileGraph builds the executable graph tables. The definition must have
// passed validation; a structural cycle here is an error, not a violation
// list.
func CompileGraph(def *models.WorkflowDefinition) (*CompiledGraph, error) {
	if def == nil {
		return nil, models.NewError(models.ErrCodeValidation, "workflow definition is nil")
	}

	graph := &CompiledGraph{
		Def:         def,
		Nodes:       def.Nodes,
		Edges:       def.Edges,
		NodeIndex:   make(map[string]int, len(def.Nodes)),
		Outgoing:    make(map[string][]int, len(def.Nodes)),
		Incoming:    make(map[string][]int, len(def.Nodes)),
		ErrorRoutes: make(map[string]int),
		LoopBodies:  make(map[string]map[string]bool),
	}

	for i, node := range def.Nodes {
		if _, exists := graph.NodeIndex[node.ID]; exists {
			return nil, models.NewErrorf(models.ErrCodeValidation, "duplicate node ID: %s", node.ID)
		}

		graph.NodeIndex[node.ID] = i
	}

	for i, edge := range def.Edges {
		if _, ok := graph.NodeIndex[edge.Source]; !ok {
			return nil, models.NewErrorf(models.ErrCodeValidation, "edge references non-existent source: %s", edge.Source)
		}

		if _, ok := graph.NodeIndex[edge.Target]; !ok {
			return nil, models.NewErrorf(models.ErrCodeValidation, "edge references non-existent target: %s", edge.Target)
		}

		if edge.IsErrorRoute {
			if _, exists := graph.ErrorRoutes[edge.Source]; exists {
				return nil, models.NewErrorf(models.ErrCodeValidation, "node %s has multiple error routes", edge.Source)
			}

			graph.ErrorRoutes[edge.Source] = i

			continue
		}

		graph.Outgoing[edge.Source] = append(graph.Outgoing[edge.Source], i)
		graph.Incoming[edge.Target] = append(graph.Incoming[edge.Target], i)
	}

	if err := graph.sortTopologically(); err != nil {
		return nil, err
	}

	for _, node := range def.Nodes {
		if node.Type == models.NodeTypeLoop {
			graph.LoopBodies[node.ID] = graph.bodyMembers(node.ID)
		}
	}

	return graph, nil
}

// sortTopologically runs Kahn's algorithm over the non-error subgraph,
// filling Sorted and Levels and detecting cycles.
func (g *CompiledGraph) sortTopologically() error {
	inDegree := make(map[string]int, len(g.Nodes))
	for _, node := range g.Nodes {
		inDegree[node.ID] = len(g.Incoming[node.ID])
	}

	queue := make([]string, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	g.Sorted = make([]string, 0, len(g.Nodes))
	g.Levels = nil

	for len(queue) > 0 {
		sort.Strings(queue)
		level := queue
		queue = nil

		g.Levels = append(g.Levels, level)

		for _, id := range level {
			g.Sorted = append(g.Sorted, id)

			for _, edgeIdx := range g.Outgoing[id] {
				target := g.Edges[edgeIdx].Target
				inDegree[target]--

				if inDegree[target] == 0 {
					queue = append(queue, target)
				}
			}
		}
	}

	if len(g.Sorted) != len(g.Nodes) {
		return models.NewError(models.ErrCodeValidation, "workflow graph contains a cycle")
	}

	return nil
}

// bodyMembers collects every node reachable from the loop node's
// "body"-labeled edges over the non-error subgraph.
func (g *CompiledGraph) bodyMembers(loopID string) map[string]bool {
	members := make(map[string]bool)

	var queue []string
	for _, edgeIdx := range g.Outgoing[loopID] {
		edge := g.Edges[edgeIdx]
		if edge.Label == models.EdgeLabelBody && !members[edge.Target] {
			members[edge.Target] = true
			queue = append(queue, edge.Target)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, edgeIdx := range g.Outgoing[id] {
			target := g.Edges[edgeIdx].Target
			if !members[target] {
				members[target] = true
				queue = append(queue, target)
			}
		}
	}

	return members
}

// Node returns the node spec by ID.
func (g *CompiledGraph) Node(id string) *models.NodeSpec {
	idx, ok := g.NodeIndex[id]
	if !ok {
		return nil
	}

	return g.Nodes[idx]
}

// ErrorRoute returns the error-route edge leaving the node, if designated.
func (g *CompiledGraph) ErrorRoute(nodeID string) (*models.EdgeSpec, bool) {
	idx, ok := g.ErrorRoutes[nodeID]
	if !ok {
		return nil, false
	}

	return g.Edges[idx], true
}

// BodyEdges returns the loop node's body-entry edges.
func (g *CompiledGraph) BodyEdges(loopID string) []*models.EdgeSpec {
	var out []*models.EdgeSpec

	for _, edgeIdx := range g.Outgoing[loopID] {
		if g.Edges[edgeIdx].Label == models.EdgeLabelBody {
			out = append(out, g.Edges[edgeIdx])
		}
	}

	return out
}
