package validation

import (
	"sort"

	"github.com/strandkit/strand/pkg/models"
)

// checkGraph runs structural analysis over the definition: cycle detection
// and reachability. Error-route edges are a side channel and are excluded
// from the cycle check, so an error handler may legally feed back into
// earlier nodes. Only runs once referential checks pass.
func checkGraph(def *models.WorkflowDefinition) *Result {
	result := &Result{}

	checkAcyclic(def, result)
	checkReachable(def, result)

	return result
}

// checkAcyclic rejects cycles in the non-error subgraph using Kahn's
// algorithm. Loop iteration is expressed by loop nodes, never by back edges.
func checkAcyclic(def *models.WorkflowDefinition, result *Result) {
	inDegree := make(map[string]int, len(def.Nodes))
	adjacency := make(map[string][]string, len(def.Nodes))

	for _, node := range def.Nodes {
		inDegree[node.ID] = 0
	}

	for _, edge := range def.Edges {
		if edge.IsErrorRoute {
			continue
		}

		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	queue := make([]string, 0, len(inDegree))
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++

		for _, next := range adjacency[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited == len(def.Nodes) {
		return
	}

	// Whatever was never dequeued sits on or behind a cycle.
	remaining := make([]string, 0)
	for id, degree := range inDegree {
		if degree > 0 {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)

	for _, id := range remaining {
		result.Add(CodeStructuralCycle, "nodes["+id+"]", "node %q participates in a cycle", id)
	}
}

// checkReachable flags nodes that no trigger can reach. Error-route edges
// count here: an error handler fed only by an error route is reachable.
func checkReachable(def *models.WorkflowDefinition, result *Result) {
	adjacency := make(map[string][]string, len(def.Nodes))
	for _, edge := range def.Edges {
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
	}

	seen := make(map[string]bool, len(def.Nodes))
	queue := make([]string, 0, len(def.Nodes))

	for _, trigger := range def.TriggerNodes() {
		seen[trigger.ID] = true
		queue = append(queue, trigger.ID)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[id] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	unreachable := make([]string, 0)
	for _, node := range def.Nodes {
		if !seen[node.ID] {
			unreachable = append(unreachable, node.ID)
		}
	}
	sort.Strings(unreachable)

	for _, id := range unreachable {
		result.Add(CodeUnreachableNode, "nodes["+id+"]", "node %q is unreachable from any trigger", id)
	}
}
