package workflow

import (
	"context"
	"sync"

	"dario.cat/mergo"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/nodes/loop"
	"github.com/strandkit/strand/pkg/protocol"
	"github.com/strandkit/strand/pkg/record"
)

type outcome int

const (
	outcomePending outcome = iota
	outcomeRunning
	outcomeSucceeded
	outcomeFailed
	outcomeSkipped
)

// completion is the message a finished node task sends back to its
// scheduler instance.
type completion struct {
	nodeID    string
	result    *protocol.Result
	err       error
	attempts  int
	recovered int // error-route absorptions inside loop bodies
}

// entry seeds a scheduler instance: an envelope delivered to a member node
// from outside the instance (the trigger, or a loop's body edges).
type entry struct {
	target string
	env    *models.Envelope
}

// instanceResult summarizes a finished instance for its caller.
type instanceResult struct {
	unrouted  []*models.ErrorDescriptor
	recovered int
	cancelled bool
	leafData  map[string]any
}

// instance schedules one subgraph execution: the whole graph for a run, or a
// loop body for one iteration. It owns all per-instance state and processes
// completions on a single goroutine; node tasks run on the shared pool and
// only communicate through the completions channel.
type instance struct {
	ex        *Executor
	graph     *CompiledGraph
	behaviors map[string]protocol.NodeBehavior
	recorder  *record.Recorder
	ectx      protocol.ExecutionContext

	members   map[string]bool
	undecided map[string]int
	delivered map[string][]*models.Envelope
	dispatch  map[string]bool
	outcomes  map[string]outcome
	inputs    map[string]*models.Envelope
	outputs   map[string]*models.Envelope

	completions chan completion
	active      int

	unrouted  []*models.ErrorDescriptor
	recovered int
	cancelled bool
}

// newInstance builds an instance over the given member set. Loop bodies
// nested inside the members are excluded: their nodes are driven by their
// loop node's iterations, never by this instance directly.
func newInstance(
	ex *Executor,
	graph *CompiledGraph,
	behaviors map[string]protocol.NodeBehavior,
	recorder *record.Recorder,
	ectx protocol.ExecutionContext,
	members map[string]bool,
) *instance {
	effective := make(map[string]bool, len(members))
	for id := range members {
		effective[id] = true
	}

	for _, id := range graph.Sorted {
		if !effective[id] {
			continue
		}

		if graph.Node(id).Type == models.NodeTypeLoop {
			for bodyID := range graph.LoopBodies[id] {
				delete(effective, bodyID)
			}
		}
	}

	undecided := make(map[string]int, len(effective))
	for id := range effective {
		count := 0
		for _, edgeIdx := range graph.Incoming[id] {
			if effective[graph.Edges[edgeIdx].Source] {
				count++
			}
		}

		undecided[id] = count
	}

	return &instance{
		ex:          ex,
		graph:       graph,
		behaviors:   behaviors,
		recorder:    recorder,
		ectx:        ectx,
		members:     effective,
		undecided:   undecided,
		delivered:   make(map[string][]*models.Envelope),
		dispatch:    make(map[string]bool),
		outcomes:    make(map[string]outcome),
		inputs:      make(map[string]*models.Envelope),
		outputs:     make(map[string]*models.Envelope),
		completions: make(chan completion, 4*len(effective)+16),
	}
}

// markSeeded records the externally fired trigger as succeeded with the seed
// envelope.
func (in *instance) markSeeded(ctx context.Context, nodeID string, env *models.Envelope) {
	in.outcomes[nodeID] = outcomeSucceeded
	in.outputs[nodeID] = env
	in.recorder.NodeSucceeded(ctx, nodeID, env)
}

// markDormant skips a trigger that was not the one fired.
func (in *instance) markDormant(ctx context.Context, nodeID string) {
	in.skipNode(ctx, nodeID, "trigger not fired")
}

// execute routes the seed node's outgoing edges and processes completions
// until no work remains.
func (in *instance) execute(ctx context.Context, seedID string, seedEnv *models.Envelope) *instanceResult {
	in.routeFrom(ctx, seedID, seedEnv)
	return in.loop(ctx)
}

// executeEntries seeds the instance with external deliveries (loop body
// iteration) and processes completions until no work remains.
func (in *instance) executeEntries(ctx context.Context, entries []entry) *instanceResult {
	for _, e := range entries {
		in.applyDecision(ctx, e.target, e.env, false)
	}

	return in.loop(ctx)
}

func (in *instance) loop(ctx context.Context) *instanceResult {
	for in.active > 0 {
		if in.cancelled {
			in.handle(ctx, <-in.completions)
			continue
		}

		select {
		case c := <-in.completions:
			in.handle(ctx, c)
		case <-ctx.Done():
			in.cancelled = true
		}
	}

	if ctx.Err() != nil {
		in.cancelled = true
	}

	in.finalize(ctx)

	return &instanceResult{
		unrouted:  in.unrouted,
		recovered: in.recovered,
		cancelled: in.cancelled,
		leafData:  in.leafData(),
	}
}

func (in *instance) handle(ctx context.Context, c completion) {
	in.active--
	in.recovered += c.recovered

	if c.err != nil {
		in.failNode(ctx, c.nodeID, c.err, c.attempts)
		return
	}

	in.completeNode(ctx, c.nodeID, c.result, c.attempts)
}

// routed is one edge decision: a live delivery or a dead edge (env nil).
type routed struct {
	target string
	env    *models.Envelope
}

// routeDecisions evaluates every outgoing non-error edge of the source
// against the output envelope. An edge condition or transform that fails to
// evaluate is a source-node failure, never an implicit false.
func (in *instance) routeDecisions(ctx context.Context, sourceID string, env *models.Envelope, routeLabel string, drop bool) ([]routed, error) {
	var decisions []routed

	for _, edgeIdx := range in.graph.Outgoing[sourceID] {
		edge := in.graph.Edges[edgeIdx]
		if !in.members[edge.Target] {
			continue
		}

		live := !drop && env != nil

		// Body edges carry loop iterations, not the aggregated output.
		if live && edge.Label == models.EdgeLabelBody {
			live = false
		}

		if live && routeLabel != "" && edge.Label != routeLabel {
			live = false
		}

		deliver := env

		if live && edge.Condition != "" {
			ok, err := in.ectx.Evaluator.Condition(ctx, edge.Condition, env.Data)
			if err != nil {
				return nil, err
			}

			live = ok
		}

		if live && edge.Transform != "" {
			data, err := in.ectx.Evaluator.Transform(ctx, edge.Transform, env.Data)
			if err != nil {
				return nil, err
			}

			deliver = &models.Envelope{
				Data:   data,
				RunID:  env.RunID,
				NodeID: env.NodeID,
				Hops:   env.Hops,
				Error:  env.Error,
			}
		}

		if !live {
			deliver = nil
		}

		decisions = append(decisions, routed{target: edge.Target, env: deliver})
	}

	return decisions, nil
}

// routeFrom applies routing decisions of an already-recorded node.
func (in *instance) routeFrom(ctx context.Context, sourceID string, env *models.Envelope) {
	decisions, err := in.routeDecisions(ctx, sourceID, env, "", false)
	if err != nil {
		in.failNode(ctx, sourceID, err, 1)
		return
	}

	for _, d := range decisions {
		in.applyDecision(ctx, d.target, d.env, true)
	}
}

// applyDecision consumes one incoming-edge decision for the target node and
// dispatches or skips it once its readiness rule is met: first live input
// for ordinary nodes, all predecessors decided for aggregate nodes.
func (in *instance) applyDecision(ctx context.Context, target string, env *models.Envelope, counted bool) {
	if !in.members[target] {
		return
	}

	if counted && in.undecided[target] > 0 {
		in.undecided[target]--
	}

	switch in.outcomes[target] {
	case outcomeSucceeded, outcomeFailed, outcomeSkipped:
		return
	case outcomePending, outcomeRunning:
	}

	if env != nil {
		in.delivered[target] = append(in.delivered[target], env)
	}

	node := in.graph.Node(target)

	if node.Type == models.NodeTypeAggregate {
		if in.undecided[target] > 0 {
			return
		}

		inputs := in.delivered[target]
		if len(inputs) == 0 {
			in.skipNode(ctx, target, "no live input")
			return
		}

		merged, err := mergeEnvelopes(inputs)
		if err != nil {
			in.failNode(ctx, target, models.NewError(models.ErrCodeEvaluation, err.Error()).WithNode(target), 1)
			return
		}

		in.dispatchNode(ctx, target, merged, false)

		return
	}

	if in.dispatch[target] {
		return
	}

	if env != nil {
		in.dispatchNode(ctx, target, env, false)
		return
	}

	if in.undecided[target] == 0 && len(in.delivered[target]) == 0 {
		in.skipNode(ctx, target, "no live input")
	}
}

// dispatchNode records the dispatch and hands the node task to the worker
// pool. force re-dispatches error handlers receiving a second failure.
func (in *instance) dispatchNode(ctx context.Context, nodeID string, env *models.Envelope, force bool) {
	if in.cancelled {
		return
	}

	if in.dispatch[nodeID] && !force {
		return
	}

	in.dispatch[nodeID] = true
	in.outcomes[nodeID] = outcomeRunning
	in.inputs[nodeID] = env

	spec := in.graph.Node(nodeID)
	in.recorder.NodeDispatched(ctx, nodeID, spec.Type, 1, env)
	in.active++

	if spec.Type == models.NodeTypeLoop {
		go in.driveLoop(ctx, nodeID, env)
		return
	}

	behavior := in.behaviors[nodeID]
	task := func(taskCtx context.Context) error {
		res, attempts, err := in.ex.executeNode(taskCtx, in.recorder, in.ectx, spec, behavior, env)
		in.completions <- completion{nodeID: nodeID, result: res, err: err, attempts: attempts}

		return err
	}

	if err := in.ex.pool.Submit(ctx, task); err != nil {
		in.completions <- completion{nodeID: nodeID, err: classify(err, ctx, nodeID), attempts: 1}
	}
}

// completeNode records success and routes the output, unless an edge
// evaluation fails, in which case the node fails instead.
func (in *instance) completeNode(ctx context.Context, nodeID string, result *protocol.Result, attempts int) {
	var env *models.Envelope
	routeLabel := ""
	drop := false

	if result != nil {
		env = result.Envelope
		routeLabel = result.Route
		drop = result.Drop
	}

	decisions, err := in.routeDecisions(ctx, nodeID, env, routeLabel, drop)
	if err != nil {
		in.failNode(ctx, nodeID, err, attempts)
		return
	}

	in.outcomes[nodeID] = outcomeSucceeded
	in.outputs[nodeID] = env
	in.recorder.NodeSucceeded(ctx, nodeID, env)

	for _, d := range decisions {
		in.applyDecision(ctx, d.target, d.env, true)
	}
}

// failNode records the failure, kills the node's normal edges and delivers
// the error envelope along the designated error route if one exists.
func (in *instance) failNode(ctx context.Context, nodeID string, err error, attempts int) {
	engineErr := classify(err, ctx, nodeID)
	descriptor := engineErr.Descriptor()
	descriptor.Attempt = attempts
	if descriptor.NodeID == "" {
		descriptor.NodeID = nodeID
	}

	in.outcomes[nodeID] = outcomeFailed
	in.recorder.NodeFailed(ctx, nodeID, descriptor)

	for _, edgeIdx := range in.graph.Outgoing[nodeID] {
		in.applyDecision(ctx, in.graph.Edges[edgeIdx].Target, nil, true)
	}

	errEdge, hasRoute := in.graph.ErrorRoute(nodeID)
	if !hasRoute || in.cancelled {
		in.unrouted = append(in.unrouted, descriptor)
		return
	}

	input := in.inputs[nodeID]
	if input == nil {
		input = models.NewEnvelope(in.ectx.RunID, nil)
	}

	errEnv := input.Clone()
	errEnv.NodeID = nodeID
	errEnv.Hops = input.Hops + 1
	errEnv.Error = descriptor

	in.recovered++
	in.dispatchNode(ctx, errEdge.Target, errEnv, true)
}

// skipNode marks the node Skipped and kills its outgoing edges, cascading
// to dependents that have no other live path.
func (in *instance) skipNode(ctx context.Context, nodeID, reason string) {
	switch in.outcomes[nodeID] {
	case outcomeSucceeded, outcomeFailed, outcomeSkipped, outcomeRunning:
		return
	case outcomePending:
	}

	in.outcomes[nodeID] = outcomeSkipped
	in.recorder.NodeSkipped(ctx, nodeID, reason)

	for _, edgeIdx := range in.graph.Outgoing[nodeID] {
		in.applyDecision(ctx, in.graph.Edges[edgeIdx].Target, nil, true)
	}
}

// finalize skips members the run never reached.
func (in *instance) finalize(ctx context.Context) {
	reason := "not reached"
	if in.cancelled {
		reason = "run cancelled"
	}

	for _, id := range in.graph.Sorted {
		if !in.members[id] {
			continue
		}

		switch in.outcomes[id] {
		case outcomePending, outcomeRunning:
			in.outcomes[id] = outcomeSkipped
			in.recorder.NodeSkipped(ctx, id, reason)
		case outcomeSucceeded, outcomeFailed, outcomeSkipped:
		}
	}
}

// leafData merges the outputs of succeeded member nodes with no downstream
// member, in topological order. Loop iterations use it as the iteration
// result.
func (in *instance) leafData() map[string]any {
	var merged map[string]any

	for _, id := range in.graph.Sorted {
		if !in.members[id] || in.outcomes[id] != outcomeSucceeded {
			continue
		}

		isLeaf := true
		for _, edgeIdx := range in.graph.Outgoing[id] {
			if in.members[in.graph.Edges[edgeIdx].Target] {
				isLeaf = false
				break
			}
		}

		if !isLeaf {
			continue
		}

		out := in.outputs[id]
		if out == nil || out.Data == nil {
			continue
		}

		if merged == nil {
			merged = make(map[string]any)
		}

		if err := mergo.Merge(&merged, out.Clone().Data, mergo.WithOverride); err != nil {
			in.ectx.Logger.Error("failed to merge leaf output", "node_id", id, "error", err)
		}
	}

	return merged
}

// driveLoop runs a loop node's iterations and reports a single completion.
// It runs on its own goroutine so iterations can use the worker pool without
// the loop holding a slot.
func (in *instance) driveLoop(ctx context.Context, loopID string, input *models.Envelope) {
	in.completions <- in.runLoop(ctx, loopID, input)
}

func (in *instance) runLoop(ctx context.Context, loopID string, input *models.Envelope) completion {
	loopNode, ok := in.behaviors[loopID].(*loop.LoopNode)
	if !ok {
		return completion{nodeID: loopID, attempts: 1,
			err: models.NewError(models.ErrCodeConflict, "loop node has unexpected behavior type").WithNode(loopID)}
	}

	items, err := loopNode.Items(ctx, in.ectx, input)
	if err != nil {
		return completion{nodeID: loopID, err: err, attempts: 1}
	}

	bodyEdges := in.graph.BodyEdges(loopID)
	bodyMembers := in.graph.LoopBodies[loopID]

	results := make([]any, len(items))
	var failures []*models.ErrorDescriptor
	recoveredTotal := 0

	runIteration := func(iterCtx context.Context, i int, item any) (*models.ErrorDescriptor, int) {
		itemEnv := input.Clone()
		itemEnv.NodeID = loopID
		itemEnv.Hops = input.Hops + 1
		if itemEnv.Data == nil {
			itemEnv.Data = map[string]any{}
		}
		itemEnv.Data["item"] = item
		itemEnv.Data["index"] = i

		if len(bodyEdges) == 0 {
			results[i] = itemEnv.Data
			return nil, 0
		}

		var entries []entry

		for _, edge := range bodyEdges {
			deliver := itemEnv

			if edge.Condition != "" {
				keep, evalErr := in.ectx.Evaluator.Condition(iterCtx, edge.Condition, itemEnv.Data)
				if evalErr != nil {
					return classify(evalErr, iterCtx, loopID).Descriptor(), 0
				}

				if !keep {
					continue
				}
			}

			if edge.Transform != "" {
				data, evalErr := in.ectx.Evaluator.Transform(iterCtx, edge.Transform, itemEnv.Data)
				if evalErr != nil {
					return classify(evalErr, iterCtx, loopID).Descriptor(), 0
				}

				derived := *itemEnv
				derived.Data = data
				deliver = &derived
			}

			entries = append(entries, entry{target: edge.Target, env: deliver})
		}

		sub := newInstance(in.ex, in.graph, in.behaviors, in.recorder, in.ectx, bodyMembers)
		res := sub.executeEntries(iterCtx, entries)

		if res.cancelled {
			return &models.ErrorDescriptor{
				Code: models.ErrCodeCancelled, Message: "iteration cancelled", NodeID: loopID,
			}, res.recovered
		}

		if len(res.unrouted) > 0 {
			return res.unrouted[0], res.recovered
		}

		if res.leafData != nil {
			results[i] = res.leafData
		} else {
			results[i] = itemEnv.Data
		}

		return nil, res.recovered
	}

	if loopNode.Concurrent() {
		iterCtx, cancelIters := context.WithCancel(ctx)
		defer cancelIters()

		var wg sync.WaitGroup
		var mu sync.Mutex

		for i, item := range items {
			wg.Add(1)

			go func(i int, item any) {
				defer wg.Done()

				descriptor, recovered := runIteration(iterCtx, i, item)

				mu.Lock()
				defer mu.Unlock()

				recoveredTotal += recovered
				if descriptor != nil {
					failures = append(failures, descriptor)
					if loopNode.StopOnError() {
						cancelIters()
					}
				}
			}(i, item)
		}

		wg.Wait()
	} else {
		for i, item := range items {
			descriptor, recovered := runIteration(ctx, i, item)
			recoveredTotal += recovered

			if descriptor != nil {
				failures = append(failures, descriptor)
				if loopNode.StopOnError() {
					break
				}
			}
		}
	}

	if ctx.Err() != nil {
		return completion{nodeID: loopID, recovered: recoveredTotal, attempts: 1,
			err: models.NewError(models.ErrCodeCancelled, "run cancelled").WithNode(loopID)}
	}

	if len(failures) > 0 {
		first := failures[0]

		return completion{nodeID: loopID, recovered: recoveredTotal, attempts: 1,
			err: models.NewErrorf(first.Code, "%d of %d iterations failed: %s",
				len(failures), len(items), first.Message).WithNode(loopID)}
	}

	aggregated := map[string]any{"items": results, "count": len(items)}

	return completion{
		nodeID:    loopID,
		result:    &protocol.Result{Envelope: input.Next(loopID, aggregated)},
		recovered: recoveredTotal,
		attempts:  1,
	}
}

// mergeEnvelopes merges aggregate-node inputs in arrival order; later
// envelopes override earlier keys.
func mergeEnvelopes(envs []*models.Envelope) (*models.Envelope, error) {
	merged := make(map[string]any)
	maxHops := 0

	for _, env := range envs {
		if env.Hops > maxHops {
			maxHops = env.Hops
		}

		if err := mergo.Merge(&merged, env.Clone().Data, mergo.WithOverride); err != nil {
			return nil, err
		}
	}

	return &models.Envelope{
		Data:   merged,
		RunID:  envs[0].RunID,
		NodeID: envs[0].NodeID,
		Hops:   maxHops,
	}, nil
}
