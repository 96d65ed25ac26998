// Package registry provides node factory registration for the built-in node set.
package registry

import (
	"github.com/strandkit/strand/pkg/nodes/aggregate"
	"github.com/strandkit/strand/pkg/nodes/condition"
	"github.com/strandkit/strand/pkg/nodes/delay"
	"github.com/strandkit/strand/pkg/nodes/errorhandler"
	"github.com/strandkit/strand/pkg/nodes/filter"
	"github.com/strandkit/strand/pkg/nodes/llm"
	"github.com/strandkit/strand/pkg/nodes/loop"
	"github.com/strandkit/strand/pkg/nodes/output"
	"github.com/strandkit/strand/pkg/nodes/transform"
	"github.com/strandkit/strand/pkg/nodes/trigger"
)

// RegisterDefaultNodes registers every built-in node factory.
func (r *Registry) RegisterDefaultNodes() {
	// Processors
	r.RegisterNode(transform.NewTransformNodeFactory())
	r.RegisterNode(filter.NewFilterNodeFactory())
	r.RegisterNode(llm.NewLLMNodeFactory())
	r.RegisterNode(aggregate.NewAggregateNodeFactory())

	// Control flow
	r.RegisterNode(condition.NewConditionNodeFactory())
	r.RegisterNode(loop.NewLoopNodeFactory())
	r.RegisterNode(delay.NewDelayNodeFactory())

	// Outputs
	r.RegisterNode(output.NewEmailNodeFactory())
	r.RegisterNode(output.NewWebhookOutputNodeFactory())
	r.RegisterNode(output.NewDatabaseOutputNodeFactory())
	r.RegisterNode(output.NewFileOutputNodeFactory())
	r.RegisterNode(output.NewSlackNodeFactory())

	// Error handling
	r.RegisterNode(errorhandler.NewErrorHandlerNodeFactory())

	// Triggers
	r.RegisterNode(trigger.NewWebhookTriggerNodeFactory())
	r.RegisterNode(trigger.NewDatabasePollTriggerNodeFactory())
	r.RegisterNode(trigger.NewAPIPollTriggerNodeFactory())
	r.RegisterNode(trigger.NewFileWatchTriggerNodeFactory())
}
