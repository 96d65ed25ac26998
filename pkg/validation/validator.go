package validation

import (
	"context"
	"fmt"
	"time"

	goplayground "github.com/go-playground/validator/v10"
	"github.com/strandkit/strand/pkg/expression"
	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/registry"
)

// Validator runs the full validation pipeline over a definition: struct
// tags, per-node semantic checks, expression syntax and graph analysis.
// Validation is pure and idempotent. The definition is never mutated, and
// repeated calls yield identical results.
type Validator struct {
	structCheck *goplayground.Validate
	registry    *registry.Registry
	evaluator   *expression.Evaluator
}

// NewValidator creates a Validator backed by the given node registry.
func NewValidator(reg *registry.Registry, evaluator *expression.Evaluator) *Validator {
	if evaluator == nil {
		evaluator = expression.NewEvaluator()
	}

	return &Validator{
		structCheck: goplayground.New(goplayground.WithRequiredStructEnabled()),
		registry:    reg,
		evaluator:   evaluator,
	}
}

// Validate checks the definition and returns every violation found.
func (v *Validator) Validate(def *models.WorkflowDefinition) *Result {
	result := &Result{}

	if def == nil {
		result.Add(CodeInvalidDefinition, "/", "workflow definition is nil")
		return result
	}

	if err := v.structCheck.Struct(def); err != nil {
		var fieldErrs goplayground.ValidationErrors
		if ok := asValidationErrors(err, &fieldErrs); ok {
			for _, fe := range fieldErrs {
				result.Add(CodeInvalidDefinition, fe.Namespace(), "field fails %q constraint", fe.Tag())
			}
		} else {
			result.Add(CodeInvalidDefinition, "/", "%s", err.Error())
		}
	}

	nodes := v.checkNodes(def, result)
	v.checkEdges(def, nodes, result)

	// Graph analysis is meaningless over dangling or duplicate references.
	if referentiallySound(result) {
		result.Merge(checkGraph(def))
	}

	return result
}

func referentiallySound(result *Result) bool {
	for _, violation := range result.Violations {
		switch violation.Code {
		case CodeDuplicateNodeID, CodeDanglingEdge, CodeInvalidDefinition:
			return false
		}
	}

	return true
}

// checkNodes validates node identity, type, configuration and expressions.
// Returns the set of known-good node IDs for edge checking.
func (v *Validator) checkNodes(def *models.WorkflowDefinition, result *Result) map[string]*models.NodeSpec {
	nodes := make(map[string]*models.NodeSpec, len(def.Nodes))

	for i, node := range def.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if node.ID != "" {
			path = fmt.Sprintf("nodes[%s]", node.ID)
		}

		if _, dup := nodes[node.ID]; dup {
			result.Add(CodeDuplicateNodeID, path, "node id %q is not unique", node.ID)
			continue
		}

		nodes[node.ID] = node

		if _, known := node.Capability(); !known {
			result.Add(CodeUnknownNodeType, path, "unknown node type %q", node.Type)
			continue
		}

		v.checkNodeConfig(node, path, result)
		v.checkNodeExpressions(node, path, result)
		v.checkNodeTimings(node, path, result)
	}

	if len(def.TriggerNodes()) == 0 {
		result.Add(CodeMissingTrigger, "nodes", "definition has no trigger node")
	}

	return nodes
}

// checkNodeConfig validates the config map against the type's JSON schema
// and instantiates the behavior to catch config parse failures.
func (v *Validator) checkNodeConfig(node *models.NodeSpec, path string, result *Result) {
	if v.registry == nil {
		return
	}

	if err := v.registry.ValidateConfig(node.Type, node.Config); err != nil {
		result.Add(CodeInvalidConfig, path, "%s", err.Error())
		return
	}

	if _, err := v.registry.CreateNode(context.Background(), node.Type, node.ID, node.Config); err != nil {
		result.Add(CodeInvalidConfig, path, "%s", err.Error())
	}
}

// expressionFields maps node types to their expression-bearing config fields
// and the language each is written in.
var expressionFields = map[string]map[string]string{
	models.NodeTypeCondition: {"expression": expression.LanguageExpr},
	models.NodeTypeFilter:    {"predicate": expression.LanguageExpr},
	models.NodeTypeTransform: {"expression": expression.LanguageJQ},
	models.NodeTypeAggregate: {"expression": expression.LanguageJQ},
	models.NodeTypeLoop:      {"collection": expression.LanguageJQ},
}

func (v *Validator) checkNodeExpressions(node *models.NodeSpec, path string, result *Result) {
	fields, ok := expressionFields[node.Type]
	if !ok {
		return
	}

	for field, language := range fields {
		raw, present := node.Config[field]
		if !present {
			continue
		}

		expressionStr, isString := raw.(string)
		if !isString || expressionStr == "" {
			continue // shape defects are the config check's business
		}

		if err := v.evaluator.CheckSyntax(language, expressionStr); err != nil {
			result.Add(CodeMalformedExpression, path+"."+field, "%s", err.Error())
		}
	}
}

func (v *Validator) checkNodeTimings(node *models.NodeSpec, path string, result *Result) {
	if node.Timeout != "" {
		if d, err := time.ParseDuration(node.Timeout); err != nil || d <= 0 {
			result.Add(CodeInvalidDuration, path+".timeout", "invalid timeout %q", node.Timeout)
		}
	}

	if node.Retry == nil {
		return
	}

	if node.Retry.MaxAttempts < 1 {
		result.Add(CodeInvalidDuration, path+".retry", "max_attempts must be at least 1, got %d", node.Retry.MaxAttempts)
	}

	checkDelay := func(field, raw string) {
		if raw == "" {
			return
		}

		if d, err := time.ParseDuration(raw); err != nil || d < 0 {
			result.Add(CodeInvalidDuration, path+".retry."+field, "invalid duration %q", raw)
		}
	}

	checkDelay("delay", node.Retry.Delay)
	checkDelay("max_delay", node.Retry.MaxDelay)
}

// checkEdges validates edge endpoints, expressions, error routes and the
// per-kind edge shape rules.
func (v *Validator) checkEdges(def *models.WorkflowDefinition, nodes map[string]*models.NodeSpec, result *Result) {
	errorRoutes := make(map[string]int, len(nodes))

	for i, edge := range def.Edges {
		path := fmt.Sprintf("edges[%d]", i)

		source, sourceOK := nodes[edge.Source]
		if !sourceOK {
			result.Add(CodeDanglingEdge, path, "source %q does not exist", edge.Source)
		}

		target, targetOK := nodes[edge.Target]
		if !targetOK {
			result.Add(CodeDanglingEdge, path, "target %q does not exist", edge.Target)
		}

		if edge.IsErrorRoute {
			errorRoutes[edge.Source]++
			if errorRoutes[edge.Source] == 2 {
				result.Add(CodeMultipleErrorRoutes, path, "node %q designates more than one error route", edge.Source)
			}
		}

		if targetOK && target.IsTriggerNode() {
			result.Add(CodeTriggerHasInput, path, "trigger node %q cannot have incoming edges", edge.Target)
		}

		if targetOK && target.IsErrorHandler() && !edge.IsErrorRoute {
			result.Add(CodeErrorHandlerInput, path, "error handler %q can only receive error-route edges", edge.Target)
		}

		if sourceOK {
			if capability, _ := source.Capability(); capability == models.CapabilityOutput && !edge.IsErrorRoute {
				result.Add(CodeOutputHasOutput, path, "output node %q cannot have outgoing non-error edges", edge.Source)
			}
		}

		if edge.Condition != "" {
			if err := v.evaluator.CheckSyntax(expression.LanguageExpr, edge.Condition); err != nil {
				result.Add(CodeMalformedExpression, path+".condition", "%s", err.Error())
			}
		}

		if edge.Transform != "" {
			if err := v.evaluator.CheckSyntax(expression.LanguageJQ, edge.Transform); err != nil {
				result.Add(CodeMalformedExpression, path+".transform", "%s", err.Error())
			}
		}
	}

	v.checkNodeEdgeShapes(def, nodes, result)
}

// checkNodeEdgeShapes enforces per-node-kind rules over the full edge set.
func (v *Validator) checkNodeEdgeShapes(def *models.WorkflowDefinition, nodes map[string]*models.NodeSpec, result *Result) {
	for _, node := range def.Nodes {
		if nodes[node.ID] != node {
			continue // duplicate IDs were already reported
		}

		id := node.ID
		path := fmt.Sprintf("nodes[%s]", id)

		incoming := def.IncomingEdges(id)
		outgoing := def.OutgoingEdges(id)

		if len(incoming) == 0 && len(outgoing) == 0 && len(def.Nodes) > 1 {
			result.Add(CodeIsolatedNode, path, "node %q has no edges", id)
			continue
		}

		if !node.IsTriggerNode() && !node.IsErrorHandler() {
			hasNormalInput := false
			for _, e := range incoming {
				if !e.IsErrorRoute {
					hasNormalInput = true
					break
				}
			}

			if !hasNormalInput {
				result.Add(CodeNoIncomingEdge, path, "node %q has no incoming non-error edge", id)
			}
		}

		if node.Type == models.NodeTypeCondition {
			var trueEdges, falseEdges, unlabeled int

			for _, e := range outgoing {
				if e.IsErrorRoute {
					continue
				}

				switch e.Label {
				case models.EdgeLabelTrue:
					trueEdges++
				case models.EdgeLabelFalse:
					falseEdges++
				default:
					unlabeled++
				}
			}

			if trueEdges != 1 || falseEdges != 1 || unlabeled != 0 {
				result.Add(CodeBadConditionEdges, path,
					"condition node %q needs exactly one \"true\" and one \"false\" outgoing edge", id)
			}
		}
	}
}

func asValidationErrors(err error, target *goplayground.ValidationErrors) bool {
	fieldErrs, ok := err.(goplayground.ValidationErrors)
	if !ok {
		return false
	}

	*target = fieldErrs

	return true
}
