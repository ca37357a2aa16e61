/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package process

import (
	"bpmflow/src/core/enginerr"
	"bpmflow/src/core/logger"
	"bpmflow/src/core/models"
)

// activatedCountKey is a reserved token-data key the inclusive split
// stamps on every child it creates, recording how many flows its own
// condition evaluation actually activated. The matching join reads it
// off the arriving token rather than the graph's static incoming-flow
// count, since an inclusive join must wait only for the branches the
// split actually took (spec.md §4.1's `activated_flows` set), not every
// structurally possible incoming flow.
const activatedCountKey = "__inclusive_activated_count__"

// InclusiveGatewayExecutor: split evaluates every outgoing condition and
// activates all that are true (at least one, or the default); join waits
// only for the tokens the matching split actually activated.
// Исполнитель включающего шлюза
type InclusiveGatewayExecutor struct{}

func (ie *InclusiveGatewayExecutor) Execute(ec *ExecutionContext, node bpmnmodel.Node) (*ExecutionResult, error) {
	incoming := ec.Graph.IncomingFlows(node.ID)
	outgoing := ec.Graph.OutgoingFlows(node.ID)

	if len(incoming) > 1 {
		return joinInclusive(ec, node, outgoing)
	}
	return forkInclusive(ec, node, outgoing)
}

func forkInclusive(ec *ExecutionContext, node bpmnmodel.Node, outgoing []bpmnmodel.Flow) (*ExecutionResult, error) {
	vars := ec.Exec.instanceVariableBindings(ec.InstanceID)
	bindings := conditionBindings(vars, ec.Token.Data)

	var activated []bpmnmodel.Flow
	var defaultFlow *bpmnmodel.Flow
	for i := range outgoing {
		f := outgoing[i]
		if f.IsDefault {
			defaultFlow = &outgoing[i]
			continue
		}
		if f.Condition == "" {
			continue
		}
		matched, err := evaluateCondition(f.Condition, bindings)
		if err != nil {
			return nil, &enginerr.GatewayNoMatchError{NodeID: node.ID}
		}
		if matched {
			activated = append(activated, f)
		}
	}
	if len(activated) == 0 {
		if defaultFlow == nil {
			return nil, &enginerr.GatewayNoMatchError{NodeID: node.ID}
		}
		activated = append(activated, *defaultFlow)
	}

	activation := bpmnmodel.NewID()
	parent := ec.Token.ID

	var children []bpmnmodel.Token
	for _, f := range activated {
		child := ec.Token.Clone(f.TargetRef)
		child.ParentToken = parent
		child.ActivationID = activation
		if child.Data == nil {
			child.Data = map[string]bpmnmodel.Value{}
		}
		child.Data[activatedCountKey] = bpmnmodel.NewIntegerValue(int64(len(activated)))
		children = append(children, child)
	}

	logger.Debug("inclusive gateway forked",
		logger.String("node_id", node.ID), logger.Int("branches", len(children)))

	return &ExecutionResult{Consumed: true, NewTokens: children}, nil
}

func joinInclusive(ec *ExecutionContext, node bpmnmodel.Node, outgoing []bpmnmodel.Flow) (*ExecutionResult, error) {
	expected := 1
	if v, ok := ec.Token.Data[activatedCountKey]; ok {
		expected = int(v.Integer)
	}

	arrived, err := ec.Exec.store.RecordGatewayArrival(ec.InstanceID, node.ID, ec.Token.ActivationID, ec.Token)
	if err != nil {
		return nil, &enginerr.EngineTransientError{Cause: err}
	}

	logger.Debug("token arrived at inclusive join",
		logger.String("node_id", node.ID), logger.Int("arrived", len(arrived)), logger.Int("expected", expected))

	if len(arrived) < expected {
		return &ExecutionResult{Consumed: true}, nil
	}

	if err := ec.Exec.store.ClearGatewaySync(ec.InstanceID, node.ID, ec.Token.ActivationID); err != nil {
		return nil, &enginerr.EngineTransientError{Cause: err}
	}

	merged := mergeTokens(arrived)
	delete(merged.Data, activatedCountKey)

	if len(outgoing) == 0 {
		return &ExecutionResult{Consumed: true}, nil
	}
	out := merged.Clone(outgoing[0].TargetRef)
	return &ExecutionResult{Consumed: true, NewTokens: []bpmnmodel.Token{out}}, nil
}
