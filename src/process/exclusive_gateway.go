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

// ExclusiveGatewayExecutor evaluates outgoing flows' conditions in
// declaration order and routes the token along the first true one,
// falling back to the default flow, failing with GatewayNoMatchError
// otherwise.
// Исполнитель исключающего шлюза
type ExclusiveGatewayExecutor struct{}

func (ge *ExclusiveGatewayExecutor) Execute(ec *ExecutionContext, node bpmnmodel.Node) (*ExecutionResult, error) {
	flows := ec.Graph.OutgoingFlows(node.ID)

	vars := ec.Exec.instanceVariableBindings(ec.InstanceID)
	bindings := conditionBindings(vars, ec.Token.Data)

	var defaultFlow *bpmnmodel.Flow
	for i := range flows {
		f := flows[i]
		if f.IsDefault {
			defaultFlow = &flows[i]
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
			logger.Debug("exclusive gateway matched flow", logger.String("node_id", node.ID), logger.String("flow_id", f.ID))
			return &ExecutionResult{NextNodeIDs: []string{f.TargetRef}}, nil
		}
	}

	if defaultFlow != nil {
		return &ExecutionResult{NextNodeIDs: []string{defaultFlow.TargetRef}}, nil
	}
	return nil, &enginerr.GatewayNoMatchError{NodeID: node.ID}
}
