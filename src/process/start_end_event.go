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

// StartEventExecutor moves the token onto the target of the start event's
// single outgoing sequence flow.
// Исполнитель стартового события
type StartEventExecutor struct{}

func (se *StartEventExecutor) Execute(ec *ExecutionContext, node bpmnmodel.Node) (*ExecutionResult, error) {
	flows := ec.Graph.OutgoingFlows(node.ID)
	if len(flows) != 1 {
		return nil, &enginerr.InvalidProcessDefinitionError{
			Reason: "start event " + node.ID + " must have exactly one outgoing sequence flow",
		}
	}

	logger.Debug("start event fired", logger.String("node_id", node.ID), logger.String("token_id", ec.Token.ID))

	return &ExecutionResult{NextNodeIDs: []string{flows[0].TargetRef}}, nil
}

// EndEventExecutor consumes the token. handle_completion, invoked by the
// Executor once the instance's token count reaches zero, is what actually
// transitions the instance to COMPLETED.
// Исполнитель конечного события
type EndEventExecutor struct{}

func (ee *EndEventExecutor) Execute(ec *ExecutionContext, node bpmnmodel.Node) (*ExecutionResult, error) {
	logger.Debug("end event consumed token", logger.String("node_id", node.ID), logger.String("token_id", ec.Token.ID))
	return &ExecutionResult{Consumed: true}, nil
}
