/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package process

import (
	"context"
	"errors"

	"bpmflow/src/core/enginerr"
	"bpmflow/src/core/logger"
	"bpmflow/src/core/models"
	"bpmflow/src/registry"
)

// TaskExecutor invokes the Task Registry for user/service/script/receive
// task nodes. Synchronous task kinds (service, script) advance along the
// outgoing flow as soon as the registry call returns; asynchronous kinds
// (user, receive) leave the token parked at the node and return.
// Исполнитель задач
type TaskExecutor struct {
	exec *Executor
}

func (te *TaskExecutor) Execute(ec *ExecutionContext, node bpmnmodel.Node) (*ExecutionResult, error) {
	if node.TaskKind.Async() {
		logger.Debug("task parked awaiting external completion",
			logger.String("node_id", node.ID), logger.String("token_id", ec.Token.ID))
		return nil, nil
	}

	input := registry.TaskInput{
		NodeID:     node.ID,
		InstanceID: ec.InstanceID,
		TokenData:  valuesToNative(ec.Token.Data),
		Variables:  te.exec.instanceVariableBindings(ec.InstanceID),
	}

	ctx := ec.Ctx
	var cancel context.CancelFunc
	if te.exec.cfg.ScriptTimeout > 0 {
		ctx, cancel = context.WithTimeout(ec.Ctx, te.exec.cfg.ScriptTimeout)
		defer cancel()
	}

	result, err := te.exec.tasks.Invoke(ctx, node.ID, input)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &enginerr.TaskTimeoutError{NodeID: node.ID}
		}
		return nil, &enginerr.TaskExecutionError{NodeID: node.ID, Cause: err}
	}

	for name, native := range result.Output {
		if err := te.storeTaskOutput(ec.InstanceID, ec.Token.Scope, name, native); err != nil {
			return nil, &enginerr.EngineTransientError{Cause: err}
		}
	}

	flows := ec.Graph.OutgoingFlows(node.ID)
	if len(flows) == 0 {
		return &ExecutionResult{Consumed: true}, nil
	}
	return &ExecutionResult{NextNodeIDs: []string{flows[0].TargetRef}}, nil
}

func (te *TaskExecutor) storeTaskOutput(instanceID, scope, name string, native interface{}) error {
	value, err := bpmnmodel.ValueFromNative(nativeTag(native), native)
	if err != nil {
		return err
	}
	_, err = te.exec.store.SetVariable(instanceID, name, scope, value)
	return err
}

// nativeTag infers a Value type tag from a Go-native result, the shape a
// task body returns without itself knowing about bpmnmodel.Value.
func nativeTag(v interface{}) bpmnmodel.ValueType {
	switch v.(type) {
	case int, int64:
		return bpmnmodel.TypeInteger
	case float32, float64:
		return bpmnmodel.TypeFloat
	case bool:
		return bpmnmodel.TypeBoolean
	case string:
		return bpmnmodel.TypeString
	default:
		return bpmnmodel.TypeJSON
	}
}

func valuesToNative(data map[string]bpmnmodel.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v.Native()
	}
	return out
}
