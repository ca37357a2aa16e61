/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package process

import (
	"fmt"

	"bpmflow/src/core/models"
)

// ElementRegistry dispatches a node to its ElementExecutor by kind (and
// sub-kind, for tasks/gateways), matching how the engine this module
// grew from structures its executors — an instance per process.Executor
// since executors close over it.
// Реестр исполнителей элементов
type ElementRegistry struct {
	executors map[string]ElementExecutor
}

// NewElementRegistry builds a registry with every built-in executor
// registered.
func NewElementRegistry(exec *Executor) *ElementRegistry {
	r := &ElementRegistry{executors: map[string]ElementExecutor{}}

	r.Register(elementKey(bpmnmodel.NodeStart, ""), &StartEventExecutor{})
	r.Register(elementKey(bpmnmodel.NodeEnd, ""), &EndEventExecutor{})

	r.Register(elementKey(bpmnmodel.NodeTask, string(bpmnmodel.TaskUser)), &TaskExecutor{exec: exec})
	r.Register(elementKey(bpmnmodel.NodeTask, string(bpmnmodel.TaskService)), &TaskExecutor{exec: exec})
	r.Register(elementKey(bpmnmodel.NodeTask, string(bpmnmodel.TaskScript)), &TaskExecutor{exec: exec})
	r.Register(elementKey(bpmnmodel.NodeTask, string(bpmnmodel.TaskReceive)), &TaskExecutor{exec: exec})

	r.Register(elementKey(bpmnmodel.NodeGateway, string(bpmnmodel.GatewayExclusive)), &ExclusiveGatewayExecutor{})
	r.Register(elementKey(bpmnmodel.NodeGateway, string(bpmnmodel.GatewayParallel)), &ParallelGatewayExecutor{})
	r.Register(elementKey(bpmnmodel.NodeGateway, string(bpmnmodel.GatewayInclusive)), &InclusiveGatewayExecutor{})

	r.Register(elementKey(bpmnmodel.NodeIntermediate, string(bpmnmodel.EventTimer)), &TimerEventExecutor{exec: exec})

	return r
}

// Register adds or replaces the executor for a dispatch key.
func (r *ElementRegistry) Register(key string, executor ElementExecutor) {
	r.executors[key] = executor
}

// Get resolves the executor for a node.
func (r *ElementRegistry) Get(node bpmnmodel.Node) (ElementExecutor, bool) {
	sub := ""
	switch node.Type {
	case bpmnmodel.NodeTask:
		sub = string(node.TaskKind)
	case bpmnmodel.NodeGateway:
		sub = string(node.GatewayKind)
	case bpmnmodel.NodeIntermediate:
		sub = string(node.EventType)
	}
	exec, ok := r.executors[elementKey(node.Type, sub)]
	return exec, ok
}

func elementKey(kind bpmnmodel.NodeKind, sub string) string {
	if sub == "" {
		return string(kind)
	}
	return fmt.Sprintf("%s:%s", kind, sub)
}
