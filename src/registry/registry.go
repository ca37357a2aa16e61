/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package registry is the Task Registry collaborator boundary: the engine
// core never loads plugin code directly, it only calls through this
// interface (spec §9 design note on plugin isolation).
package registry

import (
	"context"
	"fmt"
	"sync"
)

// TaskDescriptor advertises one callable task implementation.
type TaskDescriptor struct {
	Name   string
	Schema map[string]interface{}
}

// TaskInput is what the Process Executor hands a task invocation:
// (node_id, instance_id, token data, instance variables).
type TaskInput struct {
	NodeID     string
	InstanceID string
	TokenData  map[string]interface{}
	Variables  map[string]interface{}
}

// TaskResult is what a synchronous task invocation returns.
type TaskResult struct {
	Output map[string]interface{}
}

// TaskFunc is the callable body of a registered task.
type TaskFunc func(ctx context.Context, input TaskInput) (TaskResult, error)

// Registry is the contract the Process Executor calls through for every
// service/script/user/receive task body.
type Registry interface {
	ListTasks() []TaskDescriptor
	Invoke(ctx context.Context, name string, input TaskInput) (TaskResult, error)
}

// InMemoryRegistry registers (name, func) pairs directly — used by engine
// tests and embedders who don't need out-of-process plugins.
// Реестр задач в памяти
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tasks map[string]TaskFunc
}

// NewInMemoryRegistry creates an empty registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{tasks: map[string]TaskFunc{}}
}

// Register adds or replaces a task implementation.
func (r *InMemoryRegistry) Register(name string, fn TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = fn
}

// ListTasks implements Registry.
func (r *InMemoryRegistry) ListTasks() []TaskDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TaskDescriptor, 0, len(r.tasks))
	for name := range r.tasks {
		out = append(out, TaskDescriptor{Name: name})
	}
	return out
}

// Invoke implements Registry.
func (r *InMemoryRegistry) Invoke(ctx context.Context, name string, input TaskInput) (TaskResult, error) {
	r.mu.RLock()
	fn, ok := r.tasks[name]
	r.mu.RUnlock()
	if !ok {
		return TaskResult{}, fmt.Errorf("task %q is not registered", name)
	}
	return fn(ctx, input)
}
