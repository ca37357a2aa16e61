/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package enginerr holds the engine's error taxonomy as typed, wrappable
// errors rather than string-matched failures.
package enginerr

import "fmt"

// InvalidProcessDefinitionError is raised when a definition is missing,
// multiple start events exist without a selector, or a node kind is
// unrecognized.
type InvalidProcessDefinitionError struct {
	Reason string
}

func (e *InvalidProcessDefinitionError) Error() string {
	return fmt.Sprintf("invalid process definition: %s", e.Reason)
}

// InvalidVariableError is raised for an unknown type tag or a value/type
// mismatch.
type InvalidVariableError struct {
	Name   string
	Reason string
}

func (e *InvalidVariableError) Error() string {
	return fmt.Sprintf("invalid variable %q: %s", e.Name, e.Reason)
}

// InvalidStateTransitionError is raised for a transition outside the
// instance lifecycle matrix.
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// GatewayNoMatchError is raised when no outgoing flow's condition matched
// and no default flow exists.
type GatewayNoMatchError struct {
	NodeID string
}

func (e *GatewayNoMatchError) Error() string {
	return fmt.Sprintf("gateway %s: no outgoing flow matched and no default", e.NodeID)
}

// TaskTimeoutError is raised when a task invocation exceeds
// process.script_timeout.
type TaskTimeoutError struct {
	NodeID string
}

func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("task %s timed out", e.NodeID)
}

// TaskExecutionError wraps a failure returned by a task invocation.
type TaskExecutionError struct {
	NodeID string
	Cause  error
}

func (e *TaskExecutionError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.NodeID, e.Cause)
}

func (e *TaskExecutionError) Unwrap() error { return e.Cause }

// EngineTransientError wraps a state store or bus I/O failure eligible for
// bounded retry by the dispatch layer.
type EngineTransientError struct {
	Cause error
}

func (e *EngineTransientError) Error() string {
	return fmt.Sprintf("transient engine error: %v", e.Cause)
}

func (e *EngineTransientError) Unwrap() error { return e.Cause }

// ProcessInstanceError is the umbrella for any other instance-scoped
// failure not covered by a more specific type.
type ProcessInstanceError struct {
	InstanceID string
	Reason     string
}

func (e *ProcessInstanceError) Error() string {
	return fmt.Sprintf("process instance %s: %s", e.InstanceID, e.Reason)
}

// InstanceGoneError signals a step observed its instance's tokens deleted
// out from under it by a concurrent terminate_instance; the dispatch layer
// swallows it silently.
type InstanceGoneError struct {
	InstanceID string
}

func (e *InstanceGoneError) Error() string {
	return fmt.Sprintf("process instance %s is gone", e.InstanceID)
}
