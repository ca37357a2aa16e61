/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package instance is the Instance Manager: the lifecycle state machine
// for a process instance, variable ingestion, and error recovery.
package instance

import (
	"context"
	"fmt"
	"time"

	"bpmflow/src/core/enginerr"
	"bpmflow/src/core/logger"
	"bpmflow/src/core/models"
	"bpmflow/src/incident"
)

// Store is the subset of the State Store Client the Instance Manager
// needs.
type Store interface {
	SaveDefinition(def bpmnmodel.ProcessDefinition) error
	LoadDefinition(id string) (bpmnmodel.ProcessDefinition, error)
	SaveInstance(inst bpmnmodel.ProcessInstance) error
	LoadInstance(id string) (bpmnmodel.ProcessInstance, error)
	UpsertInstance(inst bpmnmodel.ProcessInstance) (bool, error)
	SetVariable(instanceID, name, scope string, value bpmnmodel.Value) (int64, error)
	ListVariables(instanceID string) ([]bpmnmodel.Variable, error)
	DeleteTokens(instanceID string) error
}

// Executor is the narrow slice of the Process Executor the Instance
// Manager drives at creation time. ResumeInstance does not call it: it
// only moves the instance back to RUNNING.
type Executor interface {
	CreateInitialToken(instanceID, nodeID string) (bpmnmodel.Token, error)
	ExecuteProcess(ctx context.Context, instanceID string, graph *bpmnmodel.Graph, seed ...bpmnmodel.Token) error
}

// Parser is the out-of-scope BPMN XML → Graph collaborator contract.
type Parser interface {
	Parse(xml string) (*bpmnmodel.Graph, error)
}

// VariableInput is one caller-supplied variable at instance creation:
// a declared type tag plus its native value, checked against each other.
type VariableInput struct {
	Name  string
	Tag   bpmnmodel.ValueType
	Value interface{}
}

// Metrics is the ambient observability sink the Instance Manager reports
// creations to; nil-safe via noopMetrics.
type Metrics interface {
	InstanceCreated()
}

type noopMetrics struct{}

func (noopMetrics) InstanceCreated() {}

// Manager is the Instance Manager.
// Менеджер экземпляров процесса
type Manager struct {
	store     Store
	parser    Parser
	incidents *incident.Manager
	executor  Executor
	metrics   Metrics
}

// NewManager builds a Manager. SetExecutor must be called before
// CreateInstance, since the Executor itself depends on this Manager as
// its Lifecycle collaborator (see cmd/bpmflow wiring).
func NewManager(store Store, parser Parser, incidents *incident.Manager) *Manager {
	return &Manager{store: store, parser: parser, incidents: incidents, metrics: noopMetrics{}}
}

// SetExecutor completes the two-way wiring between Manager and Executor.
func (m *Manager) SetExecutor(executor Executor) {
	m.executor = executor
}

// SetMetrics swaps in a real Metrics sink (e.g. the health server's
// counters); optional, since NewManager already wires a no-op default.
func (m *Manager) SetMetrics(metrics Metrics) {
	if metrics != nil {
		m.metrics = metrics
	}
}

// CreateInstance validates the definition and variables, persists the
// instance row RUNNING, writes initial variables at version 1, and drives
// the Executor to create the initial token and run it to its first wait
// state or completion.
func (m *Manager) CreateInstance(ctx context.Context, definitionID string, variables []VariableInput, startEventID string) (bpmnmodel.ProcessInstance, error) {
	return m.CreateInstanceWithID(ctx, bpmnmodel.NewID(), definitionID, variables, startEventID)
}

// CreateInstanceWithID is CreateInstance with a caller-assigned instance
// id, the shape the Dispatch Layer needs: a process.started message
// already carries the instance_id the publisher minted, and redelivery
// of that same message must upsert rather than mint a second instance.
func (m *Manager) CreateInstanceWithID(ctx context.Context, instanceID string, definitionID string, variables []VariableInput, startEventID string) (bpmnmodel.ProcessInstance, error) {
	def, err := m.store.LoadDefinition(definitionID)
	if err != nil {
		return bpmnmodel.ProcessInstance{}, &enginerr.InvalidProcessDefinitionError{Reason: fmt.Sprintf("definition %s not found: %v", definitionID, err)}
	}

	graph, err := m.parser.Parse(def.BPMNXML)
	if err != nil {
		return bpmnmodel.ProcessInstance{}, &enginerr.InvalidProcessDefinitionError{Reason: "failed to parse BPMN graph: " + err.Error()}
	}

	start, err := resolveStartNode(graph, startEventID)
	if err != nil {
		return bpmnmodel.ProcessInstance{}, err
	}

	// Validate every variable before any store write, so a malformed
	// variable fails the whole creation instead of leaving earlier
	// variables' rows orphaned with no instance row to anchor them.
	values := make(map[string]bpmnmodel.Value, len(variables))
	for _, v := range variables {
		value, err := bpmnmodel.ValueFromNative(v.Tag, v.Value)
		if err != nil {
			return bpmnmodel.ProcessInstance{}, &enginerr.InvalidVariableError{Name: v.Name, Reason: err.Error()}
		}
		values[v.Name] = value
	}

	inst := bpmnmodel.NewProcessInstance(instanceID, definitionID)
	inst.Status = bpmnmodel.StatusRunning

	inserted, err := m.store.UpsertInstance(inst)
	if err != nil {
		return bpmnmodel.ProcessInstance{}, &enginerr.EngineTransientError{Cause: err}
	}

	// Only the replica that actually won the insert seeds variables — a
	// redelivered process.started for an instance that already exists must
	// not append a second version of every variable.
	if inserted {
		for _, v := range variables {
			if _, err := m.store.SetVariable(inst.ID, v.Name, "", values[v.Name]); err != nil {
				return bpmnmodel.ProcessInstance{}, &enginerr.EngineTransientError{Cause: err}
			}
		}
	}

	token, err := m.executor.CreateInitialToken(inst.ID, start.ID)
	if err != nil {
		return bpmnmodel.ProcessInstance{}, err
	}

	if err := m.executor.ExecuteProcess(ctx, inst.ID, graph, token); err != nil {
		return bpmnmodel.ProcessInstance{}, err
	}

	if inserted {
		logger.Info("process instance created", logger.String("instance_id", inst.ID), logger.String("definition_id", definitionID))
		m.metrics.InstanceCreated()
	}
	return m.store.LoadInstance(inst.ID)
}

// resolveStartNode picks the explicit start event, or the graph's unique
// one if none was given; multiple start events without a selector fails.
func resolveStartNode(graph *bpmnmodel.Graph, startEventID string) (bpmnmodel.Node, error) {
	if startEventID != "" {
		node, ok := graph.NodeByID(startEventID)
		if !ok || node.Type != bpmnmodel.NodeStart {
			return bpmnmodel.Node{}, &enginerr.InvalidProcessDefinitionError{Reason: "start event " + startEventID + " not found"}
		}
		return node, nil
	}
	starts := graph.StartNodes()
	if len(starts) == 0 {
		return bpmnmodel.Node{}, &enginerr.InvalidProcessDefinitionError{Reason: "process definition has no start event"}
	}
	if len(starts) > 1 {
		return bpmnmodel.Node{}, &enginerr.InvalidProcessDefinitionError{Reason: "process definition has multiple start events and no selector was given"}
	}
	return starts[0], nil
}

// SuspendInstance halts a RUNNING instance.
func (m *Manager) SuspendInstance(id string) error {
	return m.transition(id, bpmnmodel.StatusSuspended, nil)
}

// ResumeInstance returns a SUSPENDED or ERROR instance to RUNNING,
// clearing LastError.
func (m *Manager) ResumeInstance(id string) error {
	return m.transition(id, bpmnmodel.StatusRunning, func(inst *bpmnmodel.ProcessInstance) {
		inst.LastError = ""
	})
}

// TerminateInstance forces a RUNNING or ERROR instance to COMPLETED,
// stamping end_time and removing every token.
func (m *Manager) TerminateInstance(id string) error {
	inst, err := m.store.LoadInstance(id)
	if err != nil {
		return &enginerr.ProcessInstanceError{InstanceID: id, Reason: "not found"}
	}
	if !bpmnmodel.CanTransition(inst.Status, bpmnmodel.StatusCompleted) {
		return &enginerr.InvalidStateTransitionError{From: string(inst.Status), To: string(bpmnmodel.StatusCompleted)}
	}
	if err := m.store.DeleteTokens(id); err != nil {
		return &enginerr.EngineTransientError{Cause: err}
	}
	now := time.Now()
	inst.Status = bpmnmodel.StatusCompleted
	inst.EndTime = &now
	if err := m.store.SaveInstance(inst); err != nil {
		return &enginerr.EngineTransientError{Cause: err}
	}
	logger.Info("process instance terminated", logger.String("instance_id", id))
	return nil
}

// SetErrorState forces a RUNNING instance into ERROR directly (distinct
// from HandleError, which also records the incident).
func (m *Manager) SetErrorState(id string) error {
	return m.transition(id, bpmnmodel.StatusError, nil)
}

func (m *Manager) transition(id string, to bpmnmodel.InstanceStatus, mutate func(*bpmnmodel.ProcessInstance)) error {
	inst, err := m.store.LoadInstance(id)
	if err != nil {
		return &enginerr.ProcessInstanceError{InstanceID: id, Reason: "not found"}
	}
	if !bpmnmodel.CanTransition(inst.Status, to) {
		return &enginerr.InvalidStateTransitionError{From: string(inst.Status), To: string(to)}
	}
	inst.Status = to
	if mutate != nil {
		mutate(&inst)
	}
	if err := m.store.SaveInstance(inst); err != nil {
		return &enginerr.EngineTransientError{Cause: err}
	}
	return nil
}

// LoadInstance exposes the Store's instance lookup, used by the Dispatch
// Layer to confirm an instance still exists before re-entering a timer.
func (m *Manager) LoadInstance(id string) (bpmnmodel.ProcessInstance, error) {
	return m.store.LoadInstance(id)
}

// LoadInstanceGraph loads and parses definitionID's BPMN graph, the
// collaborator call the Dispatch Layer needs before it can re-enter the
// Process Executor for a fired timer (the dispatch layer itself does not
// depend on the Parser directly).
func (m *Manager) LoadInstanceGraph(definitionID string) (*bpmnmodel.Graph, error) {
	def, err := m.store.LoadDefinition(definitionID)
	if err != nil {
		return nil, &enginerr.InvalidProcessDefinitionError{Reason: fmt.Sprintf("definition %s not found: %v", definitionID, err)}
	}
	graph, err := m.parser.Parse(def.BPMNXML)
	if err != nil {
		return nil, &enginerr.InvalidProcessDefinitionError{Reason: "failed to parse BPMN graph: " + err.Error()}
	}
	return graph, nil
}

// GetInstanceVariables returns the latest version of every variable as a
// native value, optionally filtered to one scope.
func (m *Manager) GetInstanceVariables(id string, scope string) (map[string]interface{}, error) {
	vars, err := m.store.ListVariables(id)
	if err != nil {
		return nil, &enginerr.EngineTransientError{Cause: err}
	}
	out := make(map[string]interface{}, len(vars))
	for _, v := range vars {
		if scope != "" && v.Scope != scope {
			continue
		}
		out[v.Name] = v.Value.Native()
	}
	return out, nil
}

// HandleError stores a serialized error context beside the instance,
// raises an incident recording why, and transitions to ERROR.
func (m *Manager) HandleError(ctx context.Context, id string, kind incident.Kind, cause error) error {
	if _, err := m.incidents.Raise(ctx, id, kind, cause.Error(), ""); err != nil {
		logger.Warn("failed to raise incident", logger.String("instance_id", id), logger.Any("error", err.Error()))
	}
	return m.transition(id, bpmnmodel.StatusError, func(inst *bpmnmodel.ProcessInstance) {
		inst.LastError = cause.Error()
	})
}

// InstanceStatus, CompleteInstance and ErrorInstance implement
// process.Lifecycle: the Executor calls back into the Instance Manager to
// check for cooperative suspension and to drive the two transitions that
// originate from inside a run.

func (m *Manager) InstanceStatus(id string) (bpmnmodel.InstanceStatus, error) {
	inst, err := m.store.LoadInstance(id)
	if err != nil {
		return "", &enginerr.InstanceGoneError{InstanceID: id}
	}
	return inst.Status, nil
}

func (m *Manager) CompleteInstance(id string) error {
	return m.transition(id, bpmnmodel.StatusCompleted, func(inst *bpmnmodel.ProcessInstance) {
		now := time.Now()
		inst.EndTime = &now
	})
}

func (m *Manager) ErrorInstance(id string, cause error) error {
	return m.HandleError(context.Background(), id, incident.KindTaskExecution, cause)
}
