/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package process is the Process Executor: the token-based interpreter
// that advances a process instance through its parsed BPMN graph.
package process

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bpmflow/src/core/enginerr"
	"bpmflow/src/core/logger"
	"bpmflow/src/core/models"
	"bpmflow/src/registry"
)

// Store is the subset of the State Store Client the executor needs.
type Store interface {
	GetTokenPositions(instanceID string) ([]bpmnmodel.Token, error)
	AddToken(instanceID string, token bpmnmodel.Token) error
	RemoveToken(instanceID, tokenID string) error
	ReplaceTokenAtomic(old, next bpmnmodel.Token) (bpmnmodel.Token, error)
	DeleteTokens(instanceID string) error
	SetVariable(instanceID, name, scope string, value bpmnmodel.Value) (int64, error)
	GetVariable(instanceID, name, scope string, atVersion int64) (bpmnmodel.Value, bool, error)
	ListVariables(instanceID string) ([]bpmnmodel.Variable, error)
	RecordGatewayArrival(instanceID, gatewayID, activationID string, arriving bpmnmodel.Token) ([]bpmnmodel.Token, error)
	ClearGatewaySync(instanceID, gatewayID, activationID string) error
}

// TimerArmer is the subset of the Timer Scheduler the executor calls when
// it parks a token on an intermediate or boundary timer event.
type TimerArmer interface {
	Arm(record bpmnmodel.TimerRecord) error
	Cancel(id string, expectedVersion int64) error
}

// Lifecycle is the narrow slice of the Instance Manager the executor calls
// back into: reading the current status for cooperative suspension, and
// driving the two transitions that originate from inside a run
// (handle_completion and set_error_state).
type Lifecycle interface {
	InstanceStatus(instanceID string) (bpmnmodel.InstanceStatus, error)
	CompleteInstance(instanceID string) error
	ErrorInstance(instanceID string, cause error) error
}

// Config carries the executor's tunables from process.* configuration.
type Config struct {
	ScriptTimeout time.Duration
}

// Metrics is the ambient observability sink the executor reports steps and
// failures to; nil-safe via noopMetrics so a caller that never wires one
// (every test in this package included) gets silent, harmless counting.
type Metrics interface {
	StepExecuted()
	InstanceFailed()
}

type noopMetrics struct{}

func (noopMetrics) StepExecuted()  {}
func (noopMetrics) InstanceFailed() {}

// Executor advances tokens through a process graph, evaluating gateways,
// invoking the Task Registry for task bodies, and committing every state
// transition to the Store before a step returns.
// Исполнитель процесса
type Executor struct {
	store     Store
	tasks     registry.Registry
	timers    TimerArmer
	lifecycle Lifecycle
	cfg       Config
	elements  *ElementRegistry
	metrics   Metrics
}

// NewExecutor builds an Executor wired to its collaborators.
func NewExecutor(store Store, tasks registry.Registry, timers TimerArmer, lifecycle Lifecycle, cfg Config) *Executor {
	e := &Executor{
		store:     store,
		tasks:     tasks,
		timers:    timers,
		lifecycle: lifecycle,
		cfg:       cfg,
		metrics:   noopMetrics{},
	}
	e.elements = NewElementRegistry(e)
	return e
}

// SetMetrics swaps in a real Metrics sink (e.g. the health server's
// counters); optional, since NewExecutor already wires a no-op default.
func (e *Executor) SetMetrics(m Metrics) {
	if m != nil {
		e.metrics = m
	}
}

// CreateInitialToken creates the single entry token for an instance at
// nodeID. If a token already sits at that (instance, node) position it is
// returned instead of adding a duplicate.
func (e *Executor) CreateInitialToken(instanceID, nodeID string) (bpmnmodel.Token, error) {
	existing, err := e.store.GetTokenPositions(instanceID)
	if err != nil {
		return bpmnmodel.Token{}, &enginerr.EngineTransientError{Cause: err}
	}
	for _, t := range existing {
		if t.NodeID == nodeID {
			return t, nil
		}
	}

	token := bpmnmodel.NewToken(instanceID, nodeID)
	if err := e.store.AddToken(instanceID, token); err != nil {
		return bpmnmodel.Token{}, &enginerr.EngineTransientError{Cause: err}
	}
	return token, nil
}

// GetTokenPositions exposes the Store's token listing, used by the
// Dispatch Layer to find the token parked at a fired timer node.
func (e *Executor) GetTokenPositions(instanceID string) ([]bpmnmodel.Token, error) {
	return e.store.GetTokenPositions(instanceID)
}

// ReplaceTokenAtomic exposes the Store's atomic token replace, used by
// the Dispatch Layer to stamp a parked token with timerFiredKey before
// re-entering ExecuteProcess at its node.
func (e *Executor) ReplaceTokenAtomic(old, next bpmnmodel.Token) (bpmnmodel.Token, error) {
	return e.store.ReplaceTokenAtomic(old, next)
}

// MoveToken performs the atomic delete-old + create-new move and returns
// the new token.
func (e *Executor) MoveToken(token bpmnmodel.Token, targetNodeID string) (bpmnmodel.Token, error) {
	next := token.Clone(targetNodeID)
	saved, err := e.store.ReplaceTokenAtomic(token, next)
	if err != nil {
		return bpmnmodel.Token{}, &enginerr.EngineTransientError{Cause: err}
	}
	return saved, nil
}

// ExecuteProcess drives every runnable token of instanceID through graph
// until each either reaches a wait state (user/receive task, armed timer)
// or the instance terminates. seed, when non-empty, is processed first in
// the order given (the token(s) the caller just created or unparked);
// any other already-runnable token found in the store is appended after,
// ordered by token id for a deterministic (if not true arrival-order)
// FIFO approximation across a restart where arrival order itself was not
// persisted.
func (e *Executor) ExecuteProcess(ctx context.Context, instanceID string, graph *bpmnmodel.Graph, seed ...bpmnmodel.Token) error {
	queue, err := e.buildQueue(instanceID, graph, seed)
	if err != nil {
		return err
	}

	for len(queue) > 0 {
		status, err := e.lifecycle.InstanceStatus(instanceID)
		if err != nil {
			return &enginerr.EngineTransientError{Cause: err}
		}
		if status != bpmnmodel.StatusRunning {
			// suspend_instance halts cooperatively after the current step;
			// terminate_instance has already removed tokens, so a step
			// observing the instance gone is not an error.
			return nil
		}

		token := queue[0]
		queue = queue[1:]

		result, err := e.step(ctx, instanceID, graph, token)
		if err != nil {
			if _, gone := err.(*enginerr.InstanceGoneError); gone {
				return nil
			}
			if lerr := e.lifecycle.ErrorInstance(instanceID, err); lerr != nil {
				return &enginerr.EngineTransientError{Cause: lerr}
			}
			e.metrics.InstanceFailed()
			return nil
		}
		if result == nil {
			continue
		}
		queue = append(queue, result.Continuations...)
	}

	return e.handleCompletionIfDone(instanceID, graph)
}

// buildQueue seeds the run queue and appends any other token already
// sitting at a non-wait-state node (e.g. after crash recovery).
func (e *Executor) buildQueue(instanceID string, graph *bpmnmodel.Graph, seed []bpmnmodel.Token) ([]bpmnmodel.Token, error) {
	queue := append([]bpmnmodel.Token{}, seed...)

	seen := map[string]bool{}
	for _, t := range seed {
		seen[t.ID] = true
	}

	existing, err := e.store.GetTokenPositions(instanceID)
	if err != nil {
		return nil, &enginerr.EngineTransientError{Cause: err}
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].ID < existing[j].ID })
	for _, t := range existing {
		if seen[t.ID] {
			continue
		}
		if graph != nil {
			if node, ok := graph.NodeByID(t.NodeID); ok &&
				((node.Type == bpmnmodel.NodeTask && node.TaskKind.Async()) || node.Type == bpmnmodel.NodeIntermediate) {
				continue
			}
		}
		queue = append(queue, t)
	}
	return queue, nil
}

// step dispatches one token to the ElementExecutor matching its current
// node, translating the result into either further continuations or a
// parked wait state.
func (e *Executor) step(ctx context.Context, instanceID string, graph *bpmnmodel.Graph, token bpmnmodel.Token) (*stepResult, error) {
	node, ok := graph.NodeByID(token.NodeID)
	if !ok {
		return nil, &enginerr.InvalidProcessDefinitionError{Reason: fmt.Sprintf("token %s references unknown node %s", token.ID, token.NodeID)}
	}

	exec, ok := e.elements.Get(node)
	if !ok {
		return nil, &enginerr.InvalidProcessDefinitionError{Reason: fmt.Sprintf("no executor registered for node kind %q", node.Type)}
	}

	ec := &ExecutionContext{
		Ctx:        ctx,
		InstanceID: instanceID,
		Graph:      graph,
		Token:      token,
		Exec:       e,
	}

	out, err := exec.Execute(ec, node)
	if err != nil {
		return nil, err
	}

	logger.Debug("executed element",
		logger.String("instance_id", instanceID),
		logger.String("node_id", node.ID),
		logger.String("token_id", token.ID))
	e.metrics.StepExecuted()

	return e.applyResult(ec, out)
}

// stepResult carries the tokens now runnable as a consequence of one
// element execution.
type stepResult struct {
	Continuations []bpmnmodel.Token
}

// applyResult folds an ElementExecutor's ExecutionResult into the token
// store: advancing along NextNodeIDs, registering NewTokens from a split,
// and leaving nothing behind for a token that parked at a wait state or
// was consumed.
func (e *Executor) applyResult(ec *ExecutionContext, out *ExecutionResult) (*stepResult, error) {
	if out == nil {
		return nil, nil
	}

	res := &stepResult{}

	if out.Consumed {
		if err := e.store.RemoveToken(ec.InstanceID, ec.Token.ID); err != nil {
			return nil, &enginerr.EngineTransientError{Cause: err}
		}
	}

	for _, nodeID := range out.NextNodeIDs {
		moved, err := e.MoveToken(ec.Token, nodeID)
		if err != nil {
			return nil, err
		}
		res.Continuations = append(res.Continuations, moved)
		ec.Token = moved // subsequent NextNodeIDs clone from the moved position
	}

	for _, t := range out.NewTokens {
		if err := e.store.AddToken(ec.InstanceID, t); err != nil {
			return nil, &enginerr.EngineTransientError{Cause: err}
		}
		res.Continuations = append(res.Continuations, t)
	}

	// Waiting (user/receive task, armed timer): token already persisted at
	// its current node by the caller (task executor / timer executor), no
	// further action — it simply does not get requeued.

	return res, nil
}

// instanceVariableBindings reads every variable's latest version as a
// native map, shared by gateway condition evaluation and task invocation.
func (e *Executor) instanceVariableBindings(instanceID string) map[string]interface{} {
	vars, err := e.store.ListVariables(instanceID)
	if err != nil {
		logger.Warn("failed to load instance variables",
			logger.String("instance_id", instanceID), logger.Any("error", err.Error()))
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(vars))
	for _, v := range vars {
		out[v.Name] = v.Value.Native()
	}
	return out
}

// handleCompletionIfDone transitions the instance to COMPLETED once its
// token count reaches zero, the contract of spec.md §4.1's
// handle_completion.
func (e *Executor) handleCompletionIfDone(instanceID string, graph *bpmnmodel.Graph) error {
	remaining, err := e.store.GetTokenPositions(instanceID)
	if err != nil {
		return &enginerr.EngineTransientError{Cause: err}
	}
	if len(remaining) > 0 {
		return nil
	}
	return e.lifecycle.CompleteInstance(instanceID)
}
