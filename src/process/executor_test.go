/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package process

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bpmflow/src/core/models"
	"bpmflow/src/registry"
)

// fakeStore is an in-memory stand-in for the Store collaborator, enough
// surface to drive ExecuteProcess end to end without BadgerDB.
type fakeStore struct {
	mu        sync.Mutex
	tokens    map[string]map[string]bpmnmodel.Token // instanceID -> tokenID -> token
	variables map[string]map[string]bpmnmodel.Value // instanceID -> name -> value
	gateway   map[string]map[string]bpmnmodel.Token // gatewaySyncKey -> tokenID -> token
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tokens:    map[string]map[string]bpmnmodel.Token{},
		variables: map[string]map[string]bpmnmodel.Value{},
		gateway:   map[string]map[string]bpmnmodel.Token{},
	}
}

func (s *fakeStore) GetTokenPositions(instanceID string) ([]bpmnmodel.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bpmnmodel.Token
	for _, t := range s.tokens[instanceID] {
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStore) AddToken(instanceID string, token bpmnmodel.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens[instanceID] == nil {
		s.tokens[instanceID] = map[string]bpmnmodel.Token{}
	}
	s.tokens[instanceID][token.ID] = token
	return nil
}

func (s *fakeStore) RemoveToken(instanceID, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens[instanceID], tokenID)
	return nil
}

func (s *fakeStore) ReplaceTokenAtomic(old, next bpmnmodel.Token) (bpmnmodel.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens[old.InstanceID] == nil {
		return bpmnmodel.Token{}, fmt.Errorf("no tokens for instance %s", old.InstanceID)
	}
	delete(s.tokens[old.InstanceID], old.ID)
	s.tokens[old.InstanceID][next.ID] = next
	return next, nil
}

func (s *fakeStore) DeleteTokens(instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, instanceID)
	return nil
}

func (s *fakeStore) SetVariable(instanceID, name, scope string, value bpmnmodel.Value) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.variables[instanceID] == nil {
		s.variables[instanceID] = map[string]bpmnmodel.Value{}
	}
	s.variables[instanceID][name] = value
	return 1, nil
}

func (s *fakeStore) GetVariable(instanceID, name, scope string, atVersion int64) (bpmnmodel.Value, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variables[instanceID][name]
	return v, ok, nil
}

func (s *fakeStore) ListVariables(instanceID string) ([]bpmnmodel.Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bpmnmodel.Variable
	for name, v := range s.variables[instanceID] {
		out = append(out, bpmnmodel.Variable{InstanceID: instanceID, Name: name, Value: v})
	}
	return out, nil
}

func (s *fakeStore) RecordGatewayArrival(instanceID, gatewayID, activationID string, arriving bpmnmodel.Token) ([]bpmnmodel.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := instanceID + "|" + gatewayID + "|" + activationID
	if s.gateway[key] == nil {
		s.gateway[key] = map[string]bpmnmodel.Token{}
	}
	s.gateway[key][arriving.ID] = arriving
	var out []bpmnmodel.Token
	for _, t := range s.gateway[key] {
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStore) ClearGatewaySync(instanceID, gatewayID, activationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := instanceID + "|" + gatewayID + "|" + activationID
	delete(s.gateway, key)
	return nil
}

// fakeLifecycle is a minimal Lifecycle stand-in; RUNNING by default, with
// CompleteInstance/ErrorInstance recorded for assertions.
type fakeLifecycle struct {
	mu         sync.Mutex
	status     bpmnmodel.InstanceStatus
	completed  bool
	erroredErr error
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{status: bpmnmodel.StatusRunning}
}

func (l *fakeLifecycle) InstanceStatus(instanceID string) (bpmnmodel.InstanceStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status, nil
}

func (l *fakeLifecycle) CompleteInstance(instanceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed = true
	l.status = bpmnmodel.StatusCompleted
	return nil
}

func (l *fakeLifecycle) ErrorInstance(instanceID string, cause error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.erroredErr = cause
	l.status = bpmnmodel.StatusError
	return nil
}

// fakeTimerArmer records Arm calls without ever actually firing.
type fakeTimerArmer struct {
	mu    sync.Mutex
	armed []bpmnmodel.TimerRecord
}

func (f *fakeTimerArmer) Arm(record bpmnmodel.TimerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = append(f.armed, record)
	return nil
}

func (f *fakeTimerArmer) Cancel(id string, expectedVersion int64) error { return nil }

func newTestExecutor() (*Executor, *fakeStore, *fakeLifecycle, *registry.InMemoryRegistry) {
	store := newFakeStore()
	lifecycle := newFakeLifecycle()
	tasks := registry.NewInMemoryRegistry()
	exec := NewExecutor(store, tasks, &fakeTimerArmer{}, lifecycle, Config{})
	return exec, store, lifecycle, tasks
}

func linearGraph() *bpmnmodel.Graph {
	return &bpmnmodel.Graph{
		Nodes: []bpmnmodel.Node{
			{ID: "start", Type: bpmnmodel.NodeStart},
			{ID: "task", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskService},
			{ID: "end", Type: bpmnmodel.NodeEnd},
		},
		Flows: []bpmnmodel.Flow{
			{ID: "f1", SourceRef: "start", TargetRef: "task"},
			{ID: "f2", SourceRef: "task", TargetRef: "end"},
		},
	}
}

func TestCreateInitialToken_IsIdempotentPerNode(t *testing.T) {
	exec, _, _, _ := newTestExecutor()

	first, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)

	second, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "creating the initial token twice at the same node must not duplicate it")
}

func TestExecuteProcess_RunsStartToEndSynchronously(t *testing.T) {
	exec, store, lifecycle, tasks := newTestExecutor()
	tasks.Register("task", func(ctx context.Context, input registry.TaskInput) (registry.TaskResult, error) {
		return registry.TaskResult{Output: map[string]interface{}{"done": true}}, nil
	})

	graph := linearGraph()
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)

	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	remaining, err := store.GetTokenPositions("inst-1")
	require.NoError(t, err)
	assert.Empty(t, remaining, "the instance should have no tokens left once it reaches the end event")
	assert.True(t, lifecycle.completed)
}

func TestExecuteProcess_AsyncTaskParksToken(t *testing.T) {
	exec, store, lifecycle, _ := newTestExecutor()

	graph := &bpmnmodel.Graph{
		Nodes: []bpmnmodel.Node{
			{ID: "start", Type: bpmnmodel.NodeStart},
			{ID: "review", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskUser},
			{ID: "end", Type: bpmnmodel.NodeEnd},
		},
		Flows: []bpmnmodel.Flow{
			{ID: "f1", SourceRef: "start", TargetRef: "review"},
			{ID: "f2", SourceRef: "review", TargetRef: "end"},
		},
	}
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)

	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	remaining, err := store.GetTokenPositions("inst-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "review", remaining[0].NodeID)
	assert.False(t, lifecycle.completed)
}

func TestExecuteProcess_TaskFailureRaisesErrorState(t *testing.T) {
	exec, _, lifecycle, tasks := newTestExecutor()
	tasks.Register("task", func(ctx context.Context, input registry.TaskInput) (registry.TaskResult, error) {
		return registry.TaskResult{}, fmt.Errorf("boom")
	})

	graph := linearGraph()
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)

	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	assert.Error(t, lifecycle.erroredErr)
	assert.Equal(t, bpmnmodel.StatusError, lifecycle.status)
}

func TestExecuteProcess_SuspendedInstanceHaltsBeforeStepping(t *testing.T) {
	exec, store, lifecycle, _ := newTestExecutor()
	lifecycle.status = bpmnmodel.StatusSuspended

	graph := linearGraph()
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)

	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	remaining, err := store.GetTokenPositions("inst-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1, "a suspended instance must not advance its token")
	assert.Equal(t, "start", remaining[0].NodeID)
}

func TestExclusiveGateway_MatchesFirstTrueCondition(t *testing.T) {
	exec, store, _, tasks := newTestExecutor()
	tasks.Register("task-a", func(ctx context.Context, input registry.TaskInput) (registry.TaskResult, error) {
		return registry.TaskResult{}, nil
	})
	_, err := store.SetVariable("inst-1", "amount", "", bpmnmodel.NewIntegerValue(500))
	require.NoError(t, err)

	graph := &bpmnmodel.Graph{
		Nodes: []bpmnmodel.Node{
			{ID: "start", Type: bpmnmodel.NodeStart},
			{ID: "gw", Type: bpmnmodel.NodeGateway, GatewayKind: bpmnmodel.GatewayExclusive},
			{ID: "task-a", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskService},
			{ID: "task-b", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskUser},
			{ID: "end", Type: bpmnmodel.NodeEnd},
		},
		Flows: []bpmnmodel.Flow{
			{ID: "f1", SourceRef: "start", TargetRef: "gw"},
			{ID: "f2", SourceRef: "gw", TargetRef: "task-a", Condition: "amount > 100"},
			{ID: "f3", SourceRef: "gw", TargetRef: "task-b", IsDefault: true},
			{ID: "f4", SourceRef: "task-a", TargetRef: "end"},
		},
	}
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	remaining, err := store.GetTokenPositions("inst-1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestExclusiveGateway_FallsBackToDefaultFlow(t *testing.T) {
	exec, store, _, _ := newTestExecutor()
	_, err := store.SetVariable("inst-1", "amount", "", bpmnmodel.NewIntegerValue(1))
	require.NoError(t, err)

	graph := &bpmnmodel.Graph{
		Nodes: []bpmnmodel.Node{
			{ID: "start", Type: bpmnmodel.NodeStart},
			{ID: "gw", Type: bpmnmodel.NodeGateway, GatewayKind: bpmnmodel.GatewayExclusive},
			{ID: "task-a", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskService},
			{ID: "task-b", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskUser},
		},
		Flows: []bpmnmodel.Flow{
			{ID: "f1", SourceRef: "start", TargetRef: "gw"},
			{ID: "f2", SourceRef: "gw", TargetRef: "task-a", Condition: "amount > 100"},
			{ID: "f3", SourceRef: "gw", TargetRef: "task-b", IsDefault: true},
		},
	}
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	remaining, err := store.GetTokenPositions("inst-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "task-b", remaining[0].NodeID, "no matching condition and no match should fall to the default flow")
}

func TestExclusiveGateway_NoMatchAndNoDefaultErrors(t *testing.T) {
	exec, _, lifecycle, _ := newTestExecutor()

	graph := &bpmnmodel.Graph{
		Nodes: []bpmnmodel.Node{
			{ID: "start", Type: bpmnmodel.NodeStart},
			{ID: "gw", Type: bpmnmodel.NodeGateway, GatewayKind: bpmnmodel.GatewayExclusive},
			{ID: "task-a", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskService},
		},
		Flows: []bpmnmodel.Flow{
			{ID: "f1", SourceRef: "start", TargetRef: "gw"},
			{ID: "f2", SourceRef: "gw", TargetRef: "task-a", Condition: "1 > 2"},
		},
	}
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	assert.Error(t, lifecycle.erroredErr)
}

func parallelForkJoinGraph() *bpmnmodel.Graph {
	return &bpmnmodel.Graph{
		Nodes: []bpmnmodel.Node{
			{ID: "start", Type: bpmnmodel.NodeStart},
			{ID: "fork", Type: bpmnmodel.NodeGateway, GatewayKind: bpmnmodel.GatewayParallel},
			{ID: "task-a", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskService},
			{ID: "task-b", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskService},
			{ID: "join", Type: bpmnmodel.NodeGateway, GatewayKind: bpmnmodel.GatewayParallel},
			{ID: "end", Type: bpmnmodel.NodeEnd},
		},
		Flows: []bpmnmodel.Flow{
			{ID: "f1", SourceRef: "start", TargetRef: "fork"},
			{ID: "f2", SourceRef: "fork", TargetRef: "task-a"},
			{ID: "f3", SourceRef: "fork", TargetRef: "task-b"},
			{ID: "f4", SourceRef: "task-a", TargetRef: "join"},
			{ID: "f5", SourceRef: "task-b", TargetRef: "join"},
			{ID: "f6", SourceRef: "join", TargetRef: "end"},
		},
	}
}

func TestParallelGateway_ForkThenJoinReachesEnd(t *testing.T) {
	exec, store, lifecycle, _ := newTestExecutor()

	graph := parallelForkJoinGraph()
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	remaining, err := store.GetTokenPositions("inst-1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.True(t, lifecycle.completed)
}

func TestParallelGateway_JoinWaitsForAllBranches(t *testing.T) {
	exec, store, _, _ := newTestExecutor()

	graph := &bpmnmodel.Graph{
		Nodes: []bpmnmodel.Node{
			{ID: "start", Type: bpmnmodel.NodeStart},
			{ID: "fork", Type: bpmnmodel.NodeGateway, GatewayKind: bpmnmodel.GatewayParallel},
			{ID: "task-a", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskUser},
			{ID: "task-b", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskUser},
			{ID: "join", Type: bpmnmodel.NodeGateway, GatewayKind: bpmnmodel.GatewayParallel},
			{ID: "end", Type: bpmnmodel.NodeEnd},
		},
		Flows: []bpmnmodel.Flow{
			{ID: "f1", SourceRef: "start", TargetRef: "fork"},
			{ID: "f2", SourceRef: "fork", TargetRef: "task-a"},
			{ID: "f3", SourceRef: "fork", TargetRef: "task-b"},
			{ID: "f4", SourceRef: "task-a", TargetRef: "join"},
			{ID: "f5", SourceRef: "task-b", TargetRef: "join"},
			{ID: "f6", SourceRef: "join", TargetRef: "end"},
		},
	}
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	remaining, err := store.GetTokenPositions("inst-1")
	require.NoError(t, err)
	require.Len(t, remaining, 2, "both user-task branches should still be parked, neither having reached the join yet")
}

func TestInclusiveGateway_ActivatesMatchingBranchesAndJoins(t *testing.T) {
	exec, store, lifecycle, _ := newTestExecutor()
	_, err := store.SetVariable("inst-1", "x", "", bpmnmodel.NewIntegerValue(1))
	require.NoError(t, err)

	graph := &bpmnmodel.Graph{
		Nodes: []bpmnmodel.Node{
			{ID: "start", Type: bpmnmodel.NodeStart},
			{ID: "fork", Type: bpmnmodel.NodeGateway, GatewayKind: bpmnmodel.GatewayInclusive},
			{ID: "task-a", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskService},
			{ID: "task-b", Type: bpmnmodel.NodeTask, TaskKind: bpmnmodel.TaskService},
			{ID: "join", Type: bpmnmodel.NodeGateway, GatewayKind: bpmnmodel.GatewayInclusive},
			{ID: "end", Type: bpmnmodel.NodeEnd},
		},
		Flows: []bpmnmodel.Flow{
			{ID: "f1", SourceRef: "start", TargetRef: "fork"},
			{ID: "f2", SourceRef: "fork", TargetRef: "task-a", Condition: "x >= 1"},
			{ID: "f3", SourceRef: "fork", TargetRef: "task-b", Condition: "x >= 2"},
			{ID: "f4", SourceRef: "task-a", TargetRef: "join"},
			{ID: "f5", SourceRef: "task-b", TargetRef: "join"},
			{ID: "f6", SourceRef: "join", TargetRef: "end"},
		},
	}
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	remaining, err := store.GetTokenPositions("inst-1")
	require.NoError(t, err)
	assert.Empty(t, remaining, "the inclusive join should need only the one branch its split actually activated")
	assert.True(t, lifecycle.completed)
}

type fakeMetrics struct {
	mu             sync.Mutex
	steps          int
	instanceErrors int
}

func (f *fakeMetrics) StepExecuted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps++
}

func (f *fakeMetrics) InstanceFailed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instanceErrors++
}

func TestExecutor_SetMetricsCountsStepsAndFailures(t *testing.T) {
	exec, _, _, tasks := newTestExecutor()
	metrics := &fakeMetrics{}
	exec.SetMetrics(metrics)
	tasks.Register("task", func(ctx context.Context, input registry.TaskInput) (registry.TaskResult, error) {
		return registry.TaskResult{}, nil
	})

	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", linearGraph(), seed))

	assert.Equal(t, 3, metrics.steps, "the start event, the task and the end event should each count one executed step")
	assert.Equal(t, 0, metrics.instanceErrors)
}

func TestExecutor_SetMetricsCountsInstanceFailure(t *testing.T) {
	exec, _, _, tasks := newTestExecutor()
	metrics := &fakeMetrics{}
	exec.SetMetrics(metrics)
	tasks.Register("task", func(ctx context.Context, input registry.TaskInput) (registry.TaskResult, error) {
		return registry.TaskResult{}, fmt.Errorf("boom")
	})

	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", linearGraph(), seed))

	assert.Equal(t, 1, metrics.instanceErrors)
}

func TestTaskExecutor_SynchronousTaskStoresOutputAsScopedVariable(t *testing.T) {
	exec, store, _, tasks := newTestExecutor()
	tasks.Register("task", func(ctx context.Context, input registry.TaskInput) (registry.TaskResult, error) {
		return registry.TaskResult{Output: map[string]interface{}{"result": "ok"}}, nil
	})

	graph := linearGraph()
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	v, ok := store.variables["inst-1"]["result"]
	require.True(t, ok)
	assert.Equal(t, "ok", v.Native())
}

func TestTimerEventExecutor_ArmsTimerAndParksToken(t *testing.T) {
	store := newFakeStore()
	lifecycle := newFakeLifecycle()
	armer := &fakeTimerArmer{}
	exec := NewExecutor(store, registry.NewInMemoryRegistry(), armer, lifecycle, Config{})

	graph := &bpmnmodel.Graph{
		Nodes: []bpmnmodel.Node{
			{ID: "start", Type: bpmnmodel.NodeStart},
			{ID: "wait", Type: bpmnmodel.NodeIntermediate, EventType: bpmnmodel.EventTimer, TimerDefinition: "PT10M"},
			{ID: "end", Type: bpmnmodel.NodeEnd},
		},
		Flows: []bpmnmodel.Flow{
			{ID: "f1", SourceRef: "start", TargetRef: "wait"},
			{ID: "f2", SourceRef: "wait", TargetRef: "end"},
		},
	}
	seed, err := exec.CreateInitialToken("inst-1", "start")
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, seed))

	require.Len(t, armer.armed, 1)
	assert.Equal(t, "wait", armer.armed[0].NodeID)

	remaining, err := store.GetTokenPositions("inst-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "wait", remaining[0].NodeID)
}

func TestTimerEventExecutor_FiredTokenAdvancesPastWait(t *testing.T) {
	exec, store, lifecycle, _ := newTestExecutor()

	graph := &bpmnmodel.Graph{
		Nodes: []bpmnmodel.Node{
			{ID: "wait", Type: bpmnmodel.NodeIntermediate, EventType: bpmnmodel.EventTimer, TimerDefinition: "PT10M"},
			{ID: "end", Type: bpmnmodel.NodeEnd},
		},
		Flows: []bpmnmodel.Flow{
			{ID: "f1", SourceRef: "wait", TargetRef: "end"},
		},
	}
	tok := bpmnmodel.NewToken("inst-1", "wait")
	tok.Data = map[string]bpmnmodel.Value{timerFiredKey: bpmnmodel.NewBooleanValue(true)}
	require.NoError(t, store.AddToken("inst-1", tok))

	require.NoError(t, exec.ExecuteProcess(context.Background(), "inst-1", graph, tok))

	remaining, err := store.GetTokenPositions("inst-1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.True(t, lifecycle.completed)
}
