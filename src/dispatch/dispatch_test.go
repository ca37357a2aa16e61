/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bpmflow/src/bus"
	"bpmflow/src/core/enginerr"
	"bpmflow/src/core/models"
	"bpmflow/src/instance"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]bus.Handler
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: map[string]bus.Handler{}}
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, topic string, handler bus.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

type fakeLocker struct {
	mu        sync.Mutex
	held      map[string]string
	acquireOK bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]string{}, acquireOK: true}
}

func (f *fakeLocker) AcquireLock(key, owner string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.acquireOK {
		return false, nil
	}
	f.held[key] = owner
	return true, nil
}

func (f *fakeLocker) ReleaseLock(key, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

type fakeInstanceManager struct {
	mu          sync.Mutex
	created     []string
	createErr   error
	graph       *bpmnmodel.Graph
	graphErr    error
	instances   map[string]bpmnmodel.ProcessInstance
	loadInstErr error
}

func newFakeInstanceManager() *fakeInstanceManager {
	return &fakeInstanceManager{instances: map[string]bpmnmodel.ProcessInstance{}}
}

func (f *fakeInstanceManager) CreateInstanceWithID(ctx context.Context, instanceID, definitionID string, variables []instance.VariableInput, startEventID string) (bpmnmodel.ProcessInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return bpmnmodel.ProcessInstance{}, f.createErr
	}
	f.created = append(f.created, instanceID)
	inst := bpmnmodel.NewProcessInstance(instanceID, definitionID)
	f.instances[instanceID] = inst
	return inst, nil
}

func (f *fakeInstanceManager) LoadInstanceGraph(definitionID string) (*bpmnmodel.Graph, error) {
	return f.graph, f.graphErr
}

func (f *fakeInstanceManager) LoadInstance(id string) (bpmnmodel.ProcessInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadInstErr != nil {
		return bpmnmodel.ProcessInstance{}, f.loadInstErr
	}
	inst, ok := f.instances[id]
	if !ok {
		return bpmnmodel.ProcessInstance{}, fmt.Errorf("instance %s not found", id)
	}
	return inst, nil
}

type fakeExecutor struct {
	mu          sync.Mutex
	executed    []string
	tokens      map[string][]bpmnmodel.Token
	executedErr error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{tokens: map[string][]bpmnmodel.Token{}}
}

func (f *fakeExecutor) ExecuteProcess(ctx context.Context, instanceID string, graph *bpmnmodel.Graph, seed ...bpmnmodel.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, instanceID)
	return f.executedErr
}

func (f *fakeExecutor) GetTokenPositions(instanceID string) ([]bpmnmodel.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[instanceID], nil
}

func (f *fakeExecutor) ReplaceTokenAtomic(old, next bpmnmodel.Token) (bpmnmodel.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	toks := f.tokens[old.InstanceID]
	for i, t := range toks {
		if t.ID == old.ID {
			toks[i] = next
			f.tokens[old.InstanceID] = toks
			return next, nil
		}
	}
	return bpmnmodel.Token{}, fmt.Errorf("token %s not found", old.ID)
}

func TestHandleProcessStarted_CreatesInstanceWithVariables(t *testing.T) {
	im := newFakeInstanceManager()
	d := New(newFakeSubscriber(), newFakeLocker(), im, newFakeExecutor(), 4)

	payload, err := json.Marshal(ProcessStartedPayload{
		InstanceID:   "inst-1",
		DefinitionID: "def-1",
		Variables:    map[string]interface{}{"amount": 100.0, "approved": true, "name": "x"},
	})
	require.NoError(t, err)

	require.NoError(t, d.handleProcessStarted(context.Background(), payload))
	assert.Equal(t, []string{"inst-1"}, im.created)
}

func TestHandleProcessStarted_InvalidJSONFails(t *testing.T) {
	d := New(newFakeSubscriber(), newFakeLocker(), newFakeInstanceManager(), newFakeExecutor(), 4)
	err := d.handleProcessStarted(context.Background(), []byte("not json"))
	assert.Error(t, err)
}

func TestHandleProcessStarted_LockBusyReturnsTransientError(t *testing.T) {
	locker := newFakeLocker()
	locker.acquireOK = false
	d := New(newFakeSubscriber(), locker, newFakeInstanceManager(), newFakeExecutor(), 4)

	payload, err := json.Marshal(ProcessStartedPayload{InstanceID: "inst-1", DefinitionID: "def-1"})
	require.NoError(t, err)

	err = d.handleProcessStarted(context.Background(), payload)
	require.Error(t, err)
	var transient *enginerr.EngineTransientError
	assert.ErrorAs(t, err, &transient)
}

func TestHandleProcessStarted_ReleasesLockAfterSuccess(t *testing.T) {
	locker := newFakeLocker()
	im := newFakeInstanceManager()
	d := New(newFakeSubscriber(), locker, im, newFakeExecutor(), 4)

	payload, err := json.Marshal(ProcessStartedPayload{InstanceID: "inst-1", DefinitionID: "def-1"})
	require.NoError(t, err)
	require.NoError(t, d.handleProcessStarted(context.Background(), payload))

	assert.Empty(t, locker.held, "the advisory lock must be released once the handler finishes")
}

func TestHandleProcessStarted_PermanentFailureIsSwallowed(t *testing.T) {
	im := newFakeInstanceManager()
	im.createErr = &enginerr.InvalidProcessDefinitionError{Reason: "bad definition"}
	d := New(newFakeSubscriber(), newFakeLocker(), im, newFakeExecutor(), 4)

	payload, err := json.Marshal(ProcessStartedPayload{InstanceID: "inst-1", DefinitionID: "def-1"})
	require.NoError(t, err)

	assert.NoError(t, d.handleProcessStarted(context.Background(), payload), "a permanent validation failure must not be left for bus redelivery")
}

func TestHandleTimerTriggered_InstanceGoneIsSwallowed(t *testing.T) {
	im := newFakeInstanceManager()
	im.loadInstErr = fmt.Errorf("gone")
	d := New(newFakeSubscriber(), newFakeLocker(), im, newFakeExecutor(), 4)

	payload, err := json.Marshal(TimerTriggeredPayload{InstanceID: "inst-1", DefinitionID: "def-1", NodeID: "wait"})
	require.NoError(t, err)

	assert.NoError(t, d.handleTimerTriggered(context.Background(), payload))
}

func TestHandleTimerTriggered_RedeliveryAfterTokenAdvancedIsNoOp(t *testing.T) {
	im := newFakeInstanceManager()
	im.instances["inst-1"] = bpmnmodel.NewProcessInstance("inst-1", "def-1")
	im.graph = &bpmnmodel.Graph{}
	exec := newFakeExecutor() // no tokens parked at "wait" — already advanced
	d := New(newFakeSubscriber(), newFakeLocker(), im, exec, 4)

	payload, err := json.Marshal(TimerTriggeredPayload{InstanceID: "inst-1", DefinitionID: "def-1", NodeID: "wait"})
	require.NoError(t, err)

	require.NoError(t, d.handleTimerTriggered(context.Background(), payload))
	assert.Empty(t, exec.executed, "no token waiting at the node means no re-entry is needed")
}

func TestHandleTimerTriggered_StampsTokenAndReenters(t *testing.T) {
	im := newFakeInstanceManager()
	im.instances["inst-1"] = bpmnmodel.NewProcessInstance("inst-1", "def-1")
	im.graph = &bpmnmodel.Graph{}
	exec := newFakeExecutor()
	tok := bpmnmodel.NewToken("inst-1", "wait")
	exec.tokens["inst-1"] = []bpmnmodel.Token{tok}
	d := New(newFakeSubscriber(), newFakeLocker(), im, exec, 4)

	payload, err := json.Marshal(TimerTriggeredPayload{InstanceID: "inst-1", DefinitionID: "def-1", NodeID: "wait"})
	require.NoError(t, err)

	require.NoError(t, d.handleTimerTriggered(context.Background(), payload))
	require.Len(t, exec.executed, 1)
	assert.Equal(t, "inst-1", exec.executed[0])

	stamped := exec.tokens["inst-1"][0]
	fired, ok := stamped.Data[timerFiredKey]
	require.True(t, ok)
	assert.True(t, fired.Boolean)
}

func TestUnparkTimerToken_NoTokenAtNodeReturnsNil(t *testing.T) {
	exec := newFakeExecutor()
	d := &Dispatcher{executor: exec}
	saved, err := d.unparkTimerToken("inst-1", "missing-node")
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestClassifyRetry_TransientErrorPassesThrough(t *testing.T) {
	err := &enginerr.EngineTransientError{Cause: fmt.Errorf("db down")}
	assert.Equal(t, err, classifyRetry(err))
}

func TestClassifyRetry_InstanceGoneIsSwallowed(t *testing.T) {
	err := &enginerr.InstanceGoneError{InstanceID: "inst-1"}
	assert.NoError(t, classifyRetry(err))
}

func TestClassifyRetry_OtherErrorsAreSwallowed(t *testing.T) {
	assert.NoError(t, classifyRetry(fmt.Errorf("validation failed")))
}

func TestClassifyRetry_NilIsNil(t *testing.T) {
	assert.NoError(t, classifyRetry(nil))
}

func TestInferValueType(t *testing.T) {
	assert.Equal(t, bpmnmodel.TypeFloat, inferValueType(1.5))
	assert.Equal(t, bpmnmodel.TypeBoolean, inferValueType(true))
	assert.Equal(t, bpmnmodel.TypeString, inferValueType("x"))
	assert.Equal(t, bpmnmodel.TypeJSON, inferValueType(map[string]interface{}{"a": 1}))
}

func TestDispatcher_StartSubscribesBothTopics(t *testing.T) {
	sub := newFakeSubscriber()
	d := New(sub, newFakeLocker(), newFakeInstanceManager(), newFakeExecutor(), 2)
	require.NoError(t, d.Start(context.Background()))

	assert.NotNil(t, sub.handlers["process.started"])
	assert.NotNil(t, sub.handlers["process.timer_triggered"])
}
