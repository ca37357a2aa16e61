/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package dispatch is the Dispatch Layer: it binds the Event Bus
// Client's process.started and process.timer_triggered subscriptions to
// Instance Manager / Process Executor work, serializing per-instance
// execution across a bounded worker pool.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bpmflow/src/bus"
	"bpmflow/src/core/enginerr"
	"bpmflow/src/core/logger"
	"bpmflow/src/core/models"
	"bpmflow/src/instance"
)

// Subscriber is the narrow slice of the Event Bus Client the Dispatcher
// binds its handlers to.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler bus.Handler) error
}

// Locker is the advisory-lock slice of the State Store Client used to
// serialize a given instance id across replicas, on top of the
// in-process mutex that serializes it within this process.
type Locker interface {
	AcquireLock(key string, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(key string, owner string) error
}

// InstanceManager is the slice of the Instance Manager the Dispatcher
// drives: idempotent instance creation on process.started, and loading a
// definition's parsed graph plus the instance row on
// process.timer_triggered re-entry.
type InstanceManager interface {
	CreateInstanceWithID(ctx context.Context, instanceID, definitionID string, variables []instance.VariableInput, startEventID string) (bpmnmodel.ProcessInstance, error)
	LoadInstanceGraph(definitionID string) (*bpmnmodel.Graph, error)
	LoadInstance(id string) (bpmnmodel.ProcessInstance, error)
}

// Executor is the slice of the Process Executor the Dispatcher re-enters
// on a fired timer.
type Executor interface {
	ExecuteProcess(ctx context.Context, instanceID string, graph *bpmnmodel.Graph, seed ...bpmnmodel.Token) error
	GetTokenPositions(instanceID string) ([]bpmnmodel.Token, error)
	ReplaceTokenAtomic(old, next bpmnmodel.Token) (bpmnmodel.Token, error)
}

// ProcessStartedPayload is the process.started bus payload of spec.md §6.
type ProcessStartedPayload struct {
	InstanceID   string                 `json:"instance_id"`
	DefinitionID string                 `json:"definition_id"`
	Variables    map[string]interface{} `json:"variables"`
	Source       string                 `json:"source,omitempty"`
	Timestamp    string                 `json:"timestamp"`
	StartEventID string                 `json:"start_event_id,omitempty"`
}

// TimerTriggeredPayload is the process.timer_triggered bus payload of
// spec.md §6, matching timer.TimerTriggeredPayload's wire shape.
type TimerTriggeredPayload struct {
	InstanceID   string `json:"instance_id"`
	DefinitionID string `json:"definition_id"`
	NodeID       string `json:"node_id"`
}

// timerFiredKey must match process.timerFiredKey: the reserved token-data
// key a re-entering timer token carries so TimerEventExecutor advances
// past the wait state instead of re-arming it.
const timerFiredKey = "__timer_fired__"

// lockTTL bounds how long a dispatch handler may hold an instance's
// advisory lock before a crashed replica's lock is considered stale and
// reclaimable by another replica.
const lockTTL = 30 * time.Second

// Dispatcher binds bus topics to Instance Manager / Process Executor
// work, guaranteeing at most one handler runs per instance id at a time.
// Диспетчер обработки событий процесса
type Dispatcher struct {
	bus       Subscriber
	locks     Locker
	instances InstanceManager
	executor  Executor

	pool *errgroup.Group

	mu     sync.Mutex
	active map[string]*sync.Mutex
}

// New builds a Dispatcher. workers bounds the concurrent handler pool
// shared by both topics: bus.Client already serializes delivery within a
// single queue, so this pool's job is bounding how many instance ids'
// handlers run at once across the two queues combined, and giving a
// single knob to widen that should the bus gain multi-consumer fan-out.
func New(bus Subscriber, locks Locker, instances InstanceManager, executor Executor, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	pool := &errgroup.Group{}
	pool.SetLimit(workers)
	return &Dispatcher{
		bus:       bus,
		locks:     locks,
		instances: instances,
		executor:  executor,
		pool:      pool,
		active:    map[string]*sync.Mutex{},
	}
}

// submit runs fn on the bounded pool, blocking the caller (the bus's
// per-queue drain goroutine) until fn completes so acking still happens
// only after the handler's work actually finished.
func (d *Dispatcher) submit(fn func() error) error {
	done := make(chan error, 1)
	d.pool.Go(func() error {
		done <- fn()
		return nil
	})
	return <-done
}

// Start subscribes the process.started and process.timer_triggered
// handlers. Each handler's actual work runs on the bounded worker pool;
// the bus's drain goroutine waits in submit until that work finishes.
func (d *Dispatcher) Start(ctx context.Context) error {
	if err := d.bus.Subscribe(ctx, "process.started", d.handleProcessStarted); err != nil {
		return fmt.Errorf("failed to subscribe process.started: %w", err)
	}
	if err := d.bus.Subscribe(ctx, "process.timer_triggered", d.handleTimerTriggered); err != nil {
		return fmt.Errorf("failed to subscribe process.timer_triggered: %w", err)
	}
	return nil
}

func (d *Dispatcher) handleProcessStarted(ctx context.Context, payload []byte) error {
	var msg ProcessStartedPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("invalid process.started payload: %w", err)
	}
	return d.submit(func() error {
		return d.withInstanceLock(ctx, msg.InstanceID, func(ctx context.Context) error {
			vars := make([]instance.VariableInput, 0, len(msg.Variables))
			for name, native := range msg.Variables {
				vars = append(vars, instance.VariableInput{Name: name, Tag: inferValueType(native), Value: native})
			}
			_, err := d.instances.CreateInstanceWithID(ctx, msg.InstanceID, msg.DefinitionID, vars, msg.StartEventID)
			return classifyRetry(err)
		})
	})
}

// handleTimerTriggered re-enters the Process Executor at the fired
// timer's node, under the same per-instance serialization as
// process.started. It does not create instances: when the instance row
// is missing the message is dropped as an InstanceGoneError.
func (d *Dispatcher) handleTimerTriggered(ctx context.Context, payload []byte) error {
	var msg TimerTriggeredPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("invalid process.timer_triggered payload: %w", err)
	}
	return d.submit(func() error {
		return d.withInstanceLock(ctx, msg.InstanceID, func(ctx context.Context) error {
			if _, err := d.instances.LoadInstance(msg.InstanceID); err != nil {
				return classifyRetry(&enginerr.InstanceGoneError{InstanceID: msg.InstanceID})
			}
			graph, err := d.instances.LoadInstanceGraph(msg.DefinitionID)
			if err != nil {
				return classifyRetry(err)
			}

			seed, err := d.unparkTimerToken(msg.InstanceID, msg.NodeID)
			if err != nil {
				return classifyRetry(err)
			}
			if seed == nil {
				// Already advanced past this node by a redelivered message;
				// at-least-once delivery makes this a benign no-op.
				return nil
			}

			return classifyRetry(d.executor.ExecuteProcess(ctx, msg.InstanceID, graph, *seed))
		})
	})
}

// unparkTimerToken finds the token still waiting at nodeID and stamps it
// with timerFiredKey so the TimerEventExecutor advances it instead of
// re-arming a second timer. Returns nil if no token is waiting there
// (redelivery after the token already moved on).
func (d *Dispatcher) unparkTimerToken(instanceID, nodeID string) (*bpmnmodel.Token, error) {
	tokens, err := d.executor.GetTokenPositions(instanceID)
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if t.NodeID != nodeID {
			continue
		}
		next := t
		if next.Data == nil {
			next.Data = map[string]bpmnmodel.Value{}
		}
		next.Data[timerFiredKey] = bpmnmodel.NewBooleanValue(true)
		saved, err := d.executor.ReplaceTokenAtomic(t, next)
		if err != nil {
			return nil, err
		}
		return &saved, nil
	}
	return nil, nil
}

// withInstanceLock serializes handler against both other local goroutines
// (an in-process *sync.Mutex keyed by instance id) and other replicas
// (the state store's advisory lock), per spec.md §4.5/§5.
func (d *Dispatcher) withInstanceLock(ctx context.Context, instanceID string, fn func(ctx context.Context) error) error {
	local := d.localLock(instanceID)
	local.Lock()
	defer local.Unlock()

	owner := fmt.Sprintf("dispatch:%s", instanceID)
	lockKey := "lock:instance:" + instanceID
	acquired, err := d.locks.AcquireLock(lockKey, owner, lockTTL)
	if err != nil {
		return &enginerr.EngineTransientError{Cause: err}
	}
	if !acquired {
		// Another replica holds the lock; leave the message queued for
		// redelivery rather than blocking this worker.
		return &enginerr.EngineTransientError{Cause: fmt.Errorf("instance %s is locked by another replica", instanceID)}
	}
	defer func() {
		if err := d.locks.ReleaseLock(lockKey, owner); err != nil {
			logger.Warn("failed to release instance lock", logger.String("instance_id", instanceID), logger.Any("error", err.Error()))
		}
	}()

	return fn(ctx)
}

func (d *Dispatcher) localLock(instanceID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.active[instanceID]
	if !ok {
		m = &sync.Mutex{}
		d.active[instanceID] = m
	}
	return m
}

// classifyRetry leaves bus redelivery as the retry mechanism for
// transient errors (returned as-is, so bus.Client's drain loop keeps the
// message queued) and swallows permanent validation errors, which would
// only be redelivered forever without ever succeeding.
func classifyRetry(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *enginerr.EngineTransientError:
		return err
	case *enginerr.InstanceGoneError:
		return nil
	default:
		logger.Error("dispatch handler failed permanently, not retrying", logger.Any("error", err.Error()))
		return nil
	}
}

// inferValueType infers a Value type tag from a JSON-decoded native
// value, the shape a process.started message's variables object arrives
// in (no caller-declared type tags on the wire, unlike the synchronous
// create_instance API path).
func inferValueType(v interface{}) bpmnmodel.ValueType {
	switch v.(type) {
	case float64:
		return bpmnmodel.TypeFloat
	case bool:
		return bpmnmodel.TypeBoolean
	case string:
		return bpmnmodel.TypeString
	default:
		return bpmnmodel.TypeJSON
	}
}

// Run subscribes both topics and blocks until ctx is cancelled, then waits
// for any in-flight handler work on the bounded pool to finish.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return d.pool.Wait()
}
