/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package timer

import (
	"container/heap"
	"context"
	"encoding/json"
	"sync"
	"time"

	"bpmflow/src/core/logger"
	"bpmflow/src/core/models"
)

// Store is the subset of the State Store Client the scheduler needs.
type Store interface {
	PutTimer(record bpmnmodel.TimerRecord) (bpmnmodel.TimerRecord, error)
	DueTimers(now time.Time) ([]bpmnmodel.TimerRecord, error)
	AllArmedTimers() ([]bpmnmodel.TimerRecord, error)
	MarkTimerFired(id string, expectedVersion int64) (bool, error)
	CancelTimer(id string, expectedVersion int64) (bool, error)
	Subscribe(prefix string) (<-chan []byte, func(), error)
}

// Publisher is the narrow slice of the Event Bus Client the scheduler
// calls to announce a fired timer.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// TimerTriggeredPayload is the process.timer_triggered bus payload.
type TimerTriggeredPayload struct {
	InstanceID   string `json:"instance_id"`
	DefinitionID string `json:"definition_id"`
	NodeID       string `json:"node_id"`
}

// Metrics is the ambient observability sink the scheduler reports firings
// to; nil-safe via noopMetrics.
type Metrics interface {
	TimerFired()
}

type noopMetrics struct{}

func (noopMetrics) TimerFired() {}

// Scheduler owns a min-heap of armed timers keyed by next fire time and
// fires them at or after their scheduled time, surviving restart by
// rebuilding the heap from durable store state.
// Планировщик таймеров
type Scheduler struct {
	store     Store
	publisher Publisher
	metrics   Metrics

	mu   sync.Mutex
	heap timerHeap

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// New creates a Scheduler. Start must be called to begin firing timers.
func New(store Store, publisher Publisher) *Scheduler {
	return &Scheduler{
		store:     store,
		publisher: publisher,
		metrics:   noopMetrics{},
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// SetMetrics swaps in a real Metrics sink (e.g. the health server's
// counters); optional, since New already wires a no-op default.
func (s *Scheduler) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Arm persists a new timer record and wakes the scheduling loop so a
// timer armed sooner than the current earliest does not wait for the next
// poll interval.
func (s *Scheduler) Arm(record bpmnmodel.TimerRecord) error {
	stored, err := s.store.PutTimer(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	heap.Push(&s.heap, stored)
	s.mu.Unlock()
	s.nudge()
	return nil
}

// Cancel marks a timer cancelled, the op invoked when a token leaves a
// timer-guarded node before it fires.
func (s *Scheduler) Cancel(id string, expectedVersion int64) error {
	_, err := s.store.CancelTimer(id, expectedVersion)
	return err
}

// Start runs recover_from_crash and launches the scheduling loop. It
// returns once recovery completes; firing continues in the background
// until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.recoverFromCrash(ctx); err != nil {
		return err
	}
	go s.run(ctx)
	return nil
}

// Stop halts the scheduling loop.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// recoverFromCrash scans the store for armed records, rebuilds the heap,
// and fires any whose time is already past, in the order AllArmedTimers
// returns them.
func (s *Scheduler) recoverFromCrash(ctx context.Context) error {
	armed, err := s.store.AllArmedTimers()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.heap = make(timerHeap, 0, len(armed))
	for _, t := range armed {
		s.heap = append(s.heap, t)
	}
	heap.Init(&s.heap)
	s.mu.Unlock()

	logger.Info("timer scheduler recovered armed timers", logger.Int("count", len(armed)))

	now := time.Now()
	for _, t := range armed {
		if !t.NextFireTime.After(now) {
			s.fire(ctx, t)
		}
	}
	return nil
}

func (s *Scheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	changes, cancelSub, err := s.store.Subscribe("timer:")
	if err == nil {
		defer cancelSub()
		go func() {
			for range changes {
				s.nudge()
			}
		}()
	}

	for {
		wait := s.nextWait()
		timer := time.NewTimer(wait)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
		s.fireDue(ctx)
	}
}

func (s *Scheduler) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return time.Second
	}
	d := time.Until(s.heap[0].NextFireTime)
	if d < 0 {
		return 0
	}
	if d > time.Second {
		return time.Second
	}
	return d
}

func (s *Scheduler) fireDue(ctx context.Context) {
	now := time.Now()
	for {
		s.mu.Lock()
		if len(s.heap) == 0 || s.heap[0].NextFireTime.After(now) {
			s.mu.Unlock()
			return
		}
		record := heap.Pop(&s.heap).(bpmnmodel.TimerRecord)
		s.mu.Unlock()
		s.fire(ctx, record)
	}
}

// fire attempts the CAS to fired and, on success, publishes the trigger.
// A racing scheduler replica that loses the CAS makes this a no-op,
// giving at-most-once firing with at-least-once publication (a crash
// between CAS success and publish is handled idempotently downstream by
// the Instance Manager's upsert).
func (s *Scheduler) fire(ctx context.Context, record bpmnmodel.TimerRecord) {
	won, err := s.store.MarkTimerFired(record.ID, record.Version)
	if err != nil {
		logger.Error("failed to mark timer fired", logger.String("timer_id", record.ID), logger.Any("error", err.Error()))
		return
	}
	if !won {
		return
	}
	s.metrics.TimerFired()

	payload := TimerTriggeredPayload{
		InstanceID:   record.InstanceID,
		DefinitionID: record.DefinitionID,
		NodeID:       record.NodeID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal timer_triggered payload", logger.String("timer_id", record.ID))
		return
	}
	if err := s.publisher.Publish(ctx, "process.timer_triggered", data); err != nil {
		logger.Error("failed to publish timer_triggered", logger.String("timer_id", record.ID), logger.Any("error", err.Error()))
	}
}
