/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package bus is the Event Bus Client: durable, at-least-once topic
// queues backed by an embedded BadgerDB, the same storage engine the
// State Store Client uses. No message-broker client library appears
// anywhere in the reference pack, so queues are modeled
// directly on BadgerDB plus the in-process channel fan-out pattern the
// teacher engine's dispatch component already uses.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"bpmflow/src/core/logger"
)

// Topic names and their durable queues, per spec §4.5/§6.
const (
	TopicProcessStarted       = "process.started"
	TopicProcessTimerTriggered = "process.timer_triggered"

	QueueProcessExecution = "process_execution"
	QueueTimerExecution   = "timer_execution"
)

var topicQueues = map[string]string{
	TopicProcessStarted:       QueueProcessExecution,
	TopicProcessTimerTriggered: QueueTimerExecution,
}

// Handler processes one delivered message. Returning an error leaves the
// message in the queue for redelivery, implementing at-least-once
// delivery; handlers must therefore be idempotent (spec §4.5).
type Handler func(ctx context.Context, payload []byte) error

// Client is a durable, at-least-once pub-sub client over BadgerDB.
// Клиент шины событий
type Client struct {
	db *badger.DB

	mu       sync.Mutex
	handlers map[string][]Handler
	notify   map[string]chan struct{}
}

// Open opens (or creates) the bus's durable queue database at path.
func Open(path string) (*Client, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open bus queue database: %w", err)
	}
	return &Client{
		db:       db,
		handlers: map[string][]Handler{},
		notify:   map[string]chan struct{}{},
	}, nil
}

// Close closes the underlying queue database.
func (c *Client) Close() error {
	return c.db.Close()
}

// Publish appends payload to topic's durable queue and wakes any
// in-process consumer loop.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	queue, ok := topicQueues[topic]
	if !ok {
		return fmt.Errorf("unknown bus topic %q", topic)
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		seq, err := nextSeq(txn, queue)
		if err != nil {
			return err
		}
		return txn.Set(messageKey(queue, seq), payload)
	})
	if err != nil {
		return err
	}

	logger.Debug("published bus message", logger.String("topic", topic), logger.String("queue", queue))
	c.wake(queue)
	return nil
}

// Subscribe registers handler as a durable consumer of topic's queue. A
// background goroutine drains the queue, invoking handler for each message
// in enqueue order and deleting it only on success — a crash between
// invocation and delete redelivers the message on restart.
func (c *Client) Subscribe(ctx context.Context, topic string, handler Handler) error {
	queue, ok := topicQueues[topic]
	if !ok {
		return fmt.Errorf("unknown bus topic %q", topic)
	}

	c.mu.Lock()
	c.handlers[queue] = append(c.handlers[queue], handler)
	if _, exists := c.notify[queue]; !exists {
		c.notify[queue] = make(chan struct{}, 1)
		go c.drain(ctx, queue)
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) wake(queue string) {
	c.mu.Lock()
	ch, ok := c.notify[queue]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (c *Client) drain(ctx context.Context, queue string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed := c.drainOnce(ctx, queue)
		if processed {
			continue
		}

		c.mu.Lock()
		ch := c.notify[queue]
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return
		case <-ch:
		case <-time.After(time.Second):
		}
	}
}

// drainOnce delivers at most one message, returning true if one was
// processed (so the caller can keep draining without waiting).
func (c *Client) drainOnce(ctx context.Context, queue string) bool {
	key, payload, ok := c.peekOldest(queue)
	if !ok {
		return false
	}

	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[queue]...)
	c.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, payload); err != nil {
			logger.Error("bus handler failed, message stays queued for redelivery",
				logger.String("queue", queue), logger.Any("error", err.Error()))
			return true
		}
	}

	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	}); err != nil {
		logger.Error("failed to ack bus message", logger.String("queue", queue), logger.Any("error", err.Error()))
	}
	return true
}

func (c *Client) peekOldest(queue string) ([]byte, []byte, bool) {
	var key, value []byte
	var found bool
	_ = c.db.View(func(txn *badger.Txn) error {
		prefix := []byte(queuePrefix(queue))
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Seek(prefix)
		if it.ValidForPrefix(prefix) {
			item := it.Item()
			k := make([]byte, len(item.Key()))
			copy(k, item.Key())
			v, err := item.ValueCopy(nil)
			if err == nil {
				key, value, found = k, v, true
			}
		}
		return nil
	})
	return key, value, found
}
