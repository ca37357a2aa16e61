/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package storage

import "sync"

// changeBroadcaster fans out a wake-up notification to every subscriber of
// a key prefix. It is a hint only: durability lives in the BadgerDB rows
// themselves (due_timers always re-scans store state), so a missed or
// coalesced notification never loses a timer, it only delays noticing one
// is due until the scheduler's own periodic wake falls back. Modeled on
// the channel-based fan-out the engine's dispatch component uses for its
// own internal signal routing.
type changeBroadcaster struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

func newChangeBroadcaster() *changeBroadcaster {
	return &changeBroadcaster{subs: map[string][]chan []byte{}}
}

func (b *changeBroadcaster) subscribe(prefix string) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[prefix] = append(b.subs[prefix], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[prefix]
		for i, c := range subs {
			if c == ch {
				b.subs[prefix] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (b *changeBroadcaster) publish(key string, value []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for prefix, subs := range b.subs {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		for _, ch := range subs {
			select {
			case ch <- value:
			default:
			}
		}
	}
}

// Subscribe returns a channel of raw values written under prefix, and a
// cancel function to stop receiving. Used only by the Timer Scheduler to
// wake promptly when a new timer is armed instead of polling on a fixed
// interval alone.
func (bs *BadgerStorage) Subscribe(prefix string) (<-chan []byte, func(), error) {
	if err := bs.validateStorage(); err != nil {
		return nil, nil, err
	}
	ch, cancel := bs.broadcaster().subscribe(prefix)
	return ch, cancel, nil
}

func (bs *BadgerStorage) broadcaster() *changeBroadcaster {
	bs.broadcastOnce.Do(func() {
		bs.broadcast = newChangeBroadcaster()
	})
	return bs.broadcast
}
