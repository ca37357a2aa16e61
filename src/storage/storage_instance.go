/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"bpmflow/src/core/models"
)

// SaveInstance overwrites the instance row unconditionally — used for
// state-machine transitions, where the caller has already decided the
// write is correct.
func (bs *BadgerStorage) SaveInstance(inst bpmnmodel.ProcessInstance) error {
	return bs.saveJSON(instanceKey(inst.ID), inst)
}

// LoadInstance loads an instance by id.
func (bs *BadgerStorage) LoadInstance(id string) (bpmnmodel.ProcessInstance, error) {
	var inst bpmnmodel.ProcessInstance
	if err := bs.loadJSON(instanceKey(id), &inst); err != nil {
		return bpmnmodel.ProcessInstance{}, err
	}
	return inst, nil
}

// UpsertInstance inserts the instance row if absent; if a row already
// exists it is left untouched. This is what makes idempotent instance
// creation safe under at-least-once bus delivery: a process.timer_triggered
// handler racing a process.started handler for the same instance id never
// clobbers the other's start_time or status. The returned bool reports
// whether this call performed the insert, so a caller can gate follow-on
// writes (such as seeding initial variables) on having genuinely won the
// race rather than repeating them on every redelivery.
func (bs *BadgerStorage) UpsertInstance(inst bpmnmodel.ProcessInstance) (bool, error) {
	if err := bs.validateStorage(); err != nil {
		return false, err
	}

	var inserted bool
	key := []byte(instanceKey(inst.ID))
	err := bs.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil // already exists, upsert is a no-op
		}
		if err != badger.ErrKeyNotFound {
			return fmt.Errorf("failed to check existing instance %s: %w", inst.ID, err)
		}
		data, err := marshalJSON(inst)
		if err != nil {
			return err
		}
		inserted = true
		return txn.Set(key, data)
	})
	return inserted, err
}
