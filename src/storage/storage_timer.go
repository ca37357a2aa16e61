/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package storage

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"bpmflow/src/core/models"
)

// PutTimer persists a timer record under a key sorted by fire time (a
// fixed-width UTC timestamp), so a scan of the timer prefix visits records
// in fire-time order. It returns the stored record with Version normalized to 1 when the
// caller passed a fresh (zero-value) record, so callers that keep their
// own copy around (the scheduler's heap) stay in sync with what was
// actually persisted.
func (bs *BadgerStorage) PutTimer(record bpmnmodel.TimerRecord) (bpmnmodel.TimerRecord, error) {
	if record.Version == 0 {
		record.Version = 1
	}
	key := timerKey(record.NextFireTime.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"), record.ID)
	if err := bs.saveJSON(key, record); err != nil {
		return bpmnmodel.TimerRecord{}, err
	}
	if data, err := marshalJSON(record); err == nil {
		bs.broadcaster().publish(key, data)
	}
	return record, nil
}

// DueTimers returns every armed timer whose fire time is at or before now,
// in fire-time order. It reads every timer row and filters by state and
// fire time.
func (bs *BadgerStorage) DueTimers(now time.Time) ([]bpmnmodel.TimerRecord, error) {
	var due []bpmnmodel.TimerRecord
	err := bs.iterateWithPrefix(timerPrefix, func(_ []byte, val []byte) error {
		var t bpmnmodel.TimerRecord
		if err := unmarshalInto(val, &t); err != nil {
			return fmt.Errorf("corrupt timer record: %w", err)
		}
		if t.State == bpmnmodel.TimerArmed && !t.NextFireTime.After(now) {
			due = append(due, t)
		}
		return nil
	})
	return due, err
}

// AllArmedTimers returns every armed timer, used by recover_from_crash to
// rebuild the scheduler's in-memory min-heap on restart.
func (bs *BadgerStorage) AllArmedTimers() ([]bpmnmodel.TimerRecord, error) {
	var armed []bpmnmodel.TimerRecord
	err := bs.iterateWithPrefix(timerPrefix, func(_ []byte, val []byte) error {
		var t bpmnmodel.TimerRecord
		if err := unmarshalInto(val, &t); err != nil {
			return fmt.Errorf("corrupt timer record: %w", err)
		}
		if t.State == bpmnmodel.TimerArmed {
			armed = append(armed, t)
		}
		return nil
	})
	return armed, err
}

// MarkTimerFired performs the CAS at the heart of at-most-once firing: it
// transitions armed -> fired only if the stored version still matches
// expectedVersion, returning false (no error) if a racing scheduler
// replica already won.
func (bs *BadgerStorage) MarkTimerFired(id string, expectedVersion int64) (bool, error) {
	return bs.casTimerState(id, expectedVersion, bpmnmodel.TimerFired)
}

// CancelTimer performs the same CAS for cancellation on token removal. A
// racing fire that observes fired|cancelled after this call is a no-op.
func (bs *BadgerStorage) CancelTimer(id string, expectedVersion int64) (bool, error) {
	return bs.casTimerState(id, expectedVersion, bpmnmodel.TimerCancelled)
}

func (bs *BadgerStorage) casTimerState(id string, expectedVersion int64, to bpmnmodel.TimerState) (bool, error) {
	if err := bs.validateStorage(); err != nil {
		return false, err
	}

	var applied bool
	err := bs.db.Update(func(txn *badger.Txn) error {
		key, record, err := bs.findTimerByID(txn, id)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("timer %s not found", id)
		}
		if record.Version != expectedVersion || record.State != bpmnmodel.TimerArmed {
			applied = false
			return nil
		}
		record.State = to
		record.Version++
		data, err := marshalJSON(*record)
		if err != nil {
			return err
		}
		applied = true
		return txn.Set(key, data)
	})
	return applied, err
}

func (bs *BadgerStorage) findTimerByID(txn *badger.Txn, id string) ([]byte, *bpmnmodel.TimerRecord, error) {
	var foundKey []byte
	var found *bpmnmodel.TimerRecord
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()
	prefix := []byte(timerPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var t bpmnmodel.TimerRecord
		if err := item.Value(func(val []byte) error {
			return unmarshalInto(val, &t)
		}); err != nil {
			return nil, nil, fmt.Errorf("corrupt timer record: %w", err)
		}
		if t.ID == id {
			key := make([]byte, len(item.Key()))
			copy(key, item.Key())
			foundKey = key
			found = &t
			break
		}
	}
	return foundKey, found, nil
}
