/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package storage

import (
	"time"

	"github.com/dgraph-io/badger/v3"
)

// advisoryLock is the persisted row behind lock:instance:{instance_id}.
type advisoryLock struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AcquireLock grants an instance-scoped advisory lock for cross-replica
// mutual exclusion (spec §4.5), on top of the Dispatch Layer's in-process
// mutex. A lock held by a different owner past its TTL is stolen.
func (bs *BadgerStorage) AcquireLock(key, owner string, ttl time.Duration) (bool, error) {
	if err := bs.validateStorage(); err != nil {
		return false, err
	}

	fullKey := []byte(lockKey(key))
	var acquired bool
	err := bs.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(fullKey)
		now := time.Now()
		if err == nil {
			var existing advisoryLock
			if decodeErr := item.Value(func(val []byte) error { return unmarshalInto(val, &existing) }); decodeErr != nil {
				return decodeErr
			}
			if existing.Owner != owner && existing.ExpiresAt.After(now) {
				acquired = false
				return nil
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		data, err := marshalJSON(advisoryLock{Owner: owner, ExpiresAt: now.Add(ttl)})
		if err != nil {
			return err
		}
		acquired = true
		return txn.SetEntry(badger.NewEntry(fullKey, data).WithTTL(ttl))
	})
	return acquired, err
}

// ReleaseLock releases the lock if still held by owner.
func (bs *BadgerStorage) ReleaseLock(key, owner string) error {
	if err := bs.validateStorage(); err != nil {
		return err
	}

	fullKey := []byte(lockKey(key))
	return bs.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(fullKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var existing advisoryLock
		if decodeErr := item.Value(func(val []byte) error { return unmarshalInto(val, &existing) }); decodeErr != nil {
			return decodeErr
		}
		if existing.Owner != owner {
			return nil
		}
		return txn.Delete(fullKey)
	})
}
