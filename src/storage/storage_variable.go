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

// SetVariable appends a new version of (instance, scope, name), returning
// the version number it was written at. Versions strictly increase per
// key, satisfying invariant 3 of spec §3.
func (bs *BadgerStorage) SetVariable(instanceID, name, scope string, value bpmnmodel.Value) (int64, error) {
	if err := bs.validateStorage(); err != nil {
		return 0, err
	}

	var written int64
	err := bs.db.Update(func(txn *badger.Txn) error {
		next, err := bs.nextVariableVersion(txn, instanceID, scope, name)
		if err != nil {
			return err
		}
		v := bpmnmodel.Variable{
			InstanceID: instanceID,
			Name:       name,
			Scope:      scope,
			Version:    next,
			Value:      value,
		}
		data, err := marshalJSON(v)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(variableKey(instanceID, scope, name, next)), data); err != nil {
			return err
		}
		written = next
		return nil
	})
	return written, err
}

func (bs *BadgerStorage) nextVariableVersion(txn *badger.Txn, instanceID, scope, name string) (int64, error) {
	var maxVersion int64
	prefix := []byte(variableKeyPrefix(instanceID, scope, name))
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		maxVersion++
	}
	return maxVersion + 1, nil
}

// GetVariable returns the highest version at or below atVersion (0 means
// "latest"), or ok=false if the variable has never been written.
func (bs *BadgerStorage) GetVariable(instanceID, name, scope string, atVersion int64) (bpmnmodel.Value, bool, error) {
	if err := bs.validateStorage(); err != nil {
		return bpmnmodel.Value{}, false, err
	}

	var found bpmnmodel.Variable
	var ok bool
	err := bs.db.View(func(txn *badger.Txn) error {
		prefix := []byte(variableKeyPrefix(instanceID, scope, name))
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var v bpmnmodel.Variable
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalInto(val, &v)
			}); err != nil {
				return fmt.Errorf("failed to decode variable %s/%s: %w", instanceID, name, err)
			}
			if atVersion > 0 && v.Version > atVersion {
				continue
			}
			if !ok || v.Version > found.Version {
				found = v
				ok = true
			}
		}
		return nil
	})
	if err != nil || !ok {
		return bpmnmodel.Value{}, false, err
	}
	return found.Value, true, nil
}

// ListVariables returns the latest version of every (name, scope) pair
// known for instanceID, the shape get_instance_variables needs.
func (bs *BadgerStorage) ListVariables(instanceID string) ([]bpmnmodel.Variable, error) {
	if err := bs.validateStorage(); err != nil {
		return nil, err
	}

	latest := map[string]bpmnmodel.Variable{}
	prefix := variablePrefix + instanceID + ":"
	err := bs.iterateWithPrefix(prefix, func(_ []byte, val []byte) error {
		var v bpmnmodel.Variable
		if err := unmarshalInto(val, &v); err != nil {
			return fmt.Errorf("corrupt variable record: %w", err)
		}
		k := v.Scope + "/" + v.Name
		if cur, ok := latest[k]; !ok || v.Version > cur.Version {
			latest[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]bpmnmodel.Variable, 0, len(latest))
	for _, v := range latest {
		out = append(out, v)
	}
	return out, nil
}
