/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package storage

import (
	"github.com/dgraph-io/badger/v3"

	"bpmflow/src/core/models"
)

// gatewaySyncState is the persisted set of tokens that have arrived at a
// parallel/inclusive join for one (gateway, activation), keyed by the
// arriving token's own id so each branch is counted exactly once. Durable
// so the stateless-between-suspension-points executor can resume a
// partially-satisfied join after a restart, and so the eventual merge has
// every arrived token's data bag available to compute the union of
// variable writes.
type gatewaySyncState struct {
	Arrived map[string]bpmnmodel.Token `json:"arrived"`
}

// RecordGatewayArrival records that arriving has reached (gatewayID,
// activationID) for instanceID, returning every token that has arrived so
// far (including this one).
func (bs *BadgerStorage) RecordGatewayArrival(instanceID, gatewayID, activationID string, arriving bpmnmodel.Token) ([]bpmnmodel.Token, error) {
	if err := bs.validateStorage(); err != nil {
		return nil, err
	}

	key := []byte(gatewaySyncKey(instanceID, gatewayID, activationID))
	var arrived []bpmnmodel.Token
	err := bs.db.Update(func(txn *badger.Txn) error {
		var state gatewaySyncState
		item, err := txn.Get(key)
		if err == nil {
			if decodeErr := item.Value(func(val []byte) error { return unmarshalInto(val, &state) }); decodeErr != nil {
				return decodeErr
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if state.Arrived == nil {
			state.Arrived = map[string]bpmnmodel.Token{}
		}
		state.Arrived[arriving.ID] = arriving

		data, err := marshalJSON(state)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		for _, t := range state.Arrived {
			arrived = append(arrived, t)
		}
		return nil
	})
	return arrived, err
}

// ClearGatewaySync deletes the join state after a merge completes.
func (bs *BadgerStorage) ClearGatewaySync(instanceID, gatewayID, activationID string) error {
	return bs.deleteKey(gatewaySyncKey(instanceID, gatewayID, activationID))
}
