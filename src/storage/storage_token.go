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

// tokenSet is the persisted shape of tokens:{instance_id}: a map keyed by
// token id so add/remove/replace are simple map operations under a single
// CAS-guarded key, satisfying the cross-key atomicity requirement of
// replace_token_atomic and join-merge without a separate transaction log.
type tokenSet map[string]bpmnmodel.Token

func (bs *BadgerStorage) loadTokenSet(txn *badger.Txn, instanceID string) (tokenSet, error) {
	set := tokenSet{}
	item, err := txn.Get([]byte(tokenSetKey(instanceID)))
	if err == badger.ErrKeyNotFound {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token set for %s: %w", instanceID, err)
	}
	if err := item.Value(func(val []byte) error {
		return unmarshalInto(val, &set)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode token set for %s: %w", instanceID, err)
	}
	return set, nil
}

func (bs *BadgerStorage) saveTokenSet(txn *badger.Txn, instanceID string, set tokenSet) error {
	data, err := marshalJSON(set)
	if err != nil {
		return err
	}
	return txn.Set([]byte(tokenSetKey(instanceID)), data)
}

// GetTokenPositions returns every token currently held for instanceID.
func (bs *BadgerStorage) GetTokenPositions(instanceID string) ([]bpmnmodel.Token, error) {
	if err := bs.validateStorage(); err != nil {
		return nil, err
	}

	var tokens []bpmnmodel.Token
	err := bs.db.View(func(txn *badger.Txn) error {
		set, err := bs.loadTokenSet(txn, instanceID)
		if err != nil {
			return err
		}
		for _, t := range set {
			tokens = append(tokens, t)
		}
		return nil
	})
	return tokens, err
}

// AddToken inserts a token into the instance's token set, keyed by the
// token's own ID. It performs no (instance, node) position dedup itself —
// callers that must guard against two tokens resting on the same
// non-gateway node (e.g. executor.CreateInitialToken) are responsible for
// checking GetTokenPositions first.
func (bs *BadgerStorage) AddToken(instanceID string, token bpmnmodel.Token) error {
	if err := bs.validateStorage(); err != nil {
		return err
	}

	return bs.db.Update(func(txn *badger.Txn) error {
		set, err := bs.loadTokenSet(txn, instanceID)
		if err != nil {
			return err
		}
		set[token.ID] = token
		return bs.saveTokenSet(txn, instanceID, set)
	})
}

// RemoveToken deletes a single token from the instance's token set.
func (bs *BadgerStorage) RemoveToken(instanceID, tokenID string) error {
	if err := bs.validateStorage(); err != nil {
		return err
	}

	return bs.db.Update(func(txn *badger.Txn) error {
		set, err := bs.loadTokenSet(txn, instanceID)
		if err != nil {
			return err
		}
		delete(set, tokenID)
		return bs.saveTokenSet(txn, instanceID, set)
	})
}

// ReplaceTokenAtomic deletes old and inserts next under a single
// transaction, the atomic delete-old+create-new move_token needs.
func (bs *BadgerStorage) ReplaceTokenAtomic(old, next bpmnmodel.Token) (bpmnmodel.Token, error) {
	if err := bs.validateStorage(); err != nil {
		return bpmnmodel.Token{}, err
	}

	err := bs.db.Update(func(txn *badger.Txn) error {
		set, err := bs.loadTokenSet(txn, old.InstanceID)
		if err != nil {
			return err
		}
		if _, ok := set[old.ID]; !ok {
			return fmt.Errorf("token %s not found for instance %s", old.ID, old.InstanceID)
		}
		delete(set, old.ID)
		set[next.ID] = next
		return bs.saveTokenSet(txn, old.InstanceID, set)
	})
	if err != nil {
		return bpmnmodel.Token{}, err
	}
	return next, nil
}

// DeleteTokens removes every token of an instance in one write, the bulk
// terminal cleanup terminate_instance performs.
func (bs *BadgerStorage) DeleteTokens(instanceID string) error {
	return bs.deleteKey(tokenSetKey(instanceID))
}
