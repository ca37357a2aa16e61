/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

func queuePrefix(queue string) string {
	return fmt.Sprintf("queue:%s:", queue)
}

func messageKey(queue string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", queuePrefix(queue), seq))
}

// nextSeq reads and increments a per-queue monotonic counter stored under
// its own key, guaranteeing enqueue order survives restart.
func nextSeq(txn *badger.Txn, queue string) (uint64, error) {
	counterKey := []byte("seq:" + queue)
	var next uint64 = 1

	item, err := txn.Get(counterKey)
	if err == nil {
		if valErr := item.Value(func(val []byte) error {
			next = binary.BigEndian.Uint64(val) + 1
			return nil
		}); valErr != nil {
			return 0, valErr
		}
	} else if err != badger.ErrKeyNotFound {
		return 0, err
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := txn.Set(counterKey, buf); err != nil {
		return 0, err
	}
	return next, nil
}
