/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package storage

import (
	"fmt"

	"bpmflow/src/core/models"
)

// SaveDefinition persists a new, immutable definition row. Definitions are
// never overwritten; a new version is always a new key.
func (bs *BadgerStorage) SaveDefinition(def bpmnmodel.ProcessDefinition) error {
	return bs.saveJSON(definitionKey(def.ID), def)
}

// LoadDefinition loads a definition by id.
func (bs *BadgerStorage) LoadDefinition(id string) (bpmnmodel.ProcessDefinition, error) {
	var def bpmnmodel.ProcessDefinition
	if err := bs.loadJSON(definitionKey(id), &def); err != nil {
		return bpmnmodel.ProcessDefinition{}, err
	}
	return def, nil
}

// LoadDefinitionByChecksum scans definitions for key+checksum, used to
// detect a redundant re-deploy of identical BPMN text before minting a new
// version.
func (bs *BadgerStorage) LoadDefinitionByChecksum(key, checksum string) (bpmnmodel.ProcessDefinition, bool, error) {
	var found bpmnmodel.ProcessDefinition
	var ok bool
	err := bs.iterateWithPrefix(definitionPrefix, func(_ []byte, val []byte) error {
		var def bpmnmodel.ProcessDefinition
		if jsonErr := unmarshalInto(val, &def); jsonErr != nil {
			return fmt.Errorf("corrupt definition record: %w", jsonErr)
		}
		if def.Key == key && def.Checksum == checksum {
			found = def
			ok = true
		}
		return nil
	})
	return found, ok, err
}
