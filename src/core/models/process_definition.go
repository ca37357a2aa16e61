/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package bpmnmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ProcessDefinition is an immutable, versioned BPMN definition. A new
// version is a new row; definitions are never mutated in place.
// Определение процесса
type ProcessDefinition struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Version   int       `json:"version"`
	BPMNXML   string    `json:"bpmn_xml"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// Checksum computes the content hash ProcessDefinition.Checksum stores, used
// to detect a redundant re-deploy of identical BPMN text.
func Checksum(bpmnXML string) string {
	sum := sha256.Sum256([]byte(bpmnXML))
	return hex.EncodeToString(sum[:])
}

// NewProcessDefinition builds a definition row, stamping its checksum.
func NewProcessDefinition(key string, version int, bpmnXML string) ProcessDefinition {
	return ProcessDefinition{
		ID:        NewID(),
		Key:       key,
		Version:   version,
		BPMNXML:   bpmnXML,
		Checksum:  Checksum(bpmnXML),
		CreatedAt: time.Now(),
	}
}
