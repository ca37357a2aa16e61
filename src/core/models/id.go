/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package bpmnmodel holds the data types the execution engine operates on:
// process definitions, instances, tokens, variables and timer records.
package bpmnmodel

import "github.com/google/uuid"

// NewID generates a new random identity for an engine entity.
// Генерирует новый идентификатор для сущности движка
func NewID() string {
	return uuid.New().String()
}

// ValidID reports whether s parses as a UUID.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
