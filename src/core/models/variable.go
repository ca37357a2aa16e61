/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package bpmnmodel

// Variable is one version of a named, scoped value belonging to an
// instance. Writes are append-only: a new write is a new Variable row with
// Version = previous max + 1; reads without an explicit version return the
// highest version at or below the snapshot.
// Переменная процесса (одна версия)
type Variable struct {
	InstanceID string `json:"instance_id"`
	Name       string `json:"name"`
	Scope      string `json:"scope,omitempty"`
	Version    int64  `json:"version"`
	Value      Value  `json:"value"`
}
