/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package incident tracks *why* an instance is in ERROR, a durable record
// distinct from the Instance Manager's state transition itself.
package incident

import "time"

// Kind aligns with the error taxonomy of spec §7.
type Kind string

const (
	KindJobFailure       Kind = "job_failure"
	KindGatewayNoMatch   Kind = "gateway_no_match"
	KindTaskTimeout      Kind = "task_timeout"
	KindTaskExecution    Kind = "task_execution"
	KindTransientStorage Kind = "transient_storage"
	KindTransientBus     Kind = "transient_bus"
)

// Status is the resolution state of an incident.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// ResolveAction records how an open incident was addressed.
type ResolveAction string

const (
	ActionRetried    ResolveAction = "retried"
	ActionSkipped    ResolveAction = "skipped"
	ActionTerminated ResolveAction = "terminated"
)

// Incident is a durable record of one instance-scoped failure.
// Инцидент выполнения процесса
type Incident struct {
	ID         string        `json:"id"`
	InstanceID string        `json:"instance_id"`
	Kind       Kind          `json:"kind"`
	Message    string        `json:"message"`
	Details    string        `json:"details,omitempty"`
	Status     Status        `json:"status"`
	Action     ResolveAction `json:"action,omitempty"`
	RaisedAt   time.Time     `json:"raised_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// Filter narrows List to a subset of incidents.
type Filter struct {
	InstanceID string
	Status     Status
}
