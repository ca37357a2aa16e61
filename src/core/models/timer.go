/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package bpmnmodel

import "time"

// TimerState is the lifecycle of a TimerRecord.
type TimerState string

const (
	TimerArmed     TimerState = "armed"
	TimerFired     TimerState = "fired"
	TimerCancelled TimerState = "cancelled"
)

// TimerRecord is a persisted timer definition, sorted in the store by
// NextFireTime so the scheduler's min-heap can be rebuilt on recovery.
// Запись таймера
type TimerRecord struct {
	ID            string     `json:"id"`
	InstanceID    string     `json:"instance_id"`
	DefinitionID  string     `json:"definition_id"`
	NodeID        string     `json:"node_id"`
	Definition    string     `json:"definition"` // ISO-8601 duration/repeating-interval or cron expression
	NextFireTime  time.Time  `json:"next_fire_time"`
	State         TimerState `json:"state"`
	// Version is the CAS token guarding mark_timer_fired/cancellation.
	Version int64 `json:"version"`
}
