/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package process

import (
	"time"

	"bpmflow/src/core/enginerr"
	"bpmflow/src/core/logger"
	"bpmflow/src/core/models"
	"bpmflow/src/timer"
)

// TimerEventExecutor arms a TimerRecord for an intermediate or boundary
// timer node and parks the token there; the token only moves again when
// the Timer Scheduler fires the record and the dispatch layer re-enters
// the executor for this node (see DESIGN.md on the timer-triggered
// re-entry contract).
// Исполнитель события таймера
type TimerEventExecutor struct {
	exec *Executor
}

func (te *TimerEventExecutor) Execute(ec *ExecutionContext, node bpmnmodel.Node) (*ExecutionResult, error) {
	// A token re-entering this node after the scheduler fired its timer
	// carries no further waiting to do: advance along the outgoing flow.
	if fired, ok := ec.Token.Data[timerFiredKey]; ok && fired.Boolean {
		flows := ec.Graph.OutgoingFlows(node.ID)
		if len(flows) == 0 {
			return &ExecutionResult{Consumed: true}, nil
		}
		delete(ec.Token.Data, timerFiredKey)
		return &ExecutionResult{NextNodeIDs: []string{flows[0].TargetRef}}, nil
	}

	fireAt, err := timer.NextFireTime(node.TimerDefinition, time.Now())
	if err != nil {
		return nil, &enginerr.InvalidProcessDefinitionError{Reason: "timer node " + node.ID + ": " + err.Error()}
	}

	record := bpmnmodel.TimerRecord{
		ID:           bpmnmodel.NewID(),
		InstanceID:   ec.InstanceID,
		NodeID:       node.ID,
		Definition:   node.TimerDefinition,
		NextFireTime: fireAt,
		State:        bpmnmodel.TimerArmed,
	}
	if err := te.exec.timers.Arm(record); err != nil {
		return nil, &enginerr.EngineTransientError{Cause: err}
	}

	logger.Debug("timer armed", logger.String("node_id", node.ID), logger.String("timer_id", record.ID))

	// Token stays parked at this node; nothing to requeue.
	return nil, nil
}

// timerFiredKey is the reserved token-data key the dispatch layer's
// process.timer_triggered handler stamps before re-entering the executor
// at a fired timer node, distinguishing "just arrived, arm a timer" from
// "timer already fired, proceed."
const timerFiredKey = "__timer_fired__"
