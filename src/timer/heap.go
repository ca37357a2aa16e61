/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package timer

import (
	"container/heap"

	"bpmflow/src/core/models"
)

// timerHeap is a min-heap ordered by NextFireTime, the in-memory structure
// one scheduler instance owns; the authoritative state always lives in the
// store, so losing this heap on crash costs nothing but a rebuild via
// recover_from_crash.
type timerHeap []bpmnmodel.TimerRecord

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	return h[i].NextFireTime.Before(h[j].NextFireTime)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x interface{}) {
	*h = append(*h, x.(bpmnmodel.TimerRecord))
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var _ = heap.Interface(&timerHeap{})
