/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package bpmnmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProcessInstance_StartsInCreated(t *testing.T) {
	inst := NewProcessInstance("inst-1", "def-1")
	assert.Equal(t, StatusCreated, inst.Status)
	assert.Equal(t, "inst-1", inst.ID)
	assert.Equal(t, "def-1", inst.DefinitionID)
	assert.False(t, inst.StartTime.IsZero())
	assert.Nil(t, inst.EndTime)
}

func TestCanTransition_AllowedEdges(t *testing.T) {
	cases := []struct {
		from, to InstanceStatus
	}{
		{StatusCreated, StatusRunning},
		{StatusRunning, StatusSuspended},
		{StatusRunning, StatusError},
		{StatusRunning, StatusCompleted},
		{StatusSuspended, StatusRunning},
		{StatusError, StatusRunning},
		{StatusError, StatusCompleted},
	}
	for _, c := range cases {
		assert.True(t, CanTransition(c.from, c.to), "%s -> %s should be allowed", c.from, c.to)
	}
}

func TestCanTransition_RejectsDisallowedEdges(t *testing.T) {
	cases := []struct {
		from, to InstanceStatus
	}{
		{StatusCreated, StatusCompleted},
		{StatusCreated, StatusSuspended},
		{StatusSuspended, StatusCompleted},
		{StatusSuspended, StatusError},
		{StatusCompleted, StatusRunning},
		{StatusCompleted, StatusError},
	}
	for _, c := range cases {
		assert.False(t, CanTransition(c.from, c.to), "%s -> %s should be rejected", c.from, c.to)
	}
}

func TestCanTransition_UnknownSourceStatus(t *testing.T) {
	assert.False(t, CanTransition(InstanceStatus("BOGUS"), StatusRunning))
}

func TestCanTransition_CompletedIsTerminal(t *testing.T) {
	for _, to := range []InstanceStatus{StatusCreated, StatusRunning, StatusSuspended, StatusError, StatusCompleted} {
		assert.False(t, CanTransition(StatusCompleted, to))
	}
}
