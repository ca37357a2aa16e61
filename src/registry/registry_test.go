/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRegistry_InvokeUnregisteredTaskFails(t *testing.T) {
	reg := NewInMemoryRegistry()
	_, err := reg.Invoke(context.Background(), "missing", TaskInput{})
	assert.Error(t, err)
}

func TestInMemoryRegistry_RegisterAndInvoke(t *testing.T) {
	reg := NewInMemoryRegistry()
	reg.Register("charge-card", func(ctx context.Context, input TaskInput) (TaskResult, error) {
		return TaskResult{Output: map[string]interface{}{"charged": true, "node": input.NodeID}}, nil
	})

	result, err := reg.Invoke(context.Background(), "charge-card", TaskInput{NodeID: "n1", InstanceID: "i1"})
	require.NoError(t, err)
	assert.Equal(t, true, result.Output["charged"])
	assert.Equal(t, "n1", result.Output["node"])
}

func TestInMemoryRegistry_RegisterReplacesExisting(t *testing.T) {
	reg := NewInMemoryRegistry()
	reg.Register("task", func(ctx context.Context, input TaskInput) (TaskResult, error) {
		return TaskResult{Output: map[string]interface{}{"v": 1}}, nil
	})
	reg.Register("task", func(ctx context.Context, input TaskInput) (TaskResult, error) {
		return TaskResult{Output: map[string]interface{}{"v": 2}}, nil
	})

	result, err := reg.Invoke(context.Background(), "task", TaskInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Output["v"])
}

func TestInMemoryRegistry_ListTasks(t *testing.T) {
	reg := NewInMemoryRegistry()
	reg.Register("a", func(ctx context.Context, input TaskInput) (TaskResult, error) { return TaskResult{}, nil })
	reg.Register("b", func(ctx context.Context, input TaskInput) (TaskResult, error) { return TaskResult{}, nil })

	names := map[string]bool{}
	for _, d := range reg.ListTasks() {
		names[d.Name] = true
	}
	assert.True(t, names["a"])
	assert.True(t, names["b"])
	assert.Len(t, reg.ListTasks(), 2)
}

func TestInMemoryRegistry_InvokePropagatesTaskError(t *testing.T) {
	reg := NewInMemoryRegistry()
	reg.Register("fails", func(ctx context.Context, input TaskInput) (TaskResult, error) {
		return TaskResult{}, assert.AnError
	})
	_, err := reg.Invoke(context.Background(), "fails", TaskInput{})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewDirRegistry_MissingDirectoryIsNotAnError(t *testing.T) {
	reg, err := NewDirRegistry("/nonexistent/path/does/not/exist")
	require.NoError(t, err)
	assert.Empty(t, reg.ListTasks())
}

func TestNewDirRegistry_EmptyDirArgStaysEmpty(t *testing.T) {
	reg, err := NewDirRegistry("")
	require.NoError(t, err)
	assert.Empty(t, reg.ListTasks())
}

func TestNewDirRegistry_EmptyDirectoryStaysEmpty(t *testing.T) {
	reg, err := NewDirRegistry(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, reg.ListTasks())
}
