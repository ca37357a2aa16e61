/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package process

import (
	"context"

	"bpmflow/src/core/models"
)

// ExecutionContext is what an ElementExecutor receives for one step: the
// token currently at the node, the instance it belongs to, and the graph
// it is walking. Exec gives an executor access back to the Store/Registry
// collaborators for the rare case it needs more than the result shape
// below expresses (e.g. the gateway join's durable arrival bookkeeping).
type ExecutionContext struct {
	Ctx        context.Context
	InstanceID string
	Graph      *bpmnmodel.Graph
	Token      bpmnmodel.Token
	Exec       *Executor
}

// ExecutionResult is what an ElementExecutor returns: where the token (or
// its children) go next, whether the originating token was consumed, and
// any brand-new tokens a split produced.
type ExecutionResult struct {
	// NextNodeIDs advances the current token to each listed node in turn
	// (a single entry for ordinary flow; Executor.applyResult chains
	// Clone() calls for the rare executor producing more than one).
	NextNodeIDs []string
	// NewTokens are fresh tokens a parallel/inclusive split creates,
	// already carrying the fork's ActivationID.
	NewTokens []bpmnmodel.Token
	// Consumed marks the originating token as spent: true for an end
	// event and for a join's non-winning arrivals.
	Consumed bool
}

// ElementExecutor is one BPMN element kind's execution strategy,
// dispatched through ElementRegistry by the node's kind (and, for tasks
// and gateways, its sub-kind).
type ElementExecutor interface {
	Execute(ec *ExecutionContext, node bpmnmodel.Node) (*ExecutionResult, error)
}
