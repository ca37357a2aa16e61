/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package process

import (
	"sort"

	"bpmflow/src/core/enginerr"
	"bpmflow/src/core/logger"
	"bpmflow/src/core/models"
)

// ParallelGatewayExecutor handles both fork and join: a gateway with one
// incoming and several outgoing flows forks; one with several incoming
// and (typically) one outgoing joins.
// Исполнитель параллельного шлюза
type ParallelGatewayExecutor struct{}

func (pe *ParallelGatewayExecutor) Execute(ec *ExecutionContext, node bpmnmodel.Node) (*ExecutionResult, error) {
	incoming := ec.Graph.IncomingFlows(node.ID)
	outgoing := ec.Graph.OutgoingFlows(node.ID)

	if len(incoming) > 1 {
		return joinParallel(ec, node, len(incoming), outgoing)
	}
	return forkParallel(ec, node, outgoing)
}

// forkParallel creates one fresh token per outgoing flow, each stamped
// with a new activation id scoping this fork's eventual join, and
// consumes the incoming token.
func forkParallel(ec *ExecutionContext, node bpmnmodel.Node, outgoing []bpmnmodel.Flow) (*ExecutionResult, error) {
	if len(outgoing) == 0 {
		return nil, &enginerr.InvalidProcessDefinitionError{Reason: "parallel gateway " + node.ID + " has no outgoing flows"}
	}

	activation := bpmnmodel.NewID()
	parent := ec.Token.ID

	var children []bpmnmodel.Token
	for _, f := range outgoing {
		child := ec.Token.Clone(f.TargetRef)
		child.ParentToken = parent
		child.ActivationID = activation
		children = append(children, child)
	}

	logger.Debug("parallel gateway forked",
		logger.String("node_id", node.ID), logger.Int("branches", len(children)))

	return &ExecutionResult{Consumed: true, NewTokens: children}, nil
}

// joinParallel waits until one token has arrived for every incoming flow
// sharing the arriving token's activation id, then merges into a single
// token carrying the union of variable writes, conflicts resolved by
// token id only; arrival wall-clock order is not tracked.
func joinParallel(ec *ExecutionContext, node bpmnmodel.Node, expected int, outgoing []bpmnmodel.Flow) (*ExecutionResult, error) {
	arrived, err := ec.Exec.store.RecordGatewayArrival(ec.InstanceID, node.ID, ec.Token.ActivationID, ec.Token)
	if err != nil {
		return nil, &enginerr.EngineTransientError{Cause: err}
	}

	logger.Debug("token arrived at parallel join",
		logger.String("node_id", node.ID), logger.Int("arrived", len(arrived)), logger.Int("expected", expected))

	if len(arrived) < expected {
		return &ExecutionResult{Consumed: true}, nil
	}

	if err := ec.Exec.store.ClearGatewaySync(ec.InstanceID, node.ID, ec.Token.ActivationID); err != nil {
		return nil, &enginerr.EngineTransientError{Cause: err}
	}

	merged := mergeTokens(arrived)
	if len(outgoing) == 0 {
		return &ExecutionResult{Consumed: true}, nil
	}

	out := merged.Clone(outgoing[0].TargetRef)
	return &ExecutionResult{Consumed: true, NewTokens: []bpmnmodel.Token{out}}, nil
}

// mergeTokens unions every arrived token's data bag, last-writer-wins by
// token id for any name written by more than one branch.
func mergeTokens(tokens []bpmnmodel.Token) bpmnmodel.Token {
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })

	merged := tokens[0]
	data := make(map[string]bpmnmodel.Value, len(merged.Data))
	for _, t := range tokens {
		for k, v := range t.Data {
			data[k] = v
		}
	}
	merged.Data = data
	merged.ActivationID = ""
	merged.ParentToken = ""
	return merged
}
