/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package bpmnmodel

// Token marks a position of execution within an instance's graph.
//
// ActivationID resolves the open question of inclusive/parallel-gateway
// join semantics across loop re-entry: every split firing stamps a fresh
// ActivationID on the tokens it creates, and a join matches only tokens
// sharing both ParentTokenID and ActivationID, so a loop that re-enters a
// split never merges with a stale join from a previous iteration.
// Токен, отмечающий позицию выполнения в графе процесса
type Token struct {
	ID           string                 `json:"id"`
	InstanceID   string                 `json:"instance_id"`
	NodeID       string                 `json:"node_id"`
	Scope        string                 `json:"scope,omitempty"`
	Data         map[string]Value       `json:"data,omitempty"`
	ParentToken  string                 `json:"parent_token,omitempty"`
	ActivationID string                 `json:"activation_id,omitempty"`
}

// NewToken creates a token at nodeID for instanceID, with no scope or
// parent — the shape create_initial_token produces.
func NewToken(instanceID, nodeID string) Token {
	return Token{
		ID:         NewID(),
		InstanceID: instanceID,
		NodeID:     nodeID,
	}
}

// Clone copies a token to a new node, preserving its data, scope, parent
// and activation id — the shape move_token and gateway splits build from.
func (t Token) Clone(nodeID string) Token {
	data := make(map[string]Value, len(t.Data))
	for k, v := range t.Data {
		data[k] = v
	}
	return Token{
		ID:           NewID(),
		InstanceID:   t.InstanceID,
		NodeID:       nodeID,
		Scope:        t.Scope,
		Data:         data,
		ParentToken:  t.ParentToken,
		ActivationID: t.ActivationID,
	}
}
