/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package bpmnmodel

// NodeKind enumerates the element kinds the executor understands.
type NodeKind string

const (
	NodeStart        NodeKind = "start"
	NodeEnd          NodeKind = "end"
	NodeTask         NodeKind = "task"
	NodeGateway      NodeKind = "gateway"
	NodeIntermediate NodeKind = "intermediate"
)

// TaskKind distinguishes how a task node is invoked.
type TaskKind string

const (
	TaskUser    TaskKind = "user"
	TaskService TaskKind = "service"
	TaskScript  TaskKind = "script"
	TaskReceive TaskKind = "receive"
)

// Async reports whether this task kind leaves the token parked awaiting an
// external signal rather than completing synchronously.
func (k TaskKind) Async() bool {
	return k == TaskUser || k == TaskReceive
}

// GatewayKind enumerates the supported gateway semantics.
type GatewayKind string

const (
	GatewayExclusive GatewayKind = "exclusive"
	GatewayParallel  GatewayKind = "parallel"
	GatewayInclusive GatewayKind = "inclusive"
)

// EventType distinguishes intermediate/boundary event flavors; only timer
// events are implemented, matching spec scope.
type EventType string

const (
	EventTimer EventType = "timer"
)

// Node is one element of a parsed BPMN graph.
// Узел графа процесса
type Node struct {
	ID          string      `json:"id"`
	Type        NodeKind    `json:"type"`
	TaskKind    TaskKind    `json:"task_kind,omitempty"`
	GatewayKind GatewayKind `json:"gateway_kind,omitempty"`
	EventType   EventType   `json:"event_type,omitempty"`
	// TimerDefinition holds an ISO-8601 duration/repeating-interval string
	// (PT30S, R3/PT20S) or a six-field cron expression, for intermediate
	// and boundary timer nodes.
	TimerDefinition string `json:"timer_definition,omitempty"`
	// Boundary, when set, names the task this timer is attached to as a
	// boundary event rather than a free-standing intermediate event.
	Boundary string `json:"boundary,omitempty"`
}

// Flow is a directed sequence flow between two nodes, with an optional
// guard condition evaluated in declaration order at exclusive/inclusive
// gateways.
// Дуга графа процесса
type Flow struct {
	ID        string `json:"id"`
	SourceRef string `json:"source_ref"`
	TargetRef string `json:"target_ref"`
	Condition string `json:"condition,omitempty"`
	IsDefault bool   `json:"is_default,omitempty"`
}

// Graph is the in-memory process graph handed to the Executor by the
// out-of-scope BPMN parser collaborator.
// Граф процесса
type Graph struct {
	Nodes []Node `json:"nodes"`
	Flows []Flow `json:"flows"`
}

// NodeByID looks up a node by id.
func (g *Graph) NodeByID(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// OutgoingFlows returns flows leaving nodeID, in declaration order.
func (g *Graph) OutgoingFlows(nodeID string) []Flow {
	var out []Flow
	for _, f := range g.Flows {
		if f.SourceRef == nodeID {
			out = append(out, f)
		}
	}
	return out
}

// IncomingFlows returns flows entering nodeID, in declaration order.
func (g *Graph) IncomingFlows(nodeID string) []Flow {
	var in []Flow
	for _, f := range g.Flows {
		if f.TargetRef == nodeID {
			in = append(in, f)
		}
	}
	return in
}

// StartNodes returns every node of kind start.
func (g *Graph) StartNodes() []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == NodeStart {
			out = append(out, n)
		}
	}
	return out
}
