/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package bpmnxml is the BPMN Parser collaborator of spec.md §6: a pure
// function from BPMN 2.0 XML text to the in-memory bpmnmodel.Graph the
// Process Executor walks. It covers exactly the element vocabulary
// spec.md §3 enumerates (start/end events, user/service/script/receive
// tasks, exclusive/parallel/inclusive gateways, intermediate and boundary
// timer events) — rich BPMN coverage beyond those primitives is an
// explicit non-goal.
package bpmnxml

import (
	"encoding/xml"
	"fmt"

	"bpmflow/src/core/models"
)

type definitionsXML struct {
	XMLName xml.Name    `xml:"definitions"`
	Process processXML  `xml:"process"`
}

type processXML struct {
	ID                string              `xml:"id,attr"`
	StartEvents       []startEventXML     `xml:"startEvent"`
	EndEvents         []endEventXML       `xml:"endEvent"`
	Tasks             []taskXML           `xml:"task"`
	UserTasks         []taskXML           `xml:"userTask"`
	ServiceTasks      []taskXML           `xml:"serviceTask"`
	ScriptTasks       []taskXML           `xml:"scriptTask"`
	ReceiveTasks      []taskXML           `xml:"receiveTask"`
	ExclusiveGateways []gatewayXML        `xml:"exclusiveGateway"`
	ParallelGateways  []gatewayXML        `xml:"parallelGateway"`
	InclusiveGateways []gatewayXML        `xml:"inclusiveGateway"`
	IntermediateCatch []intermediateXML   `xml:"intermediateCatchEvent"`
	BoundaryEvents    []intermediateXML   `xml:"boundaryEvent"`
	SequenceFlows     []sequenceFlowXML   `xml:"sequenceFlow"`
}

type startEventXML struct {
	ID string `xml:"id,attr"`
}

type endEventXML struct {
	ID string `xml:"id,attr"`
}

type taskXML struct {
	ID string `xml:"id,attr"`
}

type gatewayXML struct {
	ID      string `xml:"id,attr"`
	Default string `xml:"default,attr"`
}

type intermediateXML struct {
	ID           string           `xml:"id,attr"`
	AttachedToID string           `xml:"attachedToRef,attr"`
	TimerDef     *timerDefXML     `xml:"timerEventDefinition"`
}

type timerDefXML struct {
	TimeDuration string `xml:"timeDuration"`
	TimeCycle    string `xml:"timeCycle"`
	TimeDate     string `xml:"timeDate"`
}

type sequenceFlowXML struct {
	ID            string `xml:"id,attr"`
	SourceRef     string `xml:"sourceRef,attr"`
	TargetRef     string `xml:"targetRef,attr"`
	ConditionExpr string `xml:"conditionExpression"`
}

// Parser implements instance.Parser: the engine's only collaborator-side
// dependency on an XML decoder.
type Parser struct{}

// New builds a Parser. Stateless; safe to share.
func New() *Parser {
	return &Parser{}
}

// Parse decodes bpmnXML into a Graph.
func (p *Parser) Parse(bpmnXML string) (*bpmnmodel.Graph, error) {
	var defs definitionsXML
	if err := xml.Unmarshal([]byte(bpmnXML), &defs); err != nil {
		return nil, fmt.Errorf("failed to parse BPMN XML: %w", err)
	}
	proc := defs.Process

	graph := &bpmnmodel.Graph{}

	for _, e := range proc.StartEvents {
		graph.Nodes = append(graph.Nodes, bpmnmodel.Node{ID: e.ID, Type: bpmnmodel.NodeStart})
	}
	for _, e := range proc.EndEvents {
		graph.Nodes = append(graph.Nodes, bpmnmodel.Node{ID: e.ID, Type: bpmnmodel.NodeEnd})
	}

	appendTasks(graph, proc.Tasks, bpmnmodel.TaskService)
	appendTasks(graph, proc.UserTasks, bpmnmodel.TaskUser)
	appendTasks(graph, proc.ServiceTasks, bpmnmodel.TaskService)
	appendTasks(graph, proc.ScriptTasks, bpmnmodel.TaskScript)
	appendTasks(graph, proc.ReceiveTasks, bpmnmodel.TaskReceive)

	appendGateways(graph, proc.ExclusiveGateways, bpmnmodel.GatewayExclusive)
	appendGateways(graph, proc.ParallelGateways, bpmnmodel.GatewayParallel)
	appendGateways(graph, proc.InclusiveGateways, bpmnmodel.GatewayInclusive)

	for _, e := range proc.IntermediateCatch {
		node, err := timerNode(e)
		if err != nil {
			return nil, err
		}
		graph.Nodes = append(graph.Nodes, node)
	}
	for _, e := range proc.BoundaryEvents {
		node, err := timerNode(e)
		if err != nil {
			return nil, err
		}
		node.Boundary = e.AttachedToID
		graph.Nodes = append(graph.Nodes, node)
	}

	for _, f := range proc.SequenceFlows {
		graph.Flows = append(graph.Flows, bpmnmodel.Flow{
			ID:        f.ID,
			SourceRef: f.SourceRef,
			TargetRef: f.TargetRef,
			Condition: f.ConditionExpr,
		})
	}

	markDefaultFlows(graph, proc)

	return graph, nil
}

func appendTasks(graph *bpmnmodel.Graph, tasks []taskXML, kind bpmnmodel.TaskKind) {
	for _, t := range tasks {
		graph.Nodes = append(graph.Nodes, bpmnmodel.Node{ID: t.ID, Type: bpmnmodel.NodeTask, TaskKind: kind})
	}
}

func appendGateways(graph *bpmnmodel.Graph, gateways []gatewayXML, kind bpmnmodel.GatewayKind) {
	for _, g := range gateways {
		graph.Nodes = append(graph.Nodes, bpmnmodel.Node{ID: g.ID, Type: bpmnmodel.NodeGateway, GatewayKind: kind})
	}
}

func timerNode(e intermediateXML) (bpmnmodel.Node, error) {
	def := ""
	switch {
	case e.TimerDef == nil:
		return bpmnmodel.Node{}, fmt.Errorf("intermediate/boundary event %s has no timer definition", e.ID)
	case e.TimerDef.TimeDuration != "":
		def = e.TimerDef.TimeDuration
	case e.TimerDef.TimeCycle != "":
		def = e.TimerDef.TimeCycle
	case e.TimerDef.TimeDate != "":
		def = e.TimerDef.TimeDate
	default:
		return bpmnmodel.Node{}, fmt.Errorf("timer event %s has an empty timer definition", e.ID)
	}
	return bpmnmodel.Node{
		ID:              e.ID,
		Type:            bpmnmodel.NodeIntermediate,
		EventType:       bpmnmodel.EventTimer,
		TimerDefinition: def,
	}, nil
}

// markDefaultFlows marks each flow named by a gateway's `default`
// attribute, which BPMN places on the gateway element pointing at a flow
// id rather than on the flow itself.
func markDefaultFlows(graph *bpmnmodel.Graph, proc processXML) {
	defaultFlowIDs := map[string]bool{}
	for _, g := range proc.ExclusiveGateways {
		if g.Default != "" {
			defaultFlowIDs[g.Default] = true
		}
	}
	for _, g := range proc.InclusiveGateways {
		if g.Default != "" {
			defaultFlowIDs[g.Default] = true
		}
	}
	for i := range graph.Flows {
		if defaultFlowIDs[graph.Flows[i].ID] {
			graph.Flows[i].IsDefault = true
		}
	}
}
