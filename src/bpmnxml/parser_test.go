/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package bpmnxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bpmflow/src/core/models"
)

const sampleXML = `
<definitions>
  <process id="order-process">
    <startEvent id="start"/>
    <exclusiveGateway id="gw1" default="f-default"/>
    <serviceTask id="charge-card"/>
    <userTask id="manual-review"/>
    <intermediateCatchEvent id="wait-timer">
      <timerEventDefinition>
        <timeDuration>PT10M</timeDuration>
      </timerEventDefinition>
    </intermediateCatchEvent>
    <boundaryEvent id="review-timeout" attachedToRef="manual-review">
      <timerEventDefinition>
        <timeDuration>PT1H</timeDuration>
      </timerEventDefinition>
    </boundaryEvent>
    <endEvent id="end"/>
    <sequenceFlow id="f1" sourceRef="start" targetRef="gw1"/>
    <sequenceFlow id="f2" sourceRef="gw1" targetRef="charge-card">
      <conditionExpression>amount &gt; 100</conditionExpression>
    </sequenceFlow>
    <sequenceFlow id="f-default" sourceRef="gw1" targetRef="manual-review"/>
    <sequenceFlow id="f3" sourceRef="charge-card" targetRef="end"/>
    <sequenceFlow id="f4" sourceRef="manual-review" targetRef="end"/>
  </process>
</definitions>`

func TestParse_BuildsAllNodeKinds(t *testing.T) {
	p := New()
	g, err := p.Parse(sampleXML)
	require.NoError(t, err)

	start, ok := g.NodeByID("start")
	require.True(t, ok)
	assert.Equal(t, bpmnmodel.NodeStart, start.Type)

	end, ok := g.NodeByID("end")
	require.True(t, ok)
	assert.Equal(t, bpmnmodel.NodeEnd, end.Type)

	gw, ok := g.NodeByID("gw1")
	require.True(t, ok)
	assert.Equal(t, bpmnmodel.GatewayExclusive, gw.GatewayKind)

	service, ok := g.NodeByID("charge-card")
	require.True(t, ok)
	assert.Equal(t, bpmnmodel.TaskService, service.TaskKind)

	user, ok := g.NodeByID("manual-review")
	require.True(t, ok)
	assert.Equal(t, bpmnmodel.TaskUser, user.TaskKind)
}

func TestParse_IntermediateTimerEvent(t *testing.T) {
	p := New()
	g, err := p.Parse(sampleXML)
	require.NoError(t, err)

	n, ok := g.NodeByID("wait-timer")
	require.True(t, ok)
	assert.Equal(t, bpmnmodel.NodeIntermediate, n.Type)
	assert.Equal(t, bpmnmodel.EventTimer, n.EventType)
	assert.Equal(t, "PT10M", n.TimerDefinition)
	assert.Empty(t, n.Boundary)
}

func TestParse_BoundaryTimerEventRecordsAttachment(t *testing.T) {
	p := New()
	g, err := p.Parse(sampleXML)
	require.NoError(t, err)

	n, ok := g.NodeByID("review-timeout")
	require.True(t, ok)
	assert.Equal(t, "manual-review", n.Boundary)
	assert.Equal(t, "PT1H", n.TimerDefinition)
}

func TestParse_MarksDefaultFlowFromGatewayAttribute(t *testing.T) {
	p := New()
	g, err := p.Parse(sampleXML)
	require.NoError(t, err)

	for _, f := range g.Flows {
		if f.ID == "f-default" {
			assert.True(t, f.IsDefault)
		} else {
			assert.False(t, f.IsDefault, "flow %s should not be marked default", f.ID)
		}
	}
}

func TestParse_ConditionExpressionCarried(t *testing.T) {
	p := New()
	g, err := p.Parse(sampleXML)
	require.NoError(t, err)

	for _, f := range g.Flows {
		if f.ID == "f2" {
			assert.Equal(t, "amount > 100", f.Condition)
			return
		}
	}
	t.Fatal("flow f2 not found")
}

func TestParse_TimerEventWithoutDefinitionFails(t *testing.T) {
	p := New()
	_, err := p.Parse(`
<definitions>
  <process id="p">
    <intermediateCatchEvent id="broken-timer"/>
  </process>
</definitions>`)
	assert.Error(t, err)
}

func TestParse_InvalidXMLFails(t *testing.T) {
	p := New()
	_, err := p.Parse("not xml at all <<<")
	assert.Error(t, err)
}
