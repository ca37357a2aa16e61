/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package incident

import (
	"context"
	"fmt"
	"time"

	"bpmflow/src/core/models"
)

// Store is the subset of the State Store Client the incident manager
// needs.
type Store interface {
	SaveIncident(i Incident) error
	LoadIncident(id string) (Incident, error)
	ListIncidents(filter Filter) ([]Incident, error)
}

// Manager raises and resolves incidents. Raising an incident does not
// itself transition instance state — the Instance Manager's
// set_error_state does that; this is the durable "why".
// Менеджер инцидентов
type Manager struct {
	store Store
}

// NewManager builds a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Raise records a new open incident for an instance.
func (m *Manager) Raise(ctx context.Context, instanceID string, kind Kind, message string, details string) (Incident, error) {
	i := Incident{
		ID:         bpmnmodel.NewID(),
		InstanceID: instanceID,
		Kind:       kind,
		Message:    message,
		Details:    details,
		Status:     StatusOpen,
		RaisedAt:   time.Now(),
	}
	if err := m.store.SaveIncident(i); err != nil {
		return Incident{}, fmt.Errorf("failed to raise incident: %w", err)
	}
	return i, nil
}

// Resolve marks an incident resolved with the given action.
func (m *Manager) Resolve(ctx context.Context, incidentID string, action ResolveAction) error {
	i, err := m.store.LoadIncident(incidentID)
	if err != nil {
		return fmt.Errorf("incident %s not found: %w", incidentID, err)
	}
	now := time.Now()
	i.Status = StatusResolved
	i.Action = action
	i.ResolvedAt = &now
	return m.store.SaveIncident(i)
}

// List returns incidents matching filter.
func (m *Manager) List(filter Filter) ([]Incident, error) {
	return m.store.ListIncidents(filter)
}
