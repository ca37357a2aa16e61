/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package storage

import (
	"fmt"

	"bpmflow/src/incident"
)

const incidentPrefix = "incident:"

func incidentKey(id string) string {
	return incidentPrefix + id
}

// SaveIncident persists an incident row (create or update).
func (bs *BadgerStorage) SaveIncident(i incident.Incident) error {
	return bs.saveJSON(incidentKey(i.ID), i)
}

// LoadIncident loads an incident by id.
func (bs *BadgerStorage) LoadIncident(id string) (incident.Incident, error) {
	var i incident.Incident
	if err := bs.loadJSON(incidentKey(id), &i); err != nil {
		return incident.Incident{}, err
	}
	return i, nil
}

// ListIncidents scans all incidents, applying filter.
func (bs *BadgerStorage) ListIncidents(filter incident.Filter) ([]incident.Incident, error) {
	var out []incident.Incident
	err := bs.iterateWithPrefix(incidentPrefix, func(_ []byte, val []byte) error {
		var i incident.Incident
		if err := unmarshalInto(val, &i); err != nil {
			return fmt.Errorf("corrupt incident record: %w", err)
		}
		if filter.InstanceID != "" && i.InstanceID != filter.InstanceID {
			return nil
		}
		if filter.Status != "" && i.Status != filter.Status {
			return nil
		}
		out = append(out, i)
		return nil
	})
	return out, err
}
