/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package storage is the State Store Client: a BadgerDB-backed key-value
// store providing the durable token/variable/timer operations the
// execution engine needs, with CAS primitives for cross-process safety.
package storage

import (
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"bpmflow/src/core/config"
	"bpmflow/src/core/models"
	"bpmflow/src/incident"
)

// Config configures the BadgerDB-backed store.
// Конфигурация хранилища
type Config struct {
	Path    string
	Options *config.StorageOptionsConfig
}

// BadgerStorage is the sole Storage implementation: an embedded, ordered
// KV store with native CAS via versioned transactions, used for every
// durable piece of engine state (tokens, variables, timers, instances,
// definitions, locks, gateway sync state, incidents).
// Хранилище на базе BadgerDB
type BadgerStorage struct {
	config    *Config
	db        *badger.DB
	ready     bool
	startTime time.Time

	broadcast     *changeBroadcaster
	broadcastOnce sync.Once
}

// Storage is the State Store Client contract of spec §4.3, trimmed to the
// operations the engine actually calls.
type Storage interface {
	Init() error
	Start() error
	Stop() error
	IsReady() bool

	// Process definitions
	SaveDefinition(def bpmnmodel.ProcessDefinition) error
	LoadDefinition(id string) (bpmnmodel.ProcessDefinition, error)
	LoadDefinitionByChecksum(key string, checksum string) (bpmnmodel.ProcessDefinition, bool, error)

	// Process instances
	SaveInstance(inst bpmnmodel.ProcessInstance) error
	LoadInstance(id string) (bpmnmodel.ProcessInstance, error)
	UpsertInstance(inst bpmnmodel.ProcessInstance) (bool, error)

	// Tokens
	GetTokenPositions(instanceID string) ([]bpmnmodel.Token, error)
	AddToken(instanceID string, token bpmnmodel.Token) error
	RemoveToken(instanceID, tokenID string) error
	ReplaceTokenAtomic(old, next bpmnmodel.Token) (bpmnmodel.Token, error)
	DeleteTokens(instanceID string) error

	// Variables
	SetVariable(instanceID, name, scope string, value bpmnmodel.Value) (int64, error)
	GetVariable(instanceID, name, scope string, atVersion int64) (bpmnmodel.Value, bool, error)
	ListVariables(instanceID string) ([]bpmnmodel.Variable, error)

	// Timers
	PutTimer(record bpmnmodel.TimerRecord) (bpmnmodel.TimerRecord, error)
	DueTimers(now time.Time) ([]bpmnmodel.TimerRecord, error)
	MarkTimerFired(id string, expectedVersion int64) (bool, error)
	CancelTimer(id string, expectedVersion int64) (bool, error)
	AllArmedTimers() ([]bpmnmodel.TimerRecord, error)

	// Gateway join synchronization
	RecordGatewayArrival(instanceID, gatewayID, activationID string, arriving bpmnmodel.Token) ([]bpmnmodel.Token, error)
	ClearGatewaySync(instanceID, gatewayID, activationID string) error

	// Advisory locks
	AcquireLock(key string, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(key string, owner string) error

	// Change stream, used only by the Timer Scheduler for wake-ups
	Subscribe(prefix string) (<-chan []byte, func(), error)

	// Incidents
	SaveIncident(i incident.Incident) error
	LoadIncident(id string) (incident.Incident, error)
	ListIncidents(filter incident.Filter) ([]incident.Incident, error)
}

// NewStorage is defined in storage_badger.go, alongside Init/Start/Stop.
