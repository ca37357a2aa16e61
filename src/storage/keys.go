/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package storage

import "fmt"

// Key layout, matching the persisted state layout of spec §6.
const (
	definitionPrefix = "def:"
	instancePrefix   = "process:instance:"
	tokenSetPrefix   = "tokens:"
	variablePrefix   = "var:"
	timerPrefix      = "timer:"
	lockPrefix       = "lock:instance:"
	gatewayPrefix    = "gateway:"
)

func definitionKey(id string) string {
	return definitionPrefix + id
}

func instanceKey(id string) string {
	return instancePrefix + id
}

func tokenSetKey(instanceID string) string {
	return tokenSetPrefix + instanceID
}

func variableKeyPrefix(instanceID, scope, name string) string {
	return fmt.Sprintf("%s%s:%s:%s:", variablePrefix, instanceID, scope, name)
}

func variableKey(instanceID, scope, name string, version int64) string {
	return fmt.Sprintf("%s%s:%s:%s:%020d", variablePrefix, instanceID, scope, name, version)
}

func timerKey(fireTimeISO, id string) string {
	return fmt.Sprintf("%s%s:%s", timerPrefix, fireTimeISO, id)
}

func lockKey(instanceID string) string {
	return lockPrefix + instanceID
}

func gatewaySyncKey(instanceID, gatewayID, activationID string) string {
	return fmt.Sprintf("%s%s:%s:%s", gatewayPrefix, instanceID, gatewayID, activationID)
}
