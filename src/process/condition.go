/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package process

import (
	"fmt"

	"github.com/dop251/goja"

	"bpmflow/src/core/models"
)

// evaluateCondition runs a flow's guard expression as a JavaScript boolean
// expression, with the token's scoped data and the instance's variables
// injected as bound names. A fresh goja runtime is used per call for
// isolation between unrelated evaluations, the same pattern used
// elsewhere in the reference stack for sandboxing small scripts.
func evaluateCondition(expr string, bindings map[string]interface{}) (bool, error) {
	vm := goja.New()
	for name, value := range bindings {
		if err := vm.Set(name, value); err != nil {
			return false, fmt.Errorf("failed to bind %q: %w", name, err)
		}
	}

	val, err := vm.RunString(expr)
	if err != nil {
		return false, fmt.Errorf("condition %q failed: %w", expr, err)
	}
	return val.ToBoolean(), nil
}

// conditionBindings merges token-scoped data over instance variables, so a
// parallel branch's local writes shadow the instance-wide value of the
// same name when evaluating a flow guard.
func conditionBindings(variables map[string]interface{}, tokenData map[string]bpmnmodel.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(variables)+len(tokenData))
	for k, v := range variables {
		out[k] = v
	}
	for k, v := range tokenData {
		out[k] = v.Native()
	}
	return out
}
