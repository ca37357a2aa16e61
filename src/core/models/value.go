/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package bpmnmodel

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValueType tags the native Go type carried by a Value.
// Тег типа значения переменной
type ValueType string

const (
	TypeInteger ValueType = "integer"
	TypeFloat   ValueType = "float"
	TypeBoolean ValueType = "boolean"
	TypeString  ValueType = "string"
	TypeJSON    ValueType = "json"
	TypeDate    ValueType = "date"
)

// ValidValueType reports whether tag is one of the recognized type tags.
func ValidValueType(tag ValueType) bool {
	switch tag {
	case TypeInteger, TypeFloat, TypeBoolean, TypeString, TypeJSON, TypeDate:
		return true
	default:
		return false
	}
}

// Value is the dynamically typed sum type every process Variable carries.
// Exactly one of the typed fields is meaningful, selected by Type.
// Типизированное значение переменной процесса
type Value struct {
	Type    ValueType   `json:"type"`
	Integer int64       `json:"integer,omitempty"`
	Float   float64     `json:"float,omitempty"`
	Boolean bool        `json:"boolean,omitempty"`
	String  string      `json:"string,omitempty"`
	JSON    interface{} `json:"json,omitempty"`
	Date    time.Time   `json:"date,omitempty"`
}

func NewIntegerValue(v int64) Value   { return Value{Type: TypeInteger, Integer: v} }
func NewFloatValue(v float64) Value   { return Value{Type: TypeFloat, Float: v} }
func NewBooleanValue(v bool) Value    { return Value{Type: TypeBoolean, Boolean: v} }
func NewStringValue(v string) Value   { return Value{Type: TypeString, String: v} }
func NewJSONValue(v interface{}) Value { return Value{Type: TypeJSON, JSON: v} }
func NewDateValue(v time.Time) Value  { return Value{Type: TypeDate, Date: v} }

// Native returns the value unwrapped to its plain Go representation, the
// shape callers of get_instance_variables see.
func (v Value) Native() interface{} {
	switch v.Type {
	case TypeInteger:
		return v.Integer
	case TypeFloat:
		return v.Float
	case TypeBoolean:
		return v.Boolean
	case TypeString:
		return v.String
	case TypeJSON:
		return v.JSON
	case TypeDate:
		return v.Date
	default:
		return nil
	}
}

// ValueFromNative builds a Value from a tag and a native Go value, checking
// that the value actually matches the declared tag.
func ValueFromNative(tag ValueType, native interface{}) (Value, error) {
	switch tag {
	case TypeInteger:
		switch n := native.(type) {
		case int:
			return NewIntegerValue(int64(n)), nil
		case int64:
			return NewIntegerValue(n), nil
		case float64:
			if n == float64(int64(n)) {
				return NewIntegerValue(int64(n)), nil
			}
		}
	case TypeFloat:
		switch n := native.(type) {
		case float64:
			return NewFloatValue(n), nil
		case float32:
			return NewFloatValue(float64(n)), nil
		case int:
			return NewFloatValue(float64(n)), nil
		}
	case TypeBoolean:
		if b, ok := native.(bool); ok {
			return NewBooleanValue(b), nil
		}
	case TypeString:
		if s, ok := native.(string); ok {
			return NewStringValue(s), nil
		}
	case TypeJSON:
		return NewJSONValue(native), nil
	case TypeDate:
		switch d := native.(type) {
		case time.Time:
			return NewDateValue(d), nil
		case string:
			t, err := time.Parse(time.RFC3339, d)
			if err != nil {
				return Value{}, fmt.Errorf("invalid date value %q: %w", d, err)
			}
			return NewDateValue(t), nil
		}
	default:
		return Value{}, fmt.Errorf("unknown type tag %q", tag)
	}
	return Value{}, fmt.Errorf("value %v does not match declared type %q", native, tag)
}

// Bytes returns the JSON encoding of v.
func (v Value) Bytes() ([]byte, error) {
	return json.Marshal(v)
}
