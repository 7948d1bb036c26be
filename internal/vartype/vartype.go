// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package vartype

import (
	"fmt"
)

type (
	// VarFloat64 is a type alias for Variable[float64], e.g. a location accuracy that a source
	// might not report.
	VarFloat64 = Variable[float64]

	// VarInt is a type alias for Variable[int], e.g. a district id that is only known for a
	// confirmed match.
	VarInt = Variable[int]
)

// Variable represents a generic type wrapper that holds a value and tracks whether it is present.
type Variable[T any] struct {
	value T
	isset bool
}

// NewVariable creates and returns a new Variable instance initialized with the provided value.
func NewVariable[T any](value T) Variable[T] {
	return Variable[T]{
		isset: true,
		value: value,
	}
}

// Absent returns an unset Variable.
func Absent[T any]() Variable[T] {
	return Variable[T]{}
}

// Reset clears the value of the Variable and marks it as absent.
func (v *Variable[T]) Reset() {
	var newVal T
	v.value = newVal
	v.isset = false
}

// Value retrieves the current value stored in the Variable.
func (v Variable[T]) Value() T {
	return v.value
}

// Get returns the value and whether it is present.
func (v Variable[T]) Get() (T, bool) {
	return v.value, v.isset
}

// Set assigns the provided value to the Variable and marks it as present.
func (v *Variable[T]) Set(val T) {
	v.value = val
	v.isset = true
}

// IsSet returns true if the Variable holds a value.
func (v Variable[T]) IsSet() bool {
	return v.isset
}

// String returns a string representation of the Variable.
func (v Variable[T]) String() string {
	if !v.isset {
		return "absent"
	}
	return fmt.Sprint(v.value)
}
