package core

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is; the typed errors below unwrap to them.
var (
	ErrMissingCategory = errors.New("missing category")
	ErrInvalidShipment = errors.New("invalid shipment")
	ErrInvalidMode     = errors.New("invalid mode")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidDrivers  = errors.New("invalid operating drivers")
)

// MissingCategoryError reports a ledger record that does not line up with the
// bucket map: either a mapped category is absent or a present one is unmapped.
type MissingCategoryError struct {
	Month    string
	Kind     LineKind
	Category string
	Unmapped bool
}

func (e *MissingCategoryError) Error() string {
	if e.Unmapped {
		return fmt.Sprintf("month %q: %s category %q is not in the bucket map", e.Month, e.Kind, e.Category)
	}
	return fmt.Sprintf("month %q: %s category %q is missing", e.Month, e.Kind, e.Category)
}

func (e *MissingCategoryError) Unwrap() error { return ErrMissingCategory }

// InvalidShipmentError names the offending input. Reason is empty for a
// non-positive input and set when derived figures leave the float range.
type InvalidShipmentError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidShipmentError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid shipment: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid shipment: %s must be positive, got %v", e.Field, e.Value)
}

func (e *InvalidShipmentError) Unwrap() error { return ErrInvalidShipment }

type InvalidModeError struct {
	Field string // "mode" or "equipment"
	Value string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("unrecognized %s %q", e.Field, e.Value)
}

func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("month index %d out of range [0,%d)", e.Index, e.Len)
}

func (e *IndexOutOfRangeError) Unwrap() error { return ErrIndexOutOfRange }

type InvalidDriversError struct {
	Field  string
	Reason string
}

func (e *InvalidDriversError) Error() string {
	return fmt.Sprintf("invalid operating driver %s: %s", e.Field, e.Reason)
}

func (e *InvalidDriversError) Unwrap() error { return ErrInvalidDrivers }

// CheckIndex validates a month selector against a ledger length.
func CheckIndex(i, n int) error {
	if i < 0 || i >= n {
		return &IndexOutOfRangeError{Index: i, Len: n}
	}
	return nil
}
