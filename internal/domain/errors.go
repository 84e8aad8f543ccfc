package domain

import "errors"

// Order lifecycle errors. These are sentinel values so callers can branch
// with errors.Is while still wrapping context with fmt.Errorf("%w").
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrVersionConflict    = errors.New("order was modified by another request")
	ErrShipmentImmutable  = errors.New("shipment identifiers are already set and cannot be changed")
	ErrNotCourierEligible = errors.New("order delivery method is not eligible for courier shipment")
)

// Courier errors. The adapter classifies every failure into exactly one of
// these; only ErrCourierNetwork is safe to retry without data correction.
var (
	ErrCourierNetwork  = errors.New("courier request failed: network error")
	ErrCourierRejected = errors.New("courier rejected the shipment")
	ErrCourierAuth     = errors.New("courier authentication failed")
	ErrPartialShipment = errors.New("courier returned incomplete shipment identifiers")
)
