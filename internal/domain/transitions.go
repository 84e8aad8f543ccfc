package domain

import "fmt"

// transitions is the authoritative lifecycle table. Any pair not listed is
// rejected; delivered and cancelled are terminal.
var transitions = map[string][]string{
	OrderStatusPending:       {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:       {OrderStatusDelivered, OrderStatusReturnRequest},
	OrderStatusDelivered:     {},
	OrderStatusCancelled:     {},
	OrderStatusReturnRequest: {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransition reports whether current -> target appears in the lifecycle
// table. It is pure and deterministic.
func CanTransition(current, target string) bool {
	allowed, ok := transitions[current]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the targets reachable from current.
func AllowedTransitions(current string) []string {
	allowed := transitions[current]
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

// TransitionPlan is the state machine's decision for one requested move.
type TransitionPlan struct {
	Target string

	// RequiresShipment means the move to shipped must create a courier
	// consignment before the status write.
	RequiresShipment bool

	// Reconfirm means the order is already shipped with identifiers set;
	// the request is an idempotent confirmation, not a new transition.
	Reconfirm bool
}

// PlanTransition validates the requested move against the current snapshot
// and flags whether a shipment must be created. No I/O, no side effects.
func PlanTransition(o *Order, target string) (TransitionPlan, error) {
	if !IsValidStatus(target) {
		return TransitionPlan{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}

	// Re-requesting shipped on an order that already holds its identifiers
	// is treated as a confirmation, not a table lookup.
	if target == OrderStatusShipped && o.Status == OrderStatusShipped && o.HasShipment() {
		return TransitionPlan{Target: target, Reconfirm: true}, nil
	}

	if !CanTransition(o.Status, target) {
		return TransitionPlan{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}

	plan := TransitionPlan{Target: target}
	if target == OrderStatusShipped && !o.HasShipment() && o.CourierEligible() {
		plan.RequiresShipment = true
	}
	return plan, nil
}
