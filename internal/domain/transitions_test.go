package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCanTransitionTableClosure(t *testing.T) {
	// Every allowed pair, explicitly.
	allowed := map[[2]string]bool{
		{OrderStatusPending, OrderStatusProcessing}:       true,
		{OrderStatusPending, OrderStatusCancelled}:        true,
		{OrderStatusProcessing, OrderStatusShipped}:       true,
		{OrderStatusProcessing, OrderStatusCancelled}:     true,
		{OrderStatusShipped, OrderStatusDelivered}:        true,
		{OrderStatusShipped, OrderStatusReturnRequest}:    true,
		{OrderStatusReturnRequest, OrderStatusDelivered}:  true,
		{OrderStatusReturnRequest, OrderStatusCancelled}:  true,
	}

	for _, from := range OrderStatuses {
		for _, to := range OrderStatuses {
			got := CanTransition(from, to)
			want := allowed[[2]string{from, to}]
			assert.Equalf(t, want, got, "CanTransition(%s, %s)", from, to)
		}
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, terminal := range []string{OrderStatusDelivered, OrderStatusCancelled} {
		for _, to := range OrderStatuses {
			assert.Falsef(t, CanTransition(terminal, to), "terminal %s must not reach %s", terminal, to)
		}
		assert.Empty(t, AllowedTransitions(terminal))
	}
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	assert.False(t, CanTransition("refunded", OrderStatusDelivered))
	assert.False(t, CanTransition(OrderStatusPending, "refunded"))
}

func TestPlanTransitionRequiresShipment(t *testing.T) {
	order := &Order{Status: OrderStatusProcessing, DeliveryMethod: DeliveryMethodCOD}

	plan, err := PlanTransition(order, OrderStatusShipped)
	require.NoError(t, err)
	assert.True(t, plan.RequiresShipment)
	assert.False(t, plan.Reconfirm)
}

func TestPlanTransitionManualDeliveryMethod(t *testing.T) {
	// "other" delivery methods never trigger the courier path.
	order := &Order{Status: OrderStatusProcessing, DeliveryMethod: DeliveryMethodOther}

	plan, err := PlanTransition(order, OrderStatusShipped)
	require.NoError(t, err)
	assert.False(t, plan.RequiresShipment)
}

func TestPlanTransitionShipmentAlreadyExists(t *testing.T) {
	// Identifiers set: the move to shipped is a plain status write.
	order := &Order{
		Status:         OrderStatusProcessing,
		DeliveryMethod: DeliveryMethodCOD,
		TrackingID:     strPtr("TRK1"),
		ParcelID:       strPtr("PID1"),
	}

	plan, err := PlanTransition(order, OrderStatusShipped)
	require.NoError(t, err)
	assert.False(t, plan.RequiresShipment)
	assert.False(t, plan.Reconfirm)
}

func TestPlanTransitionReconfirm(t *testing.T) {
	order := &Order{
		Status:         OrderStatusShipped,
		DeliveryMethod: DeliveryMethodCOD,
		TrackingID:     strPtr("TRK1"),
		ParcelID:       strPtr("PID1"),
	}

	plan, err := PlanTransition(order, OrderStatusShipped)
	require.NoError(t, err)
	assert.True(t, plan.Reconfirm)
	assert.False(t, plan.RequiresShipment)
}

func TestPlanTransitionRejectsTerminal(t *testing.T) {
	order := &Order{Status: OrderStatusDelivered}

	_, err := PlanTransition(order, OrderStatusProcessing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestPlanTransitionRejectsUnknownTarget(t *testing.T) {
	order := &Order{Status: OrderStatusPending}

	_, err := PlanTransition(order, "fake")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestPlanTransitionDeterministic(t *testing.T) {
	order := &Order{Status: OrderStatusProcessing, DeliveryMethod: DeliveryMethodStandard}

	first, err1 := PlanTransition(order, OrderStatusShipped)
	second, err2 := PlanTransition(order, OrderStatusShipped)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}
