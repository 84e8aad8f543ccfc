package domain

import (
	"context"
	"time"
)

type OrderFilter struct {
	Page           int
	Limit          int
	Status         string
	PaymentStatus  string
	DeliveryMethod string
	Search         string
}

// --- Order Entities ---

// Order is the aggregate root of the fulfillment lifecycle. Monetary amounts
// are in the smallest currency unit so arithmetic stays exact.
type Order struct {
	ID             string       `json:"id"`
	OrderNo        string       `json:"orderNo"`
	Status         string       `json:"status"`
	PaymentStatus  string       `json:"paymentStatus"`
	DeliveryMethod string       `json:"deliveryMethod"`
	TrackingID     *string      `json:"trackingId"`
	ParcelID       *string      `json:"parcelId"`
	Total          int64        `json:"total"`
	DeliveryCharge int64        `json:"deliveryCharge"`
	Items          []OrderItem  `json:"items"`
	Customer       CustomerInfo `json:"customer"`
	Address        JSONB        `json:"address"`
	Version        int64        `json:"version"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"` // Price at time of purchase
}

// LineTotal is derived, never stored.
func (i OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// CustomerInfo is the contact snapshot captured at order creation.
type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Subtotal is always derived as total minus delivery charge.
func (o *Order) Subtotal() int64 {
	return o.Total - o.DeliveryCharge
}

// HasShipment reports whether carrier identifiers have been persisted.
// The invariant is both-or-neither; both checks guard against bad data.
func (o *Order) HasShipment() bool {
	return o.TrackingID != nil && o.ParcelID != nil
}

// CourierEligible reports whether this order may be shipped through the
// courier integration. Other delivery methods are updated manually.
func (o *Order) CourierEligible() bool {
	return o.DeliveryMethod == DeliveryMethodCOD || o.DeliveryMethod == DeliveryMethodStandard
}

// CODAmount is the cash to collect on delivery: the full total for unpaid
// COD orders, zero otherwise.
func (o *Order) CODAmount() int64 {
	if o.DeliveryMethod == DeliveryMethodCOD && o.PaymentStatus != PaymentStatusPaid {
		return o.Total
	}
	return 0
}

// --- Audit Trail ---

type OrderHistory struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	PreviousStatus *string   `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Reason         *string   `json:"reason"`
	CreatedBy      *string   `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
}

// --- Courier Contract ---

// ShipmentRequest carries everything the courier provider needs to create a
// consignment. Reference is the caller-supplied merchant reference (the order
// number); the provider is not relied on to deduplicate by it.
type ShipmentRequest struct {
	Reference        string
	RecipientName    string
	RecipientPhone   string
	RecipientAddress string
	CODAmount        int64
	Note             string
}

// ShipmentResult holds the carrier-assigned identifiers. Both fields are
// required; an adapter never returns a partial result.
type ShipmentResult struct {
	TrackingID string
	ParcelID   string
}

// CourierClient wraps the external courier provider so the orchestrator can
// be tested against a fake. Implementations perform a single attempt and
// classify failures into the courier sentinel errors.
type CourierClient interface {
	CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error)
}

// --- Persistence Contracts ---

type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)

	// Save persists status and shipment fields as a single write guarded by
	// expectedVersion. It returns ErrVersionConflict when the row has moved
	// on, and bumps order.Version on success.
	Save(ctx context.Context, order *Order, expectedVersion int64) error

	CreateOrderHistory(ctx context.Context, history *OrderHistory) error
	GetOrderHistory(ctx context.Context, orderID string) ([]OrderHistory, error)
}

// TransactionManager runs fn inside a database transaction carried through
// the context.
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
