package domain

// Order Statuses
const (
	OrderStatusPending       = "pending"
	OrderStatusProcessing    = "processing"
	OrderStatusShipped       = "shipped"
	OrderStatusDelivered     = "delivered"
	OrderStatusCancelled     = "cancelled"
	OrderStatusReturnRequest = "return_request"
)

// Payment Statuses
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

// Delivery Methods
const (
	DeliveryMethodCOD      = "cod"
	DeliveryMethodStandard = "standard"
	DeliveryMethodOther    = "other"
)

// List Exports for API
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturnRequest,
}

var PaymentStatuses = []string{
	PaymentStatusPaid,
	PaymentStatusUnpaid,
}

var DeliveryMethods = []string{
	DeliveryMethodCOD,
	DeliveryMethodStandard,
	DeliveryMethodOther,
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}
