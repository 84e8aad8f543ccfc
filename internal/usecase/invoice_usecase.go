package usecase

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/pixelandcode07/guptodhan-sub002/internal/domain"
	"github.com/pixelandcode07/guptodhan-sub002/pkg/cache"
	"github.com/pixelandcode07/guptodhan-sub002/pkg/logger"
)

// InvoiceDocument is the printable materialization of an order snapshot.
// Amounts are in the smallest currency unit; Subtotal is always
// Total - DeliveryCharge, never recomputed from line items.
type InvoiceDocument struct {
	OrderNo        string              `json:"orderNo"`
	IssuedAt       time.Time           `json:"issuedAt"`
	Status         string              `json:"status"`
	PaymentStatus  string              `json:"paymentStatus"`
	DeliveryMethod string              `json:"deliveryMethod"`
	TrackingID     *string             `json:"trackingId,omitempty"`
	Customer       domain.CustomerInfo `json:"customer"`
	Address        domain.JSONB        `json:"address"`
	Lines          []InvoiceLine       `json:"lines"`
	Subtotal       int64               `json:"subtotal"`
	DeliveryCharge int64               `json:"deliveryCharge"`
	Total          int64               `json:"total"`
}

type InvoiceLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	LineTotal int64  `json:"lineTotal"`
}

// RenderInvoice is pure: identical snapshots produce identical documents,
// regardless of lifecycle state, and the order is never touched.
func RenderInvoice(order *domain.Order) InvoiceDocument {
	lines := make([]InvoiceLine, len(order.Items))
	for i, it := range order.Items {
		lines[i] = InvoiceLine{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal(),
		}
	}

	return InvoiceDocument{
		OrderNo:        order.OrderNo,
		IssuedAt:       order.CreatedAt,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		DeliveryMethod: order.DeliveryMethod,
		TrackingID:     order.TrackingID,
		Customer:       order.Customer,
		Address:        order.Address,
		Lines:          lines,
		Subtotal:       order.Subtotal(),
		DeliveryCharge: order.DeliveryCharge,
		Total:          order.Total,
	}
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{.OrderNo}}</title></head>
<body>
<h1>Invoice {{.OrderNo}}</h1>
<p>{{.Customer.Name}} &mdash; {{.Customer.Phone}}</p>
<table border="1" cellspacing="0" cellpadding="4">
<tr><th>Item</th><th>Qty</th><th>Unit</th><th>Amount</th></tr>
{{range .Lines}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.LineTotal}}</td></tr>
{{end}}<tr><td colspan="3">Subtotal</td><td>{{.Subtotal}}</td></tr>
<tr><td colspan="3">Delivery Charge</td><td>{{.DeliveryCharge}}</td></tr>
<tr><td colspan="3"><strong>Total</strong></td><td><strong>{{.Total}}</strong></td></tr>
</table>
<p>Payment: {{.PaymentStatus}} | Delivery: {{.DeliveryMethod}}{{if .TrackingID}} | Tracking: {{.TrackingID}}{{end}}</p>
</body>
</html>
`))

// InvoiceArchiver stores a copy of the rendered document out of band.
type InvoiceArchiver interface {
	StoreInvoice(ctx context.Context, orderNo string, version int64, html []byte) (string, error)
}

type InvoiceUsecase struct {
	orderRepo domain.OrderRepository
	cache     cache.CacheService
	archive   InvoiceArchiver // nil when archival is not configured
	cacheTTL  time.Duration
}

func NewInvoiceUsecase(repo domain.OrderRepository, memCache cache.CacheService, archive InvoiceArchiver, cacheTTL time.Duration) *InvoiceUsecase {
	return &InvoiceUsecase{
		orderRepo: repo,
		cache:     memCache,
		archive:   archive,
		cacheTTL:  cacheTTL,
	}
}

// GetInvoice loads the current snapshot and renders it. The HTML is cached
// keyed by id and version, so a stale copy can never outlive a transition.
func (u *InvoiceUsecase) GetInvoice(ctx context.Context, orderID string) (*InvoiceDocument, []byte, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	doc := RenderInvoice(order)

	cacheKey := fmt.Sprintf("invoice:%s:%d", order.ID, order.Version)
	if cached, ok := u.cache.Get(cacheKey); ok {
		if html, ok := cached.([]byte); ok {
			return &doc, html, nil
		}
	}

	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, doc); err != nil {
		return nil, nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	html := buf.Bytes()
	u.cache.Set(cacheKey, html, u.cacheTTL)

	if u.archive != nil {
		// Archive off the request path; failure is logged, never surfaced.
		orderNo, version := order.OrderNo, order.Version
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := u.archive.StoreInvoice(ctx, orderNo, version, html); err != nil {
				logger.Warn().Err(err).Str("order_no", orderNo).Msg("Invoice archival failed")
			}
		}()
	}

	return &doc, html, nil
}
