package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelandcode07/guptodhan-sub002/internal/domain"
	"github.com/pixelandcode07/guptodhan-sub002/internal/usecase"
)

type stubOrderRepo struct {
	orders  map[string]*domain.Order
	history []domain.OrderHistory
	saveErr error
}

func (r *stubOrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *stubOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *stubOrderRepo) GetAll(_ context.Context, _ domain.OrderFilter) ([]domain.Order, int64, error) {
	out := make([]domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *stubOrderRepo) Save(_ context.Context, o *domain.Order, expectedVersion int64) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	stored, ok := r.orders[o.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	cp := *o
	cp.Version = expectedVersion + 1
	r.orders[o.ID] = &cp
	o.Version = cp.Version
	return nil
}

func (r *stubOrderRepo) CreateOrderHistory(_ context.Context, h *domain.OrderHistory) error {
	r.history = append(r.history, *h)
	return nil
}

func (r *stubOrderRepo) GetOrderHistory(_ context.Context, orderID string) ([]domain.OrderHistory, error) {
	var out []domain.OrderHistory
	for _, h := range r.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

type stubCourier struct {
	result *domain.ShipmentResult
	err    error
	calls  int
}

func (c *stubCourier) CreateShipment(_ context.Context, _ domain.ShipmentRequest) (*domain.ShipmentResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

type stubTx struct{}

func (stubTx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type stubCache struct{ store map[string]interface{} }

func (c *stubCache) Get(key string) (interface{}, bool) { v, ok := c.store[key]; return v, ok }
func (c *stubCache) Set(key string, value interface{}, _ time.Duration) {
	c.store[key] = value
}
func (c *stubCache) Delete(key string) { delete(c.store, key) }
func (c *stubCache) Flush()            { c.store = map[string]interface{}{} }

func testOrder() *domain.Order {
	return &domain.Order{
		ID:             "ord-1",
		OrderNo:        "GD-5001",
		Status:         domain.OrderStatusProcessing,
		PaymentStatus:  domain.PaymentStatusUnpaid,
		DeliveryMethod: domain.DeliveryMethodCOD,
		Total:          1500,
		DeliveryCharge: 120,
		Customer:       domain.CustomerInfo{Name: "Jamal Hossain", Phone: "01611112222"},
		Address:        domain.JSONB{"formatted": "12 Station Road, Chattogram"},
		Items:          []domain.OrderItem{{Name: "Backpack", Quantity: 1, UnitPrice: 1380}},
		Version:        1,
	}
}

func newHandler(repo *stubOrderRepo, courier *stubCourier) *AdminOrderHandler {
	fulfillmentUC := usecase.NewFulfillmentUsecase(repo, courier, stubTx{})
	invoiceUC := usecase.NewInvoiceUsecase(repo, &stubCache{store: map[string]interface{}{}}, nil, time.Minute)
	return NewAdminOrderHandler(fulfillmentUC, invoiceUC)
}

func adminRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	user := &domain.User{ID: "admin-1", Email: "ops@example.com", Role: "admin"}
	return r.WithContext(context.WithValue(r.Context(), domain.UserContextKey, user))
}

func TestUpdateStatusSuccess(t *testing.T) {
	repo := &stubOrderRepo{orders: map[string]*domain.Order{"ord-1": testOrder()}}
	repo.orders["ord-1"].Status = domain.OrderStatusPending
	h := newHandler(repo, &stubCourier{})

	r := adminRequest(http.MethodPatch, "/api/v1/admin/orders/ord-1/status", `{"status":"processing","note":"confirmed"}`)
	r.SetPathValue("id", "ord-1")
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"processing"`)
	assert.Equal(t, domain.OrderStatusProcessing, repo.orders["ord-1"].Status)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	repo := &stubOrderRepo{orders: map[string]*domain.Order{"ord-1": testOrder()}}
	h := newHandler(repo, &stubCourier{})

	r := adminRequest(http.MethodPatch, "/api/v1/admin/orders/ord-1/status", `{"status":"teleported"}`)
	r.SetPathValue("id", "ord-1")
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	repo := &stubOrderRepo{orders: map[string]*domain.Order{"ord-1": testOrder()}}
	repo.orders["ord-1"].Status = domain.OrderStatusDelivered
	h := newHandler(repo, &stubCourier{})

	r := adminRequest(http.MethodPatch, "/api/v1/admin/orders/ord-1/status", `{"status":"processing"}`)
	r.SetPathValue("id", "ord-1")
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusVersionConflict(t *testing.T) {
	repo := &stubOrderRepo{
		orders:  map[string]*domain.Order{"ord-1": testOrder()},
		saveErr: domain.ErrVersionConflict,
	}
	repo.orders["ord-1"].Status = domain.OrderStatusPending
	h := newHandler(repo, &stubCourier{})

	r := adminRequest(http.MethodPatch, "/api/v1/admin/orders/ord-1/status", `{"status":"processing"}`)
	r.SetPathValue("id", "ord-1")
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateShipmentSuccess(t *testing.T) {
	repo := &stubOrderRepo{orders: map[string]*domain.Order{"ord-1": testOrder()}}
	courier := &stubCourier{result: &domain.ShipmentResult{TrackingID: "15BAEB8A", ParcelID: "1424107"}}
	h := newHandler(repo, courier)

	r := adminRequest(http.MethodPost, "/api/v1/admin/orders/ord-1/shipment", "")
	r.SetPathValue("id", "ord-1")
	w := httptest.NewRecorder()

	h.CreateShipment(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "15BAEB8A")
	assert.Contains(t, w.Body.String(), `"shipped"`)
	assert.Equal(t, 1, courier.calls)
}

func TestCreateShipmentCourierDown(t *testing.T) {
	repo := &stubOrderRepo{orders: map[string]*domain.Order{"ord-1": testOrder()}}
	courier := &stubCourier{err: domain.ErrCourierNetwork}
	h := newHandler(repo, courier)

	r := adminRequest(http.MethodPost, "/api/v1/admin/orders/ord-1/shipment", "")
	r.SetPathValue("id", "ord-1")
	w := httptest.NewRecorder()

	h.CreateShipment(w, r)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	// Order survives unchanged so the operator can retry.
	assert.Equal(t, domain.OrderStatusProcessing, repo.orders["ord-1"].Status)
}

func TestCreateShipmentProviderRejected(t *testing.T) {
	repo := &stubOrderRepo{orders: map[string]*domain.Order{"ord-1": testOrder()}}
	courier := &stubCourier{err: domain.ErrCourierRejected}
	h := newHandler(repo, courier)

	r := adminRequest(http.MethodPost, "/api/v1/admin/orders/ord-1/shipment", "")
	r.SetPathValue("id", "ord-1")
	w := httptest.NewRecorder()

	h.CreateShipment(w, r)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	repo := &stubOrderRepo{orders: map[string]*domain.Order{}}
	h := newHandler(repo, &stubCourier{})

	r := adminRequest(http.MethodGet, "/api/v1/admin/orders/nope", "")
	r.SetPathValue("id", "nope")
	w := httptest.NewRecorder()

	h.GetOrder(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetInvoiceHTMLAndJSON(t *testing.T) {
	repo := &stubOrderRepo{orders: map[string]*domain.Order{"ord-1": testOrder()}}
	h := newHandler(repo, &stubCourier{})

	r := adminRequest(http.MethodGet, "/api/v1/admin/orders/ord-1/invoice", "")
	r.SetPathValue("id", "ord-1")
	w := httptest.NewRecorder()

	h.GetInvoice(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "GD-5001")

	r = adminRequest(http.MethodGet, "/api/v1/admin/orders/ord-1/invoice?format=json", "")
	r.SetPathValue("id", "ord-1")
	w = httptest.NewRecorder()

	h.GetInvoice(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, w.Body.String(), `"subtotal":1380`)
}

func TestGetOrderHistoryAfterTransition(t *testing.T) {
	repo := &stubOrderRepo{orders: map[string]*domain.Order{"ord-1": testOrder()}}
	repo.orders["ord-1"].Status = domain.OrderStatusPending
	h := newHandler(repo, &stubCourier{})

	r := adminRequest(http.MethodPatch, "/api/v1/admin/orders/ord-1/status", `{"status":"cancelled","note":"customer request"}`)
	r.SetPathValue("id", "ord-1")
	w := httptest.NewRecorder()
	h.UpdateStatus(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	r = adminRequest(http.MethodGet, "/api/v1/admin/orders/ord-1/history", "")
	r.SetPathValue("id", "ord-1")
	w = httptest.NewRecorder()

	h.GetOrderHistory(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "customer request")
	assert.Contains(t, w.Body.String(), "admin-1")
}
