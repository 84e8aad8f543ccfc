package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pixelandcode07/guptodhan-sub002/internal/domain"
	"github.com/pixelandcode07/guptodhan-sub002/internal/usecase"
	"github.com/pixelandcode07/guptodhan-sub002/pkg/utils"
)

type AdminOrderHandler struct {
	fulfillmentUC *usecase.FulfillmentUsecase
	invoiceUC     *usecase.InvoiceUsecase
}

func NewAdminOrderHandler(fulfillmentUC *usecase.FulfillmentUsecase, invoiceUC *usecase.InvoiceUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{fulfillmentUC: fulfillmentUC, invoiceUC: invoiceUC}
}

func (h *AdminOrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	}

	filter := domain.OrderFilter{
		Page:           page,
		Limit:          limit,
		Status:         r.URL.Query().Get("status"),
		PaymentStatus:  r.URL.Query().Get("payment_status"),
		DeliveryMethod: r.URL.Query().Get("delivery_method"),
		Search:         r.URL.Query().Get("search"),
	}

	orders, total, err := h.fulfillmentUC.GetAllOrders(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

func (h *AdminOrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	order, err := h.fulfillmentUC.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, order)
}

// UpdateStatus handles lifecycle transitions, including a Shipped target
// which routes through the courier when the order qualifies.
func (h *AdminOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	var req struct {
		Status     string  `json:"status"`
		TrackingID *string `json:"trackingId"`
		ParcelID   *string `json:"parcelId"`
		Note       string  `json:"note"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if !domain.IsValidStatus(req.Status) {
		utils.WriteError(w, http.StatusBadRequest, "Unknown status: "+req.Status)
		return
	}

	user, ok := r.Context().Value(domain.UserContextKey).(*domain.User)
	if !ok || user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	order, err := h.fulfillmentUC.RequestTransition(r.Context(), id, req.Status, usecase.TransitionOptions{
		TrackingID: req.TrackingID,
		ParcelID:   req.ParcelID,
		Note:       req.Note,
		ActorID:    user.ID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, order)
}

// CreateShipment explicitly hands the order to the courier. Safe to retry:
// an order that already holds its identifiers returns them without another
// provider call.
func (h *AdminOrderHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	// Body is optional for this endpoint.
	_ = utils.DecodeJSON(r, &req)

	user, ok := r.Context().Value(domain.UserContextKey).(*domain.User)
	if !ok || user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	order, err := h.fulfillmentUC.CreateShipment(r.Context(), id, usecase.TransitionOptions{
		Note:    req.Note,
		ActorID: user.ID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     order.Status,
		"trackingId": order.TrackingID,
		"parcelId":   order.ParcelID,
	})
}

func (h *AdminOrderHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	doc, html, err := h.invoiceUC.GetInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		utils.WriteJSON(w, http.StatusOK, doc)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(html)
}

func (h *AdminOrderHandler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	history, err := h.fulfillmentUC.GetOrderHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

// writeDomainError maps domain and courier failures onto HTTP statuses.
// Courier network trouble is a gateway problem; provider rejections carry
// enough detail for the operator to fix the order data.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotCourierEligible),
		errors.Is(err, domain.ErrShipmentImmutable):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		utils.WriteError(w, http.StatusConflict, "Order was modified concurrently, retry with fresh state")
	case errors.Is(err, domain.ErrCourierNetwork):
		utils.WriteError(w, http.StatusBadGateway, "Courier provider unreachable, safe to retry")
	case errors.Is(err, domain.ErrCourierRejected),
		errors.Is(err, domain.ErrPartialShipment):
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrCourierAuth):
		utils.WriteError(w, http.StatusInternalServerError, "Courier credentials rejected")
	default:
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
