package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/pixelandcode07/guptodhan-sub002/internal/domain"
	"github.com/pixelandcode07/guptodhan-sub002/pkg/logger"
)

// FulfillmentUsecase is the only component allowed to mutate order status and
// shipment fields. Every transition request is one synchronous unit of work:
// load, validate, optional courier call, single guarded write.
type FulfillmentUsecase struct {
	orderRepo domain.OrderRepository
	courier   domain.CourierClient
	txManager domain.TransactionManager
}

func NewFulfillmentUsecase(repo domain.OrderRepository, courier domain.CourierClient, txManager domain.TransactionManager) *FulfillmentUsecase {
	return &FulfillmentUsecase{
		orderRepo: repo,
		courier:   courier,
		txManager: txManager,
	}
}

// TransitionOptions carries the caller's explicit inputs. ActorID comes from
// the authenticated admin context; there is no ambient session state here.
type TransitionOptions struct {
	TrackingID *string
	ParcelID   *string
	Note       string
	ActorID    string
}

// RequestTransition moves an order to target. When the plan requires a
// shipment, the courier is called before anything is written; any courier
// failure leaves the order exactly as it was.
func (u *FulfillmentUsecase) RequestTransition(ctx context.Context, orderID, target string, opts TransitionOptions) (*domain.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return u.transition(ctx, order, target, opts)
}

// CreateShipment is the courier-creation path behind POST /orders/{id}/shipment.
// It shares the transition core but additionally rejects orders whose
// delivery method is handled manually.
func (u *FulfillmentUsecase) CreateShipment(ctx context.Context, orderID string, opts TransitionOptions) (*domain.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CourierEligible() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotCourierEligible, order.DeliveryMethod)
	}
	return u.transition(ctx, order, domain.OrderStatusShipped, opts)
}

func (u *FulfillmentUsecase) transition(ctx context.Context, order *domain.Order, target string, opts TransitionOptions) (*domain.Order, error) {
	log := logger.WithContext(ctx)

	plan, err := domain.PlanTransition(order, target)
	if err != nil {
		return nil, err
	}

	// Idempotent confirmation: the shipment exists and the status already
	// holds. Nothing to write, nothing to send.
	if plan.Reconfirm {
		log.Info().Str("order_id", order.ID).Msg("Shipment already exists, transition confirmed")
		return order, nil
	}

	if err := u.applyManualIdentifiers(order, opts); err != nil {
		return nil, err
	}

	// The parcel id re-check is the idempotency guard: even if a concurrent
	// request slipped past PlanTransition, an order that already holds its
	// identifiers never reaches the courier again. The version predicate on
	// Save closes the remaining race.
	if plan.RequiresShipment && !order.HasShipment() {
		result, err := u.courier.CreateShipment(ctx, buildShipmentRequest(order))
		if err != nil {
			if errors.Is(err, domain.ErrCourierAuth) {
				log.Error().Err(err).Str("order_id", order.ID).Msg("Courier credentials rejected, operator attention required")
			} else {
				log.Warn().Err(err).Str("order_id", order.ID).Msg("Courier shipment creation failed")
			}
			return nil, err
		}
		order.TrackingID = &result.TrackingID
		order.ParcelID = &result.ParcelID
		log.Info().
			Str("order_id", order.ID).
			Str("tracking_id", result.TrackingID).
			Str("parcel_id", result.ParcelID).
			Msg("Courier shipment created")
	}

	oldStatus := order.Status
	expectedVersion := order.Version
	order.Status = target

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.orderRepo.Save(txCtx, order, expectedVersion); err != nil {
			return err
		}

		reason := opts.Note
		if reason == "" {
			reason = fmt.Sprintf("Status changed from %s to %s", oldStatus, target)
		}
		history := domain.OrderHistory{
			OrderID:        order.ID,
			PreviousStatus: &oldStatus,
			NewStatus:      target,
			Reason:         &reason,
		}
		if opts.ActorID != "" {
			history.CreatedBy = &opts.ActorID
		}
		if err := u.orderRepo.CreateOrderHistory(txCtx, &history); err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}
		return nil
	})
	if err != nil {
		// Roll the in-memory snapshot back so the caller never sees a
		// status that was not persisted.
		order.Status = oldStatus
		return nil, err
	}

	log.Info().
		Str("order_id", order.ID).
		Str("from", oldStatus).
		Str("to", target).
		Str("actor", opts.ActorID).
		Msg("Order transitioned")
	return order, nil
}

// applyManualIdentifiers merges operator-supplied tracking identifiers (for
// non-courier carriers). They are append-once: accepted only as a complete
// pair and only while unset.
func (u *FulfillmentUsecase) applyManualIdentifiers(order *domain.Order, opts TransitionOptions) error {
	if opts.TrackingID == nil && opts.ParcelID == nil {
		return nil
	}
	if opts.TrackingID == nil || opts.ParcelID == nil {
		return fmt.Errorf("%w: tracking and parcel identifiers must be set together", domain.ErrShipmentImmutable)
	}
	if order.HasShipment() {
		if *order.TrackingID == *opts.TrackingID && *order.ParcelID == *opts.ParcelID {
			return nil
		}
		return domain.ErrShipmentImmutable
	}
	order.TrackingID = opts.TrackingID
	order.ParcelID = opts.ParcelID
	return nil
}

func buildShipmentRequest(order *domain.Order) domain.ShipmentRequest {
	address := ""
	if v, ok := order.Address["formatted"].(string); ok {
		address = v
	} else {
		// Fall back to joining the structured parts the checkout flow stores.
		for _, key := range []string{"line1", "area", "city"} {
			if v, ok := order.Address[key].(string); ok && v != "" {
				if address != "" {
					address += ", "
				}
				address += v
			}
		}
	}

	return domain.ShipmentRequest{
		Reference:        order.OrderNo,
		RecipientName:    order.Customer.Name,
		RecipientPhone:   order.Customer.Phone,
		RecipientAddress: address,
		CODAmount:        order.CODAmount(),
	}
}

// --- Queries ---

func (u *FulfillmentUsecase) GetAllOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	return u.orderRepo.GetAll(ctx, filter)
}

func (u *FulfillmentUsecase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return u.orderRepo.GetByID(ctx, id)
}

func (u *FulfillmentUsecase) GetOrderHistory(ctx context.Context, orderID string) ([]domain.OrderHistory, error) {
	return u.orderRepo.GetOrderHistory(ctx, orderID)
}
