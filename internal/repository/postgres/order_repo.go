package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pixelandcode07/guptodhan-sub002/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type orderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) domain.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_no, status, payment_status, delivery_method,
	tracking_id, parcel_id, total_amount, delivery_charge,
	customer_name, customer_phone, customer_email, shipping_address,
	version, created_at, updated_at`

func (r *orderRepository) scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var email *string
	var address []byte
	err := row.Scan(
		&o.ID, &o.OrderNo, &o.Status, &o.PaymentStatus, &o.DeliveryMethod,
		&o.TrackingID, &o.ParcelID, &o.Total, &o.DeliveryCharge,
		&o.Customer.Name, &o.Customer.Phone, &email, &address,
		&o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	if email != nil {
		o.Customer.Email = *email
	}
	if len(address) > 0 {
		var addr domain.JSONB
		json.Unmarshal(address, &addr)
		o.Address = addr
	}
	return &o, nil
}

func (r *orderRepository) loadItems(ctx context.Context, q DBTX, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, order_id, product_id, name, quantity, unit_price
		 FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	q := querier(ctx, r.db)

	address, err := json.Marshal(order.Address)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}

	var email *string
	if order.Customer.Email != "" {
		email = &order.Customer.Email
	}

	_, err = q.Exec(ctx,
		`INSERT INTO orders (id, order_no, status, payment_status, delivery_method,
			tracking_id, parcel_id, total_amount, delivery_charge,
			customer_name, customer_phone, customer_email, shipping_address, version)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,1)`,
		order.ID, order.OrderNo, order.Status, order.PaymentStatus, order.DeliveryMethod,
		order.TrackingID, order.ParcelID, order.Total, order.DeliveryCharge,
		order.Customer.Name, order.Customer.Phone, email, address,
	)
	if err != nil {
		return err
	}
	order.Version = 1

	for i := range order.Items {
		it := &order.Items[i]
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.OrderID = order.ID
		if _, err := q.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			it.ID, it.OrderID, it.ProductID, it.Name, it.Quantity, it.UnitPrice,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	q := querier(ctx, r.db)

	order, err := r.scanOrder(q.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, q, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) GetAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	q := querier(ctx, r.db)

	args := []any{}
	where := []string{}
	next := 1
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", next))
		args = append(args, filter.Status)
		next++
	}
	if filter.PaymentStatus != "" {
		where = append(where, fmt.Sprintf("payment_status = $%d", next))
		args = append(args, filter.PaymentStatus)
		next++
	}
	if filter.DeliveryMethod != "" {
		where = append(where, fmt.Sprintf("delivery_method = $%d", next))
		args = append(args, filter.DeliveryMethod)
		next++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(order_no ILIKE $%d OR customer_phone ILIKE $%d)", next, next))
		args = append(args, "%"+filter.Search+"%")
		next++
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	listArgs := append(args, limit, (page-1)*limit)
	rows, err := q.Query(ctx,
		`SELECT `+orderColumns+` FROM orders`+clause+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, next, next+1),
		listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Listing stays shallow; items are loaded with the detail view.
	return orders, total, nil
}

// Save is the single mutation path for status and shipment fields. The
// version predicate makes the caller's read-check-write sequence behave like
// an optimistic lock: a stale expectedVersion updates zero rows.
func (r *orderRepository) Save(ctx context.Context, order *domain.Order, expectedVersion int64) error {
	q := querier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`UPDATE orders
		 SET status = $1, tracking_id = $2, parcel_id = $3,
		     version = version + 1, updated_at = now()
		 WHERE id = $4 AND version = $5`,
		order.Status, order.TrackingID, order.ParcelID, order.ID, expectedVersion,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	order.Version = expectedVersion + 1
	return nil
}

func (r *orderRepository) CreateOrderHistory(ctx context.Context, history *domain.OrderHistory) error {
	q := querier(ctx, r.db)

	if history.ID == "" {
		history.ID = uuid.New().String()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO order_history (id, order_id, previous_status, new_status, reason, created_by)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		history.ID, history.OrderID, history.PreviousStatus, history.NewStatus, history.Reason, history.CreatedBy,
	)
	return err
}

func (r *orderRepository) GetOrderHistory(ctx context.Context, orderID string) ([]domain.OrderHistory, error) {
	q := querier(ctx, r.db)

	rows, err := q.Query(ctx,
		`SELECT id, order_id, previous_status, new_status, reason, created_by, created_at
		 FROM order_history WHERE order_id = $1 ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.OrderHistory
	for rows.Next() {
		var h domain.OrderHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.PreviousStatus, &h.NewStatus, &h.Reason, &h.CreatedBy, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
