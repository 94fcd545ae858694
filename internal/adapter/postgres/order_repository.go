package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, order_number, table_number, customer_name, customer_phone,
	       status, total_amount, created_at, updated_at`

type orderRepository struct {
	db DB
}

// orderWriter runs the insert side of the store on a single transaction.
type orderWriter struct {
	q Querier
}

func NewOrderRepository(db DB) interfaces.OrderStore {
	return &orderRepository{db: db}
}

func (r *orderRepository) InTx(ctx context.Context, fn func(tx interfaces.OrderWriter) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&orderWriter{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (w *orderWriter) CreateOrder(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, table_number, customer_name, customer_phone,
		                    status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING order_number
	`
	err := w.q.QueryRow(ctx, query,
		order.ID, order.TableNumber, order.CustomerName, order.CustomerPhone,
		order.Status, order.TotalAmount, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.Number)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (w *orderWriter) CreateItems(ctx context.Context, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	var (
		sb   strings.Builder
		args = make([]any, 0, len(items)*7)
	)
	sb.WriteString(`INSERT INTO order_items (id, order_id, menu_item_id, item_name, unit_price, quantity, line_total) VALUES `)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7)
		args = append(args, it.ID, it.OrderID, it.MenuItemID, it.Name, it.UnitPrice, it.Quantity, it.LineTotal)
	}

	tag, err := w.q.Exec(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}
	if tag.RowsAffected() != int64(len(items)) {
		return fmt.Errorf("failed to insert order items: %d of %d written", tag.RowsAffected(), len(items))
	}
	return nil
}

func (w *orderWriter) LogStatus(ctx context.Context, orderID uuid.UUID, status domain.Status, changedBy string) error {
	return logStatus(ctx, w.q, orderID, status, changedBy)
}

func logStatus(ctx context.Context, q Querier, orderID uuid.UUID, status domain.Status, changedBy string) error {
	query := `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := q.Exec(ctx, query, orderID, status, changedBy, time.Now())
	if err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}
	return nil
}

// UpdateStatus is a compare-and-swap on the status column. The status log
// entry is written in the same transaction.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, changedBy string) (bool, time.Time, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING updated_at
	`
	var updatedAt time.Time
	err = tx.QueryRow(ctx, query, to, id, from).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to update order status: %w", err)
	}

	if err := logStatus(ctx, tx, id, to, changedBy); err != nil {
		return false, time.Time{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, time.Time{}, fmt.Errorf("failed to commit status update: %w", err)
	}
	return true, updatedAt, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	orders, err := r.ListOrders(ctx, domain.OrderFilter{IDs: []uuid.UUID{id}, WithItems: true})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return orders[0], nil
}

func (r *orderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.Since != nil {
		args = append(args, *filter.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, uuidStrings(filter.IDs))
		where = append(where, fmt.Sprintf("id = ANY($%d::uuid[])", len(args)))
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []*domain.Order
		index  = make(map[uuid.UUID]*domain.Order)
	)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.Number, &o.TableNumber, &o.CustomerName, &o.CustomerPhone,
			&o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &o)
		index[o.ID] = &o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	if filter.WithItems && len(orders) > 0 {
		if err := r.loadItems(ctx, index); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, index map[uuid.UUID]*domain.Order) error {
	ids := make([]uuid.UUID, 0, len(index))
	for id, o := range index {
		ids = append(ids, id)
		o.Items = []domain.OrderItem{}
		o.ItemsLoaded = true
	}

	query := `
		SELECT id, order_id, menu_item_id, item_name, unit_price, quantity, line_total
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, item_name
	`
	rows, err := r.db.Query(ctx, query, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.UnitPrice, &it.Quantity, &it.LineTotal); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := index[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *orderRepository) StatusHistory(ctx context.Context, id uuid.UUID) ([]*domain.StatusLog, error) {
	query := `
		SELECT id, order_id, status, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC
	`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var log domain.StatusLog
		if err := rows.Scan(&log.ID, &log.OrderID, &log.Status, &log.ChangedBy, &log.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
