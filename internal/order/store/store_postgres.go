package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"dinein/internal/order/models"
	"dinein/internal/platform/postgres"
	id "dinein/pkg/domain"
	"dinein/pkg/platform/sentinel"
	"dinein/pkg/platform/tx"
)

// Postgres persists orders in PostgreSQL.
// This store is pure I/O: transition rules belong to the models and service.
// CompareAndTransition is a single conditional UPDATE so concurrent writers
// serialize on the row.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const orderColumns = `id, table_id, customer_id, customer_name, status, total_amount, notes,
	payment_method, cancel_reason, version, created_at, updated_at, paid_at`

func (s *Postgres) Create(ctx context.Context, order *models.Order) error {
	return tx.Run(ctx, s.db, func(ctx context.Context, exec tx.Executor) error {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO orders (id, table_id, customer_id, customer_name, status, total_amount, notes, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			order.ID.String(), string(order.TableID), nullCustomer(order.CustomerID), order.CustomerName,
			string(order.Status), int64(order.TotalAmount), order.Notes, order.Version, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return fmt.Errorf("order %s: %w", order.ID, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert order: %w", err)
		}
		for pos, item := range order.Items {
			modifiers, err := json.Marshal(item.Modifiers)
			if err != nil {
				return fmt.Errorf("encode modifiers: %w", err)
			}
			_, err = exec.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, position, menu_item_id, name, quantity, price_per_unit, modifiers, total_price)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				item.ID.String(), order.ID.String(), pos, string(item.MenuItemID), item.Name,
				item.Quantity, int64(item.PricePerUnit), modifiers, int64(item.TotalPrice),
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

func (s *Postgres) FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	exec := tx.ExecutorFor(ctx, s.db)
	order, err := scanOrder(exec.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	if err := s.attachItems(ctx, exec, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Postgres) ListByTable(ctx context.Context, tableID id.TableID, statuses []models.Status) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE table_id = $1`
	args := []any{string(tableID)}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statusStrings(statuses)))
	}
	query += ` ORDER BY created_at, id`
	return s.list(ctx, query, args...)
}

func (s *Postgres) ListByStatus(ctx context.Context, statuses []models.Status) ([]*models.Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = ANY($1) ORDER BY created_at, id`,
		pq.Array(statusStrings(statuses)))
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	exec := tx.ExecutorFor(ctx, s.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if err := s.attachItems(ctx, exec, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CompareAndTransition applies change iff the row is still at change.From.
// The status log row shares the transaction and the new version number.
func (s *Postgres) CompareAndTransition(ctx context.Context, change models.StatusChange) (*models.Order, bool, error) {
	applied := false
	err := tx.Run(ctx, s.db, func(ctx context.Context, exec tx.Executor) error {
		var version int64
		err := exec.QueryRowContext(ctx, `
			UPDATE orders SET
				status = $3,
				version = version + 1,
				updated_at = $4,
				paid_at = CASE WHEN $3 = 'paid' THEN COALESCE(paid_at, $4) ELSE paid_at END,
				payment_method = COALESCE($5, payment_method),
				cancel_reason = COALESCE($6, cancel_reason)
			WHERE id = $1 AND status = $2
			RETURNING version`,
			change.OrderID.String(), string(change.From), string(change.To), change.At,
			nullString(string(change.PaymentMethod)), nullString(cancelReason(change)),
		).Scan(&version)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			if postgres.IsCheckViolation(err) {
				return fmt.Errorf("order %s: %w", change.OrderID, sentinel.ErrInvalidState)
			}
			return fmt.Errorf("compare and transition: %w", err)
		}

		_, err = exec.ExecContext(ctx, `
			INSERT INTO order_status_log (order_id, from_status, to_status, actor_id, actor_role, reason, version, at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			change.OrderID.String(), string(change.From), string(change.To), nullActor(change.ActorID),
			string(change.Role), change.Reason, version, change.At,
		)
		if err != nil {
			return fmt.Errorf("append status log: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	current, err := s.FindByID(ctx, change.OrderID)
	if err != nil {
		return nil, false, err
	}
	return current, applied, nil
}

func (s *Postgres) History(ctx context.Context, orderID id.OrderID) ([]models.StatusChange, error) {
	exec := tx.ExecutorFor(ctx, s.db)
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID.String()).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT from_status, to_status, actor_id, actor_role, reason, version, at
		FROM order_status_log WHERE order_id = $1 ORDER BY version`, orderID.String())
	if err != nil {
		return nil, fmt.Errorf("list status log: %w", err)
	}
	defer rows.Close()

	var history []models.StatusChange
	for rows.Next() {
		var (
			change  models.StatusChange
			from    string
			to      string
			role    string
			actorID uuid.NullUUID
		)
		if err := rows.Scan(&from, &to, &actorID, &role, &change.Reason, &change.Version, &change.At); err != nil {
			return nil, fmt.Errorf("scan status log: %w", err)
		}
		change.OrderID = orderID
		change.From = models.Status(from)
		change.To = models.Status(to)
		change.Role = models.Role(role)
		if actorID.Valid {
			change.ActorID = id.ActorID(actorID.UUID)
		}
		history = append(history, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status log: %w", err)
	}
	return history, nil
}

// UpdateNotes is conditional on the order still being pending.
func (s *Postgres) UpdateNotes(ctx context.Context, orderID id.OrderID, notes string, now time.Time) (*models.Order, error) {
	exec := tx.ExecutorFor(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE orders SET notes = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending'`,
		orderID.String(), strings.TrimSpace(notes), now,
	)
	if err != nil {
		return nil, fmt.Errorf("update notes: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update notes rows affected: %w", err)
	}
	order, err := s.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, sentinel.ErrInvalidState)
	}
	return order, nil
}

func (s *Postgres) attachItems(ctx context.Context, exec tx.Executor, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*models.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID.String()] = o
		ids = append(ids, o.ID.String())
		o.Items = []models.OrderItem{}
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT id, order_id, menu_item_id, name, quantity, price_per_unit, modifiers, total_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item       models.OrderItem
			itemID     uuid.UUID
			orderID    string
			menuItemID string
			price      int64
			total      int64
			modifiers  []byte
		)
		if err := rows.Scan(&itemID, &orderID, &menuItemID, &item.Name, &item.Quantity, &price, &modifiers, &total); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		item.ID = id.OrderItemID(itemID)
		item.MenuItemID = id.MenuItemID(menuItemID)
		item.PricePerUnit = models.Money(price)
		item.TotalPrice = models.Money(total)
		if err := json.Unmarshal(modifiers, &item.Modifiers); err != nil {
			return fmt.Errorf("decode modifiers: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order         models.Order
		orderID       uuid.UUID
		tableID       string
		customerID    uuid.NullUUID
		status        string
		total         int64
		paymentMethod sql.NullString
		cancelReason  sql.NullString
		paidAt        sql.NullTime
	)
	err := row.Scan(&orderID, &tableID, &customerID, &order.CustomerName, &status, &total, &order.Notes,
		&paymentMethod, &cancelReason, &order.Version, &order.CreatedAt, &order.UpdatedAt, &paidAt)
	if err != nil {
		return nil, err
	}
	order.ID = id.OrderID(orderID)
	order.TableID = id.TableID(tableID)
	if customerID.Valid {
		order.CustomerID = id.CustomerID(customerID.UUID)
	}
	order.Status = models.Status(status)
	order.TotalAmount = models.Money(total)
	order.PaymentMethod = models.PaymentMethod(paymentMethod.String)
	order.CancelReason = cancelReason.String
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}
	return &order, nil
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func cancelReason(change models.StatusChange) string {
	if change.To == models.StatusCancelled {
		return change.Reason
	}
	return ""
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullCustomer(c id.CustomerID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(c), Valid: !c.IsNil()}
}

func nullActor(a id.ActorID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(a), Valid: !a.IsNil()}
}
