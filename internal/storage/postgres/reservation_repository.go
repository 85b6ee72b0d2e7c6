package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotmarket/quota-api/internal/domain"
)

// ReservationRepository backs both the availability reads and the write path.
// Mutating callers wrap their work in WithTx; the lock-taking queries then
// run on that transaction via the context.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReservationRepository) GetQuota(ctx context.Context, quotaID string) (domain.Quota, error) {
	const query = `SELECT id, name, size, subevent, created_at FROM quotas WHERE id = $1`

	quota, err := scanQuota(r.queryRow(ctx, query, quotaID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Quota{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Quota{}, domain.ErrUnknownQuota
		}
		return domain.Quota{}, fmt.Errorf("get quota: %w", err)
	}
	return quota, nil
}

func (r *ReservationRepository) QuotasForVariant(ctx context.Context, variantID string) ([]domain.Quota, error) {
	const query = `
SELECT q.id, q.name, q.size, q.subevent, q.created_at
FROM quotas q
JOIN quota_variants qv ON qv.quota_id = q.id
WHERE qv.variant_id = $1
ORDER BY q.id`

	rows, err := r.query(ctx, query, variantID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("quotas for variant: %w", err)
	}
	defer rows.Close()

	return collectQuotas(rows)
}

// LockQuotasForVariants takes FOR UPDATE row locks on every quota covering
// any of the variants. The ORDER BY id makes the lock acquisition order
// deterministic across concurrent transactions.
func (r *ReservationRepository) LockQuotasForVariants(ctx context.Context, variantIDs []string) ([]domain.Quota, error) {
	const query = `
SELECT q.id, q.name, q.size, q.subevent, q.created_at
FROM quotas q
WHERE q.id IN (SELECT quota_id FROM quota_variants WHERE variant_id = ANY($1::uuid[]))
ORDER BY q.id
FOR UPDATE`

	rows, err := r.query(ctx, query, variantIDs)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("lock quotas: %w", err)
	}
	defer rows.Close()

	return collectQuotas(rows)
}

func (r *ReservationRepository) VariantExists(ctx context.Context, variantID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM variants WHERE id = $1)`

	var exists bool
	if err := r.queryRow(ctx, query, variantID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("variant exists: %w", err)
	}
	return exists, nil
}

func (r *ReservationRepository) SumCommitted(ctx context.Context, quotaID string, now time.Time, excludeHoldID string) (int, error) {
	const query = `
SELECT COALESCE(SUM(h.quantity), 0)
FROM holds h
JOIN quota_variants qv ON qv.variant_id = h.variant_id
WHERE qv.quota_id = $1
  AND (h.state = 'paid' OR (h.state IN ('reserved', 'confirmed') AND h.expires_at > $2))`

	const queryExcluding = query + `
  AND h.id <> $3`

	var (
		total int
		err   error
	)
	if excludeHoldID == "" {
		err = r.queryRow(ctx, query, quotaID, now).Scan(&total)
	} else {
		err = r.queryRow(ctx, queryExcluding, quotaID, now, excludeHoldID).Scan(&total)
	}
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum committed: %w", err)
	}
	return total, nil
}

func (r *ReservationRepository) SumReclaimable(ctx context.Context, quotaID string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(h.quantity), 0)
FROM holds h
JOIN quota_variants qv ON qv.variant_id = h.variant_id
WHERE qv.quota_id = $1
  AND h.state IN ('reserved', 'confirmed')
  AND h.expires_at IS NOT NULL
  AND h.expires_at <= $2`

	var total int
	if err := r.queryRow(ctx, query, quotaID, now).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum reclaimable: %w", err)
	}
	return total, nil
}

func (r *ReservationRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	const query = `
SELECT id, variant_id, order_id, owner_token, quantity, state, kind, expires_at, created_at
FROM holds
WHERE id = $1
FOR UPDATE`

	hold, err := scanHold(r.queryRow(ctx, query, holdID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return hold, nil
}

func (r *ReservationRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, variant_id, order_id, owner_token, quantity, state, kind, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.VariantID,
		nullString(hold.OrderID),
		hold.OwnerToken,
		hold.Quantity,
		hold.State,
		hold.Kind,
		hold.ExpiresAt,
		hold.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUnknownVariant
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *ReservationRepository) UpdateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
UPDATE holds
SET order_id = $2, state = $3, kind = $4, expires_at = $5
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		hold.ID,
		nullString(hold.OrderID),
		hold.State,
		hold.Kind,
		hold.ExpiresAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (r *ReservationRepository) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, owner_token, paid_at, created_at
FROM orders
WHERE id = $1
FOR UPDATE`

	var o domain.Order
	err := r.queryRow(ctx, query, orderID).Scan(&o.ID, &o.OwnerToken, &o.PaidAt, &o.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *ReservationRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, owner_token, paid_at, created_at)
VALUES ($1, $2, $3, $4)`

	_, err := r.exec(ctx, stmt, order.ID, order.OwnerToken, order.PaidAt, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *ReservationRepository) UpdateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `UPDATE orders SET paid_at = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, order.ID, order.PaidAt)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *ReservationRepository) HoldsByOrderForUpdate(ctx context.Context, orderID string) ([]domain.Hold, error) {
	const query = `
SELECT id, variant_id, order_id, owner_token, quantity, state, kind, expires_at, created_at
FROM holds
WHERE order_id = $1
ORDER BY id
FOR UPDATE`

	rows, err := r.query(ctx, query, orderID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("holds by order: %w", err)
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("holds by order: %w", err)
		}
		holds = append(holds, hold)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("holds by order: %w", err)
	}
	return holds, nil
}

func (r *ReservationRepository) DeleteExpiredCartHolds(ctx context.Context, before time.Time) (int64, error) {
	const stmt = `
DELETE FROM holds
WHERE kind = 'cart' AND state = 'reserved' AND expires_at < $1`

	tag, err := r.exec(ctx, stmt, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired cart holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuota(row rowScanner) (domain.Quota, error) {
	var (
		q        domain.Quota
		size     *int
		subevent *string
	)
	if err := row.Scan(&q.ID, &q.Name, &size, &subevent, &q.CreatedAt); err != nil {
		return domain.Quota{}, err
	}
	if size == nil {
		q.Unlimited = true
	} else {
		q.Size = *size
	}
	if subevent != nil {
		q.Subevent = *subevent
	}
	return q, nil
}

func collectQuotas(rows pgx.Rows) ([]domain.Quota, error) {
	var quotas []domain.Quota
	for rows.Next() {
		quota, err := scanQuota(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quota: %w", err)
		}
		quotas = append(quotas, quota)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read quotas: %w", err)
	}
	return quotas, nil
}

func scanHold(row rowScanner) (domain.Hold, error) {
	var (
		h       domain.Hold
		orderID *string
		state   string
		kind    string
	)
	err := row.Scan(&h.ID, &h.VariantID, &orderID, &h.OwnerToken, &h.Quantity, &state, &kind, &h.ExpiresAt, &h.CreatedAt)
	if err != nil {
		return domain.Hold{}, err
	}
	if orderID != nil {
		h.OrderID = *orderID
	}
	h.State = domain.HoldState(state)
	h.Kind = domain.HoldKind(kind)
	return h, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
