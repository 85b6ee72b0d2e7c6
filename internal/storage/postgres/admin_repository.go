package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotmarket/quota-api/internal/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateQuota(ctx context.Context, quota domain.Quota) error {
	const stmt = `
INSERT INTO quotas (id, name, size, subevent, created_at)
VALUES ($1, $2, $3, $4, $5)`

	var size *int
	if !quota.Unlimited {
		size = &quota.Size
	}
	_, err := r.exec(ctx, stmt, quota.ID, quota.Name, size, nullString(quota.Subevent), quota.CreatedAt)
	if err != nil {
		return fmt.Errorf("create quota: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListQuotas(ctx context.Context) ([]domain.Quota, error) {
	const query = `SELECT id, name, size, subevent, created_at FROM quotas ORDER BY created_at, id`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list quotas: %w", err)
	}
	defer rows.Close()

	return collectQuotas(rows)
}

func (r *AdminRepository) CreateVariant(ctx context.Context, variant domain.Variant) error {
	const stmt = `INSERT INTO variants (id, name, created_at) VALUES ($1, $2, $3)`

	if _, err := r.exec(ctx, stmt, variant.ID, variant.Name, variant.CreatedAt); err != nil {
		return fmt.Errorf("create variant: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListVariants(ctx context.Context) ([]domain.Variant, error) {
	const query = `SELECT id, name, created_at FROM variants ORDER BY created_at, id`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	return collectVariants(rows)
}

func (r *AdminRepository) BindVariant(ctx context.Context, quotaID, variantID string) error {
	const stmt = `INSERT INTO quota_variants (quota_id, variant_id) VALUES ($1, $2)`

	_, err := r.exec(ctx, stmt, quotaID, variantID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyBound
		}
		if isForeignKeyViolation(err) {
			if pgErr := pgError(err); pgErr != nil && pgErr.ConstraintName == "quota_variants_variant_id_fkey" {
				return domain.ErrUnknownVariant
			}
			return domain.ErrUnknownQuota
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("bind variant: %w", err)
	}
	return nil
}

func (r *AdminRepository) VariantsForQuota(ctx context.Context, quotaID string) ([]domain.Variant, error) {
	const query = `
SELECT v.id, v.name, v.created_at
FROM variants v
JOIN quota_variants qv ON qv.variant_id = v.id
WHERE qv.quota_id = $1
ORDER BY v.created_at, v.id`

	rows, err := r.query(ctx, query, quotaID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("variants for quota: %w", err)
	}
	defer rows.Close()

	return collectVariants(rows)
}

func collectVariants(rows pgx.Rows) ([]domain.Variant, error) {
	var variants []domain.Variant
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.Name, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read variants: %w", err)
	}
	return variants, nil
}

func (r *AdminRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *AdminRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
