package repository

import (
	"context"

	"checkout-engine/internal/domain/money"
	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/pgconv"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CatalogRepository struct {
	db db.DBTX
}

func NewCatalogRepository(db db.DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ProductByID resolves the sellable price. A variant overrides the product
// price when it has one and is only sellable while both rows are active.
func (r *CatalogRepository) ProductByID(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*shared.ProductSnapshot, error) {
	var (
		id         uuid.UUID
		categoryID pgtype.UUID
		name       string
		unitPrice  int64
		currency   string
		isActive   bool
	)
	var err error
	if variantID == nil {
		err = r.db.QueryRow(ctx, `
			SELECT id, category_id, name, unit_price, currency, is_active
			FROM products
			WHERE id = $1`, productID).
			Scan(&id, &categoryID, &name, &unitPrice, &currency, &isActive)
	} else {
		err = r.db.QueryRow(ctx, `
			SELECT p.id, p.category_id, p.name || ' / ' || v.name,
			       COALESCE(v.unit_price, p.unit_price), p.currency, p.is_active AND v.is_active
			FROM products p
			JOIN product_variants v ON v.product_id = p.id
			WHERE p.id = $1 AND v.id = $2`, productID, *variantID).
			Scan(&id, &categoryID, &name, &unitPrice, &currency, &isActive)
	}
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, shared.ErrProductNotFound
		}
		return nil, infra.WrapRepoErr("failed to get product", err)
	}

	return &shared.ProductSnapshot{
		ID:         id,
		VariantID:  variantID,
		CategoryID: pgconv.UUIDPtrFromPgtype(categoryID),
		Name:       name,
		UnitPrice:  unitPrice,
		Currency:   money.Currency(currency),
		IsActive:   isActive,
	}, nil
}
