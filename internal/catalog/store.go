package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested product could not be located.
var ErrNotFound = errors.New("catalog: product not found")

// ErrStockConflict is returned when an adjustment would drive stock negative.
var ErrStockConflict = errors.New("catalog: stock adjustment below zero")

const productColumns = `id, name, generic_name, category, base_price, box_price, sheet_price,
	pieces_per_box, pieces_per_sheet, stock_quantity, low_stock_threshold, expires_at, created_at, updated_at`

// Store provides Postgres persistence for catalog products.
type Store struct {
	Pool *pgxpool.Pool
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.GenericName, &p.Category, &p.BasePrice, &p.BoxPrice, &p.SheetPrice,
		&p.PiecesPerBox, &p.PiecesPerSheet, &p.StockQuantity, &p.LowStockThreshold,
		&p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// Get returns a single product by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	row := s.Pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns), id)
	return scanProduct(row)
}

// List returns a filtered, paginated page of products plus the total count.
func (s *Store) List(ctx context.Context, params ListParams) ([]Product, int64, error) {
	conds := []string{"TRUE"}
	args := []any{}
	if q := strings.TrimSpace(params.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		conds = append(conds, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(generic_name) LIKE $%d)", len(args), len(args)))
	}
	if c := strings.TrimSpace(params.Category); c != "" {
		args = append(args, c)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := s.Pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM products WHERE %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if params.Page > 1 {
		offset = (params.Page - 1) * limit
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args))
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// Create inserts a new product.
func (s *Store) Create(ctx context.Context, in Input) (Product, error) {
	row := s.Pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO products (name, generic_name, category, base_price, box_price, sheet_price,
			pieces_per_box, pieces_per_sheet, stock_quantity, low_stock_threshold, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s`, productColumns),
		in.Name, in.GenericName, in.Category, in.BasePrice, in.BoxPrice, in.SheetPrice,
		in.PiecesPerBox, in.PiecesPerSheet, in.StockQuantity, in.LowStockThreshold, in.ExpiresAt,
	)
	return scanProduct(row)
}

// Update replaces the mutable fields of a product.
func (s *Store) Update(ctx context.Context, id uuid.UUID, in Input) (Product, error) {
	row := s.Pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE products SET name = $2, generic_name = $3, category = $4, base_price = $5,
			box_price = $6, sheet_price = $7, pieces_per_box = $8, pieces_per_sheet = $9,
			stock_quantity = $10, low_stock_threshold = $11, expires_at = $12, updated_at = now()
		WHERE id = $1
		RETURNING %s`, productColumns),
		id, in.Name, in.GenericName, in.Category, in.BasePrice, in.BoxPrice, in.SheetPrice,
		in.PiecesPerBox, in.PiecesPerSheet, in.StockQuantity, in.LowStockThreshold, in.ExpiresAt,
	)
	return scanProduct(row)
}

// Delete removes a product.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock applies a signed delta to a product's stock. The guard clause
// keeps stock non-negative; a violated guard surfaces as ErrStockConflict.
func (s *Store) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (Product, error) {
	row := s.Pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1 AND stock_quantity + $2 >= 0
		RETURNING %s`, productColumns), id, delta)
	p, err := scanProduct(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Product{}, err
	}
	// Distinguish a missing product from a guard violation.
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return Product{}, getErr
	}
	return Product{}, ErrStockConflict
}
