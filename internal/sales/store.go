package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/botika-labs/pos-api/internal/cart"
	"github.com/botika-labs/pos-api/internal/checkout"
	"github.com/botika-labs/pos-api/internal/pricing"
)

// ErrNotFound is returned when a sale does not exist.
var ErrNotFound = errors.New("sales: not found")

// ErrStockConflict is returned when finalizing would take a product's stock
// below zero. The transaction is rolled back in full. It matches
// cart.ErrInsufficientStock so transport layers map it uniformly.
var ErrStockConflict = fmt.Errorf("sales: %w", cart.ErrInsufficientStock)

// LowStock describes a product whose stock fell to or under its threshold
// as a result of a sale.
type LowStock struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	Threshold int       `json:"threshold"`
}

// Store persists sales in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const saleColumns = `id, number, subtotal, tax, discount, total, tendered, change,
	payment_method, discount_type, discount_id_number, discount_holder_name,
	currency, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(
		&s.ID, &s.Number, &s.Subtotal, &s.Tax, &s.Discount, &s.Total,
		&s.Tendered, &s.Change, &s.PaymentMethod, &s.DiscountType,
		&s.DiscountIDNumber, &s.DiscountHolderName, &s.Currency, &s.CreatedAt,
	)
	return s, err
}

// Persist writes a finalized sale record as one transaction: the sale row,
// its line items, and the stock decrement for every line. Any stock guard
// failure rolls the whole sale back. It satisfies checkout.Persister.
func (s *Store) Persist(ctx context.Context, rec checkout.SaleRecord, currency string) (checkout.PersistResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return checkout.PersistResult{}, fmt.Errorf("begin sale tx: %w", err)
	}
	defer tx.Rollback(ctx)

	number, err := nextSaleNumber(ctx, tx, rec.OccurredAt)
	if err != nil {
		return checkout.PersistResult{}, err
	}

	saleID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO sales (id, number, subtotal, tax, discount, total, tendered, change,
			payment_method, discount_type, discount_id_number, discount_holder_name,
			currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		saleID, number, rec.Subtotal, rec.Tax, rec.Discount, rec.Total,
		rec.Tendered, rec.Change, string(rec.PaymentMethod), string(rec.DiscountType),
		rec.DiscountIDNumber, rec.DiscountHolderName, currency, rec.OccurredAt,
	)
	if err != nil {
		return checkout.PersistResult{}, fmt.Errorf("insert sale: %w", err)
	}

	var lowStock []checkout.LowStockAlert
	for _, line := range rec.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return checkout.PersistResult{}, fmt.Errorf("sale line product id: %w", err)
		}
		pieces := line.Quantity * line.PiecesPerUnit

		var name string
		var stock, threshold int
		err = tx.QueryRow(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $2, updated_at = now()
			WHERE id = $1 AND stock_quantity >= $2
			RETURNING name, stock_quantity, low_stock_threshold`,
			productID, pieces,
		).Scan(&name, &stock, &threshold)
		if errors.Is(err, pgx.ErrNoRows) {
			return checkout.PersistResult{}, fmt.Errorf("%w: product %s", ErrStockConflict, line.ProductName)
		}
		if err != nil {
			return checkout.PersistResult{}, fmt.Errorf("decrement stock: %w", err)
		}
		if stock <= threshold {
			lowStock = append(lowStock, checkout.LowStockAlert{
				ProductID: productID,
				Name:      name,
				Stock:     stock,
				Threshold: threshold,
			})
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, product_name, variant,
				unit_price, pieces_per_unit, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New(), saleID, productID, line.ProductName, string(line.Variant),
			line.UnitPrice, line.PiecesPerUnit, line.Quantity, line.Subtotal,
		)
		if err != nil {
			return checkout.PersistResult{}, fmt.Errorf("insert sale item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return checkout.PersistResult{}, fmt.Errorf("commit sale tx: %w", err)
	}
	return checkout.PersistResult{SaleID: saleID, Number: number, LowStock: lowStock}, nil
}

// nextSaleNumber allocates the next POS-YYYYMMDD-NNNN receipt number for the
// sale's business day. The per-day counter row is upserted under the
// transaction, so concurrent checkouts serialize on it and numbers never
// repeat.
func nextSaleNumber(ctx context.Context, tx pgx.Tx, at time.Time) (string, error) {
	day := at.Format("2006-01-02")
	var counter int
	err := tx.QueryRow(ctx, `
		INSERT INTO sale_counters (day, counter)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET counter = sale_counters.counter + 1
		RETURNING counter`,
		day,
	).Scan(&counter)
	if err != nil {
		return "", fmt.Errorf("allocate sale number: %w", err)
	}
	return saleNumber(at, counter), nil
}

func saleNumber(at time.Time, counter int) string {
	return fmt.Sprintf("POS-%s-%04d", at.Format("20060102"), counter)
}

// Get loads a sale and its items.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Sale, error) {
	sale, err := scanSale(s.pool.QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	if err != nil {
		return Sale{}, fmt.Errorf("get sale: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, sale_id, product_id, product_name, variant,
			unit_price, pieces_per_unit, quantity, subtotal
		FROM sale_items WHERE sale_id = $1
		ORDER BY product_name, variant`, id)
	if err != nil {
		return Sale{}, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName,
			&it.Variant, &it.UnitPrice, &it.PiecesPerUnit, &it.Quantity, &it.Subtotal); err != nil {
			return Sale{}, fmt.Errorf("scan sale item: %w", err)
		}
		sale.Items = append(sale.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// List returns sales newest first, optionally bounded by a date range.
func (s *Store) List(ctx context.Context, params ListParams) ([]Sale, int64, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if params.From != nil {
		args = append(args, *params.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if params.To != nil {
		args = append(args, *params.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM sales"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	args = append(args, params.Limit, (params.Page-1)*params.Limit)
	query := fmt.Sprintf(
		"SELECT %s FROM sales%s ORDER BY created_at DESC, number DESC LIMIT $%d OFFSET $%d",
		saleColumns, clause, len(args)-1, len(args),
	)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	out := make([]Sale, 0, params.Limit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sale: %w", err)
		}
		out = append(out, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Summary aggregates all sales within [from, to).
func (s *Store) Summary(ctx context.Context, from, to time.Time) (DailySummary, error) {
	var sum DailySummary
	var subtotal, disc, tax, net pricing.Money
	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
			COALESCE(sum(subtotal), 0),
			COALESCE(sum(discount), 0),
			COALESCE(sum(tax), 0),
			COALESCE(sum(total), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2`,
		from, to,
	).Scan(&sum.SaleCount, &subtotal, &disc, &tax, &net)
	if err != nil {
		return DailySummary{}, fmt.Errorf("sales summary: %w", err)
	}
	sum.Day = from.Format("2006-01-02")
	sum.GrossSubtotal = subtotal
	sum.TotalDiscount = disc
	sum.TotalTax = tax
	sum.NetTotal = net
	return sum, nil
}
