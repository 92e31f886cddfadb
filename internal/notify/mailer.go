package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/botika-labs/pos-api/internal/common"
	"github.com/botika-labs/pos-api/internal/pricing"
	"github.com/botika-labs/pos-api/internal/sales"
)

// SaleLoader fetches the full sale for receipt rendering.
type SaleLoader interface {
	Get(ctx context.Context, id uuid.UUID) (sales.Sale, error)
}

// ReceiptMailer emails a plain receipt for each completed sale.
type ReceiptMailer struct {
	Sales SaleLoader
	Email common.EmailSender
	To    string
}

// Send loads the sale and delivers the rendered receipt.
func (m *ReceiptMailer) Send(ctx context.Context, saleID uuid.UUID) error {
	if m == nil || m.Email == nil || m.To == "" {
		return nil
	}
	sale, err := m.Sales.Get(ctx, saleID)
	if err != nil {
		return fmt.Errorf("load sale %s: %w", saleID, err)
	}
	subject := fmt.Sprintf("Receipt %s", sale.Number)
	return m.Email.Send(m.To, subject, RenderReceipt(sale))
}

// RenderReceipt produces the receipt body for a sale.
func RenderReceipt(sale sales.Sale) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sale %s\n", sale.Number)
	fmt.Fprintf(&b, "Date: %s\n\n", sale.CreatedAt.Format("2006-01-02 15:04"))
	for _, it := range sale.Items {
		fmt.Fprintf(&b, "%s (%s) x%d @ %s = %s\n",
			it.ProductName, it.Variant, it.Quantity,
			pricing.Format(it.UnitPrice), pricing.Format(it.Subtotal))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", pricing.Format(sale.Subtotal))
	fmt.Fprintf(&b, "Tax:      %s\n", pricing.Format(sale.Tax))
	if sale.Discount > 0 {
		fmt.Fprintf(&b, "Discount: -%s\n", pricing.Format(sale.Discount))
	}
	fmt.Fprintf(&b, "Total:    %s %s\n", sale.Currency, pricing.Format(sale.Total))
	fmt.Fprintf(&b, "Tendered: %s\n", pricing.Format(sale.Tendered))
	fmt.Fprintf(&b, "Change:   %s\n", pricing.Format(sale.Change))
	return b.String()
}
