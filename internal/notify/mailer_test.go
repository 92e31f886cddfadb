package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botika-labs/pos-api/internal/common"
	"github.com/botika-labs/pos-api/internal/sales"
)

type fakeSales struct {
	sale sales.Sale
	err  error
}

func (f *fakeSales) Get(context.Context, uuid.UUID) (sales.Sale, error) {
	return f.sale, f.err
}

func receiptSale() sales.Sale {
	saleID := uuid.New()
	return sales.Sale{
		ID:            saleID,
		Number:        "POS-20260309-0003",
		Subtotal:      3000,
		Tax:           360,
		Discount:      300,
		Total:         3060,
		Tendered:      5000,
		Change:        1940,
		PaymentMethod: "cash",
		Currency:      "PHP",
		CreatedAt:     time.Date(2026, 3, 9, 14, 5, 0, 0, time.UTC),
		Items: []sales.Item{
			{SaleID: saleID, ProductName: "Paracetamol 500mg", Variant: "piece", UnitPrice: 1000, PiecesPerUnit: 1, Quantity: 3, Subtotal: 3000},
		},
	}
}

func TestReceiptMailerSend(t *testing.T) {
	inbox := &common.InMemoryEmail{}
	mailer := &ReceiptMailer{
		Sales: &fakeSales{sale: receiptSale()},
		Email: inbox,
		To:    "owner@botika.ph",
	}

	require.NoError(t, mailer.Send(context.Background(), uuid.New()))
	require.Len(t, inbox.Outbox, 1)

	msg := inbox.Outbox[0]
	assert.Equal(t, "owner@botika.ph", msg.To)
	assert.Equal(t, "Receipt POS-20260309-0003", msg.Subject)
	assert.Contains(t, msg.HTML, "Paracetamol 500mg (piece) x3 @ 10.00 = 30.00")
	assert.Contains(t, msg.HTML, "Discount: -3.00")
	assert.Contains(t, msg.HTML, "Total:    PHP 30.60")
	assert.Contains(t, msg.HTML, "Change:   19.40")
}

func TestReceiptMailerWithoutRecipientIsNoop(t *testing.T) {
	mailer := &ReceiptMailer{Sales: &fakeSales{}, Email: &common.InMemoryEmail{}}
	assert.NoError(t, mailer.Send(context.Background(), uuid.New()))
}
