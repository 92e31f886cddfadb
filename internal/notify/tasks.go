package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task types consumed by the worker process.
const (
	TypeSaleReceipt = "notify:sale_receipt"
	TypeLowStock    = "notify:low_stock"
)

// SaleReceiptPayload carries everything the receipt mailer needs.
type SaleReceiptPayload struct {
	EventID    uuid.UUID       `json:"eventId"`
	SaleID     uuid.UUID       `json:"saleId"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// LowStockPayload flags a product that crossed its reorder threshold.
type LowStockPayload struct {
	EventID    uuid.UUID       `json:"eventId"`
	ProductID  uuid.UUID       `json:"productId"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewSaleReceiptTask builds the asynq task for a completed sale.
func NewSaleReceiptTask(p SaleReceiptPayload) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode sale receipt payload: %w", err)
	}
	return asynq.NewTask(TypeSaleReceipt, body, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// NewLowStockTask builds the asynq task for a low stock alert.
func NewLowStockTask(p LowStockPayload) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode low stock payload: %w", err)
	}
	return asynq.NewTask(TypeLowStock, body, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}
