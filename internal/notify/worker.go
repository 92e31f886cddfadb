package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/botika-labs/pos-api/internal/events"
	"github.com/botika-labs/pos-api/internal/obs"
)

// Handlers processes notification tasks in the worker. Both delivery paths
// are optional; a task with nothing wired to it succeeds immediately.
type Handlers struct {
	Mailer  *ReceiptMailer
	Webhook *Webhook
	Logger  zerolog.Logger
}

// Mux registers the notification handlers on an asynq mux.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSaleReceipt, h.HandleSaleReceipt)
	mux.HandleFunc(TypeLowStock, h.HandleLowStock)
	return mux
}

// HandleSaleReceipt emails the receipt and forwards the event to the
// configured webhook endpoint.
func (h *Handlers) HandleSaleReceipt(ctx context.Context, task *asynq.Task) error {
	var p SaleReceiptPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode sale receipt payload: %w", err)
	}
	if h.Mailer != nil {
		if err := h.Mailer.Send(ctx, p.SaleID); err != nil {
			obs.RecordNotificationDelivery("receipt_email", "failed")
			return err
		}
		obs.RecordNotificationDelivery("receipt_email", "delivered")
	}
	if h.Webhook.Enabled() {
		ev := events.Event{ID: p.EventID, Topic: events.TopicSaleCompleted, AggregateID: p.SaleID, Payload: p.Data, OccurredAt: p.OccurredAt}
		if err := h.Webhook.Deliver(ctx, ev); err != nil {
			obs.RecordNotificationDelivery("webhook", "failed")
			return err
		}
		obs.RecordNotificationDelivery("webhook", "delivered")
	}
	h.Logger.Info().Str("sale_id", p.SaleID.String()).Msg("sale receipt processed")
	return nil
}

// HandleLowStock forwards restock alerts to the webhook endpoint.
func (h *Handlers) HandleLowStock(ctx context.Context, task *asynq.Task) error {
	var p LowStockPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode low stock payload: %w", err)
	}
	if h.Webhook.Enabled() {
		ev := events.Event{ID: p.EventID, Topic: events.TopicStockLow, AggregateID: p.ProductID, Payload: p.Data, OccurredAt: p.OccurredAt}
		if err := h.Webhook.Deliver(ctx, ev); err != nil {
			obs.RecordNotificationDelivery("webhook", "failed")
			return err
		}
		obs.RecordNotificationDelivery("webhook", "delivered")
	}
	h.Logger.Info().Str("product_id", p.ProductID.String()).Msg("low stock alert processed")
	return nil
}
