package notify

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/botika-labs/pos-api/internal/events"
)

// Enqueuer turns emitted domain events into background tasks. It implements
// events.Scheduler; unknown topics are ignored so new event kinds do not
// break checkout.
type Enqueuer struct {
	Client *asynq.Client
	Logger zerolog.Logger
}

func (e *Enqueuer) Schedule(ctx context.Context, ev events.Event) error {
	if e == nil || e.Client == nil {
		return nil
	}
	var (
		task *asynq.Task
		err  error
	)
	switch ev.Topic {
	case events.TopicSaleCompleted:
		task, err = NewSaleReceiptTask(SaleReceiptPayload{
			EventID:    ev.ID,
			SaleID:     ev.AggregateID,
			Data:       ev.Payload,
			OccurredAt: ev.OccurredAt,
		})
	case events.TopicStockLow:
		task, err = NewLowStockTask(LowStockPayload{
			EventID:    ev.ID,
			ProductID:  ev.AggregateID,
			Data:       ev.Payload,
			OccurredAt: ev.OccurredAt,
		})
	default:
		e.Logger.Debug().Str("topic", ev.Topic).Msg("no task mapped for topic")
		return nil
	}
	if err != nil {
		return err
	}
	info, err := e.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	e.Logger.Debug().Str("task", task.Type()).Str("task_id", info.ID).Msg("task enqueued")
	return nil
}
