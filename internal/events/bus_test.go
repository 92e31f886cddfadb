package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	inserted []Event
	err      error
}

func (f *fakeStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if f.err != nil {
		return Event{}, f.err
	}
	ev := Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	f.inserted = append(f.inserted, ev)
	return ev, nil
}

type fakeScheduler struct {
	scheduled []Event
	err       error
}

func (f *fakeScheduler) Schedule(_ context.Context, ev Event) error {
	f.scheduled = append(f.scheduled, ev)
	return f.err
}

type fakeNotifier struct {
	notified []Event
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, ev Event) error {
	f.notified = append(f.notified, ev)
	return f.err
}

func TestEmitPersistsAndFansOut(t *testing.T) {
	store := &fakeStore{}
	sched := &fakeScheduler{}
	notif := &fakeNotifier{}
	bus := &Bus{Store: store, Scheduler: sched, Notifiers: []Notifier{notif}}

	agg := uuid.New()
	ev, err := bus.Emit(context.Background(), TopicSaleCompleted, agg, map[string]any{"total": 3360})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if ev.Topic != TopicSaleCompleted || ev.AggregateID != agg {
		t.Fatalf("unexpected event %+v", ev)
	}
	if len(store.inserted) != 1 || len(sched.scheduled) != 1 || len(notif.notified) != 1 {
		t.Fatalf("fanout counts: store=%d sched=%d notif=%d", len(store.inserted), len(sched.scheduled), len(notif.notified))
	}
}

func TestEmitJoinsFanoutErrorsButKeepsEvent(t *testing.T) {
	store := &fakeStore{}
	sched := &fakeScheduler{err: errors.New("queue down")}
	bus := &Bus{Store: store, Scheduler: sched}

	_, err := bus.Emit(context.Background(), TopicStockLow, uuid.New(), nil)
	if err == nil {
		t.Fatalf("expected joined scheduler error")
	}
	if len(store.inserted) != 1 {
		t.Fatalf("event must persist despite fanout failure")
	}
}

func TestEmitRejectsMissingTopicAndAggregate(t *testing.T) {
	bus := &Bus{Store: &fakeStore{}}
	if _, err := bus.Emit(context.Background(), "  ", uuid.New(), nil); err == nil {
		t.Fatalf("expected error for blank topic")
	}
	if _, err := bus.Emit(context.Background(), TopicSaleCompleted, uuid.Nil, nil); err == nil {
		t.Fatalf("expected error for nil aggregate")
	}
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := &Bus{Store: &fakeStore{}}
	if _, err := bus.Emit(context.Background(), TopicSaleCompleted, uuid.New(), []byte("{broken")); err == nil {
		t.Fatalf("expected error for invalid json payload")
	}
}
