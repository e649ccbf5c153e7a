package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNew_StampsEvent(t *testing.T) {
	e := New(JoinApproved, "a@example.com", nil)
	if e.ID == "" || e.OccurredAt.IsZero() || e.Data == nil {
		t.Errorf("event not stamped: %+v", e)
	}
	if New(JoinApproved, "x", nil).ID == e.ID {
		t.Error("ids should be unique")
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(4)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msgs, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	want := New(TaskGraded, "u@example.com", map[string]string{"task": "essay"})
	if err := bus.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case m := <-msgs:
		if m.Event.ID != want.ID || m.Event.Data["task"] != "essay" {
			t.Errorf("got %+v", m.Event)
		}
		if err := m.Ack(); err != nil {
			t.Errorf("Ack: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_FullAndClosed(t *testing.T) {
	bus := NewBus(1)
	ctx := context.Background()
	if err := bus.Check(); err != nil {
		t.Errorf("empty bus check: %v", err)
	}
	if err := bus.Publish(ctx, New(LeftGroup, "a", nil)); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := bus.Publish(ctx, New(LeftGroup, "a", nil)); !errors.Is(err, ErrBusFull) {
		t.Errorf("full bus: got %v, want ErrBusFull", err)
	}
	if err := bus.Check(); !errors.Is(err, ErrBusFull) {
		t.Errorf("full bus check: got %v, want ErrBusFull", err)
	}
	bus.Close()
	if err := bus.Publish(ctx, New(LeftGroup, "a", nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("closed bus: got %v, want ErrClosed", err)
	}
	if err := bus.Check(); !errors.Is(err, ErrClosed) {
		t.Errorf("closed bus check: got %v, want ErrClosed", err)
	}
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, Event) error {
	f.calls++
	return errors.New("broker down")
}

func TestPublishAll_SwallowsFailures(t *testing.T) {
	pub := &failingPublisher{}
	PublishAll(context.Background(), pub, zap.NewNop(),
		New(JoinApproved, "a@example.com", nil),
		New(JoinApproved, "", nil),
		New(JoinApproved, "b@example.com", nil),
	)
	if pub.calls != 2 {
		t.Errorf("calls: got %d, want 2 (empty recipient skipped)", pub.calls)
	}
}
