// internal/app/system/workers/notifier.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/app/system/mailer"
	"go.uber.org/zap"
)

// Notifier is a background worker that turns events into email.
//
// Delivery is best effort: a failed send is logged and the event is
// acknowledged anyway, so one bad address cannot wedge the queue.
type Notifier struct {
	sub         events.Subscriber
	sender      mailer.Sender
	log         *zap.Logger
	siteName    string
	baseURL     string
	sendTimeout time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotifier creates a notification worker.
//
// Parameters:
//   - sub: where events arrive from (in-memory bus or AMQP)
//   - sender: the configured mail backend
//   - siteName, baseURL: used in rendered messages
func NewNotifier(sub events.Subscriber, sender mailer.Sender, logger *zap.Logger, siteName, baseURL string) *Notifier {
	return &Notifier{
		sub:         sub,
		sender:      sender,
		log:         logger,
		siteName:    siteName,
		baseURL:     baseURL,
		sendTimeout: 30 * time.Second,
	}
}

// Start subscribes and begins delivering.
func (w *Notifier) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := w.sub.Subscribe(ctx)
	if err != nil {
		cancel()
		return err
	}
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(msgs)
	w.log.Info("notifier worker started")
	return nil
}

// Stop waits for the subscription to end, delivering whatever is still
// queued, and then releases the worker. Close the transport first so the
// subscription can end. When ctx ends before the queue drains, the remaining
// events are abandoned.
func (w *Notifier) Stop(ctx context.Context) {
	if w.cancel == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.log.Warn("notifier stop deadline reached, abandoning queued events", zap.Error(ctx.Err()))
		w.cancel()
		<-done
	}
	w.cancel()
	w.log.Info("notifier worker stopped")
}

func (w *Notifier) run(msgs <-chan events.Message) {
	defer w.wg.Done()
	for m := range msgs {
		w.deliver(m.Event)
		if err := m.Ack(); err != nil {
			w.log.Warn("event ack failed", zap.String("event_id", m.Event.ID), zap.Error(err))
		}
	}
}

func (w *Notifier) deliver(e events.Event) {
	if !mailer.HasTemplate(string(e.Kind)) {
		w.log.Warn("no template for event", zap.String("kind", string(e.Kind)))
		return
	}
	email, err := mailer.BuildNotification(string(e.Kind), e.To, mailer.NotificationData{
		SiteName: w.siteName,
		BaseURL:  w.baseURL,
		Fields:   e.Data,
	})
	if err != nil {
		w.log.Error("render notification", zap.String("event_id", e.ID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.sendTimeout)
	defer cancel()
	if err := w.sender.Send(ctx, email); err != nil {
		w.log.Warn("notification send failed",
			zap.String("event_id", e.ID),
			zap.String("kind", string(e.Kind)),
			zap.String("to", e.To),
			zap.Error(err))
		return
	}
	w.log.Debug("notification sent",
		zap.String("event_id", e.ID),
		zap.String("kind", string(e.Kind)))
}
