package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const deliverTimeout = 10 * time.Second

// Async decouples event delivery from the request path. Notify enqueues and
// returns immediately; a background worker drains the buffer into the
// wrapped notifier. A full buffer drops the event with a warning rather
// than stalling a committed transition.
type Async struct {
	sink   Notifier
	inbox  chan Event
	logger *slog.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

func NewAsync(sink Notifier, buffer int, logger *slog.Logger) *Async {
	a := &Async{
		sink:   sink,
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) Notify(ctx context.Context, event Event) error {
	select {
	case a.inbox <- event:
	default:
		a.logger.Warn("notification buffer full, event dropped",
			"case_id", event.CaseID, "action", event.Action)
	}
	return nil
}

func (a *Async) run() {
	defer a.wg.Done()
	for event := range a.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		if err := a.sink.Notify(ctx, event); err != nil {
			a.logger.Error("notification delivery failed",
				"case_id", event.CaseID, "action", event.Action, "error", err)
		}
		cancel()
	}
}

// Close drains buffered events, then closes the wrapped notifier.
func (a *Async) Close() error {
	a.once.Do(func() {
		close(a.inbox)
	})
	a.wg.Wait()
	return a.sink.Close()
}
