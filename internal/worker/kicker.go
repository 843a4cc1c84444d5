package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Kicker runs best-effort sweeps right after jobs are enqueued, without the
// enqueuer waiting for (or even learning about) the sweep's outcome. Kicks
// coalesce: while a sweep is pending, further kicks fold into it, since one
// sweep drains everything claimable anyway.
type Kicker struct {
	worker *Worker
	logger *slog.Logger
	kicks  chan struct{}
	done   chan struct{}
	stop   sync.Once
}

// NewKicker creates a kicker; call Start before Kick.
func NewKicker(worker *Worker, logger *slog.Logger) *Kicker {
	return &Kicker{
		worker: worker,
		logger: logger,
		kicks:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the drain loop and returns immediately. The loop exits when
// ctx is canceled or Stop is called.
func (k *Kicker) Start(ctx context.Context) {
	go func() {
		defer close(k.done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-k.kicks:
				if !ok {
					return
				}
				result, err := k.worker.RunSweep(ctx)
				if err != nil {
					k.logger.Error("kicked sweep failed", "error", err)
					continue
				}
				if result.Errored > 0 {
					k.logger.Warn("kicked sweep had job failures",
						"processed", result.Processed, "errored", result.Errored)
				}
			}
		}
	}()
}

// Kick requests an immediate sweep. Never blocks: if a kick is already
// queued, the pending sweep covers this caller's job too.
func (k *Kicker) Kick() {
	select {
	case k.kicks <- struct{}{}:
	default:
	}
}

// Stop ends the drain loop and waits for an in-flight sweep to finish.
// Only valid after Start.
func (k *Kicker) Stop() {
	k.stop.Do(func() { close(k.kicks) })
	<-k.done
}
