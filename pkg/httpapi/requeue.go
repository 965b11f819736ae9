package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	klog "k8s.io/klog/v2"

	"github.com/nfsherd/nfsherd/pkg/lifecycle"
	"github.com/nfsherd/nfsherd/types"
)

// DeliverFunc hands one signal to the orchestrator.
type DeliverFunc func(ctx context.Context, sig Signal) (lifecycle.Disposition, error)

// Requeue redelivers deferred signals on an interval until they complete
// or are skipped. Redelivery is safe because handling is idempotent: a
// satisfied group short-circuits without actuation.
type Requeue struct {
	interval time.Duration
	deliver  DeliverFunc

	mu       sync.Mutex
	pending  []Signal
	inFlight map[Signal]struct{}
}

func NewRequeue(interval time.Duration, deliver DeliverFunc) *Requeue {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Requeue{
		interval: interval,
		deliver:  deliver,
		inFlight: make(map[Signal]struct{}),
	}
}

// Add queues a signal for redelivery. A signal identical to one already
// pending, or currently being redelivered, reports types.AlreadyExist and
// is not queued twice.
func (q *Requeue) Add(sig Signal) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inFlight[sig]; ok {
		return types.NewAlreadyExistError(fmt.Sprintf("signal %s/%s already deferred", sig.Type, sig.GroupID))
	}
	for _, p := range q.pending {
		if p == sig {
			return types.NewAlreadyExistError(fmt.Sprintf("signal %s/%s already deferred", sig.Type, sig.GroupID))
		}
	}
	q.pending = append(q.pending, sig)
	return nil
}

// Len returns the number of pending signals.
func (q *Requeue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run redelivers pending signals every interval until ctx is done.
func (q *Requeue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.flush(ctx)
		}
	}
}

// flush redelivers each pending signal once, keeping the ones that defer
// again. While a signal is being redelivered it stays visible to Add's
// dedupe through the inFlight set; its own redelivery result then decides
// whether it goes back on the queue.
func (q *Requeue) flush(ctx context.Context) {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	for _, sig := range batch {
		q.inFlight[sig] = struct{}{}
	}
	q.mu.Unlock()

	for _, sig := range batch {
		disp, err := q.deliver(ctx, sig)
		klog.V(2).Infof("redelivered %s/%s: %s (err: %v)", sig.Type, sig.GroupID, disp, err)

		q.mu.Lock()
		delete(q.inFlight, sig)
		if disp == lifecycle.Deferred {
			dup := false
			for _, p := range q.pending {
				if p == sig {
					dup = true
					break
				}
			}
			if !dup {
				q.pending = append(q.pending, sig)
			}
		}
		q.mu.Unlock()
	}
}
