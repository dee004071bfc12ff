package trace

import (
	"context"
	"strconv"
	"time"
)

// Heartbeat emits a liveness event every interval. A run of heartbeats
// with no span ends between them points at a stuck resolution.
type Heartbeat struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartHeartbeat starts beating on t. It returns nil when t is disabled or
// interval is not positive; Stop on nil is a no-op.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Heartbeat{cancel: cancel, done: make(chan struct{})}
	go h.beat(ctx, t, interval)
	return h
}

func (h *Heartbeat) beat(ctx context.Context, t Tracer, interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	gid := GoroutineID()
	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Emit(&Event{
				Time:   now,
				Seq:    NextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				GID:    gid,
				Name:   "heartbeat",
				Detail: "#" + strconv.Itoa(n),
			})
		}
	}
}

// Stop ends the heartbeat and waits for its goroutine. It may be called
// more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}
