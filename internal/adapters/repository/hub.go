package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/scorekeep/internal/adapters/mq/queue"
	"github.com/okian/scorekeep/internal/adapters/mq/worker"
	"github.com/okian/scorekeep/pkg/metrics"
)

// hub fans snapshots out to in-process subscribers. Each subscription owns a
// mailbox and a dispatcher so one slow consumer never blocks a writer or
// another subscriber.
// closeTimeout bounds how long closeAll waits for in-flight callbacks.
const closeTimeout = 5 * time.Second

type hub struct {
	kind     string
	capacity int

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*subscription
}

type subscription struct {
	mailbox *queue.Queue[Snapshot]
	disp    *worker.Dispatcher[Snapshot]
}

func newHub(kind string, capacity int) *hub {
	return &hub{
		kind:     kind,
		capacity: capacity,
		subs:     make(map[string]map[uint64]*subscription),
	}
}

// add registers onChange and queues initial as its first delivery. Callers
// serialize add with publish for the same owner.
func (h *hub) add(ctx context.Context, ownerID string, initial Snapshot, onChange func(Snapshot)) Unsubscribe {
	mailbox := queue.New[Snapshot](
		queue.WithCapacity(h.capacity),
		queue.WithDropHook(func() { metrics.RecordSubscriptionError(h.kind) }),
	)
	disp := worker.New[Snapshot](mailbox, func(_ context.Context, s Snapshot) {
		metrics.RecordNotification()
		onChange(s)
	}, worker.WithName(h.kind+"-subscription"))
	sub := &subscription{mailbox: mailbox, disp: disp}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[uint64]*subscription)
	}
	h.subs[ownerID][id] = sub
	h.mu.Unlock()

	mailbox.Enqueue(ctx, clone(initial))
	disp.Start(context.WithoutCancel(ctx))

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if owned := h.subs[ownerID]; owned != nil {
				delete(owned, id)
				if len(owned) == 0 {
					delete(h.subs, ownerID)
				}
			}
			h.mu.Unlock()
			sub.stop()
		})
	}
}

func (h *hub) publish(ctx context.Context, ownerID string, s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[ownerID] {
		sub.mailbox.Enqueue(ctx, clone(s))
	}
}

func (h *hub) subscribers(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[ownerID])
}

func (h *hub) closeAll() {
	h.mu.Lock()
	all := h.subs
	h.subs = make(map[string]map[uint64]*subscription)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	for _, owned := range all {
		for _, sub := range owned {
			sub.disp.Stop()
			sub.mailbox.Discard()
		}
	}
	for _, owned := range all {
		for _, sub := range owned {
			_ = sub.disp.Shutdown(ctx)
		}
	}
}

func (s *subscription) stop() {
	s.disp.Stop()
	s.mailbox.Discard()
}
