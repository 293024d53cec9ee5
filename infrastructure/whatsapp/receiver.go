package whatsapp

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/keyquest/wa-gateway/behavior"
	"github.com/keyquest/wa-gateway/domains/message"
	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/keyquest/wa-gateway/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	extraDelayChance = 0.1
	extraDelayMin    = 1 * time.Second
	extraDelayMax    = 3 * time.Second

	hourlyLimitNotice = "We have reached our hourly message limit. Your message will be picked up once the limit resets."
	dailyLimitNotice  = "We have reached our daily message limit. Your message will be picked up tomorrow."
)

// Dispatcher hands a classified message to the workflow engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, class message.Classification, msg message.Message) error
}

type queuedInbound struct {
	msg       message.Message
	addedAt   time.Time
	releaseAt time.Time
	index     int
}

type inboundHeap []*queuedInbound

func (h inboundHeap) Len() int            { return len(h) }
func (h inboundHeap) Less(i, j int) bool  { return h[i].releaseAt.Before(h[j].releaseAt) }
func (h inboundHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *inboundHeap) Push(x interface{}) { *h = append(*h, x.(*queuedInbound)) }
func (h *inboundHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Receiver ingests raw inbound messages, defers each by a randomized read
// delay and dispatches them in release order through the behavior gate.
type Receiver struct {
	clk        clock.Clock
	behavior   *behavior.Manager
	sender     send.Sender
	dispatcher Dispatcher

	mu      sync.Mutex
	pending inboundHeap

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReceiver(clk clock.Clock, bm *behavior.Manager, sender send.Sender, dispatcher Dispatcher) *Receiver {
	ctx, cancel := context.WithCancel(context.Background())
	return &Receiver{
		clk:        clk,
		behavior:   bm,
		sender:     sender,
		dispatcher: dispatcher,
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (r *Receiver) Start() {
	go r.run()
}

func (r *Receiver) Stop() {
	r.cancel()
	<-r.done
}

// Ingest admits a raw message into the scheduler. Non-group chats and
// already-processed ids are dropped here.
func (r *Receiver) Ingest(msg message.Message) {
	if !utils.IsGroupJID(msg.ChatID) {
		logrus.Debugf("[RECEIVE] Ignoring non-group chat %s", msg.ChatID)
		return
	}
	if r.behavior.WasProcessed(msg.WaMessageID) {
		logrus.Debugf("[RECEIVE] Duplicate message %s dropped", msg.WaMessageID)
		return
	}

	now := r.clk.Now()
	item := &queuedInbound{
		msg:       msg,
		addedAt:   now,
		releaseAt: now.Add(r.behavior.ReadDelay(now)),
	}

	r.mu.Lock()
	heap.Push(&r.pending, item)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Pending reports the number of scheduled inbound messages.
func (r *Receiver) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Receiver) run() {
	defer close(r.done)
	for {
		if r.ctx.Err() != nil {
			return
		}

		item, wait := r.nextDue()
		if item != nil {
			r.handle(item)
			continue
		}
		if wait < 0 {
			// Nothing scheduled; park until a message arrives.
			select {
			case <-r.ctx.Done():
				return
			case <-r.wake:
			}
			continue
		}
		if !r.waitNext(wait) {
			return
		}
	}
}

// nextDue pops the earliest item whose release time has passed, or returns
// how long to wait for the earliest future one. A negative wait means the
// scheduler is empty.
func (r *Receiver) nextDue() (*queuedInbound, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil, -1
	}
	now := r.clk.Now()
	head := r.pending[0]
	if head.releaseAt.After(now) {
		return nil, head.releaseAt.Sub(now)
	}
	return heap.Pop(&r.pending).(*queuedInbound), 0
}

// waitNext sleeps up to d, returning early when a new message arrives.
// Returns false on shutdown.
func (r *Receiver) waitNext(d time.Duration) bool {
	sleepCtx, cancel := context.WithCancel(r.ctx)
	defer cancel()
	go func() {
		select {
		case <-r.wake:
			cancel()
		case <-sleepCtx.Done():
		}
	}()
	r.clk.Sleep(sleepCtx, d)
	return r.ctx.Err() == nil
}

func (r *Receiver) handle(item *queuedInbound) {
	msg := item.msg
	log := logrus.WithFields(logrus.Fields{
		"chat":    msg.ChatID,
		"message": msg.WaMessageID,
	})

	class := message.Classify(msg)
	if class == message.ClassIgnored {
		log.Debug("[RECEIVE] No trigger matched, dropping")
		return
	}

	if !r.behavior.MaybeNetworkHiccup(r.ctx) {
		return
	}

	now := r.clk.Now()
	if ok, reason := r.behavior.TryAdmit(now); !ok {
		r.notifyLimit(msg.ChatID, reason, now)
		log.Warnf("[RECEIVE] Admission rejected (%s), dropping", reason)
		return
	}

	if r.clk.Float64() < extraDelayChance {
		if !r.clk.Sleep(r.ctx, r.clk.Uniform(extraDelayMin, extraDelayMax)) {
			return
		}
	}
	if !r.clk.Sleep(r.ctx, r.behavior.ResponseDelay(r.clk.Now())) {
		return
	}

	if err := r.dispatcher.Dispatch(r.ctx, class, msg); err != nil {
		log.WithError(err).Warn("[RECEIVE] Handler failed")
	}
	r.behavior.RecordProcessed(msg.WaMessageID, r.clk.Now())
}

// notifyLimit posts a once-per-window informational message to the
// originating group. Critical priority bypasses admission in the queue.
func (r *Receiver) notifyLimit(chatID string, reason behavior.RejectReason, now time.Time) {
	var text string
	switch reason {
	case behavior.RejectHourlyLimit:
		text = hourlyLimitNotice
	case behavior.RejectDailyLimit:
		text = dailyLimitNotice
	default:
		return
	}
	if !r.behavior.ShouldNotifyLimit(reason, now) {
		return
	}
	r.sender.Enqueue(send.Request{
		TargetChatID: chatID,
		Text:         text,
		Priority:     send.PriorityCritical,
	})
}
