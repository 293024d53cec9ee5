package sendqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/keyquest/wa-gateway/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	MaxAttempts      = 5
	ReadinessTimeout = 30 * time.Second
	AttemptTimeout   = 30 * time.Second

	BackoffBase   = 500 * time.Millisecond
	BackoffCap    = 30 * time.Second
	BackoffJitter = 500 * time.Millisecond

	// Provider-side throttling gets a longer floor before the next attempt.
	RateLimitFloor = 5 * time.Second

	PacingSlowMin = 800 * time.Millisecond
	PacingSlowMax = 1800 * time.Millisecond
	PacingFastMax = 400 * time.Millisecond

	readinessPoll = 500 * time.Millisecond
)

// Client is the slice of the WhatsApp capability the send worker needs.
type Client interface {
	IsReady() bool
	SendText(ctx context.Context, chatID, text string) (string, error)
	SendMedia(ctx context.Context, chatID string, media send.Media) (string, error)
}

// Recorder receives rate accounting for successful sends.
type Recorder interface {
	RecordProcessed(waMessageID string, now time.Time)
}

type item struct {
	req    send.Request
	result chan send.Result
}

// Queue serializes every outbound send through a single worker with four
// priority bands. Within a band order is FIFO; across bands strict priority.
type Queue struct {
	clk      clock.Clock
	client   Client
	recorder Recorder

	mu       sync.Mutex
	bands    [4][]*item
	draining bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(clk clock.Clock, client Client, recorder Recorder) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		clk:      clk,
		client:   client,
		recorder: recorder,
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (q *Queue) Start() {
	go q.run()
}

// Enqueue adds a request and returns a channel delivering exactly one
// terminal Result.
func (q *Queue) Enqueue(req send.Request) <-chan send.Result {
	result := make(chan send.Result, 1)

	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		result <- send.Result{Err: send.ErrShutdown}
		return result
	}
	band := int(req.Priority)
	q.bands[band] = append(q.bands[band], &item{req: req, result: result})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return result
}

// Pending reports how many requests are waiting across all bands.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, b := range q.bands {
		n += len(b)
	}
	return n
}

// Drain stops accepting new requests and waits for the bands to empty, up
// to ctx's deadline. The worker is stopped either way.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	q.draining = true
	q.mu.Unlock()

	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for q.Pending() > 0 {
		select {
		case <-ctx.Done():
			q.stop()
			return fmt.Errorf("send queue drain: %w", ctx.Err())
		case <-tick.C:
		}
	}
	q.stop()
	return nil
}

func (q *Queue) stop() {
	q.cancel()
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		it := q.pop()
		if it == nil {
			select {
			case <-q.ctx.Done():
				q.failRemaining()
				return
			case <-q.wake:
				continue
			}
		}

		if it.req.Ctx != nil && it.req.Ctx.Err() != nil {
			it.result <- send.Result{Err: it.req.Ctx.Err()}
			continue
		}

		q.process(it)

		// Inter-message pacing applies after a terminally completed send.
		var pace time.Duration
		switch it.req.Priority {
		case send.PriorityHigh, send.PriorityCritical:
			pace = q.clk.Uniform(0, PacingFastMax)
		default:
			pace = q.clk.Uniform(PacingSlowMin, PacingSlowMax)
		}
		if !q.clk.Sleep(q.ctx, pace) {
			q.failRemaining()
			return
		}
	}
}

// pop removes the head of the highest non-empty band.
func (q *Queue) pop() *item {
	q.mu.Lock()
	defer q.mu.Unlock()
	for band := int(send.PriorityCritical); band >= int(send.PriorityLow); band-- {
		if len(q.bands[band]) > 0 {
			it := q.bands[band][0]
			q.bands[band] = q.bands[band][1:]
			return it
		}
	}
	return nil
}

func (q *Queue) failRemaining() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for band := range q.bands {
		for _, it := range q.bands[band] {
			it.result <- send.Result{Err: send.ErrShutdown}
		}
		q.bands[band] = nil
	}
}

func (q *Queue) process(it *item) {
	log := logrus.WithFields(logrus.Fields{
		"target":   it.req.TargetChatID,
		"priority": it.req.Priority.String(),
	})

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if it.req.Ctx != nil && it.req.Ctx.Err() != nil {
			it.result <- send.Result{Err: it.req.Ctx.Err()}
			return
		}

		err := q.awaitReady()
		if err == nil {
			var messageID string
			messageID, err = q.attempt(it.req)
			if err == nil {
				q.recorder.RecordProcessed("sent_"+utils.RandToken(8), q.clk.Now())
				it.result <- send.Result{MessageID: messageID}
				return
			}
		}

		kind := send.ClassifyError(err)
		if kind == send.ErrKindTerminal {
			log.WithError(err).Warn("[SENDQUEUE] Terminal send failure")
			it.result <- send.Result{Err: err}
			return
		}

		if attempt == MaxAttempts-1 {
			log.WithError(err).Warn("[SENDQUEUE] Giving up after max attempts")
			it.result <- send.Result{Err: err}
			return
		}

		backoff := q.backoff(attempt, kind)
		log.WithError(err).Debugf("[SENDQUEUE] Retry %d/%d in %v", attempt+1, MaxAttempts, backoff)
		if !q.clk.Sleep(q.ctx, backoff) {
			it.result <- send.Result{Err: send.ErrShutdown}
			return
		}
	}
}

func (q *Queue) awaitReady() error {
	deadline := q.clk.Now().Add(ReadinessTimeout)
	for !q.client.IsReady() {
		if !q.clk.Now().Before(deadline) {
			return send.ErrNotReady
		}
		if !q.clk.Sleep(q.ctx, readinessPoll) {
			return send.ErrShutdown
		}
	}
	return nil
}

func (q *Queue) attempt(req send.Request) (string, error) {
	base := req.Ctx
	if base == nil {
		base = q.ctx
	}
	ctx, cancel := context.WithTimeout(base, AttemptTimeout)
	defer cancel()

	if req.Media != nil {
		return q.client.SendMedia(ctx, req.TargetChatID, *req.Media)
	}
	return q.client.SendText(ctx, req.TargetChatID, req.Text)
}

func (q *Queue) backoff(attempt int, kind send.ErrorKind) time.Duration {
	d := BackoffBase << uint(attempt)
	if d > BackoffCap {
		d = BackoffCap
	}
	if kind == send.ErrKindRateLimited && d < RateLimitFloor {
		d = RateLimitFloor
	}
	return d + q.clk.Uniform(0, BackoffJitter)
}
