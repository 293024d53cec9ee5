package sendqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeClient struct {
	mu       sync.Mutex
	ready    bool
	calls    []string
	failures []error
}

func (c *fakeClient) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *fakeClient) SendText(_ context.Context, chatID, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, chatID)
	if len(c.failures) > 0 {
		err := c.failures[0]
		c.failures = c.failures[1:]
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("msg-%d", len(c.calls)), nil
}

func (c *fakeClient) SendMedia(ctx context.Context, chatID string, _ send.Media) (string, error) {
	return c.SendText(ctx, chatID, "")
}

func (c *fakeClient) callTargets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

type fakeRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *fakeRecorder) RecordProcessed(id string, _ time.Time) {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func newTestQueue(client *fakeClient) (*Queue, *clock.FakeClock, *fakeRecorder) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	rec := &fakeRecorder{}
	return New(clk, client, rec), clk, rec
}

func TestEnqueueWakesParkedWorker(t *testing.T) {
	client := &fakeClient{ready: true}
	q, _, _ := newTestQueue(client)
	q.Start()
	defer q.stop()

	// Let the worker park on the empty bands first.
	time.Sleep(20 * time.Millisecond)

	result := q.Enqueue(send.Request{TargetChatID: "g@g.us", Text: "hi", Priority: send.PriorityHigh})
	select {
	case res := <-result:
		require.NoError(t, res.Err)
		assert.NotEmpty(t, res.MessageID)
	case <-time.After(50 * time.Millisecond):
		t.Fatal("worker did not wake within 50ms")
	}
}

func TestRetryOnDetachedFrame(t *testing.T) {
	client := &fakeClient{
		ready: true,
		failures: []error{
			errors.New("Protocol error: detached Frame"),
			errors.New("Protocol error: detached Frame"),
			nil,
		},
	}
	q, clk, rec := newTestQueue(client)
	q.Start()
	defer q.stop()

	res := <-q.Enqueue(send.Request{TargetChatID: "g@g.us", Text: "hi", Priority: send.PriorityHigh})
	require.NoError(t, res.Err)

	assert.Len(t, client.callTargets(), 3, "two failures then success")
	assert.Equal(t, 1, rec.count(), "only the successful send is recorded")

	// Two backoff waits plus the trailing pacing sleep.
	var backoffs int
	for _, d := range clk.Slept() {
		if d >= BackoffBase {
			backoffs++
		}
	}
	assert.GreaterOrEqual(t, backoffs, 2)
}

func TestTerminalErrorFailsWithoutRetry(t *testing.T) {
	client := &fakeClient{
		ready:    true,
		failures: []error{errors.New("invalid wid")},
	}
	q, _, rec := newTestQueue(client)
	q.Start()
	defer q.stop()

	res := <-q.Enqueue(send.Request{TargetChatID: "bogus", Text: "hi", Priority: send.PriorityNormal})
	require.Error(t, res.Err)
	assert.Len(t, client.callTargets(), 1)
	assert.Equal(t, 0, rec.count())
}

func TestCancelledRequestDiscarded(t *testing.T) {
	client := &fakeClient{ready: true}
	q, _, _ := newTestQueue(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := q.Enqueue(send.Request{TargetChatID: "g@g.us", Text: "hi", Ctx: ctx})

	q.Start()
	defer q.stop()

	res := <-result
	require.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, client.callTargets(), "cancelled request must not reach the client")
}

func TestDrainRejectsNewWork(t *testing.T) {
	client := &fakeClient{ready: true}
	q, _, _ := newTestQueue(client)
	q.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))

	res := <-q.Enqueue(send.Request{TargetChatID: "g@g.us", Text: "late"})
	assert.ErrorIs(t, res.Err, send.ErrShutdown)
}

// Property: the observed send order is a stable merge of the per-band FIFOs
// by descending priority when all requests are queued before the worker runs.
func TestPriorityMergeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "n")
		priorities := make([]send.Priority, n)
		for i := range priorities {
			priorities[i] = send.Priority(rapid.IntRange(0, 3).Draw(t, "prio"))
		}

		client := &fakeClient{ready: true}
		q, _, _ := newTestQueue(client)

		results := make([]<-chan send.Result, n)
		for i, p := range priorities {
			results[i] = q.Enqueue(send.Request{
				TargetChatID: fmt.Sprintf("t%d", i),
				Text:         "x",
				Priority:     p,
			})
		}

		q.Start()
		for _, ch := range results {
			res := <-ch
			if res.Err != nil {
				t.Fatalf("send failed: %v", res.Err)
			}
		}
		q.stop()

		var expected []string
		for band := int(send.PriorityCritical); band >= int(send.PriorityLow); band-- {
			for i, p := range priorities {
				if int(p) == band {
					expected = append(expected, fmt.Sprintf("t%d", i))
				}
			}
		}
		got := client.callTargets()
		if len(got) != len(expected) {
			t.Fatalf("got %d calls, want %d", len(got), len(expected))
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("position %d: got %s, want %s (priorities %v)", i, got[i], expected[i], priorities)
			}
		}
	})
}
