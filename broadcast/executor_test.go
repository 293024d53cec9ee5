package broadcast

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/keyquest/wa-gateway/domains/broadcast"
	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/eventbus"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu    sync.Mutex
	execs map[string]*broadcast.Execution
	msgs  map[string][]broadcast.Message
}

func newMemRepo() *memRepo {
	return &memRepo{
		execs: make(map[string]*broadcast.Execution),
		msgs:  make(map[string][]broadcast.Message),
	}
}

func (r *memRepo) CreateExecution(_ context.Context, e *broadcast.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.execs {
		if ex.BroadcastID == e.BroadcastID {
			*e = *ex
			return nil
		}
	}
	cp := *e
	r.execs[e.ID] = &cp
	return nil
}

func (r *memRepo) GetExecution(_ context.Context, id string) (*broadcast.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.execs {
		if ex.ID == id || ex.BroadcastID == id {
			cp := *ex
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) UpdateExecution(_ context.Context, e *broadcast.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.execs[e.ID] = &cp
	return nil
}

func (r *memRepo) ListExecutions(_ context.Context, _ string, _ int) ([]broadcast.Execution, error) {
	return nil, nil
}

func (r *memRepo) BulkCreateMessages(_ context.Context, msgs []broadcast.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.msgs[m.ExecutionID] = append(r.msgs[m.ExecutionID], m)
	}
	return nil
}

func (r *memRepo) UpdateMessage(_ context.Context, m *broadcast.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.msgs[m.ExecutionID]
	for i := range rows {
		if rows[i].ID == m.ID {
			rows[i] = *m
			return nil
		}
	}
	return nil
}

func (r *memRepo) ListMessages(_ context.Context, executionID string) ([]broadcast.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]broadcast.Message, len(r.msgs[executionID]))
	copy(out, r.msgs[executionID])
	return out, nil
}

type recordingSender struct {
	mu   sync.Mutex
	reqs []send.Request
	errs map[int]error
}

func (s *recordingSender) Enqueue(req send.Request) <-chan send.Result {
	s.mu.Lock()
	idx := len(s.reqs)
	s.reqs = append(s.reqs, req)
	err := s.errs[idx]
	s.mu.Unlock()
	ch := make(chan send.Result, 1)
	ch <- send.Result{MessageID: fmt.Sprintf("b%d", idx), Err: err}
	return ch
}

func (s *recordingSender) requests() []send.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]send.Request, len(s.reqs))
	copy(out, s.reqs)
	return out
}

type countingPinger struct {
	mu sync.Mutex
	n  int
}

func (p *countingPinger) Ping(_ context.Context) error {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
	return nil
}

func seedExecution(t *testing.T, repo *memRepo, contacts int, notify string) *broadcast.Execution {
	t.Helper()
	exec := &broadcast.Execution{
		ID:                  "exec-1",
		BroadcastID:         "bc-1",
		Status:              broadcast.StatusRunning,
		TotalContacts:       contacts,
		MessageContent:      "Hi {name}, rates dropped this week.",
		DelayMode:           broadcast.DelayMode1to2,
		NotificationContact: notify,
		StartedAt:           time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.CreateExecution(context.Background(), exec))

	var msgs []broadcast.Message
	for i := 0; i < contacts; i++ {
		msgs = append(msgs, broadcast.Message{
			ID:             fmt.Sprintf("msg-%d", i),
			ExecutionID:    exec.ID,
			RecipientName:  fmt.Sprintf("Contact %d", i),
			RecipientPhone: fmt.Sprintf("9123450%d", i),
			SendOrder:      i,
			Status:         broadcast.MessagePending,
		})
	}
	require.NoError(t, repo.BulkCreateMessages(context.Background(), msgs))
	return exec
}

func TestExecutorRunsToCompletion(t *testing.T) {
	repo := newMemRepo()
	sender := &recordingSender{}
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	pinger := &countingPinger{}
	exec := seedExecution(t, repo, 3, "91112222")

	x := NewExecutor(repo, sender, pinger, clk, nil)
	x.Launch(exec)
	x.Shutdown()

	got, err := repo.GetExecution(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, broadcast.StatusCompleted, got.Status)
	assert.Equal(t, 3, got.SentCount)
	assert.Equal(t, 0, got.FailedCount)
	assert.Equal(t, got.SentCount+got.FailedCount, got.CurrentIndex)
	assert.NotNil(t, got.CompletedAt)

	reqs := sender.requests()
	require.Len(t, reqs, 4, "three contacts plus the completion notice")
	assert.Equal(t, "6591234500@c.us", reqs[0].TargetChatID)
	assert.Equal(t, "Hi Contact 0, rates dropped this week.", reqs[0].Text)
	assert.Equal(t, send.PriorityLow, reqs[0].Priority)

	notice := reqs[3]
	assert.Equal(t, "6591112222@c.us", notice.TargetChatID)
	assert.Equal(t, send.PriorityCritical, notice.Priority)
	assert.Contains(t, notice.Text, "Sent: 3")
	assert.Contains(t, notice.Text, "Failed: 0")

	msgs, err := repo.ListMessages(context.Background(), "exec-1")
	require.NoError(t, err)
	for _, m := range msgs {
		assert.Equal(t, broadcast.MessageSent, m.Status)
		assert.NotNil(t, m.SentAt)
	}

	// Two inter-message waits of at least a minute, pinged every 30s.
	assert.GreaterOrEqual(t, pinger.n, 2)
}

func TestExecutorCountsFailures(t *testing.T) {
	repo := newMemRepo()
	sender := &recordingSender{errs: map[int]error{1: fmt.Errorf("invalid wid")}}
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	exec := seedExecution(t, repo, 3, "")

	x := NewExecutor(repo, sender, nil, clk, nil)
	x.Launch(exec)
	x.Shutdown()

	got, err := repo.GetExecution(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, broadcast.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.SentCount)
	assert.Equal(t, 1, got.FailedCount)
	assert.Equal(t, 3, got.CurrentIndex)

	msgs, err := repo.ListMessages(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, broadcast.MessageFailed, msgs[1].Status)
	assert.Equal(t, "invalid wid", msgs[1].Error)
}

func TestExecutorCancelPersistsState(t *testing.T) {
	repo := newMemRepo()
	sender := &recordingSender{}
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	exec := seedExecution(t, repo, 3, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x := NewExecutor(repo, sender, nil, clk, nil)
	// Drive run directly with an already-cancelled context: the first loop
	// iteration must observe it and mark the row cancelled.
	x.run(ctx, exec)

	got, err := repo.GetExecution(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, broadcast.StatusCancelled, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, sender.requests())
}

func TestExecutorResumesFromIndex(t *testing.T) {
	repo := newMemRepo()
	sender := &recordingSender{}
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	exec := seedExecution(t, repo, 3, "")
	exec.CurrentIndex = 2
	exec.SentCount = 2
	require.NoError(t, repo.UpdateExecution(context.Background(), exec))

	x := NewExecutor(repo, sender, nil, clk, nil)
	x.Launch(exec)
	x.Shutdown()

	reqs := sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Hi Contact 2, rates dropped this week.", reqs[0].Text)

	got, err := repo.GetExecution(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.SentCount)
}

func drainStatusEvents(events chan eventbus.Event) []eventbus.Event {
	var out []eventbus.Event
	for {
		select {
		case evt := <-events:
			if evt.Type == eventbus.EventBroadcastStatus {
				out = append(out, evt)
			}
		default:
			return out
		}
	}
}

func TestExecutorPublishesProgressEvents(t *testing.T) {
	repo := newMemRepo()
	sender := &recordingSender{}
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	exec := seedExecution(t, repo, 2, "")

	bus := eventbus.NewBus()
	events := bus.Subscribe()
	defer bus.Unsubscribe(events)

	x := NewExecutor(repo, sender, nil, clk, bus)
	x.Launch(exec)
	x.Shutdown()

	got := drainStatusEvents(events)
	// One frame per contact plus the terminal frame.
	require.Len(t, got, 3)

	first := got[0].Payload
	assert.Equal(t, "bc-1", first["broadcast_id"])
	assert.Equal(t, "exec-1", first["execution_id"])
	assert.Equal(t, 2, first["total"])
	assert.Equal(t, 1, first["sent"])
	assert.Equal(t, 0, first["failed"])
	assert.Equal(t, 1, first["current_index"])
	assert.Equal(t, 50, first["progress"])
	assert.Equal(t, "Contact 0", first["current_contact"])

	second := got[1].Payload
	assert.Equal(t, 2, second["sent"])
	assert.Equal(t, 100, second["progress"])
	assert.Equal(t, "Contact 1", second["current_contact"])

	terminal := got[2].Payload
	assert.Equal(t, broadcast.StatusCompleted, terminal["status"])
	assert.Equal(t, 100, terminal["progress"])
	assert.NotContains(t, terminal, "current_contact")
}

func TestExecutorNotifiesAndPublishesOnCancel(t *testing.T) {
	repo := newMemRepo()
	sender := &recordingSender{}
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	exec := seedExecution(t, repo, 3, "91112222")

	bus := eventbus.NewBus()
	events := bus.Subscribe()
	defer bus.Unsubscribe(events)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x := NewExecutor(repo, sender, nil, clk, bus)
	x.run(ctx, exec)

	got, err := repo.GetExecution(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, broadcast.StatusCancelled, got.Status)

	// The cancelled run still sends the summary to the notification contact.
	reqs := sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "6591112222@c.us", reqs[0].TargetChatID)
	assert.Equal(t, send.PriorityCritical, reqs[0].Priority)
	assert.Contains(t, reqs[0].Text, "cancelled")

	statuses := drainStatusEvents(events)
	require.Len(t, statuses, 1)
	assert.Equal(t, broadcast.StatusCancelled, statuses[0].Payload["status"])
}

func TestExecutorSendsImageAsMedia(t *testing.T) {
	repo := newMemRepo()
	sender := &recordingSender{}
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	exec := seedExecution(t, repo, 1, "")
	exec.ImageURL = "https://cdn.example.com/rates.png"
	require.NoError(t, repo.UpdateExecution(context.Background(), exec))

	x := NewExecutor(repo, sender, nil, clk, nil)
	x.Launch(exec)
	x.Shutdown()

	reqs := sender.requests()
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Media)
	assert.Equal(t, "https://cdn.example.com/rates.png", reqs[0].Media.URL)
	assert.Equal(t, "Hi Contact 0, rates dropped this week.", reqs[0].Media.Caption)
	assert.Empty(t, reqs[0].Text)
}

func TestPersonalizeDefaultsName(t *testing.T) {
	assert.Equal(t, "Hi Valued Customer!", Personalize("Hi {name}!", "  "))
	assert.Equal(t, "Hi Siti!", Personalize("Hi {name}!", "Siti"))
	assert.Equal(t, "no placeholder", Personalize("no placeholder", "Siti"))
}
