package handlers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/keyquest/wa-gateway/domains/banker"
	"github.com/keyquest/wa-gateway/domains/message"
	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/domains/valuation"
	"github.com/keyquest/wa-gateway/engine"
	"github.com/keyquest/wa-gateway/eventbus"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory repositories ---

type memBankers struct {
	rows []banker.Banker
}

func (m *memBankers) Create(_ context.Context, b *banker.Banker) error {
	m.rows = append(m.rows, *b)
	return nil
}

func (m *memBankers) GetByID(_ context.Context, id string) (*banker.Banker, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			b := m.rows[i]
			return &b, nil
		}
	}
	return nil, nil
}

func (m *memBankers) List(_ context.Context, activeOnly bool) ([]banker.Banker, error) {
	var out []banker.Banker
	for _, b := range m.rows {
		if !activeOnly || b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBankers) ListBankNames(_ context.Context) ([]string, error) { return nil, nil }
func (m *memBankers) Update(_ context.Context, _ *banker.Banker) error  { return nil }
func (m *memBankers) Delete(_ context.Context, _ string) error          { return nil }

type memValuations struct {
	mu   sync.Mutex
	rows map[string]*valuation.Request
}

func newMemValuations() *memValuations {
	return &memValuations{rows: make(map[string]*valuation.Request)}
}

func (m *memValuations) Create(_ context.Context, r *valuation.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memValuations) GetByID(_ context.Context, id string) (*valuation.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memValuations) GetByForwardMessageID(_ context.Context, forwardID, targetGroupID string) (*valuation.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ForwardMessageID == forwardID && r.TargetGroupID == targetGroupID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memValuations) List(_ context.Context, _ string, _ int) ([]valuation.Request, error) {
	return nil, nil
}

func (m *memValuations) Update(_ context.Context, r *valuation.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memValuations) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memValuations) single(t *testing.T) *valuation.Request {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.rows, 1)
	for _, r := range m.rows {
		cp := *r
		return &cp
	}
	return nil
}

// scriptedSender resolves each enqueue with sequential message ids.
type scriptedSender struct {
	mu     sync.Mutex
	reqs   []send.Request
	nextID int
}

func (s *scriptedSender) Enqueue(req send.Request) <-chan send.Result {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.nextID++
	id := fmt.Sprintf("m%d", s.nextID+1)
	s.mu.Unlock()
	ch := make(chan send.Result, 1)
	ch <- send.Result{MessageID: id}
	return ch
}

func testEnv(sender send.Sender) *engine.Env {
	return &engine.Env{
		Sender: sender,
		Clock:  clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		Events: eventbus.NewBus(),
		Log:    logrus.WithField("test", true),
	}
}

func yvonne() banker.Banker {
	return banker.Banker{
		ID:              "b1",
		Name:            "Yvonne",
		DisplayName:     "Yvonne",
		BankName:        "Premas",
		WhatsappGroupID: "gY@g.us",
		RoutingKeywords: []string{"yvonne", "premas"},
		Priority:        10,
		IsActive:        true,
		CreatedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

const requestBody = "Valuation Request:\n\n" +
	"Address: Blk 123 Ang Mo Kio Ave 4\n" +
	"Size: 1200 sqft\n" +
	"Asking: $500,000\n" +
	"Salesperson Name: John Tan\n" +
	"Agent Number: 91234567\n" +
	"Banker Name: Yvonne"

func TestValuationRequestHappyPath(t *testing.T) {
	bankers := &memBankers{rows: []banker.Banker{yvonne()}}
	valuations := newMemValuations()
	sender := &scriptedSender{}
	h := &ValuationRequestHandler{Bankers: bankers, Valuations: valuations}

	err := h.Handle(context.Background(), testEnv(sender), message.Message{
		WaMessageID: "m1",
		ChatID:      "R@g.us",
		Body:        requestBody,
	})
	require.NoError(t, err)

	require.Len(t, sender.reqs, 2)

	forward := sender.reqs[0]
	assert.Equal(t, "gY@g.us", forward.TargetChatID)
	assert.Equal(t, send.PriorityHigh, forward.Priority)
	assert.Equal(t, "Valuation Request:\n\nAddress: Blk 123 Ang Mo Kio Ave 4\nSize: 1200 sqft\nAsking: $500,000", forward.Text)

	ack := sender.reqs[1]
	assert.Equal(t, "R@g.us", ack.TargetChatID)
	assert.Equal(t, send.PriorityNormal, ack.Priority)
	assert.Equal(t, "Thanks! We've forwarded your request to Yvonne.\nWe'll let you know when they replied.", ack.Text)

	row := valuations.single(t)
	assert.Equal(t, "m2", row.ForwardMessageID)
	assert.Equal(t, "6591234567@c.us", row.AgentWhatsappID)
	assert.Equal(t, valuation.StatusForwarded, row.Status)
	assert.Equal(t, "R@g.us", row.RequesterGroupID)
	assert.Equal(t, "gY@g.us", row.TargetGroupID)
	assert.Equal(t, "b1", row.BankerID)
	assert.NotEmpty(t, row.AcknowledgmentMessageID)
}

func TestValuationRequestMissingFields(t *testing.T) {
	bankers := &memBankers{rows: []banker.Banker{yvonne()}}
	valuations := newMemValuations()
	sender := &scriptedSender{}
	h := &ValuationRequestHandler{Bankers: bankers, Valuations: valuations}

	err := h.Handle(context.Background(), testEnv(sender), message.Message{
		WaMessageID: "m1",
		ChatID:      "R@g.us",
		Body:        "Valuation Request:\n\nSize: 1200 sqft\nBanker Name: Yvonne",
	})
	require.Error(t, err)

	require.Len(t, sender.reqs, 1)
	assert.Equal(t, "R@g.us", sender.reqs[0].TargetChatID)
	assert.Equal(t, send.PriorityHigh, sender.reqs[0].Priority)
	assert.Empty(t, valuations.rows)
}

func TestValuationRequestNoBankerMatch(t *testing.T) {
	bankers := &memBankers{}
	valuations := newMemValuations()
	sender := &scriptedSender{}
	h := &ValuationRequestHandler{Bankers: bankers, Valuations: valuations}

	err := h.Handle(context.Background(), testEnv(sender), message.Message{
		WaMessageID: "m1",
		ChatID:      "R@g.us",
		Body:        requestBody,
	})
	require.Error(t, err)
	require.Len(t, sender.reqs, 1)
	assert.Contains(t, sender.reqs[0].Text, "no banker matched")
}

func TestBankerRoutingPriorityAndTies(t *testing.T) {
	early := yvonne()
	early.ID = "b-early"
	early.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	late := yvonne()
	late.ID = "b-late"
	late.CreatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	strong := yvonne()
	strong.ID = "b-strong"
	strong.Priority = 20
	strong.RoutingKeywords = []string{"premas"}

	inactive := yvonne()
	inactive.ID = "b-off"
	inactive.Priority = 99
	inactive.IsActive = false

	h := &ValuationRequestHandler{Bankers: &memBankers{rows: []banker.Banker{late, early, strong, inactive}}}

	got, err := h.routeBanker(context.Background(), "valuation request for premas yvonne")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b-strong", got.ID, "highest priority wins")

	h = &ValuationRequestHandler{Bankers: &memBankers{rows: []banker.Banker{late, early}}}
	got, err = h.routeBanker(context.Background(), "valuation request for yvonne")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b-early", got.ID, "ties break by earliest created_at")
}

func TestValuationReplyHappyPath(t *testing.T) {
	bankers := &memBankers{rows: []banker.Banker{yvonne()}}
	valuations := newMemValuations()
	forwardedAt := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	require.NoError(t, valuations.Create(context.Background(), &valuation.Request{
		ID:               "v1",
		RequesterGroupID: "R@g.us",
		RequestMessageID: "m1",
		Address:          "Blk 123 Ang Mo Kio Ave 4",
		Size:             "1200 sqft",
		Asking:           "$500,000",
		AgentWhatsappID:  "6591234567@c.us",
		BankerID:         "b1",
		BankerName:       "Yvonne",
		TargetGroupID:    "gY@g.us",
		ForwardMessageID: "m2",
		ForwardedAt:      &forwardedAt,
		Status:           valuation.StatusForwarded,
	}))

	sender := &scriptedSender{}
	h := &ValuationReplyHandler{Bankers: bankers, Valuations: valuations}

	err := h.Handle(context.Background(), testEnv(sender), message.Message{
		WaMessageID: "m3",
		ChatID:      "gY@g.us",
		Body:        "Estimated valuation $480,000 to $520,000. - Yvonne (AG001)",
		QuotedID:    "m2",
	})
	require.NoError(t, err)

	require.Len(t, sender.reqs, 2)

	groupReply := sender.reqs[0]
	assert.Equal(t, "R@g.us", groupReply.TargetChatID)
	assert.Equal(t, send.PriorityHigh, groupReply.Priority)
	assert.Contains(t, groupReply.Text, "From Banker: Premas - Yvonne")
	assert.Contains(t, groupReply.Text, "Valuation: Estimated valuation $480,000 to $520,000. - Yvonne (AG001)")

	agentNote := sender.reqs[1]
	assert.Equal(t, "6591234567@c.us", agentNote.TargetChatID)
	assert.NotContains(t, agentNote.Text, "From Banker")
	assert.Equal(t, "Address: Blk 123 Ang Mo Kio Ave 4\nSize: 1200 sqft\nAsking: $500,000\nValuation: Estimated valuation $480,000 to $520,000. - Yvonne (AG001)", agentNote.Text)

	row, err := valuations.GetByID(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, valuation.StatusCompleted, row.Status)
	assert.Equal(t, "m3", row.BankerReplyMessageID)
	assert.NotEmpty(t, row.FinalReplyMessageID)
	assert.NotEmpty(t, row.AgentNotificationMessageID)
	assert.NotNil(t, row.CompletedAt)
}

func TestValuationReplyNoMatchingForward(t *testing.T) {
	h := &ValuationReplyHandler{Bankers: &memBankers{}, Valuations: newMemValuations()}
	sender := &scriptedSender{}

	err := h.Handle(context.Background(), testEnv(sender), message.Message{
		WaMessageID: "m9",
		ChatID:      "gY@g.us",
		Body:        "some quoted chatter",
		QuotedID:    "unknown",
	})
	require.Error(t, err)
	assert.Empty(t, sender.reqs)
}

func TestParseLabeledFields(t *testing.T) {
	fields := parseLabeledFields(requestBody)
	assert.Equal(t, "Blk 123 Ang Mo Kio Ave 4", fields["address"])
	assert.Equal(t, "1200 sqft", fields["size"])
	assert.Equal(t, "$500,000", fields["asking"])
	assert.Equal(t, "John Tan", fields["salesperson name"])
	assert.Equal(t, "91234567", fields["agent number"])
	assert.Equal(t, "Yvonne", fields["banker name"])
}

func TestNormalizeAgentNumber(t *testing.T) {
	assert.Equal(t, "6591234567", normalizeAgentNumber("91234567"))
	assert.Equal(t, "6591234567", normalizeAgentNumber("+65 9123 4567"))
	assert.Equal(t, "6591234567", normalizeAgentNumber("6591234567"))
	assert.Equal(t, "", normalizeAgentNumber("no digits"))
}
