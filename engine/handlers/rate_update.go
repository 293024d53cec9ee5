package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/keyquest/wa-gateway/domains/message"
	"github.com/keyquest/wa-gateway/engine"
	"github.com/keyquest/wa-gateway/integrations/webhook"
)

const (
	rateIdempotencyWindow = 10 * time.Minute
	rateForwardBudget     = 5 * time.Second
)

// RateUpdateHandler forwards rate-related group messages to the downstream
// webhook. Repeated identical messages within the idempotency window are
// acknowledged without a second delivery.
type RateUpdateHandler struct {
	Event     string
	Forwarder *webhook.Forwarder

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewRateUpdateHandler(event string, fw *webhook.Forwarder) *RateUpdateHandler {
	return &RateUpdateHandler{
		Event:     event,
		Forwarder: fw,
		seen:      make(map[string]time.Time),
	}
}

func (h *RateUpdateHandler) Handle(ctx context.Context, env *engine.Env, msg message.Message) error {
	now := env.Clock.Now()
	if !h.firstSeen(msg.WaMessageID, now) {
		env.Log.Debugf("[RATE] Duplicate %s within window, skipping", msg.WaMessageID)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, rateForwardBudget)
	defer cancel()

	return h.Forwarder.Forward(ctx, h.Event, map[string]any{
		"wa_message_id": msg.WaMessageID,
		"chat_id":       msg.ChatID,
		"sender_id":     msg.SenderID,
		"body":          msg.Body,
		"timestamp":     msg.Timestamp.UTC().Format(time.RFC3339),
	})
}

func (h *RateUpdateHandler) firstSeen(waMessageID string, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, t := range h.seen {
		if now.Sub(t) >= rateIdempotencyWindow {
			delete(h.seen, id)
		}
	}
	if t, ok := h.seen[waMessageID]; ok && now.Sub(t) < rateIdempotencyWindow {
		return false
	}
	h.seen[waMessageID] = now
	return true
}
