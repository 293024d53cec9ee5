package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/keyquest/wa-gateway/domains/banker"
	"github.com/keyquest/wa-gateway/domains/message"
	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/domains/valuation"
	"github.com/keyquest/wa-gateway/engine"
)

const schemaHint = "Sorry, I couldn't process that valuation request. Please include at least:\n\n" +
	"Valuation Request:\n\nAddress: ...\nSize: ...\nAsking: ...\nSalesperson Name: ...\nAgent Number: ...\nBanker Name: ..."

const noBankerHint = "Sorry, no banker matched that request. Please check the banker name and try again."

// ValuationRequestHandler parses a valuation request from a requester group,
// routes it to a banker group and acknowledges the requester.
type ValuationRequestHandler struct {
	Bankers    banker.IBankerRepository
	Valuations valuation.IValuationRepository
}

func (h *ValuationRequestHandler) Handle(ctx context.Context, env *engine.Env, msg message.Message) error {
	fields := parseLabeledFields(msg.Body)
	address := fields["address"]
	size := fields["size"]
	asking := fields["asking"]
	bankerName := fields["banker name"]

	if address == "" || bankerName == "" {
		env.Sender.Enqueue(send.Request{
			TargetChatID: msg.ChatID,
			Text:         schemaHint,
			Priority:     send.PriorityHigh,
			Ctx:          ctx,
		})
		return fmt.Errorf("valuation request missing mandatory fields")
	}

	routed, err := h.routeBanker(ctx, msg.Body)
	if err != nil {
		return fmt.Errorf("banker routing: %w", err)
	}
	if routed == nil {
		env.Sender.Enqueue(send.Request{
			TargetChatID: msg.ChatID,
			Text:         noBankerHint,
			Priority:     send.PriorityHigh,
			Ctx:          ctx,
		})
		return fmt.Errorf("no banker matched request")
	}

	agentRaw := fields["agent number"]
	agentDigits := normalizeAgentNumber(agentRaw)

	now := env.Clock.Now().UTC()
	row := &valuation.Request{
		ID:                  uuid.NewString(),
		RequesterGroupID:    msg.ChatID,
		RequestMessageID:    msg.WaMessageID,
		Address:             address,
		Size:                size,
		Asking:              asking,
		SalespersonName:     fields["salesperson name"],
		AgentNumberRaw:      agentRaw,
		AgentPhoneE164:      agentDigits,
		BankerNameRequested: bankerName,
		BankerID:            routed.ID,
		BankerName:          routed.Name,
		TargetGroupID:       routed.WhatsappGroupID,
		Status:              valuation.StatusPending,
		CreatedAt:           now,
	}
	if agentDigits != "" {
		row.AgentWhatsappID = agentDigits + "@c.us"
	}
	if err := h.Valuations.Create(ctx, row); err != nil {
		return fmt.Errorf("persist valuation request: %w", err)
	}

	forwardBody := fmt.Sprintf("Valuation Request:\n\nAddress: %s\nSize: %s\nAsking: %s", address, size, asking)
	res := <-env.Sender.Enqueue(send.Request{
		TargetChatID: routed.WhatsappGroupID,
		Text:         forwardBody,
		Priority:     send.PriorityHigh,
		Ctx:          ctx,
	})
	if res.Err != nil {
		return fmt.Errorf("forward to banker group: %w", res.Err)
	}

	// The forward id must be persisted before the acknowledgment goes out:
	// a banker reply quoting it can arrive any time after this point.
	forwardedAt := env.Clock.Now().UTC()
	row.ForwardMessageID = res.MessageID
	row.ForwardedAt = &forwardedAt
	row.Status = valuation.StatusForwarded
	if err := h.Valuations.Update(ctx, row); err != nil {
		return fmt.Errorf("persist forward id: %w", err)
	}

	ackBody := fmt.Sprintf("Thanks! We've forwarded your request to %s.\nWe'll let you know when they replied.", routed.Name)
	ackRes := <-env.Sender.Enqueue(send.Request{
		TargetChatID: msg.ChatID,
		Text:         ackBody,
		Priority:     send.PriorityNormal,
		Ctx:          ctx,
	})
	if ackRes.Err != nil {
		env.Log.WithError(ackRes.Err).Warn("[VALUATION] Acknowledgment send failed")
		return nil
	}
	row.AcknowledgmentMessageID = ackRes.MessageID
	if err := h.Valuations.Update(ctx, row); err != nil {
		env.Log.WithError(err).Warn("[VALUATION] Failed to persist acknowledgment id")
	}
	return nil
}

// routeBanker selects the active banker with the highest priority whose
// routing keywords appear in the body; ties break by earliest created_at.
func (h *ValuationRequestHandler) routeBanker(ctx context.Context, body string) (*banker.Banker, error) {
	candidates, err := h.Bankers.List(ctx, true)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(body)

	var best *banker.Banker
	for i := range candidates {
		b := &candidates[i]
		if !keywordMatch(lower, b.RoutingKeywords) {
			continue
		}
		switch {
		case best == nil:
			best = b
		case b.Priority > best.Priority:
			best = b
		case b.Priority == best.Priority && b.CreatedAt.Before(best.CreatedAt):
			best = b
		}
	}
	return best, nil
}

func keywordMatch(lowerBody string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lowerBody, kw) {
			return true
		}
	}
	return false
}

// parseLabeledFields extracts "Label: value" lines, keyed by the lowercased
// label. The value is everything after the first colon.
func parseLabeledFields(body string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if label != "" {
			fields[label] = value
		}
	}
	return fields
}

// normalizeAgentNumber strips everything but digits (a leading + is
// dropped) and prefixes the Singapore country code when absent.
func normalizeAgentNumber(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, "65") {
		digits = "65" + digits
	}
	return digits
}
