package handlers

import (
	"context"
	"fmt"

	"github.com/keyquest/wa-gateway/domains/banker"
	"github.com/keyquest/wa-gateway/domains/message"
	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/domains/valuation"
	"github.com/keyquest/wa-gateway/engine"
)

// ValuationReplyHandler forwards a banker's quoted reply back to the
// requester group and notifies the agent privately.
type ValuationReplyHandler struct {
	Bankers    banker.IBankerRepository
	Valuations valuation.IValuationRepository
}

func (h *ValuationReplyHandler) Handle(ctx context.Context, env *engine.Env, msg message.Message) error {
	if msg.QuotedID == "" {
		return fmt.Errorf("reply without quoted message")
	}

	row, err := h.Valuations.GetByForwardMessageID(ctx, msg.QuotedID, msg.ChatID)
	if err != nil {
		return fmt.Errorf("lookup valuation request: %w", err)
	}
	if row == nil {
		// A quote of something that is not one of our forwards; nothing to do.
		return fmt.Errorf("no valuation request matches quoted message %s", msg.QuotedID)
	}

	now := env.Clock.Now().UTC()
	row.BankerReplyMessageID = msg.WaMessageID
	row.BankerReplyText = msg.Body
	row.BankerRepliedAt = &now
	row.Status = valuation.StatusRepliedByBanker
	if err := h.Valuations.Update(ctx, row); err != nil {
		return fmt.Errorf("persist banker reply: %w", err)
	}

	bankName := ""
	if b, err := h.Bankers.GetByID(ctx, row.BankerID); err == nil && b != nil {
		bankName = b.BankName
	}

	details := fmt.Sprintf("Address: %s\nSize: %s\nAsking: %s\nValuation: %s",
		row.Address, row.Size, row.Asking, row.BankerReplyText)
	groupBody := fmt.Sprintf("From Banker: %s - %s\n\n%s", bankName, row.BankerName, details)

	// Group reply and agent notification are independent: neither rolls the
	// other back, and every id that succeeds is persisted.
	var groupErr, agentErr error

	groupRes := <-env.Sender.Enqueue(send.Request{
		TargetChatID: row.RequesterGroupID,
		Text:         groupBody,
		Priority:     send.PriorityHigh,
		Ctx:          ctx,
	})
	if groupRes.Err != nil {
		groupErr = fmt.Errorf("reply to requester group: %w", groupRes.Err)
	} else {
		row.FinalReplyMessageID = groupRes.MessageID
		if err := h.Valuations.Update(ctx, row); err != nil {
			env.Log.WithError(err).Warn("[VALUATION] Failed to persist final reply id")
		}
	}

	if row.AgentWhatsappID != "" {
		agentRes := <-env.Sender.Enqueue(send.Request{
			TargetChatID: row.AgentWhatsappID,
			Text:         details,
			Priority:     send.PriorityHigh,
			Ctx:          ctx,
		})
		if agentRes.Err != nil {
			agentErr = fmt.Errorf("notify agent: %w", agentRes.Err)
		} else {
			row.AgentNotificationMessageID = agentRes.MessageID
		}
	}

	if groupErr == nil && agentErr == nil {
		completedAt := env.Clock.Now().UTC()
		row.Status = valuation.StatusCompleted
		row.CompletedAt = &completedAt
	}
	if err := h.Valuations.Update(ctx, row); err != nil {
		env.Log.WithError(err).Warn("[VALUATION] Failed to persist completion")
	}

	if groupErr != nil {
		return groupErr
	}
	return agentErr
}
