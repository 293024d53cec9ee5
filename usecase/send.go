package usecase

import (
	"context"
	"strings"

	"github.com/keyquest/wa-gateway/behavior"
	domainSend "github.com/keyquest/wa-gateway/domains/send"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/keyquest/wa-gateway/pkg/utils"
	"github.com/keyquest/wa-gateway/validations"
)

type serviceSend struct {
	sender   domainSend.Sender
	behavior *behavior.Manager
	clk      clock.Clock
}

func NewSendService(sender domainSend.Sender, behaviorMgr *behavior.Manager, clk clock.Clock) domainSend.ISendUsecase {
	return &serviceSend{sender: sender, behavior: behaviorMgr, clk: clk}
}

// SendMessage resolves the target chat, checks the rate windows and blocks
// until the queued send terminally succeeds or fails. Critical priority
// skips the window check so operator notices always go out.
func (service serviceSend) SendMessage(ctx context.Context, request domainSend.MessageRequest) (*domainSend.MessageResponse, error) {
	if err := validations.ValidateSendMessage(ctx, request); err != nil {
		return nil, err
	}

	chatID, err := resolveChatID(request)
	if err != nil {
		return nil, err
	}

	priority := domainSend.ParsePriority(request.Priority)
	if priority != domainSend.PriorityCritical {
		if ok, reason := service.behavior.TryAdmit(service.clk.Now()); !ok {
			return nil, pkgError.RateLimitedError("message rejected: " + string(reason))
		}
	}

	req := domainSend.Request{
		TargetChatID: chatID,
		Text:         request.Message,
		Priority:     priority,
		Ctx:          ctx,
	}
	if request.ImageURL != "" {
		req.Media = &domainSend.Media{Kind: "image", URL: request.ImageURL, Caption: request.Message}
		req.Text = ""
	}

	res := <-service.sender.Enqueue(req)
	if res.Err != nil {
		return nil, res.Err
	}
	return &domainSend.MessageResponse{MessageID: res.MessageID, ChatID: chatID}, nil
}

func resolveChatID(request domainSend.MessageRequest) (string, error) {
	switch {
	case request.JID != "":
		return request.JID, nil
	case request.GroupID != "":
		groupID := request.GroupID
		if !strings.HasSuffix(groupID, "@g.us") {
			groupID += "@g.us"
		}
		return groupID, nil
	case request.Number != "":
		chatID := utils.WhatsAppID(request.Number)
		if chatID == "" {
			return "", pkgError.ValidationError("number does not contain a valid phone")
		}
		return chatID, nil
	}
	return "", pkgError.ValidationError("no target provided")
}
