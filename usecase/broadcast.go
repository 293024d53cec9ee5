package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/keyquest/wa-gateway/broadcast"
	domainBroadcast "github.com/keyquest/wa-gateway/domains/broadcast"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/keyquest/wa-gateway/pkg/utils"
	"github.com/keyquest/wa-gateway/validations"
	"github.com/sirupsen/logrus"
)

type serviceBroadcast struct {
	repo     domainBroadcast.IBroadcastRepository
	executor *broadcast.Executor
	clk      clock.Clock
}

func NewBroadcastService(repo domainBroadcast.IBroadcastRepository, executor *broadcast.Executor, clk clock.Clock) domainBroadcast.IBroadcastUsecase {
	return &serviceBroadcast{repo: repo, executor: executor, clk: clk}
}

// Start preflights synchronously: the execution row and per-contact message
// rows are persisted before the call returns, then the async run loop takes
// over. A retried broadcast id returns the original execution untouched.
func (service serviceBroadcast) Start(ctx context.Context, request domainBroadcast.StartRequest) (*domainBroadcast.StartResponse, error) {
	if err := validations.ValidateStartBroadcast(ctx, request); err != nil {
		return nil, err
	}

	delayMode := request.DelayMode
	if delayMode == "" {
		delayMode = domainBroadcast.DelayMode1to2
	}

	exec := &domainBroadcast.Execution{
		ID:                  uuid.NewString(),
		BroadcastID:         fmt.Sprintf("broadcast_%s", utils.RandToken(8)),
		Status:              domainBroadcast.StatusRunning,
		TotalContacts:       len(request.Contacts),
		MessageContent:      request.Message,
		ImageURL:            request.ImageURL,
		DelayMode:           delayMode,
		NotificationContact: request.NotificationContact,
		StartedAt:           service.clk.Now().UTC(),
	}
	if err := service.repo.CreateExecution(ctx, exec); err != nil {
		return nil, err
	}

	msgs := make([]domainBroadcast.Message, 0, len(request.Contacts))
	for i, c := range request.Contacts {
		msgs = append(msgs, domainBroadcast.Message{
			ID:             uuid.NewString(),
			ExecutionID:    exec.ID,
			ContactID:      c.ID,
			RecipientName:  c.Name,
			RecipientPhone: utils.NormalizePhone(c.Phone),
			SendOrder:      i + 1,
			Status:         domainBroadcast.MessagePending,
		})
	}
	if err := service.repo.BulkCreateMessages(ctx, msgs); err != nil {
		return nil, err
	}

	service.executor.Launch(exec)
	logrus.Infof("[BROADCAST] %s started: %d contacts, delay %s", exec.BroadcastID, exec.TotalContacts, delayMode)

	return &domainBroadcast.StartResponse{
		BroadcastID: exec.BroadcastID,
		ExecutionID: exec.ID,
		Total:       exec.TotalContacts,
		DelayMode:   delayMode,
	}, nil
}

func (service serviceBroadcast) Status(ctx context.Context, idOrBroadcastID string) (*domainBroadcast.StatusReport, error) {
	exec, err := service.repo.GetExecution(ctx, idOrBroadcastID)
	if err != nil {
		return nil, err
	}
	if exec == nil {
		return nil, pkgError.NotFoundError("broadcast execution not found")
	}

	msgs, err := service.repo.ListMessages(ctx, exec.ID)
	if err != nil {
		return nil, err
	}

	report := &domainBroadcast.StatusReport{
		Execution: *exec,
		Messages:  msgs,
		Summary: map[string]any{
			"progress_pct": progressPct(exec),
			"sent":         exec.SentCount,
			"failed":       exec.FailedCount,
			"remaining":    exec.TotalContacts - exec.CurrentIndex,
			"running":      service.executor.Running(exec.ID),
		},
	}
	return report, nil
}

func (service serviceBroadcast) History(ctx context.Context, status string, limit int) ([]domainBroadcast.Execution, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return service.repo.ListExecutions(ctx, status, limit)
}

func (service serviceBroadcast) Cancel(ctx context.Context, idOrBroadcastID string) error {
	exec, err := service.repo.GetExecution(ctx, idOrBroadcastID)
	if err != nil {
		return err
	}
	if exec == nil {
		return pkgError.NotFoundError("broadcast execution not found")
	}
	if exec.Status != domainBroadcast.StatusRunning {
		return pkgError.ValidationError(fmt.Sprintf("cannot cancel broadcast in status %s", exec.Status))
	}

	if service.executor.Cancel(exec.ID) {
		return nil
	}

	// No live run loop (for example after a restart); close the row directly.
	now := service.clk.Now().UTC()
	exec.Status = domainBroadcast.StatusCancelled
	exec.CompletedAt = &now
	return service.repo.UpdateExecution(ctx, exec)
}

func progressPct(exec *domainBroadcast.Execution) int {
	if exec.TotalContacts == 0 {
		return 100
	}
	return exec.CurrentIndex * 100 / exec.TotalContacts
}
