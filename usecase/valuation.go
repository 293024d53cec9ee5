package usecase

import (
	"context"

	"github.com/google/uuid"
	domainValuation "github.com/keyquest/wa-gateway/domains/valuation"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/keyquest/wa-gateway/pkg/utils"
	"github.com/keyquest/wa-gateway/validations"
)

type serviceValuation struct {
	repo domainValuation.IValuationRepository
	clk  clock.Clock
}

func NewValuationService(repo domainValuation.IValuationRepository, clk clock.Clock) domainValuation.IValuationUsecase {
	return &serviceValuation{repo: repo, clk: clk}
}

func (service serviceValuation) Create(ctx context.Context, request domainValuation.CreateRequest) (*domainValuation.Request, error) {
	if err := validations.ValidateCreateValuation(ctx, request); err != nil {
		return nil, err
	}

	v := &domainValuation.Request{
		ID:                  uuid.NewString(),
		RequesterGroupID:    request.RequesterGroupID,
		Address:             request.Address,
		Size:                request.Size,
		Asking:              request.Asking,
		SalespersonName:     request.SalespersonName,
		AgentNumberRaw:      request.AgentNumber,
		BankerNameRequested: request.BankerNameRequested,
		Status:              domainValuation.StatusPending,
		CreatedAt:           service.clk.Now().UTC(),
	}
	if request.AgentNumber != "" {
		v.AgentPhoneE164 = utils.NormalizePhone(request.AgentNumber)
		v.AgentWhatsappID = utils.WhatsAppID(request.AgentNumber)
	}
	if err := service.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (service serviceValuation) Get(ctx context.Context, id string) (*domainValuation.Request, error) {
	v, err := service.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, pkgError.NotFoundError("valuation request not found")
	}
	return v, nil
}

func (service serviceValuation) List(ctx context.Context, status string, limit int) ([]domainValuation.Request, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return service.repo.List(ctx, status, limit)
}

func (service serviceValuation) Update(ctx context.Context, request domainValuation.UpdateRequest) (*domainValuation.Request, error) {
	if err := validations.ValidateUpdateValuation(ctx, request); err != nil {
		return nil, err
	}

	v, err := service.Get(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	if request.Address != nil {
		v.Address = *request.Address
	}
	if request.Size != nil {
		v.Size = *request.Size
	}
	if request.Asking != nil {
		v.Asking = *request.Asking
	}
	if request.SalespersonName != nil {
		v.SalespersonName = *request.SalespersonName
	}
	if request.BankerReplyText != nil {
		v.BankerReplyText = *request.BankerReplyText
	}
	if request.Status != nil {
		v.Status = *request.Status
		if v.Status == domainValuation.StatusCompleted && v.CompletedAt == nil {
			now := service.clk.Now().UTC()
			v.CompletedAt = &now
		}
	}

	if err := service.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (service serviceValuation) Delete(ctx context.Context, id string) error {
	if _, err := service.Get(ctx, id); err != nil {
		return err
	}
	return service.repo.Delete(ctx, id)
}
