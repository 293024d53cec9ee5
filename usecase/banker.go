package usecase

import (
	"context"
	"strings"

	domainBanker "github.com/keyquest/wa-gateway/domains/banker"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	"github.com/keyquest/wa-gateway/validations"
)

type serviceBanker struct {
	repo domainBanker.IBankerRepository
}

func NewBankerService(repo domainBanker.IBankerRepository) domainBanker.IBankerUsecase {
	return &serviceBanker{repo: repo}
}

func (service serviceBanker) Create(ctx context.Context, request domainBanker.CreateRequest) (*domainBanker.Banker, error) {
	if err := validations.ValidateCreateBanker(ctx, request); err != nil {
		return nil, err
	}

	isActive := true
	if request.IsActive != nil {
		isActive = *request.IsActive
	}

	b := &domainBanker.Banker{
		Name:            request.Name,
		DisplayName:     request.DisplayName,
		AgentNumber:     request.AgentNumber,
		BankName:        request.BankName,
		WhatsappGroupID: request.WhatsappGroupID,
		RoutingKeywords: request.RoutingKeywords,
		Priority:        request.Priority,
		IsActive:        isActive,
	}
	if err := service.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (service serviceBanker) Get(ctx context.Context, id string) (*domainBanker.Banker, error) {
	b, err := service.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, pkgError.NotFoundError("banker not found")
	}
	return b, nil
}

func (service serviceBanker) List(ctx context.Context) ([]domainBanker.Banker, error) {
	return service.repo.List(ctx, false)
}

func (service serviceBanker) ListBankNames(ctx context.Context) ([]string, error) {
	return service.repo.ListBankNames(ctx)
}

func (service serviceBanker) Update(ctx context.Context, request domainBanker.UpdateRequest) (*domainBanker.Banker, error) {
	b, err := service.Get(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	if request.Name != nil {
		b.Name = *request.Name
	}
	if request.DisplayName != nil {
		b.DisplayName = *request.DisplayName
	}
	if request.AgentNumber != nil {
		b.AgentNumber = *request.AgentNumber
	}
	if request.BankName != nil {
		b.BankName = *request.BankName
	}
	if request.WhatsappGroupID != nil {
		b.WhatsappGroupID = *request.WhatsappGroupID
	}
	if request.RoutingKeywords != nil {
		b.RoutingKeywords = *request.RoutingKeywords
	}
	if request.Priority != nil {
		b.Priority = *request.Priority
	}
	if request.IsActive != nil {
		b.IsActive = *request.IsActive
	}

	if err := service.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (service serviceBanker) Delete(ctx context.Context, id string) error {
	if _, err := service.Get(ctx, id); err != nil {
		return err
	}
	return service.repo.Delete(ctx, id)
}

func (service serviceBanker) Toggle(ctx context.Context, id string, isActive bool) (*domainBanker.Banker, error) {
	return service.Update(ctx, domainBanker.UpdateRequest{ID: id, IsActive: &isActive})
}

// Route selects the active banker with the highest priority whose routing
// keywords appear in body. Ties break by earliest creation.
func (service serviceBanker) Route(ctx context.Context, body string) (*domainBanker.Banker, error) {
	candidates, err := service.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(body)
	var best *domainBanker.Banker
	for i := range candidates {
		b := &candidates[i]
		if !keywordsMatch(lower, b.RoutingKeywords) {
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

func keywordsMatch(lowerBody string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lowerBody, kw) {
			return true
		}
	}
	return false
}
