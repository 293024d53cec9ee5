package usecase

import (
	"context"

	domainWorkflow "github.com/keyquest/wa-gateway/domains/workflow"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	"github.com/keyquest/wa-gateway/validations"
)

type serviceWorkflow struct {
	repo domainWorkflow.IWorkflowRepository
}

func NewWorkflowService(repo domainWorkflow.IWorkflowRepository) domainWorkflow.IWorkflowUsecase {
	return &serviceWorkflow{repo: repo}
}

func (service serviceWorkflow) Create(ctx context.Context, request domainWorkflow.CreateRequest) (*domainWorkflow.Workflow, error) {
	if err := validations.ValidateCreateWorkflow(ctx, request); err != nil {
		return nil, err
	}

	isActive := true
	if request.IsActive != nil {
		isActive = *request.IsActive
	}

	w := &domainWorkflow.Workflow{
		Name:          request.Name,
		TriggerType:   request.TriggerType,
		TriggerConfig: request.TriggerConfig,
		IsActive:      isActive,
	}
	if err := service.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (service serviceWorkflow) Get(ctx context.Context, id string) (*domainWorkflow.Workflow, error) {
	w, err := service.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, pkgError.NotFoundError("workflow not found")
	}
	return w, nil
}

func (service serviceWorkflow) List(ctx context.Context) ([]domainWorkflow.Workflow, error) {
	return service.repo.List(ctx)
}

func (service serviceWorkflow) Update(ctx context.Context, request domainWorkflow.UpdateRequest) (*domainWorkflow.Workflow, error) {
	w, err := service.Get(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	if request.Name != nil {
		w.Name = *request.Name
	}
	if request.TriggerType != nil {
		w.TriggerType = *request.TriggerType
	}
	if request.TriggerConfig != nil {
		w.TriggerConfig = *request.TriggerConfig
	}
	if request.IsActive != nil {
		w.IsActive = *request.IsActive
	}

	if err := service.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (service serviceWorkflow) Delete(ctx context.Context, id string) error {
	if _, err := service.Get(ctx, id); err != nil {
		return err
	}
	return service.repo.Delete(ctx, id)
}

func (service serviceWorkflow) Toggle(ctx context.Context, id string, isActive bool) (*domainWorkflow.Workflow, error) {
	return service.Update(ctx, domainWorkflow.UpdateRequest{ID: id, IsActive: &isActive})
}
