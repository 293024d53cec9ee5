package validations

import (
	"context"

	"github.com/go-ozzo/ozzo-validation/v4/is"

	domainBanker "github.com/keyquest/wa-gateway/domains/banker"
	domainBroadcast "github.com/keyquest/wa-gateway/domains/broadcast"
	domainContact "github.com/keyquest/wa-gateway/domains/contact"
	domainSend "github.com/keyquest/wa-gateway/domains/send"
	domainTemplate "github.com/keyquest/wa-gateway/domains/template"
	domainValuation "github.com/keyquest/wa-gateway/domains/valuation"
	domainWorkflow "github.com/keyquest/wa-gateway/domains/workflow"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateCreateWorkflow(ctx context.Context, request domainWorkflow.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required),
		validation.Field(&request.TriggerType, validation.Required, validation.In("keyword", "schedule", "manual", "webhook")),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateCreateTemplate(ctx context.Context, request domainTemplate.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required),
		validation.Field(&request.Content, validation.Required),
		validation.Field(&request.ImageURL, is.URL),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateDuplicateTemplate(ctx context.Context, request domainTemplate.DuplicateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ID, validation.Required),
		validation.Field(&request.NewName, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateCreateList(ctx context.Context, request domainContact.CreateListRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateImportContacts(ctx context.Context, request domainContact.ImportRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ListID, validation.Required),
		validation.Field(&request.Contacts, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateCreateBanker(ctx context.Context, request domainBanker.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required),
		validation.Field(&request.WhatsappGroupID, validation.Required),
		validation.Field(&request.RoutingKeywords, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateCreateValuation(ctx context.Context, request domainValuation.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Address, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateUpdateValuation(ctx context.Context, request domainValuation.UpdateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ID, validation.Required),
		validation.Field(&request.Status, validation.In(
			domainValuation.StatusPending,
			domainValuation.StatusForwarded,
			domainValuation.StatusRepliedByBanker,
			domainValuation.StatusCompleted,
		)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateStartBroadcast(ctx context.Context, request domainBroadcast.StartRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Contacts, validation.Required),
		validation.Field(&request.Message, validation.Required),
		validation.Field(&request.DelayMode, validation.In("", domainBroadcast.DelayMode1to2, domainBroadcast.DelayMode2to3)),
		validation.Field(&request.ImageURL, is.URL),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateSendMessage(ctx context.Context, request domainSend.MessageRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Message, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if request.Number == "" && request.GroupID == "" && request.JID == "" {
		return pkgError.ValidationError("one of number, groupId or jid is required")
	}

	return nil
}
