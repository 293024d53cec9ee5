package usecase

import (
	"context"

	domainContact "github.com/keyquest/wa-gateway/domains/contact"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	"github.com/keyquest/wa-gateway/pkg/utils"
	"github.com/keyquest/wa-gateway/validations"
	"github.com/sirupsen/logrus"
)

type serviceContact struct {
	repo domainContact.IContactRepository
}

func NewContactService(repo domainContact.IContactRepository) domainContact.IContactUsecase {
	return &serviceContact{repo: repo}
}

func (service serviceContact) CreateList(ctx context.Context, request domainContact.CreateListRequest) (*domainContact.List, error) {
	if err := validations.ValidateCreateList(ctx, request); err != nil {
		return nil, err
	}

	l := &domainContact.List{
		Name:        request.Name,
		Description: request.Description,
		Source:      request.Source,
	}
	if err := service.repo.CreateList(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (service serviceContact) GetList(ctx context.Context, id string) (*domainContact.List, error) {
	l, err := service.repo.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, pkgError.NotFoundError("contact list not found")
	}
	return l, nil
}

func (service serviceContact) ListLists(ctx context.Context) ([]domainContact.List, error) {
	return service.repo.ListLists(ctx)
}

func (service serviceContact) DeleteList(ctx context.Context, id string) error {
	if _, err := service.GetList(ctx, id); err != nil {
		return err
	}
	return service.repo.DeleteList(ctx, id)
}

// Import normalizes every phone, rejects rows that do not normalize to a
// usable number and drops duplicates within the list silently.
func (service serviceContact) Import(ctx context.Context, request domainContact.ImportRequest) (*domainContact.ImportSummary, error) {
	if err := validations.ValidateImportContacts(ctx, request); err != nil {
		return nil, err
	}
	if _, err := service.GetList(ctx, request.ListID); err != nil {
		return nil, err
	}

	summary := &domainContact.ImportSummary{}
	for _, row := range request.Contacts {
		phone := utils.NormalizePhone(row.Phone)
		if len(phone) < 8 {
			summary.Rejected++
			continue
		}

		inserted, err := service.repo.CreateContact(ctx, &domainContact.Contact{
			ListID:   request.ListID,
			Name:     row.Name,
			Phone:    phone,
			Email:    row.Email,
			Tier:     row.Tier,
			IsActive: true,
		})
		if err != nil {
			return nil, err
		}
		if inserted {
			summary.Imported++
		} else {
			summary.Skipped++
		}
	}

	logrus.Infof("[CONTACTS] Import into %s: %d imported, %d skipped, %d rejected",
		request.ListID, summary.Imported, summary.Skipped, summary.Rejected)
	return summary, nil
}

func (service serviceContact) ListContacts(ctx context.Context, listID string) ([]domainContact.Contact, error) {
	return service.repo.ListContacts(ctx, listID)
}

func (service serviceContact) UpdateContact(ctx context.Context, c domainContact.Contact) (*domainContact.Contact, error) {
	existing, err := service.repo.GetContact(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, pkgError.NotFoundError("contact not found")
	}

	c.ListID = existing.ListID
	c.Phone = utils.NormalizePhone(c.Phone)
	if err := service.repo.UpdateContact(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (service serviceContact) DeleteContact(ctx context.Context, id string) error {
	existing, err := service.repo.GetContact(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return pkgError.NotFoundError("contact not found")
	}
	return service.repo.DeleteContact(ctx, id)
}
