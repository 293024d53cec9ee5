package rest

import (
	"github.com/gofiber/fiber/v2"
	domainContact "github.com/keyquest/wa-gateway/domains/contact"
	"github.com/keyquest/wa-gateway/pkg/utils"
)

type Contact struct {
	Service domainContact.IContactUsecase
}

func InitRestContact(app fiber.Router, service domainContact.IContactUsecase) Contact {
	rest := Contact{Service: service}
	app.Get("/api/contacts", rest.ListLists)
	app.Post("/api/contacts", rest.CreateList)
	app.Get("/api/contacts/:id", rest.GetList)
	app.Delete("/api/contacts/:id", rest.DeleteList)
	app.Post("/api/contacts/:id/import", rest.Import)
	app.Get("/api/contacts/:id/contacts", rest.ListContacts)
	app.Put("/api/broadcast-contacts/:id", rest.UpdateContact)
	app.Delete("/api/broadcast-contacts/:id", rest.DeleteContact)
	return rest
}

func (controller *Contact) ListLists(c *fiber.Ctx) error {
	lists, err := controller.Service.ListLists(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    lists,
	})
}

func (controller *Contact) CreateList(c *fiber.Ctx) error {
	var request domainContact.CreateListRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	list, err := controller.Service.CreateList(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Success: true,
		Data:    list,
	})
}

func (controller *Contact) GetList(c *fiber.Ctx) error {
	list, err := controller.Service.GetList(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    list,
	})
}

func (controller *Contact) DeleteList(c *fiber.Ctx) error {
	err := controller.Service.DeleteList(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
	})
}

func (controller *Contact) Import(c *fiber.Ctx) error {
	var request domainContact.ImportRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.ListID = c.Params("id")

	summary, err := controller.Service.Import(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    summary,
	})
}

func (controller *Contact) ListContacts(c *fiber.Ctx) error {
	contacts, err := controller.Service.ListContacts(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    contacts,
	})
}

func (controller *Contact) UpdateContact(c *fiber.Ctx) error {
	var contact domainContact.Contact
	err := c.BodyParser(&contact)
	utils.PanicIfNeeded(err)
	contact.ID = c.Params("id")

	updated, err := controller.Service.UpdateContact(c.UserContext(), contact)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    updated,
	})
}

func (controller *Contact) DeleteContact(c *fiber.Ctx) error {
	err := controller.Service.DeleteContact(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
	})
}
