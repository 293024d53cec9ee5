package rest

import (
	"github.com/gofiber/fiber/v2"
	domainBanker "github.com/keyquest/wa-gateway/domains/banker"
	"github.com/keyquest/wa-gateway/pkg/utils"
)

type Banker struct {
	Service domainBanker.IBankerUsecase
}

func InitRestBanker(app fiber.Router, service domainBanker.IBankerUsecase) Banker {
	rest := Banker{Service: service}
	app.Get("/api/bankers", rest.List)
	app.Post("/api/bankers", rest.Create)
	app.Get("/api/bankers/bank-names", rest.ListBankNames)
	app.Get("/api/bankers/:id", rest.Get)
	app.Put("/api/bankers/:id", rest.Update)
	app.Delete("/api/bankers/:id", rest.Delete)
	app.Post("/api/bankers/:id/toggle", rest.Toggle)
	return rest
}

func (controller *Banker) List(c *fiber.Ctx) error {
	bankers, err := controller.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    bankers,
	})
}

func (controller *Banker) Create(c *fiber.Ctx) error {
	var request domainBanker.CreateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	b, err := controller.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Success: true,
		Data:    b,
	})
}

func (controller *Banker) ListBankNames(c *fiber.Ctx) error {
	names, err := controller.Service.ListBankNames(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    names,
	})
}

func (controller *Banker) Get(c *fiber.Ctx) error {
	b, err := controller.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    b,
	})
}

func (controller *Banker) Update(c *fiber.Ctx) error {
	var request domainBanker.UpdateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.ID = c.Params("id")

	b, err := controller.Service.Update(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    b,
	})
}

func (controller *Banker) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
	})
}

func (controller *Banker) Toggle(c *fiber.Ctx) error {
	var body struct {
		IsActive bool `json:"is_active"`
	}
	err := c.BodyParser(&body)
	utils.PanicIfNeeded(err)

	b, err := controller.Service.Toggle(c.UserContext(), c.Params("id"), body.IsActive)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    b,
	})
}
