package rest

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	domainValuation "github.com/keyquest/wa-gateway/domains/valuation"
	"github.com/keyquest/wa-gateway/pkg/utils"
)

type Valuation struct {
	Service domainValuation.IValuationUsecase
}

func InitRestValuation(app fiber.Router, service domainValuation.IValuationUsecase) Valuation {
	rest := Valuation{Service: service}
	app.Get("/api/valuations", rest.List)
	app.Post("/api/valuations", rest.Create)
	app.Get("/api/valuations/:id", rest.Get)
	app.Put("/api/valuations/:id", rest.Update)
	app.Delete("/api/valuations/:id", rest.Delete)
	return rest
}

func (controller *Valuation) Create(c *fiber.Ctx) error {
	var request domainValuation.CreateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	v, err := controller.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Success: true,
		Data:    v,
	})
}

func (controller *Valuation) Update(c *fiber.Ctx) error {
	var request domainValuation.UpdateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.ID = c.Params("id")

	v, err := controller.Service.Update(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    v,
	})
}

func (controller *Valuation) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	valuations, err := controller.Service.List(c.UserContext(), c.Query("status"), limit)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    valuations,
	})
}

func (controller *Valuation) Get(c *fiber.Ctx) error {
	v, err := controller.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    v,
	})
}

func (controller *Valuation) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
	})
}
