package rest

import (
	"github.com/gofiber/fiber/v2"
	domainWorkflow "github.com/keyquest/wa-gateway/domains/workflow"
	"github.com/keyquest/wa-gateway/pkg/utils"
)

type Workflow struct {
	Service domainWorkflow.IWorkflowUsecase
}

func InitRestWorkflow(app fiber.Router, service domainWorkflow.IWorkflowUsecase) Workflow {
	rest := Workflow{Service: service}
	app.Get("/api/workflows", rest.List)
	app.Post("/api/workflows", rest.Create)
	app.Get("/api/workflows/:id", rest.Get)
	app.Put("/api/workflows/:id", rest.Update)
	app.Delete("/api/workflows/:id", rest.Delete)
	app.Post("/api/workflows/:id/toggle", rest.Toggle)
	return rest
}

func (controller *Workflow) List(c *fiber.Ctx) error {
	workflows, err := controller.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    workflows,
	})
}

func (controller *Workflow) Create(c *fiber.Ctx) error {
	var request domainWorkflow.CreateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	w, err := controller.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Success: true,
		Data:    w,
	})
}

func (controller *Workflow) Get(c *fiber.Ctx) error {
	w, err := controller.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    w,
	})
}

func (controller *Workflow) Update(c *fiber.Ctx) error {
	var request domainWorkflow.UpdateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.ID = c.Params("id")

	w, err := controller.Service.Update(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    w,
	})
}

func (controller *Workflow) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
	})
}

func (controller *Workflow) Toggle(c *fiber.Ctx) error {
	var body struct {
		IsActive bool `json:"is_active"`
	}
	err := c.BodyParser(&body)
	utils.PanicIfNeeded(err)

	w, err := controller.Service.Toggle(c.UserContext(), c.Params("id"), body.IsActive)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    w,
	})
}
