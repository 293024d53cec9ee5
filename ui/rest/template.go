package rest

import (
	"github.com/gofiber/fiber/v2"
	domainTemplate "github.com/keyquest/wa-gateway/domains/template"
	"github.com/keyquest/wa-gateway/pkg/utils"
)

type Template struct {
	Service domainTemplate.ITemplateUsecase
}

func InitRestTemplate(app fiber.Router, service domainTemplate.ITemplateUsecase) Template {
	rest := Template{Service: service}
	app.Get("/api/templates", rest.List)
	app.Post("/api/templates", rest.Create)
	app.Get("/api/templates/categories", rest.ListCategories)
	app.Get("/api/templates/:id", rest.Get)
	app.Put("/api/templates/:id", rest.Update)
	app.Delete("/api/templates/:id", rest.Delete)
	app.Post("/api/templates/:id/duplicate", rest.Duplicate)
	app.Post("/api/templates/:id/preview", rest.Preview)
	return rest
}

func (controller *Template) List(c *fiber.Ctx) error {
	templates, err := controller.Service.List(c.UserContext(), c.Query("category"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    templates,
	})
}

func (controller *Template) Create(c *fiber.Ctx) error {
	var request domainTemplate.CreateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	t, err := controller.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Success: true,
		Data:    t,
	})
}

func (controller *Template) ListCategories(c *fiber.Ctx) error {
	categories, err := controller.Service.ListCategories(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    categories,
	})
}

func (controller *Template) Get(c *fiber.Ctx) error {
	t, err := controller.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    t,
	})
}

func (controller *Template) Update(c *fiber.Ctx) error {
	var request domainTemplate.UpdateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.ID = c.Params("id")

	t, err := controller.Service.Update(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    t,
	})
}

func (controller *Template) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
	})
}

func (controller *Template) Duplicate(c *fiber.Ctx) error {
	var request domainTemplate.DuplicateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.ID = c.Params("id")

	t, err := controller.Service.Duplicate(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Success: true,
		Data:    t,
	})
}

func (controller *Template) Preview(c *fiber.Ctx) error {
	var body struct {
		Variables map[string]string `json:"variables"`
	}
	err := c.BodyParser(&body)
	utils.PanicIfNeeded(err)

	t, err := controller.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data: fiber.Map{
			"rendered": controller.Service.Render(t.Content, body.Variables),
		},
	})
}
