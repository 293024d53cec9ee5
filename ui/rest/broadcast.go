package rest

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	domainBroadcast "github.com/keyquest/wa-gateway/domains/broadcast"
	"github.com/keyquest/wa-gateway/pkg/utils"
)

type Broadcast struct {
	Service domainBroadcast.IBroadcastUsecase
}

func InitRestBroadcast(app fiber.Router, service domainBroadcast.IBroadcastUsecase) Broadcast {
	rest := Broadcast{Service: service}
	app.Post("/api/broadcast/interest-rate", rest.Start)
	app.Get("/api/broadcast/status/:id", rest.Status)
	app.Get("/api/broadcast/history", rest.History)
	app.Post("/api/broadcast/cancel/:id", rest.Cancel)
	return rest
}

func (controller *Broadcast) Start(c *fiber.Ctx) error {
	var request domainBroadcast.StartRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	response, err := controller.Service.Start(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    response,
	})
}

func (controller *Broadcast) Status(c *fiber.Ctx) error {
	report, err := controller.Service.Status(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    report,
	})
}

func (controller *Broadcast) History(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	executions, err := controller.Service.History(c.UserContext(), c.Query("status"), limit)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    executions,
	})
}

func (controller *Broadcast) Cancel(c *fiber.Ctx) error {
	err := controller.Service.Cancel(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
	})
}
