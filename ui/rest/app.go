package rest

import (
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	domainApp "github.com/keyquest/wa-gateway/domains/app"
	domainSend "github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/pkg/utils"
)

type App struct {
	Service domainApp.IAppUsecase
	Send    domainSend.ISendUsecase
}

func InitRestApp(app fiber.Router, service domainApp.IAppUsecase, sendService domainSend.ISendUsecase) App {
	rest := App{Service: service, Send: sendService}

	// Health stays 200 whatever the session is doing, so the platform's
	// liveness probe never recycles the container during a QR pairing.
	app.Get("/health", rest.Health)
	app.Get("/api/status", rest.Status)
	app.Get("/qr-code", rest.QR)
	app.Post("/send-message", rest.SendMessage)
	app.Post("/logout", rest.Logout)
	return rest
}

func (controller *App) Health(c *fiber.Ctx) error {
	state := "UNKNOWN"
	uptime := int64(0)
	if status, err := controller.Service.Status(c.UserContext()); err == nil {
		state = string(status.Status)
		uptime = status.UptimeMinutes
	}

	store := "ERROR"
	if controller.Service.StoreHealthy(c.UserContext()) {
		store = "CONNECTED"
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"server":    "running",
		"whatsapp":  fiber.Map{"state": state},
		"store":     store,
		"uptime":    uptime,
		"memory":    humanize.IBytes(mem.Alloc),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (controller *App) Status(c *fiber.Ctx) error {
	status, err := controller.Service.Status(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    status,
	})
}

func (controller *App) QR(c *fiber.Ctx) error {
	qr, err := controller.Service.QR(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    qr,
	})
}

func (controller *App) SendMessage(c *fiber.Ctx) error {
	var request domainSend.MessageRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	response, err := controller.Send.SendMessage(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    response,
	})
}

func (controller *App) Logout(c *fiber.Ctx) error {
	details, err := controller.Service.Logout(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    details,
	})
}
