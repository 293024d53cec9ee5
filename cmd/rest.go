package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/keyquest/wa-gateway/core/config"
	"github.com/keyquest/wa-gateway/ui/rest"
	"github.com/keyquest/wa-gateway/ui/rest/middleware"
	"github.com/keyquest/wa-gateway/ui/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Run the gateway with its REST control plane",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	cfg := config.Global

	app := fiber.New(fiber.Config{
		AppName:   "KeyQuest WA Gateway " + cfg.App.Version,
		BodyLimit: 10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"success": false, "error": err.Error()})
		},
	})

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.Recovery())
	app.Use(helmet.New(helmet.Config{
		ContentSecurityPolicy: "",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        200,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/ws" || fiberws.IsWebSocketUpgrade(c)
		},
	}))
	if cfg.App.Debug {
		app.Use(fiberLogger.New())
	}

	// WS routes go first: an Upgrade request to / must reach the hub before
	// the static handler serves index.html.
	if vkClient != nil {
		websocket.SetValkeyClient(vkClient, config.Global.App.ServerID)
	}
	websocket.RegisterRoutes(app, appUsecase)
	go websocket.RunHub(bus)

	app.Static("/statics", cfg.Paths.Statics)
	app.Static("/", cfg.Paths.Statics)

	rest.InitRestApp(app, appUsecase, sendUsecase)
	rest.InitRestBroadcast(app, broadcastUsecase)
	rest.InitRestWorkflow(app, workflowUsecase)
	rest.InitRestTemplate(app, templateUsecase)
	rest.InitRestContact(app, contactUsecase)
	rest.InitRestBanker(app, bankerUsecase)
	rest.InitRestValuation(app, valuationUsecase)
	rest.InitRestUpload(app, ikClient)

	// Start the pipeline before accepting traffic so the dashboard sees
	// live session state from the first request.
	supervisor.Start()
	queue.Start()
	receiver.Start()

	go func() {
		quitSignal := make(chan os.Signal, 1)
		signal.Notify(quitSignal, syscall.SIGINT, syscall.SIGTERM)
		<-quitSignal

		logrus.Info("[APP] Shutdown signal received, draining...")
		if err := app.Shutdown(); err != nil {
			logrus.WithError(err).Error("[APP] HTTP shutdown failed")
		}
		StopApp()
		os.Exit(0)
	}()

	if cfg.App.BaseUrl != "" {
		go selfPing(cfg.App.BaseUrl)
	}

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Fatalln("Failed to start server:", err)
	}
}

// selfPing keeps free-tier hosts from idling the dyno out while a pairing
// or a long broadcast is in flight.
func selfPing(baseURL string) {
	url := fmt.Sprintf("%s/health", baseURL)
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		status, _, err := fasthttp.Get(nil, url)
		if err != nil {
			logrus.WithError(err).Debug("[APP] Self-ping failed")
			continue
		}
		if status != fasthttp.StatusOK {
			logrus.Debugf("[APP] Self-ping returned %d", status)
		}
	}
}
