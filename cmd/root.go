package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/keyquest/wa-gateway/behavior"
	broadcastExec "github.com/keyquest/wa-gateway/broadcast"
	"github.com/keyquest/wa-gateway/core/config"
	"github.com/keyquest/wa-gateway/core/database"
	domainApp "github.com/keyquest/wa-gateway/domains/app"
	domainBanker "github.com/keyquest/wa-gateway/domains/banker"
	domainBroadcast "github.com/keyquest/wa-gateway/domains/broadcast"
	domainContact "github.com/keyquest/wa-gateway/domains/contact"
	domainSend "github.com/keyquest/wa-gateway/domains/send"
	domainTemplate "github.com/keyquest/wa-gateway/domains/template"
	domainValuation "github.com/keyquest/wa-gateway/domains/valuation"
	domainWorkflow "github.com/keyquest/wa-gateway/domains/workflow"
	"github.com/keyquest/wa-gateway/engine"
	"github.com/keyquest/wa-gateway/engine/handlers"
	"github.com/keyquest/wa-gateway/eventbus"
	"github.com/keyquest/wa-gateway/infrastructure/valkey"
	"github.com/keyquest/wa-gateway/infrastructure/whatsapp"
	"github.com/keyquest/wa-gateway/integrations/imagekit"
	"github.com/keyquest/wa-gateway/integrations/webhook"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/keyquest/wa-gateway/pkg/sendqueue"
	"github.com/keyquest/wa-gateway/pkg/utils"
	"github.com/keyquest/wa-gateway/repository"
	"github.com/keyquest/wa-gateway/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	appClock clock.Clock
	bus      *eventbus.Bus

	behaviorMgr *behavior.Manager
	queue       *sendqueue.Queue
	supervisor  *whatsapp.Supervisor
	receiver    *whatsapp.Receiver
	executor    *broadcastExec.Executor
	vkClient    *valkey.Client
	ikClient    *imagekit.Client

	appUsecase       domainApp.IAppUsecase
	sendUsecase      domainSend.ISendUsecase
	workflowUsecase  domainWorkflow.IWorkflowUsecase
	templateUsecase  domainTemplate.ITemplateUsecase
	contactUsecase   domainContact.IContactUsecase
	bankerUsecase    domainBanker.IBankerUsecase
	valuationUsecase domainValuation.IValuationUsecase
	broadcastUsecase domainBroadcast.IBroadcastUsecase
)

var rootCmd = &cobra.Command{
	Use:   "wa-gateway",
	Short: "WhatsApp automation gateway for the KeyQuest mortgage team",
	Long: `Routes valuation requests between agent and banker WhatsApp groups,
forwards rate updates and runs paced interest-rate broadcasts, all behind
an HTTP control plane.`,
}

func init() {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("[CONFIG] Loaded .env file")
	}

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("port", "", "listen port, overrides PORT | example: --port=8080")
	rootCmd.PersistentFlags().Bool("debug", false, "verbose logging --debug=true")
	_ = viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("app_debug", rootCmd.PersistentFlags().Lookup("debug"))

	cobra.OnInitialize(initApp)
}

func initApp() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}

	if flagPort := viper.GetString("port"); flagPort != "" {
		cfg.App.Port = flagPort
	}
	if viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg.App.ServerID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)
	logrus.Infof("[APP] Server %s starting (%s, %s)", cfg.App.ServerID, cfg.App.Version, cfg.App.Environment)

	db, err := database.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("[DB] %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		logrus.Fatalf("[DB] Migration failed: %v", err)
	}

	appClock = clock.NewSystemClock()
	bus = eventbus.NewBus()

	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[VALKEY] Unavailable, continuing single-instance")
			vkClient = nil
		}
	}

	// Repositories
	workflowRepo := repository.NewWorkflowGormRepository(db)
	templateRepo := repository.NewTemplateGormRepository(db)
	contactRepo := repository.NewContactGormRepository(db)
	bankerRepo := repository.NewBankerGormRepository(db)
	valuationRepo := repository.NewValuationGormRepository(db)
	broadcastRepo := repository.NewBroadcastGormRepository(db)

	// Session supervisor and outbound queue
	behaviorMgr = behavior.NewManager(appClock)
	sessionDir := filepath.Join(cfg.Paths.Sessions, cfg.App.SessionID)
	profileDir := filepath.Join(cfg.Paths.Storages, "profiles", cfg.App.SessionID)
	supervisor = whatsapp.NewSupervisor(func() whatsapp.Client {
		return whatsapp.NewMeowClient(cfg.App.SessionID, sessionDir)
	}, appClock, bus, sessionDir, profileDir)

	queue = sendqueue.New(appClock, supervisor, behaviorMgr)
	executor = broadcastExec.NewExecutor(broadcastRepo, queue, supervisor, appClock, bus)

	// Workflow engine and inbound pipeline
	forwarder := webhook.NewForwarder(cfg.Webhook.RateUpdateURL, cfg.Webhook.Secret)
	env := &engine.Env{
		Sender: queue,
		Clock:  appClock,
		Events: bus,
		Log:    logrus.WithField("component", "engine"),
	}
	eng := engine.New(env, workflowRepo)
	eng.Register("valuation_request", &handlers.ValuationRequestHandler{Bankers: bankerRepo, Valuations: valuationRepo})
	eng.Register("valuation_reply", &handlers.ValuationReplyHandler{Bankers: bankerRepo, Valuations: valuationRepo})
	eng.Register("rate_package_update", handlers.NewRateUpdateHandler("rate_package_update", forwarder))
	eng.Register("bank_rates_update", handlers.NewRateUpdateHandler("update_bank_rates", forwarder))
	eng.Register("interest_rate", handlers.NewRateUpdateHandler("interest_rate_update", forwarder))

	receiver = whatsapp.NewReceiver(appClock, behaviorMgr, queue, eng)
	supervisor.SetMessageHandler(receiver.Ingest)

	ikClient = imagekit.NewClient(cfg.ImageKit.PublicKey, cfg.ImageKit.PrivateKey, cfg.ImageKit.URLEndpoint)

	// Usecases
	appUsecase = usecase.NewAppService(supervisor, behaviorMgr, queue, db, appClock)
	sendUsecase = usecase.NewSendService(queue, behaviorMgr, appClock)
	workflowUsecase = usecase.NewWorkflowService(workflowRepo)
	templateUsecase = usecase.NewTemplateService(templateRepo)
	contactUsecase = usecase.NewContactService(contactRepo)
	bankerUsecase = usecase.NewBankerService(bankerRepo)
	valuationUsecase = usecase.NewValuationService(valuationRepo, appClock)
	broadcastUsecase = usecase.NewBroadcastService(broadcastRepo, executor, appClock)
}

// StopApp drains outbound work and tears the session down in order: no new
// sends, flush the queue, then disconnect.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if receiver != nil {
		receiver.Stop()
	}
	if executor != nil {
		executor.Shutdown()
	}
	if queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue.Drain(ctx); err != nil {
			logrus.WithError(err).Warn("[APP] Send queue did not drain cleanly")
		}
	}
	if supervisor != nil {
		supervisor.Shutdown()
	}
	if vkClient != nil {
		vkClient.Close()
	}

	logrus.Info("[APP] Application stopped cleanly.")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
