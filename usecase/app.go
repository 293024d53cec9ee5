package usecase

import (
	"context"
	"time"

	"github.com/keyquest/wa-gateway/behavior"
	"github.com/keyquest/wa-gateway/core/config"
	domainApp "github.com/keyquest/wa-gateway/domains/app"
	"github.com/keyquest/wa-gateway/domains/session"
	"github.com/keyquest/wa-gateway/infrastructure/whatsapp"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/keyquest/wa-gateway/pkg/sendqueue"
	"gorm.io/gorm"
)

// A QR older than this is probably no longer scannable.
const qrStaleAfter = 25 * time.Second

type serviceApp struct {
	supervisor *whatsapp.Supervisor
	behavior   *behavior.Manager
	queue      *sendqueue.Queue
	db         *gorm.DB
	clk        clock.Clock
	startedAt  time.Time
}

func NewAppService(supervisor *whatsapp.Supervisor, behaviorMgr *behavior.Manager, queue *sendqueue.Queue, db *gorm.DB, clk clock.Clock) domainApp.IAppUsecase {
	return &serviceApp{
		supervisor: supervisor,
		behavior:   behaviorMgr,
		queue:      queue,
		db:         db,
		clk:        clk,
		startedAt:  clk.Now(),
	}
}

func (service serviceApp) Status(ctx context.Context) (*domainApp.StatusResponse, error) {
	now := service.clk.Now()
	snap := service.supervisor.Snapshot()

	return &domainApp.StatusResponse{
		Status:        snap.State,
		SessionID:     config.Global.App.SessionID,
		Version:       config.Global.App.Version,
		UptimeMinutes: int64(now.Sub(service.startedAt).Minutes()),
		HumanBehavior: service.behavior.Snapshot(now),
		Timestamp:     now.UTC().Format(time.RFC3339),
		Ready:         snap.State == session.StateReady,
		ServerID:      config.Global.App.ServerID,
		PendingSends:  service.queue.Pending(),
		QRAvailable:   snap.QRPng != "",
	}, nil
}

func (service serviceApp) QR(ctx context.Context) (*domainApp.QRResponse, error) {
	now := service.clk.Now()
	snap := service.supervisor.Snapshot()
	resp := &domainApp.QRResponse{
		IsStale:       snap.QRStale(now, qrStaleAfter),
		Authenticated: snap.State == session.StateReady,
		State:         string(snap.State),
		Timestamp:     now.UTC().Format(time.RFC3339),
	}
	if snap.QRPng != "" {
		qr := snap.QRPng
		resp.QR = &qr
	}
	if snap.QRGeneratedAt != nil {
		at := snap.QRGeneratedAt.UTC().Format(time.RFC3339)
		resp.GeneratedAt = &at
	}
	return resp, nil
}

func (service serviceApp) Logout(ctx context.Context) (*session.LogoutDetails, error) {
	details := service.supervisor.Logout(ctx)
	return &details, nil
}

func (service serviceApp) StoreHealthy(ctx context.Context) bool {
	if service.db == nil {
		return false
	}
	sqlDB, err := service.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}
