package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/keyquest/wa-gateway/domains/message"
	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/domains/session"
	"github.com/keyquest/wa-gateway/eventbus"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	reconnectBase      = 1 * time.Second
	reconnectCap       = 60 * time.Second
	reconnectJitterMax = 10 * time.Second

	authFailureRestartMin = 8 * time.Second
	authFailureRestartMax = 15 * time.Second
	logoutRestartDelay    = 3 * time.Second

	watchdogMin = 7 * time.Minute
	watchdogMax = 10 * time.Minute

	memCheckMin      = 6 * time.Minute
	memCheckMax      = 8 * time.Minute
	memSoftThreshold = 350 * 1024 * 1024
	memHardThreshold = 450 * 1024 * 1024

	qrImageSize = 256
)

// Supervisor owns the WhatsApp client lifecycle: QR emission, reconnect
// backoff, watchdog and memory recycling. It is also the stable send/ping
// facade handed to the send queue and the broadcast executor, surviving
// client recycles underneath.
type Supervisor struct {
	factory    ClientFactory
	clk        clock.Clock
	bus        *eventbus.Bus
	sessionDir string
	profileDir string

	mu            sync.Mutex
	client        Client
	state         session.State
	qrRaw         string
	qrPNG         string
	qrGeneratedAt time.Time
	attempt       int

	onMessage func(msg message.Message)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSupervisor(factory ClientFactory, clk clock.Clock, bus *eventbus.Bus, sessionDir, profileDir string) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		factory:    factory,
		clk:        clk,
		bus:        bus,
		sessionDir: sessionDir,
		profileDir: profileDir,
		state:      session.StateNone,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetMessageHandler wires the receive pipeline. Must be called before Start.
func (s *Supervisor) SetMessageHandler(fn func(msg message.Message)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// Start begins the session lifecycle. A second call while the supervisor is
// alive is a no-op.
func (s *Supervisor) Start() {
	s.mu.Lock()
	if s.state != session.StateNone {
		s.mu.Unlock()
		return
	}
	s.state = session.StateStarting
	s.mu.Unlock()

	go s.initClient()
	s.startLoop("watchdog", watchdogMin, watchdogMax, s.watchdogCheck)
	s.startLoop("memory-monitor", memCheckMin, memCheckMax, s.memoryCheck)
}

// initClient creates and initializes a fresh client in the background so
// the HTTP server is never blocked on session bring-up.
func (s *Supervisor) initClient() {
	client := s.factory()
	client.SetHandlers(Handlers{
		OnQR:            s.onQR,
		OnAuthenticated: s.onAuthenticated,
		OnReady:         s.onReady,
		OnAuthFailure:   s.onAuthFailure,
		OnDisconnected:  s.onDisconnected,
		OnMessage:       s.dispatchMessage,
	})

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	if err := client.Initialize(s.ctx); err != nil {
		logrus.WithError(err).Error("[SESSION] Client initialization failed")
		s.onDisconnected(fmt.Sprintf("init failed: %v", err))
	}
}

func (s *Supervisor) dispatchMessage(msg message.Message) {
	s.mu.Lock()
	fn := s.onMessage
	s.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// onQR renders the raw value to a PNG data-URL. Repeated callbacks for the
// same raw value are suppressed.
func (s *Supervisor) onQR(raw string) {
	s.mu.Lock()
	if raw == s.qrRaw {
		s.mu.Unlock()
		return
	}
	png, err := qrcode.Encode(raw, qrcode.Medium, qrImageSize)
	if err != nil {
		s.mu.Unlock()
		logrus.WithError(err).Error("[SESSION] Failed to render QR code")
		return
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	now := s.clk.Now()
	s.qrRaw = raw
	s.qrPNG = dataURL
	s.qrGeneratedAt = now
	s.state = session.StateQR
	s.mu.Unlock()

	logrus.Info("[SESSION] New QR code generated")
	s.bus.Publish(eventbus.Event{
		Type: eventbus.EventQR,
		Payload: map[string]any{
			"qr_png_dataurl": dataURL,
			"generated_at":   now.UTC().Format(time.RFC3339),
		},
	})
}

func (s *Supervisor) onAuthenticated() {
	s.mu.Lock()
	s.state = session.StateAuthenticated
	s.mu.Unlock()
	logrus.Info("[SESSION] Authenticated")
	s.bus.Publish(eventbus.Event{Type: eventbus.EventAuthenticated})
}

func (s *Supervisor) onReady() {
	s.mu.Lock()
	s.state = session.StateReady
	s.qrRaw = ""
	s.qrPNG = ""
	s.qrGeneratedAt = time.Time{}
	s.attempt = 0
	s.mu.Unlock()
	logrus.Info("[SESSION] Client ready")
	s.bus.Publish(eventbus.Event{Type: eventbus.EventReady})
}

func (s *Supervisor) onAuthFailure(err error) {
	logrus.WithError(err).Warn("[SESSION] Auth failure, wiping local session")
	s.destroyClient()

	s.mu.Lock()
	s.state = session.StateFailed
	s.mu.Unlock()

	if rmErr := os.RemoveAll(s.sessionDir); rmErr != nil {
		logrus.WithError(rmErr).Warn("[SESSION] Session dir cleanup failed")
	}

	delay := s.clk.Uniform(authFailureRestartMin, authFailureRestartMax)
	s.scheduleRestart(delay, "auth failure")
}

func (s *Supervisor) onDisconnected(reason string) {
	s.mu.Lock()
	if s.state == session.StateNone {
		s.mu.Unlock()
		return
	}
	s.state = session.StateDisconnected
	n := s.attempt
	s.attempt++
	s.mu.Unlock()

	s.destroyClient()

	backoff := reconnectBase << uint(n)
	if backoff > reconnectCap {
		backoff = reconnectCap
	}
	backoff += s.clk.Uniform(0, reconnectJitterMax)
	logrus.Warnf("[SESSION] Disconnected (%s), reconnecting in %v (attempt %d)", reason, backoff, n+1)
	s.scheduleRestart(backoff, "reconnect")
}

// Logout performs the full cleanup sequence and schedules a fresh start so
// a new QR can be scanned.
func (s *Supervisor) Logout(ctx context.Context) session.LogoutDetails {
	details := session.LogoutDetails{}

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client != nil {
		if err := client.Logout(ctx); err != nil {
			logrus.WithError(err).Warn("[SESSION] Client logout returned error")
		} else {
			details.ClientLogout = true
		}
	}
	if client != nil {
		if err := s.destroyClient(); err == nil {
			details.ClientDestroy = true
		}
	}

	if err := os.RemoveAll(s.profileDir); err != nil {
		logrus.WithError(err).Warn("[SESSION] Profile dir cleanup failed")
	} else {
		details.ChromeProfileCleanup = true
	}
	if err := os.RemoveAll(s.sessionDir); err != nil {
		logrus.WithError(err).Warn("[SESSION] Session dir cleanup failed")
	} else {
		details.LocalSessionCleanup = true
	}

	s.mu.Lock()
	s.qrRaw = ""
	s.qrPNG = ""
	s.qrGeneratedAt = time.Time{}
	s.attempt = 0
	s.state = session.StateDisconnected
	s.mu.Unlock()
	details.QRCodeCleared = true

	s.bus.Publish(eventbus.Event{Type: eventbus.EventLogout})
	s.scheduleRestart(logoutRestartDelay, "logout")
	return details
}

// Shutdown stops all loops and destroys the client. Used on process exit.
func (s *Supervisor) Shutdown() {
	s.cancel()
	s.destroyClient()
	s.mu.Lock()
	s.state = session.StateNone
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Supervisor) destroyClient() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Destroy()
}

func (s *Supervisor) scheduleRestart(delay time.Duration, reason string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if !s.clk.Sleep(s.ctx, delay) {
			return
		}
		s.mu.Lock()
		if s.client != nil && s.state == session.StateReady {
			s.mu.Unlock()
			return
		}
		s.state = session.StateStarting
		s.mu.Unlock()
		logrus.Infof("[SESSION] Restarting client (%s)", reason)
		s.initClient()
	}()
}

func (s *Supervisor) startLoop(name string, min, max time.Duration, check func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			if !s.clk.Sleep(s.ctx, s.clk.Uniform(min, max)) {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						logrus.Errorf("[SESSION] %s panicked: %v", name, r)
					}
				}()
				check()
			}()
		}
	}()
}

// watchdogCheck recycles a wedged client. A missing client with a visible QR
// is left alone: the operator has not scanned yet.
func (s *Supervisor) watchdogCheck() {
	s.mu.Lock()
	client := s.client
	qrPresent := s.qrPNG != ""
	s.mu.Unlock()

	if client != nil && client.GetState() == ClientStateConnected {
		return
	}
	if client == nil && qrPresent {
		return
	}
	logrus.Warn("[WATCHDOG] Client unhealthy, recycling")
	s.destroyClient()
	s.scheduleRestart(0, "watchdog")
}

func (s *Supervisor) memoryCheck() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	rss := m.Sys

	switch {
	case rss >= memHardThreshold:
		logrus.Warnf("[MEMORY] RSS %s above hard threshold, recycling client", humanize.Bytes(rss))
		s.destroyClient()
		s.scheduleRestart(0, "memory pressure")
	case rss >= memSoftThreshold:
		logrus.Infof("[MEMORY] RSS %s above soft threshold, suggesting GC", humanize.Bytes(rss))
		runtime.GC()
	default:
		logrus.Debugf("[MEMORY] RSS %s", humanize.Bytes(rss))
	}
}

// Snapshot returns the session state for the control plane.
func (s *Supervisor) Snapshot() session.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := session.Snapshot{
		State:          s.state,
		QRPng:          s.qrPNG,
		CurrentAttempt: s.attempt,
	}
	if !s.qrGeneratedAt.IsZero() {
		t := s.qrGeneratedAt
		snap.QRGeneratedAt = &t
	}
	return snap
}

// --- send facade (stable across client recycles) ---

func (s *Supervisor) currentClient() Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *Supervisor) IsReady() bool {
	client := s.currentClient()
	return client != nil && client.IsReady()
}

func (s *Supervisor) SendText(ctx context.Context, chatID, text string) (string, error) {
	client := s.currentClient()
	if client == nil {
		return "", send.ErrNotReady
	}
	return client.SendText(ctx, chatID, text)
}

func (s *Supervisor) SendMedia(ctx context.Context, chatID string, media send.Media) (string, error) {
	client := s.currentClient()
	if client == nil {
		return "", send.ErrNotReady
	}
	return client.SendMedia(ctx, chatID, media)
}

func (s *Supervisor) Ping(ctx context.Context) error {
	client := s.currentClient()
	if client == nil {
		return send.ErrNotReady
	}
	return client.Ping(ctx)
}
