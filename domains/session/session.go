package session

import "time"

// State of the WhatsApp session owned by the supervisor.
type State string

const (
	StateNone          State = "NONE"
	StateStarting      State = "STARTING"
	StateQR            State = "QR"
	StateAuthenticated State = "AUTHENTICATED"
	StateReady         State = "READY"
	StateDisconnected  State = "DISCONNECTED"
	StateFailed        State = "FAILED"
)

// Snapshot is a point-in-time copy of the session state, safe to hand to
// HTTP handlers.
type Snapshot struct {
	State          State      `json:"state"`
	QRPng          string     `json:"qr_png,omitempty"`
	QRGeneratedAt  *time.Time `json:"qr_generated_at,omitempty"`
	CurrentAttempt int        `json:"current_attempt"`
}

// QRStale reports whether the current QR has likely expired on the phone
// side and the dashboard should hint a refresh.
func (s Snapshot) QRStale(now time.Time, maxAge time.Duration) bool {
	if s.QRPng == "" || s.QRGeneratedAt == nil {
		return false
	}
	return now.Sub(*s.QRGeneratedAt) > maxAge
}

// LogoutDetails itemizes the cleanup steps of a logout request.
type LogoutDetails struct {
	ClientLogout         bool `json:"clientLogout"`
	ClientDestroy        bool `json:"clientDestroy"`
	ChromeProfileCleanup bool `json:"chromeProfileCleanup"`
	LocalSessionCleanup  bool `json:"localSessionCleanup"`
	QRCodeCleared        bool `json:"qrCodeCleared"`
}
