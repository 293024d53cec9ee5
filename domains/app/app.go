package app

import (
	"context"

	"github.com/keyquest/wa-gateway/behavior"
	"github.com/keyquest/wa-gateway/domains/session"
)

// StatusResponse is the dashboard view of the gateway.
type StatusResponse struct {
	Status        session.State     `json:"status"`
	SessionID     string            `json:"sessionId"`
	Version       string            `json:"version"`
	UptimeMinutes int64             `json:"uptimeMinutes"`
	HumanBehavior behavior.Snapshot `json:"humanBehavior"`
	Timestamp     string            `json:"timestamp"`

	Ready        bool   `json:"ready"`
	ServerID     string `json:"serverId"`
	PendingSends int    `json:"pendingSends"`
	QRAvailable  bool   `json:"qrAvailable"`
}

// QRResponse carries the current pairing code. QR and GeneratedAt are
// explicit nulls when no pairing is in progress, so the dashboard can
// distinguish "no code" from "empty code".
type QRResponse struct {
	QR            *string `json:"qr"`
	GeneratedAt   *string `json:"generatedAt"`
	IsStale       bool    `json:"isStale"`
	Authenticated bool    `json:"authenticated"`
	State         string  `json:"state"`
	Timestamp     string  `json:"timestamp"`
}

type IAppUsecase interface {
	Status(ctx context.Context) (*StatusResponse, error)
	QR(ctx context.Context) (*QRResponse, error)
	Logout(ctx context.Context) (*session.LogoutDetails, error)

	// StoreHealthy reports whether the entity store answers a ping.
	StoreHealthy(ctx context.Context) bool
}
