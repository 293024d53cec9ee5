package whatsapp

import (
	"context"

	"github.com/keyquest/wa-gateway/domains/message"
	"github.com/keyquest/wa-gateway/domains/send"
)

// ClientState is the provider-side connection state as reported by the
// underlying client.
type ClientState string

const (
	ClientStateConnected      ClientState = "CONNECTED"
	ClientStateAuthenticating ClientState = "AUTHENTICATING"
	ClientStateDisconnected   ClientState = "DISCONNECTED"
	ClientStateNone           ClientState = "NONE"
	ClientStateError          ClientState = "ERROR"
)

// Handlers are the callbacks a Client raises. All fields are optional.
type Handlers struct {
	OnQR            func(raw string)
	OnAuthenticated func()
	OnReady         func()
	OnAuthFailure   func(err error)
	OnDisconnected  func(reason string)
	OnMessage       func(msg message.Message)
}

// Client is the narrow capability the gateway consumes. The production
// implementation is backed by whatsmeow; tests substitute fakes.
type Client interface {
	Initialize(ctx context.Context) error
	Destroy() error
	Logout(ctx context.Context) error
	GetState() ClientState
	IsReady() bool
	SendText(ctx context.Context, chatID, text string) (string, error)
	SendMedia(ctx context.Context, chatID string, media send.Media) (string, error)
	// Ping is a no-op round-trip used as keep-alive during long waits.
	Ping(ctx context.Context) error
	SetHandlers(h Handlers)
}

// ClientFactory builds a fresh Client. The supervisor calls it on every
// (re)start so a recycled session begins from a clean client.
type ClientFactory func() Client
