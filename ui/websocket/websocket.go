package websocket

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	domainApp "github.com/keyquest/wa-gateway/domains/app"
	"github.com/keyquest/wa-gateway/eventbus"
	"github.com/keyquest/wa-gateway/infrastructure/valkey"
	valkeylib "github.com/valkey-io/valkey-go"
)

type client struct{}

// BroadcastMessage is the wire frame pushed to dashboard clients.
type BroadcastMessage struct {
	Type     string         `json:"type"`
	Payload  map[string]any `json:"payload,omitempty"`
	SenderID string         `json:"sender_id,omitempty"`
}

var (
	Clients    = make(map[*websocket.Conn]client)
	Register   = make(chan *websocket.Conn)
	Broadcast  = make(chan BroadcastMessage)
	Unregister = make(chan *websocket.Conn)

	vkClient *valkey.Client
	wsChan   = "wagw:ws_broadcast"
	localID  string
)

// SetValkeyClient enables cross-instance fanout. Without it the hub only
// serves local connections.
func SetValkeyClient(client *valkey.Client, serverID string) {
	vkClient = client
	localID = serverID
	if client != nil {
		wsChan = client.Key("ws_broadcast")
	}
}

func handleRegister(conn *websocket.Conn) {
	Clients[conn] = client{}
	logrus.Debug("[WS] Connection registered")
}

func handleUnregister(conn *websocket.Conn) {
	delete(Clients, conn)
	logrus.Debug("[WS] Connection unregistered")
}

func broadcastToLocal(message BroadcastMessage) {
	marshalMessage, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for conn := range Clients {
		if err := conn.WriteMessage(websocket.TextMessage, marshalMessage); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			closeConnection(conn)
		}
	}
}

func publishToValkey(message BroadcastMessage) {
	if vkClient == nil {
		return
	}

	message.SenderID = localID

	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	ctx := context.Background()
	cmd := vkClient.Inner().B().Publish().Channel(wsChan).Message(string(data)).Build()
	if err := vkClient.Inner().Do(ctx, cmd).Error(); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

func startValkeySubscriber() {
	if vkClient == nil {
		return
	}

	logrus.Info("[WS] Starting Valkey Pub/Sub subscriber for distributed events")
	go func() {
		err := vkClient.Inner().Receive(context.Background(), vkClient.Inner().B().Subscribe().Channel(wsChan).Build(), func(msg valkeylib.PubSubMessage) {
			var broadcastMsg BroadcastMessage
			if err := json.Unmarshal([]byte(msg.Message), &broadcastMsg); err == nil {
				// Avoid loops: ignore messages sent by this same instance
				if broadcastMsg.SenderID == localID {
					return
				}
				broadcastToLocal(broadcastMsg)
			}
		})
		if err != nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

func closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(Clients, conn)
}

// RunHub bridges the in-process event bus onto connected sockets. Session
// and broadcast events published anywhere in the gateway reach every
// dashboard, across instances when Valkey is configured.
func RunHub(bus *eventbus.Bus) {
	if vkClient != nil {
		startValkeySubscriber()
	}

	events := bus.Subscribe()
	defer bus.Unsubscribe(events)

	for {
		select {
		case conn := <-Register:
			handleRegister(conn)

		case conn := <-Unregister:
			handleUnregister(conn)

		case evt := <-events:
			message := BroadcastMessage{Type: evt.Type, Payload: evt.Payload}
			broadcastToLocal(message)
			if vkClient != nil {
				publishToValkey(message)
			}

		case message := <-Broadcast:
			broadcastToLocal(message)
			if vkClient != nil {
				publishToValkey(message)
			}
		}
	}
}

// RegisterRoutes serves WebSocket upgrades at the server root, with /ws as
// an alias; non-upgrade requests to / fall through to the static dashboard.
// A fresh connection immediately receives a connected frame and, when a
// pairing is in progress, the current QR so the dashboard does not wait for
// the next rotation.
func RegisterRoutes(app fiber.Router, service domainApp.IAppUsecase) {
	handler := connHandler(service)

	// Must be registered before the static handler so an Upgrade request to
	// / reaches the hub instead of index.html.
	app.Use(func(c *fiber.Ctx) error {
		if c.Path() == "/" && websocket.IsWebSocketUpgrade(c) {
			return handler(c)
		}
		return c.Next()
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", handler)
}

func connHandler(service domainApp.IAppUsecase) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer func() {
			Unregister <- conn
			_ = conn.Close()
		}()

		Register <- conn

		hello := BroadcastMessage{Type: "connected"}
		if data, err := json.Marshal(hello); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}

		if qr, err := service.QR(context.Background()); err == nil && qr.QR != nil {
			frame := BroadcastMessage{Type: eventbus.EventQR, Payload: map[string]any{
				"qr_png_dataurl": *qr.QR,
				"generated_at":   qr.GeneratedAt,
				"is_stale":       qr.IsStale,
			}}
			if data, err := json.Marshal(frame); err == nil {
				_ = conn.WriteMessage(websocket.TextMessage, data)
			}
		}

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Println("read error:", err)
				}
				return
			}

			if messageType == websocket.TextMessage {
				var messageData BroadcastMessage
				if err := json.Unmarshal(message, &messageData); err != nil {
					logrus.Println("unmarshal error:", err)
					return
				}

				if messageData.Type == "fetch_status" {
					status, _ := service.Status(context.Background())
					payload := map[string]any{}
					if raw, err := json.Marshal(status); err == nil {
						_ = json.Unmarshal(raw, &payload)
					}
					Broadcast <- BroadcastMessage{Type: "status", Payload: payload}
				}
			} else {
				logrus.Println("unsupported message type:", messageType)
			}
		}
	})
}
