package whatsapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/keyquest/wa-gateway/domains/message"
	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// MeowClient adapts whatsmeow to the Client capability. One instance per
// supervisor start; the supervisor discards it on recycle.
type MeowClient struct {
	sessionID   string
	storagePath string
	logLevel    string

	mu        sync.RWMutex
	cli       *whatsmeow.Client
	container *sqlstore.Container
	handlers  Handlers
	ready     bool
}

func NewMeowClient(sessionID, storagePath string) *MeowClient {
	return &MeowClient{
		sessionID:   sessionID,
		storagePath: storagePath,
		logLevel:    "ERROR",
	}
}

func (c *MeowClient) SetHandlers(h Handlers) {
	c.mu.Lock()
	c.handlers = h
	c.mu.Unlock()
}

func (c *MeowClient) getHandlers() Handlers {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handlers
}

// SessionDBPath is the on-disk location of the session store; logout wipes it.
func (c *MeowClient) SessionDBPath() string {
	return filepath.Join(c.storagePath, fmt.Sprintf("session-%s.db", c.sessionID))
}

func (c *MeowClient) Initialize(ctx context.Context) error {
	dbURI := fmt.Sprintf("file:%s?_foreign_keys=on", c.SessionDBPath())
	container, err := sqlstore.New(ctx, "sqlite3", dbURI, waLog.Stdout("Session", c.logLevel, true))
	if err != nil {
		return fmt.Errorf("session store init: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("get device: %w", err)
	}

	cli := whatsmeow.NewClient(device, waLog.Stdout("Client", c.logLevel, true))
	// The supervisor owns reconnection policy.
	cli.EnableAutoReconnect = false
	cli.AutoTrustIdentity = true
	cli.AddEventHandler(c.handleEvent)

	c.mu.Lock()
	c.cli = cli
	c.container = container
	c.mu.Unlock()

	if cli.Store.ID == nil {
		qrChan, err := cli.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("qr channel: %w", err)
		}
		go func() {
			for evt := range qrChan {
				switch evt.Event {
				case "code":
					if h := c.getHandlers(); h.OnQR != nil {
						h.OnQR(evt.Code)
					}
				case "success":
					logrus.Info("[CLIENT] QR pairing succeeded")
				case "timeout":
					if h := c.getHandlers(); h.OnDisconnected != nil {
						h.OnDisconnected("qr timeout")
					}
				}
			}
		}()
	}

	return cli.Connect()
}

func (c *MeowClient) handleEvent(rawEvt interface{}) {
	h := c.getHandlers()
	switch evt := rawEvt.(type) {
	case *events.PairSuccess:
		if h.OnAuthenticated != nil {
			h.OnAuthenticated()
		}
	case *events.Connected:
		c.mu.Lock()
		c.ready = true
		c.mu.Unlock()
		if h.OnReady != nil {
			h.OnReady()
		}
	case *events.LoggedOut:
		c.mu.Lock()
		c.ready = false
		c.mu.Unlock()
		if h.OnAuthFailure != nil {
			h.OnAuthFailure(fmt.Errorf("logged out: %s", evt.Reason.String()))
		}
	case *events.StreamReplaced:
		c.mu.Lock()
		c.ready = false
		c.mu.Unlock()
		if h.OnDisconnected != nil {
			h.OnDisconnected("stream replaced")
		}
	case *events.Disconnected:
		c.mu.Lock()
		c.ready = false
		c.mu.Unlock()
		if h.OnDisconnected != nil {
			h.OnDisconnected("disconnected")
		}
	case *events.Message:
		if h.OnMessage != nil {
			h.OnMessage(c.toDomainMessage(evt))
		}
	}
}

func (c *MeowClient) toDomainMessage(evt *events.Message) message.Message {
	body := evt.Message.GetConversation()
	var quotedID, quotedBody string
	if ext := evt.Message.GetExtendedTextMessage(); ext != nil {
		if body == "" {
			body = ext.GetText()
		}
		if ci := ext.GetContextInfo(); ci != nil {
			quotedID = ci.GetStanzaID()
			if qm := ci.GetQuotedMessage(); qm != nil {
				quotedBody = qm.GetConversation()
				if quotedBody == "" {
					quotedBody = qm.GetExtendedTextMessage().GetText()
				}
			}
		}
	}
	if body == "" {
		if img := evt.Message.GetImageMessage(); img != nil {
			body = img.GetCaption()
		}
	}
	return message.Message{
		WaMessageID: evt.Info.ID,
		ChatID:      formatChatID(evt.Info.Chat),
		SenderID:    formatChatID(evt.Info.Sender),
		Body:        body,
		Timestamp:   evt.Info.Timestamp,
		QuotedID:    quotedID,
		QuotedBody:  quotedBody,
	}
}

// formatChatID maps provider JIDs to the gateway's chat id convention:
// groups end @g.us, individual chats end @c.us.
func formatChatID(jid types.JID) string {
	if jid.Server == types.GroupServer {
		return jid.User + "@g.us"
	}
	return jid.User + "@c.us"
}

func parseChatID(chatID string) (types.JID, error) {
	switch {
	case strings.HasSuffix(chatID, "@g.us"):
		return types.NewJID(strings.TrimSuffix(chatID, "@g.us"), types.GroupServer), nil
	case strings.HasSuffix(chatID, "@c.us"):
		return types.NewJID(strings.TrimSuffix(chatID, "@c.us"), types.DefaultUserServer), nil
	}
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return types.EmptyJID, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	return jid, nil
}

func (c *MeowClient) GetState() ClientState {
	c.mu.RLock()
	cli := c.cli
	c.mu.RUnlock()
	if cli == nil {
		return ClientStateNone
	}
	switch {
	case cli.IsConnected() && cli.IsLoggedIn():
		return ClientStateConnected
	case cli.IsConnected():
		return ClientStateAuthenticating
	default:
		return ClientStateDisconnected
	}
}

func (c *MeowClient) IsReady() bool {
	c.mu.RLock()
	ready := c.ready
	cli := c.cli
	c.mu.RUnlock()
	return ready && cli != nil && cli.IsConnected() && cli.IsLoggedIn()
}

func (c *MeowClient) SendText(ctx context.Context, chatID, text string) (string, error) {
	cli := c.current()
	if cli == nil {
		return "", send.ErrNotReady
	}
	jid, err := parseChatID(chatID)
	if err != nil {
		return "", err
	}
	resp, err := cli.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *MeowClient) SendMedia(ctx context.Context, chatID string, media send.Media) (string, error) {
	cli := c.current()
	if cli == nil {
		return "", send.ErrNotReady
	}
	jid, err := parseChatID(chatID)
	if err != nil {
		return "", err
	}

	data := media.Bytes
	if len(data) == 0 && media.URL != "" {
		data, err = fetchMedia(ctx, media.URL)
		if err != nil {
			return "", err
		}
	}
	if len(data) == 0 {
		return "", fmt.Errorf("media has no content")
	}

	uploaded, err := cli.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	msg := &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(http.DetectContentType(data)),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
			Caption:       proto.String(media.Caption),
		},
	}
	resp, err := cli.SendMessage(ctx, jid, msg)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func fetchMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch media: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *MeowClient) Ping(ctx context.Context) error {
	cli := c.current()
	if cli == nil || !cli.IsConnected() {
		return send.ErrNotReady
	}
	return cli.SendPresence(ctx, types.PresenceAvailable)
}

func (c *MeowClient) Logout(ctx context.Context) error {
	cli := c.current()
	if cli == nil {
		return nil
	}
	return cli.Logout(ctx)
}

func (c *MeowClient) Destroy() error {
	c.mu.Lock()
	cli := c.cli
	container := c.container
	c.cli = nil
	c.container = nil
	c.ready = false
	c.mu.Unlock()

	if cli != nil {
		cli.Disconnect()
	}
	if container != nil {
		if err := container.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (c *MeowClient) current() *whatsmeow.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cli
}
