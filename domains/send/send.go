package send

import "context"

// Priority band for outbound sends. Critical bypasses the human-behavior
// rate limits and is used for operator notifications.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// ParsePriority maps the wire name to a band, defaulting to normal.
func ParsePriority(s string) Priority {
	switch s {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	}
	return PriorityNormal
}

// Media describes an attachment for an outbound send.
type Media struct {
	Kind    string `json:"kind"`
	URL     string `json:"url,omitempty"`
	Bytes   []byte `json:"-"`
	Caption string `json:"caption,omitempty"`
}

// Request is a queued outbound send.
type Request struct {
	TargetChatID string
	Text         string
	Media        *Media
	Priority     Priority

	// Ctx cancels the request while it is still in-band. A cancelled
	// request is discarded without a client call.
	Ctx context.Context
}

// MessageRequest is the REST form of an outbound send. Exactly one of
// Number, GroupID or JID selects the target.
type MessageRequest struct {
	Number   string `json:"number"`
	GroupID  string `json:"groupId"`
	JID      string `json:"jid"`
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl"`
	Priority string `json:"priority"`
}

// MessageResponse reports the delivered message id.
type MessageResponse struct {
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
}

type ISendUsecase interface {
	SendMessage(ctx context.Context, request MessageRequest) (*MessageResponse, error)
}

// Result of a terminally completed send.
type Result struct {
	MessageID string
	Err       error
}

// Sender is the narrow capability handed to workflow handlers and the
// broadcast executor.
type Sender interface {
	// Enqueue accepts a request and returns a channel that receives exactly
	// one Result when the send terminally succeeds or fails.
	Enqueue(req Request) <-chan Result
}
