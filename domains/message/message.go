package message

import "time"

// Message is the in-memory representation of an inbound chat message.
// Only the fields the gateway consumes are carried past the client boundary.
type Message struct {
	WaMessageID string    `json:"wa_message_id"`
	ChatID      string    `json:"chat_id"`
	SenderID    string    `json:"sender_id"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
	QuotedID    string    `json:"quoted_id,omitempty"`
	QuotedBody  string    `json:"quoted_body,omitempty"`
}

// HasQuote reports whether the message quotes another message.
func (m Message) HasQuote() bool {
	return m.QuotedID != ""
}
