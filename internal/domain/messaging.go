package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const MaxMessageLength = 2000

type Message struct {
	ID          uuid.UUID
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Body        string
	AutoReply   bool
	CreatedAt   time.Time
	ReadAt      *time.Time
}

// Thread summarizes one conversation in a user's inbox.
type Thread struct {
	PeerID      uuid.UUID
	LastMessage Message
	UnreadCount int
}

type MessageRepository interface {
	Create(ctx context.Context, m Message) error
	ListConversation(ctx context.Context, userID, peerID uuid.UUID, before time.Time, limit int) ([]Message, error)
	ListThreads(ctx context.Context, userID uuid.UUID, limit int) ([]Thread, error)
	MarkRead(ctx context.Context, recipientID, senderID uuid.UUID, at time.Time) (int64, error)
}

// ChatTurn is one prior message handed to the reply generator.
type ChatTurn struct {
	FromPeer bool
	Text     string
}

type ReplyGenerator interface {
	Reply(ctx context.Context, persona string, history []ChatTurn) (string, error)
}

// RealtimeEvent is pushed to a user's open websocket connections.
type RealtimeEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	RealtimeMessage     = "message.created"
	RealtimeBooking     = "booking.updated"
	RealtimeTierChanged = "tier.changed"
)

type Notifier interface {
	Publish(userID uuid.UUID, ev RealtimeEvent)
}
