package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/correlation"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/crypto"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	autoReplyTimeout = 20 * time.Second
	autoReplyHistory = 10
)

// MessageView is a decrypted message as returned to clients and pushed over
// the realtime channel.
type MessageView struct {
	ID          uuid.UUID  `json:"id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	Body        string     `json:"body"`
	AutoReply   bool       `json:"auto_reply"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

type ThreadView struct {
	PeerID      uuid.UUID   `json:"peer_id"`
	LastMessage MessageView `json:"last_message"`
	UnreadCount int         `json:"unread_count"`
}

type MessagingService struct {
	messages domain.MessageRepository
	profiles domain.ProfileRepository
	tiers    domain.TierCache
	sealer   crypto.Service
	replies  domain.ReplyGenerator
	notifier domain.Notifier
	clock    clockwork.Clock

	wg sync.WaitGroup
}

// NewMessagingService wires the messaging use cases. replies may be nil, which
// disables auto-replies.
func NewMessagingService(
	messages domain.MessageRepository,
	profiles domain.ProfileRepository,
	tiers domain.TierCache,
	sealer crypto.Service,
	replies domain.ReplyGenerator,
	notifier domain.Notifier,
	clock clockwork.Clock,
) *MessagingService {
	return &MessagingService{
		messages: messages,
		profiles: profiles,
		tiers:    tiers,
		sealer:   sealer,
		replies:  replies,
		notifier: notifier,
		clock:    clock,
	}
}

func (s *MessagingService) Send(ctx context.Context, senderID, recipientID uuid.UUID, body string) (MessageView, error) {
	if senderID == recipientID {
		return MessageView{}, apperrors.ValidationError("cannot message yourself")
	}
	body = strings.TrimSpace(body)
	if n := utf8.RuneCountInString(body); n == 0 || n > domain.MaxMessageLength {
		return MessageView{}, apperrors.ValidationError("body must be 1 to 2000 characters")
	}

	recipient, err := s.profiles.GetByID(ctx, recipientID)
	if err != nil {
		return MessageView{}, err
	}

	msg := domain.Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   s.clock.Now().UTC(),
	}
	view, err := s.store(ctx, msg)
	if err != nil {
		return MessageView{}, err
	}

	s.notifier.Publish(recipientID, domain.RealtimeEvent{Type: domain.RealtimeMessage, Payload: view})
	s.maybeAutoReply(ctx, recipient, senderID)
	return view, nil
}

// store seals the body and persists the message.
func (s *MessagingService) store(ctx context.Context, msg domain.Message) (MessageView, error) {
	plain := msg.Body
	sealed, err := s.sealer.Encrypt(plain)
	if err != nil {
		return MessageView{}, fmt.Errorf("seal message body: %w", err)
	}
	msg.Body = sealed
	if err := s.messages.Create(ctx, msg); err != nil {
		return MessageView{}, err
	}
	msg.Body = plain
	return toMessageView(msg), nil
}

func toMessageView(m domain.Message) MessageView {
	return MessageView{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		AutoReply:   m.AutoReply,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
	}
}

func (s *MessagingService) open(m domain.Message) (MessageView, error) {
	body, err := s.sealer.Decrypt(m.Body)
	if err != nil {
		return MessageView{}, fmt.Errorf("open message %s: %w", m.ID, err)
	}
	m.Body = body
	return toMessageView(m), nil
}

// Conversation returns the newest messages with peerID and marks the peer's
// messages to userID as read.
func (s *MessagingService) Conversation(ctx context.Context, userID, peerID uuid.UUID, before time.Time, limit int) ([]MessageView, error) {
	limit, err := pageSize(limit)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListConversation(ctx, userID, peerID, before, limit)
	if err != nil {
		return nil, err
	}

	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		v, err := s.open(m)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}

	if _, err := s.messages.MarkRead(ctx, userID, peerID, s.clock.Now().UTC()); err != nil {
		slog.WarnContext(ctx, "Failed to mark messages read", "user_id", userID, "peer_id", peerID, "error", err)
	}
	return views, nil
}

func (s *MessagingService) Threads(ctx context.Context, userID uuid.UUID, limit int) ([]ThreadView, error) {
	limit, err := pageSize(limit)
	if err != nil {
		return nil, err
	}

	threads, err := s.messages.ListThreads(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	views := make([]ThreadView, 0, len(threads))
	for _, t := range threads {
		last, err := s.open(t.LastMessage)
		if err != nil {
			return nil, err
		}
		views = append(views, ThreadView{PeerID: t.PeerID, LastMessage: last, UnreadCount: t.UnreadCount})
	}
	return views, nil
}

// maybeAutoReply starts a background reply when the recipient is a king with
// auto-reply enabled. It is only reachable from Send, so a generated reply
// never triggers another one.
func (s *MessagingService) maybeAutoReply(ctx context.Context, recipient *domain.Profile, senderID uuid.UUID) {
	if s.replies == nil || !recipient.AutoReplyEnabled {
		return
	}

	tier, err := s.tiers.Get(ctx, recipient.ID)
	if err != nil {
		slog.WarnContext(ctx, "Skipping auto-reply, tier lookup failed", "recipient_id", recipient.ID, "error", err)
		return
	}
	if tier != domain.TierKing {
		return
	}

	bg := correlation.Detach(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(bg, autoReplyTimeout)
		defer cancel()

		if err := s.autoReply(ctx, recipient, senderID); err != nil {
			slog.ErrorContext(ctx, "Auto-reply failed", "recipient_id", recipient.ID, "sender_id", senderID, "error", err)
		}
	}()
}

func (s *MessagingService) autoReply(ctx context.Context, king *domain.Profile, peerID uuid.UUID) error {
	recent, err := s.messages.ListConversation(ctx, king.ID, peerID, time.Time{}, autoReplyHistory)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	history := make([]domain.ChatTurn, 0, len(recent))
	for _, m := range slices.Backward(recent) {
		v, err := s.open(m)
		if err != nil {
			return err
		}
		history = append(history, domain.ChatTurn{FromPeer: m.SenderID == peerID, Text: v.Body})
	}

	reply, err := s.replies.Reply(ctx, king.AutoReplyPrompt, history)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}
	reply = clampReply(reply)
	if reply == "" {
		return nil
	}

	view, err := s.store(ctx, domain.Message{
		ID:          uuid.New(),
		SenderID:    king.ID,
		RecipientID: peerID,
		Body:        reply,
		AutoReply:   true,
		CreatedAt:   s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("store reply: %w", err)
	}

	ev := domain.RealtimeEvent{Type: domain.RealtimeMessage, Payload: view}
	s.notifier.Publish(peerID, ev)
	s.notifier.Publish(king.ID, ev)
	slog.InfoContext(ctx, "Auto-reply sent", "king_id", king.ID, "peer_id", peerID)
	return nil
}

// Wait blocks until in-flight auto-replies finish.
func (s *MessagingService) Wait() {
	s.wg.Wait()
}

// clampReply applies the Send length rule to generated text, cutting at a
// rune boundary.
func clampReply(reply string) string {
	reply = strings.TrimSpace(reply)
	if utf8.RuneCountInString(reply) <= domain.MaxMessageLength {
		return reply
	}
	return strings.TrimSpace(string([]rune(reply)[:domain.MaxMessageLength]))
}
