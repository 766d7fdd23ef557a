package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// messageColumns must match the Scan order in scanMessage.
const messageColumns = `id, sender_id, recipient_id, body, auto_reply, created_at, read_at`

// MessageRepo stores message bodies exactly as given; sealing happens above it.
type MessageRepo struct {
	pool *pgxpool.Pool
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func scanMessage(row pgx.Row, extra ...any) (domain.Message, error) {
	var m domain.Message
	dest := append([]any{&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.AutoReply, &m.CreatedAt, &m.ReadAt}, extra...)
	err := row.Scan(dest...)
	return m, err
}

func (r *MessageRepo) Create(ctx context.Context, m domain.Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, sender_id, recipient_id, body, auto_reply, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.SenderID, m.RecipientID, m.Body, m.AutoReply, m.CreatedAt)
	if isForeignKeyViolation(err) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListConversation returns messages between the two users, newest first,
// created strictly before before (zero means no bound).
func (r *MessageRepo) ListConversation(ctx context.Context, userID, peerID uuid.UUID, before time.Time, limit int) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))`
	args := []any{userID, peerID, limit}
	if !before.IsZero() {
		query += ` AND created_at < $4`
		args = append(args, before)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListThreads returns one entry per conversation partner with the latest
// message and the number of unread messages from that partner.
func (r *MessageRepo) ListThreads(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Thread, error) {
	rows, err := r.pool.Query(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (peer_id) peer_id, `+messageColumns+`
			FROM (
				SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS peer_id, *
				FROM messages
				WHERE sender_id = $1 OR recipient_id = $1
			) m
			ORDER BY peer_id, created_at DESC, id DESC
		)
		SELECT `+messageColumns+`, peer_id,
			(SELECT count(*) FROM messages u
			 WHERE u.recipient_id = $1 AND u.sender_id = latest.peer_id AND u.read_at IS NULL)
		FROM latest
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var out []domain.Thread
	for rows.Next() {
		var (
			t      domain.Thread
			unread int64
		)
		t.LastMessage, err = scanMessage(rows, &t.PeerID, &unread)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		t.UnreadCount = int(unread)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *MessageRepo) MarkRead(ctx context.Context, recipientID, senderID uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET read_at = $3
		WHERE recipient_id = $1 AND sender_id = $2 AND read_at IS NULL`, recipientID, senderID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return tag.RowsAffected(), nil
}
