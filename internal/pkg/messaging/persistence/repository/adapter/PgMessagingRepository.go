package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	messaging "marketchat/internal/pkg/messaging/application/domain"
)

// PgMessagingRepository persists conversations, messages and notifications in
// Postgres via a pgx pool.
type PgMessagingRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessagingRepository(pool *pgxpool.Pool) *PgMessagingRepository {
	return &PgMessagingRepository{pool: pool}
}

func (r *PgMessagingRepository) CreateConversation(ctx context.Context, c messaging.Conversation) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessagingRepository: nil pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO conversations (id, participant_key, participants, project, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5)
	`, c.ID, messaging.ParticipantKey(c.Participants...), c.Participants, c.Project, c.CreatedAt)
	if err != nil {
		return err
	}
	for _, uid := range c.Participants {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_members (conversation_id, user_id, unread_count, pinned, archived)
			VALUES ($1::uuid, $2, 0, FALSE, FALSE)
			ON CONFLICT (conversation_id, user_id) DO NOTHING
		`, c.ID, uid)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PgMessagingRepository) GetConversation(ctx context.Context, id string) (*messaging.Conversation, error) {
	return r.getConversationBy(ctx, "id = $1::uuid", id)
}

func (r *PgMessagingRepository) FindConversationByKey(ctx context.Context, key string) (*messaging.Conversation, error) {
	return r.getConversationBy(ctx, "participant_key = $1", key)
}

func (r *PgMessagingRepository) getConversationBy(ctx context.Context, where string, arg any) (*messaging.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	var (
		c          messaging.Conversation
		lmContent  *string
		lmSender   *string
		lmType     *string
		lmAt       *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, participants, project, created_at,
		       last_msg_content, last_msg_sender, last_msg_type, last_msg_at
		FROM conversations
		WHERE `+where,
		arg,
	).Scan(&c.ID, &c.Participants, &c.Project, &c.CreatedAt, &lmContent, &lmSender, &lmType, &lmAt)
	if err == pgx.ErrNoRows {
		return nil, messaging.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	if lmAt != nil {
		c.LastMessage = &messaging.LastMessage{
			Content:   deref(lmContent),
			Sender:    deref(lmSender),
			MsgType:   messaging.MessageType(deref(lmType)),
			Timestamp: *lmAt,
		}
	}
	if err := r.loadMemberState(ctx, []*messaging.Conversation{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgMessagingRepository) ListConversationsByUser(ctx context.Context, userID string) ([]messaging.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id::text, c.participants, c.project, c.created_at,
		       c.last_msg_content, c.last_msg_sender, c.last_msg_type, c.last_msg_at
		FROM conversations c
		JOIN conversation_members m ON m.conversation_id = c.id
		WHERE m.user_id = $1
		ORDER BY COALESCE(c.last_msg_at, c.created_at) DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []messaging.Conversation
	for rows.Next() {
		var (
			c         messaging.Conversation
			lmContent *string
			lmSender  *string
			lmType    *string
			lmAt      *time.Time
		)
		if err := rows.Scan(&c.ID, &c.Participants, &c.Project, &c.CreatedAt, &lmContent, &lmSender, &lmType, &lmAt); err != nil {
			return nil, err
		}
		if lmAt != nil {
			c.LastMessage = &messaging.LastMessage{
				Content:   deref(lmContent),
				Sender:    deref(lmSender),
				MsgType:   messaging.MessageType(deref(lmType)),
				Timestamp: *lmAt,
			}
		}
		convs = append(convs, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	refs := make([]*messaging.Conversation, len(convs))
	for i := range convs {
		refs[i] = &convs[i]
	}
	if err := r.loadMemberState(ctx, refs); err != nil {
		return nil, err
	}
	return convs, nil
}

// loadMemberState hydrates the per-participant unread/pinned/archived maps.
func (r *PgMessagingRepository) loadMemberState(ctx context.Context, convs []*messaging.Conversation) error {
	if len(convs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(convs))
	byID := make(map[string]*messaging.Conversation, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
		byID[c.ID] = c
		c.UnreadCounts = make(map[string]int)
		c.Pinned = make(map[string]bool)
		c.Archived = make(map[string]bool)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT conversation_id::text, user_id, unread_count, pinned, archived
		FROM conversation_members
		WHERE conversation_id = ANY($1::uuid[])
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			convID, userID   string
			unread           int
			pinned, archived bool
		)
		if err := rows.Scan(&convID, &userID, &unread, &pinned, &archived); err != nil {
			return err
		}
		if c := byID[convID]; c != nil {
			c.UnreadCounts[userID] = unread
			c.Pinned[userID] = pinned
			c.Archived[userID] = archived
		}
	}
	return rows.Err()
}

func (r *PgMessagingRepository) UpdateLastMessage(ctx context.Context, conversationID string, lm messaging.LastMessage) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessagingRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET last_msg_content = $2, last_msg_sender = $3, last_msg_type = $4, last_msg_at = $5
		WHERE id = $1::uuid
	`, conversationID, lm.Content, lm.Sender, string(lm.MsgType), lm.Timestamp)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return messaging.ErrConversationNotFound
	}
	return nil
}

func (r *PgMessagingRepository) IncrementUnread(ctx context.Context, conversationID, userID string) error {
	return r.execMember(ctx, `
		UPDATE conversation_members SET unread_count = unread_count + 1
		WHERE conversation_id = $1::uuid AND user_id = $2
	`, conversationID, userID)
}

func (r *PgMessagingRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	return r.execMember(ctx, `
		UPDATE conversation_members SET unread_count = 0
		WHERE conversation_id = $1::uuid AND user_id = $2
	`, conversationID, userID)
}

func (r *PgMessagingRepository) SetFlags(ctx context.Context, conversationID, userID string, pinned, archived *bool) error {
	return r.execMember(ctx, `
		UPDATE conversation_members
		SET pinned = COALESCE($3::boolean, pinned), archived = COALESCE($4::boolean, archived)
		WHERE conversation_id = $1::uuid AND user_id = $2
	`, conversationID, userID, pinned, archived)
}

func (r *PgMessagingRepository) execMember(ctx context.Context, sql string, args ...any) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessagingRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return messaging.ErrConversationNotFound
	}
	return nil
}

func (r *PgMessagingRepository) SaveMessage(ctx context.Context, m messaging.Message) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessagingRepository: nil pool")
	}
	var attachment *string
	if m.Attachment != nil {
		b, err := json.Marshal(m.Attachment)
		if err != nil {
			return err
		}
		s := string(b)
		attachment = &s
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (
			id, conversation_id, sender_id, recipient_id, content, msg_type, attachment, status, dedupe_key, created_at
		) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, COALESCE($7::json, NULL), $8, $9, $10)
	`, m.ID, m.ConversationID, m.Sender, m.Recipient, m.Content, string(m.MsgType), attachment, string(m.Status), m.DedupeKey, m.CreatedAt)
	return err
}

func (r *PgMessagingRepository) GetMessage(ctx context.Context, id string) (*messaging.Message, error) {
	return r.getMessageBy(ctx, "id = $1::uuid", id)
}

func (r *PgMessagingRepository) FindMessageByDedupeKey(ctx context.Context, conversationID, key string) (*messaging.Message, error) {
	return r.getMessageBy(ctx, "conversation_id = $1::uuid AND dedupe_key = $2", conversationID, key)
}

func (r *PgMessagingRepository) getMessageBy(ctx context.Context, where string, args ...any) (*messaging.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	var (
		m          messaging.Message
		msgType    string
		status     string
		attachment *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, conversation_id::text, sender_id, recipient_id, content, msg_type, attachment, status, dedupe_key, created_at
		FROM messages
		WHERE `+where,
		args...,
	).Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Recipient, &m.Content, &msgType, &attachment, &status, &m.DedupeKey, &m.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, messaging.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	m.MsgType = messaging.MessageType(msgType)
	m.Status = messaging.MessageStatus(status)
	if attachment != nil {
		var a messaging.Attachment
		if err := json.Unmarshal([]byte(*attachment), &a); err != nil {
			return nil, err
		}
		m.Attachment = &a
	}
	return &m, nil
}

func (r *PgMessagingRepository) ListMessagesByConversation(ctx context.Context, conversationID string) ([]messaging.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, conversation_id::text, sender_id, recipient_id, content, msg_type, attachment, status, dedupe_key, created_at
		FROM messages
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC, seq ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []messaging.Message
	for rows.Next() {
		var (
			m          messaging.Message
			msgType    string
			status     string
			attachment *string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Recipient, &m.Content, &msgType, &attachment, &status, &m.DedupeKey, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.MsgType = messaging.MessageType(msgType)
		m.Status = messaging.MessageStatus(status)
		if attachment != nil {
			var a messaging.Attachment
			if err := json.Unmarshal([]byte(*attachment), &a); err != nil {
				return nil, err
			}
			m.Attachment = &a
		}
		msgs = append(msgs, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

func (r *PgMessagingRepository) UpdateMessageStatus(ctx context.Context, id string, status messaging.MessageStatus) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessagingRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx,
		"UPDATE messages SET status = $2 WHERE id = $1::uuid",
		id, string(status),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return messaging.ErrMessageNotFound
	}
	return nil
}

func (r *PgMessagingRepository) SaveNotification(ctx context.Context, n messaging.Notification) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessagingRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, kind, message_id, conversation_id, created_at, read_at)
		VALUES ($1::uuid, $2, $3, $4::uuid, $5::uuid, $6, $7)
	`, n.ID, n.UserID, n.Kind, n.MessageID, n.ConversationID, n.CreatedAt, n.ReadAt)
	return err
}

func (r *PgMessagingRepository) ListNotificationsByUser(ctx context.Context, userID string) ([]messaging.Notification, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, user_id, kind, message_id::text, conversation_id::text, created_at, read_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ns []messaging.Notification
	for rows.Next() {
		var n messaging.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.MessageID, &n.ConversationID, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ns, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
