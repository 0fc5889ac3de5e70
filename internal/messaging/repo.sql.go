package messaging

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the record does not exist in the caller's school.
	ErrNotFound = errors.New("messaging: not found")
)

const messageColumns = `id, school_id, sender_id, recipient_id, subject, body, read_at, created_at`

const announcementColumns = `id, school_id, author_id, title, body, audience, created_at`

// RepositoryPort defines school scoped data access for messages and
// announcements.
type RepositoryPort interface {
	CreateMessage(ctx context.Context, m Message) (int64, error)
	GetMessage(ctx context.Context, schoolID, id int64) (*Message, error)
	Inbox(ctx context.Context, schoolID, accountID int64, limit, offset int) ([]Message, int, error)
	Sent(ctx context.Context, schoolID, accountID int64, limit, offset int) ([]Message, int, error)
	MarkRead(ctx context.Context, schoolID, id, recipientID int64) error
	RecipientExists(ctx context.Context, schoolID, accountID int64) (bool, error)

	CreateAnnouncement(ctx context.Context, a Announcement) (int64, error)
	GetAnnouncement(ctx context.Context, schoolID, id int64) (*Announcement, error)
	ListAnnouncements(ctx context.Context, schoolID int64, audiences []Audience, limit, offset int) ([]Announcement, int, error)
	DeleteAnnouncement(ctx context.Context, schoolID, id int64) error
}

// Repository provides PostgreSQL backed persistence for messaging.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateMessage inserts a direct message.
func (r *Repository) CreateMessage(ctx context.Context, m Message) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO messages (school_id, sender_id, recipient_id, subject, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`,
		m.SchoolID, m.SenderID, m.RecipientID, m.Subject, m.Body,
	).Scan(&id)
	return id, err
}

// GetMessage fetches one message of the given school.
func (r *Repository) GetMessage(ctx context.Context, schoolID, id int64) (*Message, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanMessage(row)
}

// Inbox lists messages received by an account plus the unpaged total.
func (r *Repository) Inbox(ctx context.Context, schoolID, accountID int64, limit, offset int) ([]Message, int, error) {
	return r.listMessages(ctx, `recipient_id`, schoolID, accountID, limit, offset)
}

// Sent lists messages sent by an account plus the unpaged total.
func (r *Repository) Sent(ctx context.Context, schoolID, accountID int64, limit, offset int) ([]Message, int, error) {
	return r.listMessages(ctx, `sender_id`, schoolID, accountID, limit, offset)
}

func (r *Repository) listMessages(ctx context.Context, column string, schoolID, accountID int64, limit, offset int) ([]Message, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE school_id = $1 AND `+column+` = $2`,
		schoolID, accountID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE school_id = $1 AND `+column+` = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		schoolID, accountID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, *m)
	}
	return messages, total, rows.Err()
}

// MarkRead stamps a message read by its recipient. Only the recipient can,
// so the predicate carries the account id too.
func (r *Repository) MarkRead(ctx context.Context, schoolID, id, recipientID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET read_at = NOW()
		 WHERE school_id = $1 AND id = $2 AND recipient_id = $3 AND read_at IS NULL`,
		schoolID, id, recipientID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecipientExists reports whether an active account of the school exists.
func (r *Repository) RecipientExists(ctx context.Context, schoolID, accountID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE school_id = $1 AND id = $2 AND is_active)`,
		schoolID, accountID,
	).Scan(&exists)
	return exists, err
}

// CreateAnnouncement inserts an announcement.
func (r *Repository) CreateAnnouncement(ctx context.Context, a Announcement) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO announcements (school_id, author_id, title, body, audience, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`,
		a.SchoolID, a.AuthorID, a.Title, a.Body, a.Audience,
	).Scan(&id)
	return id, err
}

// GetAnnouncement fetches one announcement of the given school.
func (r *Repository) GetAnnouncement(ctx context.Context, schoolID, id int64) (*Announcement, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+announcementColumns+` FROM announcements WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanAnnouncement(row)
}

// ListAnnouncements lists announcements visible to the given audiences plus
// the unpaged total.
func (r *Repository) ListAnnouncements(ctx context.Context, schoolID int64, audiences []Audience, limit, offset int) ([]Announcement, int, error) {
	if limit <= 0 {
		limit = 50
	}
	names := make([]string, len(audiences))
	for i, a := range audiences {
		names[i] = string(a)
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM announcements WHERE school_id = $1 AND audience = ANY($2)`,
		schoolID, names,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+announcementColumns+` FROM announcements
		 WHERE school_id = $1 AND audience = ANY($2) ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		schoolID, names, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var announcements []Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, 0, err
		}
		announcements = append(announcements, *a)
	}
	return announcements, total, rows.Err()
}

// DeleteAnnouncement removes an announcement.
func (r *Repository) DeleteAnnouncement(ctx context.Context, schoolID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM announcements WHERE school_id = $1 AND id = $2`, schoolID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.SchoolID, &m.SenderID, &m.RecipientID, &m.Subject, &m.Body, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func scanAnnouncement(row pgx.Row) (*Announcement, error) {
	var a Announcement
	err := row.Scan(&a.ID, &a.SchoolID, &a.AuthorID, &a.Title, &a.Body, &a.Audience, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

var _ RepositoryPort = (*Repository)(nil)
