package messaging

import (
	"context"
	"errors"
	"strings"

	"github.com/classpoint/classpoint/internal/rbac"
)

var (
	// ErrRecipientUnknown indicates the recipient is not an active account of
	// the sender's school. Deliberately the same failure for "no such
	// account" and "account of another school".
	ErrRecipientUnknown = errors.New("messaging: unknown recipient")
	// ErrInvalidAudience indicates an unrecognized audience group.
	ErrInvalidAudience = errors.New("messaging: invalid audience")
)

// Service manages direct messages and announcements within the actor's
// school.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// SendRequest captures a direct message submission.
type SendRequest struct {
	RecipientID int64  `json:"recipient_id" validate:"required"`
	Subject     string `json:"subject" validate:"required,min=1,max=200"`
	Body        string `json:"body" validate:"required,min=1,max=10000"`
}

// AnnouncementRequest captures an announcement submission.
type AnnouncementRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Body     string `json:"body" validate:"required,min=1,max=10000"`
	Audience string `json:"audience" validate:"required"`
}

// Send delivers a direct message to another account of the same school.
func (s *Service) Send(ctx context.Context, actor *rbac.Principal, req SendRequest) (*Message, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	if req.RecipientID == actor.UserID {
		return nil, ErrRecipientUnknown
	}
	ok, err := s.repo.RecipientExists(ctx, schoolID, req.RecipientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRecipientUnknown
	}
	id, err := s.repo.CreateMessage(ctx, Message{
		SchoolID:    schoolID,
		SenderID:    actor.UserID,
		RecipientID: req.RecipientID,
		Subject:     strings.TrimSpace(req.Subject),
		Body:        req.Body,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetMessage(ctx, schoolID, id)
}

// Inbox lists messages received by the caller plus the unpaged total.
func (s *Service) Inbox(ctx context.Context, actor *rbac.Principal, limit, offset int) ([]Message, int, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.Inbox(ctx, schoolID, actor.UserID, limit, offset)
}

// Sent lists messages sent by the caller plus the unpaged total.
func (s *Service) Sent(ctx context.Context, actor *rbac.Principal, limit, offset int) ([]Message, int, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.Sent(ctx, schoolID, actor.UserID, limit, offset)
}

// Read fetches one message the caller sent or received. Anyone else's
// message is not found, the same as a message of another school.
func (s *Service) Read(ctx context.Context, actor *rbac.Principal, id int64) (*Message, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.GetMessage(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if m.SenderID != actor.UserID && m.RecipientID != actor.UserID {
		return nil, ErrNotFound
	}
	if m.RecipientID == actor.UserID && m.ReadAt == nil {
		if err := s.repo.MarkRead(ctx, schoolID, id, actor.UserID); err != nil {
			return nil, err
		}
		return s.repo.GetMessage(ctx, schoolID, id)
	}
	return m, nil
}

// Announce publishes an announcement to one audience group.
func (s *Service) Announce(ctx context.Context, actor *rbac.Principal, req AnnouncementRequest) (*Announcement, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	audience := Audience(req.Audience)
	if !audience.Valid() {
		return nil, ErrInvalidAudience
	}
	id, err := s.repo.CreateAnnouncement(ctx, Announcement{
		SchoolID: schoolID,
		AuthorID: actor.UserID,
		Title:    strings.TrimSpace(req.Title),
		Body:     req.Body,
		Audience: audience,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetAnnouncement(ctx, schoolID, id)
}

// Announcements lists the announcements visible to the caller's role plus
// the unpaged total.
func (s *Service) Announcements(ctx context.Context, actor *rbac.Principal, limit, offset int) ([]Announcement, int, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListAnnouncements(ctx, schoolID, visibleAudiences(actor.Role), limit, offset)
}

// DeleteAnnouncement removes an announcement.
func (s *Service) DeleteAnnouncement(ctx context.Context, actor *rbac.Principal, id int64) error {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return err
	}
	return s.repo.DeleteAnnouncement(ctx, schoolID, id)
}

func visibleAudiences(role rbac.Role) []Audience {
	switch role {
	case rbac.RoleTeacher:
		return []Audience{AudienceAll, AudienceStaff}
	case rbac.RoleStudent:
		return []Audience{AudienceAll, AudienceStudents}
	case rbac.RoleGuardian:
		return []Audience{AudienceAll, AudienceGuardians}
	}
	return []Audience{AudienceAll, AudienceStaff, AudienceStudents, AudienceGuardians}
}
