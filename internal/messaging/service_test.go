package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpoint/classpoint/internal/rbac"
)

type accountRef struct {
	schoolID int64
	active   bool
}

type mockRepo struct {
	messages      map[int64]*Message
	announcements map[int64]*Announcement
	accounts      map[int64]accountRef
	nextMsg       int64
	nextAnn       int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		messages:      make(map[int64]*Message),
		announcements: make(map[int64]*Announcement),
		accounts:      make(map[int64]accountRef),
		nextMsg:       1,
		nextAnn:       1,
	}
}

func (m *mockRepo) CreateMessage(ctx context.Context, msg Message) (int64, error) {
	id := m.nextMsg
	m.nextMsg++
	msg.ID = id
	msg.CreatedAt = time.Now()
	m.messages[id] = &msg
	return id, nil
}

func (m *mockRepo) GetMessage(ctx context.Context, schoolID, id int64) (*Message, error) {
	msg, ok := m.messages[id]
	if !ok || msg.SchoolID != schoolID {
		return nil, ErrNotFound
	}
	clone := *msg
	return &clone, nil
}

func (m *mockRepo) Inbox(ctx context.Context, schoolID, accountID int64, limit, offset int) ([]Message, int, error) {
	var out []Message
	for _, msg := range m.messages {
		if msg.SchoolID == schoolID && msg.RecipientID == accountID {
			out = append(out, *msg)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) Sent(ctx context.Context, schoolID, accountID int64, limit, offset int) ([]Message, int, error) {
	var out []Message
	for _, msg := range m.messages {
		if msg.SchoolID == schoolID && msg.SenderID == accountID {
			out = append(out, *msg)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) MarkRead(ctx context.Context, schoolID, id, recipientID int64) error {
	msg, ok := m.messages[id]
	if !ok || msg.SchoolID != schoolID || msg.RecipientID != recipientID {
		return ErrNotFound
	}
	now := time.Now()
	msg.ReadAt = &now
	return nil
}

func (m *mockRepo) RecipientExists(ctx context.Context, schoolID, accountID int64) (bool, error) {
	ref, ok := m.accounts[accountID]
	return ok && ref.active && ref.schoolID == schoolID, nil
}

func (m *mockRepo) CreateAnnouncement(ctx context.Context, a Announcement) (int64, error) {
	id := m.nextAnn
	m.nextAnn++
	a.ID = id
	m.announcements[id] = &a
	return id, nil
}

func (m *mockRepo) GetAnnouncement(ctx context.Context, schoolID, id int64) (*Announcement, error) {
	a, ok := m.announcements[id]
	if !ok || a.SchoolID != schoolID {
		return nil, ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *mockRepo) ListAnnouncements(ctx context.Context, schoolID int64, audiences []Audience, limit, offset int) ([]Announcement, int, error) {
	allowed := make(map[Audience]bool, len(audiences))
	for _, a := range audiences {
		allowed[a] = true
	}
	var out []Announcement
	for _, a := range m.announcements {
		if a.SchoolID == schoolID && allowed[a.Audience] {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) DeleteAnnouncement(ctx context.Context, schoolID, id int64) error {
	a, ok := m.announcements[id]
	if !ok || a.SchoolID != schoolID {
		return ErrNotFound
	}
	delete(m.announcements, id)
	return nil
}

func principal(role rbac.Role, userID, schoolID int64) *rbac.Principal {
	return &rbac.Principal{UserID: userID, Role: role, SchoolID: &schoolID, IsActive: true}
}

func TestSendRejectsUnknownCrossSchoolAndSelfAlike(t *testing.T) {
	repo := newMockRepo()
	repo.accounts[2] = accountRef{schoolID: 1, active: true}
	repo.accounts[3] = accountRef{schoolID: 2, active: true}
	repo.accounts[4] = accountRef{schoolID: 1, active: false}
	svc := NewService(repo)
	sender := principal(rbac.RoleTeacher, 1, 1)

	req := func(to int64) SendRequest {
		return SendRequest{RecipientID: to, Subject: "Hi", Body: "Hello"}
	}

	_, err := svc.Send(context.Background(), sender, req(999))
	require.ErrorIs(t, err, ErrRecipientUnknown, "nonexistent account")
	_, err = svc.Send(context.Background(), sender, req(3))
	require.ErrorIs(t, err, ErrRecipientUnknown, "account of another school")
	_, err = svc.Send(context.Background(), sender, req(4))
	require.ErrorIs(t, err, ErrRecipientUnknown, "deactivated account")
	_, err = svc.Send(context.Background(), sender, req(1))
	require.ErrorIs(t, err, ErrRecipientUnknown, "self")

	msg, err := svc.Send(context.Background(), sender, req(2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), msg.RecipientID)
}

func TestReadLimitedToParticipants(t *testing.T) {
	repo := newMockRepo()
	repo.messages[1] = &Message{ID: 1, SchoolID: 1, SenderID: 1, RecipientID: 2, Subject: "Hi"}
	svc := NewService(repo)

	_, err := svc.Read(context.Background(), principal(rbac.RoleTeacher, 3, 1), 1)
	require.ErrorIs(t, err, ErrNotFound, "a bystander reads nothing")

	msg, err := svc.Read(context.Background(), principal(rbac.RoleTeacher, 1, 1), 1)
	require.NoError(t, err)
	assert.Nil(t, msg.ReadAt, "a sender read does not mark the message")

	msg, err = svc.Read(context.Background(), principal(rbac.RoleStudent, 2, 1), 1)
	require.NoError(t, err)
	assert.NotNil(t, msg.ReadAt, "a recipient read marks the message")
}

func TestAnnouncementsFilteredByRoleAudience(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	author := principal(rbac.RoleSchoolAdmin, 1, 1)

	for _, audience := range []string{"all", "staff", "students", "guardians"} {
		_, err := svc.Announce(context.Background(), author, AnnouncementRequest{
			Title: audience, Body: "notice", Audience: audience,
		})
		require.NoError(t, err)
	}

	byRole := map[rbac.Role]int{
		rbac.RoleTeacher:     2, // all + staff
		rbac.RoleStudent:     2, // all + students
		rbac.RoleGuardian:    2, // all + guardians
		rbac.RoleSchoolAdmin: 4,
	}
	for role, want := range byRole {
		list, total, err := svc.Announcements(context.Background(), principal(role, 9, 1), 20, 0)
		require.NoError(t, err)
		assert.Len(t, list, want, "role %s", role)
		assert.Equal(t, want, total)
	}
}

func TestAnnounceRejectsUnknownAudience(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Announce(context.Background(), principal(rbac.RoleSchoolAdmin, 1, 1), AnnouncementRequest{
		Title: "x", Body: "y", Audience: "everyone",
	})
	require.ErrorIs(t, err, ErrInvalidAudience)
}
