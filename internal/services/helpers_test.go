package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/athlos-app/athlos/internal/database/testutil"
	"github.com/athlos-app/athlos/internal/models"
)

type testServices struct {
	db            *gorm.DB
	membership    *MembershipService
	teams         *TeamService
	conversations *ConversationService
	participants  *ParticipantService
	messages      *MessageService
	notifier      *NotificationService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	notifier, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	membership, err := NewMembershipService(db)
	require.NoError(t, err)

	teams, err := NewTeamService(db, notifier)
	require.NoError(t, err)

	conversations, err := NewConversationService(db, membership, notifier)
	require.NoError(t, err)

	participants, err := NewParticipantService(db, membership)
	require.NoError(t, err)

	messages, err := NewMessageService(db, conversations, participants, membership, notifier)
	require.NoError(t, err)

	return &testServices{
		db:            db,
		membership:    membership,
		teams:         teams,
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		notifier:      notifier,
	}
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		ExternalID:  "ext-" + name,
		Email:       name + "@example.com",
		DisplayName: name,
		IsActive:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedInactiveUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		ExternalID:  "ext-" + name,
		Email:       name + "@example.com",
		DisplayName: name,
		IsActive:    false,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func countNotifications(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

func backdate(t *testing.T, db *gorm.DB, model any, id string, createdAt time.Time) {
	t.Helper()

	require.NoError(t, db.Model(model).Where("id = ?", id).UpdateColumn("created_at", createdAt).Error)
}
