package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/athlos-app/athlos/internal/database/testutil"
	"github.com/athlos-app/athlos/internal/models"
)

func seedCleanupUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{ExternalID: "ext-" + name, Email: name + "@example.com", DisplayName: name, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCleanupNotifications(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	user := seedCleanupUser(t, db, "u")

	now := time.Now().UTC()
	expired := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	rows := []models.Notification{
		{UserID: user.ID, Type: "a", ExpiresAt: &expired},
		{UserID: user.ID, Type: "b", ExpiresAt: &future},
		{UserID: user.ID, Type: "c", IsRead: true},
		{UserID: user.ID, Type: "d"},
	}
	require.NoError(t, db.Create(&rows).Error)

	// The read notification predates the retention window.
	require.NoError(t, db.Model(&models.Notification{}).
		Where("id = ?", rows[2].ID).
		UpdateColumn("created_at", now.AddDate(0, 0, -45)).Error)

	removed, err := CleanupNotifications(context.Background(), db, now, 30)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, n := range remaining {
		require.Contains(t, []string{"b", "d"}, n.Type)
	}
}

func TestPruneOrphanedParticipants(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	creator := seedCleanupUser(t, db, "creator")
	member := seedCleanupUser(t, db, "member")
	gone := seedCleanupUser(t, db, "gone")

	team := &models.Team{Name: "Falcons", CreatorID: creator.ID, MemberCount: 2}
	require.NoError(t, db.Create(team).Error)
	require.NoError(t, db.Create(&models.TeamMembership{
		TeamID: team.ID, UserID: member.ID, Role: models.MembershipRoleMember, Status: models.MembershipStatusActive,
	}).Error)

	conversation := &models.Conversation{
		Kind: models.ConversationKindTeamChat, TeamID: &team.ID, CreatorID: creator.ID, IsActive: true,
	}
	require.NoError(t, db.Create(conversation).Error)

	participants := []models.ConversationParticipant{
		{ConversationID: conversation.ID, UserID: creator.ID, Role: models.ParticipantRoleAdmin},
		{ConversationID: conversation.ID, UserID: member.ID, Role: models.ParticipantRoleMember},
		{ConversationID: conversation.ID, UserID: gone.ID, Role: models.ParticipantRoleMember},
	}
	require.NoError(t, db.Create(&participants).Error)

	removed, err := PruneOrphanedParticipants(context.Background(), db)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var ids []string
	require.NoError(t, db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", conversation.ID).
		Pluck("user_id", &ids).Error)
	require.ElementsMatch(t, []string{creator.ID, member.ID}, ids)
}

func TestRemoveEmptyDirectConversations(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	alice := seedCleanupUser(t, db, "alice")
	bob := seedCleanupUser(t, db, "bob")

	now := time.Now().UTC()

	orphan := &models.Conversation{Kind: models.ConversationKindDirect, CreatorID: alice.ID, IsActive: true}
	require.NoError(t, db.Create(orphan).Error)
	require.NoError(t, db.Model(&models.Conversation{}).
		Where("id = ?", orphan.ID).UpdateColumn("created_at", now.Add(-2*time.Hour)).Error)

	// Fresh orphans are spared in case their creation is still in flight.
	fresh := &models.Conversation{Kind: models.ConversationKindDirect, CreatorID: alice.ID, IsActive: true}
	require.NoError(t, db.Create(fresh).Error)

	populated := &models.Conversation{Kind: models.ConversationKindDirect, CreatorID: alice.ID, IsActive: true}
	require.NoError(t, db.Create(populated).Error)
	require.NoError(t, db.Model(&models.Conversation{}).
		Where("id = ?", populated.ID).UpdateColumn("created_at", now.Add(-2*time.Hour)).Error)
	require.NoError(t, db.Create(&[]models.ConversationParticipant{
		{ConversationID: populated.ID, UserID: alice.ID, Role: models.ParticipantRoleAdmin},
		{ConversationID: populated.ID, UserID: bob.ID, Role: models.ParticipantRoleMember},
	}).Error)

	removed, err := RemoveEmptyDirectConversations(context.Background(), db, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining []models.Conversation
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
}

func TestRunOnceAggregates(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	cleaner := NewCleaner(db, WithNow(func() time.Time { return time.Now().UTC() }))
	require.NoError(t, cleaner.RunOnce(context.Background()))
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	cleaner := NewCleaner(db,
		WithNotificationSchedule("@every 1h"),
		WithParticipantSchedule("@every 1h"),
		WithConversationSchedule("@every 1h"),
		WithNotificationRetentionDays(7),
	)
	require.NoError(t, cleaner.Start())

	stopCtx := cleaner.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("cleaner did not stop in time")
	}
}
