package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/athlos-app/athlos/internal/models"
	apperrors "github.com/athlos-app/athlos/pkg/errors"
)

func TestPostMessageHappyPath(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	alice := seedUser(t, svc.db, "alice")
	bob := seedUser(t, svc.db, "bob")

	conversation, err := svc.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	before := countNotifications(t, svc.db, bob.ID)

	message, err := svc.messages.PostMessage(ctx, PostMessageInput{
		ConversationID: conversation.ID,
		SenderID:       alice.ID,
		Content:        "  see you at practice  ",
	})
	require.NoError(t, err)
	require.Equal(t, "see you at practice", message.Content)
	require.Equal(t, models.MessageTypeText, message.Type)

	// The other participant is notified; the sender is not.
	require.EqualValues(t, before+1, countNotifications(t, svc.db, bob.ID))
	require.EqualValues(t, 0, countNotifications(t, svc.db, alice.ID))
}

func TestPostMessageValidation(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	alice := seedUser(t, svc.db, "alice")
	bob := seedUser(t, svc.db, "bob")

	conversation, err := svc.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	cases := []PostMessageInput{
		{ConversationID: conversation.ID, SenderID: alice.ID, Content: "   "},
		{ConversationID: conversation.ID, SenderID: alice.ID, Content: ""},
		{ConversationID: conversation.ID, SenderID: alice.ID, Content: "hi", Type: "video"},
	}
	for _, input := range cases {
		_, err := svc.messages.PostMessage(ctx, input)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, 400, appErr.StatusCode)
	}

	var count int64
	require.NoError(t, svc.db.Model(&models.Message{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestPostMessageOutsiderForbidden(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	alice := seedUser(t, svc.db, "alice")
	bob := seedUser(t, svc.db, "bob")
	mallory := seedUser(t, svc.db, "mallory")

	conversation, err := svc.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.messages.PostMessage(ctx, PostMessageInput{
		ConversationID: conversation.ID,
		SenderID:       mallory.ID,
		Content:        "let me in",
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	// No message row and no notifications leaked.
	var count int64
	require.NoError(t, svc.db.Model(&models.Message{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
	require.EqualValues(t, 0, countNotifications(t, svc.db, alice.ID))
	require.EqualValues(t, 0, countNotifications(t, svc.db, bob.ID))
}

func TestPostMessageFansOutToOtherParticipants(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	creator := seedUser(t, svc.db, "creator")
	p2 := seedUser(t, svc.db, "p2")
	p3 := seedUser(t, svc.db, "p3")

	team, err := svc.teams.Create(ctx, CreateTeamInput{Name: "Falcons", CreatorID: creator.ID})
	require.NoError(t, err)
	_, err = svc.teams.Join(ctx, team.ID, p2.ID)
	require.NoError(t, err)
	_, err = svc.teams.Join(ctx, team.ID, p3.ID)
	require.NoError(t, err)

	conversation, err := svc.conversations.GetOrCreateTeamConversation(ctx, team.ID, models.ConversationKindTeamChat)
	require.NoError(t, err)

	p2Before := countNotifications(t, svc.db, p2.ID)
	p3Before := countNotifications(t, svc.db, p3.ID)
	creatorBefore := countNotifications(t, svc.db, creator.ID)

	_, err = svc.messages.PostMessage(ctx, PostMessageInput{
		ConversationID: conversation.ID,
		SenderID:       creator.ID,
		Content:        "training moved to 6pm",
	})
	require.NoError(t, err)

	require.EqualValues(t, p2Before+1, countNotifications(t, svc.db, p2.ID))
	require.EqualValues(t, p3Before+1, countNotifications(t, svc.db, p3.ID))
	require.EqualValues(t, creatorBefore, countNotifications(t, svc.db, creator.ID))
}

func TestAnnouncementRequiresCaptain(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	creator := seedUser(t, svc.db, "creator")
	member := seedUser(t, svc.db, "member")

	team, err := svc.teams.Create(ctx, CreateTeamInput{Name: "Falcons", CreatorID: creator.ID})
	require.NoError(t, err)
	_, err = svc.teams.Join(ctx, team.ID, member.ID)
	require.NoError(t, err)

	conversation, err := svc.conversations.GetOrCreateTeamConversation(ctx, team.ID, models.ConversationKindTeamAnnouncement)
	require.NoError(t, err)

	creatorBefore := countNotifications(t, svc.db, creator.ID)

	_, err = svc.messages.PostMessage(ctx, PostMessageInput{
		ConversationID: conversation.ID,
		SenderID:       member.ID,
		Content:        "I say we cancel practice",
		Type:           models.MessageTypeAnnouncement,
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	var count int64
	require.NoError(t, svc.db.Model(&models.Message{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
	require.EqualValues(t, creatorBefore, countNotifications(t, svc.db, creator.ID))
}

func TestAnnouncementNotifiesWholeRoster(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	creator := seedUser(t, svc.db, "creator")
	m1 := seedUser(t, svc.db, "m1")
	m2 := seedUser(t, svc.db, "m2")

	team, err := svc.teams.Create(ctx, CreateTeamInput{Name: "Falcons", CreatorID: creator.ID})
	require.NoError(t, err)
	_, err = svc.teams.Join(ctx, team.ID, m1.ID)
	require.NoError(t, err)

	conversation, err := svc.conversations.GetOrCreateTeamConversation(ctx, team.ID, models.ConversationKindTeamAnnouncement)
	require.NoError(t, err)

	// m2 joins after the conversation exists and holds no participant row,
	// yet announcements reach the full roster.
	_, err = svc.teams.Join(ctx, team.ID, m2.ID)
	require.NoError(t, err)

	m1Before := countNotifications(t, svc.db, m1.ID)
	m2Before := countNotifications(t, svc.db, m2.ID)
	creatorBefore := countNotifications(t, svc.db, creator.ID)

	message, err := svc.messages.PostMessage(ctx, PostMessageInput{
		ConversationID: conversation.ID,
		SenderID:       creator.ID,
		Content:        "match day is Saturday",
		Type:           models.MessageTypeAnnouncement,
		Priority:       "high",
	})
	require.NoError(t, err)
	require.NotNil(t, message.Priority)
	require.Equal(t, "high", *message.Priority)

	require.EqualValues(t, m1Before+1, countNotifications(t, svc.db, m1.ID))
	require.EqualValues(t, m2Before+1, countNotifications(t, svc.db, m2.ID))
	require.EqualValues(t, creatorBefore, countNotifications(t, svc.db, creator.ID))
}

func TestAnnouncementRejectedInDirectConversation(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	alice := seedUser(t, svc.db, "alice")
	bob := seedUser(t, svc.db, "bob")

	conversation, err := svc.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.messages.PostMessage(ctx, PostMessageInput{
		ConversationID: conversation.ID,
		SenderID:       alice.ID,
		Content:        "hear ye",
		Type:           models.MessageTypeAnnouncement,
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
}

func TestListMessagesExcludesSoftDeleted(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	alice := seedUser(t, svc.db, "alice")
	bob := seedUser(t, svc.db, "bob")

	conversation, err := svc.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	first, err := svc.messages.PostMessage(ctx, PostMessageInput{ConversationID: conversation.ID, SenderID: alice.ID, Content: "one"})
	require.NoError(t, err)
	_, err = svc.messages.PostMessage(ctx, PostMessageInput{ConversationID: conversation.ID, SenderID: bob.ID, Content: "two"})
	require.NoError(t, err)

	require.NoError(t, svc.messages.DeleteMessage(ctx, first.ID, alice.ID))

	rows, err := svc.messages.ListMessages(ctx, ListMessagesInput{ConversationID: conversation.ID, CallerID: alice.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "two", rows[0].Content)

	// The row survives as soft-deleted storage.
	var count int64
	require.NoError(t, svc.db.Model(&models.Message{}).Where("conversation_id = ?", conversation.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestListMessagesOutsiderForbidden(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	alice := seedUser(t, svc.db, "alice")
	bob := seedUser(t, svc.db, "bob")
	mallory := seedUser(t, svc.db, "mallory")

	conversation, err := svc.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.messages.ListMessages(ctx, ListMessagesInput{ConversationID: conversation.ID, CallerID: mallory.ID})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestDeleteMessagePermissions(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	alice := seedUser(t, svc.db, "alice")
	bob := seedUser(t, svc.db, "bob")

	conversation, err := svc.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	message, err := svc.messages.PostMessage(ctx, PostMessageInput{ConversationID: conversation.ID, SenderID: bob.ID, Content: "oops"})
	require.NoError(t, err)

	// alice is the direct conversation's admin, so she may remove bob's
	// message; bob as sender may remove his own.
	require.NoError(t, svc.messages.DeleteMessage(ctx, message.ID, alice.ID))
	require.ErrorIs(t, svc.messages.DeleteMessage(ctx, message.ID, alice.ID), ErrMessageNotFound)

	second, err := svc.messages.PostMessage(ctx, PostMessageInput{ConversationID: conversation.ID, SenderID: alice.ID, Content: "mine"})
	require.NoError(t, err)
	require.ErrorIs(t, svc.messages.DeleteMessage(ctx, second.ID, bob.ID), apperrors.ErrForbidden)
}
