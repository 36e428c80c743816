package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/athlos-app/athlos/internal/models"
	apperrors "github.com/athlos-app/athlos/pkg/errors"
)

func TestFanoutWritesOneRowPerRecipient(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	a := seedUser(t, svc.db, "a")
	b := seedUser(t, svc.db, "b")

	created := svc.notifier.Fanout(ctx, []string{a.ID, b.ID, a.ID, "  ", b.ID}, FanoutInput{
		Type:  "test.event",
		Title: "Hello",
		Body:  "body",
		Payload: map[string]any{
			"key": "value",
		},
	})
	require.Equal(t, 2, created)

	require.EqualValues(t, 1, countNotifications(t, svc.db, a.ID))
	require.EqualValues(t, 1, countNotifications(t, svc.db, b.ID))

	var row models.Notification
	require.NoError(t, svc.db.First(&row, "user_id = ?", a.ID).Error)
	require.Equal(t, "test.event", row.Type)
	require.JSONEq(t, `{"key":"value"}`, string(row.Payload))
}

func TestFanoutWithoutTypeWritesNothing(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	a := seedUser(t, svc.db, "a")

	created := svc.notifier.Fanout(ctx, []string{a.ID}, FanoutInput{Title: "no type"})
	require.Zero(t, created)
	require.EqualValues(t, 0, countNotifications(t, svc.db, a.ID))
}

func TestListForUserFiltersAndPages(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	a := seedUser(t, svc.db, "a")
	b := seedUser(t, svc.db, "b")

	svc.notifier.Fanout(ctx, []string{a.ID}, FanoutInput{Type: "one", Title: "1"})
	svc.notifier.Fanout(ctx, []string{a.ID}, FanoutInput{Type: "two", Title: "2"})
	svc.notifier.Fanout(ctx, []string{b.ID}, FanoutInput{Type: "other", Title: "x"})

	expired := time.Now().Add(-time.Minute)
	svc.notifier.Fanout(ctx, []string{a.ID}, FanoutInput{Type: "stale", Title: "gone", ExpiresAt: &expired})

	rows, err := svc.notifier.ListForUser(ctx, ListNotificationsInput{UserID: a.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = svc.notifier.ListForUser(ctx, ListNotificationsInput{UserID: a.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestReadStateTransitions(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	a := seedUser(t, svc.db, "a")
	svc.notifier.Fanout(ctx, []string{a.ID}, FanoutInput{Type: "event", Title: "t"})

	var row models.Notification
	require.NoError(t, svc.db.First(&row, "user_id = ?", a.ID).Error)
	require.False(t, row.IsRead)

	read, err := svc.notifier.MarkRead(ctx, a.ID, row.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	unread, err := svc.notifier.MarkUnread(ctx, a.ID, row.ID)
	require.NoError(t, err)
	require.False(t, unread.IsRead)
	require.Nil(t, unread.ReadAt)

	rows, err := svc.notifier.ListForUser(ctx, ListNotificationsInput{UserID: a.ID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestNotificationOwnershipEnforced(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	a := seedUser(t, svc.db, "a")
	b := seedUser(t, svc.db, "b")
	svc.notifier.Fanout(ctx, []string{a.ID}, FanoutInput{Type: "event", Title: "t"})

	var row models.Notification
	require.NoError(t, svc.db.First(&row, "user_id = ?", a.ID).Error)

	_, err := svc.notifier.MarkRead(ctx, b.ID, row.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.ErrorIs(t, svc.notifier.Delete(ctx, b.ID, row.ID), apperrors.ErrNotFound)
	require.NoError(t, svc.notifier.Delete(ctx, a.ID, row.ID))
}

func TestMarkAllRead(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	a := seedUser(t, svc.db, "a")
	svc.notifier.Fanout(ctx, []string{a.ID}, FanoutInput{Type: "one", Title: "1"})
	svc.notifier.Fanout(ctx, []string{a.ID}, FanoutInput{Type: "two", Title: "2"})

	require.NoError(t, svc.notifier.MarkAllRead(ctx, a.ID))

	rows, err := svc.notifier.ListForUser(ctx, ListNotificationsInput{UserID: a.ID, UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, rows)
}
