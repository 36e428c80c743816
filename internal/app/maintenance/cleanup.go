package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/athlos-app/athlos/internal/models"
	"github.com/athlos-app/athlos/pkg/logger"
)

const (
	defaultNotificationRetentionDays = 30
	defaultNotificationSpec          = "@daily"
	defaultParticipantSpec           = "@hourly"
	defaultConversationSpec          = "@daily"
)

// Cleaner coordinates background maintenance tasks: purging expired
// notifications, pruning participant rows for users no longer on the roster,
// and removing direct conversations left without participants by a failed
// creation.
type Cleaner struct {
	db        *gorm.DB
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int

	notificationSchedule string
	participantSchedule  string
	conversationSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithNotificationRetentionDays adjusts how long read notifications are retained.
func WithNotificationRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithNotificationSchedule overrides the cron specification for notification cleanup.
func WithNotificationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.notificationSchedule = spec
		}
	}
}

// WithParticipantSchedule overrides the cron specification for participant pruning.
func WithParticipantSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.participantSchedule = spec
		}
	}
}

// WithConversationSchedule overrides the cron specification for conversation cleanup.
func WithConversationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.conversationSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                   db,
		now:                  time.Now,
		retention:            defaultNotificationRetentionDays,
		notificationSchedule: defaultNotificationSpec,
		participantSchedule:  defaultParticipantSpec,
		conversationSchedule: defaultConversationSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	jobs := []struct {
		spec string
		name string
		run  func(context.Context) (int64, error)
	}{
		{c.notificationSchedule, "notification cleanup", func(ctx context.Context) (int64, error) {
			return CleanupNotifications(ctx, c.db, c.now(), c.retention)
		}},
		{c.participantSchedule, "participant pruning", func(ctx context.Context) (int64, error) {
			return PruneOrphanedParticipants(ctx, c.db)
		}},
		{c.conversationSchedule, "conversation cleanup", func(ctx context.Context) (int64, error) {
			return RemoveEmptyDirectConversations(ctx, c.db, c.now())
		}},
	}

	for _, job := range jobs {
		job := job
		if _, err := c.cron.AddFunc(job.spec, func() {
			if _, err := job.run(context.Background()); err != nil {
				c.log.Warn(job.name+" failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.db == nil {
		return nil
	}

	var errs error

	if _, err := CleanupNotifications(ctx, c.db, c.now(), c.retention); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := PruneOrphanedParticipants(ctx, c.db); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := RemoveEmptyDirectConversations(ctx, c.db, c.now()); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}

// CleanupNotifications removes expired notifications along with read ones
// older than the retention window.
func CleanupNotifications(ctx context.Context, db *gorm.DB, now time.Time, retentionDays int) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup notifications: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if retentionDays <= 0 {
		retentionDays = defaultNotificationRetentionDays
	}

	cutoff := now.AddDate(0, 0, -retentionDays)

	result := db.WithContext(ctx).
		Where("(expires_at IS NOT NULL AND expires_at < ?) OR (is_read = ? AND created_at < ?)", now, true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// PruneOrphanedParticipants removes participant rows for team conversations
// whose user no longer holds an active membership and is not the team
// creator. The lazy auto-join repopulates rows for anyone who returns.
func PruneOrphanedParticipants(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, errors.New("prune participants: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where(`id IN (
			SELECT cp.id FROM conversation_participants cp
			JOIN conversations c ON c.id = cp.conversation_id
			JOIN teams t ON t.id = c.team_id
			WHERE c.team_id IS NOT NULL
			  AND t.creator_id <> cp.user_id
			  AND NOT EXISTS (
				SELECT 1 FROM team_memberships tm
				WHERE tm.team_id = c.team_id
				  AND tm.user_id = cp.user_id
				  AND tm.status = ?
			  )
		)`, models.MembershipStatusActive).
		Delete(&models.ConversationParticipant{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// RemoveEmptyDirectConversations deletes direct conversations that have no
// participant rows. These only appear when a creation was interrupted after
// the conversation insert, so an age guard keeps in-flight creations safe.
func RemoveEmptyDirectConversations(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("remove conversations: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := now.Add(-time.Hour)

	result := db.WithContext(ctx).
		Where(`kind = ? AND created_at < ? AND NOT EXISTS (
			SELECT 1 FROM conversation_participants cp WHERE cp.conversation_id = conversations.id
		)`, models.ConversationKindDirect, cutoff).
		Delete(&models.Conversation{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
