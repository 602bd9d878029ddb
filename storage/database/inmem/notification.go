package inmemdb

import (
	"context"
	"time"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if n.ID == "" {
		n.ID = newID()
	}
	repo.db.notifications[n.ID] = n
	return n, nil
}

func (repo *notificationRepository) GetNotification(_ context.Context, id string) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.notifications[id]; ok {
		return n, nil
	}
	return notification.Notification{}, errNotFound
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, userID string, filter notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notifications := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.UserID == userID && (!filter.UnreadOnly || !n.Read) {
			notifications = append(notifications, n)
		}
	}
	newestFirst(notifications, func(n notification.Notification) time.Time { return n.CreatedAt })
	return page(notifications, filter.Limit, 0), nil
}

func (repo *notificationRepository) CountUnread(_ context.Context, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, n := range repo.db.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.notifications[id]
	if !ok {
		return errNotFound
	}
	n.Read = true
	repo.db.notifications[id] = n
	return nil
}

func (repo *notificationRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var count int
	for id, n := range repo.db.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			repo.db.notifications[id] = n
			count++
		}
	}
	return count, nil
}
