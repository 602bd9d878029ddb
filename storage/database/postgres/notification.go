package pgrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/notification"
)

const notificationColumns = `id, user_id, type, title, body, link_url, read, created_at`

type notificationRepository struct {
	repo
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db core.DBExecutor) *notificationRepository {
	return &notificationRepository{repo{exec: db}}
}

func (r notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.getExec(exec),
		`INSERT INTO notifications (`+notificationColumns+`)
		VALUES (:id, :user_id, :type, :title, :body, :link_url, :read, :created_at)`,
		n,
	)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (r notificationRepository) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	var n notification.Notification
	err := sqlx.GetContext(ctx, r.exec, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, errNotFound, "selecting notification")
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return n, nil
}

func (r notificationRepository) QueryNotifications(ctx context.Context, userID string, filter notification.QueryFilter) ([]notification.Notification, error) {
	var w where
	w.add("user_id = ?", userID)
	if filter.UnreadOnly {
		w.add("NOT read")
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications` + w.String() + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.arg(filter.Limit)
	}

	notifications := []notification.Notification{}
	if err := sqlx.SelectContext(ctx, r.exec, &notifications, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting notifications")
	}
	for i := range notifications {
		notifications[i].CreatedAt = notifications[i].CreatedAt.UTC()
	}
	return notifications, nil
}

func (r notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.exec, &n, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID)
	return n, errors.Wrap(err, "counting unread notifications")
}

func (r notificationRepository) MarkRead(ctx context.Context, id string) error {
	res, err := r.exec.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	return checkAffected(res, err, errNotFound, "marking notification read")
}

func (r notificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	res, err := r.exec.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "marking notifications read")
}
