package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
)

// Notification types
const (
	TypeRequest  = "request"
	TypeReview   = "review"
	TypeMessage  = "message"
	TypeVerified = "verified"
	TypeGeneral  = "general"
)

var ErrNotFound = core.NewNotFoundError("Not found")

type (
	Notification struct {
		ID        string      `json:"id" db:"id"`
		UserID    string      `json:"userId" db:"user_id"`
		Type      string      `json:"type" db:"type"`
		Title     string      `json:"title" db:"title"`
		Body      null.String `json:"body" db:"body"`
		LinkURL   null.String `json:"linkUrl" db:"link_url"`
		Read      bool        `json:"read" db:"read"`
		CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	}

	QueryFilter struct {
		UnreadOnly bool `query:"unreadOnly"`
		Limit      int  `query:"limit"`
	}

	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		GetNotification(ctx context.Context, id string) (Notification, error)
		// QueryNotifications lists the notifications of a user, newest first.
		QueryNotifications(ctx context.Context, userID string, filter QueryFilter) ([]Notification, error)
		CountUnread(ctx context.Context, userID string) (int, error)
		MarkRead(ctx context.Context, id string) error
		MarkAllRead(ctx context.Context, userID string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores an in-app notification for userID.
func (svc *Service) Create(ctx context.Context, userID, typ, title, body, link string, exec ...core.DBExecutor) (Notification, error) {
	switch typ {
	case TypeRequest, TypeReview, TypeMessage, TypeVerified, TypeGeneral:
	default:
		typ = TypeGeneral
	}
	return svc.repo.CreateNotification(ctx, Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      null.NewString(body, body != ""),
		LinkURL:   null.NewString(link, link != ""),
		CreatedAt: time.Now().UTC(),
	}, exec...)
}

func (svc *Service) List(ctx context.Context, userID string, filter QueryFilter) ([]Notification, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return svc.repo.QueryNotifications(ctx, userID, filter)
}

func (svc *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnread(ctx, userID)
}

// MarkRead marks a notification of userID as read. Notifications of other users are not found.
func (svc *Service) MarkRead(ctx context.Context, userID, id string) error {
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrNotFound
		}
		return errors.Wrap(err, "getting notification")
	}
	if n.UserID != userID {
		return ErrNotFound
	}
	return svc.repo.MarkRead(ctx, id)
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return svc.repo.MarkAllRead(ctx, userID)
}
