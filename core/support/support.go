package support

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
)

// Message statuses
const (
	StatusNew      = "new"
	StatusRead     = "read"
	StatusArchived = "archived"
)

var ErrNotFound = core.NewNotFoundError("Not found")

type (
	Message struct {
		ID        string      `json:"id" db:"id"`
		UserID    null.String `json:"userId" db:"user_id"`
		FirstName string      `json:"firstName" db:"first_name"`
		LastName  string      `json:"lastName" db:"last_name"`
		Email     string      `json:"email" db:"email"`
		Topic     string      `json:"topic" db:"topic"`
		Message   string      `json:"message" db:"message"`
		Status    string      `json:"status" db:"status"`
		CreatedAt time.Time   `json:"createdAt" db:"created_at"`

		Replies []Reply `json:"replies" db:"-"`
	}

	Reply struct {
		ID        string    `json:"id" db:"id"`
		MessageID string    `json:"contactMessageId" db:"message_id"`
		AuthorID  string    `json:"authorId" db:"author_id"`
		Message   string    `json:"message" db:"message"`
		CreatedAt time.Time `json:"createdAt" db:"created_at"`
	}

	NewMessage struct {
		FirstName string `json:"firstName" validate:"required"`
		LastName  string `json:"lastName" validate:"required"`
		Email     string `json:"email" validate:"required,email"`
		Topic     string `json:"topic" validate:"required"`
		Message   string `json:"message" validate:"required,min=10"`
	}

	NewReply struct {
		Message string `json:"message" validate:"required"`
	}

	SetStatus struct {
		Status string `json:"status" validate:"required,oneof=new read archived"`
	}

	QueryFilter struct {
		core.Pagination
		Status string `query:"status"`
	}

	Repository interface {
		CreateMessage(ctx context.Context, m Message) (Message, error)
		GetMessage(ctx context.Context, id string) (Message, error)
		// QueryMessages lists messages newest first and counts every message matching filter.
		QueryMessages(ctx context.Context, filter QueryFilter) ([]Message, int, error)
		UpdateMessage(ctx context.Context, m Message) (Message, error)

		CreateReply(ctx context.Context, r Reply) (Reply, error)
		// QueryReplies lists the replies of the messages, oldest first.
		QueryReplies(ctx context.Context, messageIDs []string) ([]Reply, error)
	}

	Service struct {
		repo     Repository
		notifier core.EventNotifier
	}
)

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.FirstName = strings.TrimSpace(nm.FirstName)
	nm.LastName = strings.TrimSpace(nm.LastName)
	nm.Email = strings.ToLower(strings.TrimSpace(nm.Email))
	nm.Topic = strings.TrimSpace(nm.Topic)
	nm.Message = strings.TrimSpace(nm.Message)
	return validate.Struct(nm)
}

func (nr *NewReply) Validate(validate *validator.Validate) error {
	nr.Message = strings.TrimSpace(nr.Message)
	return validate.Struct(nr)
}

func (ss SetStatus) Validate(validate *validator.Validate) error { return validate.Struct(ss) }

func NewService(repo Repository, notifier core.EventNotifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Submit stores a message of the contact form. userID is empty for anonymous visitors.
func (svc *Service) Submit(ctx context.Context, userID string, nm NewMessage) (Message, error) {
	m, err := svc.repo.CreateMessage(ctx, Message{
		UserID:    null.NewString(userID, userID != ""),
		FirstName: nm.FirstName,
		LastName:  nm.LastName,
		Email:     nm.Email,
		Topic:     nm.Topic,
		Message:   nm.Message,
		Status:    StatusNew,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "creating contact message")
	}
	svc.notifier.Notify(core.EventContactMessage, map[string]interface{}{
		"id":        m.ID,
		"firstName": m.FirstName,
		"lastName":  m.LastName,
		"email":     m.Email,
		"topic":     m.Topic,
		"message":   m.Message,
		"createdAt": m.CreatedAt.Format(time.RFC3339),
	})
	return m, nil
}

// List returns a page of messages with their replies, and the total count.
func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Message, int, error) {
	filter.Pagination.Clean(100, 10000)
	switch filter.Status {
	case StatusNew, StatusRead, StatusArchived:
	default:
		filter.Status = ""
	}
	msgs, total, err := svc.repo.QueryMessages(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying contact messages")
	}
	if msgs, err = svc.withReplies(ctx, msgs); err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// ZapierList lists the newest messages for automation pulls, new ones by default.
func (svc *Service) ZapierList(ctx context.Context, status string, limit int) ([]Message, error) {
	if status == "" {
		status = StatusNew
	}
	filter := QueryFilter{Status: status, Pagination: core.Pagination{Limit: limit}}
	filter.Pagination.Clean(50, 100)
	msgs, _, err := svc.repo.QueryMessages(ctx, filter)
	return msgs, errors.Wrap(err, "querying contact messages")
}

func (svc *Service) withReplies(ctx context.Context, msgs []Message) ([]Message, error) {
	if len(msgs) == 0 {
		return []Message{}, nil
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	replies, err := svc.repo.QueryReplies(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying contact replies")
	}
	byMsg := make(map[string][]Reply, len(msgs))
	for _, r := range replies {
		byMsg[r.MessageID] = append(byMsg[r.MessageID], r)
	}
	for i := range msgs {
		msgs[i].Replies = byMsg[msgs[i].ID]
		if msgs[i].Replies == nil {
			msgs[i].Replies = []Reply{}
		}
	}
	return msgs, nil
}

func (svc *Service) get(ctx context.Context, id string) (Message, error) {
	m, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Message{}, ErrNotFound
		}
		return Message{}, errors.Wrap(err, "getting contact message")
	}
	return m, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Message, error) {
	m, err := svc.get(ctx, id)
	if err != nil {
		return Message{}, err
	}
	msgs, err := svc.withReplies(ctx, []Message{m})
	if err != nil {
		return Message{}, err
	}
	return msgs[0], nil
}

func (svc *Service) Reply(ctx context.Context, adminID, id string, nr NewReply) (Reply, error) {
	if _, err := svc.get(ctx, id); err != nil {
		return Reply{}, err
	}
	return svc.repo.CreateReply(ctx, Reply{
		MessageID: id,
		AuthorID:  adminID,
		Message:   nr.Message,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) SetStatus(ctx context.Context, id string, ss SetStatus) (Message, error) {
	m, err := svc.get(ctx, id)
	if err != nil {
		return Message{}, err
	}
	m.Status = ss.Status
	return svc.repo.UpdateMessage(ctx, m)
}
