package inmemdb

import (
	"context"
	"time"

	"github.com/myhockeyrecruiting/mhr/core/support"
)

type supportRepository struct {
	db *DB
}

var _ support.Repository = (*supportRepository)(nil)

func NewSupportRepository(db *DB) support.Repository {
	return &supportRepository{db: db}
}

func (repo *supportRepository) CreateMessage(_ context.Context, m support.Message) (support.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if m.ID == "" {
		m.ID = newID()
	}
	repo.db.messages[m.ID] = m
	return m, nil
}

func (repo *supportRepository) GetMessage(_ context.Context, id string) (support.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.messages[id]; ok {
		return m, nil
	}
	return support.Message{}, errNotFound
}

func (repo *supportRepository) QueryMessages(_ context.Context, filter support.QueryFilter) ([]support.Message, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]support.Message, 0)
	for _, m := range repo.db.messages {
		if filter.Status == "" || m.Status == filter.Status {
			msgs = append(msgs, m)
		}
	}
	newestFirst(msgs, func(m support.Message) time.Time { return m.CreatedAt })
	total := len(msgs)
	return page(msgs, filter.Limit, filter.Offset), total, nil
}

func (repo *supportRepository) UpdateMessage(_ context.Context, m support.Message) (support.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.messages[m.ID]
	if !ok {
		return support.Message{}, errNotFound
	}
	stored.Status = m.Status
	repo.db.messages[m.ID] = stored
	return m, nil
}

func (repo *supportRepository) CreateReply(_ context.Context, r support.Reply) (support.Reply, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if r.ID == "" {
		r.ID = newID()
	}
	repo.db.replies[r.ID] = r
	return r, nil
}

func (repo *supportRepository) QueryReplies(_ context.Context, messageIDs []string) ([]support.Reply, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	replies := make([]support.Reply, 0)
	for _, r := range repo.db.replies {
		if inSlice(messageIDs, r.MessageID) {
			replies = append(replies, r)
		}
	}
	oldestFirst(replies, func(r support.Reply) time.Time { return r.CreatedAt })
	return replies, nil
}
