package pgrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/support"
)

const messageColumns = `id, user_id, first_name, last_name, email, topic, message, status, created_at`

type supportRepository struct {
	repo
}

var _ support.Repository = (*supportRepository)(nil)

func NewSupportRepository(db core.DBExecutor) *supportRepository {
	return &supportRepository{repo{exec: db}}
}

func (r supportRepository) CreateMessage(ctx context.Context, m support.Message) (support.Message, error) {
	if m.ID == "" {
		m.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO contact_messages (`+messageColumns+`)
		VALUES (:id, :user_id, :first_name, :last_name, :email, :topic, :message, :status, :created_at)`,
		m,
	)
	if err != nil {
		return support.Message{}, errors.Wrap(err, "inserting contact message")
	}
	return m, nil
}

func (r supportRepository) GetMessage(ctx context.Context, id string) (support.Message, error) {
	var m support.Message
	if err := sqlx.GetContext(ctx, r.exec, &m, `SELECT `+messageColumns+` FROM contact_messages WHERE id = $1`, id); err != nil {
		return support.Message{}, trapNoRowsErr(err, errNotFound, "selecting contact message")
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

func (r supportRepository) QueryMessages(ctx context.Context, filter support.QueryFilter) ([]support.Message, int, error) {
	var w where
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.exec, &total, `SELECT COUNT(*) FROM contact_messages`+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting contact messages")
	}

	query := `SELECT ` + messageColumns + ` FROM contact_messages` + w.String() + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.arg(filter.Limit) + ` OFFSET ` + w.arg(filter.Offset)
	}
	msgs := []support.Message{}
	if err := sqlx.SelectContext(ctx, r.exec, &msgs, query, w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting contact messages")
	}
	for i := range msgs {
		msgs[i].CreatedAt = msgs[i].CreatedAt.UTC()
	}
	return msgs, total, nil
}

func (r supportRepository) UpdateMessage(ctx context.Context, m support.Message) (support.Message, error) {
	res, err := r.exec.ExecContext(ctx, `UPDATE contact_messages SET status = $2 WHERE id = $1`, m.ID, m.Status)
	if err = checkAffected(res, err, errNotFound, "updating contact message"); err != nil {
		return support.Message{}, err
	}
	return m, nil
}

func (r supportRepository) CreateReply(ctx context.Context, rp support.Reply) (support.Reply, error) {
	if rp.ID == "" {
		rp.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO contact_replies (id, message_id, author_id, message, created_at)
		VALUES (:id, :message_id, :author_id, :message, :created_at)`,
		rp,
	)
	if err != nil {
		return support.Reply{}, errors.Wrap(err, "inserting contact reply")
	}
	return rp, nil
}

func (r supportRepository) QueryReplies(ctx context.Context, messageIDs []string) ([]support.Reply, error) {
	replies := []support.Reply{}
	if len(messageIDs) == 0 {
		return replies, nil
	}
	query, args, err := inQuery(
		`SELECT id, message_id, author_id, message, created_at FROM contact_replies
		WHERE message_id IN (?) ORDER BY created_at`,
		messageIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "building replies query")
	}
	if err = sqlx.SelectContext(ctx, r.exec, &replies, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting contact replies")
	}
	for i := range replies {
		replies[i].CreatedAt = replies[i].CreatedAt.UTC()
	}
	return replies, nil
}
