package pgrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/contact"
)

const (
	requestSelect = `SELECT r.id, r.coach_profile_id, r.parent_profile_id, r.player_id, r.requested_by, r.status,
		r.created_at, r.updated_at, cu.name AS coach_name, pu.name AS parent_name, pl.name AS player_name
		FROM contact_requests r
		JOIN coach_profiles c ON c.id = r.coach_profile_id
		JOIN users cu ON cu.id = c.user_id
		JOIN parent_profiles pp ON pp.id = r.parent_profile_id
		JOIN users pu ON pu.id = pp.user_id
		LEFT JOIN players pl ON pl.id = r.player_id`

	parentRequestSelect = `SELECT r.id, r.requesting_parent_id, r.target_parent_id, r.player_id, r.status,
		r.created_at, r.updated_at, ru.name AS requesting_parent_name, pl.name AS player_name
		FROM parent_contact_requests r
		JOIN parent_profiles rp ON rp.id = r.requesting_parent_id
		JOIN users ru ON ru.id = rp.user_id
		JOIN players pl ON pl.id = r.player_id`
)

type contactRepository struct {
	repo
}

var _ contact.Repository = (*contactRepository)(nil)

func NewContactRepository(db core.DBExecutor) *contactRepository {
	return &contactRepository{repo{exec: db}}
}

func utcRequest(r contact.Request) contact.Request {
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r
}

func utcParentRequest(r contact.ParentRequest) contact.ParentRequest {
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r
}

func (r contactRepository) CreateRequest(ctx context.Context, req contact.Request) (contact.Request, error) {
	if req.ID == "" {
		req.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO contact_requests (id, coach_profile_id, parent_profile_id, player_id, requested_by, status,
			created_at, updated_at)
		VALUES (:id, :coach_profile_id, :parent_profile_id, :player_id, :requested_by, :status, :created_at, :updated_at)`,
		req,
	)
	if isUniqueViolation(err) {
		return contact.Request{}, contact.ErrDuplicate
	}
	if err != nil {
		return contact.Request{}, errors.Wrap(err, "inserting contact request")
	}
	return r.GetRequest(ctx, req.ID)
}

func (r contactRepository) getRequest(ctx context.Context, w where) (contact.Request, error) {
	var req contact.Request
	query := requestSelect + w.String() + ` LIMIT 1`
	if err := sqlx.GetContext(ctx, r.exec, &req, query, w.args...); err != nil {
		return contact.Request{}, trapNoRowsErr(err, errNotFound, "selecting contact request")
	}
	return utcRequest(req), nil
}

func (r contactRepository) GetRequest(ctx context.Context, id string) (contact.Request, error) {
	var w where
	w.add("r.id = ?", id)
	return r.getRequest(ctx, w)
}

func (r contactRepository) FindRequest(ctx context.Context, coachID, parentID, playerID string) (contact.Request, error) {
	var w where
	w.add("r.coach_profile_id = ?", coachID)
	w.add("r.parent_profile_id = ?", parentID)
	if playerID == "" {
		w.add("r.player_id IS NULL")
	} else {
		w.add("r.player_id = ?", playerID)
	}
	return r.getRequest(ctx, w)
}

func (r contactRepository) QueryRequests(ctx context.Context, filter contact.RequestFilter) ([]contact.Request, error) {
	var w where
	if filter.CoachProfileID != "" {
		w.add("r.coach_profile_id = ?", filter.CoachProfileID)
	}
	if filter.ParentProfileID != "" {
		w.add("r.parent_profile_id = ?", filter.ParentProfileID)
	}
	if filter.RequestedBy != "" {
		w.add("r.requested_by = ?", filter.RequestedBy)
	}

	reqs := []contact.Request{}
	err := sqlx.SelectContext(ctx, r.exec, &reqs, requestSelect+w.String()+` ORDER BY r.created_at DESC`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting contact requests")
	}
	for i := range reqs {
		reqs[i] = utcRequest(reqs[i])
	}
	return reqs, nil
}

func (r contactRepository) UpdateRequest(ctx context.Context, req contact.Request) (contact.Request, error) {
	res, err := sqlx.NamedExecContext(ctx, r.exec,
		`UPDATE contact_requests SET status = :status, requested_by = :requested_by, updated_at = :updated_at
		WHERE id = :id`,
		req,
	)
	if err = checkAffected(res, err, errNotFound, "updating contact request"); err != nil {
		return contact.Request{}, err
	}
	return req, nil
}

func (r contactRepository) CreateParentRequest(ctx context.Context, req contact.ParentRequest) (contact.ParentRequest, error) {
	if req.ID == "" {
		req.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO parent_contact_requests (id, requesting_parent_id, target_parent_id, player_id, status,
			created_at, updated_at)
		VALUES (:id, :requesting_parent_id, :target_parent_id, :player_id, :status, :created_at, :updated_at)`,
		req,
	)
	if isUniqueViolation(err) {
		return contact.ParentRequest{}, contact.ErrDuplicate
	}
	if err != nil {
		return contact.ParentRequest{}, errors.Wrap(err, "inserting parent contact request")
	}
	return r.GetParentRequest(ctx, req.ID)
}

func (r contactRepository) getParentRequest(ctx context.Context, w where) (contact.ParentRequest, error) {
	var req contact.ParentRequest
	if err := sqlx.GetContext(ctx, r.exec, &req, parentRequestSelect+w.String(), w.args...); err != nil {
		return contact.ParentRequest{}, trapNoRowsErr(err, errNotFound, "selecting parent contact request")
	}
	return utcParentRequest(req), nil
}

func (r contactRepository) GetParentRequest(ctx context.Context, id string) (contact.ParentRequest, error) {
	var w where
	w.add("r.id = ?", id)
	return r.getParentRequest(ctx, w)
}

func (r contactRepository) FindParentRequest(ctx context.Context, requestingID, targetID, playerID string) (contact.ParentRequest, error) {
	var w where
	w.add("r.requesting_parent_id = ?", requestingID)
	w.add("r.target_parent_id = ?", targetID)
	w.add("r.player_id = ?", playerID)
	return r.getParentRequest(ctx, w)
}

func (r contactRepository) QueryParentRequests(ctx context.Context, filter contact.ParentRequestFilter) ([]contact.ParentRequest, error) {
	var w where
	if filter.TargetParentID != "" {
		w.add("r.target_parent_id = ?", filter.TargetParentID)
	}
	if filter.RequestingParentID != "" {
		w.add("r.requesting_parent_id = ?", filter.RequestingParentID)
	}
	if filter.Status != "" {
		w.add("r.status = ?", filter.Status)
	}

	reqs := []contact.ParentRequest{}
	err := sqlx.SelectContext(ctx, r.exec, &reqs, parentRequestSelect+w.String()+` ORDER BY r.created_at DESC`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting parent contact requests")
	}
	for i := range reqs {
		reqs[i] = utcParentRequest(reqs[i])
	}
	return reqs, nil
}

func (r contactRepository) UpdateParentRequest(ctx context.Context, req contact.ParentRequest) (contact.ParentRequest, error) {
	res, err := sqlx.NamedExecContext(ctx, r.exec,
		`UPDATE parent_contact_requests SET status = :status, updated_at = :updated_at WHERE id = :id`,
		req,
	)
	if err = checkAffected(res, err, errNotFound, "updating parent contact request"); err != nil {
		return contact.ParentRequest{}, err
	}
	return req, nil
}
