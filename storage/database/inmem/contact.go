package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core/contact"
)

type contactRepository struct {
	db *DB
}

var _ contact.Repository = (*contactRepository)(nil)

func NewContactRepository(db *DB) contact.Repository {
	return &contactRepository{db: db}
}

// parentName and coachName resolve a profile to its user's name. The caller holds the lock.
func (db *DB) parentName(profileID string) string {
	return db.users[db.parents[profileID].UserID].Name
}

func (db *DB) coachName(profileID string) string {
	return db.users[db.coaches[profileID].UserID].Name
}

// withNames fills the joined names of r. The caller holds the lock.
func (repo *contactRepository) withNames(r contact.Request) contact.Request {
	r.CoachName = repo.db.coachName(r.CoachProfileID)
	r.ParentName = repo.db.parentName(r.ParentProfileID)
	r.PlayerName = null.String{}
	if p, ok := repo.db.players[r.PlayerID.String]; ok && r.PlayerID.Valid {
		r.PlayerName = null.StringFrom(p.Name)
	}
	return r
}

func (repo *contactRepository) withParentNames(r contact.ParentRequest) contact.ParentRequest {
	r.RequestingParentName = repo.db.parentName(r.RequestingParentID)
	r.PlayerName = repo.db.players[r.PlayerID].Name
	return r
}

func (repo *contactRepository) CreateRequest(_ context.Context, r contact.Request) (contact.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.findRequest(r.CoachProfileID, r.ParentProfileID, r.PlayerID.String); ok {
		return contact.Request{}, contact.ErrDuplicate
	}
	if r.ID == "" {
		r.ID = newID()
	}
	repo.db.requests[r.ID] = r
	return repo.withNames(r), nil
}

func (repo *contactRepository) GetRequest(_ context.Context, id string) (contact.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.requests[id]; ok {
		return repo.withNames(r), nil
	}
	return contact.Request{}, errNotFound
}

// findRequest matches the coach/parent/player triple. The caller holds the lock.
func (repo *contactRepository) findRequest(coachID, parentID, playerID string) (contact.Request, bool) {
	for _, r := range repo.db.requests {
		if r.CoachProfileID != coachID || r.ParentProfileID != parentID {
			continue
		}
		if (playerID == "" && r.PlayerID.Valid) || (playerID != "" && r.PlayerID.String != playerID) {
			continue
		}
		return r, true
	}
	return contact.Request{}, false
}

func (repo *contactRepository) FindRequest(_ context.Context, coachID, parentID, playerID string) (contact.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.findRequest(coachID, parentID, playerID); ok {
		return repo.withNames(r), nil
	}
	return contact.Request{}, errNotFound
}

func (repo *contactRepository) QueryRequests(_ context.Context, filter contact.RequestFilter) ([]contact.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := make([]contact.Request, 0)
	for _, r := range repo.db.requests {
		switch {
		case filter.CoachProfileID != "" && r.CoachProfileID != filter.CoachProfileID:
		case filter.ParentProfileID != "" && r.ParentProfileID != filter.ParentProfileID:
		case filter.RequestedBy != "" && r.RequestedBy != filter.RequestedBy:
		default:
			reqs = append(reqs, repo.withNames(r))
		}
	}
	newestFirst(reqs, func(r contact.Request) time.Time { return r.CreatedAt })
	return reqs, nil
}

func (repo *contactRepository) UpdateRequest(_ context.Context, r contact.Request) (contact.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.requests[r.ID]
	if !ok {
		return contact.Request{}, errNotFound
	}
	stored.Status = r.Status
	stored.RequestedBy = r.RequestedBy
	stored.UpdatedAt = r.UpdatedAt
	repo.db.requests[r.ID] = stored
	return r, nil
}

func (repo *contactRepository) CreateParentRequest(_ context.Context, r contact.ParentRequest) (contact.ParentRequest, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, stored := range repo.db.parentRequests {
		if stored.RequestingParentID == r.RequestingParentID && stored.TargetParentID == r.TargetParentID && stored.PlayerID == r.PlayerID {
			return contact.ParentRequest{}, contact.ErrDuplicate
		}
	}
	if r.ID == "" {
		r.ID = newID()
	}
	repo.db.parentRequests[r.ID] = r
	return repo.withParentNames(r), nil
}

func (repo *contactRepository) GetParentRequest(_ context.Context, id string) (contact.ParentRequest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.parentRequests[id]; ok {
		return repo.withParentNames(r), nil
	}
	return contact.ParentRequest{}, errNotFound
}

func (repo *contactRepository) FindParentRequest(_ context.Context, requestingID, targetID, playerID string) (contact.ParentRequest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, r := range repo.db.parentRequests {
		if r.RequestingParentID == requestingID && r.TargetParentID == targetID && r.PlayerID == playerID {
			return repo.withParentNames(r), nil
		}
	}
	return contact.ParentRequest{}, errNotFound
}

func (repo *contactRepository) QueryParentRequests(_ context.Context, filter contact.ParentRequestFilter) ([]contact.ParentRequest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := make([]contact.ParentRequest, 0)
	for _, r := range repo.db.parentRequests {
		switch {
		case filter.TargetParentID != "" && r.TargetParentID != filter.TargetParentID:
		case filter.RequestingParentID != "" && r.RequestingParentID != filter.RequestingParentID:
		case filter.Status != "" && r.Status != filter.Status:
		default:
			reqs = append(reqs, repo.withParentNames(r))
		}
	}
	newestFirst(reqs, func(r contact.ParentRequest) time.Time { return r.CreatedAt })
	return reqs, nil
}

func (repo *contactRepository) UpdateParentRequest(_ context.Context, r contact.ParentRequest) (contact.ParentRequest, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.parentRequests[r.ID]
	if !ok {
		return contact.ParentRequest{}, errNotFound
	}
	stored.Status = r.Status
	stored.UpdatedAt = r.UpdatedAt
	repo.db.parentRequests[r.ID] = stored
	return r, nil
}
