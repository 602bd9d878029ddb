package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/review"
)

type reviewRepository struct {
	db *DB
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{db: db}
}

func (repo *reviewRepository) CreateCoachReview(_ context.Context, r review.CoachReview) (review.CoachReview, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if r.ID == "" {
		r.ID = newID()
	}
	repo.db.coachReviews[r.ID] = r
	return r, nil
}

func (repo *reviewRepository) GetCoachReview(_ context.Context, id string, _ ...core.DBExecutor) (review.CoachReview, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.coachReviews[id]; ok {
		return r, nil
	}
	return review.CoachReview{}, errNotFound
}

func (repo *reviewRepository) FindCoachReview(_ context.Context, coachID, authorID string) (review.CoachReview, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, r := range repo.db.coachReviews {
		if r.CoachID == coachID && r.AuthorID == authorID {
			return r, nil
		}
	}
	return review.CoachReview{}, errNotFound
}

func (repo *reviewRepository) QueryCoachReviews(_ context.Context, coachID, status string) ([]review.CoachReview, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reviews := make([]review.CoachReview, 0)
	for _, r := range repo.db.coachReviews {
		if r.CoachID == coachID && (status == "" || r.Status == status) {
			reviews = append(reviews, r)
		}
	}
	newestFirst(reviews, func(r review.CoachReview) time.Time { return r.CreatedAt })
	return reviews, nil
}

func (repo *reviewRepository) SetCoachReviewStatus(_ context.Context, id, status string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	r, ok := repo.db.coachReviews[id]
	if !ok {
		return errNotFound
	}
	r.Status = status
	repo.db.coachReviews[id] = r
	return nil
}

// tally accumulates visible ratings per subject.
type tally map[string]*struct{ sum, count int }

func (t tally) add(id string, rating int) {
	if t[id] == nil {
		t[id] = &struct{ sum, count int }{}
	}
	t[id].sum += rating
	t[id].count++
}

func (t tally) ratings() map[string]review.Rating {
	ratings := make(map[string]review.Rating, len(t))
	for id, acc := range t {
		avg := float64(acc.sum) / float64(acc.count)
		ratings[id] = review.Rating{Average: &avg, Count: acc.count}
	}
	return ratings
}

func (repo *reviewRepository) CoachRatings(_ context.Context, coachIDs []string) (map[string]review.Rating, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	t := make(tally)
	for _, r := range repo.db.coachReviews {
		if r.Status == review.StatusVisible && inSlice(coachIDs, r.CoachID) {
			t.add(r.CoachID, r.Rating)
		}
	}
	return t.ratings(), nil
}

func (repo *reviewRepository) CreatePlayerReview(_ context.Context, r review.PlayerReview) (review.PlayerReview, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if r.ID == "" {
		r.ID = newID()
	}
	repo.db.playerReviews[r.ID] = r
	return r, nil
}

func (repo *reviewRepository) GetPlayerReview(_ context.Context, id string, _ ...core.DBExecutor) (review.PlayerReview, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.playerReviews[id]; ok {
		return r, nil
	}
	return review.PlayerReview{}, errNotFound
}

func (repo *reviewRepository) QueryPlayerReviews(_ context.Context, playerID, status string) ([]review.PlayerReview, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reviews := make([]review.PlayerReview, 0)
	for _, r := range repo.db.playerReviews {
		if r.PlayerID == playerID && (status == "" || r.Status == status) {
			reviews = append(reviews, r)
		}
	}
	newestFirst(reviews, func(r review.PlayerReview) time.Time { return r.CreatedAt })
	return reviews, nil
}

func (repo *reviewRepository) SetPlayerReviewStatus(_ context.Context, id, status string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	r, ok := repo.db.playerReviews[id]
	if !ok {
		return errNotFound
	}
	r.Status = status
	repo.db.playerReviews[id] = r
	return nil
}

func (repo *reviewRepository) PlayerRatings(_ context.Context, playerIDs []string) (map[string]review.Rating, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	t := make(tally)
	for _, r := range repo.db.playerReviews {
		if r.Status == review.StatusVisible && inSlice(playerIDs, r.PlayerID) {
			t.add(r.PlayerID, r.Rating)
		}
	}
	return t.ratings(), nil
}

// withReview joins the disputed review, its subject and the subject's owner. The caller holds the lock.
func (repo *reviewRepository) withReview(d review.Dispute) review.Dispute {
	d.Review = review.DisputedReview{ID: d.ReviewID, CreatedAt: d.CreatedAt}
	switch d.Kind {
	case review.KindCoach:
		r, ok := repo.db.coachReviews[d.ReviewID]
		if !ok {
			return d
		}
		c := repo.db.coaches[r.CoachID]
		owner := repo.db.users[c.UserID]
		d.Review = review.DisputedReview{
			ID: r.ID, Text: r.Text, Rating: r.Rating, Author: r.Author, Status: r.Status, CreatedAt: r.CreatedAt,
			SubjectID: c.ID, SubjectName: owner.Name, Team: c.Team, Level: c.Level,
			OwnerName: owner.Name, OwnerEmail: owner.Email,
		}
	case review.KindPlayer:
		r, ok := repo.db.playerReviews[d.ReviewID]
		if !ok {
			return d
		}
		p := repo.db.players[r.PlayerID]
		owner := repo.db.users[repo.db.parents[p.ParentID].UserID]
		d.Review = review.DisputedReview{
			ID: r.ID, Text: r.Text, Rating: r.Rating, Author: r.Author, Status: r.Status, CreatedAt: r.CreatedAt,
			SubjectID: p.ID, SubjectName: p.Name, Team: p.Team.String, Level: p.Level.String,
			OwnerName: owner.Name, OwnerEmail: owner.Email,
		}
	}
	return d
}

func (repo *reviewRepository) CreateDispute(_ context.Context, d review.Dispute, _ ...core.DBExecutor) (review.Dispute, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if d.ID == "" {
		d.ID = newID()
	}
	d.Messages = nil
	repo.db.disputes[d.ID] = d
	return repo.withReview(d), nil
}

func (repo *reviewRepository) GetDispute(_ context.Context, kind, id string, _ ...core.DBExecutor) (review.Dispute, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	d, ok := repo.db.disputes[id]
	if !ok || (kind != "" && d.Kind != kind) {
		return review.Dispute{}, errNotFound
	}
	return repo.withReview(d), nil
}

func (repo *reviewRepository) QueryDisputes(_ context.Context, filter review.DisputeFilter) ([]review.Dispute, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	disputes := make([]review.Dispute, 0)
	for _, d := range repo.db.disputes {
		switch {
		case filter.Kind != "" && d.Kind != filter.Kind:
		case filter.Status != "" && d.Status != filter.Status:
		case filter.ProfileID != "" && d.ProfileID != filter.ProfileID:
		default:
			disputes = append(disputes, repo.withReview(d))
		}
	}
	newestFirst(disputes, func(d review.Dispute) time.Time { return d.CreatedAt })
	return page(disputes, filter.Limit, 0), nil
}

func (repo *reviewRepository) UpdateDispute(_ context.Context, d review.Dispute, _ ...core.DBExecutor) (review.Dispute, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.disputes[d.ID]
	if !ok {
		return review.Dispute{}, errNotFound
	}
	stored.Reason = d.Reason
	stored.Status = d.Status
	stored.UpdatedAt = d.UpdatedAt
	repo.db.disputes[d.ID] = stored
	return d, nil
}

func (repo *reviewRepository) CreateMessage(_ context.Context, m review.Message) (review.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if m.ID == "" {
		m.ID = newID()
	}
	repo.db.disputeMessages[m.ID] = m
	return m, nil
}

func (repo *reviewRepository) QueryMessages(_ context.Context, disputeIDs []string) ([]review.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]review.Message, 0)
	for _, m := range repo.db.disputeMessages {
		if inSlice(disputeIDs, m.DisputeID) {
			msgs = append(msgs, m)
		}
	}
	oldestFirst(msgs, func(m review.Message) time.Time { return m.CreatedAt })
	return msgs, nil
}

// findPendingRatingRequest looks up the pending request of a parent with a coach about a player. The caller holds the lock.
func (repo *reviewRepository) findPendingRatingRequest(parentID, playerID, coachID string) (review.RatingRequest, bool) {
	for _, rr := range repo.db.ratingRequests {
		if rr.ParentProfileID == parentID && rr.PlayerID == playerID && rr.CoachProfileID == coachID &&
			rr.Status == review.RequestPending {
			return rr, true
		}
	}
	return review.RatingRequest{}, false
}

// withRequestNames fills the joined names of rr. The caller holds the lock.
func (repo *reviewRepository) withRequestNames(rr review.RatingRequest) review.RatingRequest {
	rr.PlayerName = repo.db.players[rr.PlayerID].Name
	if rr.RequesterName = repo.db.parentName(rr.ParentProfileID); rr.RequesterName == "" {
		rr.RequesterName = "Parent"
	}
	if rr.CoachName = repo.db.coachName(rr.CoachProfileID); rr.CoachName == "" {
		rr.CoachName = "Coach"
	}
	return rr
}

func (repo *reviewRepository) CreateRatingRequest(_ context.Context, rr review.RatingRequest) (review.RatingRequest, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.findPendingRatingRequest(rr.ParentProfileID, rr.PlayerID, rr.CoachProfileID); ok {
		return review.RatingRequest{}, review.ErrRatingRequestPending
	}
	if rr.ID == "" {
		rr.ID = newID()
	}
	repo.db.ratingRequests[rr.ID] = rr
	return rr, nil
}

func (repo *reviewRepository) FindPendingRatingRequest(_ context.Context, parentID, playerID, coachID string) (review.RatingRequest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rr, ok := repo.findPendingRatingRequest(parentID, playerID, coachID); ok {
		return repo.withRequestNames(rr), nil
	}
	return review.RatingRequest{}, errNotFound
}

func (repo *reviewRepository) QueryRatingRequests(_ context.Context, filter review.RatingRequestFilter) ([]review.RatingRequest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := make([]review.RatingRequest, 0)
	for _, rr := range repo.db.ratingRequests {
		switch {
		case filter.ParentProfileID != "" && rr.ParentProfileID != filter.ParentProfileID:
		case filter.CoachProfileID != "" && rr.CoachProfileID != filter.CoachProfileID:
		default:
			reqs = append(reqs, repo.withRequestNames(rr))
		}
	}
	newestFirst(reqs, func(rr review.RatingRequest) time.Time { return rr.CreatedAt })
	return reqs, nil
}

func (repo *reviewRepository) CompleteRatingRequests(_ context.Context, playerID, coachID, reviewID string, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, rr := range repo.db.ratingRequests {
		if rr.PlayerID == playerID && rr.CoachProfileID == coachID && rr.Status == review.RequestPending {
			rr.Status = review.RequestCompleted
			rr.PlayerReviewID = null.StringFrom(reviewID)
			rr.UpdatedAt = at
			repo.db.ratingRequests[id] = rr
		}
	}
	return nil
}
