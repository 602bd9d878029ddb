package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/review"
)

const (
	reviewColumns = `id, author, author_id, rating, text, criteria_ratings, status, created_at`

	// disputeSelect joins the disputed review of either kind, its subject and the subject's owner.
	disputeSelect = `SELECT d.id, d.kind, d.review_id, d.profile_id, d.reason, d.status, d.created_at, d.updated_at,
		COALESCE(cr.id, pr.id, d.review_id) AS "review.id",
		COALESCE(cr.text, pr.text, '') AS "review.text",
		COALESCE(cr.rating, pr.rating, 0) AS "review.rating",
		COALESCE(cr.author, pr.author, '') AS "review.author",
		COALESCE(cr.status, pr.status, '') AS "review.status",
		COALESCE(cr.created_at, pr.created_at, d.created_at) AS "review.created_at",
		COALESCE(c.id::text, pl.id::text, '') AS "review.subject_id",
		COALESCE(cu.name, pl.name, '') AS "review.subject_name",
		COALESCE(c.team, pl.team, '') AS "review.team",
		COALESCE(c.level, pl.level, '') AS "review.level",
		COALESCE(cu.name, pu.name, '') AS "review.owner_name",
		COALESCE(cu.email, pu.email, '') AS "review.owner_email"
		FROM review_disputes d
		LEFT JOIN coach_reviews cr ON d.kind = 'coach' AND cr.id = d.review_id
		LEFT JOIN coach_profiles c ON c.id = cr.coach_id
		LEFT JOIN users cu ON cu.id = c.user_id
		LEFT JOIN player_reviews pr ON d.kind = 'player' AND pr.id = d.review_id
		LEFT JOIN players pl ON pl.id = pr.player_id
		LEFT JOIN parent_profiles pp ON pp.id = pl.parent_id
		LEFT JOIN users pu ON pu.id = pp.user_id`
)

const ratingRequestSelect = `SELECT r.id, r.parent_profile_id, r.player_id, r.coach_profile_id, r.message, r.status,
	r.player_review_id, r.created_at, r.updated_at, pl.name AS player_name,
	COALESCE(NULLIF(pu.name, ''), 'Parent') AS requester_name, COALESCE(NULLIF(cu.name, ''), 'Coach') AS coach_name
	FROM rating_requests r
	JOIN players pl ON pl.id = r.player_id
	JOIN parent_profiles pp ON pp.id = r.parent_profile_id
	JOIN users pu ON pu.id = pp.user_id
	JOIN coach_profiles c ON c.id = r.coach_profile_id
	JOIN users cu ON cu.id = c.user_id`

type ratingRow struct {
	ID      string   `db:"id"`
	Average *float64 `db:"average"`
	Count   int      `db:"count"`
}

type reviewRepository struct {
	repo
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db core.DBExecutor) *reviewRepository {
	return &reviewRepository{repo{exec: db}}
}

func (r reviewRepository) CreateCoachReview(ctx context.Context, rv review.CoachReview) (review.CoachReview, error) {
	if rv.ID == "" {
		rv.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO coach_reviews (coach_id, `+reviewColumns+`)
		VALUES (:coach_id, :id, :author, :author_id, :rating, :text, :criteria_ratings, :status, :created_at)`,
		rv,
	)
	if err != nil {
		return review.CoachReview{}, errors.Wrap(err, "inserting coach review")
	}
	return rv, nil
}

func (r reviewRepository) getCoachReview(ctx context.Context, exec core.DBExecutor, w where) (review.CoachReview, error) {
	var rv review.CoachReview
	err := sqlx.GetContext(ctx, exec, &rv, `SELECT coach_id, `+reviewColumns+` FROM coach_reviews`+w.String(), w.args...)
	if err != nil {
		return review.CoachReview{}, trapNoRowsErr(err, errNotFound, "selecting coach review")
	}
	rv.CreatedAt = rv.CreatedAt.UTC()
	return rv, nil
}

func (r reviewRepository) GetCoachReview(ctx context.Context, id string, exec ...core.DBExecutor) (review.CoachReview, error) {
	var w where
	w.add("id = ?", id)
	return r.getCoachReview(ctx, r.getExec(exec), w)
}

func (r reviewRepository) FindCoachReview(ctx context.Context, coachID, authorID string) (review.CoachReview, error) {
	var w where
	w.add("coach_id = ?", coachID)
	w.add("author_id = ?", authorID)
	return r.getCoachReview(ctx, r.exec, w)
}

func (r reviewRepository) QueryCoachReviews(ctx context.Context, coachID, status string) ([]review.CoachReview, error) {
	var w where
	w.add("coach_id = ?", coachID)
	if status != "" {
		w.add("status = ?", status)
	}
	reviews := []review.CoachReview{}
	err := sqlx.SelectContext(ctx, r.exec, &reviews,
		`SELECT coach_id, `+reviewColumns+` FROM coach_reviews`+w.String()+` ORDER BY created_at DESC`, w.args...)
	if invalidID(err) {
		return []review.CoachReview{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting coach reviews")
	}
	for i := range reviews {
		reviews[i].CreatedAt = reviews[i].CreatedAt.UTC()
	}
	return reviews, nil
}

func (r reviewRepository) SetCoachReviewStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) error {
	res, err := r.getExec(exec).ExecContext(ctx, `UPDATE coach_reviews SET status = $2 WHERE id = $1`, id, status)
	return checkAffected(res, err, errNotFound, "updating coach review status")
}

// ratings averages the visible ratings of table grouped by column, for the given ids.
func (r reviewRepository) ratings(ctx context.Context, table, column string, ids []string) (map[string]review.Rating, error) {
	ratings := make(map[string]review.Rating, len(ids))
	if len(ids) == 0 {
		return ratings, nil
	}
	query, args, err := inQuery(
		`SELECT `+column+` AS id, AVG(rating)::float8 AS average, COUNT(*) AS count FROM `+table+`
		WHERE status = ? AND `+column+` IN (?) GROUP BY `+column,
		review.StatusVisible, ids,
	)
	if err != nil {
		return nil, errors.Wrap(err, "building ratings query")
	}
	var rows []ratingRow
	if err = sqlx.SelectContext(ctx, r.exec, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "selecting %s ratings", table)
	}
	for _, row := range rows {
		ratings[row.ID] = review.Rating{Average: row.Average, Count: row.Count}
	}
	return ratings, nil
}

func (r reviewRepository) CoachRatings(ctx context.Context, coachIDs []string) (map[string]review.Rating, error) {
	return r.ratings(ctx, "coach_reviews", "coach_id", coachIDs)
}

func (r reviewRepository) CreatePlayerReview(ctx context.Context, rv review.PlayerReview) (review.PlayerReview, error) {
	if rv.ID == "" {
		rv.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO player_reviews (player_id, `+reviewColumns+`)
		VALUES (:player_id, :id, :author, :author_id, :rating, :text, :criteria_ratings, :status, :created_at)`,
		rv,
	)
	if err != nil {
		return review.PlayerReview{}, errors.Wrap(err, "inserting player review")
	}
	return rv, nil
}

func (r reviewRepository) GetPlayerReview(ctx context.Context, id string, exec ...core.DBExecutor) (review.PlayerReview, error) {
	var rv review.PlayerReview
	err := sqlx.GetContext(ctx, r.getExec(exec), &rv,
		`SELECT player_id, `+reviewColumns+` FROM player_reviews WHERE id = $1`, id)
	if err != nil {
		return review.PlayerReview{}, trapNoRowsErr(err, errNotFound, "selecting player review")
	}
	rv.CreatedAt = rv.CreatedAt.UTC()
	return rv, nil
}

func (r reviewRepository) QueryPlayerReviews(ctx context.Context, playerID, status string) ([]review.PlayerReview, error) {
	var w where
	w.add("player_id = ?", playerID)
	if status != "" {
		w.add("status = ?", status)
	}
	reviews := []review.PlayerReview{}
	err := sqlx.SelectContext(ctx, r.exec, &reviews,
		`SELECT player_id, `+reviewColumns+` FROM player_reviews`+w.String()+` ORDER BY created_at DESC`, w.args...)
	if invalidID(err) {
		return []review.PlayerReview{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting player reviews")
	}
	for i := range reviews {
		reviews[i].CreatedAt = reviews[i].CreatedAt.UTC()
	}
	return reviews, nil
}

func (r reviewRepository) SetPlayerReviewStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) error {
	res, err := r.getExec(exec).ExecContext(ctx, `UPDATE player_reviews SET status = $2 WHERE id = $1`, id, status)
	return checkAffected(res, err, errNotFound, "updating player review status")
}

func (r reviewRepository) PlayerRatings(ctx context.Context, playerIDs []string) (map[string]review.Rating, error) {
	return r.ratings(ctx, "player_reviews", "player_id", playerIDs)
}

func (r reviewRepository) CreateDispute(ctx context.Context, d review.Dispute, exec ...core.DBExecutor) (review.Dispute, error) {
	if d.ID == "" {
		d.ID = newID()
	}
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO review_disputes (id, kind, review_id, profile_id, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.Kind, d.ReviewID, d.ProfileID, d.Reason, d.Status, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return review.Dispute{}, errors.Wrap(err, "inserting dispute")
	}
	return r.GetDispute(ctx, d.Kind, d.ID, exec...)
}

func utcDispute(d review.Dispute) review.Dispute {
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	d.Review.CreatedAt = d.Review.CreatedAt.UTC()
	return d
}

func (r reviewRepository) GetDispute(ctx context.Context, kind, id string, exec ...core.DBExecutor) (review.Dispute, error) {
	var w where
	w.add("d.id = ?", id)
	if kind != "" {
		w.add("d.kind = ?", kind)
	}
	var d review.Dispute
	if err := sqlx.GetContext(ctx, r.getExec(exec), &d, disputeSelect+w.String(), w.args...); err != nil {
		return review.Dispute{}, trapNoRowsErr(err, errNotFound, "selecting dispute")
	}
	return utcDispute(d), nil
}

func (r reviewRepository) QueryDisputes(ctx context.Context, filter review.DisputeFilter) ([]review.Dispute, error) {
	var w where
	if filter.Kind != "" {
		w.add("d.kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		w.add("d.status = ?", filter.Status)
	}
	if filter.ProfileID != "" {
		w.add("d.profile_id = ?", filter.ProfileID)
	}
	query := disputeSelect + w.String() + ` ORDER BY d.created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.arg(filter.Limit)
	}

	disputes := []review.Dispute{}
	if err := sqlx.SelectContext(ctx, r.exec, &disputes, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting disputes")
	}
	for i := range disputes {
		disputes[i] = utcDispute(disputes[i])
	}
	return disputes, nil
}

func (r reviewRepository) UpdateDispute(ctx context.Context, d review.Dispute, exec ...core.DBExecutor) (review.Dispute, error) {
	res, err := r.getExec(exec).ExecContext(ctx,
		`UPDATE review_disputes SET reason = $2, status = $3, updated_at = $4 WHERE id = $1`,
		d.ID, d.Reason, d.Status, d.UpdatedAt,
	)
	if err = checkAffected(res, err, errNotFound, "updating dispute"); err != nil {
		return review.Dispute{}, err
	}
	return d, nil
}

func (r reviewRepository) CreateMessage(ctx context.Context, m review.Message) (review.Message, error) {
	if m.ID == "" {
		m.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO dispute_messages (id, dispute_id, author_type, author_id, message, created_at)
		VALUES (:id, :dispute_id, :author_type, :author_id, :message, :created_at)`,
		m,
	)
	if err != nil {
		return review.Message{}, errors.Wrap(err, "inserting dispute message")
	}
	return m, nil
}

func (r reviewRepository) QueryMessages(ctx context.Context, disputeIDs []string) ([]review.Message, error) {
	msgs := []review.Message{}
	if len(disputeIDs) == 0 {
		return msgs, nil
	}
	err := sqlx.SelectContext(ctx, r.exec, &msgs,
		`SELECT id, dispute_id, author_type, author_id, message, created_at FROM dispute_messages
		WHERE dispute_id = ANY($1::uuid[]) ORDER BY created_at`,
		pqStrings(disputeIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting dispute messages")
	}
	for i := range msgs {
		msgs[i].CreatedAt = msgs[i].CreatedAt.UTC()
	}
	return msgs, nil
}

func utcRatingRequest(rr review.RatingRequest) review.RatingRequest {
	rr.CreatedAt = rr.CreatedAt.UTC()
	rr.UpdatedAt = rr.UpdatedAt.UTC()
	return rr
}

func (r reviewRepository) CreateRatingRequest(ctx context.Context, rr review.RatingRequest) (review.RatingRequest, error) {
	if rr.ID == "" {
		rr.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO rating_requests (id, parent_profile_id, player_id, coach_profile_id, message, status,
			player_review_id, created_at, updated_at)
		VALUES (:id, :parent_profile_id, :player_id, :coach_profile_id, :message, :status,
			:player_review_id, :created_at, :updated_at)`,
		rr,
	)
	if isUniqueViolation(err) {
		return review.RatingRequest{}, review.ErrRatingRequestPending
	}
	if err != nil {
		return review.RatingRequest{}, errors.Wrap(err, "inserting rating request")
	}
	return rr, nil
}

func (r reviewRepository) FindPendingRatingRequest(ctx context.Context, parentID, playerID, coachID string) (review.RatingRequest, error) {
	var w where
	w.add("r.parent_profile_id = ?", parentID)
	w.add("r.player_id = ?", playerID)
	w.add("r.coach_profile_id = ?", coachID)
	w.add("r.status = ?", review.RequestPending)

	var rr review.RatingRequest
	if err := sqlx.GetContext(ctx, r.exec, &rr, ratingRequestSelect+w.String(), w.args...); err != nil {
		return review.RatingRequest{}, trapNoRowsErr(err, errNotFound, "selecting rating request")
	}
	return utcRatingRequest(rr), nil
}

func (r reviewRepository) QueryRatingRequests(ctx context.Context, filter review.RatingRequestFilter) ([]review.RatingRequest, error) {
	var w where
	if filter.ParentProfileID != "" {
		w.add("r.parent_profile_id = ?", filter.ParentProfileID)
	}
	if filter.CoachProfileID != "" {
		w.add("r.coach_profile_id = ?", filter.CoachProfileID)
	}

	reqs := []review.RatingRequest{}
	err := sqlx.SelectContext(ctx, r.exec, &reqs, ratingRequestSelect+w.String()+` ORDER BY r.created_at DESC`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting rating requests")
	}
	for i := range reqs {
		reqs[i] = utcRatingRequest(reqs[i])
	}
	return reqs, nil
}

func (r reviewRepository) CompleteRatingRequests(ctx context.Context, playerID, coachID, reviewID string, at time.Time) error {
	_, err := r.exec.ExecContext(ctx,
		`UPDATE rating_requests SET status = $1, player_review_id = $2, updated_at = $3
		WHERE player_id = $4 AND coach_profile_id = $5 AND status = $6`,
		review.RequestCompleted, reviewID, at, playerID, coachID, review.RequestPending,
	)
	return errors.Wrap(err, "completing rating requests")
}
