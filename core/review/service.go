package review

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/notification"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("Review not found")
	ErrDisputeNotFound     = core.NewNotFoundError("Not found")
	ErrParentsOnly         = core.NewPermissionError("Only parents can leave coach reviews")
	ErrCoachRatingsUpgrade = core.NewUpgradeRequiredError(string(plan.CoachRatings), "Coach ratings require an Elite plan or higher. Upgrade to rate coaches.")
	ErrAlreadyReviewed     = core.NewPermissionError("You have already reviewed this coach.")
	ErrCoachesDisputeOnly  = core.NewPermissionError("Only coaches can dispute reviews")
	ErrParentsDisputeOnly  = core.NewPermissionError("Only parents can dispute player reviews")
	ErrNotOwnProfileReview = core.NewPermissionError("You can only dispute reviews on your own profile")
	ErrNotOwnPlayerReview  = core.NewPermissionError("You can only dispute reviews on your own players")
	ErrAlreadyDisputed     = core.NewBadRequestError("This review has already been disputed")
	ErrDisputeForbidden    = core.NewPermissionError("Forbidden")
	ErrInvalidDisputeKind  = core.NewBadRequestError("Invalid dispute type")

	ErrParentsRequestOnly      = core.NewPermissionError("Only parents can send rating requests")
	ErrCoachEvaluationsUpgrade = core.NewUpgradeRequiredError(string(plan.CoachEvaluations), "Coach evaluations require an Elite plan or higher. Upgrade to request player evaluations.")
	ErrRatingRequestPending    = core.NewConflictError("You already have a pending rating request with this coach for this player.")
)

const (
	MsgReviewDisputed       = "Review disputed. It has been hidden and sent for admin review."
	reviewNotificationTitle = "New Review"
)

type (
	Repository interface {
		CreateCoachReview(ctx context.Context, r CoachReview) (CoachReview, error)
		GetCoachReview(ctx context.Context, id string, exec ...core.DBExecutor) (CoachReview, error)
		FindCoachReview(ctx context.Context, coachID, authorID string) (CoachReview, error)
		// QueryCoachReviews lists the reviews of a coach with the given status, newest first.
		QueryCoachReviews(ctx context.Context, coachID, status string) ([]CoachReview, error)
		SetCoachReviewStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) error
		// CoachRatings summarizes the visible reviews of each coach.
		CoachRatings(ctx context.Context, coachIDs []string) (map[string]Rating, error)

		CreatePlayerReview(ctx context.Context, r PlayerReview) (PlayerReview, error)
		GetPlayerReview(ctx context.Context, id string, exec ...core.DBExecutor) (PlayerReview, error)
		QueryPlayerReviews(ctx context.Context, playerID, status string) ([]PlayerReview, error)
		SetPlayerReviewStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) error
		// PlayerRatings summarizes the visible reviews of each player.
		PlayerRatings(ctx context.Context, playerIDs []string) (map[string]Rating, error)

		CreateDispute(ctx context.Context, d Dispute, exec ...core.DBExecutor) (Dispute, error)
		GetDispute(ctx context.Context, kind, id string, exec ...core.DBExecutor) (Dispute, error)
		// QueryDisputes lists disputes newest first, with the disputed review.
		QueryDisputes(ctx context.Context, filter DisputeFilter) ([]Dispute, error)
		UpdateDispute(ctx context.Context, d Dispute, exec ...core.DBExecutor) (Dispute, error)

		CreateMessage(ctx context.Context, m Message) (Message, error)
		// QueryMessages lists the messages of the disputes, oldest first.
		QueryMessages(ctx context.Context, disputeIDs []string) ([]Message, error)

		// CreateRatingRequest returns ErrRatingRequestPending when the parent already has a pending request
		// with the coach for the player.
		CreateRatingRequest(ctx context.Context, rr RatingRequest) (RatingRequest, error)
		FindPendingRatingRequest(ctx context.Context, parentID, playerID, coachID string) (RatingRequest, error)
		// QueryRatingRequests lists requests newest first, with the player, parent and coach names.
		QueryRatingRequests(ctx context.Context, filter RatingRequestFilter) ([]RatingRequest, error)
		// CompleteRatingRequests marks the pending requests of a coach about a player completed by reviewID.
		CompleteRatingRequests(ctx context.Context, playerID, coachID, reviewID string, at time.Time) error
	}

	Service struct {
		repo          Repository
		users         user.Repository
		players       player.Repository
		tx            core.Transactor
		notifications *notification.Service
		notifier      core.EventNotifier
		logger        core.Logger
	}
)

var _ player.RatingProvider = (*Service)(nil)

func NewService(
	repo Repository,
	users user.Repository,
	players player.Repository,
	tx core.Transactor,
	notifications *notification.Service,
	notifier core.EventNotifier,
	logger core.Logger,
) *Service {
	return &Service{
		repo:          repo,
		users:         users,
		players:       players,
		tx:            tx,
		notifications: notifications,
		notifier:      notifier,
		logger:        logger,
	}
}

func (svc *Service) notify(ctx context.Context, userID, body, link string) {
	if _, err := svc.notifications.Create(ctx, userID, notification.TypeReview, reviewNotificationTitle, body, link); err != nil {
		svc.logger.Error(fmt.Sprintf("creating notification: %v", err), err)
	}
}

func (svc *Service) authorName(ctx context.Context, userID string) string {
	usr, err := svc.users.GetUser(ctx, user.GetFilter{ID: userID})
	if err != nil || usr.Name == "" {
		return "Anonymous"
	}
	return usr.Name
}

func average(sum, count int) *float64 {
	if count == 0 {
		return nil
	}
	avg := float64(sum) / float64(count)
	return &avg
}

// CreateCoachReview stores the review of a parent on a coach. A parent reviews a coach once.
func (svc *Service) CreateCoachReview(ctx context.Context, viewer user.Viewer, coachID string, nr NewCoachReview) (CoachReview, error) {
	if viewer.ParentProfileID == "" {
		return CoachReview{}, ErrParentsOnly
	}
	parent, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{ID: viewer.ParentProfileID})
	if err != nil {
		return CoachReview{}, errors.Wrap(err, "getting parent profile")
	}
	if !plan.HasFeatureAs(parent.PlanID, plan.CoachRatings, viewer.IsAdmin()) {
		return CoachReview{}, ErrCoachRatingsUpgrade
	}

	coach, err := svc.users.GetCoachProfile(ctx, user.ProfileFilter{ID: coachID})
	if err != nil {
		if core.IsNotFound(err) {
			return CoachReview{}, user.ErrCoachNotFound
		}
		return CoachReview{}, errors.Wrap(err, "getting coach profile")
	}

	if _, err = svc.repo.FindCoachReview(ctx, coachID, viewer.UserID); err == nil {
		return CoachReview{}, ErrAlreadyReviewed
	} else if !core.IsNotFound(err) {
		return CoachReview{}, errors.Wrap(err, "finding coach review")
	}

	r, err := svc.repo.CreateCoachReview(ctx, CoachReview{
		CoachID:   coachID,
		Author:    svc.authorName(ctx, viewer.UserID),
		AuthorID:  viewer.UserID,
		Rating:    nr.Rating,
		Text:      nr.Text,
		Criteria:  nr.Criteria.clean(),
		Status:    StatusVisible,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return CoachReview{}, errors.Wrap(err, "creating coach review")
	}
	svc.notify(ctx, coach.UserID, fmt.Sprintf("%s left you a %d-star review.", r.Author, r.Rating), "/coach-dashboard/reviews")
	return r, nil
}

// ListCoachReviews returns the visible reviews of a coach and their average.
func (svc *Service) ListCoachReviews(ctx context.Context, coachID string) (CoachReviews, error) {
	reviews, err := svc.repo.QueryCoachReviews(ctx, coachID, StatusVisible)
	if err != nil {
		return CoachReviews{}, errors.Wrap(err, "querying coach reviews")
	}
	if reviews == nil {
		reviews = []CoachReview{}
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	return CoachReviews{Reviews: reviews, Rating: Rating{Average: average(sum, len(reviews)), Count: len(reviews)}}, nil
}

// CreatePlayerReview stores the review of a user on a player and notifies the player's parent.
// A coach's review completes the pending rating requests the coach received about the player.
func (svc *Service) CreatePlayerReview(ctx context.Context, viewer user.Viewer, playerID string, nr NewPlayerReview) (PlayerReview, error) {
	l, err := svc.players.GetListing(ctx, playerID)
	if err != nil {
		if core.IsNotFound(err) {
			return PlayerReview{}, player.ErrNotFound
		}
		return PlayerReview{}, errors.Wrap(err, "getting player")
	}

	r, err := svc.repo.CreatePlayerReview(ctx, PlayerReview{
		PlayerID:  playerID,
		Author:    svc.authorName(ctx, viewer.UserID),
		AuthorID:  viewer.UserID,
		Rating:    nr.Rating,
		Text:      nr.Text,
		Criteria:  nr.Criteria,
		Status:    StatusVisible,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return PlayerReview{}, errors.Wrap(err, "creating player review")
	}
	if viewer.CoachProfileID != "" {
		if err := svc.repo.CompleteRatingRequests(ctx, playerID, viewer.CoachProfileID, r.ID, r.CreatedAt); err != nil {
			svc.logger.Error(fmt.Sprintf("completing rating requests: %v", err), err)
		}
	}
	if l.ParentUserID != viewer.UserID {
		svc.notify(ctx, l.ParentUserID, fmt.Sprintf("%s reviewed %s.", r.Author, l.Name), "/parent-dashboard/overview")
	}
	return r, nil
}

func (svc *Service) ListPlayerReviews(ctx context.Context, playerID string) (PlayerReviews, error) {
	reviews, err := svc.repo.QueryPlayerReviews(ctx, playerID, StatusVisible)
	if err != nil {
		return PlayerReviews{}, errors.Wrap(err, "querying player reviews")
	}
	if reviews == nil {
		reviews = []PlayerReview{}
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	return PlayerReviews{Reviews: reviews, Rating: Rating{Average: average(sum, len(reviews)), Count: len(reviews)}}, nil
}

// PlayerRatings summarizes the visible reviews of players.
func (svc *Service) PlayerRatings(ctx context.Context, playerIDs []string) (map[string]player.Rating, error) {
	if len(playerIDs) == 0 {
		return map[string]player.Rating{}, nil
	}
	ratings, err := svc.repo.PlayerRatings(ctx, playerIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]player.Rating, len(ratings))
	for id, r := range ratings {
		out[id] = player.Rating{Average: r.Average, Count: r.Count}
	}
	return out, nil
}

func (svc *Service) CoachRatings(ctx context.Context, coachIDs []string) (map[string]Rating, error) {
	if len(coachIDs) == 0 {
		return map[string]Rating{}, nil
	}
	return svc.repo.CoachRatings(ctx, coachIDs)
}

// DisputeCoachReview lets a coach dispute a review on their profile. The review is hidden until an admin decides.
func (svc *Service) DisputeCoachReview(ctx context.Context, viewer user.Viewer, reviewID string, nd NewDispute) (Dispute, error) {
	if viewer.CoachProfileID == "" {
		return Dispute{}, ErrCoachesDisputeOnly
	}
	r, err := svc.repo.GetCoachReview(ctx, reviewID)
	if err != nil {
		if core.IsNotFound(err) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, errors.Wrap(err, "getting coach review")
	}
	if r.CoachID != viewer.CoachProfileID {
		return Dispute{}, ErrNotOwnProfileReview
	}
	if r.Status == StatusDisputed {
		return Dispute{}, ErrAlreadyDisputed
	}

	var d Dispute
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.SetCoachReviewStatus(ctx, r.ID, StatusDisputed, exec); err != nil {
			return errors.Wrap(err, "hiding coach review")
		}
		var err error
		d, err = svc.repo.CreateDispute(ctx, newDispute(KindCoach, r.ID, viewer.CoachProfileID, nd.Reason), exec)
		return errors.Wrap(err, "creating dispute")
	})
	if err != nil {
		return Dispute{}, err
	}

	svc.notifier.Notify(core.EventCoachReviewDispute, map[string]interface{}{
		"id":             d.ID,
		"reviewId":       r.ID,
		"coachProfileId": viewer.CoachProfileID,
		"reason":         d.Reason.Ptr(),
		"status":         d.Status,
		"createdAt":      d.CreatedAt.Format(time.RFC3339),
	})
	return d, nil
}

// DisputePlayerReview lets a parent dispute a review on one of their players.
func (svc *Service) DisputePlayerReview(ctx context.Context, viewer user.Viewer, reviewID string, nd NewDispute) (Dispute, error) {
	if viewer.ParentProfileID == "" {
		return Dispute{}, ErrParentsDisputeOnly
	}
	r, err := svc.repo.GetPlayerReview(ctx, reviewID)
	if err != nil {
		if core.IsNotFound(err) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, errors.Wrap(err, "getting player review")
	}
	p, err := svc.players.GetPlayer(ctx, r.PlayerID)
	if err != nil {
		return Dispute{}, errors.Wrap(err, "getting player")
	}
	if p.ParentID != viewer.ParentProfileID {
		return Dispute{}, ErrNotOwnPlayerReview
	}
	if r.Status == StatusDisputed {
		return Dispute{}, ErrAlreadyDisputed
	}

	var d Dispute
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.SetPlayerReviewStatus(ctx, r.ID, StatusDisputed, exec); err != nil {
			return errors.Wrap(err, "hiding player review")
		}
		var err error
		d, err = svc.repo.CreateDispute(ctx, newDispute(KindPlayer, r.ID, viewer.ParentProfileID, nd.Reason), exec)
		return errors.Wrap(err, "creating dispute")
	})
	if err != nil {
		return Dispute{}, err
	}

	svc.notifier.Notify(core.EventPlayerReviewDispute, map[string]interface{}{
		"id":              d.ID,
		"reviewId":        r.ID,
		"parentProfileId": viewer.ParentProfileID,
		"reason":          d.Reason.Ptr(),
		"status":          d.Status,
		"createdAt":       d.CreatedAt.Format(time.RFC3339),
	})
	return d, nil
}

func newDispute(kind, reviewID, profileID, reason string) Dispute {
	reason = core.CleanString(reason)
	now := time.Now().UTC()
	return Dispute{
		Kind:      kind,
		ReviewID:  reviewID,
		ProfileID: profileID,
		Reason:    null.NewString(reason, reason != ""),
		Status:    DisputePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (svc *Service) getDispute(ctx context.Context, kind, id string) (Dispute, error) {
	if kind != KindCoach && kind != KindPlayer {
		return Dispute{}, ErrInvalidDisputeKind
	}
	d, err := svc.repo.GetDispute(ctx, kind, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Dispute{}, ErrDisputeNotFound
		}
		return Dispute{}, errors.Wrap(err, "getting dispute")
	}
	return d, nil
}

// ReplyToDispute adds a message to a dispute. Only admins and the disputing party may reply.
func (svc *Service) ReplyToDispute(ctx context.Context, viewer user.Viewer, kind, id string, nm NewMessage) (Message, error) {
	d, err := svc.getDispute(ctx, kind, id)
	if err != nil {
		return Message{}, err
	}

	var authorType string
	switch {
	case viewer.IsAdmin():
		authorType = AuthorAdmin
	case kind == KindCoach && viewer.CoachProfileID != "" && d.ProfileID == viewer.CoachProfileID:
		authorType = AuthorCoach
	case kind == KindPlayer && viewer.ParentProfileID != "" && d.ProfileID == viewer.ParentProfileID:
		authorType = AuthorParent
	default:
		return Message{}, ErrDisputeForbidden
	}

	return svc.repo.CreateMessage(ctx, Message{
		DisputeID:  d.ID,
		AuthorType: authorType,
		AuthorID:   viewer.UserID,
		Message:    nm.Message,
		CreatedAt:  time.Now().UTC(),
	})
}

// withMessages attaches the messages of each dispute.
func (svc *Service) withMessages(ctx context.Context, disputes []Dispute) ([]Dispute, error) {
	if len(disputes) == 0 {
		return []Dispute{}, nil
	}
	ids := make([]string, 0, len(disputes))
	for _, d := range disputes {
		ids = append(ids, d.ID)
	}
	msgs, err := svc.repo.QueryMessages(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying dispute messages")
	}
	byDispute := make(map[string][]Message, len(disputes))
	for _, m := range msgs {
		byDispute[m.DisputeID] = append(byDispute[m.DisputeID], m)
	}
	for i := range disputes {
		disputes[i].Messages = byDispute[disputes[i].ID]
		if disputes[i].Messages == nil {
			disputes[i].Messages = []Message{}
		}
	}
	return disputes, nil
}

// ListDisputes lists every dispute matching filter, with their messages.
func (svc *Service) ListDisputes(ctx context.Context, filter DisputeFilter) ([]Dispute, error) {
	filter.Clean()
	filter.ProfileID = ""
	disputes, err := svc.repo.QueryDisputes(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying disputes")
	}
	return svc.withMessages(ctx, disputes)
}

// ListMyDisputes lists the disputes raised by the viewer, as a coach or as a parent.
func (svc *Service) ListMyDisputes(ctx context.Context, viewer user.Viewer) ([]Dispute, error) {
	var disputes []Dispute
	if viewer.CoachProfileID != "" {
		ds, err := svc.repo.QueryDisputes(ctx, DisputeFilter{Kind: KindCoach, ProfileID: viewer.CoachProfileID})
		if err != nil {
			return nil, errors.Wrap(err, "querying coach disputes")
		}
		disputes = append(disputes, ds...)
	}
	if viewer.ParentProfileID != "" {
		ds, err := svc.repo.QueryDisputes(ctx, DisputeFilter{Kind: KindPlayer, ProfileID: viewer.ParentProfileID})
		if err != nil {
			return nil, errors.Wrap(err, "querying player disputes")
		}
		disputes = append(disputes, ds...)
	}
	sort.SliceStable(disputes, func(i, j int) bool {
		return disputes[i].CreatedAt.After(disputes[j].CreatedAt)
	})
	return svc.withMessages(ctx, disputes)
}

// SetDisputeStatus closes a dispute. A resolved dispute removes the review, a dismissed one restores it.
func (svc *Service) SetDisputeStatus(ctx context.Context, kind, id string, ds DisputeStatus) (Dispute, error) {
	d, err := svc.getDispute(ctx, kind, id)
	if err != nil {
		return Dispute{}, err
	}

	reviewStatus := StatusRemoved
	if ds.Status == DisputeDismissed {
		reviewStatus = StatusVisible
	}
	setReviewStatus := svc.repo.SetCoachReviewStatus
	if kind == KindPlayer {
		setReviewStatus = svc.repo.SetPlayerReviewStatus
	}

	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		d.Status = ds.Status
		d.UpdatedAt = time.Now().UTC()
		var err error
		if d, err = svc.repo.UpdateDispute(ctx, d, exec); err != nil {
			return errors.Wrap(err, "updating dispute")
		}
		return errors.Wrap(setReviewStatus(ctx, d.ReviewID, reviewStatus, exec), "updating review status")
	})
	return d, err
}

// ZapierDisputes lists disputes for automation pulls, pending ones by default.
func (svc *Service) ZapierDisputes(ctx context.Context, status string, limit int) ([]Dispute, error) {
	if status == "" {
		status = DisputePending
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	disputes, err := svc.repo.QueryDisputes(ctx, DisputeFilter{Status: status, Limit: limit})
	if err != nil {
		return nil, errors.Wrap(err, "querying disputes")
	}
	return disputes, nil
}

// RequestRating lets a parent ask a coach to review one of their players.
// A pending request on the same parent, player and coach is returned with ErrRatingRequestPending.
func (svc *Service) RequestRating(ctx context.Context, viewer user.Viewer, nr NewRatingRequest) (RatingRequest, error) {
	if viewer.ParentProfileID == "" {
		return RatingRequest{}, ErrParentsRequestOnly
	}
	parent, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{ID: viewer.ParentProfileID})
	if err != nil {
		return RatingRequest{}, errors.Wrap(err, "getting parent profile")
	}
	if !plan.HasFeatureAs(parent.PlanID, plan.CoachEvaluations, viewer.IsAdmin()) {
		return RatingRequest{}, ErrCoachEvaluationsUpgrade
	}

	p, err := svc.players.GetPlayer(ctx, nr.PlayerID)
	if err != nil && !core.IsNotFound(err) {
		return RatingRequest{}, errors.Wrap(err, "getting player")
	}
	if err != nil || p.ParentID != viewer.ParentProfileID {
		return RatingRequest{}, player.ErrNotFound
	}
	if _, err = svc.users.GetCoachProfile(ctx, user.ProfileFilter{ID: nr.CoachProfileID}); err != nil {
		if core.IsNotFound(err) {
			return RatingRequest{}, user.ErrCoachNotFound
		}
		return RatingRequest{}, errors.Wrap(err, "getting coach profile")
	}

	existing, err := svc.repo.FindPendingRatingRequest(ctx, viewer.ParentProfileID, nr.PlayerID, nr.CoachProfileID)
	if err == nil {
		return existing, ErrRatingRequestPending
	} else if !core.IsNotFound(err) {
		return RatingRequest{}, errors.Wrap(err, "finding rating request")
	}

	now := time.Now().UTC()
	rr, err := svc.repo.CreateRatingRequest(ctx, RatingRequest{
		ParentProfileID: viewer.ParentProfileID,
		PlayerID:        nr.PlayerID,
		CoachProfileID:  nr.CoachProfileID,
		Message:         null.NewString(nr.Message, nr.Message != ""),
		Status:          RequestPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if errors.Cause(err) == ErrRatingRequestPending {
		// created concurrently
		if existing, err = svc.repo.FindPendingRatingRequest(ctx, viewer.ParentProfileID, nr.PlayerID, nr.CoachProfileID); err != nil {
			return RatingRequest{}, errors.Wrap(err, "finding rating request")
		}
		return existing, ErrRatingRequestPending
	}
	if err != nil {
		return RatingRequest{}, errors.Wrap(err, "creating rating request")
	}
	rr.PlayerName = p.Name
	return rr, nil
}

// ListRatingRequests returns the requests a coach received, or the ones a parent sent.
// status is pending, completed or empty for all.
func (svc *Service) ListRatingRequests(ctx context.Context, viewer user.Viewer, status string) (RatingRequests, error) {
	var f RatingRequestFilter
	switch {
	case viewer.CoachProfileID != "":
		f.CoachProfileID = viewer.CoachProfileID
	case viewer.ParentProfileID != "":
		f.ParentProfileID = viewer.ParentProfileID
	default:
		return RatingRequests{Requests: []RatingRequest{}}, nil
	}
	if status != RequestPending && status != RequestCompleted {
		status = ""
	}

	all, err := svc.repo.QueryRatingRequests(ctx, f)
	if err != nil {
		return RatingRequests{}, errors.Wrap(err, "querying rating requests")
	}
	res := RatingRequests{Requests: make([]RatingRequest, 0, len(all))}
	for _, rr := range all {
		if rr.Status == RequestPending {
			res.PendingCount++
		}
		if status == "" || rr.Status == status {
			res.Requests = append(res.Requests, rr)
		}
	}
	return res, nil
}
