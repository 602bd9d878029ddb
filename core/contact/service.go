package contact

import (
	"context"
	"fmt"
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
	ErrNotFound         = core.NewNotFoundError("Request not found")
	ErrDuplicate        = core.NewConflictError("Request already exists")
	ErrInvalidRequest   = core.NewBadRequestError("Invalid request")
	ErrPlayerRequired   = core.NewBadRequestError("playerId required when coach requests parent contact")
	ErrAlreadyProcessed = core.NewBadRequestError("Request already processed")
	ErrNotRecipient     = core.NewPermissionError("Only the recipient can approve or reject")
	ErrOwnContact       = core.NewBadRequestError("Cannot request your own contact")
	ErrParentRequired   = core.NewBadRequestError("Parent profile required")
	ErrCoachUpgrade     = core.NewUpgradeRequiredError(string(plan.ContactRequests), "Contact requests require a Gold plan or higher. Upgrade to connect with coaches.")
	ErrParentUpgrade    = core.NewUpgradeRequiredError(string(plan.ParentContactRequests), "Contact requests require a Gold plan or higher. Upgrade to connect with other parents.")
)

const (
	msgAlreadyPending   = "Request already pending"
	parentDashboardLink = "/parent-dashboard/overview"
	coachDashboardLink  = "/coach-dashboard/requests"
)

type (
	Repository interface {
		// CreateRequest returns ErrDuplicate when the coach/parent/player triple already has a request.
		CreateRequest(ctx context.Context, r Request) (Request, error)
		GetRequest(ctx context.Context, id string) (Request, error)
		// FindRequest returns the request on the coach/parent/player triple.
		// An empty playerID matches the request made without a player.
		FindRequest(ctx context.Context, coachID, parentID, playerID string) (Request, error)
		// QueryRequests lists requests newest first, with the coach, parent and player names.
		QueryRequests(ctx context.Context, filter RequestFilter) ([]Request, error)
		UpdateRequest(ctx context.Context, r Request) (Request, error)

		// CreateParentRequest returns ErrDuplicate when the requesting/target/player triple already has a request.
		CreateParentRequest(ctx context.Context, r ParentRequest) (ParentRequest, error)
		GetParentRequest(ctx context.Context, id string) (ParentRequest, error)
		FindParentRequest(ctx context.Context, requestingID, targetID, playerID string) (ParentRequest, error)
		// QueryParentRequests lists requests newest first, with the requesting parent and player names.
		QueryParentRequests(ctx context.Context, filter ParentRequestFilter) ([]ParentRequest, error)
		UpdateParentRequest(ctx context.Context, r ParentRequest) (ParentRequest, error)
	}

	Service struct {
		repo          Repository
		users         user.Repository
		players       player.Repository
		notifications *notification.Service
		logger        core.Logger
	}
)

var _ player.ContactChecker = (*Service)(nil)

func NewService(
	repo Repository,
	users user.Repository,
	players player.Repository,
	notifications *notification.Service,
	logger core.Logger,
) *Service {
	return &Service{
		repo:          repo,
		users:         users,
		players:       players,
		notifications: notifications,
		logger:        logger,
	}
}

// notify sends an in-app notification. Failures are logged only.
func (svc *Service) notify(ctx context.Context, userID, title, body, link string) {
	if _, err := svc.notifications.Create(ctx, userID, notification.TypeRequest, title, body, link); err != nil {
		svc.logger.Error(fmt.Sprintf("creating notification: %v", err), err)
	}
}

func existingMsg(status string) string {
	if status == StatusPending {
		return msgAlreadyPending
	}
	return ""
}

func (svc *Service) playerOf(ctx context.Context, playerID, parentID string) (player.Player, error) {
	p, err := svc.players.GetPlayer(ctx, playerID)
	if err != nil {
		if core.IsNotFound(err) {
			return player.Player{}, player.ErrNotFound
		}
		return player.Player{}, errors.Wrap(err, "getting player")
	}
	if p.ParentID != parentID {
		return player.Player{}, player.ErrNotFound
	}
	return p, nil
}

// Create stores a coach <-> parent contact request made by viewer.
// When a request already exists on the same triple, it is returned with a message instead.
func (svc *Service) Create(ctx context.Context, viewer user.Viewer, nr NewRequest) (Request, string, error) {
	var pl player.Player
	switch nr.RequestedBy {
	case ByCoach:
		if viewer.CoachProfileID == "" || viewer.CoachProfileID != nr.CoachProfileID {
			return Request{}, "", ErrInvalidRequest
		}
		if nr.PlayerID == "" {
			return Request{}, "", ErrPlayerRequired
		}
		var err error
		if pl, err = svc.playerOf(ctx, nr.PlayerID, nr.ParentProfileID); err != nil {
			return Request{}, "", err
		}
	case ByParent:
		if viewer.ParentProfileID == "" || viewer.ParentProfileID != nr.ParentProfileID {
			return Request{}, "", ErrInvalidRequest
		}
		parent, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{ID: viewer.ParentProfileID})
		if err != nil {
			return Request{}, "", errors.Wrap(err, "getting parent profile")
		}
		if !plan.HasFeatureAs(parent.PlanID, plan.ContactRequests, viewer.IsAdmin()) {
			return Request{}, "", ErrCoachUpgrade
		}
		nr.PlayerID = ""
	default:
		return Request{}, "", ErrInvalidRequest
	}

	coach, err := svc.users.GetCoachProfile(ctx, user.ProfileFilter{ID: nr.CoachProfileID})
	if err != nil {
		if core.IsNotFound(err) {
			return Request{}, "", user.ErrCoachNotFound
		}
		return Request{}, "", errors.Wrap(err, "getting coach profile")
	}
	parent, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{ID: nr.ParentProfileID})
	if err != nil {
		if core.IsNotFound(err) {
			return Request{}, "", user.ErrParentNotFound
		}
		return Request{}, "", errors.Wrap(err, "getting parent profile")
	}

	existing, err := svc.repo.FindRequest(ctx, nr.CoachProfileID, nr.ParentProfileID, nr.PlayerID)
	if err == nil {
		return existing, existingMsg(existing.Status), nil
	} else if !core.IsNotFound(err) {
		return Request{}, "", errors.Wrap(err, "finding contact request")
	}

	now := time.Now().UTC()
	req, err := svc.repo.CreateRequest(ctx, Request{
		CoachProfileID:  nr.CoachProfileID,
		ParentProfileID: nr.ParentProfileID,
		PlayerID:        null.NewString(nr.PlayerID, nr.PlayerID != ""),
		RequestedBy:     nr.RequestedBy,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if errors.Cause(err) == ErrDuplicate {
		// created concurrently
		existing, err = svc.repo.FindRequest(ctx, nr.CoachProfileID, nr.ParentProfileID, nr.PlayerID)
		if err != nil {
			return Request{}, "", errors.Wrap(err, "finding contact request")
		}
		return existing, existingMsg(existing.Status), nil
	}
	if err != nil {
		return Request{}, "", errors.Wrap(err, "creating contact request")
	}

	if nr.RequestedBy == ByCoach {
		svc.notify(ctx, parent.UserID, "Coach Contact Request",
			fmt.Sprintf("%s would like to connect about %s.", viewer.Name, pl.Name), parentDashboardLink)
	} else {
		svc.notify(ctx, coach.UserID, "Parent Contact Request",
			fmt.Sprintf("%s would like to connect with you.", viewer.Name), coachDashboardLink)
	}
	return req, "", nil
}

// Decide approves or rejects a pending request. Only the recipient may decide.
func (svc *Service) Decide(ctx context.Context, viewer user.Viewer, id string, d Decision) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Request{}, ErrNotFound
		}
		return Request{}, errors.Wrap(err, "getting contact request")
	}

	var isRecipient bool
	switch req.RequestedBy {
	case ByCoach:
		isRecipient = viewer.ParentProfileID != "" && viewer.ParentProfileID == req.ParentProfileID
	case ByParent:
		isRecipient = viewer.CoachProfileID != "" && viewer.CoachProfileID == req.CoachProfileID
	}
	if !isRecipient {
		return Request{}, ErrNotRecipient
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyProcessed
	}

	req.Status = d.Status
	req.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRequest(ctx, req)
}

// List returns the requests of the viewer. Incoming requests were made by the other party.
func (svc *Service) List(ctx context.Context, viewer user.Viewer, filter string) ([]Request, error) {
	var f RequestFilter
	switch {
	case viewer.ParentProfileID != "":
		f.ParentProfileID = viewer.ParentProfileID
		switch filter {
		case FilterIncoming:
			f.RequestedBy = ByCoach
		case FilterOutgoing:
			f.RequestedBy = ByParent
		}
	case viewer.CoachProfileID != "":
		f.CoachProfileID = viewer.CoachProfileID
		switch filter {
		case FilterIncoming:
			f.RequestedBy = ByParent
		case FilterOutgoing:
			f.RequestedBy = ByCoach
		}
	default:
		return []Request{}, nil
	}
	return svc.repo.QueryRequests(ctx, f)
}

// Check reports the status of the request between a coach and a parent about playerID.
// Viewers that are neither party never have access.
func (svc *Service) Check(ctx context.Context, viewer user.Viewer, coachID, parentID, playerID string) (CheckResult, error) {
	isParty := (viewer.CoachProfileID != "" && viewer.CoachProfileID == coachID) ||
		(viewer.ParentProfileID != "" && viewer.ParentProfileID == parentID)
	if !isParty {
		return CheckResult{Status: StatusNone}, nil
	}

	req, err := svc.repo.FindRequest(ctx, coachID, parentID, playerID)
	if err != nil {
		if core.IsNotFound(err) {
			return CheckResult{Status: StatusNone}, nil
		}
		return CheckResult{}, errors.Wrap(err, "finding contact request")
	}
	return CheckResult{HasAccess: req.Status == StatusApproved, Status: req.Status}, nil
}

// CreateParent stores a parent -> parent contact request about one of the target's players.
func (svc *Service) CreateParent(ctx context.Context, viewer user.Viewer, nr NewParentRequest) (ParentRequest, string, error) {
	if viewer.ParentProfileID == "" {
		return ParentRequest{}, "", ErrParentRequired
	}
	if nr.TargetParentID == viewer.ParentProfileID {
		return ParentRequest{}, "", ErrOwnContact
	}

	requester, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{ID: viewer.ParentProfileID})
	if err != nil {
		return ParentRequest{}, "", errors.Wrap(err, "getting parent profile")
	}
	if !plan.HasFeatureAs(requester.PlanID, plan.ParentContactRequests, viewer.IsAdmin()) {
		return ParentRequest{}, "", ErrParentUpgrade
	}

	pl, err := svc.playerOf(ctx, nr.PlayerID, nr.TargetParentID)
	if err != nil {
		return ParentRequest{}, "", err
	}
	target, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{ID: nr.TargetParentID})
	if err != nil {
		if core.IsNotFound(err) {
			return ParentRequest{}, "", user.ErrParentNotFound
		}
		return ParentRequest{}, "", errors.Wrap(err, "getting parent profile")
	}

	existing, err := svc.repo.FindParentRequest(ctx, viewer.ParentProfileID, nr.TargetParentID, nr.PlayerID)
	if err == nil {
		return existing, existingMsg(existing.Status), nil
	} else if !core.IsNotFound(err) {
		return ParentRequest{}, "", errors.Wrap(err, "finding parent contact request")
	}

	now := time.Now().UTC()
	req, err := svc.repo.CreateParentRequest(ctx, ParentRequest{
		RequestingParentID: viewer.ParentProfileID,
		TargetParentID:     nr.TargetParentID,
		PlayerID:           nr.PlayerID,
		Status:             StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if errors.Cause(err) == ErrDuplicate {
		existing, err = svc.repo.FindParentRequest(ctx, viewer.ParentProfileID, nr.TargetParentID, nr.PlayerID)
		if err != nil {
			return ParentRequest{}, "", errors.Wrap(err, "finding parent contact request")
		}
		return existing, existingMsg(existing.Status), nil
	}
	if err != nil {
		return ParentRequest{}, "", errors.Wrap(err, "creating parent contact request")
	}

	requesterName := viewer.Name
	if requesterName == "" {
		requesterName = "A parent"
	}
	svc.notify(ctx, target.UserID, "Parent Contact Request",
		fmt.Sprintf("%s would like to connect about %s.", requesterName, pl.Name), parentDashboardLink)
	return req, "", nil
}

// DecideParent approves or rejects a parent request. Only the target parent sees it.
func (svc *Service) DecideParent(ctx context.Context, viewer user.Viewer, id string, d Decision) (ParentRequest, error) {
	req, err := svc.repo.GetParentRequest(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return ParentRequest{}, ErrNotFound
		}
		return ParentRequest{}, errors.Wrap(err, "getting parent contact request")
	}
	if viewer.ParentProfileID == "" || req.TargetParentID != viewer.ParentProfileID {
		return ParentRequest{}, ErrNotFound
	}
	if req.Status != StatusPending {
		return ParentRequest{}, ErrAlreadyProcessed
	}

	req.Status = d.Status
	req.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateParentRequest(ctx, req)
}

// ListIncomingParent lists the pending requests addressed to the viewer.
func (svc *Service) ListIncomingParent(ctx context.Context, viewer user.Viewer) ([]ParentRequest, error) {
	if viewer.ParentProfileID == "" {
		return []ParentRequest{}, nil
	}
	return svc.repo.QueryParentRequests(ctx, ParentRequestFilter{
		TargetParentID: viewer.ParentProfileID,
		Status:         StatusPending,
	})
}

// CheckParent reports whether the viewer can see the contact details of targetID for playerID.
// Parents always see their own details.
func (svc *Service) CheckParent(ctx context.Context, viewer user.Viewer, targetID, playerID string) (CheckResult, error) {
	if viewer.ParentProfileID == "" {
		return CheckResult{Status: StatusNone}, nil
	}
	if viewer.ParentProfileID == targetID {
		return CheckResult{HasAccess: true, Status: StatusApproved}, nil
	}
	req, err := svc.repo.FindParentRequest(ctx, viewer.ParentProfileID, targetID, playerID)
	if err != nil {
		if core.IsNotFound(err) {
			return CheckResult{Status: StatusNone}, nil
		}
		return CheckResult{}, errors.Wrap(err, "finding parent contact request")
	}
	return CheckResult{HasAccess: req.Status == StatusApproved, Status: req.Status}, nil
}

// HasContactAccess reports whether viewer was granted the contact details of p's parent,
// through an approved parent request or an approved coach request about p.
func (svc *Service) HasContactAccess(ctx context.Context, viewer user.Viewer, p player.Player) (bool, error) {
	if viewer.ParentProfileID != "" {
		if viewer.ParentProfileID == p.ParentID {
			return true, nil
		}
		req, err := svc.repo.FindParentRequest(ctx, viewer.ParentProfileID, p.ParentID, p.ID)
		if err == nil && req.Status == StatusApproved {
			return true, nil
		} else if err != nil && !core.IsNotFound(err) {
			return false, err
		}
	}
	if viewer.CoachProfileID != "" {
		req, err := svc.repo.FindRequest(ctx, viewer.CoachProfileID, p.ParentID, p.ID)
		if err == nil {
			return req.Status == StatusApproved, nil
		} else if !core.IsNotFound(err) {
			return false, err
		}
	}
	return false, nil
}
