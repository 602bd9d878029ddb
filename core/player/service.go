package player

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("Player not found")
	ErrParentsOnly    = core.NewPermissionError("Only parents can add players")
	ErrNotOwnerEdit   = core.NewPermissionError("You can only edit your own players")
	ErrNotOwnerDelete = core.NewPermissionError("You can only delete your own players")
)

type (
	Repository interface {
		CreatePlayer(ctx context.Context, p Player, exec ...core.DBExecutor) (Player, error)
		GetPlayer(ctx context.Context, id string, exec ...core.DBExecutor) (Player, error)
		GetListing(ctx context.Context, id string) (Listing, error)
		// QueryListings returns the newest players first, limited by filter.Limit.
		QueryListings(ctx context.Context, filter QueryFilter) ([]Listing, error)
		QueryPlayers(ctx context.Context, parentID string) ([]Player, error)
		CountPlayers(ctx context.Context, parentID string, exec ...core.DBExecutor) (int, error)
		UpdatePlayer(ctx context.Context, p Player, exec ...core.DBExecutor) (Player, error)
		DeletePlayer(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateSubscription(ctx context.Context, s plan.PlayerSubscription, exec ...core.DBExecutor) (plan.PlayerSubscription, error)
		GetSubscription(ctx context.Context, filter SubscriptionFilter, exec ...core.DBExecutor) (plan.PlayerSubscription, error)
		// QuerySubscriptions lists the per-player subscriptions of a parent, oldest first.
		QuerySubscriptions(ctx context.Context, parentID string, exec ...core.DBExecutor) ([]plan.PlayerSubscription, error)
		UpdateSubscription(ctx context.Context, s plan.PlayerSubscription, exec ...core.DBExecutor) (plan.PlayerSubscription, error)
	}

	// ContactChecker reports whether a viewer was granted the contact details of a player's parent.
	ContactChecker interface {
		HasContactAccess(ctx context.Context, viewer user.Viewer, p Player) (bool, error)
	}

	// RatingProvider summarizes the visible reviews of players.
	RatingProvider interface {
		PlayerRatings(ctx context.Context, playerIDs []string) (map[string]Rating, error)
	}

	// LimitError is returned when the standing of a parent does not allow one more player.
	LimitError struct {
		Decision plan.AddPlayerDecision
	}

	Service struct {
		repo     Repository
		users    user.Repository
		tx       core.Transactor
		contacts ContactChecker
		ratings  RatingProvider
		conf     *core.Config
		nowFunc  func() time.Time
	}
)

func (err LimitError) Error() string {
	if err.Decision.Reason == "" {
		return "Cannot add player"
	}
	return err.Decision.Reason
}

func NewService(
	conf *core.Config,
	repo Repository,
	users user.Repository,
	tx core.Transactor,
	contacts ContactChecker,
	ratings RatingProvider,
) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		tx:       tx,
		contacts: contacts,
		ratings:  ratings,
		conf:     conf,
		nowFunc:  time.Now,
	}
}

func (svc *Service) parent(ctx context.Context, parentID string) (user.ParentProfile, error) {
	p, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{ID: parentID})
	if err != nil {
		if core.IsNotFound(err) {
			return user.ParentProfile{}, user.ErrParentNotFound
		}
		return user.ParentProfile{}, errors.Wrap(err, "getting parent profile")
	}
	return p, nil
}

// Standing computes the subscription standing of a parent.
func (svc *Service) Standing(ctx context.Context, parentID string) (plan.Standing, error) {
	parent, err := svc.parent(ctx, parentID)
	if err != nil {
		return plan.Standing{}, err
	}
	count, err := svc.repo.CountPlayers(ctx, parentID)
	if err != nil {
		return plan.Standing{}, errors.Wrap(err, "counting players")
	}
	subs, err := svc.repo.QuerySubscriptions(ctx, parentID)
	if err != nil {
		return plan.Standing{}, errors.Wrap(err, "querying player subscriptions")
	}
	return plan.ComputeStanding(parent.Billing(), count, subs), nil
}

// PlanInfo lists the billing view of every player of a parent.
func (svc *Service) PlanInfo(ctx context.Context, parent user.ParentProfile) ([]plan.PlayerPlanInfo, error) {
	players, err := svc.repo.QueryPlayers(ctx, parent.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying players")
	}
	subs, err := svc.repo.QuerySubscriptions(ctx, parent.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying player subscriptions")
	}
	byPlayer := make(map[string]plan.PlayerSubscription, len(subs))
	for _, s := range subs {
		if s.PlayerID != "" && s.IsActive() {
			byPlayer[s.PlayerID] = s
		}
	}

	infos := make([]plan.PlayerPlanInfo, 0, len(players))
	for _, p := range players {
		var own *plan.PlayerSubscription
		if s, ok := byPlayer[p.ID]; ok {
			own = &s
		}
		infos = append(infos, plan.PlayerPlan(parent.Billing(), p.ID, p.Name, p.PlanID, own))
	}
	return infos, nil
}

// Create adds a player for the viewing parent.
// The oldest unused paid slot is bound to the new player and decides its plan.
func (svc *Service) Create(ctx context.Context, viewer user.Viewer, np NewPlayer) (Player, error) {
	if viewer.Role != user.RoleParent || viewer.ParentProfileID == "" {
		return Player{}, ErrParentsOnly
	}

	standing, err := svc.Standing(ctx, viewer.ParentProfileID)
	if err != nil {
		return Player{}, err
	}
	if decision := plan.CheckAddPlayer(standing); !decision.Allowed {
		return Player{}, &LimitError{Decision: decision}
	}

	parent, err := svc.parent(ctx, viewer.ParentProfileID)
	if err != nil {
		return Player{}, err
	}
	subs, err := svc.repo.QuerySubscriptions(ctx, parent.ID)
	if err != nil {
		return Player{}, errors.Wrap(err, "querying player subscriptions")
	}
	var slot *plan.PlayerSubscription
	for i := range subs {
		if subs[i].PlayerID == "" && subs[i].IsActive() {
			slot = &subs[i]
			break
		}
	}

	planID := plan.Free
	switch {
	case slot != nil:
		planID = slot.PlanID
	case parent.PlanID.IsFamily():
		planID = parent.PlanID
	}

	now := svc.nowFunc().UTC()
	p := Player{
		ParentID:   parent.ID,
		Name:       np.Name,
		BirthYear:  np.BirthYear,
		Position:   optString(np.Position),
		Level:      optString(np.Level),
		Gender:     optString(np.Gender),
		Location:   optString(np.Location),
		Team:       optString(np.Team),
		League:     optString(np.League),
		Bio:        optString(np.Bio),
		Image:      optString(np.Image),
		SocialLink: optString(np.SocialLink),
		Goals:      optInt(np.Goals),
		Assists:    optInt(np.Assists),
		PlusMinus:  optInt(np.PlusMinus),
		GAA:        optFloat(np.GAA),
		SavePct:    optString(np.SavePct),
		Status:     StatusPending,
		PlanID:     planID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if p, err = svc.repo.CreatePlayer(ctx, p, exec); err != nil {
			return errors.Wrap(err, "creating player")
		}
		if slot != nil {
			slot.PlayerID = p.ID
			slot.UpdatedAt = now
			_, err = svc.repo.UpdateSubscription(ctx, *slot, exec)
			return errors.Wrap(err, "binding player subscription")
		}
		return nil
	})
	return p, err
}

func (svc *Service) GetPlayer(ctx context.Context, id string) (Player, error) {
	p, err := svc.repo.GetPlayer(ctx, id)
	if core.IsNotFound(err) {
		return Player{}, ErrNotFound
	}
	return p, err
}

func (svc *Service) Update(ctx context.Context, viewer user.Viewer, id string, up UpdatePlayer) (Player, error) {
	p, err := svc.GetPlayer(ctx, id)
	if err != nil {
		return Player{}, err
	}
	if viewer.ParentProfileID == "" || p.ParentID != viewer.ParentProfileID {
		return Player{}, ErrNotOwnerEdit
	}

	if up.Name != nil {
		p.Name = *up.Name
	}
	if up.BirthYear != nil {
		p.BirthYear = *up.BirthYear
	}
	setString := func(dst *null.String, src *string) {
		if src != nil {
			*dst = optString(*src)
		}
	}
	setString(&p.Position, up.Position)
	setString(&p.Level, up.Level)
	setString(&p.Gender, up.Gender)
	setString(&p.Location, up.Location)
	setString(&p.Team, up.Team)
	setString(&p.League, up.League)
	setString(&p.Bio, up.Bio)
	setString(&p.Image, up.Image)
	setString(&p.SocialLink, up.SocialLink)
	setString(&p.SavePct, up.SavePct)
	if up.Goals != nil {
		p.Goals = optInt(up.Goals)
	}
	if up.Assists != nil {
		p.Assists = optInt(up.Assists)
	}
	if up.PlusMinus != nil {
		p.PlusMinus = optInt(up.PlusMinus)
	}
	if up.GAA != nil {
		p.GAA = optFloat(up.GAA)
	}
	p.UpdatedAt = svc.nowFunc().UTC()
	return svc.repo.UpdatePlayer(ctx, p)
}

// Delete removes a player. Its paid slot, if any, becomes available again.
func (svc *Service) Delete(ctx context.Context, viewer user.Viewer, id string) error {
	p, err := svc.GetPlayer(ctx, id)
	if err != nil {
		return err
	}
	if viewer.ParentProfileID == "" || p.ParentID != viewer.ParentProfileID {
		return ErrNotOwnerDelete
	}

	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		sub, err := svc.repo.GetSubscription(ctx, SubscriptionFilter{PlayerID: p.ID}, exec)
		switch {
		case err == nil:
			sub.PlayerID = ""
			sub.UpdatedAt = svc.nowFunc().UTC()
			if _, err = svc.repo.UpdateSubscription(ctx, sub, exec); err != nil {
				return errors.Wrap(err, "releasing player subscription")
			}
		case !core.IsNotFound(err):
			return errors.Wrap(err, "getting player subscription")
		}
		return errors.Wrap(svc.repo.DeletePlayer(ctx, p.ID, exec), "deleting player")
	})
}

func (svc *Service) newView(l Listing, rating Rating) View {
	return View{
		Player:          l.Player,
		Age:             l.Age(svc.nowFunc()),
		Rating:          rating.Average,
		ReviewCount:     rating.Count,
		ParentName:      l.ParentName,
		ParentEmail:     optString(l.ParentEmail),
		ParentPhone:     optString(l.ParentPhone),
		EffectivePlanID: l.EffectivePlan(),
	}
}

// Get returns a player as seen by viewer.
// Test accounts and players whose parent blocked the viewer are reported as not found.
func (svc *Service) Get(ctx context.Context, viewer user.Viewer, id string) (View, error) {
	l, err := svc.repo.GetListing(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return View{}, ErrNotFound
		}
		return View{}, errors.Wrap(err, "getting player")
	}

	isOwn := viewer.ParentProfileID != "" && l.ParentID == viewer.ParentProfileID
	if !isOwn && !viewer.IsAdmin() {
		if svc.conf.IsTestAccount(l.ParentEmail) {
			return View{}, ErrNotFound
		}
		if viewer.UserID != "" {
			_, err := svc.users.GetBlock(ctx, l.ParentUserID, viewer.UserID)
			if err == nil {
				return View{}, ErrNotFound
			} else if !core.IsNotFound(err) {
				return View{}, errors.Wrap(err, "getting block")
			}
		}
	}

	hasAccess := isOwn || viewer.IsAdmin()
	if !hasAccess {
		if hasAccess, err = svc.contacts.HasContactAccess(ctx, viewer, l.Player); err != nil {
			return View{}, errors.Wrap(err, "checking contact access")
		}
	}

	ratings, err := svc.ratings.PlayerRatings(ctx, []string{l.ID})
	if err != nil {
		return View{}, errors.Wrap(err, "getting player rating")
	}

	v := Mask(svc.newView(l, ratings[l.ID]), l.EffectivePlan(), hasAccess)
	v.HasContactAccess = hasAccess
	if isOwn {
		paid := l.EffectivePlan().IsPaid()
		v.HasPaidSubscription = &paid
	} else {
		v.ParentUserID = l.ParentUserID
	}
	return v, nil
}

// List returns players visible to viewer.
// With filter.Mine only the viewer's own children are listed, otherwise the listing is ordered by plan tier.
func (svc *Service) List(ctx context.Context, viewer user.Viewer, filter QueryFilter) ([]View, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Pagination.Clean(20, 50)

	if filter.Mine {
		if viewer.ParentProfileID == "" {
			return []View{}, nil
		}
		filter.ParentID = viewer.ParentProfileID
	} else {
		filter.ExcludeEmails = svc.conf.TestAccountEmails
		if viewer.Role == user.RoleCoach {
			filter.HiddenFrom = viewer.UserID
		}
	}

	listings, err := svc.repo.QueryListings(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying players")
	}
	if !filter.Mine {
		sort.SliceStable(listings, func(i, j int) bool {
			return plan.TierRank(listings[i].EffectivePlan()) > plan.TierRank(listings[j].EffectivePlan())
		})
	}

	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	ratings, err := svc.ratings.PlayerRatings(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting player ratings")
	}

	views := make([]View, 0, len(listings))
	for _, l := range listings {
		hasAccess := viewer.IsAdmin() || (viewer.ParentProfileID != "" && l.ParentID == viewer.ParentProfileID)
		v := Mask(svc.newView(l, ratings[l.ID]), l.EffectivePlan(), hasAccess)
		v.HasContactAccess = hasAccess
		views = append(views, v)
	}
	return views, nil
}
