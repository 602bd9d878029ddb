package inmemdb

import (
	"context"
	"time"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/player"
)

type playerRepository struct {
	db *DB
}

var _ player.Repository = (*playerRepository)(nil)

func NewPlayerRepository(db *DB) player.Repository {
	return &playerRepository{db: db}
}

func (repo *playerRepository) CreatePlayer(_ context.Context, p player.Player, _ ...core.DBExecutor) (player.Player, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if p.ID == "" {
		p.ID = newID()
	}
	repo.db.players[p.ID] = p
	return p, nil
}

func (repo *playerRepository) GetPlayer(_ context.Context, id string, _ ...core.DBExecutor) (player.Player, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.players[id]; ok {
		return p, nil
	}
	return player.Player{}, errNotFound
}

// listing joins p with its parent. The caller holds the lock.
func (repo *playerRepository) listing(p player.Player) (player.Listing, bool) {
	parent, ok := repo.db.parents[p.ParentID]
	if !ok {
		return player.Listing{}, false
	}
	usr := repo.db.users[parent.UserID]

	l := player.Listing{
		Player:       p,
		ParentUserID: usr.ID,
		ParentName:   usr.Name,
		ParentEmail:  usr.Email,
		ParentPhone:  usr.Phone,
		ParentPlanID: parent.PlanID,
	}
	var latest time.Time
	for _, s := range repo.db.subscriptions {
		if s.PlayerID == p.ID && s.IsActive() && (l.SubscriptionPlanID == "" || s.CreatedAt.After(latest)) {
			l.SubscriptionPlanID = s.PlanID
			latest = s.CreatedAt
		}
	}
	return l, true
}

func (repo *playerRepository) GetListing(_ context.Context, id string) (player.Listing, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	p, ok := repo.db.players[id]
	if !ok {
		return player.Listing{}, errNotFound
	}
	l, ok := repo.listing(p)
	if !ok {
		return player.Listing{}, errNotFound
	}
	return l, nil
}

// hiddenBy reports whether blockerID blocked blockedID. The caller holds the lock.
func (db *DB) hiddenBy(blockerID, blockedID string) bool {
	for _, b := range db.blocks {
		if b.BlockerUserID == blockerID && b.BlockedUserID == blockedID {
			return true
		}
	}
	return false
}

func (repo *playerRepository) QueryListings(_ context.Context, filter player.QueryFilter) ([]player.Listing, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	listings := make([]player.Listing, 0)
	for _, p := range repo.db.players {
		l, ok := repo.listing(p)
		if !ok {
			continue
		}
		switch {
		case filter.Search != "" && !contains(p.Name, filter.Search) && !contains(p.Team.String, filter.Search) &&
			!contains(p.League.String, filter.Search) && !contains(p.Position.String, filter.Search) &&
			!contains(p.Location.String, filter.Search):
		case filter.ParentID != "" && p.ParentID != filter.ParentID:
		case inSlice(filter.ExcludeEmails, l.ParentEmail):
		case filter.HiddenFrom != "" && repo.db.hiddenBy(l.ParentUserID, filter.HiddenFrom):
		default:
			listings = append(listings, l)
		}
	}
	newestFirst(listings, func(l player.Listing) time.Time { return l.CreatedAt })
	return page(listings, filter.Limit, filter.Offset), nil
}

func (repo *playerRepository) QueryPlayers(_ context.Context, parentID string) ([]player.Player, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	players := make([]player.Player, 0)
	for _, p := range repo.db.players {
		if p.ParentID == parentID {
			players = append(players, p)
		}
	}
	newestFirst(players, func(p player.Player) time.Time { return p.CreatedAt })
	return players, nil
}

func (repo *playerRepository) CountPlayers(_ context.Context, parentID string, _ ...core.DBExecutor) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, p := range repo.db.players {
		if p.ParentID == parentID {
			n++
		}
	}
	return n, nil
}

func (repo *playerRepository) UpdatePlayer(_ context.Context, p player.Player, _ ...core.DBExecutor) (player.Player, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.players[p.ID]; !ok {
		return player.Player{}, errNotFound
	}
	repo.db.players[p.ID] = p
	return p, nil
}

// DeletePlayer releases the subscriptions attached to the player.
func (repo *playerRepository) DeletePlayer(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.players[id]; !ok {
		return errNotFound
	}
	delete(repo.db.players, id)
	for sid, s := range repo.db.subscriptions {
		if s.PlayerID == id {
			s.PlayerID = ""
			repo.db.subscriptions[sid] = s
		}
	}
	return nil
}

func (repo *playerRepository) CreateSubscription(_ context.Context, s plan.PlayerSubscription, _ ...core.DBExecutor) (plan.PlayerSubscription, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s.ID == "" {
		s.ID = newID()
	}
	repo.db.subscriptions[s.ID] = s
	return s, nil
}

func (repo *playerRepository) GetSubscription(_ context.Context, filter player.SubscriptionFilter, _ ...core.DBExecutor) (plan.PlayerSubscription, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var match func(plan.PlayerSubscription) bool
	switch {
	case filter.ID != "":
		match = func(s plan.PlayerSubscription) bool { return s.ID == filter.ID }
	case filter.StripeSubscriptionID != "":
		match = func(s plan.PlayerSubscription) bool { return s.StripeSubscriptionID == filter.StripeSubscriptionID }
	case filter.PlayerID != "":
		match = func(s plan.PlayerSubscription) bool { return s.PlayerID == filter.PlayerID }
	default:
		return plan.PlayerSubscription{}, errNotFound
	}

	var (
		found plan.PlayerSubscription
		ok    bool
	)
	for _, s := range repo.db.subscriptions {
		if match(s) && (!ok || s.CreatedAt.After(found.CreatedAt)) {
			found, ok = s, true
		}
	}
	if !ok {
		return plan.PlayerSubscription{}, errNotFound
	}
	return found, nil
}

func (repo *playerRepository) QuerySubscriptions(_ context.Context, parentID string, _ ...core.DBExecutor) ([]plan.PlayerSubscription, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]plan.PlayerSubscription, 0)
	for _, s := range repo.db.subscriptions {
		if s.ParentID == parentID {
			subs = append(subs, s)
		}
	}
	oldestFirst(subs, func(s plan.PlayerSubscription) time.Time { return s.CreatedAt })
	return subs, nil
}

func (repo *playerRepository) UpdateSubscription(_ context.Context, s plan.PlayerSubscription, _ ...core.DBExecutor) (plan.PlayerSubscription, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subscriptions[s.ID]; !ok {
		return plan.PlayerSubscription{}, errNotFound
	}
	repo.db.subscriptions[s.ID] = s
	return s, nil
}
