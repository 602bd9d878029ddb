package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	if usr.ID == "" {
		usr.ID = newID()
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if usr, ok := repo.db.users[filter.ID]; ok {
			return usr, nil
		}
	case filter.Email != "":
		for _, usr := range repo.db.users {
			if usr.Email == filter.Email {
				return usr, nil
			}
		}
	}
	return user.User{}, errNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter.Search != "" && !contains(usr.Name, filter.Search) && !contains(usr.Email, filter.Search) {
			continue
		}
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		users = append(users, usr)
	}

	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := users[i], users[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "name":
				if a.Name != b.Name {
					return a.Name < b.Name
				}
			case "email":
				if a.Email != b.Email {
					return a.Email < b.Email
				}
			case "role":
				if a.Role != b.Role {
					return a.Role < b.Role
				}
			case "created_at":
				if !a.CreatedAt.Equal(b.CreatedAt) {
					return a.CreatedAt.Before(b.CreatedAt)
				}
			case "last_login":
				if !a.LastLogin.Equal(b.LastLogin) {
					return a.LastLogin.Before(b.LastLogin)
				}
			}
		}
		if len(ordering) == 0 {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return false
	})
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, errNotFound
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) CreateParentProfile(_ context.Context, p user.ParentProfile, _ ...core.DBExecutor) (user.ParentProfile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if p.ID == "" {
		p.ID = newID()
	}
	repo.db.parents[p.ID] = p
	return p, nil
}

func (repo *userRepository) GetParentProfile(_ context.Context, filter user.ProfileFilter, _ ...core.DBExecutor) (user.ParentProfile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.parents[filter.ID]; ok {
			return p, nil
		}
		return user.ParentProfile{}, errNotFound
	}
	for _, p := range repo.db.parents {
		switch {
		case filter.UserID != "":
			if p.UserID == filter.UserID {
				return p, nil
			}
		case filter.StripeCustomerID != "":
			if p.StripeCustomerID == filter.StripeCustomerID {
				return p, nil
			}
		case filter.StripeSubscriptionID != "":
			if p.StripeSubscriptionID == filter.StripeSubscriptionID {
				return p, nil
			}
		}
	}
	return user.ParentProfile{}, errNotFound
}

func (repo *userRepository) UpdateParentProfile(_ context.Context, p user.ParentProfile, _ ...core.DBExecutor) (user.ParentProfile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.parents[p.ID]; !ok {
		return user.ParentProfile{}, errNotFound
	}
	repo.db.parents[p.ID] = p
	return p, nil
}

// withUser fills the fields a coach profile reads from its user. The caller holds the lock.
func (repo *userRepository) withUser(c user.CoachProfile) user.CoachProfile {
	usr := repo.db.users[c.UserID]
	c.Name = usr.Name
	c.Email = usr.Email
	return c
}

func (repo *userRepository) CreateCoachProfile(_ context.Context, c user.CoachProfile, _ ...core.DBExecutor) (user.CoachProfile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c.ID == "" {
		c.ID = newID()
	}
	repo.db.coaches[c.ID] = c
	return c, nil
}

func (repo *userRepository) GetCoachProfile(_ context.Context, filter user.ProfileFilter, _ ...core.DBExecutor) (user.CoachProfile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.coaches {
		if (filter.ID != "" && c.ID == filter.ID) || (filter.ID == "" && filter.UserID != "" && c.UserID == filter.UserID) {
			return repo.withUser(c), nil
		}
	}
	return user.CoachProfile{}, errNotFound
}

func (repo *userRepository) QueryCoachProfiles(_ context.Context, filter user.CoachFilter, _ ...core.DBExecutor) ([]user.CoachProfile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	coaches := make([]user.CoachProfile, 0)
	for _, c := range repo.db.coaches {
		usr, ok := repo.db.users[c.UserID]
		if !ok || !usr.IsActive {
			continue
		}
		c = repo.withUser(c)
		switch {
		case filter.Search != "" && !contains(c.Name, filter.Search) && !contains(c.Team, filter.Search) &&
			!contains(c.League, filter.Search) && !contains(c.Location, filter.Search):
		case filter.League != "" && c.League != filter.League:
		case filter.Team != "" && c.Team != filter.Team:
		case filter.Level != "" && c.Level != filter.Level:
		case filter.BirthYear != 0 && c.BirthYear != filter.BirthYear:
		case filter.HeadCoachOnly && !c.IsHeadCoach():
		case filter.ExcludeID != "" && c.ID == filter.ExcludeID:
		case inSlice(filter.ExcludeUserIDs, c.UserID):
		case inSlice(filter.ExcludeEmails, c.Email):
		default:
			coaches = append(coaches, c)
		}
	}
	newestFirst(coaches, func(c user.CoachProfile) time.Time { return c.CreatedAt })
	return page(coaches, filter.Limit, filter.Offset), nil
}

func (repo *userRepository) UpdateCoachProfile(_ context.Context, c user.CoachProfile, _ ...core.DBExecutor) (user.CoachProfile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.coaches[c.ID]; !ok {
		return user.CoachProfile{}, errNotFound
	}
	repo.db.coaches[c.ID] = c
	return c, nil
}

func (repo *userRepository) GetBlockedEmail(_ context.Context, email string) (user.BlockedEmail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if be, ok := repo.db.blockedEmails[strings.ToLower(email)]; ok {
		return be, nil
	}
	return user.BlockedEmail{}, errNotFound
}

func (repo *userRepository) QueryBlockedEmails(_ context.Context) ([]user.BlockedEmail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	emails := make([]user.BlockedEmail, 0, len(repo.db.blockedEmails))
	for _, be := range repo.db.blockedEmails {
		emails = append(emails, be)
	}
	newestFirst(emails, func(be user.BlockedEmail) time.Time { return be.CreatedAt })
	return emails, nil
}

func (repo *userRepository) CreateBlockedEmail(_ context.Context, be user.BlockedEmail) (user.BlockedEmail, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.blockedEmails[strings.ToLower(be.Email)] = be
	return be, nil
}

func (repo *userRepository) DeleteBlockedEmail(_ context.Context, email string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := strings.ToLower(email)
	if _, ok := repo.db.blockedEmails[key]; !ok {
		return errNotFound
	}
	delete(repo.db.blockedEmails, key)
	return nil
}

// withBlocked fills the name and role of the blocked user. The caller holds the lock.
func (repo *userRepository) withBlocked(b user.Block) user.Block {
	usr := repo.db.users[b.BlockedUserID]
	b.BlockedName = usr.Name
	b.BlockedRole = usr.Role
	return b
}

func (repo *userRepository) CreateBlock(_ context.Context, b user.Block) (user.Block, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.blocks {
		if existing.BlockerUserID == b.BlockerUserID && existing.BlockedUserID == b.BlockedUserID {
			return user.Block{}, core.NewConflictError("block exists")
		}
	}
	if b.ID == "" {
		b.ID = newID()
	}
	repo.db.blocks[b.ID] = b
	return repo.withBlocked(b), nil
}

func (repo *userRepository) GetBlock(_ context.Context, blockerID, blockedID string) (user.Block, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, b := range repo.db.blocks {
		if b.BlockerUserID == blockerID && b.BlockedUserID == blockedID {
			return repo.withBlocked(b), nil
		}
	}
	return user.Block{}, errNotFound
}

func (repo *userRepository) GetBlockByID(_ context.Context, id string) (user.Block, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.blocks[id]; ok {
		return repo.withBlocked(b), nil
	}
	return user.Block{}, errNotFound
}

func (repo *userRepository) QueryBlocks(_ context.Context, userID string) ([]user.Block, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	blocks := make([]user.Block, 0)
	for _, b := range repo.db.blocks {
		if b.BlockerUserID == userID {
			blocks = append(blocks, repo.withBlocked(b))
		}
	}
	newestFirst(blocks, func(b user.Block) time.Time { return b.CreatedAt })
	return blocks, nil
}

func (repo *userRepository) BlockedUserIDs(_ context.Context, userID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]bool)
	ids := []string{}
	for _, b := range repo.db.blocks {
		var other string
		switch userID {
		case b.BlockerUserID:
			other = b.BlockedUserID
		case b.BlockedUserID:
			other = b.BlockerUserID
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			ids = append(ids, other)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *userRepository) DeleteBlock(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.blocks[id]; !ok {
		return errNotFound
	}
	delete(repo.db.blocks, id)
	return nil
}
