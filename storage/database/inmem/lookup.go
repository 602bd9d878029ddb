package inmemdb

import (
	"context"
	"sort"

	"github.com/myhockeyrecruiting/mhr/core/lookup"
)

type lookupRepository struct {
	db *DB
}

var _ lookup.Repository = (*lookupRepository)(nil)

func NewLookupRepository(db *DB) lookup.Repository {
	return &lookupRepository{db: db}
}

func (repo *lookupRepository) CreateValue(_ context.Context, v lookup.Value) (lookup.Value, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if v.ID == "" {
		v.ID = newID()
	}
	repo.db.lookups[v.ID] = v
	return v, nil
}

func (repo *lookupRepository) GetValue(_ context.Context, id string) (lookup.Value, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if v, ok := repo.db.lookups[id]; ok {
		return v, nil
	}
	return lookup.Value{}, errNotFound
}

func (repo *lookupRepository) FindValue(_ context.Context, category, value string) (lookup.Value, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, v := range repo.db.lookups {
		if v.Category == category && v.Value == value {
			return v, nil
		}
	}
	return lookup.Value{}, errNotFound
}

func (repo *lookupRepository) QueryValues(_ context.Context, category string, activeOnly bool) ([]lookup.Value, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	values := make([]lookup.Value, 0)
	for _, v := range repo.db.lookups {
		if (category == "" || v.Category == category) && (!activeOnly || v.Active) {
			values = append(values, v)
		}
	}
	sort.Slice(values, func(i, j int) bool {
		a, b := values[i], values[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.Value < b.Value
	})
	return values, nil
}

func (repo *lookupRepository) UpdateValue(_ context.Context, v lookup.Value) (lookup.Value, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.lookups[v.ID]
	if !ok {
		return lookup.Value{}, errNotFound
	}
	stored.Value = v.Value
	stored.SortOrder = v.SortOrder
	stored.Active = v.Active
	repo.db.lookups[v.ID] = stored
	return v, nil
}

func (repo *lookupRepository) DeleteValue(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lookups[id]; !ok {
		return errNotFound
	}
	delete(repo.db.lookups, id)
	return nil
}
