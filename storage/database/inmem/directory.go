package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core/directory"
)

type directoryRepository struct {
	db *DB
}

var _ directory.Repository = (*directoryRepository)(nil)

func NewDirectoryRepository(db *DB) directory.Repository {
	return &directoryRepository{db: db}
}

func (repo *directoryRepository) CreateFacility(_ context.Context, f directory.Facility) (directory.Facility, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if f.ID == "" {
		f.ID = newID()
	}
	if f.Amenities == nil {
		f.Amenities = pq.StringArray{}
	}
	repo.db.facilities[f.ID] = f
	return f, nil
}

func (repo *directoryRepository) GetFacility(_ context.Context, id string) (directory.Facility, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.facilities[id]; ok {
		return f, nil
	}
	return directory.Facility{}, errNotFound
}

func (repo *directoryRepository) QueryFacilities(_ context.Context, status string, limit int) ([]directory.Facility, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	facilities := make([]directory.Facility, 0)
	for _, f := range repo.db.facilities {
		if status == "" || f.Status == status {
			facilities = append(facilities, f)
		}
	}
	newestFirst(facilities, func(f directory.Facility) time.Time { return f.CreatedAt })
	return page(facilities, limit, 0), nil
}

func (repo *directoryRepository) UpdateFacility(_ context.Context, f directory.Facility) (directory.Facility, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.facilities[f.ID]
	if !ok {
		return directory.Facility{}, errNotFound
	}
	f.SubmittedBy = stored.SubmittedBy
	f.CreatedAt = stored.CreatedAt
	repo.db.facilities[f.ID] = f
	return f, nil
}

func (repo *directoryRepository) FacilitySlugTaken(_ context.Context, slug string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, f := range repo.db.facilities {
		if f.Slug.Valid && f.Slug.String == slug && f.Status == directory.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (repo *directoryRepository) CreateSchool(_ context.Context, s directory.School) (directory.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s.ID == "" {
		s.ID = newID()
	}
	repo.db.schools[s.ID] = s
	return s, nil
}

func (repo *directoryRepository) GetSchool(_ context.Context, id string) (directory.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.schools[id]; ok {
		return s, nil
	}
	return directory.School{}, errNotFound
}

func (repo *directoryRepository) QuerySchools(_ context.Context, status string) ([]directory.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	schools := make([]directory.School, 0)
	for _, s := range repo.db.schools {
		if status == "" || s.Status == status {
			schools = append(schools, s)
		}
	}
	newestFirst(schools, func(s directory.School) time.Time { return s.CreatedAt })
	return schools, nil
}

func (repo *directoryRepository) UpdateSchool(_ context.Context, s directory.School) (directory.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.schools[s.ID]
	if !ok {
		return directory.School{}, errNotFound
	}
	s.SubmittedBy = stored.SubmittedBy
	s.CreatedAt = stored.CreatedAt
	repo.db.schools[s.ID] = s
	return s, nil
}

func listed(status string, slug null.String) bool {
	return status == directory.StatusApproved && slug.Valid
}

func (repo *directoryRepository) ListedFacilities(_ context.Context) ([]directory.Facility, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	facilities := make([]directory.Facility, 0)
	for _, f := range repo.db.facilities {
		if listed(f.Status, f.Slug) {
			facilities = append(facilities, f)
		}
	}
	sort.Slice(facilities, func(i, j int) bool { return facilities[i].FacilityName < facilities[j].FacilityName })
	return facilities, nil
}

func (repo *directoryRepository) GetListedFacility(_ context.Context, slug string) (directory.Facility, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, f := range repo.db.facilities {
		if listed(f.Status, f.Slug) && f.Slug.String == slug {
			return f, nil
		}
	}
	return directory.Facility{}, errNotFound
}

func (repo *directoryRepository) SchoolSlugTaken(_ context.Context, slug string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.schools {
		if listed(s.Status, s.Slug) && s.Slug.String == slug {
			return true, nil
		}
	}
	return false, nil
}

func (repo *directoryRepository) ListedSchools(_ context.Context) ([]directory.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	schools := make([]directory.School, 0)
	for _, s := range repo.db.schools {
		if listed(s.Status, s.Slug) {
			schools = append(schools, s)
		}
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

func (repo *directoryRepository) GetListedSchool(_ context.Context, slug string) (directory.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.schools {
		if listed(s.Status, s.Slug) && s.Slug.String == slug {
			return s, nil
		}
	}
	return directory.School{}, errNotFound
}

func (repo *directoryRepository) CreateFacilityReview(_ context.Context, r directory.Review) (directory.Review, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if r.ID == "" {
		r.ID = newID()
	}
	repo.db.facilityReviews[r.ID] = r
	return r, nil
}

func (repo *directoryRepository) QueryFacilityReviews(_ context.Context, slug string) ([]directory.Review, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reviews := make([]directory.Review, 0)
	for _, r := range repo.db.facilityReviews {
		if r.Slug == slug {
			reviews = append(reviews, r)
		}
	}
	newestFirst(reviews, func(r directory.Review) time.Time { return r.CreatedAt })
	return reviews, nil
}

// addRating folds rating into the running average of slug.
func addRating(ratings map[string]directory.Rating, slug string, rating int) {
	r := ratings[slug]
	r.Average = (r.Average*float64(r.Count) + float64(rating)) / float64(r.Count+1)
	r.Count++
	ratings[slug] = r
}

func (repo *directoryRepository) FacilityRatings(_ context.Context) (map[string]directory.Rating, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ratings := make(map[string]directory.Rating)
	for _, r := range repo.db.facilityReviews {
		addRating(ratings, r.Slug, r.Rating)
	}
	return ratings, nil
}

func (repo *directoryRepository) CreateSchoolReview(_ context.Context, r directory.SchoolReview) (directory.SchoolReview, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if r.ID == "" {
		r.ID = newID()
	}
	repo.db.schoolReviews[r.ID] = r
	return r, nil
}

func (repo *directoryRepository) QuerySchoolReviews(_ context.Context, slug string, filter directory.ReviewFilter) ([]directory.SchoolReview, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reviews := make([]directory.SchoolReview, 0)
	for _, r := range repo.db.schoolReviews {
		if r.Slug != slug ||
			(filter.AgeBracket != "" && !inSlice(r.AgeBracket, filter.AgeBracket)) ||
			(filter.Gender != "" && r.Gender != filter.Gender) ||
			(filter.League != "" && r.League != filter.League) {
			continue
		}
		reviews = append(reviews, r)
	}
	newestFirst(reviews, func(r directory.SchoolReview) time.Time { return r.CreatedAt })
	return reviews, nil
}

func (repo *directoryRepository) SchoolRatings(_ context.Context) (map[string]directory.Rating, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ratings := make(map[string]directory.Rating)
	for _, r := range repo.db.schoolReviews {
		addRating(ratings, r.Slug, r.Rating)
	}
	return ratings, nil
}
