package pgrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/directory"
)

const (
	facilityColumns = `id, facility_name, slug, address, city, zip_code, phone, website, description, hours, amenities,
		submitted_by, status, reviewed_by, reviewed_at, created_at`

	schoolColumns = `id, name, slug, address, city, zip_code, phone, website, description, submitted_by, status,
		reviewed_by, reviewed_at, created_at`

	directoryReviewColumns = `id, slug, author_id, author, rating, text, created_at`
)

type slugRatingRow struct {
	Slug    string  `db:"slug"`
	Average float64 `db:"average"`
	Count   int     `db:"count"`
}

type directoryRepository struct {
	repo
}

var _ directory.Repository = (*directoryRepository)(nil)

func NewDirectoryRepository(db core.DBExecutor) *directoryRepository {
	return &directoryRepository{repo{exec: db}}
}

func utcFacility(f directory.Facility) directory.Facility {
	f.CreatedAt = f.CreatedAt.UTC()
	if f.ReviewedAt.Valid {
		f.ReviewedAt.Time = f.ReviewedAt.Time.UTC()
	}
	return f
}

func utcSchool(s directory.School) directory.School {
	s.CreatedAt = s.CreatedAt.UTC()
	if s.ReviewedAt.Valid {
		s.ReviewedAt.Time = s.ReviewedAt.Time.UTC()
	}
	return s
}

func (r directoryRepository) CreateFacility(ctx context.Context, f directory.Facility) (directory.Facility, error) {
	if f.ID == "" {
		f.ID = newID()
	}
	if f.Amenities == nil {
		f.Amenities = pqStrings([]string{})
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO facilities (`+facilityColumns+`)
		VALUES (:id, :facility_name, :slug, :address, :city, :zip_code, :phone, :website, :description, :hours,
			:amenities, :submitted_by, :status, :reviewed_by, :reviewed_at, :created_at)`,
		f,
	)
	if err != nil {
		return directory.Facility{}, errors.Wrap(err, "inserting facility")
	}
	return f, nil
}

func (r directoryRepository) GetFacility(ctx context.Context, id string) (directory.Facility, error) {
	var f directory.Facility
	if err := sqlx.GetContext(ctx, r.exec, &f, `SELECT `+facilityColumns+` FROM facilities WHERE id = $1`, id); err != nil {
		return directory.Facility{}, trapNoRowsErr(err, errNotFound, "selecting facility")
	}
	return utcFacility(f), nil
}

func (r directoryRepository) QueryFacilities(ctx context.Context, status string, limit int) ([]directory.Facility, error) {
	var w where
	if status != "" {
		w.add("status = ?", status)
	}
	query := `SELECT ` + facilityColumns + ` FROM facilities` + w.String() + ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ` + w.arg(limit)
	}

	facilities := []directory.Facility{}
	if err := sqlx.SelectContext(ctx, r.exec, &facilities, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting facilities")
	}
	for i := range facilities {
		facilities[i] = utcFacility(facilities[i])
	}
	return facilities, nil
}

func (r directoryRepository) UpdateFacility(ctx context.Context, f directory.Facility) (directory.Facility, error) {
	res, err := sqlx.NamedExecContext(ctx, r.exec,
		`UPDATE facilities SET facility_name = :facility_name, slug = :slug, address = :address, city = :city,
			zip_code = :zip_code, phone = :phone, website = :website, description = :description, hours = :hours,
			amenities = :amenities, status = :status, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at
		WHERE id = :id`,
		f,
	)
	if err = checkAffected(res, err, errNotFound, "updating facility"); err != nil {
		return directory.Facility{}, err
	}
	return f, nil
}

// slugTaken reports whether an approved row of table uses slug.
func (r directoryRepository) slugTaken(ctx context.Context, table, slug string) (bool, error) {
	var taken bool
	err := sqlx.GetContext(ctx, r.exec, &taken,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE slug = $1 AND status = $2)`, slug, directory.StatusApproved)
	return taken, errors.Wrapf(err, "checking %s slug", table)
}

func (r directoryRepository) FacilitySlugTaken(ctx context.Context, slug string) (bool, error) {
	return r.slugTaken(ctx, "facilities", slug)
}

func (r directoryRepository) ListedFacilities(ctx context.Context) ([]directory.Facility, error) {
	facilities := []directory.Facility{}
	err := sqlx.SelectContext(ctx, r.exec, &facilities,
		`SELECT `+facilityColumns+` FROM facilities WHERE status = $1 AND slug IS NOT NULL ORDER BY facility_name`,
		directory.StatusApproved)
	if err != nil {
		return nil, errors.Wrap(err, "selecting listed facilities")
	}
	for i := range facilities {
		facilities[i] = utcFacility(facilities[i])
	}
	return facilities, nil
}

func (r directoryRepository) GetListedFacility(ctx context.Context, slug string) (directory.Facility, error) {
	var f directory.Facility
	err := sqlx.GetContext(ctx, r.exec, &f,
		`SELECT `+facilityColumns+` FROM facilities WHERE slug = $1 AND status = $2`, slug, directory.StatusApproved)
	if err != nil {
		return directory.Facility{}, trapNoRowsErr(err, errNotFound, "selecting listed facility")
	}
	return utcFacility(f), nil
}

func (r directoryRepository) CreateSchool(ctx context.Context, s directory.School) (directory.School, error) {
	if s.ID == "" {
		s.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO schools (`+schoolColumns+`)
		VALUES (:id, :name, :slug, :address, :city, :zip_code, :phone, :website, :description, :submitted_by, :status,
			:reviewed_by, :reviewed_at, :created_at)`,
		s,
	)
	if err != nil {
		return directory.School{}, errors.Wrap(err, "inserting school")
	}
	return s, nil
}

func (r directoryRepository) GetSchool(ctx context.Context, id string) (directory.School, error) {
	var s directory.School
	if err := sqlx.GetContext(ctx, r.exec, &s, `SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id); err != nil {
		return directory.School{}, trapNoRowsErr(err, errNotFound, "selecting school")
	}
	return utcSchool(s), nil
}

func (r directoryRepository) QuerySchools(ctx context.Context, status string) ([]directory.School, error) {
	var w where
	if status != "" {
		w.add("status = ?", status)
	}
	schools := []directory.School{}
	err := sqlx.SelectContext(ctx, r.exec, &schools,
		`SELECT `+schoolColumns+` FROM schools`+w.String()+` ORDER BY created_at DESC`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting schools")
	}
	for i := range schools {
		schools[i] = utcSchool(schools[i])
	}
	return schools, nil
}

func (r directoryRepository) UpdateSchool(ctx context.Context, s directory.School) (directory.School, error) {
	res, err := sqlx.NamedExecContext(ctx, r.exec,
		`UPDATE schools SET name = :name, slug = :slug, address = :address, city = :city, zip_code = :zip_code, phone = :phone,
			website = :website, description = :description, status = :status, reviewed_by = :reviewed_by,
			reviewed_at = :reviewed_at
		WHERE id = :id`,
		s,
	)
	if err = checkAffected(res, err, errNotFound, "updating school"); err != nil {
		return directory.School{}, err
	}
	return s, nil
}

func (r directoryRepository) SchoolSlugTaken(ctx context.Context, slug string) (bool, error) {
	return r.slugTaken(ctx, "schools", slug)
}

func (r directoryRepository) ListedSchools(ctx context.Context) ([]directory.School, error) {
	schools := []directory.School{}
	err := sqlx.SelectContext(ctx, r.exec, &schools,
		`SELECT `+schoolColumns+` FROM schools WHERE status = $1 AND slug IS NOT NULL ORDER BY name`,
		directory.StatusApproved)
	if err != nil {
		return nil, errors.Wrap(err, "selecting listed schools")
	}
	for i := range schools {
		schools[i] = utcSchool(schools[i])
	}
	return schools, nil
}

func (r directoryRepository) GetListedSchool(ctx context.Context, slug string) (directory.School, error) {
	var s directory.School
	err := sqlx.GetContext(ctx, r.exec, &s,
		`SELECT `+schoolColumns+` FROM schools WHERE slug = $1 AND status = $2`, slug, directory.StatusApproved)
	if err != nil {
		return directory.School{}, trapNoRowsErr(err, errNotFound, "selecting listed school")
	}
	return utcSchool(s), nil
}

// slugRatings averages the reviews of table by slug.
func (r directoryRepository) slugRatings(ctx context.Context, table string) (map[string]directory.Rating, error) {
	var rows []slugRatingRow
	err := sqlx.SelectContext(ctx, r.exec, &rows,
		`SELECT slug, AVG(rating)::float8 AS average, COUNT(*) AS count FROM `+table+` GROUP BY slug`)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting %s ratings", table)
	}
	ratings := make(map[string]directory.Rating, len(rows))
	for _, row := range rows {
		ratings[row.Slug] = directory.Rating{Average: row.Average, Count: row.Count}
	}
	return ratings, nil
}

func (r directoryRepository) CreateFacilityReview(ctx context.Context, rv directory.Review) (directory.Review, error) {
	if rv.ID == "" {
		rv.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO facility_reviews (`+directoryReviewColumns+`)
		VALUES (:id, :slug, :author_id, :author, :rating, :text, :created_at)`,
		rv,
	)
	if err != nil {
		return directory.Review{}, errors.Wrap(err, "inserting facility review")
	}
	return rv, nil
}

func (r directoryRepository) QueryFacilityReviews(ctx context.Context, slug string) ([]directory.Review, error) {
	reviews := []directory.Review{}
	err := sqlx.SelectContext(ctx, r.exec, &reviews,
		`SELECT `+directoryReviewColumns+` FROM facility_reviews WHERE slug = $1 ORDER BY created_at DESC`, slug)
	if err != nil {
		return nil, errors.Wrap(err, "selecting facility reviews")
	}
	for i := range reviews {
		reviews[i].CreatedAt = reviews[i].CreatedAt.UTC()
	}
	return reviews, nil
}

func (r directoryRepository) FacilityRatings(ctx context.Context) (map[string]directory.Rating, error) {
	return r.slugRatings(ctx, "facility_reviews")
}

func (r directoryRepository) CreateSchoolReview(ctx context.Context, rv directory.SchoolReview) (directory.SchoolReview, error) {
	if rv.ID == "" {
		rv.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO school_reviews (`+directoryReviewColumns+`, age_bracket, gender, league)
		VALUES (:id, :slug, :author_id, :author, :rating, :text, :created_at, :age_bracket, :gender, :league)`,
		rv,
	)
	if err != nil {
		return directory.SchoolReview{}, errors.Wrap(err, "inserting school review")
	}
	return rv, nil
}

func (r directoryRepository) QuerySchoolReviews(ctx context.Context, slug string, filter directory.ReviewFilter) ([]directory.SchoolReview, error) {
	var w where
	w.add("slug = ?", slug)
	if filter.AgeBracket != "" {
		w.add("? = ANY (age_bracket)", filter.AgeBracket)
	}
	if filter.Gender != "" {
		w.add("gender = ?", filter.Gender)
	}
	if filter.League != "" {
		w.add("league = ?", filter.League)
	}

	reviews := []directory.SchoolReview{}
	err := sqlx.SelectContext(ctx, r.exec, &reviews,
		`SELECT `+directoryReviewColumns+`, age_bracket, gender, league FROM school_reviews`+w.String()+
			` ORDER BY created_at DESC`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting school reviews")
	}
	for i := range reviews {
		reviews[i].CreatedAt = reviews[i].CreatedAt.UTC()
	}
	return reviews, nil
}

func (r directoryRepository) SchoolRatings(ctx context.Context) (map[string]directory.Rating, error) {
	return r.slugRatings(ctx, "school_reviews")
}
