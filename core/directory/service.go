package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("Not found")
	ErrReviewersOnly  = core.NewPermissionError("Only parents and coaches can leave reviews")
	ErrReviewsUpgrade = core.NewUpgradeRequiredError(string(plan.FacilityReviews), "Training reviews require a Gold plan or higher. Upgrade to submit reviews.")
)

const (
	noPhone = "Contact for info"
	noHours = "Contact for hours"
)

type (
	Repository interface {
		CreateFacility(ctx context.Context, f Facility) (Facility, error)
		GetFacility(ctx context.Context, id string) (Facility, error)
		// QueryFacilities lists facilities newest first. An empty status matches all.
		QueryFacilities(ctx context.Context, status string, limit int) ([]Facility, error)
		UpdateFacility(ctx context.Context, f Facility) (Facility, error)
		// FacilitySlugTaken reports whether an approved facility already uses slug.
		FacilitySlugTaken(ctx context.Context, slug string) (bool, error)
		// ListedFacilities lists the approved facilities with a slug, by name.
		ListedFacilities(ctx context.Context) ([]Facility, error)
		// GetListedFacility returns the approved facility with slug.
		GetListedFacility(ctx context.Context, slug string) (Facility, error)

		CreateSchool(ctx context.Context, s School) (School, error)
		GetSchool(ctx context.Context, id string) (School, error)
		QuerySchools(ctx context.Context, status string) ([]School, error)
		UpdateSchool(ctx context.Context, s School) (School, error)
		SchoolSlugTaken(ctx context.Context, slug string) (bool, error)
		ListedSchools(ctx context.Context) ([]School, error)
		GetListedSchool(ctx context.Context, slug string) (School, error)

		CreateFacilityReview(ctx context.Context, r Review) (Review, error)
		// QueryFacilityReviews lists the reviews of a facility, newest first.
		QueryFacilityReviews(ctx context.Context, slug string) ([]Review, error)
		// FacilityRatings averages the reviews of every reviewed facility, by slug.
		FacilityRatings(ctx context.Context) (map[string]Rating, error)

		CreateSchoolReview(ctx context.Context, r SchoolReview) (SchoolReview, error)
		// QuerySchoolReviews lists the reviews of a school matching filter, newest first.
		QuerySchoolReviews(ctx context.Context, slug string, filter ReviewFilter) ([]SchoolReview, error)
		SchoolRatings(ctx context.Context) (map[string]Rating, error)
	}

	Service struct {
		repo     Repository
		users    user.Repository
		notifier core.EventNotifier
	}
)

func NewService(repo Repository, users user.Repository, notifier core.EventNotifier) *Service {
	return &Service{repo: repo, users: users, notifier: notifier}
}

func checkAmenities(amenities []string) error {
	var invalid []string
	for _, a := range amenities {
		if !isFacilityCategory(a) {
			invalid = append(invalid, a)
		}
	}
	if len(invalid) > 0 {
		return core.NewBadRequestError("Invalid amenities: " + strings.Join(invalid, ", "))
	}
	return nil
}

func newFacility(nf NewFacility, submittedBy string) Facility {
	return Facility{
		FacilityName: nf.FacilityName,
		Address:      nf.Address,
		City:         nf.City,
		ZipCode:      nf.ZipCode,
		Phone:        optString(nf.Phone),
		Website:      optString(nf.Website),
		Description:  nf.Description,
		Hours:        optString(nf.Hours),
		Amenities:    nf.Amenities,
		SubmittedBy:  optString(submittedBy),
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}

// SubmitFacility stores a facility suggestion for admin review. submittedBy is empty for anonymous users.
func (svc *Service) SubmitFacility(ctx context.Context, submittedBy string, nf NewFacility) (Facility, error) {
	if err := checkAmenities(nf.Amenities); err != nil {
		return Facility{}, err
	}
	f, err := svc.repo.CreateFacility(ctx, newFacility(nf, submittedBy))
	if err != nil {
		return Facility{}, errors.Wrap(err, "creating facility submission")
	}
	svc.notifier.Notify(core.EventFacilitySubmission, map[string]interface{}{
		"id":           f.ID,
		"facilityName": f.FacilityName,
		"address":      f.Address,
		"city":         f.City,
		"status":       f.Status,
		"createdAt":    f.CreatedAt.Format(time.RFC3339),
	})
	return f, nil
}

// BulkImportFacilities creates a pending facility per valid row. Invalid rows are reported and skipped.
func (svc *Service) BulkImportFacilities(ctx context.Context, validate *validator.Validate, adminID string, rows []NewFacility) BulkResult {
	res := BulkResult{Success: true, Errors: []string{}, Total: len(rows)}
	for i := range rows {
		row := rows[i]
		if err := row.Validate(validate); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		if _, err := svc.repo.CreateFacility(ctx, newFacility(row, adminID)); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d (%s): %v", i+1, row.FacilityName, err))
			continue
		}
		res.Created++
	}
	return res
}

func (svc *Service) ListFacilities(ctx context.Context, status string) ([]Facility, error) {
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusRemoved:
	default:
		status = ""
	}
	return svc.repo.QueryFacilities(ctx, status, 0)
}

// ZapierFacilities lists the newest facility submissions for automation pulls, pending ones by default.
func (svc *Service) ZapierFacilities(ctx context.Context, status string, limit int) ([]Facility, error) {
	if status == "" {
		status = StatusPending
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return svc.repo.QueryFacilities(ctx, status, limit)
}

// SetFacilityStatus reviews a facility submission.
// Approval gives the facility a unique slug, removal clears it.
func (svc *Service) SetFacilityStatus(ctx context.Context, adminID, id string, ss SetStatus) (Facility, error) {
	f, err := svc.repo.GetFacility(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Facility{}, ErrNotFound
		}
		return Facility{}, errors.Wrap(err, "getting facility submission")
	}

	// only approved rows keep a slug
	switch {
	case ss.Status != StatusApproved:
		f.Slug = null.String{}
	case !f.Slug.Valid:
		slug, err := svc.uniqueSlug(ctx, f.FacilityName, "facility", svc.repo.FacilitySlugTaken)
		if err != nil {
			return Facility{}, err
		}
		f.Slug = null.StringFrom(slug)
	}
	f.Status = ss.Status
	f.ReviewedBy = optString(adminID)
	f.ReviewedAt = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateFacility(ctx, f)
}

// BulkSetFacilityStatus reviews several facility submissions. Unknown IDs are reported as errors.
func (svc *Service) BulkSetFacilityStatus(ctx context.Context, adminID string, ids []string, ss SetStatus) BulkResult {
	res := BulkResult{Success: true, Errors: []string{}, Total: len(ids)}
	for _, id := range ids {
		if _, err := svc.SetFacilityStatus(ctx, adminID, id, ss); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		res.Updated++
	}
	return res
}

// uniqueSlug slugifies name, numbering it until isTaken reports it free. fallback replaces an empty slug.
func (svc *Service) uniqueSlug(ctx context.Context, name, fallback string, isTaken func(context.Context, string) (bool, error)) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = fallback
	}
	slug := base
	for n := 1; ; n++ {
		taken, err := isTaken(ctx, slug)
		if err != nil {
			return "", errors.Wrapf(err, "checking %s slug", fallback)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func (svc *Service) SubmitSchool(ctx context.Context, submittedBy string, ns NewSchool) (School, error) {
	s, err := svc.repo.CreateSchool(ctx, School{
		Name:        ns.Name,
		Address:     ns.Address,
		City:        ns.City,
		ZipCode:     ns.ZipCode,
		Phone:       optString(ns.Phone),
		Website:     optString(ns.Website),
		Description: ns.Description,
		SubmittedBy: optString(submittedBy),
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return School{}, errors.Wrap(err, "creating school submission")
	}
	svc.notifier.Notify(core.EventSchoolSubmission, map[string]interface{}{
		"id":        s.ID,
		"name":      s.Name,
		"city":      s.City,
		"status":    s.Status,
		"createdAt": s.CreatedAt.Format(time.RFC3339),
	})
	return s, nil
}

func (svc *Service) ListSchools(ctx context.Context, status string) ([]School, error) {
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusRemoved:
	default:
		status = ""
	}
	return svc.repo.QuerySchools(ctx, status)
}

// SetSchoolStatus reviews a school submission, with the slug rules of SetFacilityStatus.
func (svc *Service) SetSchoolStatus(ctx context.Context, adminID, id string, ss SetStatus) (School, error) {
	s, err := svc.repo.GetSchool(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return School{}, ErrNotFound
		}
		return School{}, errors.Wrap(err, "getting school submission")
	}
	// only approved rows keep a slug
	switch {
	case ss.Status != StatusApproved:
		s.Slug = null.String{}
	case !s.Slug.Valid:
		slug, err := svc.uniqueSlug(ctx, s.Name, "school", svc.repo.SchoolSlugTaken)
		if err != nil {
			return School{}, err
		}
		s.Slug = null.StringFrom(slug)
	}
	s.Status = ss.Status
	s.ReviewedBy = optString(adminID)
	s.ReviewedAt = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateSchool(ctx, s)
}

func location(address, city, zipCode string) string {
	return fmt.Sprintf("%s, %s %s", address, city, zipCode)
}

func orDefault(s null.String, def string) string {
	if s.Valid && s.String != "" {
		return s.String
	}
	return def
}

// authorName shortens the reviewer's name to the first name and last initial.
func authorName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Anonymous"
	}
	return player.MaskName(name)
}

// checkReviewer reports whether viewer may review facilities and schools.
// Parents need a plan with facility reviews. Coaches review as Gold members.
func (svc *Service) checkReviewer(ctx context.Context, viewer user.Viewer) error {
	var planID plan.ID
	switch {
	case viewer.ParentProfileID != "":
		parent, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{ID: viewer.ParentProfileID})
		if err != nil {
			return errors.Wrap(err, "getting parent profile")
		}
		planID = parent.PlanID
	case viewer.CoachProfileID != "":
		planID = plan.Gold
	case !viewer.IsAdmin():
		return ErrReviewersOnly
	}
	if !plan.HasFeatureAs(planID, plan.FacilityReviews, viewer.IsAdmin()) {
		return ErrReviewsUpgrade
	}
	return nil
}

func newReview(viewer user.Viewer, slug string, nr NewReview) Review {
	return Review{
		Slug:      slug,
		AuthorID:  viewer.UserID,
		Author:    authorName(viewer.Name),
		Rating:    nr.Rating,
		Text:      nr.Text,
		CreatedAt: time.Now().UTC(),
	}
}

// Facilities lists the approved facilities by name, with their ratings.
func (svc *Service) Facilities(ctx context.Context) ([]Card, error) {
	facilities, err := svc.repo.ListedFacilities(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying listed facilities")
	}
	ratings, err := svc.repo.FacilityRatings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting facility ratings")
	}

	cards := make([]Card, 0, len(facilities))
	for _, f := range facilities {
		r := ratings[f.Slug.String]
		cards = append(cards, Card{
			Slug:        f.Slug.String,
			Name:        f.FacilityName,
			Location:    location(f.Address, f.City, f.ZipCode),
			Rating:      r.Average,
			ReviewCount: r.Count,
			Amenities:   f.Amenities,
		})
	}
	return cards, nil
}

func (svc *Service) facility(ctx context.Context, slug string) (Facility, error) {
	f, err := svc.repo.GetListedFacility(ctx, slug)
	if err != nil {
		if core.IsNotFound(err) {
			return Facility{}, ErrNotFound
		}
		return Facility{}, errors.Wrap(err, "getting listed facility")
	}
	return f, nil
}

// Facility returns the public page of the approved facility with slug.
func (svc *Service) Facility(ctx context.Context, slug string) (Detail, error) {
	f, err := svc.facility(ctx, slug)
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		Slug:        f.Slug.String,
		Name:        f.FacilityName,
		Address:     location(f.Address, f.City, f.ZipCode),
		Phone:       orDefault(f.Phone, noPhone),
		Hours:       orDefault(f.Hours, noHours),
		Description: f.Description,
		Amenities:   f.Amenities,
		Website:     f.Website,
	}, nil
}

func (svc *Service) FacilityReviews(ctx context.Context, slug string) ([]Review, error) {
	if _, err := svc.facility(ctx, slug); err != nil {
		return nil, err
	}
	reviews, err := svc.repo.QueryFacilityReviews(ctx, slug)
	return reviews, errors.Wrap(err, "querying facility reviews")
}

// ReviewFacility stores the review of viewer on the approved facility with slug.
func (svc *Service) ReviewFacility(ctx context.Context, viewer user.Viewer, slug string, nr NewReview) (Review, error) {
	if err := svc.checkReviewer(ctx, viewer); err != nil {
		return Review{}, err
	}
	if _, err := svc.facility(ctx, slug); err != nil {
		return Review{}, err
	}
	r, err := svc.repo.CreateFacilityReview(ctx, newReview(viewer, slug, nr))
	if err != nil {
		return Review{}, errors.Wrap(err, "creating facility review")
	}
	return r, nil
}

// Schools lists the approved teams and schools by name, with their ratings.
func (svc *Service) Schools(ctx context.Context) ([]Card, error) {
	schools, err := svc.repo.ListedSchools(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying listed schools")
	}
	ratings, err := svc.repo.SchoolRatings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting school ratings")
	}

	cards := make([]Card, 0, len(schools))
	for _, s := range schools {
		r := ratings[s.Slug.String]
		cards = append(cards, Card{
			Slug:        s.Slug.String,
			Name:        s.Name,
			Location:    location(s.Address, s.City, s.ZipCode),
			Rating:      r.Average,
			ReviewCount: r.Count,
		})
	}
	return cards, nil
}

func (svc *Service) school(ctx context.Context, slug string) (School, error) {
	s, err := svc.repo.GetListedSchool(ctx, slug)
	if err != nil {
		if core.IsNotFound(err) {
			return School{}, ErrNotFound
		}
		return School{}, errors.Wrap(err, "getting listed school")
	}
	return s, nil
}

func (svc *Service) School(ctx context.Context, slug string) (Detail, error) {
	s, err := svc.school(ctx, slug)
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		Slug:        s.Slug.String,
		Name:        s.Name,
		Address:     location(s.Address, s.City, s.ZipCode),
		Phone:       orDefault(s.Phone, noPhone),
		Hours:       noHours,
		Description: s.Description,
		Website:     s.Website,
	}, nil
}

// SchoolReviews lists the reviews of a school. Empty filter fields match all.
func (svc *Service) SchoolReviews(ctx context.Context, slug string, filter ReviewFilter) ([]SchoolReview, error) {
	if _, err := svc.school(ctx, slug); err != nil {
		return nil, err
	}
	filter.AgeBracket = strings.TrimSpace(filter.AgeBracket)
	filter.Gender = strings.TrimSpace(filter.Gender)
	filter.League = strings.TrimSpace(filter.League)
	reviews, err := svc.repo.QuerySchoolReviews(ctx, slug, filter)
	return reviews, errors.Wrap(err, "querying school reviews")
}

func (svc *Service) ReviewSchool(ctx context.Context, viewer user.Viewer, slug string, nr NewSchoolReview) (SchoolReview, error) {
	if err := svc.checkReviewer(ctx, viewer); err != nil {
		return SchoolReview{}, err
	}
	if _, err := svc.school(ctx, slug); err != nil {
		return SchoolReview{}, err
	}
	r, err := svc.repo.CreateSchoolReview(ctx, SchoolReview{
		Review:     newReview(viewer, slug, nr.NewReview),
		AgeBracket: nr.AgeBracket,
		Gender:     nr.Gender,
		League:     nr.League,
	})
	if err != nil {
		return SchoolReview{}, errors.Wrap(err, "creating school review")
	}
	return r, nil
}
