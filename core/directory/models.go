package directory

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"
)

// Submission statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusRemoved  = "removed"
)

// FacilityCategories are the amenities a training facility may offer.
var FacilityCategories = []string{
	"Real Ice",
	"Synthetic Ice",
	"Shooting Skills",
	"Skating (Edgework)",
	"Skating (Power)",
	"Stick Handling",
	"Goalie Training",
	"Treadmill",
	"Off Ice",
}

func isFacilityCategory(s string) bool {
	for _, c := range FacilityCategories {
		if c == s {
			return true
		}
	}
	return false
}

type Facility struct {
	ID           string         `json:"id" db:"id"`
	FacilityName string         `json:"facilityName" db:"facility_name"`
	Slug         null.String    `json:"slug" db:"slug"`
	Address      string         `json:"address" db:"address"`
	City         string         `json:"city" db:"city"`
	ZipCode      string         `json:"zipCode" db:"zip_code"`
	Phone        null.String    `json:"phone" db:"phone"`
	Website      null.String    `json:"website" db:"website"`
	Description  string         `json:"description" db:"description"`
	Hours        null.String    `json:"hours" db:"hours"`
	Amenities    pq.StringArray `json:"amenities" db:"amenities"`
	SubmittedBy  null.String    `json:"submittedBy" db:"submitted_by"`
	Status       string         `json:"status" db:"status"`
	ReviewedBy   null.String    `json:"reviewedBy" db:"reviewed_by"`
	ReviewedAt   null.Time      `json:"reviewedAt" db:"reviewed_at"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
}

type School struct {
	ID          string      `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Slug        null.String `json:"slug" db:"slug"`
	Address     string      `json:"address" db:"address"`
	City        string      `json:"city" db:"city"`
	ZipCode     string      `json:"zipCode" db:"zip_code"`
	Phone       null.String `json:"phone" db:"phone"`
	Website     null.String `json:"website" db:"website"`
	Description string      `json:"description" db:"description"`
	SubmittedBy null.String `json:"submittedBy" db:"submitted_by"`
	Status      string      `json:"status" db:"status"`
	ReviewedBy  null.String `json:"reviewedBy" db:"reviewed_by"`
	ReviewedAt  null.Time   `json:"reviewedAt" db:"reviewed_at"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
}

// Card is an approved facility or school as listed in the public directory.
// Rating is 0 until the first review.
type Card struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"reviewCount"`
	Amenities   []string `json:"amenities,omitempty"`
}

type Detail struct {
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Address     string      `json:"address"`
	Phone       string      `json:"phone"`
	Hours       string      `json:"hours"`
	Description string      `json:"description"`
	Amenities   []string    `json:"amenities,omitempty"`
	Website     null.String `json:"website"`
}

// Review is left on the public page of a facility or school, addressed by slug.
type Review struct {
	ID        string    `json:"id" db:"id"`
	Slug      string    `json:"-" db:"slug"`
	AuthorID  string    `json:"-" db:"author_id"`
	Author    string    `json:"name" db:"author"`
	Rating    int       `json:"rating" db:"rating"`
	Text      string    `json:"comment" db:"text"`
	CreatedAt time.Time `json:"date" db:"created_at"`
}

// SchoolReview tells which team of the school the reviewer's child played on.
type SchoolReview struct {
	Review
	AgeBracket pq.StringArray `json:"ageBracket" db:"age_bracket"`
	Gender     string         `json:"gender" db:"gender"`
	League     string         `json:"league" db:"league"`
}

// Rating summarizes the reviews of a slug.
type Rating struct {
	Average float64
	Count   int
}

type ReviewFilter struct {
	AgeBracket string
	Gender     string
	League     string
}

type NewReview struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"text" validate:"max=2000"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Text = strings.TrimSpace(nr.Text)
	return validate.Struct(nr)
}

type NewSchoolReview struct {
	NewReview
	AgeBracket []string `json:"ageBracket" validate:"required,min=1,dive,oneof=U6 U8 U10 U12 U14 U16 U18 U20"`
	Gender     string   `json:"gender" validate:"required,oneof=Boys Girls"`
	League     string   `json:"league" validate:"required"`
}

func (nr *NewSchoolReview) Validate(validate *validator.Validate) error {
	nr.Text = strings.TrimSpace(nr.Text)
	nr.League = strings.TrimSpace(nr.League)
	return validate.Struct(nr)
}

type NewFacility struct {
	FacilityName string   `json:"facilityName" validate:"required,min=2"`
	Address      string   `json:"address" validate:"required,min=5"`
	City         string   `json:"city" validate:"required,min=2"`
	ZipCode      string   `json:"zipCode" validate:"required,min=5"`
	Phone        string   `json:"phone"`
	Website      string   `json:"website" validate:"omitempty,url"`
	Description  string   `json:"description" validate:"required,min=10"`
	Hours        string   `json:"hours"`
	Amenities    []string `json:"amenities" validate:"required,min=1"`
}

func (nf *NewFacility) clean() {
	nf.FacilityName = strings.TrimSpace(nf.FacilityName)
	nf.Address = strings.TrimSpace(nf.Address)
	nf.City = strings.TrimSpace(nf.City)
	nf.ZipCode = strings.TrimSpace(nf.ZipCode)
	nf.Phone = strings.TrimSpace(nf.Phone)
	nf.Website = strings.TrimSpace(nf.Website)
	nf.Description = strings.TrimSpace(nf.Description)
	nf.Hours = strings.TrimSpace(nf.Hours)
	amenities := nf.Amenities[:0]
	for _, a := range nf.Amenities {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, a)
		}
	}
	nf.Amenities = amenities
}

func (nf *NewFacility) Validate(validate *validator.Validate) error {
	nf.clean()
	return validate.Struct(nf)
}

type NewSchool struct {
	Name        string `json:"name" validate:"required,min=2"`
	Address     string `json:"address" validate:"required,min=5"`
	City        string `json:"city" validate:"required,min=2"`
	ZipCode     string `json:"zipCode" validate:"required,min=5"`
	Phone       string `json:"phone"`
	Website     string `json:"website" validate:"omitempty,url"`
	Description string `json:"description" validate:"required,min=10"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = strings.TrimSpace(ns.Name)
	ns.Address = strings.TrimSpace(ns.Address)
	ns.City = strings.TrimSpace(ns.City)
	ns.ZipCode = strings.TrimSpace(ns.ZipCode)
	ns.Phone = strings.TrimSpace(ns.Phone)
	ns.Website = strings.TrimSpace(ns.Website)
	ns.Description = strings.TrimSpace(ns.Description)
	return validate.Struct(ns)
}

type SetStatus struct {
	Status string `json:"status" validate:"required,oneof=approved rejected removed"`
}

func (ss SetStatus) Validate(validate *validator.Validate) error { return validate.Struct(ss) }

// BulkResult reports a bulk operation. Import rows are numbered from 1.
type BulkResult struct {
	Success bool     `json:"success"`
	Created int      `json:"created"`
	Updated int      `json:"updated,omitempty"`
	Errors  []string `json:"errors"`
	Total   int      `json:"total"`
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	spaces       = regexp.MustCompile(`\s+`)
	dashes       = regexp.MustCompile(`-+`)
)

// Slugify turns a facility or school name into a URL slug.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonSlugChars.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, "-")
	s = dashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func optString(s string) null.String {
	return null.NewString(s, s != "")
}
