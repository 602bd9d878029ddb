package review

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// Review statuses
const (
	StatusVisible  = "visible"
	StatusDisputed = "disputed"
	StatusRemoved  = "removed"
)

// Dispute kinds
const (
	KindCoach  = "coach"
	KindPlayer = "player"
)

// Dispute statuses
const (
	DisputePending   = "pending"
	DisputeResolved  = "resolved"
	DisputeDismissed = "dismissed"
)

// Dispute message authors
const (
	AuthorAdmin  = "admin"
	AuthorCoach  = "coach"
	AuthorParent = "parent"
)

// Rating request statuses
const (
	RequestPending   = "pending"
	RequestCompleted = "completed"
)

const defaultCoachReviewText = "No additional comments."

// Criteria holds per-criterion ratings, stored as a JSON object.
type Criteria map[string]int

func (c Criteria) Value() (driver.Value, error) {
	if len(c) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Criteria) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.Errorf("unsupported criteria type %T", src)
	}
	return json.Unmarshal(b, c)
}

// clean drops the ratings outside 1..5.
func (c Criteria) clean() Criteria {
	if len(c) == 0 {
		return nil
	}
	out := make(Criteria, len(c))
	for k, v := range c {
		if v >= 1 && v <= 5 {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type CoachReview struct {
	ID        string    `json:"id" db:"id"`
	CoachID   string    `json:"coachId" db:"coach_id"`
	Author    string    `json:"author" db:"author"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Rating    int       `json:"rating" db:"rating"`
	Text      string    `json:"text" db:"text"`
	Criteria  Criteria  `json:"criteriaRatings,omitempty" db:"criteria_ratings"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type PlayerReview struct {
	ID        string    `json:"id" db:"id"`
	PlayerID  string    `json:"playerId" db:"player_id"`
	Author    string    `json:"author" db:"author"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Rating    int       `json:"rating" db:"rating"`
	Text      string    `json:"text" db:"text"`
	Criteria  Criteria  `json:"criteriaRatings,omitempty" db:"criteria_ratings"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Rating summarizes the visible reviews of a coach.
type Rating struct {
	Average *float64 `json:"averageRating"`
	Count   int      `json:"reviewCount"`
}

type CoachReviews struct {
	Reviews []CoachReview `json:"reviews"`
	Rating
}

type PlayerReviews struct {
	Reviews []PlayerReview `json:"reviews"`
	Rating
}

// DisputedReview is the review a dispute is about, with the name of its subject (coach or player).
type DisputedReview struct {
	ID          string    `json:"id" db:"id"`
	Text        string    `json:"text" db:"text"`
	Rating      int       `json:"rating" db:"rating"`
	Author      string    `json:"author" db:"author"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	SubjectID   string    `json:"subjectId" db:"subject_id"`
	SubjectName string    `json:"subjectName" db:"subject_name"`
	Team        string    `json:"team,omitempty" db:"team"`
	Level       string    `json:"level,omitempty" db:"level"`
	OwnerName   string    `json:"ownerName" db:"owner_name"`
	OwnerEmail  string    `json:"ownerEmail" db:"owner_email"`
}

type Dispute struct {
	ID        string      `json:"id" db:"id"`
	Kind      string      `json:"type" db:"kind"`
	ReviewID  string      `json:"reviewId" db:"review_id"`
	ProfileID string      `json:"profileId" db:"profile_id"`
	Reason    null.String `json:"reason" db:"reason"`
	Status    string      `json:"status" db:"status"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`

	Review   DisputedReview `json:"review" db:"review"`
	Messages []Message      `json:"messages" db:"-"`
}

type Message struct {
	ID         string    `json:"id" db:"id"`
	DisputeID  string    `json:"disputeId" db:"dispute_id"`
	AuthorType string    `json:"authorType" db:"author_type"`
	AuthorID   string    `json:"authorId" db:"author_id"`
	Message    string    `json:"message" db:"message"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

type NewCoachReview struct {
	Rating   int      `json:"rating" validate:"required,min=1,max=5"`
	Text     string   `json:"text"`
	Criteria Criteria `json:"criteriaRatings"`
}

func (nr *NewCoachReview) Validate(validate *validator.Validate) error {
	nr.Text = strings.TrimSpace(nr.Text)
	if nr.Text == "" {
		nr.Text = defaultCoachReviewText
	}
	nr.Criteria = nr.Criteria.clean()
	return validate.Struct(nr)
}

type NewPlayerReview struct {
	Rating   int      `json:"rating" validate:"required,min=1,max=5"`
	Text     string   `json:"text" validate:"min=10"`
	Criteria Criteria `json:"criteriaRatings" validate:"omitempty,dive,min=1,max=5"`
}

func (nr *NewPlayerReview) Validate(validate *validator.Validate) error {
	nr.Text = strings.TrimSpace(nr.Text)
	return validate.Struct(nr)
}

type NewDispute struct {
	Reason string `json:"reason"`
}

type NewMessage struct {
	Message string `json:"message" validate:"required"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Message = strings.TrimSpace(nm.Message)
	return validate.Struct(nm)
}

type DisputeStatus struct {
	Status string `json:"status" validate:"required,oneof=resolved dismissed"`
}

func (ds DisputeStatus) Validate(validate *validator.Validate) error { return validate.Struct(ds) }

type DisputeFilter struct {
	Kind      string `query:"type"`
	Status    string `query:"status"`
	ProfileID string `query:"-"`
	Limit     int    `query:"limit"`
}

// Clean drops unknown kinds and statuses.
func (f *DisputeFilter) Clean() {
	switch f.Kind {
	case KindCoach, KindPlayer:
	default:
		f.Kind = ""
	}
	switch f.Status {
	case DisputePending, DisputeResolved, DisputeDismissed:
	default:
		f.Status = ""
	}
}

// RatingRequest asks a coach to review a player. It is completed by the coach's review of the player.
type RatingRequest struct {
	ID              string      `json:"id" db:"id"`
	ParentProfileID string      `json:"parentProfileId" db:"parent_profile_id"`
	PlayerID        string      `json:"playerId" db:"player_id"`
	CoachProfileID  string      `json:"coachProfileId" db:"coach_profile_id"`
	Message         null.String `json:"message" db:"message"`
	Status          string      `json:"status" db:"status"`
	PlayerReviewID  null.String `json:"playerReviewId" db:"player_review_id"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`

	PlayerName    string `json:"playerName" db:"player_name"`
	RequesterName string `json:"requesterName" db:"requester_name"`
	CoachName     string `json:"coachName" db:"coach_name"`
}

// RatingRequests lists the requests of a viewer. PendingCount ignores the status filter.
type RatingRequests struct {
	Requests     []RatingRequest `json:"requests"`
	PendingCount int             `json:"pendingCount"`
}

type RatingRequestFilter struct {
	ParentProfileID string
	CoachProfileID  string
}

type NewRatingRequest struct {
	PlayerID       string `json:"playerId" validate:"required"`
	CoachProfileID string `json:"coachProfileId" validate:"required"`
	Message        string `json:"message"`
}

func (nr *NewRatingRequest) Validate(validate *validator.Validate) error {
	nr.Message = strings.TrimSpace(nr.Message)
	return validate.Struct(nr)
}
