package player

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/plan"
)

// StatusPending is the status of a newly added player.
const StatusPending = "Pending"

type Player struct {
	ID         string       `json:"id" db:"id"`
	ParentID   string       `json:"parentId" db:"parent_id"`
	Name       string       `json:"name" db:"name"`
	BirthYear  int          `json:"birthYear" db:"birth_year"`
	Position   null.String  `json:"position" db:"position"`
	Level      null.String  `json:"level" db:"level"`
	Gender     null.String  `json:"gender" db:"gender"`
	Location   null.String  `json:"location" db:"location"`
	Team       null.String  `json:"team" db:"team"`
	League     null.String  `json:"league" db:"league"`
	Bio        null.String  `json:"bio" db:"bio"`
	Image      null.String  `json:"image" db:"image"`
	SocialLink null.String  `json:"socialLink" db:"social_link"`
	Goals      null.Int     `json:"goals" db:"goals"`
	Assists    null.Int     `json:"assists" db:"assists"`
	PlusMinus  null.Int     `json:"plusMinus" db:"plus_minus"`
	GAA        null.Float64 `json:"gaa" db:"gaa"`
	SavePct    null.String  `json:"savePct" db:"save_pct"`
	Status     string       `json:"status" db:"status"`
	PlanID     plan.ID      `json:"planId" db:"plan_id"`
	CreatedAt  time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time    `json:"updatedAt" db:"updated_at"`
}

// Age is computed from the birth year only.
func (p Player) Age(now time.Time) int { return now.Year() - p.BirthYear }

// Listing is a Player joined with its parent account and own subscription.
type Listing struct {
	Player
	ParentUserID       string  `db:"parent_user_id"`
	ParentName         string  `db:"parent_name"`
	ParentEmail        string  `db:"parent_email"`
	ParentPhone        string  `db:"parent_phone"`
	ParentPlanID       plan.ID `db:"parent_plan_id"`
	SubscriptionPlanID plan.ID `db:"subscription_plan_id"` // empty without a per-player subscription
}

// EffectivePlan is the plan gating the public profile of the player.
func (l Listing) EffectivePlan() plan.ID {
	return plan.EffectivePlayerPlan(l.ParentPlanID, l.PlanID, l.SubscriptionPlanID)
}

// Rating summarizes the visible reviews of a player.
type Rating struct {
	Average *float64
	Count   int
}

// View is a Player as returned to a viewer, masked according to the effective plan.
type View struct {
	Player
	Age                 int         `json:"age"`
	Rating              *float64    `json:"rating"`
	ReviewCount         int         `json:"reviewCount"`
	ParentName          string      `json:"parentName"`
	ParentUserID        string      `json:"parentUserId,omitempty"`
	ParentEmail         null.String `json:"parentEmail"`
	ParentPhone         null.String `json:"parentPhone"`
	EffectivePlanID     plan.ID     `json:"effectivePlanId"`
	HasContactAccess    bool        `json:"hasContactAccess"`
	HasPaidSubscription *bool       `json:"hasPaidSubscription,omitempty"`
}

// NewPlayer contains information needed to add a player.
type NewPlayer struct {
	Name       string   `json:"name" validate:"required"`
	BirthYear  int      `json:"birthYear" validate:"required,min=2000,max=2030"`
	Position   string   `json:"position"`
	Level      string   `json:"level"`
	Gender     string   `json:"gender"`
	Location   string   `json:"location"`
	Team       string   `json:"team"`
	League     string   `json:"league"`
	Bio        string   `json:"bio"`
	Image      string   `json:"image"`
	SocialLink string   `json:"socialLink" validate:"omitempty,url"`
	Goals      *int     `json:"goals"`
	Assists    *int     `json:"assists"`
	PlusMinus  *int     `json:"plusMinus"`
	GAA        *float64 `json:"gaa" validate:"omitempty,min=0"`
	SavePct    string   `json:"savePct"`
}

func (np *NewPlayer) Validate(validate *validator.Validate) error {
	for _, s := range []*string{
		&np.Name, &np.Position, &np.Level, &np.Gender, &np.Location, &np.Team,
		&np.League, &np.Bio, &np.Image, &np.SocialLink, &np.SavePct,
	} {
		*s = core.CleanString(*s)
	}
	return validate.Struct(np)
}

// UpdatePlayer holds the fields a parent may change. Nil fields are left untouched.
type UpdatePlayer struct {
	Name       *string  `json:"name" validate:"omitempty,min=1"`
	BirthYear  *int     `json:"birthYear" validate:"omitempty,min=2000,max=2030"`
	Position   *string  `json:"position"`
	Level      *string  `json:"level"`
	Gender     *string  `json:"gender"`
	Location   *string  `json:"location"`
	Team       *string  `json:"team"`
	League     *string  `json:"league"`
	Bio        *string  `json:"bio"`
	Image      *string  `json:"image"`
	SocialLink *string  `json:"socialLink" validate:"omitempty,url|len=0"`
	Goals      *int     `json:"goals"`
	Assists    *int     `json:"assists"`
	PlusMinus  *int     `json:"plusMinus"`
	GAA        *float64 `json:"gaa" validate:"omitempty,min=0"`
	SavePct    *string  `json:"savePct"`
}

func (up *UpdatePlayer) Validate(validate *validator.Validate) error {
	for _, s := range []*string{
		up.Name, up.Position, up.Level, up.Gender, up.Location, up.Team,
		up.League, up.Bio, up.Image, up.SocialLink, up.SavePct,
	} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(up)
}

type QueryFilter struct {
	Search string `query:"search"`
	Mine   bool   `query:"mine"`
	core.Pagination

	ParentID string `query:"-"`
	// ExcludeEmails hides the players of these parent accounts.
	ExcludeEmails []string `query:"-"`
	// HiddenFrom hides the players whose parent blocked this user.
	HiddenFrom string `query:"-"`
}

// SubscriptionFilter selects a single PlayerSubscription. Only the first non-empty field is used.
type SubscriptionFilter struct {
	ID                   string
	StripeSubscriptionID string
	PlayerID             string
}

func optString(s string) null.String {
	return null.NewString(s, s != "")
}

func optInt(i *int) null.Int {
	if i == nil {
		return null.Int{}
	}
	return null.IntFrom(*i)
}

func optFloat(f *float64) null.Float64 {
	if f == nil {
		return null.Float64{}
	}
	return null.Float64From(*f)
}
