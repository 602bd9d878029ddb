package plan

import "time"

type ID string

const (
	Free        ID = "free"
	Gold        ID = "gold"
	Elite       ID = "elite"
	FamilyGold  ID = "familyGold"
	FamilyElite ID = "familyElite"
)

// Billing periods
const (
	Monthly = "monthly"
	Annual  = "annual"
)

// Subscription statuses as reported by Stripe, plus "free".
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusFree     = "free"
)

var (
	AllIDs = []ID{Free, Gold, Elite, FamilyGold, FamilyElite}

	plans = map[ID]Plan{
		Free:        {ID: Free, Name: "Free Profile", PlayerLimit: 1},
		Gold:        {ID: Gold, Name: "Gold Profile", PlayerLimit: 3, MonthlyCents: 399, AnnualCents: 3399},
		Elite:       {ID: Elite, Name: "Elite Profile", PlayerLimit: 3, MonthlyCents: 599, AnnualCents: 5999},
		FamilyGold:  {ID: FamilyGold, Name: "Family Gold", PlayerLimit: 6, MonthlyCents: 999, AnnualCents: 9999},
		FamilyElite: {ID: FamilyElite, Name: "Family Elite", PlayerLimit: 6, MonthlyCents: 1499, AnnualCents: 14999},
	}
)

// Plan is a subscription plan of the catalog.
// Prices are kept in cents.
type Plan struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	PlayerLimit  int    `json:"playerLimit"`
	MonthlyCents int    `json:"monthlyPriceCents"`
	AnnualCents  int    `json:"annualPriceCents"`
}

func (p Plan) MonthlyPrice() float64 { return float64(p.MonthlyCents) / 100 }
func (p Plan) AnnualPrice() float64  { return float64(p.AnnualCents) / 100 }

// Get returns the Plan for id, falling back to the free plan for unknown ids.
func Get(id ID) Plan {
	if p, ok := plans[id]; ok {
		return p
	}
	return plans[Free]
}

// Catalog lists every plan, cheapest first.
func Catalog() []Plan {
	list := make([]Plan, 0, len(AllIDs))
	for _, id := range AllIDs {
		list = append(list, plans[id])
	}
	return list
}

func (id ID) IsValid() bool {
	_, ok := plans[id]
	return ok
}

func (id ID) IsFamily() bool { return id == FamilyGold || id == FamilyElite }

func (id ID) IsPaid() bool { return id.IsValid() && id != Free }

func (id ID) String() string { return string(id) }

// Parse reads a plan id from s; empty or unknown values map to Free.
func Parse(s string) ID {
	if id := ID(s); id.IsValid() {
		return id
	}
	return Free
}

// PlayerLimit returns how many players a parent on this plan may hold.
func PlayerLimit(id ID) int { return Get(id).PlayerLimit }

// IsActiveStatus reports whether a subscription status grants paid access.
func IsActiveStatus(status string) bool {
	return status == StatusActive || status == StatusTrialing
}

// ValidPeriod reports whether period is a billing period.
func ValidPeriod(period string) bool { return period == Monthly || period == Annual }

// ParentBilling is the subscription state stored on a parent profile.
type ParentBilling struct {
	PlanID               ID
	StripeCustomerID     string
	StripeSubscriptionID string
	Status               string
	PeriodEndAt          *time.Time
}

// PlayerSubscription is a per-player (Gold/Elite) subscription.
// PlayerID is empty until the paid slot is bound to a child.
type PlayerSubscription struct {
	ID                   string     `json:"id"`
	ParentID             string     `json:"parentId"`
	PlayerID             string     `json:"playerId,omitempty"`
	PlanID               ID         `json:"planId"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId"`
	Status               string     `json:"subscriptionStatus"`
	PeriodEndAt          *time.Time `json:"periodEndAt"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func (s PlayerSubscription) IsActive() bool { return IsActiveStatus(s.Status) }
