package plan

import (
	"fmt"
	"time"
)

const (
	perPlayerLimit = 3
	familyLimit    = 6
	freeLimit      = 1
)

// Standing is the subscription standing of a parent account.
type Standing struct {
	PlanID              ID         `json:"planId"`
	PlanName            string     `json:"planName"`
	PlayerLimit         int        `json:"playerLimit"`
	CurrentPlayerCount  int        `json:"currentPlayerCount"`
	CanAddPlayer        bool       `json:"canAddPlayer"`
	CheckoutRequired    bool       `json:"checkoutRequired,omitempty"`
	CheckoutPlanOptions []ID       `json:"checkoutPlanOptions,omitempty"`
	Status              string     `json:"status"`
	PeriodEndAt         *time.Time `json:"periodEndAt"`
	MonthlyPrice        float64    `json:"monthlyPrice"`
}

func newStanding(id ID, limit, count int) Standing {
	p := Get(id)
	return Standing{
		PlanID:             p.ID,
		PlanName:           p.Name,
		PlayerLimit:        limit,
		CurrentPlayerCount: count,
		MonthlyPrice:       p.MonthlyPrice(),
	}
}

// ComputeStanding derives a parent's standing.
//   - Family plans share one subscription for up to 6 players and require it to be active.
//   - Free parents without active per-player subscriptions hold 1 player.
//   - Otherwise players are billed one by one (Gold/Elite, up to 3); a new player needs an unused paid slot.
func ComputeStanding(parent ParentBilling, playerCount int, subs []PlayerSubscription) Standing {
	parentPlan := Parse(string(parent.PlanID))

	if parentPlan.IsFamily() {
		st := newStanding(parentPlan, familyLimit, playerCount)
		st.CanAddPlayer = IsActiveStatus(parent.Status) && playerCount < familyLimit
		st.Status = parent.Status
		st.PeriodEndAt = parent.PeriodEndAt
		return st
	}

	var active []PlayerSubscription
	var unusedSlots int
	for _, s := range subs {
		if s.IsActive() {
			active = append(active, s)
			if s.PlayerID == "" {
				unusedSlots++
			}
		}
	}

	if parentPlan == Free && len(active) == 0 {
		st := newStanding(Free, freeLimit, playerCount)
		st.CanAddPlayer = playerCount < freeLimit
		st.Status = StatusFree
		return st
	}

	// per-player billing, or legacy gold/elite subscription on the parent profile (counts as 1 slot)
	legacy := (parentPlan == Gold || parentPlan == Elite) && IsActiveStatus(parent.Status)
	paidSlots := len(active)
	if legacy && paidSlots < 1 {
		paidSlots = 1
	}

	primary := Gold
	if (len(active) > 0 && active[0].PlanID == Elite) || parentPlan == Elite {
		primary = Elite
	}
	st := newStanding(primary, perPlayerLimit, playerCount)

	switch {
	case playerCount >= perPlayerLimit:
		st.Status = StatusActive
	case unusedSlots > 0:
		st.CanAddPlayer = true
		st.Status = StatusActive
	default:
		st.CheckoutRequired = true
		st.CheckoutPlanOptions = []ID{Gold, Elite}
		if paidSlots > 0 {
			st.Status = StatusActive
		}
	}
	return st
}

// AddPlayerDecision explains whether a parent may add one more player.
type AddPlayerDecision struct {
	Allowed             bool   `json:"allowed"`
	Reason              string `json:"reason,omitempty"`
	Limit               int    `json:"limit,omitempty"`
	Current             int    `json:"current,omitempty"`
	CheckoutRequired    bool   `json:"checkoutRequired,omitempty"`
	CheckoutPlanOptions []ID   `json:"checkoutPlanOptions,omitempty"`
}

func CheckAddPlayer(st Standing) AddPlayerDecision {
	if st.CanAddPlayer {
		return AddPlayerDecision{Allowed: true}
	}

	if st.CheckoutRequired {
		return AddPlayerDecision{
			Reason:              "Subscribe for this child to add them. Choose Gold or Elite, or upgrade to Family for one price for all.",
			Limit:               st.PlayerLimit,
			Current:             st.CurrentPlayerCount,
			CheckoutRequired:    true,
			CheckoutPlanOptions: st.CheckoutPlanOptions,
		}
	}

	if st.CurrentPlayerCount >= st.PlayerLimit {
		reason := fmt.Sprintf("Player limit reached (%d). Upgrade to Family for up to %d players.", st.PlayerLimit, familyLimit)
		if st.PlanID == Free {
			reason = "Free accounts allow 1 child. Upgrade to Gold or Elite to add more (pay per child), or Family for one price for up to 6."
		}
		return AddPlayerDecision{Reason: reason, Limit: st.PlayerLimit, Current: st.CurrentPlayerCount}
	}

	if st.Status != "" && !IsActiveStatus(st.Status) && st.Status != StatusFree {
		return AddPlayerDecision{Reason: "Your subscription is not active. Please update your payment method."}
	}
	return AddPlayerDecision{Reason: "Unable to add player."}
}

// PlayerPlanInfo is the billing view of one player.
type PlayerPlanInfo struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	PlanID               ID         `json:"planId"`
	PlanName             string     `json:"planName"`
	MonthlyPrice         float64    `json:"monthlyPrice"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId"`
	Status               string     `json:"subscriptionStatus"`
	PeriodEndAt          *time.Time `json:"periodEndAt"`
	HasOwnBilling        bool       `json:"hasOwnBilling"`
}

// PlayerPlan resolves the plan of a single player.
// Its own subscription wins, then the parent's shared (family or legacy) subscription, then the player's stored plan.
func PlayerPlan(parent ParentBilling, playerID, playerName string, playerPlan ID, own *PlayerSubscription) PlayerPlanInfo {
	info := PlayerPlanInfo{ID: playerID, Name: playerName}

	parentPlan := Parse(string(parent.PlanID))
	var sharedSubID string
	if parentPlan.IsFamily() || (parent.StripeSubscriptionID != "" && (parentPlan == Gold || parentPlan == Elite)) {
		sharedSubID = parent.StripeSubscriptionID
	}

	switch {
	case own != nil:
		info.PlanID = Parse(string(own.PlanID))
		info.StripeSubscriptionID = own.StripeSubscriptionID
		info.Status = own.Status
		info.PeriodEndAt = own.PeriodEndAt
		info.HasOwnBilling = true
	case sharedSubID != "":
		info.PlanID = parentPlan
		info.StripeSubscriptionID = sharedSubID
		info.Status = parent.Status
		info.PeriodEndAt = parent.PeriodEndAt
	default:
		info.PlanID = Parse(string(playerPlan))
	}

	p := Get(info.PlanID)
	info.PlanName = p.Name
	info.MonthlyPrice = p.MonthlyPrice()
	return info
}

// EffectivePlayerPlan is the plan gating a player's public profile.
// A per-player subscription wins, then a family plan on the parent, then the player's stored plan.
func EffectivePlayerPlan(parentPlan, playerPlan, subscriptionPlan ID) ID {
	switch {
	case subscriptionPlan != "":
		return Parse(string(subscriptionPlan))
	case parentPlan.IsFamily():
		return parentPlan
	case playerPlan != "":
		return Parse(string(playerPlan))
	}
	return Parse(string(parentPlan))
}
