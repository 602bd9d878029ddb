package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasFeature(t *testing.T) {
	tests := []struct {
		name    string
		plan    ID
		feature Feature
		want    bool
	}{
		{name: "free cannot be searched", plan: Free, feature: PublicSearchable, want: false},
		{name: "gold can be searched", plan: Gold, feature: PublicSearchable, want: true},
		{name: "gold has no full last name", plan: Gold, feature: FullLastName, want: false},
		{name: "elite has full last name", plan: Elite, feature: FullLastName, want: true},
		{name: "family gold is gold", plan: FamilyGold, feature: ContactRequests, want: true},
		{name: "family gold is not elite", plan: FamilyGold, feature: HigherStats, want: false},
		{name: "family elite is elite", plan: FamilyElite, feature: CoachRatings, want: true},
		{name: "free can submit facilities", plan: Free, feature: SubmitFacilities, want: true},
		{name: "unknown plan is free", plan: ID("platinum"), feature: LevelVisibility, want: false},
		{name: "empty plan is free", plan: ID(""), feature: SubmitFacilities, want: true},
		{name: "unknown feature is denied", plan: Elite, feature: Feature("teleport"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasFeature(tt.plan, tt.feature))
		})
	}
}

func TestHasFeatureAs(t *testing.T) {
	assert.True(t, HasFeatureAs(Free, CoachRatings, true))
	assert.False(t, HasFeatureAs(Free, CoachRatings, false))
	assert.True(t, HasFeatureAs(Free, Feature("teleport"), true))
	assert.False(t, HasFeatureAs(Elite, Feature("teleport"), false))
}

func TestTierOrder(t *testing.T) {
	assert.Less(t, TierRank(Free), TierRank(Gold))
	assert.Less(t, TierRank(Gold), TierRank(Elite))
	assert.Equal(t, TierRank(Gold), TierRank(FamilyGold))
	assert.Equal(t, TierRank(Elite), TierRank(FamilyElite))
	assert.Equal(t, Free, EffectiveTier(ID("nope")))
}

func TestGet(t *testing.T) {
	assert.Equal(t, "Family Elite", Get(FamilyElite).Name)
	assert.Equal(t, 14.99, Get(FamilyElite).MonthlyPrice())
	assert.Equal(t, 33.99, Get(Gold).AnnualPrice())
	assert.Equal(t, Free, Get(ID("unknown")).ID)
	assert.Equal(t, 1, PlayerLimit(Free))
	assert.Equal(t, 6, PlayerLimit(FamilyGold))
	assert.Len(t, Catalog(), 5)
	assert.True(t, Gold.IsPaid())
	assert.False(t, Free.IsPaid())
	assert.False(t, ID("x").IsPaid())
}

func TestComputeStanding(t *testing.T) {
	activeSub := func(planID ID, playerID string) PlayerSubscription {
		return PlayerSubscription{PlanID: planID, PlayerID: playerID, Status: StatusActive}
	}

	tests := []struct {
		name         string
		parent       ParentBilling
		count        int
		subs         []PlayerSubscription
		wantPlan     ID
		wantLimit    int
		wantCanAdd   bool
		wantCheckout bool
		wantStatus   string
	}{
		{
			name: "free without players", parent: ParentBilling{PlanID: Free},
			wantPlan: Free, wantLimit: 1, wantCanAdd: true, wantStatus: StatusFree,
		},
		{
			name: "free with one player", parent: ParentBilling{PlanID: Free}, count: 1,
			wantPlan: Free, wantLimit: 1, wantStatus: StatusFree,
		},
		{
			name: "family active", parent: ParentBilling{PlanID: FamilyGold, Status: StatusTrialing}, count: 5,
			wantPlan: FamilyGold, wantLimit: 6, wantCanAdd: true, wantStatus: StatusTrialing,
		},
		{
			name: "family full", parent: ParentBilling{PlanID: FamilyElite, Status: StatusActive}, count: 6,
			wantPlan: FamilyElite, wantLimit: 6, wantStatus: StatusActive,
		},
		{
			name: "family past due", parent: ParentBilling{PlanID: FamilyElite, Status: StatusPastDue}, count: 1,
			wantPlan: FamilyElite, wantLimit: 6, wantStatus: StatusPastDue,
		},
		{
			name: "per player with unused slot", parent: ParentBilling{PlanID: Free}, count: 1,
			subs:     []PlayerSubscription{activeSub(Gold, "p1"), activeSub(Elite, "")},
			wantPlan: Gold, wantLimit: 3, wantCanAdd: true, wantStatus: StatusActive,
		},
		{
			name: "per player needs checkout", parent: ParentBilling{PlanID: Free}, count: 1,
			subs:     []PlayerSubscription{activeSub(Elite, "p1")},
			wantPlan: Elite, wantLimit: 3, wantCheckout: true, wantStatus: StatusActive,
		},
		{
			name: "per player at limit", parent: ParentBilling{PlanID: Free}, count: 3,
			subs:     []PlayerSubscription{activeSub(Gold, "p1"), activeSub(Gold, "p2"), activeSub(Gold, "")},
			wantPlan: Gold, wantLimit: 3, wantStatus: StatusActive,
		},
		{
			name: "legacy gold counts as a paid slot", parent: ParentBilling{PlanID: Gold, Status: StatusActive}, count: 1,
			wantPlan: Gold, wantLimit: 3, wantCheckout: true, wantStatus: StatusActive,
		},
		{
			name: "canceled gold without slots", parent: ParentBilling{PlanID: Gold, Status: StatusCanceled}, count: 1,
			wantPlan: Gold, wantLimit: 3, wantCheckout: true,
		},
		{
			name: "canceled per player subs are ignored", parent: ParentBilling{PlanID: Free},
			subs:     []PlayerSubscription{{PlanID: Gold, Status: StatusCanceled}},
			wantPlan: Free, wantLimit: 1, wantCanAdd: true, wantStatus: StatusFree,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := ComputeStanding(tt.parent, tt.count, tt.subs)
			assert.Equal(t, tt.wantPlan, st.PlanID)
			assert.Equal(t, tt.wantLimit, st.PlayerLimit)
			assert.Equal(t, tt.count, st.CurrentPlayerCount)
			assert.Equal(t, tt.wantCanAdd, st.CanAddPlayer)
			assert.Equal(t, tt.wantCheckout, st.CheckoutRequired)
			assert.Equal(t, tt.wantStatus, st.Status)
			if tt.wantCheckout {
				assert.Equal(t, []ID{Gold, Elite}, st.CheckoutPlanOptions)
			}
		})
	}
}

func TestCheckAddPlayer(t *testing.T) {
	tests := []struct {
		name        string
		standing    Standing
		wantAllowed bool
		wantReason  string
	}{
		{name: "allowed", standing: Standing{CanAddPlayer: true}, wantAllowed: true},
		{
			name:       "checkout",
			standing:   Standing{PlanID: Gold, PlayerLimit: 3, CurrentPlayerCount: 1, CheckoutRequired: true},
			wantReason: "Subscribe for this child to add them. Choose Gold or Elite, or upgrade to Family for one price for all.",
		},
		{
			name:       "free limit",
			standing:   Standing{PlanID: Free, PlayerLimit: 1, CurrentPlayerCount: 1, Status: StatusFree},
			wantReason: "Free accounts allow 1 child. Upgrade to Gold or Elite to add more (pay per child), or Family for one price for up to 6.",
		},
		{
			name:       "paid limit",
			standing:   Standing{PlanID: Gold, PlayerLimit: 3, CurrentPlayerCount: 3, Status: StatusActive},
			wantReason: "Player limit reached (3). Upgrade to Family for up to 6 players.",
		},
		{
			name:       "inactive family",
			standing:   Standing{PlanID: FamilyGold, PlayerLimit: 6, CurrentPlayerCount: 2, Status: StatusPastDue},
			wantReason: "Your subscription is not active. Please update your payment method.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckAddPlayer(tt.standing)
			assert.Equal(t, tt.wantAllowed, got.Allowed)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestPlayerPlan(t *testing.T) {
	own := &PlayerSubscription{PlanID: Elite, StripeSubscriptionID: "sub_own", Status: StatusActive}
	family := ParentBilling{PlanID: FamilyGold, StripeSubscriptionID: "sub_family", Status: StatusActive}

	info := PlayerPlan(family, "p1", "Kid", Free, own)
	assert.Equal(t, Elite, info.PlanID)
	assert.True(t, info.HasOwnBilling)
	assert.Equal(t, "sub_own", info.StripeSubscriptionID)

	info = PlayerPlan(family, "p2", "Kid", Free, nil)
	assert.Equal(t, FamilyGold, info.PlanID)
	assert.False(t, info.HasOwnBilling)
	assert.Equal(t, "sub_family", info.StripeSubscriptionID)

	info = PlayerPlan(ParentBilling{PlanID: Free}, "p3", "Kid", Gold, nil)
	assert.Equal(t, Gold, info.PlanID)
	assert.Equal(t, "Gold Profile", info.PlanName)
	assert.Equal(t, "", info.StripeSubscriptionID)
}

func TestEffectivePlayerPlan(t *testing.T) {
	assert.Equal(t, Elite, EffectivePlayerPlan(Free, Free, Elite))
	assert.Equal(t, FamilyGold, EffectivePlayerPlan(FamilyGold, Free, ""))
	assert.Equal(t, Gold, EffectivePlayerPlan(Free, Gold, ""))
	assert.Equal(t, Elite, EffectivePlayerPlan(Elite, "", ""))
}
