package billing_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/billing"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/core/user"
	paymentsvc "github.com/myhockeyrecruiting/mhr/services/payments"
	"github.com/myhockeyrecruiting/mhr/testutil"
)

var ctxBg = context.Background()

func webhook(t *testing.T, env *testutil.Env, evt billing.WebhookEvent) error {
	t.Helper()
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	return env.BillingSvc.HandleWebhook(ctxBg, payload, paymentsvc.ValidSignature)
}

func TestService_Checkout(t *testing.T) {
	env := testutil.NewEnv(t)
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	viewer := parent.Viewer()

	tests := []struct {
		name string
		req  billing.CheckoutRequest
		want error
	}{
		{"no plan", billing.CheckoutRequest{}, billing.ErrPaidPlanRequired},
		{"unknown plan", billing.CheckoutRequest{PlanID: "platinum"}, billing.ErrInvalidPlan},
		{"unknown period", billing.CheckoutRequest{PlanID: plan.Gold, BillingPeriod: "weekly"}, billing.ErrInvalidPeriod},
		{"add child on family", billing.CheckoutRequest{PlanID: plan.FamilyElite, Intent: billing.IntentAddChild}, billing.ErrAddChildPlan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.BillingSvc.Checkout(ctxBg, viewer, tt.req)
			assert.Equal(t, tt.want, err)
		})
	}

	delete(env.Conf.Stripe.Prices, string(plan.FamilyGold))
	_, err := env.BillingSvc.Checkout(ctxBg, viewer, billing.CheckoutRequest{PlanID: plan.FamilyGold})
	assert.Equal(t, billing.ErrPlanNotConfigured, err)

	u, err := env.BillingSvc.Checkout(ctxBg, viewer, billing.CheckoutRequest{
		PlanID:        plan.Elite,
		BillingPeriod: plan.Annual,
		Intent:        billing.IntentAddChild,
		Origin:        "https://app.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/session/1", u)

	require.Len(t, env.Gateway.Checkouts, 1)
	params := env.Gateway.Checkouts[0]
	assert.Equal(t, "cus_1", params.CustomerID)
	assert.Equal(t, "price_elite_annual", params.PriceID)
	assert.Equal(t, "https://app.example.com/parent-dashboard/players?addChild=1&planId=elite", params.SuccessURL)
	assert.Equal(t, "https://app.example.com/parent-dashboard/players", params.CancelURL)
	assert.Equal(t, billing.IntentAddChild, params.SubMetadata["intent"])
	assert.Equal(t, parent.Parent.ID, params.Metadata["parentProfileId"])

	// gateway failures are reported as external errors
	env.Gateway.Err = assert.AnError
	_, err = env.BillingSvc.Checkout(ctxBg, viewer, billing.CheckoutRequest{PlanID: plan.Gold})
	var extErr *core.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "stripe", extErr.Service)
}

func TestService_addChildSubscription(t *testing.T) {
	env := testutil.NewEnv(t)
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	testutil.CreatePlayer(t, env, parent.Parent.ID, "Jack Doe", 2010)
	viewer := parent.Viewer()

	st, err := env.BillingSvc.Status(ctxBg, viewer)
	require.NoError(t, err)
	assert.False(t, st.CanAddPlayer)
	assert.Equal(t, plan.StatusFree, st.Status)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	meta := map[string]string{"parentProfileId": parent.Parent.ID, "planId": "gold", "intent": billing.IntentAddChild}
	env.Gateway.SetSubscription(billing.Subscription{ID: "sub_child", Status: plan.StatusTrialing, PeriodEndAt: &periodEnd, Metadata: meta})
	require.NoError(t, webhook(t, env, billing.WebhookEvent{
		Type:     billing.EventCheckoutCompleted,
		Checkout: &billing.CheckoutSession{SubscriptionID: "sub_child", Metadata: meta},
	}))

	// the parent plan is untouched, the new slot lets a second player in
	p, err := env.UserSvc.GetParentProfile(ctxBg, user.ProfileFilter{ID: parent.Parent.ID})
	require.NoError(t, err)
	assert.Equal(t, plan.Free, p.PlanID)
	st, err = env.BillingSvc.Status(ctxBg, viewer)
	require.NoError(t, err)
	assert.True(t, st.CanAddPlayer)
	assert.Equal(t, plan.Gold, st.PlanID)

	second, err := env.PlayerSvc.Create(ctxBg, viewer, player.NewPlayer{Name: "Jill Doe", BirthYear: 2012})
	require.NoError(t, err)
	assert.Equal(t, plan.Gold, second.PlanID)

	st, err = env.BillingSvc.Status(ctxBg, viewer)
	require.NoError(t, err)
	assert.False(t, st.CanAddPlayer)
	assert.True(t, st.CheckoutRequired)
	require.Len(t, st.Players, 2)
	for _, info := range st.Players {
		if info.ID == second.ID {
			assert.True(t, info.HasOwnBilling)
			assert.Equal(t, "sub_child", info.StripeSubscriptionID)
		} else {
			assert.False(t, info.HasOwnBilling)
			assert.Equal(t, plan.Free, info.PlanID)
		}
	}

	// canceling the child subscription puts the player back on free
	require.NoError(t, webhook(t, env, billing.WebhookEvent{
		Type:         billing.EventSubscriptionDeleted,
		Subscription: &billing.Subscription{ID: "sub_child", Status: plan.StatusActive, Metadata: meta},
	}))
	got, err := env.Players.GetPlayer(ctxBg, second.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Free, got.PlanID)
	sub, err := env.Players.GetSubscription(ctxBg, player.SubscriptionFilter{StripeSubscriptionID: "sub_child"})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCanceled, sub.Status)
}

func TestService_parentSubscription(t *testing.T) {
	env := testutil.NewEnv(t)
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	meta := map[string]string{"parentProfileId": parent.Parent.ID, "planId": "familyElite", "intent": billing.IntentSubscribe}
	env.Gateway.SetSubscription(billing.Subscription{ID: "sub_fam", Status: plan.StatusActive, Metadata: meta})

	require.NoError(t, webhook(t, env, billing.WebhookEvent{
		Type:     billing.EventCheckoutCompleted,
		Checkout: &billing.CheckoutSession{SubscriptionID: "sub_fam", Metadata: meta},
	}))
	st, err := env.BillingSvc.Status(ctxBg, parent.Viewer())
	require.NoError(t, err)
	assert.Equal(t, plan.FamilyElite, st.PlanID)
	assert.Equal(t, 6, st.PlayerLimit)
	assert.True(t, st.CanAddPlayer)

	// failed payment
	env.Gateway.SetSubscription(billing.Subscription{ID: "sub_fam", Status: plan.StatusPastDue, Metadata: meta})
	require.NoError(t, webhook(t, env, billing.WebhookEvent{Type: billing.EventInvoicePaymentFailed, InvoiceSubscriptionID: "sub_fam"}))
	st, err = env.BillingSvc.Status(ctxBg, parent.Viewer())
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPastDue, st.Status)
	assert.False(t, st.CanAddPlayer)

	// invoices of unknown subscriptions are ignored
	require.NoError(t, webhook(t, env, billing.WebhookEvent{Type: billing.EventInvoicePaid, InvoiceSubscriptionID: "sub_unknown"}))

	// a subscription update without metadata is matched on its ID
	require.NoError(t, webhook(t, env, billing.WebhookEvent{
		Type:         billing.EventSubscriptionDeleted,
		Subscription: &billing.Subscription{ID: "sub_fam", Status: plan.StatusActive},
	}))
	p, err := env.UserSvc.GetParentProfile(ctxBg, user.ProfileFilter{ID: parent.Parent.ID})
	require.NoError(t, err)
	assert.Equal(t, plan.Free, p.PlanID)
	assert.Equal(t, plan.StatusCanceled, p.SubscriptionStatus)
}

func TestService_HandleWebhook_errors(t *testing.T) {
	env := testutil.NewEnv(t)

	err := env.BillingSvc.HandleWebhook(ctxBg, []byte(`{}`), "")
	assert.Equal(t, billing.ErrMissingSignature, err)

	err = env.BillingSvc.HandleWebhook(ctxBg, []byte(`{}`), "forged")
	var valErr *core.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Error(), "Webhook Error")

	// checkouts without metadata are acknowledged
	assert.NoError(t, webhook(t, env, billing.WebhookEvent{Type: billing.EventCheckoutCompleted, Checkout: &billing.CheckoutSession{SubscriptionID: "sub_1"}}))

	env.Conf.Stripe.WebhookSecret = ""
	err = env.BillingSvc.HandleWebhook(ctxBg, []byte(`{}`), paymentsvc.ValidSignature)
	assert.Equal(t, billing.ErrWebhookNotConfigured, err)
}

func TestService_Portal(t *testing.T) {
	env := testutil.NewEnv(t)
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	other := testutil.CreateParent(t, env, "John Roe", "john@example.com", plan.Free)
	coach := testutil.CreateCoach(t, env, "Coach Carter", "carter@example.com")

	_, err := env.BillingSvc.Portal(ctxBg, coach.Viewer(), billing.PortalRequest{})
	assert.Equal(t, billing.ErrParentRequired, err)
	_, err = env.BillingSvc.Portal(ctxBg, parent.Viewer(), billing.PortalRequest{})
	assert.Equal(t, billing.ErrNoBillingAccount, err)

	_, err = env.BillingSvc.Checkout(ctxBg, parent.Viewer(), billing.CheckoutRequest{PlanID: plan.Gold})
	require.NoError(t, err)
	_, err = env.Players.CreateSubscription(ctxBg, plan.PlayerSubscription{ParentID: other.Parent.ID, PlanID: plan.Gold, StripeSubscriptionID: "sub_other", Status: plan.StatusActive})
	require.NoError(t, err)
	_, err = env.Players.CreateSubscription(ctxBg, plan.PlayerSubscription{ParentID: parent.Parent.ID, PlanID: plan.Gold, StripeSubscriptionID: "sub_mine", Status: plan.StatusActive})
	require.NoError(t, err)

	u, err := env.BillingSvc.Portal(ctxBg, parent.Viewer(), billing.PortalRequest{})
	require.NoError(t, err)
	assert.Equal(t, "https://billing.test/portal/cus_1", u)

	u, err = env.BillingSvc.Portal(ctxBg, parent.Viewer(), billing.PortalRequest{SubscriptionID: "sub_mine"})
	require.NoError(t, err)
	assert.Equal(t, "https://billing.test/portal/cus_1/sub_mine", u)

	_, err = env.BillingSvc.Portal(ctxBg, parent.Viewer(), billing.PortalRequest{SubscriptionID: "sub_other"})
	assert.Equal(t, billing.ErrSubscriptionUnknown, err)
}
