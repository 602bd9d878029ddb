// Package paymentsvc implements the billing payment gateway.
package paymentsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/billing"
)

var errNotConfigured = errors.New("stripe is not configured")

type stripeGateway struct {
	api           *client.API
	configured    bool
	webhookSecret string
}

var _ billing.PaymentGateway = (*stripeGateway)(nil)

func NewStripeGateway(conf *core.Config) billing.PaymentGateway {
	api := &client.API{}
	api.Init(conf.Stripe.SecretKey, nil)
	return &stripeGateway{
		api:           api,
		configured:    conf.Stripe.SecretKey != "",
		webhookSecret: conf.Stripe.WebhookSecret,
	}
}

func (g stripeGateway) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error) {
	if !g.configured {
		return "", errNotConfigured
	}
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	cust, err := g.api.Customers.New(params)
	if err != nil {
		return "", errors.Wrap(err, "creating customer")
	}
	return cust.ID, nil
}

func (g stripeGateway) CreateCheckoutSession(ctx context.Context, p billing.CheckoutParams) (string, error) {
	if !g.configured {
		return "", errNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(p.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:       stripe.String(p.SuccessURL),
		CancelURL:        stripe.String(p.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{Metadata: p.SubMetadata},
	}
	if p.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(p.TrialDays))
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", errors.Wrap(err, "creating checkout session")
	}
	return sess.URL, nil
}

func (g stripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL, subscriptionID string) (string, error) {
	if !g.configured {
		return "", errNotConfigured
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	if subscriptionID != "" {
		params.FlowData = &stripe.BillingPortalSessionFlowDataParams{
			Type: stripe.String(string(stripe.BillingPortalSessionFlowTypeSubscriptionUpdate)),
			SubscriptionUpdate: &stripe.BillingPortalSessionFlowDataSubscriptionUpdateParams{
				Subscription: stripe.String(subscriptionID),
			},
		}
	}
	params.Context = ctx

	sess, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", errors.Wrap(err, "creating portal session")
	}
	return sess.URL, nil
}

func (g stripeGateway) GetSubscription(ctx context.Context, id string) (billing.Subscription, error) {
	if !g.configured {
		return billing.Subscription{}, errNotConfigured
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := g.api.Subscriptions.Get(id, params)
	if err != nil {
		return billing.Subscription{}, errors.Wrap(err, "getting subscription")
	}
	return toSubscription(sub), nil
}

func toSubscription(sub *stripe.Subscription) billing.Subscription {
	s := billing.Subscription{
		ID:       sub.ID,
		Status:   string(sub.Status),
		Metadata: sub.Metadata,
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		s.PeriodEndAt = &end
	}
	return s
}

func (g stripeGateway) ParseWebhook(payload []byte, signature string) (billing.WebhookEvent, error) {
	if g.webhookSecret == "" {
		return billing.WebhookEvent{}, billing.ErrWebhookNotConfigured
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return billing.WebhookEvent{}, errors.Wrap(err, "verifying webhook signature")
	}

	out := billing.WebhookEvent{ID: evt.ID, Type: string(evt.Type)}
	switch out.Type {
	case billing.EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err = json.Unmarshal(evt.Data.Raw, &cs); err != nil {
			return billing.WebhookEvent{}, errors.Wrap(err, "decoding checkout session")
		}
		out.Checkout = &billing.CheckoutSession{Metadata: cs.Metadata}
		if cs.Subscription != nil {
			out.Checkout.SubscriptionID = cs.Subscription.ID
		}
	case billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err = json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return billing.WebhookEvent{}, errors.Wrap(err, "decoding subscription")
		}
		s := toSubscription(&sub)
		out.Subscription = &s
	case billing.EventInvoicePaid, billing.EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err = json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			return billing.WebhookEvent{}, errors.Wrap(err, "decoding invoice")
		}
		if inv.Subscription != nil {
			out.InvoiceSubscriptionID = inv.Subscription.ID
		}
	}
	return out, nil
}
