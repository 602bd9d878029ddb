package billing

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

// Checkout intents
const (
	IntentSubscribe = "subscribe"
	IntentAddChild  = "addChild"
)

// Webhook event types
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

const trialDays = 30

var (
	// errors
	ErrParentRequired       = core.NewPermissionError("Parent account required")
	ErrParentCheckout       = core.NewPermissionError("Parent account required for subscriptions")
	ErrPaidPlanRequired     = core.NewBadRequestError("Select a paid plan to subscribe")
	ErrInvalidPlan          = core.NewBadRequestError("Invalid plan")
	ErrInvalidPeriod        = core.NewBadRequestError("Invalid billing period")
	ErrAddChildPlan         = core.NewBadRequestError("Add child requires Gold or Elite plan. Or choose Family for one price for all.")
	ErrPlanNotConfigured    = core.NewBadRequestError("Plan not configured. Please add Stripe Price IDs to your environment.")
	ErrNoBillingAccount     = core.NewBadRequestError("No billing account. Subscribe first from the pricing page.")
	ErrSubscriptionUnknown  = core.NewBadRequestError("Subscription not found")
	ErrMissingSignature     = core.NewBadRequestError("Missing signature")
	ErrWebhookNotConfigured = errors.New("webhook not configured")
)

type (
	// Subscription is the state of a subscription held by the payment provider.
	Subscription struct {
		ID          string
		Status      string
		PeriodEndAt *time.Time
		Metadata    map[string]string
	}

	// CheckoutSession is a completed checkout.
	CheckoutSession struct {
		SubscriptionID string
		Metadata       map[string]string
	}

	// WebhookEvent is a verified event of the payment provider.
	// Only the object matching Type is set.
	WebhookEvent struct {
		ID           string
		Type         string
		Checkout     *CheckoutSession
		Subscription *Subscription
		// InvoiceSubscriptionID is the subscription an invoice event is about.
		InvoiceSubscriptionID string
	}

	CheckoutParams struct {
		CustomerID  string
		PriceID     string
		SuccessURL  string
		CancelURL   string
		TrialDays   int
		Metadata    map[string]string
		SubMetadata map[string]string
	}

	// PaymentGateway is the payment provider (Stripe).
	PaymentGateway interface {
		CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error)
		CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
		// CreatePortalSession opens the billing portal, on subscriptionID when it is set.
		CreatePortalSession(ctx context.Context, customerID, returnURL, subscriptionID string) (string, error)
		GetSubscription(ctx context.Context, id string) (Subscription, error)
		// ParseWebhook verifies the signature of payload and decodes the event.
		ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
	}

	CheckoutRequest struct {
		PlanID        plan.ID `json:"planId"`
		BillingPeriod string  `json:"billingPeriod"`
		Intent        string  `json:"intent"`
		// Origin is the base URL the customer is sent back to.
		Origin string `json:"-"`
	}

	PortalRequest struct {
		SubscriptionID string `json:"subscriptionId"`
	}

	Status struct {
		plan.Standing
		Players []plan.PlayerPlanInfo `json:"players"`
		// Features tells which plan features the parent's plan enables.
		Features map[plan.Feature]bool `json:"features"`
	}

	Service struct {
		conf    *core.Config
		users   user.Repository
		players player.Repository
		playSvc *player.Service
		gateway PaymentGateway
		logger  core.Logger
	}
)

func NewService(
	conf *core.Config,
	users user.Repository,
	players player.Repository,
	playSvc *player.Service,
	gateway PaymentGateway,
	logger core.Logger,
) *Service {
	return &Service{
		conf:    conf,
		users:   users,
		players: players,
		playSvc: playSvc,
		gateway: gateway,
		logger:  logger,
	}
}

// Status returns the standing of the viewing parent with the plan of each player.
// Admins without a parent profile get an Elite standing.
func (svc *Service) Status(ctx context.Context, viewer user.Viewer) (Status, error) {
	if viewer.ParentProfileID == "" {
		if viewer.IsAdmin() {
			p := plan.Get(plan.Elite)
			return Status{
				Standing: plan.Standing{
					PlanID:       p.ID,
					PlanName:     p.Name,
					CanAddPlayer: true,
					PlayerLimit:  p.PlayerLimit,
					Status:       plan.StatusActive,
					MonthlyPrice: p.MonthlyPrice(),
				},
				Players:  []plan.PlayerPlanInfo{},
				Features: plan.Features(p.ID),
			}, nil
		}
		return Status{}, ErrParentRequired
	}

	parent, err := svc.parent(ctx, viewer.ParentProfileID)
	if err != nil {
		return Status{}, err
	}
	standing, err := svc.playSvc.Standing(ctx, parent.ID)
	if err != nil {
		return Status{}, err
	}
	infos, err := svc.playSvc.PlanInfo(ctx, parent)
	if err != nil {
		return Status{}, err
	}
	return Status{Standing: standing, Players: infos, Features: plan.Features(standing.PlanID)}, nil
}

func (svc *Service) parent(ctx context.Context, id string, exec ...core.DBExecutor) (user.ParentProfile, error) {
	p, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{ID: id}, exec...)
	if err != nil {
		if core.IsNotFound(err) {
			return user.ParentProfile{}, user.ErrParentNotFound
		}
		return user.ParentProfile{}, errors.Wrap(err, "getting parent profile")
	}
	return p, nil
}

// Checkout starts a subscription checkout and returns the URL of the payment page.
// The parent gets a customer account on the first checkout.
func (svc *Service) Checkout(ctx context.Context, viewer user.Viewer, req CheckoutRequest) (string, error) {
	if viewer.ParentProfileID == "" {
		return "", ErrParentCheckout
	}
	if req.BillingPeriod == "" {
		req.BillingPeriod = plan.Monthly
	}
	if req.Intent == "" {
		req.Intent = IntentSubscribe
	}
	if req.PlanID == "" || req.PlanID == plan.Free {
		return "", ErrPaidPlanRequired
	}
	if !req.PlanID.IsValid() {
		return "", ErrInvalidPlan
	}
	if !plan.ValidPeriod(req.BillingPeriod) {
		return "", ErrInvalidPeriod
	}
	if req.Intent == IntentAddChild && req.PlanID != plan.Gold && req.PlanID != plan.Elite {
		return "", ErrAddChildPlan
	}
	priceID := svc.conf.StripePriceID(string(req.PlanID), req.BillingPeriod)
	if priceID == "" {
		return "", ErrPlanNotConfigured
	}

	parent, err := svc.parent(ctx, viewer.ParentProfileID)
	if err != nil {
		return "", err
	}

	origin := req.Origin
	if origin == "" {
		origin = svc.conf.FrontendBaseURL
	}
	successURL := origin + "/parent-dashboard/setting?tab=subscription&success=1"
	cancelURL := origin + "/subscription"
	if req.Intent == IntentAddChild {
		successURL = origin + "/parent-dashboard/players?addChild=1&planId=" + url.QueryEscape(string(req.PlanID))
		cancelURL = origin + "/parent-dashboard/players"
	}

	if parent.StripeCustomerID == "" {
		customerID, err := svc.gateway.CreateCustomer(ctx, viewer.Email, map[string]string{"parentProfileId": parent.ID})
		if err != nil {
			return "", core.NewExternalServiceError("stripe", "Failed to create checkout session", err)
		}
		parent.StripeCustomerID = customerID
		parent.UpdatedAt = time.Now().UTC()
		if parent, err = svc.users.UpdateParentProfile(ctx, parent); err != nil {
			return "", errors.Wrap(err, "saving stripe customer")
		}
	}

	checkoutURL, err := svc.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: parent.StripeCustomerID,
		PriceID:    priceID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		TrialDays:  trialDays,
		Metadata: map[string]string{
			"parentProfileId": parent.ID,
			"planId":          string(req.PlanID),
			"billingPeriod":   req.BillingPeriod,
			"intent":          req.Intent,
		},
		SubMetadata: map[string]string{
			"parentProfileId": parent.ID,
			"planId":          string(req.PlanID),
			"intent":          req.Intent,
		},
	})
	if err != nil {
		return "", core.NewExternalServiceError("stripe", "Failed to create checkout session", err)
	}
	return checkoutURL, nil
}

// Portal opens the billing portal of the viewing parent, optionally on one of their subscriptions.
func (svc *Service) Portal(ctx context.Context, viewer user.Viewer, req PortalRequest) (string, error) {
	if viewer.ParentProfileID == "" {
		return "", ErrParentRequired
	}
	parent, err := svc.parent(ctx, viewer.ParentProfileID)
	if err != nil {
		return "", err
	}
	if parent.StripeCustomerID == "" {
		return "", ErrNoBillingAccount
	}

	if req.SubscriptionID != "" && req.SubscriptionID != parent.StripeSubscriptionID {
		sub, err := svc.players.GetSubscription(ctx, player.SubscriptionFilter{StripeSubscriptionID: req.SubscriptionID})
		if err != nil && !core.IsNotFound(err) {
			return "", errors.Wrap(err, "getting player subscription")
		}
		if err != nil || sub.ParentID != parent.ID {
			return "", ErrSubscriptionUnknown
		}
	}

	returnURL := svc.conf.FrontendBaseURL + "/parent-dashboard/setting?tab=subscription"
	portalURL, err := svc.gateway.CreatePortalSession(ctx, parent.StripeCustomerID, returnURL, req.SubscriptionID)
	if err != nil {
		return "", core.NewExternalServiceError("stripe", "Failed to open billing portal", err)
	}
	return portalURL, nil
}

// HandleWebhook verifies and applies an event of the payment provider. Unknown events are ignored.
func (svc *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if svc.conf.Stripe.WebhookSecret == "" {
		return ErrWebhookNotConfigured
	}
	if signature == "" {
		return ErrMissingSignature
	}
	evt, err := svc.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return core.NewBadRequestError(fmt.Sprintf("Webhook Error: %v", err))
	}

	switch evt.Type {
	case EventCheckoutCompleted:
		err = svc.checkoutCompleted(ctx, evt.Checkout)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		err = svc.subscriptionChanged(ctx, evt.Subscription, evt.Type == EventSubscriptionDeleted)
	case EventInvoicePaid, EventInvoicePaymentFailed:
		err = svc.invoiceChanged(ctx, evt.InvoiceSubscriptionID)
	default:
		svc.logger.Debug(fmt.Sprintf("ignoring webhook event %s", evt.Type))
	}
	return errors.Wrapf(err, "handling %s", evt.Type)
}

func (svc *Service) checkoutCompleted(ctx context.Context, cs *CheckoutSession) error {
	if cs == nil {
		return nil
	}
	parentID := cs.Metadata["parentProfileId"]
	planID := plan.ID(cs.Metadata["planId"])
	if parentID == "" || planID == "" {
		svc.logger.Warn("checkout.session.completed missing metadata")
		return nil
	}
	if cs.SubscriptionID == "" {
		return nil
	}
	sub, err := svc.gateway.GetSubscription(ctx, cs.SubscriptionID)
	if err != nil {
		return errors.Wrap(err, "retrieving subscription")
	}
	now := time.Now().UTC()

	if cs.Metadata["intent"] == IntentAddChild && (planID == plan.Gold || planID == plan.Elite) {
		_, err = svc.players.CreateSubscription(ctx, plan.PlayerSubscription{
			ParentID:             parentID,
			PlanID:               planID,
			StripeSubscriptionID: sub.ID,
			Status:               sub.Status,
			PeriodEndAt:          sub.PeriodEndAt,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
		return errors.Wrap(err, "creating player subscription")
	}

	parent, err := svc.parent(ctx, parentID)
	if err != nil {
		return err
	}
	parent.PlanID = plan.Parse(string(planID))
	parent.StripeSubscriptionID = sub.ID
	parent.SubscriptionStatus = sub.Status
	parent.PeriodEndAt = sub.PeriodEndAt
	parent.UpdatedAt = now
	_, err = svc.users.UpdateParentProfile(ctx, parent)
	return errors.Wrap(err, "updating parent subscription")
}

// subscriptionChanged applies a subscription update to the per-player subscription holding it,
// or else to the parent profile holding it.
func (svc *Service) subscriptionChanged(ctx context.Context, sub *Subscription, deleted bool) error {
	if sub == nil {
		return nil
	}
	status := sub.Status
	if deleted {
		status = plan.StatusCanceled
	}
	now := time.Now().UTC()

	ps, err := svc.players.GetSubscription(ctx, player.SubscriptionFilter{StripeSubscriptionID: sub.ID})
	switch {
	case err == nil:
		ps.Status = status
		ps.PeriodEndAt = sub.PeriodEndAt
		ps.UpdatedAt = now
		if _, err = svc.players.UpdateSubscription(ctx, ps); err != nil {
			return errors.Wrap(err, "updating player subscription")
		}
		if deleted && ps.PlayerID != "" {
			svc.revertPlayer(ctx, ps.PlayerID)
		}
		return nil
	case !core.IsNotFound(err):
		return errors.Wrap(err, "getting player subscription")
	}

	parentID := sub.Metadata["parentProfileId"]
	if parentID == "" {
		parent, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{StripeSubscriptionID: sub.ID})
		if core.IsNotFound(err) {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "getting parent profile")
		}
		parent.PlanID = plan.Free
		parent.StripeSubscriptionID = ""
		parent.SubscriptionStatus = status
		parent.PeriodEndAt = sub.PeriodEndAt
		parent.UpdatedAt = now
		_, err = svc.users.UpdateParentProfile(ctx, parent)
		return errors.Wrap(err, "updating parent subscription")
	}

	parent, err := svc.parent(ctx, parentID)
	if err != nil {
		return err
	}
	parent.PlanID = plan.Parse(sub.Metadata["planId"])
	if deleted {
		parent.PlanID = plan.Free
		parent.StripeSubscriptionID = ""
	}
	parent.SubscriptionStatus = status
	parent.PeriodEndAt = sub.PeriodEndAt
	parent.UpdatedAt = now
	_, err = svc.users.UpdateParentProfile(ctx, parent)
	return errors.Wrap(err, "updating parent subscription")
}

// revertPlayer puts a player back on the free plan. Failures are logged only.
func (svc *Service) revertPlayer(ctx context.Context, playerID string) {
	p, err := svc.players.GetPlayer(ctx, playerID)
	if err == nil {
		p.PlanID = plan.Free
		p.UpdatedAt = time.Now().UTC()
		_, err = svc.players.UpdatePlayer(ctx, p)
	}
	if err != nil && !core.IsNotFound(err) {
		svc.logger.Error(fmt.Sprintf("reverting player %s to free: %v", playerID, err), err)
	}
}

// invoiceChanged refreshes the status of the parent subscription an invoice is about.
func (svc *Service) invoiceChanged(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return nil
	}
	parent, err := svc.users.GetParentProfile(ctx, user.ProfileFilter{StripeSubscriptionID: subscriptionID})
	if core.IsNotFound(err) {
		return nil
	} else if err != nil {
		return errors.Wrap(err, "getting parent profile")
	}
	sub, err := svc.gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return errors.Wrap(err, "retrieving subscription")
	}
	parent.SubscriptionStatus = sub.Status
	parent.PeriodEndAt = sub.PeriodEndAt
	parent.UpdatedAt = time.Now().UTC()
	_, err = svc.users.UpdateParentProfile(ctx, parent)
	return errors.Wrap(err, "updating parent subscription")
}
