package paymentsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core/billing"
)

// ValidSignature is the only webhook signature GatewayMock accepts.
const ValidSignature = "valid-signature"

// GatewayMock is an in-memory payment gateway.
// Webhook payloads are JSON encoded billing.WebhookEvent values.
type GatewayMock struct {
	mu            sync.Mutex
	customers     map[string]string // id: email
	subscriptions map[string]billing.Subscription
	Checkouts     []billing.CheckoutParams
	// Err is returned by every call when set.
	Err error
}

var _ billing.PaymentGateway = (*GatewayMock)(nil)

func NewGatewayMock() *GatewayMock {
	return &GatewayMock{
		customers:     make(map[string]string),
		subscriptions: make(map[string]billing.Subscription),
	}
}

// SetSubscription stores the provider side state of a subscription.
func (g *GatewayMock) SetSubscription(sub billing.Subscription) {
	g.mu.Lock()
	g.subscriptions[sub.ID] = sub
	g.mu.Unlock()
}

func (g *GatewayMock) CreateCustomer(_ context.Context, email string, _ map[string]string) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("cus_%d", len(g.customers)+1)
	g.customers[id] = email
	return id, nil
}

func (g *GatewayMock) CustomerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.customers)
}

func (g *GatewayMock) CreateCheckoutSession(_ context.Context, params billing.CheckoutParams) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Checkouts = append(g.Checkouts, params)
	return fmt.Sprintf("https://checkout.test/session/%d", len(g.Checkouts)), nil
}

func (g *GatewayMock) CreatePortalSession(_ context.Context, customerID, _, subscriptionID string) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	url := "https://billing.test/portal/" + customerID
	if subscriptionID != "" {
		url += "/" + subscriptionID
	}
	return url, nil
}

func (g *GatewayMock) GetSubscription(_ context.Context, id string) (billing.Subscription, error) {
	if g.Err != nil {
		return billing.Subscription{}, g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	sub, ok := g.subscriptions[id]
	if !ok {
		return billing.Subscription{}, errors.Errorf("no such subscription: %s", id)
	}
	return sub, nil
}

func (g *GatewayMock) ParseWebhook(payload []byte, signature string) (billing.WebhookEvent, error) {
	if signature != ValidSignature {
		return billing.WebhookEvent{}, errors.New("invalid signature")
	}
	var evt billing.WebhookEvent
	err := json.Unmarshal(payload, &evt)
	return evt, errors.Wrap(err, "decoding webhook event")
}
