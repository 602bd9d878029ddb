package smssvc

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
)

// TestCode is the verification code accepted by the console service.
const TestCode = "123456"

// Message is a text message recorded by the console service.
type Message struct {
	To   string
	Body string
}

// ConsoleService logs text messages instead of sending them, and accepts TestCode for any verification.
type ConsoleService struct {
	logger core.Logger

	mu       sync.Mutex
	sent     []Message
	verified []string
	// Fail makes every send fail, to exercise error paths.
	Fail bool
}

var _ core.SMSService = (*ConsoleService)(nil)

func NewConsoleService(logger core.Logger) *ConsoleService {
	return &ConsoleService{logger: logger}
}

func (svc *ConsoleService) SendSMS(_ context.Context, to, body string) error {
	phone := core.NormalizePhone(to)
	if svc.Fail || phone == "" {
		return errors.Errorf("cannot send sms to %q", to)
	}
	svc.logger.Info("sms to " + phone + ": " + body)

	svc.mu.Lock()
	svc.sent = append(svc.sent, Message{To: phone, Body: body})
	svc.mu.Unlock()
	return nil
}

func (svc *ConsoleService) SendVerification(_ context.Context, to string) error {
	phone := core.NormalizePhone(to)
	if svc.Fail || phone == "" {
		return errors.Errorf("cannot send verification to %q", to)
	}
	svc.logger.Info("verification code for " + phone + ": " + TestCode)

	svc.mu.Lock()
	svc.verified = append(svc.verified, phone)
	svc.mu.Unlock()
	return nil
}

func (svc *ConsoleService) CheckVerification(_ context.Context, _, code string) (bool, error) {
	if svc.Fail {
		return false, errors.New("verification unavailable")
	}
	return code == TestCode, nil
}

// Sent returns the text messages sent so far.
func (svc *ConsoleService) Sent() []Message {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Message(nil), svc.sent...)
}

// Verifications returns the phone numbers a code was sent to.
func (svc *ConsoleService) Verifications() []string {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]string(nil), svc.verified...)
}
