package user

import (
	"context"

	"github.com/myhockeyrecruiting/mhr/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service that sends its e-mails synchronously.
func NewServiceMock(
	conf *core.Config,
	repo Repository,
	tx core.Transactor,
	mailSvc core.EmailService,
	smsSvc core.SMSService,
	notifier core.EventNotifier,
) Service {
	configureTokens(conf)
	return &serviceMock{
		service: service{
			repo:     repo,
			tx:       tx,
			mailSvc:  mailSvc,
			smsSvc:   smsSvc,
			notifier: notifier,
			conf:     conf,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}

// MakeTestToken exposes password reset tokens to the API tests.
func MakeTestToken(usr User) (uid, token string) {
	return EncodeUID(usr), makeToken(usr)
}
