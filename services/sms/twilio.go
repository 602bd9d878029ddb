// Package smssvc sends text messages and phone verification codes.
package smssvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	verify "github.com/twilio/twilio-go/rest/verify/v2"

	"github.com/myhockeyrecruiting/mhr/core"
)

const verificationApproved = "approved"

var errNotConfigured = errors.New("twilio is not configured")

type twilioService struct {
	client     *twilio.RestClient
	from       string
	verifySID  string
	configured bool
}

var _ core.SMSService = (*twilioService)(nil)

func NewTwilioService(conf *core.Config) core.SMSService {
	tc := conf.Twilio
	return &twilioService{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: tc.AccountSID,
			Password: tc.AuthToken,
		}),
		from:       tc.PhoneNumber,
		verifySID:  tc.VerifyServiceSID,
		configured: tc.AccountSID != "" && tc.AuthToken != "",
	}
}

func (svc twilioService) SendSMS(_ context.Context, to, body string) error {
	if !svc.configured || svc.from == "" {
		return errNotConfigured
	}
	phone := core.NormalizePhone(to)
	if phone == "" {
		return errors.Errorf("invalid phone number %q", to)
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(svc.from)
	params.SetBody(body)
	_, err := svc.client.Api.CreateMessage(params)
	return errors.Wrap(err, "sending sms")
}

func (svc twilioService) SendVerification(_ context.Context, to string) error {
	if !svc.configured || svc.verifySID == "" {
		return errNotConfigured
	}
	phone := core.NormalizePhone(to)
	if phone == "" {
		return errors.Errorf("invalid phone number %q", to)
	}

	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")
	_, err := svc.client.VerifyV2.CreateVerification(svc.verifySID, params)
	return errors.Wrap(err, "creating verification")
}

func (svc twilioService) CheckVerification(_ context.Context, to, code string) (bool, error) {
	if !svc.configured || svc.verifySID == "" {
		return false, errNotConfigured
	}
	phone := core.NormalizePhone(to)
	if phone == "" || code == "" {
		return false, nil
	}

	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)
	res, err := svc.client.VerifyV2.CreateVerificationCheck(svc.verifySID, params)
	if err != nil {
		return false, errors.Wrap(err, "checking verification")
	}
	return res.Status != nil && *res.Status == verificationApproved, nil
}
