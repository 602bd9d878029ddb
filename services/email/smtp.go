package emailsvc

import (
	"fmt"
	"net/mail"

	"gopkg.in/gomail.v2"

	"github.com/myhockeyrecruiting/mhr/core"
)

type smtpService struct {
	conf       *core.Config
	dialer     *gomail.Dialer
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*smtpService)(nil)

// NewSMTPService sends e-mails through the configured SMTP relay.
func NewSMTPService(conf *core.Config, logger core.Logger) core.EmailService {
	ec := conf.Email
	return &smtpService{
		conf:       conf,
		dialer:     gomail.NewDialer(ec.SMTPHost, ec.SMTPPort, ec.SMTPUser, ec.SMTPPassword),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc smtpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(svc.conf); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if !msg.HasRecipients() || !msg.HasContent() {
				return
			}
			if err := svc.dialer.DialAndSend(svc.prepare(*msg)); err != nil {
				svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
			}
		}()
	}
}

func (svc smtpService) prepare(msg core.EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	from := svc.conf.DefaultFromEmail()
	m.SetHeader("From", from.String())
	m.SetHeader("To", addressList(msg.To)...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", addressList(msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", addressList(msg.Bcc)...)
	}
	m.SetHeader("Subject", svc.subjPrefix+msg.Subject)

	m.SetBody("text/plain", msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternative("text/html", msg.HTMLContent)
	}
	return m
}

func addressList(addrs []mail.Address) []string {
	list := make([]string, 0, len(addrs))
	for _, a := range addrs {
		list = append(list, a.String())
	}
	return list
}
