package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/myhockeyrecruiting/mhr/apps/api/echo"
	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/billing"
	"github.com/myhockeyrecruiting/mhr/core/contact"
	"github.com/myhockeyrecruiting/mhr/core/directory"
	"github.com/myhockeyrecruiting/mhr/core/event"
	"github.com/myhockeyrecruiting/mhr/core/lookup"
	"github.com/myhockeyrecruiting/mhr/core/notification"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/core/review"
	"github.com/myhockeyrecruiting/mhr/core/support"
	"github.com/myhockeyrecruiting/mhr/core/user"
	emailsvc "github.com/myhockeyrecruiting/mhr/services/email"
	logsvc "github.com/myhockeyrecruiting/mhr/services/logger"
	paymentsvc "github.com/myhockeyrecruiting/mhr/services/payments"
	smssvc "github.com/myhockeyrecruiting/mhr/services/sms"
	"github.com/myhockeyrecruiting/mhr/services/zapier"
	"github.com/myhockeyrecruiting/mhr/storage/database"
	inmemdb "github.com/myhockeyrecruiting/mhr/storage/database/inmem"
	pgrepos "github.com/myhockeyrecruiting/mhr/storage/database/postgres"
)

const engineInMem = "inmem"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are backed by Postgres, or by memory when the "inmem" engine is configured.
	Repositories struct {
		dig.Out
		Tx            core.Transactor
		Users         user.Repository
		Players       player.Repository
		Contacts      contact.Repository
		Reviews       review.Repository
		Events        event.Repository
		Notifications notification.Repository
		Directory     directory.Repository
		Lookups       lookup.Repository
		Support       support.Repository
	}

	serverParams struct {
		dig.In
		Conf            *core.Config
		Logger          core.Logger
		UserSvc         user.Service
		PlayerSvc       *player.Service
		ContactSvc      *contact.Service
		ReviewSvc       *review.Service
		EventSvc        *event.Service
		NotificationSvc *notification.Service
		BillingSvc      *billing.Service
		DirectorySvc    *directory.Service
		LookupSvc       *lookup.Service
		SupportSvc      *support.Service
		Validate        *validator.Validate
		Translator      ut.Translator
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)
	return logger
}

// newDB opens and migrates the Postgres database. It returns nil for the "inmem" engine.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	if conf.Database.Engine == engineInMem {
		loggerParam.Logger.Warn("using the in-memory database: data is lost on exit")
		return nil
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(db *sqlx.DB) Repositories {
	if db == nil {
		mem := inmemdb.Open()
		return Repositories{
			Tx:            inmemdb.NewTransactor(),
			Users:         inmemdb.NewUserRepository(mem),
			Players:       inmemdb.NewPlayerRepository(mem),
			Contacts:      inmemdb.NewContactRepository(mem),
			Reviews:       inmemdb.NewReviewRepository(mem),
			Events:        inmemdb.NewEventRepository(mem),
			Notifications: inmemdb.NewNotificationRepository(mem),
			Directory:     inmemdb.NewDirectoryRepository(mem),
			Lookups:       inmemdb.NewLookupRepository(mem),
			Support:       inmemdb.NewSupportRepository(mem),
		}
	}
	return Repositories{
		Tx:            core.NewTransactor(db),
		Users:         pgrepos.NewUserRepository(db),
		Players:       pgrepos.NewPlayerRepository(db),
		Contacts:      pgrepos.NewContactRepository(db),
		Reviews:       pgrepos.NewReviewRepository(db),
		Events:        pgrepos.NewEventRepository(db),
		Notifications: pgrepos.NewNotificationRepository(db),
		Directory:     pgrepos.NewDirectoryRepository(db),
		Lookups:       pgrepos.NewLookupRepository(db),
		Support:       pgrepos.NewSupportRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	switch conf.Email.Provider {
	case "sendgrid":
		return emailsvc.NewSendgridService(conf, logger)
	case "smtp":
		return emailsvc.NewSMTPService(conf, logger)
	default:
		return emailsvc.NewConsoleService(conf, logger)
	}
}

func newSMSService(conf *core.Config, logger core.Logger) core.SMSService {
	if conf.Twilio.AccountSID == "" || conf.Debug {
		return smssvc.NewConsoleService(logger)
	}
	return smssvc.NewTwilioService(conf)
}

func newPaymentGateway(conf *core.Config, logger core.Logger) billing.PaymentGateway {
	if conf.Stripe.SecretKey == "" {
		logger.Warn("Stripe is not configured: using the in-memory payment gateway")
		return paymentsvc.NewGatewayMock()
	}
	return paymentsvc.NewStripeGateway(conf)
}

func newEventNotifier(conf *core.Config, logger core.Logger) core.EventNotifier {
	return zapier.NewNotifier(conf.ZapierWebhookURL, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newPlayerService(
	conf *core.Config,
	players player.Repository,
	users user.Repository,
	tx core.Transactor,
	contacts *contact.Service,
	reviews *review.Service,
) *player.Service {
	return player.NewService(conf, players, users, tx, contacts, reviews)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Deps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		UserSvc:         p.UserSvc,
		PlayerSvc:       p.PlayerSvc,
		ContactSvc:      p.ContactSvc,
		ReviewSvc:       p.ReviewSvc,
		EventSvc:        p.EventSvc,
		NotificationSvc: p.NotificationSvc,
		BillingSvc:      p.BillingSvc,
		DirectorySvc:    p.DirectorySvc,
		LookupSvc:       p.LookupSvc,
		SupportSvc:      p.SupportSvc,
		Validate:        p.Validate,
		Translator:      p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))

	must(c.Provide(newEmailService))
	must(c.Provide(newSMSService))
	must(c.Provide(newPaymentGateway))
	must(c.Provide(newEventNotifier))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	must(c.Provide(user.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(contact.NewService))
	must(c.Provide(review.NewService))
	must(c.Provide(newPlayerService))
	must(c.Provide(event.NewService))
	must(c.Provide(billing.NewService))
	must(c.Provide(directory.NewService))
	must(c.Provide(lookup.NewService))
	must(c.Provide(support.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
