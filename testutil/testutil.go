// Package testutil wires the domain services on in-memory repositories and seeds test data.
package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/billing"
	"github.com/myhockeyrecruiting/mhr/core/contact"
	"github.com/myhockeyrecruiting/mhr/core/directory"
	"github.com/myhockeyrecruiting/mhr/core/event"
	"github.com/myhockeyrecruiting/mhr/core/lookup"
	"github.com/myhockeyrecruiting/mhr/core/notification"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/core/review"
	"github.com/myhockeyrecruiting/mhr/core/support"
	"github.com/myhockeyrecruiting/mhr/core/user"
	"github.com/myhockeyrecruiting/mhr/fs/appfs"
	emailsvc "github.com/myhockeyrecruiting/mhr/services/email"
	logsvc "github.com/myhockeyrecruiting/mhr/services/logger"
	paymentsvc "github.com/myhockeyrecruiting/mhr/services/payments"
	smssvc "github.com/myhockeyrecruiting/mhr/services/sms"
	"github.com/myhockeyrecruiting/mhr/services/zapier"
	inmemdb "github.com/myhockeyrecruiting/mhr/storage/database/inmem"
)

const (
	// Password is the password of every seeded account.
	Password = "h0ckey-Pwd!"

	AdminAPIKey   = "test-admin-key"
	CronSecret    = "test-cron-secret"
	WebhookSecret = "whsec_test"
)

var templatesOnce sync.Once

// Env holds the services of a test, wired on a fresh in-memory database.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	DB            *inmemdb.DB
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

	Mail    *emailsvc.ServiceMock
	SMS     *smssvc.ConsoleService
	Gateway *paymentsvc.GatewayMock
	Zapier  *zapier.Recorder

	UserSvc         user.Service
	NotificationSvc *notification.Service
	ContactSvc      *contact.Service
	ReviewSvc       *review.Service
	PlayerSvc       *player.Service
	EventSvc        *event.Service
	BillingSvc      *billing.Service
	DirectorySvc    *directory.Service
	LookupSvc       *lookup.Service
	SupportSvc      *support.Service
}

// Config returns a Config in test mode, with integration secrets and Stripe prices set.
func Config() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.RollbarToken = ""
	conf.AdminAPIKey = AdminAPIKey
	conf.CronSecret = CronSecret
	conf.FrontendBaseURL = "http://localhost:3000"
	conf.Stripe.WebhookSecret = WebhookSecret
	for _, id := range []plan.ID{plan.Gold, plan.Elite, plan.FamilyGold, plan.FamilyElite} {
		conf.Stripe.Prices[string(id)] = map[string]string{
			plan.Monthly: "price_" + string(id) + "_monthly",
			plan.Annual:  "price_" + string(id) + "_annual",
		}
	}
	return conf
}

// NewLogger returns a Logger writing nowhere.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "TEST : ", log.LstdFlags), conf)
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidate returns a validator with every app validator registered.
func NewValidate(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	lookup.InitValidators(validate)
	return validate
}

func NewEnv(t testing.TB) *Env {
	t.Helper()

	conf := Config()
	logger := NewLogger(conf)
	templatesOnce.Do(func() {
		core.ParseEmailTemplates(appfs.FS, false, logger)
	})

	translator := NewTranslator()
	mem := inmemdb.Open()
	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Translator: translator,
		Validate:   NewValidate(translator),

		DB:            mem,
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

		Mail:    emailsvc.NewServiceMock(conf, logger),
		SMS:     smssvc.NewConsoleService(logger),
		Gateway: paymentsvc.NewGatewayMock(),
		Zapier:  zapier.NewRecorder(),
	}

	env.UserSvc = user.NewServiceMock(conf, env.Users, env.Tx, env.Mail, env.SMS, env.Zapier)
	env.NotificationSvc = notification.NewService(env.Notifications)
	env.ContactSvc = contact.NewService(env.Contacts, env.Users, env.Players, env.NotificationSvc, logger)
	env.ReviewSvc = review.NewService(env.Reviews, env.Users, env.Players, env.Tx, env.NotificationSvc, env.Zapier, logger)
	env.PlayerSvc = player.NewService(conf, env.Players, env.Users, env.Tx, env.ContactSvc, env.ReviewSvc)
	env.EventSvc = event.NewService(env.Events, env.Players, env.SMS, logger)
	env.BillingSvc = billing.NewService(conf, env.Users, env.Players, env.PlayerSvc, env.Gateway, logger)
	env.DirectorySvc = directory.NewService(env.Directory, env.Users, env.Zapier)
	env.LookupSvc = lookup.NewService(env.Lookups)
	env.SupportSvc = support.NewService(env.Support, env.Zapier)
	return env
}

func createUser(t testing.TB, env *Env, name, email, role string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:          name,
		Email:         email,
		Phone:         "+15555550100",
		PhoneVerified: true,
		IsActive:      true,
		Role:          role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := env.Users.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// CreateParent seeds a verified parent account on planID.
func CreateParent(t testing.TB, env *Env, name, email string, planID plan.ID) user.Account {
	t.Helper()

	usr := createUser(t, env, name, email, user.RoleParent)
	now := time.Now().UTC()
	p := user.ParentProfile{
		UserID:             usr.ID,
		PlanID:             planID,
		EventReminderSMS:   true,
		EmailNotifications: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if planID.IsPaid() {
		p.SubscriptionStatus = plan.StatusActive
	}
	p, err := env.Users.CreateParentProfile(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateParent() failed: %v", err)
	}
	return user.Account{User: usr, Parent: &p}
}

// CreateCoach seeds a verified coach account. opts may fill the profile.
func CreateCoach(t testing.TB, env *Env, name, email string, opts ...func(*user.CoachProfile)) user.Account {
	t.Helper()

	usr := createUser(t, env, name, email, user.RoleCoach)
	now := time.Now().UTC()
	c := user.CoachProfile{
		UserID:    usr.ID,
		Name:      usr.Name,
		Email:     usr.Email,
		CoachRole: user.CoachRoleAssistant,
		Title:     "Assistant Coach",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	c, err := env.Users.CreateCoachProfile(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCoach() failed: %v", err)
	}
	return user.Account{User: usr, Coach: &c}
}

func CreateAdmin(t testing.TB, env *Env, name, email string) user.Account {
	t.Helper()
	return user.Account{User: createUser(t, env, name, email, user.RoleAdmin)}
}

// CreatePlayer seeds a player of the parent profile parentID.
func CreatePlayer(t testing.TB, env *Env, parentID, name string, birthYear int) player.Player {
	t.Helper()

	now := time.Now().UTC()
	p, err := env.Players.CreatePlayer(context.Background(), player.Player{
		ParentID:  parentID,
		Name:      name,
		BirthYear: birthYear,
		Status:    player.StatusPending,
		PlanID:    plan.Free,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePlayer() failed: %v", err)
	}
	return p
}
