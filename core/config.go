package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AllowOrigins              []string
	}

	DatabaseConfig struct {
		Engine        string // postgres | inmem
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	EmailConfig struct {
		Provider       string // console | sendgrid | smtp
		SendgridAPIKey string
		SMTPHost       string
		SMTPPort       int
		SMTPUser       string
		SMTPPassword   string
	}

	StripeConfig struct {
		SecretKey     string
		WebhookSecret string
		// plan -> period -> price ID
		Prices map[string]map[string]string
	}

	TwilioConfig struct {
		AccountSID       string
		AuthToken        string
		PhoneNumber      string
		VerifyServiceSID string
	}

	Config struct {
		Env                       string
		Build                     string
		AppName                   string
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		FrontendBaseURL           string
		AdminAPIKey               string
		CronSecret                string
		ZapierWebhookURL          string
		RollbarToken              string
		TestAccountEmails         []string
		PasswordResetTimeoutDelta time.Duration
		WorkDir                   string

		Server   ServerConfig
		Database DatabaseConfig
		Email    EmailConfig
		Stripe   StripeConfig
		Twilio   TwilioConfig

		defaultFromEmail string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

func (c *Config) IsTestAccount(email string) bool {
	email = CleanString(email, true /* lower */)
	for _, e := range c.TestAccountEmails {
		if e == email {
			return true
		}
	}
	return false
}

// StripePriceID returns the configured Stripe price for a plan and billing period ("monthly" | "annual").
func (c *Config) StripePriceID(plan, period string) string {
	if periods, ok := c.Stripe.Prices[plan]; ok {
		return periods[period]
	}
	return ""
}

func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, d.Port)
}

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// NewConfig loads the app Config from the environment.
// Variables are prefixed by the current env: e.g. PROD_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "My Hockey Recruiting")
	v.SetDefault("secretKey", "k9v$2mq!x7-hz)ra3@w0p&e+6yd#fj8tnu=c1bs(l4^og5iy")
	v.SetDefault("defaultFromEmail", "My Hockey Recruiting <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("testAccountEmails", "")

	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", "8000")
	v.SetDefault("server_debugHost", "0.0.0.0:4000")
	v.SetDefault("server_shutdownTimeout", 5*time.Second)
	v.SetDefault("server_jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server_jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("server_allowOrigins", "*")

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "mhr")
	v.SetDefault("database_user", "mhr")
	v.SetDefault("database_password", "")
	v.SetDefault("database_adminUser", "postgres")
	v.SetDefault("database_adminPassword", "")
	v.SetDefault("database_disableTLS", true)

	v.SetDefault("email_provider", "console")
	v.SetDefault("email_sendgridApiKey", "")
	v.SetDefault("email_smtpHost", "")
	v.SetDefault("email_smtpPort", 587)
	v.SetDefault("email_smtpUser", "")
	v.SetDefault("email_smtpPassword", "")

	v.SetDefault("stripe_secretKey", "")
	v.SetDefault("stripe_webhookSecret", "")

	v.SetDefault("twilio_accountSid", "")
	v.SetDefault("twilio_authToken", "")
	v.SetDefault("twilio_phoneNumber", "")
	v.SetDefault("twilio_verifyServiceSid", "")

	v.SetDefault("adminApiKey", "")
	v.SetDefault("cronSecret", "")
	v.SetDefault("zapierWebhookUrl", "")
	v.SetDefault("rollbarToken", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("appName"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  testMode,
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		AdminAPIKey:               v.GetString("adminApiKey"),
		CronSecret:                v.GetString("cronSecret"),
		ZapierWebhookURL:          v.GetString("zapierWebhookUrl"),
		RollbarToken:              v.GetString("rollbarToken"),
		TestAccountEmails:         splitList(v.GetString("testAccountEmails"), true),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		WorkDir:                   wd,
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("server_host"),
			Port:                      v.GetString("server_port"),
			DebugHost:                 v.GetString("server_debugHost"),
			ShutdownTimeout:           v.GetDuration("server_shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server_jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwtRefreshExpirationDelta"),
			AllowOrigins:              splitList(v.GetString("server_allowOrigins"), false),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_adminUser"),
			AdminPassword: v.GetString("database_adminPassword"),
			DisableTLS:    v.GetBool("database_disableTLS"),
		},
		Email: EmailConfig{
			Provider:       v.GetString("email_provider"),
			SendgridAPIKey: v.GetString("email_sendgridApiKey"),
			SMTPHost:       v.GetString("email_smtpHost"),
			SMTPPort:       v.GetInt("email_smtpPort"),
			SMTPUser:       v.GetString("email_smtpUser"),
			SMTPPassword:   v.GetString("email_smtpPassword"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("stripe_secretKey"),
			WebhookSecret: v.GetString("stripe_webhookSecret"),
			Prices:        make(map[string]map[string]string),
		},
		Twilio: TwilioConfig{
			AccountSID:       v.GetString("twilio_accountSid"),
			AuthToken:        v.GetString("twilio_authToken"),
			PhoneNumber:      v.GetString("twilio_phoneNumber"),
			VerifyServiceSID: v.GetString("twilio_verifyServiceSid"),
		},
	}

	// stripe prices: STRIPE_PRICE_<PLAN>_<PERIOD>, e.g. PROD_STRIPE_PRICE_FAMILY_GOLD_ANNUAL
	pricedPlans := map[string]string{"gold": "gold", "elite": "elite", "familyGold": "family_gold", "familyElite": "family_elite"}
	for plan, envName := range pricedPlans {
		conf.Stripe.Prices[plan] = make(map[string]string, 2)
		for _, period := range []string{"monthly", "annual"} {
			conf.Stripe.Prices[plan][period] = v.GetString(fmt.Sprintf("stripe_price_%s_%s", envName, period))
		}
	}
	return conf
}

func splitList(s string, lower bool) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = CleanString(item, lower); item != "" {
			list = append(list, item)
		}
	}
	return list
}
