package echoapi

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

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
)

type (
	Deps struct {
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
		DisableReqLogs  bool
	}

	Server struct {
		*http.Server
		app      *echo.Echo
		deps     Deps
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps Deps) *Server {
	s := &Server{
		Server: &http.Server{
			Addr:         deps.Conf.Server.Address(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		app:      echo.New(),
		deps:     deps,
		metrics:  newMetrics(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.setup()
	s.Handler = s.app
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf
	configureAuth(conf)

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: conf.Server.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.app.Use(s.metrics.middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	optionalJWT := middleware.JWTWithConfig(optionalJWTConfig())
	auth := viewerMiddleware(s.deps.UserSvc, false)
	anonymous := viewerMiddleware(s.deps.UserSvc, true)

	authed := []echo.MiddlewareFunc{jwt, auth}
	public := []echo.MiddlewareFunc{optionalJWT, anonymous}

	g.GET("/health", health)

	registerAuthAPI(g, authed, s.deps)
	registerProfileAPI(g, authed, s.deps)
	registerPlayerAPI(g, authed, public, s.deps)
	registerCoachAPI(g, authed, public, s.deps)
	registerContactAPI(g, authed, s.deps)
	registerRatingAPI(g, authed, s.deps)
	registerDisputeAPI(g, authed, s.deps)
	registerEventAPI(g, authed, s.deps)
	registerNotificationAPI(g, authed, s.deps)
	registerBillingAPI(g, authed, s.deps)
	registerPublicAPI(g, public, s.deps)
	registerDirectoryAPI(g, authed, public, s.deps)
	registerAdminAPI(g, append(authed, adminMiddleware()), s.deps)
	registerZapierAPI(g, apiKeyMiddleware(conf.AdminAPIKey), s.deps)
	registerCronAPI(g, apiKeyMiddleware(conf.CronSecret), s.deps)
}

// Start runs the API server. Listen errors are sent to Errors().
func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.Addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// Metrics serves the Prometheus metrics of the server.
func (s *Server) Metrics() http.Handler { return s.metrics.handler() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGSTOP:
	default: // already shutting down
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
