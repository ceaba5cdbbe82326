package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/child"
	"github.com/lanes-app/lanes/core/classlevel"
	"github.com/lanes-app/lanes/core/enrollment"
	"github.com/lanes-app/lanes/core/instructor"
	"github.com/lanes-app/lanes/core/lesson"
	"github.com/lanes-app/lanes/core/notification"
	"github.com/lanes-app/lanes/core/organization"
	"github.com/lanes-app/lanes/core/parent"
	"github.com/lanes-app/lanes/core/report"
	"github.com/lanes-app/lanes/core/user"
)

type (
	// StatusChecker reports whether a backing service is reachable.
	StatusChecker interface {
		StatusCheck(ctx context.Context) error
	}

	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		DB         StatusChecker
		Validate   *validator.Validate
		Translator ut.Translator
		Sessions   core.SessionStore

		UserSvc         *user.Service
		OrgSvc          *organization.Service
		InstructorSvc   *instructor.Service
		ParentSvc       *parent.Service
		ChildSvc        *child.Service
		ClassLevelSvc   *classlevel.Service
		LessonSvc       *lesson.Service
		EnrollmentSvc   *enrollment.Service
		NotificationSvc *notification.Service
		ReportSvc       *report.Service
	}

	Server struct {
		app      *echo.Echo
		conf     *core.Config
		deps     *Deps
		tokens   *tokenAuth
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps *Deps) *Server {
	s := &Server{
		app:      echo.New(),
		conf:     deps.Conf,
		deps:     deps,
		tokens:   newTokenAuth(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug && !s.conf.TestMode
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware)

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.app.Group("/api", s.authMiddleware)
	api.GET("/health", s.health)

	s.registerAuthAPI(api)
	s.registerOrganizationAPI(api)
	s.registerNotificationAPI(api)

	og := api.Group("/organizations/:orgID", requireAuth, s.orgAccessMiddleware)
	s.registerOrgAPI(og)
	s.registerInstructorAPI(og)
	s.registerParentAPI(og)
	s.registerChildAPI(og)
	s.registerClassLevelAPI(og)
	s.registerLessonAPI(og)
	s.registerEnrollmentAPI(og)
	s.registerReportAPI(og)
}

// Start listens until the server is shut down. Other errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

// Shutdown stops the server gracefully, waiting for the in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Lanes API!")
}

func (s *Server) health(ctx echo.Context) error {
	if err := s.deps.DB.StatusCheck(ctx.Request().Context()); err != nil {
		s.deps.Logger.Error("database status check failed", err)
		return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "db not ready"})
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
