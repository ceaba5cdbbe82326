package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/lanes-app/lanes/apps/api/echo"
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
	emailsvc "github.com/lanes-app/lanes/services/email"
	logsvc "github.com/lanes-app/lanes/services/logger"
	pushsvc "github.com/lanes-app/lanes/services/push"
	sessionsvc "github.com/lanes-app/lanes/services/session"
	"github.com/lanes-app/lanes/storage/database"
	"github.com/lanes-app/lanes/storage/database/gormrepos"
	sqlxrepos "github.com/lanes-app/lanes/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newRootLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newLogger(root *logsvc.RollbarLogger) core.Logger {
	return root.Named("API")
}

func newDBLogger(root *logsvc.RollbarLogger) core.Logger {
	return root.Named("DB")
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *database.DB {
	setUp := func() (*database.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf, loggerParam.Logger)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db); err != nil {
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

func newTransactor(db *database.DB) core.Transactor { return db }

func newStatusChecker(db *database.DB) echoapi.StatusChecker { return db }

func newReportRepository(db *database.DB, loggerParam DBLoggerParam) report.Repository {
	repo, err := sqlxrepos.NewReportRepository(db)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up report repository: %v", err), err)
	}
	return repo
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newPushService(conf *core.Config, logger core.Logger) core.PushService {
	if conf.Debug && conf.ExpoAccessToken == "" {
		return pushsvc.NewConsoleService(logger)
	}
	return pushsvc.NewExpoService(conf)
}

func newSessionStore(conf *core.Config) core.SessionStore {
	if conf.Redis.Address == "" {
		return sessionsvc.NewMemoryStore()
	}
	return sessionsvc.NewRedisStore(sessionsvc.NewRedisClient(conf))
}

type serverParams struct {
	dig.In

	Conf            *core.Config
	Logger          core.Logger
	DB              echoapi.StatusChecker
	Validate        *validator.Validate
	Translator      ut.Translator
	Sessions        core.SessionStore
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

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		DB:              p.DB,
		Validate:        p.Validate,
		Translator:      p.Translator,
		Sessions:        p.Sessions,
		UserSvc:         p.UserSvc,
		OrgSvc:          p.OrgSvc,
		InstructorSvc:   p.InstructorSvc,
		ParentSvc:       p.ParentSvc,
		ChildSvc:        p.ChildSvc,
		ClassLevelSvc:   p.ClassLevelSvc,
		LessonSvc:       p.LessonSvc,
		EnrollmentSvc:   p.EnrollmentSvc,
		NotificationSvc: p.NotificationSvc,
		ReportSvc:       p.ReportSvc,
	})
}

// enrollment notifications go through the notification service
func newNotifier(svc *notification.Service) enrollment.Notifier { return svc }

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newRootLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newTransactor))
	must(c.Provide(newStatusChecker))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newEmailService))
	must(c.Provide(newPushService))
	must(c.Provide(newSessionStore))

	// repositories
	must(c.Provide(gormrepos.NewUserRepository))
	must(c.Provide(gormrepos.NewOrganizationRepository))
	must(c.Provide(gormrepos.NewInstructorRepository))
	must(c.Provide(gormrepos.NewParentRepository))
	must(c.Provide(gormrepos.NewChildRepository))
	must(c.Provide(gormrepos.NewClassLevelRepository))
	must(c.Provide(gormrepos.NewLessonRepository))
	must(c.Provide(gormrepos.NewEnrollmentRepository))
	must(c.Provide(gormrepos.NewNotificationRepository))
	must(c.Provide(newReportRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(newNotifier))
	must(c.Provide(organization.NewService))
	must(c.Provide(instructor.NewService))
	must(c.Provide(child.NewService))
	must(c.Provide(parent.NewService))
	must(c.Provide(classlevel.NewService))
	must(c.Provide(lesson.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(report.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
