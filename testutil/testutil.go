// Package testutil sets up the database and services used by the tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

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

// Password passes the password policy.
const Password = "Sw1m!Lanes#42"

var commonPasswordsOnce sync.Once

// PrepareDB opens a private in-memory database holding every table.
func PrepareDB(t *testing.T, conf *core.Config, logger core.Logger) *database.DB {
	t.Helper()

	dbConf := *conf
	dbConf.Database.Engine = database.EngineSqlite
	dbConf.Database.Name = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	db, err := database.Open(&dbConf, logger)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	if err = db.AutoMigrate(gormrepos.Models()...); err != nil {
		t.Fatalf("db.AutoMigrate() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator(logger core.Logger) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)
	commonPasswordsOnce.Do(func() { user.LoadCommonPasswords(logger) })
	return validate, translator
}

// Env holds a wired set of services over a private database.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *database.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleServiceMock
	Push       *pushsvc.ConsoleServiceMock
	Sessions   core.SessionStore

	Users         *user.Service
	Orgs          *organization.Service
	Instructors   *instructor.Service
	Parents       *parent.Service
	Children      *child.Service
	ClassLevels   *classlevel.Service
	Lessons       *lesson.Service
	Enrollments   *enrollment.Service
	Notifications *notification.Service
	Reports       *report.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(conf).Named("TEST")
	core.ParseEmailTemplates(conf, logger)
	db := PrepareDB(t, conf, logger)
	validate, translator := NewValidator(logger)

	env := &Env{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		Validate:   validate,
		Translator: translator,
		Mail:       emailsvc.NewConsoleServiceMock(conf, logger),
		Push:       pushsvc.NewConsoleServiceMock(),
		Sessions:   sessionsvc.NewMemoryStore(),
	}

	env.Users = user.NewService(gormrepos.NewUserRepository(db), env.Mail, conf)
	env.Notifications = notification.NewService(gormrepos.NewNotificationRepository(db), env.Push, validate, logger)
	env.Orgs = organization.NewService(gormrepos.NewOrganizationRepository(db), env.Users, env.Notifications, db, validate, logger)
	env.Instructors = instructor.NewService(gormrepos.NewInstructorRepository(db), env.Users, env.Notifications, db, validate, logger)
	env.Children = child.NewService(gormrepos.NewChildRepository(db), db, validate)
	env.Parents = parent.NewService(gormrepos.NewParentRepository(db), env.Users, env.Children, env.Notifications, db, validate, logger)
	env.ClassLevels = classlevel.NewService(gormrepos.NewClassLevelRepository(db), db, validate, logger)
	env.Lessons = lesson.NewService(gormrepos.NewLessonRepository(db), db, validate)
	env.Enrollments = enrollment.NewService(
		gormrepos.NewEnrollmentRepository(db), env.Lessons, env.Children, env.Notifications, db, validate, logger,
	)
	reportRepo, err := sqlxrepos.NewReportRepository(db)
	if err != nil {
		t.Fatalf("NewReportRepository() failed: %v", err)
	}
	env.Reports = report.NewService(reportRepo, env.Lessons, env.ClassLevels)
	return env
}

func (env *Env) fail(t *testing.T, name string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s() failed: %v", name, err)
	}
}

// NewUser returns the account data of a new user; the password passes the policy.
func NewUser(name, email string) user.NewUser {
	return user.NewUser{Name: name, Email: email, Password: Password, PasswordConfirm: Password}
}

// CreateSuperAdmin creates an active super admin.
func (env *Env) CreateSuperAdmin(t *testing.T, name, email string) user.User {
	t.Helper()
	nu := NewUser(name, email)
	nu.Role = user.RoleSuperAdmin
	usr, err := env.Users.Create(context.Background(), nu)
	env.fail(t, "CreateSuperAdmin", err)
	return usr
}

// CreateOrganization signs an organization up, returning it with its first admin.
func (env *Env) CreateOrganization(t *testing.T, name, adminEmail string) (organization.Organization, user.User) {
	t.Helper()
	org, admin, err := env.Orgs.Signup(context.Background(), organization.Signup{
		Organization: organization.NewOrganization{Name: name},
		Admin:        NewUser(name+" Admin", adminEmail),
	})
	env.fail(t, "CreateOrganization", err)
	return org, admin
}

func (env *Env) CreateInstructor(t *testing.T, org organization.Organization, name, email string) instructor.Instructor {
	t.Helper()
	ins, err := env.Instructors.Create(context.Background(), org.ID, org.Name, instructor.NewInstructor{NewUser: NewUser(name, email)})
	env.fail(t, "CreateInstructor", err)
	return ins
}

func (env *Env) CreateParent(t *testing.T, org organization.Organization, name, email string) parent.Parent {
	t.Helper()
	prt, err := env.Parents.Create(context.Background(), org.ID, org.Name, parent.NewParent{NewUser: NewUser(name, email)})
	env.fail(t, "CreateParent", err)
	return prt
}

// CreateChild creates a child linked to parents.
func (env *Env) CreateChild(t *testing.T, orgID, firstName, lastName string, parents ...parent.Parent) child.Child {
	t.Helper()
	nc := child.NewChild{FirstName: firstName, LastName: lastName}
	for _, prt := range parents {
		nc.ParentIDs = append(nc.ParentIDs, prt.ID)
	}
	admin := user.Principal{UserID: uuid.NewString(), Role: user.RoleAdmin, OrganizationID: orgID}
	c, err := env.Children.Create(context.Background(), admin, orgID, nc)
	env.fail(t, "CreateChild", err)
	return c
}

// CreateClassLevel creates a class level holding skills, in order.
func (env *Env) CreateClassLevel(t *testing.T, orgID, name string, skills ...string) classlevel.ClassLevel {
	t.Helper()
	ctx := context.Background()
	cl, err := env.ClassLevels.Create(ctx, orgID, classlevel.NewClassLevel{Name: name})
	env.fail(t, "CreateClassLevel", err)
	for _, skill := range skills {
		_, err = env.ClassLevels.CreateSkill(ctx, orgID, cl.ID, classlevel.NewSkill{Name: skill})
		env.fail(t, "CreateSkill", err)
	}
	cl, err = env.ClassLevels.Get(ctx, orgID, cl.ID)
	env.fail(t, "GetClassLevel", err)
	return cl
}

// LessonOption changes the lesson created by CreateLesson.
type LessonOption func(nl *lesson.NewLesson)

func WithInstructor(ins instructor.Instructor) LessonOption {
	return func(nl *lesson.NewLesson) { nl.InstructorID = ins.ID }
}

func WithCapacity(capacity int) LessonOption {
	return func(nl *lesson.NewLesson) { nl.Capacity = capacity }
}

func WithDates(start, end core.Date) LessonOption {
	return func(nl *lesson.NewLesson) {
		nl.StartDate = start
		nl.EndDate = end
	}
}

// CreateLesson creates a lesson running around today, on mondays.
func (env *Env) CreateLesson(t *testing.T, orgID, classLevelID, name string, opts ...LessonOption) lesson.Lesson {
	t.Helper()
	monday := 1
	today := core.Today()
	nl := lesson.NewLesson{
		Name:            name,
		ClassLevelID:    classLevelID,
		DayOfWeek:       &monday,
		StartTime:       "17:30",
		DurationMinutes: 45,
		StartDate:       core.NewDate(today.AddDate(0, -1, 0)),
		EndDate:         core.NewDate(today.AddDate(0, 2, 0)),
	}
	for _, opt := range opts {
		opt(&nl)
	}
	l, err := env.Lessons.Create(context.Background(), orgID, nl)
	env.fail(t, "CreateLesson", err)
	return l
}

// Enroll enrolls the child into the lesson as an org admin.
func (env *Env) Enroll(t *testing.T, orgID, childID, lessonID string) enrollment.Enrollment {
	t.Helper()
	admin := user.Principal{UserID: uuid.NewString(), Role: user.RoleAdmin, OrganizationID: orgID}
	e, err := env.Enrollments.Create(context.Background(), admin, orgID, enrollment.NewEnrollment{ChildID: childID, LessonID: lessonID})
	env.fail(t, "Enroll", err)
	return e
}

// Principal returns the principal of the user with the given id.
func (env *Env) Principal(t *testing.T, userID string) user.Principal {
	t.Helper()
	usr, err := env.Users.GetByID(context.Background(), userID)
	env.fail(t, "GetByID", err)
	return usr.Principal()
}
