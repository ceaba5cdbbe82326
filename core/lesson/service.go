package lesson

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("lesson not found")
	ErrClassLevelLocked  = core.NewConflictError("the class level of a lesson with enrollments cannot change")
	errEndBeforeStart    = errors.New("end date cannot be before start date")
	errUnknownClassLevel = errors.New("unknown class level")
	errUnknownInstructor = errors.New("unknown instructor")
	errBelowEnrolled     = errors.New("capacity cannot be lower than the number of enrolled children")
)

type Repository interface {
	CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
	QueryLessons(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Lesson, error)
	// GetLesson returns the lesson with its enrolled count and instructor user.
	GetLesson(ctx context.Context, orgID, id string) (Lesson, error)
	UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
	ClassLevelExists(ctx context.Context, orgID, classLevelID string) (bool, error)
	InstructorExists(ctx context.Context, orgID, instructorID string) (bool, error)
	DeleteSkillProgressByLesson(ctx context.Context, lessonID string) error
	DeleteEnrollmentsByLesson(ctx context.Context, lessonID string) error
	DeleteLesson(ctx context.Context, id string) error
}

type Service struct {
	repo     Repository
	tx       core.Transactor
	validate *validator.Validate
}

func NewService(repo Repository, tx core.Transactor, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	return &Service{repo: repo, tx: tx, validate: validate}
}

func fieldErr(field string, err error) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

// checkRefs checks the lesson's dates, class level and instructor.
func (svc *Service) checkRefs(ctx context.Context, l Lesson) error {
	if l.EndDate.Before(l.StartDate) {
		return fieldErr("end_date", errEndBeforeStart)
	}
	ok, err := svc.repo.ClassLevelExists(ctx, l.OrganizationID, l.ClassLevelID)
	if err != nil {
		return errors.Wrap(err, "checking class level")
	}
	if !ok {
		return fieldErr("class_level_id", errUnknownClassLevel)
	}
	if l.InstructorID != "" {
		ok, err = svc.repo.InstructorExists(ctx, l.OrganizationID, l.InstructorID)
		if err != nil {
			return errors.Wrap(err, "checking instructor")
		}
		if !ok {
			return fieldErr("instructor_id", errUnknownInstructor)
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, orgID string, nl NewLesson) (Lesson, error) {
	nl.Clean()
	if err := svc.validate.Struct(nl); err != nil {
		return Lesson{}, err
	}
	now := time.Now().UTC()
	l := Lesson{
		OrganizationID:  orgID,
		ClassLevelID:    nl.ClassLevelID,
		InstructorID:    nl.InstructorID,
		Name:            nl.Name,
		Location:        nl.Location,
		DayOfWeek:       *nl.DayOfWeek,
		StartTime:       nl.StartTime,
		DurationMinutes: nl.DurationMinutes,
		Capacity:        nl.Capacity,
		StartDate:       nl.StartDate,
		EndDate:         nl.EndDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := svc.checkRefs(ctx, l); err != nil {
		return Lesson{}, err
	}
	return svc.repo.CreateLesson(ctx, l)
}

// Query lists the lessons of the organization; instructors only get their own.
func (svc *Service) Query(ctx context.Context, p user.Principal, filter QueryFilter, ordering []core.DBOrdering) ([]Lesson, error) {
	if p.IsInstructor() {
		filter.InstructorUserID = p.UserID
	}
	return svc.repo.QueryLessons(ctx, filter, ordering)
}

// Get returns the lesson; instructors only get their own.
func (svc *Service) Get(ctx context.Context, p user.Principal, orgID, id string) (Lesson, error) {
	l, err := svc.repo.GetLesson(ctx, orgID, id)
	if err != nil {
		return Lesson{}, err
	}
	if p.IsInstructor() && l.InstructorUserID != p.UserID {
		return Lesson{}, ErrNotFound
	}
	return l, nil
}

// Lookup returns the lesson without access checks, for other services.
func (svc *Service) Lookup(ctx context.Context, orgID, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, orgID, id)
}

// IsTaughtBy reports whether p is the instructor of the lesson.
func IsTaughtBy(l Lesson, p user.Principal) bool {
	return p.IsInstructor() && l.InstructorUserID != "" && l.InstructorUserID == p.UserID
}

func (svc *Service) Update(ctx context.Context, orgID, id string, ul UpdateLesson) (Lesson, error) {
	if err := svc.validate.Struct(ul); err != nil {
		return Lesson{}, err
	}
	l, err := svc.repo.GetLesson(ctx, orgID, id)
	if err != nil {
		return Lesson{}, err
	}
	if ul.ClassLevelID != nil && *ul.ClassLevelID != l.ClassLevelID && l.EnrolledCount > 0 {
		return Lesson{}, ErrClassLevelLocked
	}
	ul.apply(&l)
	if err = svc.checkRefs(ctx, l); err != nil {
		return Lesson{}, err
	}
	if l.Capacity > 0 && int64(l.Capacity) < l.EnrolledCount {
		return Lesson{}, fieldErr("capacity", errBelowEnrolled)
	}
	l.UpdatedAt = time.Now().UTC()
	updated, err := svc.repo.UpdateLesson(ctx, l)
	if err != nil {
		return Lesson{}, err
	}
	updated.EnrolledCount = l.EnrolledCount
	return updated, nil
}

// Delete removes the lesson's progress, then enrollments, then the lesson, in one transaction.
func (svc *Service) Delete(ctx context.Context, orgID, id string) error {
	l, err := svc.repo.GetLesson(ctx, orgID, id)
	if err != nil {
		return err
	}
	return svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := svc.repo.DeleteSkillProgressByLesson(ctx, l.ID); err != nil {
			return errors.Wrap(err, "deleting skill progress")
		}
		if err := svc.repo.DeleteEnrollmentsByLesson(ctx, l.ID); err != nil {
			return errors.Wrap(err, "deleting enrollments")
		}
		return errors.Wrap(svc.repo.DeleteLesson(ctx, l.ID), "deleting lesson")
	})
}
