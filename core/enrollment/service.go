package enrollment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/child"
	"github.com/lanes-app/lanes/core/lesson"
	"github.com/lanes-app/lanes/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("enrollment not found")
	ErrProgressNotFound = core.NewNotFoundError("skill progress not found")
	ErrAlreadyEnrolled  = core.NewConflictError("child is already enrolled in this lesson")
	ErrLessonFull       = core.NewConflictError("lesson is full")
	errEndBeforeStart   = errors.New("end date cannot be before start date")
)

type Repository interface {
	CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
	QueryEnrollments(ctx context.Context, filter QueryFilter) ([]Enrollment, error)
	// GetEnrollment returns the enrollment if its lesson belongs to the organization.
	GetEnrollment(ctx context.Context, orgID, id string) (Enrollment, error)
	UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
	DeleteEnrollment(ctx context.Context, id string) error

	// LockLesson holds the lesson row until the end of the transaction.
	LockLesson(ctx context.Context, lessonID string) error
	CountEnrollments(ctx context.Context, lessonID string) (int64, error)
	IsEnrolled(ctx context.Context, childID, lessonID string) (bool, error)

	// SkillIDs returns the ids of the class level's skills ordered by position.
	SkillIDs(ctx context.Context, classLevelID string) ([]string, error)
	CreateSkillProgress(ctx context.Context, rows ...SkillProgress) error
	// QuerySkillProgress returns the progress of the enrollment ordered by skill position.
	QuerySkillProgress(ctx context.Context, enrollmentID string) ([]SkillProgress, error)
	GetSkillProgress(ctx context.Context, enrollmentID, skillID string) (SkillProgress, error)
	UpdateSkillProgress(ctx context.Context, sp SkillProgress) (SkillProgress, error)
	DeleteSkillProgress(ctx context.Context, enrollmentID string) error
}

// Notifier delivers notifications to users. Delivery failures are its own concern.
type Notifier interface {
	NotifyUsers(ctx context.Context, userIDs []string, title, body string, data map[string]string)
}

type Service struct {
	repo     Repository
	lessons  *lesson.Service
	children *child.Service
	notifier Notifier
	tx       core.Transactor
	validate *validator.Validate
	logger   core.Logger
}

func NewService(
	repo Repository,
	lessons *lesson.Service,
	children *child.Service,
	notifier Notifier,
	tx core.Transactor,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(lessons, "lessons"),
		vala.IsNotNil(children, "children"),
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		lessons:  lessons,
		children: children,
		notifier: notifier,
		tx:       tx,
		validate: validate,
		logger:   logger,
	}
}

func checkDates(start, end core.Date) error {
	if end.Before(start) {
		return core.NewValidationError(
			errEndBeforeStart,
			core.FieldError{Field: "end_date", Error: errEndBeforeStart.Error()},
		)
	}
	return nil
}

// datesOf fills the missing dates from the lesson's.
func datesOf(l lesson.Lesson, start, end core.Date) (core.Date, core.Date) {
	if start.IsZero() {
		start = l.StartDate
	}
	if end.IsZero() {
		end = l.EndDate
	}
	return start, end
}

func (svc *Service) Query(ctx context.Context, p user.Principal, filter QueryFilter) ([]Enrollment, error) {
	switch {
	case p.IsOrgAdmin(filter.OrganizationID):
	case p.IsInstructor():
		filter.InstructorUserID = p.UserID
	case p.IsParent():
		filter.ParentUserID = p.UserID
	default:
		return nil, core.ErrForbidden
	}
	return svc.repo.QueryEnrollments(ctx, filter)
}

// Create enrolls a child into a lesson, seeding NOT_STARTED progress for every skill of the lesson's level.
// Admins may enroll any child of the organization, parents only their own.
func (svc *Service) Create(ctx context.Context, p user.Principal, orgID string, ne NewEnrollment) (Enrollment, error) {
	if err := svc.validate.Struct(ne); err != nil {
		return Enrollment{}, err
	}
	if !p.IsOrgAdmin(orgID) && !p.IsParent() {
		return Enrollment{}, core.ErrForbidden
	}
	c, err := svc.children.GetForUpdate(ctx, p, orgID, ne.ChildID)
	if err != nil {
		return Enrollment{}, err
	}
	l, err := svc.lessons.Lookup(ctx, orgID, ne.LessonID)
	if err != nil {
		return Enrollment{}, err
	}

	start, end := datesOf(l, ne.StartDate, ne.EndDate)
	if err = checkDates(start, end); err != nil {
		return Enrollment{}, err
	}

	var e Enrollment
	err = svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		e, err = svc.enroll(ctx, c.ID, l, start, end)
		if err != nil {
			return err
		}
		return svc.seedProgress(ctx, e, l.ClassLevelID, nil)
	})
	if err != nil {
		return Enrollment{}, err
	}
	e.ChildName = c.FullName()
	return svc.withProgress(ctx, e)
}

// enroll creates the enrollment once the lesson is locked, checking duplicates and capacity.
// It must run inside a transaction.
func (svc *Service) enroll(ctx context.Context, childID string, l lesson.Lesson, start, end core.Date) (Enrollment, error) {
	if err := svc.repo.LockLesson(ctx, l.ID); err != nil {
		return Enrollment{}, errors.Wrap(err, "locking lesson")
	}
	enrolled, err := svc.repo.IsEnrolled(ctx, childID, l.ID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking enrollment")
	}
	if enrolled {
		return Enrollment{}, ErrAlreadyEnrolled
	}
	if l.EnrolledCount, err = svc.repo.CountEnrollments(ctx, l.ID); err != nil {
		return Enrollment{}, errors.Wrap(err, "counting enrollments")
	}
	if l.IsFull() {
		return Enrollment{}, ErrLessonFull
	}

	now := time.Now().UTC()
	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		ChildID:   childID,
		LessonID:  l.ID,
		StartDate: start,
		EndDate:   end,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return e, errors.Wrap(err, "creating enrollment")
}

// seedProgress creates one progress row per skill of the class level.
// Statuses and notes found in prior, keyed by skill id, are carried over.
func (svc *Service) seedProgress(ctx context.Context, e Enrollment, classLevelID string, prior map[string]SkillProgress) error {
	skillIDs, err := svc.repo.SkillIDs(ctx, classLevelID)
	if err != nil {
		return errors.Wrap(err, "loading skills")
	}
	if len(skillIDs) == 0 {
		return nil
	}
	rows := make([]SkillProgress, 0, len(skillIDs))
	for _, skillID := range skillIDs {
		sp := SkillProgress{
			EnrollmentID: e.ID,
			SkillID:      skillID,
			Status:       StatusNotStarted,
			UpdatedAt:    e.CreatedAt,
		}
		if old, ok := prior[skillID]; ok {
			sp.Status = old.Status
			sp.Notes = old.Notes
			sp.UpdatedBy = old.UpdatedBy
		}
		rows = append(rows, sp)
	}
	return errors.Wrap(svc.repo.CreateSkillProgress(ctx, rows...), "seeding skill progress")
}

func (svc *Service) withProgress(ctx context.Context, e Enrollment) (Enrollment, error) {
	var err error
	if e.Progress, err = svc.repo.QuerySkillProgress(ctx, e.ID); err != nil {
		return Enrollment{}, errors.Wrap(err, "loading skill progress")
	}
	return e, nil
}

// access returns the enrollment and its lesson if p may see it:
// admins, the lesson's instructor and the child's parents.
func (svc *Service) access(ctx context.Context, p user.Principal, orgID, id string) (Enrollment, lesson.Lesson, error) {
	e, err := svc.repo.GetEnrollment(ctx, orgID, id)
	if err != nil {
		return Enrollment{}, lesson.Lesson{}, err
	}
	l, err := svc.lessons.Lookup(ctx, orgID, e.LessonID)
	if err != nil {
		return Enrollment{}, lesson.Lesson{}, err
	}
	switch {
	case p.IsOrgAdmin(orgID), lesson.IsTaughtBy(l, p):
		return e, l, nil
	case p.IsParent():
		if _, err = svc.children.GetForUpdate(ctx, p, orgID, e.ChildID); err != nil {
			if core.IsNotFound(err) {
				return Enrollment{}, lesson.Lesson{}, ErrNotFound
			}
			return Enrollment{}, lesson.Lesson{}, err
		}
		return e, l, nil
	}
	return Enrollment{}, lesson.Lesson{}, ErrNotFound
}

// teaching returns the enrollment and its lesson if p records progress for it: admins and the lesson's instructor.
func (svc *Service) teaching(ctx context.Context, p user.Principal, orgID, id string) (Enrollment, lesson.Lesson, error) {
	e, l, err := svc.access(ctx, p, orgID, id)
	if err != nil {
		return Enrollment{}, lesson.Lesson{}, err
	}
	if !p.IsOrgAdmin(orgID) && !lesson.IsTaughtBy(l, p) {
		return Enrollment{}, lesson.Lesson{}, core.ErrForbidden
	}
	return e, l, nil
}

// Get returns the enrollment with its progress.
func (svc *Service) Get(ctx context.Context, p user.Principal, orgID, id string) (Enrollment, error) {
	e, _, err := svc.access(ctx, p, orgID, id)
	if err != nil {
		return Enrollment{}, err
	}
	return svc.withProgress(ctx, e)
}

func (svc *Service) Update(ctx context.Context, orgID, id string, ue UpdateEnrollment) (Enrollment, error) {
	e, err := svc.repo.GetEnrollment(ctx, orgID, id)
	if err != nil {
		return Enrollment{}, err
	}
	if ue.StartDate != nil && !ue.StartDate.IsZero() {
		e.StartDate = *ue.StartDate
	}
	if ue.EndDate != nil && !ue.EndDate.IsZero() {
		e.EndDate = *ue.EndDate
	}
	if err = checkDates(e.StartDate, e.EndDate); err != nil {
		return Enrollment{}, err
	}
	e.UpdatedAt = time.Now().UTC()
	if e, err = svc.repo.UpdateEnrollment(ctx, e); err != nil {
		return Enrollment{}, err
	}
	return svc.withProgress(ctx, e)
}

// Delete removes the enrollment and its progress, in one transaction. Admins and the child's parents may delete.
func (svc *Service) Delete(ctx context.Context, p user.Principal, orgID, id string) error {
	e, _, err := svc.access(ctx, p, orgID, id)
	if err != nil {
		return err
	}
	if !p.IsOrgAdmin(orgID) && !p.IsParent() {
		return core.ErrForbidden
	}
	return svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := svc.repo.DeleteSkillProgress(ctx, e.ID); err != nil {
			return errors.Wrap(err, "deleting skill progress")
		}
		return errors.Wrap(svc.repo.DeleteEnrollment(ctx, e.ID), "deleting enrollment")
	})
}

// Next enrolls the child of a prior enrollment into another lesson. When both lessons share the class level
// the progress is carried over, otherwise NOT_STARTED progress is seeded for the new level.
func (svc *Service) Next(ctx context.Context, p user.Principal, orgID, id string, ne NextEnrollment) (Enrollment, error) {
	if err := svc.validate.Struct(ne); err != nil {
		return Enrollment{}, err
	}
	prior, priorLesson, err := svc.teaching(ctx, p, orgID, id)
	if err != nil {
		return Enrollment{}, err
	}
	l, err := svc.lessons.Lookup(ctx, orgID, ne.LessonID)
	if err != nil {
		return Enrollment{}, err
	}
	start, end := datesOf(l, ne.StartDate, ne.EndDate)
	if err = checkDates(start, end); err != nil {
		return Enrollment{}, err
	}

	var carried map[string]SkillProgress
	if l.ClassLevelID == priorLesson.ClassLevelID {
		progress, err := svc.repo.QuerySkillProgress(ctx, prior.ID)
		if err != nil {
			return Enrollment{}, errors.Wrap(err, "loading prior progress")
		}
		carried = make(map[string]SkillProgress, len(progress))
		for _, sp := range progress {
			carried[sp.SkillID] = sp
		}
	}

	var e Enrollment
	err = svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		e, err = svc.enroll(ctx, prior.ChildID, l, start, end)
		if err != nil {
			return err
		}
		return svc.seedProgress(ctx, e, l.ClassLevelID, carried)
	})
	if err != nil {
		return Enrollment{}, err
	}
	e.ChildName = prior.ChildName
	return svc.withProgress(ctx, e)
}

func (svc *Service) Progress(ctx context.Context, p user.Principal, orgID, id string) ([]SkillProgress, error) {
	e, _, err := svc.access(ctx, p, orgID, id)
	if err != nil {
		return nil, err
	}
	return svc.repo.QuerySkillProgress(ctx, e.ID)
}

// UpdateProgress sets the status of one skill and notifies the child's parents.
func (svc *Service) UpdateProgress(ctx context.Context, p user.Principal, orgID, id, skillID string, up UpdateProgress) (SkillProgress, error) {
	if err := svc.validate.Struct(up); err != nil {
		return SkillProgress{}, err
	}
	e, _, err := svc.teaching(ctx, p, orgID, id)
	if err != nil {
		return SkillProgress{}, err
	}
	sp, err := svc.repo.GetSkillProgress(ctx, e.ID, skillID)
	if err != nil {
		return SkillProgress{}, err
	}
	sp.Status = up.Status
	if up.Notes != nil {
		sp.Notes = core.CleanText(*up.Notes)
	}
	sp.UpdatedBy = p.UserID
	sp.UpdatedAt = time.Now().UTC()
	if sp, err = svc.repo.UpdateSkillProgress(ctx, sp); err != nil {
		return SkillProgress{}, err
	}

	svc.notifyParents(ctx, e, "Progress update",
		fmt.Sprintf("%s: %s is now %s", e.ChildName, sp.SkillName, statusLabel(sp.Status)),
		map[string]string{"type": "progress", "enrollment_id": e.ID, "skill_id": sp.SkillID, "status": sp.Status},
	)
	return sp, nil
}

// UpdateReadiness flags whether the child is ready for the next level and notifies the child's parents.
func (svc *Service) UpdateReadiness(ctx context.Context, p user.Principal, orgID, id string, ur UpdateReadiness) (Enrollment, error) {
	if err := svc.validate.Struct(ur); err != nil {
		return Enrollment{}, err
	}
	e, _, err := svc.teaching(ctx, p, orgID, id)
	if err != nil {
		return Enrollment{}, err
	}
	e.ReadyForNextLevel = *ur.ReadyForNextLevel
	e.ReadinessNotes = core.CleanText(ur.Notes)
	e.UpdatedAt = time.Now().UTC()
	if e, err = svc.repo.UpdateEnrollment(ctx, e); err != nil {
		return Enrollment{}, err
	}

	body := fmt.Sprintf("%s is not yet ready for the next level", e.ChildName)
	if e.ReadyForNextLevel {
		body = fmt.Sprintf("%s is ready for the next level!", e.ChildName)
	}
	svc.notifyParents(ctx, e, "Readiness update", body, map[string]string{
		"type":                 "readiness",
		"enrollment_id":        e.ID,
		"ready_for_next_level": fmt.Sprint(e.ReadyForNextLevel),
	})
	return svc.withProgress(ctx, e)
}

func (svc *Service) notifyParents(ctx context.Context, e Enrollment, title, body string, data map[string]string) {
	userIDs, err := svc.children.ParentUserIDs(ctx, e.ChildID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("loading parents of child %s: %v", e.ChildID, err), err)
		return
	}
	svc.notifier.NotifyUsers(ctx, userIDs, title, body, data)
}

func statusLabel(status string) string {
	return strings.ToLower(strings.ReplaceAll(status, "_", " "))
}
