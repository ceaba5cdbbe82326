package report

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/classlevel"
	"github.com/lanes-app/lanes/core/lesson"
	"github.com/lanes-app/lanes/core/user"
)

type Repository interface {
	// ProgressByClassLevel returns every class level of the organization ordered by position,
	// counting the enrollments active on day.
	ProgressByClassLevel(ctx context.Context, orgID string, day time.Time) ([]ClassLevelProgress, error)
	// LessonRoster returns the progress lines of the lesson's enrollments ordered by child name.
	LessonRoster(ctx context.Context, lessonID string) ([]RosterLine, error)
}

type Service struct {
	repo    Repository
	lessons *lesson.Service
	levels  *classlevel.Service
}

func NewService(repo Repository, lessons *lesson.Service, levels *classlevel.Service) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(lessons, "lessons"),
		vala.IsNotNil(levels, "levels"),
	).CheckAndPanic()

	return &Service{repo: repo, lessons: lessons, levels: levels}
}

func (svc *Service) ProgressByClassLevel(ctx context.Context, orgID string) ([]ClassLevelProgress, error) {
	return svc.repo.ProgressByClassLevel(ctx, orgID, core.Today().Time)
}

// Roster builds the roster of a lesson. Only admins and the lesson's instructor may get it.
func (svc *Service) Roster(ctx context.Context, p user.Principal, orgID, lessonID string) (Roster, error) {
	l, err := svc.lessons.Lookup(ctx, orgID, lessonID)
	if err != nil {
		return Roster{}, err
	}
	if !p.IsOrgAdmin(orgID) && !lesson.IsTaughtBy(l, p) {
		return Roster{}, core.ErrForbidden
	}

	skills, err := svc.levels.Skills(ctx, l.ClassLevelID)
	if err != nil {
		return Roster{}, errors.Wrap(err, "loading skills")
	}
	lines, err := svc.repo.LessonRoster(ctx, l.ID)
	if err != nil {
		return Roster{}, errors.Wrap(err, "loading roster")
	}

	r := Roster{
		LessonName: l.Name,
		StartDate:  l.StartDate,
		EndDate:    l.EndDate,
		Skills:     make([]RosterSkill, 0, len(skills)),
		Rows:       make([]RosterRow, 0),
	}
	for _, sk := range skills {
		r.Skills = append(r.Skills, RosterSkill{ID: sk.ID, Name: sk.Name})
	}
	rowIdx := make(map[string]int)
	for _, line := range lines {
		i, ok := rowIdx[line.EnrollmentID]
		if !ok {
			i = len(r.Rows)
			rowIdx[line.EnrollmentID] = i
			r.Rows = append(r.Rows, RosterRow{
				ChildName:         line.FirstName + " " + line.LastName,
				ReadyForNextLevel: line.ReadyForNextLevel,
				Statuses:          make(map[string]string),
			})
		}
		if line.SkillID != "" {
			r.Rows[i].Statuses[line.SkillID] = line.Status
		}
	}
	return r, nil
}
