package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/lesson"
	"github.com/lanes-app/lanes/storage/database"
)

type lessonRepository struct {
	db *database.DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *database.DB) lesson.Repository {
	return &lessonRepository{db: db}
}

// lessonView is a lesson with its enrolled count and the user of its instructor.
// Its columns are listed flat: gorm skips unexported embedded structs when scanning.
type lessonView struct {
	ID               string
	OrganizationID   string
	ClassLevelID     string
	InstructorID     *string
	Name             string
	Location         string
	DayOfWeek        int
	StartTime        string
	DurationMinutes  int
	Capacity         int
	StartDate        time.Time
	EndDate          time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	EnrolledCount    int64
	InstructorUserID *string
}

func (v lessonView) toLesson() lesson.Lesson {
	return lesson.Lesson{
		ID:               v.ID,
		OrganizationID:   v.OrganizationID,
		ClassLevelID:     v.ClassLevelID,
		InstructorID:     strVal(v.InstructorID),
		Name:             v.Name,
		Location:         v.Location,
		DayOfWeek:        v.DayOfWeek,
		StartTime:        v.StartTime,
		DurationMinutes:  v.DurationMinutes,
		Capacity:         v.Capacity,
		StartDate:        core.NewDate(v.StartDate),
		EndDate:          core.NewDate(v.EndDate),
		EnrolledCount:    v.EnrolledCount,
		CreatedAt:        v.CreatedAt.UTC(),
		UpdatedAt:        v.UpdatedAt.UTC(),
		InstructorUserID: strVal(v.InstructorUserID),
	}
}

func lessonToRow(l lesson.Lesson) lessonRow {
	return lessonRow{
		ID:              l.ID,
		OrganizationID:  l.OrganizationID,
		ClassLevelID:    l.ClassLevelID,
		InstructorID:    strPtr(l.InstructorID),
		Name:            l.Name,
		Location:        l.Location,
		DayOfWeek:       l.DayOfWeek,
		StartTime:       l.StartTime,
		DurationMinutes: l.DurationMinutes,
		Capacity:        l.Capacity,
		StartDate:       l.StartDate.Time,
		EndDate:         l.EndDate.Time,
		CreatedAt:       l.CreatedAt.UTC(),
		UpdatedAt:       l.UpdatedAt.UTC(),
	}
}

func (repo *lessonRepository) lessons(ctx context.Context) *gorm.DB {
	return repo.db.Conn(ctx).
		Table("lessons").
		Select("lessons.*, " +
			"(SELECT COUNT(*) FROM enrollments WHERE enrollments.lesson_id = lessons.id) AS enrolled_count, " +
			"instructors.user_id AS instructor_user_id").
		Joins("LEFT JOIN instructors ON instructors.id = lessons.instructor_id")
}

func (repo *lessonRepository) CreateLesson(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	l.ID = uuid.New().String()
	row := lessonToRow(l)
	if err := repo.db.Conn(ctx).Create(&row).Error; err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return repo.GetLesson(ctx, l.OrganizationID, l.ID)
}

func (repo *lessonRepository) QueryLessons(ctx context.Context, filter lesson.QueryFilter, ordering []core.DBOrdering) ([]lesson.Lesson, error) {
	q := repo.lessons(ctx).Where("lessons.organization_id = ?", filter.OrganizationID)
	if filter.ClassLevelID != "" {
		q = q.Where("lessons.class_level_id = ?", filter.ClassLevelID)
	}
	if filter.InstructorID != "" {
		q = q.Where("lessons.instructor_id = ?", filter.InstructorID)
	}
	if filter.DayOfWeek >= 0 {
		q = q.Where("lessons.day_of_week = ?", filter.DayOfWeek)
	}
	if filter.InstructorUserID != "" {
		q = q.Where("instructors.user_id = ?", filter.InstructorUserID)
	}

	var views []lessonView
	if err := order(q, ordering, "lessons.day_of_week ASC, lessons.start_time ASC").Scan(&views).Error; err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}
	res := make([]lesson.Lesson, 0, len(views))
	for _, v := range views {
		res = append(res, v.toLesson())
	}
	return res, nil
}

func (repo *lessonRepository) GetLesson(ctx context.Context, orgID, id string) (lesson.Lesson, error) {
	var v lessonView
	q := repo.lessons(ctx).Where("lessons.organization_id = ? AND lessons.id = ?", orgID, id)
	if err := scanOne(q, &v, lesson.ErrNotFound, "selecting lesson"); err != nil {
		return lesson.Lesson{}, err
	}
	return v.toLesson(), nil
}

func (repo *lessonRepository) UpdateLesson(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	row := lessonToRow(l)
	err := repo.db.Conn(ctx).Model(&lessonRow{ID: row.ID}).Select("*").Omit("id", "organization_id", "created_at").Updates(&row).Error
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return repo.GetLesson(ctx, l.OrganizationID, l.ID)
}

func (repo *lessonRepository) ClassLevelExists(ctx context.Context, orgID, classLevelID string) (bool, error) {
	var count int64
	err := repo.db.Conn(ctx).Model(&classLevelRow{}).Where("organization_id = ? AND id = ?", orgID, classLevelID).Count(&count).Error
	return count > 0, err
}

func (repo *lessonRepository) InstructorExists(ctx context.Context, orgID, instructorID string) (bool, error) {
	var count int64
	err := repo.db.Conn(ctx).Model(&instructorRow{}).Where("organization_id = ? AND id = ?", orgID, instructorID).Count(&count).Error
	return count > 0, err
}

func (repo *lessonRepository) DeleteSkillProgressByLesson(ctx context.Context, lessonID string) error {
	err := repo.db.Conn(ctx).
		Where("enrollment_id IN (SELECT id FROM enrollments WHERE lesson_id = ?)", lessonID).
		Delete(&skillProgressRow{}).Error
	return errors.Wrap(err, "deleting skill progress")
}

func (repo *lessonRepository) DeleteEnrollmentsByLesson(ctx context.Context, lessonID string) error {
	err := repo.db.Conn(ctx).Where("lesson_id = ?", lessonID).Delete(&enrollmentRow{}).Error
	return errors.Wrap(err, "deleting enrollments")
}

func (repo *lessonRepository) DeleteLesson(ctx context.Context, id string) error {
	err := repo.db.Conn(ctx).Where("id = ?", id).Delete(&lessonRow{}).Error
	return errors.Wrap(err, "deleting lesson")
}
