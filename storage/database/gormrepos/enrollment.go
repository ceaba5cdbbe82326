package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/enrollment"
	"github.com/lanes-app/lanes/core/lesson"
	"github.com/lanes-app/lanes/storage/database"
)

type enrollmentRepository struct {
	db *database.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *database.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

type enrollmentView struct {
	ID                string
	ChildID           string
	LessonID          string
	ChildName         string
	StartDate         time.Time
	EndDate           time.Time
	ReadyForNextLevel bool
	ReadinessNotes    string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (v enrollmentView) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:                v.ID,
		ChildID:           v.ChildID,
		LessonID:          v.LessonID,
		ChildName:         v.ChildName,
		StartDate:         core.NewDate(v.StartDate),
		EndDate:           core.NewDate(v.EndDate),
		ReadyForNextLevel: v.ReadyForNextLevel,
		ReadinessNotes:    v.ReadinessNotes,
		CreatedAt:         v.CreatedAt.UTC(),
		UpdatedAt:         v.UpdatedAt.UTC(),
	}
}

func (repo *enrollmentRepository) enrollments(ctx context.Context) *gorm.DB {
	return repo.db.Conn(ctx).
		Table("enrollments").
		Select("enrollments.*, children.first_name || ' ' || children.last_name AS child_name").
		Joins("JOIN lessons ON lessons.id = enrollments.lesson_id").
		Joins("JOIN children ON children.id = enrollments.child_id")
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	e.ID = uuid.New().String()
	row := enrollmentRow{
		ID:                e.ID,
		ChildID:           e.ChildID,
		LessonID:          e.LessonID,
		StartDate:         e.StartDate.Time,
		EndDate:           e.EndDate.Time,
		ReadyForNextLevel: e.ReadyForNextLevel,
		ReadinessNotes:    e.ReadinessNotes,
		CreatedAt:         e.CreatedAt.UTC(),
		UpdatedAt:         e.UpdatedAt.UTC(),
	}
	if err := repo.db.Conn(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	q := repo.enrollments(ctx).Where("lessons.organization_id = ?", filter.OrganizationID)
	if filter.LessonID != "" {
		q = q.Where("enrollments.lesson_id = ?", filter.LessonID)
	}
	if filter.ChildID != "" {
		q = q.Where("enrollments.child_id = ?", filter.ChildID)
	}
	if filter.InstructorUserID != "" {
		q = q.Where("lessons.instructor_id IN (SELECT id FROM instructors WHERE user_id = ?)", filter.InstructorUserID)
	}
	if filter.ParentUserID != "" {
		q = q.Where("enrollments.child_id IN (SELECT pc.child_id FROM parent_children pc "+
			"JOIN parents p ON p.id = pc.parent_id WHERE p.user_id = ?)", filter.ParentUserID)
	}

	var views []enrollmentView
	err := q.Order("enrollments.start_date DESC, children.last_name ASC, children.first_name ASC").Scan(&views).Error
	if err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	res := make([]enrollment.Enrollment, 0, len(views))
	for _, v := range views {
		res = append(res, v.toEnrollment())
	}
	return res, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, orgID, id string) (enrollment.Enrollment, error) {
	var v enrollmentView
	q := repo.enrollments(ctx).Where("lessons.organization_id = ? AND enrollments.id = ?", orgID, id)
	if err := scanOne(q, &v, enrollment.ErrNotFound, "selecting enrollment"); err != nil {
		return enrollment.Enrollment{}, err
	}
	return v.toEnrollment(), nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	err := repo.db.Conn(ctx).Model(&enrollmentRow{ID: e.ID}).Updates(map[string]interface{}{
		"start_date":           e.StartDate.Time,
		"end_date":             e.EndDate.Time,
		"ready_for_next_level": e.ReadyForNextLevel,
		"readiness_notes":      e.ReadinessNotes,
		"updated_at":           e.UpdatedAt.UTC(),
	}).Error
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	return e, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, id string) error {
	err := repo.db.Conn(ctx).Where("id = ?", id).Delete(&enrollmentRow{}).Error
	return errors.Wrap(err, "deleting enrollment")
}

func (repo *enrollmentRepository) LockLesson(ctx context.Context, lessonID string) error {
	var row lessonRow
	err := repo.db.Conn(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", lessonID).
		Take(&row).Error
	return trapNotFound(err, lesson.ErrNotFound, "locking lesson")
}

func (repo *enrollmentRepository) CountEnrollments(ctx context.Context, lessonID string) (int64, error) {
	var count int64
	err := repo.db.Conn(ctx).Model(&enrollmentRow{}).Where("lesson_id = ?", lessonID).Count(&count).Error
	return count, errors.Wrap(err, "counting enrollments")
}

func (repo *enrollmentRepository) IsEnrolled(ctx context.Context, childID, lessonID string) (bool, error) {
	var count int64
	err := repo.db.Conn(ctx).Model(&enrollmentRow{}).Where("child_id = ? AND lesson_id = ?", childID, lessonID).Count(&count).Error
	return count > 0, errors.Wrap(err, "checking enrollment")
}

func (repo *enrollmentRepository) SkillIDs(ctx context.Context, classLevelID string) ([]string, error) {
	var ids []string
	err := repo.db.Conn(ctx).Model(&skillRow{}).
		Where("class_level_id = ?", classLevelID).
		Order("position ASC, name ASC").
		Pluck("id", &ids).Error
	return ids, errors.Wrap(err, "selecting skills")
}

func (repo *enrollmentRepository) CreateSkillProgress(ctx context.Context, progress ...enrollment.SkillProgress) error {
	if len(progress) == 0 {
		return nil
	}
	rows := make([]skillProgressRow, 0, len(progress))
	for _, sp := range progress {
		rows = append(rows, skillProgressRow{
			ID:           uuid.New().String(),
			EnrollmentID: sp.EnrollmentID,
			SkillID:      sp.SkillID,
			Status:       sp.Status,
			Notes:        sp.Notes,
			UpdatedBy:    strPtr(sp.UpdatedBy),
			UpdatedAt:    sp.UpdatedAt.UTC(),
		})
	}
	return errors.Wrap(repo.db.Conn(ctx).CreateInBatches(&rows, 500).Error, "inserting skill progress")
}

type skillProgressView struct {
	ID           string
	EnrollmentID string
	SkillID      string
	SkillName    string
	Status       string
	Notes        string
	UpdatedBy    *string
	UpdatedAt    time.Time
}

func (v skillProgressView) toSkillProgress() enrollment.SkillProgress {
	return enrollment.SkillProgress{
		ID:           v.ID,
		EnrollmentID: v.EnrollmentID,
		SkillID:      v.SkillID,
		SkillName:    v.SkillName,
		Status:       v.Status,
		Notes:        v.Notes,
		UpdatedBy:    strVal(v.UpdatedBy),
		UpdatedAt:    v.UpdatedAt.UTC(),
	}
}

func (repo *enrollmentRepository) progress(ctx context.Context, enrollmentID string) *gorm.DB {
	return repo.db.Conn(ctx).
		Table("skill_progress").
		Select("skill_progress.*, skills.name AS skill_name").
		Joins("JOIN skills ON skills.id = skill_progress.skill_id").
		Where("skill_progress.enrollment_id = ?", enrollmentID)
}

func (repo *enrollmentRepository) QuerySkillProgress(ctx context.Context, enrollmentID string) ([]enrollment.SkillProgress, error) {
	var views []skillProgressView
	err := repo.progress(ctx, enrollmentID).Order("skills.position ASC, skills.name ASC").Scan(&views).Error
	if err != nil {
		return nil, errors.Wrap(err, "selecting skill progress")
	}
	res := make([]enrollment.SkillProgress, 0, len(views))
	for _, v := range views {
		res = append(res, v.toSkillProgress())
	}
	return res, nil
}

func (repo *enrollmentRepository) GetSkillProgress(ctx context.Context, enrollmentID, skillID string) (enrollment.SkillProgress, error) {
	var v skillProgressView
	q := repo.progress(ctx, enrollmentID).Where("skill_progress.skill_id = ?", skillID)
	if err := scanOne(q, &v, enrollment.ErrProgressNotFound, "selecting skill progress"); err != nil {
		return enrollment.SkillProgress{}, err
	}
	return v.toSkillProgress(), nil
}

func (repo *enrollmentRepository) UpdateSkillProgress(ctx context.Context, sp enrollment.SkillProgress) (enrollment.SkillProgress, error) {
	err := repo.db.Conn(ctx).Model(&skillProgressRow{ID: sp.ID}).Updates(map[string]interface{}{
		"status":     sp.Status,
		"notes":      sp.Notes,
		"updated_by": strPtr(sp.UpdatedBy),
		"updated_at": sp.UpdatedAt.UTC(),
	}).Error
	if err != nil {
		return enrollment.SkillProgress{}, errors.Wrap(err, "updating skill progress")
	}
	return sp, nil
}

func (repo *enrollmentRepository) DeleteSkillProgress(ctx context.Context, enrollmentID string) error {
	err := repo.db.Conn(ctx).Where("enrollment_id = ?", enrollmentID).Delete(&skillProgressRow{}).Error
	return errors.Wrap(err, "deleting skill progress")
}

