package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/classlevel"
	"github.com/lanes-app/lanes/core/enrollment"
	"github.com/lanes-app/lanes/storage/database"
)

type classLevelRepository struct {
	db *database.DB
}

var _ classlevel.Repository = (*classLevelRepository)(nil) // interface compliance check

func NewClassLevelRepository(db *database.DB) classlevel.Repository {
	return &classLevelRepository{db: db}
}

func classLevelFromRow(row classLevelRow) classlevel.ClassLevel {
	return classlevel.ClassLevel{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Name:           row.Name,
		Description:    row.Description,
		Position:       row.Position,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func skillFromRow(row skillRow) classlevel.Skill {
	return classlevel.Skill{
		ID:           row.ID,
		ClassLevelID: row.ClassLevelID,
		Name:         row.Name,
		Description:  row.Description,
		Position:     row.Position,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo *classLevelRepository) CreateClassLevel(ctx context.Context, cl classlevel.ClassLevel) (classlevel.ClassLevel, error) {
	row := classLevelRow{
		ID:             uuid.New().String(),
		OrganizationID: cl.OrganizationID,
		Name:           cl.Name,
		Description:    cl.Description,
		Position:       cl.Position,
		CreatedAt:      cl.CreatedAt.UTC(),
		UpdatedAt:      cl.UpdatedAt.UTC(),
	}
	if err := repo.db.Conn(ctx).Create(&row).Error; err != nil {
		return classlevel.ClassLevel{}, errors.Wrap(err, "inserting class level")
	}
	return classLevelFromRow(row), nil
}

func (repo *classLevelRepository) QueryClassLevels(ctx context.Context, orgID string) ([]classlevel.ClassLevel, error) {
	var rows []classLevelRow
	err := repo.db.Conn(ctx).Where("organization_id = ?", orgID).Order("position ASC, name ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "selecting class levels")
	}
	levels := make([]classlevel.ClassLevel, 0, len(rows))
	for _, row := range rows {
		levels = append(levels, classLevelFromRow(row))
	}
	return levels, nil
}

func (repo *classLevelRepository) GetClassLevel(ctx context.Context, orgID, id string) (classlevel.ClassLevel, error) {
	var row classLevelRow
	if err := repo.db.Conn(ctx).Where("organization_id = ? AND id = ?", orgID, id).Take(&row).Error; err != nil {
		return classlevel.ClassLevel{}, trapNotFound(err, classlevel.ErrNotFound, "selecting class level")
	}
	return classLevelFromRow(row), nil
}

func (repo *classLevelRepository) UpdateClassLevel(ctx context.Context, cl classlevel.ClassLevel) (classlevel.ClassLevel, error) {
	err := repo.db.Conn(ctx).Model(&classLevelRow{ID: cl.ID}).Updates(map[string]interface{}{
		"name":        cl.Name,
		"description": cl.Description,
		"position":    cl.Position,
		"updated_at":  cl.UpdatedAt.UTC(),
	}).Error
	if err != nil {
		return classlevel.ClassLevel{}, errors.Wrap(err, "updating class level")
	}
	return cl, nil
}

func (repo *classLevelRepository) NextClassLevelPosition(ctx context.Context, orgID string) (int, error) {
	var pos int
	err := repo.db.Conn(ctx).Model(&classLevelRow{}).
		Where("organization_id = ?", orgID).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&pos).Error
	return pos, errors.Wrap(err, "selecting next class level position")
}

func (repo *classLevelRepository) CountLessons(ctx context.Context, classLevelID string) (int64, error) {
	var count int64
	err := repo.db.Conn(ctx).Model(&lessonRow{}).Where("class_level_id = ?", classLevelID).Count(&count).Error
	return count, errors.Wrap(err, "counting lessons")
}

func (repo *classLevelRepository) DeleteSkillProgressByClassLevel(ctx context.Context, classLevelID string) error {
	err := repo.db.Conn(ctx).
		Where("skill_id IN (SELECT id FROM skills WHERE class_level_id = ?)", classLevelID).
		Delete(&skillProgressRow{}).Error
	return errors.Wrap(err, "deleting skill progress")
}

func (repo *classLevelRepository) DeleteSkillsByClassLevel(ctx context.Context, classLevelID string) error {
	err := repo.db.Conn(ctx).Where("class_level_id = ?", classLevelID).Delete(&skillRow{}).Error
	return errors.Wrap(err, "deleting skills")
}

func (repo *classLevelRepository) DeleteClassLevel(ctx context.Context, id string) error {
	err := repo.db.Conn(ctx).Where("id = ?", id).Delete(&classLevelRow{}).Error
	return errors.Wrap(err, "deleting class level")
}

func (repo *classLevelRepository) CreateSkill(ctx context.Context, sk classlevel.Skill) (classlevel.Skill, error) {
	row := skillRow{
		ID:           uuid.New().String(),
		ClassLevelID: sk.ClassLevelID,
		Name:         sk.Name,
		Description:  sk.Description,
		Position:     sk.Position,
		CreatedAt:    sk.CreatedAt.UTC(),
		UpdatedAt:    sk.UpdatedAt.UTC(),
	}
	if err := repo.db.Conn(ctx).Create(&row).Error; err != nil {
		return classlevel.Skill{}, errors.Wrap(err, "inserting skill")
	}
	return skillFromRow(row), nil
}

func (repo *classLevelRepository) QuerySkills(ctx context.Context, classLevelID string) ([]classlevel.Skill, error) {
	var rows []skillRow
	err := repo.db.Conn(ctx).Where("class_level_id = ?", classLevelID).Order("position ASC, name ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "selecting skills")
	}
	skills := make([]classlevel.Skill, 0, len(rows))
	for _, row := range rows {
		skills = append(skills, skillFromRow(row))
	}
	return skills, nil
}

func (repo *classLevelRepository) GetSkill(ctx context.Context, classLevelID, id string) (classlevel.Skill, error) {
	var row skillRow
	if err := repo.db.Conn(ctx).Where("class_level_id = ? AND id = ?", classLevelID, id).Take(&row).Error; err != nil {
		return classlevel.Skill{}, trapNotFound(err, classlevel.ErrSkillNotFound, "selecting skill")
	}
	return skillFromRow(row), nil
}

func (repo *classLevelRepository) UpdateSkill(ctx context.Context, sk classlevel.Skill) (classlevel.Skill, error) {
	err := repo.db.Conn(ctx).Model(&skillRow{ID: sk.ID}).Updates(map[string]interface{}{
		"name":        sk.Name,
		"description": sk.Description,
		"position":    sk.Position,
		"updated_at":  sk.UpdatedAt.UTC(),
	}).Error
	if err != nil {
		return classlevel.Skill{}, errors.Wrap(err, "updating skill")
	}
	return sk, nil
}

func (repo *classLevelRepository) NextSkillPosition(ctx context.Context, classLevelID string) (int, error) {
	var pos int
	err := repo.db.Conn(ctx).Model(&skillRow{}).
		Where("class_level_id = ?", classLevelID).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&pos).Error
	return pos, errors.Wrap(err, "selecting next skill position")
}

func (repo *classLevelRepository) SetSkillPositions(ctx context.Context, classLevelID string, skillIDs []string) error {
	now := time.Now().UTC()
	for pos, id := range skillIDs {
		err := repo.db.Conn(ctx).Model(&skillRow{}).
			Where("class_level_id = ? AND id = ?", classLevelID, id).
			Updates(map[string]interface{}{"position": pos, "updated_at": now}).Error
		if err != nil {
			return errors.Wrapf(err, "setting position of skill %s", id)
		}
	}
	return nil
}

func (repo *classLevelRepository) SeedSkillProgress(ctx context.Context, classLevelID, skillID string, at time.Time) (int64, error) {
	var enrollmentIDs []string
	err := repo.db.Conn(ctx).Model(&enrollmentRow{}).
		Where("lesson_id IN (SELECT id FROM lessons WHERE class_level_id = ?)", classLevelID).
		Where("id NOT IN (SELECT enrollment_id FROM skill_progress WHERE skill_id = ?)", skillID).
		Pluck("id", &enrollmentIDs).Error
	if err != nil {
		return 0, errors.Wrap(err, "selecting enrollments")
	}
	if len(enrollmentIDs) == 0 {
		return 0, nil
	}
	rows := make([]skillProgressRow, 0, len(enrollmentIDs))
	for _, id := range enrollmentIDs {
		rows = append(rows, skillProgressRow{
			ID:           uuid.New().String(),
			EnrollmentID: id,
			SkillID:      skillID,
			Status:       enrollment.StatusNotStarted,
			UpdatedAt:    at.UTC(),
		})
	}
	res := repo.db.Conn(ctx).CreateInBatches(&rows, 500)
	return res.RowsAffected, errors.Wrap(res.Error, "inserting skill progress")
}

func (repo *classLevelRepository) DeleteSkillProgressBySkill(ctx context.Context, skillID string) error {
	err := repo.db.Conn(ctx).Where("skill_id = ?", skillID).Delete(&skillProgressRow{}).Error
	return errors.Wrap(err, "deleting skill progress")
}

func (repo *classLevelRepository) DeleteSkill(ctx context.Context, id string) error {
	err := repo.db.Conn(ctx).Where("id = ?", id).Delete(&skillRow{}).Error
	return errors.Wrap(err, "deleting skill")
}
