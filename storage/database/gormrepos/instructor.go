package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lanes-app/lanes/core/instructor"
	"github.com/lanes-app/lanes/storage/database"
)

type instructorRepository struct {
	db *database.DB
}

var _ instructor.Repository = (*instructorRepository)(nil) // interface compliance check

func NewInstructorRepository(db *database.DB) instructor.Repository {
	return &instructorRepository{db: db}
}

// profileView is an instructor or a parent joined with its user.
type profileView struct {
	ID             string
	OrganizationID string
	UserID         string
	Name           string
	Email          string
	IsActive       bool
	Phone          string
	Bio            string
	Address        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (v profileView) toInstructor() instructor.Instructor {
	return instructor.Instructor{
		ID:             v.ID,
		OrganizationID: v.OrganizationID,
		UserID:         v.UserID,
		Name:           v.Name,
		Email:          v.Email,
		IsActive:       v.IsActive,
		Phone:          v.Phone,
		Bio:            v.Bio,
		CreatedAt:      v.CreatedAt.UTC(),
		UpdatedAt:      v.UpdatedAt.UTC(),
	}
}

func (repo *instructorRepository) instructors(ctx context.Context) *gorm.DB {
	return repo.db.Conn(ctx).
		Table("instructors").
		Select("instructors.id, instructors.organization_id, instructors.user_id, users.name, users.email, " +
			"users.is_active, instructors.phone, instructors.bio, instructors.created_at, instructors.updated_at").
		Joins("JOIN users ON users.id = instructors.user_id")
}

func (repo *instructorRepository) CreateInstructor(ctx context.Context, ins instructor.Instructor) (instructor.Instructor, error) {
	ins.ID = uuid.New().String()
	row := instructorRow{
		ID:             ins.ID,
		UserID:         ins.UserID,
		OrganizationID: ins.OrganizationID,
		Phone:          ins.Phone,
		Bio:            ins.Bio,
		CreatedAt:      ins.CreatedAt.UTC(),
		UpdatedAt:      ins.UpdatedAt.UTC(),
	}
	if err := repo.db.Conn(ctx).Create(&row).Error; err != nil {
		return instructor.Instructor{}, errors.Wrap(err, "inserting instructor")
	}
	return ins, nil
}

func (repo *instructorRepository) QueryInstructors(ctx context.Context, filter instructor.QueryFilter) ([]instructor.Instructor, error) {
	q := repo.instructors(ctx).Where("instructors.organization_id = ?", filter.OrganizationID)
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		q = q.Where(likeExpr("users.name")+" OR "+likeExpr("users.email"), pattern, pattern)
	}
	var views []profileView
	if err := q.Order("users.name ASC").Scan(&views).Error; err != nil {
		return nil, errors.Wrap(err, "selecting instructors")
	}
	res := make([]instructor.Instructor, 0, len(views))
	for _, v := range views {
		res = append(res, v.toInstructor())
	}
	return res, nil
}

func (repo *instructorRepository) GetInstructor(ctx context.Context, filter instructor.GetFilter) (instructor.Instructor, error) {
	q := repo.instructors(ctx).Where("instructors.organization_id = ?", filter.OrganizationID)
	switch {
	case filter.ID != "":
		q = q.Where("instructors.id = ?", filter.ID)
	case filter.UserID != "":
		q = q.Where("instructors.user_id = ?", filter.UserID)
	default:
		return instructor.Instructor{}, instructor.ErrNotFound
	}
	var v profileView
	if err := scanOne(q, &v, instructor.ErrNotFound, "selecting instructor"); err != nil {
		return instructor.Instructor{}, err
	}
	return v.toInstructor(), nil
}

func (repo *instructorRepository) UpdateInstructor(ctx context.Context, ins instructor.Instructor) (instructor.Instructor, error) {
	err := repo.db.Conn(ctx).Model(&instructorRow{ID: ins.ID}).Updates(map[string]interface{}{
		"phone":      ins.Phone,
		"bio":        ins.Bio,
		"updated_at": ins.UpdatedAt.UTC(),
	}).Error
	if err != nil {
		return instructor.Instructor{}, errors.Wrap(err, "updating instructor")
	}
	return ins, nil
}

func (repo *instructorRepository) UnassignLessons(ctx context.Context, instructorID string) (int64, error) {
	res := repo.db.Conn(ctx).Model(&lessonRow{}).Where("instructor_id = ?", instructorID).Update("instructor_id", nil)
	return res.RowsAffected, errors.Wrap(res.Error, "unassigning lessons")
}

func (repo *instructorRepository) DeleteInstructor(ctx context.Context, id string) error {
	err := repo.db.Conn(ctx).Where("id = ?", id).Delete(&instructorRow{}).Error
	return errors.Wrap(err, "deleting instructor")
}
