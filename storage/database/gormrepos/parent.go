package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lanes-app/lanes/core/parent"
	"github.com/lanes-app/lanes/storage/database"
)

type parentRepository struct {
	db *database.DB
}

var _ parent.Repository = (*parentRepository)(nil) // interface compliance check

func NewParentRepository(db *database.DB) parent.Repository {
	return &parentRepository{db: db}
}

func (v profileView) toParent() parent.Parent {
	return parent.Parent{
		ID:             v.ID,
		OrganizationID: v.OrganizationID,
		UserID:         v.UserID,
		Name:           v.Name,
		Email:          v.Email,
		IsActive:       v.IsActive,
		Phone:          v.Phone,
		Address:        v.Address,
		CreatedAt:      v.CreatedAt.UTC(),
		UpdatedAt:      v.UpdatedAt.UTC(),
	}
}

func (repo *parentRepository) parents(ctx context.Context) *gorm.DB {
	return repo.db.Conn(ctx).
		Table("parents").
		Select("parents.id, parents.organization_id, parents.user_id, users.name, users.email, " +
			"users.is_active, parents.phone, parents.address, parents.created_at, parents.updated_at").
		Joins("JOIN users ON users.id = parents.user_id")
}

func (repo *parentRepository) CreateParent(ctx context.Context, prt parent.Parent) (parent.Parent, error) {
	prt.ID = uuid.New().String()
	row := parentRow{
		ID:             prt.ID,
		UserID:         prt.UserID,
		OrganizationID: prt.OrganizationID,
		Phone:          prt.Phone,
		Address:        prt.Address,
		CreatedAt:      prt.CreatedAt.UTC(),
		UpdatedAt:      prt.UpdatedAt.UTC(),
	}
	if err := repo.db.Conn(ctx).Create(&row).Error; err != nil {
		return parent.Parent{}, errors.Wrap(err, "inserting parent")
	}
	return prt, nil
}

func (repo *parentRepository) QueryParents(ctx context.Context, filter parent.QueryFilter) ([]parent.Parent, error) {
	q := repo.parents(ctx).Where("parents.organization_id = ?", filter.OrganizationID)
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		q = q.Where(likeExpr("users.name")+" OR "+likeExpr("users.email"), pattern, pattern)
	}
	var views []profileView
	if err := q.Order("users.name ASC").Scan(&views).Error; err != nil {
		return nil, errors.Wrap(err, "selecting parents")
	}
	res := make([]parent.Parent, 0, len(views))
	for _, v := range views {
		res = append(res, v.toParent())
	}
	return res, nil
}

func (repo *parentRepository) GetParent(ctx context.Context, filter parent.GetFilter) (parent.Parent, error) {
	q := repo.parents(ctx).Where("parents.organization_id = ?", filter.OrganizationID)
	switch {
	case filter.ID != "":
		q = q.Where("parents.id = ?", filter.ID)
	case filter.UserID != "":
		q = q.Where("parents.user_id = ?", filter.UserID)
	default:
		return parent.Parent{}, parent.ErrNotFound
	}
	var v profileView
	if err := scanOne(q, &v, parent.ErrNotFound, "selecting parent"); err != nil {
		return parent.Parent{}, err
	}
	return v.toParent(), nil
}

func (repo *parentRepository) UpdateParent(ctx context.Context, prt parent.Parent) (parent.Parent, error) {
	err := repo.db.Conn(ctx).Model(&parentRow{ID: prt.ID}).Updates(map[string]interface{}{
		"phone":      prt.Phone,
		"address":    prt.Address,
		"updated_at": prt.UpdatedAt.UTC(),
	}).Error
	if err != nil {
		return parent.Parent{}, errors.Wrap(err, "updating parent")
	}
	return prt, nil
}

func (repo *parentRepository) SoleChildIDs(ctx context.Context, parentID string) ([]string, error) {
	var ids []string
	err := repo.db.Conn(ctx).Model(&parentChildRow{}).
		Where("parent_id = ?", parentID).
		Where("child_id NOT IN (SELECT child_id FROM parent_children WHERE parent_id <> ?)", parentID).
		Pluck("child_id", &ids).Error
	return ids, errors.Wrap(err, "selecting sole children")
}

func (repo *parentRepository) DeleteParentLinks(ctx context.Context, parentID string) error {
	err := repo.db.Conn(ctx).Where("parent_id = ?", parentID).Delete(&parentChildRow{}).Error
	return errors.Wrap(err, "deleting parent links")
}

func (repo *parentRepository) DeleteParent(ctx context.Context, id string) error {
	err := repo.db.Conn(ctx).Where("id = ?", id).Delete(&parentRow{}).Error
	return errors.Wrap(err, "deleting parent")
}
