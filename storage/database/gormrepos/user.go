package gormrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/user"
	"github.com/lanes-app/lanes/storage/database"
)

type userRepository struct {
	db *database.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *database.DB) user.Repository {
	return &userRepository{db: db}
}

func userToRow(usr user.User) userRow {
	row := userRow{
		ID:             usr.ID,
		OrganizationID: strPtr(usr.OrganizationID),
		Name:           usr.Name,
		Email:          usr.Email,
		PasswordHash:   usr.PasswordHash,
		Role:           usr.Role,
		IsActive:       usr.IsActive,
		CreatedAt:      usr.CreatedAt.UTC(),
		UpdatedAt:      usr.UpdatedAt.UTC(),
	}
	if !usr.LastLogin.IsZero() {
		t := usr.LastLogin.UTC()
		row.LastLogin = &t
	}
	return row
}

func userFromRow(row userRow) user.User {
	usr := user.User{
		ID:             row.ID,
		OrganizationID: strVal(row.OrganizationID),
		Name:           row.Name,
		Email:          row.Email,
		Role:           row.Role,
		IsActive:       row.IsActive,
		PasswordHash:   row.PasswordHash,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if row.LastLogin != nil {
		usr.LastLogin = row.LastLogin.UTC()
	}
	return usr
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	q := repo.db.Conn(ctx).Model(&userRow{}).Where("LOWER(email) = ?", strings.ToLower(email))
	if len(excludedIDs) > 0 {
		q = q.Where("id NOT IN ?", excludedIDs)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := userToRow(usr)
	if err := repo.db.Conn(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return userFromRow(row), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := repo.db.Conn(ctx)
	switch {
	case filter.ID != "":
		q = q.Where("id = ?", filter.ID)
	case filter.Email != "":
		q = q.Where("LOWER(email) = ?", strings.ToLower(filter.Email))
	default:
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	if err := q.Take(&row).Error; err != nil {
		return user.User{}, trapNotFound(err, user.ErrNotFound, "selecting user")
	}
	return userFromRow(row), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := userToRow(usr)
	res := repo.db.Conn(ctx).Model(&userRow{ID: row.ID}).Select("*").Omit("id", "created_at").Updates(&row)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(res.Error, "updating user")
	}
	if res.RowsAffected == 0 {
		return user.User{}, user.ErrNotFound
	}
	return userFromRow(row), nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	err := repo.db.Conn(ctx).Model(&userRow{}).Where("id = ?", id).Update("last_login", at.UTC()).Error
	return errors.Wrap(err, "setting last login")
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	err := repo.db.Conn(ctx).Where("id IN ?", ids).Delete(&userRow{}).Error
	return errors.Wrap(err, "deleting users")
}
