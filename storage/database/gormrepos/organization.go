package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/organization"
	"github.com/lanes-app/lanes/storage/database"
)

type organizationRepository struct {
	db *database.DB
}

var _ organization.Repository = (*organizationRepository)(nil) // interface compliance check

func NewOrganizationRepository(db *database.DB) organization.Repository {
	return &organizationRepository{db: db}
}

func organizationFromRow(row organizationRow) organization.Organization {
	return organization.Organization{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Phone:     row.Phone,
		Address:   row.Address,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func organizationToRow(org organization.Organization) organizationRow {
	return organizationRow{
		ID:        org.ID,
		Name:      org.Name,
		Email:     org.Email,
		Phone:     org.Phone,
		Address:   org.Address,
		CreatedAt: org.CreatedAt.UTC(),
		UpdatedAt: org.UpdatedAt.UTC(),
	}
}

func (repo *organizationRepository) CreateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	org.ID = uuid.New().String()
	row := organizationToRow(org)
	if err := repo.db.Conn(ctx).Create(&row).Error; err != nil {
		return organization.Organization{}, errors.Wrap(err, "inserting organization")
	}
	return organizationFromRow(row), nil
}

func (repo *organizationRepository) QueryOrganizations(ctx context.Context, filter organization.QueryFilter, ordering []core.DBOrdering) ([]organization.Organization, error) {
	q := repo.db.Conn(ctx)
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		q = q.Where(likeExpr("name")+" OR "+likeExpr("email"), pattern, pattern)
	}
	var rows []organizationRow
	if err := order(q, ordering, "name ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting organizations")
	}
	orgs := make([]organization.Organization, 0, len(rows))
	for _, row := range rows {
		orgs = append(orgs, organizationFromRow(row))
	}
	return orgs, nil
}

func (repo *organizationRepository) GetOrganization(ctx context.Context, id string) (organization.Organization, error) {
	var row organizationRow
	if err := repo.db.Conn(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return organization.Organization{}, trapNotFound(err, organization.ErrNotFound, "selecting organization")
	}
	return organizationFromRow(row), nil
}

func (repo *organizationRepository) UpdateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	row := organizationToRow(org)
	err := repo.db.Conn(ctx).Model(&organizationRow{ID: row.ID}).Select("*").Omit("id", "created_at").Updates(&row).Error
	if err != nil {
		return organization.Organization{}, errors.Wrap(err, "updating organization")
	}
	return organizationFromRow(row), nil
}

const (
	orgLessons     = "SELECT id FROM lessons WHERE organization_id = ?"
	orgChildren    = "SELECT id FROM children WHERE organization_id = ?"
	orgParents     = "SELECT id FROM parents WHERE organization_id = ?"
	orgUsers       = "SELECT id FROM users WHERE organization_id = ?"
	orgClassLevels = "SELECT id FROM class_levels WHERE organization_id = ?"
	orgEnrollments = "SELECT id FROM enrollments WHERE lesson_id IN (" + orgLessons + ") OR child_id IN (" + orgChildren + ")"
)

// orgRowsDeletes builds, for each kind of rows, the delete of the rows owned by an organization.
var orgRowsDeletes = map[organization.RowKind]func(db *gorm.DB, orgID string) *gorm.DB{
	organization.RowsSkillProgress: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("enrollment_id IN ("+orgEnrollments+")", orgID, orgID).Delete(&skillProgressRow{})
	},
	organization.RowsEnrollments: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("lesson_id IN ("+orgLessons+") OR child_id IN ("+orgChildren+")", orgID, orgID).Delete(&enrollmentRow{})
	},
	organization.RowsLessons: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("organization_id = ?", orgID).Delete(&lessonRow{})
	},
	organization.RowsSkills: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("class_level_id IN ("+orgClassLevels+")", orgID).Delete(&skillRow{})
	},
	organization.RowsClassLevels: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("organization_id = ?", orgID).Delete(&classLevelRow{})
	},
	organization.RowsParentChildren: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("child_id IN ("+orgChildren+") OR parent_id IN ("+orgParents+")", orgID, orgID).Delete(&parentChildRow{})
	},
	organization.RowsChildren: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("organization_id = ?", orgID).Delete(&childRow{})
	},
	organization.RowsDeviceTokens: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("user_id IN ("+orgUsers+")", orgID).Delete(&deviceTokenRow{})
	},
	organization.RowsNotifications: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("user_id IN ("+orgUsers+")", orgID).Delete(&notificationRow{})
	},
	organization.RowsAdmins: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("organization_id = ?", orgID).Delete(&adminRow{})
	},
	organization.RowsInstructors: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("organization_id = ?", orgID).Delete(&instructorRow{})
	},
	organization.RowsParents: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("organization_id = ?", orgID).Delete(&parentRow{})
	},
	organization.RowsUsers: func(db *gorm.DB, orgID string) *gorm.DB {
		return db.Where("organization_id = ?", orgID).Delete(&userRow{})
	},
}

func (repo *organizationRepository) DeleteOrganizationRows(ctx context.Context, orgID string, kind organization.RowKind) (int64, error) {
	del, ok := orgRowsDeletes[kind]
	if !ok {
		return 0, errors.Errorf("unknown rows kind %q", kind)
	}
	res := del(repo.db.Conn(ctx), orgID)
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "deleting %s", kind)
	}
	return res.RowsAffected, nil
}

func (repo *organizationRepository) DeleteOrganization(ctx context.Context, id string) error {
	err := repo.db.Conn(ctx).Where("id = ?", id).Delete(&organizationRow{}).Error
	return errors.Wrap(err, "deleting organization")
}

// adminView is an admin joined with its user.
type adminView struct {
	ID             string
	OrganizationID string
	UserID         string
	Name           string
	Email          string
	IsActive       bool
	CreatedAt      time.Time
}

const adminColumns = "admins.id, admins.organization_id, admins.user_id, users.name, users.email, users.is_active, admins.created_at"

func (v adminView) toAdmin() organization.Admin {
	return organization.Admin{
		ID:             v.ID,
		OrganizationID: v.OrganizationID,
		UserID:         v.UserID,
		Name:           v.Name,
		Email:          v.Email,
		IsActive:       v.IsActive,
		CreatedAt:      v.CreatedAt.UTC(),
	}
}

func (repo *organizationRepository) admins(ctx context.Context) *gorm.DB {
	return repo.db.Conn(ctx).Table("admins").Select(adminColumns).Joins("JOIN users ON users.id = admins.user_id")
}

func (repo *organizationRepository) CreateAdmin(ctx context.Context, adm organization.Admin) (organization.Admin, error) {
	adm.ID = uuid.New().String()
	row := adminRow{ID: adm.ID, UserID: adm.UserID, OrganizationID: adm.OrganizationID, CreatedAt: adm.CreatedAt.UTC()}
	if err := repo.db.Conn(ctx).Create(&row).Error; err != nil {
		return organization.Admin{}, errors.Wrap(err, "inserting admin")
	}
	return adm, nil
}

func (repo *organizationRepository) QueryAdmins(ctx context.Context, orgID string) ([]organization.Admin, error) {
	var views []adminView
	err := repo.admins(ctx).Where("admins.organization_id = ?", orgID).Order("users.name ASC").Scan(&views).Error
	if err != nil {
		return nil, errors.Wrap(err, "selecting admins")
	}
	admins := make([]organization.Admin, 0, len(views))
	for _, v := range views {
		admins = append(admins, v.toAdmin())
	}
	return admins, nil
}

func (repo *organizationRepository) GetAdmin(ctx context.Context, orgID, id string) (organization.Admin, error) {
	var v adminView
	q := repo.admins(ctx).Where("admins.organization_id = ? AND admins.id = ?", orgID, id)
	if err := scanOne(q, &v, organization.ErrAdminNotFound, "selecting admin"); err != nil {
		return organization.Admin{}, err
	}
	return v.toAdmin(), nil
}

func (repo *organizationRepository) DeleteAdmin(ctx context.Context, id string) error {
	err := repo.db.Conn(ctx).Where("id = ?", id).Delete(&adminRow{}).Error
	return errors.Wrap(err, "deleting admin")
}
