package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/child"
	"github.com/lanes-app/lanes/storage/database"
)

type childRepository struct {
	db *database.DB
}

var _ child.Repository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(db *database.DB) child.Repository {
	return &childRepository{db: db}
}

func dateToRow(d core.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func childToRow(c child.Child) childRow {
	return childRow{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		BirthDate:      dateToRow(c.BirthDate),
		Notes:          c.Notes,
		CreatedAt:      c.CreatedAt.UTC(),
		UpdatedAt:      c.UpdatedAt.UTC(),
	}
}

func childFromRow(row childRow) child.Child {
	c := child.Child{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Notes:          row.Notes,
		ParentIDs:      make([]string, 0),
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if row.BirthDate != nil {
		c.BirthDate = core.NewDate(*row.BirthDate)
	}
	return c
}

// parentIDs loads the parent ids of the children, by child id.
func (repo *childRepository) parentIDs(ctx context.Context, childIDs ...string) (map[string][]string, error) {
	res := make(map[string][]string, len(childIDs))
	if len(childIDs) == 0 {
		return res, nil
	}
	var links []parentChildRow
	if err := repo.db.Conn(ctx).Where("child_id IN ?", childIDs).Order("parent_id").Find(&links).Error; err != nil {
		return nil, errors.Wrap(err, "selecting parent links")
	}
	for _, link := range links {
		res[link.ChildID] = append(res[link.ChildID], link.ParentID)
	}
	return res, nil
}

func (repo *childRepository) CreateChild(ctx context.Context, c child.Child) (child.Child, error) {
	c.ID = uuid.New().String()
	row := childToRow(c)
	err := repo.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := repo.db.Conn(ctx).Create(&row).Error; err != nil {
			return errors.Wrap(err, "inserting child")
		}
		if len(c.ParentIDs) == 0 {
			return nil
		}
		links := make([]parentChildRow, 0, len(c.ParentIDs))
		for _, pid := range c.ParentIDs {
			links = append(links, parentChildRow{ParentID: pid, ChildID: c.ID})
		}
		return errors.Wrap(repo.db.Conn(ctx).Create(&links).Error, "linking parents")
	})
	if err != nil {
		return child.Child{}, err
	}
	created := childFromRow(row)
	created.ParentIDs = append(created.ParentIDs, c.ParentIDs...)
	return created, nil
}

func (repo *childRepository) QueryChildren(ctx context.Context, filter child.QueryFilter) ([]child.Child, error) {
	q := repo.db.Conn(ctx).Where("organization_id = ?", filter.OrganizationID)
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		q = q.Where(likeExpr("first_name")+" OR "+likeExpr("last_name"), pattern, pattern)
	}
	if filter.ParentUserID != "" {
		q = q.Where("id IN (SELECT pc.child_id FROM parent_children pc JOIN parents p ON p.id = pc.parent_id WHERE p.user_id = ?)",
			filter.ParentUserID)
	}
	if filter.InstructorUserID != "" {
		q = q.Where("id IN ("+childrenOfInstructorUser+")", filter.InstructorUserID)
	}

	var rows []childRow
	if err := q.Order("last_name ASC, first_name ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting children")
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	links, err := repo.parentIDs(ctx, ids...)
	if err != nil {
		return nil, err
	}
	children := make([]child.Child, 0, len(rows))
	for _, row := range rows {
		c := childFromRow(row)
		c.ParentIDs = append(c.ParentIDs, links[c.ID]...)
		children = append(children, c)
	}
	return children, nil
}

const childrenOfInstructorUser = "SELECT e.child_id FROM enrollments e " +
	"JOIN lessons l ON l.id = e.lesson_id " +
	"JOIN instructors i ON i.id = l.instructor_id " +
	"WHERE i.user_id = ?"

func (repo *childRepository) GetChild(ctx context.Context, orgID, id string) (child.Child, error) {
	var row childRow
	if err := repo.db.Conn(ctx).Where("organization_id = ? AND id = ?", orgID, id).Take(&row).Error; err != nil {
		return child.Child{}, trapNotFound(err, child.ErrNotFound, "selecting child")
	}
	links, err := repo.parentIDs(ctx, row.ID)
	if err != nil {
		return child.Child{}, err
	}
	c := childFromRow(row)
	c.ParentIDs = append(c.ParentIDs, links[c.ID]...)
	return c, nil
}

func (repo *childRepository) UpdateChild(ctx context.Context, c child.Child) (child.Child, error) {
	row := childToRow(c)
	err := repo.db.Conn(ctx).Model(&childRow{ID: row.ID}).Select("*").Omit("id", "organization_id", "created_at").Updates(&row).Error
	if err != nil {
		return child.Child{}, errors.Wrap(err, "updating child")
	}
	return c, nil
}

func (repo *childRepository) ExistingParentIDs(ctx context.Context, orgID string, parentIDs ...string) ([]string, error) {
	var ids []string
	if len(parentIDs) == 0 {
		return ids, nil
	}
	err := repo.db.Conn(ctx).Model(&parentRow{}).
		Where("organization_id = ? AND id IN ?", orgID, parentIDs).
		Pluck("id", &ids).Error
	return ids, errors.Wrap(err, "selecting parents")
}

func (repo *childRepository) ParentIDOfUser(ctx context.Context, orgID, userID string) (string, error) {
	var row parentRow
	err := repo.db.Conn(ctx).Where("organization_id = ? AND user_id = ?", orgID, userID).Take(&row).Error
	if err != nil {
		return "", trapNotFound(err, child.ErrParentNotFound, "selecting parent")
	}
	return row.ID, nil
}

func (repo *childRepository) ParentUserIDs(ctx context.Context, childID string) ([]string, error) {
	var ids []string
	err := repo.db.Conn(ctx).Model(&parentRow{}).
		Where("id IN (SELECT parent_id FROM parent_children WHERE child_id = ?)", childID).
		Pluck("user_id", &ids).Error
	return ids, errors.Wrap(err, "selecting parent users")
}

func (repo *childRepository) exists(q *gorm.DB) (bool, error) {
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func (repo *childRepository) IsChildOfParentUser(ctx context.Context, childID, userID string) (bool, error) {
	return repo.exists(repo.db.Conn(ctx).Model(&parentChildRow{}).
		Where("child_id = ? AND parent_id IN (SELECT id FROM parents WHERE user_id = ?)", childID, userID))
}

func (repo *childRepository) IsChildOfInstructorUser(ctx context.Context, childID, userID string) (bool, error) {
	return repo.exists(repo.db.Conn(ctx).Model(&childRow{}).
		Where("id = ? AND id IN ("+childrenOfInstructorUser+")", childID, userID))
}

func (repo *childRepository) LinkParent(ctx context.Context, childID, parentID string) error {
	err := repo.db.Conn(ctx).Create(&parentChildRow{ParentID: parentID, ChildID: childID}).Error
	if isDuplicate(err) {
		return nil
	}
	return errors.Wrap(err, "linking parent")
}

func (repo *childRepository) UnlinkParent(ctx context.Context, childID, parentID string) error {
	err := repo.db.Conn(ctx).Where("child_id = ? AND parent_id = ?", childID, parentID).Delete(&parentChildRow{}).Error
	return errors.Wrap(err, "unlinking parent")
}

const enrollmentsOfChildren = "SELECT id FROM enrollments WHERE child_id IN ?"

func (repo *childRepository) DeleteSkillProgressByChildren(ctx context.Context, childIDs ...string) error {
	err := repo.db.Conn(ctx).Where("enrollment_id IN ("+enrollmentsOfChildren+")", childIDs).Delete(&skillProgressRow{}).Error
	return errors.Wrap(err, "deleting skill progress")
}

func (repo *childRepository) DeleteEnrollmentsByChildren(ctx context.Context, childIDs ...string) error {
	err := repo.db.Conn(ctx).Where("child_id IN ?", childIDs).Delete(&enrollmentRow{}).Error
	return errors.Wrap(err, "deleting enrollments")
}

func (repo *childRepository) DeleteParentLinksByChildren(ctx context.Context, childIDs ...string) error {
	err := repo.db.Conn(ctx).Where("child_id IN ?", childIDs).Delete(&parentChildRow{}).Error
	return errors.Wrap(err, "deleting parent links")
}

func (repo *childRepository) DeleteChildren(ctx context.Context, childIDs ...string) error {
	err := repo.db.Conn(ctx).Where("id IN ?", childIDs).Delete(&childRow{}).Error
	return errors.Wrap(err, "deleting children")
}
