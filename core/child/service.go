package child

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("child not found")
	ErrParentNotFound = core.NewNotFoundError("parent not found")
	ErrLastParent     = errors.New("a child must keep at least one parent")
)

type Repository interface {
	// CreateChild creates the child and links it to Child.ParentIDs.
	CreateChild(ctx context.Context, c Child) (Child, error)
	QueryChildren(ctx context.Context, filter QueryFilter) ([]Child, error)
	GetChild(ctx context.Context, orgID, id string) (Child, error)
	UpdateChild(ctx context.Context, c Child) (Child, error)

	// ExistingParentIDs returns the ids among parentIDs of parents of the organization.
	ExistingParentIDs(ctx context.Context, orgID string, parentIDs ...string) ([]string, error)
	ParentIDOfUser(ctx context.Context, orgID, userID string) (string, error)
	ParentUserIDs(ctx context.Context, childID string) ([]string, error)
	IsChildOfParentUser(ctx context.Context, childID, userID string) (bool, error)
	IsChildOfInstructorUser(ctx context.Context, childID, userID string) (bool, error)
	LinkParent(ctx context.Context, childID, parentID string) error
	UnlinkParent(ctx context.Context, childID, parentID string) error

	DeleteSkillProgressByChildren(ctx context.Context, childIDs ...string) error
	DeleteEnrollmentsByChildren(ctx context.Context, childIDs ...string) error
	DeleteParentLinksByChildren(ctx context.Context, childIDs ...string) error
	DeleteChildren(ctx context.Context, childIDs ...string) error
}

type Service struct {
	repo     Repository
	tx       core.Transactor
	validate *validator.Validate
}

func NewService(repo Repository, tx core.Transactor, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	return &Service{repo: repo, tx: tx, validate: validate}
}

func (svc *Service) Query(ctx context.Context, p user.Principal, filter QueryFilter) ([]Child, error) {
	filter.Search = core.CleanString(filter.Search)
	switch {
	case p.IsOrgAdmin(filter.OrganizationID):
	case p.IsParent():
		filter.ParentUserID = p.UserID
	case p.IsInstructor():
		filter.InstructorUserID = p.UserID
	default:
		return nil, core.ErrForbidden
	}
	return svc.repo.QueryChildren(ctx, filter)
}

// Create registers a child. Admins link it to NewChild.ParentIDs, parents to themselves.
func (svc *Service) Create(ctx context.Context, p user.Principal, orgID string, nc NewChild) (Child, error) {
	nc.Clean()
	if err := svc.validate.Struct(nc); err != nil {
		return Child{}, err
	}
	if err := validateBirthDate(nc.BirthDate); err != nil {
		return Child{}, err
	}

	parentIDs := nc.ParentIDs
	if p.IsParent() {
		parentID, err := svc.repo.ParentIDOfUser(ctx, orgID, p.UserID)
		if err != nil {
			return Child{}, err
		}
		parentIDs = []string{parentID}
	} else if len(parentIDs) > 0 {
		existing, err := svc.repo.ExistingParentIDs(ctx, orgID, parentIDs...)
		if err != nil {
			return Child{}, errors.Wrap(err, "checking parents")
		}
		if len(existing) != len(parentIDs) {
			return Child{}, core.NewValidationError(
				ErrParentNotFound,
				core.FieldError{Field: "parent_ids", Error: "unknown parent"},
			)
		}
	} else {
		return Child{}, core.NewValidationError(
			ErrLastParent,
			core.FieldError{Field: "parent_ids", Error: "this field is required"},
		)
	}

	now := time.Now().UTC()
	return svc.repo.CreateChild(ctx, Child{
		OrganizationID: orgID,
		FirstName:      nc.FirstName,
		LastName:       nc.LastName,
		BirthDate:      nc.BirthDate,
		Notes:          nc.Notes,
		ParentIDs:      parentIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// Get returns the child if p may see it: admins, linked parents and instructors teaching the child.
func (svc *Service) Get(ctx context.Context, p user.Principal, orgID, id string) (Child, error) {
	c, err := svc.repo.GetChild(ctx, orgID, id)
	if err != nil {
		return Child{}, err
	}
	ok, err := svc.canAccess(ctx, p, c)
	if err != nil {
		return Child{}, err
	}
	if !ok {
		return Child{}, ErrNotFound
	}
	return c, nil
}

// GetForUpdate returns the child if p may modify it: admins and linked parents.
func (svc *Service) GetForUpdate(ctx context.Context, p user.Principal, orgID, id string) (Child, error) {
	c, err := svc.repo.GetChild(ctx, orgID, id)
	if err != nil {
		return Child{}, err
	}
	if p.IsOrgAdmin(orgID) {
		return c, nil
	}
	if p.IsParent() {
		ok, err := svc.repo.IsChildOfParentUser(ctx, c.ID, p.UserID)
		if err != nil {
			return Child{}, errors.Wrap(err, "checking parent link")
		}
		if ok {
			return c, nil
		}
	}
	return Child{}, ErrNotFound
}

func (svc *Service) canAccess(ctx context.Context, p user.Principal, c Child) (bool, error) {
	switch {
	case p.IsOrgAdmin(c.OrganizationID):
		return true, nil
	case p.IsParent():
		ok, err := svc.repo.IsChildOfParentUser(ctx, c.ID, p.UserID)
		return ok, errors.Wrap(err, "checking parent link")
	case p.IsInstructor():
		ok, err := svc.repo.IsChildOfInstructorUser(ctx, c.ID, p.UserID)
		return ok, errors.Wrap(err, "checking instructor lessons")
	}
	return false, nil
}

func (svc *Service) Update(ctx context.Context, p user.Principal, orgID, id string, uc UpdateChild) (Child, error) {
	if err := svc.validate.Struct(uc); err != nil {
		return Child{}, err
	}
	c, err := svc.GetForUpdate(ctx, p, orgID, id)
	if err != nil {
		return Child{}, err
	}
	uc.apply(&c)
	if err = validateBirthDate(c.BirthDate); err != nil {
		return Child{}, err
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateChild(ctx, c)
}

// Delete removes the child with its progress, enrollments and parent links, in one transaction.
func (svc *Service) Delete(ctx context.Context, p user.Principal, orgID, id string) error {
	c, err := svc.GetForUpdate(ctx, p, orgID, id)
	if err != nil {
		return err
	}
	return svc.Purge(ctx, c.ID)
}

// Purge deletes the children: progress, then enrollments, then parent links, then the children.
// It joins the transaction carried by ctx, if any.
func (svc *Service) Purge(ctx context.Context, childIDs ...string) error {
	if len(childIDs) == 0 {
		return nil
	}
	return svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := svc.repo.DeleteSkillProgressByChildren(ctx, childIDs...); err != nil {
			return errors.Wrap(err, "deleting skill progress")
		}
		if err := svc.repo.DeleteEnrollmentsByChildren(ctx, childIDs...); err != nil {
			return errors.Wrap(err, "deleting enrollments")
		}
		if err := svc.repo.DeleteParentLinksByChildren(ctx, childIDs...); err != nil {
			return errors.Wrap(err, "deleting parent links")
		}
		return errors.Wrap(svc.repo.DeleteChildren(ctx, childIDs...), "deleting children")
	})
}

func (svc *Service) LinkParent(ctx context.Context, orgID, id string, lp LinkParent) (Child, error) {
	if err := svc.validate.Struct(lp); err != nil {
		return Child{}, err
	}
	c, err := svc.repo.GetChild(ctx, orgID, id)
	if err != nil {
		return Child{}, err
	}
	existing, err := svc.repo.ExistingParentIDs(ctx, orgID, lp.ParentID)
	if err != nil {
		return Child{}, errors.Wrap(err, "checking parent")
	}
	if len(existing) == 0 {
		return Child{}, ErrParentNotFound
	}
	if core.ContainsString(c.ParentIDs, lp.ParentID) {
		return c, nil
	}
	if err = svc.repo.LinkParent(ctx, c.ID, lp.ParentID); err != nil {
		return Child{}, errors.Wrap(err, "linking parent")
	}
	c.ParentIDs = append(c.ParentIDs, lp.ParentID)
	return c, nil
}

// UnlinkParent removes a parent link. The last link of a child cannot be removed.
func (svc *Service) UnlinkParent(ctx context.Context, orgID, id, parentID string) (Child, error) {
	c, err := svc.repo.GetChild(ctx, orgID, id)
	if err != nil {
		return Child{}, err
	}
	if !core.ContainsString(c.ParentIDs, parentID) {
		return Child{}, ErrParentNotFound
	}
	if len(c.ParentIDs) == 1 {
		return Child{}, core.NewValidationError(ErrLastParent)
	}
	if err = svc.repo.UnlinkParent(ctx, c.ID, parentID); err != nil {
		return Child{}, errors.Wrap(err, "unlinking parent")
	}
	ids := make([]string, 0, len(c.ParentIDs)-1)
	for _, pid := range c.ParentIDs {
		if pid != parentID {
			ids = append(ids, pid)
		}
	}
	c.ParentIDs = ids
	return c, nil
}

// ParentUserIDs returns the user ids of the child's parents.
func (svc *Service) ParentUserIDs(ctx context.Context, childID string) ([]string, error) {
	return svc.repo.ParentUserIDs(ctx, childID)
}

func validateBirthDate(d core.Date) error {
	if !d.IsZero() && core.Today().Before(d) {
		return core.NewValidationError(
			errors.New("birth date in the future"),
			core.FieldError{Field: "birth_date", Error: "birth date cannot be in the future"},
		)
	}
	return nil
}
