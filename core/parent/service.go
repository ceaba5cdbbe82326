package parent

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/child"
	"github.com/lanes-app/lanes/core/notification"
	"github.com/lanes-app/lanes/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("parent not found")
)

type Repository interface {
	CreateParent(ctx context.Context, prt Parent) (Parent, error)
	// QueryParents applies QueryFilter.Search as a case-insensitive match on name or email.
	QueryParents(ctx context.Context, filter QueryFilter) ([]Parent, error)
	GetParent(ctx context.Context, filter GetFilter) (Parent, error)
	UpdateParent(ctx context.Context, prt Parent) (Parent, error)
	// SoleChildIDs returns the children linked to no other parent than parentID.
	SoleChildIDs(ctx context.Context, parentID string) ([]string, error)
	DeleteParentLinks(ctx context.Context, parentID string) error
	DeleteParent(ctx context.Context, id string) error
}

type Service struct {
	repo          Repository
	users         *user.Service
	children      *child.Service
	notifications *notification.Service
	tx            core.Transactor
	validate      *validator.Validate
	logger        core.Logger
}

func NewService(
	repo Repository,
	users *user.Service,
	children *child.Service,
	notifications *notification.Service,
	tx core.Transactor,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(children, "children"),
		vala.IsNotNil(notifications, "notifications"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:          repo,
		users:         users,
		children:      children,
		notifications: notifications,
		tx:            tx,
		validate:      validate,
		logger:        logger,
	}
}

// Create creates the parent's user and Parent row. It serves both admins and self-registration.
func (svc *Service) Create(ctx context.Context, orgID, orgName string, np NewParent) (Parent, error) {
	np.Clean()
	np.Role = user.RoleParent
	np.OrganizationID = orgID
	if err := svc.validate.Struct(np); err != nil {
		return Parent{}, err
	}
	if err := svc.users.CheckUniqueness(ctx, np.Email); err != nil {
		return Parent{}, err
	}

	var (
		prt Parent
		usr user.User
	)
	err := svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if usr, err = svc.users.Create(ctx, np.NewUser); err != nil {
			return errors.Wrap(err, "creating parent user")
		}
		prt, err = svc.repo.CreateParent(ctx, Parent{
			OrganizationID: orgID,
			UserID:         usr.ID,
			Name:           usr.Name,
			Email:          usr.Email,
			IsActive:       usr.IsActive,
			Phone:          np.Phone,
			Address:        np.Address,
			CreatedAt:      usr.CreatedAt,
			UpdatedAt:      usr.UpdatedAt,
		})
		return errors.Wrap(err, "creating parent")
	})
	if err != nil {
		return Parent{}, err
	}

	svc.users.SendAccountCreatedMail(usr, orgName, "account_created")
	return prt, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Parent, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryParents(ctx, filter)
}

// Get returns the parent to admins, and to the parent themself.
func (svc *Service) Get(ctx context.Context, p user.Principal, orgID, id string) (Parent, error) {
	prt, err := svc.repo.GetParent(ctx, GetFilter{OrganizationID: orgID, ID: id})
	if err != nil {
		return Parent{}, err
	}
	if !p.IsOrgAdmin(orgID) && prt.UserID != p.UserID {
		return Parent{}, ErrNotFound
	}
	return prt, nil
}

// GetByUser returns the parent profile of a user.
func (svc *Service) GetByUser(ctx context.Context, orgID, userID string) (Parent, error) {
	return svc.repo.GetParent(ctx, GetFilter{OrganizationID: orgID, UserID: userID})
}

func (svc *Service) Update(ctx context.Context, p user.Principal, orgID, id string, up UpdateParent) (Parent, error) {
	if err := svc.validate.Struct(up); err != nil {
		return Parent{}, err
	}
	prt, err := svc.Get(ctx, p, orgID, id)
	if err != nil {
		return Parent{}, err
	}
	if !p.IsOrgAdmin(orgID) {
		up.IsActive = nil
	}

	err = svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		name := core.CleanString(up.Name)
		if name != "" || up.IsActive != nil {
			usr, err := svc.users.GetByID(ctx, prt.UserID)
			if err != nil {
				return errors.Wrap(err, "finding parent user")
			}
			if name == "" {
				name = usr.Name
			}
			usr, err = svc.users.Update(ctx, usr, user.UpdateUser{Name: name, Email: usr.Email, IsActive: up.IsActive})
			if err != nil {
				return errors.Wrap(err, "updating parent user")
			}
			prt.Name = usr.Name
			prt.IsActive = usr.IsActive
		}
		if up.Phone != nil {
			prt.Phone = core.CleanString(*up.Phone)
		}
		if up.Address != nil {
			prt.Address = core.CleanText(*up.Address)
		}
		prt.UpdatedAt = time.Now().UTC()
		prt, err = svc.repo.UpdateParent(ctx, prt)
		return errors.Wrap(err, "updating parent")
	})
	return prt, err
}

// Delete removes the parent in one transaction: first the children linked only to this parent
// (with their progress, enrollments and links), then the remaining links, the parent's device
// tokens and notifications, the Parent row and its user.
func (svc *Service) Delete(ctx context.Context, orgID, id string) error {
	prt, err := svc.repo.GetParent(ctx, GetFilter{OrganizationID: orgID, ID: id})
	if err != nil {
		return err
	}
	return svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		childIDs, err := svc.repo.SoleChildIDs(ctx, prt.ID)
		if err != nil {
			return errors.Wrap(err, "finding children")
		}
		if err = svc.children.Purge(ctx, childIDs...); err != nil {
			return errors.Wrap(err, "deleting children")
		}
		svc.logger.Debug(fmt.Sprintf("parent %s: deleted %d children", prt.ID, len(childIDs)))

		if err = svc.repo.DeleteParentLinks(ctx, prt.ID); err != nil {
			return errors.Wrap(err, "deleting parent links")
		}
		if err = svc.notifications.PurgeUsers(ctx, prt.UserID); err != nil {
			return errors.Wrap(err, "deleting parent devices and notifications")
		}
		if err = svc.repo.DeleteParent(ctx, prt.ID); err != nil {
			return errors.Wrap(err, "deleting parent")
		}
		return errors.Wrap(svc.users.Delete(ctx, prt.UserID), "deleting parent user")
	})
}
