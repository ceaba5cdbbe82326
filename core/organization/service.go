package organization

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/notification"
	"github.com/lanes-app/lanes/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("organization not found")
	ErrAdminNotFound  = core.NewNotFoundError("admin not found")
	ErrDeleteSelf     = core.NewPermissionError("you cannot delete your own admin account")
	ErrRoleNotGranted = core.NewPermissionError("you cannot grant this role")
)

type Repository interface {
	CreateOrganization(ctx context.Context, org Organization) (Organization, error)
	// QueryOrganizations applies QueryFilter.Search as a case-insensitive match on name or email.
	QueryOrganizations(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Organization, error)
	GetOrganization(ctx context.Context, id string) (Organization, error)
	UpdateOrganization(ctx context.Context, org Organization) (Organization, error)
	// DeleteOrganizationRows deletes all rows of kind owned by the organization.
	DeleteOrganizationRows(ctx context.Context, orgID string, kind RowKind) (int64, error)
	DeleteOrganization(ctx context.Context, id string) error

	CreateAdmin(ctx context.Context, adm Admin) (Admin, error)
	QueryAdmins(ctx context.Context, orgID string) ([]Admin, error)
	GetAdmin(ctx context.Context, orgID, id string) (Admin, error)
	DeleteAdmin(ctx context.Context, id string) error
}

type Service struct {
	repo          Repository
	users         *user.Service
	notifications *notification.Service
	tx            core.Transactor
	validate      *validator.Validate
	logger        core.Logger
}

func NewService(
	repo Repository,
	users *user.Service,
	notifications *notification.Service,
	tx core.Transactor,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(notifications, "notifications"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:          repo,
		users:         users,
		notifications: notifications,
		tx:            tx,
		validate:      validate,
		logger:        logger,
	}
}

// Signup creates an organization, its first admin user and Admin row in one transaction.
func (svc *Service) Signup(ctx context.Context, data Signup) (Organization, user.User, error) {
	data.Organization.Clean()
	data.Admin.Role = user.RoleAdmin
	if err := svc.validate.Struct(data.Organization); err != nil {
		return Organization{}, user.User{}, err
	}
	if err := data.Admin.Validate(ctx, svc.validate, svc.users); err != nil {
		return Organization{}, user.User{}, err
	}

	var (
		org Organization
		usr user.User
	)
	err := svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if org, err = svc.create(ctx, data.Organization); err != nil {
			return err
		}
		data.Admin.OrganizationID = org.ID
		if usr, err = svc.users.Create(ctx, data.Admin); err != nil {
			return errors.Wrap(err, "creating admin user")
		}
		_, err = svc.repo.CreateAdmin(ctx, Admin{OrganizationID: org.ID, UserID: usr.ID, CreatedAt: usr.CreatedAt})
		return errors.Wrap(err, "creating admin")
	})
	if err != nil {
		return Organization{}, user.User{}, err
	}

	svc.users.SendAccountCreatedMail(usr, org.Name, "welcome")
	return org, usr, nil
}

func (svc *Service) Create(ctx context.Context, no NewOrganization) (Organization, error) {
	no.Clean()
	if err := svc.validate.Struct(no); err != nil {
		return Organization{}, err
	}
	return svc.create(ctx, no)
}

func (svc *Service) create(ctx context.Context, no NewOrganization) (Organization, error) {
	now := time.Now().UTC()
	org, err := svc.repo.CreateOrganization(ctx, Organization{
		Name:      no.Name,
		Email:     no.Email,
		Phone:     no.Phone,
		Address:   no.Address,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return org, errors.Wrap(err, "creating organization")
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Organization, error) {
	filter.Clean()
	return svc.repo.QueryOrganizations(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Organization, error) {
	return svc.repo.GetOrganization(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uo UpdateOrganization) (Organization, error) {
	if err := svc.validate.Struct(uo); err != nil {
		return Organization{}, err
	}
	org, err := svc.repo.GetOrganization(ctx, id)
	if err != nil {
		return Organization{}, err
	}
	uo.apply(&org)
	org.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateOrganization(ctx, org)
}

// Delete removes the organization and every row it owns, in foreign-key order, in one transaction.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetOrganization(ctx, id); err != nil {
		return err
	}
	return svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, kind := range DeletionOrder {
			n, err := svc.repo.DeleteOrganizationRows(ctx, id, kind)
			if err != nil {
				return errors.Wrapf(err, "deleting %s", kind)
			}
			svc.logger.Debug(fmt.Sprintf("organization %s: deleted %d %s", id, n, kind))
		}
		return errors.Wrap(svc.repo.DeleteOrganization(ctx, id), "deleting organization")
	})
}

func (svc *Service) QueryAdmins(ctx context.Context, orgID string) ([]Admin, error) {
	return svc.repo.QueryAdmins(ctx, orgID)
}

// CreateAdmin creates a user with the admin role and its Admin row.
func (svc *Service) CreateAdmin(ctx context.Context, p user.Principal, orgID string, nu user.NewUser) (Admin, error) {
	if !p.CanGrant(user.RoleAdmin) {
		return Admin{}, ErrRoleNotGranted
	}
	org, err := svc.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return Admin{}, err
	}
	nu.Role = user.RoleAdmin
	nu.OrganizationID = orgID
	if err = nu.Validate(ctx, svc.validate, svc.users); err != nil {
		return Admin{}, err
	}

	var (
		adm Admin
		usr user.User
	)
	err = svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if usr, err = svc.users.Create(ctx, nu); err != nil {
			return errors.Wrap(err, "creating admin user")
		}
		adm, err = svc.repo.CreateAdmin(ctx, Admin{
			OrganizationID: orgID,
			UserID:         usr.ID,
			Name:           usr.Name,
			Email:          usr.Email,
			IsActive:       usr.IsActive,
			CreatedAt:      usr.CreatedAt,
		})
		return errors.Wrap(err, "creating admin")
	})
	if err != nil {
		return Admin{}, err
	}

	svc.users.SendAccountCreatedMail(usr, org.Name, "account_created")
	return adm, nil
}

// DeleteAdmin deletes the Admin row and its user. Admins cannot delete themselves.
func (svc *Service) DeleteAdmin(ctx context.Context, p user.Principal, orgID, adminID string) error {
	adm, err := svc.repo.GetAdmin(ctx, orgID, adminID)
	if err != nil {
		return err
	}
	if adm.UserID == p.UserID {
		return ErrDeleteSelf
	}
	return svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := svc.repo.DeleteAdmin(ctx, adm.ID); err != nil {
			return errors.Wrap(err, "deleting admin")
		}
		if err := svc.notifications.PurgeUsers(ctx, adm.UserID); err != nil {
			return errors.Wrap(err, "deleting admin devices and notifications")
		}
		return errors.Wrap(svc.users.Delete(ctx, adm.UserID), "deleting admin user")
	})
}
