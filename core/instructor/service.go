package instructor

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
	ErrNotFound = core.NewNotFoundError("instructor not found")
)

type Repository interface {
	CreateInstructor(ctx context.Context, ins Instructor) (Instructor, error)
	// QueryInstructors applies QueryFilter.Search as a case-insensitive match on name or email.
	QueryInstructors(ctx context.Context, filter QueryFilter) ([]Instructor, error)
	GetInstructor(ctx context.Context, filter GetFilter) (Instructor, error)
	UpdateInstructor(ctx context.Context, ins Instructor) (Instructor, error)
	// UnassignLessons clears the instructor of all their lessons.
	UnassignLessons(ctx context.Context, instructorID string) (int64, error)
	DeleteInstructor(ctx context.Context, id string) error
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

func (svc *Service) Create(ctx context.Context, orgID, orgName string, ni NewInstructor) (Instructor, error) {
	ni.Clean()
	ni.Role = user.RoleInstructor
	ni.OrganizationID = orgID
	if err := svc.validate.Struct(ni); err != nil {
		return Instructor{}, err
	}
	if err := svc.users.CheckUniqueness(ctx, ni.Email); err != nil {
		return Instructor{}, err
	}

	var (
		ins Instructor
		usr user.User
	)
	err := svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if usr, err = svc.users.Create(ctx, ni.NewUser); err != nil {
			return errors.Wrap(err, "creating instructor user")
		}
		ins, err = svc.repo.CreateInstructor(ctx, Instructor{
			OrganizationID: orgID,
			UserID:         usr.ID,
			Name:           usr.Name,
			Email:          usr.Email,
			IsActive:       usr.IsActive,
			Phone:          ni.Phone,
			Bio:            ni.Bio,
			CreatedAt:      usr.CreatedAt,
			UpdatedAt:      usr.UpdatedAt,
		})
		return errors.Wrap(err, "creating instructor")
	})
	if err != nil {
		return Instructor{}, err
	}

	svc.users.SendAccountCreatedMail(usr, orgName, "account_created")
	return ins, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Instructor, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryInstructors(ctx, filter)
}

// Get returns the instructor to admins, and to the instructor themself.
func (svc *Service) Get(ctx context.Context, p user.Principal, orgID, id string) (Instructor, error) {
	ins, err := svc.repo.GetInstructor(ctx, GetFilter{OrganizationID: orgID, ID: id})
	if err != nil {
		return Instructor{}, err
	}
	if !p.IsOrgAdmin(orgID) && ins.UserID != p.UserID {
		return Instructor{}, ErrNotFound
	}
	return ins, nil
}

// GetByUser returns the instructor profile of a user.
func (svc *Service) GetByUser(ctx context.Context, orgID, userID string) (Instructor, error) {
	return svc.repo.GetInstructor(ctx, GetFilter{OrganizationID: orgID, UserID: userID})
}

func (svc *Service) Update(ctx context.Context, orgID, id string, ui UpdateInstructor) (Instructor, error) {
	if err := svc.validate.Struct(ui); err != nil {
		return Instructor{}, err
	}
	ins, err := svc.repo.GetInstructor(ctx, GetFilter{OrganizationID: orgID, ID: id})
	if err != nil {
		return Instructor{}, err
	}

	err = svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		name := core.CleanString(ui.Name)
		if name != "" || ui.IsActive != nil {
			usr, err := svc.users.GetByID(ctx, ins.UserID)
			if err != nil {
				return errors.Wrap(err, "finding instructor user")
			}
			if name == "" {
				name = usr.Name
			}
			usr, err = svc.users.Update(ctx, usr, user.UpdateUser{Name: name, Email: usr.Email, IsActive: ui.IsActive})
			if err != nil {
				return errors.Wrap(err, "updating instructor user")
			}
			ins.Name = usr.Name
			ins.IsActive = usr.IsActive
		}
		if ui.Phone != nil {
			ins.Phone = core.CleanString(*ui.Phone)
		}
		if ui.Bio != nil {
			ins.Bio = core.CleanText(*ui.Bio)
		}
		ins.UpdatedAt = time.Now().UTC()
		ins, err = svc.repo.UpdateInstructor(ctx, ins)
		return errors.Wrap(err, "updating instructor")
	})
	return ins, err
}

// Delete unassigns the instructor from their lessons and deletes the instructor with their user,
// device tokens and notifications, in one transaction.
func (svc *Service) Delete(ctx context.Context, orgID, id string) error {
	ins, err := svc.repo.GetInstructor(ctx, GetFilter{OrganizationID: orgID, ID: id})
	if err != nil {
		return err
	}
	return svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		n, err := svc.repo.UnassignLessons(ctx, ins.ID)
		if err != nil {
			return errors.Wrap(err, "unassigning lessons")
		}
		svc.logger.Debug(fmt.Sprintf("instructor %s: unassigned from %d lessons", ins.ID, n))

		if err = svc.repo.DeleteInstructor(ctx, ins.ID); err != nil {
			return errors.Wrap(err, "deleting instructor")
		}
		if err = svc.notifications.PurgeUsers(ctx, ins.UserID); err != nil {
			return errors.Wrap(err, "deleting instructor devices and notifications")
		}
		return errors.Wrap(svc.users.Delete(ctx, ins.UserID), "deleting instructor user")
	})
}
