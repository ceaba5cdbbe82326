package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = core.NewPermissionError("account deactivated")
)

type (
	GetFilter struct {
		ID    string
		Email string
	}

	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists when a user, other than excludedIDs, uses email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id string, at time.Time) error
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		tokenGen tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		tokenGen: tokenGenerator{
			secretKey: conf.SecretKey,
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create creates a user from already validated data.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		OrganizationID: nu.OrganizationID,
		Name:           nu.Name,
		Email:          nu.Email,
		Role:           nu.Role,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr.LastLogin = time.Now().UTC()
	if err = svc.repo.SetLastLogin(ctx, usr.ID, usr.LastLogin); err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

// Update applies validated changes to usr.
func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Email = uu.Email
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword sets a password without applying the password policy (admin CLI).
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

// RequestPasswordReset sends a password reset email to the active user owning email.
// Unknown or inactive emails are ignored so that callers cannot probe accounts.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}
	if !usr.IsActive {
		return nil
	}
	return svc.sendPasswordResetMail(usr)
}

func (svc *Service) sendPasswordResetMail(usr User) error {
	token, err := svc.tokenGen.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
	return nil
}

// ResetPassword verifies the reset token and sets the new password.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword, validate *validator.Validate) (User, error) {
	if err := data.Validate(validate); err != nil {
		return User{}, err
	}

	invalidErr := func(field string) error {
		return core.NewValidationError(
			errors.New("invalid "+field),
			core.FieldError{Field: field, Error: "invalid value"},
		)
	}

	uid, err := decodeUID(data.UID)
	if err != nil {
		return User{}, invalidErr("uid")
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if err == ErrNotFound {
			return User{}, invalidErr("uid")
		}
		return User{}, errors.Wrap(err, "finding user by id")
	}
	if err = svc.tokenGen.verifyToken(usr, data.Token); err != nil {
		return User{}, invalidErr("token")
	}
	return svc.SetPassword(ctx, usr, data.Password)
}

// SendAccountCreatedMail tells a user that an account was opened for them.
func (svc *Service) SendAccountCreatedMail(usr User, orgName, templateName string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome to " + orgName,
		TemplateName: templateName,
		TemplateData: map[string]string{
			"Name":             usr.Name,
			"Email":            usr.Email,
			"OrganizationName": orgName,
		},
	})
}
