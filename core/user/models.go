package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/lanes-app/lanes/core"
)

// Roles
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleParent     = "parent"
)

var (
	AllRoles = []string{RoleSuperAdmin, RoleAdmin, RoleInstructor, RoleParent}

	rolePriorities = map[string]int{
		RoleSuperAdmin: 40,
		RoleAdmin:      30,
		RoleInstructor: 20,
		RoleParent:     10,
	}

	Roles = []Role{
		{Name: "Parent", Value: RoleParent},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Super Admin", Value: RoleSuperAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	PasswordHash   []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
	LastLogin      time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }
func (u User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u User) IsInstructor() bool { return u.Role == RoleInstructor }
func (u User) IsParent() bool     { return u.Role == RoleParent }

// Principal returns the identity the user acts as.
func (u User) Principal() Principal {
	return Principal{
		UserID:         u.ID,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		Name:           u.Name,
		Email:          u.Email,
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,notblank,max=150"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// set by the services, never bound from requests
	Role           string `json:"-" validate:"omitempty,role"`
	OrganizationID string `json:"-"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Clean()
	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name" validate:"max=150"`
	Email           string `json:"email" validate:"omitempty,email,max=254"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc *Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Email, origUsr.ID)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }
