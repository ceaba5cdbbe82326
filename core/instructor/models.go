package instructor

import (
	"time"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
)

type Instructor struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	IsActive       bool      `json:"is_active"`
	Phone          string    `json:"phone"`
	Bio            string    `json:"bio"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewInstructor contains the account and profile of a new instructor.
type NewInstructor struct {
	user.NewUser
	Phone string `json:"phone" validate:"max=30"`
	Bio   string `json:"bio" validate:"max=2000"`
}

func (ni *NewInstructor) Clean() {
	ni.NewUser.Clean()
	ni.Phone = core.CleanString(ni.Phone)
	ni.Bio = core.CleanText(ni.Bio)
}

type UpdateInstructor struct {
	Name     string  `json:"name" validate:"max=150"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
	Bio      *string `json:"bio" validate:"omitempty,max=2000"`
	IsActive *bool   `json:"is_active"`
}

type QueryFilter struct {
	OrganizationID string
	Search         string `query:"search"`
}

type GetFilter struct {
	OrganizationID string
	ID             string
	UserID         string
}
