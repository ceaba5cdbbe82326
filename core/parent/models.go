package parent

import (
	"time"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
)

type Parent struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	IsActive       bool      `json:"is_active"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewParent contains the account and profile of a new parent.
type NewParent struct {
	user.NewUser
	Phone   string `json:"phone" validate:"max=30"`
	Address string `json:"address" validate:"max=500"`
}

func (np *NewParent) Clean() {
	np.NewUser.Clean()
	np.Phone = core.CleanString(np.Phone)
	np.Address = core.CleanText(np.Address)
}

type UpdateParent struct {
	Name     string  `json:"name" validate:"max=150"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
	IsActive *bool   `json:"is_active"` // admins only
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
