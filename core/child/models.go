package child

import (
	"time"

	"github.com/lanes-app/lanes/core"
)

type Child struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	BirthDate      core.Date `json:"birth_date"`
	Notes          string    `json:"notes"`
	ParentIDs      []string  `json:"parent_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c Child) FullName() string {
	return c.FirstName + " " + c.LastName
}

type NewChild struct {
	FirstName string    `json:"first_name" validate:"required,notblank,max=100"`
	LastName  string    `json:"last_name" validate:"required,notblank,max=100"`
	BirthDate core.Date `json:"birth_date"`
	Notes     string    `json:"notes" validate:"max=2000"`
	ParentIDs []string  `json:"parent_ids" validate:"omitempty,dive,uuid"`
}

func (nc *NewChild) Clean() {
	nc.FirstName = core.CleanString(nc.FirstName)
	nc.LastName = core.CleanString(nc.LastName)
	nc.Notes = core.CleanText(nc.Notes)
	nc.ParentIDs = core.UniqueStrings(nc.ParentIDs)
}

type UpdateChild struct {
	FirstName string     `json:"first_name" validate:"max=100"`
	LastName  string     `json:"last_name" validate:"max=100"`
	BirthDate *core.Date `json:"birth_date"`
	Notes     *string    `json:"notes" validate:"omitempty,max=2000"`
}

func (uc *UpdateChild) apply(c *Child) {
	if name := core.CleanString(uc.FirstName); name != "" {
		c.FirstName = name
	}
	if name := core.CleanString(uc.LastName); name != "" {
		c.LastName = name
	}
	if uc.BirthDate != nil {
		c.BirthDate = *uc.BirthDate
	}
	if uc.Notes != nil {
		c.Notes = core.CleanText(*uc.Notes)
	}
}

type LinkParent struct {
	ParentID string `json:"parent_id" validate:"required,uuid"`
}

type QueryFilter struct {
	OrganizationID string
	Search         string `query:"search"`
	// set from the caller: parents see their children, instructors the children of their lessons
	ParentUserID     string
	InstructorUserID string
}
