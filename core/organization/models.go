package organization

import (
	"time"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
)

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Admin is a user managing an organization.
type Admin struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type NewOrganization struct {
	Name    string `json:"name" validate:"required,notblank,max=200"`
	Email   string `json:"email" validate:"omitempty,email,max=254"`
	Phone   string `json:"phone" validate:"max=30"`
	Address string `json:"address" validate:"max=500"`
}

func (no *NewOrganization) Clean() {
	no.Name = core.CleanString(no.Name)
	no.Email = core.CleanString(no.Email, true /* lower */)
	no.Phone = core.CleanString(no.Phone)
	no.Address = core.CleanText(no.Address)
}

type UpdateOrganization struct {
	Name    string  `json:"name" validate:"max=200"`
	Email   *string `json:"email" validate:"omitempty,email,max=254"`
	Phone   *string `json:"phone" validate:"omitempty,max=30"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

// apply cleans the update and applies it to org.
func (uo *UpdateOrganization) apply(org *Organization) {
	if name := core.CleanString(uo.Name); name != "" {
		org.Name = name
	}
	if uo.Email != nil {
		org.Email = core.CleanString(*uo.Email, true /* lower */)
	}
	if uo.Phone != nil {
		org.Phone = core.CleanString(*uo.Phone)
	}
	if uo.Address != nil {
		org.Address = core.CleanText(*uo.Address)
	}
}

// Signup registers an organization together with its first admin.
type Signup struct {
	Organization NewOrganization `json:"organization"`
	Admin        user.NewUser    `json:"admin"`
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// RowKind names a set of rows owned by an organization.
type RowKind string

const (
	RowsSkillProgress  RowKind = "skill_progress"
	RowsEnrollments    RowKind = "enrollments"
	RowsLessons        RowKind = "lessons"
	RowsSkills         RowKind = "skills"
	RowsClassLevels    RowKind = "class_levels"
	RowsParentChildren RowKind = "parent_children"
	RowsChildren       RowKind = "children"
	RowsDeviceTokens   RowKind = "device_tokens"
	RowsNotifications  RowKind = "notifications"
	RowsAdmins         RowKind = "admins"
	RowsInstructors    RowKind = "instructors"
	RowsParents        RowKind = "parents"
	RowsUsers          RowKind = "users"
)

// DeletionOrder lists the rows of an organization in foreign-key order.
var DeletionOrder = []RowKind{
	RowsSkillProgress,
	RowsEnrollments,
	RowsLessons,
	RowsSkills,
	RowsClassLevels,
	RowsParentChildren,
	RowsChildren,
	RowsDeviceTokens,
	RowsNotifications,
	RowsAdmins,
	RowsInstructors,
	RowsParents,
	RowsUsers,
}
