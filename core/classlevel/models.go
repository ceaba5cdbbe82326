package classlevel

import (
	"time"

	"github.com/lanes-app/lanes/core"
)

type ClassLevel struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Position       int       `json:"position"`
	Skills         []Skill   `json:"skills,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Skill struct {
	ID           string    `json:"id"`
	ClassLevelID string    `json:"class_level_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewClassLevel is also used for skills.
type NewClassLevel struct {
	Name        string `json:"name" validate:"required,notblank,max=150"`
	Description string `json:"description" validate:"max=2000"`
	Position    *int   `json:"position" validate:"omitempty,min=0"`
}

func (nl *NewClassLevel) Clean() {
	nl.Name = core.CleanString(nl.Name)
	nl.Description = core.CleanText(nl.Description)
}

type NewSkill = NewClassLevel

// UpdateClassLevel is also used for skills.
type UpdateClassLevel struct {
	Name        string  `json:"name" validate:"max=150"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Position    *int    `json:"position" validate:"omitempty,min=0"`
}

type UpdateSkill = UpdateClassLevel

func (ul UpdateClassLevel) apply(name, description *string, position *int) {
	if n := core.CleanString(ul.Name); n != "" {
		*name = n
	}
	if ul.Description != nil {
		*description = core.CleanText(*ul.Description)
	}
	if ul.Position != nil {
		*position = *ul.Position
	}
}

// SkillOrder is the new order of all the skills of a class level.
type SkillOrder struct {
	SkillIDs []string `json:"skill_ids" validate:"required,min=1,dive,required"`
}
