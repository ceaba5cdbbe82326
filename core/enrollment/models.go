package enrollment

import (
	"time"

	"github.com/lanes-app/lanes/core"
)

// Skill progress statuses
const (
	StatusNotStarted = "NOT_STARTED"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

var Statuses = []string{StatusNotStarted, StatusInProgress, StatusCompleted}

type Enrollment struct {
	ID                string          `json:"id"`
	ChildID           string          `json:"child_id"`
	LessonID          string          `json:"lesson_id"`
	ChildName         string          `json:"child_name"`
	StartDate         core.Date       `json:"start_date"`
	EndDate           core.Date       `json:"end_date"`
	ReadyForNextLevel bool            `json:"ready_for_next_level"`
	ReadinessNotes    string          `json:"readiness_notes"`
	Progress          []SkillProgress `json:"progress,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// SkillProgress is the mastery of one skill within an enrollment.
type SkillProgress struct {
	ID           string    `json:"id"`
	EnrollmentID string    `json:"enrollment_id"`
	SkillID      string    `json:"skill_id"`
	SkillName    string    `json:"skill_name"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes"`
	UpdatedBy    string    `json:"updated_by,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewEnrollment enrolls a child into a lesson. Dates default to the lesson's.
type NewEnrollment struct {
	ChildID   string    `json:"child_id" validate:"required,uuid"`
	LessonID  string    `json:"lesson_id" validate:"required,uuid"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

type UpdateEnrollment struct {
	StartDate *core.Date `json:"start_date"`
	EndDate   *core.Date `json:"end_date"`
}

// NextEnrollment moves the child of an enrollment into another lesson.
type NextEnrollment struct {
	LessonID  string    `json:"lesson_id" validate:"required,uuid"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

type UpdateProgress struct {
	Status string  `json:"status" validate:"required,progress_status"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

type UpdateReadiness struct {
	ReadyForNextLevel *bool  `json:"ready_for_next_level" validate:"required"`
	Notes             string `json:"notes" validate:"max=2000"`
}

type QueryFilter struct {
	OrganizationID string
	LessonID       string
	ChildID        string
	// set from the caller
	InstructorUserID string
	ParentUserID     string
}
