package lesson

import (
	"time"

	"github.com/lanes-app/lanes/core"
)

type Lesson struct {
	ID              string    `json:"id"`
	OrganizationID  string    `json:"organization_id"`
	ClassLevelID    string    `json:"class_level_id"`
	InstructorID    string    `json:"instructor_id,omitempty"`
	Name            string    `json:"name"`
	Location        string    `json:"location"`
	DayOfWeek       int       `json:"day_of_week"` // 0: sunday
	StartTime       string    `json:"start_time"`  // HH:MM
	DurationMinutes int       `json:"duration_minutes"`
	Capacity        int       `json:"capacity"` // 0: unlimited
	StartDate       core.Date `json:"start_date"`
	EndDate         core.Date `json:"end_date"`
	EnrolledCount   int64     `json:"enrolled_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// user of the instructor, loaded with the lesson
	InstructorUserID string `json:"-"`
}

// IsFull reports whether no more children can enroll.
func (l Lesson) IsFull() bool {
	return l.Capacity > 0 && l.EnrolledCount >= int64(l.Capacity)
}

type NewLesson struct {
	Name            string    `json:"name" validate:"required,notblank,max=150"`
	ClassLevelID    string    `json:"class_level_id" validate:"required,uuid"`
	InstructorID    string    `json:"instructor_id" validate:"omitempty,uuid"`
	Location        string    `json:"location" validate:"max=200"`
	DayOfWeek       *int      `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime       string    `json:"start_time" validate:"required,hhmm"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1,max=600"`
	Capacity        int       `json:"capacity" validate:"min=0,max=1000"`
	StartDate       core.Date `json:"start_date" validate:"required"`
	EndDate         core.Date `json:"end_date" validate:"required"`
}

func (nl *NewLesson) Clean() {
	nl.Name = core.CleanString(nl.Name)
	nl.Location = core.CleanString(nl.Location)
	nl.StartTime = core.CleanString(nl.StartTime)
}

// UpdateLesson holds the fields to change. An empty InstructorID unassigns the instructor.
type UpdateLesson struct {
	Name            string     `json:"name" validate:"max=150"`
	ClassLevelID    *string    `json:"class_level_id" validate:"omitempty,uuid"`
	InstructorID    *string    `json:"instructor_id" validate:"omitempty,max=36"`
	Location        *string    `json:"location" validate:"omitempty,max=200"`
	DayOfWeek       *int       `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	StartTime       *string    `json:"start_time" validate:"omitempty,hhmm"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=1,max=600"`
	Capacity        *int       `json:"capacity" validate:"omitempty,min=0,max=1000"`
	StartDate       *core.Date `json:"start_date"`
	EndDate         *core.Date `json:"end_date"`
}

func (ul UpdateLesson) apply(l *Lesson) {
	if name := core.CleanString(ul.Name); name != "" {
		l.Name = name
	}
	if ul.ClassLevelID != nil {
		l.ClassLevelID = *ul.ClassLevelID
	}
	if ul.InstructorID != nil {
		l.InstructorID = *ul.InstructorID
	}
	if ul.Location != nil {
		l.Location = core.CleanString(*ul.Location)
	}
	if ul.DayOfWeek != nil {
		l.DayOfWeek = *ul.DayOfWeek
	}
	if ul.StartTime != nil {
		l.StartTime = *ul.StartTime
	}
	if ul.DurationMinutes != nil {
		l.DurationMinutes = *ul.DurationMinutes
	}
	if ul.Capacity != nil {
		l.Capacity = *ul.Capacity
	}
	if ul.StartDate != nil {
		l.StartDate = *ul.StartDate
	}
	if ul.EndDate != nil {
		l.EndDate = *ul.EndDate
	}
}

type QueryFilter struct {
	OrganizationID string
	ClassLevelID   string
	InstructorID   string
	DayOfWeek      int // -1: any day
	// set from the caller: instructors only see their lessons
	InstructorUserID string
}

func NewQueryFilter(orgID string) QueryFilter {
	return QueryFilter{OrganizationID: orgID, DayOfWeek: -1}
}
