package report

import "github.com/lanes-app/lanes/core"

// ClassLevelProgress sums up the progress of the enrollments at one class level.
type ClassLevelProgress struct {
	ClassLevelID      string `json:"class_level_id" db:"class_level_id"`
	ClassLevelName    string `json:"class_level_name" db:"class_level_name"`
	Position          int    `json:"position" db:"position"`
	ActiveEnrollments int64  `json:"active_enrollments" db:"active_enrollments"`
	CompletedSkills   int64  `json:"completed_skills" db:"completed_skills"`
	TotalSkills       int64  `json:"total_skills" db:"total_skills"`
	ReadyForNextLevel int64  `json:"ready_for_next_level" db:"ready_for_next_level"`
}

// RosterLine is the status of one skill for one enrollment of a lesson.
// Enrollments without progress come with an empty SkillID.
type RosterLine struct {
	EnrollmentID      string `db:"enrollment_id"`
	FirstName         string `db:"first_name"`
	LastName          string `db:"last_name"`
	ReadyForNextLevel bool   `db:"ready_for_next_level"`
	SkillID           string `db:"skill_id"`
	Status            string `db:"status"`
}

// Roster is the lesson sheet: one row per enrolled child, one column per skill.
type Roster struct {
	LessonName string
	StartDate  core.Date
	EndDate    core.Date
	Skills     []RosterSkill
	Rows       []RosterRow
}

type RosterSkill struct {
	ID   string
	Name string
}

type RosterRow struct {
	ChildName         string
	ReadyForNextLevel bool
	// Statuses by skill id
	Statuses map[string]string
}
