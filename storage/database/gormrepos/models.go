package gormrepos

import (
	"time"
)

// Rows mirror the tables of assets/migrations. They carry the gorm tags used by AutoMigrate in tests.

type organizationRow struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	Name      string    `gorm:"size:200;not null"`
	Email     string    `gorm:"size:254;not null;default:''"`
	Phone     string    `gorm:"size:30;not null;default:''"`
	Address   string    `gorm:"not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (organizationRow) TableName() string { return "organizations" }

type userRow struct {
	ID             string  `gorm:"primaryKey;type:uuid"`
	OrganizationID *string `gorm:"type:uuid;index"`
	Name           string  `gorm:"size:150;not null"`
	Email          string  `gorm:"size:254;not null;uniqueIndex"`
	PasswordHash   []byte  `gorm:"not null"`
	Role           string  `gorm:"size:20;not null"`
	IsActive       bool    `gorm:"not null"`
	LastLogin      *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

type adminRow struct {
	ID             string    `gorm:"primaryKey;type:uuid"`
	UserID         string    `gorm:"type:uuid;not null;uniqueIndex"`
	OrganizationID string    `gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (adminRow) TableName() string { return "admins" }

type instructorRow struct {
	ID             string    `gorm:"primaryKey;type:uuid"`
	UserID         string    `gorm:"type:uuid;not null;uniqueIndex"`
	OrganizationID string    `gorm:"type:uuid;not null;index"`
	Phone          string    `gorm:"size:30;not null;default:''"`
	Bio            string    `gorm:"not null;default:''"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (instructorRow) TableName() string { return "instructors" }

type parentRow struct {
	ID             string    `gorm:"primaryKey;type:uuid"`
	UserID         string    `gorm:"type:uuid;not null;uniqueIndex"`
	OrganizationID string    `gorm:"type:uuid;not null;index"`
	Phone          string    `gorm:"size:30;not null;default:''"`
	Address        string    `gorm:"not null;default:''"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (parentRow) TableName() string { return "parents" }

type childRow struct {
	ID             string     `gorm:"primaryKey;type:uuid"`
	OrganizationID string     `gorm:"type:uuid;not null;index"`
	FirstName      string     `gorm:"size:100;not null"`
	LastName       string     `gorm:"size:100;not null"`
	BirthDate      *time.Time `gorm:"type:date"`
	Notes          string     `gorm:"not null;default:''"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

func (childRow) TableName() string { return "children" }

type parentChildRow struct {
	ParentID string `gorm:"primaryKey;type:uuid"`
	ChildID  string `gorm:"primaryKey;type:uuid;index"`
}

func (parentChildRow) TableName() string { return "parent_children" }

type classLevelRow struct {
	ID             string    `gorm:"primaryKey;type:uuid"`
	OrganizationID string    `gorm:"type:uuid;not null;index"`
	Name           string    `gorm:"size:150;not null"`
	Description    string    `gorm:"not null;default:''"`
	Position       int       `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (classLevelRow) TableName() string { return "class_levels" }

type skillRow struct {
	ID           string    `gorm:"primaryKey;type:uuid"`
	ClassLevelID string    `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"size:150;not null"`
	Description  string    `gorm:"not null;default:''"`
	Position     int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (skillRow) TableName() string { return "skills" }

type lessonRow struct {
	ID              string    `gorm:"primaryKey;type:uuid"`
	OrganizationID  string    `gorm:"type:uuid;not null;index"`
	ClassLevelID    string    `gorm:"type:uuid;not null;index"`
	InstructorID    *string   `gorm:"type:uuid;index"`
	Name            string    `gorm:"size:150;not null"`
	Location        string    `gorm:"size:200;not null;default:''"`
	DayOfWeek       int       `gorm:"type:smallint;not null"`
	StartTime       string    `gorm:"size:5;not null"`
	DurationMinutes int       `gorm:"not null"`
	Capacity        int       `gorm:"not null;default:0"`
	StartDate       time.Time `gorm:"type:date;not null"`
	EndDate         time.Time `gorm:"type:date;not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (lessonRow) TableName() string { return "lessons" }

type enrollmentRow struct {
	ID                string    `gorm:"primaryKey;type:uuid"`
	ChildID           string    `gorm:"type:uuid;not null;uniqueIndex:enrollments_child_lesson"`
	LessonID          string    `gorm:"type:uuid;not null;uniqueIndex:enrollments_child_lesson;index"`
	StartDate         time.Time `gorm:"type:date;not null"`
	EndDate           time.Time `gorm:"type:date;not null"`
	ReadyForNextLevel bool      `gorm:"not null"`
	ReadinessNotes    string    `gorm:"not null;default:''"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (enrollmentRow) TableName() string { return "enrollments" }

type skillProgressRow struct {
	ID           string    `gorm:"primaryKey;type:uuid"`
	EnrollmentID string    `gorm:"type:uuid;not null;uniqueIndex:skill_progress_enrollment_skill"`
	SkillID      string    `gorm:"type:uuid;not null;uniqueIndex:skill_progress_enrollment_skill;index"`
	Status       string    `gorm:"size:20;not null;default:NOT_STARTED"`
	Notes        string    `gorm:"not null;default:''"`
	UpdatedBy    *string   `gorm:"type:uuid"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (skillProgressRow) TableName() string { return "skill_progress" }

type notificationRow struct {
	ID        string            `gorm:"primaryKey;type:uuid"`
	UserID    string            `gorm:"type:uuid;not null;index"`
	Title     string            `gorm:"size:200;not null"`
	Body      string            `gorm:"not null;default:''"`
	Data      map[string]string `gorm:"type:jsonb;serializer:json;not null"`
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

func (notificationRow) TableName() string { return "notifications" }

type deviceTokenRow struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	UserID    string    `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"size:255;not null;uniqueIndex"`
	Platform  string    `gorm:"size:20;not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
}

func (deviceTokenRow) TableName() string { return "device_tokens" }

// Models returns the rows of every table, parents first, for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&organizationRow{},
		&userRow{},
		&adminRow{},
		&instructorRow{},
		&parentRow{},
		&childRow{},
		&parentChildRow{},
		&classLevelRow{},
		&skillRow{},
		&lessonRow{},
		&enrollmentRow{},
		&skillProgressRow{},
		&notificationRow{},
		&deviceTokenRow{},
	}
}
