package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type CourseModel struct {
	ID          string    `gorm:"primaryKey"`
	TrainerID   string    `gorm:"index"`
	Title       string    `gorm:"not null"`
	Description string    `gorm:"type:text"`
	Price       int64     `gorm:"not null"`
	MaxStudents int       `gorm:"not null"`
	IsPublished bool      `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

func (CourseModel) TableName() string { return "courses" }

// EnrollmentModel carries the composite unique index that closes the
// concurrent-enroll race at the storage layer.
type EnrollmentModel struct {
	ID            string    `gorm:"primaryKey"`
	UserID        string    `gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID      string    `gorm:"not null;uniqueIndex:idx_enrollment_user_course;index"`
	Status        string    `gorm:"not null;index"`
	PaymentStatus string    `gorm:"not null"`
	Progress      int       `gorm:"not null"`
	EnrolledAt    time.Time `gorm:"not null"`
	PaymentDate   *time.Time
	CompletedAt   *time.Time
	UpdatedAt     time.Time
}

func (EnrollmentModel) TableName() string { return "enrollments" }

type SectionModel struct {
	ID          string    `gorm:"primaryKey"`
	CourseID    string    `gorm:"not null;index"`
	Title       string    `gorm:"not null"`
	SortOrder   int       `gorm:"not null;index"`
	IsPublished bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

func (SectionModel) TableName() string { return "sections" }

type ContentItemModel struct {
	ID          string         `gorm:"primaryKey"`
	SectionID   string         `gorm:"not null;index"`
	CourseID    string         `gorm:"not null;index"`
	Title       string         `gorm:"not null"`
	Type        string         `gorm:"not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	SortOrder   int            `gorm:"not null;index"`
	IsRequired  bool           `gorm:"not null"`
	IsPublished bool           `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time
}

func (ContentItemModel) TableName() string { return "content_items" }

// LessonCompletionModel carries the unique index backing the
// one-row-per-(user, content) invariant.
type LessonCompletionModel struct {
	ID               string `gorm:"primaryKey"`
	UserID           string `gorm:"not null;uniqueIndex:idx_completion_user_content"`
	ContentID        string `gorm:"not null;uniqueIndex:idx_completion_user_content"`
	CourseID         string `gorm:"not null;index"`
	IsCompleted      bool   `gorm:"not null"`
	CompletedAt      *time.Time
	TimeSpentSeconds int64     `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time
}

func (LessonCompletionModel) TableName() string { return "lesson_completions" }
