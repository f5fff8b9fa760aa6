package domain

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleTrainer    Role = "trainer"
	RoleTrainee    Role = "trainee"
)

type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentVideo ContentType = "video"
	ContentQuiz  ContentType = "quiz"
)

// Identity is the authenticated caller as seen by the access policy.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity returns the authorization view of the user.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role}
}

// Course carries the fields the access policy and enrollment rules read.
// Price is in minor currency units; zero means the course is free.
type Course struct {
	ID          string    `json:"id"`
	TrainerID   string    `json:"trainerId,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	MaxStudents int       `json:"maxStudents"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Free reports whether the course requires no payment.
func (c Course) Free() bool { return c.Price == 0 }

// Enrollment is the single record tying a user to a course. Status and
// PaymentStatus are independent axes; a payment outcome can promote the
// status but a later failure never demotes it.
type Enrollment struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	CourseID      string           `json:"courseId"`
	Status        EnrollmentStatus `json:"status"`
	PaymentStatus PaymentStatus    `json:"paymentStatus"`
	Progress      int              `json:"progress"`
	EnrolledAt    time.Time        `json:"enrolledAt"`
	PaymentDate   *time.Time       `json:"paymentDate,omitempty"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
}

type Section struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	Title       string    `json:"title"`
	Order       int       `json:"order"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ContentItem is a single lesson inside a section. Payload holds the
// type-specific body (video URL, text, quiz definition) as raw JSON.
type ContentItem struct {
	ID          string          `json:"id"`
	SectionID   string          `json:"sectionId"`
	CourseID    string          `json:"courseId"`
	Title       string          `json:"title"`
	Type        ContentType     `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Order       int             `json:"order"`
	IsRequired  bool            `json:"isRequired"`
	IsPublished bool            `json:"isPublished"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// LessonCompletion records one user's progress on one content item.
// At most one row exists per (UserID, ContentID); it is created on the
// first progress event and mutated afterwards.
type LessonCompletion struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	CourseID         string     `json:"courseId"`
	ContentID        string     `json:"contentId"`
	IsCompleted      bool       `json:"isCompleted"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	TimeSpentSeconds int64      `json:"timeSpentSeconds"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ValidEnrollmentStatus reports whether s is a known enrollment status.
func ValidEnrollmentStatus(s EnrollmentStatus) bool {
	switch s {
	case EnrollmentPending, EnrollmentActive, EnrollmentCompleted, EnrollmentCancelled:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleTrainer, RoleTrainee:
		return true
	}
	return false
}
