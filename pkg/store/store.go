package store

import "learngate/pkg/domain"

// UserStore persists user accounts.
type UserStore interface {
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
}

// CourseStore persists the course catalog.
type CourseStore interface {
	SaveCourse(domain.Course) error
	GetCourse(id string) (domain.Course, bool, error)
	ListPublishedCourses() ([]domain.Course, error)
	ListCoursesByTrainer(trainerID string) ([]domain.Course, error)
	ListAllCourses() ([]domain.Course, error)
}

// EnrollmentStore persists enrollments. The storage layer carries a unique
// index on (userID, courseID); CreateEnrollment returns ErrDuplicate when it
// fires, which is the authoritative guard against a concurrent double enroll.
type EnrollmentStore interface {
	CreateEnrollment(domain.Enrollment) error
	GetEnrollment(id string) (domain.Enrollment, bool, error)
	GetEnrollmentByUserCourse(userID, courseID string) (domain.Enrollment, bool, error)
	UpdateEnrollment(domain.Enrollment) error
	CountOpenEnrollments(courseID string) (int, error)
	ListEnrollmentsByUser(userID string) ([]domain.Enrollment, error)
}

// CurriculumStore persists the section/content tree. List results come back
// ordered by the order column. The Shift/Set mutations only make sense inside
// InTx; callers compose them into atomic range shifts.
type CurriculumStore interface {
	SaveSection(domain.Section) error
	GetSection(id string) (domain.Section, bool, error)
	ListSections(courseID string) ([]domain.Section, error)
	SetSectionOrder(id string, order int) error
	// ShiftSectionOrders adds delta to the order of every section of the
	// course whose order lies in [from, to]; to < 0 means no upper bound.
	ShiftSectionOrders(courseID string, from, to, delta int) error
	DeleteSection(id string) error

	SaveContentItem(domain.ContentItem) error
	GetContentItem(id string) (domain.ContentItem, bool, error)
	ListContentItems(sectionID string) ([]domain.ContentItem, error)
	ListCourseContentItems(courseID string) ([]domain.ContentItem, error)
	CountContentItems(sectionID string) (int, error)
	SetContentItemOrder(id string, order int) error
	ShiftContentItemOrders(sectionID string, from, to, delta int) error
	DeleteContentItem(id string) error

	// InTx runs fn against a store view whose writes commit or roll back as
	// one unit. Reorder and insert shifts must run inside it.
	InTx(fn func(CurriculumStore) error) error
}

// CompletionStore persists lesson completions. A unique index on
// (userID, contentID) backs the one-row-per-pair invariant; CreateCompletion
// returns ErrDuplicate when a concurrent first event already created the row.
type CompletionStore interface {
	CreateCompletion(domain.LessonCompletion) error
	UpdateCompletion(domain.LessonCompletion) error
	GetCompletion(userID, contentID string) (domain.LessonCompletion, bool, error)
	ListCompletionsByUserCourse(userID, courseID string) ([]domain.LessonCompletion, error)
}

// Store is the full persistence surface the service wires together.
type Store interface {
	UserStore
	CourseStore
	EnrollmentStore
	CurriculumStore
	CompletionStore
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
