// Package catalog manages the course catalog: creation, editing, and
// publication. Ownership checks live here so the HTTP layer only has to
// short-circuit on the returned error.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"learngate/internal/util"
	"learngate/pkg/domain"
	"learngate/pkg/store"
)

var (
	ErrCourseNotFound = fmt.Errorf("course %w", domain.ErrNotFound)
	ErrNotOwner       = fmt.Errorf("%w: course belongs to another trainer", domain.ErrForbidden)
	ErrTraineeRole    = fmt.Errorf("%w: trainees cannot manage courses", domain.ErrForbidden)
	ErrTitleRequired  = fmt.Errorf("%w: title is required", domain.ErrValidation)
	ErrNegativePrice  = fmt.Errorf("%w: price must be non-negative", domain.ErrValidation)
	ErrNegativeCap    = fmt.Errorf("%w: max students must be non-negative", domain.ErrValidation)
)

// Service owns catalog mutations and reads.
type Service struct {
	courses store.CourseStore
	now     func() time.Time
}

// New constructs the catalog service.
func New(courses store.CourseStore) *Service {
	return &Service{courses: courses, now: func() time.Time { return time.Now().UTC() }}
}

// Draft carries the caller-editable course fields.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	MaxStudents int    `json:"maxStudents"`
}

func (d Draft) validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if d.Price < 0 {
		return ErrNegativePrice
	}
	if d.MaxStudents < 0 {
		return ErrNegativeCap
	}
	return nil
}

// Create adds an unpublished course owned by the caller. Trainees cannot
// create courses; a super admin's course is owned by the admin account.
func (s *Service) Create(caller domain.Identity, d Draft) (domain.Course, error) {
	if caller.Role == domain.RoleTrainee {
		return domain.Course{}, ErrTraineeRole
	}
	if err := d.validate(); err != nil {
		return domain.Course{}, err
	}
	now := s.now()
	course := domain.Course{
		ID:          util.NewID(),
		TrainerID:   caller.ID,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Price:       d.Price,
		MaxStudents: d.MaxStudents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.courses.SaveCourse(course); err != nil {
		return domain.Course{}, fmt.Errorf("save course: %w", err)
	}
	return course, nil
}

// Update replaces the editable fields of a course the caller owns.
func (s *Service) Update(caller domain.Identity, courseID string, d Draft) (domain.Course, error) {
	course, err := s.ownedCourse(caller, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	if err := d.validate(); err != nil {
		return domain.Course{}, err
	}
	course.Title = strings.TrimSpace(d.Title)
	course.Description = d.Description
	course.Price = d.Price
	course.MaxStudents = d.MaxStudents
	course.UpdatedAt = s.now()
	if err := s.courses.SaveCourse(course); err != nil {
		return domain.Course{}, fmt.Errorf("save course: %w", err)
	}
	return course, nil
}

// SetPublished flips a course's published flag.
func (s *Service) SetPublished(caller domain.Identity, courseID string, published bool) (domain.Course, error) {
	course, err := s.ownedCourse(caller, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	if course.IsPublished == published {
		return course, nil
	}
	course.IsPublished = published
	course.UpdatedAt = s.now()
	if err := s.courses.SaveCourse(course); err != nil {
		return domain.Course{}, fmt.Errorf("save course: %w", err)
	}
	return course, nil
}

// Get returns one course. Unpublished courses are visible only to their
// owner and super admins.
func (s *Service) Get(caller domain.Identity, courseID string) (domain.Course, error) {
	course, ok, err := s.courses.GetCourse(courseID)
	if err != nil {
		return domain.Course{}, fmt.Errorf("fetch course: %w", err)
	}
	if !ok {
		return domain.Course{}, ErrCourseNotFound
	}
	if !course.IsPublished && !s.canManage(caller, course) {
		return domain.Course{}, ErrCourseNotFound
	}
	return course, nil
}

// List returns the courses visible to the caller: the published catalog,
// plus the caller's own drafts when they are a trainer. Super admins see
// everything.
func (s *Service) List(caller domain.Identity) ([]domain.Course, error) {
	if caller.Role == domain.RoleSuperAdmin {
		all, err := s.courses.ListAllCourses()
		if err != nil {
			return nil, fmt.Errorf("list courses: %w", err)
		}
		return all, nil
	}
	published, err := s.courses.ListPublishedCourses()
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}
	if caller.Role != domain.RoleTrainer {
		return published, nil
	}
	own, err := s.courses.ListCoursesByTrainer(caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list own: %w", err)
	}
	seen := make(map[string]bool, len(published))
	for _, c := range published {
		seen[c.ID] = true
	}
	for _, c := range own {
		if !seen[c.ID] {
			published = append(published, c)
		}
	}
	return published, nil
}

func (s *Service) ownedCourse(caller domain.Identity, courseID string) (domain.Course, error) {
	course, ok, err := s.courses.GetCourse(courseID)
	if err != nil {
		return domain.Course{}, fmt.Errorf("fetch course: %w", err)
	}
	if !ok {
		return domain.Course{}, ErrCourseNotFound
	}
	if !s.canManage(caller, course) {
		return domain.Course{}, ErrNotOwner
	}
	return course, nil
}

func (s *Service) canManage(caller domain.Identity, course domain.Course) bool {
	return caller.Role == domain.RoleSuperAdmin || course.TrainerID == caller.ID
}
