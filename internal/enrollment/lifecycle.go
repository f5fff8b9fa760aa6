// Package enrollment owns the enrollment state machine: the lifecycle status
// and the payment status are independent axes that only touch through the
// transitions defined here.
package enrollment

import (
	"errors"
	"fmt"
	"time"

	"learngate/internal/util"
	"learngate/pkg/domain"
	"learngate/pkg/store"
)

// Service mutates enrollments. Permission checks belong to the caller; the
// service only enforces state-machine rules.
type Service struct {
	enrollments store.EnrollmentStore
	courses     store.CourseStore
	now         func() time.Time
}

// New wires the lifecycle service.
func New(enrollments store.EnrollmentStore, courses store.CourseStore) *Service {
	return &Service{
		enrollments: enrollments,
		courses:     courses,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enroll creates the single enrollment row for (userID, courseID). A free
// course is immediately paid and active; a priced course starts pending on
// both axes. The storage unique index is the authoritative duplicate guard:
// a concurrent double enroll surfaces as store.ErrDuplicate and is returned
// as a conflict, with no pre-check to race against.
func (s *Service) Enroll(userID, courseID string) (domain.Enrollment, error) {
	course, ok, err := s.courses.GetCourse(courseID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("fetch course: %w", err)
	}
	if !ok {
		return domain.Enrollment{}, ErrCourseNotFound
	}
	if !course.IsPublished {
		return domain.Enrollment{}, ErrCourseUnpublished
	}
	if course.MaxStudents > 0 {
		open, err := s.enrollments.CountOpenEnrollments(courseID)
		if err != nil {
			return domain.Enrollment{}, fmt.Errorf("count enrollments: %w", err)
		}
		if open >= course.MaxStudents {
			return domain.Enrollment{}, ErrCourseFull
		}
	}

	e := domain.Enrollment{
		ID:            util.NewID(),
		UserID:        userID,
		CourseID:      courseID,
		Status:        domain.EnrollmentPending,
		PaymentStatus: domain.PaymentPending,
		EnrolledAt:    s.now(),
	}
	if course.Free() {
		e.PaymentStatus = domain.PaymentPaid
		e.Status = domain.EnrollmentActive
	}

	if err := s.enrollments.CreateEnrollment(e); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Enrollment{}, ErrAlreadyEnrolled
		}
		return domain.Enrollment{}, fmt.Errorf("create enrollment: %w", err)
	}
	return e, nil
}

// RecordPayment applies an externally reported payment outcome. The first
// transition into paid stamps the payment date and promotes a pending
// enrollment to active; repeating it is a no-op on both. A failed or
// refunded outcome never demotes an already-active status.
func (s *Service) RecordPayment(enrollmentID string, outcome domain.PaymentStatus) (domain.Enrollment, error) {
	if !domain.ValidPaymentStatus(outcome) {
		return domain.Enrollment{}, ErrBadPaymentStatus
	}
	e, ok, err := s.enrollments.GetEnrollment(enrollmentID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("fetch enrollment: %w", err)
	}
	if !ok {
		return domain.Enrollment{}, ErrEnrollmentNotFound
	}

	if outcome == domain.PaymentPaid && e.PaymentDate == nil {
		now := s.now()
		e.PaymentDate = &now
		if e.Status == domain.EnrollmentPending {
			e.Status = domain.EnrollmentActive
		}
	}
	e.PaymentStatus = outcome

	if err := s.enrollments.UpdateEnrollment(e); err != nil {
		return domain.Enrollment{}, fmt.Errorf("update enrollment: %w", err)
	}
	return e, nil
}

// SetStatus applies a caller-driven lifecycle transition. Completing stamps
// completedAt once and is idempotent; a cancelled enrollment accepts no
// further status changes, though its payment axis stays mutable for refund
// bookkeeping.
func (s *Service) SetStatus(enrollmentID string, status domain.EnrollmentStatus) (domain.Enrollment, error) {
	if !domain.ValidEnrollmentStatus(status) {
		return domain.Enrollment{}, ErrBadStatus
	}
	e, ok, err := s.enrollments.GetEnrollment(enrollmentID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("fetch enrollment: %w", err)
	}
	if !ok {
		return domain.Enrollment{}, ErrEnrollmentNotFound
	}

	if e.Status == status {
		return e, nil
	}
	if e.Status == domain.EnrollmentCancelled {
		return domain.Enrollment{}, ErrCancelled
	}
	if status == domain.EnrollmentCompleted && e.CompletedAt == nil {
		now := s.now()
		e.CompletedAt = &now
	}
	e.Status = status

	if err := s.enrollments.UpdateEnrollment(e); err != nil {
		return domain.Enrollment{}, fmt.Errorf("update enrollment: %w", err)
	}
	return e, nil
}

// SetProgress stores the caller-settable progress figure, clamped to
// [0, 100]. It never triggers a status transition; reaching 100 does not
// complete the enrollment.
func (s *Service) SetProgress(enrollmentID string, percent int) (domain.Enrollment, error) {
	e, ok, err := s.enrollments.GetEnrollment(enrollmentID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("fetch enrollment: %w", err)
	}
	if !ok {
		return domain.Enrollment{}, ErrEnrollmentNotFound
	}

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	e.Progress = percent

	if err := s.enrollments.UpdateEnrollment(e); err != nil {
		return domain.Enrollment{}, fmt.Errorf("update enrollment: %w", err)
	}
	return e, nil
}
