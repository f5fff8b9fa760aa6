package enrollment

import (
	"fmt"

	"learngate/pkg/domain"
)

var (
	ErrCourseNotFound     = fmt.Errorf("course %w", domain.ErrNotFound)
	ErrEnrollmentNotFound = fmt.Errorf("enrollment %w", domain.ErrNotFound)
	ErrAlreadyEnrolled    = fmt.Errorf("%w: user already enrolled in course", domain.ErrConflict)
	ErrCourseUnpublished  = fmt.Errorf("%w: course is not published", domain.ErrInvalidState)
	ErrCourseFull         = fmt.Errorf("%w: course is at capacity", domain.ErrInvalidState)
	ErrCancelled          = fmt.Errorf("%w: enrollment is cancelled", domain.ErrInvalidState)
	ErrBadStatus          = fmt.Errorf("%w: unknown enrollment status", domain.ErrValidation)
	ErrBadPaymentStatus   = fmt.Errorf("%w: unknown payment status", domain.ErrValidation)
)
