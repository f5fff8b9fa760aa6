// Package access decides whether an identity may reach a course resource.
// Decisions are pure functions of the passed-in state; nothing is cached
// between calls because payment state changes asynchronously.
package access

import "learngate/pkg/domain"

// Tier names the strictness level a resource class demands.
type Tier string

const (
	// TierPaidContent guards actual course material: the trainee needs an
	// active enrollment with settled payment.
	TierPaidContent Tier = "paid_content"
	// TierEnrollmentOnly requires any enrollment row, whatever its state.
	TierEnrollmentOnly Tier = "enrollment_only"
	// TierCourseAccessLoose admits any authenticated caller. Kept as its own
	// named tier so the permissiveness is visible at call sites.
	TierCourseAccessLoose Tier = "course_access_loose"
)

// Reason codes a denial for the caller's error body.
type Reason string

const (
	ReasonNoEnrollment       Reason = "no_enrollment"
	ReasonPaymentRequired    Reason = "payment_required"
	ReasonEnrollmentInactive Reason = "enrollment_inactive"
)

// Details gives the caller enough structure to render next-step UI.
type Details struct {
	RequiresEnrollment bool                 `json:"requiresEnrollment,omitempty"`
	RequiresPayment    bool                 `json:"requiresPayment,omitempty"`
	PaymentStatus      domain.PaymentStatus `json:"paymentStatus,omitempty"`
	CoursePrice        int64                `json:"coursePrice"`
	RequiresActivation bool                 `json:"requiresActivation,omitempty"`
}

// Decision is the outcome of a single access check.
type Decision struct {
	Allow   bool    `json:"allow"`
	Reason  Reason  `json:"reason,omitempty"`
	Details Details `json:"details"`
}

func allow() Decision {
	return Decision{Allow: true}
}

func deny(reason Reason, details Details) Decision {
	return Decision{Allow: false, Reason: reason, Details: details}
}

// Decide evaluates one access check. enrollment is nil when the identity has
// no row for the course; it must be freshly read by the caller for every
// request. Super admins pass every tier, as does the trainer owning the
// course. A free course still requires an enrollment row under
// TierPaidContent, but once one exists its payment axis is ignored.
func Decide(identity domain.Identity, course domain.Course, enrollment *domain.Enrollment, tier Tier) Decision {
	if identity.Role == domain.RoleSuperAdmin {
		return allow()
	}
	if identity.Role == domain.RoleTrainer && course.TrainerID != "" && course.TrainerID == identity.ID {
		return allow()
	}

	switch tier {
	case TierCourseAccessLoose:
		return allow()

	case TierEnrollmentOnly:
		if enrollment == nil {
			return deny(ReasonNoEnrollment, Details{
				RequiresEnrollment: true,
				CoursePrice:        course.Price,
			})
		}
		return allow()

	default: // TierPaidContent
		if enrollment == nil {
			return deny(ReasonNoEnrollment, Details{
				RequiresEnrollment: true,
				RequiresPayment:    !course.Free(),
				CoursePrice:        course.Price,
			})
		}
		paid := enrollment.PaymentStatus == domain.PaymentPaid || course.Free()
		if !paid {
			return deny(ReasonPaymentRequired, Details{
				RequiresPayment: true,
				PaymentStatus:   enrollment.PaymentStatus,
				CoursePrice:     course.Price,
			})
		}
		if enrollment.Status != domain.EnrollmentActive {
			return deny(ReasonEnrollmentInactive, Details{
				RequiresActivation: true,
				PaymentStatus:      enrollment.PaymentStatus,
				CoursePrice:        course.Price,
			})
		}
		return allow()
	}
}
