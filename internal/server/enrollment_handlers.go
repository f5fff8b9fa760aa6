package server

import (
	"fmt"
	"net/http"

	"learngate/internal/enrollment"
	"learngate/pkg/domain"
	"learngate/pkg/events"
)

type paymentRequest struct {
	Outcome string `json:"outcome"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type progressRequest struct {
	Progress int `json:"progress"`
}

var errNotEnrollmentParty = fmt.Errorf("%w: enrollment belongs to another user", domain.ErrForbidden)

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request, user domain.User) {
	course, err := s.visibleCourse(user, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	e, err := s.enrollments.Enroll(user.ID, course.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.events.Publish(events.TypeEnrolled, e.UserID, e.CourseID, map[string]any{
		"enrollmentId": e.ID,
		"status":       e.Status,
	})
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request, user domain.User) {
	items, err := s.store.ListEnrollmentsByUser(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := s.requireEnrollmentParty(user, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	e, err := s.enrollments.RecordPayment(r.PathValue("id"), domain.PaymentStatus(req.Outcome))
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.events.Publish(events.TypePaymentRecorded, e.UserID, e.CourseID, map[string]any{
		"enrollmentId":  e.ID,
		"outcome":       req.Outcome,
		"status":        e.Status,
		"paymentStatus": e.PaymentStatus,
	})
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := s.requireEnrollmentParty(user, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	e, err := s.enrollments.SetStatus(r.PathValue("id"), domain.EnrollmentStatus(req.Status))
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.events.Publish(events.TypeStatusChanged, e.UserID, e.CourseID, map[string]any{
		"enrollmentId": e.ID,
		"status":       e.Status,
	})
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleSetProgress(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	row, err := s.requireEnrollmentParty(user, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	e, err := s.enrollments.SetProgress(row.ID, req.Progress)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// requireEnrollmentParty admits super admins, the enrolled user, and the
// trainer owning the enrolled course.
func (s *Server) requireEnrollmentParty(user domain.User, enrollmentID string) (domain.Enrollment, error) {
	row, ok, err := s.store.GetEnrollment(enrollmentID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("fetch enrollment: %w", err)
	}
	if !ok {
		return domain.Enrollment{}, enrollment.ErrEnrollmentNotFound
	}
	if user.Role == domain.RoleSuperAdmin || row.UserID == user.ID {
		return row, nil
	}
	course, ok, err := s.store.GetCourse(row.CourseID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("fetch course: %w", err)
	}
	if !ok || course.TrainerID != user.ID {
		return domain.Enrollment{}, errNotEnrollmentParty
	}
	return row, nil
}
