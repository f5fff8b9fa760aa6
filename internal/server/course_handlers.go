package server

import (
	"net/http"

	"learngate/internal/access"
	"learngate/internal/catalog"
	"learngate/pkg/domain"
)

type publishRequest struct {
	Published bool `json:"published"`
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request, user domain.User) {
	courses, err := s.catalog.List(user.Identity())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": courses,
		"count": len(courses),
	})
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req catalog.Draft
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	course, err := s.catalog.Create(user.Identity(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request, user domain.User) {
	course, err := s.catalog.Get(user.Identity(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !s.authorize(w, user, course, access.TierCourseAccessLoose) {
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req catalog.Draft
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	course, err := s.catalog.Update(user.Identity(), r.PathValue("id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (s *Server) handlePublishCourse(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req publishRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	course, err := s.catalog.SetPublished(user.Identity(), r.PathValue("id"), req.Published)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// authorize runs one access check and renders the denial body on failure.
// The enrollment row is read fresh on every call.
func (s *Server) authorize(w http.ResponseWriter, user domain.User, course domain.Course, tier access.Tier) bool {
	var row *domain.Enrollment
	e, ok, err := s.store.GetEnrollmentByUserCourse(user.ID, course.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if ok {
		row = &e
	}
	decision := access.Decide(user.Identity(), course, row, tier)
	if decision.Allow {
		return true
	}
	writeJSON(w, http.StatusForbidden, map[string]any{
		"error":      "forbidden",
		"reasonCode": decision.Reason,
		"details":    decision.Details,
	})
	return false
}

// visibleCourse loads a course the way a trainee sees the catalog.
func (s *Server) visibleCourse(user domain.User, courseID string) (domain.Course, error) {
	return s.catalog.Get(user.Identity(), courseID)
}
