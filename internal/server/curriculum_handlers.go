package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"learngate/internal/access"
	"learngate/internal/ordering"
	"learngate/pkg/domain"
	"learngate/pkg/events"
)

type insertSectionRequest struct {
	Title string `json:"title"`
	At    *int   `json:"at,omitempty"`
}

type insertContentRequest struct {
	Title     string          `json:"title"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Required  bool            `json:"isRequired"`
	Published bool            `json:"isPublished"`
	At        *int            `json:"at,omitempty"`
}

type reorderRequest struct {
	Order int `json:"order"`
}

type completeRequest struct {
	TimeSpentSeconds int64 `json:"timeSpentSeconds"`
}

// outlineItem is the enrollment-tier view of a content item: structure
// without the paid payload.
type outlineItem struct {
	ID    string             `json:"id"`
	Title string             `json:"title"`
	Type  domain.ContentType `json:"type"`
	Order int                `json:"order"`
}

type outlineSection struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Order int           `json:"order"`
	Items []outlineItem `json:"items"`
}

var errNotCourseManager = fmt.Errorf("%w: only the course trainer may edit the curriculum", domain.ErrForbidden)

func (s *Server) handleCourseOutline(w http.ResponseWriter, r *http.Request, user domain.User) {
	course, err := s.visibleCourse(user, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !s.authorize(w, user, course, access.TierEnrollmentOnly) {
		return
	}
	sections, err := s.store.ListSections(course.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	items, err := s.store.ListCourseContentItems(course.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	bySection := make(map[string][]outlineItem, len(sections))
	for _, item := range items {
		if !item.IsPublished {
			continue
		}
		bySection[item.SectionID] = append(bySection[item.SectionID], outlineItem{
			ID:    item.ID,
			Title: item.Title,
			Type:  item.Type,
			Order: item.Order,
		})
	}
	out := make([]outlineSection, 0, len(sections))
	for _, sec := range sections {
		entries := bySection[sec.ID]
		if entries == nil {
			entries = []outlineItem{}
		}
		out = append(out, outlineSection{ID: sec.ID, Title: sec.Title, Order: sec.Order, Items: entries})
	}
	writeJSON(w, http.StatusOK, map[string]any{"courseId": course.ID, "sections": out})
}

func (s *Server) handleCourseContent(w http.ResponseWriter, r *http.Request, user domain.User) {
	course, err := s.visibleCourse(user, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !s.authorize(w, user, course, access.TierPaidContent) {
		return
	}
	items, err := s.store.ListCourseContentItems(course.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	visible := make([]domain.ContentItem, 0, len(items))
	manager := s.canManageCourse(user, course)
	for _, item := range items {
		if item.IsPublished || manager {
			visible = append(visible, item)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": visible,
		"count": len(visible),
	})
}

func (s *Server) handleInsertSection(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req insertSectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	course, err := s.visibleCourse(user, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !s.canManageCourse(user, course) {
		respondError(w, r, errNotCourseManager)
		return
	}
	sec, err := s.ordering.InsertSection(domain.Section{
		CourseID:    course.ID,
		Title:       req.Title,
		IsPublished: true,
	}, req.At)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

func (s *Server) handleReorderSection(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.requireSectionManager(user, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	sec, err := s.ordering.ReorderSection(r.PathValue("id"), req.Order)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) handleDeleteSection(w http.ResponseWriter, r *http.Request, user domain.User) {
	if err := s.requireSectionManager(user, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.ordering.DeleteSection(r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInsertContent(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req insertContentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sec, ok, err := s.store.GetSection(r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !ok {
		respondError(w, r, ordering.ErrSectionNotFound)
		return
	}
	if err := s.requireCourseManagerByID(user, sec.CourseID); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := s.ordering.InsertContent(domain.ContentItem{
		SectionID:   sec.ID,
		CourseID:    sec.CourseID,
		Title:       req.Title,
		Type:        domain.ContentType(req.Type),
		Payload:     req.Payload,
		IsRequired:  req.Required,
		IsPublished: req.Published,
	}, req.At)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleReorderContent(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.requireContentManager(user, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := s.ordering.ReorderContent(r.PathValue("id"), req.Order)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteContent(w http.ResponseWriter, r *http.Request, user domain.User) {
	if err := s.requireContentManager(user, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.ordering.DeleteContent(r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	item, ok, err := s.store.GetContentItem(r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !ok {
		respondError(w, r, ordering.ErrContentNotFound)
		return
	}
	course, ok, err := s.store.GetCourse(item.CourseID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !ok {
		respondError(w, r, fmt.Errorf("course %w", domain.ErrNotFound))
		return
	}
	if !s.authorize(w, user, course, access.TierPaidContent) {
		return
	}
	completion, err := s.progress.RecordCompletion(user.ID, item.ID, req.TimeSpentSeconds)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.events.Publish(events.TypeLessonCompleted, user.ID, item.CourseID, map[string]any{
		"contentId":        item.ID,
		"timeSpentSeconds": completion.TimeSpentSeconds,
	})
	writeJSON(w, http.StatusOK, completion)
}

func (s *Server) handleProgressReport(w http.ResponseWriter, r *http.Request, user domain.User) {
	course, err := s.visibleCourse(user, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !s.authorize(w, user, course, access.TierEnrollmentOnly) {
		return
	}
	report, err := s.progress.Compute(user.ID, course.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) canManageCourse(user domain.User, course domain.Course) bool {
	return user.Role == domain.RoleSuperAdmin || course.TrainerID == user.ID
}

func (s *Server) requireCourseManagerByID(user domain.User, courseID string) error {
	course, ok, err := s.store.GetCourse(courseID)
	if err != nil {
		return fmt.Errorf("fetch course: %w", err)
	}
	if !ok {
		return fmt.Errorf("course %w", domain.ErrNotFound)
	}
	if !s.canManageCourse(user, course) {
		return errNotCourseManager
	}
	return nil
}

func (s *Server) requireSectionManager(user domain.User, sectionID string) error {
	sec, ok, err := s.store.GetSection(sectionID)
	if err != nil {
		return fmt.Errorf("fetch section: %w", err)
	}
	if !ok {
		return ordering.ErrSectionNotFound
	}
	return s.requireCourseManagerByID(user, sec.CourseID)
}

func (s *Server) requireContentManager(user domain.User, contentID string) error {
	item, ok, err := s.store.GetContentItem(contentID)
	if err != nil {
		return fmt.Errorf("fetch content: %w", err)
	}
	if !ok {
		return ordering.ErrContentNotFound
	}
	return s.requireCourseManagerByID(user, item.CourseID)
}
