package store

import (
	"sort"
	"sync"
	"time"

	"learngate/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs unit tests and mirrors
// the GormStore semantics, including ErrDuplicate on the enrollment and
// completion unique pairs. InTx serializes callers instead of rolling back;
// transactional tests assert on committed outcomes only.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users       map[string]domain.User
	email       map[string]string // email -> user ID
	courses     map[string]domain.Course
	courseIDs   []string // insertion order
	enrollments map[string]domain.Enrollment
	enrollPair  map[string]string // userID|courseID -> enrollment ID
	sections    map[string]domain.Section
	content     map[string]domain.ContentItem
	completions map[string]domain.LessonCompletion
	complPair   map[string]string // userID|contentID -> completion ID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]domain.User),
		email:       make(map[string]string),
		courses:     make(map[string]domain.Course),
		enrollments: make(map[string]domain.Enrollment),
		enrollPair:  make(map[string]string),
		sections:    make(map[string]domain.Section),
		content:     make(map[string]domain.ContentItem),
		completions: make(map[string]domain.LessonCompletion),
		complPair:   make(map[string]string),
	}
}

func pairKey(a, b string) string { return a + "|" + b }

// SaveUser registers or updates a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// SaveCourse stores or replaces a course and tracks insertion order.
func (m *MemoryStore) SaveCourse(c domain.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.courses[c.ID]; !exists {
		m.courseIDs = append(m.courseIDs, c.ID)
	}
	m.courses[c.ID] = c
	return nil
}

// GetCourse retrieves a course by ID.
func (m *MemoryStore) GetCourse(id string) (domain.Course, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	return c, ok, nil
}

// ListPublishedCourses returns published courses in insertion order.
func (m *MemoryStore) ListPublishedCourses() ([]domain.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Course, 0, len(m.courseIDs))
	for _, id := range m.courseIDs {
		if c, ok := m.courses[id]; ok && c.IsPublished {
			res = append(res, c)
		}
	}
	return res, nil
}

// ListCoursesByTrainer returns courses owned by a trainer.
func (m *MemoryStore) ListCoursesByTrainer(trainerID string) ([]domain.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Course, 0, len(m.courseIDs))
	for _, id := range m.courseIDs {
		if c, ok := m.courses[id]; ok && c.TrainerID == trainerID {
			res = append(res, c)
		}
	}
	return res, nil
}

// ListAllCourses returns every course, drafts included, in insertion order.
func (m *MemoryStore) ListAllCourses() ([]domain.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Course, 0, len(m.courseIDs))
	for _, id := range m.courseIDs {
		if c, ok := m.courses[id]; ok {
			res = append(res, c)
		}
	}
	return res, nil
}

// CreateEnrollment inserts an enrollment, enforcing the (user, course)
// unique pair the same way the database index does.
func (m *MemoryStore) CreateEnrollment(e domain.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(e.UserID, e.CourseID)
	if _, exists := m.enrollPair[key]; exists {
		return ErrDuplicate
	}
	m.enrollments[e.ID] = e
	m.enrollPair[key] = e.ID
	return nil
}

// GetEnrollment retrieves an enrollment by ID.
func (m *MemoryStore) GetEnrollment(id string) (domain.Enrollment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[id]
	return e, ok, nil
}

// GetEnrollmentByUserCourse retrieves the row for a (user, course) pair.
func (m *MemoryStore) GetEnrollmentByUserCourse(userID, courseID string) (domain.Enrollment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.enrollPair[pairKey(userID, courseID)]; ok {
		e, exists := m.enrollments[id]
		return e, exists, nil
	}
	return domain.Enrollment{}, false, nil
}

// UpdateEnrollment writes back enrollment state.
func (m *MemoryStore) UpdateEnrollment(e domain.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.enrollments[e.ID]; !ok {
		return ErrMissing
	}
	m.enrollments[e.ID] = e
	return nil
}

// CountOpenEnrollments counts pending and active rows for a course.
func (m *MemoryStore) CountOpenEnrollments(courseID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.enrollments {
		if e.CourseID == courseID && (e.Status == domain.EnrollmentPending || e.Status == domain.EnrollmentActive) {
			count++
		}
	}
	return count, nil
}

// ListEnrollmentsByUser returns a user's enrollments, newest first.
func (m *MemoryStore) ListEnrollmentsByUser(userID string) ([]domain.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Enrollment
	for _, e := range m.enrollments {
		if e.UserID == userID {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].EnrolledAt.After(res[j].EnrolledAt) })
	return res, nil
}

// SaveSection stores or replaces a section.
func (m *MemoryStore) SaveSection(s domain.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections[s.ID] = s
	return nil
}

// GetSection retrieves a section by ID.
func (m *MemoryStore) GetSection(id string) (domain.Section, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sections[id]
	return s, ok, nil
}

// ListSections returns a course's sections in curriculum order.
func (m *MemoryStore) ListSections(courseID string) ([]domain.Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Section
	for _, s := range m.sections {
		if s.CourseID == courseID {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Order < res[j].Order })
	return res, nil
}

// SetSectionOrder writes a section's order value.
func (m *MemoryStore) SetSectionOrder(id string, order int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sections[id]
	if !ok {
		return ErrMissing
	}
	s.Order = order
	s.UpdatedAt = time.Now().UTC()
	m.sections[id] = s
	return nil
}

// ShiftSectionOrders adds delta to sections with order in [from, to].
func (m *MemoryStore) ShiftSectionOrders(courseID string, from, to, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sections {
		if s.CourseID != courseID {
			continue
		}
		if s.Order < from || (to >= 0 && s.Order > to) {
			continue
		}
		s.Order += delta
		m.sections[id] = s
	}
	return nil
}

// DeleteSection removes a section row.
func (m *MemoryStore) DeleteSection(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sections, id)
	return nil
}

// SaveContentItem stores or replaces a content item.
func (m *MemoryStore) SaveContentItem(c domain.ContentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[c.ID] = c
	return nil
}

// GetContentItem retrieves a content item by ID.
func (m *MemoryStore) GetContentItem(id string) (domain.ContentItem, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.content[id]
	return c, ok, nil
}

// ListContentItems returns a section's items in curriculum order.
func (m *MemoryStore) ListContentItems(sectionID string) ([]domain.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.ContentItem
	for _, c := range m.content {
		if c.SectionID == sectionID {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Order < res[j].Order })
	return res, nil
}

// ListCourseContentItems returns every item of a course grouped by section.
func (m *MemoryStore) ListCourseContentItems(courseID string) ([]domain.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.ContentItem
	for _, c := range m.content {
		if c.CourseID == courseID {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].SectionID != res[j].SectionID {
			return res[i].SectionID < res[j].SectionID
		}
		return res[i].Order < res[j].Order
	})
	return res, nil
}

// CountContentItems counts items under a section.
func (m *MemoryStore) CountContentItems(sectionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, c := range m.content {
		if c.SectionID == sectionID {
			count++
		}
	}
	return count, nil
}

// SetContentItemOrder writes a content item's order value.
func (m *MemoryStore) SetContentItemOrder(id string, order int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.content[id]
	if !ok {
		return ErrMissing
	}
	c.Order = order
	c.UpdatedAt = time.Now().UTC()
	m.content[id] = c
	return nil
}

// ShiftContentItemOrders adds delta to items with order in [from, to].
func (m *MemoryStore) ShiftContentItemOrders(sectionID string, from, to, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.content {
		if c.SectionID != sectionID {
			continue
		}
		if c.Order < from || (to >= 0 && c.Order > to) {
			continue
		}
		c.Order += delta
		m.content[id] = c
	}
	return nil
}

// DeleteContentItem removes a content item row.
func (m *MemoryStore) DeleteContentItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.content, id)
	return nil
}

// CreateCompletion inserts the first completion row for a pair, enforcing
// the (user, content) unique pair.
func (m *MemoryStore) CreateCompletion(c domain.LessonCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(c.UserID, c.ContentID)
	if _, exists := m.complPair[key]; exists {
		return ErrDuplicate
	}
	m.completions[c.ID] = c
	m.complPair[key] = c.ID
	return nil
}

// UpdateCompletion writes back completion state.
func (m *MemoryStore) UpdateCompletion(c domain.LessonCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.completions[c.ID]; !ok {
		return ErrMissing
	}
	m.completions[c.ID] = c
	return nil
}

// GetCompletion retrieves the row for a (user, content) pair.
func (m *MemoryStore) GetCompletion(userID, contentID string) (domain.LessonCompletion, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.complPair[pairKey(userID, contentID)]; ok {
		c, exists := m.completions[id]
		return c, exists, nil
	}
	return domain.LessonCompletion{}, false, nil
}

// ListCompletionsByUserCourse returns a user's completions within a course.
func (m *MemoryStore) ListCompletionsByUserCourse(userID, courseID string) ([]domain.LessonCompletion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.LessonCompletion
	for _, c := range m.completions {
		if c.UserID == userID && c.CourseID == courseID {
			res = append(res, c)
		}
	}
	return res, nil
}

// InTx serializes multi-row mutations; two concurrent reorders on the same
// store never interleave their shifts.
func (m *MemoryStore) InTx(fn func(CurriculumStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}
