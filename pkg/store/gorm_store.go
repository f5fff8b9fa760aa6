package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"learngate/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. Error translation is
// enabled so unique-index violations surface as gorm.ErrDuplicatedKey.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	models := []any{
		&UserModel{}, &CourseModel{}, &EnrollmentModel{},
		&SectionModel{}, &ContentItemModel{}, &LessonCompletionModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "name", "role", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveCourse stores or updates a course.
func (s *GormStore) SaveCourse(c domain.Course) error {
	model := courseToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"trainer_id", "title", "description", "price", "max_students", "is_published", "updated_at"}),
	}).Create(&model).Error
}

// GetCourse retrieves a course.
func (s *GormStore) GetCourse(id string) (domain.Course, bool, error) {
	var model CourseModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Course{}, false, nil
		}
		return domain.Course{}, false, err
	}
	return courseFromModel(model), true, nil
}

// ListPublishedCourses returns the public catalog ordered by creation time.
func (s *GormStore) ListPublishedCourses() ([]domain.Course, error) {
	return s.listCourses("created_at ASC", "is_published = ?", true)
}

// ListCoursesByTrainer returns courses owned by a trainer.
func (s *GormStore) ListCoursesByTrainer(trainerID string) ([]domain.Course, error) {
	return s.listCourses("created_at ASC", "trainer_id = ?", trainerID)
}

// ListAllCourses returns every course, drafts included.
func (s *GormStore) ListAllCourses() ([]domain.Course, error) {
	return s.listCourses("created_at ASC")
}

func (s *GormStore) listCourses(order string, conds ...any) ([]domain.Course, error) {
	var models []CourseModel
	tx := s.db.Order(order)
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Course, 0, len(models))
	for _, m := range models {
		res = append(res, courseFromModel(m))
	}
	return res, nil
}

// CreateEnrollment inserts a new enrollment row. The (user_id, course_id)
// unique index maps concurrent duplicates to ErrDuplicate.
func (s *GormStore) CreateEnrollment(e domain.Enrollment) error {
	model := enrollmentToModel(e)
	if err := s.db.Create(&model).Error; err != nil {
		return translateErr(err)
	}
	return nil
}

// GetEnrollment retrieves an enrollment by ID.
func (s *GormStore) GetEnrollment(id string) (domain.Enrollment, bool, error) {
	var model EnrollmentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Enrollment{}, false, nil
		}
		return domain.Enrollment{}, false, err
	}
	return enrollmentFromModel(model), true, nil
}

// GetEnrollmentByUserCourse retrieves the single row for a (user, course) pair.
func (s *GormStore) GetEnrollmentByUserCourse(userID, courseID string) (domain.Enrollment, bool, error) {
	var model EnrollmentModel
	if err := s.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Enrollment{}, false, nil
		}
		return domain.Enrollment{}, false, err
	}
	return enrollmentFromModel(model), true, nil
}

// UpdateEnrollment writes back mutable enrollment state.
func (s *GormStore) UpdateEnrollment(e domain.Enrollment) error {
	res := s.db.Model(&EnrollmentModel{}).
		Where("id = ?", e.ID).
		Updates(map[string]any{
			"status":         string(e.Status),
			"payment_status": string(e.PaymentStatus),
			"progress":       e.Progress,
			"payment_date":   e.PaymentDate,
			"completed_at":   e.CompletedAt,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMissing
	}
	return nil
}

// CountOpenEnrollments counts rows occupying a course seat.
func (s *GormStore) CountOpenEnrollments(courseID string) (int, error) {
	var count int64
	err := s.db.Model(&EnrollmentModel{}).
		Where("course_id = ? AND status IN ?", courseID, []string{
			string(domain.EnrollmentPending), string(domain.EnrollmentActive),
		}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// ListEnrollmentsByUser returns a user's enrollments, newest first.
func (s *GormStore) ListEnrollmentsByUser(userID string) ([]domain.Enrollment, error) {
	var models []EnrollmentModel
	if err := s.db.Where("user_id = ?", userID).Order("enrolled_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Enrollment, 0, len(models))
	for _, m := range models {
		res = append(res, enrollmentFromModel(m))
	}
	return res, nil
}

// SaveSection stores or updates a section.
func (s *GormStore) SaveSection(sec domain.Section) error {
	model := sectionToModel(sec)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "sort_order", "is_published", "updated_at"}),
	}).Create(&model).Error
}

// GetSection retrieves a section.
func (s *GormStore) GetSection(id string) (domain.Section, bool, error) {
	var model SectionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Section{}, false, nil
		}
		return domain.Section{}, false, err
	}
	return sectionFromModel(model), true, nil
}

// ListSections returns a course's sections in curriculum order.
func (s *GormStore) ListSections(courseID string) ([]domain.Section, error) {
	var models []SectionModel
	if err := s.db.Where("course_id = ?", courseID).Order("sort_order ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Section, 0, len(models))
	for _, m := range models {
		res = append(res, sectionFromModel(m))
	}
	return res, nil
}

// SetSectionOrder writes a section's order value.
func (s *GormStore) SetSectionOrder(id string, order int) error {
	res := s.db.Model(&SectionModel{}).Where("id = ?", id).Update("sort_order", order)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMissing
	}
	return nil
}

// ShiftSectionOrders adds delta to every section of the course whose order
// lies in [from, to]; to < 0 means no upper bound.
func (s *GormStore) ShiftSectionOrders(courseID string, from, to, delta int) error {
	tx := s.db.Model(&SectionModel{}).Where("course_id = ? AND sort_order >= ?", courseID, from)
	if to >= 0 {
		tx = tx.Where("sort_order <= ?", to)
	}
	return tx.Update("sort_order", gorm.Expr("sort_order + ?", delta)).Error
}

// DeleteSection removes a section row. Order gaps are left as-is.
func (s *GormStore) DeleteSection(id string) error {
	return s.db.Delete(&SectionModel{}, "id = ?", id).Error
}

// SaveContentItem stores or updates a content item.
func (s *GormStore) SaveContentItem(item domain.ContentItem) error {
	model := contentToModel(item)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "type", "payload", "sort_order", "is_required", "is_published", "updated_at"}),
	}).Create(&model).Error
}

// GetContentItem retrieves a content item.
func (s *GormStore) GetContentItem(id string) (domain.ContentItem, bool, error) {
	var model ContentItemModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ContentItem{}, false, nil
		}
		return domain.ContentItem{}, false, err
	}
	return contentFromModel(model), true, nil
}

// ListContentItems returns a section's items in curriculum order.
func (s *GormStore) ListContentItems(sectionID string) ([]domain.ContentItem, error) {
	return s.listContent("sort_order ASC", "section_id = ?", sectionID)
}

// ListCourseContentItems returns every item of a course, ordered by section
// then item order.
func (s *GormStore) ListCourseContentItems(courseID string) ([]domain.ContentItem, error) {
	return s.listContent("section_id ASC, sort_order ASC", "course_id = ?", courseID)
}

func (s *GormStore) listContent(order string, cond string, args ...any) ([]domain.ContentItem, error) {
	var models []ContentItemModel
	if err := s.db.Where(cond, args...).Order(order).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ContentItem, 0, len(models))
	for _, m := range models {
		res = append(res, contentFromModel(m))
	}
	return res, nil
}

// CountContentItems counts items under a section.
func (s *GormStore) CountContentItems(sectionID string) (int, error) {
	var count int64
	if err := s.db.Model(&ContentItemModel{}).Where("section_id = ?", sectionID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SetContentItemOrder writes a content item's order value.
func (s *GormStore) SetContentItemOrder(id string, order int) error {
	res := s.db.Model(&ContentItemModel{}).Where("id = ?", id).Update("sort_order", order)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMissing
	}
	return nil
}

// ShiftContentItemOrders adds delta to every item of the section whose order
// lies in [from, to]; to < 0 means no upper bound.
func (s *GormStore) ShiftContentItemOrders(sectionID string, from, to, delta int) error {
	tx := s.db.Model(&ContentItemModel{}).Where("section_id = ? AND sort_order >= ?", sectionID, from)
	if to >= 0 {
		tx = tx.Where("sort_order <= ?", to)
	}
	return tx.Update("sort_order", gorm.Expr("sort_order + ?", delta)).Error
}

// DeleteContentItem removes a content item row.
func (s *GormStore) DeleteContentItem(id string) error {
	return s.db.Delete(&ContentItemModel{}, "id = ?", id).Error
}

// CreateCompletion inserts the first completion row for a (user, content)
// pair; the unique index maps a concurrent first event to ErrDuplicate.
func (s *GormStore) CreateCompletion(c domain.LessonCompletion) error {
	model := completionToModel(c)
	if err := s.db.Create(&model).Error; err != nil {
		return translateErr(err)
	}
	return nil
}

// UpdateCompletion writes back mutable completion state.
func (s *GormStore) UpdateCompletion(c domain.LessonCompletion) error {
	res := s.db.Model(&LessonCompletionModel{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"is_completed":       c.IsCompleted,
			"completed_at":       c.CompletedAt,
			"time_spent_seconds": c.TimeSpentSeconds,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMissing
	}
	return nil
}

// GetCompletion retrieves the row for a (user, content) pair.
func (s *GormStore) GetCompletion(userID, contentID string) (domain.LessonCompletion, bool, error) {
	var model LessonCompletionModel
	if err := s.db.Where("user_id = ? AND content_id = ?", userID, contentID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LessonCompletion{}, false, nil
		}
		return domain.LessonCompletion{}, false, err
	}
	return completionFromModel(model), true, nil
}

// ListCompletionsByUserCourse returns a user's completions within a course.
func (s *GormStore) ListCompletionsByUserCourse(userID, courseID string) ([]domain.LessonCompletion, error) {
	var models []LessonCompletionModel
	if err := s.db.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.LessonCompletion, 0, len(models))
	for _, m := range models {
		res = append(res, completionFromModel(m))
	}
	return res, nil
}

// InTx runs fn inside a database transaction so multi-row order shifts
// commit or roll back as one unit.
func (s *GormStore) InTx(fn func(CurriculumStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Name:         m.Name,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func courseToModel(c domain.Course) CourseModel {
	return CourseModel{
		ID:          c.ID,
		TrainerID:   c.TrainerID,
		Title:       c.Title,
		Description: c.Description,
		Price:       c.Price,
		MaxStudents: c.MaxStudents,
		IsPublished: c.IsPublished,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func courseFromModel(m CourseModel) domain.Course {
	return domain.Course{
		ID:          m.ID,
		TrainerID:   m.TrainerID,
		Title:       m.Title,
		Description: m.Description,
		Price:       m.Price,
		MaxStudents: m.MaxStudents,
		IsPublished: m.IsPublished,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func enrollmentToModel(e domain.Enrollment) EnrollmentModel {
	return EnrollmentModel{
		ID:            e.ID,
		UserID:        e.UserID,
		CourseID:      e.CourseID,
		Status:        string(e.Status),
		PaymentStatus: string(e.PaymentStatus),
		Progress:      e.Progress,
		EnrolledAt:    e.EnrolledAt,
		PaymentDate:   e.PaymentDate,
		CompletedAt:   e.CompletedAt,
	}
}

func enrollmentFromModel(m EnrollmentModel) domain.Enrollment {
	return domain.Enrollment{
		ID:            m.ID,
		UserID:        m.UserID,
		CourseID:      m.CourseID,
		Status:        domain.EnrollmentStatus(m.Status),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		Progress:      m.Progress,
		EnrolledAt:    m.EnrolledAt,
		PaymentDate:   m.PaymentDate,
		CompletedAt:   m.CompletedAt,
	}
}

func sectionToModel(s domain.Section) SectionModel {
	return SectionModel{
		ID:          s.ID,
		CourseID:    s.CourseID,
		Title:       s.Title,
		SortOrder:   s.Order,
		IsPublished: s.IsPublished,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func sectionFromModel(m SectionModel) domain.Section {
	return domain.Section{
		ID:          m.ID,
		CourseID:    m.CourseID,
		Title:       m.Title,
		Order:       m.SortOrder,
		IsPublished: m.IsPublished,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func contentToModel(c domain.ContentItem) ContentItemModel {
	return ContentItemModel{
		ID:          c.ID,
		SectionID:   c.SectionID,
		CourseID:    c.CourseID,
		Title:       c.Title,
		Type:        string(c.Type),
		Payload:     datatypes.JSON(c.Payload),
		SortOrder:   c.Order,
		IsRequired:  c.IsRequired,
		IsPublished: c.IsPublished,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func contentFromModel(m ContentItemModel) domain.ContentItem {
	return domain.ContentItem{
		ID:          m.ID,
		SectionID:   m.SectionID,
		CourseID:    m.CourseID,
		Title:       m.Title,
		Type:        domain.ContentType(m.Type),
		Payload:     json.RawMessage(m.Payload),
		Order:       m.SortOrder,
		IsRequired:  m.IsRequired,
		IsPublished: m.IsPublished,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func completionToModel(c domain.LessonCompletion) LessonCompletionModel {
	return LessonCompletionModel{
		ID:               c.ID,
		UserID:           c.UserID,
		ContentID:        c.ContentID,
		CourseID:         c.CourseID,
		IsCompleted:      c.IsCompleted,
		CompletedAt:      c.CompletedAt,
		TimeSpentSeconds: c.TimeSpentSeconds,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func completionFromModel(m LessonCompletionModel) domain.LessonCompletion {
	return domain.LessonCompletion{
		ID:               m.ID,
		UserID:           m.UserID,
		ContentID:        m.ContentID,
		CourseID:         m.CourseID,
		IsCompleted:      m.IsCompleted,
		CompletedAt:      m.CompletedAt,
		TimeSpentSeconds: m.TimeSpentSeconds,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
