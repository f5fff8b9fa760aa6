// Package progress computes a user's progress through a course on demand.
// The report is a pure read model derived from lesson completions; it is
// recomputed per request and never stored, so it always reflects the current
// curriculum and completion rows.
package progress

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"learngate/internal/util"
	"learngate/pkg/domain"
	"learngate/pkg/store"
)

var (
	ErrContentNotFound = fmt.Errorf("content item %w", domain.ErrNotFound)
	ErrNegativeTime    = fmt.Errorf("%w: time spent must be non-negative", domain.ErrValidation)
)

// recentActivityLimit caps the activity feed in a report.
const recentActivityLimit = 10

// SectionProgress is the per-section slice of a report.
type SectionProgress struct {
	SectionID      string `json:"sectionId"`
	Title          string `json:"title"`
	Order          int    `json:"order"`
	TotalItems     int    `json:"totalItems"`
	CompletedItems int    `json:"completedItems"`
	Progress       int    `json:"progress"`
}

// Activity is one entry in the recent-activity feed.
type Activity struct {
	ContentID        string    `json:"contentId"`
	ContentTitle     string    `json:"contentTitle"`
	CompletedAt      time.Time `json:"completedAt"`
	TimeSpentSeconds int64     `json:"timeSpentSeconds"`
}

// Report is the full progress read model for one user and course.
type Report struct {
	CourseID              string            `json:"courseId"`
	UserID                string            `json:"userId"`
	Overall               int               `json:"overall"`
	TotalItems            int               `json:"totalItems"`
	CompletedItems        int               `json:"completedItems"`
	TotalTimeSpentSeconds int64             `json:"totalTimeSpentSeconds"`
	Sections              []SectionProgress `json:"sections"`
	RecentActivity        []Activity        `json:"recentActivity"`
}

// Service computes reports and records the completion events they are
// derived from.
type Service struct {
	curriculum  store.CurriculumStore
	completions store.CompletionStore
	now         func() time.Time
}

// New wires the progress service.
func New(curriculum store.CurriculumStore, completions store.CompletionStore) *Service {
	return &Service{
		curriculum:  curriculum,
		completions: completions,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Compute builds the progress report for one user and course. Only published
// content items count toward the totals; unpublished drafts would otherwise
// deflate a learner's percentage for material they cannot see. A section
// with no countable items reports 0, as does a course with no content.
func (s *Service) Compute(userID, courseID string) (Report, error) {
	var (
		sections    []domain.Section
		items       []domain.ContentItem
		completions []domain.LessonCompletion
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		sections, err = s.curriculum.ListSections(courseID)
		if err != nil {
			return fmt.Errorf("list sections: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = s.curriculum.ListCourseContentItems(courseID)
		if err != nil {
			return fmt.Errorf("list content: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		completions, err = s.completions.ListCompletionsByUserCourse(userID, courseID)
		if err != nil {
			return fmt.Errorf("list completions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	completedBy := make(map[string]domain.LessonCompletion, len(completions))
	for _, c := range completions {
		if c.IsCompleted {
			completedBy[c.ContentID] = c
		}
	}

	bySection := make(map[string][]domain.ContentItem, len(sections))
	for _, item := range items {
		if !item.IsPublished {
			continue
		}
		bySection[item.SectionID] = append(bySection[item.SectionID], item)
	}

	report := Report{
		CourseID: courseID,
		UserID:   userID,
		Sections: make([]SectionProgress, 0, len(sections)),
	}
	for _, sec := range sections {
		secItems := bySection[sec.ID]
		completed := 0
		for _, item := range secItems {
			if _, ok := completedBy[item.ID]; ok {
				completed++
			}
		}
		report.Sections = append(report.Sections, SectionProgress{
			SectionID:      sec.ID,
			Title:          sec.Title,
			Order:          sec.Order,
			TotalItems:     len(secItems),
			CompletedItems: completed,
			Progress:       percent(completed, len(secItems)),
		})
		report.TotalItems += len(secItems)
		report.CompletedItems += completed
	}
	report.Overall = percent(report.CompletedItems, report.TotalItems)

	for _, c := range completions {
		report.TotalTimeSpentSeconds += c.TimeSpentSeconds
	}
	report.RecentActivity = recentActivity(completions, items)

	return report, nil
}

// RecordCompletion marks a content item completed for a user, accumulating
// time spent. The first event creates the completion row; later events
// update it. The (userID, contentID) unique index settles a race between two
// concurrent first events: the loser re-reads the winner's row and updates
// it instead.
func (s *Service) RecordCompletion(userID, contentID string, timeSpentSeconds int64) (domain.LessonCompletion, error) {
	if timeSpentSeconds < 0 {
		return domain.LessonCompletion{}, ErrNegativeTime
	}
	item, ok, err := s.curriculum.GetContentItem(contentID)
	if err != nil {
		return domain.LessonCompletion{}, fmt.Errorf("fetch content: %w", err)
	}
	if !ok {
		return domain.LessonCompletion{}, ErrContentNotFound
	}

	existing, ok, err := s.completions.GetCompletion(userID, contentID)
	if err != nil {
		return domain.LessonCompletion{}, fmt.Errorf("fetch completion: %w", err)
	}
	if ok {
		return s.complete(existing, timeSpentSeconds)
	}

	now := s.now()
	fresh := domain.LessonCompletion{
		ID:               util.NewID(),
		UserID:           userID,
		CourseID:         item.CourseID,
		ContentID:        contentID,
		IsCompleted:      true,
		CompletedAt:      &now,
		TimeSpentSeconds: timeSpentSeconds,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	switch err := s.completions.CreateCompletion(fresh); {
	case err == nil:
		return fresh, nil
	case errors.Is(err, store.ErrDuplicate):
		existing, ok, err := s.completions.GetCompletion(userID, contentID)
		if err != nil {
			return domain.LessonCompletion{}, fmt.Errorf("refetch completion: %w", err)
		}
		if !ok {
			return domain.LessonCompletion{}, fmt.Errorf("refetch completion: %w", store.ErrMissing)
		}
		return s.complete(existing, timeSpentSeconds)
	default:
		return domain.LessonCompletion{}, fmt.Errorf("create completion: %w", err)
	}
}

// complete folds one more completion event into an existing row. CompletedAt
// records the first completion and is never overwritten.
func (s *Service) complete(c domain.LessonCompletion, timeSpentSeconds int64) (domain.LessonCompletion, error) {
	now := s.now()
	c.IsCompleted = true
	if c.CompletedAt == nil {
		c.CompletedAt = &now
	}
	c.TimeSpentSeconds += timeSpentSeconds
	c.UpdatedAt = now
	if err := s.completions.UpdateCompletion(c); err != nil {
		return domain.LessonCompletion{}, fmt.Errorf("update completion: %w", err)
	}
	return c, nil
}

// percent rounds completed/total to a whole percentage, 0 when total is 0.
func percent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// recentActivity returns the newest completed events, capped.
func recentActivity(completions []domain.LessonCompletion, items []domain.ContentItem) []Activity {
	titles := make(map[string]string, len(items))
	for _, item := range items {
		titles[item.ID] = item.Title
	}

	out := make([]Activity, 0, recentActivityLimit)
	for _, c := range completions {
		if !c.IsCompleted || c.CompletedAt == nil {
			continue
		}
		out = append(out, Activity{
			ContentID:        c.ContentID,
			ContentTitle:     titles[c.ContentID],
			CompletedAt:      *c.CompletedAt,
			TimeSpentSeconds: c.TimeSpentSeconds,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	if len(out) > recentActivityLimit {
		out = out[:recentActivityLimit]
	}
	return out
}
