// Package ordering maintains the total order of sections within a course and
// content items within a section. Both scopes use the same range-shift
// algorithm: only siblings between an item's old and new position move, so
// untouched siblings keep their relative order and the minimal number of
// rows is written.
package ordering

import (
	"fmt"
	"time"

	"learngate/internal/util"
	"learngate/pkg/domain"
	"learngate/pkg/store"
)

var (
	ErrSectionNotFound = fmt.Errorf("section %w", domain.ErrNotFound)
	ErrContentNotFound = fmt.Errorf("content item %w", domain.ErrNotFound)
	ErrHasChildren     = fmt.Errorf("%w: section still has content items", domain.ErrInvalidState)
	ErrNegativeOrder   = fmt.Errorf("%w: order must be non-negative", domain.ErrValidation)
)

// Service applies curriculum-tree mutations through the store. Every
// multi-row shift runs inside store.InTx so concurrent reorders on the same
// parent never observe or produce duplicate order values.
type Service struct {
	store store.CurriculumStore
	now   func() time.Time
}

// New wires the ordering service.
func New(st store.CurriculumStore) *Service {
	return &Service{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// InsertSection adds a section to a course. With at == nil it appends after
// the current maximum order; otherwise siblings at or past the requested
// position shift up by one and the section takes exactly that slot.
func (s *Service) InsertSection(sec domain.Section, at *int) (domain.Section, error) {
	if at != nil && *at < 0 {
		return domain.Section{}, ErrNegativeOrder
	}
	sec.ID = util.NewID()
	sec.CreatedAt = s.now()
	sec.UpdatedAt = sec.CreatedAt

	err := s.store.InTx(func(tx store.CurriculumStore) error {
		siblings, err := tx.ListSections(sec.CourseID)
		if err != nil {
			return fmt.Errorf("list sections: %w", err)
		}
		sec.Order = insertionOrder(sectionOrders(siblings), at)
		if at != nil {
			if err := tx.ShiftSectionOrders(sec.CourseID, *at, -1, +1); err != nil {
				return fmt.Errorf("shift sections: %w", err)
			}
		}
		if err := tx.SaveSection(sec); err != nil {
			return fmt.Errorf("save section: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Section{}, err
	}
	return sec, nil
}

// ReorderSection moves a section to newOrder, shifting only the siblings in
// the affected range.
func (s *Service) ReorderSection(sectionID string, newOrder int) (domain.Section, error) {
	if newOrder < 0 {
		return domain.Section{}, ErrNegativeOrder
	}
	var moved domain.Section
	err := s.store.InTx(func(tx store.CurriculumStore) error {
		sec, ok, err := tx.GetSection(sectionID)
		if err != nil {
			return fmt.Errorf("fetch section: %w", err)
		}
		if !ok {
			return ErrSectionNotFound
		}
		if err := rangeShift(sec.Order, newOrder, func(from, to, delta int) error {
			return tx.ShiftSectionOrders(sec.CourseID, from, to, delta)
		}); err != nil {
			return err
		}
		if sec.Order != newOrder {
			if err := tx.SetSectionOrder(sectionID, newOrder); err != nil {
				return fmt.Errorf("set section order: %w", err)
			}
		}
		sec.Order = newOrder
		moved = sec
		return nil
	})
	if err != nil {
		return domain.Section{}, err
	}
	return moved, nil
}

// DeleteSection removes an empty section. Remaining siblings keep their
// order values; gaps are fine because order only has to express a total
// order, not a contiguous sequence.
func (s *Service) DeleteSection(sectionID string) error {
	return s.store.InTx(func(tx store.CurriculumStore) error {
		_, ok, err := tx.GetSection(sectionID)
		if err != nil {
			return fmt.Errorf("fetch section: %w", err)
		}
		if !ok {
			return ErrSectionNotFound
		}
		children, err := tx.CountContentItems(sectionID)
		if err != nil {
			return fmt.Errorf("count content: %w", err)
		}
		if children > 0 {
			return ErrHasChildren
		}
		if err := tx.DeleteSection(sectionID); err != nil {
			return fmt.Errorf("delete section: %w", err)
		}
		return nil
	})
}

// InsertContent adds a content item to a section, with the same placement
// rules as InsertSection.
func (s *Service) InsertContent(item domain.ContentItem, at *int) (domain.ContentItem, error) {
	if at != nil && *at < 0 {
		return domain.ContentItem{}, ErrNegativeOrder
	}
	item.ID = util.NewID()
	item.CreatedAt = s.now()
	item.UpdatedAt = item.CreatedAt

	err := s.store.InTx(func(tx store.CurriculumStore) error {
		siblings, err := tx.ListContentItems(item.SectionID)
		if err != nil {
			return fmt.Errorf("list content: %w", err)
		}
		item.Order = insertionOrder(contentOrders(siblings), at)
		if at != nil {
			if err := tx.ShiftContentItemOrders(item.SectionID, *at, -1, +1); err != nil {
				return fmt.Errorf("shift content: %w", err)
			}
		}
		if err := tx.SaveContentItem(item); err != nil {
			return fmt.Errorf("save content: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.ContentItem{}, err
	}
	return item, nil
}

// ReorderContent moves a content item to newOrder within its section.
func (s *Service) ReorderContent(contentID string, newOrder int) (domain.ContentItem, error) {
	if newOrder < 0 {
		return domain.ContentItem{}, ErrNegativeOrder
	}
	var moved domain.ContentItem
	err := s.store.InTx(func(tx store.CurriculumStore) error {
		item, ok, err := tx.GetContentItem(contentID)
		if err != nil {
			return fmt.Errorf("fetch content: %w", err)
		}
		if !ok {
			return ErrContentNotFound
		}
		if err := rangeShift(item.Order, newOrder, func(from, to, delta int) error {
			return tx.ShiftContentItemOrders(item.SectionID, from, to, delta)
		}); err != nil {
			return err
		}
		if item.Order != newOrder {
			if err := tx.SetContentItemOrder(contentID, newOrder); err != nil {
				return fmt.Errorf("set content order: %w", err)
			}
		}
		item.Order = newOrder
		moved = item
		return nil
	})
	if err != nil {
		return domain.ContentItem{}, err
	}
	return moved, nil
}

// DeleteContent removes a content item without renumbering siblings.
func (s *Service) DeleteContent(contentID string) error {
	return s.store.InTx(func(tx store.CurriculumStore) error {
		_, ok, err := tx.GetContentItem(contentID)
		if err != nil {
			return fmt.Errorf("fetch content: %w", err)
		}
		if !ok {
			return ErrContentNotFound
		}
		if err := tx.DeleteContentItem(contentID); err != nil {
			return fmt.Errorf("delete content: %w", err)
		}
		return nil
	})
}

// insertionOrder resolves where a new sibling lands: the requested position,
// or one past the current maximum (0 when the scope is empty).
func insertionOrder(existing []int, at *int) int {
	if at != nil {
		return *at
	}
	max := -1
	for _, o := range existing {
		if o > max {
			max = o
		}
	}
	return max + 1
}

// rangeShift closes the gap left by a move. Moving down shifts (old, new]
// down by one; moving up shifts [new, old) up by one; a no-move touches
// nothing.
func rangeShift(old, newOrder int, shift func(from, to, delta int) error) error {
	switch {
	case newOrder > old:
		if err := shift(old+1, newOrder, -1); err != nil {
			return fmt.Errorf("shift range down: %w", err)
		}
	case newOrder < old:
		if err := shift(newOrder, old-1, +1); err != nil {
			return fmt.Errorf("shift range up: %w", err)
		}
	}
	return nil
}

func sectionOrders(sections []domain.Section) []int {
	out := make([]int, len(sections))
	for i, s := range sections {
		out[i] = s.Order
	}
	return out
}

func contentOrders(items []domain.ContentItem) []int {
	out := make([]int, len(items))
	for i, c := range items {
		out[i] = c.Order
	}
	return out
}
