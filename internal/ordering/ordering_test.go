package ordering

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"learngate/pkg/domain"
	"learngate/pkg/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	return New(mem), mem
}

func seedSections(t *testing.T, svc *Service, courseID string, n int) []domain.Section {
	t.Helper()
	out := make([]domain.Section, 0, n)
	for i := 0; i < n; i++ {
		sec, err := svc.InsertSection(domain.Section{
			CourseID: courseID,
			Title:    fmt.Sprintf("Section %d", i),
		}, nil)
		if err != nil {
			t.Fatalf("seed section %d: %v", i, err)
		}
		out = append(out, sec)
	}
	return out
}

func sectionOrderByID(t *testing.T, mem *store.MemoryStore, courseID string) map[string]int {
	t.Helper()
	list, err := mem.ListSections(courseID)
	if err != nil {
		t.Fatalf("list sections: %v", err)
	}
	got := make(map[string]int, len(list))
	for _, s := range list {
		got[s.ID] = s.Order
	}
	return got
}

func assertNoDuplicateOrders(t *testing.T, orders map[string]int) {
	t.Helper()
	seen := make(map[int]string, len(orders))
	for id, o := range orders {
		if prev, dup := seen[o]; dup {
			t.Fatalf("order %d shared by %s and %s", o, prev, id)
		}
		seen[o] = id
	}
}

func TestInsertSectionAppends(t *testing.T) {
	svc, _ := newTestService(t)
	secs := seedSections(t, svc, "course-1", 3)
	for i, s := range secs {
		if s.Order != i {
			t.Fatalf("append order mismatch at %d: got %d", i, s.Order)
		}
	}
}

func TestInsertSectionIntoEmptyCourseStartsAtZero(t *testing.T) {
	svc, _ := newTestService(t)
	sec, err := svc.InsertSection(domain.Section{CourseID: "course-1", Title: "First"}, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if sec.Order != 0 {
		t.Fatalf("first section should take order 0, got %d", sec.Order)
	}
}

func TestInsertSectionAtPositionShiftsSiblingsUp(t *testing.T) {
	svc, mem := newTestService(t)
	secs := seedSections(t, svc, "course-1", 3) // orders 0,1,2

	at := 1
	inserted, err := svc.InsertSection(domain.Section{CourseID: "course-1", Title: "Wedge"}, &at)
	if err != nil {
		t.Fatalf("insert at: %v", err)
	}
	orders := sectionOrderByID(t, mem, "course-1")
	want := map[string]int{
		secs[0].ID:  0,
		inserted.ID: 1,
		secs[1].ID:  2,
		secs[2].ID:  3,
	}
	for id, o := range want {
		if orders[id] != o {
			t.Fatalf("section %s: got order %d want %d (all: %v)", id, orders[id], o, orders)
		}
	}
	assertNoDuplicateOrders(t, orders)
}

func TestReorderSectionDownShiftsRange(t *testing.T) {
	svc, mem := newTestService(t)
	secs := seedSections(t, svc, "course-1", 5) // orders 0..4

	// Move the section at 3 to 1.
	if _, err := svc.ReorderSection(secs[3].ID, 1); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	orders := sectionOrderByID(t, mem, "course-1")
	want := map[string]int{
		secs[0].ID: 0,
		secs[3].ID: 1,
		secs[1].ID: 2,
		secs[2].ID: 3,
		secs[4].ID: 4,
	}
	for id, o := range want {
		if orders[id] != o {
			t.Fatalf("section %s: got order %d want %d (all: %v)", id, orders[id], o, orders)
		}
	}
	assertNoDuplicateOrders(t, orders)
}

func TestReorderSectionUpShiftsRange(t *testing.T) {
	svc, mem := newTestService(t)
	secs := seedSections(t, svc, "course-1", 5)

	if _, err := svc.ReorderSection(secs[1].ID, 3); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	orders := sectionOrderByID(t, mem, "course-1")
	want := map[string]int{
		secs[0].ID: 0,
		secs[2].ID: 1,
		secs[3].ID: 2,
		secs[1].ID: 3,
		secs[4].ID: 4,
	}
	for id, o := range want {
		if orders[id] != o {
			t.Fatalf("section %s: got order %d want %d (all: %v)", id, orders[id], o, orders)
		}
	}
	assertNoDuplicateOrders(t, orders)
}

func TestReorderSectionToSamePositionIsNoop(t *testing.T) {
	svc, mem := newTestService(t)
	secs := seedSections(t, svc, "course-1", 3)

	if _, err := svc.ReorderSection(secs[1].ID, 1); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	orders := sectionOrderByID(t, mem, "course-1")
	for i, s := range secs {
		if orders[s.ID] != i {
			t.Fatalf("no-op reorder moved section %d to %d", i, orders[s.ID])
		}
	}
}

func TestReorderSectionValidation(t *testing.T) {
	svc, _ := newTestService(t)
	seedSections(t, svc, "course-1", 2)

	if _, err := svc.ReorderSection("missing", 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.ReorderSection("whatever", -1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcurrentReordersKeepOrdersUnique(t *testing.T) {
	svc, mem := newTestService(t)
	secs := seedSections(t, svc, "course-1", 6)

	var wg sync.WaitGroup
	moves := []struct {
		id string
		to int
	}{
		{secs[5].ID, 0}, {secs[0].ID, 4}, {secs[3].ID, 1}, {secs[2].ID, 5},
	}
	for _, mv := range moves {
		wg.Add(1)
		go func(id string, to int) {
			defer wg.Done()
			if _, err := svc.ReorderSection(id, to); err != nil {
				t.Errorf("reorder %s -> %d: %v", id, to, err)
			}
		}(mv.id, mv.to)
	}
	wg.Wait()

	assertNoDuplicateOrders(t, sectionOrderByID(t, mem, "course-1"))
}

func TestDeleteSectionRefusesWhenItHasContent(t *testing.T) {
	svc, _ := newTestService(t)
	secs := seedSections(t, svc, "course-1", 2)

	if _, err := svc.InsertContent(domain.ContentItem{
		SectionID: secs[0].ID,
		CourseID:  "course-1",
		Title:     "Lesson",
		Type:      domain.ContentText,
	}, nil); err != nil {
		t.Fatalf("insert content: %v", err)
	}

	if err := svc.DeleteSection(secs[0].ID); !errors.Is(err, ErrHasChildren) {
		t.Fatalf("expected has-children error, got %v", err)
	}
	if err := svc.DeleteSection(secs[1].ID); err != nil {
		t.Fatalf("empty section should delete: %v", err)
	}
}

func TestDeleteSectionLeavesGaps(t *testing.T) {
	svc, mem := newTestService(t)
	secs := seedSections(t, svc, "course-1", 3)

	if err := svc.DeleteSection(secs[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	orders := sectionOrderByID(t, mem, "course-1")
	if orders[secs[0].ID] != 0 || orders[secs[2].ID] != 2 {
		t.Fatalf("delete must not renumber siblings: %v", orders)
	}
}

func TestContentOrderingIsScopedToSection(t *testing.T) {
	svc, mem := newTestService(t)
	secs := seedSections(t, svc, "course-1", 2)

	var items []domain.ContentItem
	for i := 0; i < 3; i++ {
		item, err := svc.InsertContent(domain.ContentItem{
			SectionID: secs[0].ID,
			CourseID:  "course-1",
			Title:     fmt.Sprintf("A%d", i),
			Type:      domain.ContentText,
		}, nil)
		if err != nil {
			t.Fatalf("insert content: %v", err)
		}
		items = append(items, item)
	}
	other, err := svc.InsertContent(domain.ContentItem{
		SectionID: secs[1].ID,
		CourseID:  "course-1",
		Title:     "B0",
		Type:      domain.ContentVideo,
	}, nil)
	if err != nil {
		t.Fatalf("insert other: %v", err)
	}
	if other.Order != 0 {
		t.Fatalf("other section should start its own sequence, got %d", other.Order)
	}

	if _, err := svc.ReorderContent(items[2].ID, 0); err != nil {
		t.Fatalf("reorder content: %v", err)
	}
	list, err := mem.ListContentItems(secs[0].ID)
	if err != nil {
		t.Fatalf("list content: %v", err)
	}
	wantTitles := []string{"A2", "A0", "A1"}
	for i, item := range list {
		if item.Title != wantTitles[i] {
			t.Fatalf("position %d: got %s want %s", i, item.Title, wantTitles[i])
		}
	}
	// Sibling section untouched.
	if got, _, _ := mem.GetContentItem(other.ID); got.Order != 0 {
		t.Fatalf("reorder leaked into sibling section: %d", got.Order)
	}
}

func TestDeleteContent(t *testing.T) {
	svc, mem := newTestService(t)
	secs := seedSections(t, svc, "course-1", 1)
	item, err := svc.InsertContent(domain.ContentItem{
		SectionID: secs[0].ID,
		CourseID:  "course-1",
		Title:     "Lesson",
		Type:      domain.ContentText,
	}, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := svc.DeleteContent(item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteContent(item.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on double delete, got %v", err)
	}
	if n, _ := mem.CountContentItems(secs[0].ID); n != 0 {
		t.Fatalf("expected empty section, got %d items", n)
	}
}
