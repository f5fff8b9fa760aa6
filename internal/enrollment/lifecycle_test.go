package enrollment

import (
	"errors"
	"sync"
	"testing"
	"time"

	"learngate/pkg/domain"
	"learngate/pkg/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	svc := New(mem, mem)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, mem
}

func seedCourse(t *testing.T, mem *store.MemoryStore, c domain.Course) domain.Course {
	t.Helper()
	if c.ID == "" {
		c.ID = "course-1"
	}
	if err := mem.SaveCourse(c); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c
}

func TestEnrollPricedCourseStartsPendingOnBothAxes(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Algo", Price: 4999, IsPublished: true})

	e, err := svc.Enroll("user-1", course.ID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if e.Status != domain.EnrollmentPending || e.PaymentStatus != domain.PaymentPending {
		t.Fatalf("unexpected initial state: %s/%s", e.Status, e.PaymentStatus)
	}
	if e.PaymentDate != nil {
		t.Fatalf("priced enrollment should have no payment date yet")
	}
}

func TestEnrollFreeCourseIsPaidAndActiveImmediately(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Intro", Price: 0, IsPublished: true})

	e, err := svc.Enroll("user-1", course.ID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if e.Status != domain.EnrollmentActive || e.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("free enrollment should be active/paid, got %s/%s", e.Status, e.PaymentStatus)
	}
}

func TestEnrollMissingCourse(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Enroll("user-1", "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEnrollUnpublishedCourse(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Draft", Price: 100, IsPublished: false})
	if _, err := svc.Enroll("user-1", course.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestEnrollFullCourse(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Tiny", Price: 0, IsPublished: true, MaxStudents: 1})

	if _, err := svc.Enroll("user-1", course.ID); err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	if _, err := svc.Enroll("user-2", course.ID); !errors.Is(err, ErrCourseFull) {
		t.Fatalf("expected course full, got %v", err)
	}
}

func TestEnrollCancelledSeatFreesCapacity(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Tiny", Price: 0, IsPublished: true, MaxStudents: 1})

	e, err := svc.Enroll("user-1", course.ID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if _, err := svc.SetStatus(e.ID, domain.EnrollmentCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Enroll("user-2", course.ID); err != nil {
		t.Fatalf("cancelled seat should free capacity: %v", err)
	}
}

func TestEnrollTwiceConflicts(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Algo", Price: 100, IsPublished: true})

	if _, err := svc.Enroll("user-1", course.ID); err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	if _, err := svc.Enroll("user-1", course.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestEnrollConcurrentDuplicateYieldsSingleRow(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Algo", Price: 100, IsPublished: true})

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Enroll("user-1", course.ID)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	list, err := mem.ListEnrollmentsByUser("user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected a single row, got %d", len(list))
	}
}

func TestRecordPaymentPromotesPendingAndStampsDate(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Algo", Price: 100, IsPublished: true})
	e, _ := svc.Enroll("user-1", course.ID)

	paid, err := svc.RecordPayment(e.ID, domain.PaymentPaid)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if paid.Status != domain.EnrollmentActive {
		t.Fatalf("paid enrollment should be active, got %s", paid.Status)
	}
	if paid.PaymentDate == nil {
		t.Fatalf("payment date should be set")
	}
	firstDate := *paid.PaymentDate

	again, err := svc.RecordPayment(e.ID, domain.PaymentPaid)
	if err != nil {
		t.Fatalf("repeat payment: %v", err)
	}
	if again.PaymentDate == nil || !again.PaymentDate.Equal(firstDate) {
		t.Fatalf("repeated paid outcome must not move payment date")
	}
}

func TestRecordPaymentFailureDoesNotDemoteActive(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Algo", Price: 100, IsPublished: true})
	e, _ := svc.Enroll("user-1", course.ID)
	if _, err := svc.RecordPayment(e.ID, domain.PaymentPaid); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	after, err := svc.RecordPayment(e.ID, domain.PaymentRefunded)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if after.Status != domain.EnrollmentActive {
		t.Fatalf("refund must not demote status, got %s", after.Status)
	}
	if after.PaymentStatus != domain.PaymentRefunded {
		t.Fatalf("payment axis should track refund, got %s", after.PaymentStatus)
	}
}

func TestRecordPaymentValidatesEnumAndExistence(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Algo", Price: 100, IsPublished: true})
	e, _ := svc.Enroll("user-1", course.ID)

	if _, err := svc.RecordPayment(e.ID, "settled"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.RecordPayment("nope", domain.PaymentPaid); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetStatusCompleteIsIdempotent(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Algo", Price: 0, IsPublished: true})
	e, _ := svc.Enroll("user-1", course.ID)

	done, err := svc.SetStatus(e.ID, domain.EnrollmentCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatalf("completedAt should be stamped")
	}
	first := *done.CompletedAt

	again, err := svc.SetStatus(e.ID, domain.EnrollmentCompleted)
	if err != nil {
		t.Fatalf("repeat complete: %v", err)
	}
	if again.CompletedAt == nil || !again.CompletedAt.Equal(first) {
		t.Fatalf("repeated completion must not move completedAt")
	}
}

func TestSetStatusCancelledIsTerminalForStatusOnly(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Algo", Price: 100, IsPublished: true})
	e, _ := svc.Enroll("user-1", course.ID)

	if _, err := svc.SetStatus(e.ID, domain.EnrollmentCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.SetStatus(e.ID, domain.EnrollmentActive); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("cancelled status must be terminal, got %v", err)
	}

	// Payment axis stays mutable for refund bookkeeping.
	after, err := svc.RecordPayment(e.ID, domain.PaymentRefunded)
	if err != nil {
		t.Fatalf("refund after cancel: %v", err)
	}
	if after.PaymentStatus != domain.PaymentRefunded {
		t.Fatalf("expected refunded payment axis, got %s", after.PaymentStatus)
	}
	if after.Status != domain.EnrollmentCancelled {
		t.Fatalf("status must stay cancelled, got %s", after.Status)
	}
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Algo", Price: 0, IsPublished: true})
	e, _ := svc.Enroll("user-1", course.ID)

	if _, err := svc.SetStatus(e.ID, "paused"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetProgressClampsAndNeverCompletes(t *testing.T) {
	svc, mem := newTestService(t)
	course := seedCourse(t, mem, domain.Course{Title: "Algo", Price: 0, IsPublished: true})
	e, _ := svc.Enroll("user-1", course.ID)

	if got, _ := svc.SetProgress(e.ID, -5); got.Progress != 0 {
		t.Fatalf("negative progress should clamp to 0, got %d", got.Progress)
	}
	got, err := svc.SetProgress(e.ID, 250)
	if err != nil {
		t.Fatalf("set progress: %v", err)
	}
	if got.Progress != 100 {
		t.Fatalf("overflow progress should clamp to 100, got %d", got.Progress)
	}
	if got.Status == domain.EnrollmentCompleted {
		t.Fatalf("progress=100 must not auto-complete the enrollment")
	}
}
