package syncqueue

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"p9e.in/siyana/models"
)

func queuedReport(desc string) models.Report {
	return models.Report{
		ID:          uuid.New(),
		Status:      models.StatusCompleted,
		Priority:    models.PriorityNormal,
		Description: desc,
	}
}

func TestFlushReplaysInOrder(t *testing.T) {
	q := New(NewMemKV())

	a := queuedReport("أ")
	b := queuedReport("ب")
	c := queuedReport("ج")
	for _, r := range []models.Report{a, b, c} {
		if err := q.Enqueue(r); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	var saved []uuid.UUID
	synced, err := q.Flush(func(r models.Report) error {
		saved = append(saved, r.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if synced != 3 {
		t.Errorf("synced = %d, want 3", synced)
	}
	want := []uuid.UUID{a.ID, b.ID, c.ID}
	for i := range want {
		if saved[i] != want[i] {
			t.Errorf("saved[%d] = %s, want %s", i, saved[i], want[i])
		}
	}
	if n, _ := q.Len(); n != 0 {
		t.Errorf("queue length after flush = %d, want 0", n)
	}
}

func TestFlushStopsOnFirstFailure(t *testing.T) {
	q := New(NewMemKV())

	a := queuedReport("أ")
	b := queuedReport("ب")
	c := queuedReport("ج")
	for _, r := range []models.Report{a, b, c} {
		if err := q.Enqueue(r); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	dbDown := errors.New("connection refused")
	synced, err := q.Flush(func(r models.Report) error {
		if r.ID == b.ID {
			return dbDown
		}
		return nil
	})
	if err == nil {
		t.Fatal("Flush succeeded despite a failing save")
	}
	if !errors.Is(err, dbDown) {
		t.Errorf("error chain lost the save failure: %v", err)
	}
	if synced != 1 {
		t.Errorf("synced = %d, want 1", synced)
	}

	// B and C must still be queued, in order, so the next flush resumes
	// exactly where this one stopped.
	pending, perr := q.Pending()
	if perr != nil {
		t.Fatalf("Pending: %v", perr)
	}
	if len(pending) != 2 || pending[0].ID != b.ID || pending[1].ID != c.ID {
		t.Fatalf("pending after partial flush = %v", pending)
	}

	synced, err = q.Flush(func(models.Report) error { return nil })
	if err != nil || synced != 2 {
		t.Errorf("resume flush: synced = %d, err = %v; want 2, nil", synced, err)
	}
}

// countingKV wraps a KV and counts writes.
type countingKV struct {
	KV
	sets int
}

func (c *countingKV) Set(key string, value []byte) error {
	c.sets++
	return c.KV.Set(key, value)
}

func TestFlushFailedHeadWritesNothing(t *testing.T) {
	kv := &countingKV{KV: NewMemKV()}
	q := New(kv)
	if err := q.Enqueue(queuedReport("أ")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	before := kv.sets
	_, err := q.Flush(func(models.Report) error {
		return errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("Flush succeeded despite a failing save")
	}
	// Nothing was dequeued, so the stored queue is already current and
	// the flush must not rewrite it.
	if kv.sets != before {
		t.Errorf("failed flush wrote the store %d time(s)", kv.sets-before)
	}
	if n, _ := q.Len(); n != 1 {
		t.Errorf("queue length = %d, want 1", n)
	}
}

func TestFlushEmptyQueueIsNoop(t *testing.T) {
	q := New(NewMemKV())
	synced, err := q.Flush(func(models.Report) error {
		t.Fatal("save called on empty queue")
		return nil
	})
	if err != nil || synced != 0 {
		t.Errorf("empty flush: synced = %d, err = %v", synced, err)
	}
}

func TestFileKVSurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "queue")

	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	q := New(kv)
	r := queuedReport("انقطاع الشبكة")
	if err := q.Enqueue(r); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Simulate a restart: new store instance over the same directory.
	kv2, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("NewFileKV reopen: %v", err)
	}
	pending, err := New(kv2).Pending()
	if err != nil {
		t.Fatalf("Pending after reopen: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != r.ID {
		t.Fatalf("pending after reopen = %v, want the queued report", pending)
	}
	if pending[0].Description != r.Description {
		t.Errorf("description = %q, want %q", pending[0].Description, r.Description)
	}
}

func TestFileKVDeleteMissingKey(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	if err := kv.Delete("nope"); err != nil {
		t.Errorf("Delete on missing key returned %v", err)
	}
}
