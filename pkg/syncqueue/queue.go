// Package syncqueue buffers report writes that could not reach the database
// and replays them in FIFO order once connectivity returns. Delivery is
// at-least-once: an entry is removed only after its save succeeds, so a
// crash between the two can replay a duplicate. Saves must be idempotent
// by report id.
package syncqueue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"p9e.in/siyana/models"
)

const queueKey = "siyana_offline_queue"

// KV is the minimal persistence the queue needs. Get returns (nil, nil)
// when the key is absent.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Queue is a durable FIFO of pending report saves.
type Queue struct {
	mu sync.Mutex
	kv KV
}

// New creates a queue backed by the given store.
func New(kv KV) *Queue {
	return &Queue{kv: kv}
}

func (q *Queue) load() ([]models.Report, error) {
	raw, err := q.kv.Get(queueKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read offline queue: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var pending []models.Report
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("failed to decode offline queue: %w", err)
	}
	return pending, nil
}

func (q *Queue) store(pending []models.Report) error {
	if len(pending) == 0 {
		if err := q.kv.Delete(queueKey); err != nil {
			return fmt.Errorf("failed to clear offline queue: %w", err)
		}
		return nil
	}
	raw, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode offline queue: %w", err)
	}
	if err := q.kv.Set(queueKey, raw); err != nil {
		return fmt.Errorf("failed to write offline queue: %w", err)
	}
	return nil
}

// Enqueue appends a report to the tail of the queue.
func (q *Queue) Enqueue(report models.Report) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.load()
	if err != nil {
		return err
	}
	pending = append(pending, report)
	if err := q.store(pending); err != nil {
		return err
	}
	log.Printf("📋 Queued report %s for offline sync (%d pending)", report.ID, len(pending))
	return nil
}

// Pending returns a copy of the queued reports in replay order.
func (q *Queue) Pending() ([]models.Report, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

// Len returns the number of queued reports.
func (q *Queue) Len() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending, err := q.load()
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// Flush replays the queue head-first through save. It stops at the first
// failure, leaving the failed entry and everything behind it queued so
// order is preserved across attempts. Returns how many entries synced.
func (q *Queue) Flush(save func(models.Report) error) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.load()
	if err != nil {
		return 0, err
	}

	synced := 0
	for len(pending) > 0 {
		head := pending[0]
		if err := save(head); err != nil {
			// The store already matches pending here: every dequeue below
			// persists before the next iteration, so nothing to rewrite.
			return synced, fmt.Errorf("failed to sync report %s: %w", head.ID, err)
		}
		// Dequeue only after a confirmed save; persist each step so a
		// crash never drops an unsynced entry.
		pending = pending[1:]
		if err := q.store(pending); err != nil {
			return synced, err
		}
		synced++
	}
	if synced > 0 {
		log.Printf("✅ Offline queue flushed: %d report(s) synced", synced)
	}
	return synced, nil
}
