// handlers/sync_handlers.go
package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"
	"p9e.in/siyana/config"
	"p9e.in/siyana/models"
	"p9e.in/siyana/pkg/syncqueue"
)

// reportQueue holds closeouts that could not reach the database. Set once
// at startup via InitSyncQueue.
var reportQueue *syncqueue.Queue

// InitSyncQueue wires the offline queue to its store.
func InitSyncQueue(kv syncqueue.KV) {
	reportQueue = syncqueue.New(kv)
}

// saveQueuedReport is the replay target. Queued closeouts carry their
// parts usage unpriced (no name, no price) because the original
// transaction rolled back, so the replay prices them and decrements stock
// in the same transaction as the save. Save is an upsert by primary key,
// so replaying a duplicate after a crash is harmless.
func saveQueuedReport(report models.Report) error {
	return config.DB.Transaction(func(tx *gorm.DB) error {
		priced := make(models.PartsUsageList, 0, len(report.PartsUsage))
		var unpriced []models.PartsUsage
		for _, u := range report.PartsUsage {
			if u.PartName == "" {
				unpriced = append(unpriced, u)
				continue
			}
			priced = append(priced, u)
		}
		if len(unpriced) > 0 {
			usage, low, err := pricePartsUsage(tx, unpriced)
			if err != nil {
				return err
			}
			report.PartsUsage = append(priced, usage...)
			for _, part := range low {
				log.Printf("⚠️ Part %s low after offline replay: %d left (min %d)",
					part.SKU, part.Quantity, part.MinLevel)
			}
		}
		return tx.Save(&report).Error
	})
}

// FlushQueue replays pending reports now. Flushing an empty queue is fine.
func FlushQueue() (int, error) {
	return reportQueue.Flush(saveQueuedReport)
}

// StartSyncFlusher retries the queue in the background until the database
// comes back. Runs for the life of the process.
func StartSyncFlusher(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			n, err := FlushQueue()
			if err != nil {
				log.Printf("⚠️ Offline sync attempt: %d synced, stopped at: %v", n, err)
			}
		}
	}()
	log.Printf("📋 Offline sync flusher started (every %s)", interval)
}

// SyncStatus — GET /sync/status
func SyncStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := reportQueue.Pending()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ids := make([]string, len(pending))
	for i, rep := range pending {
		ids[i] = rep.ID.String()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"pending":   len(pending),
		"reportIds": ids,
	})
}

// TriggerSync — POST /sync/flush, manual retry button.
func TriggerSync(w http.ResponseWriter, r *http.Request) {
	synced, err := FlushQueue()
	resp := map[string]interface{}{"synced": synced}
	if err != nil {
		resp["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
