package worker

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"mpx-generator-server/modules/common/config"
	"mpx-generator-server/modules/common/database"
	"mpx-generator-server/modules/common/model"
	redisutil "mpx-generator-server/modules/common/redis"
)

// CancelHandler - job cancellation API handler
type CancelHandler struct {
	rdb *redis.Client
	db  *database.Client
}

// NewCancelHandler - nil when Redis or the ledger is unreachable
func NewCancelHandler() *CancelHandler {
	cfg := config.GetConfig()
	if cfg == nil {
		log.Println("❌ [CancelHandler] Failed to get config")
		return nil
	}

	rdb := redisutil.Connect(cfg)
	if rdb == nil {
		log.Println("❌ [CancelHandler] Failed to connect to Redis")
		return nil
	}

	db := database.NewClient()
	if db == nil {
		log.Println("❌ [CancelHandler] Failed to initialize Database client")
		return nil
	}

	return &CancelHandler{
		rdb: rdb,
		db:  db,
	}
}

// RegisterRoutes - cancel endpoint
func (h *CancelHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/jobs/{jobId}/cancel", h.CancelJob).Methods("POST", "OPTIONS")
	log.Println("✅ [CancelHandler] Routes registered: POST /api/jobs/{jobId}/cancel")
}

// CancelJob - raise the cancel flag for a queued or running job
func (h *CancelHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	jobID := vars["jobId"]

	if jobID == "" {
		http.Error(w, `{"error": "jobId is required"}`, http.StatusBadRequest)
		return
	}

	log.Printf("🛑 [CancelHandler] Cancel requested for job: %s", jobID)

	job, err := h.db.FetchJob(jobID)
	if err != nil {
		log.Printf("❌ [CancelHandler] Job not found: %s", jobID)
		http.Error(w, `{"error": "Job not found"}`, http.StatusNotFound)
		return
	}

	// Settled jobs cannot be cancelled
	if job.JobStatus == model.StatusCompleted || job.JobStatus == model.StatusFailed || job.JobStatus == model.StatusUserCancelled {
		log.Printf("⚠️ [CancelHandler] Job already %s: %s", job.JobStatus, jobID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":    false,
			"message":    "Job already " + job.JobStatus,
			"job_id":     jobID,
			"job_status": job.JobStatus,
		})
		return
	}

	// 1. Set the cancel flag; the worker and poller pick it up
	if err := redisutil.SetJobCancelled(h.rdb, jobID); err != nil {
		log.Printf("❌ [CancelHandler] Failed to set cancel flag: %v", err)
		http.Error(w, `{"error": "Failed to set cancel flag"}`, http.StatusInternalServerError)
		return
	}

	// 2. A job still sitting in the queue settles immediately
	if job.JobStatus == model.StatusPending {
		if err := h.db.UpdateJobStatus(context.Background(), jobID, model.StatusUserCancelled); err != nil {
			log.Printf("⚠️ [CancelHandler] Failed to mark pending job cancelled: %v", err)
		}
	}

	log.Printf("✅ [CancelHandler] Cancel flag set for job: %s (current status: %s)", jobID, job.JobStatus)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":        true,
		"message":        "Cancel request sent. The run will stop at its next check.",
		"job_id":         jobID,
		"current_status": job.JobStatus,
	})
}
