package worker

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	supa "github.com/supabase-community/supabase-go"

	"mpx-generator-server/modules/common/config"
	"mpx-generator-server/modules/common/database"
	"mpx-generator-server/modules/common/model"
	"mpx-generator-server/modules/common/org"
	redisClient "mpx-generator-server/modules/common/redis"
)

// EnqueueHandler - Redis queue enqueue handler
type EnqueueHandler struct {
	rdb      *redis.Client
	db       *database.Client
	supabase *supa.Client
}

// EnqueueRequest - enqueue body
type EnqueueRequest struct {
	JobID string `json:"job_id"`
}

// EnqueueResponse - enqueue result
type EnqueueResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	JobID         string `json:"job_id,omitempty"`
	Queue         string `json:"queue,omitempty"`
	QueuePosition int64  `json:"queuePosition,omitempty"`
}

// NewEnqueueHandler - nil when Redis or the ledger is unreachable
func NewEnqueueHandler() *EnqueueHandler {
	cfg := config.GetConfig()

	rdb := redisClient.Connect(cfg)
	if rdb == nil {
		log.Println("⚠️ [Enqueue] Failed to connect to Redis")
		return nil
	}

	db := database.NewClient()
	if db == nil {
		log.Println("⚠️ [Enqueue] Failed to initialize Database client")
		return nil
	}

	supabase, err := supa.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
	if err != nil {
		log.Printf("⚠️ [Enqueue] Failed to connect to Supabase: %v", err)
		return nil
	}

	log.Println("✅ [Enqueue] Handler initialized with Redis connection")
	return &EnqueueHandler{
		rdb:      rdb,
		db:       db,
		supabase: supabase,
	}
}

// RegisterRoutes - enqueue endpoints
func (h *EnqueueHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/enqueue", h.HandleEnqueue).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/enqueue", h.HandleEnqueue).Methods("POST", "OPTIONS")
	log.Println("✅ Enqueue routes registered: /enqueue, /api/enqueue")
}

// HandleEnqueue - POST /enqueue
func (h *EnqueueHandler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [Enqueue] Invalid request: %v", err)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	if req.JobID == "" {
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "job_id is required",
		})
		return
	}

	log.Printf("📥 [Enqueue] Received job_id: %s", req.JobID)

	// The job row must exist before it can be queued
	job, err := h.db.FetchJob(req.JobID)
	if err != nil {
		log.Printf("❌ [Enqueue] Job not found: %s (%v)", req.JobID, err)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "Job not found",
		})
		return
	}

	// Already settled jobs are not re-queued
	switch job.JobStatus {
	case model.StatusCompleted, model.StatusFailed, model.StatusUserCancelled:
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "Job already " + job.JobStatus,
			JobID:   req.JobID,
		})
		return
	}

	// Workspace-scoped jobs require an active workspace
	if job.WorkspaceID != nil && *job.WorkspaceID != "" {
		if !org.IsWorkspaceActive(h.supabase, job.WorkspaceID) {
			log.Printf("🚫 [Enqueue] Workspace not active for job %s", req.JobID)
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(EnqueueResponse{
				Success: false,
				Error:   "Workspace is not active",
				JobID:   req.JobID,
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = h.rdb.LPush(ctx, "jobs:queue", req.JobID).Result()
	if err != nil {
		log.Printf("❌ [Enqueue] Redis LPUSH failed: %v", err)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	queueLen, _ := h.rdb.LLen(ctx, "jobs:queue").Result()

	log.Printf("✅ [Enqueue] Job %s enqueued successfully (position: %d)", req.JobID, queueLen)

	json.NewEncoder(w).Encode(EnqueueResponse{
		Success:       true,
		Message:       "Job enqueued successfully",
		JobID:         req.JobID,
		Queue:         "jobs:queue",
		QueuePosition: queueLen,
	})
}
