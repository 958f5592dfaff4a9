package worker

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"mpx-generator-server/modules/common/database"
)

// StatusHandler - job ledger lookup handler
type StatusHandler struct {
	db *database.Client
}

// NewStatusHandler - nil when the ledger is unreachable
func NewStatusHandler() *StatusHandler {
	db := database.NewClient()
	if db == nil {
		log.Println("❌ [StatusHandler] Failed to initialize Database client")
		return nil
	}
	return &StatusHandler{db: db}
}

// RegisterRoutes - job status endpoint
func (h *StatusHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/jobs/{jobId}", h.GetJob).Methods("GET")
	log.Println("✅ [StatusHandler] Routes registered: GET /api/jobs/{jobId}")
}

// GetJob - GET /api/jobs/{jobId}
func (h *StatusHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	vars := mux.Vars(r)
	jobID := vars["jobId"]

	if jobID == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "jobId is required",
		})
		return
	}

	job, err := h.db.FetchJob(jobID)
	if err != nil {
		log.Printf("❌ [StatusHandler] Failed to fetch job: %v", err)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Job not found",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(job)
}
