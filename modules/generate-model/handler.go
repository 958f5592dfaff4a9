package generatemodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"mpx-generator-server/modules/common/fallback"
	"mpx-generator-server/modules/common/utils"
)

// Handler - direct HTTP surface over the workflow controller, for callers
// that bypass the job queue
type Handler struct {
	controller *Controller
}

func NewHandler(controller *Controller) *Handler {
	return &Handler{controller: controller}
}

// RegisterRoutes - generation endpoints
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/generate", h.HandleGenerate).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/generate/status", h.HandleStatus).Methods("GET")
	r.HandleFunc("/api/generate/cancel", h.HandleCancel).Methods("POST", "OPTIONS")
	log.Println("✅ [GenerateModel] Routes registered: /api/generate, /api/generate/status, /api/generate/cancel")
}

// HandleGenerate - POST /api/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [GenerateModel] Invalid request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GenerateResponse{Error: "Invalid request body"})
		return
	}

	method := req.GenerationMethod
	if method == "" {
		method = MethodText
	}
	if method != MethodText && method != MethodImage {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GenerateResponse{Error: "generationMethod must be \"text\" or \"image\""})
		return
	}

	params := RunParams{
		NumSteps:     fallback.ClampSteps(req.NumSteps),
		TextureSize:  fallback.ClampTextureSize(req.TextureSize),
		Seed:         fallback.ClampSeed(req.Seed),
		RefinePrompt: req.RefinePrompt,
		UserID:       req.UserID,
	}

	var tempImage string
	switch method {
	case MethodText:
		if req.Prompt == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(GenerateResponse{Error: "prompt is required for text generation"})
			return
		}
		params.Prompt = req.Prompt

	case MethodImage:
		if req.ImageBase64 == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(GenerateResponse{Error: "imageBase64 is required for image generation"})
			return
		}
		data, err := utils.DecodeBase64Image(req.ImageBase64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(GenerateResponse{Error: "Invalid image data"})
			return
		}
		tempImage = filepath.Join(os.TempDir(), fmt.Sprintf("mpx_upload_%d.%s", time.Now().UnixNano(), utils.SniffImageExtension(data)))
		if err := os.WriteFile(tempImage, data, 0644); err != nil {
			log.Printf("❌ [GenerateModel] Failed to save uploaded image: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(GenerateResponse{Error: "Failed to save uploaded image"})
			return
		}
		params.SourceIsImage = true
		params.ImagePath = tempImage
		params.ImageName = req.ImageName
	}

	runID, err := h.controller.Start(r.Context(), params)
	if err != nil {
		if tempImage != "" {
			os.Remove(tempImage)
		}
		switch {
		case errors.Is(err, ErrRunActive):
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(GenerateResponse{Error: "A generation run is already active"})
		case errors.Is(err, ErrNoClient):
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(GenerateResponse{Error: err.Error()})
		default:
			log.Printf("❌ [GenerateModel] Failed to start run: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(GenerateResponse{Error: err.Error()})
		}
		return
	}

	// The uploaded source stays on disk until the run finishes
	if tempImage != "" {
		done := h.controller.Done()
		go func(path string) {
			<-done
			os.Remove(path)
		}(tempImage)
	}

	log.Printf("✅ [GenerateModel] Run accepted: %s (%s)", runID, method)

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(GenerateResponse{
		Success: true,
		RunID:   runID,
		Message: "Generation started",
	})
}

// HandleStatus - GET /api/generate/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.controller.Status())
}

// HandleCancel - POST /api/generate/cancel
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	snap := h.controller.Status()
	if !snap.Active {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"message":   "No active generation run",
			"cancelled": false,
		})
		return
	}

	h.controller.Cancel()

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"message":   "Cancellation requested",
		"cancelled": true,
		"runId":     snap.RunID,
	})
}
