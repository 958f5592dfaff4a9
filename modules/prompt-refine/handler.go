package promptrefine

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

// NewHandler - nil when the service could not be built
func NewHandler(service *Service) *Handler {
	if service == nil {
		return nil
	}
	return &Handler{service: service}
}

// RegisterRoutes - prompt refinement endpoint
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/prompt/refine", h.HandleRefine).Methods("POST", "OPTIONS")
	log.Println("✅ [PromptRefine] Routes registered: /api/prompt/refine")
}

// HandleRefine - POST /api/prompt/refine
func (h *Handler) HandleRefine(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req RefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [PromptRefine] Invalid request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(RefineResponse{
			ErrorMessage: "Invalid request body",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}

	if req.Prompt == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(RefineResponse{
			ErrorMessage: "prompt is required",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}
	if len(req.Prompt) > MaxPromptLength {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(RefineResponse{
			ErrorMessage: "prompt is too long",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}

	isGuest := req.UserID == ""
	if isGuest && req.SessionID == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(RefineResponse{
			ErrorMessage: "sessionId is required for guest requests",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}

	// Guest quota check before spending an API call
	if isGuest {
		usage, limitReached, err := h.service.CheckRefineQuota(r.Context(), req.SessionID)
		if err == nil && limitReached {
			log.Printf("🚫 [PromptRefine] Guest limit reached: session=%s", req.SessionID)
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(RefineResponse{
				ErrorMessage: "Refinement limit reached",
				ErrorCode:    ErrCodeLimitReached,
				UsedCount:    usage.UsedCount,
				MaxCount:     MaxGuestRefines,
			})
			return
		}
	}

	refined, err := h.service.RefinePrompt(r.Context(), req.Prompt)
	if err != nil {
		log.Printf("❌ [PromptRefine] Refinement failed: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(RefineResponse{
			ErrorMessage: "Prompt refinement failed",
			ErrorCode:    ErrCodeInternalError,
		})
		return
	}

	resp := RefineResponse{
		Success:        true,
		RefinedPrompt:  refined,
		OriginalPrompt: req.Prompt,
	}

	if isGuest {
		if usage, err := h.service.IncrementRefineUsage(r.Context(), req.SessionID); err == nil {
			resp.UsedCount = usage.UsedCount
			resp.MaxCount = MaxGuestRefines
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
