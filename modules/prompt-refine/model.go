package promptrefine

import "time"

// RefineRequest - POST /api/prompt/refine body
type RefineRequest struct {
	Prompt    string `json:"prompt"`
	UserID    string `json:"userId,omitempty"`    // member id; empty for guests
	SessionID string `json:"sessionId,omitempty"` // browser session id, guest quota key
}

// RefineResponse - POST /api/prompt/refine result
type RefineResponse struct {
	Success        bool   `json:"success"`
	RefinedPrompt  string `json:"refinedPrompt,omitempty"`
	OriginalPrompt string `json:"originalPrompt,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	ErrorCode      string `json:"errorCode,omitempty"`

	// Guest quota info
	UsedCount int `json:"usedCount,omitempty"`
	MaxCount  int `json:"maxCount,omitempty"`
}

// RefineUsage - guest usage record stored in Redis
type RefineUsage struct {
	SessionID   string    `json:"sessionId"`
	UsedCount   int       `json:"usedCount"`
	FirstUsedAt time.Time `json:"firstUsedAt"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}

// Error codes
const (
	ErrCodeLimitReached   = "REFINE_LIMIT_REACHED"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// Guest limits
const (
	MaxGuestRefines = 10   // guest refinements per session
	RefineLimitTTL  = 24   // guest quota TTL (hours)
	MaxPromptLength = 2000 // characters
)
