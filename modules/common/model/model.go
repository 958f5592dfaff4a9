package model

import "time"

// GenerationJob - mpx_generation_jobs table row
type GenerationJob struct {
	JobID            string                 `json:"job_id"`
	JobType          string                 `json:"job_type"`
	GenerationMethod string                 `json:"generation_method"` // "text" or "image"
	JobStatus        string                 `json:"job_status"`
	ProgressPercent  int                    `json:"progress_percent"`
	StatusText       *string                `json:"status_text"`
	JobInputData     map[string]interface{} `json:"job_input_data"`
	ModelAssetID     *int64                 `json:"model_asset_id"`
	ModelURL         *string                `json:"model_url"`
	PreviewURL       *string                `json:"preview_url"`
	ErrorMessage     *string                `json:"error_message"`
	CreatedAt        time.Time              `json:"created_at"`
	StartedAt        *time.Time             `json:"started_at"`
	CompletedAt      *time.Time             `json:"completed_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	MemberID         *string                `json:"member_id"`
	WorkspaceID      *string                `json:"workspace_id"`
	EstimatedCredits int                    `json:"estimated_credits"`
}

// JobInputData - job_input_data JSONB shape for generate_model jobs
type JobInputData struct {
	GenerationMethod string `json:"generationMethod"` // "text" or "image"
	Prompt           string `json:"prompt"`
	ImageBase64      string `json:"imageBase64"` // image path input, base64 encoded
	ImageName        string `json:"imageName"`   // original filename for asset naming
	NumSteps         int    `json:"numSteps"`
	TextureSize      int    `json:"textureSize"`
	Seed             int    `json:"seed"`
	RefinePrompt     bool   `json:"refinePrompt"`
	UserID           string `json:"userId"`
}

// Asset - mpx_assets table row (archived artifacts)
type Asset struct {
	AssetID          int64     `json:"asset_id"`
	CreatedAt        time.Time `json:"created_at"`
	AssetKind        *string   `json:"asset_kind"` // "model" or "preview"
	AssetFileName    *string   `json:"asset_file_name"`
	AssetFilePath    *string   `json:"asset_file_path"`
	AssetFileSize    *int64    `json:"asset_file_size"`
	AssetFileType    *string   `json:"asset_file_type"`
	AssetStorageType *string   `json:"asset_storage_type"`
	JobID            *string   `json:"job_id"`
}

const (
	StatusPending       = "pending"
	StatusProcessing    = "processing"
	StatusCompleted     = "completed"
	StatusFailed        = "failed"
	StatusUserCancelled = "user_cancelled"
)

// JobTypeGenerateModel - the queue job type this server processes
const JobTypeGenerateModel = "generate_model"
