package generatemodel

import (
	"context"
	"errors"

	"mpx-generator-server/modules/common/mpx"
)

// Phase - one discrete stage of the generation pipeline
type Phase string

const (
	PhaseNone          Phase = "none"
	PhaseImage         Phase = "image"
	PhaseProcessImage  Phase = "process_image"
	PhaseModel         Phase = "model"
	PhaseDownloadModel Phase = "download_model"
)

// Generation methods
const (
	MethodText  = "text"
	MethodImage = "image"
)

var (
	// ErrRunActive - a second start was attempted while a run is in progress
	ErrRunActive = errors.New("a generation run is already active")

	// ErrNoClient - the API credential is missing or the client failed to build
	ErrNoClient = errors.New("no API client configured, check MPX_SDK_BEARER_TOKEN")

	// ErrImporterUnavailable - no importer collaborator is wired
	ErrImporterUnavailable = errors.New("model importer is not available")
)

// RunParams - inputs for one generation run
type RunParams struct {
	Prompt        string
	ImagePath     string
	ImageName     string // original filename for asset naming; base of ImagePath when empty
	SourceIsImage bool
	NumSteps      int
	TextureSize   int
	Seed          int
	RefinePrompt  bool
	UserID        string
	JobID         string // ledger job id; direct API runs get a fresh run id instead
}

// APIClient - the remote generation API surface the workflow drives
type APIClient interface {
	CreateTextToImageJob(ctx context.Context, prompt string, numImages, numSteps int, loraID string) (string, error)
	CreateUploadAsset(ctx context.Context, description, name, mimeType string) (*mpx.UploadAsset, error)
	UploadAssetBytes(ctx context.Context, uploadURL, mimeType string, data []byte) error
	CreateImageTo3DJob(ctx context.Context, imageRequestID string, seed, textureSize int) (string, error)
	GetJobStatus(ctx context.Context, requestID string) (*mpx.JobStatus, error)
}

// Refiner - optional prompt refinement consulted on the text path
type Refiner interface {
	RefinePrompt(ctx context.Context, prompt string) (string, error)
}

// ImportMeta - run identity handed to the importer and archive hooks
type ImportMeta struct {
	UserID string
	JobID  string
}

// ImportResult - where the finished model ended up
type ImportResult struct {
	AssetID   int64
	PublicURL string
}

// Importer - hands the finished model file to its destination
type Importer interface {
	ImportModel(ctx context.Context, localPath string, meta ImportMeta) (*ImportResult, error)
}

// GenerateRequest - POST /api/generate body
type GenerateRequest struct {
	GenerationMethod string `json:"generationMethod,omitempty"` // "text" (default) or "image"
	Prompt           string `json:"prompt,omitempty"`
	ImageBase64      string `json:"imageBase64,omitempty"`
	ImageName        string `json:"imageName,omitempty"`
	NumSteps         int    `json:"numSteps,omitempty"`
	TextureSize      int    `json:"textureSize,omitempty"`
	Seed             int    `json:"seed,omitempty"`
	RefinePrompt     bool   `json:"refinePrompt,omitempty"`
	UserID           string `json:"userId,omitempty"`
}

// GenerateResponse - POST /api/generate result
type GenerateResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
