package mpx

// Remote job status values as reported by the API.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// LoraGame - the style id used for game-ready asset generation
const LoraGame = "mpx_game"

// TextToImageRequest - POST /components/text2image
type TextToImageRequest struct {
	Prompt    string `json:"prompt"`
	NumImages int    `json:"numImages"`
	NumSteps  int    `json:"numSteps"`
	LoraID    string `json:"loraId,omitempty"`
}

// CreateAssetRequest - POST /assets/create
type CreateAssetRequest struct {
	Description string `json:"description"`
	Name        string `json:"name"`
	Type        string `json:"type"` // MIME type of the upload
}

// ImageTo3DRequest - POST /functions/imageto3d
type ImageTo3DRequest struct {
	ImageRequestID string `json:"imageRequestId"`
	Seed           int    `json:"seed"`
	TextureSize    int    `json:"textureSize"`
}

// CreateJobResponse - job creation endpoints return the request id to poll
type CreateJobResponse struct {
	RequestID string `json:"requestId"`
}

// UploadAsset - asset creation returns the id and the presigned upload URL
type UploadAsset struct {
	RequestID string `json:"requestId"`
	AssetURL  string `json:"assetUrl"`
}

// JobOutputs - artifacts of a completed job
type JobOutputs struct {
	Images []string `json:"images,omitempty"`
	GLB    string   `json:"glb,omitempty"`
}

// JobStatus - GET /status/{requestId} response.
// Progress is a fraction in [0,1] but its shape is not guaranteed, so it is
// kept loose and coerced by the caller.
type JobStatus struct {
	RequestID string      `json:"requestId"`
	Status    string      `json:"status"`
	Progress  interface{} `json:"progress,omitempty"`
	Outputs   *JobOutputs `json:"outputs,omitempty"`
}
