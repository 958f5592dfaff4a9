package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"

	"github.com/supabase-community/supabase-go"
	"mpx-generator-server/modules/common/config"
	"mpx-generator-server/modules/common/model"
)

type Client struct {
	supabase *supabase.Client
}

// NewClient - create the database client
func NewClient() *Client {
	cfg := config.GetConfig()

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil
	}

	return &Client{
		supabase: supabaseClient,
	}
}

// FetchJob - load a generation job row
func (c *Client) FetchJob(jobID string) (*model.GenerationJob, error) {
	log.Printf("🔍 Fetching job from Supabase: %s", jobID)

	var jobs []model.GenerationJob

	data, _, err := c.supabase.From("mpx_generation_jobs").
		Select("*", "exact", false).
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query Supabase: %w", err)
	}

	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	job := &jobs[0]
	log.Printf("✅ Job fetched successfully: %s (status: %s, method: %s)",
		job.JobID, job.JobStatus, job.GenerationMethod)

	return job, nil
}

// UpdateJobStatus - update the job lifecycle status
func (c *Client) UpdateJobStatus(ctx context.Context, jobID string, status string) error {
	log.Printf("📝 Updating job %s status to: %s", jobID, status)

	updateData := map[string]interface{}{
		"job_status": status,
		"updated_at": "now()",
	}

	if status == model.StatusProcessing {
		updateData["started_at"] = "now()"
	} else if status == model.StatusCompleted || status == model.StatusFailed || status == model.StatusUserCancelled {
		updateData["completed_at"] = "now()"
	}

	_, _, err := c.supabase.From("mpx_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	log.Printf("✅ Job %s status updated to: %s", jobID, status)
	return nil
}

// UpdateJobProgress - mirror the live run progress into the ledger
func (c *Client) UpdateJobProgress(ctx context.Context, jobID string, progressPercent int, statusText string) error {
	updateData := map[string]interface{}{
		"progress_percent": progressPercent,
		"status_text":      statusText,
		"updated_at":       "now()",
	}

	_, _, err := c.supabase.From("mpx_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	return nil
}

// UpdateJobFailed - terminal failure with the error message
func (c *Client) UpdateJobFailed(ctx context.Context, jobID string, errorMessage string) error {
	log.Printf("📝 Marking job %s failed: %s", jobID, errorMessage)

	updateData := map[string]interface{}{
		"job_status":    model.StatusFailed,
		"error_message": errorMessage,
		"completed_at":  "now()",
		"updated_at":    "now()",
	}

	_, _, err := c.supabase.From("mpx_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job failure: %w", err)
	}

	return nil
}

// UpdateJobCompleted - terminal success with the archived artifact references
func (c *Client) UpdateJobCompleted(ctx context.Context, jobID string, modelAssetID int64, modelURL string, previewURL string) error {
	log.Printf("📝 Marking job %s completed (asset=%d)", jobID, modelAssetID)

	updateData := map[string]interface{}{
		"job_status":       model.StatusCompleted,
		"progress_percent": 100,
		"status_text":      "Model imported successfully!",
		"model_asset_id":   modelAssetID,
		"model_url":        modelURL,
		"completed_at":     "now()",
		"updated_at":       "now()",
	}
	if previewURL != "" {
		updateData["preview_url"] = previewURL
	}

	_, _, err := c.supabase.From("mpx_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job completion: %w", err)
	}

	log.Printf("✅ Job %s completed", jobID)
	return nil
}

// UpdateJobPreview - attach the archived preview URL without touching status
func (c *Client) UpdateJobPreview(ctx context.Context, jobID string, previewURL string) error {
	updateData := map[string]interface{}{
		"preview_url": previewURL,
		"updated_at":  "now()",
	}

	_, _, err := c.supabase.From("mpx_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job preview: %w", err)
	}

	return nil
}

// CreateAssetRecord - register an archived artifact and return its id
func (c *Client) CreateAssetRecord(ctx context.Context, kind string, filePath string, fileSize int64, fileType string, jobID string) (int64, error) {
	log.Printf("💾 Creating asset record for: %s", filePath)

	fileName := path.Base(filePath)

	insertData := map[string]interface{}{
		"asset_kind":         kind,
		"asset_file_name":    fileName,
		"asset_file_path":    filePath,
		"asset_file_size":    fileSize,
		"asset_file_type":    fileType,
		"asset_storage_type": "supabase",
		"job_id":             jobID,
	}

	data, _, err := c.supabase.From("mpx_assets").
		Insert(insertData, false, "", "", "").
		Execute()

	if err != nil {
		return 0, fmt.Errorf("failed to insert asset record: %w", err)
	}

	var assets []model.Asset
	if err := json.Unmarshal(data, &assets); err != nil {
		return 0, fmt.Errorf("failed to parse asset response: %w", err)
	}

	if len(assets) == 0 {
		return 0, fmt.Errorf("no asset record returned")
	}

	assetID := assets[0].AssetID
	log.Printf("✅ Asset record created: ID=%d", assetID)

	return assetID, nil
}
