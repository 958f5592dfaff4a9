package mpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client - Masterpiece X generative API client, bound to one bearer credential
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
}

// NewClient - create a client for the given API base URL.
// Token resolution order: explicit argument, then MPX_SDK_BEARER_TOKEN.
func NewClient(baseURL, bearerToken string) *Client {
	if bearerToken == "" {
		bearerToken = os.Getenv("MPX_SDK_BEARER_TOKEN")
	}
	if bearerToken == "" {
		log.Println("❌ [MPX] No bearer token configured")
		return nil
	}
	if baseURL == "" {
		baseURL = "https://api.genai.masterpiecex.com/v1"
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		bearerToken: bearerToken,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CreateTextToImageJob - start a text-to-image generation job
func (c *Client) CreateTextToImageJob(ctx context.Context, prompt string, numImages, numSteps int, loraID string) (string, error) {
	reqData := TextToImageRequest{
		Prompt:    prompt,
		NumImages: numImages,
		NumSteps:  numSteps,
		LoraID:    loraID,
	}

	log.Printf("🚀 [MPX] Creating text2image job (steps: %d)...", numSteps)

	var result CreateJobResponse
	if err := c.postJSON(ctx, "/components/text2image", reqData, &result); err != nil {
		return "", err
	}

	if result.RequestID == "" {
		return "", fmt.Errorf("text2image response missing request id")
	}

	log.Printf("✅ [MPX] Text2image job created: %s", result.RequestID)
	return result.RequestID, nil
}

// CreateUploadAsset - register an asset upload and return its presigned URL
func (c *Client) CreateUploadAsset(ctx context.Context, description, name, mimeType string) (*UploadAsset, error) {
	reqData := CreateAssetRequest{
		Description: description,
		Name:        name,
		Type:        mimeType,
	}

	log.Printf("🚀 [MPX] Creating upload asset: %s (%s)...", name, mimeType)

	var result UploadAsset
	if err := c.postJSON(ctx, "/assets/create", reqData, &result); err != nil {
		return nil, err
	}

	if result.RequestID == "" || result.AssetURL == "" {
		return nil, fmt.Errorf("invalid asset response from API")
	}

	log.Printf("✅ [MPX] Upload asset created: %s", result.RequestID)
	return &result, nil
}

// UploadAssetBytes - PUT the raw file bytes to the presigned asset URL
func (c *Client) UploadAssetBytes(ctx context.Context, uploadURL, mimeType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, "PUT", uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Content-Type", mimeType)

	log.Printf("📤 [MPX] Uploading asset bytes (%d bytes)...", len(data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("asset upload returned status %d: %s", resp.StatusCode, string(body))
	}

	log.Printf("✅ [MPX] Asset bytes uploaded")
	return nil
}

// CreateImageTo3DJob - start an image-to-3D generation job for an uploaded asset
func (c *Client) CreateImageTo3DJob(ctx context.Context, imageRequestID string, seed, textureSize int) (string, error) {
	reqData := ImageTo3DRequest{
		ImageRequestID: imageRequestID,
		Seed:           seed,
		TextureSize:    textureSize,
	}

	log.Printf("🚀 [MPX] Creating imageto3d job (seed: %d, texture: %d)...", seed, textureSize)

	var result CreateJobResponse
	if err := c.postJSON(ctx, "/functions/imageto3d", reqData, &result); err != nil {
		return "", err
	}

	if result.RequestID == "" {
		return "", fmt.Errorf("imageto3d response missing request id")
	}

	log.Printf("✅ [MPX] Imageto3d job created: %s", result.RequestID)
	return result.RequestID, nil
}

// GetJobStatus - poll a job by its request id
func (c *Client) GetJobStatus(ctx context.Context, requestID string) (*JobStatus, error) {
	statusURL := fmt.Sprintf("%s/status/%s", c.baseURL, requestID)

	req, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result JobStatus
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// postJSON - marshal, POST with bearer auth, check status, unmarshal
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
