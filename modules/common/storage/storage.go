package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"mpx-generator-server/modules/common/config"
)

type Client struct{}

// NewClient - create the storage client
func NewClient() *Client {
	return &Client{}
}

// DownloadFromURL - fetch a binary artifact from a remote URL
func (c *Client) DownloadFromURL(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	log.Printf("📥 Downloading artifact from: %s", url)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	httpClient := &http.Client{Timeout: timeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("❌ Download failed - Status: %d, URL: %s", resp.StatusCode, url)
		return nil, fmt.Errorf("failed to download artifact: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact data: %w", err)
	}

	log.Printf("✅ Artifact downloaded successfully: %d bytes", len(data))
	return data, nil
}

// UploadModelToStorage - upload a GLB model into the artifacts bucket
func (c *Client) UploadModelToStorage(ctx context.Context, glbData []byte, userID string) (string, int64, error) {
	fileName := fmt.Sprintf("generated_%d_%d.glb", nowMillis(), rand.Intn(999999))
	filePath := fmt.Sprintf("generated-models/user-%s/%s", safeUserSegment(userID), fileName)

	if err := c.uploadToBucket(ctx, filePath, glbData, "model/gltf-binary"); err != nil {
		return "", 0, err
	}

	size := int64(len(glbData))
	log.Printf("✅ GLB model uploaded successfully: %s (%d bytes)", filePath, size)
	return filePath, size, nil
}

// UploadPreviewToStorage - convert the preview PNG to WebP and upload it
func (c *Client) UploadPreviewToStorage(ctx context.Context, pngData []byte, userID string, convertToWebP func([]byte, float32) ([]byte, error)) (string, int64, error) {
	// Convert PNG to WebP (quality: 90)
	webpData, err := convertToWebP(pngData, 90.0)
	if err != nil {
		return "", 0, fmt.Errorf("failed to convert PNG to WebP: %w", err)
	}

	fileName := fmt.Sprintf("preview_%d_%d.webp", nowMillis(), rand.Intn(999999))
	filePath := fmt.Sprintf("generated-previews/user-%s/%s", safeUserSegment(userID), fileName)

	if err := c.uploadToBucket(ctx, filePath, webpData, "image/webp"); err != nil {
		return "", 0, err
	}

	size := int64(len(webpData))
	log.Printf("✅ WebP preview uploaded successfully: %s (%d bytes)", filePath, size)
	return filePath, size, nil
}

// uploadToBucket - POST raw bytes to the Supabase storage REST endpoint
func (c *Client) uploadToBucket(ctx context.Context, filePath string, data []byte, contentType string) error {
	cfg := config.GetConfig()

	log.Printf("📤 Uploading to storage: %s (%s)", filePath, contentType)

	uploadURL := fmt.Sprintf("%s/storage/v1/object/artifacts/%s", cfg.SupabaseURL, filePath)

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", contentType)

	httpClient := &http.Client{}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// PublicURL - public download URL for a stored artifact path
func (c *Client) PublicURL(filePath string) string {
	cfg := config.GetConfig()
	return cfg.SupabaseStorageBaseURL + filePath
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// safeUserSegment - anonymous runs get a shared folder instead of an empty segment
func safeUserSegment(userID string) string {
	if userID == "" {
		return "anonymous"
	}
	return userID
}
