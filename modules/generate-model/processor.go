package generatemodel

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// processGeneratedImage - bridge between the image phase and the model
// phase on the text path: download the generated image, hand a copy to the
// preview hook, re-upload it as an asset and create the image-to-3D job.
func (c *Controller) processGeneratedImage(ctx context.Context, imageURL string) error {
	c.status.setProgress(40, "Downloading generated image...")

	data, err := c.store.DownloadFromURL(ctx, imageURL, c.cfg.ImageDownloadTimeout)
	if err != nil {
		return fmt.Errorf("failed to download generated image: %v", err)
	}

	imagePath := filepath.Join(c.tmpDir, tempImageName)
	if err := os.WriteFile(imagePath, data, 0644); err != nil {
		return fmt.Errorf("failed to save generated image: %v", err)
	}
	c.status.setImagePath(imagePath)
	log.Printf("🖼️ [GenerateModel] Saved generated image: %s (%d bytes)", imagePath, len(data))

	if c.onPreview != nil {
		meta := ImportMeta{UserID: c.params.UserID, JobID: c.status.RunID()}
		preview := make([]byte, len(data))
		copy(preview, data)
		c.startWorker(func() {
			c.onPreview(preview, meta)
		})
	}

	c.status.setProgress(50, "Uploading image for 3D conversion...")

	asset, err := c.client.CreateUploadAsset(ctx, "Generated image for 3D conversion", "generated_image.png", "image/png")
	if err != nil {
		return fmt.Errorf("failed to create upload asset: %v", err)
	}
	c.status.setAssetJob(asset.RequestID)

	if err := c.client.UploadAssetBytes(ctx, asset.AssetURL, "image/png", data); err != nil {
		return fmt.Errorf("failed to upload generated image: %v", err)
	}

	c.status.setProgress(60, "Starting 3D model generation...")

	modelID, err := c.client.CreateImageTo3DJob(ctx, asset.RequestID, c.params.Seed, c.params.TextureSize)
	if err != nil {
		return fmt.Errorf("failed to start 3D model generation: %v", err)
	}

	c.status.setModelJob(modelID)
	c.status.advance(PhaseModel, 60, textGeneratingModel)
	return nil
}
