package generatemodel

import (
	"context"
	"fmt"
	"log"
	"os"

	"mpx-generator-server/modules/common/database"
	"mpx-generator-server/modules/common/storage"
)

// StorageImporter archives a finished GLB: upload to bucket storage, record
// an asset row, hand back the public URL. It holds no per-run state, so one
// instance serves every run.
type StorageImporter struct {
	db    *database.Client
	store *storage.Client
}

// NewStorageImporter - nil db disables asset records but keeps uploads working
func NewStorageImporter(db *database.Client, store *storage.Client) *StorageImporter {
	if store == nil {
		store = storage.NewClient()
	}
	return &StorageImporter{db: db, store: store}
}

// ImportModel - read the downloaded GLB and move it to permanent storage
func (im *StorageImporter) ImportModel(ctx context.Context, localPath string, meta ImportMeta) (*ImportResult, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	filePath, fileSize, err := im.store.UploadModelToStorage(ctx, data, meta.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to upload model to storage: %w", err)
	}

	publicURL := im.store.PublicURL(filePath)
	result := &ImportResult{PublicURL: publicURL}

	if im.db != nil {
		assetID, err := im.db.CreateAssetRecord(ctx, "model", filePath, fileSize, "model/gltf-binary", meta.JobID)
		if err != nil {
			log.Printf("⚠️ [GenerateModel] Model uploaded but asset record failed: %v", err)
		} else {
			result.AssetID = assetID
		}
	}

	log.Printf("📥 [GenerateModel] Model imported: %s (%d bytes)", publicURL, len(data))
	return result, nil
}
