package generatemodel

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

type downloadResult struct {
	path string
	err  error
}

// startModelDownload - fetch the GLB on a worker goroutine so polling stays
// responsive. The result lands in a buffered channel that the poller drains;
// if the run was cancelled in the meantime the result is simply dropped.
func (c *Controller) startModelDownload(modelURL string) {
	ch := c.downloadCh
	timeout := c.cfg.ModelDownloadTimeout
	modelPath := filepath.Join(c.tmpDir, tempModelName)

	c.startWorker(func() {
		data, err := c.store.DownloadFromURL(context.Background(), modelURL, timeout)
		if err != nil {
			ch <- downloadResult{err: fmt.Errorf("failed to download 3D model: %v", err)}
			return
		}
		if err := os.WriteFile(modelPath, data, 0644); err != nil {
			ch <- downloadResult{err: fmt.Errorf("failed to save 3D model: %v", err)}
			return
		}
		log.Printf("📦 [GenerateModel] Saved 3D model: %s (%d bytes)", modelPath, len(data))
		ch <- downloadResult{path: modelPath}
	})
}

// checkDownload - non-blocking poll of the download handoff channel.
// Returns true when the run reached a terminal state.
func (c *Controller) checkDownload(ctx context.Context) bool {
	select {
	case result := <-c.downloadCh:
		if result.err != nil {
			c.failRun(result.err.Error())
			return true
		}
		c.status.setModelPath(result.path)
		return c.importModel(ctx, result.path)
	default:
		return false
	}
}

// importModel - hand the downloaded GLB to the importer and finish the run
func (c *Controller) importModel(ctx context.Context, modelPath string) bool {
	c.status.setProgress(90, "Importing 3D model...")

	if c.importer == nil {
		c.failRun(ErrImporterUnavailable.Error())
		return true
	}

	meta := ImportMeta{UserID: c.params.UserID, JobID: c.status.RunID()}
	result, err := c.importer.ImportModel(ctx, modelPath, meta)
	if err != nil {
		c.failRun(fmt.Sprintf("failed to import model: %v", err))
		return true
	}
	if result != nil {
		c.status.setImportResult(result)
	}

	c.status.finish()
	log.Printf("✅ [GenerateModel] Run completed: %s", c.status.RunID())
	c.cleanupTempFiles()
	c.endRun()
	return true
}
