package generatemodel

import (
	"context"
	"fmt"
	"log"
	"time"

	"mpx-generator-server/modules/common/fallback"
	"mpx-generator-server/modules/common/mpx"
)

const (
	textGeneratingImage      = "Generating image from text..."
	textGeneratingModel      = "Generating 3D model..."
	textGeneratingModelImage = "Generating 3D model from image..."
)

// pollLoop - heartbeat of a run. Every tick re-reads the status record, so
// cancellation and failure from any goroutine are observed within one tick.
// Remote status checks are throttled separately from the tick rate.
func (c *Controller) pollLoop(ctx context.Context, runID string) {
	log.Printf("⏱️ [GenerateModel] Poller started for run: %s", runID)
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for range ticker.C {
		if c.tick(ctx, time.Now()) {
			log.Printf("⏱️ [GenerateModel] Poller stopped for run: %s", runID)
			return
		}
	}
}

// tick - advance the run one step. Returns true when the run reached a
// terminal state and the poller should exit.
func (c *Controller) tick(ctx context.Context, now time.Time) bool {
	snap := c.status.Snapshot()

	if !snap.Active {
		if snap.Cancelled {
			c.cleanupTempFiles()
		}
		c.endRun()
		return true
	}

	switch snap.Phase {
	case PhaseImage, PhaseModel:
		if !c.status.shouldPoll(now, c.cfg.PollThrottle) {
			c.updateElapsed(snap)
			return false
		}
		c.status.markPolled(now)
		c.pollCount++
		if c.cfg.MaxPollsPerPhase > 0 && c.pollCount > c.cfg.MaxPollsPerPhase {
			c.failRun(fmt.Sprintf("Generation timed out in %s phase", snap.Phase))
			return true
		}
		return c.pollPhase(ctx, snap)

	case PhaseProcessImage:
		if err := c.processGeneratedImage(ctx, snap.ImageURL); err != nil {
			c.failRun(err.Error())
			return true
		}
		return false

	case PhaseDownloadModel:
		return c.checkDownload(ctx)
	}

	return false
}

// pollPhase - one remote status check for the phase's pending job
func (c *Controller) pollPhase(ctx context.Context, snap Snapshot) bool {
	requestID := snap.ImageRequestID
	if snap.Phase == PhaseModel {
		requestID = snap.ModelRequestID
	}

	job, err := c.client.GetJobStatus(ctx, requestID)
	if err != nil {
		c.failRun(fmt.Sprintf("Error checking generation status: %v", err))
		return true
	}

	switch job.Status {
	case mpx.StatusComplete:
		if snap.Phase == PhaseImage {
			return c.handleImageComplete(job)
		}
		return c.handleModelComplete(job)

	case mpx.StatusFailed:
		if snap.Phase == PhaseImage {
			c.failRun("Image generation failed")
		} else {
			c.failRun("3D model generation failed")
		}
		return true

	default:
		if snap.Phase == PhaseModel {
			c.status.setProgress(c.mapModelProgress(job.Progress, snap), withElapsed(snap, baseText(snap)))
		} else {
			c.updateElapsed(snap)
		}
		return false
	}
}

// handleImageComplete - record the generated image and move to the
// processing phase; the next tick performs the download and re-upload
func (c *Controller) handleImageComplete(job *mpx.JobStatus) bool {
	if job.Outputs == nil || len(job.Outputs.Images) == 0 {
		c.failRun("No images were generated")
		return true
	}

	c.status.setImageURL(job.Outputs.Images[0])
	c.status.advance(PhaseProcessImage, 35, "Image generated successfully!")
	c.pollCount = 0
	return false
}

// handleModelComplete - record the GLB location and kick off the background
// download; the poller keeps ticking and collects the result
func (c *Controller) handleModelComplete(job *mpx.JobStatus) bool {
	if job.Outputs == nil || job.Outputs.GLB == "" {
		c.failRun("No GLB model was generated")
		return true
	}

	c.status.setModelURL(job.Outputs.GLB)
	c.status.advance(PhaseDownloadModel, 80, "3D model generated successfully!")
	c.pollCount = 0

	c.startModelDownload(job.Outputs.GLB)
	c.status.setProgress(85, "Downloading 3D model...")
	return false
}

// mapModelProgress - fold the API's 0..1 model progress into the run's
// percent scale. A direct image run enters the model phase earlier, so it
// gets a wider band than a text run. Malformed progress values fall back to
// the band midpoint rather than failing the run.
func (c *Controller) mapModelProgress(raw interface{}, snap Snapshot) int {
	base, span, mid := 60, 20, 70
	if isDirectRun(snap) {
		base, span, mid = 45, 35, 60
	}

	p, ok := fallback.SafeFloat(raw)
	if !ok {
		return mid
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	progress := base + int(p*float64(span))
	if progress > 80 {
		progress = 80
	}
	return progress
}

// isDirectRun - an image-sourced run has an asset upload but never an
// image generation job
func isDirectRun(snap Snapshot) bool {
	return snap.AssetRequestID != "" && snap.ImageRequestID == ""
}

// baseText - the waiting text for the current generating phase
func baseText(snap Snapshot) string {
	switch {
	case snap.Phase == PhaseImage:
		return textGeneratingImage
	case snap.Phase == PhaseModel && isDirectRun(snap):
		return textGeneratingModelImage
	case snap.Phase == PhaseModel:
		return textGeneratingModel
	}
	return ""
}

// updateElapsed - refresh the elapsed suffix on ticks that skip the remote
// check, so the status text keeps moving between polls
func (c *Controller) updateElapsed(snap Snapshot) {
	base := baseText(snap)
	if base == "" {
		return
	}
	c.status.setStatusText(withElapsed(snap, base))
}

func withElapsed(snap Snapshot, base string) string {
	return fmt.Sprintf("%s (%dm %ds)", base, snap.ElapsedSeconds/60, snap.ElapsedSeconds%60)
}
