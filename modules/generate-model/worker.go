package generatemodel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"mpx-generator-server/modules/common/cancel"
	"mpx-generator-server/modules/common/credit"
	"mpx-generator-server/modules/common/database"
	"mpx-generator-server/modules/common/fallback"
	"mpx-generator-server/modules/common/model"
	redisutil "mpx-generator-server/modules/common/redis"
	"mpx-generator-server/modules/common/utils"
)

// runSlotRetryInterval - how long a queued job waits before re-trying the
// single run slot
const runSlotRetryInterval = 2 * time.Second

// ledgerUpdater - cancel.StatusUpdater over the Redis cancel flag and the
// job ledger
type ledgerUpdater struct {
	rdb *redis.Client
	db  *database.Client
}

func (u *ledgerUpdater) IsJobCancelled(jobID string) bool {
	return redisutil.IsJobCancelled(u.rdb, jobID)
}

func (u *ledgerUpdater) UpdateJobStatus(ctx context.Context, jobID string, status string) error {
	return u.db.UpdateJobStatus(ctx, jobID, status)
}

// ProcessJob - run one generate_model ledger job through the workflow
// controller, mirroring run status into the ledger until the run settles
func ProcessJob(ctx context.Context, rdb *redis.Client, db *database.Client, credits *credit.Client, ctrl *Controller, job *model.GenerationJob) {
	log.Printf("🚀 [GenerateModel Worker] Processing job: %s", job.JobID)

	updater := &ledgerUpdater{rdb: rdb, db: db}

	// 1. Honor a cancel flag raised while the job sat in the queue
	if cancel.CheckAndHandleCancelBeforeRun(ctx, updater, job) {
		redisutil.ClearJobCancelled(rdb, job.JobID)
		return
	}

	// 2. Build run params from the ledger row
	params, tempImage, err := paramsFromJob(job)
	if err != nil {
		log.Printf("❌ [GenerateModel Worker] Invalid job input: %v", err)
		db.UpdateJobFailed(ctx, job.JobID, err.Error())
		return
	}
	if tempImage != "" {
		defer os.Remove(tempImage)
	}

	// 3. Mark processing
	if err := db.UpdateJobStatus(ctx, job.JobID, model.StatusProcessing); err != nil {
		log.Printf("⚠️ [GenerateModel Worker] Failed to update job status: %v", err)
	}

	// 4. Claim the run slot; a direct API run may still be draining it
	for {
		_, err = ctrl.Start(ctx, params)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrRunActive) {
			log.Printf("❌ [GenerateModel Worker] Failed to start run: %v", err)
			db.UpdateJobFailed(ctx, job.JobID, err.Error())
			return
		}
		if cancel.CheckCancelDuringRun(updater, job.JobID) {
			db.UpdateJobStatus(ctx, job.JobID, model.StatusUserCancelled)
			redisutil.ClearJobCancelled(rdb, job.JobID)
			return
		}
		log.Printf("⏳ [GenerateModel Worker] Run slot busy, job %s waiting...", job.JobID)
		time.Sleep(runSlotRetryInterval)
	}

	// 5. Mirror progress and watch the cancel flag until the run settles
	mirrorRun(ctx, updater, ctrl, job)

	// 6. Write the terminal snapshot to the ledger
	finishJob(ctx, db, credits, job, ctrl.Status())
	redisutil.ClearJobCancelled(rdb, job.JobID)
}

// mirrorRun - once a second, push progress changes to the ledger and relay
// the Redis cancel flag into the controller
func mirrorRun(ctx context.Context, updater *ledgerUpdater, ctrl *Controller, job *model.GenerationJob) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	done := ctrl.Done()
	lastProgress := -1
	lastText := ""

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := ctrl.Status()
			if snap.ProgressPercent != lastProgress || snap.StatusText != lastText {
				lastProgress = snap.ProgressPercent
				lastText = snap.StatusText
				if err := updater.db.UpdateJobProgress(ctx, job.JobID, snap.ProgressPercent, snap.StatusText); err != nil {
					log.Printf("⚠️ [GenerateModel Worker] Failed to mirror progress: %v", err)
				}
			}
			if snap.Active && cancel.CheckCancelDuringRun(updater, job.JobID) {
				ctrl.Cancel()
			}
		}
	}
}

// finishJob - translate the terminal run snapshot into the job's final
// ledger status
func finishJob(ctx context.Context, db *database.Client, credits *credit.Client, job *model.GenerationJob, snap Snapshot) {
	switch {
	case snap.Cancelled:
		log.Printf("🛑 [GenerateModel Worker] Job %s cancelled by user", job.JobID)
		if err := db.UpdateJobStatus(ctx, job.JobID, model.StatusUserCancelled); err != nil {
			log.Printf("⚠️ [GenerateModel Worker] Failed to mark job cancelled: %v", err)
		}

	case snap.ErrorText != "":
		log.Printf("❌ [GenerateModel Worker] Job %s failed: %s", job.JobID, snap.ErrorText)
		if err := db.UpdateJobFailed(ctx, job.JobID, snap.ErrorText); err != nil {
			log.Printf("⚠️ [GenerateModel Worker] Failed to mark job failed: %v", err)
		}

	default:
		// Preview URL is written separately by the preview archive hook
		if err := db.UpdateJobCompleted(ctx, job.JobID, snap.ArchivedAssetID, snap.ArchivedModelURL, ""); err != nil {
			log.Printf("⚠️ [GenerateModel Worker] Failed to mark job completed: %v", err)
		}
		log.Printf("✅ [GenerateModel Worker] Job %s completed", job.JobID)

		if credits != nil && job.MemberID != nil && *job.MemberID != "" {
			if err := credits.DeductCredits(ctx, *job.MemberID, job.JobID, snap.ArchivedAssetID); err != nil {
				log.Printf("⚠️ [GenerateModel Worker] Credit deduction failed (job still completed): %v", err)
			}
		}
	}
}

// paramsFromJob - extract run parameters from the job_input_data payload.
// Missing numeric fields fall back to safe defaults; an image job writes
// its source to a temp file and returns the path for cleanup.
func paramsFromJob(job *model.GenerationJob) (RunParams, string, error) {
	input := job.JobInputData

	method := fallback.SafeString(input["generationMethod"], job.GenerationMethod)
	if method == "" {
		method = MethodText
	}

	params := RunParams{
		JobID:        job.JobID,
		Prompt:       fallback.SafeString(input["prompt"], ""),
		ImageName:    fallback.SafeString(input["imageName"], ""),
		NumSteps:     fallback.ClampSteps(input["numSteps"]),
		TextureSize:  fallback.ClampTextureSize(input["textureSize"]),
		Seed:         fallback.ClampSeed(input["seed"]),
		RefinePrompt: fallback.SafeBool(input["refinePrompt"], false),
		UserID:       fallback.SafeString(input["userId"], ""),
	}
	if params.UserID == "" && job.MemberID != nil {
		params.UserID = *job.MemberID
	}

	if method != MethodImage {
		if params.Prompt == "" {
			return params, "", fmt.Errorf("missing prompt in job input")
		}
		return params, "", nil
	}

	imageBase64 := fallback.SafeString(input["imageBase64"], "")
	if imageBase64 == "" {
		return params, "", fmt.Errorf("missing imageBase64 in job input")
	}
	data, err := utils.DecodeBase64Image(imageBase64)
	if err != nil {
		return params, "", err
	}

	tempImage := filepath.Join(os.TempDir(), fmt.Sprintf("mpx_job_%s.%s", job.JobID, utils.SniffImageExtension(data)))
	if err := os.WriteFile(tempImage, data, 0644); err != nil {
		return params, "", fmt.Errorf("failed to save job image: %w", err)
	}

	params.SourceIsImage = true
	params.ImagePath = tempImage
	return params, tempImage, nil
}
