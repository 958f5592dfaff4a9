package cancel

import (
	"context"
	"log"

	"mpx-generator-server/modules/common/model"
)

// StatusUpdater - the ledger surface cancellation handling needs
type StatusUpdater interface {
	IsJobCancelled(jobID string) bool
	UpdateJobStatus(ctx context.Context, jobID string, status string) error
}

// CheckAndHandleCancelBeforeRun - cancel check before any remote call is made.
// Marks the job user_cancelled and returns true when the flag is set.
func CheckAndHandleCancelBeforeRun(ctx context.Context, service StatusUpdater, job *model.GenerationJob) bool {
	if !service.IsJobCancelled(job.JobID) {
		return false
	}

	log.Printf("🛑 Job %s cancelled before start, skipping run", job.JobID)
	service.UpdateJobStatus(ctx, job.JobID, model.StatusUserCancelled)
	return true
}

// CheckCancelDuringRun - lightweight flag check inside the progress loop
func CheckCancelDuringRun(service StatusUpdater, jobID string) bool {
	if service.IsJobCancelled(jobID) {
		log.Printf("🛑 Job %s cancelled mid-run", jobID)
		return true
	}
	return false
}

// HandleFinalStatus - keeps a cancelled job from being overwritten at the end.
// Returns true when the job settled as user_cancelled.
func HandleFinalStatus(ctx context.Context, service StatusUpdater, job *model.GenerationJob) bool {
	if !service.IsJobCancelled(job.JobID) {
		return false
	}

	log.Printf("🛑 Job %s was cancelled, keeping user_cancelled status", job.JobID)
	service.UpdateJobStatus(ctx, job.JobID, model.StatusUserCancelled)
	return true
}
