package cancel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"mpx-generator-server/modules/common/model"
)

// fakeUpdater - in-memory StatusUpdater recording ledger writes
type fakeUpdater struct {
	cancelled map[string]bool
	updates   map[string]string
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{cancelled: map[string]bool{}, updates: map[string]string{}}
}

func (f *fakeUpdater) IsJobCancelled(jobID string) bool {
	return f.cancelled[jobID]
}

func (f *fakeUpdater) UpdateJobStatus(ctx context.Context, jobID string, status string) error {
	f.updates[jobID] = status
	return nil
}

func TestCheckAndHandleCancelBeforeRun(t *testing.T) {
	updater := newFakeUpdater()
	job := &model.GenerationJob{JobID: "job-1"}

	assert.False(t, CheckAndHandleCancelBeforeRun(context.Background(), updater, job))
	assert.Empty(t, updater.updates)

	updater.cancelled["job-1"] = true
	assert.True(t, CheckAndHandleCancelBeforeRun(context.Background(), updater, job))
	assert.Equal(t, model.StatusUserCancelled, updater.updates["job-1"])
}

func TestCheckCancelDuringRun(t *testing.T) {
	updater := newFakeUpdater()

	assert.False(t, CheckCancelDuringRun(updater, "job-1"))

	updater.cancelled["job-1"] = true
	assert.True(t, CheckCancelDuringRun(updater, "job-1"))

	// The mid-run check never writes the ledger itself
	assert.Empty(t, updater.updates)
}

func TestHandleFinalStatus(t *testing.T) {
	updater := newFakeUpdater()
	job := &model.GenerationJob{JobID: "job-1"}

	assert.False(t, HandleFinalStatus(context.Background(), updater, job))

	updater.cancelled["job-1"] = true
	assert.True(t, HandleFinalStatus(context.Background(), updater, job))
	assert.Equal(t, model.StatusUserCancelled, updater.updates["job-1"])
}
