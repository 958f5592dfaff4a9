package generatemodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatusIdle(t *testing.T) {
	s := NewStatus()
	snap := s.Snapshot()

	assert.False(t, snap.Active)
	assert.Equal(t, PhaseNone, snap.Phase)
	assert.Equal(t, 0, snap.ProgressPercent)
	assert.Empty(t, snap.RunID)
}

func TestBeginRunResetsRecord(t *testing.T) {
	s := NewStatus()

	// Leave a previous run's residue behind
	s.beginRun("run-1", "text")
	s.setImageJob("img-1")
	s.setImageURL("https://cdn.example/img.png")
	s.setImportResult(&ImportResult{AssetID: 9, PublicURL: "https://cdn.example/a.glb"})
	s.fail("boom")

	s.beginRun("run-2", "image")
	snap := s.Snapshot()

	assert.Equal(t, "run-2", snap.RunID)
	assert.Equal(t, "image", snap.GenerationMethod)
	assert.True(t, snap.Active)
	assert.False(t, snap.Cancelled)
	assert.Equal(t, PhaseNone, snap.Phase)
	assert.Equal(t, 5, snap.ProgressPercent)
	assert.Equal(t, "Initializing...", snap.StatusText)
	assert.Empty(t, snap.ErrorText)
	assert.Empty(t, snap.ImageRequestID)
	assert.Empty(t, snap.ImageURL)
	assert.Zero(t, snap.ArchivedAssetID)
	assert.Empty(t, snap.ArchivedModelURL)
	assert.False(t, snap.StartTime.IsZero())
}

func TestFailKeepsLastStatusText(t *testing.T) {
	s := NewStatus()
	s.beginRun("run-1", "text")
	s.setProgress(50, "Halfway there")

	s.fail("generation exploded")
	snap := s.Snapshot()

	assert.False(t, snap.Active)
	assert.False(t, snap.Cancelled)
	assert.Equal(t, "generation exploded", snap.ErrorText)
	assert.Equal(t, "Halfway there", snap.StatusText)
}

func TestCancelRun(t *testing.T) {
	s := NewStatus()
	s.beginRun("run-1", "text")
	s.setProgress(60, "Generating 3D model...")

	s.cancelRun()
	snap := s.Snapshot()

	assert.False(t, snap.Active)
	assert.True(t, snap.Cancelled)
	assert.Equal(t, PhaseNone, snap.Phase)
	assert.Equal(t, 0, snap.ProgressPercent)
	assert.Equal(t, "Generation cancelled", snap.StatusText)
	assert.Empty(t, snap.ErrorText)
}

func TestFinish(t *testing.T) {
	s := NewStatus()
	s.beginRun("run-1", "image")
	s.advance(PhaseModel, 60, "Generating 3D model...")
	s.setImportResult(&ImportResult{AssetID: 7, PublicURL: "https://cdn.example/model.glb"})

	s.finish()
	snap := s.Snapshot()

	assert.False(t, snap.Active)
	assert.Equal(t, PhaseNone, snap.Phase)
	assert.Equal(t, 100, snap.ProgressPercent)
	assert.Equal(t, "Model imported successfully!", snap.StatusText)
	assert.Equal(t, int64(7), snap.ArchivedAssetID)
	assert.Equal(t, "https://cdn.example/model.glb", snap.ArchivedModelURL)
}

func TestNotifyFiresOutsideLock(t *testing.T) {
	s := NewStatus()

	var got []Snapshot
	s.SetNotify(func(snap Snapshot) {
		// Reading back through the public API must not deadlock
		_ = s.Active()
		got = append(got, snap)
	})

	s.beginRun("run-1", "text")
	s.setProgress(10, "Starting image generation...")

	require.Len(t, got, 2)
	assert.True(t, got[0].Active)
	assert.Equal(t, 5, got[0].ProgressPercent)
	assert.Equal(t, 10, got[1].ProgressPercent)
	assert.Equal(t, "Starting image generation...", got[1].StatusText)
}

func TestShouldPollThrottle(t *testing.T) {
	s := NewStatus()
	now := time.Now()

	// First check of a run always polls
	assert.True(t, s.shouldPoll(now, 3*time.Second))

	s.markPolled(now)
	assert.False(t, s.shouldPoll(now.Add(time.Second), 3*time.Second))
	assert.False(t, s.shouldPoll(now.Add(2900*time.Millisecond), 3*time.Second))
	assert.True(t, s.shouldPoll(now.Add(3*time.Second), 3*time.Second))
}

func TestWorkerCounter(t *testing.T) {
	s := NewStatus()

	s.registerWorker()
	s.registerWorker()
	assert.Equal(t, 2, s.Snapshot().ActiveWorkers)

	s.unregisterWorker()
	assert.Equal(t, 1, s.Snapshot().ActiveWorkers)

	s.unregisterWorker()
	s.unregisterWorker()
	assert.Equal(t, 0, s.Snapshot().ActiveWorkers)
}
