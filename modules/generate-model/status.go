package generatemodel

import (
	"sync"
	"time"
)

// Status is the shared generation status record. The controller and its
// poller are the only writers; every other surface (HTTP handlers, the watch
// hub, the queue worker) reads consistent snapshots. It is re-initialized at
// the start of every run and keeps the last terminal state readable until the
// next start.
type Status struct {
	mu sync.RWMutex

	runID  string
	method string

	active     bool
	cancelled  bool
	phase      Phase
	progress   int
	statusText string
	errorText  string

	imageRequestID string
	modelRequestID string
	assetRequestID string

	imageURL  string
	modelURL  string
	imagePath string
	modelPath string

	lastPollTime time.Time
	startTime    time.Time

	activeWorkers int

	archivedAssetID  int64
	archivedModelURL string

	notify func(Snapshot)
}

// Snapshot - read-only copy of the status record
type Snapshot struct {
	RunID            string    `json:"runId,omitempty"`
	GenerationMethod string    `json:"generationMethod,omitempty"`
	Active           bool      `json:"active"`
	Cancelled        bool      `json:"cancelled,omitempty"`
	Phase            Phase     `json:"phase"`
	ProgressPercent  int       `json:"progressPercent"`
	StatusText       string    `json:"statusText,omitempty"`
	ErrorText        string    `json:"errorText,omitempty"`
	ImageRequestID   string    `json:"imageRequestId,omitempty"`
	ModelRequestID   string    `json:"modelRequestId,omitempty"`
	AssetRequestID   string    `json:"assetRequestId,omitempty"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	ModelURL         string    `json:"modelUrl,omitempty"`
	ImagePath        string    `json:"imagePath,omitempty"`
	ModelPath        string    `json:"modelPath,omitempty"`
	StartTime        time.Time `json:"startTime,omitempty"`
	ElapsedSeconds   int       `json:"elapsedSeconds,omitempty"`
	ActiveWorkers    int       `json:"activeWorkers,omitempty"`
	ArchivedAssetID  int64     `json:"archivedAssetId,omitempty"`
	ArchivedModelURL string    `json:"archivedModelUrl,omitempty"`
}

// NewStatus - fresh idle status record
func NewStatus() *Status {
	return &Status{phase: PhaseNone}
}

// SetNotify - register the listener fired after every mutation.
// Must be set before any run starts.
func (s *Status) SetNotify(fn func(Snapshot)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// Snapshot - consistent copy for readers
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Status) snapshotLocked() Snapshot {
	snap := Snapshot{
		RunID:            s.runID,
		GenerationMethod: s.method,
		Active:           s.active,
		Cancelled:        s.cancelled,
		Phase:            s.phase,
		ProgressPercent:  s.progress,
		StatusText:       s.statusText,
		ErrorText:        s.errorText,
		ImageRequestID:   s.imageRequestID,
		ModelRequestID:   s.modelRequestID,
		AssetRequestID:   s.assetRequestID,
		ImageURL:         s.imageURL,
		ModelURL:         s.modelURL,
		ImagePath:        s.imagePath,
		ModelPath:        s.modelPath,
		StartTime:        s.startTime,
		ActiveWorkers:    s.activeWorkers,
		ArchivedAssetID:  s.archivedAssetID,
		ArchivedModelURL: s.archivedModelURL,
	}
	if !s.startTime.IsZero() {
		snap.ElapsedSeconds = int(time.Since(s.startTime).Seconds())
	}
	return snap
}

// Active - whether a run is in progress
func (s *Status) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// RunID - id of the current (or last) run
func (s *Status) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// mutate - run fn under the write lock, then fire the listener outside it
func (s *Status) mutate(fn func()) {
	s.mu.Lock()
	fn()
	notify := s.notify
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}

// beginRun - reset the whole record for a new run. Everything from the
// previous run is blanked; only the listener survives.
func (s *Status) beginRun(runID, method string) {
	s.mutate(func() {
		s.runID = runID
		s.method = method
		s.active = true
		s.cancelled = false
		s.phase = PhaseNone
		s.progress = 5
		s.statusText = "Initializing..."
		s.errorText = ""
		s.imageRequestID = ""
		s.modelRequestID = ""
		s.assetRequestID = ""
		s.imageURL = ""
		s.modelURL = ""
		s.imagePath = ""
		s.modelPath = ""
		s.lastPollTime = time.Time{}
		s.startTime = time.Now()
		s.activeWorkers = 0
		s.archivedAssetID = 0
		s.archivedModelURL = ""
	})
}

// setProgress - progress percentage plus status text
func (s *Status) setProgress(progress int, text string) {
	s.mutate(func() {
		s.progress = progress
		s.statusText = text
	})
}

// setStatusText - status text only (elapsed-time refreshes)
func (s *Status) setStatusText(text string) {
	s.mutate(func() {
		s.statusText = text
	})
}

// advance - move to the next phase with its milestone progress
func (s *Status) advance(phase Phase, progress int, text string) {
	s.mutate(func() {
		s.phase = phase
		s.progress = progress
		s.statusText = text
	})
}

func (s *Status) setImageJob(requestID string) {
	s.mutate(func() { s.imageRequestID = requestID })
}

func (s *Status) setAssetJob(requestID string) {
	s.mutate(func() { s.assetRequestID = requestID })
}

func (s *Status) setModelJob(requestID string) {
	s.mutate(func() { s.modelRequestID = requestID })
}

func (s *Status) setImageURL(url string) {
	s.mutate(func() { s.imageURL = url })
}

func (s *Status) setImagePath(path string) {
	s.mutate(func() { s.imagePath = path })
}

func (s *Status) setModelURL(url string) {
	s.mutate(func() { s.modelURL = url })
}

func (s *Status) setModelPath(path string) {
	s.mutate(func() { s.modelPath = path })
}

func (s *Status) setImportResult(res *ImportResult) {
	s.mutate(func() {
		s.archivedAssetID = res.AssetID
		s.archivedModelURL = res.PublicURL
	})
}

// shouldPoll - whether the throttle window since the last remote check passed
func (s *Status) shouldPoll(now time.Time, throttle time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastPollTime) >= throttle
}

// markPolled - record the remote check time
func (s *Status) markPolled(now time.Time) {
	s.mu.Lock()
	s.lastPollTime = now
	s.mu.Unlock()
}

// fail - terminal failure. The last status text stays alongside the error.
func (s *Status) fail(msg string) {
	s.mutate(func() {
		s.errorText = msg
		s.active = false
	})
}

// cancelRun - neutral cancelled state, distinguishable from failure
func (s *Status) cancelRun() {
	s.mutate(func() {
		s.active = false
		s.cancelled = true
		s.phase = PhaseNone
		s.progress = 0
		s.statusText = "Generation cancelled"
	})
}

// finish - terminal success
func (s *Status) finish() {
	s.mutate(func() {
		s.active = false
		s.phase = PhaseNone
		s.progress = 100
		s.statusText = "Model imported successfully!"
	})
}

func (s *Status) registerWorker() {
	s.mu.Lock()
	s.activeWorkers++
	s.mu.Unlock()
}

func (s *Status) unregisterWorker() {
	s.mu.Lock()
	if s.activeWorkers > 0 {
		s.activeWorkers--
	}
	s.mu.Unlock()
}
